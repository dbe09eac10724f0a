package course

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/elimuhq/elimu/core"
)

var (
	lessonTypeTag  = "lessontype"
	lessonTypeText = "type must be one of: video, text, quiz, assignment"
)

// InitValidators registers this package's custom validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(lessonTypeTag, lessonTypeValidation)
	core.RegisterCustomTranslation(validate, translator, lessonTypeTag, lessonTypeText)
}

func lessonTypeValidation(fl validator.FieldLevel) bool {
	val := fl.Field().String()
	for _, t := range LessonTypes {
		if val == t {
			return true
		}
	}
	return false
}
