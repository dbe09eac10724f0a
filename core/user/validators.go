package user

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/elimuhq/elimu/core"
)

var (
	selfRoleTag  = "selfrole"
	selfRoleText = "only the student role may be self-assigned"

	anyRoleTag  = "anyrole"
	anyRoleText = "role must be one of: student, instructor, admin"
)

// InitValidators registers this package's custom validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(selfRoleTag, roleValidation(SelfServiceRoles))
	core.RegisterCustomTranslation(validate, translator, selfRoleTag, selfRoleText)

	_ = validate.RegisterValidation(anyRoleTag, roleValidation(AllRoles))
	core.RegisterCustomTranslation(validate, translator, anyRoleTag, anyRoleText)
}

func roleValidation(allowed []string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		val := fl.Field().String()
		for _, role := range allowed {
			if val == role {
				return true
			}
		}
		return false
	}
}
