package course

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/elimuhq/elimu/core"
)

// Lesson types
const (
	LessonVideo      = "video"
	LessonText       = "text"
	LessonQuiz       = "quiz"
	LessonAssignment = "assignment"
)

var LessonTypes = []string{LessonVideo, LessonText, LessonQuiz, LessonAssignment}

type Course struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Category     string    `json:"category"`
	CoverImage   string    `json:"cover_image"`
	InstructorID string    `json:"instructor_id"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
}

// Detail is a Course with its derived collections: lessons by reverse lookup,
// students from the enrollment ledger.
type Detail struct {
	Course
	Lessons    []Lesson `json:"lessons"`
	StudentIDs []string `json:"students"`
}

type (
	// Lesson is a tagged union keyed on Type: exactly one of the type-specific
	// payloads (Video, Quiz) is set, and only for the matching type.
	Lesson struct {
		ID        string    `json:"id"`
		CourseID  string    `json:"course_id"`
		Title     string    `json:"title"`
		Type      string    `json:"type"`
		Content   string    `json:"content,omitempty"`
		Duration  string    `json:"duration,omitempty"`
		Order     int       `json:"order"`
		Video     *Video    `json:"video,omitempty"`
		Quiz      *Quiz     `json:"quiz,omitempty"`
		CreatedAt time.Time `json:"created_at"` // UTC
		UpdatedAt time.Time `json:"updated_at"` // UTC
	}

	Video struct {
		MediaURL string `json:"media_url"`
	}

	Quiz struct {
		Questions []Question `json:"questions" validate:"min=1,dive"`
	}

	Question struct {
		Text               string   `json:"text" validate:"required"`
		Options            []string `json:"options" validate:"min=2,dive,required"`
		CorrectOptionIndex int      `json:"correct_option_index" validate:"gte=0"`
		Points             int      `json:"points" validate:"gte=0"`
	}
)

func (l Lesson) IsQuiz() bool { return l.Type == LessonQuiz && l.Quiz != nil }

// TotalPoints is the sum of all question points.
func (q Quiz) TotalPoints() int {
	var total int
	for _, qn := range q.Questions {
		total += qn.Points
	}
	return total
}

// Grade scores an answer sheet: each question awards its points iff the picked
// option index matches its correct one. answers[i] answers Questions[i];
// a short sheet simply scores the questions it covers. Pure and deterministic.
func (q Quiz) Grade(answers []int) int {
	var score int
	for i, qn := range q.Questions {
		if i >= len(answers) {
			break
		}
		if answers[i] == qn.CorrectOptionIndex {
			score += qn.Points
		}
	}
	return score
}

func (q Quiz) validateIndexes() error {
	for i, qn := range q.Questions {
		if qn.CorrectOptionIndex >= len(qn.Options) {
			return core.NewValidationError(nil, core.FieldError{
				Field: fmt.Sprintf("questions[%d].correct_option_index", i),
				Error: "correct option index is out of range",
			})
		}
	}
	return nil
}

// NewCourse contains information needed to create a new Course.
type NewCourse struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description" validate:"required"`
	Category    string `json:"category" validate:"required"`
	CoverImage  string `json:"cover_image" validate:"omitempty,url"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Title = core.CleanString(nc.Title)
	nc.Description = core.CleanString(nc.Description)
	nc.Category = core.CleanString(nc.Category)
	nc.CoverImage = core.CleanString(nc.CoverImage)
	return validate.Struct(nc)
}

// UpdateCourse defines what information may be provided to modify an existing
// Course. Empty fields are left unchanged.
type UpdateCourse struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	CoverImage  string `json:"cover_image" validate:"omitempty,url"`
}

func (uc *UpdateCourse) Validate(validate *validator.Validate) error {
	uc.Title = core.CleanString(uc.Title)
	uc.Description = core.CleanString(uc.Description)
	uc.Category = core.CleanString(uc.Category)
	uc.CoverImage = core.CleanString(uc.CoverImage)
	return validate.Struct(uc)
}

// NewLesson contains information needed to add a lesson to a course.
// The payload must match the type: media URL for video lessons only,
// questions for quiz lessons only.
type NewLesson struct {
	Title     string     `json:"title" validate:"required"`
	Type      string     `json:"type" validate:"required,lessontype"`
	Content   string     `json:"content"`
	MediaURL  string     `json:"media_url"`
	Duration  string     `json:"duration"`
	Order     int        `json:"order" validate:"gte=0"`
	Questions []Question `json:"questions" validate:"omitempty,dive"`
}

var (
	errMediaURLRequired   = "a media URL is required for video lessons"
	errMediaURLForbidden  = "a media URL is only allowed on video lessons"
	errQuestionsRequired  = "at least one question is required for quiz lessons"
	errQuestionsForbidden = "questions are only allowed on quiz lessons"
)

func (nl *NewLesson) Validate(validate *validator.Validate) error {
	nl.Title = core.CleanString(nl.Title)
	nl.Type = core.CleanString(nl.Type, true /* lower */)
	nl.MediaURL = core.CleanString(nl.MediaURL)
	if err := validate.Struct(nl); err != nil {
		return err
	}

	switch nl.Type {
	case LessonVideo:
		if nl.MediaURL == "" {
			return core.NewValidationError(nil, core.FieldError{Field: "media_url", Error: errMediaURLRequired})
		}
		nl.MediaURL = NormalizeVideoURL(nl.MediaURL)
	default:
		if nl.MediaURL != "" {
			return core.NewValidationError(nil, core.FieldError{Field: "media_url", Error: errMediaURLForbidden})
		}
	}

	switch nl.Type {
	case LessonQuiz:
		if len(nl.Questions) == 0 {
			return core.NewValidationError(nil, core.FieldError{Field: "questions", Error: errQuestionsRequired})
		}
		return Quiz{Questions: nl.Questions}.validateIndexes()
	default:
		if len(nl.Questions) > 0 {
			return core.NewValidationError(nil, core.FieldError{Field: "questions", Error: errQuestionsForbidden})
		}
	}
	return nil
}

// UpdateLesson defines what may change on an existing lesson. The lesson type
// is fixed at creation; payload updates must stay within the type's shape.
// Empty fields are left unchanged.
type UpdateLesson struct {
	Title     string     `json:"title"`
	Content   string     `json:"content"`
	MediaURL  string     `json:"media_url"`
	Duration  string     `json:"duration"`
	Order     *int       `json:"order" validate:"omitempty,gte=0"`
	Questions []Question `json:"questions" validate:"omitempty,dive"`
}

func (ul *UpdateLesson) Validate(orig Lesson, validate *validator.Validate) error {
	ul.Title = core.CleanString(ul.Title)
	ul.MediaURL = core.CleanString(ul.MediaURL)
	if err := validate.Struct(ul); err != nil {
		return err
	}

	if ul.MediaURL != "" {
		if orig.Type != LessonVideo {
			return core.NewValidationError(nil, core.FieldError{Field: "media_url", Error: errMediaURLForbidden})
		}
		ul.MediaURL = NormalizeVideoURL(ul.MediaURL)
	}
	if len(ul.Questions) > 0 {
		if orig.Type != LessonQuiz {
			return core.NewValidationError(nil, core.FieldError{Field: "questions", Error: errQuestionsForbidden})
		}
		return Quiz{Questions: ul.Questions}.validateIndexes()
	}
	return nil
}

var youtubeIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]{11}$`)

// NormalizeVideoURL rewrites known YouTube URL shapes (watch links, short
// links, bare 11-char video IDs) to the embeddable form. Anything else is
// returned unchanged.
func NormalizeVideoURL(raw string) string {
	if youtubeIDRegex.MatchString(raw) {
		return "https://www.youtube.com/embed/" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	switch {
	case strings.Contains(u.Hostname(), "youtube.com"):
		if id := u.Query().Get("v"); id != "" {
			return "https://www.youtube.com/embed/" + id
		}
	case strings.Contains(u.Hostname(), "youtu.be"):
		if id := strings.TrimPrefix(u.Path, "/"); id != "" {
			return "https://www.youtube.com/embed/" + id
		}
	}
	return raw
}
