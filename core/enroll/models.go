package enroll

import (
	"math"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/elimuhq/elimu/core"
	"github.com/elimuhq/elimu/core/course"
)

// PassingPercent is the minimum quiz percentage that counts as a pass.
const PassingPercent = 60

type (
	// Enrollment links a student to a course and records which lessons they
	// have completed. There is at most one per (student, course) pair.
	Enrollment struct {
		ID               string    `json:"id"`
		StudentID        string    `json:"student_id"`
		CourseID         string    `json:"course_id"`
		CompletedLessons []string  `json:"completed_lessons"`
		IsCompleted      bool      `json:"is_completed"`
		CreatedAt        time.Time `json:"created_at"` // UTC
		UpdatedAt        time.Time `json:"updated_at"` // UTC
	}

	// Progress is an Enrollment with its derived completion figures. The
	// counts only consider lessons that still exist in the course, so ids of
	// since-deleted lessons never inflate the percentage.
	Progress struct {
		Enrollment
		CompletedCount int `json:"completed_count"`
		TotalLessons   int `json:"total_lessons"`
		Percent        int `json:"percent"`
	}

	// StudentCourse pairs a student's progress with the course it is for.
	StudentCourse struct {
		Progress
		Course course.Course `json:"course"`
	}

	// QuizResult is one graded attempt. Results are append-only: retakes add
	// rows, they never overwrite.
	QuizResult struct {
		ID          string    `json:"id"`
		StudentID   string    `json:"student_id"`
		LessonID    string    `json:"lesson_id"`
		Score       int       `json:"score"`
		TotalPoints int       `json:"total_points"`
		Percent     float64   `json:"percent"`
		IsPassed    bool      `json:"is_passed"`
		CreatedAt   time.Time `json:"created_at"` // UTC
	}

	// GradeReport is what a submission returns to the student.
	GradeReport struct {
		Score       int     `json:"score"`
		TotalPoints int     `json:"total_points"`
		Percent     float64 `json:"percent"`
		IsPassed    bool    `json:"is_passed"`
	}
)

// CompletionPercent derives a whole-number completion percentage. A course
// with no lessons is 0% complete, never a division by zero.
func CompletionPercent(completed, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(completed) / float64(total) * 100))
}

// QuizSubmission is a student's answer sheet: one picked option index per
// question, in question order. Every question must be answered.
type QuizSubmission struct {
	Answers []*int `json:"answers" validate:"required,min=1"`
}

func (qs *QuizSubmission) Validate(validate *validator.Validate, quiz course.Quiz) error {
	if err := validate.Struct(qs); err != nil {
		return err
	}
	if len(qs.Answers) != len(quiz.Questions) {
		return core.NewValidationError(nil, core.FieldError{
			Field: "answers",
			Error: "every question must be answered",
		})
	}
	for _, ans := range qs.Answers {
		if ans == nil {
			return core.NewValidationError(nil, core.FieldError{
				Field: "answers",
				Error: "every question must be answered",
			})
		}
	}
	return nil
}

// AnswerSheet flattens the validated submission for grading.
func (qs *QuizSubmission) AnswerSheet() []int {
	answers := make([]int, len(qs.Answers))
	for i, ans := range qs.Answers {
		answers[i] = *ans
	}
	return answers
}
