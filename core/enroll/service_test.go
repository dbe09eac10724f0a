package enroll_test

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elimuhq/elimu/core"
	"github.com/elimuhq/elimu/core/course"
	"github.com/elimuhq/elimu/core/enroll"
	inmemdb "github.com/elimuhq/elimu/storage/database/inmem"
)

type testEnv struct {
	crsRepo course.Repository
	enrRepo enroll.Repository
	svc     *enroll.Service
}

func newTestEnv() *testEnv {
	db := inmemdb.NewDB()
	crsRepo := inmemdb.NewCourseRepository(db)
	enrRepo := inmemdb.NewEnrollRepository(db)
	return &testEnv{
		crsRepo: crsRepo,
		enrRepo: enrRepo,
		svc:     enroll.NewService(enrRepo, crsRepo),
	}
}

func newTestValidator() *validator.Validate {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")

	validate := validator.New()
	core.InitValidators(validate, translator)
	return validate
}

func (env *testEnv) createCourse(t *testing.T) course.Course {
	t.Helper()
	now := time.Now().UTC()
	crs, err := env.crsRepo.CreateCourse(context.Background(), course.Course{
		Title: "Go 101", Description: "d", Category: "c", InstructorID: "instr-1",
		CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)
	return crs
}

func (env *testEnv) createLesson(t *testing.T, courseID string, order int) course.Lesson {
	t.Helper()
	now := time.Now().UTC()
	lsn, err := env.crsRepo.CreateLesson(context.Background(), course.Lesson{
		CourseID: courseID, Title: "Lesson", Type: course.LessonText, Order: order,
		CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)
	return lsn
}

func (env *testEnv) createQuizLesson(t *testing.T, courseID string, questions []course.Question) course.Lesson {
	t.Helper()
	now := time.Now().UTC()
	lsn, err := env.crsRepo.CreateLesson(context.Background(), course.Lesson{
		CourseID: courseID, Title: "Quiz", Type: course.LessonQuiz,
		Quiz:      &course.Quiz{Questions: questions},
		CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)
	return lsn
}

func ptr(i int) *int { return &i }

func TestService_Enroll(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	crs := env.createCourse(t)

	enr, err := env.svc.Enroll(ctx, "student-1", crs.ID)
	require.NoError(t, err)
	assert.Equal(t, "student-1", enr.StudentID)
	assert.Equal(t, crs.ID, enr.CourseID)
	assert.Empty(t, enr.CompletedLessons)
	assert.False(t, enr.IsCompleted)

	_, err = env.svc.Enroll(ctx, "student-1", crs.ID)
	assert.Equal(t, enroll.ErrAlreadyEnrolled, err)

	_, err = env.svc.Enroll(ctx, "student-1", "nope")
	assert.Equal(t, course.ErrNotFound, err)
}

func TestService_Unenroll(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	crs := env.createCourse(t)

	_, err := env.svc.Enroll(ctx, "student-1", crs.ID)
	require.NoError(t, err)

	require.NoError(t, env.svc.Unenroll(ctx, "student-1", crs.ID))

	_, err = env.svc.GetProgress(ctx, "student-1", crs.ID)
	assert.Equal(t, enroll.ErrNotFound, err)

	assert.Equal(t, enroll.ErrNotFound, env.svc.Unenroll(ctx, "student-1", crs.ID))
}

func TestService_GetProgress_zeroLessons(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	crs := env.createCourse(t)

	_, err := env.svc.Enroll(ctx, "student-1", crs.ID)
	require.NoError(t, err)

	prog, err := env.svc.GetProgress(ctx, "student-1", crs.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, prog.TotalLessons)
	assert.Equal(t, 0, prog.Percent)
}

func TestService_MarkLessonComplete(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	crs := env.createCourse(t)
	l1 := env.createLesson(t, crs.ID, 1)
	l2 := env.createLesson(t, crs.ID, 2)
	l3 := env.createLesson(t, crs.ID, 3)

	_, err := env.svc.Enroll(ctx, "student-1", crs.ID)
	require.NoError(t, err)

	prog, err := env.svc.MarkLessonComplete(ctx, "student-1", crs.ID, l1.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, prog.CompletedCount)
	assert.Equal(t, 3, prog.TotalLessons)
	assert.Equal(t, 33, prog.Percent)

	// marking again is a no-op, not an error
	prog, err = env.svc.MarkLessonComplete(ctx, "student-1", crs.ID, l1.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, prog.CompletedCount)
	assert.Equal(t, 33, prog.Percent)

	prog, err = env.svc.MarkLessonComplete(ctx, "student-1", crs.ID, l2.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, prog.CompletedCount)
	assert.Equal(t, 67, prog.Percent)
	assert.False(t, prog.IsCompleted)

	prog, err = env.svc.MarkLessonComplete(ctx, "student-1", crs.ID, l3.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, prog.Percent)
	assert.True(t, prog.IsCompleted)
}

func TestService_MarkLessonComplete_lessonNotInCourse(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	crs := env.createCourse(t)
	other := env.createCourse(t)
	foreign := env.createLesson(t, other.ID, 1)

	_, err := env.svc.Enroll(ctx, "student-1", crs.ID)
	require.NoError(t, err)

	_, err = env.svc.MarkLessonComplete(ctx, "student-1", crs.ID, foreign.ID)
	assert.Equal(t, enroll.ErrLessonNotInCourse, err)

	_, err = env.svc.MarkLessonComplete(ctx, "student-1", crs.ID, "nope")
	assert.Equal(t, course.ErrLessonNotFound, err)

	_, err = env.svc.MarkLessonComplete(ctx, "student-2", crs.ID, foreign.ID)
	assert.Equal(t, enroll.ErrNotFound, err)
}

func TestService_GetProgress_filtersDeletedLessons(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	crs := env.createCourse(t)
	l1 := env.createLesson(t, crs.ID, 1)
	l2 := env.createLesson(t, crs.ID, 2)

	_, err := env.svc.Enroll(ctx, "student-1", crs.ID)
	require.NoError(t, err)
	_, err = env.svc.MarkLessonComplete(ctx, "student-1", crs.ID, l1.ID)
	require.NoError(t, err)
	_, err = env.svc.MarkLessonComplete(ctx, "student-1", crs.ID, l2.ID)
	require.NoError(t, err)

	// the completed lesson id dangles after deletion; reads never surface it
	require.NoError(t, env.crsRepo.DeleteLesson(ctx, l1.ID))

	prog, err := env.svc.GetProgress(ctx, "student-1", crs.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, prog.TotalLessons)
	assert.Equal(t, 1, prog.CompletedCount)
	assert.Equal(t, []string{l2.ID}, prog.CompletedLessons)
	assert.Equal(t, 100, prog.Percent)
}

func TestService_SubmitQuiz(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	crs := env.createCourse(t)
	quiz := env.createQuizLesson(t, crs.ID, []course.Question{
		{Text: "Q1", Options: []string{"a", "b"}, CorrectOptionIndex: 0, Points: 1},
		{Text: "Q2", Options: []string{"a", "b"}, CorrectOptionIndex: 1, Points: 2},
	})

	_, err := env.svc.Enroll(ctx, "student-1", crs.ID)
	require.NoError(t, err)

	report, err := env.svc.SubmitQuiz(ctx, "student-1", quiz.ID, enroll.QuizSubmission{
		Answers: []*int{ptr(0), ptr(1)},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, report.Score)
	assert.Equal(t, 3, report.TotalPoints)
	assert.Equal(t, float64(100), report.Percent)
	assert.True(t, report.IsPassed)

	// a pass marks the quiz lesson complete
	prog, err := env.svc.GetProgress(ctx, "student-1", crs.ID)
	require.NoError(t, err)
	assert.Contains(t, prog.CompletedLessons, quiz.ID)
}

func TestService_SubmitQuiz_failDoesNotComplete(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	crs := env.createCourse(t)
	quiz := env.createQuizLesson(t, crs.ID, []course.Question{
		{Text: "Q1", Options: []string{"a", "b"}, CorrectOptionIndex: 0, Points: 1},
		{Text: "Q2", Options: []string{"a", "b"}, CorrectOptionIndex: 1, Points: 2},
	})

	_, err := env.svc.Enroll(ctx, "student-1", crs.ID)
	require.NoError(t, err)

	report, err := env.svc.SubmitQuiz(ctx, "student-1", quiz.ID, enroll.QuizSubmission{
		Answers: []*int{ptr(0), ptr(0)}, // 1 of 3 points, rounds to 33%
	})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Score)
	assert.False(t, report.IsPassed)

	prog, err := env.svc.GetProgress(ctx, "student-1", crs.ID)
	require.NoError(t, err)
	assert.NotContains(t, prog.CompletedLessons, quiz.ID)

	// resubmission is allowed; every attempt is kept
	_, err = env.svc.SubmitQuiz(ctx, "student-1", quiz.ID, enroll.QuizSubmission{
		Answers: []*int{ptr(0), ptr(1)},
	})
	require.NoError(t, err)

	attempts, err := env.svc.Attempts(ctx, "student-1", quiz.ID)
	require.NoError(t, err)
	assert.Len(t, attempts, 2)
}

func TestService_SubmitQuiz_passBoundary(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	crs := env.createCourse(t)
	quiz := env.createQuizLesson(t, crs.ID, []course.Question{
		{Text: "Q1", Options: []string{"a", "b"}, CorrectOptionIndex: 0, Points: 3},
		{Text: "Q2", Options: []string{"a", "b"}, CorrectOptionIndex: 1, Points: 2},
	})

	_, err := env.svc.Enroll(ctx, "student-1", crs.ID)
	require.NoError(t, err)

	// 3/5 = exactly 60% passes
	report, err := env.svc.SubmitQuiz(ctx, "student-1", quiz.ID, enroll.QuizSubmission{
		Answers: []*int{ptr(0), ptr(0)},
	})
	require.NoError(t, err)
	assert.Equal(t, float64(60), report.Percent)
	assert.True(t, report.IsPassed)

	// 2/5 = 40% fails
	report, err = env.svc.SubmitQuiz(ctx, "student-1", quiz.ID, enroll.QuizSubmission{
		Answers: []*int{ptr(1), ptr(1)},
	})
	require.NoError(t, err)
	assert.Equal(t, float64(40), report.Percent)
	assert.False(t, report.IsPassed)
}

func TestService_SubmitQuiz_unenrolledStillRecorded(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	crs := env.createCourse(t)
	quiz := env.createQuizLesson(t, crs.ID, []course.Question{
		{Text: "Q1", Options: []string{"a", "b"}, CorrectOptionIndex: 0, Points: 1},
	})

	report, err := env.svc.SubmitQuiz(ctx, "student-9", quiz.ID, enroll.QuizSubmission{
		Answers: []*int{ptr(0)},
	})
	require.NoError(t, err)
	assert.True(t, report.IsPassed)

	attempts, err := env.svc.Attempts(ctx, "student-9", quiz.ID)
	require.NoError(t, err)
	assert.Len(t, attempts, 1)

	// no enrollment was conjured up
	_, err = env.svc.GetProgress(ctx, "student-9", crs.ID)
	assert.Equal(t, enroll.ErrNotFound, err)
}

func TestService_SubmitQuiz_notAQuiz(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	crs := env.createCourse(t)
	text := env.createLesson(t, crs.ID, 1)

	_, err := env.svc.SubmitQuiz(ctx, "student-1", text.ID, enroll.QuizSubmission{
		Answers: []*int{ptr(0)},
	})
	assert.Equal(t, enroll.ErrNotAQuiz, err)
}

func TestQuizSubmission_Validate(t *testing.T) {
	quiz := course.Quiz{Questions: []course.Question{
		{Text: "Q1", Options: []string{"a", "b"}, CorrectOptionIndex: 0, Points: 1},
		{Text: "Q2", Options: []string{"a", "b"}, CorrectOptionIndex: 1, Points: 2},
	}}
	validate := newTestValidator()

	tests := []struct {
		name    string
		answers []*int
		wantErr bool
	}{
		{name: "complete sheet", answers: []*int{ptr(0), ptr(1)}},
		{name: "short sheet", answers: []*int{ptr(0)}, wantErr: true},
		{name: "long sheet", answers: []*int{ptr(0), ptr(1), ptr(0)}, wantErr: true},
		{name: "nil answer", answers: []*int{ptr(0), nil}, wantErr: true},
		{name: "no answers", answers: nil, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := enroll.QuizSubmission{Answers: tt.answers}
			err := sub.Validate(validate, quiz)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v; wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCompletionPercent(t *testing.T) {
	tests := []struct {
		completed, total, want int
	}{
		{0, 0, 0},
		{0, 3, 0},
		{1, 3, 33},
		{2, 3, 67},
		{3, 3, 100},
		{1, 2, 50},
	}
	for _, tt := range tests {
		if got := enroll.CompletionPercent(tt.completed, tt.total); got != tt.want {
			t.Errorf("CompletionPercent(%d, %d) = %d; want %d", tt.completed, tt.total, got, tt.want)
		}
	}
}
