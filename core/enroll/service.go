package enroll

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/elimuhq/elimu/core/course"
)

var (
	// errors
	ErrNotFound          = errors.New("enrollment not found")
	ErrAlreadyEnrolled   = errors.New("student is already enrolled in this course")
	ErrLessonNotInCourse = errors.New("lesson does not belong to this course")
	ErrNotAQuiz          = errors.New("lesson is not a quiz")
)

type (
	Repository interface {
		// CreateEnrollment persists enr with a fresh ID. A second enrollment
		// for the same (student, course) pair must be rejected by the store's
		// unique constraint and surfaced as ErrAlreadyEnrolled.
		CreateEnrollment(ctx context.Context, enr Enrollment) (Enrollment, error)
		GetEnrollment(ctx context.Context, studentID, courseID string) (Enrollment, error)
		QueryEnrollmentsByStudent(ctx context.Context, studentID string) ([]Enrollment, error)
		QueryEnrollmentsByCourse(ctx context.Context, courseID string) ([]Enrollment, error)
		QueryStudentIDsByCourse(ctx context.Context, courseID string) ([]string, error)
		CountEnrollments(ctx context.Context) (int, error)
		// AddCompletedLesson appends lessonID to the enrollment's completed set
		// iff it is not already present, atomically. It reports whether the set
		// changed.
		AddCompletedLesson(ctx context.Context, enrollmentID, lessonID string, at time.Time) (bool, error)
		SetCompleted(ctx context.Context, enrollmentID string, completed bool, at time.Time) error
		DeleteEnrollment(ctx context.Context, id string) error
		DeleteEnrollmentsByCourse(ctx context.Context, courseID string) error

		CreateQuizResult(ctx context.Context, res QuizResult) (QuizResult, error)
		QueryQuizResults(ctx context.Context, studentID, lessonID string) ([]QuizResult, error)
	}

	// Catalog is the slice of the course catalog the ledger needs to resolve
	// lessons and derive completion.
	Catalog interface {
		GetCourseByID(ctx context.Context, id string) (course.Course, error)
		GetLessonByID(ctx context.Context, id string) (course.Lesson, error)
		QueryLessonsByCourse(ctx context.Context, courseID string) ([]course.Lesson, error)
	}

	Service struct {
		repo    Repository
		catalog Catalog
	}
)

func NewService(repo Repository, catalog Catalog) *Service {
	return &Service{repo: repo, catalog: catalog}
}

// Enroll registers studentID in courseID. Enrolling twice in the same course
// yields ErrAlreadyEnrolled.
func (svc *Service) Enroll(ctx context.Context, studentID, courseID string) (Enrollment, error) {
	if _, err := svc.catalog.GetCourseByID(ctx, courseID); err != nil {
		return Enrollment{}, err
	}

	now := time.Now().UTC()
	return svc.repo.CreateEnrollment(ctx, Enrollment{
		StudentID:        studentID,
		CourseID:         courseID,
		CompletedLessons: []string{},
		CreatedAt:        now,
		UpdatedAt:        now,
	})
}

// Unenroll drops the student's enrollment and its progress with it.
func (svc *Service) Unenroll(ctx context.Context, studentID, courseID string) error {
	enr, err := svc.repo.GetEnrollment(ctx, studentID, courseID)
	if err != nil {
		return err
	}
	return svc.repo.DeleteEnrollment(ctx, enr.ID)
}

// GetProgress derives the student's standing in a course from the enrollment
// and the course's current lessons.
func (svc *Service) GetProgress(ctx context.Context, studentID, courseID string) (Progress, error) {
	enr, err := svc.repo.GetEnrollment(ctx, studentID, courseID)
	if err != nil {
		return Progress{}, err
	}
	return svc.progress(ctx, enr)
}

func (svc *Service) progress(ctx context.Context, enr Enrollment) (Progress, error) {
	lessons, err := svc.catalog.QueryLessonsByCourse(ctx, enr.CourseID)
	if err != nil {
		return Progress{}, errors.Wrap(err, "querying lessons")
	}

	live := make(map[string]struct{}, len(lessons))
	for _, lsn := range lessons {
		live[lsn.ID] = struct{}{}
	}
	completed := make([]string, 0, len(enr.CompletedLessons))
	for _, id := range enr.CompletedLessons {
		if _, ok := live[id]; ok {
			completed = append(completed, id)
		}
	}
	enr.CompletedLessons = completed

	return Progress{
		Enrollment:     enr,
		CompletedCount: len(completed),
		TotalLessons:   len(lessons),
		Percent:        CompletionPercent(len(completed), len(lessons)),
	}, nil
}

// ListStudentCourses returns every course the student is enrolled in, each
// with their progress. A course deleted since enrollment is skipped.
func (svc *Service) ListStudentCourses(ctx context.Context, studentID string) ([]StudentCourse, error) {
	enrs, err := svc.repo.QueryEnrollmentsByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}

	scs := make([]StudentCourse, 0, len(enrs))
	for _, enr := range enrs {
		crs, err := svc.catalog.GetCourseByID(ctx, enr.CourseID)
		if err != nil {
			if errors.Cause(err) == course.ErrNotFound {
				continue
			}
			return nil, errors.Wrap(err, "resolving enrolled course")
		}
		prog, err := svc.progress(ctx, enr)
		if err != nil {
			return nil, err
		}
		scs = append(scs, StudentCourse{Progress: prog, Course: crs})
	}
	return scs, nil
}

// MarkLessonComplete records that the student finished a lesson. It is
// idempotent: marking the same lesson twice leaves the ledger unchanged and
// returns the same progress. The lesson must belong to the enrolled course.
func (svc *Service) MarkLessonComplete(ctx context.Context, studentID, courseID, lessonID string) (Progress, error) {
	enr, err := svc.repo.GetEnrollment(ctx, studentID, courseID)
	if err != nil {
		return Progress{}, err
	}
	lsn, err := svc.catalog.GetLessonByID(ctx, lessonID)
	if err != nil {
		return Progress{}, err
	}
	if lsn.CourseID != courseID {
		return Progress{}, ErrLessonNotInCourse
	}

	now := time.Now().UTC()
	added, err := svc.repo.AddCompletedLesson(ctx, enr.ID, lessonID, now)
	if err != nil {
		return Progress{}, errors.Wrap(err, "recording completed lesson")
	}
	if added {
		enr.CompletedLessons = append(enr.CompletedLessons, lessonID)
		enr.UpdatedAt = now
	}

	prog, err := svc.progress(ctx, enr)
	if err != nil {
		return Progress{}, err
	}

	completed := prog.TotalLessons > 0 && prog.CompletedCount == prog.TotalLessons
	if completed != enr.IsCompleted {
		if err = svc.repo.SetCompleted(ctx, enr.ID, completed, now); err != nil {
			return Progress{}, errors.Wrap(err, "updating completion flag")
		}
		prog.IsCompleted = completed
	}
	return prog, nil
}

// GetQuizLesson resolves a lesson and verifies it is a quiz.
func (svc *Service) GetQuizLesson(ctx context.Context, lessonID string) (course.Lesson, error) {
	lsn, err := svc.catalog.GetLessonByID(ctx, lessonID)
	if err != nil {
		return course.Lesson{}, err
	}
	if !lsn.IsQuiz() {
		return course.Lesson{}, ErrNotAQuiz
	}
	return lsn, nil
}

// SubmitQuiz grades the student's answer sheet against the quiz lesson and
// appends the result. Grading is deterministic: the same sheet always yields
// the same score. A passing attempt also marks the lesson complete; an
// attempt from a student who is not enrolled is still graded and recorded,
// only the completion side effect is skipped.
func (svc *Service) SubmitQuiz(ctx context.Context, studentID, lessonID string, sub QuizSubmission) (GradeReport, error) {
	lsn, err := svc.GetQuizLesson(ctx, lessonID)
	if err != nil {
		return GradeReport{}, err
	}
	quiz := *lsn.Quiz

	score := quiz.Grade(sub.AnswerSheet())
	total := quiz.TotalPoints()
	var percent float64
	if total > 0 {
		percent = float64(score) / float64(total) * 100
	}
	passed := percent >= PassingPercent

	res := QuizResult{
		StudentID:   studentID,
		LessonID:    lessonID,
		Score:       score,
		TotalPoints: total,
		Percent:     percent,
		IsPassed:    passed,
		CreatedAt:   time.Now().UTC(),
	}
	if _, err = svc.repo.CreateQuizResult(ctx, res); err != nil {
		return GradeReport{}, errors.Wrap(err, "recording quiz result")
	}

	if passed {
		if _, err = svc.MarkLessonComplete(ctx, studentID, lsn.CourseID, lessonID); err != nil {
			if errors.Cause(err) != ErrNotFound {
				return GradeReport{}, errors.Wrap(err, "marking quiz lesson complete")
			}
		}
	}
	return GradeReport{Score: score, TotalPoints: total, Percent: percent, IsPassed: passed}, nil
}

// Attempts lists the student's graded attempts on a quiz lesson, newest first.
func (svc *Service) Attempts(ctx context.Context, studentID, lessonID string) ([]QuizResult, error) {
	return svc.repo.QueryQuizResults(ctx, studentID, lessonID)
}
