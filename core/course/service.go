package course

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/elimuhq/elimu/core"
)

var (
	// errors
	ErrNotFound       = errors.New("course not found")
	ErrLessonNotFound = errors.New("lesson not found")
)

// Event names broadcast on catalog changes.
const (
	EventCourseCreated = "course_created"
	EventCourseUpdated = "course_updated"
	EventCourseDeleted = "course_deleted"
	EventLessonCreated = "lesson_created"
	EventLessonUpdated = "lesson_updated"
	EventLessonDeleted = "lesson_deleted"
)

type (
	Repository interface {
		CreateCourse(ctx context.Context, crs Course) (Course, error)
		GetCourseByID(ctx context.Context, id string) (Course, error)
		QueryAllCourses(ctx context.Context) ([]Course, error)
		QueryCoursesByInstructor(ctx context.Context, instructorID string) ([]Course, error)
		UpdateCourse(ctx context.Context, crs Course) (Course, error)
		DeleteCourse(ctx context.Context, id string) error

		CreateLesson(ctx context.Context, lsn Lesson) (Lesson, error)
		GetLessonByID(ctx context.Context, id string) (Lesson, error)
		// QueryLessonsByCourse returns the course's lessons in display order.
		QueryLessonsByCourse(ctx context.Context, courseID string) ([]Lesson, error)
		UpdateLesson(ctx context.Context, lsn Lesson) (Lesson, error)
		DeleteLesson(ctx context.Context, id string) error
		DeleteLessonsByCourse(ctx context.Context, courseID string) error
	}

	// Ledger is the slice of the enrollment ledger the catalog needs:
	// student membership is derived from it, and course deletion cascades
	// into it.
	Ledger interface {
		QueryStudentIDsByCourse(ctx context.Context, courseID string) ([]string, error)
		DeleteEnrollmentsByCourse(ctx context.Context, courseID string) error
	}

	Service struct {
		repo   Repository
		ledger Ledger
		broker core.Broker
	}
)

func NewService(repo Repository, ledger Ledger, broker core.Broker) *Service {
	return &Service{repo: repo, ledger: ledger, broker: broker}
}

type courseEvent struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type lessonEvent struct {
	ID       string `json:"id"`
	CourseID string `json:"course_id"`
	Title    string `json:"title"`
}

func (svc *Service) Create(ctx context.Context, instructorID string, nc NewCourse) (Course, error) {
	now := time.Now().UTC()
	crs, err := svc.repo.CreateCourse(ctx, Course{
		Title:        nc.Title,
		Description:  nc.Description,
		Category:     nc.Category,
		CoverImage:   nc.CoverImage,
		InstructorID: instructorID,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return Course{}, err
	}
	svc.broker.Publish(ctx, core.NewEvent(EventCourseCreated, courseEvent{ID: crs.ID, Title: crs.Title}))
	return crs, nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (Course, error) {
	return svc.repo.GetCourseByID(ctx, id)
}

// Retrieve returns the course with its derived collections.
func (svc *Service) Retrieve(ctx context.Context, id string) (Detail, error) {
	crs, err := svc.repo.GetCourseByID(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	lessons, err := svc.repo.QueryLessonsByCourse(ctx, id)
	if err != nil {
		return Detail{}, errors.Wrap(err, "querying lessons")
	}
	students, err := svc.ledger.QueryStudentIDsByCourse(ctx, id)
	if err != nil {
		return Detail{}, errors.Wrap(err, "querying enrolled students")
	}
	if lessons == nil {
		lessons = []Lesson{}
	}
	if students == nil {
		students = []string{}
	}
	return Detail{Course: crs, Lessons: lessons, StudentIDs: students}, nil
}

func (svc *Service) QueryAll(ctx context.Context) ([]Course, error) {
	return svc.repo.QueryAllCourses(ctx)
}

func (svc *Service) QueryByInstructor(ctx context.Context, instructorID string) ([]Course, error) {
	return svc.repo.QueryCoursesByInstructor(ctx, instructorID)
}

func (svc *Service) Update(ctx context.Context, id string, uc UpdateCourse) (Course, error) {
	crs, err := svc.repo.GetCourseByID(ctx, id)
	if err != nil {
		return Course{}, err
	}
	if uc.Title != "" {
		crs.Title = uc.Title
	}
	if uc.Description != "" {
		crs.Description = uc.Description
	}
	if uc.Category != "" {
		crs.Category = uc.Category
	}
	if uc.CoverImage != "" {
		crs.CoverImage = uc.CoverImage
	}
	crs.UpdatedAt = time.Now().UTC()

	crs, err = svc.repo.UpdateCourse(ctx, crs)
	if err != nil {
		return Course{}, err
	}
	svc.broker.Publish(ctx, core.NewEvent(EventCourseUpdated, courseEvent{ID: crs.ID, Title: crs.Title}))
	return crs, nil
}

// Delete removes a course and everything hanging off it. The cascade is an
// explicit sequence (lessons, then enrollments, then the course itself) so
// an interruption can only strand children of a course that is still present;
// re-running the delete finishes the job. The course row is never removed
// before its children.
func (svc *Service) Delete(ctx context.Context, id string) error {
	crs, err := svc.repo.GetCourseByID(ctx, id)
	if err != nil {
		return err
	}

	if err = svc.repo.DeleteLessonsByCourse(ctx, id); err != nil {
		return errors.Wrap(err, "cascading lesson delete")
	}
	if err = svc.ledger.DeleteEnrollmentsByCourse(ctx, id); err != nil {
		return errors.Wrap(err, "cascading enrollment delete")
	}
	if err = svc.repo.DeleteCourse(ctx, id); err != nil {
		return errors.Wrap(err, "deleting course")
	}

	svc.broker.Publish(ctx, core.NewEvent(EventCourseDeleted, courseEvent{ID: crs.ID, Title: crs.Title}))
	return nil
}

func (svc *Service) AddLesson(ctx context.Context, courseID string, nl NewLesson) (Lesson, error) {
	if _, err := svc.repo.GetCourseByID(ctx, courseID); err != nil {
		return Lesson{}, err
	}

	now := time.Now().UTC()
	lsn := Lesson{
		CourseID:  courseID,
		Title:     nl.Title,
		Type:      nl.Type,
		Content:   nl.Content,
		Duration:  nl.Duration,
		Order:     nl.Order,
		CreatedAt: now,
		UpdatedAt: now,
	}
	switch nl.Type {
	case LessonVideo:
		lsn.Video = &Video{MediaURL: nl.MediaURL}
	case LessonQuiz:
		lsn.Quiz = &Quiz{Questions: nl.Questions}
	}

	lsn, err := svc.repo.CreateLesson(ctx, lsn)
	if err != nil {
		return Lesson{}, err
	}
	svc.broker.Publish(ctx, core.NewEvent(EventLessonCreated, lessonEvent{ID: lsn.ID, CourseID: lsn.CourseID, Title: lsn.Title}))
	return lsn, nil
}

func (svc *Service) GetLesson(ctx context.Context, id string) (Lesson, error) {
	return svc.repo.GetLessonByID(ctx, id)
}

func (svc *Service) UpdateLesson(ctx context.Context, id string, ul UpdateLesson) (Lesson, error) {
	lsn, err := svc.repo.GetLessonByID(ctx, id)
	if err != nil {
		return Lesson{}, err
	}

	if ul.Title != "" {
		lsn.Title = ul.Title
	}
	if ul.Content != "" {
		lsn.Content = ul.Content
	}
	if ul.Duration != "" {
		lsn.Duration = ul.Duration
	}
	if ul.Order != nil {
		lsn.Order = *ul.Order
	}
	if ul.MediaURL != "" {
		lsn.Video = &Video{MediaURL: ul.MediaURL}
	}
	if len(ul.Questions) > 0 {
		lsn.Quiz = &Quiz{Questions: ul.Questions}
	}
	lsn.UpdatedAt = time.Now().UTC()

	lsn, err = svc.repo.UpdateLesson(ctx, lsn)
	if err != nil {
		return Lesson{}, err
	}
	svc.broker.Publish(ctx, core.NewEvent(EventLessonUpdated, lessonEvent{ID: lsn.ID, CourseID: lsn.CourseID, Title: lsn.Title}))
	return lsn, nil
}

// DeleteLesson removes a single lesson. Ledger rows that reference it keep
// the dangling id; progress reads filter completed ids against live lessons,
// so the stale reference never surfaces.
func (svc *Service) DeleteLesson(ctx context.Context, id string) error {
	lsn, err := svc.repo.GetLessonByID(ctx, id)
	if err != nil {
		return err
	}
	if err = svc.repo.DeleteLesson(ctx, id); err != nil {
		return errors.Wrap(err, "deleting lesson")
	}
	svc.broker.Publish(ctx, core.NewEvent(EventLessonDeleted, lessonEvent{ID: lsn.ID, CourseID: lsn.CourseID, Title: lsn.Title}))
	return nil
}
