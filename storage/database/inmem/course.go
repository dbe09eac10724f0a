package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/elimuhq/elimu/core/course"
)

type courseRepository struct {
	db *DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) *courseRepository {
	return &courseRepository{db: db}
}

func (repo *courseRepository) CreateCourse(_ context.Context, crs course.Course) (course.Course, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	crs.ID = uuid.New().String()
	repo.db.courses[crs.ID] = &crs
	return crs, nil
}

func (repo *courseRepository) GetCourseByID(_ context.Context, id string) (course.Course, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if crs, ok := repo.db.courses[id]; ok {
		return *crs, nil
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) QueryAllCourses(_ context.Context) ([]course.Course, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	courses := make([]course.Course, 0, len(repo.db.courses))
	for _, crs := range repo.db.courses {
		courses = append(courses, *crs)
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].CreatedAt.After(courses[j].CreatedAt) })
	return courses, nil
}

func (repo *courseRepository) QueryCoursesByInstructor(_ context.Context, instructorID string) ([]course.Course, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var courses []course.Course
	for _, crs := range repo.db.courses {
		if crs.InstructorID == instructorID {
			courses = append(courses, *crs)
		}
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].CreatedAt.After(courses[j].CreatedAt) })
	return courses, nil
}

func (repo *courseRepository) UpdateCourse(_ context.Context, crs course.Course) (course.Course, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.courses[crs.ID]; !ok {
		return course.Course{}, course.ErrNotFound
	}
	repo.db.courses[crs.ID] = &crs
	return crs, nil
}

func (repo *courseRepository) DeleteCourse(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	delete(repo.db.courses, id)
	return nil
}

func (repo *courseRepository) CreateLesson(_ context.Context, lsn course.Lesson) (course.Lesson, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	lsn.ID = uuid.New().String()
	repo.db.lessons[lsn.ID] = &lsn
	return lsn, nil
}

func (repo *courseRepository) GetLessonByID(_ context.Context, id string) (course.Lesson, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if lsn, ok := repo.db.lessons[id]; ok {
		return *lsn, nil
	}
	return course.Lesson{}, course.ErrLessonNotFound
}

func (repo *courseRepository) QueryLessonsByCourse(_ context.Context, courseID string) ([]course.Lesson, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var lessons []course.Lesson
	for _, lsn := range repo.db.lessons {
		if lsn.CourseID == courseID {
			lessons = append(lessons, *lsn)
		}
	}
	sort.Slice(lessons, func(i, j int) bool {
		if lessons[i].Order != lessons[j].Order {
			return lessons[i].Order < lessons[j].Order
		}
		return lessons[i].CreatedAt.Before(lessons[j].CreatedAt)
	})
	return lessons, nil
}

func (repo *courseRepository) UpdateLesson(_ context.Context, lsn course.Lesson) (course.Lesson, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.lessons[lsn.ID]; !ok {
		return course.Lesson{}, course.ErrLessonNotFound
	}
	repo.db.lessons[lsn.ID] = &lsn
	return lsn, nil
}

func (repo *courseRepository) DeleteLesson(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	delete(repo.db.lessons, id)
	return nil
}

func (repo *courseRepository) DeleteLessonsByCourse(_ context.Context, courseID string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for id, lsn := range repo.db.lessons {
		if lsn.CourseID == courseID {
			delete(repo.db.lessons, id)
		}
	}
	return nil
}
