package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/elimuhq/elimu/core/enroll"
)

type enrollRepository struct {
	db *DB
}

var _ enroll.Repository = (*enrollRepository)(nil) // interface compliance check

func NewEnrollRepository(db *DB) *enrollRepository {
	return &enrollRepository{db: db}
}

func (repo *enrollRepository) CreateEnrollment(_ context.Context, enr enroll.Enrollment) (enroll.Enrollment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, e := range repo.db.enrollments {
		if e.StudentID == enr.StudentID && e.CourseID == enr.CourseID {
			return enroll.Enrollment{}, enroll.ErrAlreadyEnrolled
		}
	}
	enr.ID = uuid.New().String()
	repo.db.enrollments[enr.ID] = &enr
	return enr, nil
}

func (repo *enrollRepository) GetEnrollment(_ context.Context, studentID, courseID string) (enroll.Enrollment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, enr := range repo.db.enrollments {
		if enr.StudentID == studentID && enr.CourseID == courseID {
			return *enr, nil
		}
	}
	return enroll.Enrollment{}, enroll.ErrNotFound
}

func (repo *enrollRepository) QueryEnrollmentsByStudent(_ context.Context, studentID string) ([]enroll.Enrollment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var enrs []enroll.Enrollment
	for _, enr := range repo.db.enrollments {
		if enr.StudentID == studentID {
			enrs = append(enrs, *enr)
		}
	}
	sort.Slice(enrs, func(i, j int) bool { return enrs[i].CreatedAt.After(enrs[j].CreatedAt) })
	return enrs, nil
}

func (repo *enrollRepository) QueryEnrollmentsByCourse(_ context.Context, courseID string) ([]enroll.Enrollment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var enrs []enroll.Enrollment
	for _, enr := range repo.db.enrollments {
		if enr.CourseID == courseID {
			enrs = append(enrs, *enr)
		}
	}
	sort.Slice(enrs, func(i, j int) bool { return enrs[i].CreatedAt.Before(enrs[j].CreatedAt) })
	return enrs, nil
}

func (repo *enrollRepository) CountEnrollments(_ context.Context) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	return len(repo.db.enrollments), nil
}

func (repo *enrollRepository) QueryStudentIDsByCourse(_ context.Context, courseID string) ([]string, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var enrs []enroll.Enrollment
	for _, enr := range repo.db.enrollments {
		if enr.CourseID == courseID {
			enrs = append(enrs, *enr)
		}
	}
	sort.Slice(enrs, func(i, j int) bool { return enrs[i].CreatedAt.Before(enrs[j].CreatedAt) })

	ids := make([]string, 0, len(enrs))
	for _, enr := range enrs {
		ids = append(ids, enr.StudentID)
	}
	return ids, nil
}

func (repo *enrollRepository) AddCompletedLesson(_ context.Context, enrollmentID, lessonID string, at time.Time) (bool, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	enr, ok := repo.db.enrollments[enrollmentID]
	if !ok {
		return false, enroll.ErrNotFound
	}
	for _, id := range enr.CompletedLessons {
		if id == lessonID {
			return false, nil
		}
	}
	enr.CompletedLessons = append(enr.CompletedLessons, lessonID)
	enr.UpdatedAt = at
	return true, nil
}

func (repo *enrollRepository) SetCompleted(_ context.Context, enrollmentID string, completed bool, at time.Time) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	enr, ok := repo.db.enrollments[enrollmentID]
	if !ok {
		return enroll.ErrNotFound
	}
	enr.IsCompleted = completed
	enr.UpdatedAt = at
	return nil
}

func (repo *enrollRepository) DeleteEnrollment(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	delete(repo.db.enrollments, id)
	return nil
}

func (repo *enrollRepository) DeleteEnrollmentsByCourse(_ context.Context, courseID string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for id, enr := range repo.db.enrollments {
		if enr.CourseID == courseID {
			delete(repo.db.enrollments, id)
		}
	}
	return nil
}

func (repo *enrollRepository) CreateQuizResult(_ context.Context, res enroll.QuizResult) (enroll.QuizResult, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	res.ID = uuid.New().String()
	repo.db.quizResults = append(repo.db.quizResults, res)
	return res, nil
}

func (repo *enrollRepository) QueryQuizResults(_ context.Context, studentID, lessonID string) ([]enroll.QuizResult, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var results []enroll.QuizResult
	for _, res := range repo.db.quizResults {
		if res.StudentID == studentID && res.LessonID == lessonID {
			results = append(results, res)
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].CreatedAt.After(results[j].CreatedAt) })
	return results, nil
}
