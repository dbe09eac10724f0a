package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/elimuhq/elimu/core/enroll"
)

type enrollRepository struct {
	db *sqlx.DB
}

var _ enroll.Repository = (*enrollRepository)(nil) // interface compliance check

func NewEnrollRepository(db *sqlx.DB) *enrollRepository {
	return &enrollRepository{db: db}
}

type dbEnrollment struct {
	ID               string         `db:"id"`
	StudentID        string         `db:"student_id"`
	CourseID         string         `db:"course_id"`
	CompletedLessons pq.StringArray `db:"completed_lessons"`
	IsCompleted      bool           `db:"is_completed"`
	CreatedAt        time.Time      `db:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at"`
}

type dbQuizResult struct {
	ID          string    `db:"id"`
	StudentID   string    `db:"student_id"`
	LessonID    string    `db:"lesson_id"`
	Score       int       `db:"score"`
	TotalPoints int       `db:"total_points"`
	Percent     float64   `db:"percent"`
	IsPassed    bool      `db:"is_passed"`
	CreatedAt   time.Time `db:"created_at"`
}

func (repo enrollRepository) unpack(e dbEnrollment) enroll.Enrollment {
	return enroll.Enrollment{
		ID:               e.ID,
		StudentID:        e.StudentID,
		CourseID:         e.CourseID,
		CompletedLessons: e.CompletedLessons,
		IsCompleted:      e.IsCompleted,
		CreatedAt:        e.CreatedAt,
		UpdatedAt:        e.UpdatedAt,
	}
}

// trapNoRowsErr maps psql "no rows" err to enroll.ErrNotFound
func (repo enrollRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return enroll.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo enrollRepository) CreateEnrollment(ctx context.Context, enr enroll.Enrollment) (enroll.Enrollment, error) {
	enr.ID = uuid.New().String()
	e := dbEnrollment{
		ID:               enr.ID,
		StudentID:        enr.StudentID,
		CourseID:         enr.CourseID,
		CompletedLessons: enr.CompletedLessons,
		IsCompleted:      enr.IsCompleted,
		CreatedAt:        enr.CreatedAt.UTC(),
		UpdatedAt:        enr.UpdatedAt.UTC(),
	}
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO enrollment (id, student_id, course_id, completed_lessons, is_completed, created_at, updated_at)
		VALUES (:id, :student_id, :course_id, :completed_lessons, :is_completed, :created_at, :updated_at)`, e,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" { // unique_violation
			return enroll.Enrollment{}, enroll.ErrAlreadyEnrolled
		}
		return enroll.Enrollment{}, errors.Wrap(err, "inserting enrollment")
	}
	return enr, nil
}

func (repo enrollRepository) GetEnrollment(ctx context.Context, studentID, courseID string) (enroll.Enrollment, error) {
	var e dbEnrollment
	err := repo.db.GetContext(ctx, &e,
		`SELECT * FROM enrollment WHERE student_id = $1 AND course_id = $2`, studentID, courseID)
	if err != nil {
		return enroll.Enrollment{}, repo.trapNoRowsErr(err, "getting enrollment")
	}
	return repo.unpack(e), nil
}

func (repo enrollRepository) QueryEnrollmentsByStudent(ctx context.Context, studentID string) ([]enroll.Enrollment, error) {
	var rows []dbEnrollment
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT * FROM enrollment WHERE student_id = $1 ORDER BY created_at DESC`, studentID)
	if err != nil {
		return nil, errors.Wrap(err, "querying student enrollments")
	}
	enrs := make([]enroll.Enrollment, 0, len(rows))
	for _, e := range rows {
		enrs = append(enrs, repo.unpack(e))
	}
	return enrs, nil
}

func (repo enrollRepository) QueryEnrollmentsByCourse(ctx context.Context, courseID string) ([]enroll.Enrollment, error) {
	var rows []dbEnrollment
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT * FROM enrollment WHERE course_id = $1 ORDER BY created_at`, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "querying course enrollments")
	}
	enrs := make([]enroll.Enrollment, 0, len(rows))
	for _, e := range rows {
		enrs = append(enrs, repo.unpack(e))
	}
	return enrs, nil
}

func (repo enrollRepository) CountEnrollments(ctx context.Context) (int, error) {
	var n int
	if err := repo.db.GetContext(ctx, &n, `SELECT count(*) FROM enrollment`); err != nil {
		return 0, errors.Wrap(err, "counting enrollments")
	}
	return n, nil
}

func (repo enrollRepository) QueryStudentIDsByCourse(ctx context.Context, courseID string) ([]string, error) {
	var ids []string
	err := repo.db.SelectContext(ctx, &ids,
		`SELECT student_id FROM enrollment WHERE course_id = $1 ORDER BY created_at`, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "querying enrolled students")
	}
	return ids, nil
}

// AddCompletedLesson appends in a single guarded UPDATE so a concurrent
// duplicate mark cannot slip past the membership check.
func (repo enrollRepository) AddCompletedLesson(ctx context.Context, enrollmentID, lessonID string, at time.Time) (bool, error) {
	res, err := repo.db.ExecContext(ctx, `
		UPDATE enrollment
		SET completed_lessons = array_append(completed_lessons, $2), updated_at = $3
		WHERE id = $1 AND NOT ($2 = ANY (completed_lessons))`,
		enrollmentID, lessonID, at.UTC(),
	)
	if err != nil {
		return false, errors.Wrap(err, "appending completed lesson")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "appending completed lesson")
	}
	return n > 0, nil
}

func (repo enrollRepository) SetCompleted(ctx context.Context, enrollmentID string, completed bool, at time.Time) error {
	_, err := repo.db.ExecContext(ctx,
		`UPDATE enrollment SET is_completed = $2, updated_at = $3 WHERE id = $1`,
		enrollmentID, completed, at.UTC(),
	)
	return errors.Wrap(err, "setting enrollment completion")
}

func (repo enrollRepository) DeleteEnrollment(ctx context.Context, id string) error {
	_, err := repo.db.ExecContext(ctx, `DELETE FROM enrollment WHERE id = $1`, id)
	return errors.Wrap(err, "deleting enrollment")
}

func (repo enrollRepository) DeleteEnrollmentsByCourse(ctx context.Context, courseID string) error {
	_, err := repo.db.ExecContext(ctx, `DELETE FROM enrollment WHERE course_id = $1`, courseID)
	return errors.Wrap(err, "deleting course enrollments")
}

func (repo enrollRepository) CreateQuizResult(ctx context.Context, res enroll.QuizResult) (enroll.QuizResult, error) {
	res.ID = uuid.New().String()
	r := dbQuizResult{
		ID:          res.ID,
		StudentID:   res.StudentID,
		LessonID:    res.LessonID,
		Score:       res.Score,
		TotalPoints: res.TotalPoints,
		Percent:     res.Percent,
		IsPassed:    res.IsPassed,
		CreatedAt:   res.CreatedAt.UTC(),
	}
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO quiz_result (id, student_id, lesson_id, score, total_points, percent, is_passed, created_at)
		VALUES (:id, :student_id, :lesson_id, :score, :total_points, :percent, :is_passed, :created_at)`, r,
	)
	if err != nil {
		return enroll.QuizResult{}, errors.Wrap(err, "inserting quiz result")
	}
	return res, nil
}

func (repo enrollRepository) QueryQuizResults(ctx context.Context, studentID, lessonID string) ([]enroll.QuizResult, error) {
	var rows []dbQuizResult
	err := repo.db.SelectContext(ctx, &rows, `
		SELECT * FROM quiz_result
		WHERE student_id = $1 AND lesson_id = $2
		ORDER BY created_at DESC`, studentID, lessonID)
	if err != nil {
		return nil, errors.Wrap(err, "querying quiz results")
	}
	results := make([]enroll.QuizResult, 0, len(rows))
	for _, r := range rows {
		results = append(results, enroll.QuizResult{
			ID:          r.ID,
			StudentID:   r.StudentID,
			LessonID:    r.LessonID,
			Score:       r.Score,
			TotalPoints: r.TotalPoints,
			Percent:     r.Percent,
			IsPassed:    r.IsPassed,
			CreatedAt:   r.CreatedAt,
		})
	}
	return results, nil
}
