package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/elimuhq/elimu/core/course"
)

type courseRepository struct {
	db *sqlx.DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *sqlx.DB) *courseRepository {
	return &courseRepository{db: db}
}

type dbCourse struct {
	ID           string    `db:"id"`
	Title        string    `db:"title"`
	Description  string    `db:"description"`
	Category     string    `db:"category"`
	CoverImage   string    `db:"cover_image"`
	InstructorID string    `db:"instructor_id"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

type dbLesson struct {
	ID        string         `db:"id"`
	CourseID  string         `db:"course_id"`
	Title     string         `db:"title"`
	Type      string         `db:"type"`
	Content   string         `db:"content"`
	Duration  string         `db:"duration"`
	Order     int            `db:"order"`
	MediaURL  string         `db:"media_url"`
	Questions sql.NullString `db:"questions"`
	CreatedAt time.Time      `db:"created_at"`
	UpdatedAt time.Time      `db:"updated_at"`
}

func (repo courseRepository) pack(crs course.Course) dbCourse {
	return dbCourse{
		ID:           crs.ID,
		Title:        crs.Title,
		Description:  crs.Description,
		Category:     crs.Category,
		CoverImage:   crs.CoverImage,
		InstructorID: crs.InstructorID,
		CreatedAt:    crs.CreatedAt.UTC(),
		UpdatedAt:    crs.UpdatedAt.UTC(),
	}
}

func (repo courseRepository) unpack(c dbCourse) course.Course {
	return course.Course{
		ID:           c.ID,
		Title:        c.Title,
		Description:  c.Description,
		Category:     c.Category,
		CoverImage:   c.CoverImage,
		InstructorID: c.InstructorID,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

func (repo courseRepository) unpackSlice(slice []dbCourse) []course.Course {
	courses := make([]course.Course, 0, len(slice))
	for _, c := range slice {
		courses = append(courses, repo.unpack(c))
	}
	return courses
}

func (repo courseRepository) packLesson(lsn course.Lesson) (dbLesson, error) {
	l := dbLesson{
		ID:        lsn.ID,
		CourseID:  lsn.CourseID,
		Title:     lsn.Title,
		Type:      lsn.Type,
		Content:   lsn.Content,
		Duration:  lsn.Duration,
		Order:     lsn.Order,
		CreatedAt: lsn.CreatedAt.UTC(),
		UpdatedAt: lsn.UpdatedAt.UTC(),
	}
	if lsn.Video != nil {
		l.MediaURL = lsn.Video.MediaURL
	}
	if lsn.Quiz != nil {
		raw, err := json.Marshal(lsn.Quiz.Questions)
		if err != nil {
			return dbLesson{}, errors.Wrap(err, "marshaling quiz questions")
		}
		l.Questions = sql.NullString{String: string(raw), Valid: true}
	}
	return l, nil
}

func (repo courseRepository) unpackLesson(l dbLesson) (course.Lesson, error) {
	lsn := course.Lesson{
		ID:        l.ID,
		CourseID:  l.CourseID,
		Title:     l.Title,
		Type:      l.Type,
		Content:   l.Content,
		Duration:  l.Duration,
		Order:     l.Order,
		CreatedAt: l.CreatedAt,
		UpdatedAt: l.UpdatedAt,
	}
	if l.Type == course.LessonVideo {
		lsn.Video = &course.Video{MediaURL: l.MediaURL}
	}
	if l.Questions.Valid {
		var questions []course.Question
		if err := json.Unmarshal([]byte(l.Questions.String), &questions); err != nil {
			return course.Lesson{}, errors.Wrap(err, "unmarshaling quiz questions")
		}
		lsn.Quiz = &course.Quiz{Questions: questions}
	}
	return lsn, nil
}

// trapNoRowsErr maps psql "no rows" err to the package's not-found sentinel.
func (repo courseRepository) trapNoRowsErr(err error, notFound error, msg string) error {
	if err == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

func (repo courseRepository) CreateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	crs.ID = uuid.New().String()
	c := repo.pack(crs)
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO course (id, title, description, category, cover_image, instructor_id, created_at, updated_at)
		VALUES (:id, :title, :description, :category, :cover_image, :instructor_id, :created_at, :updated_at)`, c,
	)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "inserting course")
	}
	return crs, nil
}

func (repo courseRepository) GetCourseByID(ctx context.Context, id string) (course.Course, error) {
	var c dbCourse
	if err := repo.db.GetContext(ctx, &c, `SELECT * FROM course WHERE id = $1`, id); err != nil {
		return course.Course{}, repo.trapNoRowsErr(err, course.ErrNotFound, "getting course by id")
	}
	return repo.unpack(c), nil
}

func (repo courseRepository) QueryAllCourses(ctx context.Context) ([]course.Course, error) {
	var courses []dbCourse
	if err := repo.db.SelectContext(ctx, &courses, `SELECT * FROM course ORDER BY created_at DESC`); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	return repo.unpackSlice(courses), nil
}

func (repo courseRepository) QueryCoursesByInstructor(ctx context.Context, instructorID string) ([]course.Course, error) {
	var courses []dbCourse
	err := repo.db.SelectContext(ctx, &courses,
		`SELECT * FROM course WHERE instructor_id = $1 ORDER BY created_at DESC`, instructorID)
	if err != nil {
		return nil, errors.Wrap(err, "querying instructor courses")
	}
	return repo.unpackSlice(courses), nil
}

func (repo courseRepository) UpdateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	c := repo.pack(crs)
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE course
		SET title = :title, description = :description, category = :category,
		    cover_image = :cover_image, updated_at = :updated_at
		WHERE id = :id`, c,
	)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "updating course")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return course.Course{}, course.ErrNotFound
	}
	return crs, nil
}

func (repo courseRepository) DeleteCourse(ctx context.Context, id string) error {
	_, err := repo.db.ExecContext(ctx, `DELETE FROM course WHERE id = $1`, id)
	return errors.Wrap(err, "deleting course")
}

func (repo courseRepository) CreateLesson(ctx context.Context, lsn course.Lesson) (course.Lesson, error) {
	lsn.ID = uuid.New().String()
	l, err := repo.packLesson(lsn)
	if err != nil {
		return course.Lesson{}, err
	}
	_, err = repo.db.NamedExecContext(ctx, `
		INSERT INTO lesson (id, course_id, title, type, content, duration, "order", media_url, questions, created_at, updated_at)
		VALUES (:id, :course_id, :title, :type, :content, :duration, :order, :media_url, :questions, :created_at, :updated_at)`, l,
	)
	if err != nil {
		return course.Lesson{}, errors.Wrap(err, "inserting lesson")
	}
	return lsn, nil
}

func (repo courseRepository) GetLessonByID(ctx context.Context, id string) (course.Lesson, error) {
	var l dbLesson
	if err := repo.db.GetContext(ctx, &l, `SELECT * FROM lesson WHERE id = $1`, id); err != nil {
		return course.Lesson{}, repo.trapNoRowsErr(err, course.ErrLessonNotFound, "getting lesson by id")
	}
	return repo.unpackLesson(l)
}

func (repo courseRepository) QueryLessonsByCourse(ctx context.Context, courseID string) ([]course.Lesson, error) {
	var rows []dbLesson
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT * FROM lesson WHERE course_id = $1 ORDER BY "order", created_at`, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "querying course lessons")
	}
	lessons := make([]course.Lesson, 0, len(rows))
	for _, l := range rows {
		lsn, err := repo.unpackLesson(l)
		if err != nil {
			return nil, err
		}
		lessons = append(lessons, lsn)
	}
	return lessons, nil
}

func (repo courseRepository) UpdateLesson(ctx context.Context, lsn course.Lesson) (course.Lesson, error) {
	l, err := repo.packLesson(lsn)
	if err != nil {
		return course.Lesson{}, err
	}
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE lesson
		SET title = :title, content = :content, duration = :duration, "order" = :order,
		    media_url = :media_url, questions = :questions, updated_at = :updated_at
		WHERE id = :id`, l,
	)
	if err != nil {
		return course.Lesson{}, errors.Wrap(err, "updating lesson")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return course.Lesson{}, course.ErrLessonNotFound
	}
	return lsn, nil
}

func (repo courseRepository) DeleteLesson(ctx context.Context, id string) error {
	_, err := repo.db.ExecContext(ctx, `DELETE FROM lesson WHERE id = $1`, id)
	return errors.Wrap(err, "deleting lesson")
}

func (repo courseRepository) DeleteLessonsByCourse(ctx context.Context, courseID string) error {
	_, err := repo.db.ExecContext(ctx, `DELETE FROM lesson WHERE course_id = $1`, courseID)
	return errors.Wrap(err, "deleting course lessons")
}
