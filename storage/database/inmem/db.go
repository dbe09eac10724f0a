// Package inmemdb provides map-backed repositories with the same semantics as
// the SQL ones. They back unit tests and local development without Postgres.
package inmemdb

import (
	"sync"

	"github.com/elimuhq/elimu/core/course"
	"github.com/elimuhq/elimu/core/enroll"
	"github.com/elimuhq/elimu/core/user"
)

type DB struct {
	mutex sync.RWMutex

	users       map[string]*user.User
	courses     map[string]*course.Course
	lessons     map[string]*course.Lesson
	enrollments map[string]*enroll.Enrollment
	quizResults []enroll.QuizResult
}

func NewDB() *DB {
	return &DB{
		users:       make(map[string]*user.User),
		courses:     make(map[string]*course.Course),
		lessons:     make(map[string]*course.Lesson),
		enrollments: make(map[string]*enroll.Enrollment),
	}
}
