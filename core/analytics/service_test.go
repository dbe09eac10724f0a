package analytics_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elimuhq/elimu/core/analytics"
	"github.com/elimuhq/elimu/core/course"
	"github.com/elimuhq/elimu/core/enroll"
	"github.com/elimuhq/elimu/core/user"
	brokersvc "github.com/elimuhq/elimu/services/broker"
	inmemdb "github.com/elimuhq/elimu/storage/database/inmem"
)

type testEnv struct {
	usrRepo user.Repository
	crsSvc  *course.Service
	enrSvc  *enroll.Service
	svc     *analytics.Service
}

func newTestEnv() *testEnv {
	db := inmemdb.NewDB()
	usrRepo := inmemdb.NewUserRepository(db)
	crsRepo := inmemdb.NewCourseRepository(db)
	enrRepo := inmemdb.NewEnrollRepository(db)

	crsSvc := course.NewService(crsRepo, enrRepo, brokersvc.NewMemBroker())
	enrSvc := enroll.NewService(enrRepo, crsRepo)
	return &testEnv{
		usrRepo: usrRepo,
		crsSvc:  crsSvc,
		enrSvc:  enrSvc,
		svc:     analytics.NewService(usrRepo, crsRepo, enrRepo, enrSvc),
	}
}

func (env *testEnv) createUser(t *testing.T, name, email, role string) user.User {
	t.Helper()
	now := time.Now().UTC()
	usr, err := env.usrRepo.CreateUser(context.Background(), user.User{
		Name: name, Email: email, Role: role, IsActive: true, CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)
	return usr
}

func (env *testEnv) createCourseWithLesson(t *testing.T, instructorID, title string) (course.Course, course.Lesson) {
	t.Helper()
	ctx := context.Background()
	crs, err := env.crsSvc.Create(ctx, instructorID, course.NewCourse{
		Title: title, Description: "d", Category: "programming",
	})
	require.NoError(t, err)
	lsn, err := env.crsSvc.AddLesson(ctx, crs.ID, course.NewLesson{Title: "One", Type: course.LessonText, Order: 1})
	require.NoError(t, err)
	return crs, lsn
}

func TestService_AdminStats(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	env.createUser(t, "Boss", "boss@test.cd", user.RoleAdmin)
	prof := env.createUser(t, "Prof", "prof@test.cd", user.RoleInstructor)
	stu1 := env.createUser(t, "Stu 1", "stu1@test.cd", user.RoleStudent)
	stu2 := env.createUser(t, "Stu 2", "stu2@test.cd", user.RoleStudent)

	crs, _ := env.createCourseWithLesson(t, prof.ID, "Go 101")
	_, err := env.enrSvc.Enroll(ctx, stu1.ID, crs.ID)
	require.NoError(t, err)
	_, err = env.enrSvc.Enroll(ctx, stu2.ID, crs.ID)
	require.NoError(t, err)

	stats, err := env.svc.AdminStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.TotalUsers)
	assert.Equal(t, 1, stats.TotalCourses)
	assert.Equal(t, 2, stats.TotalEnrollments)
	assert.Equal(t, map[string]int{
		user.RoleAdmin:      1,
		user.RoleInstructor: 1,
		user.RoleStudent:    2,
	}, stats.UsersByRole)
}

func TestService_InstructorStats(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	prof := env.createUser(t, "Prof", "prof@test.cd", user.RoleInstructor)
	rival := env.createUser(t, "Rival", "rival@test.cd", user.RoleInstructor)
	stu1 := env.createUser(t, "Stu 1", "stu1@test.cd", user.RoleStudent)
	stu2 := env.createUser(t, "Stu 2", "stu2@test.cd", user.RoleStudent)

	crs1, lsn1 := env.createCourseWithLesson(t, prof.ID, "Go 101")
	crs2, _ := env.createCourseWithLesson(t, prof.ID, "Go 102")
	env.createCourseWithLesson(t, rival.ID, "Rust 101")

	_, err := env.enrSvc.Enroll(ctx, stu1.ID, crs1.ID)
	require.NoError(t, err)
	_, err = env.enrSvc.Enroll(ctx, stu2.ID, crs1.ID)
	require.NoError(t, err)
	_, err = env.enrSvc.Enroll(ctx, stu1.ID, crs2.ID)
	require.NoError(t, err)

	// stu1 finishes Go 101; stu2 does not
	_, err = env.enrSvc.MarkLessonComplete(ctx, stu1.ID, crs1.ID, lsn1.ID)
	require.NoError(t, err)

	stats, err := env.svc.InstructorStats(ctx, prof.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalCourses) // rival's course not counted
	assert.Equal(t, 3, stats.TotalStudents)
	require.Len(t, stats.CourseStats, 2)
	// courses come back newest first
	assert.Equal(t, analytics.CourseStat{
		Title: "Go 102", Enrollments: 1, CompletedCount: 0, CompletionRate: 0,
	}, stats.CourseStats[0])
	assert.Equal(t, analytics.CourseStat{
		Title: "Go 101", Enrollments: 2, CompletedCount: 1, CompletionRate: 50,
	}, stats.CourseStats[1])
}

func TestService_InstructorStats_noCourses(t *testing.T) {
	env := newTestEnv()
	prof := env.createUser(t, "Prof", "prof@test.cd", user.RoleInstructor)

	stats, err := env.svc.InstructorStats(context.Background(), prof.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalCourses)
	assert.Equal(t, 0, stats.TotalStudents)
	assert.Empty(t, stats.CourseStats)
}

func TestService_StudentStats(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	prof := env.createUser(t, "Prof", "prof@test.cd", user.RoleInstructor)
	stu := env.createUser(t, "Stu", "stu@test.cd", user.RoleStudent)

	crs1, lsn1 := env.createCourseWithLesson(t, prof.ID, "Go 101")
	crs2, _ := env.createCourseWithLesson(t, prof.ID, "Go 102")

	_, err := env.enrSvc.Enroll(ctx, stu.ID, crs1.ID)
	require.NoError(t, err)
	_, err = env.enrSvc.Enroll(ctx, stu.ID, crs2.ID)
	require.NoError(t, err)
	_, err = env.enrSvc.MarkLessonComplete(ctx, stu.ID, crs1.ID, lsn1.ID)
	require.NoError(t, err)

	stats, err := env.svc.StudentStats(ctx, stu.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalEnrolled)
	assert.Equal(t, 1, stats.CompletedCourses)
	assert.Equal(t, 1, stats.InProgressCourses)
	require.Len(t, stats.DetailedProgress, 2)
	for _, cp := range stats.DetailedProgress {
		switch cp.CourseTitle {
		case "Go 101":
			assert.True(t, cp.IsCompleted)
			assert.Equal(t, 1, cp.CompletedLessons)
		case "Go 102":
			assert.False(t, cp.IsCompleted)
			assert.Equal(t, 0, cp.CompletedLessons)
		default:
			t.Errorf("unexpected course %q in progress summary", cp.CourseTitle)
		}
		assert.Equal(t, "programming", cp.Category)
	}
}
