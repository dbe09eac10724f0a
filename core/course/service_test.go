package course_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elimuhq/elimu/core/course"
	"github.com/elimuhq/elimu/core/enroll"
	brokersvc "github.com/elimuhq/elimu/services/broker"
	inmemdb "github.com/elimuhq/elimu/storage/database/inmem"
)

type testEnv struct {
	crsRepo course.Repository
	enrRepo enroll.Repository
	enrSvc  *enroll.Service
	svc     *course.Service
}

func newTestEnv() *testEnv {
	db := inmemdb.NewDB()
	crsRepo := inmemdb.NewCourseRepository(db)
	enrRepo := inmemdb.NewEnrollRepository(db)
	return &testEnv{
		crsRepo: crsRepo,
		enrRepo: enrRepo,
		enrSvc:  enroll.NewService(enrRepo, crsRepo),
		svc:     course.NewService(crsRepo, enrRepo, brokersvc.NewMemBroker()),
	}
}

func TestService_Create_Retrieve(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	crs, err := env.svc.Create(ctx, "instr-1", course.NewCourse{
		Title: "Go 101", Description: "intro", Category: "programming",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, crs.ID)
	assert.Equal(t, "instr-1", crs.InstructorID)

	lsn, err := env.svc.AddLesson(ctx, crs.ID, course.NewLesson{
		Title: "Hello", Type: course.LessonText, Content: "hi", Order: 1,
	})
	require.NoError(t, err)

	_, err = env.enrSvc.Enroll(ctx, "student-1", crs.ID)
	require.NoError(t, err)

	detail, err := env.svc.Retrieve(ctx, crs.ID)
	require.NoError(t, err)
	assert.Equal(t, crs.ID, detail.ID)
	require.Len(t, detail.Lessons, 1)
	assert.Equal(t, lsn.ID, detail.Lessons[0].ID)
	assert.Equal(t, []string{"student-1"}, detail.StudentIDs)
}

func TestService_Retrieve_notFound(t *testing.T) {
	env := newTestEnv()

	_, err := env.svc.Retrieve(context.Background(), "nope")
	assert.Equal(t, course.ErrNotFound, err)
}

func TestService_AddLesson_buildsTypedPayload(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	crs, err := env.svc.Create(ctx, "instr-1", course.NewCourse{
		Title: "Go 101", Description: "intro", Category: "programming",
	})
	require.NoError(t, err)

	video, err := env.svc.AddLesson(ctx, crs.ID, course.NewLesson{
		Title: "Watch", Type: course.LessonVideo, MediaURL: "https://www.youtube.com/embed/dQw4w9WgXcQ", Order: 1,
	})
	require.NoError(t, err)
	require.NotNil(t, video.Video)
	assert.Nil(t, video.Quiz)

	quiz, err := env.svc.AddLesson(ctx, crs.ID, course.NewLesson{
		Title: "Check", Type: course.LessonQuiz, Order: 2,
		Questions: []course.Question{{Text: "Q", Options: []string{"a", "b"}, CorrectOptionIndex: 0, Points: 1}},
	})
	require.NoError(t, err)
	require.NotNil(t, quiz.Quiz)
	assert.Nil(t, quiz.Video)
	assert.True(t, quiz.IsQuiz())
}

func TestService_Delete_cascades(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	crs, err := env.svc.Create(ctx, "instr-1", course.NewCourse{
		Title: "Go 101", Description: "intro", Category: "programming",
	})
	require.NoError(t, err)
	lsn, err := env.svc.AddLesson(ctx, crs.ID, course.NewLesson{
		Title: "Hello", Type: course.LessonText, Order: 1,
	})
	require.NoError(t, err)
	_, err = env.enrSvc.Enroll(ctx, "student-1", crs.ID)
	require.NoError(t, err)

	require.NoError(t, env.svc.Delete(ctx, crs.ID))

	_, err = env.svc.GetByID(ctx, crs.ID)
	assert.Equal(t, course.ErrNotFound, err)

	_, err = env.svc.GetLesson(ctx, lsn.ID)
	assert.Equal(t, course.ErrLessonNotFound, err)

	_, err = env.enrSvc.GetProgress(ctx, "student-1", crs.ID)
	assert.Equal(t, enroll.ErrNotFound, err)

	// deleting again reports the course as gone
	assert.Equal(t, course.ErrNotFound, env.svc.Delete(ctx, crs.ID))
}

func TestService_Delete_publishesEvent(t *testing.T) {
	env := newTestEnv()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	broker := brokersvc.NewMemBroker()
	svc := course.NewService(env.crsRepo, env.enrRepo, broker)

	events, unsubscribe := broker.Subscribe(ctx)
	defer unsubscribe()

	crs, err := svc.Create(ctx, "instr-1", course.NewCourse{
		Title: "Go 101", Description: "intro", Category: "programming",
	})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, crs.ID))

	evt := <-events
	assert.Equal(t, "course_created", evt.Name)
	evt = <-events
	assert.Equal(t, "course_deleted", evt.Name)
}

func TestService_Update(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	crs, err := env.svc.Create(ctx, "instr-1", course.NewCourse{
		Title: "Go 101", Description: "intro", Category: "programming",
	})
	require.NoError(t, err)

	crs, err = env.svc.Update(ctx, crs.ID, course.UpdateCourse{Title: "Go 102"})
	require.NoError(t, err)
	assert.Equal(t, "Go 102", crs.Title)
	assert.Equal(t, "intro", crs.Description) // unchanged

	_, err = env.svc.Update(ctx, "nope", course.UpdateCourse{Title: "x"})
	assert.Equal(t, course.ErrNotFound, err)
}
