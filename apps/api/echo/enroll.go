package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/elimuhq/elimu/core"
	"github.com/elimuhq/elimu/core/enroll"
	"github.com/elimuhq/elimu/core/user"
)

type MarkCompletedRequest struct {
	LessonID string `json:"lesson_id" validate:"required"`
}

func (r *MarkCompletedRequest) Validate(validate *validator.Validate) error {
	r.LessonID = core.CleanString(r.LessonID)
	return validate.Struct(r)
}

type enrollApi struct {
	svc        *enroll.Service
	userSvc    *user.Service
	validate   *validator.Validate
	translator ut.Translator
}

func registerEnrollAPI(g *echo.Group, jwt, access echo.MiddlewareFunc, deps ServerDeps) {
	api := enrollApi{
		svc:        deps.EnrollSvc,
		userSvc:    deps.UserSvc,
		validate:   deps.Validate,
		translator: deps.Translator,
	}

	cg := g.Group("/courses/:id/enroll", jwt, access)
	cg.POST("", api.enroll, roleMiddleware(deps.UserSvc, user.RoleStudent))
	cg.DELETE("/:studentId", api.unenroll, roleMiddleware(deps.UserSvc, user.RoleInstructor, user.RoleAdmin))

	pg := g.Group("/progress", jwt, access)
	pg.GET("/my-courses", api.myCourses)
	pg.GET("/:courseId", api.progress)
	pg.PUT("/:courseId/completed", api.markCompleted)

	// registered directly on g: a second "/lessons/:id" group would shadow the
	// catalog's lesson routes with its not-found placeholders
	g.POST("/lessons/:id/submit", api.submitQuiz, jwt, access)
	g.GET("/lessons/:id/attempts", api.attempts, jwt, access)
}

// Handlers

func (api *enrollApi) enroll(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return err
	}

	enr, err := api.svc.Enroll(ctx.Request().Context(), usr.ID, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, enr)
}

func (api *enrollApi) unenroll(ctx echo.Context) error {
	err := api.svc.Unenroll(ctx.Request().Context(), ctx.Param("studentId"), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *enrollApi) myCourses(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return err
	}

	scs, err := api.svc.ListStudentCourses(ctx.Request().Context(), usr.ID)
	if err != nil {
		return errors.Wrap(err, "listing student courses")
	}
	return ctx.JSON(http.StatusOK, scs)
}

// progress 404s when the caller is not enrolled; that is a state answer, not a
// failure.
func (api *enrollApi) progress(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return err
	}

	prog, err := api.svc.GetProgress(ctx.Request().Context(), usr.ID, ctx.Param("courseId"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, prog)
}

func (api *enrollApi) markCompleted(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return err
	}

	var data MarkCompletedRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MarkCompletedRequest")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	prog, err := api.svc.MarkLessonComplete(ctx.Request().Context(), usr.ID, ctx.Param("courseId"), data.LessonID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, prog)
}

func (api *enrollApi) submitQuiz(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return err
	}

	lsn, err := api.svc.GetQuizLesson(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}

	var data enroll.QuizSubmission
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to QuizSubmission")
	}
	if err = data.Validate(api.validate, *lsn.Quiz); err != nil {
		return err
	}

	report, err := api.svc.SubmitQuiz(ctx.Request().Context(), usr.ID, lsn.ID, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, report)
}

func (api *enrollApi) attempts(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return err
	}

	results, err := api.svc.Attempts(ctx.Request().Context(), usr.ID, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying quiz attempts")
	}
	return ctx.JSON(http.StatusOK, results)
}
