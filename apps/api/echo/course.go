package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/elimuhq/elimu/core/course"
	"github.com/elimuhq/elimu/core/user"
)

type courseApi struct {
	svc        *course.Service
	userSvc    *user.Service
	validate   *validator.Validate
	translator ut.Translator
}

func registerCourseAPI(g *echo.Group, jwt, access echo.MiddlewareFunc, deps ServerDeps) {
	api := courseApi{
		svc:        deps.CourseSvc,
		userSvc:    deps.UserSvc,
		validate:   deps.Validate,
		translator: deps.Translator,
	}

	cg := g.Group("/courses", jwt, access)
	cg.GET("", api.query)
	cg.POST("", api.create, roleMiddleware(deps.UserSvc, user.RoleInstructor, user.RoleAdmin))
	cg.GET("/:id", api.retrieve)
	cg.PUT("/:id", api.update)
	cg.DELETE("/:id", api.destroy)
	cg.POST("/:id/lessons", api.addLesson)

	lg := g.Group("/lessons", jwt, access)
	lg.PUT("/:id", api.updateLesson)
	lg.DELETE("/:id", api.destroyLesson)
}

// checkCourseOwner 403s unless the caller owns the course or is an admin.
func (api *courseApi) checkCourseOwner(ctx echo.Context, crs course.Course) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return err
	}
	if usr.IsAdmin() || crs.InstructorID == usr.ID {
		return nil
	}
	return errHTTPForbidden
}

// Handlers

func (api *courseApi) query(ctx echo.Context) error {
	courses, err := api.svc.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) create(ctx echo.Context) error {
	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return err
	}
	crs, err := api.svc.Create(ctx.Request().Context(), usr.ID, data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, crs)
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	detail, err := api.svc.Retrieve(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, detail)
}

func (api *courseApi) update(ctx echo.Context) error {
	crs, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	if err = api.checkCourseOwner(ctx, crs); err != nil {
		return err
	}

	var data course.UpdateCourse
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCourse")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	crs, err = api.svc.Update(ctx.Request().Context(), crs.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating course")
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) destroy(ctx echo.Context) error {
	crs, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	if err = api.checkCourseOwner(ctx, crs); err != nil {
		return err
	}

	if err = api.svc.Delete(ctx.Request().Context(), crs.ID); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *courseApi) addLesson(ctx echo.Context) error {
	crs, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	if err = api.checkCourseOwner(ctx, crs); err != nil {
		return err
	}

	var data course.NewLesson
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewLesson")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	lsn, err := api.svc.AddLesson(ctx.Request().Context(), crs.ID, data)
	if err != nil {
		return errors.Wrap(err, "adding lesson")
	}
	return ctx.JSON(http.StatusCreated, lsn)
}

func (api *courseApi) updateLesson(ctx echo.Context) error {
	lsn, err := api.svc.GetLesson(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	crs, err := api.svc.GetByID(ctx.Request().Context(), lsn.CourseID)
	if err != nil {
		return err
	}
	if err = api.checkCourseOwner(ctx, crs); err != nil {
		return err
	}

	var data course.UpdateLesson
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateLesson")
	}
	if err = data.Validate(lsn, api.validate); err != nil {
		return err
	}

	lsn, err = api.svc.UpdateLesson(ctx.Request().Context(), lsn.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating lesson")
	}
	return ctx.JSON(http.StatusOK, lsn)
}

func (api *courseApi) destroyLesson(ctx echo.Context) error {
	lsn, err := api.svc.GetLesson(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	crs, err := api.svc.GetByID(ctx.Request().Context(), lsn.CourseID)
	if err != nil {
		return err
	}
	if err = api.checkCourseOwner(ctx, crs); err != nil {
		return err
	}

	if err = api.svc.DeleteLesson(ctx.Request().Context(), lsn.ID); err != nil {
		return errors.Wrap(err, "deleting lesson")
	}
	return ctx.NoContent(http.StatusNoContent)
}
