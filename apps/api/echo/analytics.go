package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/elimuhq/elimu/core/analytics"
	"github.com/elimuhq/elimu/core/user"
)

type analyticsApi struct {
	svc     *analytics.Service
	userSvc *user.Service
}

func registerAnalyticsAPI(g *echo.Group, jwt, access echo.MiddlewareFunc, deps ServerDeps) {
	api := analyticsApi{svc: deps.AnalyticsSvc, userSvc: deps.UserSvc}

	ag := g.Group("/analytics", jwt, access)
	ag.GET("/admin", api.adminStats, roleMiddleware(deps.UserSvc, user.RoleAdmin))
	ag.GET("/instructor", api.instructorStats, roleMiddleware(deps.UserSvc, user.RoleInstructor, user.RoleAdmin))
	ag.GET("/student", api.studentStats)
}

// Handlers

func (api *analyticsApi) adminStats(ctx echo.Context) error {
	stats, err := api.svc.AdminStats(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "building admin stats")
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (api *analyticsApi) instructorStats(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return err
	}

	stats, err := api.svc.InstructorStats(ctx.Request().Context(), usr.ID)
	if err != nil {
		return errors.Wrap(err, "building instructor stats")
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (api *analyticsApi) studentStats(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return err
	}

	stats, err := api.svc.StudentStats(ctx.Request().Context(), usr.ID)
	if err != nil {
		return errors.Wrap(err, "building student stats")
	}
	return ctx.JSON(http.StatusOK, stats)
}
