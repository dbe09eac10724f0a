package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/elimuhq/elimu/core"
	"github.com/elimuhq/elimu/core/user"
)

type (
	LoginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	RefreshRequest struct {
		RefreshToken string `json:"refresh_token" validate:"required"`
	}

	AuthResponse struct {
		User         user.User `json:"user"`
		AccessToken  string    `json:"access_token"`
		RefreshToken string    `json:"refresh_token"`
	}

	RefreshResponse struct {
		AccessToken string `json:"access_token"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}
)

func (r *LoginRequest) Validate(validate *validator.Validate) error {
	r.Email = core.CleanString(r.Email, true /* lower */)
	return validate.Struct(r)
}

func (r *RefreshRequest) Validate(validate *validator.Validate) error {
	r.RefreshToken = core.CleanString(r.RefreshToken)
	return validate.Struct(r)
}

type authApi struct {
	svc        *user.Service
	issuer     tokenIssuer
	validate   *validator.Validate
	translator ut.Translator
}

func registerAuthAPI(g *echo.Group, jwt, access echo.MiddlewareFunc, deps ServerDeps) {
	api := authApi{
		svc:        deps.UserSvc,
		issuer:     tokenIssuer{conf: deps.Conf},
		validate:   deps.Validate,
		translator: deps.Translator,
	}

	ag := g.Group("/auth")

	// un-authed endpoints
	ag.POST("/register", api.register)
	ag.POST("/login", api.login)
	ag.POST("/refresh", api.refresh)

	// authed endpoints
	tg := ag.Group("", jwt, access)
	tg.POST("/logout", api.logout)
	tg.GET("/me", api.me)

	// admin user management
	ug := g.Group("/users", jwt, access, roleMiddleware(deps.UserSvc, user.RoleAdmin))
	ug.GET("", api.queryUsers)
	ug.PUT("/:id", api.updateUser)
	ug.DELETE("/:id", api.deleteUser)
}

// Handlers

func (api *authApi) register(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := api.svc.Register(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "registering user")
	}

	accessTkn, refreshTkn, err := api.issuer.issuePair(usr)
	if err != nil {
		return errors.Wrap(err, "issuing token pair")
	}
	return ctx.JSON(http.StatusCreated, AuthResponse{User: usr, AccessToken: accessTkn, RefreshToken: refreshTkn})
}

func (api *authApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := api.svc.Authenticate(ctx.Request().Context(), data.Email, data.Password)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}

	accessTkn, refreshTkn, err := api.issuer.issuePair(usr)
	if err != nil {
		return errors.Wrap(err, "issuing token pair")
	}
	return ctx.JSON(http.StatusOK, AuthResponse{User: usr, AccessToken: accessTkn, RefreshToken: refreshTkn})
}

// refresh exchanges a valid refresh token for a fresh access token. Refresh
// tokens stay reusable until expiry; only access tokens are re-minted.
func (api *authApi) refresh(ctx echo.Context) error {
	var data RefreshRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RefreshRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := api.issuer.parseRefresh(data.RefreshToken)
	if err != nil {
		return err
	}
	usr, err := api.svc.GetByID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return errInvalidRefreshToken
		}
		return errors.Wrap(err, "finding user by ID")
	}
	if !usr.IsActive {
		return errAccountDeactivated
	}

	accessTkn, err := api.issuer.issueAccess(usr)
	if err != nil {
		return errors.Wrap(err, "issuing access token")
	}
	return ctx.JSON(http.StatusOK, RefreshResponse{AccessToken: accessTkn})
}

// logout is stateless server side: tokens stay valid until expiry and the
// client discards both. The endpoint exists so clients have a uniform flow.
func (api *authApi) logout(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "logged out"})
}

func (api *authApi) me(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *authApi) queryUsers(ctx echo.Context) error {
	users, err := api.svc.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	return ctx.JSON(http.StatusOK, users)
}

func (api *authApi) updateUser(ctx echo.Context) error {
	var data user.UpdateUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateUser")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating user")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *authApi) deleteUser(ctx echo.Context) error {
	usr, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), usr.ID); err != nil {
		return errors.Wrap(err, "deleting user")
	}
	return ctx.NoContent(http.StatusNoContent)
}
