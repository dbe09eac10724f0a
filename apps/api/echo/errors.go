package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/elimuhq/elimu/core"
	"github.com/elimuhq/elimu/core/course"
	"github.com/elimuhq/elimu/core/enroll"
	"github.com/elimuhq/elimu/core/user"
)

var (
	errUnauthorized        = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errInvalidRefreshToken = echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired refresh token")
	errAccountDeactivated  = echo.NewHTTPError(http.StatusForbidden, "account deactivated")
	errHTTPForbidden       = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHTTPNotFound        = echo.NewHTTPError(http.StatusNotFound, "not found")
)

// domainErrCode maps domain sentinels to HTTP statuses; anything unmapped is a
// server error.
func domainErrCode(err error) (int, bool) {
	switch err {
	case user.ErrNotFound, course.ErrNotFound, course.ErrLessonNotFound, enroll.ErrNotFound:
		return http.StatusNotFound, true
	case user.ErrEmailExists, enroll.ErrAlreadyEnrolled:
		return http.StatusConflict, true
	case enroll.ErrLessonNotInCourse, enroll.ErrNotAQuiz:
		return http.StatusBadRequest, true
	case user.ErrInvalidCredentials:
		return http.StatusUnauthorized, true
	case user.ErrAccountDeactivated:
		return http.StatusForbidden, true
	}
	return 0, false
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				message = origErr.Message
				break
			}
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Translate(translator)
			}
			code = http.StatusBadRequest
			message = fldErrs
		case *core.ValidationError:
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		default:
			if c, ok := domainErrCode(origErr); ok {
				code = c
				message = origErr.Error()
				break
			}

			// any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			message = msg

			var usr user.User
			if claims, cErr := getContextClaims(ctx); cErr == nil {
				usr.ID = claims.Subject
				usr.Name = claims.Name
				usr.Email = claims.Email
			}
			logger.Error(msg, errors.Wrap(err, msg), usr)

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug && code >= http.StatusInternalServerError {
			message = err.Error()
		}
		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
