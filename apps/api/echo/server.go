package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/elimuhq/elimu/core"
	"github.com/elimuhq/elimu/core/analytics"
	"github.com/elimuhq/elimu/core/course"
	"github.com/elimuhq/elimu/core/enroll"
	"github.com/elimuhq/elimu/core/user"
)

type (
	ServerDeps struct {
		Conf         *core.Config
		Logger       core.Logger
		UserSvc      *user.Service
		CourseSvc    *course.Service
		EnrollSvc    *enroll.Service
		AnalyticsSvc *analytics.Service
		Broker       core.Broker
		Validate     *validator.Validate
		Translator   ut.Translator
	}

	Server struct {
		deps     ServerDeps
		app      *echo.Echo
		errs     chan error
		shutdown chan os.Signal
	}
)

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		deps:     deps,
		app:      echo.New(),
		errs:     make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, syscall.SIGINT, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug
	s.app.HideBanner = true

	s.app.GET("/", home)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(newAppJWTConfig(conf))
	access := accessOnlyMiddleware(s.deps.UserSvc)

	registerAuthAPI(v1, jwt, access, s.deps)
	registerCourseAPI(v1, jwt, access, s.deps)
	registerEnrollAPI(v1, jwt, access, s.deps)
	registerAnalyticsAPI(v1, jwt, access, s.deps)
	registerEventsAPI(v1, jwt, access, s.deps)
}

func (s *Server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Host); err != nil && err != http.ErrServerClosed {
		s.errs <- err
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) Errors() <-chan error {
	return s.errs
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

// signalShutdown lets the error handler trigger a graceful stop when an
// integrity-threatening error is caught.
func (s *Server) signalShutdown() {
	s.shutdown <- syscall.SIGTERM
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Elimu API!")
}
