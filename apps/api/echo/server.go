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

	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/apps/shared"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core/branch"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core/report"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core/student"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core/user"
)

type (
	Deps struct {
		Conf       *core.Config
		Logger     core.Logger
		Validate   *validator.Validate
		Translator ut.Translator
		UserSvc    *user.Service
		BranchSvc  *branch.Service
		ReportSvc  *report.Service
		Importer   *student.Importer
		Resources  []Resource
	}

	Server struct {
		address  string
		deps     *Deps
		app      *echo.Echo
		errors   chan error
		shutdown chan os.Signal
	}
)

// NewDeps exposes every service of svcs.
func NewDeps(
	conf *core.Config,
	logger core.Logger,
	validate *validator.Validate,
	translator ut.Translator,
	svcs *shared.Services,
) *Deps {
	return &Deps{
		Conf:       conf,
		Logger:     logger,
		Validate:   validate,
		Translator: translator,
		UserSvc:    svcs.Users,
		BranchSvc:  svcs.Branches,
		ReportSvc:  svcs.Reports,
		Importer:   svcs.Importer,
		Resources: []Resource{
			NewResource(svcs.GradeLevels),
			NewResource(svcs.Classes),
			NewResource(svcs.Subjects),
			NewResource(svcs.Students),
			NewResource(svcs.Attendance),
			NewResource(svcs.Fees),
			NewResource(svcs.Payments),
			NewResource(svcs.Exams),
			NewResource(svcs.Incidents),
			NewResource(svcs.Inventory, LowStockParam),
		},
	}
}

// NewServer builds the API. shutdown may be nil; it then listens to SIGINT & SIGTERM.
func NewServer(address string, shutdown chan os.Signal, deps *Deps) *Server {
	if shutdown == nil {
		shutdown = make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	}
	s := &Server{
		address:  address,
		deps:     deps,
		app:      echo.New(),
		errors:   make(chan error, 1),
		shutdown: shutdown,
	}
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.Server.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", s.home)

	v1 := s.app.Group("/v1")
	auth := newAuthenticator(conf)
	authed := []echo.MiddlewareFunc{middleware.JWTWithConfig(auth.jwtConfig), actorMiddleware(s.deps.UserSvc)}

	registerUserAPI(v1, auth, authed, s.deps.UserSvc, s.deps.Validate)
	registerBranchAPI(v1, authed, s.deps.BranchSvc)
	if s.deps.Importer != nil {
		registerImportAPI(v1, authed, s.deps.Importer)
	}
	for _, res := range s.deps.Resources {
		res.register(v1, authed)
	}
	if s.deps.ReportSvc != nil {
		registerReportAPI(v1, authed, s.deps.ReportSvc)
	}
}

// Start blocks until the listener stops; errors are reported on Errors().
func (s *Server) Start() {
	if err := s.app.Start(s.address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error { return s.errors }

func (s *Server) ShutdownSignal() <-chan os.Signal { return s.shutdown }

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *Server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to the "+s.deps.Conf.AppName+" API!")
}
