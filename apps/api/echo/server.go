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
	"go.uber.org/dig"

	"github.com/Jati804/internal-web-sanur-akademi-sub000/core"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/core/attendance"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/core/class"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/core/ledger"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/core/payroll"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/core/receipt"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/core/student"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/core/user"
)

// Deps holds everything the API needs.
type Deps struct {
	dig.In

	Conf       *core.Config
	Logger     core.Logger
	Validate   *validator.Validate
	Translator ut.Translator
	Limiter    core.AttemptLimiter

	UserSvc       *user.Service
	StudentSvc    *student.Service
	ClassSvc      *class.Service
	AttendanceSvc *attendance.Service
	PayrollSvc    *payroll.Service
	LedgerSvc     *ledger.Service
	ReceiptSvc    *receipt.Service

	DisableReqLogs bool `optional:"true"`
}

type Server struct {
	deps     Deps
	app      *echo.Echo
	errors   chan error
	shutdown chan os.Signal
}

func NewServer(deps Deps) *Server {
	s := &Server{
		deps:     deps,
		app:      echo.New(),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.deps.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = s.httpErrorHandler
	s.app.Debug = conf.Debug && !conf.TestMode

	s.app.GET("/", s.home)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(newJWTConfig(conf))
	authed := []echo.MiddlewareFunc{jwt, s.activeUserMiddleware()}

	s.registerUserAPI(v1, jwt)
	s.registerMeAPI(v1, authed...)
	s.registerStudentAPI(v1, authed...)
	s.registerClassAPI(v1, authed...)
	s.registerAttendanceAPI(v1, authed...)
	s.registerPayrollAPI(v1, authed...)
	s.registerLedgerAPI(v1, authed...)
	s.registerReceiptAPI(v1, authed...)
}

// Start listens on the configured host. Listener errors are sent to Errors.
func (s *Server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Host); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error { return s.errors }

func (s *Server) ShutdownSignal() <-chan os.Signal { return s.shutdown }

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	signal.Stop(s.shutdown)
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.deps.Conf.AppName+" API!")
}
