package echoapi

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/pkg/errors"

	"github.com/trezcool/classwork/core"
	"github.com/trezcool/classwork/core/announcement"
	"github.com/trezcool/classwork/core/assignment"
	"github.com/trezcool/classwork/core/auth"
	"github.com/trezcool/classwork/core/submission"
	"github.com/trezcool/classwork/core/user"
	"github.com/trezcool/classwork/services/metrics"
)

// bodyLimit leaves room for the multipart envelope around the largest accepted attachment,
// so that oversized files are rejected by the attachment intake rather than the transport.
const bodyLimit = "8M"

type (
	Options struct {
		Address        string
		Debug          bool
		TestMode       bool
		DisableReqLogs bool

		Logger  core.Logger
		Issuer  *auth.Issuer
		Metrics *metrics.Metrics // optional

		UserSvc         *user.Service
		AssignmentSvc   *assignment.Service
		SubmissionSvc   *submission.Service
		AnnouncementSvc *announcement.Service
	}

	Server interface {
		http.Handler
		Start() error
		Stop(context.Context) error
	}

	server struct {
		opts *Options
		app  *echo.Echo
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options) Server {
	s := &server{
		opts: opts,
		app:  echo.New(),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	s.app.HideBanner = true
	s.app.Debug = s.opts.Debug
	if s.opts.Debug {
		s.app.Logger.SetLevel(log.DEBUG)
	} else {
		s.app.Logger.SetLevel(log.WARN)
	}

	s.app.Pre(middleware.RemoveTrailingSlash())
	s.app.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	if s.opts.Metrics != nil {
		s.app.Use(s.opts.Metrics.Middleware())
	}
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(s.opts.Debug || s.opts.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.BodyLimit(bodyLimit))

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger)

	s.app.GET("/", home)

	v1 := s.app.Group("/v1")
	authn := authMiddleware(s.opts.Issuer)

	registerUserAPI(v1, authn, s.opts.UserSvc)
	registerAssignmentAPI(v1, authn, s.opts.AssignmentSvc, s.opts.SubmissionSvc)
	registerSubmissionAPI(v1, authn, s.opts.SubmissionSvc)
	registerAnnouncementAPI(v1, authn, s.opts.AnnouncementSvc)
}

// Start blocks until the server is stopped. A graceful Stop is not reported as an error.
func (s *server) Start() error {
	if err := s.app.Start(s.opts.Address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Classwork API!")
}
