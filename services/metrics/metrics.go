package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/trezcool/classwork/core"
	"github.com/trezcool/classwork/core/attachment"
	"github.com/trezcool/classwork/core/auth"
)

// Metrics holds the collectors of the API. They are registered on their own registry,
// so that several instances can coexist in tests.
type Metrics struct {
	registry *prometheus.Registry

	AuthzDecisions   *prometheus.CounterVec
	IntakeRejections *prometheus.CounterVec
	HTTPDuration     *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		AuthzDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "classwork", Name: "authz_decisions_total", Help: "Authorization decisions",
		}, []string{"operation", "role", "outcome"}),
		IntakeRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "classwork", Name: "attachment_rejections_total", Help: "Rejected attachment uploads",
		}, []string{"purpose", "reason"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "classwork", Name: "http_request_duration_seconds", Help: "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "code"}),
	}
	m.registry.MustRegister(
		m.AuthzDecisions,
		m.IntakeRejections,
		m.HTTPDuration,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveDecision is an auth.DecisionObserver.
func (m *Metrics) ObserveDecision(op auth.Operation, role core.Role, d auth.Decision) {
	outcome := "allow"
	if !d.Allowed {
		outcome = "deny_" + string(d.Reason)
	}
	m.AuthzDecisions.WithLabelValues(string(op), string(role), outcome).Inc()
}

// ObserveRejection is an attachment.RejectionObserver.
func (m *Metrics) ObserveRejection(purpose attachment.Purpose, reason string) {
	m.IntakeRejections.WithLabelValues(string(purpose), reason).Inc()
}

// Middleware records the latency of every request by route.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()
			err := next(ctx)
			code := ctx.Response().Status
			if httpErr, ok := err.(*echo.HTTPError); ok {
				code = httpErr.Code
			}
			m.HTTPDuration.
				WithLabelValues(ctx.Request().Method, ctx.Path(), strconv.Itoa(code)).
				Observe(time.Since(start).Seconds())
			return err
		}
	}
}
