package logsvc

import (
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/pkg/errors"
	"go.uber.org/zap/zapcore"

	"github.com/trezcool/classwork/core"
)

type SentryReporter struct {
	hub *sentry.Hub
}

var _ Reporter = (*SentryReporter)(nil)

func NewSentryReporter(conf *core.Config) (*SentryReporter, error) {
	host, _ := os.Hostname()
	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:         conf.Logger.SentryDSN,
		Environment: conf.Env,
		Release:     conf.Build,
		ServerName:  host,
	})
	if err != nil {
		return nil, errors.Wrap(err, "initializing sentry")
	}
	return &SentryReporter{hub: sentry.NewHub(client, sentry.NewScope())}, nil
}

func sentryLevel(level zapcore.Level) sentry.Level {
	switch level {
	case zapcore.DebugLevel:
		return sentry.LevelDebug
	case zapcore.InfoLevel:
		return sentry.LevelInfo
	case zapcore.WarnLevel:
		return sentry.LevelWarning
	case zapcore.ErrorLevel:
		return sentry.LevelError
	default:
		return sentry.LevelFatal
	}
}

func (r *SentryReporter) Report(level zapcore.Level, msg string, err error, extras map[string]interface{}, person *core.Person) {
	r.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetLevel(sentryLevel(level))
		if person != nil {
			scope.SetUser(sentry.User{ID: person.ID, Username: person.Username, Email: person.Email})
		}
		for k, v := range extras {
			scope.SetExtra(k, v)
		}
		if err != nil {
			scope.SetExtra("message", msg)
			r.hub.CaptureException(err)
			return
		}
		r.hub.CaptureMessage(msg)
	})
}

func (r *SentryReporter) Flush() { r.hub.Flush(2 * time.Second) }
