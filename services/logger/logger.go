package logsvc

import (
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/trezcool/classwork/core"
)

// Reporter forwards log entries to an error tracking service.
type Reporter interface {
	Report(level zapcore.Level, msg string, err error, extras map[string]interface{}, person *core.Person)
	Flush()
}

// Logger writes structured logs with zap and forwards them to an optional Reporter.
type Logger struct {
	sugar    *zap.SugaredLogger
	reporter Reporter
}

var _ core.Logger = (*Logger)(nil)

// NewZap builds the zap logger: development config outside PROD, ISO8601 timestamps.
func NewZap(level, env string) (*zap.Logger, error) {
	lvl := zap.NewAtomicLevel()
	if err := lvl.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
		lvl = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	var cfg zap.Config
	if strings.ToUpper(env) == "PROD" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = lvl
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	base, err := cfg.Build(zap.AddStacktrace(zap.ErrorLevel), zap.AddCallerSkip(2))
	if err != nil {
		return nil, errors.Wrap(err, "building zap logger")
	}
	return base, nil
}

// New returns a Logger reporting to rollbar or sentry when configured.
func New(conf *core.Config) (*Logger, error) {
	base, err := NewZap(conf.Logger.Level, conf.Env)
	if err != nil {
		return nil, err
	}

	var reporter Reporter
	switch {
	case conf.Logger.RollbarToken != "":
		reporter = NewRollbarReporter(conf)
	case conf.Logger.SentryDSN != "":
		if reporter, err = NewSentryReporter(conf); err != nil {
			return nil, err
		}
	}
	return NewLogger(base, reporter), nil
}

func NewLogger(base *zap.Logger, reporter Reporter) *Logger {
	return &Logger{sugar: base.Sugar(), reporter: reporter}
}

// Sync flushes buffered entries and pending reports.
func (l *Logger) Sync() {
	_ = l.sugar.Sync()
	if l.reporter != nil {
		l.reporter.Flush()
	}
}

// expected fmt: msg | error, map[string]interface{}, core.Person
func (l *Logger) log(level zapcore.Level, msg string, args []interface{}) {
	var (
		err    error
		extras map[string]interface{}
		person *core.Person
		kvs    []interface{}
	)
	for _, arg := range args {
		switch a := arg.(type) {
		case error:
			if err == nil {
				err = a
			}
			kvs = append(kvs, zap.Error(a))
		case map[string]interface{}:
			extras = a
			for k, v := range a {
				kvs = append(kvs, k, v)
			}
		case core.Person:
			if person == nil { // only set one person
				p := a
				person = &p
				kvs = append(kvs, "user_id", a.ID, "username", a.Username)
			}
		default:
			kvs = append(kvs, zap.Any("arg", a))
		}
	}

	switch level {
	case zapcore.DebugLevel:
		l.sugar.Debugw(msg, kvs...)
	case zapcore.InfoLevel:
		l.sugar.Infow(msg, kvs...)
	case zapcore.WarnLevel:
		l.sugar.Warnw(msg, kvs...)
	case zapcore.ErrorLevel:
		l.sugar.Errorw(msg, kvs...)
	case zapcore.FatalLevel:
		if l.reporter != nil {
			l.reporter.Report(level, msg, err, extras, person)
			l.reporter.Flush()
		}
		l.sugar.Fatalw(msg, kvs...)
		return
	}
	if l.reporter != nil && level >= zapcore.WarnLevel {
		l.reporter.Report(level, msg, err, extras, person)
	}
}

func (l *Logger) Debug(msg string, args ...interface{}) { l.log(zapcore.DebugLevel, msg, args) }
func (l *Logger) Info(msg string, args ...interface{})  { l.log(zapcore.InfoLevel, msg, args) }
func (l *Logger) Warn(msg string, args ...interface{})  { l.log(zapcore.WarnLevel, msg, args) }
func (l *Logger) Error(msg string, args ...interface{}) { l.log(zapcore.ErrorLevel, msg, args) }
func (l *Logger) Fatal(msg string, args ...interface{}) { l.log(zapcore.FatalLevel, msg, args) }
