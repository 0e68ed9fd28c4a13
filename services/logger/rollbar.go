package logsvc

import (
	"os"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"
	"go.uber.org/zap/zapcore"

	"github.com/trezcool/classwork/core"
)

type RollbarReporter struct{}

var _ Reporter = RollbarReporter{}

func NewRollbarReporter(conf *core.Config) RollbarReporter {
	host, _ := os.Hostname()
	rollbar.SetToken(conf.Logger.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	rollbar.SetEnabled(!conf.TestMode)
	return RollbarReporter{}
}

func (RollbarReporter) Report(level zapcore.Level, msg string, err error, extras map[string]interface{}, person *core.Person) {
	if person != nil {
		rollbar.SetPerson(person.ID, person.Username, person.Email)
	} else {
		rollbar.ClearPerson()
	}

	args := []interface{}{msg}
	if err != nil {
		args = append(args, err)
	}
	if extras != nil {
		args = append(args, extras)
	}

	switch level {
	case zapcore.DebugLevel:
		rollbar.Debug(args...)
	case zapcore.InfoLevel:
		rollbar.Info(args...)
	case zapcore.WarnLevel:
		rollbar.Warning(args...)
	case zapcore.ErrorLevel:
		rollbar.Error(args...)
	default:
		rollbar.Critical(args...)
	}
}

func (RollbarReporter) Flush() { rollbar.Wait() }
