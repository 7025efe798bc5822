package logsvc

import (
	"log"
	"strings"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/trezcool/lms/core"
	"github.com/trezcool/lms/core/scorm"
)

// RollbarLogger reports to rollbar and mirrors every entry to a std logger.
type RollbarLogger struct {
	std *log.Logger
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	return &RollbarLogger{std: std}
}

func (l RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// prepare builds the rollbar args: msg first, then args minus learners.
// The first identified learner becomes the rollbar person.
func (l RollbarLogger) prepare(msg string, args []interface{}) []interface{} {
	rbArgs := []interface{}{msg}
	var person *scorm.Learner
	for _, arg := range args {
		learner, ok := arg.(scorm.Learner)
		if !ok {
			rbArgs = append(rbArgs, arg)
			continue
		}
		if person == nil && learner.ID != "" {
			person = &learner
		}
	}

	if person != nil {
		rollbar.SetPerson(person.ID, person.Username, person.Email)
	} else {
		rollbar.ClearPerson()
	}
	return rbArgs
}

// print writes "[LEVEL] msg" then one line per arg that is not a learner.
func (l RollbarLogger) print(level, msg string, args []interface{}) {
	l.std.Printf("[%s] %s\n", strings.ToUpper(level), msg)
	for _, arg := range args {
		if _, ok := arg.(scorm.Learner); !ok {
			l.std.Printf("%+v\n", arg)
		}
	}
}

func (l RollbarLogger) log(level, tag, msg string, args []interface{}) {
	rollbar.Log(level, l.prepare(msg, args)...)
	l.print(tag, msg, args)
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) { l.log(rollbar.DEBUG, "debug", msg, args) }
func (l RollbarLogger) Info(msg string, args ...interface{})  { l.log(rollbar.INFO, "info", msg, args) }
func (l RollbarLogger) Warn(msg string, args ...interface{})  { l.log(rollbar.WARN, "warn", msg, args) }
func (l RollbarLogger) Error(msg string, args ...interface{}) { l.log(rollbar.ERR, "error", msg, args) }

func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	l.log(rollbar.CRIT, "fatal", msg, args)
	rollbar.Wait()
	l.std.Fatal(msg)
}
