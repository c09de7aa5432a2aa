package logsvc

import (
	"log"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/Jati804/internal-web-sanur-akademi-sub000/core"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/core/user"
)

// RollbarLogger writes every entry to a std logger and reports it to Rollbar, tagged with the academy.
type RollbarLogger struct {
	std *log.Logger
}

var _ core.Logger = (*RollbarLogger)(nil)

// NewRollbarLogger prints to std and reports to Rollbar. Reporting is off without a token.
func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnabled(conf.RollbarToken != "" && !conf.TestMode)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	rollbar.SetCustom(map[string]interface{}{"academy": conf.Academy.Name, "app": conf.AppName})
	return &RollbarLogger{std: std}
}

// Enable toggles reporting. The std output is always written.
func (l RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// prepare turns args into rollbar arguments. The first user.User becomes the Rollbar person,
// so staff and portal users (who may log in by email only) are told apart.
func (l RollbarLogger) prepare(msg string, args []interface{}) []interface{} {
	var person *user.User
	newArgs := make([]interface{}, 0, len(args)+1)
	newArgs = append(newArgs, msg)
	for _, arg := range args {
		usr, ok := arg.(user.User)
		switch {
		case !ok:
			newArgs = append(newArgs, arg)
		case person == nil:
			person = &usr
		}
	}

	if person == nil {
		rollbar.ClearPerson()
		return newArgs
	}
	name := person.Username
	if name == "" {
		name = person.Email
	}
	rollbar.SetPerson(person.ID, name, person.Email)
	if len(person.Roles) > 0 {
		newArgs = append(newArgs, map[string]interface{}{"roles": person.Roles})
	}
	return newArgs
}

func (l RollbarLogger) print(msg string, args []interface{}) {
	l.std.Println(msg)
	for _, arg := range args {
		if usr, ok := arg.(user.User); ok {
			l.std.Printf("user: %s (%s)\n", usr.ID, usr.Username)
			continue
		}
		l.std.Printf("%+v\n", arg)
	}
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) {
	rollbar.Debug(l.prepare(msg, args)...)
	l.print(msg, args)
}

func (l RollbarLogger) Info(msg string, args ...interface{}) {
	rollbar.Info(l.prepare(msg, args)...)
	l.print(msg, args)
}

func (l RollbarLogger) Warn(msg string, args ...interface{}) {
	rollbar.Warning(l.prepare(msg, args)...)
	l.print(msg, args)
}

func (l RollbarLogger) Error(msg string, args ...interface{}) {
	rollbar.Error(l.prepare(msg, args)...)
	l.print(msg, args)
}

func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	rollbar.Critical(l.prepare(msg, args)...)
	l.print(msg, args)
	l.std.Fatal(msg)
}
