package logsvc

import (
	"os"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/user"
)

// RollbarLogger reports to Rollbar and writes structured logs with zap.
type RollbarLogger struct {
	zap *zap.SugaredLogger
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(conf *core.Config, name string) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	return &RollbarLogger{zap: newZapLogger(conf).Named(name).Sugar()}
}

func newZapLogger(conf *core.Config) *zap.Logger {
	zapConf := zap.NewProductionConfig()
	if conf.Debug {
		zapConf = zap.NewDevelopmentConfig()
	}
	if conf.TestMode {
		zapConf.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}

	if conf.Log.File == "" {
		logger, err := zapConf.Build(zap.AddCaller(), zap.AddCallerSkip(1))
		if err != nil {
			panic(err)
		}
		return logger
	}

	// rotated JSON file + console
	file := &lumberjack.Logger{
		Filename:   conf.Log.File,
		MaxSize:    conf.Log.MaxSizeMB,
		MaxBackups: conf.Log.MaxBackups,
		MaxAge:     conf.Log.MaxAgeDays,
	}
	tee := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), zapcore.AddSync(file), zapConf.Level),
		zapcore.NewCore(zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()), zapcore.AddSync(os.Stdout), zapConf.Level),
	)
	return zap.New(tee, zap.AddCaller(), zap.AddCallerSkip(1))
}

func (l RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

func (l RollbarLogger) Sync() error {
	return l.zap.Sync()
}

// expected fmt: msg | error, map[string]interface{}, user.User
func (l RollbarLogger) prepare(msg string, args []interface{}) []interface{} {
	var usrSet bool
	newArgs := make([]interface{}, 0, len(args)+1)
	newArgs = append(newArgs, msg)
	for _, arg := range args {
		// set logged in User
		if usr, ok := arg.(user.User); ok {
			if !usrSet { // only set one User
				rollbar.SetPerson(usr.ID, usr.Username, usr.Email)
				usrSet = true
			}
		} else {
			newArgs = append(newArgs, arg)
		}
	}
	if !usrSet {
		rollbar.ClearPerson()
	}
	return newArgs
}

// fields converts args to zap key-value pairs.
func (l RollbarLogger) fields(args []interface{}) []interface{} {
	kvs := make([]interface{}, 0, 2*len(args))
	for _, arg := range args {
		switch v := arg.(type) {
		case error:
			kvs = append(kvs, zap.Error(v))
		case map[string]interface{}:
			for key, val := range v {
				kvs = append(kvs, key, val)
			}
		case user.User:
			kvs = append(kvs, "user_id", v.ID)
		default:
			kvs = append(kvs, "arg", v)
		}
	}
	return kvs
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) {
	rollbar.Debug(l.prepare(msg, args)...)
	l.zap.Debugw(msg, l.fields(args)...)
}

func (l RollbarLogger) Info(msg string, args ...interface{}) {
	rollbar.Info(l.prepare(msg, args)...)
	l.zap.Infow(msg, l.fields(args)...)
}

func (l RollbarLogger) Warn(msg string, args ...interface{}) {
	rollbar.Warning(l.prepare(msg, args)...)
	l.zap.Warnw(msg, l.fields(args)...)
}

func (l RollbarLogger) Error(msg string, args ...interface{}) {
	rollbar.Error(l.prepare(msg, args)...)
	l.zap.Errorw(msg, l.fields(args)...)
}

func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	rollbar.Critical(l.prepare(msg, args)...)
	rollbar.Wait()
	l.zap.Fatalw(msg, l.fields(args)...)
}
