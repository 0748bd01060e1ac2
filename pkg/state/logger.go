package state

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Logger is the minimal structured logging interface used by the vault.
// Arguments are alternating key/value pairs. The default is a no-op; wire a
// real sink with WithLogger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// NewLogrusLogger adapts a logrus logger to the Logger interface. A nil
// argument falls back to the logrus standard logger.
func NewLogrusLogger(l *logrus.Logger) Logger {
	if l == nil {
		l = logrus.StandardLogger()
	}
	return logrusLogger{l: l}
}

type logrusLogger struct{ l *logrus.Logger }

func (a logrusLogger) Debug(msg string, args ...any) { a.l.WithFields(fields(args)).Debug(msg) }
func (a logrusLogger) Info(msg string, args ...any)  { a.l.WithFields(fields(args)).Info(msg) }
func (a logrusLogger) Warn(msg string, args ...any)  { a.l.WithFields(fields(args)).Warn(msg) }
func (a logrusLogger) Error(msg string, args ...any) { a.l.WithFields(fields(args)).Error(msg) }

func fields(args []any) logrus.Fields {
	f := make(logrus.Fields, len(args)/2)
	for i := 0; i+1 < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			key = fmt.Sprint(args[i])
		}
		f[key] = args[i+1]
	}
	return f
}
