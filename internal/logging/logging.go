// Package logging provides context-aware structured logging on top of
// logrus. Components retrieve their logger with logging.G(ctx) so that
// request-scoped fields attached upstream travel with the call.
package logging

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// G is shorthand for FromContext.
var G = FromContext

// L is the process-wide fallback entry used when a context carries no logger.
var L = logrus.NewEntry(newLogger())

type ctxKey struct{}

// WithLogger returns a context carrying the given entry.
func WithLogger(ctx context.Context, entry *logrus.Entry) context.Context {
	return context.WithValue(ctx, ctxKey{}, entry.WithContext(ctx))
}

// FromContext returns the entry stored in ctx, or the global fallback.
func FromContext(ctx context.Context) *logrus.Entry {
	if e, ok := ctx.Value(ctxKey{}).(*logrus.Entry); ok {
		return e
	}
	return L.WithContext(ctx)
}

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.Formatter = &logrus.TextFormatter{
		TimestampFormat: time.RFC3339,
		FullTimestamp:   true,
	}
	l.SetLevel(logrus.InfoLevel)
	return l
}

// SetLevel configures the global logger level from a string such as
// "debug" or "warn".
func SetLevel(level string) error {
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	L.Logger.SetLevel(parsed)
	return nil
}

// SetFormat switches the global logger between "text" and "json" output.
func SetFormat(format string) {
	switch format {
	case "json":
		L.Logger.Formatter = &logrus.JSONFormatter{TimestampFormat: time.RFC3339}
	default:
		L.Logger.Formatter = &logrus.TextFormatter{
			TimestampFormat: time.RFC3339,
			FullTimestamp:   true,
		}
	}
}
