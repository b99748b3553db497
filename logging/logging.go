// Package logging holds the process-wide *slog.Logger used by pdfengine.
//
// The library is silent by default. To see what it recovers from and skips:
//
//	logging.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
//
// Readers and interpreters can also be given their own logger with
// reader.WithLogger and interpreter.WithLogger.
package logging

import (
	"context"
	"log/slog"
	"sync/atomic"
)

var logger atomic.Pointer[slog.Logger]

// discardHandler drops every record.
type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (h discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return h }
func (h discardHandler) WithGroup(string) slog.Handler           { return h }

// Discard returns a logger that discards all output.
func Discard() *slog.Logger {
	return slog.New(discardHandler{})
}

// IsDiscard reports whether l drops everything it is given.
func IsDiscard(l *slog.Logger) bool {
	_, ok := l.Handler().(discardHandler)
	return ok
}

// SetLogger sets the process-wide logger. nil restores the discard logger.
// SetLogger is safe for concurrent use.
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = Discard()
	}
	logger.Store(l)
}

// Logger returns the process-wide logger.
func Logger() *slog.Logger {
	if l := logger.Load(); l != nil {
		return l
	}
	l := Discard()
	logger.CompareAndSwap(nil, l)
	return logger.Load()
}

// Or returns l, or the process-wide logger when l is nil.
func Or(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	return Logger()
}
