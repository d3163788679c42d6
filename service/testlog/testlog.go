// Package testlog provides a log handler for unit tests.
package testlog

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/log"
)

// Testing interface to log to. Some functions are marked as Helper function to log the call-site,
// not the logger internals.
type Testing interface {
	Logf(format string, args ...any)
	Helper()
}

// logger writes every record to the test log, so that output is attributed
// to the test that produced it and only shown on failure or with -v.
type logger struct {
	t  Testing
	mu *sync.Mutex

	buf *bytes.Buffer
	h   slog.Handler
}

// Logger returns a logger which logs to the unit test log of t.
func Logger(t Testing, level slog.Level) log.Logger {
	return LoggerWithHandlerMod(t, level, nil)
}

// LoggerWithHandlerMod returns a logger which logs to the unit test log of t,
// with the handler wrapped by mod when not nil.
func LoggerWithHandlerMod(t Testing, level slog.Level, mod func(slog.Handler) slog.Handler) log.Logger {
	buf := new(bytes.Buffer)
	var h slog.Handler = &logger{
		t:   t,
		mu:  new(sync.Mutex),
		buf: buf,
		h:   log.NewTerminalHandlerWithLevel(buf, level, false),
	}
	if mod != nil {
		h = mod(h)
	}
	return log.NewLogger(h)
}

func (l *logger) Enabled(ctx context.Context, level slog.Level) bool {
	return l.h.Enabled(ctx, level)
}

func (l *logger) Handle(ctx context.Context, r slog.Record) error {
	l.t.Helper()
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.h.Handle(ctx, r); err != nil {
		return err
	}
	l.t.Logf("%s", strings.TrimRight(l.buf.String(), "\n"))
	l.buf.Reset()
	return nil
}

func (l *logger) WithAttrs(attrs []slog.Attr) slog.Handler {
	l.mu.Lock()
	defer l.mu.Unlock()
	return &logger{t: l.t, mu: l.mu, buf: l.buf, h: l.h.WithAttrs(attrs)}
}

func (l *logger) WithGroup(name string) slog.Handler {
	l.mu.Lock()
	defer l.mu.Unlock()
	return &logger{t: l.t, mu: l.mu, buf: l.buf, h: l.h.WithGroup(name)}
}
