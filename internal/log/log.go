// Package log is the structured logger shared by the server and sitectl.
// Records carry the app and site id, trace ids from the context, and for
// errors the wrap chain recorded by xerrors.
package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Logger must be safe for concurrent use.
type Logger interface {
	With(kv ...any) Logger

	Debug(ctx context.Context, msg string, kv ...any)
	Info(ctx context.Context, msg string, kv ...any)
	Warn(ctx context.Context, msg string, kv ...any)
	Error(ctx context.Context, err error, msg string, kv ...any)

	Sync() error
}

type Options struct {
	App     string
	Version string
	SiteID  string

	// Level and StackLevel take debug|info|warn|error. Records at or above
	// StackLevel get a stack attribute; empty means error.
	Level      string
	StackLevel string

	JSON bool
	// ErrorLinks caps how many wrap sites are listed per error. 0 omits them.
	ErrorLinks int

	// Writer defaults to stdout.
	Writer io.Writer
}

// New fails only on an unknown level name.
func New(opts Options) (Logger, error) {
	lvl, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	stack := slog.LevelError
	if opts.StackLevel != "" {
		if stack, err = ParseLevel(opts.StackLevel); err != nil {
			return nil, fmt.Errorf("stack level: %w", err)
		}
	}
	return newSlog(opts, lvl, stack), nil
}

func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q (want debug|info|warn|error)", s)
}

type nop struct{}

func (nop) With(...any) Logger                           { return nop{} }
func (nop) Debug(context.Context, string, ...any)        {}
func (nop) Info(context.Context, string, ...any)         {}
func (nop) Warn(context.Context, string, ...any)         {}
func (nop) Error(context.Context, error, string, ...any) {}
func (nop) Sync() error                                  { return nil }

// Nop discards everything. Used by tests and as the FromContext fallback.
func Nop() Logger { return nop{} }
