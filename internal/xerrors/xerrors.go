// Package xerrors records where errors start and where they are wrapped.
// The logger reads these call sites back through the Stack and Caller
// methods; errors.Is and errors.As see straight through both wrappers.
package xerrors

import (
	"errors"
	"fmt"
	"runtime"
)

const maxStackDepth = 64

// traced holds the full stack from the point an error entered this package.
type traced struct {
	err error
	pcs []uintptr
}

func (t *traced) Error() string    { return t.err.Error() }
func (t *traced) Unwrap() error    { return t.err }
func (t *traced) Stack() []uintptr { return t.pcs }

// annotated prefixes a message and remembers the single frame that added it.
type annotated struct {
	msg string
	err error
	pc  uintptr
}

func (a *annotated) Error() string   { return a.msg + ": " + a.err.Error() }
func (a *annotated) Unwrap() error   { return a.err }
func (a *annotated) Caller() uintptr { return a.pc }

// skip counts frames above the exported entry point.
func trace(err error, skip int) error {
	pcs := make([]uintptr, maxStackDepth)
	n := runtime.Callers(skip+2, pcs)
	return &traced{err: err, pcs: pcs[:n:n]}
}

func caller(skip int) uintptr {
	var pc [1]uintptr
	if runtime.Callers(skip+2, pc[:]) == 0 {
		return 0
	}
	return pc[0]
}

// New returns an error with msg and the caller's stack.
func New(msg string) error { return trace(errors.New(msg), 1) }

// Newf is New with formatting. %w is honored.
func Newf(format string, args ...any) error { return trace(fmt.Errorf(format, args...), 1) }

// WithStack attaches the caller's stack to err.
func WithStack(err error) error {
	if err == nil {
		return nil
	}
	return trace(err, 1)
}

// EnsureTrace is WithStack unless something in err's chain already
// carries a stack.
func EnsureTrace(err error) error {
	if err == nil {
		return nil
	}
	var st interface{ Stack() []uintptr }
	if errors.As(err, &st) && len(st.Stack()) > 0 {
		return err
	}
	return trace(err, 1)
}

// Wrap prefixes err with msg. A nil err stays nil.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return &annotated{msg: msg, err: err, pc: caller(1)}
}

// Wrapf is Wrap with formatting.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &annotated{msg: fmt.Sprintf(format, args...), err: err, pc: caller(1)}
}
