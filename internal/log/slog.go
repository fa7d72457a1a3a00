package log

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"reflect"
	"runtime"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// Implemented by xerrors values.
type (
	stacker  interface{ Stack() []uintptr }
	callerer interface{ Caller() uintptr }
)

const maxStackFrames = 64

type slogLogger struct {
	h          slog.Handler
	fields     []slog.Attr
	errorLinks int
}

func newSlog(opts Options, lvl, stackLvl slog.Level) *slogLogger {
	w := opts.Writer
	if w == nil {
		w = os.Stdout
	}
	ho := &slog.HandlerOptions{Level: lvl, AddSource: true}
	var h slog.Handler = slog.NewTextHandler(w, ho)
	if opts.JSON {
		h = slog.NewJSONHandler(w, ho)
	}
	h = &enrichHandler{next: h, stackLevel: stackLvl}

	fields := []slog.Attr{slog.String("app", opts.App)}
	if opts.Version != "" {
		fields = append(fields, slog.String("version", opts.Version))
	}
	if opts.SiteID != "" {
		fields = append(fields, slog.String("site_id", opts.SiteID))
	}
	return &slogLogger{h: h, fields: fields, errorLinks: opts.ErrorLinks}
}

func (s *slogLogger) With(kv ...any) Logger {
	extra := toAttrs(kv)
	fields := make([]slog.Attr, len(s.fields), len(s.fields)+len(extra))
	copy(fields, s.fields)
	return &slogLogger{h: s.h, fields: append(fields, extra...), errorLinks: s.errorLinks}
}

func (s *slogLogger) Debug(ctx context.Context, msg string, kv ...any) {
	s.emit(ctx, slog.LevelDebug, msg, kv)
}

func (s *slogLogger) Info(ctx context.Context, msg string, kv ...any) {
	s.emit(ctx, slog.LevelInfo, msg, kv)
}

func (s *slogLogger) Warn(ctx context.Context, msg string, kv ...any) {
	s.emit(ctx, slog.LevelWarn, msg, kv)
}

func (s *slogLogger) Error(ctx context.Context, err error, msg string, kv ...any) {
	if err != nil {
		outer, cause := errorTypes(err)
		kv = append(kv, "err", err, "error_type", outer, "cause_type", cause)
		if msgs := errorMessages(err); len(msgs) > 1 {
			kv = append(kv, "error_chain", msgs)
		}
		if s.errorLinks > 0 {
			kv = append(kv, "error_links", wrapSites(err, s.errorLinks))
		}
	}
	s.emit(ctx, slog.LevelError, msg, kv)
}

func (s *slogLogger) Sync() error { return nil }

func (s *slogLogger) emit(ctx context.Context, lvl slog.Level, msg string, kv []any) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !s.h.Enabled(ctx, lvl) {
		return
	}
	// caller of Debug/Info/Warn/Error
	var pc [1]uintptr
	runtime.Callers(3, pc[:])
	r := slog.NewRecord(time.Now(), lvl, msg, pc[0])
	r.AddAttrs(s.fields...)
	r.AddAttrs(toAttrs(kv)...)
	_ = s.h.Handle(ctx, r)
}

// toAttrs drops pairs whose key is not a string, and a trailing odd value.
func toAttrs(kv []any) []slog.Attr {
	attrs := make([]slog.Attr, 0, len(kv)/2)
	for i := 1; i < len(kv); i += 2 {
		if k, ok := kv[i-1].(string); ok {
			attrs = append(attrs, slog.Any(k, kv[i]))
		}
	}
	return attrs
}

// enrichHandler adds trace/span ids from the context and, at or above
// stackLevel, a rendered stack.
type enrichHandler struct {
	next       slog.Handler
	stackLevel slog.Level
}

func (h *enrichHandler) Enabled(ctx context.Context, lvl slog.Level) bool {
	return h.next.Enabled(ctx, lvl)
}

func (h *enrichHandler) Handle(ctx context.Context, r slog.Record) error {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		r.AddAttrs(slog.String("trace_id", sc.TraceID().String()), slog.String("span_id", sc.SpanID().String()))
	}
	if r.Level >= h.stackLevel {
		r.AddAttrs(slog.String("stack", formatStack(recordStack(r))))
	}
	return h.next.Handle(ctx, r)
}

func (h *enrichHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &enrichHandler{next: h.next.WithAttrs(attrs), stackLevel: h.stackLevel}
}

func (h *enrichHandler) WithGroup(name string) slog.Handler {
	return &enrichHandler{next: h.next.WithGroup(name), stackLevel: h.stackLevel}
}

// recordStack uses the stack captured when the logged error was created, or
// the current one.
func recordStack(r slog.Record) []uintptr {
	var pcs []uintptr
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "err" {
			if st, ok := a.Value.Any().(stacker); ok {
				pcs = st.Stack()
			}
			return false
		}
		return true
	})
	if len(pcs) > 0 {
		return pcs
	}
	buf := make([]uintptr, maxStackFrames)
	return buf[:runtime.Callers(4, buf)]
}

func loggingFrame(fn string) bool {
	return strings.HasPrefix(fn, "log/slog.") ||
		strings.Contains(fn, "/internal/log.") ||
		strings.Contains(fn, "/internal/xerrors.")
}

// formatStack renders frames from the first one outside logging code up to
// the runtime.
func formatStack(pcs []uintptr) string {
	var lines []string
	frames := runtime.CallersFrames(pcs)
	for started := false; ; {
		fr, more := frames.Next()
		if strings.HasPrefix(fr.Function, "runtime.") {
			break
		}
		started = started || !loggingFrame(fr.Function)
		if started {
			lines = append(lines, fmt.Sprintf("%s\n\t%s:%d", fr.Function, fr.File, fr.Line))
		}
		if !more {
			break
		}
	}
	return strings.Join(lines, "\n")
}

// errorMessages lists distinct messages down the Unwrap chain, then the
// members of a top-level errors.Join.
func errorMessages(err error) []string {
	var msgs []string
	add := func(m string) {
		if len(msgs) == 0 || msgs[len(msgs)-1] != m {
			msgs = append(msgs, m)
		}
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		add(e.Error())
	}
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range j.Unwrap() {
			add(e.Error())
		}
	}
	return msgs
}

// wrapSites walks at most limit errors and reports where each was wrapped or
// created. The outermost error is always listed.
func wrapSites(err error, limit int) []map[string]any {
	var sites []map[string]any
	n := 0
	for e := err; e != nil && n < limit; e = errors.Unwrap(e) {
		site := map[string]any{"msg": e.Error()}
		fr, ok := errorFrame(e)
		if ok {
			site["func"], site["file"], site["line"] = fr.Function, fr.File, fr.Line
		}
		if ok || n == 0 {
			sites = append(sites, site)
		}
		n++
	}
	return sites
}

func errorFrame(e error) (runtime.Frame, bool) {
	if c, ok := e.(callerer); ok && c.Caller() != 0 {
		fr, _ := runtime.CallersFrames([]uintptr{c.Caller()}).Next()
		return fr, true
	}
	if st, ok := e.(stacker); ok {
		frames := runtime.CallersFrames(st.Stack())
		for {
			fr, more := frames.Next()
			if fr.Function != "" && !strings.HasPrefix(fr.Function, "runtime.") && !loggingFrame(fr.Function) {
				return fr, true
			}
			if !more {
				break
			}
		}
	}
	return runtime.Frame{}, false
}

// errorTypes names the outermost error that is not a plain wrapper, and the
// innermost cause.
func errorTypes(err error) (outer, cause string) {
	for e := err; e != nil; e = errors.Unwrap(e) {
		cause = fmt.Sprintf("%T", e)
		if outer == "" && !wrapperType(reflect.TypeOf(e)) {
			outer = cause
		}
	}
	if outer == "" {
		outer = fmt.Sprintf("%T", err)
	}
	return outer, cause
}

func wrapperType(t reflect.Type) bool {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return strings.HasSuffix(t.PkgPath(), "/internal/xerrors") ||
		(t.PkgPath() == "fmt" && t.Name() == "wrapError")
}
