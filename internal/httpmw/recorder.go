package httpmw

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var errNoHijack = errors.New("response writer does not support hijacking")

// recorder remembers what a handler wrote. When the request span is
// recording, the first write opens a "response.write" child span that
// measures time to first byte and time spent blocked on the client.
type recorder struct {
	http.ResponseWriter

	code    int
	written int64

	ctx     context.Context
	started time.Time

	span    trace.Span
	opened  bool
	blocked time.Duration
	failure error
}

func newRecorder(w http.ResponseWriter, r *http.Request) *recorder {
	return &recorder{ResponseWriter: w, ctx: r.Context(), started: time.Now()}
}

func (rec *recorder) status() int {
	if rec.code == 0 {
		return http.StatusOK
	}
	return rec.code
}

func (rec *recorder) open() {
	if rec.opened {
		return
	}
	rec.opened = true
	if trace.SpanFromContext(rec.ctx).IsRecording() {
		_, rec.span = otel.Tracer("sitebuilder/httpmw").Start(rec.ctx, "response.write",
			trace.WithAttributes(attribute.Float64("http.server.ttfb_seconds", time.Since(rec.started).Seconds())))
	}
}

func (rec *recorder) close() {
	if rec.span == nil {
		return
	}
	rec.span.SetAttributes(
		attribute.Int("http.response.status_code", rec.status()),
		attribute.Int64("http.response.body.size", rec.written),
		attribute.Float64("http.server.write.block_seconds", rec.blocked.Seconds()),
	)
	if rec.failure != nil {
		rec.span.RecordError(rec.failure)
		rec.span.SetStatus(codes.Error, rec.failure.Error())
	}
	rec.span.End()
}

func (rec *recorder) WriteHeader(code int) {
	rec.open()
	if rec.code == 0 {
		rec.code = code
	}
	t := time.Now()
	rec.ResponseWriter.WriteHeader(code)
	rec.blocked += time.Since(t)
}

func (rec *recorder) Write(b []byte) (int, error) {
	rec.open()
	if rec.code == 0 {
		rec.code = http.StatusOK
	}
	t := time.Now()
	n, err := rec.ResponseWriter.Write(b)
	rec.blocked += time.Since(t)
	rec.written += int64(n)
	if rec.failure == nil {
		rec.failure = err
	}
	return n, err
}

func (rec *recorder) Flush() {
	if f, ok := rec.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rec *recorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := rec.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, errNoHijack
}

func (rec *recorder) Unwrap() http.ResponseWriter { return rec.ResponseWriter }
