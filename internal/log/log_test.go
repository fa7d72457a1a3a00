package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/keithlinneman/sitebuilder/internal/xerrors"
)

func newBufLogger(t *testing.T, lvl string) (Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	l, err := New(Options{
		App:        "sitebuilder",
		SiteID:     "acme-bakery",
		Level:      lvl,
		JSON:       true,
		ErrorLinks: 4,
		Writer:     &buf,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return l, &buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		m := map[string]any{}
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("unmarshal %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{" INFO ", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"trace", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseLevel(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if !tt.wantErr && got != tt.want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSlog_BaseAttrs(t *testing.T) {
	l, buf := newBufLogger(t, "info")
	l.Info(context.Background(), "hello", "key", "value")

	lines := decodeLines(t, buf)
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1", len(lines))
	}
	m := lines[0]
	if m["msg"] != "hello" {
		t.Errorf("msg = %v", m["msg"])
	}
	if m["app"] != "sitebuilder" {
		t.Errorf("app = %v", m["app"])
	}
	if m["site_id"] != "acme-bakery" {
		t.Errorf("site_id = %v", m["site_id"])
	}
	if m["key"] != "value" {
		t.Errorf("key = %v", m["key"])
	}
}

func TestSlog_LevelFiltering(t *testing.T) {
	l, buf := newBufLogger(t, "warn")
	l.Debug(context.Background(), "debug")
	l.Info(context.Background(), "info")
	l.Warn(context.Background(), "warn")

	lines := decodeLines(t, buf)
	if len(lines) != 1 || lines[0]["msg"] != "warn" {
		t.Fatalf("lines = %v, want only warn", lines)
	}
}

func TestSlog_With_DoesNotMutateParent(t *testing.T) {
	l, buf := newBufLogger(t, "info")
	child := l.With("component", "configapi")

	l.Info(context.Background(), "parent")
	child.Info(context.Background(), "child")

	lines := decodeLines(t, buf)
	if _, ok := lines[0]["component"]; ok {
		t.Fatal("parent logger picked up child attrs")
	}
	if lines[1]["component"] != "configapi" {
		t.Fatalf("child component = %v", lines[1]["component"])
	}
}

func TestSlog_ErrorFields(t *testing.T) {
	l, buf := newBufLogger(t, "info")
	root := errors.New("no such key")
	err := fmt.Errorf("read draft: %w", root)
	l.Error(context.Background(), err, "config read failed")

	m := decodeLines(t, buf)[0]
	if m["level"] != "ERROR" {
		t.Errorf("level = %v", m["level"])
	}
	if !strings.Contains(fmt.Sprint(m["err"]), "no such key") {
		t.Errorf("err = %v", m["err"])
	}
	if m["cause_type"] != "*errors.errorString" {
		t.Errorf("cause_type = %v", m["cause_type"])
	}
	if _, ok := m["error_chain"]; !ok {
		t.Error("error_chain missing")
	}
	if _, ok := m["stack"]; !ok {
		t.Error("stack missing on error level record")
	}
}

func TestContext_RoundTrip(t *testing.T) {
	l := Nop()
	ctx := WithContext(context.Background(), l)
	if got := FromContext(ctx); got != l {
		t.Fatal("FromContext returned a different logger")
	}
}

func TestFromContext_Empty_ReturnsNop(t *testing.T) {
	got := FromContext(context.Background())
	if got == nil {
		t.Fatal("FromContext returned nil")
	}
	got.Info(context.Background(), "safe")
	got.Error(context.Background(), errors.New("x"), "safe")
	if err := got.Sync(); err != nil {
		t.Fatalf("Sync: %v", err)
	}
}

func TestNew_RejectsUnknownLevels(t *testing.T) {
	if _, err := New(Options{Level: "loud"}); err == nil {
		t.Fatal("expected error for unknown level")
	}
	if _, err := New(Options{Level: "info", StackLevel: "often"}); err == nil {
		t.Fatal("expected error for unknown stack level")
	}
}

func TestSlog_StackLevelInfo(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Options{Level: "debug", StackLevel: "info", JSON: true, Writer: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	l.Debug(context.Background(), "quiet")
	l.Info(context.Background(), "loud")

	lines := decodeLines(t, &buf)
	if _, ok := lines[0]["stack"]; ok {
		t.Error("debug record should not carry a stack")
	}
	if _, ok := lines[1]["stack"]; !ok {
		t.Error("info record should carry a stack when StackLevel is info")
	}
}

func TestSlog_ErrorLinks(t *testing.T) {
	l, buf := newBufLogger(t, "info")
	err := xerrors.Wrap(xerrors.New("bucket gone"), "publish")
	l.Error(context.Background(), err, "publish failed")

	m := decodeLines(t, buf)[0]
	links, ok := m["error_links"].([]any)
	if !ok || len(links) != 2 {
		t.Fatalf("error_links = %v, want 2 entries", m["error_links"])
	}
	first := links[0].(map[string]any)
	if !strings.Contains(fmt.Sprint(first["func"]), "TestSlog_ErrorLinks") {
		t.Errorf("first link func = %v", first["func"])
	}
	if m["cause_type"] == "" || m["error_type"] != m["cause_type"] {
		t.Errorf("error_type = %v, cause_type = %v", m["error_type"], m["cause_type"])
	}
}

func TestWithFields(t *testing.T) {
	l, buf := newBufLogger(t, "info")
	ctx := WithFields(WithContext(context.Background(), l), "request_id", "r-1")
	FromContext(ctx).Info(ctx, "tagged")

	if got := decodeLines(t, buf)[0]["request_id"]; got != "r-1" {
		t.Fatalf("request_id = %v", got)
	}
}
