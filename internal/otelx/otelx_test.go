package otelx

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
)

func TestInit_Disabled(t *testing.T) {
	shutdown, err := Init(context.Background(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	_, span := otel.Tracer("test").Start(context.Background(), "x")
	if span.IsRecording() {
		t.Fatal("span recording with tracing disabled")
	}
	span.End()
	if err := shutdown(context.Background()); err != nil {
		t.Fatal(err)
	}
}

func TestInit_EnabledNeedsEndpoint(t *testing.T) {
	if _, err := Init(context.Background(), Options{Enabled: true}); err == nil {
		t.Fatal("expected error without endpoint")
	}
}

func TestResourceAttrs(t *testing.T) {
	attrs := ResourceAttrs(Options{Service: "sitebuilder", Component: "server", Version: "1.2.3", SiteID: "acme-bakery"})
	got := map[string]string{}
	for _, a := range attrs {
		got[string(a.Key)] = a.Value.Emit()
	}
	if got["service.name"] != "sitebuilder.server" || got["service.version"] != "1.2.3" || got["site.id"] != "acme-bakery" {
		t.Fatalf("attrs = %v", got)
	}
	if len(ResourceAttrs(Options{Service: "sitebuilder"})) != 2 {
		t.Fatal("site.id should be omitted when empty")
	}
}

func TestClampRatio(t *testing.T) {
	for in, want := range map[float64]float64{-1: 0, 0.25: 0.25, 7: 1} {
		if got := clampRatio(in); got != want {
			t.Errorf("clampRatio(%v) = %v", in, got)
		}
	}
}
