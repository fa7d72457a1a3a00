package prof

import (
	"context"
	"testing"
)

func TestStart_Disabled(t *testing.T) {
	var states []bool
	stop, err := Start(context.Background(), Options{OnState: func(a bool) { states = append(states, a) }})
	if err != nil {
		t.Fatal(err)
	}
	stop()
	if len(states) != 1 || states[0] {
		t.Fatalf("states = %v", states)
	}
}

func TestStart_MissingAddress(t *testing.T) {
	stop, err := Start(context.Background(), Options{Enabled: true})
	if err == nil {
		t.Fatal("expected error")
	}
	stop()
}

func TestTags(t *testing.T) {
	in := map[string]string{"env": "prod"}
	got := Tags(Options{Tags: in, SiteID: "harbor-yoga"})
	if got["env"] != "prod" || got["site_id"] != "harbor-yoga" {
		t.Fatalf("tags = %v", got)
	}
	if _, ok := in["site_id"]; ok {
		t.Fatal("input map mutated")
	}
}
