package version

import (
	"runtime/debug"
	"testing"
)

func TestGet_Defaults(t *testing.T) {
	vi := Get()
	if vi.AppName != AppName {
		t.Fatalf("AppName = %q, want %q", vi.AppName, AppName)
	}
	if vi.Version == "" {
		t.Fatal("Version is empty")
	}
	if vi.GoVersion == "" {
		t.Fatal("GoVersion is empty, expected toolchain build info")
	}
}

func TestShortCommit(t *testing.T) {
	tests := []struct{ in, want string }{
		{"none", "none"},
		{"0123456789abcdef0123", "0123456789ab"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := (Info{Commit: tt.in}).ShortCommit(); got != tt.want {
			t.Errorf("ShortCommit(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFromBuild_VCSFillsGaps(t *testing.T) {
	bi := &debug.BuildInfo{
		GoVersion: "go1.24.11",
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "abc123"},
			{Key: "vcs.time", Value: "2026-10-01T12:00:00Z"},
			{Key: "vcs.modified", Value: "true"},
		},
	}
	vi := fromBuild(bi)
	if vi.Commit != "abc123" || vi.CommitDate != "2026-10-01T12:00:00Z" || vi.BuildDate != vi.CommitDate {
		t.Fatalf("vi = %+v", vi)
	}
	if !vi.Dirty || vi.GoVersion != "go1.24.11" {
		t.Fatalf("vi = %+v", vi)
	}
}

func TestFromBuild_LdflagsWin(t *testing.T) {
	old := Commit
	Commit = "release-sha"
	t.Cleanup(func() { Commit = old })

	vi := fromBuild(&debug.BuildInfo{Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "local"}}})
	if vi.Commit != "release-sha" {
		t.Fatalf("Commit = %q", vi.Commit)
	}
	if got := fromBuild(nil).Commit; got != "release-sha" {
		t.Fatalf("nil build info Commit = %q", got)
	}
}
