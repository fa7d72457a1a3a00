package pathutil

import (
	"errors"
	"testing"
)

func TestHasDotSegments(t *testing.T) {
	tests := map[string]bool{
		"uploads/a.png":   false,
		"../etc/passwd":   true,
		"uploads/./a.png": true,
		"uploads/..":      true,
		"a..b/c":          false,
		"":                false,
	}
	for in, want := range tests {
		if got := HasDotSegments(in); got != want {
			t.Errorf("HasDotSegments(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestCleanObjectKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"uploads/cake.jpg", "uploads/cake.jpg", true},
		{"  /uploads/cake.jpg ", "uploads/cake.jpg", true},
		{"", "", false},
		{"/", "", false},
		{"uploads/../secret", "", false},
		{"uploads\\cake.jpg", "", false},
		{"uploads/cake\x00.jpg", "", false},
	}
	for _, tt := range tests {
		got, err := CleanObjectKey(tt.in)
		if tt.ok {
			if err != nil || got != tt.want {
				t.Errorf("CleanObjectKey(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
			}
			continue
		}
		if !errors.Is(err, ErrUnsafeKey) {
			t.Errorf("CleanObjectKey(%q) err = %v, want ErrUnsafeKey", tt.in, err)
		}
	}
}

func TestCleanPrefix_EmptyAllowed(t *testing.T) {
	if got, err := CleanPrefix("  "); err != nil || got != "" {
		t.Fatalf("CleanPrefix(blank) = %q, %v", got, err)
	}
	if _, err := CleanPrefix("../"); err == nil {
		t.Fatal("expected dot prefix to be rejected")
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"Cake Photo (1).JPG":   "Cake-Photo-1-.JPG",
		"C:\\Users\\me\\a.png": "a.png",
		"../../x.gif":          "x.gif",
		"   ":                  "file",
		"..":                   "file",
		"naïve.webp":           "na-ve.webp",
	}
	for in, want := range tests {
		if got := SanitizeFilename(in); got != want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
