package cryptoutil

import "testing"

func TestTokenEqual(t *testing.T) {
	tests := []struct {
		got, want string
		match     bool
	}{
		{"letmein", "letmein", true},
		{"letmein", "letmeout", false},
		{"", "x", false},
		{"letmein-and-more", "letmein", false},
	}
	for _, tt := range tests {
		if TokenEqual(tt.got, tt.want) != tt.match {
			t.Errorf("TokenEqual(%q, %q) = %v", tt.got, tt.want, !tt.match)
		}
	}
}

func TestHexDigest(t *testing.T) {
	const emptySum = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got := HexDigest(nil); got != emptySum {
		t.Fatalf("HexDigest(nil) = %s", got)
	}
	if got := StrongETag(nil); got != `"`+emptySum+`"` {
		t.Fatalf("StrongETag(nil) = %s", got)
	}
}
