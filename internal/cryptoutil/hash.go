package cryptoutil

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// TokenEqual compares two secrets in constant time. Both sides are hashed
// first so the comparison does not reveal the expected length either.
func TokenEqual(got, want string) bool {
	g, w := sha256.Sum256([]byte(got)), sha256.Sum256([]byte(want))
	return subtle.ConstantTimeCompare(g[:], w[:]) == 1
}

func HexDigest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// StrongETag quotes the digest of data for use as an HTTP entity tag.
func StrongETag(data []byte) string {
	return `"` + HexDigest(data) + `"`
}
