package pathutil

import (
	"errors"
	"strings"
)

var ErrUnsafeKey = errors.New("unsafe object key")

// HasDotSegments reports whether any path segment is "." or "..".
func HasDotSegments(p string) bool {
	for _, seg := range strings.Split(p, "/") {
		if seg == "." || seg == ".." {
			return true
		}
	}
	return false
}

// CleanObjectKey trims surrounding whitespace and leading slashes from an
// object key and rejects keys with dot segments, backslashes or NUL bytes.
func CleanObjectKey(key string) (string, error) {
	k := strings.TrimLeft(strings.TrimSpace(key), "/")
	switch {
	case k == "":
		return "", ErrUnsafeKey
	case strings.ContainsAny(k, "\\\x00"):
		return "", ErrUnsafeKey
	case HasDotSegments(k):
		return "", ErrUnsafeKey
	}
	return k, nil
}

// CleanPrefix is CleanObjectKey for listing prefixes, where empty is allowed.
func CleanPrefix(prefix string) (string, error) {
	if strings.TrimSpace(prefix) == "" {
		return "", nil
	}
	return CleanObjectKey(prefix)
}

// SanitizeFilename reduces an uploaded file name to a safe single segment:
// letters, digits, dot, dash and underscore, with other runs collapsed to a dash.
func SanitizeFilename(name string) string {
	if i := strings.LastIndexAny(name, "/\\"); i >= 0 {
		name = name[i+1:]
	}
	var b strings.Builder
	dash := false
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_':
			b.WriteRune(r)
			dash = false
		default:
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	out := strings.Trim(b.String(), "-.")
	if out == "" {
		return "file"
	}
	return out
}
