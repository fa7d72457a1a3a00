package siteconfig

import (
	"errors"
	"fmt"
	"strings"
)

// Variant selects which stored copy of a site configuration a request targets.
type Variant string

const (
	Draft     Variant = "draft"
	Published Variant = "published"
)

var ErrInvalidVariant = errors.New("invalid config variant")

// ParseVariant returns def for an empty string and an ErrInvalidVariant
// wrapped error for anything other than draft or published.
func ParseVariant(s string, def Variant) (Variant, error) {
	switch strings.TrimSpace(s) {
	case "":
		return def, nil
	case string(Draft):
		return Draft, nil
	case string(Published):
		return Published, nil
	default:
		return "", fmt.Errorf("%w: %q (want draft|published)", ErrInvalidVariant, s)
	}
}

// Other returns the opposite variant.
func (v Variant) Other() Variant {
	if v == Draft {
		return Published
	}
	return Draft
}

func (v Variant) String() string { return string(v) }
