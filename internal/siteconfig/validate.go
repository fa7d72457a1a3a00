package siteconfig

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var ErrMalformed = errors.New("malformed config json")

// Issue is one schema problem found by Validate.
type Issue struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, is := range e.Issues {
		parts = append(parts, is.Path+": "+is.Message)
	}
	return "invalid config: " + strings.Join(parts, "; ")
}

// Validate applies the lenient config schema. Section bodies may carry any
// extra fields; only theme, meta and the section envelope are checked.
func Validate(raw []byte) error {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	var issues []Issue
	add := func(path, msg string) { issues = append(issues, Issue{Path: path, Message: msg}) }

	root, ok := doc.(map[string]any)
	if !ok {
		add("", "expected object")
		return &ValidationError{Issues: issues}
	}

	switch theme := root["theme"].(type) {
	case map[string]any:
		if p, ok := theme["preset"].(string); !ok || p == "" {
			add("theme.preset", "required non-empty string")
		}
		for _, k := range []string{"primary", "accent", "radius"} {
			optionalString(theme, k, "theme."+k, add)
		}
	case nil:
		add("theme", "required")
	default:
		add("theme", "expected object")
	}

	if m, present := root["meta"]; present && m != nil {
		meta, ok := m.(map[string]any)
		if !ok {
			add("meta", "expected object")
		} else {
			for _, k := range []string{"title", "description", "favicon"} {
				optionalString(meta, k, "meta."+k, add)
			}
		}
	}

	switch secs := root["sections"].(type) {
	case []any:
		for i, s := range secs {
			path := fmt.Sprintf("sections[%d]", i)
			sec, ok := s.(map[string]any)
			if !ok {
				add(path, "expected object")
				continue
			}
			if _, ok := sec["type"].(string); !ok {
				add(path+".type", "required string")
			}
			if _, ok := sec["id"].(string); !ok {
				add(path+".id", "required string")
			}
			if v, present := sec["visible"]; present {
				if _, ok := v.(bool); !ok {
					add(path+".visible", "expected boolean")
				}
			}
		}
	case nil:
		add("sections", "required")
	default:
		add("sections", "expected array")
	}

	if len(issues) > 0 {
		return &ValidationError{Issues: issues}
	}
	return nil
}

func optionalString(obj map[string]any, key, path string, add func(string, string)) {
	v, present := obj[key]
	if !present || v == nil {
		return
	}
	if _, ok := v.(string); !ok {
		add(path, "expected string")
	}
}

// Issues extracts validation issues from err, or nil.
func Issues(err error) []Issue {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Issues
	}
	return nil
}
