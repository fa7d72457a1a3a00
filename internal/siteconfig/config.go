package siteconfig

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

type Theme struct {
	Preset  string `json:"preset"`
	Primary string `json:"primary,omitempty"`
	Accent  string `json:"accent,omitempty"`
	Radius  string `json:"radius,omitempty"`
}

type Meta struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Favicon     string `json:"favicon,omitempty"`
}

type SiteConfig struct {
	Theme    Theme     `json:"theme"`
	Meta     *Meta     `json:"meta,omitempty"`
	Sections []Section `json:"sections"`
}

// Section is one typed block of page content. Type-specific fields live in
// Fields as raw JSON and are written back unchanged.
type Section struct {
	ID      string
	Type    string
	Visible *bool
	Fields  map[string]json.RawMessage
}

// IsVisible reports whether the section should be rendered. Absent means visible.
func (s Section) IsVisible() bool { return s.Visible == nil || *s.Visible }

// Field decodes the named type-specific field into v. A missing field
// leaves v untouched and returns false.
func (s Section) Field(name string, v any) (bool, error) {
	raw, ok := s.Fields[name]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return true, fmt.Errorf("section %s field %q: %w", s.ID, name, err)
	}
	return true, nil
}

// String returns a string field or "" when absent or not a string.
func (s Section) String(name string) string {
	var out string
	if _, err := s.Field(name, &out); err != nil {
		return ""
	}
	return out
}

// Set encodes v into the named field.
func (s *Section) Set(name string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("section %s field %q: %w", s.ID, name, err)
	}
	if s.Fields == nil {
		s.Fields = make(map[string]json.RawMessage)
	}
	s.Fields[name] = raw
	return nil
}

func (s *Section) UnmarshalJSON(b []byte) error {
	var all map[string]json.RawMessage
	if err := json.Unmarshal(b, &all); err != nil {
		return err
	}
	*s = Section{}
	if raw, ok := all["id"]; ok {
		if err := json.Unmarshal(raw, &s.ID); err != nil {
			return fmt.Errorf("section id: %w", err)
		}
		delete(all, "id")
	}
	if raw, ok := all["type"]; ok {
		if err := json.Unmarshal(raw, &s.Type); err != nil {
			return fmt.Errorf("section type: %w", err)
		}
		delete(all, "type")
	}
	if raw, ok := all["visible"]; ok {
		if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			return fmt.Errorf("section visible: expected boolean, got null")
		}
		var vis bool
		if err := json.Unmarshal(raw, &vis); err != nil {
			return fmt.Errorf("section visible: %w", err)
		}
		s.Visible = &vis
		delete(all, "visible")
	}
	if len(all) > 0 {
		s.Fields = all
	}
	return nil
}

// MarshalJSON writes id, type and visible first, then the remaining fields
// in key order.
func (s Section) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	write := func(k string, raw []byte) {
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		kb, _ := json.Marshal(k)
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(raw)
	}
	idb, err := json.Marshal(s.ID)
	if err != nil {
		return nil, err
	}
	write("id", idb)
	tb, err := json.Marshal(s.Type)
	if err != nil {
		return nil, err
	}
	write("type", tb)
	if s.Visible != nil {
		if *s.Visible {
			write("visible", []byte("true"))
		} else {
			write("visible", []byte("false"))
		}
	}
	keys := make([]string, 0, len(s.Fields))
	for k := range s.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		raw := s.Fields[k]
		if len(raw) == 0 {
			raw = json.RawMessage("null")
		}
		write(k, raw)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Decode validates raw and unmarshals it. Errors are either ErrMalformed
// wrapped or a *ValidationError.
func Decode(raw []byte) (*SiteConfig, error) {
	if err := Validate(raw); err != nil {
		return nil, err
	}
	var c SiteConfig
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if c.Sections == nil {
		c.Sections = []Section{}
	}
	return &c, nil
}

// Encode marshals c compactly. A nil section list is written as [].
func Encode(c *SiteConfig) ([]byte, error) {
	if c.Sections == nil {
		c.Sections = []Section{}
	}
	return json.Marshal(c)
}

// VisibleSections returns the sections to render, in order.
func (c *SiteConfig) VisibleSections() []Section {
	out := make([]Section, 0, len(c.Sections))
	for _, s := range c.Sections {
		if s.IsVisible() {
			out = append(out, s)
		}
	}
	return out
}

// DuplicateIDs lists section ids used more than once, in first-seen order.
func (c *SiteConfig) DuplicateIDs() []string {
	seen := make(map[string]int, len(c.Sections))
	var dups []string
	for _, s := range c.Sections {
		seen[s.ID]++
		if seen[s.ID] == 2 {
			dups = append(dups, s.ID)
		}
	}
	return dups
}

// GalleryItem is one image derived from a storage listing.
type GalleryItem struct {
	ImageURL string `json:"imageUrl"`
	Alt      string `json:"alt"`
}
