package sections

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/keithlinneman/sitebuilder/internal/siteconfig"
)

var ErrUnknownType = errors.New("unknown section type")

// EditorKind selects how the admin overlay edits a section type.
type EditorKind string

const (
	EditorForm EditorKind = "form"
	EditorJSON EditorKind = "json"
)

// FieldKind is the input used for one form field.
type FieldKind string

const (
	FieldText     FieldKind = "text"
	FieldTextarea FieldKind = "textarea"
	FieldURL      FieldKind = "url"
)

type Field struct {
	Name  string    `json:"name"`
	Label string    `json:"label"`
	Kind  FieldKind `json:"kind"`
}

// Kind is the admin description of one section type.
type Kind struct {
	Type     string         `json:"type"`
	Label    string         `json:"label"`
	Editor   EditorKind     `json:"editor"`
	Fields   []Field        `json:"fields,omitempty"`
	Defaults map[string]any `json:"defaults"`
}

// New builds a section of this kind with default fields and a fresh id.
func (k Kind) New() (siteconfig.Section, error) {
	s := siteconfig.Section{ID: uuid.NewString(), Type: k.Type}
	keys := make([]string, 0, len(k.Defaults))
	for name := range k.Defaults {
		keys = append(keys, name)
	}
	sort.Strings(keys)
	for _, name := range keys {
		if err := s.Set(name, k.Defaults[name]); err != nil {
			return siteconfig.Section{}, err
		}
	}
	return s, nil
}

// Label turns a type tag such as "image_grid" into "Image Grid".
func Label(typ string) string {
	words := strings.FieldsFunc(typ, func(r rune) bool { return r == '-' || r == '_' || r == ' ' })
	// a Caser carries state and is not safe for concurrent use
	return cases.Title(language.English).String(strings.Join(words, " "))
}

// Registry maps section types to their admin description.
type Registry struct {
	kinds map[string]Kind
	order []string
}

func NewRegistry(kinds ...Kind) *Registry {
	r := &Registry{kinds: make(map[string]Kind, len(kinds))}
	for _, k := range kinds {
		if k.Label == "" {
			k.Label = Label(k.Type)
		}
		if k.Editor == "" {
			k.Editor = EditorJSON
		}
		if _, dup := r.kinds[k.Type]; !dup {
			r.order = append(r.order, k.Type)
		}
		r.kinds[k.Type] = k
	}
	return r
}

// Lookup returns the kind for typ. Unknown types get a JSON editor with a
// label derived from the tag and ok=false.
func (r *Registry) Lookup(typ string) (Kind, bool) {
	if k, ok := r.kinds[typ]; ok {
		return k, true
	}
	return Kind{Type: typ, Label: Label(typ), Editor: EditorJSON}, false
}

// Kinds returns every registered kind in registration order.
func (r *Registry) Kinds() []Kind {
	out := make([]Kind, 0, len(r.order))
	for _, t := range r.order {
		out = append(out, r.kinds[t])
	}
	return out
}

// New constructs a section of a registered type.
func (r *Registry) New(typ string) (siteconfig.Section, error) {
	k, ok := r.kinds[typ]
	if !ok {
		return siteconfig.Section{}, fmt.Errorf("%w: %q", ErrUnknownType, typ)
	}
	return k.New()
}

// ApplyJSON parses text as a full section and returns it. On any error the
// original section is returned unchanged with the error. The id and type
// of the original are kept when text omits them.
func ApplyJSON(orig siteconfig.Section, text string) (siteconfig.Section, error) {
	var next siteconfig.Section
	if err := json.Unmarshal([]byte(text), &next); err != nil {
		return orig, fmt.Errorf("section json: %w", err)
	}
	if next.ID == "" {
		next.ID = orig.ID
	}
	if next.Type == "" {
		next.Type = orig.Type
	}
	return next, nil
}

// ApplyForm copies the kind's form fields present in vals onto a copy of
// orig. A "visible" value of "false" hides the section.
func ApplyForm(orig siteconfig.Section, k Kind, vals url.Values) (siteconfig.Section, error) {
	next := orig
	next.Fields = make(map[string]json.RawMessage, len(orig.Fields))
	for name, raw := range orig.Fields {
		next.Fields[name] = raw
	}
	for _, f := range k.Fields {
		if _, present := vals[f.Name]; !present {
			continue
		}
		if err := next.Set(f.Name, strings.TrimSpace(vals.Get(f.Name))); err != nil {
			return orig, err
		}
	}
	if v, present := vals["visible"]; present {
		vis := len(v) > 0 && v[len(v)-1] != "false"
		next.Visible = &vis
	}
	return next, nil
}

// Pretty is the JSON text shown in a raw section editor.
func Pretty(s siteconfig.Section) string {
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}
