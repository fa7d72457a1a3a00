package sections

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"strings"

	"github.com/keithlinneman/sitebuilder/internal/log"
	"github.com/keithlinneman/sitebuilder/internal/siteconfig"
	"github.com/keithlinneman/sitebuilder/internal/xerrors"
)

//go:embed templates/*.html
var templateFS embed.FS

const templatePrefix = "section:"

// view is the data passed to each section template.
type view struct {
	ID   string
	Type string
	F    map[string]any
}

type Renderer struct {
	tmpl   *template.Template
	logger log.Logger
}

func NewRenderer(logger log.Logger) (*Renderer, error) {
	if logger == nil {
		logger = log.Nop()
	}
	t, err := template.New("sections").Funcs(FuncMap()).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, xerrors.Wrap(err, "parse section templates")
	}
	return &Renderer{tmpl: t, logger: logger}, nil
}

// Has reports whether a display template exists for typ.
func (r *Renderer) Has(typ string) bool {
	return r.tmpl.Lookup(templatePrefix+typ) != nil
}

// Types lists the registered display types.
func (r *Renderer) Types() []string {
	var out []string
	for _, t := range r.tmpl.Templates() {
		if name, ok := strings.CutPrefix(t.Name(), templatePrefix); ok {
			out = append(out, name)
		}
	}
	return out
}

// Render writes one section. Hidden sections and unknown types produce no
// output and no error.
func (r *Renderer) Render(ctx context.Context, buf *bytes.Buffer, s siteconfig.Section) error {
	if !s.IsVisible() {
		return nil
	}
	if !r.Has(s.Type) {
		r.logger.Debug(ctx, "no renderer for section type", "type", s.Type, "section_id", s.ID)
		return nil
	}
	fields := make(map[string]any, len(s.Fields))
	for k, raw := range s.Fields {
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return xerrors.Wrapf(err, "section %s field %s", s.ID, k)
		}
		fields[k] = v
	}
	if err := r.tmpl.ExecuteTemplate(buf, templatePrefix+s.Type, view{ID: s.ID, Type: s.Type, F: fields}); err != nil {
		return xerrors.Wrapf(err, "render section %s (%s)", s.ID, s.Type)
	}
	return nil
}

// RenderAll renders every visible section in order. A section that fails
// to render is logged and skipped so the rest of the page still renders.
func (r *Renderer) RenderAll(ctx context.Context, secs []siteconfig.Section) template.HTML {
	var out bytes.Buffer
	for _, s := range secs {
		var one bytes.Buffer
		if err := r.Render(ctx, &one, s); err != nil {
			r.logger.Warn(ctx, "section render failed", "section_id", s.ID, "type", s.Type, "err", err.Error())
			continue
		}
		out.Write(one.Bytes())
	}
	return template.HTML(out.String())
}

// FuncMap holds the helpers available to section templates.
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"str":      str,
		"list":     list,
		"strs":     strs,
		"markdown": func(v any) template.HTML { return Markdown(toString(v)) },
	}
}

func str(m map[string]any, key string) string { return toString(m[key]) }

// list returns the named array field as a slice of objects, skipping
// entries that are not objects.
func list(m map[string]any, key string) []map[string]any {
	arr, _ := m[key].([]any)
	out := make([]map[string]any, 0, len(arr))
	for _, e := range arr {
		if obj, ok := e.(map[string]any); ok {
			out = append(out, obj)
		}
	}
	return out
}

func strs(m map[string]any, key string) []string {
	arr, _ := m[key].([]any)
	out := make([]string, 0, len(arr))
	for _, e := range arr {
		if s := toString(e); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func toString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64, bool:
		return fmt.Sprint(x)
	default:
		return ""
	}
}
