// Package theme turns a site theme into the root element attributes the
// page shell renders: a data-theme preset and CSS custom properties.
package theme

import (
	"html/template"
	"strings"

	"github.com/keithlinneman/sitebuilder/internal/siteconfig"
)

const defaultRadius = "16px"

var radii = map[string]string{
	"none": "0px",
	"sm":   "6px",
	"md":   "10px",
	"lg":   "14px",
	"xl":   "20px",
	"2xl":  "28px",
	"full": "9999px",
}

// Presets are the data-theme values styled by site.css.
var Presets = []string{"ocean", "sunset", "forest", "slate", "night"}

// RadiusTokens lists the accepted radius tokens, smallest first.
var RadiusTokens = []string{"none", "sm", "md", "lg", "xl", "2xl", "full"}

// Radius maps a radius token to a CSS length, 16px when unknown or empty.
func Radius(token string) string {
	if v, ok := radii[token]; ok {
		return v
	}
	return defaultRadius
}

// Merge shallow-merges the non-empty fields of patch over base.
func Merge(base, patch siteconfig.Theme) siteconfig.Theme {
	out := base
	if patch.Preset != "" {
		out.Preset = patch.Preset
	}
	if patch.Primary != "" {
		out.Primary = patch.Primary
	}
	if patch.Accent != "" {
		out.Accent = patch.Accent
	}
	if patch.Radius != "" {
		out.Radius = patch.Radius
	}
	return out
}

// Var is one CSS custom property declaration.
type Var struct {
	Name  string
	Value string
}

// CSSVars returns primary, accent and radius declarations in that order.
// Unset colors are omitted so the preset stylesheet applies.
func CSSVars(t siteconfig.Theme) []Var {
	vars := make([]Var, 0, 3)
	if c := cssColor(t.Primary); c != "" {
		vars = append(vars, Var{"--color-primary", c})
	}
	if c := cssColor(t.Accent); c != "" {
		vars = append(vars, Var{"--color-accent", c})
	}
	vars = append(vars, Var{"--radius", Radius(t.Radius)})
	return vars
}

// Style joins vars into an inline style attribute value.
func Style(vars []Var) string {
	var b strings.Builder
	for i, v := range vars {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(v.Name)
		b.WriteString(": ")
		b.WriteString(v.Value)
		b.WriteByte(';')
	}
	return b.String()
}

// Attrs are the attributes applied to the <html> element on every render.
type Attrs struct {
	Preset string
	Style  template.CSS
}

func RootAttrs(t siteconfig.Theme) Attrs {
	return Attrs{
		Preset: t.Preset,
		Style:  template.CSS(Style(CSSVars(t))),
	}
}

// cssColor drops values that could break out of a declaration.
func cssColor(v string) string {
	v = strings.TrimSpace(v)
	if v == "" || strings.ContainsAny(v, ";{}<>\"'\\") {
		return ""
	}
	return v
}

// CheckPatch rejects patch values the page could not apply: an unknown
// radius token or a color that would be dropped from the style attribute.
func CheckPatch(p siteconfig.Theme) []string {
	var problems []string
	if p.Radius != "" {
		if _, ok := radii[p.Radius]; !ok {
			problems = append(problems, "radius: unknown token "+p.Radius)
		}
	}
	if p.Primary != "" && cssColor(p.Primary) == "" {
		problems = append(problems, "primary: invalid color")
	}
	if p.Accent != "" && cssColor(p.Accent) == "" {
		problems = append(problems, "accent: invalid color")
	}
	return problems
}
