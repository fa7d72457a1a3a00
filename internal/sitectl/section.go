package sitectl

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/adrg/frontmatter"
	"github.com/spf13/cobra"

	"github.com/keithlinneman/sitebuilder/internal/blobstore"
	"github.com/keithlinneman/sitebuilder/internal/configstore"
	"github.com/keithlinneman/sitebuilder/internal/sections"
	"github.com/keithlinneman/sitebuilder/internal/siteconfig"
	"github.com/keithlinneman/sitebuilder/internal/xerrors"
)

func newSectionCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "section",
		Short: "Inspect and author individual sections",
	}
	cmd.AddCommand(newSectionListCmd(a), newSectionImportCmd(a))
	return cmd
}

func newSectionListCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List the sections of a stored config in page order",
		Args:  cobra.NoArgs,
	}
	variant := variantFlag(cmd, siteconfig.Draft)
	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		v, err := siteconfig.ParseVariant(*variant, siteconfig.Draft)
		if err != nil {
			return err
		}
		cfg, _, err := a.loadConfig(cmd, v)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tTYPE\tVISIBLE")
		for _, s := range cfg.Sections {
			fmt.Fprintf(tw, "%s\t%s\t%t\n", s.ID, s.Type, s.IsVisible())
		}
		return tw.Flush()
	}
	return cmd
}

// newSectionImportCmd turns a Markdown file with front matter into a
// section. Front matter keys become section fields and the Markdown body
// goes into --field. A section whose id is already present is updated in
// place; otherwise the new section is appended.
func newSectionImportCmd(a *app) *cobra.Command {
	var field string
	cmd := &cobra.Command{
		Use:   "import FILE.md|-",
		Short: "Add or update a section from Markdown with YAML, TOML or JSON front matter",
		Args:  cobra.ExactArgs(1),
	}
	variant := variantFlag(cmd, siteconfig.Draft)
	cmd.Flags().StringVar(&field, "field", "body", "section field that receives the Markdown body")
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		v, err := siteconfig.ParseVariant(*variant, siteconfig.Draft)
		if err != nil {
			return err
		}
		src, err := readInput(cmd, args[0])
		if err != nil {
			return err
		}
		matter := map[string]any{}
		body, err := frontmatter.Parse(bytes.NewReader(src), &matter)
		if err != nil {
			return xerrors.Wrap(err, "front matter")
		}

		cfg, store, err := a.loadConfig(cmd, v)
		if err != nil {
			return err
		}
		sec, verb, err := upsertSection(cfg, jsonable(matter).(map[string]any), field, strings.TrimSpace(string(body)))
		if err != nil {
			return err
		}
		raw, err := siteconfig.Encode(cfg)
		if err != nil {
			return err
		}
		if err := a.checkConfig(raw); err != nil {
			return err
		}
		if err := store.Write(cmd.Context(), raw, v); err != nil {
			return err
		}
		_, err = fmt.Fprintf(a.stdout, "%s section %s (%s) in %s\n", verb, sec.ID, sec.Type, v)
		return err
	}
	return cmd
}

func (a *app) loadConfig(cmd *cobra.Command, v siteconfig.Variant) (*siteconfig.SiteConfig, *configstore.Store, error) {
	store, err := a.configs(cmd.Context())
	if err != nil {
		return nil, nil, err
	}
	raw, err := store.Read(cmd.Context(), v)
	if errors.Is(err, blobstore.ErrNotFound) {
		return nil, nil, xerrors.Newf("no %s config stored yet, use put first", v)
	}
	if err != nil {
		return nil, nil, err
	}
	cfg, err := siteconfig.Decode(raw)
	if err != nil {
		return nil, nil, err
	}
	return cfg, store, nil
}

func upsertSection(cfg *siteconfig.SiteConfig, matter map[string]any, field, body string) (siteconfig.Section, string, error) {
	id, _ := matter["id"].(string)
	typ, _ := matter["type"].(string)
	delete(matter, "id")
	delete(matter, "type")

	idx := -1
	for i, s := range cfg.Sections {
		if id != "" && s.ID == id {
			idx = i
			break
		}
	}

	var sec siteconfig.Section
	verb := "updated"
	if idx >= 0 {
		sec = cfg.Sections[idx]
		if typ != "" && typ != sec.Type {
			return sec, "", xerrors.Newf("section %s is a %s, front matter says %s", id, sec.Type, typ)
		}
	} else {
		if typ == "" {
			typ = "text"
		}
		kind, _ := sections.DefaultRegistry().Lookup(typ)
		var err error
		if sec, err = kind.New(); err != nil {
			return sec, "", err
		}
		if id != "" {
			sec.ID = id
		}
		verb = "added"
	}

	if vis, ok := matter["visible"].(bool); ok {
		sec.Visible = &vis
		delete(matter, "visible")
	}
	for k, val := range matter {
		if err := sec.Set(k, val); err != nil {
			return sec, "", err
		}
	}
	if body != "" {
		if err := sec.Set(field, body); err != nil {
			return sec, "", err
		}
	}

	if idx >= 0 {
		cfg.Sections[idx] = sec
	} else {
		cfg.Sections = append(cfg.Sections, sec)
	}
	return sec, verb, nil
}

// jsonable converts the map[interface{}]interface{} values YAML decoding
// produces into map[string]any so encoding/json accepts them.
func jsonable(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			t[k] = jsonable(val)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = jsonable(val)
		}
		return out
	case []any:
		for i, val := range t {
			t[i] = jsonable(val)
		}
		return t
	}
	return v
}
