package sitectl

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"

	"github.com/keithlinneman/sitebuilder/internal/siteconfig"
	"github.com/keithlinneman/sitebuilder/internal/xerrors"
)

func variantFlag(cmd *cobra.Command, def siteconfig.Variant) *string {
	return cmd.Flags().String("variant", def.String(), "config variant: draft|published")
}

// readInput reads a file argument, or stdin for "-".
func readInput(cmd *cobra.Command, name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	b, err := os.ReadFile(name)
	if err != nil {
		return nil, xerrors.Wrapf(err, "read %s", name)
	}
	return b, nil
}

// checkConfig prints every schema issue before failing.
func (a *app) checkConfig(raw []byte) error {
	err := siteconfig.Validate(raw)
	if err == nil {
		return nil
	}
	for _, is := range siteconfig.Issues(err) {
		fmt.Fprintf(a.stderr, "  %s: %s\n", is.Path, is.Message)
	}
	return err
}

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE|-",
		Short: "Check a config file against the schema without touching storage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			if err := a.checkConfig(raw); err != nil {
				return err
			}
			cfg, err := siteconfig.Decode(raw)
			if err != nil {
				return err
			}
			if dups := cfg.DuplicateIDs(); len(dups) > 0 {
				fmt.Fprintf(a.stderr, "warning: duplicate section ids %v\n", dups)
			}
			_, err = fmt.Fprintf(a.stdout, "ok: %d sections\n", len(cfg.Sections))
			return err
		},
	}
}

func newGetCmd(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Print the stored config for a variant",
		Args:  cobra.NoArgs,
	}
	variant := variantFlag(cmd, siteconfig.Draft)
	cmd.Flags().StringVarP(&output, "output", "o", "json", "output format: json (stored bytes) or yaml")
	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		v, err := siteconfig.ParseVariant(*variant, siteconfig.Draft)
		if err != nil {
			return err
		}
		if output != "json" && output != "yaml" {
			return xerrors.Newf("unsupported --output: %s", output)
		}
		store, err := a.configs(cmd.Context())
		if err != nil {
			return err
		}
		raw, err := store.Read(cmd.Context(), v)
		if err != nil {
			return err
		}
		if output == "yaml" {
			return writeYAML(a.stdout, raw)
		}
		if _, err := a.stdout.Write(raw); err != nil {
			return err
		}
		_, err = fmt.Fprintln(a.stdout)
		return err
	}
	return cmd
}

func newPutCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "put FILE|-",
		Short: "Validate a config file and store it as-is",
		Args:  cobra.ExactArgs(1),
	}
	variant := variantFlag(cmd, siteconfig.Draft)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		v, err := siteconfig.ParseVariant(*variant, siteconfig.Draft)
		if err != nil {
			return err
		}
		raw, err := readInput(cmd, args[0])
		if err != nil {
			return err
		}
		if err := a.checkConfig(raw); err != nil {
			return err
		}
		store, err := a.configs(cmd.Context())
		if err != nil {
			return err
		}
		if err := store.Write(cmd.Context(), json.RawMessage(raw), v); err != nil {
			return err
		}
		_, err = fmt.Fprintf(a.stdout, "wrote %s (%d bytes)\n", store.Key(v), len(raw))
		return err
	}
	return cmd
}

func newPublishCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "publish",
		Short: "Back up the draft and copy it over published",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.configs(cmd.Context())
			if err != nil {
				return err
			}
			key, err := store.PublishWithBackup(cmd.Context())
			if err != nil {
				if key != "" {
					fmt.Fprintf(a.stderr, "backup %s was written before the publish failed\n", key)
				}
				return err
			}
			_, err = fmt.Fprintf(a.stdout, "published, backup %s\n", key)
			return err
		},
	}
}

func newBackupCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Copy the draft to a timestamped backup",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.configs(cmd.Context())
			if err != nil {
				return err
			}
			key, err := store.Backup(cmd.Context())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(a.stdout, key)
			return err
		},
	}
}

func newBackupsCmd(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "backups",
		Short: "List draft backups, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.configs(cmd.Context())
			if err != nil {
				return err
			}
			objs, err := store.ListBackups(cmd.Context())
			if err != nil {
				return err
			}
			switch output {
			case "json":
				return writeJSON(a.stdout, objs)
			case "table", "":
				tw := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "KEY\tSIZE\tLAST MODIFIED")
				for _, o := range objs {
					fmt.Fprintf(tw, "%s\t%d\t%s\n", o.Key, o.Size, o.LastModified.UTC().Format("2006-01-02 15:04:05"))
				}
				return tw.Flush()
			default:
				return xerrors.Newf("unsupported --output: %s", output)
			}
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "table", "output format: table|json")
	return cmd
}

func newRestoreCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "restore BACKUP",
		Short: "Copy a backup over the draft (published is unchanged)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.configs(cmd.Context())
			if err != nil {
				return err
			}
			key, err := store.Restore(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(a.stdout, "restored %s to draft\n", key)
			return err
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeYAML re-renders JSON for reading. Keys come out sorted.
func writeYAML(w io.Writer, raw []byte) error {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return xerrors.Wrap(err, "decode stored config")
	}
	out, err := yaml.Marshal(doc)
	if err != nil {
		return xerrors.Wrap(err, "encode yaml")
	}
	_, err = w.Write(out)
	return err
}
