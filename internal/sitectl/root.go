// Package sitectl is the operator CLI for a site's stored config and media.
// It talks to the same bucket layout as the server through configstore and
// blobstore, so it works with the server stopped.
package sitectl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/keithlinneman/sitebuilder/internal/blobstore"
	"github.com/keithlinneman/sitebuilder/internal/configstore"
	"github.com/keithlinneman/sitebuilder/internal/log"
	"github.com/keithlinneman/sitebuilder/internal/version"
	"github.com/keithlinneman/sitebuilder/internal/xerrors"
)

// EnvPrefix applies to every setting: SITECTL_BUCKET, SITECTL_SITE_ID, ...
const EnvPrefix = "SITECTL"

// Settings are resolved from flags, SITECTL_* env and sitectl.yaml, in
// that order of precedence.
type Settings struct {
	SiteID    string `mapstructure:"site-id"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	Endpoint  string `mapstructure:"endpoint"`
	PathStyle bool   `mapstructure:"path-style"`
	CDNBase   string `mapstructure:"cdn-base"`
	LogLevel  string `mapstructure:"log-level"`
}

// Opener connects to object storage for the resolved settings.
type Opener func(ctx context.Context, s Settings) (blobstore.Store, error)

// S3Opener is the production Opener.
func S3Opener(ctx context.Context, s Settings) (blobstore.Store, error) {
	return blobstore.NewS3Store(ctx, blobstore.S3Options{
		Bucket:    s.Bucket,
		Region:    s.Region,
		Endpoint:  s.Endpoint,
		PathStyle: s.PathStyle,
	})
}

type app struct {
	stdout, stderr io.Writer
	open           Opener
	cfgFile        string
	settings       Settings
	logger         log.Logger
}

// NewRootCmd builds the command tree. open is called lazily by commands
// that need storage.
func NewRootCmd(stdout, stderr io.Writer, open Opener) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr, open: open, logger: log.Nop()}

	cmd := &cobra.Command{
		Use:           "sitectl",
		Short:         "Manage sitebuilder configs and media in object storage",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.initialize(cmd)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	pf := cmd.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default ./sitectl.yaml or ~/.config/sitebuilder/sitectl.yaml)")
	pf.String("site-id", "default", "site identifier")
	pf.String("bucket", "", "bucket holding site config and media")
	pf.String("region", "us-east-2", "bucket region")
	pf.String("endpoint", "", "custom S3-compatible endpoint URL")
	pf.Bool("path-style", false, "use path-style bucket addressing")
	pf.String("cdn-base", "", "public base URL for media objects")
	pf.String("log-level", "warn", "debug|info|warn|error, logs go to stderr")

	cmd.AddCommand(
		newVersionCmd(a),
		newValidateCmd(a),
		newGetCmd(a),
		newPutCmd(a),
		newPublishCmd(a),
		newBackupCmd(a),
		newBackupsCmd(a),
		newRestoreCmd(a),
		newSectionCmd(a),
		newMediaCmd(a),
	)
	return cmd
}

// Execute runs the CLI against S3 with the process stdio and returns the
// exit code.
func Execute() int {
	root := NewRootCmd(os.Stdout, os.Stderr, S3Opener)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}

func (a *app) initialize(cmd *cobra.Command) error {
	v := viper.New()
	if a.cfgFile != "" {
		v.SetConfigFile(a.cfgFile)
	} else {
		v.SetConfigName("sitectl")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home + "/.config/sitebuilder")
		}
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Root().PersistentFlags()); err != nil {
		return xerrors.Wrap(err, "bind flags")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || a.cfgFile != "" {
			return xerrors.Wrap(err, "read config file")
		}
	}
	if err := v.Unmarshal(&a.settings); err != nil {
		return xerrors.Wrap(err, "decode settings")
	}

	lg, err := log.New(log.Options{
		App:     version.AppName,
		Version: version.Version,
		SiteID:  a.settings.SiteID,
		Level:   a.settings.LogLevel,
		Writer:  a.stderr,
	})
	if err != nil {
		return xerrors.Wrapf(err, "log-level %q", a.settings.LogLevel)
	}
	a.logger = lg.With("component", "sitectl")
	if used := v.ConfigFileUsed(); used != "" {
		a.logger.Debug(cmd.Context(), "using config file", "path", used)
	}
	return nil
}

func (a *app) storage(ctx context.Context) (blobstore.Store, error) {
	if a.settings.Bucket == "" {
		return nil, xerrors.New("bucket is required (--bucket, SITECTL_BUCKET or sitectl.yaml)")
	}
	return a.open(ctx, a.settings)
}

func (a *app) configs(ctx context.Context) (*configstore.Store, error) {
	store, err := a.storage(ctx)
	if err != nil {
		return nil, err
	}
	return configstore.New(configstore.Options{Logger: a.logger, Store: store, SiteID: a.settings.SiteID})
}

func (a *app) urls() blobstore.URLBuilder {
	return blobstore.URLBuilder{CDNBase: a.settings.CDNBase, Bucket: a.settings.Bucket, Region: a.settings.Region}
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			vi := version.Get()
			_, err := fmt.Fprintf(a.stdout, "sitectl %s (commit=%s, go=%s)\n", vi.Version, vi.ShortCommit(), vi.GoVersion)
			return err
		},
	}
}
