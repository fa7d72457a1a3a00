package sitectl

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/keithlinneman/sitebuilder/internal/blobstore"
	"github.com/keithlinneman/sitebuilder/internal/mediaapi"
	"github.com/keithlinneman/sitebuilder/internal/pathutil"
	"github.com/keithlinneman/sitebuilder/internal/xerrors"
)

func newMediaCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "media",
		Short: "List, upload and remove media objects",
	}
	cmd.AddCommand(newMediaListCmd(a), newMediaUploadCmd(a), newMediaPresignCmd(a), newMediaRmCmd(a))
	return cmd
}

func newMediaListCmd(a *app) *cobra.Command {
	var (
		prefix    string
		limit     int
		recursive bool
		output    string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List objects under a prefix",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			clean, err := pathutil.CleanPrefix(prefix)
			if err != nil {
				return err
			}
			if limit < 1 || limit > mediaapi.MaxLimit {
				return xerrors.Newf("--limit must be 1..%d", mediaapi.MaxLimit)
			}
			store, err := a.storage(cmd.Context())
			if err != nil {
				return err
			}
			objs, err := store.List(cmd.Context(), blobstore.ListOptions{Prefix: clean, Limit: limit, Recursive: recursive})
			if err != nil {
				return err
			}
			urls := a.urls()
			switch output {
			case "json":
				type row struct {
					blobstore.Object
					URL string `json:"url"`
				}
				rows := make([]row, 0, len(objs))
				for _, o := range objs {
					rows = append(rows, row{Object: o, URL: urls.PublicURL(o.Key)})
				}
				return writeJSON(a.stdout, rows)
			case "table", "":
				tw := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "KEY\tSIZE\tLAST MODIFIED\tURL")
				for _, o := range objs {
					fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", o.Key, o.Size, o.LastModified.UTC().Format("2006-01-02 15:04:05"), urls.PublicURL(o.Key))
				}
				return tw.Flush()
			default:
				return xerrors.Newf("unsupported --output: %s", output)
			}
		},
	}
	cmd.Flags().StringVar(&prefix, "prefix", "", "key prefix")
	cmd.Flags().IntVar(&limit, "limit", mediaapi.DefaultLimit, "maximum objects to list")
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "descend into nested prefixes")
	cmd.Flags().StringVarP(&output, "output", "o", "table", "output format: table|json")
	return cmd
}

// defaultKey mirrors the server's presign naming so CLI uploads sort with
// browser uploads.
func defaultKey(filename string) string {
	return mediaapi.UploadPrefix + uuid.NewString() + "-" + pathutil.SanitizeFilename(filename)
}

func contentTypeFor(name, override string) (string, error) {
	ct := override
	if ct == "" {
		ct = mime.TypeByExtension(filepath.Ext(name))
	}
	if ct == "" {
		return "application/octet-stream", nil
	}
	if _, _, err := mime.ParseMediaType(ct); err != nil {
		return "", xerrors.Wrapf(err, "content type %q", ct)
	}
	return ct, nil
}

func newMediaUploadCmd(a *app) *cobra.Command {
	var key, contentType string
	cmd := &cobra.Command{
		Use:   "upload FILE",
		Short: "Upload a local file and print its public URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := os.ReadFile(args[0])
			if err != nil {
				return xerrors.Wrapf(err, "read %s", args[0])
			}
			if key == "" {
				key = defaultKey(filepath.Base(args[0]))
			}
			clean, err := pathutil.CleanObjectKey(key)
			if err != nil {
				return err
			}
			ct, err := contentTypeFor(args[0], contentType)
			if err != nil {
				return err
			}
			store, err := a.storage(cmd.Context())
			if err != nil {
				return err
			}
			if err := store.Put(cmd.Context(), clean, body, ct); err != nil {
				return err
			}
			a.logger.Info(cmd.Context(), "media uploaded", "key", clean, "bytes", len(body), "content_type", ct)
			_, err = fmt.Fprintln(a.stdout, a.urls().PublicURL(clean))
			return err
		},
	}
	cmd.Flags().StringVar(&key, "key", "", "object key (default uploads/<uuid>-<file name>)")
	cmd.Flags().StringVar(&contentType, "content-type", "", "content type (default from the file extension)")
	return cmd
}

func newMediaPresignCmd(a *app) *cobra.Command {
	var (
		key, filename, contentType string
		expires                    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "presign",
		Short: "Print a presigned PUT URL for a browser or curl upload",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if expires < time.Second || expires > mediaapi.MaxExpiry {
				return xerrors.Newf("--expires must be 1s..%s", mediaapi.MaxExpiry)
			}
			if key == "" {
				if filename == "" {
					return xerrors.New("one of --key or --filename is required")
				}
				key = defaultKey(filename)
			}
			clean, err := pathutil.CleanObjectKey(key)
			if err != nil {
				return err
			}
			ct, err := contentTypeFor(clean, contentType)
			if err != nil {
				return err
			}
			store, err := a.storage(cmd.Context())
			if err != nil {
				return err
			}
			req, err := store.PresignPut(cmd.Context(), clean, ct, expires)
			if err != nil {
				return err
			}
			return writeJSON(a.stdout, map[string]any{
				"url":       req.URL,
				"method":    req.Method,
				"headers":   req.Headers,
				"key":       clean,
				"publicUrl": a.urls().PublicURL(clean),
				"expiresIn": int(expires / time.Second),
			})
		},
	}
	cmd.Flags().StringVar(&key, "key", "", "object key")
	cmd.Flags().StringVar(&filename, "filename", "", "file name used to build a key under uploads/")
	cmd.Flags().StringVar(&contentType, "content-type", "", "content type the upload must send")
	cmd.Flags().DurationVar(&expires, "expires", mediaapi.DefaultExpiry, "URL lifetime")
	return cmd
}

func newMediaRmCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rm KEY...",
		Short: "Delete media objects",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.storage(cmd.Context())
			if err != nil {
				return err
			}
			for _, k := range args {
				clean, err := pathutil.CleanObjectKey(k)
				if err != nil {
					return xerrors.Wrapf(err, "key %q", k)
				}
				if err := store.Delete(cmd.Context(), clean); err != nil {
					return err
				}
				fmt.Fprintln(a.stdout, "deleted", clean)
			}
			return nil
		},
	}
}
