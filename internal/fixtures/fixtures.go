// Package fixtures serves the mock site configs used in mock mode and as
// the last page fallback. Bundled fixtures are embedded; an optional
// directory of overrides is watched and reloaded on change.
package fixtures

import (
	"context"
	"encoding/json"
	"io/fs"
	"os"
	"path"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/keithlinneman/sitebuilder/internal/log"
	"github.com/keithlinneman/sitebuilder/internal/siteconfig"
	"github.com/keithlinneman/sitebuilder/internal/xerrors"
)

// DefaultName is the fixture used when no site-specific one exists.
const DefaultName = "default"

const debounce = 250 * time.Millisecond

type set map[string]json.RawMessage

type Source struct {
	bundled  set
	override atomic.Pointer[set]
	logger   log.Logger
	onReload func(count int)
}

type Options struct {
	Logger log.Logger
	// Bundled holds <name>.json files; default.json is required.
	Bundled fs.FS
	// OnReload is called after the override directory is reloaded.
	OnReload func(count int)
}

func New(opts Options) (*Source, error) {
	if opts.Logger == nil {
		opts.Logger = log.Nop()
	}
	bundled, err := load(opts.Bundled)
	if err != nil {
		return nil, xerrors.Wrap(err, "load bundled fixtures")
	}
	if _, ok := bundled[DefaultName]; !ok {
		return nil, xerrors.Newf("bundled fixtures missing %s.json", DefaultName)
	}
	return &Source{bundled: bundled, logger: opts.Logger, onReload: opts.OnReload}, nil
}

// Lookup returns the fixture for siteID and the fixture name used. Overrides
// win over bundled fixtures, and the default fixture is used when neither
// has the site.
func (s *Source) Lookup(siteID string) (json.RawMessage, string) {
	if ov := s.override.Load(); ov != nil {
		if raw, ok := (*ov)[siteID]; ok {
			return raw, siteID
		}
	}
	if raw, ok := s.bundled[siteID]; ok {
		return raw, siteID
	}
	if ov := s.override.Load(); ov != nil {
		if raw, ok := (*ov)[DefaultName]; ok {
			return raw, DefaultName
		}
	}
	return s.bundled[DefaultName], DefaultName
}

// Names lists bundled fixture names.
func (s *Source) Names() []string {
	out := make([]string, 0, len(s.bundled))
	for name := range s.bundled {
		out = append(out, name)
	}
	return out
}

// load reads every *.json in fsys and validates it.
func load(fsys fs.FS) (set, error) {
	names, err := fs.Glob(fsys, "*.json")
	if err != nil {
		return nil, err
	}
	out := make(set, len(names))
	for _, name := range names {
		raw, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, xerrors.Wrapf(err, "read fixture %s", name)
		}
		if err := siteconfig.Validate(raw); err != nil {
			return nil, xerrors.Wrapf(err, "fixture %s", name)
		}
		out[strings.TrimSuffix(path.Base(name), ".json")] = json.RawMessage(raw)
	}
	return out, nil
}

// LoadDir replaces the override set with the fixtures in dir. On error the
// previous overrides stay active.
func (s *Source) LoadDir(dir string) error {
	next, err := load(os.DirFS(dir))
	if err != nil {
		return err
	}
	s.override.Store(&next)
	if s.onReload != nil {
		s.onReload(len(next))
	}
	return nil
}

// Watch loads dir and reloads it whenever a file in it changes, until ctx
// is done. Bursts of events are coalesced.
func (s *Source) Watch(ctx context.Context, dir string) error {
	if err := s.LoadDir(dir); err != nil {
		return xerrors.Wrapf(err, "load fixtures dir %s", dir)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return xerrors.Wrap(err, "create fixtures watcher")
	}
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return xerrors.Wrapf(err, "watch %s", dir)
	}

	s.logger.Info(ctx, "watching fixtures dir", "dir", dir)

	go func() {
		defer w.Close()
		var timer *time.Timer
		reload := make(chan struct{}, 1)
		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if !strings.HasSuffix(ev.Name, ".json") {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
					continue
				}
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(debounce, func() {
					select {
					case reload <- struct{}{}:
					default:
					}
				})
			case <-reload:
				if err := s.LoadDir(dir); err != nil {
					s.logger.Warn(ctx, "fixtures reload failed, keeping previous", "dir", dir, "err", err.Error())
					continue
				}
				s.logger.Info(ctx, "fixtures reloaded", "dir", dir)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				s.logger.Warn(ctx, "fixtures watcher error", "err", err.Error())
			}
		}
	}()
	return nil
}
