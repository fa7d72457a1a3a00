package sitepage

import (
	"context"
	"errors"
	"maps"

	"github.com/keithlinneman/sitebuilder/internal/blobstore"
	"github.com/keithlinneman/sitebuilder/internal/siteconfig"
	"github.com/keithlinneman/sitebuilder/internal/xerrors"
)

// Config sources reported in X-Config-Source and the page_config_source metric.
const (
	SourcePublished     = "published"
	SourceDraft         = "draft"
	SourceLastKnownGood = "last-known-good"
	SourceFixture       = "fixture"
)

// resolve walks the fetch chain for the public page.
func (h *Handler) resolve(ctx context.Context) (*siteconfig.SiteConfig, string, error) {
	for _, v := range []siteconfig.Variant{h.preferred, h.preferred.Other()} {
		cfg, err := h.read(ctx, v)
		if err == nil {
			h.lastGood.Store(cfg)
			return cfg, v.String(), nil
		}
		if errors.Is(err, context.Canceled) {
			return nil, "", err
		}
	}
	if cfg := h.lastGood.Load(); cfg != nil {
		return cfg, SourceLastKnownGood, nil
	}
	cfg, err := h.fixture()
	if err != nil {
		return nil, "", err
	}
	return cfg, SourceFixture, nil
}

// resolveDraft is the chain for the admin overlay, which edits the draft
// first and falls back to whatever the public page would show.
func (h *Handler) resolveDraft(ctx context.Context) (*siteconfig.SiteConfig, string, error) {
	if cfg, err := h.read(ctx, siteconfig.Draft); err == nil {
		return cfg, SourceDraft, nil
	}
	return h.resolve(ctx)
}

func (h *Handler) read(ctx context.Context, v siteconfig.Variant) (*siteconfig.SiteConfig, error) {
	raw, err := h.store.Read(ctx, v)
	if err != nil {
		if !errors.Is(err, blobstore.ErrNotFound) && !errors.Is(err, context.Canceled) {
			h.logger.Warn(ctx, "page config read failed", "variant", v.String(), "err", err.Error())
		}
		return nil, err
	}
	cfg, err := siteconfig.Decode(raw)
	if err != nil {
		h.logger.Warn(ctx, "stored page config is invalid", "variant", v.String(), "err", err.Error())
		return nil, err
	}
	return cfg, nil
}

func (h *Handler) fixture() (*siteconfig.SiteConfig, error) {
	raw, name := h.fixtures.Lookup(h.siteID)
	cfg, err := siteconfig.Decode(raw)
	if err != nil {
		return nil, xerrors.Wrapf(err, "decode fixture %s", name)
	}
	return cfg, nil
}

// fillGalleries resolves gallery sections that name a storage prefix and
// have no images listed. The returned slice shares nothing mutable with secs.
func (h *Handler) fillGalleries(ctx context.Context, secs []siteconfig.Section) []siteconfig.Section {
	if h.gallery == nil {
		return secs
	}
	out := make([]siteconfig.Section, len(secs))
	copy(out, secs)
	for i, s := range out {
		if s.Type != "gallery" || !s.IsVisible() {
			continue
		}
		prefix := s.String("prefix")
		var listed []any
		if _, err := s.Field("images", &listed); err != nil || len(listed) > 0 || prefix == "" {
			continue
		}
		items, err := h.gallery(ctx, prefix)
		if err != nil {
			h.logger.Warn(ctx, "gallery listing failed", "section_id", s.ID, "prefix", prefix, "err", err.Error())
			continue
		}
		filled := s
		filled.Fields = maps.Clone(s.Fields)
		if err := filled.Set("images", items); err != nil {
			continue
		}
		out[i] = filled
	}
	return out
}
