package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/metafates/gache"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/sirupsen/logrus"

	"github.com/yhkl-dev/tunecli/domain"
	"github.com/yhkl-dev/tunecli/filesystem"
	"github.com/yhkl-dev/tunecli/log"
)

type cachedTrack struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	ArtistID     string   `json:"artist_id,omitempty"`
	Artist       string   `json:"artist"`
	ThumbnailURL string   `json:"thumbnail_url,omitempty"`
	AudioURL     string   `json:"audio_url"`
	Duration     *float64 `json:"duration,omitempty"`
	Likes        int      `json:"likes"`
}

// Cached remembers the last good track list and serves it when the catalog
// cannot be reached
type Cached struct {
	Catalog
	cache *gache.Cache[[]cachedTrack]
	log   *logrus.Entry
}

// NewCached wraps c with a cache file at path; lifetime 0 never expires
func NewCached(c Catalog, path string, lifetime time.Duration) *Cached {
	return &Cached{
		Catalog: c,
		cache: gache.New[[]cachedTrack](&gache.Options{
			Path:       path,
			Lifetime:   lifetime,
			FileSystem: &filesystem.GacheFs{},
		}),
		log: log.Component("catalog-cache"),
	}
}

// Tracks returns fresh tracks, or the cached list wrapped in ErrStale
func (c *Cached) Tracks(ctx context.Context) ([]domain.Track, error) {
	tracks, err := c.Catalog.Tracks(ctx)
	if err == nil {
		if serr := c.cache.Set(lo.Map(tracks, toCached)); serr != nil {
			c.log.WithError(serr).Warn("could not store track list")
		}
		return tracks, nil
	}

	cached, expired, cerr := c.cache.Get()
	if cerr != nil || expired || len(cached) == 0 {
		return nil, err
	}
	c.log.WithError(err).Warnf("serving %d cached tracks", len(cached))
	return lo.Map(cached, fromCached), fmt.Errorf("%w: %w", ErrStale, err)
}

func toCached(t domain.Track, _ int) cachedTrack {
	return cachedTrack{
		ID:           t.ID,
		Title:        t.Title,
		ArtistID:     t.Artist.ID,
		Artist:       t.Artist.Name,
		ThumbnailURL: t.ThumbnailURL,
		AudioURL:     t.AudioURL,
		Duration:     t.Duration.ToPointer(),
		Likes:        t.Likes,
	}
}

func fromCached(c cachedTrack, _ int) domain.Track {
	return domain.Track{
		ID:           c.ID,
		Title:        c.Title,
		Artist:       domain.Artist{ID: c.ArtistID, Name: c.Artist},
		ThumbnailURL: c.ThumbnailURL,
		AudioURL:     c.AudioURL,
		Duration:     mo.PointerToOption(c.Duration),
		Likes:        c.Likes,
	}
}
