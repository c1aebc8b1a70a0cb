package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yhkl-dev/tunecli/domain"
	"github.com/yhkl-dev/tunecli/filesystem"
)

type stubCatalog struct {
	Catalog
	tracks []domain.Track
	err    error
}

func (s *stubCatalog) Tracks(context.Context) ([]domain.Track, error) {
	return s.tracks, s.err
}

func TestCachedServesLastGoodList(t *testing.T) {
	filesystem.SetMemMapFs()
	t.Cleanup(filesystem.SetOsFs)

	stub := &stubCatalog{tracks: []domain.Track{{
		ID:       "a",
		Title:    "Alpha",
		Artist:   domain.Artist{ID: "ar", Name: "Ann"},
		AudioURL: "https://cdn.example/a.mp3",
		Duration: mo.Some(90.0),
		Likes:    2,
	}}}
	cached := NewCached(stub, "/cache/tracks.json", 0)

	fresh, err := cached.Tracks(context.Background())
	require.NoError(t, err)
	require.Len(t, fresh, 1)

	stub.tracks, stub.err = nil, errors.New("connection refused")
	stale, err := cached.Tracks(context.Background())
	assert.ErrorIs(t, err, ErrStale)
	assert.ErrorContains(t, err, "connection refused")
	assert.Equal(t, fresh, stale)
}

func TestCachedWithoutCacheFails(t *testing.T) {
	filesystem.SetMemMapFs()
	t.Cleanup(filesystem.SetOsFs)

	boom := errors.New("offline")
	cached := NewCached(&stubCatalog{err: boom}, "/cache/empty.json", 0)

	tracks, err := cached.Tracks(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrStale)
	assert.Nil(t, tracks)
}
