package ui

import (
	"testing"

	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"

	"github.com/yhkl-dev/tunecli/domain"
)

func track(id, title, artist string) domain.Track {
	return domain.Track{ID: id, Title: title, Artist: domain.Artist{Name: artist}}
}

func ids(tracks []domain.Track) []string {
	return lo.Map(tracks, func(t domain.Track, _ int) string { return t.ID })
}

func TestUpNext(t *testing.T) {
	tracks := []domain.Track{track("a", "A", "x"), track("b", "B", "x"), track("c", "C", "x"), track("d", "D", "x")}

	assert.Equal(t, []string{"c", "d", "a"}, ids(UpNext(tracks, mo.Some("b"), 0)))
	assert.Equal(t, []string{"a", "b", "c", "d"}, ids(UpNext(tracks, mo.None[string](), 0)))
	assert.Equal(t, []string{"a", "b"}, ids(UpNext(tracks, mo.Some("d"), 2)))
	assert.Empty(t, UpNext(nil, mo.Some("a"), 0))
	assert.Empty(t, UpNext(tracks[:1], mo.Some("a"), 0))
}

func TestFilterTracks(t *testing.T) {
	tracks := []domain.Track{
		track("1", "Blinding Lights", "The Weeknd"),
		track("2", "Levitating", "Dua Lipa"),
		track("3", "Bohemian Rhapsody", "Queen"),
		track("4", "Don't Start Now", "Dua Lipa"),
	}

	assert.Empty(t, FilterTracks(tracks, "  ", 0))
	assert.Equal(t, []string{"3"}, ids(FilterTracks(tracks, "bohemian", 0)))
	assert.ElementsMatch(t, []string{"2", "4"}, ids(FilterTracks(tracks, "dua", 0)))
	assert.Len(t, FilterTracks(tracks, "dua", 1), 1)
	assert.Empty(t, FilterTracks(tracks, "metallica", 0))
	// accents are folded
	assert.Equal(t, []string{"1"}, ids(FilterTracks(tracks, "wéeknd", 0)))
}

func TestPageCount(t *testing.T) {
	assert.Equal(t, 1, pageCount(0, 10))
	assert.Equal(t, 1, pageCount(10, 10))
	assert.Equal(t, 2, pageCount(11, 10))
	assert.Equal(t, 1, pageCount(11, 0))
}

func TestSameTracks(t *testing.T) {
	a := []domain.Track{track("a", "A", "x")}
	b := []domain.Track{track("a", "A", "x")}
	assert.True(t, sameTracks(a, b))
	b[0].Likes = 3
	assert.False(t, sameTracks(a, b))
	assert.False(t, sameTracks(a, nil))
}
