package catalog

import (
	"github.com/samber/lo"

	"github.com/yhkl-dev/tunecli/domain"
)

// Playlist is a named, ordered selection of catalog tracks
type Playlist struct {
	ID    string
	Name  string
	Owner string
	// TrackIDs lists every entry in playlist order
	TrackIDs []string
	// Tracks holds the entries the catalog sent populated
	Tracks []domain.Track
}

// Resolve returns the playlist's tracks in order. Entries the catalog did
// not populate are looked up in library; unknown ids are skipped.
func (p Playlist) Resolve(library []domain.Track) []domain.Track {
	return Pick(p.TrackIDs, p.Tracks, library)
}

// Pick returns the tracks for ids in order, skipping unknown and repeated
// ids. When several sources know an id the earliest one wins.
func Pick(ids []string, sources ...[]domain.Track) []domain.Track {
	byID := make(map[string]domain.Track)
	for i := len(sources) - 1; i >= 0; i-- {
		for _, t := range sources[i] {
			byID[t.ID] = t
		}
	}
	return lo.FilterMap(lo.Uniq(ids), func(id string, _ int) (domain.Track, bool) {
		t, ok := byID[id]
		return t, ok
	})
}
