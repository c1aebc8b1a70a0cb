// Package catalog talks to the music catalog service: the track list, play
// counts, the signed-in user's likes and playlists.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/yhkl-dev/tunecli/domain"
)

var (
	// ErrNoToken is returned by user endpoints when no bearer token is configured
	ErrNoToken = errors.New("not signed in")
	// ErrStale marks a track list served from the local cache
	ErrStale = errors.New("catalog unavailable, using cached tracks")
)

// Catalog is the remote source of tracks
type Catalog interface {
	Tracks(ctx context.Context) ([]domain.Track, error)
	NotifyPlay(ctx context.Context, trackID string) error
	Liked(ctx context.Context) ([]string, error)
	Like(ctx context.Context, trackID string) error
	Unlike(ctx context.Context, trackID string) error
	Playlists(ctx context.Context) ([]Playlist, error)
	Playlist(ctx context.Context, id string) (Playlist, error)
}

// APIError is a non-2xx catalog response
type APIError struct {
	Method  string
	Path    string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, msg)
}

// IsUnauthorized reports whether err is a 401 or 403 from the catalog
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return errors.Is(err, ErrNoToken)
	}
	return apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden
}
