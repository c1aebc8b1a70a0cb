package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/samber/mo"

	"github.com/yhkl-dev/tunecli/domain"
)

// songDTO is a song as served by GET /api/songs
type songDTO struct {
	ID        string    `json:"_id"`
	Title     string    `json:"title"`
	Artist    artistRef `json:"artist"`
	Thumbnail string    `json:"thumbnail"`
	Track     string    `json:"track"`
	Genre     string    `json:"genre,omitempty"`
	Likes     int       `json:"likes"`
	Duration  *float64  `json:"duration,omitempty"`
}

// artistRef is either a plain name or a populated artist document
type artistRef struct {
	ID        string `json:"_id,omitempty"`
	Name      string `json:"name,omitempty"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

func (a *artistRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*a = artistRef{}
		return nil
	case len(data) > 0 && data[0] == '"':
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		*a = artistRef{Name: name}
		return nil
	}

	type plain artistRef
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("artist: %w", err)
	}
	*a = artistRef(p)
	return nil
}

func (a artistRef) DisplayName() string {
	if full := strings.TrimSpace(a.FirstName + " " + a.LastName); full != "" {
		return full
	}
	return strings.TrimSpace(a.Name)
}

// toTrack converts the wire shape; relative asset URLs resolve against base
func (s songDTO) toTrack(base *url.URL) domain.Track {
	t := domain.Track{
		ID:           strings.TrimSpace(s.ID),
		Title:        strings.TrimSpace(s.Title),
		Artist:       domain.Artist{ID: s.Artist.ID, Name: s.Artist.DisplayName()},
		ThumbnailURL: resolve(base, s.Thumbnail),
		AudioURL:     resolve(base, s.Track),
		Duration:     mo.PointerToOption(s.Duration),
		Likes:        s.Likes,
	}
	return t
}

func resolve(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || base == nil {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(u).String()
}

// likedRef is an element of GET /api/user/liked: an id or a populated song
type likedRef string

func (l *likedRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*l = likedRef(id)
		return nil
	}
	var doc struct {
		ID string `json:"_id"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("liked song: %w", err)
	}
	*l = likedRef(doc.ID)
	return nil
}

// playlistDTO is a playlist as served by /api/playlist. Depending on the
// route the entries arrive under "songs" or "song".
type playlistDTO struct {
	ID    string         `json:"_id"`
	Name  string         `json:"name"`
	Owner ownerRef       `json:"owner"`
	Songs []playlistSong `json:"songs"`
	Song  []playlistSong `json:"song"`
}

func (p playlistDTO) toPlaylist(base *url.URL) Playlist {
	entries := p.Songs
	if len(entries) == 0 {
		entries = p.Song
	}
	pl := Playlist{
		ID:    strings.TrimSpace(p.ID),
		Name:  strings.TrimSpace(p.Name),
		Owner: p.Owner.DisplayName(),
	}
	for _, e := range entries {
		if e.id == "" {
			continue
		}
		pl.TrackIDs = append(pl.TrackIDs, e.id)
		if e.song == nil {
			continue
		}
		if t := e.song.toTrack(base); t.Validate() == nil {
			pl.Tracks = append(pl.Tracks, t)
		}
	}
	return pl
}

// playlistSong is an id or a populated song
type playlistSong struct {
	id   string
	song *songDTO
}

func (e *playlistSong) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*e = playlistSong{id: strings.TrimSpace(id)}
		return nil
	}
	var s songDTO
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("playlist song: %w", err)
	}
	*e = playlistSong{id: strings.TrimSpace(s.ID), song: &s}
	return nil
}

// ownerRef is a user id or a populated user
type ownerRef struct {
	ID        string `json:"_id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

func (o *ownerRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*o = ownerRef{}
		return nil
	case len(data) > 0 && data[0] == '"':
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*o = ownerRef{ID: id}
		return nil
	}
	type plain ownerRef
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("owner: %w", err)
	}
	*o = ownerRef(p)
	return nil
}

func (o ownerRef) DisplayName() string {
	return strings.TrimSpace(o.FirstName + " " + o.LastName)
}

type likeRequest struct {
	SongID string `json:"songId"`
}

type errorBody struct {
	Message string `json:"message"`
}
