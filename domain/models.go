package domain

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/samber/mo"
)

// ErrInvalidTrack is returned by Track.Validate for incomplete catalog entries
var ErrInvalidTrack = errors.New("invalid track")

// Artist is the owning artist reference of a track
type Artist struct {
	ID   string
	Name string
}

// Track represents a playable song as delivered by the catalog
type Track struct {
	ID           string
	Title        string
	Artist       Artist
	ThumbnailURL string
	AudioURL     string
	Duration     mo.Option[float64] // in seconds
	Likes        int
}

// Validate checks the fields the player relies on
func (t Track) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidTrack)
	}
	if strings.TrimSpace(t.Title) == "" {
		return fmt.Errorf("%w: %s: missing title", ErrInvalidTrack, t.ID)
	}
	if strings.TrimSpace(t.Artist.Name) == "" {
		return fmt.Errorf("%w: %s: missing artist", ErrInvalidTrack, t.ID)
	}
	u, err := url.Parse(t.AudioURL)
	if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%w: %s: bad audio url %q", ErrInvalidTrack, t.ID, t.AudioURL)
	}
	if d, ok := t.Duration.Get(); ok && d < 0 {
		return fmt.Errorf("%w: %s: negative duration", ErrInvalidTrack, t.ID)
	}
	return nil
}

// DurationSeconds returns the catalog duration or 0 when unknown
func (t Track) DurationSeconds() float64 {
	return t.Duration.OrElse(0)
}

// Direction is the navigation direction for skip requests
type Direction int

const (
	Forward Direction = iota
	Backward
)

func (d Direction) String() string {
	if d == Backward {
		return "backward"
	}
	return "forward"
}

// SessionState is the coarse state of the playback session
type SessionState int

const (
	Empty SessionState = iota
	Idle
	Paused
	Playing
)

func (s SessionState) String() string {
	switch s {
	case Empty:
		return "empty"
	case Idle:
		return "idle"
	case Paused:
		return "paused"
	case Playing:
		return "playing"
	}
	return "unknown"
}

// Snapshot is an immutable copy of the playback session
type Snapshot struct {
	Version   uint64
	Tracks    []Track
	CurrentID mo.Option[string]
	IsPlaying bool
	Shuffle   bool
	Repeat    bool
	Volume    float64
}

// Current returns the selected track, if any
func (s Snapshot) Current() (Track, int, bool) {
	id, ok := s.CurrentID.Get()
	if !ok {
		return Track{}, -1, false
	}
	for i, t := range s.Tracks {
		if t.ID == id {
			return t, i, true
		}
	}
	return Track{}, -1, false
}

// State derives the session state from the snapshot
func (s Snapshot) State() SessionState {
	switch {
	case len(s.Tracks) == 0:
		return Empty
	case s.CurrentID.IsAbsent():
		return Idle
	case s.IsPlaying:
		return Playing
	default:
		return Paused
	}
}
