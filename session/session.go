// Package session holds the playback session: the track list, the selected
// track, and the play/shuffle/repeat/volume modifiers.
package session

import (
	"errors"
	"math"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/sirupsen/logrus"
	"github.com/yhkl-dev/tunecli/domain"
	"github.com/yhkl-dev/tunecli/log"
	"github.com/yhkl-dev/tunecli/navigation"
)

// ErrUnknownTrack is returned when selecting a track that is not in the session
var ErrUnknownTrack = errors.New("track is not in the session")

// Navigator picks navigation targets; *navigation.Policy satisfies it
type Navigator interface {
	Next(tracks []domain.Track, currentID mo.Option[string], shuffle bool, dir domain.Direction) mo.Option[domain.Track]
}

var _ Navigator = (*navigation.Policy)(nil)

// Session is the single mutable playback state of the application.
// All mutations are applied synchronously under the lock; observers run after
// the lock is released.
type Session struct {
	id  string
	nav Navigator
	log *logrus.Entry

	mux       sync.RWMutex
	version   uint64
	tracks    []domain.Track
	currentID mo.Option[string]
	isPlaying bool
	shuffle   bool
	repeat    bool
	volume    float64

	obsMux    sync.Mutex
	observers []func(domain.Snapshot)
}

// New creates an empty session
func New(nav Navigator, volume float64) *Session {
	if nav == nil {
		nav = navigation.NewPolicy(nil)
	}
	id := uuid.NewString()
	return &Session{
		id:        id,
		nav:       nav,
		log:       log.Component("session").WithField("session", id),
		currentID: mo.None[string](),
		volume:    clamp(volume),
	}
}

// ID identifies this session in logs
func (s *Session) ID() string {
	return s.id
}

// OnChange registers an observer for every effective mutation
func (s *Session) OnChange(fn func(domain.Snapshot)) {
	s.obsMux.Lock()
	defer s.obsMux.Unlock()
	s.observers = append(s.observers, fn)
}

// Snapshot returns a copy of the current state
func (s *Session) Snapshot() domain.Snapshot {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return s.snapshotLocked()
}

// State returns the coarse session state
func (s *Session) State() domain.SessionState {
	return s.Snapshot().State()
}

// Current returns the selected track, if any
func (s *Session) Current() (domain.Track, bool) {
	t, _, ok := s.Snapshot().Current()
	return t, ok
}

// Tracks returns a copy of the track list
func (s *Session) Tracks() []domain.Track {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return slices.Clone(s.tracks)
}

// SelectTrack toggles play state when t is already selected, otherwise
// selects t and starts playing it.
func (s *Session) SelectTrack(t domain.Track) error {
	s.mux.Lock()
	if s.indexLocked(t.ID) < 0 {
		s.mux.Unlock()
		return ErrUnknownTrack
	}
	if id, ok := s.currentID.Get(); ok && id == t.ID {
		s.isPlaying = !s.isPlaying
	} else {
		s.currentID = mo.Some(t.ID)
		s.isPlaying = true
	}
	snap := s.commitLocked()
	s.mux.Unlock()

	s.log.WithField("track", t.ID).Debugf("select: playing=%t", snap.IsPlaying)
	s.notify(snap)
	return nil
}

// TogglePlay flips the play state; it reports false when nothing is selected
func (s *Session) TogglePlay() bool {
	s.mux.Lock()
	if s.currentID.IsAbsent() {
		s.mux.Unlock()
		return false
	}
	s.isPlaying = !s.isPlaying
	snap := s.commitLocked()
	s.mux.Unlock()

	s.notify(snap)
	return true
}

// SetTracks replaces the track list. A current track that disappeared is
// replaced by the first remaining track, paused, or cleared when the list is
// empty.
func (s *Session) SetTracks(tracks []domain.Track) {
	s.mux.Lock()
	s.tracks = slices.Clone(tracks)
	if id, ok := s.currentID.Get(); ok && s.indexLocked(id) < 0 {
		s.isPlaying = false
		if len(s.tracks) > 0 {
			s.currentID = mo.Some(s.tracks[0].ID)
		} else {
			s.currentID = mo.None[string]()
		}
		s.log.WithField("track", id).Info("current track left the catalog")
	}
	snap := s.commitLocked()
	s.mux.Unlock()

	s.notify(snap)
}

// Advance selects the navigation target in dir and starts playing it.
// It returns false when there is nothing to navigate to.
func (s *Session) Advance(dir domain.Direction) bool {
	s.mux.Lock()
	next, ok := s.nav.Next(s.tracks, s.currentID, s.shuffle, dir).Get()
	if !ok {
		s.mux.Unlock()
		return false
	}
	s.currentID = mo.Some(next.ID)
	s.isPlaying = true
	snap := s.commitLocked()
	s.mux.Unlock()

	s.log.WithField("track", next.ID).Debugf("advance %s", dir)
	s.notify(snap)
	return true
}

// Stop clears the play flag after a failure on trackID. It does nothing
// when another track has been selected since.
func (s *Session) Stop(trackID string, cause error) {
	s.mux.Lock()
	id, ok := s.currentID.Get()
	if !ok || id != trackID || !s.isPlaying {
		s.mux.Unlock()
		return
	}
	s.isPlaying = false
	snap := s.commitLocked()
	s.mux.Unlock()

	s.log.WithField("track", trackID).WithError(cause).Warn("playback stopped")
	s.notify(snap)
}

// SetShuffle sets the shuffle modifier
func (s *Session) SetShuffle(on bool) {
	s.update(func() bool {
		changed := s.shuffle != on
		s.shuffle = on
		return changed
	})
}

// ToggleShuffle flips the shuffle modifier
func (s *Session) ToggleShuffle() {
	s.update(func() bool {
		s.shuffle = !s.shuffle
		return true
	})
}

// SetRepeat sets the repeat modifier
func (s *Session) SetRepeat(on bool) {
	s.update(func() bool {
		changed := s.repeat != on
		s.repeat = on
		return changed
	})
}

// ToggleRepeat flips the repeat modifier
func (s *Session) ToggleRepeat() {
	s.update(func() bool {
		s.repeat = !s.repeat
		return true
	})
}

// SetVolume sets the volume, clamped to [0,1]
func (s *Session) SetVolume(v float64) {
	v = clamp(v)
	s.update(func() bool {
		changed := s.volume != v
		s.volume = v
		return changed
	})
}

// AdjustVolume changes the volume by delta
func (s *Session) AdjustVolume(delta float64) {
	s.update(func() bool {
		v := clamp(s.volume + delta)
		changed := s.volume != v
		s.volume = v
		return changed
	})
}

func (s *Session) update(mutate func() bool) {
	s.mux.Lock()
	if !mutate() {
		s.mux.Unlock()
		return
	}
	snap := s.commitLocked()
	s.mux.Unlock()
	s.notify(snap)
}

func (s *Session) commitLocked() domain.Snapshot {
	s.version++
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() domain.Snapshot {
	return domain.Snapshot{
		Version:   s.version,
		Tracks:    slices.Clone(s.tracks),
		CurrentID: s.currentID,
		IsPlaying: s.isPlaying,
		Shuffle:   s.shuffle,
		Repeat:    s.repeat,
		Volume:    s.volume,
	}
}

func (s *Session) indexLocked(id string) int {
	_, idx, _ := lo.FindIndexOf(s.tracks, func(t domain.Track) bool { return t.ID == id })
	return idx
}

func (s *Session) notify(snap domain.Snapshot) {
	s.obsMux.Lock()
	observers := slices.Clone(s.observers)
	s.obsMux.Unlock()
	for _, fn := range observers {
		fn(snap)
	}
}

// clamp keeps v in [0,1]; NaN becomes 0
func clamp(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return min(max(v, 0), 1)
}
