package player

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotLoaded is returned by operations that need a loaded source
var ErrNotLoaded = errors.New("no source loaded")

// Handle is the single audio playback resource. Implementations are safe for
// concurrent use.
type Handle interface {
	// Load replaces the source with url and blocks until it is ready to
	// play, fails, or ctx is done. The source is left paused.
	Load(ctx context.Context, url string) error

	// Play starts or resumes playback of the loaded source
	Play() error

	// Pause pauses playback, keeping the position
	Pause() error

	// Stop stops playback and detaches the source
	Stop() error

	// Seek moves to an absolute position in seconds
	Seek(seconds float64) error

	// SetVolume sets the output volume in [0,1]
	SetVolume(volume float64) error

	// SetLoop makes the source restart from 0 when it ends
	SetLoop(loop bool) error

	// Progress returns the current position and total duration in seconds
	Progress() (position, duration float64, err error)

	// Events delivers time updates, natural ends and asynchronous errors
	Events() <-chan Event

	// Close releases the handle; it is not usable afterwards
	Close() error
}

// EventKind identifies a handle event
type EventKind int

const (
	EventTimeUpdate EventKind = iota
	EventEnded
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventTimeUpdate:
		return "time-update"
	case EventEnded:
		return "ended"
	case EventError:
		return "error"
	}
	return "unknown"
}

// Event is emitted by a Handle
type Event struct {
	Kind     EventKind
	Position float64
	Duration float64
	Err      error
}

// Backend names accepted by New
const (
	BackendMPV  = "mpv"
	BackendBeep = "beep"
)

// Options configures a handle
type Options struct {
	Backend string
	Volume  float64
	Fetch   Fetcher
}

// New creates a handle for the configured backend
func New(ctx context.Context, opts Options) (Handle, error) {
	switch opts.Backend {
	case "", BackendMPV:
		return NewMPV(ctx, opts.Volume)
	case BackendBeep:
		return NewBeep(ctx, opts.Fetch, opts.Volume)
	default:
		return nil, fmt.Errorf("unknown player backend %q", opts.Backend)
	}
}

// emit delivers ev without blocking forever on a closed consumer
func emit(ctx context.Context, ch chan<- Event, ev Event) {
	select {
	case ch <- ev:
	case <-ctx.Done():
	}
}
