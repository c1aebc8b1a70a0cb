package player

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/wildeyedskies/go-mpv/mpv"
	"github.com/yhkl-dev/tunecli/log"
	"github.com/yhkl-dev/tunecli/mpvplayer"
)

// ErrLoadFailed is reported when mpv ends a file before it finished loading
var ErrLoadFailed = errors.New("source could not be loaded")

// engine is the part of libmpv the handle drives
type engine interface {
	Load(url string) error
	Stop() error
	SetPaused(paused bool) error
	SeekAbsolute(seconds float64) error
	SetVolume(volume float64) error
	SetLoop(loop bool) error
	GetFloat(name string) (float64, error)
	WaitEvent(timeout float32) *mpv.Event
	Command(cmd []string) error
	TerminateDestroy()
}

var _ engine = (*mpvplayer.Mpvplayer)(nil)

// MPV implements Handle on top of libmpv
type MPV struct {
	engine engine
	events chan Event
	log    *logrus.Entry
	cancel context.CancelFunc
	done   chan struct{}

	mux     sync.Mutex
	pending chan error // completes the in-flight Load
	loaded  bool
	closed  bool
	// set once mpv starts the pending file; end-file events seen before
	// that belong to the source being replaced
	started bool
}

var _ Handle = (*MPV)(nil)

// NewMPV creates a handle backed by a new mpv instance
func NewMPV(ctx context.Context, volume float64) (*MPV, error) {
	instance, err := mpvplayer.CreateMPVInstance()
	if err != nil {
		return nil, fmt.Errorf("failed to create MPV instance: %w", err)
	}
	if err := instance.SetVolume(volume); err != nil {
		instance.TerminateDestroy()
		return nil, fmt.Errorf("set initial volume: %w", err)
	}

	p, ctx := newMPV(ctx, instance)
	go p.eventLoop(ctx)
	return p, nil
}

// newMPV wraps e; the returned context ends when the handle is closed
func newMPV(ctx context.Context, e engine) (*MPV, context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	return &MPV{
		engine: e,
		events: make(chan Event, 16),
		log:    log.Component("mpv"),
		cancel: cancel,
		done:   make(chan struct{}),
	}, ctx
}

func (p *MPV) Load(ctx context.Context, url string) error {
	done := make(chan error, 1)

	p.mux.Lock()
	if p.closed {
		p.mux.Unlock()
		return errors.New("mpv handle closed")
	}
	if p.pending != nil {
		p.pending <- context.Canceled
	}
	p.pending = done
	p.loaded = false
	p.started = false
	p.mux.Unlock()

	if err := p.engine.SetPaused(true); err != nil {
		p.clearPending(done)
		return fmt.Errorf("pause before load: %w", err)
	}
	if err := p.engine.Load(url); err != nil {
		p.clearPending(done)
		return fmt.Errorf("loadfile: %w", err)
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		p.clearPending(done)
		return ctx.Err()
	}
}

func (p *MPV) clearPending(ch chan error) {
	p.mux.Lock()
	defer p.mux.Unlock()
	if p.pending == ch {
		p.pending = nil
	}
}

func (p *MPV) Play() error {
	if !p.isLoaded() {
		return ErrNotLoaded
	}
	return p.engine.SetPaused(false)
}

func (p *MPV) Pause() error {
	if !p.isLoaded() {
		return nil
	}
	return p.engine.SetPaused(true)
}

// Stop unloads the current source and abandons a pending load
func (p *MPV) Stop() error {
	p.mux.Lock()
	active := p.loaded || p.pending != nil
	p.loaded = false
	if p.pending != nil {
		p.pending <- context.Canceled
		p.pending = nil
	}
	p.mux.Unlock()
	if !active {
		return nil
	}
	return p.engine.Stop()
}

func (p *MPV) Seek(seconds float64) error {
	if !p.isLoaded() {
		return ErrNotLoaded
	}
	return p.engine.SeekAbsolute(seconds)
}

func (p *MPV) SetVolume(volume float64) error {
	return p.engine.SetVolume(volume)
}

func (p *MPV) SetLoop(loop bool) error {
	return p.engine.SetLoop(loop)
}

func (p *MPV) Progress() (position, duration float64, err error) {
	if !p.isLoaded() {
		return 0, 0, ErrNotLoaded
	}
	position, err = p.engine.GetFloat("time-pos")
	if err != nil {
		return 0, 0, err
	}
	duration, err = p.engine.GetFloat("duration")
	if err != nil {
		return position, 0, err
	}
	return position, duration, nil
}

func (p *MPV) Events() <-chan Event {
	return p.events
}

// Close quits mpv and stops the event loop
func (p *MPV) Close() error {
	p.mux.Lock()
	if p.closed {
		p.mux.Unlock()
		return nil
	}
	p.closed = true
	p.mux.Unlock()

	p.cancel()
	<-p.done
	err := p.engine.Command([]string{"quit"})
	p.engine.TerminateDestroy()
	return err
}

func (p *MPV) isLoaded() bool {
	p.mux.Lock()
	defer p.mux.Unlock()
	return p.loaded
}

// eventLoop translates mpv events into handle events
func (p *MPV) eventLoop(ctx context.Context) {
	defer close(p.done)
	defer func() {
		if r := recover(); r != nil {
			p.log.Errorf("mpv event loop panic recovered: %v", r)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		e := p.engine.WaitEvent(0.1)
		if e == nil {
			time.Sleep(10 * time.Millisecond)
			continue
		}
		if e.Event_Id == mpv.EVENT_SHUTDOWN {
			return
		}
		p.handleEvent(ctx, e)
	}
}

func (p *MPV) handleEvent(ctx context.Context, e *mpv.Event) {
	switch e.Event_Id {
	case mpv.EVENT_START_FILE:
		p.mux.Lock()
		p.started = p.pending != nil
		p.mux.Unlock()
	case mpv.EVENT_FILE_LOADED:
		p.onFileLoaded()
	case mpv.EVENT_END_FILE:
		ef, ok := e.Data.(mpv.EventEndFile)
		if !ok {
			p.log.Warnf("end-file without details: %T", e.Data)
			return
		}
		p.onEndFile(ctx, ef)
	case mpv.EVENT_PROPERTY_CHANGE:
		if e.Reply_Userdata != mpvplayer.ObserveTimePos || !p.isLoaded() {
			return
		}
		pos, dur, err := p.Progress()
		if err != nil {
			return
		}
		emit(ctx, p.events, Event{Kind: EventTimeUpdate, Position: pos, Duration: dur})
	}
}

func (p *MPV) onFileLoaded() {
	p.mux.Lock()
	defer p.mux.Unlock()
	if p.pending == nil {
		return
	}
	p.loaded = true
	p.pending <- nil
	p.pending = nil
}

func (p *MPV) onEndFile(ctx context.Context, ef mpv.EventEndFile) {
	p.mux.Lock()
	if p.pending != nil && !p.started {
		p.mux.Unlock()
		p.log.Debugf("end-file (%s) of a replaced source", ef.Reason)
		return
	}

	var ev Event
	switch ef.Reason {
	case mpv.END_FILE_REASON_EOF:
		ev = Event{Kind: EventEnded}
	case mpv.END_FILE_REASON_ERROR:
		ev = Event{Kind: EventError, Err: fmt.Errorf("mpv: %w", ef.ErrCode)}
	default:
		// stop, quit and redirect are caused by our own commands
		p.mux.Unlock()
		return
	}

	if p.pending != nil {
		cause := ErrLoadFailed
		if ev.Err != nil {
			cause = fmt.Errorf("%w: %w", ErrLoadFailed, ev.Err)
		}
		p.pending <- cause
		p.pending = nil
		p.mux.Unlock()
		return
	}
	wasLoaded := p.loaded
	p.loaded = false
	p.mux.Unlock()

	if wasLoaded {
		emit(ctx, p.events, ev)
	}
}
