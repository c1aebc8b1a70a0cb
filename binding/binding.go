// Package binding drives the media handle from the playback session.
//
// A single actor goroutine owns the handle. Session mutations only wake the
// actor; it then diffs the latest snapshot against what it last applied, so
// a burst of changes collapses into the final state. Loads run in their own
// goroutine and are tagged with a sequence number: a completion that is not
// the latest request is discarded.
package binding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc"
	"go.uber.org/atomic"
	"go.uber.org/multierr"

	"github.com/yhkl-dev/tunecli/domain"
	"github.com/yhkl-dev/tunecli/log"
	"github.com/yhkl-dev/tunecli/player"
	"github.com/yhkl-dev/tunecli/progress"
	"github.com/yhkl-dev/tunecli/session"
)

// ErrClosed is returned by Seek after Close
var ErrClosed = errors.New("media binding closed")

// PlayReporter receives the fire-and-forget play-count notification
type PlayReporter interface {
	NotifyPlay(ctx context.Context, trackID string) error
}

// Options configures a Binding
type Options struct {
	LoadTimeout   time.Duration
	NotifyTimeout time.Duration
	Plays         PlayReporter
	Notify        Notifier
}

type loadResult struct {
	seq   uint64
	track domain.Track
	err   error
}

type seekRequest struct {
	seconds float64
	reply   chan error
}

// Binding reacts to session changes and owns the media handle
type Binding struct {
	session  *session.Session
	handle   player.Handle
	progress *progress.Reporter
	opts     Options
	log      *logrus.Entry

	wake  chan struct{}
	loads chan loadResult
	seeks chan seekRequest
	seq   *atomic.Uint64

	wg       conc.WaitGroup
	cancel   context.CancelFunc
	done     chan struct{}
	closed   *atomic.Bool
	closeErr error

	// actor state
	synced        bool
	applied       domain.Snapshot
	trackID       string
	loading       bool
	loaded        bool
	handlePlaying bool
	countedSeq    uint64
	cancelLoad    context.CancelFunc
}

// New creates a binding; Start must be called to run it
func New(s *session.Session, h player.Handle, r *progress.Reporter, opts Options) *Binding {
	if opts.LoadTimeout <= 0 {
		opts.LoadTimeout = 30 * time.Second
	}
	if opts.NotifyTimeout <= 0 {
		opts.NotifyTimeout = 5 * time.Second
	}
	if opts.Notify == nil {
		opts.Notify = NotifierFunc(func(Notice) {})
	}

	b := &Binding{
		session:  s,
		handle:   h,
		progress: r,
		opts:     opts,
		log:      log.Component("binding").WithField("session", s.ID()),
		wake:     make(chan struct{}, 1),
		loads:    make(chan loadResult, 1),
		seeks:    make(chan seekRequest),
		seq:      atomic.NewUint64(0),
		done:     make(chan struct{}),
		closed:   atomic.NewBool(false),
	}
	r.SetSeeker(b)
	s.OnChange(func(domain.Snapshot) { b.poke() })
	return b
}

// Start runs the actor until ctx is done or Close is called
func (b *Binding) Start(ctx context.Context) {
	ctx, b.cancel = context.WithCancel(ctx)
	b.poke()
	b.wg.Go(func() {
		defer close(b.done)
		b.run(ctx)
	})
}

// Close stops the actor and releases the handle
func (b *Binding) Close() error {
	if !b.closed.CAS(false, true) {
		return nil
	}
	if b.cancel == nil {
		// never started, so no actor will release the handle
		b.release()
		return b.closeErr
	}
	b.cancel()
	if r := b.wg.WaitAndRecover(); r != nil {
		b.log.Errorf("binding goroutine panicked: %v", r.Value)
		return multierr.Append(b.closeErr, r.AsError())
	}
	return b.closeErr
}

// Seek moves the handle to an absolute position; used by the progress reporter
func (b *Binding) Seek(seconds float64) error {
	if b.closed.Load() || b.cancel == nil {
		return ErrClosed
	}
	req := seekRequest{seconds: seconds, reply: make(chan error, 1)}
	select {
	case b.seeks <- req:
	case <-b.done:
		return ErrClosed
	}
	select {
	case err := <-req.reply:
		return err
	case <-b.done:
		return ErrClosed
	}
}

func (b *Binding) poke() {
	select {
	case b.wake <- struct{}{}:
	default:
	}
}

func (b *Binding) run(ctx context.Context) {
	defer b.release()

	events := b.handle.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case <-b.wake:
			b.sync(ctx)
		case res := <-b.loads:
			b.onLoaded(ctx, res)
		case ev, ok := <-events:
			if !ok {
				b.log.Warn("media handle event stream closed")
				return
			}
			b.onEvent(ctx, ev)
		case req := <-b.seeks:
			req.reply <- b.seek(req.seconds)
		}
	}
}

// release stops playback and frees the handle on every exit path
func (b *Binding) release() {
	if b.cancelLoad != nil {
		b.cancelLoad()
		b.cancelLoad = nil
	}
	b.closeErr = multierr.Combine(b.handle.Stop(), b.handle.Close())
	if b.closeErr != nil {
		b.log.WithError(b.closeErr).Warn("release media handle")
	}
}

func (b *Binding) sync(ctx context.Context) {
	snap := b.session.Snapshot()
	if b.synced && snap.Version == b.applied.Version {
		return
	}
	first := !b.synced
	b.synced = true

	if first || snap.Volume != b.applied.Volume {
		if err := b.handle.SetVolume(snap.Volume); err != nil {
			b.log.WithError(err).Warn("set volume")
		}
	}
	if first || snap.Repeat != b.applied.Repeat {
		if err := b.handle.SetLoop(snap.Repeat); err != nil {
			b.log.WithError(err).Warn("set loop")
		}
	}

	cur, _, hasCur := snap.Current()
	switch {
	case cur.ID != b.trackID:
		b.switchTrack(ctx, cur, hasCur, snap.IsPlaying)
	case !hasCur || b.loading:
		// a pending load applies the play flag when it completes
	case !b.loaded && snap.IsPlaying:
		// user asked again after a failure or a natural end
		b.startLoad(ctx, cur)
	case b.loaded && snap.IsPlaying != b.handlePlaying:
		if snap.IsPlaying {
			b.play(ctx, cur)
		} else {
			b.pause()
		}
	}
	b.applied = snap
}

func (b *Binding) switchTrack(ctx context.Context, cur domain.Track, hasCur, playing bool) {
	if b.cancelLoad != nil {
		b.cancelLoad()
		b.cancelLoad = nil
	}
	b.trackID = cur.ID
	b.loading = false
	b.loaded = false
	b.handlePlaying = false
	b.progress.Reset(cur.DurationSeconds())

	if err := b.handle.Stop(); err != nil {
		b.log.WithError(err).Debug("stop before switching")
	}
	if !hasCur {
		return
	}
	if playing {
		b.startLoad(ctx, cur)
		return
	}
	// a paused selection (catalog refetch) is loaded lazily on play
	b.seq.Inc()
}

func (b *Binding) startLoad(ctx context.Context, t domain.Track) {
	seq := b.seq.Inc()
	lctx, cancel := context.WithTimeout(ctx, b.opts.LoadTimeout)
	b.cancelLoad = cancel
	b.loading = true
	b.log.WithField("track", t.ID).Debugf("load #%d %s", seq, t.AudioURL)

	b.wg.Go(func() {
		err := b.handle.Load(lctx, t.AudioURL)
		select {
		case b.loads <- loadResult{seq: seq, track: t, err: err}:
		case <-ctx.Done():
		}
	})
}

func (b *Binding) onLoaded(ctx context.Context, res loadResult) {
	if res.seq != b.seq.Load() || res.track.ID != b.trackID {
		b.log.WithField("track", res.track.ID).Debugf("discard stale load #%d", res.seq)
		return
	}
	b.loading = false
	if b.cancelLoad != nil {
		b.cancelLoad()
		b.cancelLoad = nil
	}

	if res.err != nil {
		if ctx.Err() != nil {
			return
		}
		b.session.Stop(res.track.ID, res.err)
		b.opts.Notify.Notify(Notice{Kind: LoadFailed, Track: res.track, Err: res.err})
		return
	}

	b.loaded = true
	if d, ok := res.track.Duration.Get(); ok {
		b.progress.Reset(d)
	}
	snap := b.session.Snapshot()
	if cur, _, ok := snap.Current(); ok && cur.ID == res.track.ID && snap.IsPlaying {
		b.play(ctx, cur)
	}
}

func (b *Binding) play(ctx context.Context, t domain.Track) {
	if err := b.handle.Play(); err != nil {
		b.handlePlaying = false
		b.session.Stop(t.ID, err)
		b.opts.Notify.Notify(Notice{Kind: PlaybackRejected, Track: t, Err: err})
		return
	}
	b.handlePlaying = true

	seq := b.seq.Load()
	if b.countedSeq == seq || b.opts.Plays == nil {
		return
	}
	b.countedSeq = seq
	b.wg.Go(func() {
		nctx, cancel := context.WithTimeout(ctx, b.opts.NotifyTimeout)
		defer cancel()
		if err := b.opts.Plays.NotifyPlay(nctx, t.ID); err != nil {
			b.log.WithField("track", t.ID).WithError(err).Debug("play count notification failed")
		}
	})
}

func (b *Binding) pause() {
	if err := b.handle.Pause(); err != nil {
		b.log.WithError(err).Warn("pause")
	}
	b.handlePlaying = false
}

func (b *Binding) seek(seconds float64) error {
	if !b.loaded {
		return player.ErrNotLoaded
	}
	if err := b.handle.Seek(seconds); err != nil {
		return fmt.Errorf("seek handle: %w", err)
	}
	return nil
}

func (b *Binding) onEvent(ctx context.Context, ev player.Event) {
	if ev.Kind != player.EventTimeUpdate && (!b.loaded || b.loading) {
		// the source this event belongs to was replaced or never loaded
		b.log.WithField("track", b.trackID).Debugf("drop %s for stale source", ev.Kind)
		return
	}
	switch ev.Kind {
	case player.EventTimeUpdate:
		if b.loaded {
			b.progress.Update(ev.Position, ev.Duration)
		}
	case player.EventEnded:
		b.onEnded(ctx)
	case player.EventError:
		b.loaded = false
		b.handlePlaying = false
		if cur, ok := b.session.Current(); ok {
			b.session.Stop(cur.ID, ev.Err)
			b.opts.Notify.Notify(Notice{Kind: PlaybackError, Track: cur, Err: ev.Err})
		}
	}
}

func (b *Binding) onEnded(ctx context.Context) {
	b.handlePlaying = false

	snap := b.session.Snapshot()
	cur, _, ok := snap.Current()
	if !ok {
		b.loaded = false
		return
	}
	if !snap.Repeat {
		b.loaded = false
		b.session.Advance(domain.Forward)
		return
	}

	b.log.WithField("track", cur.ID).Debug("repeat")
	b.progress.Reset(cur.DurationSeconds())
	if err := b.rewind(); err == nil {
		b.handlePlaying = true
		return
	}
	// the handle already unloaded the source
	b.loaded = false
	b.startLoad(ctx, cur)
}

func (b *Binding) rewind() error {
	if !b.loaded {
		return player.ErrNotLoaded
	}
	return multierr.Append(b.handle.Seek(0), b.handle.Play())
}
