package binding

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yhkl-dev/tunecli/domain"
	"github.com/yhkl-dev/tunecli/player"
	"github.com/yhkl-dev/tunecli/progress"
	"github.com/yhkl-dev/tunecli/session"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

type fakeHandle struct {
	mu      sync.Mutex
	loads   []string
	fail    map[string]error
	block   map[string]chan struct{}
	playErr error
	current string
	playing bool
	volume  float64
	loop    bool
	seeks   []float64
	closed  bool
	stops   int
	events  chan player.Event
}

func newFakeHandle() *fakeHandle {
	return &fakeHandle{
		fail:   map[string]error{},
		block:  map[string]chan struct{}{},
		events: make(chan player.Event, 8),
	}
}

func (f *fakeHandle) Load(ctx context.Context, url string) error {
	f.mu.Lock()
	f.loads = append(f.loads, url)
	gate := f.block[url]
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail[url]; err != nil {
		return err
	}
	f.current = url
	f.playing = false
	return nil
}

func (f *fakeHandle) Play() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current == "" {
		return player.ErrNotLoaded
	}
	if f.playErr != nil {
		return f.playErr
	}
	f.playing = true
	return nil
}

func (f *fakeHandle) Pause() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playing = false
	return nil
}

func (f *fakeHandle) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	f.current = ""
	f.playing = false
	return nil
}

func (f *fakeHandle) Seek(seconds float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seeks = append(f.seeks, seconds)
	return nil
}

func (f *fakeHandle) SetVolume(v float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.volume = v
	return nil
}

func (f *fakeHandle) SetLoop(loop bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loop = loop
	return nil
}

func (f *fakeHandle) Progress() (float64, float64, error) { return 0, 0, nil }

func (f *fakeHandle) Events() <-chan player.Event { return f.events }

func (f *fakeHandle) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeHandle) state() (current string, playing bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current, f.playing
}

func (f *fakeHandle) loadCount(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, l := range f.loads {
		if l == url {
			n++
		}
	}
	return n
}

type playLog struct {
	mu  sync.Mutex
	ids []string
}

func (p *playLog) NotifyPlay(_ context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ids = append(p.ids, id)
	return nil
}

func (p *playLog) list() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.ids)
}

type noticeLog struct {
	mu      sync.Mutex
	notices []Notice
}

func (n *noticeLog) Notify(no Notice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, no)
}

func (n *noticeLog) kinds() []NoticeKind {
	n.mu.Lock()
	defer n.mu.Unlock()
	kinds := make([]NoticeKind, 0, len(n.notices))
	for _, no := range n.notices {
		kinds = append(kinds, no.Kind)
	}
	return kinds
}

func track(id string) domain.Track {
	return domain.Track{
		ID:       id,
		Title:    "Song " + id,
		Artist:   domain.Artist{ID: "ar", Name: "Artist"},
		AudioURL: "https://cdn.example/" + id + ".mp3",
		Duration: mo.Some(200.0),
	}
}

type fixture struct {
	session  *session.Session
	handle   *fakeHandle
	reporter *progress.Reporter
	plays    *playLog
	notices  *noticeLog
	binding  *Binding
	tracks   []domain.Track
}

func setup(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		session:  session.New(nil, 0.5),
		handle:   newFakeHandle(),
		reporter: progress.NewReporter(nil),
		plays:    &playLog{},
		notices:  &noticeLog{},
		tracks:   []domain.Track{track("a"), track("b"), track("c")},
	}
	f.session.SetTracks(f.tracks)
	f.binding = New(f.session, f.handle, f.reporter, Options{Plays: f.plays, Notify: f.notices})
	f.binding.Start(context.Background())
	t.Cleanup(func() { _ = f.binding.Close() })
	return f
}

func (f *fixture) playingURL(t *testing.T, url string) {
	t.Helper()
	require.Eventually(t, func() bool {
		cur, playing := f.handle.state()
		return cur == url && playing
	}, waitFor, tick, "expected %s to be playing", url)
}

func TestSelectStartsPlayback(t *testing.T) {
	f := setup(t)

	require.NoError(t, f.session.SelectTrack(f.tracks[0]))
	f.playingURL(t, f.tracks[0].AudioURL)

	require.Eventually(t, func() bool {
		return slices.Equal(f.plays.list(), []string{"a"})
	}, waitFor, tick)
}

func TestSelectSameTrackPauses(t *testing.T) {
	f := setup(t)

	require.NoError(t, f.session.SelectTrack(f.tracks[0]))
	f.playingURL(t, f.tracks[0].AudioURL)

	require.NoError(t, f.session.SelectTrack(f.tracks[0]))
	require.Eventually(t, func() bool {
		cur, playing := f.handle.state()
		return cur == f.tracks[0].AudioURL && !playing
	}, waitFor, tick)

	require.NoError(t, f.session.SelectTrack(f.tracks[0]))
	f.playingURL(t, f.tracks[0].AudioURL)
	assert.Equal(t, 1, f.handle.loadCount(f.tracks[0].AudioURL))
	require.Eventually(t, func() bool {
		return slices.Equal(f.plays.list(), []string{"a"})
	}, waitFor, tick)
}

func TestTrackEndAdvances(t *testing.T) {
	f := setup(t)

	require.NoError(t, f.session.SelectTrack(f.tracks[1]))
	f.playingURL(t, f.tracks[1].AudioURL)

	f.handle.events <- player.Event{Kind: player.EventEnded}
	f.playingURL(t, f.tracks[2].AudioURL)
	cur, ok := f.session.Current()
	require.True(t, ok)
	assert.Equal(t, "c", cur.ID)

	f.handle.events <- player.Event{Kind: player.EventEnded}
	f.playingURL(t, f.tracks[0].AudioURL)
	cur, _ = f.session.Current()
	assert.Equal(t, "a", cur.ID)
}

func TestTrackEndWithRepeatRestarts(t *testing.T) {
	f := setup(t)
	f.session.SetRepeat(true)

	require.NoError(t, f.session.SelectTrack(f.tracks[0]))
	f.playingURL(t, f.tracks[0].AudioURL)

	f.handle.events <- player.Event{Kind: player.EventEnded}
	require.Eventually(t, func() bool {
		f.handle.mu.Lock()
		defer f.handle.mu.Unlock()
		return slices.Equal(f.handle.seeks, []float64{0})
	}, waitFor, tick)
	f.playingURL(t, f.tracks[0].AudioURL)

	cur, _ := f.session.Current()
	assert.Equal(t, "a", cur.ID)
	assert.True(t, f.session.Snapshot().IsPlaying)
	assert.Equal(t, 1, f.handle.loadCount(f.tracks[0].AudioURL))
	f.handle.mu.Lock()
	assert.True(t, f.handle.loop)
	f.handle.mu.Unlock()
}

func TestTrackEndWithRepeatReloadsUnloadedSource(t *testing.T) {
	f := setup(t)
	f.session.SetRepeat(true)

	require.NoError(t, f.session.SelectTrack(f.tracks[0]))
	f.playingURL(t, f.tracks[0].AudioURL)

	require.NoError(t, f.handle.Stop())
	f.handle.events <- player.Event{Kind: player.EventEnded}
	require.Eventually(t, func() bool {
		return f.handle.loadCount(f.tracks[0].AudioURL) == 2
	}, waitFor, tick)
	f.playingURL(t, f.tracks[0].AudioURL)
}

func TestLoadFailureStopsPlaying(t *testing.T) {
	f := setup(t)
	f.handle.fail[f.tracks[0].AudioURL] = errors.New("404")

	require.NoError(t, f.session.SelectTrack(f.tracks[0]))
	require.Eventually(t, func() bool {
		return !f.session.Snapshot().IsPlaying
	}, waitFor, tick)

	cur, ok := f.session.Current()
	require.True(t, ok)
	assert.Equal(t, "a", cur.ID)
	assert.Equal(t, []NoticeKind{LoadFailed}, f.notices.kinds())
	assert.Empty(t, f.plays.list())
}

func TestPlayRejected(t *testing.T) {
	f := setup(t)
	f.handle.playErr = errors.New("autoplay blocked")

	require.NoError(t, f.session.SelectTrack(f.tracks[0]))
	require.Eventually(t, func() bool {
		return !f.session.Snapshot().IsPlaying
	}, waitFor, tick)
	assert.Equal(t, []NoticeKind{PlaybackRejected}, f.notices.kinds())
}

func TestRapidSwitchLastWriteWins(t *testing.T) {
	f := setup(t)
	gate := make(chan struct{})
	f.handle.block[f.tracks[0].AudioURL] = gate

	require.NoError(t, f.session.SelectTrack(f.tracks[0]))
	require.Eventually(t, func() bool {
		return f.handle.loadCount(f.tracks[0].AudioURL) == 1
	}, waitFor, tick)
	require.NoError(t, f.session.SelectTrack(f.tracks[1]))
	close(gate)

	f.playingURL(t, f.tracks[1].AudioURL)
	assert.Never(t, func() bool {
		cur, _ := f.handle.state()
		return cur == f.tracks[0].AudioURL
	}, 50*time.Millisecond, tick)
	assert.Empty(t, f.notices.kinds())
	require.Eventually(t, func() bool {
		return slices.Equal(f.plays.list(), []string{"b"})
	}, waitFor, tick)
}

func TestModifiersReachHandle(t *testing.T) {
	f := setup(t)

	f.session.SetVolume(0.3)
	f.session.SetRepeat(true)
	require.Eventually(t, func() bool {
		f.handle.mu.Lock()
		defer f.handle.mu.Unlock()
		return f.handle.volume == 0.3 && f.handle.loop
	}, waitFor, tick)
}

func TestTimeUpdateAndSeek(t *testing.T) {
	f := setup(t)

	assert.ErrorIs(t, f.binding.Seek(10), player.ErrNotLoaded)

	require.NoError(t, f.session.SelectTrack(f.tracks[0]))
	f.playingURL(t, f.tracks[0].AudioURL)

	f.handle.events <- player.Event{Kind: player.EventTimeUpdate, Position: 30, Duration: 180}
	require.Eventually(t, func() bool {
		pos, dur := f.reporter.Position()
		return pos == 30 && dur == 180
	}, waitFor, tick)

	require.NoError(t, f.reporter.Seek(50))
	f.handle.mu.Lock()
	assert.Equal(t, []float64{90}, f.handle.seeks)
	f.handle.mu.Unlock()
	pos, _ := f.reporter.Position()
	assert.Equal(t, 90.0, pos)
}

func TestTrackChangeResetsProgress(t *testing.T) {
	f := setup(t)

	require.NoError(t, f.session.SelectTrack(f.tracks[0]))
	f.playingURL(t, f.tracks[0].AudioURL)
	f.handle.events <- player.Event{Kind: player.EventTimeUpdate, Position: 42, Duration: 200}
	require.Eventually(t, func() bool {
		pos, _ := f.reporter.Position()
		return pos == 42
	}, waitFor, tick)

	f.session.Advance(domain.Forward)
	f.playingURL(t, f.tracks[1].AudioURL)
	pos, dur := f.reporter.Position()
	assert.Equal(t, 0.0, pos)
	assert.Equal(t, 200.0, dur)
}

func TestHandleErrorStopsSession(t *testing.T) {
	f := setup(t)

	require.NoError(t, f.session.SelectTrack(f.tracks[2]))
	f.playingURL(t, f.tracks[2].AudioURL)

	f.handle.events <- player.Event{Kind: player.EventError, Err: errors.New("decoder died")}
	require.Eventually(t, func() bool {
		return !f.session.Snapshot().IsPlaying
	}, waitFor, tick)
	assert.Equal(t, []NoticeKind{PlaybackError}, f.notices.kinds())
}

func TestCloseReleasesHandle(t *testing.T) {
	f := setup(t)

	require.NoError(t, f.binding.Close())
	f.handle.mu.Lock()
	assert.True(t, f.handle.closed)
	f.handle.mu.Unlock()

	assert.ErrorIs(t, f.binding.Seek(1), ErrClosed)
	assert.NoError(t, f.binding.Close())
}

func TestEndOfReplacedSourceIsIgnored(t *testing.T) {
	f := setup(t)

	require.NoError(t, f.session.SelectTrack(f.tracks[0]))
	f.playingURL(t, f.tracks[0].AudioURL)

	gate := make(chan struct{})
	f.handle.block[f.tracks[1].AudioURL] = gate
	require.NoError(t, f.session.SelectTrack(f.tracks[1]))
	require.Eventually(t, func() bool {
		return f.handle.loadCount(f.tracks[1].AudioURL) == 1
	}, waitFor, tick)

	// a's natural end was already queued when b was selected
	f.handle.events <- player.Event{Kind: player.EventEnded}
	require.Eventually(t, func() bool { return len(f.handle.events) == 0 }, waitFor, tick)
	close(gate)

	f.playingURL(t, f.tracks[1].AudioURL)
	cur, ok := f.session.Current()
	require.True(t, ok)
	assert.Equal(t, "b", cur.ID)
	assert.Zero(t, f.handle.loadCount(f.tracks[2].AudioURL))
	assert.Empty(t, f.notices.kinds())
}

func TestErrorOfReplacedSourceIsIgnored(t *testing.T) {
	f := setup(t)

	require.NoError(t, f.session.SelectTrack(f.tracks[0]))
	f.playingURL(t, f.tracks[0].AudioURL)

	gate := make(chan struct{})
	f.handle.block[f.tracks[1].AudioURL] = gate
	require.NoError(t, f.session.SelectTrack(f.tracks[1]))
	require.Eventually(t, func() bool {
		return f.handle.loadCount(f.tracks[1].AudioURL) == 1
	}, waitFor, tick)

	f.handle.events <- player.Event{Kind: player.EventError, Err: errors.New("decoder died")}
	require.Eventually(t, func() bool { return len(f.handle.events) == 0 }, waitFor, tick)
	close(gate)

	f.playingURL(t, f.tracks[1].AudioURL)
	assert.True(t, f.session.Snapshot().IsPlaying)
	assert.Empty(t, f.notices.kinds())
}

func TestCloseWithoutStartReleasesHandle(t *testing.T) {
	s := session.New(nil, 0.5)
	h := newFakeHandle()
	b := New(s, h, progress.NewReporter(nil), Options{})

	require.NoError(t, b.Close())
	h.mu.Lock()
	assert.True(t, h.closed)
	assert.Equal(t, 1, h.stops)
	h.mu.Unlock()
	assert.ErrorIs(t, b.Seek(1), ErrClosed)
}
