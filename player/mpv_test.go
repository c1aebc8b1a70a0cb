package player

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wildeyedskies/go-mpv/mpv"
)

type fakeEngine struct {
	mu      sync.Mutex
	calls   []string
	loadErr error
}

func (f *fakeEngine) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeEngine) called(call string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Contains(f.calls, call)
}

func (f *fakeEngine) Load(url string) error {
	f.record("loadfile " + url)
	return f.loadErr
}

func (f *fakeEngine) Stop() error {
	f.record("stop")
	return nil
}

func (f *fakeEngine) SetPaused(paused bool) error {
	f.record(fmt.Sprintf("pause %v", paused))
	return nil
}

func (f *fakeEngine) SeekAbsolute(seconds float64) error {
	f.record(fmt.Sprintf("seek %.0f", seconds))
	return nil
}

func (f *fakeEngine) SetVolume(volume float64) error { return nil }

func (f *fakeEngine) SetLoop(loop bool) error { return nil }

func (f *fakeEngine) GetFloat(name string) (float64, error) {
	if name == "duration" {
		return 200, nil
	}
	return 12, nil
}

func (f *fakeEngine) WaitEvent(float32) *mpv.Event { return nil }

func (f *fakeEngine) Command(cmd []string) error {
	f.record(cmd[0])
	return nil
}

func (f *fakeEngine) TerminateDestroy() { f.record("destroy") }

type mpvFixture struct {
	engine *fakeEngine
	p      *MPV
	ctx    context.Context
}

func newMPVFixture(t *testing.T) *mpvFixture {
	t.Helper()
	e := &fakeEngine{}
	p, ctx := newMPV(context.Background(), e)
	go p.eventLoop(ctx)
	t.Cleanup(func() { _ = p.Close() })
	return &mpvFixture{engine: e, p: p, ctx: ctx}
}

// load starts Load in the background and waits for the loadfile command
func (f *mpvFixture) load(t *testing.T, url string) <-chan error {
	t.Helper()
	res := make(chan error, 1)
	go func() { res <- f.p.Load(context.Background(), url) }()
	require.Eventually(t, func() bool { return f.engine.called("loadfile " + url) }, time.Second, time.Millisecond)
	return res
}

func (f *mpvFixture) send(ids ...mpv.EventId) {
	for _, id := range ids {
		f.p.handleEvent(f.ctx, &mpv.Event{Event_Id: id})
	}
}

func (f *mpvFixture) endFile(reason mpv.EndFileReason, code mpv.Error) {
	f.p.handleEvent(f.ctx, &mpv.Event{
		Event_Id: mpv.EVENT_END_FILE,
		Data:     mpv.EventEndFile{Reason: reason, ErrCode: code},
	})
}

// loaded brings url to the loaded state
func (f *mpvFixture) loaded(t *testing.T, url string) {
	t.Helper()
	res := f.load(t, url)
	f.send(mpv.EVENT_START_FILE, mpv.EVENT_FILE_LOADED)
	require.NoError(t, <-res)
}

func (f *mpvFixture) nextEvent() (Event, bool) {
	select {
	case ev := <-f.p.events:
		return ev, true
	default:
		return Event{}, false
	}
}

func pendingResult(res <-chan error) (error, bool) {
	select {
	case err := <-res:
		return err, true
	case <-time.After(20 * time.Millisecond):
		return nil, false
	}
}

func TestMPVLoadAndPlay(t *testing.T) {
	f := newMPVFixture(t)

	assert.ErrorIs(t, f.p.Play(), ErrNotLoaded)
	f.loaded(t, "a.mp3")
	require.NoError(t, f.p.Play())
	assert.True(t, f.engine.called("pause false"))

	pos, dur, err := f.p.Progress()
	require.NoError(t, err)
	assert.Equal(t, 12.0, pos)
	assert.Equal(t, 200.0, dur)
}

func TestMPVStopThenLoadIgnoresEndOfPreviousFile(t *testing.T) {
	for _, reason := range []mpv.EndFileReason{mpv.END_FILE_REASON_STOP, mpv.END_FILE_REASON_EOF, mpv.END_FILE_REASON_ERROR} {
		t.Run(reason.String(), func(t *testing.T) {
			f := newMPVFixture(t)
			f.loaded(t, "a.mp3")

			require.NoError(t, f.p.Stop())
			assert.True(t, f.engine.called("stop"))
			res := f.load(t, "b.mp3")

			// a's end-file arrives while b is loading
			f.endFile(reason, mpv.ERROR_LOADING_FAILED)
			_, done := pendingResult(res)
			require.False(t, done, "end of the previous file must not settle the new load")

			f.send(mpv.EVENT_START_FILE, mpv.EVENT_FILE_LOADED)
			require.NoError(t, <-res)
			_, emitted := f.nextEvent()
			assert.False(t, emitted)
		})
	}
}

func TestMPVReplaceWhileLoadingCancelsFirstLoad(t *testing.T) {
	f := newMPVFixture(t)

	first := f.load(t, "a.mp3")
	second := f.load(t, "b.mp3")
	assert.ErrorIs(t, <-first, context.Canceled)

	f.endFile(mpv.END_FILE_REASON_STOP, mpv.ERROR_SUCCESS)
	f.send(mpv.EVENT_START_FILE, mpv.EVENT_FILE_LOADED)
	require.NoError(t, <-second)
}

func TestMPVStopAbandonsPendingLoad(t *testing.T) {
	f := newMPVFixture(t)

	res := f.load(t, "a.mp3")
	f.send(mpv.EVENT_START_FILE)
	require.NoError(t, f.p.Stop())
	assert.ErrorIs(t, <-res, context.Canceled)
	assert.True(t, f.engine.called("stop"))

	f.endFile(mpv.END_FILE_REASON_STOP, mpv.ERROR_SUCCESS)
	_, emitted := f.nextEvent()
	assert.False(t, emitted)
}

func TestMPVLoadError(t *testing.T) {
	f := newMPVFixture(t)

	res := f.load(t, "missing.mp3")
	f.send(mpv.EVENT_START_FILE)
	f.endFile(mpv.END_FILE_REASON_ERROR, mpv.ERROR_LOADING_FAILED)

	err := <-res
	assert.ErrorIs(t, err, ErrLoadFailed)
	assert.ErrorIs(t, err, mpv.ERROR_LOADING_FAILED)
	_, emitted := f.nextEvent()
	assert.False(t, emitted)
}

func TestMPVLoadfileRejected(t *testing.T) {
	f := newMPVFixture(t)
	f.engine.loadErr = mpv.ERROR_INVALID_PARAMETER

	err := f.p.Load(context.Background(), "bad")
	assert.ErrorIs(t, err, mpv.ERROR_INVALID_PARAMETER)
	assert.ErrorIs(t, f.p.Seek(1), ErrNotLoaded)
}

func TestMPVEndOfLoadedFile(t *testing.T) {
	cases := []struct {
		name   string
		reason mpv.EndFileReason
		code   mpv.Error
		emits  bool
		want   EventKind
	}{
		{"eof", mpv.END_FILE_REASON_EOF, mpv.ERROR_SUCCESS, true, EventEnded},
		{"error", mpv.END_FILE_REASON_ERROR, mpv.ERROR_UNKNOWN_FORMAT, true, EventError},
		{"stop", mpv.END_FILE_REASON_STOP, mpv.ERROR_SUCCESS, false, 0},
		{"redirect", mpv.END_FILE_REASON_REDIRECT, mpv.ERROR_SUCCESS, false, 0},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			f := newMPVFixture(t)
			f.loaded(t, "a.mp3")

			f.endFile(c.reason, c.code)
			ev, emitted := f.nextEvent()
			require.Equal(t, c.emits, emitted)
			if !emitted {
				return
			}
			assert.Equal(t, c.want, ev.Kind)
			assert.ErrorIs(t, f.p.Play(), ErrNotLoaded)
			if ev.Kind == EventError {
				assert.ErrorIs(t, ev.Err, c.code)
			}
		})
	}
}
