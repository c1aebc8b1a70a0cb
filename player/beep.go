package player

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/effects"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/vorbis"
	"github.com/faiface/beep/wav"
	"github.com/sirupsen/logrus"
	"github.com/yhkl-dev/tunecli/log"
)

const speakerRate = beep.SampleRate(44100)

var (
	speakerOnce sync.Once
	speakerErr  error
)

// ErrUnsupportedFormat is returned for sources beep cannot decode
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// Fetcher downloads an audio source
type Fetcher interface {
	Fetch(ctx context.Context, url string) (data []byte, contentType string, err error)
}

// HTTPFetcher fetches sources over HTTP
type HTTPFetcher struct {
	Client *http.Client
}

func (f HTTPFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("create request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch source: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("fetch source: unexpected status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read source: %w", err)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

type decodeFunc func(rc io.ReadCloser) (beep.StreamSeekCloser, beep.Format, error)

// decoderFor picks a decoder by content type, then by URL suffix
func decoderFor(contentType, rawURL string) (decodeFunc, error) {
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		switch mt {
		case "audio/mpeg", "audio/mp3":
			return mp3.Decode, nil
		case "audio/ogg", "audio/vorbis", "application/ogg":
			return vorbis.Decode, nil
		case "audio/wav", "audio/x-wav", "audio/wave":
			return decodeWav, nil
		}
	}

	p := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		p = u.Path
	}
	switch strings.ToLower(path.Ext(p)) {
	case ".mp3":
		return mp3.Decode, nil
	case ".ogg", ".oga":
		return vorbis.Decode, nil
	case ".wav":
		return decodeWav, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, contentType)
}

func decodeWav(rc io.ReadCloser) (beep.StreamSeekCloser, beep.Format, error) {
	return wav.Decode(rc)
}

// memSource lets decoders seek in a downloaded source
type memSource struct {
	*bytes.Reader
}

func (memSource) Close() error { return nil }

type beepTrack struct {
	gen      uint64
	streamer beep.StreamSeekCloser
	format   beep.Format
	ctrl     *beep.Ctrl
	volume   *effects.Volume
}

// Beep implements Handle with a pure Go decoding pipeline
type Beep struct {
	fetch  Fetcher
	events chan Event
	log    *logrus.Entry
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mux     sync.Mutex
	gen     uint64
	track   *beepTrack
	volume  float64
	loop    bool
	playing bool
	closed  bool
}

var _ Handle = (*Beep)(nil)

// NewBeep creates a handle playing through the default audio device
func NewBeep(ctx context.Context, fetch Fetcher, volume float64) (*Beep, error) {
	speakerOnce.Do(func() {
		speakerErr = speaker.Init(speakerRate, speakerRate.N(time.Second/10))
	})
	if speakerErr != nil {
		return nil, fmt.Errorf("init speaker: %w", speakerErr)
	}
	if fetch == nil {
		fetch = HTTPFetcher{}
	}

	ctx, cancel := context.WithCancel(ctx)
	b := &Beep{
		fetch:  fetch,
		events: make(chan Event, 16),
		log:    log.Component("beep"),
		ctx:    ctx,
		cancel: cancel,
		volume: volume,
	}
	b.wg.Add(1)
	go b.tick()
	return b, nil
}

func (b *Beep) Load(ctx context.Context, url string) error {
	b.mux.Lock()
	b.gen++
	gen := b.gen
	b.mux.Unlock()

	data, contentType, err := b.fetch.Fetch(ctx, url)
	if err != nil {
		return err
	}
	decode, err := decoderFor(contentType, url)
	if err != nil {
		return err
	}
	streamer, format, err := decode(memSource{bytes.NewReader(data)})
	if err != nil {
		return fmt.Errorf("decode source: %w", err)
	}

	var s beep.Streamer = streamer
	if format.SampleRate != speakerRate {
		s = beep.Resample(4, format.SampleRate, speakerRate, streamer)
	}
	ctrl := &beep.Ctrl{Streamer: s, Paused: true}
	t := &beepTrack{
		gen:      gen,
		streamer: streamer,
		format:   format,
		ctrl:     ctrl,
		volume:   &effects.Volume{Streamer: ctrl, Base: 2},
	}

	b.mux.Lock()
	defer b.mux.Unlock()
	if b.closed || gen != b.gen || ctx.Err() != nil {
		_ = streamer.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return context.Canceled
	}

	b.replaceLocked(t)
	applyVolume(t.volume, b.volume)
	speaker.Play(b.sequence(t))
	return nil
}

// sequence plays t and reports its natural end
func (b *Beep) sequence(t *beepTrack) beep.Streamer {
	// the callback runs on the speaker goroutine with the speaker locked
	return beep.Seq(t.volume, beep.Callback(func() { go b.finished(t.gen) }))
}

func (b *Beep) replaceLocked(t *beepTrack) {
	speaker.Clear()
	if b.track != nil {
		_ = b.track.streamer.Close()
	}
	b.track = t
	b.playing = false
}

func (b *Beep) finished(gen uint64) {
	b.mux.Lock()
	t := b.track
	if b.closed || t == nil || t.gen != gen {
		b.mux.Unlock()
		return
	}
	if b.loop {
		speaker.Lock()
		err := t.streamer.Seek(0)
		speaker.Unlock()
		if err == nil {
			speaker.Play(b.sequence(t))
			b.mux.Unlock()
			return
		}
		b.log.WithError(err).Warn("loop rewind failed")
	}
	b.playing = false
	b.mux.Unlock()
	emit(b.ctx, b.events, Event{Kind: EventEnded})
}

func (b *Beep) Play() error {
	return b.setPaused(false)
}

func (b *Beep) Pause() error {
	err := b.setPaused(true)
	if errors.Is(err, ErrNotLoaded) {
		return nil
	}
	return err
}

func (b *Beep) setPaused(paused bool) error {
	b.mux.Lock()
	defer b.mux.Unlock()
	if b.track == nil {
		return ErrNotLoaded
	}
	speaker.Lock()
	b.track.ctrl.Paused = paused
	speaker.Unlock()
	b.playing = !paused
	return nil
}

func (b *Beep) Stop() error {
	b.mux.Lock()
	defer b.mux.Unlock()
	b.gen++
	speaker.Clear()
	if b.track != nil {
		err := b.track.streamer.Close()
		b.track = nil
		b.playing = false
		return err
	}
	return nil
}

func (b *Beep) Seek(seconds float64) error {
	b.mux.Lock()
	defer b.mux.Unlock()
	if b.track == nil {
		return ErrNotLoaded
	}
	t := b.track
	n := t.format.SampleRate.N(time.Duration(seconds * float64(time.Second)))
	speaker.Lock()
	defer speaker.Unlock()
	n = min(max(n, 0), max(t.streamer.Len()-1, 0))
	return t.streamer.Seek(n)
}

func (b *Beep) SetVolume(volume float64) error {
	b.mux.Lock()
	defer b.mux.Unlock()
	b.volume = volume
	if b.track != nil {
		speaker.Lock()
		applyVolume(b.track.volume, volume)
		speaker.Unlock()
	}
	return nil
}

func applyVolume(v *effects.Volume, volume float64) {
	if volume <= 0 {
		v.Silent = true
		return
	}
	v.Silent = false
	v.Volume = math.Log2(min(volume, 1))
}

func (b *Beep) SetLoop(loop bool) error {
	b.mux.Lock()
	defer b.mux.Unlock()
	b.loop = loop
	return nil
}

func (b *Beep) Progress() (position, duration float64, err error) {
	b.mux.Lock()
	defer b.mux.Unlock()
	if b.track == nil {
		return 0, 0, ErrNotLoaded
	}
	t := b.track
	speaker.Lock()
	pos, length := t.streamer.Position(), t.streamer.Len()
	speaker.Unlock()
	return t.format.SampleRate.D(pos).Seconds(), t.format.SampleRate.D(length).Seconds(), nil
}

func (b *Beep) Events() <-chan Event {
	return b.events
}

func (b *Beep) Close() error {
	b.mux.Lock()
	if b.closed {
		b.mux.Unlock()
		return nil
	}
	b.closed = true
	b.mux.Unlock()

	b.cancel()
	b.wg.Wait()
	return b.Stop()
}

// tick emits time updates while playing
func (b *Beep) tick() {
	defer b.wg.Done()
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			b.mux.Lock()
			playing := b.playing
			b.mux.Unlock()
			if !playing {
				continue
			}
			pos, dur, err := b.Progress()
			if err != nil {
				continue
			}
			emit(b.ctx, b.events, Event{Kind: EventTimeUpdate, Position: pos, Duration: dur})
		case <-b.ctx.Done():
			return
		}
	}
}
