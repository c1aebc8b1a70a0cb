// Package mpvplayer is a thin wrapper around a libmpv instance configured for
// audio-only playback.
package mpvplayer

import (
	"fmt"
	"strconv"

	"github.com/spf13/cast"
	"github.com/wildeyedskies/go-mpv/mpv"
)

// Reply IDs for observed properties
const (
	ObserveTimePos uint64 = iota + 1
	ObserveDuration
)

type Mpvplayer struct {
	*mpv.Mpv
}

// GetFloat reads a double property
func (m *Mpvplayer) GetFloat(name string) (float64, error) {
	v, err := m.GetProperty(name, mpv.FORMAT_DOUBLE)
	if err != nil {
		return 0, err
	}
	return cast.ToFloat64E(v)
}

func (m *Mpvplayer) Load(playURL string) error {
	return m.Command([]string{"loadfile", playURL, "replace"})
}

func (m *Mpvplayer) Stop() error {
	return m.Command([]string{"stop"})
}

func (m *Mpvplayer) SetPaused(paused bool) error {
	return m.Command([]string{"set", "pause", yesNo(paused)})
}

func (m *Mpvplayer) SeekAbsolute(seconds float64) error {
	return m.Command([]string{"seek", strconv.FormatFloat(seconds, 'f', 3, 64), "absolute"})
}

// SetVolume takes a volume in [0,1]; mpv works in percent
func (m *Mpvplayer) SetVolume(volume float64) error {
	return m.Command([]string{"set", "volume", strconv.FormatFloat(volume*100, 'f', 1, 64)})
}

func (m *Mpvplayer) SetLoop(loop bool) error {
	value := "no"
	if loop {
		value = "inf"
	}
	return m.Command([]string{"set", "loop-file", value})
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// CreateMPVInstance creates and initialises an audio-only mpv instance
func CreateMPVInstance() (*Mpvplayer, error) {
	mpvInstance := mpv.Create()

	_ = mpvInstance.SetOptionString("audio-display", "no")
	_ = mpvInstance.SetOptionString("video", "no")
	_ = mpvInstance.SetOptionString("idle", "yes")
	_ = mpvInstance.SetOptionString("pause", "yes")

	if err := mpvInstance.Initialize(); err != nil {
		mpvInstance.TerminateDestroy()
		return nil, fmt.Errorf("initialize mpv: %w", err)
	}

	if err := mpvInstance.ObserveProperty(ObserveTimePos, "time-pos", mpv.FORMAT_DOUBLE); err != nil {
		mpvInstance.TerminateDestroy()
		return nil, fmt.Errorf("observe time-pos: %w", err)
	}
	if err := mpvInstance.ObserveProperty(ObserveDuration, "duration", mpv.FORMAT_DOUBLE); err != nil {
		mpvInstance.TerminateDestroy()
		return nil, fmt.Errorf("observe duration: %w", err)
	}
	return &Mpvplayer{Mpv: mpvInstance}, nil
}
