// Package device watches the audio output so playback can pause when
// headphones or an external speaker go away.
package device

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"

	"github.com/yhkl-dev/tunecli/log"
)

// ErrDisconnected is the stop cause reported when an output disappears
var ErrDisconnected = errors.New("audio output disconnected")

// Kind classifies an audio output
type Kind int

const (
	Unknown Kind = iota
	BuiltIn
	Bluetooth
	USB
	HDMI
	Headphones
)

func (k Kind) String() string {
	return [...]string{"unknown", "built-in", "bluetooth", "usb", "hdmi", "headphones"}[k]
}

// External reports whether unplugging this kind of output should pause playback
func (k Kind) External() bool {
	return k == Bluetooth || k == USB || k == HDMI || k == Headphones
}

// Output is one audio output device
type Output struct {
	Name      string
	Transport string
	Default   bool
	Connected bool
}

// Kind classifies the output from its transport, falling back to its name
func (o Output) Kind() Kind {
	t := strings.ToLower(o.Transport)
	switch {
	case strings.Contains(t, "bluetooth"):
		return Bluetooth
	case strings.Contains(t, "usb"):
		return USB
	case strings.Contains(t, "hdmi"), strings.Contains(t, "displayport"):
		return HDMI
	case strings.Contains(t, "headphone"):
		return Headphones
	case strings.Contains(t, "built"):
		return BuiltIn
	}
	return kindFromName(o.Name)
}

var builtInNames = []string{"built-in", "internal", "macbook", "imac", "mac mini", "mac pro", "speaker"}

var externalNames = map[string]Kind{
	"airpods":    Bluetooth,
	"bluetooth":  Bluetooth,
	"beats":      Bluetooth,
	"bose":       Bluetooth,
	"jabra":      Bluetooth,
	"sony":       Bluetooth,
	"wireless":   Bluetooth,
	"usb":        USB,
	"hdmi":       HDMI,
	"display":    HDMI,
	"headphone":  Headphones,
	"headset":    Headphones,
	"sennheiser": Headphones,
}

func kindFromName(name string) Kind {
	n := strings.ToLower(name)
	if lo.SomeBy(builtInNames, func(s string) bool { return strings.Contains(n, s) }) {
		return BuiltIn
	}
	for word, kind := range externalNames {
		if strings.Contains(n, word) {
			return kind
		}
	}
	return Unknown
}

// OutputLister lists the current audio outputs
type OutputLister interface {
	Outputs(ctx context.Context) ([]Output, error)
}

// SystemProfiler reads outputs from macOS system_profiler
type SystemProfiler struct{}

// Supported reports whether listing works on this platform
func (SystemProfiler) Supported() bool {
	return runtime.GOOS == "darwin"
}

func (SystemProfiler) Outputs(ctx context.Context) ([]Output, error) {
	out, err := exec.CommandContext(ctx, "system_profiler", "SPAudioDataType", "-json").Output()
	if err != nil {
		return nil, fmt.Errorf("system_profiler: %w", err)
	}
	return ParseSystemProfiler(out)
}

// ParseSystemProfiler decodes `system_profiler SPAudioDataType -json`
func ParseSystemProfiler(data []byte) ([]Output, error) {
	var root struct {
		Audio []struct {
			Items []map[string]any `json:"_items"`
		} `json:"SPAudioDataType"`
	}
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse audio devices: %w", err)
	}

	var outputs []Output
	for _, entry := range root.Audio {
		for _, item := range entry.Items {
			name := firstString(item, "_name", "name")
			if name == "" {
				continue
			}
			_, isDefault := firstBool(item,
				"coreaudio_default_audio_output_device",
				"coreaudio_device_is_default_output",
				"default_output_device")
			found, connected := firstBool(item,
				"coreaudio_device_is_alive",
				"device_is_connected",
				"connected")
			outputs = append(outputs, Output{
				Name:      name,
				Transport: firstString(item, "coreaudio_device_transport", "coreaudio_transport", "transport"),
				Default:   isDefault,
				Connected: connected || !found,
			})
		}
	}
	return outputs, nil
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s := strings.TrimSpace(cast.ToString(m[k])); s != "" {
			return s
		}
	}
	return ""
}

// firstBool reads system_profiler flags such as "spaudio_yes"
func firstBool(m map[string]any, keys ...string) (found, value bool) {
	for _, k := range keys {
		v, ok := m[k]
		if !ok {
			continue
		}
		s := strings.TrimPrefix(strings.ToLower(cast.ToString(v)), "spaudio_")
		switch s {
		case "yes", "on", "enabled":
			return true, true
		case "no", "off", "disabled":
			return true, false
		}
		if b, err := cast.ToBoolE(v); err == nil {
			return true, b
		}
	}
	return false, false
}

// current picks the default connected output
func current(outputs []Output) (Output, bool) {
	return lo.Find(outputs, func(o Output) bool { return o.Default && o.Connected })
}

// Monitor calls OnDisconnect when the active external output goes away
type Monitor struct {
	lister       OutputLister
	interval     time.Duration
	onDisconnect func(Output)
	log          *logrus.Entry

	last    Output
	hasLast bool
}

// NewMonitor polls lister every interval
func NewMonitor(lister OutputLister, interval time.Duration, onDisconnect func(Output)) *Monitor {
	if interval <= 0 {
		interval = time.Second
	}
	return &Monitor{
		lister:       lister,
		interval:     interval,
		onDisconnect: onDisconnect,
		log:          log.Component("device"),
	}
}

// Run polls until ctx is done
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.check(ctx)
	for {
		select {
		case <-ticker.C:
			m.check(ctx)
		case <-ctx.Done():
			m.log.Debug("audio monitor stopped")
			return
		}
	}
}

func (m *Monitor) check(ctx context.Context) {
	outputs, err := m.lister.Outputs(ctx)
	if err != nil {
		if ctx.Err() == nil {
			m.log.WithError(err).Debug("list audio outputs")
		}
		return
	}

	now, ok := current(outputs)
	if m.hasLast && m.last.Kind().External() && (!ok || now.Name != m.last.Name) {
		m.log.Infof("audio output %s (%s) went away", m.last.Name, m.last.Kind())
		m.onDisconnect(m.last)
	}
	if ok && (!m.hasLast || now.Name != m.last.Name) {
		m.log.Debugf("audio output: %s (%s)", now.Name, now.Kind())
	}
	m.last, m.hasLast = now, ok
}
