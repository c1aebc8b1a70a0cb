// Package progress turns the media handle's time updates into display values
// and translates percentage seeks back into positions.
package progress

import (
	"errors"
	"fmt"
	"math"
	"sync"
)

// ErrUnknownDuration is returned when seeking before the duration is known
var ErrUnknownDuration = errors.New("track duration is unknown")

// Seeker moves the playback position; the binding implements it
type Seeker interface {
	Seek(seconds float64) error
}

// Reporter keeps the last reported position. It performs no smoothing.
type Reporter struct {
	mux      sync.RWMutex
	seeker   Seeker
	position float64
	duration float64
}

// NewReporter creates a reporter that seeks through s
func NewReporter(s Seeker) *Reporter {
	return &Reporter{seeker: s}
}

// SetSeeker replaces the seek target
func (r *Reporter) SetSeeker(s Seeker) {
	r.mux.Lock()
	defer r.mux.Unlock()
	r.seeker = s
}

// Update records a time-update signal
func (r *Reporter) Update(position, duration float64) {
	r.mux.Lock()
	defer r.mux.Unlock()
	r.position = sanitize(position)
	r.duration = sanitize(duration)
}

// Reset clears the position, e.g. on track change
func (r *Reporter) Reset(duration float64) {
	r.Update(0, duration)
}

// Position returns the last reported position and duration in seconds
func (r *Reporter) Position() (position, duration float64) {
	r.mux.RLock()
	defer r.mux.RUnlock()
	return r.position, r.duration
}

// Percentage returns position/duration*100 in [0,100], or 0 when the
// duration is unknown
func (r *Reporter) Percentage() float64 {
	pos, dur := r.Position()
	return percentage(pos, dur)
}

// FormattedTime renders "m:ss / m:ss"
func (r *Reporter) FormattedTime() string {
	pos, dur := r.Position()
	return FormatTime(pos) + " / " + FormatTime(dur)
}

// Seek moves playback to pct percent of the duration
func (r *Reporter) Seek(pct float64) error {
	r.mux.RLock()
	dur, seeker := r.duration, r.seeker
	r.mux.RUnlock()

	if dur <= 0 {
		return ErrUnknownDuration
	}
	if seeker == nil {
		return fmt.Errorf("seek: no media binding")
	}

	target := TargetTime(pct, dur)
	if err := seeker.Seek(target); err != nil {
		return fmt.Errorf("seek to %.1fs: %w", target, err)
	}

	r.mux.Lock()
	r.position = target
	r.mux.Unlock()
	return nil
}

// SeekBy moves playback by delta percentage points
func (r *Reporter) SeekBy(delta float64) error {
	return r.Seek(r.Percentage() + delta)
}

// TargetTime maps a percentage onto a position in seconds
func TargetTime(pct, duration float64) float64 {
	pct = min(max(sanitize(pct), 0), 100)
	return pct / 100 * duration
}

// FormatTime renders seconds as m:ss
func FormatTime(seconds float64) string {
	s := int(sanitize(seconds))
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}

func percentage(pos, dur float64) float64 {
	if dur <= 0 {
		return 0
	}
	return min(max(pos/dur*100, 0), 100)
}

func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}
