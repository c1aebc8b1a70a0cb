package progress

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSeeker struct {
	targets []float64
	err     error
}

func (s *recordingSeeker) Seek(seconds float64) error {
	s.targets = append(s.targets, seconds)
	return s.err
}

func TestPercentageInRange(t *testing.T) {
	r := NewReporter(nil)
	for _, dur := range []float64{0.5, 1, 37.2, 180, 3600} {
		for i := 0; i <= 100; i++ {
			pos := dur * float64(i) / 100
			r.Update(pos, dur)
			p := r.Percentage()
			assert.GreaterOrEqual(t, p, 0.0)
			assert.LessOrEqual(t, p, 100.0)
			assert.InDelta(t, float64(i), p, 1e-9)
		}
	}
}

func TestPercentageUnknownDuration(t *testing.T) {
	r := NewReporter(nil)
	r.Update(12, 0)
	assert.Zero(t, r.Percentage())
	r.Update(12, math.NaN())
	assert.Zero(t, r.Percentage())
	r.Update(500, 100)
	assert.Equal(t, 100.0, r.Percentage())
}

func TestFormattedTime(t *testing.T) {
	r := NewReporter(nil)
	r.Update(65.9, 245)
	assert.Equal(t, "1:05 / 4:05", r.FormattedTime())
	r.Reset(0)
	assert.Equal(t, "0:00 / 0:00", r.FormattedTime())
}

func TestSeek(t *testing.T) {
	s := &recordingSeeker{}
	r := NewReporter(s)

	assert.ErrorIs(t, r.Seek(50), ErrUnknownDuration)
	assert.Empty(t, s.targets)

	r.Update(10, 200)
	require.NoError(t, r.Seek(25))
	require.NoError(t, r.Seek(150))
	require.NoError(t, r.Seek(-3))
	assert.Equal(t, []float64{50, 200, 0}, s.targets)

	pos, _ := r.Position()
	assert.Zero(t, pos)

	require.NoError(t, r.SeekBy(10))
	assert.Equal(t, 20.0, s.targets[len(s.targets)-1])
}

func TestSeekFailureKeepsPosition(t *testing.T) {
	s := &recordingSeeker{err: errors.New("not loaded")}
	r := NewReporter(s)
	r.Update(30, 120)

	err := r.Seek(75)
	assert.ErrorIs(t, err, s.err)
	pos, _ := r.Position()
	assert.Equal(t, 30.0, pos)
}
