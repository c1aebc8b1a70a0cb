package session

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/samber/mo"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yhkl-dev/tunecli/domain"
	"github.com/yhkl-dev/tunecli/navigation"
)

func track(id string) domain.Track {
	return domain.Track{
		ID:       id,
		Title:    "Song " + id,
		Artist:   domain.Artist{Name: "Artist"},
		AudioURL: "https://cdn.example.com/" + id + ".mp3",
	}
}

func newSession() *Session {
	return New(navigation.NewPolicy(rand.New(rand.NewPCG(7, 7))), 0.5)
}

func currentID(s *Session) string {
	return s.Snapshot().CurrentID.OrElse("")
}

func TestSessionScenarios(t *testing.T) {
	Convey("Given a session with tracks A, B, C", t, func() {
		s := newSession()
		a, b, c := track("A"), track("B"), track("C")
		s.SetTracks([]domain.Track{a, b, c})

		So(s.State(), ShouldEqual, domain.Idle)

		Convey("When the user selects B", func() {
			So(s.SelectTrack(b), ShouldBeNil)

			Convey("Then B is playing", func() {
				So(currentID(s), ShouldEqual, "B")
				So(s.State(), ShouldEqual, domain.Playing)
			})

			Convey("And advancing forward moves to C and keeps playing", func() {
				So(s.Advance(domain.Forward), ShouldBeTrue)
				So(currentID(s), ShouldEqual, "C")
				So(s.Snapshot().IsPlaying, ShouldBeTrue)
			})
		})

		Convey("When C is current and playback advances", func() {
			So(s.SelectTrack(c), ShouldBeNil)
			So(s.TogglePlay(), ShouldBeTrue)
			s.Advance(domain.Forward)

			Convey("Then it wraps to A and plays", func() {
				So(currentID(s), ShouldEqual, "A")
				So(s.Snapshot().IsPlaying, ShouldBeTrue)
			})
		})

		Convey("When the user clicks the playing track A twice", func() {
			So(s.SelectTrack(a), ShouldBeNil)
			So(s.SelectTrack(a), ShouldBeNil)

			Convey("Then it pauses without changing the track", func() {
				So(s.Snapshot().IsPlaying, ShouldBeFalse)
				So(currentID(s), ShouldEqual, "A")
			})

			Convey("And a third click resumes it", func() {
				So(s.SelectTrack(a), ShouldBeNil)
				So(s.Snapshot().IsPlaying, ShouldBeTrue)
				So(currentID(s), ShouldEqual, "A")
			})
		})

		Convey("When a refetch drops the playing track", func() {
			So(s.SelectTrack(b), ShouldBeNil)
			s.SetTracks([]domain.Track{c, a})

			Convey("Then the first remaining track is selected, paused", func() {
				So(currentID(s), ShouldEqual, "C")
				So(s.State(), ShouldEqual, domain.Paused)
			})
		})

		Convey("When a refetch empties the catalog", func() {
			So(s.SelectTrack(b), ShouldBeNil)
			s.SetTracks(nil)

			Convey("Then the session is empty with nothing selected", func() {
				So(s.State(), ShouldEqual, domain.Empty)
				So(s.Snapshot().CurrentID.IsAbsent(), ShouldBeTrue)
				So(s.Snapshot().IsPlaying, ShouldBeFalse)
			})
		})
	})

	Convey("Given an empty session", t, func() {
		s := newSession()

		Convey("Then nothing can be played", func() {
			So(s.State(), ShouldEqual, domain.Empty)
			So(s.TogglePlay(), ShouldBeFalse)
			So(s.Advance(domain.Forward), ShouldBeFalse)
			So(errors.Is(s.SelectTrack(track("A")), ErrUnknownTrack), ShouldBeTrue)
			So(s.State(), ShouldEqual, domain.Empty)
		})
	})
}

func TestSelectTwiceToggles(t *testing.T) {
	for n := 1; n <= 5; n++ {
		s := newSession()
		list := make([]domain.Track, n)
		for i := range list {
			list[i] = track(string(rune('A' + i)))
		}
		s.SetTracks(list)
		for _, tr := range list {
			require.NoError(t, s.SelectTrack(tr))
			require.NoError(t, s.SelectTrack(tr))
			assert.False(t, s.Snapshot().IsPlaying)
			assert.Equal(t, tr.ID, currentID(s))
		}
	}
}

func TestPlayingImpliesCurrent(t *testing.T) {
	s := newSession()
	check := func() {
		snap := s.Snapshot()
		if snap.IsPlaying {
			assert.True(t, snap.CurrentID.IsPresent())
		}
		if id, ok := snap.CurrentID.Get(); ok {
			_, _, found := snap.Current()
			assert.True(t, found, "current %s must be a member", id)
		}
	}
	s.OnChange(func(domain.Snapshot) { check() })

	s.SetTracks([]domain.Track{track("A"), track("B")})
	require.NoError(t, s.SelectTrack(track("B")))
	s.Advance(domain.Backward)
	s.SetTracks([]domain.Track{track("C")})
	s.TogglePlay()
	s.SetTracks(nil)
	s.TogglePlay()
	check()
}

func TestStopOnlyAffectsCurrentTrack(t *testing.T) {
	s := newSession()
	s.SetTracks([]domain.Track{track("A"), track("B")})
	require.NoError(t, s.SelectTrack(track("A")))
	require.NoError(t, s.SelectTrack(track("B")))

	s.Stop("A", errors.New("stale load failed"))
	assert.True(t, s.Snapshot().IsPlaying)

	s.Stop("B", errors.New("load failed"))
	snap := s.Snapshot()
	assert.False(t, snap.IsPlaying)
	assert.Equal(t, mo.Some("B"), snap.CurrentID)
}

func TestModifiersAndObservers(t *testing.T) {
	s := newSession()
	var versions []uint64
	s.OnChange(func(snap domain.Snapshot) { versions = append(versions, snap.Version) })

	s.SetVolume(2)
	assert.Equal(t, 1.0, s.Snapshot().Volume)
	s.AdjustVolume(-0.25)
	assert.InDelta(t, 0.75, s.Snapshot().Volume, 1e-9)
	s.SetVolume(0.75)

	s.ToggleShuffle()
	s.SetShuffle(true)
	s.ToggleRepeat()
	snap := s.Snapshot()
	assert.True(t, snap.Shuffle)
	assert.True(t, snap.Repeat)

	assert.Len(t, versions, 4, "no-op mutations do not notify")
	assert.IsIncreasing(t, versions)
}

func TestVolumeStaysInRange(t *testing.T) {
	s := newSession()

	s.SetVolume(math.NaN())
	assert.Equal(t, 0.0, s.Snapshot().Volume)
	s.SetVolume(0.5)
	s.AdjustVolume(math.NaN())
	assert.Equal(t, 0.0, s.Snapshot().Volume)
	s.SetVolume(math.Inf(-1))
	assert.Equal(t, 0.0, s.Snapshot().Volume)
	s.SetVolume(math.Inf(1))
	assert.Equal(t, 1.0, s.Snapshot().Volume)

	assert.Equal(t, 0.0, New(nil, math.NaN()).Snapshot().Volume)
}
