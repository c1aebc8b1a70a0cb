package ui

import (
	"strings"
	"testing"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"

	"github.com/yhkl-dev/tunecli/domain"
	"github.com/yhkl-dev/tunecli/progress"
)

func TestTruncate(t *testing.T) {
	assert.Equal(t, "hello", Truncate("hello", 10))
	assert.Equal(t, "hel…", Truncate("hello", 4))
	assert.Equal(t, "", Truncate("hello", 0))
	// wide runes take two cells each
	assert.Equal(t, "日本…", Truncate("日本語の歌", 5))
}

func TestCreateProgressBar(t *testing.T) {
	bar := CreateProgressBar(50, 10)
	assert.Equal(t, 5, strings.Count(bar, "▓"))
	assert.Equal(t, 5, strings.Count(bar, "░"))

	assert.Equal(t, 10, strings.Count(CreateProgressBar(150, 10), "▓"))
	assert.Equal(t, 10, strings.Count(CreateProgressBar(-3, 10), "░"))
	assert.Empty(t, CreateProgressBar(50, 0))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "3:05", FormatDuration(domain.Track{Duration: mo.Some(185.0)}))
	assert.Equal(t, "--:--", FormatDuration(domain.Track{}))
}

func TestCreateMiniPlayer(t *testing.T) {
	r := progress.NewReporter(nil)
	tracks := []domain.Track{{ID: "a", Title: "Song A", Artist: domain.Artist{Name: "Artist"}}}

	assert.Contains(t, CreateMiniPlayer(domain.Snapshot{}, r, 80), "No songs available")
	assert.Contains(t, CreateMiniPlayer(domain.Snapshot{Tracks: tracks}, r, 80), "Select a song to play")

	r.Update(65, 200)
	line := CreateMiniPlayer(domain.Snapshot{Tracks: tracks, CurrentID: mo.Some("a"), IsPlaying: true}, r, 80)
	assert.Contains(t, line, "▶")
	assert.Contains(t, line, "Song A - Artist")
	assert.Contains(t, line, "1:05")

	paused := CreateMiniPlayer(domain.Snapshot{Tracks: tracks, CurrentID: mo.Some("a")}, r, 80)
	assert.Contains(t, paused, "⏸")
}

func TestWelcomeMessage(t *testing.T) {
	assert.Contains(t, CreateWelcomeMessage(0), "No songs available")
	assert.Contains(t, CreateWelcomeMessage(3), "Select a song to play")
	assert.Contains(t, CreateWelcomeMessage(3), "3 songs loaded")
}

func TestStateLabelAndFlags(t *testing.T) {
	tracks := []domain.Track{{ID: "a"}}
	assert.Contains(t, StateLabel(domain.Snapshot{Tracks: tracks, CurrentID: mo.Some("a"), IsPlaying: true}), "playing")
	assert.Contains(t, StateLabel(domain.Snapshot{Tracks: tracks, CurrentID: mo.Some("a")}), "paused")
	assert.Empty(t, StateLabel(domain.Snapshot{}))

	flags := ModeFlags(domain.Snapshot{Shuffle: true})
	assert.Contains(t, flags, "[lightgreen]⤮ shuffle")
	assert.Contains(t, flags, "[darkgray]↻ repeat")
	assert.Equal(t, "50%", VolumeText(0.5))
}
