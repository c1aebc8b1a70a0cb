package ui

import (
	"fmt"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/mattn/go-runewidth"
	"github.com/rivo/tview"
	"github.com/samber/lo"

	"github.com/yhkl-dev/tunecli/domain"
	"github.com/yhkl-dev/tunecli/progress"
)

var (
	barFrom = lo.Must(colorful.Hex("#1b5e20"))
	barTo   = lo.Must(colorful.Hex("#c6ff00"))
)

// FormatDuration converts seconds to m:ss, or --:-- when unknown
func FormatDuration(t domain.Track) string {
	d, ok := t.Duration.Get()
	if !ok {
		return "--:--"
	}
	return progress.FormatTime(d)
}

// Truncate shortens s to width terminal cells, ending with an ellipsis
func Truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return runewidth.Truncate(s, width, "…")
}

// escaped truncates and then escapes tview color tags
func escaped(s string, width int) string {
	return tview.Escape(Truncate(s, width))
}

// CreateProgressBar creates a gradient progress bar for pct in [0,100]
func CreateProgressBar(pct float64, width int) string {
	if width <= 0 {
		return ""
	}
	filled := int(min(max(pct, 0), 100) / 100 * float64(width))

	var b strings.Builder
	for i := 0; i < width; i++ {
		if i < filled {
			c := barFrom.BlendLuv(barTo, float64(i)/float64(max(width-1, 1))).Clamped()
			fmt.Fprintf(&b, "[%s]▓", c.Hex())
			continue
		}
		b.WriteString("[darkgray]░")
	}
	b.WriteString("[-]")
	return b.String()
}

// ModeFlags renders the shuffle and repeat indicators
func ModeFlags(snap domain.Snapshot) string {
	flag := func(on bool, label string) string {
		if on {
			return "[lightgreen]" + label + "[-]"
		}
		return "[darkgray]" + label + "[-]"
	}
	return flag(snap.Shuffle, "⤮ shuffle") + "  " + flag(snap.Repeat, "↻ repeat")
}

// StateLabel describes what the player is doing with the current track
func StateLabel(snap domain.Snapshot) string {
	switch snap.State() {
	case domain.Playing:
		return "[lightgreen]▶ playing[-]"
	case domain.Paused:
		return "[yellow]⏸ paused[-]"
	case domain.Idle:
		return "[darkgray]■ stopped[-]"
	}
	return ""
}

// VolumeText renders the session volume as a percentage
func VolumeText(v float64) string {
	return fmt.Sprintf("%.0f%%", v*100)
}

// LikeMark renders the liked indicator
func LikeMark(liked bool) string {
	if liked {
		return "[red]♥[-]"
	}
	return "[darkgray]♡[-]"
}

// FormatTrackInfo creates the desktop status panel for the current track
func FormatTrackInfo(t domain.Track, snap domain.Snapshot, liked bool, cover string, width int) string {
	return fmt.Sprintf(`%s

%s
[white::b]%s[-:-:-]
[gray]%s[-]

%s [gray]%d likes[-]
%s

[darkgray] SPACE (play/pause)
[darkgray] n/p (next/prev)
[darkgray] s/r (shuffle/repeat)
[darkgray] ,/. 0-9 (seek)
[darkgray] f (like) | ? (help)`,
		cover,
		StateLabel(snap),
		escaped(t.Title, width),
		escaped(t.Artist.Name, width),
		LikeMark(liked), t.Likes,
		ModeFlags(snap))
}

// CreateWelcomeMessage is shown while nothing is selected
func CreateWelcomeMessage(total int) string {
	if total == 0 {
		return `
[lightgreen] Welcome to tunecli

[darkgray] No songs available

[gray]  R (refresh) | ? (help)
[gray]  ESC to exit`
	}
	return fmt.Sprintf(`
[lightgreen] Welcome to tunecli
[darkgray] Select a song to play

[gray]  ENTER (play selected)
[gray]  SPACE (play/pause)
[gray]  n/p or ←/→ (next/prev)
[gray]  ]/[ (page) | gg/G (top/end)
[gray]  / (search) | ? (help) | Q (queue)
[gray]  ESC to exit

[darkgray]// %d songs loaded`, total)
}

// CreateProgressText renders the line under the progress bar
func CreateProgressText(r *progress.Reporter, snap domain.Snapshot) string {
	return fmt.Sprintf("[white]%s  [darkgray]vol [white]%s  %s",
		r.FormattedTime(), VolumeText(snap.Volume), ModeFlags(snap))
}

// CreateMiniPlayer renders the one-line compact player
func CreateMiniPlayer(snap domain.Snapshot, r *progress.Reporter, width int) string {
	t, _, ok := snap.Current()
	if !ok {
		if len(snap.Tracks) == 0 {
			return "[darkgray]No songs available"
		}
		return "[darkgray]Select a song to play"
	}
	icon := "▶"
	if !snap.IsPlaying {
		icon = "⏸"
	}
	pos, _ := r.Position()
	label := t.Title + " - " + t.Artist.Name
	room := max(width-14, 8)
	return fmt.Sprintf("[lightgreen]%s [white]%s [darkgray]%s  [gray](i)",
		icon, escaped(label, room), progress.FormatTime(pos))
}
