package ui

import (
	"github.com/gdamore/tcell/v2"

	"github.com/yhkl-dev/tunecli/domain"
)

const (
	volumeStep = 0.05
	seekStep   = 5 // percentage points
)

// registerKeyBindings maps keys to session, progress and view actions
func (a *App) registerKeyBindings() {
	km := a.keys

	km.Section("Playback Controls")
	km.RegisterKeyBinding(KeyAction{"togglePlay", "Play/Pause current song", a.togglePlay}, nil, []rune{' '})
	km.Document("Enter", "Play selected song (again to pause)")
	km.RegisterKeyBinding(KeyAction{"next", "Next song", a.next},
		[]tcell.Key{tcell.KeyRight}, []rune{'n', 'N'})
	km.RegisterKeyBinding(KeyAction{"previous", "Previous song", a.previous},
		[]tcell.Key{tcell.KeyLeft}, []rune{'p', 'P'})
	km.RegisterKeyBinding(KeyAction{"shuffle", "Toggle shuffle", a.session.ToggleShuffle}, nil, []rune{'s', 'S'})
	km.RegisterKeyBinding(KeyAction{"repeat", "Toggle repeat", a.session.ToggleRepeat}, nil, []rune{'r'})
	km.RegisterKeyBinding(KeyAction{"volumeUp", "Volume up", func() { a.session.AdjustVolume(volumeStep) }},
		nil, []rune{'+', '='})
	km.RegisterKeyBinding(KeyAction{"volumeDown", "Volume down", func() { a.session.AdjustVolume(-volumeStep) }},
		nil, []rune{'-', '_'})
	km.RegisterKeyBinding(KeyAction{"seekBack", "Seek back 5%", func() { a.seekBy(-seekStep) }}, nil, []rune{','})
	km.RegisterKeyBinding(KeyAction{"seekForward", "Seek forward 5%", func() { a.seekBy(seekStep) }}, nil, []rune{'.'})
	for d := '0'; d <= '9'; d++ {
		pct := float64(d-'0') * 10
		km.RegisterKeyBinding(KeyAction{"seekTo", "Seek to 0%..90%", func() { a.seek(pct) }}, nil, []rune{d})
	}
	km.RegisterKeyBinding(KeyAction{"like", "Like/Unlike current song", a.toggleLike}, nil, []rune{'f', 'F'})
	km.RegisterKeyBinding(KeyAction{"refresh", "Reload the catalog", a.refreshCatalog}, nil, []rune{'R'})

	km.Section("Navigation")
	km.Document("↑ / ↓", "Navigate song list")
	km.RegisterSequence("gg", KeyAction{"goTop", "First row", a.goTop})
	km.RegisterKeyBinding(KeyAction{"goEnd", "Last row", a.goEnd}, nil, []rune{'G'})
	km.RegisterKeyBinding(KeyAction{"search", "Open search", a.showSearch}, nil, []rune{'/'})
	km.RegisterKeyBinding(KeyAction{"help", "Show this help panel", a.showHelp}, nil, []rune{'?'})
	km.RegisterKeyBinding(KeyAction{"queue", "Show up next", a.showQueue}, nil, []rune{'q', 'Q'})
	km.RegisterKeyBinding(KeyAction{"library", "Play from all songs, liked songs or a playlist", a.showLibrary},
		nil, []rune{'l', 'L'})
	km.RegisterKeyBinding(KeyAction{"drawer", "Show now playing", a.showDrawer}, nil, []rune{'i', 'I'})
	km.RegisterKeyBinding(KeyAction{"nextPage", "Next page", a.nextPage},
		[]tcell.Key{tcell.KeyPgDn}, []rune{']', '>'})
	km.RegisterKeyBinding(KeyAction{"previousPage", "Previous page", a.previousPage},
		[]tcell.Key{tcell.KeyPgUp}, []rune{'[', '<'})
	km.Document("Tab", "Focus the mini player (narrow terminals)")

	km.Section("General")
	km.Document("ESC", "Close modal / Exit program")
	km.RegisterKeyBinding(KeyAction{"quit", "Exit program", a.handleExit}, []tcell.Key{tcell.KeyCtrlC}, nil)
}

// togglePlay plays or pauses the current track, starting the highlighted
// one when nothing is selected yet
func (a *App) togglePlay() {
	if _, ok := a.session.Current(); ok {
		a.session.TogglePlay()
		return
	}
	row, _ := a.songTable.GetSelection()
	if t, ok := a.trackAtRow(row); ok {
		a.selectTrack(t)
	}
}

func (a *App) next() {
	a.session.Advance(domain.Forward)
}

func (a *App) previous() {
	a.session.Advance(domain.Backward)
}
