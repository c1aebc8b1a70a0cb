package ui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// DrawerView is the full-screen now playing view for narrow terminals
type DrawerView struct {
	app       *App
	container *tview.Flex
	info      *tview.TextView
	bar       *tview.TextView
	isActive  bool
}

// NewDrawerView creates the now playing drawer
func NewDrawerView(app *App) *DrawerView {
	dv := &DrawerView{
		app: app,
	}

	dv.info = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter).
		SetWrap(true)

	dv.bar = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)

	dv.container = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(dv.info, 0, 1, true).
		AddItem(dv.bar, 4, 0, false)

	dv.container.SetBorder(true).
		SetTitle(" Now Playing (ESC/i to close) ").
		SetBorderColor(tcell.ColorLightGreen)

	return dv
}

// Show displays the drawer
func (dv *DrawerView) Show() {
	dv.isActive = true
	dv.refresh()
	dv.app.tviewApp.SetFocus(dv.info)
}

// Close hides the drawer
func (dv *DrawerView) Close() {
	dv.isActive = false
	dv.app.closeModal()
}

// IsActive returns whether the drawer is open
func (dv *DrawerView) IsActive() bool {
	return dv.isActive
}

// GetContainer returns the drawer container
func (dv *DrawerView) GetContainer() *tview.Flex {
	return dv.container
}

// refresh renders the current track, progress and controls
func (dv *DrawerView) refresh() {
	a := dv.app
	snap := a.snap
	width := max(a.termWidth()-4, 10)

	cur, _, ok := snap.Current()
	if !ok {
		dv.info.SetText("\n\n[darkgray]" + CreateMiniPlayer(snap, a.progress, width))
		dv.bar.SetText("")
		return
	}

	dv.info.SetText(fmt.Sprintf("%s\n\n%s\n[white::b]%s[-:-:-]\n[gray]%s[-]\n\n%s [gray]%d likes[-]",
		a.coverArt,
		StateLabel(snap),
		escaped(cur.Title, width),
		escaped(cur.Artist.Name, width),
		LikeMark(a.liked[cur.ID]), cur.Likes))

	barWidth := min(a.cfg.ProgressBarWidth, width)
	dv.bar.SetText(CreateProgressBar(a.progress.Percentage(), barWidth) + "\n" +
		CreateProgressText(a.progress, snap) + "\n" +
		"[darkgray]SPACE play/pause | n/p next/prev | s/r shuffle/repeat | ,/. seek | f like")
}
