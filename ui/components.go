package ui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/yhkl-dev/tunecli/domain"
)

// modalView is a view shown over the main layout
type modalView interface {
	IsActive() bool
	Close()
}

// createHomepage sets up the UI layout
func (a *App) createHomepage() {
	a.progressBar = tview.NewTextView().
		SetDynamicColors(true)
	a.progressBar.SetBorder(false)
	a.progressBar.SetMouseCapture(a.seekByMouse)

	a.statusBar = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(false).
		SetWrap(true)
	a.statusBar.SetBorder(false)

	a.miniPlayer = tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(false)
	a.miniPlayer.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyEnter {
			a.showDrawer()
			return nil
		}
		return event
	})

	a.noticeBar = tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(false)

	a.songTable = tview.NewTable().
		SetBorders(false).
		SetSelectable(true, false).
		SetFixed(1, 0)
	a.songTable.SetBorder(false)
	a.songTable.SetSelectedStyle(tcell.StyleDefault.
		Background(tcell.ColorDarkGreen).
		Foreground(tcell.ColorWhite))

	// Initialize views
	a.helpView = NewHelpView(a)
	a.queueView = NewQueueView(a)
	a.searchView = NewSearchView(a)
	a.drawerView = NewDrawerView(a)
	a.libraryView = NewLibraryView(a)

	a.setupInputHandlers()

	a.rootFlex = tview.NewFlex().SetDirection(tview.FlexRow)
	a.applyLayout(a.compact)
	a.tviewApp.SetRoot(a.rootFlex, true).EnableMouse(true)
}

// applyLayout arranges the desktop or the compact layout
func (a *App) applyLayout(compact bool) {
	changed := compact != a.compact
	a.compact = compact
	a.rootFlex.Clear()

	if compact {
		a.rootFlex.
			AddItem(a.songTable, 0, 1, true).
			AddItem(a.noticeBar, 1, 0, false).
			AddItem(a.miniPlayer, 1, 0, false)
	} else {
		mainLayout := tview.NewFlex().
			SetDirection(tview.FlexColumn).
			AddItem(a.statusBar, 0, 1, false).
			AddItem(a.songTable, 0, 2, true)

		a.rootFlex.
			AddItem(mainLayout, 0, 1, true).
			AddItem(a.noticeBar, 1, 0, false).
			AddItem(a.progressBar, 2, 0, false)
		if a.drawerView.IsActive() {
			a.drawerView.Close()
		}
	}

	if changed {
		a.renderSongTable()
	}
	a.updatePlayerDisplay()
}

// setupInputHandlers sets up keyboard input handlers
func (a *App) setupInputHandlers() {
	a.songTable.SetSelectedFunc(func(row, column int) {
		if t, ok := a.trackAtRow(row); ok {
			a.selectTrack(t)
		}
	})

	a.tviewApp.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		// Handle modal views first
		if m := a.activeModal(); m != nil {
			if event.Key() == tcell.KeyEscape || a.closesModal(m, event) {
				m.Close()
				return nil
			}
			if event.Key() == tcell.KeyCtrlC {
				a.handleExit()
				return nil
			}
			// playback keys keep working in the drawer
			if m == a.drawerView && a.keys.HandleKey(event) {
				return nil
			}
			return event
		}

		switch event.Key() {
		case tcell.KeyEsc:
			a.handleExit()
			return nil
		case tcell.KeyTab:
			a.toggleFocus()
			return nil
		}
		if a.keys.HandleKey(event) {
			return nil
		}
		return event
	})
}

func (a *App) activeModal() modalView {
	for _, m := range []modalView{a.searchView, a.helpView, a.queueView, a.libraryView, a.drawerView} {
		if m.IsActive() {
			return m
		}
	}
	return nil
}

// closesModal reports whether the key that opened a view also closes it
func (a *App) closesModal(m modalView, event *tcell.EventKey) bool {
	if event.Key() != tcell.KeyRune {
		return false
	}
	switch m {
	case a.helpView:
		return event.Rune() == '?'
	case a.queueView:
		return event.Rune() == 'q' || event.Rune() == 'Q'
	case a.drawerView:
		return event.Rune() == 'i' || event.Rune() == 'I'
	case a.libraryView:
		return event.Rune() == 'l' || event.Rune() == 'L'
	}
	return false
}

// toggleFocus moves focus between the song list and the mini player
func (a *App) toggleFocus() {
	if !a.compact || a.miniPlayer.HasFocus() {
		a.tviewApp.SetFocus(a.songTable)
		return
	}
	a.tviewApp.SetFocus(a.miniPlayer)
}

// trackAtRow maps a table row on the current page to its track
func (a *App) trackAtRow(row int) (domain.Track, bool) {
	if row <= 0 {
		return domain.Track{}, false
	}
	i := (a.currentPage-1)*a.cfg.PageSize + row - 1
	if i < 0 || i >= len(a.snap.Tracks) {
		return domain.Track{}, false
	}
	return a.snap.Tracks[i], true
}

func (a *App) selectTrack(t domain.Track) {
	if err := a.session.SelectTrack(t); err != nil {
		a.showNotice(fmt.Sprintf("Cannot play %s: %v", t.Title, err))
	}
}

// getCurrentPageData returns tracks for the current page
func (a *App) getCurrentPageData() []domain.Track {
	if a.cfg.PageSize <= 0 {
		return a.snap.Tracks
	}
	start := min((a.currentPage-1)*a.cfg.PageSize, len(a.snap.Tracks))
	end := min(start+a.cfg.PageSize, len(a.snap.Tracks))
	return a.snap.Tracks[start:end]
}

// setupTableHeaders sets up the table header row
func (a *App) setupTableHeaders() {
	headerStyle := tcell.StyleDefault.Foreground(tcell.ColorGray).Attributes(tcell.AttrBold)
	headers := []string{"", "#", "Title", "Artist", "Time", "Likes"}
	if a.compact {
		headers = headers[:3]
	}
	for col, h := range headers {
		a.songTable.SetCell(0, col, tview.NewTableCell(h).
			SetStyle(headerStyle).
			SetSelectable(false))
	}
}

// renderSongTable renders the song table with current page data
func (a *App) renderSongTable() {
	a.songTable.Clear()
	a.setupTableHeaders()

	if len(a.snap.Tracks) == 0 {
		a.songTable.SetCell(1, 2, tview.NewTableCell("No songs available").
			SetTextColor(tcell.ColorGray).
			SetSelectable(false))
		return
	}

	pageData := a.getCurrentPageData()
	startIndex := (a.currentPage - 1) * a.cfg.PageSize
	maxWidth := a.cfg.MaxColumnWidth

	for i, track := range pageData {
		row := i + 1
		rowStyle := tcell.StyleDefault.Foreground(tcell.ColorWhite).Background(tcell.ColorDefault)

		a.songTable.SetCell(row, 0, tview.NewTableCell(" ").
			SetStyle(rowStyle.Foreground(tcell.ColorLightGreen)))
		a.songTable.SetCell(row, 1, tview.NewTableCell(fmt.Sprintf("%d:", startIndex+i+1)).
			SetStyle(rowStyle.Foreground(tcell.ColorLightGreen)).
			SetAlign(tview.AlignRight))
		a.songTable.SetCell(row, 2, tview.NewTableCell(Truncate(track.Title, maxWidth)).
			SetStyle(rowStyle).
			SetExpansion(1))
		if a.compact {
			continue
		}
		a.songTable.SetCell(row, 3, tview.NewTableCell(Truncate(track.Artist.Name, maxWidth)).
			SetStyle(rowStyle.Foreground(tcell.ColorGray)))
		a.songTable.SetCell(row, 4, tview.NewTableCell(FormatDuration(track)).
			SetStyle(rowStyle.Foreground(tcell.ColorGray)).
			SetAlign(tview.AlignRight))
		a.songTable.SetCell(row, 5, tview.NewTableCell(fmt.Sprintf("%d", track.Likes)).
			SetStyle(rowStyle.Foreground(tcell.ColorGray)).
			SetAlign(tview.AlignRight))
	}
	a.markCurrentRow()
}

// markCurrentRow puts the play state icon next to the current track
func (a *App) markCurrentRow() {
	_, index, ok := a.snap.Current()
	startIndex := (a.currentPage - 1) * a.cfg.PageSize
	for row := 1; row < a.songTable.GetRowCount(); row++ {
		cell := a.songTable.GetCell(row, 0)
		mark := " "
		if ok && startIndex+row-1 == index {
			mark = "▶"
			if !a.snap.IsPlaying {
				mark = "⏸"
			}
		}
		cell.SetText(mark)
	}
}

// updatePlayerDisplay refreshes the status panel and the player bar
func (a *App) updatePlayerDisplay() {
	snap := a.snap
	width := a.termWidth()

	if a.compact {
		a.miniPlayer.SetText(CreateMiniPlayer(snap, a.progress, width))
		if a.drawerView.IsActive() {
			a.drawerView.refresh()
		}
		return
	}

	cur, _, ok := snap.Current()
	if !ok {
		a.statusBar.SetText(CreateWelcomeMessage(len(snap.Tracks)) + "\n\n" + a.pageInfo())
		a.progressBar.SetText("")
		return
	}

	a.statusBar.SetText(FormatTrackInfo(cur, snap, a.liked[cur.ID], a.coverArt, a.cfg.MaxColumnWidth))
	a.progressBar.SetText(CreateProgressBar(a.progress.Percentage(), a.cfg.ProgressBarWidth) +
		"\n" + CreateProgressText(a.progress, snap))
}

func (a *App) pageInfo() string {
	return fmt.Sprintf("[gray]%s | Page %d/%d | %d songs total",
		tview.Escape(a.currentSource().label()), a.currentPage, a.totalPages, len(a.snap.Tracks))
}

// seekByMouse maps a click on the progress bar to a seek percentage
func (a *App) seekByMouse(action tview.MouseAction, event *tcell.EventMouse) (tview.MouseAction, *tcell.EventMouse) {
	if action != tview.MouseLeftClick && action != tview.MouseLeftDown {
		return action, event
	}
	x, y := event.Position()
	bx, by, _, _ := a.progressBar.GetInnerRect()
	width := a.cfg.ProgressBarWidth
	if y != by || x < bx || x >= bx+width {
		return action, event
	}
	a.seek(float64(x-bx) / float64(width) * 100)
	return tview.MouseConsumed, nil
}

// nextPage moves to the next page
func (a *App) nextPage() {
	if a.currentPage < a.totalPages {
		a.currentPage++
		a.renderSongTable()
		a.songTable.ScrollToBeginning()
		a.updatePlayerDisplay()
	}
}

// previousPage moves to the previous page
func (a *App) previousPage() {
	if a.currentPage > 1 {
		a.currentPage--
		a.renderSongTable()
		a.songTable.ScrollToBeginning()
		a.updatePlayerDisplay()
	}
}

func (a *App) goTop() {
	a.songTable.Select(1, 0)
	a.songTable.ScrollToBeginning()
}

func (a *App) goEnd() {
	a.songTable.Select(max(a.songTable.GetRowCount()-1, 1), 0)
	a.songTable.ScrollToEnd()
}

// showModal displays a view centered over the main layout
func (a *App) showModal(container tview.Primitive, width, height int) {
	a.drawerView.isActive = false
	modal := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(nil, 0, 1, false).
		AddItem(tview.NewFlex().
			SetDirection(tview.FlexColumn).
			AddItem(nil, 0, 1, false).
			AddItem(container, width, 0, true).
			AddItem(nil, 0, 1, false), height, 0, true).
		AddItem(nil, 0, 1, false)

	a.tviewApp.SetRoot(modal, true)
}

// closeModal returns to the main layout
func (a *App) closeModal() {
	a.keys.ResetPending()
	a.tviewApp.SetRoot(a.rootFlex, true)
	a.tviewApp.SetFocus(a.songTable)
}

func (a *App) showHelp() {
	a.showModal(a.helpView.GetContainer(), 60, 30)
	a.helpView.Show()
}

func (a *App) showQueue() {
	a.showModal(a.queueView.GetContainer(), 80, 20)
	a.queueView.Show()
}

func (a *App) showLibrary() {
	a.showModal(a.libraryView.GetContainer(), 70, 20)
	a.libraryView.Show()
}

func (a *App) showSearch() {
	a.showModal(a.searchView.GetContainer(), 90, 24)
	a.searchView.Show()
}

// showDrawer opens the full-screen now playing view
func (a *App) showDrawer() {
	a.tviewApp.SetRoot(a.drawerView.GetContainer(), true)
	a.drawerView.Show()
}
