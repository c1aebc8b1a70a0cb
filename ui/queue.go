package ui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/samber/mo"

	"github.com/yhkl-dev/tunecli/domain"
)

const upNextLimit = 50

// UpNext lists the tracks that follow current in list order, wrapping
// around and stopping before current. Without a current track the whole
// list is upcoming.
func UpNext(tracks []domain.Track, current mo.Option[string], limit int) []domain.Track {
	start := 0
	n := len(tracks)
	if id, ok := current.Get(); ok {
		for i, t := range tracks {
			if t.ID == id {
				start = i + 1
				n--
				break
			}
		}
	}
	if limit > 0 {
		n = min(n, limit)
	}

	out := make([]domain.Track, 0, max(n, 0))
	for i := 0; i < n; i++ {
		out = append(out, tracks[(start+i)%len(tracks)])
	}
	return out
}

// QueueView shows what plays next
type QueueView struct {
	app       *App
	container *tview.Flex
	table     *tview.Table
	upcoming  []domain.Track
	isActive  bool
}

// NewQueueView creates a new queue view
func NewQueueView(app *App) *QueueView {
	qv := &QueueView{
		app: app,
	}

	qv.table = tview.NewTable().
		SetBorders(false).
		SetSelectable(true, false).
		SetFixed(1, 0)
	qv.table.SetSelectedStyle(tcell.StyleDefault.
		Background(tcell.ColorDarkCyan).
		Foreground(tcell.ColorWhite))

	qv.table.SetSelectedFunc(func(row, column int) {
		if row > 0 && row-1 < len(qv.upcoming) {
			qv.app.selectTrack(qv.upcoming[row-1])
			qv.Close()
		}
	})

	qv.container = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(qv.table, 0, 1, true)

	qv.container.SetBorder(true).
		SetTitle(" Up Next (ESC/q to close) ").
		SetBorderColor(tcell.NewHexColor(0x00bcd4))

	return qv
}

// Show displays the queue view
func (qv *QueueView) Show() {
	qv.isActive = true
	qv.refreshQueue()
	qv.app.tviewApp.SetFocus(qv.table)
}

// Close hides the queue view
func (qv *QueueView) Close() {
	qv.isActive = false
	qv.app.closeModal()
}

// IsActive returns whether the queue view is active
func (qv *QueueView) IsActive() bool {
	return qv.isActive
}

// GetContainer returns the queue view container
func (qv *QueueView) GetContainer() *tview.Flex {
	return qv.container
}

// refreshQueue updates the table from the latest snapshot
func (qv *QueueView) refreshQueue() {
	snap := qv.app.snap
	qv.upcoming = UpNext(snap.Tracks, snap.CurrentID, upNextLimit)

	qv.table.Clear()
	headerStyle := tcell.StyleDefault.Foreground(tcell.ColorYellow).Attributes(tcell.AttrBold)
	for col, h := range []string{"#", "Title", "Artist", "Duration"} {
		qv.table.SetCell(0, col, tview.NewTableCell(h).SetStyle(headerStyle).SetSelectable(false))
	}

	if snap.Shuffle {
		qv.container.SetTitle(" Up Next (shuffle on, order is random) ")
	} else {
		qv.container.SetTitle(" Up Next (ESC/q to close) ")
	}

	if len(qv.upcoming) == 0 {
		qv.table.SetCell(1, 0, tview.NewTableCell("Nothing up next").
			SetAlign(tview.AlignCenter).
			SetExpansion(4).
			SetSelectable(false).
			SetTextColor(tcell.ColorGray))
		return
	}

	rowStyle := tcell.StyleDefault.Foreground(tcell.ColorWhite)
	maxWidth := qv.app.cfg.MaxColumnWidth
	for i, t := range qv.upcoming {
		row := i + 1

		qv.table.SetCell(row, 0,
			tview.NewTableCell(fmt.Sprintf("%d", row)).
				SetStyle(rowStyle.Foreground(tcell.ColorLightGreen)).
				SetAlign(tview.AlignRight))

		qv.table.SetCell(row, 1,
			tview.NewTableCell(Truncate(t.Title, maxWidth)).
				SetStyle(rowStyle).
				SetExpansion(2))

		qv.table.SetCell(row, 2,
			tview.NewTableCell(Truncate(t.Artist.Name, 20)).
				SetStyle(rowStyle.Foreground(tcell.ColorGray)))

		qv.table.SetCell(row, 3,
			tview.NewTableCell(FormatDuration(t)).
				SetStyle(rowStyle.Foreground(tcell.ColorGray)).
				SetAlign(tview.AlignRight))
	}
}
