package ui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/rivo/tview"
	"github.com/samber/lo"

	"github.com/yhkl-dev/tunecli/domain"
)

const searchLimit = 100

// FilterTracks fuzzy-matches query against title and artist, best match
// first. An empty query matches nothing.
func FilterTracks(tracks []domain.Track, query string, limit int) []domain.Track {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	targets := lo.Map(tracks, func(t domain.Track, _ int) string {
		return t.Title + " " + t.Artist.Name
	})
	ranks := fuzzy.RankFindNormalizedFold(query, targets)
	sort.Stable(ranks)
	if limit > 0 && len(ranks) > limit {
		ranks = ranks[:limit]
	}
	return lo.Map(ranks, func(r fuzzy.Rank, _ int) domain.Track {
		return tracks[r.OriginalIndex]
	})
}

// SearchView represents the search interface
type SearchView struct {
	app         *App
	container   *tview.Flex
	inputField  *tview.InputField
	resultTable *tview.Table
	results     []domain.Track
	isActive    bool
}

// NewSearchView creates a new search view
func NewSearchView(app *App) *SearchView {
	sv := &SearchView{
		app: app,
	}

	sv.inputField = tview.NewInputField().
		SetLabel("Search: ").
		SetFieldWidth(0).
		SetPlaceholder("Type to filter, ENTER to pick a result...").
		SetFieldBackgroundColor(tcell.ColorDefault)

	sv.inputField.SetChangedFunc(func(text string) {
		sv.performSearch(text)
	})
	sv.inputField.SetDoneFunc(func(key tcell.Key) {
		switch key {
		case tcell.KeyEnter, tcell.KeyDown, tcell.KeyTab:
			if len(sv.results) > 0 {
				sv.resultTable.Select(1, 0)
				sv.app.tviewApp.SetFocus(sv.resultTable)
			}
		case tcell.KeyEscape:
			sv.Close()
		}
	})

	sv.resultTable = tview.NewTable().
		SetBorders(false).
		SetSelectable(true, false).
		SetFixed(1, 0)
	sv.resultTable.SetSelectedStyle(tcell.StyleDefault.
		Background(tcell.ColorDarkGreen).
		Foreground(tcell.ColorWhite))

	sv.resultTable.SetSelectedFunc(func(row, column int) {
		if row > 0 && row-1 < len(sv.results) {
			sv.app.selectTrack(sv.results[row-1])
			sv.Close()
		}
	})

	sv.resultTable.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		// back to the query from the first row
		if event.Key() == tcell.KeyUp {
			if row, _ := sv.resultTable.GetSelection(); row <= 1 {
				sv.app.tviewApp.SetFocus(sv.inputField)
				return nil
			}
		}
		return event
	})

	sv.setupHeaders()

	sv.container = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(sv.inputField, 1, 0, true).
		AddItem(sv.resultTable, 0, 1, false)

	sv.container.SetBorder(true).
		SetTitle(" Search [ENTER: Play | ESC: Close] ").
		SetBorderColor(tcell.ColorGreen)

	return sv
}

func (sv *SearchView) setupHeaders() {
	headerStyle := tcell.StyleDefault.Foreground(tcell.ColorYellow).Attributes(tcell.AttrBold)
	for col, h := range []string{"#", "Title", "Artist", "Duration"} {
		sv.resultTable.SetCell(0, col, tview.NewTableCell(h).SetStyle(headerStyle).SetSelectable(false))
	}
}

// Show displays the search view
func (sv *SearchView) Show() {
	sv.isActive = true
	sv.app.tviewApp.SetFocus(sv.inputField)
}

// Close hides the search view
func (sv *SearchView) Close() {
	sv.isActive = false
	sv.inputField.SetText("")
	sv.results = nil
	sv.clearResults()
	sv.app.closeModal()
}

// IsActive returns whether the search view is active
func (sv *SearchView) IsActive() bool {
	return sv.isActive
}

// GetContainer returns the search view container
func (sv *SearchView) GetContainer() *tview.Flex {
	return sv.container
}

// performSearch filters the loaded catalog as the query changes
func (sv *SearchView) performSearch(query string) {
	sv.results = FilterTracks(sv.app.snap.Tracks, query, searchLimit)
	sv.displayResults(query)
}

// displayResults renders the search results in the table
func (sv *SearchView) displayResults(query string) {
	sv.clearResults()

	if len(sv.results) == 0 {
		if strings.TrimSpace(query) != "" {
			sv.resultTable.SetCell(1, 0, tview.NewTableCell("No results found").
				SetAlign(tview.AlignCenter).
				SetSelectable(false).
				SetExpansion(4))
		}
		return
	}

	rowStyle := tcell.StyleDefault.Foreground(tcell.ColorWhite)
	maxWidth := sv.app.cfg.MaxColumnWidth

	for i, t := range sv.results {
		row := i + 1

		sv.resultTable.SetCell(row, 0,
			tview.NewTableCell(fmt.Sprintf("%d", i+1)).
				SetStyle(rowStyle.Foreground(tcell.ColorLightGreen)).
				SetAlign(tview.AlignRight))

		sv.resultTable.SetCell(row, 1,
			tview.NewTableCell(Truncate(t.Title, maxWidth)).
				SetStyle(rowStyle).
				SetExpansion(2))

		sv.resultTable.SetCell(row, 2,
			tview.NewTableCell(Truncate(t.Artist.Name, 20)).
				SetStyle(rowStyle.Foreground(tcell.ColorGray)))

		sv.resultTable.SetCell(row, 3,
			tview.NewTableCell(FormatDuration(t)).
				SetStyle(rowStyle.Foreground(tcell.ColorGray)).
				SetAlign(tview.AlignRight))
	}
}

// clearResults clears the result table
func (sv *SearchView) clearResults() {
	for i := sv.resultTable.GetRowCount() - 1; i > 0; i-- {
		sv.resultTable.RemoveRow(i)
	}
}
