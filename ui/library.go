package ui

import (
	"context"
	"errors"
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/yhkl-dev/tunecli/catalog"
	"github.com/yhkl-dev/tunecli/domain"
)

type sourceKind int

const (
	allSongs sourceKind = iota
	likedSongs
	playlistSource
)

// source is the track list the session plays from
type source struct {
	kind sourceKind
	id   string
	name string
}

func (s source) label() string {
	switch s.kind {
	case likedSongs:
		return "Liked songs"
	case playlistSource:
		return s.name
	}
	return "All songs"
}

// loadSource resolves src against the library and hands it to the session
func (a *App) loadSource(ctx context.Context, src source) ([]domain.Track, error) {
	library := a.libraryTracks()

	var tracks []domain.Track
	switch src.kind {
	case allSongs:
		tracks = library
	case likedSongs:
		ids, err := a.catalog.Liked(ctx)
		if err != nil {
			return nil, fmt.Errorf("liked songs: %w", err)
		}
		tracks = catalog.Pick(ids, library)
	case playlistSource:
		p, err := a.catalog.Playlist(ctx, src.id)
		if err != nil {
			return nil, fmt.Errorf("playlist %s: %w", src.name, err)
		}
		tracks = p.Resolve(library)
	}

	a.libMux.Lock()
	a.source = src
	a.libMux.Unlock()
	a.session.SetTracks(tracks)
	a.log.WithField("source", src.label()).Infof("playing from %d tracks", len(tracks))
	return tracks, nil
}

// openSource switches sources in the background
func (a *App) openSource(src source) {
	a.wg.Go(func() {
		ctx, cancel := context.WithTimeout(a.ctx, catalogTimeout)
		defer cancel()

		tracks, err := a.loadSource(ctx, src)
		if err != nil {
			a.log.WithError(err).Warn("switch source")
			msg := "Failed to load " + src.label() + ": " + err.Error()
			if catalog.IsUnauthorized(err) {
				msg = "Sign in to use liked songs and playlists (tunecli auth login)"
			}
			a.queueNotice(msg)
			return
		}
		a.tviewApp.QueueUpdateDraw(func() {
			a.currentPage = 1
			a.songTable.Select(1, 0)
			a.songTable.ScrollToBeginning()
		})
		if len(tracks) == 0 {
			a.queueNotice(src.label() + " has no playable songs")
		}
	})
}

func (a *App) libraryTracks() []domain.Track {
	a.libMux.Lock()
	defer a.libMux.Unlock()
	return a.library
}

func (a *App) currentSource() source {
	a.libMux.Lock()
	defer a.libMux.Unlock()
	return a.source
}

// LibraryView picks the source: every song, the liked songs or a playlist
type LibraryView struct {
	app       *App
	container *tview.Flex
	table     *tview.Table
	entries   []source
	isActive  bool
}

// NewLibraryView creates a new library view
func NewLibraryView(app *App) *LibraryView {
	lv := &LibraryView{
		app: app,
	}

	lv.table = tview.NewTable().
		SetBorders(false).
		SetSelectable(true, false)
	lv.table.SetSelectedStyle(tcell.StyleDefault.
		Background(tcell.ColorDarkCyan).
		Foreground(tcell.ColorWhite))

	lv.table.SetSelectedFunc(func(row, column int) {
		if row >= 0 && row < len(lv.entries) {
			lv.app.openSource(lv.entries[row])
			lv.Close()
		}
	})

	lv.container = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(lv.table, 0, 1, true)

	lv.container.SetBorder(true).
		SetTitle(" Library (ESC/l to close) ").
		SetBorderColor(tcell.NewHexColor(0x00bcd4))

	return lv
}

// Show displays the built-in sources and fetches the user's playlists
func (lv *LibraryView) Show() {
	lv.isActive = true
	lv.render(nil, "Loading playlists...")
	lv.app.tviewApp.SetFocus(lv.table)

	lv.app.wg.Go(func() {
		ctx, cancel := context.WithTimeout(lv.app.ctx, catalogTimeout)
		defer cancel()
		lists, err := lv.app.catalog.Playlists(ctx)
		lv.app.tviewApp.QueueUpdateDraw(func() { lv.setPlaylists(lists, err) })
	})
}

// setPlaylists shows the fetched playlists, or why there are none
func (lv *LibraryView) setPlaylists(lists []catalog.Playlist, err error) {
	if !lv.isActive {
		return
	}
	switch {
	case errors.Is(err, catalog.ErrNoToken) || catalog.IsUnauthorized(err):
		lv.render(nil, "Sign in to see your playlists")
	case err != nil:
		lv.app.log.WithError(err).Warn("load playlists")
		lv.render(nil, "Failed to load playlists")
	case len(lists) == 0:
		lv.render(nil, "No playlists yet")
	default:
		lv.render(lists, "")
	}
}

func (lv *LibraryView) render(lists []catalog.Playlist, status string) {
	lv.entries = []source{{kind: allSongs}, {kind: likedSongs}}
	for _, p := range lists {
		lv.entries = append(lv.entries, source{kind: playlistSource, id: p.ID, name: p.Name})
	}

	current := lv.app.currentSource()
	lv.table.Clear()
	for row, src := range lv.entries {
		marker := "  "
		if src.kind == current.kind && src.id == current.id {
			marker = "▶ "
		}
		color := tcell.ColorWhite
		if src.kind != playlistSource {
			color = tcell.ColorLightGreen
		}
		lv.table.SetCell(row, 0, tview.NewTableCell(marker+Truncate(src.label(), lv.app.cfg.MaxColumnWidth)).
			SetTextColor(color).
			SetExpansion(2))

		detail := ""
		if src.kind == playlistSource {
			detail = fmt.Sprintf("%d songs", len(lists[row-2].TrackIDs))
			if owner := lists[row-2].Owner; owner != "" {
				detail = owner + " · " + detail
			}
		}
		lv.table.SetCell(row, 1, tview.NewTableCell(detail).
			SetTextColor(tcell.ColorGray).
			SetAlign(tview.AlignRight))
	}
	if status != "" {
		lv.table.SetCell(len(lv.entries), 0, tview.NewTableCell("  "+status).
			SetTextColor(tcell.ColorGray).
			SetSelectable(false))
	}
}

// Close hides the library view
func (lv *LibraryView) Close() {
	lv.isActive = false
	lv.app.closeModal()
}

// IsActive returns whether the library view is active
func (lv *LibraryView) IsActive() bool {
	return lv.isActive
}

// GetContainer returns the library view container
func (lv *LibraryView) GetContainer() *tview.Flex {
	return lv.container
}
