// Package ui renders the playback session in the terminal and turns key
// presses into session and progress operations.
package ui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/rivo/tview"
	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc"
	"golang.org/x/term"

	"github.com/yhkl-dev/tunecli/binding"
	"github.com/yhkl-dev/tunecli/catalog"
	"github.com/yhkl-dev/tunecli/config"
	"github.com/yhkl-dev/tunecli/coverart"
	"github.com/yhkl-dev/tunecli/domain"
	"github.com/yhkl-dev/tunecli/log"
	"github.com/yhkl-dev/tunecli/progress"
	"github.com/yhkl-dev/tunecli/session"
)

const (
	noticeTTL      = 5 * time.Second
	catalogTimeout = 30 * time.Second
	likeTimeout    = 10 * time.Second
	defaultWidth   = 120
)

// Deps are the collaborators the views render and drive
type Deps struct {
	Config   config.UIConfig
	Session  *session.Session
	Progress *progress.Reporter
	Catalog  catalog.Catalog
	Cover    *coverart.Converter
}

// App represents the TUI application
type App struct {
	tviewApp *tview.Application
	cfg      config.UIConfig
	session  *session.Session
	progress *progress.Reporter
	catalog  catalog.Catalog
	cover    *coverart.Converter
	keys     *KeyBindingManager
	log      *logrus.Entry
	ctx      context.Context
	cancel   context.CancelFunc
	wg       conc.WaitGroup

	redraw chan struct{}

	// owned by the tview goroutine
	snap        domain.Snapshot
	liked       map[string]bool
	currentPage int
	totalPages  int
	compact     bool
	coverFor    string
	coverArt    string
	noticeSeq   int

	rootFlex    *tview.Flex
	songTable   *tview.Table
	statusBar   *tview.TextView
	progressBar *tview.TextView
	miniPlayer  *tview.TextView
	noticeBar   *tview.TextView
	searchView  *SearchView
	helpView    *HelpView
	queueView   *QueueView
	drawerView  *DrawerView
	libraryView *LibraryView

	widthMux sync.Mutex
	width    int

	libMux  sync.Mutex
	library []domain.Track // last catalog fetch
	source  source
}

// NewApp creates the TUI application
func NewApp(d Deps) *App {
	a := &App{
		tviewApp:    tview.NewApplication(),
		cfg:         d.Config,
		session:     d.Session,
		progress:    d.Progress,
		catalog:     d.Catalog,
		cover:       d.Cover,
		keys:        NewKeyBindingManager(),
		log:         log.Component("ui"),
		redraw:      make(chan struct{}, 1),
		liked:       make(map[string]bool),
		currentPage: 1,
		totalPages:  1,
		width:       terminalWidth(),
	}
	a.ctx, a.cancel = context.WithCancel(context.Background())
	if a.cover == nil {
		a.cover = coverart.NewConverter(0)
	}
	a.snap = a.session.Snapshot()
	a.compact = a.isCompact(a.width)

	a.createHomepage()
	a.registerKeyBindings()
	a.render()
	a.session.OnChange(func(domain.Snapshot) { a.requestRedraw() })
	return a
}

// Run starts the application and blocks until it exits
func (a *App) Run(ctx context.Context) error {
	defer context.AfterFunc(ctx, a.cancel)()
	ctx = a.ctx

	a.wg.Go(func() { a.redrawLoop(ctx) })
	a.wg.Go(func() { a.updateProgressBar(ctx) })
	a.wg.Go(func() { a.handleTerminalResize(ctx) })
	a.wg.Go(func() { a.loadCatalog(ctx) })
	a.wg.Go(func() {
		<-ctx.Done()
		a.tviewApp.Stop()
	})

	a.log.Info("start tunecli...")
	err := a.tviewApp.Run()
	a.cancel()
	if r := a.wg.WaitAndRecover(); r != nil {
		a.log.Errorf("ui goroutine panicked: %v", r.Value)
	}
	return err
}

// Stop stops the application
func (a *App) Stop() {
	a.tviewApp.Stop()
}

// Notify shows a binding notice; it never blocks the caller
func (a *App) Notify(n binding.Notice) {
	a.log.WithField("track", n.Track.ID).WithError(n.Err).Warn(n.Kind.String())
	a.queueNotice(n.String())
}

func (a *App) queueNotice(text string) {
	go a.tviewApp.QueueUpdateDraw(func() { a.showNotice(text) })
}

// showNotice displays text in the toast line until it expires
func (a *App) showNotice(text string) {
	a.noticeSeq++
	seq := a.noticeSeq
	a.noticeBar.SetText("[red]" + tview.Escape(text))
	time.AfterFunc(noticeTTL, func() {
		a.tviewApp.QueueUpdateDraw(func() {
			if a.noticeSeq == seq {
				a.noticeBar.SetText("")
			}
		})
	})
}

// requestRedraw coalesces session changes into one redraw
func (a *App) requestRedraw() {
	select {
	case a.redraw <- struct{}{}:
	default:
	}
}

func (a *App) redrawLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-a.redraw:
			a.tviewApp.QueueUpdateDraw(a.render)
		}
	}
}

// render refreshes every view from the latest session snapshot
func (a *App) render() {
	prev := a.snap
	a.snap = a.session.Snapshot()

	if !sameTracks(prev.Tracks, a.snap.Tracks) || a.songTable.GetRowCount() <= 1 {
		a.totalPages = pageCount(len(a.snap.Tracks), a.cfg.PageSize)
		a.currentPage = min(a.currentPage, a.totalPages)
		a.renderSongTable()
	} else {
		a.markCurrentRow()
	}

	if cur, _, ok := a.snap.Current(); ok && cur.ID != a.coverFor {
		a.coverFor = cur.ID
		a.coverArt = coverart.Placeholder()
		a.wg.Go(func() { a.loadCoverArt(cur) })
	}
	a.updatePlayerDisplay()
	if a.queueView.IsActive() {
		a.queueView.refreshQueue()
	}
}

// loadCatalog fetches the track list and the user's likes, then reloads
// the selected source from the new list
func (a *App) loadCatalog(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, catalogTimeout)
	defer cancel()

	tracks, err := a.catalog.Tracks(ctx)
	switch {
	case errors.Is(err, catalog.ErrStale):
		a.log.WithError(err).Warn("serving cached catalog")
		a.queueNotice("Catalog unavailable, showing cached songs")
	case err != nil:
		a.log.WithError(err).Error("load catalog")
		a.queueNotice("Failed to load music: " + err.Error())
		return
	}
	a.libMux.Lock()
	a.library = tracks
	src := a.source
	a.libMux.Unlock()

	if src.kind == allSongs {
		a.session.SetTracks(tracks)
	} else if _, err := a.loadSource(ctx, src); err != nil {
		a.log.WithError(err).Warn("reload source")
		a.queueNotice("Failed to reload " + src.label() + ": " + err.Error())
	}

	liked, err := a.catalog.Liked(ctx)
	if err != nil {
		if !errors.Is(err, catalog.ErrNoToken) {
			a.log.WithError(err).Warn("load liked songs")
		}
		return
	}
	a.tviewApp.QueueUpdateDraw(func() {
		clear(a.liked)
		for _, id := range liked {
			a.liked[id] = true
		}
		a.updatePlayerDisplay()
	})
}

func (a *App) refreshCatalog() {
	a.wg.Go(func() { a.loadCatalog(a.ctx) })
}

// toggleLike flips the liked mark at once and reverts it if the catalog fails
func (a *App) toggleLike() {
	cur, ok := a.session.Current()
	if !ok {
		return
	}
	wasLiked := a.liked[cur.ID]
	a.liked[cur.ID] = !wasLiked
	a.updatePlayerDisplay()

	a.wg.Go(func() {
		ctx, cancel := context.WithTimeout(a.ctx, likeTimeout)
		defer cancel()
		op := a.catalog.Like
		if wasLiked {
			op = a.catalog.Unlike
		}
		err := op(ctx, cur.ID)
		if err == nil {
			return
		}
		a.log.WithField("track", cur.ID).WithError(err).Warn("like toggle failed")
		msg := "Failed to update like: " + err.Error()
		if catalog.IsUnauthorized(err) {
			msg = "Sign in to like songs (tunecli auth login)"
		}
		a.tviewApp.QueueUpdateDraw(func() {
			a.liked[cur.ID] = wasLiked
			a.updatePlayerDisplay()
			a.showNotice(msg)
		})
	})
}

func (a *App) loadCoverArt(t domain.Track) {
	ctx, cancel := context.WithTimeout(a.ctx, catalogTimeout)
	defer cancel()
	ascii, err := a.cover.ConvertFromURL(ctx, t.ThumbnailURL)
	if err != nil {
		a.log.WithField("track", t.ID).WithError(err).Debug("cover art")
	}
	a.tviewApp.QueueUpdateDraw(func() {
		if a.coverFor == t.ID {
			a.coverArt = ascii
			a.updatePlayerDisplay()
		}
	})
}

// updateProgressBar refreshes the time display while playing
func (a *App) updateProgressBar(ctx context.Context) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if a.session.State() == domain.Playing {
				a.tviewApp.QueueUpdateDraw(a.updatePlayerDisplay)
			}
		case <-ctx.Done():
			return
		}
	}
}

// handleTerminalResize switches layouts when the terminal width crosses
// the compact threshold
func (a *App) handleTerminalResize(ctx context.Context) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			width := terminalWidth()
			a.widthMux.Lock()
			changed := width != a.width
			a.width = width
			a.widthMux.Unlock()
			if changed {
				a.tviewApp.QueueUpdateDraw(func() { a.applyLayout(a.isCompact(width)) })
			}
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) termWidth() int {
	a.widthMux.Lock()
	defer a.widthMux.Unlock()
	return a.width
}

func (a *App) isCompact(width int) bool {
	return a.cfg.CompactWidth > 0 && width < a.cfg.CompactWidth
}

// terminalWidth returns the current terminal width
func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return defaultWidth
	}
	return width
}

func pageCount(n, pageSize int) int {
	if pageSize <= 0 || n == 0 {
		return 1
	}
	return (n + pageSize - 1) / pageSize
}

func sameTracks(a, b []domain.Track) bool {
	return slices.EqualFunc(a, b, func(x, y domain.Track) bool {
		return x.ID == y.ID && x.Title == y.Title && x.Likes == y.Likes
	})
}

// handleExit stops the application; the caller releases the player
func (a *App) handleExit() {
	a.log.Info("exit requested")
	a.tviewApp.Stop()
}

func (a *App) seek(pct float64) {
	if err := a.progress.Seek(pct); err != nil {
		a.showNotice(fmt.Sprintf("Cannot seek: %v", err))
	}
}

func (a *App) seekBy(delta float64) {
	if err := a.progress.SeekBy(delta); err != nil {
		a.showNotice(fmt.Sprintf("Cannot seek: %v", err))
	}
}
