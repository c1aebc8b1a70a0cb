package ui

import (
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

const helpFooter = "\n[yellow]Press ESC or ? to close this help panel[-]\n"

// HelpView lists the registered key bindings
type HelpView struct {
	app       *App
	container *tview.Flex
	textView  *tview.TextView
	isActive  bool
}

// NewHelpView creates a new help view
func NewHelpView(app *App) *HelpView {
	hv := &HelpView{
		app: app,
	}

	hv.textView = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWrap(true)

	hv.container = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(hv.textView, 0, 1, true)

	hv.container.SetBorder(true).
		SetTitle(" Help (ESC to close) ").
		SetBorderColor(tcell.ColorYellow)

	return hv
}

// Show renders the bindings and focuses the panel
func (hv *HelpView) Show() {
	hv.isActive = true
	hv.textView.SetText(hv.app.keys.HelpText() + helpFooter).ScrollToBeginning()
	hv.app.tviewApp.SetFocus(hv.textView)
}

// Close hides the help view
func (hv *HelpView) Close() {
	hv.isActive = false
	hv.app.closeModal()
}

func (hv *HelpView) IsActive() bool {
	return hv.isActive
}

func (hv *HelpView) GetContainer() *tview.Flex {
	return hv.container
}
