package ui

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"
	"github.com/rivo/tview"
)

const helpKeyWidth = 14

// KeyAction represents an action that can be triggered by keybindings
type KeyAction struct {
	name    string
	help    string
	handler func()
}

// KeyBindingManager manages all keybindings and dispatches events
type KeyBindingManager struct {
	bindings  map[tcell.Key]KeyAction // special key -> action mapping
	runeMap   map[rune]KeyAction      // rune -> action mapping
	sequences map[string]KeyAction    // multi-key bindings like "gg"
	pending   string                  // pending key sequence

	section string
	help    []helpLine
}

// helpLine is one row of the help panel
type helpLine struct {
	section string
	name    string
	keys    []string
	text    string
}

// NewKeyBindingManager creates a new key binding manager
func NewKeyBindingManager() *KeyBindingManager {
	return &KeyBindingManager{
		bindings:  make(map[tcell.Key]KeyAction),
		runeMap:   make(map[rune]KeyAction),
		sequences: make(map[string]KeyAction),
	}
}

// RegisterKeyBinding registers a single key binding
func (km *KeyBindingManager) RegisterKeyBinding(action KeyAction, keys []tcell.Key, runes []rune) {
	labels := make([]string, 0, len(keys)+len(runes))
	for _, r := range runes {
		km.runeMap[r] = action
		labels = append(labels, runeLabel(r))
	}
	for _, key := range keys {
		km.bindings[key] = action
		labels = append(labels, keyLabel(key))
	}
	km.describe(action.name, action.help, labels)
}

// RegisterSequence binds a rune sequence such as "gg"
func (km *KeyBindingManager) RegisterSequence(seq string, action KeyAction) {
	km.sequences[seq] = action
	km.describe(action.name, action.help, []string{seq})
}

// Section starts a new group in the help panel
func (km *KeyBindingManager) Section(title string) {
	km.section = title
}

// Document adds a help row for keys handled outside the manager
func (km *KeyBindingManager) Document(keys, text string) {
	km.describe("", text, []string{keys})
}

// describe records a help row; consecutive bindings of one action share it
func (km *KeyBindingManager) describe(name, text string, keys []string) {
	if text == "" {
		return
	}
	if n := len(km.help); n > 0 && name != "" && km.help[n-1].name == name {
		km.help[n-1].keys = append(km.help[n-1].keys, keys...)
		return
	}
	km.help = append(km.help, helpLine{section: km.section, name: name, keys: keys, text: text})
}

// HelpText renders the registered bindings for the help panel
func (km *KeyBindingManager) HelpText() string {
	var b strings.Builder
	b.WriteString("[yellow::b]Keyboard Shortcuts[-:-:-]\n")
	section := "\x00"
	for _, line := range km.help {
		if line.section != section {
			section = line.section
			if section != "" {
				fmt.Fprintf(&b, "\n[lightgreen]%s:[-]\n", section)
			}
		}
		label := joinKeys(line.keys)
		pad := max(1, helpKeyWidth-runewidth.StringWidth(label))
		fmt.Fprintf(&b, "  [white]%s[-]%s%s\n", tview.Escape(label), strings.Repeat(" ", pad), line.text)
	}
	return b.String()
}

// joinKeys lists keys as "a / b"; long runs collapse to "first-last"
func joinKeys(keys []string) string {
	if len(keys) > 4 {
		return keys[0] + "-" + keys[len(keys)-1]
	}
	return strings.Join(keys, " / ")
}

func runeLabel(r rune) string {
	if r == ' ' {
		return "Space"
	}
	return string(r)
}

var keyLabels = map[tcell.Key]string{
	tcell.KeyRight: "→",
	tcell.KeyLeft:  "←",
	tcell.KeyUp:    "↑",
	tcell.KeyDown:  "↓",
	tcell.KeyPgUp:  "PgUp",
	tcell.KeyPgDn:  "PgDn",
	tcell.KeyCtrlC: "Ctrl+C",
}

func keyLabel(k tcell.Key) string {
	if l, ok := keyLabels[k]; ok {
		return l
	}
	if name, ok := tcell.KeyNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Key(%d)", k)
}

// HandleKey handles a keyboard event and returns true if it was consumed
func (km *KeyBindingManager) HandleKey(event *tcell.EventKey) bool {
	// Check for special keys first
	if event.Key() != tcell.KeyRune {
		km.pending = ""
		if action, ok := km.bindings[event.Key()]; ok {
			action.handler()
			return true
		}
		return false
	}

	seq := km.pending + string(event.Rune())
	if action, ok := km.sequences[seq]; ok {
		km.pending = ""
		action.handler()
		return true
	}
	if km.isPrefix(seq) {
		km.pending = seq
		return true
	}

	// Not a sequence: fall back to the rune on its own
	km.pending = ""
	if action, ok := km.runeMap[event.Rune()]; ok {
		action.handler()
		return true
	}
	return false
}

func (km *KeyBindingManager) isPrefix(seq string) bool {
	for s := range km.sequences {
		if len(s) > len(seq) && strings.HasPrefix(s, seq) {
			return true
		}
	}
	return false
}

// ResetPending resets the pending key sequence
func (km *KeyBindingManager) ResetPending() {
	km.pending = ""
}
