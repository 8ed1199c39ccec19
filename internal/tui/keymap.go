package tui

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"charm.land/bubbles/v2/key"
)

// KeyConfig overrides single-key bindings. Blank fields keep the defaults.
type KeyConfig struct {
	Approve string
	Reject  string
	Claim   string
	Release string
	Copy    string
	Sort    string
	Reverse string
	Refresh string
}

// keyMap represents key map data used by this package.
type keyMap struct {
	quit        key.Binding
	reload      key.Binding
	toggleHelp  key.Binding
	moveUp      key.Binding
	moveDown    key.Binding
	nextSection key.Binding
	prevSection key.Binding
	approve     key.Binding
	reject      key.Binding
	claim       key.Binding
	release     key.Binding
	copyID      key.Binding
	sortColumn  key.Binding
	sortReverse key.Binding
	pageNext    key.Binding
	pagePrev    key.Binding
}

// newKeyMap constructs the default key map with optional overrides applied.
func newKeyMap(cfg KeyConfig) keyMap {
	return keyMap{
		quit:        key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		reload:      configuredBinding(cfg.Refresh, "r", "reload"),
		toggleHelp:  key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
		moveUp:      key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "row up")),
		moveDown:    key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "row down")),
		nextSection: key.NewBinding(key.WithKeys("tab", "]"), key.WithHelp("tab/]", "next section")),
		prevSection: key.NewBinding(key.WithKeys("shift+tab", "["), key.WithHelp("shift+tab/[", "prev section")),
		approve:     configuredBinding(cfg.Approve, "a", "approve"),
		reject:      configuredBinding(cfg.Reject, "x", "reject"),
		claim:       configuredBinding(cfg.Claim, "c", "claim"),
		release:     configuredBinding(cfg.Release, "u", "release"),
		copyID:      configuredBinding(cfg.Copy, "y", "copy row id"),
		sortColumn:  configuredBinding(cfg.Sort, "s", "sort column"),
		sortReverse: configuredBinding(cfg.Reverse, "S", "reverse sort"),
		pageNext:    key.NewBinding(key.WithKeys("pgdown", "l", "right"), key.WithHelp("l/→", "next page")),
		pagePrev:    key.NewBinding(key.WithKeys("pgup", "h", "left"), key.WithHelp("h/←", "prev page")),
	}
}

// configuredBinding builds one binding from an override or its fallback key.
func configuredBinding(raw, fallback, desc string) key.Binding {
	keys, helpKey := parseBindingKeys(raw, fallback)
	return key.NewBinding(key.WithKeys(keys...), key.WithHelp(helpKey, desc))
}

// parseBindingKeys converts one configured key label into matcher keys and help text.
func parseBindingKeys(raw, fallback string) ([]string, string) {
	label := strings.TrimSpace(raw)
	if label == "" && raw != " " {
		label = fallback
	}
	if raw == " " || strings.EqualFold(label, "space") {
		return []string{" ", "space"}, "space"
	}
	if utf8.RuneCountInString(label) == 1 {
		r, _ := utf8.DecodeRuneInString(label)
		if unicode.IsUpper(r) {
			return []string{label, "shift+" + string(unicode.ToLower(r))}, label
		}
		return []string{label}, label
	}
	return []string{strings.ToLower(label)}, label
}

// ShortHelp returns the bindings shown in the one-line help bar.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.nextSection, k.approve, k.reject, k.claim, k.sortColumn, k.reload, k.toggleHelp, k.quit,
	}
}

// FullHelp returns every binding grouped by concern.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.moveUp, k.moveDown, k.nextSection, k.prevSection, k.pageNext, k.pagePrev},
		{k.approve, k.reject, k.claim, k.release, k.copyID},
		{k.sortColumn, k.sortReverse, k.reload, k.toggleHelp, k.quit},
	}
}
