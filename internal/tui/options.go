package tui

import "github.com/atotto/clipboard"

// DefaultPageSize is the number of grid rows shown per page.
const DefaultPageSize = 20

// Option configures a Model.
type Option func(*Model)

// WithPageSize sets the grid page size; non-positive values keep the default.
func WithPageSize(n int) Option {
	return func(m *Model) {
		if n > 0 {
			m.pageSize = n
		}
	}
}

// WithKeyConfig applies key binding overrides.
func WithKeyConfig(cfg KeyConfig) Option {
	return func(m *Model) {
		m.keys = newKeyMap(cfg)
	}
}

// WithClipboard replaces the clipboard writer used by the copy binding.
func WithClipboard(write func(string) error) Option {
	return func(m *Model) {
		if write != nil {
			m.copyText = write
		}
	}
}

// systemClipboard writes text to the OS clipboard.
func systemClipboard(text string) error {
	return clipboard.WriteAll(text)
}
