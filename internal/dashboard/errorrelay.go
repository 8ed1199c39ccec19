package dashboard

import (
	"slices"
	"sync"

	"github.com/charmbracelet/log"
)

// ErrorRoute is the route the relay navigates to after a fetch failure.
const ErrorRoute = "error"

// SpinnerState represents the loading indicator owner.
type SpinnerState interface {
	HideSpinner()
}

// ErrorRelay forwards fetch failures to the shared error state and the error route.
type ErrorRelay struct {
	state  ErrorState
	nav    Navigator
	logger *log.Logger
}

// NewErrorRelay constructs a relay; a nil logger selects the charm default logger.
func NewErrorRelay(state ErrorState, nav Navigator, logger *log.Logger) *ErrorRelay {
	if logger == nil {
		logger = log.Default()
	}
	return &ErrorRelay{state: state, nav: nav, logger: logger}
}

// Relay clears the spinner, stores err, and navigates to the error route, in that order.
func (r *ErrorRelay) Relay(err error, spinner SpinnerState) {
	if spinner != nil {
		spinner.HideSpinner()
	}
	if err == nil {
		return
	}
	r.logger.Error("fetch failed", "err", err)
	if r.state != nil {
		r.state.SetCurrentError(err)
	}
	if r.nav != nil {
		r.nav.NavigateTo([]string{ErrorRoute})
	}
}

// ErrorHolder is the process-wide current-error store.
type ErrorHolder struct {
	mu  sync.RWMutex
	err error
}

// SetCurrentError stores err.
func (h *ErrorHolder) SetCurrentError(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.err = err
}

// CurrentError returns the stored error.
func (h *ErrorHolder) CurrentError() error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.err
}

// Clear drops the stored error.
func (h *ErrorHolder) Clear() {
	h.SetCurrentError(nil)
}

// Router tracks the current route and notifies an optional listener on change.
type Router struct {
	mu       sync.RWMutex
	current  []string
	onChange func([]string)
}

// NewRouter constructs a router positioned at the given route.
func NewRouter(initial ...string) *Router {
	return &Router{current: slices.Clone(initial)}
}

// OnChange registers the route-change listener.
func (r *Router) OnChange(fn func([]string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onChange = fn
}

// NavigateTo replaces the current route.
func (r *Router) NavigateTo(route []string) {
	r.mu.Lock()
	r.current = slices.Clone(route)
	fn := r.onChange
	r.mu.Unlock()
	if fn != nil {
		fn(slices.Clone(route))
	}
}

// Current returns the current route.
func (r *Router) Current() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.current)
}

// At reports whether the current route equals route.
func (r *Router) At(route ...string) bool {
	return slices.Equal(r.Current(), route)
}
