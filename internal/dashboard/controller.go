// Package dashboard implements the task dashboard screen controller.
package dashboard

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/hylla/taskdash/internal/domain"
	"github.com/hylla/taskdash/internal/layout"
)

// Default controller settings.
const (
	DefaultMyWorkKey          = "MY_WORK"
	DefaultGroupedSectionType = "TASKS_BY_GROUP"
	DefaultTitle              = "Task Dashboard"
	DefaultActionFailure      = "action failed"
)

// Config holds configuration for the controller.
type Config struct {
	MyWorkKey          string
	GroupedSectionType string
	DefaultTitle       string
}

// normalize fills blank settings with package defaults.
func (c Config) normalize() Config {
	if strings.TrimSpace(c.MyWorkKey) == "" {
		c.MyWorkKey = DefaultMyWorkKey
	}
	if strings.TrimSpace(c.GroupedSectionType) == "" {
		c.GroupedSectionType = DefaultGroupedSectionType
	}
	if strings.TrimSpace(c.DefaultTitle) == "" {
		c.DefaultTitle = DefaultTitle
	}
	return c
}

// Option configures a controller.
type Option func(*Controller)

// WithConfig sets controller keys and the fallback title.
func WithConfig(cfg Config) Option {
	return func(c *Controller) {
		c.cfg = cfg.normalize()
	}
}

// WithResolver sets the layout resolver.
func WithResolver(resolver layout.Resolver) Option {
	return func(c *Controller) {
		c.resolver = resolver
	}
}

// WithActionRenderer sets the renderer bound to action columns.
func WithActionRenderer(renderer layout.ActionRenderer) Option {
	return func(c *Controller) {
		c.renderer = renderer
	}
}

// WithLogger sets the controller logger.
func WithLogger(logger *log.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithActionListener replaces the synchronous reload that follows a successful action.
// The listener receives the result and whether a reload is due.
func WithActionListener(fn func(domain.ActionResult, bool)) Option {
	return func(c *Controller) {
		c.listener = fn
	}
}

// TicketKind identifies the fetch a ticket stands for.
type TicketKind int

// Ticket kinds.
const (
	TicketMyWork TicketKind = iota
	TicketSection
)

// Ticket describes one issued fetch and the generation it belongs to.
type Ticket struct {
	Kind         TicketKind
	Generation   uint64
	Key          string
	Grouped      bool
	SectionIndex int
	SectionType  string
}

// Outcome is a completed fetch waiting to be committed.
type Outcome struct {
	Ticket   Ticket
	Response domain.FetchResponse
	Err      error
}

// View is a copy of the controller state for rendering.
type View struct {
	Title        string
	Sections     []domain.SectionDescriptor
	Loaded       bool
	ActiveIndex  int
	Layout       layout.Layout
	HasLayout    bool
	HeaderRows   []domain.HeaderRow
	Rows         []domain.Row
	Loading      bool
	IsError      bool
	ErrorMessage string
	Generation   uint64
}

// Controller orchestrates accordion loads, header derivation, and action-result handling.
type Controller struct {
	mu sync.Mutex

	fetcher  Fetcher
	grid     Grid
	relay    *ErrorRelay
	resolver layout.Resolver
	renderer layout.ActionRenderer
	cfg      Config
	logger   *log.Logger
	listener func(domain.ActionResult, bool)

	unsubscribe func()

	title        string
	sections     []domain.SectionDescriptor
	active       int
	resolved     map[int]layout.Layout
	layout       layout.Layout
	hasLayout    bool
	headerRows   []domain.HeaderRow
	loading      bool
	isError      bool
	errorMessage string
	generation   uint64
}

// NewController constructs a controller over its collaborators.
func NewController(fetcher Fetcher, grid Grid, relay *ErrorRelay, opts ...Option) *Controller {
	c := &Controller{
		fetcher:  fetcher,
		grid:     grid,
		relay:    relay,
		resolver: layout.NewResolver(nil),
		cfg:      Config{}.normalize(),
		logger:   log.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if c.relay == nil {
		c.relay = NewErrorRelay(nil, nil, c.logger)
	}
	return c
}

// OnInit attaches to the action stream and loads the my-work accordion.
func (c *Controller) OnInit(ctx context.Context, sub Subscriber) error {
	c.Attach(sub)
	return c.LoadMyWorkAccordion(ctx)
}

// Attach subscribes the controller to the action stream. Repeated calls keep one subscription.
func (c *Controller) Attach(sub Subscriber) {
	if sub == nil {
		return
	}
	c.mu.Lock()
	if c.unsubscribe != nil {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	unsubscribe := sub.Subscribe(c.onActionResult)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.unsubscribe != nil {
		unsubscribe()
		return
	}
	c.unsubscribe = unsubscribe
}

// Detach releases the action stream subscription.
func (c *Controller) Detach() {
	c.mu.Lock()
	unsubscribe := c.unsubscribe
	c.unsubscribe = nil
	c.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
}

// Attached reports whether the controller holds a subscription.
func (c *Controller) Attached() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.unsubscribe != nil
}

// onActionResult handles one event from the action stream.
func (c *Controller) onActionResult(res domain.ActionResult) {
	reload := c.HandleActionResult(res)
	if c.listener != nil {
		c.listener(res, reload)
		return
	}
	if reload {
		if err := c.LoadMyWorkAccordion(context.Background()); err != nil {
			c.logger.Warn("reload after action failed", "err", err)
		}
	}
}

// HandleActionResult clears the inline error and applies one action result.
// It reports whether a full reload is due.
func (c *Controller) HandleActionResult(res domain.ActionResult) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.isError = false
	c.errorMessage = ""
	if res.IsSuccess {
		return true
	}
	msg := strings.TrimSpace(res.Message)
	if msg == "" {
		msg = DefaultActionFailure
	}
	c.isError = true
	c.errorMessage = msg
	return false
}

// Refresh re-runs the my-work load when isSuccess is true.
func (c *Controller) Refresh(ctx context.Context, isSuccess bool) error {
	if !isSuccess {
		return nil
	}
	return c.LoadMyWorkAccordion(ctx)
}

// LoadMyWorkAccordion fetches the my-work dataset and commits it.
func (c *Controller) LoadMyWorkAccordion(ctx context.Context) error {
	ticket := c.BeginMyWork()
	return c.Commit(c.Execute(ctx, ticket))
}

// LoadAccordionData fetches one section and commits it.
func (c *Controller) LoadAccordionData(ctx context.Context, index int) error {
	ticket, err := c.BeginSection(index)
	if err != nil {
		return err
	}
	return c.Commit(c.Execute(ctx, ticket))
}

// BeginMyWork issues a my-work ticket and advances the generation.
func (c *Controller) BeginMyWork() Ticket {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	return Ticket{
		Kind:       TicketMyWork,
		Generation: c.generation,
		Key:        c.cfg.MyWorkKey,
	}
}

// BeginSection selects one section, binds its layout, sets loading, and issues its ticket.
func (c *Controller) BeginSection(index int) (Ticket, error) {
	c.mu.Lock()
	if c.sections == nil || index < 0 || index >= len(c.sections) {
		c.mu.Unlock()
		return Ticket{}, fmt.Errorf("%w: index %d", ErrSectionNotFound, index)
	}
	section := c.sections[index]
	c.loading = true
	resolved, err := c.sectionLayout(index, section)
	if err != nil {
		c.mu.Unlock()
		c.relay.Relay(err, c)
		return Ticket{}, err
	}
	defer c.mu.Unlock()
	c.active = index
	c.setLayout(resolved)
	c.generation++
	return Ticket{
		Kind:         TicketSection,
		Generation:   c.generation,
		Key:          section.Title,
		Grouped:      section.SectionType == c.cfg.GroupedSectionType,
		SectionIndex: index,
		SectionType:  section.SectionType,
	}, nil
}

// Execute performs the fetch a ticket stands for. It holds no controller lock.
func (c *Controller) Execute(ctx context.Context, ticket Ticket) Outcome {
	out := Outcome{Ticket: ticket}
	if c.fetcher == nil {
		out.Err = fmt.Errorf("fetch %q: no fetcher configured", ticket.Key)
		return out
	}
	if ticket.Grouped {
		out.Response, out.Err = c.fetcher.FetchGrouped(ctx, ticket.Key)
	} else {
		out.Response, out.Err = c.fetcher.FetchSection(ctx, ticket.Key)
	}
	return out
}

// Commit applies a completed fetch when its generation is still current.
// Stale outcomes are discarded with ErrStaleFetch. Failures clear loading
// under the lock and are relayed after it is released.
func (c *Controller) Commit(out Outcome) error {
	c.mu.Lock()
	if out.Ticket.Generation != c.generation {
		c.logger.Debug("discarding stale fetch", "key", out.Ticket.Key, "generation", out.Ticket.Generation, "current", c.generation)
		c.mu.Unlock()
		return ErrStaleFetch
	}
	err := out.Err
	if err == nil {
		switch out.Ticket.Kind {
		case TicketMyWork:
			err = c.applyMyWork(out.Response)
		default:
			c.applySection(out.Ticket.SectionType, out.Response)
		}
	}
	c.mu.Unlock()

	if err != nil {
		c.relay.Relay(err, c)
	}
	return err
}

// HideSpinner clears the loading flag.
func (c *Controller) HideSpinner() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading = false
}

// sectionLayout returns the bound layout for one section, resolving it on first use;
// callers hold c.mu.
func (c *Controller) sectionLayout(index int, section domain.SectionDescriptor) (layout.Layout, error) {
	if cached, ok := c.resolved[index]; ok {
		return c.resolver.Bind(cached, c.renderer)
	}
	resolved, err := c.resolver.Resolve(section.Layout, c.renderer)
	if err != nil {
		return layout.Layout{}, fmt.Errorf("resolve section %q layout: %w", section.SectionType, err)
	}
	for _, fb := range resolved.Fallbacks {
		c.logger.Warn("unsupported legacy column rule; using default", "section", section.SectionType, "column", fb.Column, "rule", fb.Rule)
	}
	if c.resolved == nil {
		c.resolved = map[int]layout.Layout{}
	}
	c.resolved[index] = resolved
	return resolved, nil
}

// applyMyWork commits a my-work response; callers hold c.mu.
func (c *Controller) applyMyWork(resp domain.FetchResponse) error {
	data, ok := resp.ScreenConfigData()
	if !ok {
		c.logger.Debug("my-work response carries no screen config")
		c.loading = false
		return nil
	}
	cfg, err := domain.ParseScreenConfig(data)
	if err != nil {
		return fmt.Errorf("parse screen config: %w", err)
	}
	prevResolved := c.resolved
	c.resolved = nil
	var resolved layout.Layout
	if len(cfg.Sections) > 0 {
		resolved, err = c.sectionLayout(0, cfg.Sections[0])
		if err != nil {
			c.resolved = prevResolved
			return err
		}
	}

	c.title = cfg.TitleOr(c.cfg.DefaultTitle)
	c.sections = cfg.Sections
	c.active = 0
	if len(cfg.Sections) == 0 {
		c.loading = false
		return nil
	}
	c.setLayout(resolved)
	c.applySection(cfg.Sections[0].SectionType, resp)
	return nil
}

// applySection loads one section's rows and headers; callers hold c.mu.
func (c *Controller) applySection(sectionType string, resp domain.FetchResponse) {
	table, ok := resp.Section(sectionType)
	if !ok {
		c.logger.Warn("response carries no data for section", "section", sectionType)
	}
	if c.grid != nil {
		c.grid.Load(table.TableDataList)
	}
	c.loadHeaders(table.HeaderSummary)
}

// loadHeaders rebuilds header rows from scratch and clears loading; callers hold c.mu.
func (c *Controller) loadHeaders(summary *domain.HeaderSummary) {
	c.loading = false
	if summary == nil {
		return
	}
	c.headerRows = BuildHeaderRows(summary)
}

// setLayout stores the active layout and pushes it to the grid; callers hold c.mu.
func (c *Controller) setLayout(l layout.Layout) {
	c.layout = l
	c.hasLayout = true
	if c.grid != nil {
		c.grid.SetLayout(l)
	}
}

// Snapshot returns a copy of the controller state.
func (c *Controller) Snapshot() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	view := View{
		Title:        c.title,
		Sections:     slices.Clone(c.sections),
		Loaded:       c.sections != nil,
		ActiveIndex:  c.active,
		Layout:       c.layout,
		HasLayout:    c.hasLayout,
		HeaderRows:   slices.Clone(c.headerRows),
		Loading:      c.loading,
		IsError:      c.isError,
		ErrorMessage: c.errorMessage,
		Generation:   c.generation,
	}
	if c.grid != nil {
		view.Rows = c.grid.Rows()
	}
	return view
}

// Grouped reports whether a section type uses the group-scoped fetch.
func (c *Controller) Grouped(sectionType string) bool {
	return sectionType == c.cfg.GroupedSectionType
}
