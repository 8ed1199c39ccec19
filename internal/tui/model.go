package tui

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"slices"
	"strings"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/spinner"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/log"
	"github.com/hylla/taskdash/internal/actionbus"
	"github.com/hylla/taskdash/internal/dashboard"
	"github.com/hylla/taskdash/internal/domain"
	"github.com/hylla/taskdash/internal/grid"
	"github.com/hylla/taskdash/internal/layout"
)

// DashboardRoute is the route that shows the section grid.
const DashboardRoute = "dashboard"

// defaultColumnWidth is used for columns whose layout carries no width.
const defaultColumnWidth = 16

// Dependencies represents dependencies data used by this package.
type Dependencies struct {
	Fetcher   dashboard.Fetcher
	Performer dashboard.ActionPerformer
	Logger    *log.Logger
	Config    dashboard.Config
}

// fetchDoneMsg carries one completed fetch back to Update.
type fetchDoneMsg struct {
	outcome dashboard.Outcome
}

// actionDoneMsg carries the direct result of one row action.
type actionDoneMsg struct {
	result domain.ActionResult
}

// actionEventMsg carries one action-stream event after the controller handled it.
type actionEventMsg struct {
	result domain.ActionResult
	reload bool
}

// Model represents model data used by this package.
type Model struct {
	ctx        context.Context
	controller *dashboard.Controller
	grid       *grid.LocalDataSource
	router     *dashboard.Router
	errors     *dashboard.ErrorHolder
	runner     *dashboard.ActionRunner
	events     chan actionEventMsg
	cancel     context.CancelFunc
	logger     *log.Logger

	keys     keyMap
	help     help.Model
	spinner  spinner.Model
	errPage  *errorPage
	copyText func(string) error

	ready    bool
	width    int
	height   int
	fetching bool
	page     int
	cursor   int
	pageSize int
	status   string
}

// NewModel composes the dashboard controller and its collaborators into one Bubble Tea model.
func NewModel(deps Dependencies, opts ...Option) Model {
	logger := deps.Logger
	if logger == nil {
		logger = log.Default()
	}
	rows := grid.NewLocalDataSource()
	router := dashboard.NewRouter(DashboardRoute)
	holder := &dashboard.ErrorHolder{}
	relay := dashboard.NewErrorRelay(holder, router, logger)
	bus := actionbus.New[domain.ActionResult](logger)
	runner := dashboard.NewActionRunner(deps.Performer, bus, logger)
	events := make(chan actionEventMsg, 16)
	ctx, cancel := context.WithCancel(context.Background())

	controller := dashboard.NewController(deps.Fetcher, rows, relay,
		dashboard.WithConfig(deps.Config),
		dashboard.WithActionRenderer(runner),
		dashboard.WithLogger(logger),
		dashboard.WithActionListener(func(res domain.ActionResult, reload bool) {
			go forwardActionEvent(ctx, events, actionEventMsg{result: res, reload: reload})
		}),
	)
	controller.Attach(bus)

	sp := spinner.New(spinner.WithSpinner(spinner.MiniDot))
	m := Model{
		ctx:        ctx,
		controller: controller,
		grid:       rows,
		router:     router,
		errors:     holder,
		runner:     runner,
		events:     events,
		cancel:     cancel,
		logger:     logger,
		keys:       newKeyMap(KeyConfig{}),
		help:       help.New(),
		spinner:    sp,
		errPage:    &errorPage{},
		copyText:   systemClipboard,
		pageSize:   DefaultPageSize,
		fetching:   true,
		status:     "loading",
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&m)
		}
	}
	return m
}

// Init starts the spinner, the my-work load, and the action-stream listener.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.fetchCmd(m.controller.BeginMyWork()),
		m.waitForAction(),
	)
}

// fetchCmd runs one ticket outside the update loop.
func (m Model) fetchCmd(ticket dashboard.Ticket) tea.Cmd {
	controller := m.controller
	ctx := m.ctx
	return func() tea.Msg {
		return fetchDoneMsg{outcome: controller.Execute(ctx, ticket)}
	}
}

// waitForAction blocks until the controller forwards the next action event or the model quits.
func (m Model) waitForAction() tea.Cmd {
	events := m.events
	ctx := m.ctx
	return func() tea.Msg {
		select {
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			return ev
		case <-ctx.Done():
			return nil
		}
	}
}

// forwardActionEvent hands one action event to the update loop, giving up once ctx is done.
func forwardActionEvent(ctx context.Context, events chan<- actionEventMsg, ev actionEventMsg) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// Update updates state for the requested operation.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case fetchDoneMsg:
		err := m.controller.Commit(msg.outcome)
		if errors.Is(err, dashboard.ErrStaleFetch) {
			return m, nil
		}
		m.fetching = false
		if err != nil {
			m.status = "load failed"
			return m, nil
		}
		m.clampCursor()
		m.status = "ready"
		return m, nil

	case actionDoneMsg:
		m.status = msg.result.Message
		return m, nil

	case actionEventMsg:
		cmds := []tea.Cmd{m.waitForAction()}
		if msg.reload {
			m.fetching = true
			cmds = append(cmds, m.fetchCmd(m.controller.BeginMyWork()))
		}
		return m, tea.Batch(cmds...)

	case tea.KeyPressMsg:
		return m.handleKey(msg)

	default:
		return m, nil
	}
}

// handleKey dispatches one key press for the active route.
func (m Model) handleKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		m.controller.Detach()
		if m.cancel != nil {
			m.cancel()
		}
		return m, tea.Quit
	case key.Matches(msg, m.keys.toggleHelp):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(msg, m.keys.reload):
		return m.reload()
	}
	if m.router.At(dashboard.ErrorRoute) {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.moveUp):
		m.cursor = max(0, m.cursor-1)
	case key.Matches(msg, m.keys.moveDown):
		m.cursor++
		m.clampCursor()
	case key.Matches(msg, m.keys.pageNext):
		if (m.page+1)*m.pageSize < m.grid.Count() {
			m.page++
			m.cursor = 0
		}
	case key.Matches(msg, m.keys.pagePrev):
		if m.page > 0 {
			m.page--
			m.cursor = 0
		}
	case key.Matches(msg, m.keys.nextSection):
		return m.moveSection(1)
	case key.Matches(msg, m.keys.prevSection):
		return m.moveSection(-1)
	case key.Matches(msg, m.keys.approve):
		return m.runAction(domain.ActionApprove)
	case key.Matches(msg, m.keys.reject):
		return m.runAction(domain.ActionReject)
	case key.Matches(msg, m.keys.claim):
		return m.runAction(domain.ActionClaim)
	case key.Matches(msg, m.keys.release):
		return m.runAction(domain.ActionRelease)
	case key.Matches(msg, m.keys.copyID):
		m.copySelectedID()
	case key.Matches(msg, m.keys.sortColumn):
		m.cycleSort()
	case key.Matches(msg, m.keys.sortReverse):
		m.reverseSort()
	}
	return m, nil
}

// reload clears any fetch error, returns to the dashboard, and reissues the my-work load.
func (m Model) reload() (tea.Model, tea.Cmd) {
	m.errors.Clear()
	if !m.router.At(DashboardRoute) {
		m.router.NavigateTo([]string{DashboardRoute})
	}
	m.fetching = true
	m.status = "reloading"
	m.page, m.cursor = 0, 0
	return m, m.fetchCmd(m.controller.BeginMyWork())
}

// moveSection activates the neighboring section and loads its data.
func (m Model) moveSection(delta int) (tea.Model, tea.Cmd) {
	view := m.controller.Snapshot()
	if len(view.Sections) == 0 {
		m.status = "no sections"
		return m, nil
	}
	next := (view.ActiveIndex + delta + len(view.Sections)) % len(view.Sections)
	ticket, err := m.controller.BeginSection(next)
	if err != nil {
		if errors.Is(err, dashboard.ErrSectionNotFound) {
			m.status = err.Error()
		}
		return m, nil
	}
	m.fetching = true
	m.page, m.cursor = 0, 0
	m.status = "loading " + view.Sections[next].Title
	return m, m.fetchCmd(ticket)
}

// runAction validates the selected row's action set and runs one action.
func (m Model) runAction(action domain.WorkflowAction) (tea.Model, tea.Cmd) {
	row, ok := m.selectedRow()
	if !ok {
		m.status = "no row selected"
		return m, nil
	}
	if !slices.Contains(m.rowActions(row), string(action)) {
		m.status = fmt.Sprintf("%s is not available for this row", action)
		return m, nil
	}
	runner := m.runner
	ctx := m.ctx
	id := row.ID()
	m.status = fmt.Sprintf("%s %s...", action, id)
	return m, func() tea.Msg {
		return actionDoneMsg{result: runner.Run(ctx, id, action)}
	}
}

// rowActions returns the action labels offered for one row.
func (m Model) rowActions(row domain.Row) []string {
	view := m.controller.Snapshot()
	if view.HasLayout && view.Layout.Actions != nil {
		return view.Layout.Actions.Actions(row)
	}
	return m.runner.RenderActions(row)
}

// copySelectedID copies the selected row identifier to the clipboard.
func (m *Model) copySelectedID() {
	row, ok := m.selectedRow()
	if !ok || row.ID() == "" {
		m.status = "nothing to copy"
		return
	}
	if err := m.copyText(row.ID()); err != nil {
		m.logger.Warn("clipboard write failed", "err", err)
		m.status = "copy failed"
		return
	}
	m.status = "copied " + row.ID()
}

// cycleSort advances the sort to the next visible column.
func (m *Model) cycleSort() {
	view := m.controller.Snapshot()
	cols := view.Layout.VisibleColumns()
	if len(cols) == 0 {
		m.status = "no sortable columns"
		return
	}
	current := m.grid.Sort()
	next := 0
	for i, col := range cols {
		if col.Key == current.Column {
			next = i + 1
			break
		}
	}
	if next >= len(cols) {
		_ = m.grid.SetSort("", false)
		m.status = "sort cleared"
		return
	}
	if err := m.grid.SetSort(cols[next].Key, false); err != nil {
		m.status = err.Error()
		return
	}
	m.status = "sorted by " + columnTitle(cols[next])
}

// reverseSort flips the direction of the active sort.
func (m *Model) reverseSort() {
	current := m.grid.Sort()
	if current.Column == "" {
		m.status = "no active sort"
		return
	}
	if err := m.grid.SetSort(current.Column, !current.Descending); err != nil {
		m.status = err.Error()
		return
	}
	m.status = "sort reversed"
}

// pageRows returns the rows on the current page.
func (m Model) pageRows() []domain.Row {
	return m.grid.Page(m.page, m.pageSize)
}

// selectedRow returns the row under the cursor.
func (m Model) selectedRow() (domain.Row, bool) {
	rows := m.pageRows()
	if m.cursor < 0 || m.cursor >= len(rows) {
		return nil, false
	}
	return rows[m.cursor], true
}

// clampCursor keeps page and cursor inside the loaded rows.
func (m *Model) clampCursor() {
	count := m.grid.Count()
	if count == 0 {
		m.page, m.cursor = 0, 0
		return
	}
	lastPage := (count - 1) / m.pageSize
	m.page = clamp(m.page, 0, lastPage)
	m.cursor = clamp(m.cursor, 0, len(m.pageRows())-1)
}

// View handles view.
func (m Model) View() tea.View {
	v := tea.NewView(m.content())
	v.AltScreen = true
	return v
}

// content renders the body for the active route.
func (m Model) content() string {
	switch {
	case m.router.At(dashboard.ErrorRoute):
		return m.renderError()
	case !m.ready:
		return "loading..."
	default:
		return m.renderDashboard()
	}
}

// renderError renders the error route body.
func (m Model) renderError() string {
	width := m.width
	if width <= 0 {
		width = 80
	}
	return m.errPage.render(m.errors.CurrentError(), width-4)
}

// renderDashboard renders the title, section tabs, header summary, grid, and help line.
func (m Model) renderDashboard() string {
	view := m.controller.Snapshot()
	accent := lipgloss.Color("62")
	muted := lipgloss.Color("241")
	dim := lipgloss.Color("239")
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	statusStyle := lipgloss.NewStyle().Foreground(dim)
	errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)

	title := view.Title
	if strings.TrimSpace(title) == "" {
		title = "taskdash"
	}
	header := titleStyle.Render(title)
	if m.fetching || view.Loading {
		header += "  " + m.spinner.View()
	}
	if status := strings.TrimSpace(m.status); status != "" {
		header += statusStyle.Render("  " + truncate(status, 60))
	}

	sections := []string{header, m.renderTabs(view, accent, dim)}
	if view.IsError {
		sections = append(sections, errorStyle.Render("! "+view.ErrorMessage))
	}
	if summary := m.renderHeaderRows(view.HeaderRows, muted); summary != "" {
		sections = append(sections, summary)
	}
	sections = append(sections, "", m.renderGrid(view, accent, dim))
	content := strings.Join(sections, "\n")

	helpBubble := m.help
	helpBubble.SetWidth(max(0, m.width-2))
	helpLine := lipgloss.NewStyle().
		Foreground(muted).
		BorderTop(true).
		BorderForeground(dim).
		Padding(0, 1).
		Width(max(0, m.width)).
		Render(helpBubble.View(m.keys))
	if m.height > 0 {
		content = fitLines(content, max(0, m.height-lipgloss.Height(helpLine)))
	}
	return content + "\n" + helpLine
}

// renderTabs renders the section strip with the active section highlighted.
func (m Model) renderTabs(view dashboard.View, accent, dim color.Color) string {
	if len(view.Sections) == 0 {
		return lipgloss.NewStyle().Foreground(dim).Render("no sections")
	}
	active := lipgloss.NewStyle().Bold(true).Foreground(accent).Underline(true)
	normal := lipgloss.NewStyle().Foreground(dim)
	tabs := make([]string, 0, len(view.Sections))
	for i, section := range view.Sections {
		label := section.Title
		if strings.TrimSpace(label) == "" {
			label = section.SectionType
		}
		if i == view.ActiveIndex {
			tabs = append(tabs, active.Render(label))
			continue
		}
		tabs = append(tabs, normal.Render(label))
	}
	return strings.Join(tabs, "  ")
}

// renderHeaderRows renders the derived header summary as one line.
func (m Model) renderHeaderRows(rows []domain.HeaderRow, muted color.Color) string {
	if len(rows) == 0 {
		return ""
	}
	style := lipgloss.NewStyle().Foreground(muted)
	parts := make([]string, 0, len(rows))
	for _, row := range rows {
		parts = append(parts, row.Name+": "+row.Value)
	}
	return style.Render(strings.Join(parts, " • "))
}

// renderGrid renders the current page of rows using the active layout.
func (m Model) renderGrid(view dashboard.View, accent, dim color.Color) string {
	if !view.HasLayout {
		return lipgloss.NewStyle().Foreground(dim).Render("no layout")
	}
	cols := view.Layout.VisibleColumns()
	headStyle := lipgloss.NewStyle().Bold(true).Foreground(accent)
	selStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)

	sort := m.grid.Sort()
	cells := make([]string, 0, len(cols)+1)
	for _, col := range cols {
		label := columnTitle(col)
		if col.Key == sort.Column {
			if sort.Descending {
				label += " ▼"
			} else {
				label += " ▲"
			}
		}
		cells = append(cells, padCell(label, columnWidth(col.Width)))
	}
	if view.Layout.Actions != nil {
		cells = append(cells, padCell(view.Layout.Actions.Title, columnWidth(view.Layout.Actions.Width)))
	}
	lines := []string{headStyle.Render(strings.Join(cells, " "))}

	rows := m.pageRows()
	if len(rows) == 0 {
		lines = append(lines, lipgloss.NewStyle().Foreground(dim).Render("no rows"))
	}
	for i, row := range rows {
		cells = cells[:0]
		for _, col := range cols {
			cells = append(cells, padCell(renderCell(col, row[col.Key]), columnWidth(col.Width)))
		}
		if view.Layout.Actions != nil {
			labels := view.Layout.Actions.Actions(row)
			cells = append(cells, padCell(strings.Join(labels, ","), columnWidth(view.Layout.Actions.Width)))
		}
		line := strings.Join(cells, " ")
		if i == m.cursor {
			line = selStyle.Render("› " + line)
		} else {
			line = "  " + line
		}
		lines = append(lines, line)
	}
	if total := m.grid.Count(); total > m.pageSize {
		pages := (total + m.pageSize - 1) / m.pageSize
		lines = append(lines, lipgloss.NewStyle().Foreground(dim).Render(fmt.Sprintf("page %d/%d • %d rows", m.page+1, pages, total)))
	}
	return strings.Join(lines, "\n")
}

// columnTitle returns the header label for one column.
func columnTitle(col layout.Column) string {
	if strings.TrimSpace(col.Title) != "" {
		return col.Title
	}
	return col.Key
}

// columnWidth returns the display width for a configured width.
func columnWidth(configured int) int {
	if configured > 0 {
		return configured
	}
	return defaultColumnWidth
}

// renderCell formats one cell value with the column formatter.
func renderCell(col layout.Column, v any) string {
	if col.Render != nil {
		return col.Render(v)
	}
	return layout.FormatPlain(v)
}

// padCell truncates or pads s to exactly width display cells.
func padCell(s string, width int) string {
	s = truncate(s, width)
	if pad := width - lipgloss.Width(s); pad > 0 {
		s += strings.Repeat(" ", pad)
	}
	return s
}

// clamp clamps the requested operation.
func clamp(v, minV, maxV int) int {
	if maxV < minV {
		return minV
	}
	if v < minV {
		return minV
	}
	if v > maxV {
		return maxV
	}
	return v
}

// fitLines fits lines.
func fitLines(content string, maxLines int) string {
	if maxLines <= 0 {
		return ""
	}
	lines := strings.Split(content, "\n")
	switch {
	case len(lines) > maxLines:
		if maxLines == 1 {
			lines = []string{"…"}
		} else {
			lines = append(lines[:maxLines-1], "…")
		}
	case len(lines) < maxLines:
		padding := make([]string, maxLines-len(lines))
		lines = append(lines, padding...)
	}
	return strings.Join(lines, "\n")
}

// truncate truncates the requested operation.
func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	rs := []rune(s)
	if len(rs) <= max {
		return s
	}
	if max <= 1 {
		return string(rs[:max])
	}
	return string(rs[:max-1]) + "…"
}
