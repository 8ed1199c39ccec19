package tui

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/x/ansi"
	"github.com/hylla/taskdash/internal/dashboard"
	"github.com/hylla/taskdash/internal/domain"
)

const myWorkPayload = `{
	"accordion": {"accordionData": {
		"myWork": {
			"tableDataList": [
				{"id": "w1", "title": "Budget review", "statusCode": "open", "status": "Open"},
				{"id": "w2", "title": "Access request", "statusCode": "in_progress", "status": "In Progress"},
				{"id": "w3", "title": "Audit", "statusCode": "approved", "status": "Approved"}
			],
			"headerSummary": {"Open": 1, "In Progress": 1}
		}
	}},
	"workflowScreenConfig": {"data": "{\"title\":\"Ops Desk\",\"sections\":[{\"sectionType\":\"myWork\",\"title\":\"My Work\",\"scrnLayout\":{\"columns\":{\"title\":{\"title\":\"Task\",\"width\":20},\"status\":{\"title\":\"Status\"},\"actions\":{\"title\":\"Actions\"}}}},{\"sectionType\":\"TASKS_BY_GROUP\",\"title\":\"Finance\",\"scrnLayout\":{\"columns\":{\"title\":{\"title\":\"Task\"}}}}]}"}
}`

const groupPayload = `{"accordion":{"accordionData":{"TASKS_BY_GROUP":{"tableDataList":[{"id":"g1","title":"Invoice"}],"headerSummary":{"Total":1}}}}}`

// fakeFetcher serves canned responses keyed by section or group key.
type fakeFetcher struct {
	mu        sync.Mutex
	responses map[string]domain.FetchResponse
	err       error
	grouped   []string
	sections  []string
}

func (f *fakeFetcher) FetchSection(_ context.Context, key string) (domain.FetchResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sections = append(f.sections, key)
	return f.lookup(key)
}

func (f *fakeFetcher) FetchGrouped(_ context.Context, key string) (domain.FetchResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.grouped = append(f.grouped, key)
	return f.lookup(key)
}

func (f *fakeFetcher) lookup(key string) (domain.FetchResponse, error) {
	if f.err != nil {
		return domain.FetchResponse{}, f.err
	}
	resp, ok := f.responses[key]
	if !ok {
		return domain.FetchResponse{}, errors.New("no response for " + key)
	}
	return resp, nil
}

// fakePerformer records row actions and returns one configured result.
type fakePerformer struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (p *fakePerformer) PerformAction(_ context.Context, id string, action domain.WorkflowAction) (domain.ActionResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, id+":"+string(action))
	if p.err != nil {
		return domain.ActionResult{}, p.err
	}
	return domain.ActionResult{IsSuccess: true, WorkItemID: id, Action: action}, nil
}

func decodeResponse(t *testing.T, payload string) domain.FetchResponse {
	t.Helper()
	var resp domain.FetchResponse
	if err := json.Unmarshal([]byte(payload), &resp); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	return resp
}

func newFakeFetcher(t *testing.T) *fakeFetcher {
	t.Helper()
	return &fakeFetcher{responses: map[string]domain.FetchResponse{
		dashboard.DefaultMyWorkKey: decodeResponse(t, myWorkPayload),
		"Finance":                  decodeResponse(t, groupPayload),
	}}
}

// loadReadyModel builds a sized model and commits the initial my-work load.
func loadReadyModel(t *testing.T, fetcher *fakeFetcher, performer *fakePerformer, opts ...Option) Model {
	t.Helper()
	m := NewModel(Dependencies{Fetcher: fetcher, Performer: performer}, opts...)
	m = applyMsg(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	return applyCmd(t, m, m.fetchCmd(m.controller.BeginMyWork()))
}

func applyMsg(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	out, _ := m.Update(msg)
	updated, ok := out.(Model)
	if !ok {
		t.Fatalf("unexpected model type %T", out)
	}
	return updated
}

func applyCmd(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected command")
	}
	return applyMsg(t, m, cmd())
}

// plainView returns the rendered body without styling escapes.
func plainView(m Model) string {
	return ansi.Strip(m.content())
}

func keyRune(r rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: r, Text: string(r)}
}

// collectMsgs runs each command in a batch and returns the messages that arrive before timeout.
func collectMsgs(cmd tea.Cmd, timeout time.Duration) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	batch, ok := msg.(tea.BatchMsg)
	if !ok {
		return []tea.Msg{msg}
	}
	results := make(chan tea.Msg, len(batch))
	for _, c := range batch {
		if c == nil {
			continue
		}
		go func(c tea.Cmd) {
			results <- c()
		}(c)
	}
	var out []tea.Msg
	deadline := time.After(timeout)
	for {
		select {
		case msg := <-results:
			out = append(out, msg)
		case <-deadline:
			return out
		}
	}
}

func receiveEvent(t *testing.T, m Model) actionEventMsg {
	t.Helper()
	select {
	case ev := <-m.events:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for action event")
		return actionEventMsg{}
	}
}

// TestModelInitialLoad verifies the first section, header summary, and grid render.
func TestModelInitialLoad(t *testing.T) {
	fetcher := newFakeFetcher(t)
	m := loadReadyModel(t, fetcher, &fakePerformer{})

	if m.fetching {
		t.Fatal("expected fetching cleared after commit")
	}
	view := m.controller.Snapshot()
	if view.Title != "Ops Desk" || len(view.Sections) != 2 || view.ActiveIndex != 0 {
		t.Fatalf("unexpected view %#v", view)
	}
	if len(view.HeaderRows) != 2 || view.HeaderRows[0].Name != "Open" {
		t.Fatalf("unexpected header rows %#v", view.HeaderRows)
	}
	out := plainView(m)
	for _, want := range []string{"Ops Desk", "My Work", "Finance", "Open: 1", "Budget review", "approve,reject"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in view\n%s", want, out)
		}
	}
}

// TestModelSectionSwitchUsesGroupedFetch verifies tab navigation dispatches by section type.
func TestModelSectionSwitchUsesGroupedFetch(t *testing.T) {
	fetcher := newFakeFetcher(t)
	m := loadReadyModel(t, fetcher, &fakePerformer{})

	out, cmd := m.Update(tea.KeyPressMsg{Code: tea.KeyTab})
	m = out.(Model)
	if !m.fetching {
		t.Fatal("expected fetching while section loads")
	}
	m = applyCmd(t, m, cmd)

	if len(fetcher.grouped) != 1 || fetcher.grouped[0] != "Finance" {
		t.Fatalf("expected grouped fetch for Finance, got %#v", fetcher.grouped)
	}
	view := m.controller.Snapshot()
	if view.ActiveIndex != 1 || len(view.Rows) != 1 || view.Rows[0].ID() != "g1" {
		t.Fatalf("unexpected section view %#v", view)
	}
	if !strings.Contains(plainView(m), "Invoice") {
		t.Fatalf("expected grouped row in view\n%s", plainView(m))
	}
}

// TestModelStaleFetchIgnored verifies an older fetch cannot overwrite a newer section.
func TestModelStaleFetchIgnored(t *testing.T) {
	fetcher := newFakeFetcher(t)
	m := loadReadyModel(t, fetcher, &fakePerformer{})

	staleCmd := m.fetchCmd(m.controller.BeginMyWork())
	out, sectionCmd := m.Update(tea.KeyPressMsg{Code: tea.KeyTab})
	m = applyCmd(t, out.(Model), sectionCmd)
	m = applyCmd(t, m, staleCmd)

	if view := m.controller.Snapshot(); view.ActiveIndex != 1 {
		t.Fatalf("expected stale my-work fetch discarded, active=%d", view.ActiveIndex)
	}
}

// TestModelFetchFailureShowsErrorRoute verifies relay navigation and reload recovery.
func TestModelFetchFailureShowsErrorRoute(t *testing.T) {
	fetcher := newFakeFetcher(t)
	fetcher.err = errors.New("backend down")
	m := loadReadyModel(t, fetcher, &fakePerformer{})

	if !m.router.At(dashboard.ErrorRoute) {
		t.Fatalf("expected error route, got %#v", m.router.Current())
	}
	if !strings.Contains(plainView(m), "backend down") {
		t.Fatalf("expected error message in view\n%s", plainView(m))
	}
	m = applyMsg(t, m, keyRune('a'))
	if !m.router.At(dashboard.ErrorRoute) {
		t.Fatal("expected row keys ignored on error route")
	}

	fetcher.mu.Lock()
	fetcher.err = nil
	fetcher.mu.Unlock()
	out, cmd := m.Update(keyRune('r'))
	m = out.(Model)
	if !m.router.At(DashboardRoute) || m.errors.CurrentError() != nil {
		t.Fatalf("expected reload to clear error, route=%#v err=%v", m.router.Current(), m.errors.CurrentError())
	}
	m = applyCmd(t, m, cmd)
	if !strings.Contains(plainView(m), "Budget review") {
		t.Fatalf("expected dashboard after reload\n%s", plainView(m))
	}
}

// TestModelApproveReloads verifies a successful action triggers a my-work reload.
func TestModelApproveReloads(t *testing.T) {
	fetcher := newFakeFetcher(t)
	performer := &fakePerformer{}
	m := loadReadyModel(t, fetcher, performer)

	m = applyCmd(t, m, func() tea.Cmd {
		_, cmd := m.Update(keyRune('a'))
		return cmd
	}())
	if len(performer.calls) != 1 || performer.calls[0] != "w1:approve" {
		t.Fatalf("unexpected performer calls %#v", performer.calls)
	}
	if m.status != "approve applied" {
		t.Fatalf("unexpected status %q", m.status)
	}

	ev := receiveEvent(t, m)
	if !ev.reload {
		t.Fatalf("expected reload event, got %#v", ev)
	}
	out, cmd := m.Update(ev)
	m = out.(Model)
	if !m.fetching {
		t.Fatal("expected fetching after reload event")
	}
	for _, msg := range collectMsgs(cmd, 200*time.Millisecond) {
		if done, ok := msg.(fetchDoneMsg); ok {
			m = applyMsg(t, m, done)
		}
	}
	if m.fetching {
		t.Fatal("expected reload committed")
	}
	fetcher.mu.Lock()
	defer fetcher.mu.Unlock()
	if len(fetcher.sections) != 2 {
		t.Fatalf("expected two my-work fetches, got %#v", fetcher.sections)
	}
}

// TestModelActionFailureShowsInlineError verifies failed actions set the inline error without reload.
func TestModelActionFailureShowsInlineError(t *testing.T) {
	fetcher := newFakeFetcher(t)
	performer := &fakePerformer{err: errors.New("locked by another user")}
	m := loadReadyModel(t, fetcher, performer)

	_, cmd := m.Update(keyRune('x'))
	m = applyCmd(t, m, cmd)
	ev := receiveEvent(t, m)
	if ev.reload {
		t.Fatal("expected no reload after failed action")
	}
	view := m.controller.Snapshot()
	if !view.IsError || view.ErrorMessage != "locked by another user" {
		t.Fatalf("unexpected inline error state %#v", view)
	}
	if !strings.Contains(plainView(m), "locked by another user") {
		t.Fatalf("expected inline error in view\n%s", plainView(m))
	}
}

// TestModelRejectsUnavailableAction verifies row action filtering by status.
func TestModelRejectsUnavailableAction(t *testing.T) {
	performer := &fakePerformer{}
	m := loadReadyModel(t, newFakeFetcher(t), performer)

	out, cmd := m.Update(keyRune('u'))
	m = out.(Model)
	if cmd != nil {
		t.Fatal("expected no command for unavailable action")
	}
	if !strings.Contains(m.status, "not available") {
		t.Fatalf("unexpected status %q", m.status)
	}
	if len(performer.calls) != 0 {
		t.Fatalf("expected no performer calls, got %#v", performer.calls)
	}
}

// TestModelCursorSortAndCopy verifies row navigation, sorting, and clipboard copy.
func TestModelCursorSortAndCopy(t *testing.T) {
	var copied string
	m := loadReadyModel(t, newFakeFetcher(t), &fakePerformer{}, WithClipboard(func(s string) error {
		copied = s
		return nil
	}))

	m = applyMsg(t, m, keyRune('j'))
	m = applyMsg(t, m, keyRune('j'))
	m = applyMsg(t, m, keyRune('j'))
	if m.cursor != 2 {
		t.Fatalf("expected cursor clamped at 2, got %d", m.cursor)
	}
	m = applyMsg(t, m, keyRune('y'))
	if copied != "w3" {
		t.Fatalf("expected w3 copied, got %q", copied)
	}

	m = applyMsg(t, m, keyRune('s'))
	if got := m.grid.Sort(); got.Column != "title" || got.Descending {
		t.Fatalf("unexpected sort %#v", got)
	}
	if first := m.pageRows()[0].ID(); first != "w2" {
		t.Fatalf("expected Access request first, got %q", first)
	}
	m = applyMsg(t, m, keyRune('S'))
	if got := m.grid.Sort(); !got.Descending {
		t.Fatalf("expected descending sort, got %#v", got)
	}
	if first := m.pageRows()[0].ID(); first != "w1" {
		t.Fatalf("expected Budget review first, got %q", first)
	}
	m = applyMsg(t, m, keyRune('s'))
	m = applyMsg(t, m, keyRune('s'))
	if got := m.grid.Sort(); got.Column != "" {
		t.Fatalf("expected sort cleared, got %#v", got)
	}
}

// TestModelPaging verifies page navigation over the loaded rows.
func TestModelPaging(t *testing.T) {
	m := loadReadyModel(t, newFakeFetcher(t), &fakePerformer{}, WithPageSize(2))

	if rows := m.pageRows(); len(rows) != 2 {
		t.Fatalf("expected 2 rows on first page, got %d", len(rows))
	}
	m = applyMsg(t, m, keyRune('l'))
	if m.page != 1 || len(m.pageRows()) != 1 {
		t.Fatalf("unexpected second page page=%d rows=%d", m.page, len(m.pageRows()))
	}
	m = applyMsg(t, m, keyRune('l'))
	if m.page != 1 {
		t.Fatalf("expected page clamped at last page, got %d", m.page)
	}
	if !strings.Contains(plainView(m), "page 2/2") {
		t.Fatalf("expected page indicator\n%s", plainView(m))
	}
	m = applyMsg(t, m, keyRune('h'))
	if m.page != 0 {
		t.Fatalf("expected first page, got %d", m.page)
	}
}

// TestModelQuitDetaches verifies quitting releases the action stream subscription.
func TestModelQuitDetaches(t *testing.T) {
	m := loadReadyModel(t, newFakeFetcher(t), &fakePerformer{})
	if !m.controller.Attached() {
		t.Fatal("expected controller attached")
	}
	_, cmd := m.Update(keyRune('q'))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("expected quit message")
	}
	if m.controller.Attached() {
		t.Fatal("expected controller detached")
	}
}

// TestModelQuitReleasesPendingActionEvents verifies queued sends and the listener stop after quit.
func TestModelQuitReleasesPendingActionEvents(t *testing.T) {
	m := loadReadyModel(t, newFakeFetcher(t), &fakePerformer{})
	for len(m.events) < cap(m.events) {
		m.events <- actionEventMsg{}
	}
	sent := make(chan bool, 1)
	go func() {
		sent <- forwardActionEvent(m.ctx, m.events, actionEventMsg{reload: true})
	}()

	next, _ := m.Update(keyRune('q'))
	select {
	case ok := <-sent:
		if ok {
			t.Fatal("expected the blocked send to be dropped after quit")
		}
	case <-time.After(time.Second):
		t.Fatal("pending action event send still blocked after quit")
	}

	for len(m.events) > 0 {
		<-m.events
	}
	done := make(chan tea.Msg, 1)
	go func() { done <- next.(Model).waitForAction()() }()
	select {
	case msg := <-done:
		if msg != nil {
			t.Fatalf("waitForAction() after quit = %#v, want nil", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("waitForAction() still blocked after quit")
	}
}

// TestModelViewIsAltScreen verifies the program view runs in the alternate screen.
func TestModelViewIsAltScreen(t *testing.T) {
	m := NewModel(Dependencies{Fetcher: newFakeFetcher(t)})
	v := m.View()
	if v.Content == nil || !v.AltScreen {
		t.Fatal("expected alt-screen loading view")
	}
	if got := plainView(m); got != "loading..." {
		t.Fatalf("unexpected pre-size view %q", got)
	}
}

// TestModelHelpToggle verifies the full help view toggles.
func TestModelHelpToggle(t *testing.T) {
	m := loadReadyModel(t, newFakeFetcher(t), &fakePerformer{})
	m = applyMsg(t, m, keyRune('?'))
	if !m.help.ShowAll {
		t.Fatal("expected full help")
	}
	if !strings.Contains(plainView(m), "release") {
		t.Fatalf("expected full help bindings\n%s", plainView(m))
	}
}

// TestFitLinesAndTruncate verifies the layout helpers.
func TestFitLinesAndTruncate(t *testing.T) {
	if got := fitLines("a\nb\nc", 2); got != "a\n…" {
		t.Fatalf("fitLines() = %q", got)
	}
	if got := fitLines("a", 3); got != "a\n\n" {
		t.Fatalf("fitLines() padding = %q", got)
	}
	if got := truncate("abcdef", 4); got != "abc…" {
		t.Fatalf("truncate() = %q", got)
	}
	if got := padCell("ab", 4); got != "ab  " {
		t.Fatalf("padCell() = %q", got)
	}
	if got := clamp(9, 0, 3); got != 3 {
		t.Fatalf("clamp() = %d", got)
	}
}
