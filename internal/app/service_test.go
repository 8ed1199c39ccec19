package app

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"testing"
	"time"

	"github.com/hylla/taskdash/internal/domain"
)

type fakeRepo struct {
	items     map[string]domain.WorkItem
	order     []string
	configs   map[string]string
	lastQuery string
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		items:   map[string]domain.WorkItem{},
		configs: map[string]string{},
	}
}

func (f *fakeRepo) CreateWorkItem(_ context.Context, item domain.WorkItem) error {
	f.items[item.ID] = item
	f.order = append(f.order, item.ID)
	return nil
}

func (f *fakeRepo) UpdateWorkItem(_ context.Context, item domain.WorkItem) error {
	if _, ok := f.items[item.ID]; !ok {
		return ErrNotFound
	}
	f.items[item.ID] = item
	return nil
}

func (f *fakeRepo) GetWorkItem(_ context.Context, id string) (domain.WorkItem, error) {
	item, ok := f.items[id]
	if !ok {
		return domain.WorkItem{}, ErrNotFound
	}
	return item, nil
}

func (f *fakeRepo) ListWorkItemsBySection(_ context.Context, sectionType, assignee string) ([]domain.WorkItem, error) {
	f.lastQuery = fmt.Sprintf("section:%s:%s", sectionType, assignee)
	out := []domain.WorkItem{}
	for _, id := range f.order {
		item := f.items[id]
		if item.SectionType != sectionType {
			continue
		}
		if assignee != "" && item.Assignee != assignee {
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

func (f *fakeRepo) ListWorkItemsByGroup(_ context.Context, group string) ([]domain.WorkItem, error) {
	f.lastQuery = "group:" + group
	out := []domain.WorkItem{}
	for _, id := range f.order {
		if item := f.items[id]; item.GroupName == group {
			out = append(out, item)
		}
	}
	return out, nil
}

func (f *fakeRepo) CountWorkItems(context.Context) (int, error) {
	return len(f.items), nil
}

func (f *fakeRepo) PutScreenConfig(_ context.Context, key, data string, _ time.Time) error {
	f.configs[key] = data
	return nil
}

func (f *fakeRepo) GetScreenConfig(_ context.Context, key string) (string, error) {
	data, ok := f.configs[key]
	if !ok {
		return "", ErrNotFound
	}
	return data, nil
}

func newSeededService(t *testing.T) (*Service, *fakeRepo) {
	t.Helper()
	repo := newFakeRepo()
	n := 0
	idGen := func() string {
		n++
		return fmt.Sprintf("w%d", n)
	}
	now := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	svc := NewService(repo, idGen, func() time.Time { return now }, ServiceConfig{Assignee: "me"})
	created, err := svc.Seed(context.Background())
	if err != nil {
		t.Fatalf("Seed() error = %v", err)
	}
	if !created {
		t.Fatal("expected Seed() to write demo data")
	}
	return svc, repo
}

func headerPairs(summary *domain.HeaderSummary) []string {
	out := []string{}
	for pair := summary.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, fmt.Sprintf("%s=%v", pair.Key, pair.Value))
	}
	return out
}

func TestSeedIsIdempotent(t *testing.T) {
	svc, repo := newSeededService(t)
	before := len(repo.items)
	created, err := svc.Seed(context.Background())
	if err != nil {
		t.Fatalf("Seed() second run error = %v", err)
	}
	if created || len(repo.items) != before {
		t.Fatal("expected second Seed() to write nothing")
	}
}

func TestBuildSectionMyWorkAssemblesAllSections(t *testing.T) {
	svc, _ := newSeededService(t)
	resp, err := svc.BuildSection(context.Background(), DefaultMyWorkKey)
	if err != nil {
		t.Fatalf("BuildSection() error = %v", err)
	}
	raw, ok := resp.ScreenConfigData()
	if !ok {
		t.Fatal("expected screen config attached")
	}
	cfg, err := domain.ParseScreenConfig(raw)
	if err != nil {
		t.Fatalf("ParseScreenConfig() error = %v", err)
	}
	if resp.Accordion.AccordionData.Len() != len(cfg.Sections) {
		t.Fatalf("sections = %d, want %d", resp.Accordion.AccordionData.Len(), len(cfg.Sections))
	}
	mine, ok := resp.Section("myWork")
	if !ok || len(mine.TableDataList) != 3 {
		t.Fatalf("expected 3 my-work rows, got %#v", mine.TableDataList)
	}
	want := []string{"Open=2", "In Progress=1", "Approved=0", "Rejected=0", "Total=3"}
	if got := headerPairs(mine.HeaderSummary); !slices.Equal(got, want) {
		t.Fatalf("header summary = %v, want %v", got, want)
	}
	group, ok := resp.Section(DefaultGroupedSectionType)
	if !ok || len(group.TableDataList) != 3 {
		t.Fatalf("expected 3 finance rows, got %#v", group.TableDataList)
	}
}

func TestBuildSectionByTitle(t *testing.T) {
	svc, repo := newSeededService(t)
	resp, err := svc.BuildSection(context.Background(), "team work")
	if err != nil {
		t.Fatalf("BuildSection() error = %v", err)
	}
	if repo.lastQuery != "section:teamWork:" {
		t.Fatalf("last query = %q, want unscoped team query", repo.lastQuery)
	}
	if resp.WorkflowScreenConfig != nil {
		t.Fatal("expected no screen config on per-section fetch")
	}
	team, ok := resp.Section("teamWork")
	if !ok || len(team.TableDataList) != 3 {
		t.Fatalf("expected 3 team rows, got %#v", team.TableDataList)
	}

	if _, err := svc.BuildSection(context.Background(), "Nope"); !errors.Is(err, ErrUnknownSection) {
		t.Fatalf("expected ErrUnknownSection, got %v", err)
	}
}

func TestBuildSectionWithoutConfig(t *testing.T) {
	svc := NewService(newFakeRepo(), nil, nil, ServiceConfig{})
	resp, err := svc.BuildSection(context.Background(), DefaultMyWorkKey)
	if err != nil {
		t.Fatalf("BuildSection() error = %v", err)
	}
	if resp.WorkflowScreenConfig != nil || resp.Accordion.AccordionData.Len() != 0 {
		t.Fatalf("expected empty payload without config, got %#v", resp)
	}
}

func TestGroupSection(t *testing.T) {
	svc, repo := newSeededService(t)
	resp, err := svc.GroupSection(context.Background(), "Ops")
	if err != nil {
		t.Fatalf("GroupSection() error = %v", err)
	}
	if repo.lastQuery != "group:Ops" {
		t.Fatalf("last query = %q", repo.lastQuery)
	}
	table, ok := resp.Section(DefaultGroupedSectionType)
	if !ok || len(table.TableDataList) != 3 {
		t.Fatalf("expected 3 ops rows, got %#v", table.TableDataList)
	}
}

func TestApplyAction(t *testing.T) {
	svc, repo := newSeededService(t)
	res, err := svc.ApplyAction(context.Background(), "w1", "approve")
	if err != nil {
		t.Fatalf("ApplyAction() error = %v", err)
	}
	if !res.IsSuccess || res.Message != "approve applied" || res.WorkItemID != "w1" {
		t.Fatalf("unexpected result %#v", res)
	}
	if repo.items["w1"].Status != domain.StatusApproved {
		t.Fatalf("status = %q, want approved", repo.items["w1"].Status)
	}

	if _, err := svc.ApplyAction(context.Background(), "w1", "claim"); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if _, err := svc.ApplyAction(context.Background(), "w1", "escalate"); !errors.Is(err, domain.ErrInvalidAction) {
		t.Fatalf("expected ErrInvalidAction, got %v", err)
	}
	if _, err := svc.ApplyAction(context.Background(), "missing", "approve"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSaveScreenConfigRejectsMalformed(t *testing.T) {
	svc := NewService(newFakeRepo(), nil, nil, ServiceConfig{})
	if err := svc.SaveScreenConfig(context.Background(), "{"); !errors.Is(err, domain.ErrInvalidScreenConfig) {
		t.Fatalf("expected ErrInvalidScreenConfig, got %v", err)
	}
}

func TestBuildHeaderSummaryOrder(t *testing.T) {
	items := []domain.WorkItem{{Status: domain.StatusRejected}, {Status: domain.StatusOpen}, {Status: domain.StatusRejected}}
	got := headerPairs(BuildHeaderSummary(items))
	want := []string{"Open=1", "In Progress=0", "Approved=0", "Rejected=2", "Total=3"}
	if !slices.Equal(got, want) {
		t.Fatalf("BuildHeaderSummary() = %v, want %v", got, want)
	}
}
