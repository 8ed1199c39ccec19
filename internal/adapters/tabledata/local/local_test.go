package local

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/hylla/taskdash/internal/adapters/server/common"
	"github.com/hylla/taskdash/internal/adapters/storage/sqlite"
	"github.com/hylla/taskdash/internal/app"
	"github.com/hylla/taskdash/internal/dashboard"
	"github.com/hylla/taskdash/internal/domain"
)

var (
	_ dashboard.Fetcher         = (*Source)(nil)
	_ dashboard.ActionPerformer = (*Source)(nil)
)

func newSeededSource(t *testing.T) *Source {
	t.Helper()
	repo, err := sqlite.OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	t.Cleanup(func() {
		_ = repo.Close()
	})
	n := 0
	svc := app.NewService(repo, func() string {
		n++
		return fmt.Sprintf("w%d", n)
	}, nil, app.ServiceConfig{Assignee: "me"})
	if _, err := svc.Seed(context.Background()); err != nil {
		t.Fatalf("Seed() error = %v", err)
	}
	return New(common.NewAppServiceAdapter(svc))
}

func TestSourceFetchAndAct(t *testing.T) {
	src := newSeededSource(t)
	ctx := context.Background()

	resp, err := src.FetchSection(ctx, app.DefaultMyWorkKey)
	if err != nil {
		t.Fatalf("FetchSection() error = %v", err)
	}
	if _, ok := resp.ScreenConfigData(); !ok {
		t.Fatal("expected screen config on my-work payload")
	}

	grouped, err := src.FetchGrouped(ctx, "Finance")
	if err != nil {
		t.Fatalf("FetchGrouped() error = %v", err)
	}
	if _, ok := grouped.Section(app.DefaultGroupedSectionType); !ok {
		t.Fatal("expected grouped section in payload")
	}

	res, err := src.PerformAction(ctx, "w1", domain.ActionApprove)
	if err != nil {
		t.Fatalf("PerformAction() error = %v", err)
	}
	if !res.IsSuccess {
		t.Fatalf("unexpected result %#v", res)
	}
	if _, err := src.PerformAction(ctx, "w1", domain.ActionApprove); !errors.Is(err, common.ErrConflict) {
		t.Fatalf("expected ErrConflict on repeat approve, got %v", err)
	}
}

func TestSourceWithoutService(t *testing.T) {
	var src *Source
	if _, err := src.FetchSection(context.Background(), "MY_WORK"); !errors.Is(err, ErrNoService) {
		t.Fatalf("expected ErrNoService, got %v", err)
	}
	if _, err := New(nil).PerformAction(context.Background(), "w1", domain.ActionApprove); !errors.Is(err, ErrNoService) {
		t.Fatalf("expected ErrNoService, got %v", err)
	}
}
