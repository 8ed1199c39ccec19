package common

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/hylla/taskdash/internal/adapters/storage/sqlite"
	"github.com/hylla/taskdash/internal/app"
	"github.com/hylla/taskdash/internal/domain"
)

func newSeededAdapter(t *testing.T) *AppServiceAdapter {
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
	return NewAppServiceAdapter(svc)
}

// TestAppServiceAdapterFetchSection verifies my-work and unknown-key handling.
func TestAppServiceAdapterFetchSection(t *testing.T) {
	adapter := newSeededAdapter(t)
	resp, err := adapter.FetchSection(context.Background(), FetchSectionRequest{Key: app.DefaultMyWorkKey})
	if err != nil {
		t.Fatalf("FetchSection() error = %v", err)
	}
	if _, ok := resp.ScreenConfigData(); !ok {
		t.Fatal("expected screen config on my-work payload")
	}
	if _, err := adapter.FetchSection(context.Background(), FetchSectionRequest{Key: "Unknown"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := adapter.FetchSection(context.Background(), FetchSectionRequest{}); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

// TestAppServiceAdapterApplyActionErrors verifies sentinel mapping for row actions.
func TestAppServiceAdapterApplyActionErrors(t *testing.T) {
	adapter := newSeededAdapter(t)
	ctx := context.Background()

	res, err := adapter.ApplyAction(ctx, ApplyActionRequest{WorkItemID: "w1", Action: "reject"})
	if err != nil {
		t.Fatalf("ApplyAction() error = %v", err)
	}
	if !res.IsSuccess || res.Action != domain.ActionReject {
		t.Fatalf("unexpected result %#v", res)
	}

	_, err = adapter.ApplyAction(ctx, ApplyActionRequest{WorkItemID: "w1", Action: "approve"})
	if !errors.Is(err, ErrConflict) || !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrConflict wrapping ErrInvalidTransition, got %v", err)
	}
	if _, err := adapter.ApplyAction(ctx, ApplyActionRequest{WorkItemID: "w1", Action: "zap"}); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
	if _, err := adapter.ApplyAction(ctx, ApplyActionRequest{WorkItemID: "nope", Action: "approve"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// TestAppServiceAdapterNilService verifies unconfigured adapters fail closed.
func TestAppServiceAdapterNilService(t *testing.T) {
	var adapter *AppServiceAdapter
	if _, err := adapter.FetchGroup(context.Background(), FetchGroupRequest{Group: "Ops"}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

// TestAppServiceAdapterScreenConfig verifies screen config reads and validated writes.
func TestAppServiceAdapterScreenConfig(t *testing.T) {
	adapter := newSeededAdapter(t)
	ctx := context.Background()
	if err := adapter.SaveScreenConfig(ctx, `{"title":"Ops","sections":[]}`); err != nil {
		t.Fatalf("SaveScreenConfig() error = %v", err)
	}
	raw, err := adapter.GetScreenConfig(ctx)
	if err != nil {
		t.Fatalf("GetScreenConfig() error = %v", err)
	}
	if raw != `{"title":"Ops","sections":[]}` {
		t.Fatalf("GetScreenConfig() = %q", raw)
	}
	if err := adapter.SaveScreenConfig(ctx, "{oops"); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}
