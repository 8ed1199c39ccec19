package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hylla/taskdash/internal/adapters/server/common"
	"github.com/hylla/taskdash/internal/domain"
)

// stubTables returns empty payloads for composition tests.
type stubTables struct{}

// FetchSection returns an empty payload.
func (stubTables) FetchSection(context.Context, common.FetchSectionRequest) (domain.FetchResponse, error) {
	return domain.FetchResponse{Accordion: domain.Accordion{AccordionData: domain.NewAccordionData()}}, nil
}

// FetchGroup returns a not-found error.
func (stubTables) FetchGroup(context.Context, common.FetchGroupRequest) (domain.FetchResponse, error) {
	return domain.FetchResponse{}, common.ErrNotFound
}

// ApplyAction returns a success result.
func (stubTables) ApplyAction(_ context.Context, req common.ApplyActionRequest) (domain.ActionResult, error) {
	return domain.ActionResult{IsSuccess: true, WorkItemID: req.WorkItemID}, nil
}

// stubPinger returns a fixed readiness error.
type stubPinger struct {
	err error
}

// Ping returns the configured error.
func (p stubPinger) Ping(context.Context) error {
	return p.err
}

// TestNewHandlerRoutes verifies health, api, readiness, and metrics wiring.
func TestNewHandlerRoutes(t *testing.T) {
	handler, cfg, err := NewHandler(Config{}, Dependencies{Tables: stubTables{}})
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	if cfg.APIEndpoint != "/api/v1" || cfg.MCPEndpoint != "/mcp" || cfg.MetricsEndpoint != "/metrics" {
		t.Fatalf("unexpected normalized config %#v", cfg)
	}

	cases := []struct {
		path       string
		wantStatus int
	}{
		{path: "/healthz", wantStatus: http.StatusOK},
		{path: "/readyz", wantStatus: http.StatusOK},
		{path: "/api/v1/tabledata/MY_WORK", wantStatus: http.StatusOK},
		{path: "/api/v1/tasks-by-group/Nope", wantStatus: http.StatusNotFound},
	}
	for _, tt := range cases {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
		if rec.Code != tt.wantStatus {
			t.Fatalf("GET %s status = %d, want %d", tt.path, rec.Code, tt.wantStatus)
		}
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status = %d, want %d", rec.Code, http.StatusOK)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `taskdash_http_requests_total{code="200",method="GET",surface="api"} 1`) {
		t.Fatalf("metrics missing api 200 counter:\n%s", body)
	}
	if !strings.Contains(body, `taskdash_http_requests_total{code="404",method="GET",surface="api"} 1`) {
		t.Fatalf("metrics missing api 404 counter:\n%s", body)
	}
}

// TestNewHandlerReadinessFailure verifies a failing store reports 503 on readyz only.
func TestNewHandlerReadinessFailure(t *testing.T) {
	handler, _, err := NewHandler(Config{}, Dependencies{Tables: stubTables{}, Ready: stubPinger{err: errors.New("db down")}})
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz status = %d, want %d", rec.Code, http.StatusOK)
	}
}

// TestNewHandlerRequiresTables verifies the table-data dependency is enforced.
func TestNewHandlerRequiresTables(t *testing.T) {
	if _, _, err := NewHandler(Config{}, Dependencies{}); err == nil {
		t.Fatal("NewHandler() error = nil, want non-nil")
	}
}

// TestNormalizeConfig verifies defaults and endpoint collision checks.
func TestNormalizeConfig(t *testing.T) {
	got, err := normalizeConfig(Config{APIEndpoint: "api//", MCPEndpoint: " /tools/mcp/ "})
	if err != nil {
		t.Fatalf("normalizeConfig() error = %v", err)
	}
	if got.HTTPBind != defaultBindAddress || got.APIEndpoint != "/api" || got.MCPEndpoint != "/tools/mcp" {
		t.Fatalf("unexpected config %#v", got)
	}
	if got.ServerName != "taskdash" || got.ServerVersion != "dev" {
		t.Fatalf("unexpected server identity %#v", got)
	}
	if _, err := normalizeConfig(Config{APIEndpoint: "/x", MCPEndpoint: "/x"}); err == nil {
		t.Fatal("expected collision error for api and mcp")
	}
	if _, err := normalizeConfig(Config{MetricsEndpoint: "/mcp"}); err == nil {
		t.Fatal("expected collision error for metrics and mcp")
	}
	if got := normalizeEndpoint("/", "/fallback"); got != "/fallback" {
		t.Fatalf("normalizeEndpoint(/) = %q, want /fallback", got)
	}
}

// TestRunShutsDownOnCancel verifies Run returns cleanly once its context ends.
func TestRunShutsDownOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, Config{HTTPBind: "127.0.0.1:0"}, Dependencies{Tables: stubTables{}})
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}

// TestStatusRecorderKeepsFirstCode verifies only the first status is recorded.
func TestStatusRecorderKeepsFirstCode(t *testing.T) {
	rec := &statusRecorder{ResponseWriter: httptest.NewRecorder(), status: http.StatusOK}
	rec.WriteHeader(http.StatusTeapot)
	rec.WriteHeader(http.StatusInternalServerError)
	if rec.status != http.StatusTeapot {
		t.Fatalf("status = %d, want %d", rec.status, http.StatusTeapot)
	}
	_, _ = io.WriteString(rec, "x")
}
