// Package common provides transport-agnostic server contracts used by HTTP and MCP adapters.
package common

import (
	"context"
	"errors"

	"github.com/hylla/taskdash/internal/domain"
)

// ErrInvalidRequest reports malformed transport input.
var ErrInvalidRequest = errors.New("invalid request")

// ErrNotFound reports missing transport-visible resources.
var ErrNotFound = errors.New("not found")

// ErrConflict reports a request that conflicts with the current resource state.
var ErrConflict = errors.New("conflict")

// ErrUnavailable reports a backing service that is not configured.
var ErrUnavailable = errors.New("service unavailable")

// FetchSectionRequest captures one per-key table-data request.
type FetchSectionRequest struct {
	Key string
}

// FetchGroupRequest captures one group-scoped table-data request.
type FetchGroupRequest struct {
	Group string
}

// ApplyActionRequest captures one row-action request.
type ApplyActionRequest struct {
	WorkItemID string
	Action     string
}

// TableDataService resolves table-data and row-action requests for HTTP and MCP callers.
type TableDataService interface {
	FetchSection(context.Context, FetchSectionRequest) (domain.FetchResponse, error)
	FetchGroup(context.Context, FetchGroupRequest) (domain.FetchResponse, error)
	ApplyAction(context.Context, ApplyActionRequest) (domain.ActionResult, error)
}

// ScreenConfigService reads and replaces the stored my-work screen config.
type ScreenConfigService interface {
	GetScreenConfig(context.Context) (string, error)
	SaveScreenConfig(context.Context, string) error
}
