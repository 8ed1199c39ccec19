// Package local serves dashboard fetches and row actions from an in-process table-data service.
package local

import (
	"context"
	"errors"

	"github.com/hylla/taskdash/internal/adapters/server/common"
	"github.com/hylla/taskdash/internal/domain"
)

// ErrNoService reports a Source built without a backing service.
var ErrNoService = errors.New("local table data service is not configured")

// Source adapts common.TableDataService onto the dashboard fetch and action ports.
type Source struct {
	service common.TableDataService
}

// New constructs one Source over service.
func New(service common.TableDataService) *Source {
	return &Source{service: service}
}

// FetchSection resolves one my-work or per-section payload.
func (s *Source) FetchSection(ctx context.Context, key string) (domain.FetchResponse, error) {
	if s == nil || s.service == nil {
		return domain.FetchResponse{}, ErrNoService
	}
	return s.service.FetchSection(ctx, common.FetchSectionRequest{Key: key})
}

// FetchGrouped resolves one grouped-section payload.
func (s *Source) FetchGrouped(ctx context.Context, key string) (domain.FetchResponse, error) {
	if s == nil || s.service == nil {
		return domain.FetchResponse{}, ErrNoService
	}
	return s.service.FetchGroup(ctx, common.FetchGroupRequest{Group: key})
}

// PerformAction runs one row action.
func (s *Source) PerformAction(ctx context.Context, workItemID string, action domain.WorkflowAction) (domain.ActionResult, error) {
	if s == nil || s.service == nil {
		return domain.ActionResult{}, ErrNoService
	}
	return s.service.ApplyAction(ctx, common.ApplyActionRequest{
		WorkItemID: workItemID,
		Action:     string(action),
	})
}
