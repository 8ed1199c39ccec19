package common

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hylla/taskdash/internal/app"
	"github.com/hylla/taskdash/internal/domain"
)

// AppServiceAdapter maps transport contracts onto app.Service table-data APIs.
type AppServiceAdapter struct {
	service *app.Service
}

// NewAppServiceAdapter builds one common adapter over an app.Service instance.
func NewAppServiceAdapter(service *app.Service) *AppServiceAdapter {
	return &AppServiceAdapter{service: service}
}

// FetchSection resolves one section or my-work payload.
func (a *AppServiceAdapter) FetchSection(ctx context.Context, in FetchSectionRequest) (domain.FetchResponse, error) {
	if a == nil || a.service == nil {
		return domain.FetchResponse{}, fmt.Errorf("app service adapter is not configured: %w", ErrUnavailable)
	}
	key := strings.TrimSpace(in.Key)
	if key == "" {
		return domain.FetchResponse{}, fmt.Errorf("key is required: %w", ErrInvalidRequest)
	}
	resp, err := a.service.BuildSection(ctx, key)
	if err != nil {
		return domain.FetchResponse{}, mapAppError("fetch section", err)
	}
	return resp, nil
}

// FetchGroup resolves one grouped-section payload.
func (a *AppServiceAdapter) FetchGroup(ctx context.Context, in FetchGroupRequest) (domain.FetchResponse, error) {
	if a == nil || a.service == nil {
		return domain.FetchResponse{}, fmt.Errorf("app service adapter is not configured: %w", ErrUnavailable)
	}
	group := strings.TrimSpace(in.Group)
	if group == "" {
		return domain.FetchResponse{}, fmt.Errorf("group is required: %w", ErrInvalidRequest)
	}
	resp, err := a.service.GroupSection(ctx, group)
	if err != nil {
		return domain.FetchResponse{}, mapAppError("fetch group", err)
	}
	return resp, nil
}

// ApplyAction runs one row action.
func (a *AppServiceAdapter) ApplyAction(ctx context.Context, in ApplyActionRequest) (domain.ActionResult, error) {
	if a == nil || a.service == nil {
		return domain.ActionResult{}, fmt.Errorf("app service adapter is not configured: %w", ErrUnavailable)
	}
	id := strings.TrimSpace(in.WorkItemID)
	if id == "" {
		return domain.ActionResult{}, fmt.Errorf("work_item_id is required: %w", ErrInvalidRequest)
	}
	action := strings.TrimSpace(in.Action)
	if action == "" {
		return domain.ActionResult{}, fmt.Errorf("action is required: %w", ErrInvalidRequest)
	}
	res, err := a.service.ApplyAction(ctx, id, action)
	if err != nil {
		return domain.ActionResult{}, mapAppError("apply action", err)
	}
	return res, nil
}

// GetScreenConfig returns the stored screen config payload.
func (a *AppServiceAdapter) GetScreenConfig(ctx context.Context) (string, error) {
	if a == nil || a.service == nil {
		return "", fmt.Errorf("app service adapter is not configured: %w", ErrUnavailable)
	}
	_, raw, err := a.service.ScreenConfig(ctx)
	if err != nil {
		return "", mapAppError("get screen config", err)
	}
	return raw, nil
}

// SaveScreenConfig validates and stores one screen config payload.
func (a *AppServiceAdapter) SaveScreenConfig(ctx context.Context, raw string) error {
	if a == nil || a.service == nil {
		return fmt.Errorf("app service adapter is not configured: %w", ErrUnavailable)
	}
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("data is required: %w", ErrInvalidRequest)
	}
	if err := a.service.SaveScreenConfig(ctx, raw); err != nil {
		return mapAppError("save screen config", err)
	}
	return nil
}

// mapAppError maps app and domain errors onto transport-visible sentinels.
func mapAppError(operation string, err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, app.ErrNotFound),
		errors.Is(err, app.ErrUnknownSection),
		errors.Is(err, app.ErrNoScreenConfig):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrNotFound, err))
	case errors.Is(err, domain.ErrInvalidTransition):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrConflict, err))
	case errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrInvalidAction),
		errors.Is(err, domain.ErrInvalidTitle),
		errors.Is(err, domain.ErrInvalidSectionType),
		errors.Is(err, domain.ErrInvalidStatus),
		errors.Is(err, domain.ErrInvalidPriority),
		errors.Is(err, domain.ErrInvalidScreenConfig):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrInvalidRequest, err))
	default:
		return fmt.Errorf("%s: %w", operation, err)
	}
}
