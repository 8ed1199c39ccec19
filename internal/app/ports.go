package app

import (
	"context"
	"time"

	"github.com/hylla/taskdash/internal/domain"
)

// Repository represents repository data used by this package.
type Repository interface {
	CreateWorkItem(context.Context, domain.WorkItem) error
	UpdateWorkItem(context.Context, domain.WorkItem) error
	GetWorkItem(context.Context, string) (domain.WorkItem, error)
	ListWorkItemsBySection(context.Context, string, string) ([]domain.WorkItem, error)
	ListWorkItemsByGroup(context.Context, string) ([]domain.WorkItem, error)
	CountWorkItems(context.Context) (int, error)

	PutScreenConfig(context.Context, string, string, time.Time) error
	GetScreenConfig(context.Context, string) (string, error)
}
