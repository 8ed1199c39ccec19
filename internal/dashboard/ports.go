package dashboard

import (
	"context"

	"github.com/hylla/taskdash/internal/domain"
	"github.com/hylla/taskdash/internal/layout"
)

// Fetcher represents the table-data collaborator used by the controller.
type Fetcher interface {
	FetchSection(context.Context, string) (domain.FetchResponse, error)
	FetchGrouped(context.Context, string) (domain.FetchResponse, error)
}

// ActionPerformer represents the backend call behind one row action.
type ActionPerformer interface {
	PerformAction(context.Context, string, domain.WorkflowAction) (domain.ActionResult, error)
}

// Grid represents the data source behind the section grid.
type Grid interface {
	Load([]domain.Row)
	SetLayout(layout.Layout)
	Rows() []domain.Row
}

// ErrorState stores the current fetch error for the error view.
type ErrorState interface {
	SetCurrentError(error)
}

// Navigator moves the application to another route.
type Navigator interface {
	NavigateTo([]string)
}

// Subscriber represents an action-result stream the controller can attach to.
type Subscriber interface {
	Subscribe(func(domain.ActionResult)) func()
}

// Publisher represents an action-result stream the action runner publishes to.
type Publisher interface {
	Publish(domain.ActionResult)
}
