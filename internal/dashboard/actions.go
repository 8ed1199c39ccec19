package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/hylla/taskdash/internal/domain"
)

// defaultRowActions lists the actions offered when a row carries no status code.
var defaultRowActions = []domain.WorkflowAction{domain.ActionApprove, domain.ActionReject}

// ActionRunner performs row actions and broadcasts their results.
type ActionRunner struct {
	performer ActionPerformer
	publisher Publisher
	logger    *log.Logger
}

// NewActionRunner constructs a new value for this package.
func NewActionRunner(performer ActionPerformer, publisher Publisher, logger *log.Logger) *ActionRunner {
	if logger == nil {
		logger = log.Default()
	}
	return &ActionRunner{performer: performer, publisher: publisher, logger: logger}
}

// RenderActions returns the action labels valid for one row's status.
func (r *ActionRunner) RenderActions(row domain.Row) []string {
	actions := defaultRowActions
	if code, ok := row["statusCode"].(string); ok && strings.TrimSpace(code) != "" {
		actions = domain.AllowedActions(domain.Status(code))
	}
	out := make([]string, 0, len(actions))
	for _, action := range actions {
		out = append(out, string(action))
	}
	return out
}

// Run performs one row action and publishes the result to every subscriber.
func (r *ActionRunner) Run(ctx context.Context, workItemID string, action domain.WorkflowAction) domain.ActionResult {
	result := domain.ActionResult{WorkItemID: workItemID, Action: action}
	switch {
	case r.performer == nil:
		result.Message = "actions are unavailable"
	case strings.TrimSpace(workItemID) == "":
		result.Message = "no row selected"
	default:
		res, err := r.performer.PerformAction(ctx, workItemID, action)
		if err != nil {
			result.Message = actionErrorMessage(err)
			r.logger.Warn("row action failed", "work_item", workItemID, "action", action, "err", err)
			break
		}
		result.IsSuccess = res.IsSuccess
		result.Message = res.Message
		if result.IsSuccess {
			result.Message = fmt.Sprintf("%s applied", action)
		}
	}
	if r.publisher != nil {
		r.publisher.Publish(result)
	}
	return result
}

// actionErrorMessage extracts the display message for a failed action.
func actionErrorMessage(err error) string {
	var described interface{ UserMessage() string }
	if errors.As(err, &described) {
		if msg := strings.TrimSpace(described.UserMessage()); msg != "" {
			return msg
		}
	}
	return err.Error()
}
