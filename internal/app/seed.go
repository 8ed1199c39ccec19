package app

import (
	"context"
	"fmt"
	"time"

	"github.com/hylla/taskdash/internal/domain"
)

// demoScreenConfig is the screen config stored by Seed.
const demoScreenConfig = `{
  "title": "Task Dashboard",
  "sections": [
    {
      "sectionType": "myWork",
      "title": "My Work",
      "scrnLayout": {
        "columns": {
          "title": {"title": "Task", "width": 32},
          "status": {"title": "Status", "width": 12},
          "priority": {"title": "Priority", "width": 9, "sort": "lexicographic", "format": "upper"},
          "dueAt": {"title": "Due", "width": 12, "sort": "date", "format": "date"},
          "amount": {"title": "Amount", "width": 10, "sort": "numeric", "format": "number"},
          "actions": {"title": "Actions", "width": 24}
        }
      }
    },
    {
      "sectionType": "teamWork",
      "title": "Team Work",
      "scrnLayout": {
        "columns": {
          "title": {"title": "Task", "width": 32},
          "assignee": {"title": "Assignee", "width": 12},
          "status": {"title": "Status", "width": 12},
          "dueAt": {"title": "Due", "width": 12, "sort": "date", "format": "date"},
          "actions": {"title": "Actions", "width": 24, "allowed": ["claim"]}
        }
      }
    },
    {
      "sectionType": "TASKS_BY_GROUP",
      "title": "Finance",
      "scrnLayout": {
        "columns": {
          "title": {"title": "Task", "width": 32},
          "group": {"title": "Group", "width": 10},
          "status": {"title": "Status", "width": 12},
          "amount": {"title": "Amount", "width": 10, "sort": "numeric", "format": "number"}
        }
      }
    }
  ]
}`

// seedItem is one demo work item template.
type seedItem struct {
	section  string
	group    string
	assignee string
	title    string
	status   domain.Status
	priority domain.Priority
	dueIn    time.Duration
	amount   float64
}

// Seed stores the demo screen config and work items when the store is empty.
// It reports whether anything was written.
func (s *Service) Seed(ctx context.Context) (bool, error) {
	count, err := s.repo.CountWorkItems(ctx)
	if err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}
	if err := s.SaveScreenConfig(ctx, demoScreenConfig); err != nil {
		return false, fmt.Errorf("seed screen config: %w", err)
	}

	assignee := s.cfg.Assignee
	if assignee == "" {
		assignee = "me"
	}
	now := s.clock().UTC()
	items := []seedItem{
		{section: "myWork", group: "Finance", assignee: assignee, title: "Approve Q3 vendor invoice", priority: domain.PriorityHigh, dueIn: 24 * time.Hour, amount: 1250.5},
		{section: "myWork", group: "Ops", assignee: assignee, title: "Review on-call rotation", status: domain.StatusInProgress, dueIn: 72 * time.Hour, amount: 0},
		{section: "myWork", group: "Finance", assignee: assignee, title: "Sign travel reimbursement", priority: domain.PriorityLow, dueIn: 48 * time.Hour, amount: 310},
		{section: "teamWork", group: "Ops", assignee: "dana", title: "Rotate service credentials", dueIn: 96 * time.Hour},
		{section: "teamWork", group: "Ops", assignee: "lee", title: "Patch staging cluster", status: domain.StatusApproved, dueIn: -24 * time.Hour},
		{section: "teamWork", group: "Finance", assignee: "", title: "Reconcile card statements", dueIn: 120 * time.Hour, amount: 4200},
	}
	for _, tpl := range items {
		due := now.Add(tpl.dueIn)
		fields := map[string]any{}
		if tpl.amount != 0 {
			fields["amount"] = tpl.amount
		}
		if _, err := s.CreateWorkItem(ctx, domain.WorkItemInput{
			SectionType: tpl.section,
			GroupName:   tpl.group,
			Assignee:    tpl.assignee,
			Title:       tpl.title,
			Status:      tpl.status,
			Priority:    tpl.priority,
			DueAt:       &due,
			Fields:      fields,
		}); err != nil {
			return false, fmt.Errorf("seed work item %q: %w", tpl.title, err)
		}
	}
	return true, nil
}
