package domain

import (
	"maps"
	"slices"
	"strings"
	"time"
)

// Status represents the workflow state of one work item.
type Status string

// Canonical workflow states.
const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusApproved   Status = "approved"
	StatusRejected   Status = "rejected"
)

// statusOrder stores states in header-summary display order.
var statusOrder = []Status{StatusOpen, StatusInProgress, StatusApproved, StatusRejected}

// statusLabels stores display labels for each state.
var statusLabels = map[Status]string{
	StatusOpen:       "Open",
	StatusInProgress: "In Progress",
	StatusApproved:   "Approved",
	StatusRejected:   "Rejected",
}

// Statuses returns all states in display order.
func Statuses() []Status {
	return append([]Status(nil), statusOrder...)
}

// Label returns the display label for the state.
func (s Status) Label() string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return string(s)
}

// Terminal reports whether no further workflow action applies.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// Priority represents work-item urgency.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

var validPriorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

// WorkflowAction is one row-level workflow transition request.
type WorkflowAction string

// Supported workflow actions.
const (
	ActionApprove WorkflowAction = "approve"
	ActionReject  WorkflowAction = "reject"
	ActionClaim   WorkflowAction = "claim"
	ActionRelease WorkflowAction = "release"
)

// transitions maps (action, from) to the resulting state.
var transitions = map[WorkflowAction]map[Status]Status{
	ActionClaim: {
		StatusOpen: StatusInProgress,
	},
	ActionRelease: {
		StatusInProgress: StatusOpen,
	},
	ActionApprove: {
		StatusOpen:       StatusApproved,
		StatusInProgress: StatusApproved,
	},
	ActionReject: {
		StatusOpen:       StatusRejected,
		StatusInProgress: StatusRejected,
	},
}

// actionOrder stores actions in row-action display order.
var actionOrder = []WorkflowAction{ActionApprove, ActionReject, ActionClaim, ActionRelease}

// ParseWorkflowAction normalizes and validates one action name.
func ParseWorkflowAction(raw string) (WorkflowAction, error) {
	action := WorkflowAction(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := transitions[action]; !ok {
		return "", ErrInvalidAction
	}
	return action, nil
}

// AllowedActions returns the actions that can run from one state, in display order.
func AllowedActions(from Status) []WorkflowAction {
	out := make([]WorkflowAction, 0, len(actionOrder))
	for _, action := range actionOrder {
		if _, ok := transitions[action][from]; ok {
			out = append(out, action)
		}
	}
	return out
}

// WorkItem is one task row stored by the backend.
type WorkItem struct {
	ID          string
	SectionType string
	GroupName   string
	Assignee    string
	Title       string
	Status      Status
	Priority    Priority
	DueAt       *time.Time
	Fields      map[string]any
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// WorkItemInput holds values for constructing a work item.
type WorkItemInput struct {
	ID          string
	SectionType string
	GroupName   string
	Assignee    string
	Title       string
	Status      Status
	Priority    Priority
	DueAt       *time.Time
	Fields      map[string]any
}

// NewWorkItem validates input and constructs a work item.
func NewWorkItem(in WorkItemInput, now time.Time) (WorkItem, error) {
	in.ID = strings.TrimSpace(in.ID)
	in.SectionType = strings.TrimSpace(in.SectionType)
	in.GroupName = strings.TrimSpace(in.GroupName)
	in.Assignee = strings.TrimSpace(in.Assignee)
	in.Title = strings.TrimSpace(in.Title)

	if in.ID == "" {
		return WorkItem{}, ErrInvalidID
	}
	if in.SectionType == "" {
		return WorkItem{}, ErrInvalidSectionType
	}
	if in.Title == "" {
		return WorkItem{}, ErrInvalidTitle
	}
	if in.Status == "" {
		in.Status = StatusOpen
	}
	if !slices.Contains(statusOrder, in.Status) {
		return WorkItem{}, ErrInvalidStatus
	}
	if in.Priority == "" {
		in.Priority = PriorityMedium
	}
	if !slices.Contains(validPriorities, in.Priority) {
		return WorkItem{}, ErrInvalidPriority
	}

	var dueAt *time.Time
	if in.DueAt != nil {
		ts := in.DueAt.UTC().Truncate(time.Second)
		dueAt = &ts
	}
	ts := now.UTC()
	return WorkItem{
		ID:          in.ID,
		SectionType: in.SectionType,
		GroupName:   in.GroupName,
		Assignee:    in.Assignee,
		Title:       in.Title,
		Status:      in.Status,
		Priority:    in.Priority,
		DueAt:       dueAt,
		Fields:      maps.Clone(in.Fields),
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}, nil
}

// Apply runs one workflow action against the item.
func (w *WorkItem) Apply(action WorkflowAction, now time.Time) error {
	next, ok := transitions[action]
	if !ok {
		return ErrInvalidAction
	}
	to, ok := next[w.Status]
	if !ok {
		return ErrInvalidTransition
	}
	w.Status = to
	w.UpdatedAt = now.UTC()
	return nil
}

// Row flattens the item into the grid record shape; free-form fields never shadow core keys.
func (w WorkItem) Row() Row {
	row := Row{}
	for key, value := range w.Fields {
		row[key] = value
	}
	row["id"] = w.ID
	row["title"] = w.Title
	row["status"] = w.Status.Label()
	row["statusCode"] = string(w.Status)
	row["priority"] = string(w.Priority)
	row["assignee"] = w.Assignee
	row["group"] = w.GroupName
	if w.DueAt != nil {
		row["dueAt"] = w.DueAt.Format(time.RFC3339)
	} else {
		row["dueAt"] = ""
	}
	row["updatedAt"] = w.UpdatedAt.Format(time.RFC3339)
	return row
}
