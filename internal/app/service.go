package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hylla/taskdash/internal/domain"
)

// Default service keys.
const (
	DefaultMyWorkKey          = "MY_WORK"
	DefaultGroupedSectionType = "TASKS_BY_GROUP"
	TotalLabel                = "Total"
)

// ServiceConfig holds configuration for service.
type ServiceConfig struct {
	MyWorkKey          string
	GroupedSectionType string
	Assignee           string
}

// IDGenerator returns unique identifiers for new entities.
type IDGenerator func() string

// Clock returns the current time.
type Clock func() time.Time

// Service represents service data used by this package.
type Service struct {
	repo  Repository
	idGen IDGenerator
	clock Clock
	cfg   ServiceConfig
}

// NewService constructs a new value for this package.
func NewService(repo Repository, idGen IDGenerator, clock Clock, cfg ServiceConfig) *Service {
	if idGen == nil {
		idGen = func() string { return "" }
	}
	if clock == nil {
		clock = time.Now
	}
	if strings.TrimSpace(cfg.MyWorkKey) == "" {
		cfg.MyWorkKey = DefaultMyWorkKey
	}
	if strings.TrimSpace(cfg.GroupedSectionType) == "" {
		cfg.GroupedSectionType = DefaultGroupedSectionType
	}
	cfg.Assignee = strings.TrimSpace(cfg.Assignee)
	return &Service{
		repo:  repo,
		idGen: idGen,
		clock: clock,
		cfg:   cfg,
	}
}

// Config returns the normalized service configuration.
func (s *Service) Config() ServiceConfig {
	return s.cfg
}

// BuildSection assembles the accordion payload for one fetch key.
// The my-work key returns every configured section plus the screen config; any other key
// is matched against section titles and returns that section alone.
func (s *Service) BuildSection(ctx context.Context, key string) (domain.FetchResponse, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return domain.FetchResponse{}, fmt.Errorf("%w: blank section key", ErrUnknownSection)
	}
	cfg, raw, err := s.ScreenConfig(ctx)
	if key == s.cfg.MyWorkKey {
		if errors.Is(err, ErrNoScreenConfig) {
			return domain.FetchResponse{Accordion: domain.Accordion{AccordionData: domain.NewAccordionData()}}, nil
		}
		if err != nil {
			return domain.FetchResponse{}, err
		}
		return s.buildAll(ctx, cfg, raw)
	}
	if err != nil {
		if errors.Is(err, ErrNoScreenConfig) {
			return domain.FetchResponse{}, fmt.Errorf("%w: %q", ErrUnknownSection, key)
		}
		return domain.FetchResponse{}, err
	}
	for idx, section := range cfg.Sections {
		if !strings.EqualFold(strings.TrimSpace(section.Title), key) {
			continue
		}
		data := domain.NewAccordionData()
		table, err := s.sectionTable(ctx, idx, section)
		if err != nil {
			return domain.FetchResponse{}, err
		}
		data.Set(section.SectionType, table)
		return domain.FetchResponse{Accordion: domain.Accordion{AccordionData: data}}, nil
	}
	return domain.FetchResponse{}, fmt.Errorf("%w: %q", ErrUnknownSection, key)
}

// GroupSection assembles the grouped-section payload for one group name.
func (s *Service) GroupSection(ctx context.Context, group string) (domain.FetchResponse, error) {
	group = strings.TrimSpace(group)
	if group == "" {
		return domain.FetchResponse{}, fmt.Errorf("%w: blank group", ErrUnknownSection)
	}
	items, err := s.repo.ListWorkItemsByGroup(ctx, group)
	if err != nil {
		return domain.FetchResponse{}, err
	}
	data := domain.NewAccordionData()
	data.Set(s.cfg.GroupedSectionType, tableFor(items))
	return domain.FetchResponse{Accordion: domain.Accordion{AccordionData: data}}, nil
}

// buildAll assembles every configured section.
func (s *Service) buildAll(ctx context.Context, cfg domain.ScreenConfig, raw string) (domain.FetchResponse, error) {
	data := domain.NewAccordionData()
	for idx, section := range cfg.Sections {
		table, err := s.sectionTable(ctx, idx, section)
		if err != nil {
			return domain.FetchResponse{}, err
		}
		data.Set(section.SectionType, table)
	}
	return domain.FetchResponse{
		Accordion:            domain.Accordion{AccordionData: data},
		WorkflowScreenConfig: &domain.ScreenConfigEnvelope{Data: &raw},
	}, nil
}

// sectionTable loads one section's items. The first section is scoped to the configured assignee.
func (s *Service) sectionTable(ctx context.Context, idx int, section domain.SectionDescriptor) (domain.TableData, error) {
	var (
		items []domain.WorkItem
		err   error
	)
	switch {
	case section.SectionType == s.cfg.GroupedSectionType:
		items, err = s.repo.ListWorkItemsByGroup(ctx, strings.TrimSpace(section.Title))
	case idx == 0:
		items, err = s.repo.ListWorkItemsBySection(ctx, section.SectionType, s.cfg.Assignee)
	default:
		items, err = s.repo.ListWorkItemsBySection(ctx, section.SectionType, "")
	}
	if err != nil {
		return domain.TableData{}, fmt.Errorf("load section %q: %w", section.SectionType, err)
	}
	return tableFor(items), nil
}

// tableFor converts items into one section payload.
func tableFor(items []domain.WorkItem) domain.TableData {
	rows := make([]domain.Row, 0, len(items))
	for _, item := range items {
		rows = append(rows, item.Row())
	}
	return domain.TableData{TableDataList: rows, HeaderSummary: BuildHeaderSummary(items)}
}

// BuildHeaderSummary counts items by status in display order and appends the total.
func BuildHeaderSummary(items []domain.WorkItem) *domain.HeaderSummary {
	counts := map[domain.Status]int{}
	for _, item := range items {
		counts[item.Status]++
	}
	summary := domain.NewHeaderSummary()
	for _, status := range domain.Statuses() {
		summary.Set(status.Label(), counts[status])
	}
	summary.Set(TotalLabel, len(items))
	return summary
}

// ApplyAction runs one workflow action against a stored work item.
func (s *Service) ApplyAction(ctx context.Context, workItemID, rawAction string) (domain.ActionResult, error) {
	workItemID = strings.TrimSpace(workItemID)
	if workItemID == "" {
		return domain.ActionResult{}, domain.ErrInvalidID
	}
	action, err := domain.ParseWorkflowAction(rawAction)
	if err != nil {
		return domain.ActionResult{}, err
	}
	item, err := s.repo.GetWorkItem(ctx, workItemID)
	if err != nil {
		return domain.ActionResult{}, err
	}
	if err := item.Apply(action, s.clock()); err != nil {
		return domain.ActionResult{}, fmt.Errorf("%w: cannot %s a %s item", err, action, strings.ToLower(item.Status.Label()))
	}
	if err := s.repo.UpdateWorkItem(ctx, item); err != nil {
		return domain.ActionResult{}, err
	}
	return domain.ActionResult{
		IsSuccess:  true,
		Message:    fmt.Sprintf("%s applied", action),
		WorkItemID: item.ID,
		Action:     action,
	}, nil
}

// CreateWorkItem validates and stores one work item.
func (s *Service) CreateWorkItem(ctx context.Context, in domain.WorkItemInput) (domain.WorkItem, error) {
	if strings.TrimSpace(in.ID) == "" {
		in.ID = s.idGen()
	}
	item, err := domain.NewWorkItem(in, s.clock())
	if err != nil {
		return domain.WorkItem{}, err
	}
	if err := s.repo.CreateWorkItem(ctx, item); err != nil {
		return domain.WorkItem{}, err
	}
	return item, nil
}

// ScreenConfig returns the stored my-work screen config and its raw form.
func (s *Service) ScreenConfig(ctx context.Context) (domain.ScreenConfig, string, error) {
	raw, err := s.repo.GetScreenConfig(ctx, s.cfg.MyWorkKey)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return domain.ScreenConfig{}, "", ErrNoScreenConfig
		}
		return domain.ScreenConfig{}, "", err
	}
	cfg, err := domain.ParseScreenConfig(raw)
	if err != nil {
		return domain.ScreenConfig{}, "", err
	}
	return cfg, raw, nil
}

// SaveScreenConfig validates and stores the my-work screen config.
func (s *Service) SaveScreenConfig(ctx context.Context, raw string) error {
	if _, err := domain.ParseScreenConfig(raw); err != nil {
		return err
	}
	return s.repo.PutScreenConfig(ctx, s.cfg.MyWorkKey, raw, s.clock())
}
