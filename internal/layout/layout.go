package layout

import (
	"errors"
	"fmt"

	"github.com/hylla/taskdash/internal/domain"
)

// ActionRenderer produces the row-level action labels shown in the action column.
type ActionRenderer interface {
	RenderActions(row domain.Row) []string
}

// Column is one resolved grid column with its bound callables.
type Column struct {
	Key     string
	Title   string
	Type    string
	Width   int
	Hidden  bool
	Filter  bool
	Sort    domain.SortRule
	Format  domain.FormatRule
	Compare Comparator
	Render  Formatter
}

// ActionColumn is the resolved row-action column.
type ActionColumn struct {
	Title    string
	Width    int
	Allowed  []string
	Renderer ActionRenderer
}

// Actions returns the labels for one row, filtered by the configured allow-list.
func (c ActionColumn) Actions(row domain.Row) []string {
	if c.Renderer == nil {
		return nil
	}
	labels := c.Renderer.RenderActions(row)
	if len(c.Allowed) == 0 {
		return labels
	}
	allowed := make(map[string]struct{}, len(c.Allowed))
	for _, name := range c.Allowed {
		allowed[name] = struct{}{}
	}
	out := make([]string, 0, len(labels))
	for _, label := range labels {
		if _, ok := allowed[label]; ok {
			out = append(out, label)
		}
	}
	return out
}

// RuleFallback records a legacy column rule that resolved to the default callable.
type RuleFallback struct {
	Column string
	Rule   string
}

// Layout is a resolved, render-ready grid layout.
type Layout struct {
	Columns   []Column
	Actions   *ActionColumn
	Fallbacks []RuleFallback
}

// IsZero reports whether the layout carries no columns and no action column.
func (l Layout) IsZero() bool {
	return len(l.Columns) == 0 && l.Actions == nil
}

// Column returns the column for one key.
func (l Layout) Column(key string) (Column, bool) {
	for _, col := range l.Columns {
		if col.Key == key {
			return col, true
		}
	}
	return Column{}, false
}

// VisibleColumns returns non-hidden columns in configured order.
func (l Layout) VisibleColumns() []Column {
	out := make([]Column, 0, len(l.Columns))
	for _, col := range l.Columns {
		if !col.Hidden {
			out = append(out, col)
		}
	}
	return out
}

// Resolver builds layouts against one registry.
type Resolver struct {
	registry *Registry
}

// NewResolver constructs a resolver; a nil registry selects the default registry.
func NewResolver(registry *Registry) Resolver {
	if registry == nil {
		registry = DefaultRegistry()
	}
	return Resolver{registry: registry}
}

// Resolve builds a new Layout from a spec, binding the action renderer to the action column.
// Unknown legacy rules fall back to the defaults and are listed in Fallbacks. Unknown
// declarative rules, custom names included, fail with ErrUnknownRule.
func (r Resolver) Resolve(spec domain.LayoutSpec, renderer ActionRenderer) (Layout, error) {
	out := Layout{Columns: make([]Column, 0, len(spec.Columns))}
	for _, colSpec := range spec.Columns {
		col := Column{
			Key:    colSpec.Key,
			Title:  colSpec.Title,
			Type:   colSpec.Type,
			Width:  colSpec.Width,
			Hidden: colSpec.Hidden,
			Filter: colSpec.Filter,
			Sort:   colSpec.Sort,
			Format: colSpec.Format,
		}
		if err := r.bindColumn(&col, &out.Fallbacks); err != nil {
			return Layout{}, fmt.Errorf("resolve column %q: %w", colSpec.Key, err)
		}
		out.Columns = append(out.Columns, col)
	}
	if spec.Actions != nil {
		out.Actions = &ActionColumn{
			Title:    spec.Actions.Title,
			Width:    spec.Actions.Width,
			Allowed:  append([]string(nil), spec.Actions.Allowed...),
			Renderer: renderer,
		}
	}
	return out, nil
}

// bindColumn fills the missing callables of one column.
func (r Resolver) bindColumn(col *Column, fallbacks *[]RuleFallback) error {
	if col.Compare == nil {
		compare, err := r.registry.Comparator(col.Sort)
		if err != nil {
			if !legacyFallback(err, col.Sort.Legacy, col.Sort.Kind == domain.SortCustom) {
				return err
			}
			compare = CompareLexicographic
			*fallbacks = append(*fallbacks, RuleFallback{Column: col.Key, Rule: "sort " + col.Sort.String()})
		}
		col.Compare = compare
	}
	if col.Render == nil {
		render, err := r.registry.Formatter(col.Format)
		if err != nil {
			if !legacyFallback(err, col.Format.Legacy, col.Format.Kind == domain.FormatCustom) {
				return err
			}
			render = FormatPlain
			*fallbacks = append(*fallbacks, RuleFallback{Column: col.Key, Rule: "format " + col.Format.String()})
		}
		col.Render = render
	}
	return nil
}

// legacyFallback reports whether an unknown rule may fall back to the default callable.
func legacyFallback(err error, legacy, custom bool) bool {
	return legacy && !custom && errors.Is(err, ErrUnknownRule)
}

// Bind returns a copy of an already resolved layout with missing callables filled in.
// Columns that already carry callables are kept as they are.
func (r Resolver) Bind(in Layout, renderer ActionRenderer) (Layout, error) {
	out := Layout{
		Columns:   make([]Column, 0, len(in.Columns)),
		Fallbacks: append([]RuleFallback(nil), in.Fallbacks...),
	}
	for _, col := range in.Columns {
		if err := r.bindColumn(&col, &out.Fallbacks); err != nil {
			return Layout{}, fmt.Errorf("bind column %q: %w", col.Key, err)
		}
		out.Columns = append(out.Columns, col)
	}
	if in.Actions != nil {
		actions := *in.Actions
		actions.Allowed = append([]string(nil), in.Actions.Allowed...)
		if actions.Renderer == nil {
			actions.Renderer = renderer
		}
		out.Actions = &actions
	}
	return out, nil
}
