package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// actionsColumnKey names the reserved layout entry describing the row-action column.
const actionsColumnKey = "actions"

// ScreenConfig is the decoded form of workflowScreenConfig.data.
type ScreenConfig struct {
	Title    string              `json:"title"`
	Sections []SectionDescriptor `json:"sections"`
}

// SectionDescriptor describes one accordion section.
type SectionDescriptor struct {
	SectionType string     `json:"sectionType"`
	Title       string     `json:"title"`
	Layout      LayoutSpec `json:"scrnLayout"`
}

// LayoutSpec describes the grid columns and the optional action column of one section.
type LayoutSpec struct {
	Columns []ColumnSpec
	Actions *ActionSpec
}

// ColumnSpec describes one data column.
type ColumnSpec struct {
	Key    string     `json:"-"`
	Title  string     `json:"title"`
	Type   string     `json:"type,omitempty"`
	Width  int        `json:"width,omitempty"`
	Hidden bool       `json:"hidden,omitempty"`
	Filter bool       `json:"filter,omitempty"`
	Sort   SortRule   `json:"sort,omitempty"`
	Format FormatRule `json:"format,omitempty"`
}

// ActionSpec describes the row-action column.
type ActionSpec struct {
	Title   string   `json:"title"`
	Width   int      `json:"width,omitempty"`
	Allowed []string `json:"allowed,omitempty"`
}

// layoutWire is the JSON shape of scrnLayout.
type layoutWire struct {
	Columns *orderedmap.OrderedMap[string, json.RawMessage] `json:"columns"`
	Actions *ActionSpec                                     `json:"actions"`
}

// columnWire accepts the legacy grid-widget key names next to the declarative ones.
type columnWire struct {
	ColumnSpec
	CompareFunction      *SortRule   `json:"compareFunction,omitempty"`
	ValuePrepareFunction *FormatRule `json:"valuePrepareFunction,omitempty"`
}

// UnmarshalJSON decodes scrnLayout preserving column order and lifting `columns.actions` out.
func (l *LayoutSpec) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*l = LayoutSpec{}
		return nil
	}
	var wire layoutWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return fmt.Errorf("decode layout: %w", err)
	}
	out := LayoutSpec{Actions: wire.Actions}
	if wire.Columns != nil {
		out.Columns = make([]ColumnSpec, 0, wire.Columns.Len())
		for pair := wire.Columns.Oldest(); pair != nil; pair = pair.Next() {
			if pair.Key == actionsColumnKey {
				var actions ActionSpec
				if err := json.Unmarshal(pair.Value, &actions); err != nil {
					return fmt.Errorf("decode layout actions: %w", err)
				}
				out.Actions = &actions
				continue
			}
			var col columnWire
			if err := json.Unmarshal(pair.Value, &col); err != nil {
				return fmt.Errorf("decode layout column %q: %w", pair.Key, err)
			}
			spec := col.ColumnSpec
			spec.Key = pair.Key
			if spec.Sort.IsZero() && col.CompareFunction != nil {
				spec.Sort = *col.CompareFunction
				spec.Sort.Legacy = true
			}
			if spec.Format.IsZero() && col.ValuePrepareFunction != nil {
				spec.Format = *col.ValuePrepareFunction
				spec.Format.Legacy = true
			}
			if strings.TrimSpace(spec.Title) == "" {
				spec.Title = pair.Key
			}
			out.Columns = append(out.Columns, spec)
		}
	}
	*l = out
	return nil
}

// MarshalJSON encodes the layout back into its ordered wire form.
func (l LayoutSpec) MarshalJSON() ([]byte, error) {
	columns := orderedmap.New[string, any]()
	for _, col := range l.Columns {
		columns.Set(col.Key, col)
	}
	if l.Actions != nil {
		columns.Set(actionsColumnKey, l.Actions)
	}
	return json.Marshal(map[string]any{"columns": columns})
}

// Column returns the column spec for one key.
func (l LayoutSpec) Column(key string) (ColumnSpec, bool) {
	for _, col := range l.Columns {
		if col.Key == key {
			return col, true
		}
	}
	return ColumnSpec{}, false
}

// ParseScreenConfig decodes a workflowScreenConfig.data payload.
func ParseScreenConfig(data string) (ScreenConfig, error) {
	var cfg ScreenConfig
	if err := json.Unmarshal([]byte(data), &cfg); err != nil {
		return ScreenConfig{}, fmt.Errorf("%w: %v", ErrInvalidScreenConfig, err)
	}
	if cfg.Sections == nil {
		cfg.Sections = []SectionDescriptor{}
	}
	return cfg, nil
}

// TitleOr returns the configured title or the fallback when it is blank.
func (c ScreenConfig) TitleOr(fallback string) string {
	if strings.TrimSpace(c.Title) == "" {
		return fallback
	}
	return c.Title
}
