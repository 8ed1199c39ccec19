package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cast"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Row is one work-item record as delivered to the grid.
type Row map[string]any

// ID returns the row identifier used for row actions.
func (r Row) ID() string {
	if r == nil {
		return ""
	}
	v, ok := r["id"]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(cast.ToString(v))
}

// maxExactFloatInt is the largest integer magnitude float64 holds exactly.
const maxExactFloatInt = 1 << 53

// UnmarshalJSON decodes a row keeping integers beyond float64 precision as json.Number.
// Every other number decodes to float64.
func (r *Row) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*r = nil
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("decode row: %w", err)
	}
	for k, v := range raw {
		raw[k] = normalizeNumbers(v)
	}
	*r = raw
	return nil
}

// normalizeNumbers converts json.Number values that float64 represents exactly.
func normalizeNumbers(v any) any {
	switch typed := v.(type) {
	case json.Number:
		if !strings.ContainsAny(typed.String(), ".eE") {
			n, err := typed.Int64()
			if err != nil || n > maxExactFloatInt || n < -maxExactFloatInt {
				return typed
			}
		}
		if f, err := typed.Float64(); err == nil {
			return f
		}
		return typed
	case map[string]any:
		for k, nested := range typed {
			typed[k] = normalizeNumbers(nested)
		}
		return typed
	case []any:
		for i, nested := range typed {
			typed[i] = normalizeNumbers(nested)
		}
		return typed
	default:
		return v
	}
}

// HeaderSummary maps display labels to aggregate values in source order.
type HeaderSummary = orderedmap.OrderedMap[string, any]

// NewHeaderSummary constructs an empty ordered header summary.
func NewHeaderSummary() *HeaderSummary {
	return orderedmap.New[string, any]()
}

// TableData is the per-section payload.
type TableData struct {
	TableDataList []Row          `json:"tableDataList"`
	HeaderSummary *HeaderSummary `json:"headerSummary,omitempty"`
}

// AccordionData maps section types to their table payloads in source order.
type AccordionData = orderedmap.OrderedMap[string, TableData]

// NewAccordionData constructs an empty ordered accordion map.
func NewAccordionData() *AccordionData {
	return orderedmap.New[string, TableData]()
}

// Accordion wraps the accordion payload of one fetch.
type Accordion struct {
	AccordionData *AccordionData `json:"accordionData"`
}

// ScreenConfigEnvelope carries the stringified screen config.
type ScreenConfigEnvelope struct {
	Data *string `json:"data"`
}

// FetchResponse is the response shape of both section and grouped fetches.
type FetchResponse struct {
	Accordion            Accordion             `json:"accordion"`
	WorkflowScreenConfig *ScreenConfigEnvelope `json:"workflowScreenConfig,omitempty"`
}

// Section returns table data for one section type.
func (r FetchResponse) Section(sectionType string) (TableData, bool) {
	if r.Accordion.AccordionData == nil {
		return TableData{}, false
	}
	return r.Accordion.AccordionData.Get(sectionType)
}

// ScreenConfigData returns the raw screen config payload when one is present and non-null.
func (r FetchResponse) ScreenConfigData() (string, bool) {
	if r.WorkflowScreenConfig == nil || r.WorkflowScreenConfig.Data == nil {
		return "", false
	}
	return *r.WorkflowScreenConfig.Data, true
}

// HeaderRow is one display row of a section header summary.
type HeaderRow struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ActionResult is broadcast after a row action completes.
type ActionResult struct {
	IsSuccess  bool           `json:"isSuccess"`
	Message    string         `json:"message,omitempty"`
	WorkItemID string         `json:"workItemId,omitempty"`
	Action     WorkflowAction `json:"action,omitempty"`
}
