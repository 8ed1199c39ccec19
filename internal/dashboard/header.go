package dashboard

import (
	"strconv"

	"github.com/hylla/taskdash/internal/domain"
	"github.com/spf13/cast"
)

// BuildHeaderRows converts a header summary into display rows in source order.
// A nil summary yields nil so callers can keep the rows already shown.
func BuildHeaderRows(summary *domain.HeaderSummary) []domain.HeaderRow {
	if summary == nil {
		return nil
	}
	out := make([]domain.HeaderRow, 0, summary.Len())
	for pair := summary.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, domain.HeaderRow{Name: pair.Key, Value: headerValue(pair.Value)})
	}
	return out
}

// headerValue renders one summary value for display.
func headerValue(v any) string {
	switch typed := v.(type) {
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(typed), 'f', -1, 32)
	default:
		return cast.ToString(v)
	}
}
