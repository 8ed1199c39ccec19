package layout

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hylla/taskdash/internal/domain"
	"github.com/spf13/cast"
)

// ErrUnknownRule reports a sort or format rule with no registered implementation.
var ErrUnknownRule = errors.New("unknown layout rule")

// Comparator orders two cell values: negative when a sorts first, zero when equal.
type Comparator func(a, b any) int

// Formatter renders one cell value for display.
type Formatter func(v any) string

// Registry maps declarative rules to comparator and formatter implementations.
type Registry struct {
	mu          sync.RWMutex
	comparators map[string]Comparator
	formatters  map[string]Formatter
}

// NewRegistry constructs a registry with the built-in rules registered.
func NewRegistry() *Registry {
	r := &Registry{
		comparators: map[string]Comparator{},
		formatters:  map[string]Formatter{},
	}
	r.comparators[string(domain.SortNumeric)] = CompareNumeric
	r.comparators[string(domain.SortLexicographic)] = CompareLexicographic
	r.comparators[string(domain.SortDate)] = CompareDate
	r.formatters[string(domain.FormatPlain)] = FormatPlain
	r.formatters[string(domain.FormatNumber)] = FormatNumber
	r.formatters[string(domain.FormatDate)] = FormatDate
	r.formatters[string(domain.FormatUpper)] = FormatUpper
	return r
}

var defaultRegistry = NewRegistry()

// DefaultRegistry returns the process-wide registry used when no registry is supplied.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// RegisterComparator binds a custom sort name to a comparator.
func (r *Registry) RegisterComparator(name string, cmp Comparator) {
	name = strings.TrimSpace(name)
	if name == "" || cmp == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.comparators[customKey(name)] = cmp
}

// RegisterFormatter binds a custom format name to a formatter.
func (r *Registry) RegisterFormatter(name string, format Formatter) {
	name = strings.TrimSpace(name)
	if name == "" || format == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.formatters[customKey(name)] = format
}

// Comparator resolves one sort rule. A zero rule resolves to the lexicographic comparator.
func (r *Registry) Comparator(rule domain.SortRule) (Comparator, error) {
	key := string(rule.Kind)
	switch rule.Kind {
	case domain.SortNone:
		return CompareLexicographic, nil
	case domain.SortCustom:
		key = customKey(rule.Name)
	}
	r.mu.RLock()
	cmp, ok := r.comparators[key]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: sort %q", ErrUnknownRule, rule.String())
	}
	return cmp, nil
}

// Formatter resolves one format rule. A zero rule resolves to the plain formatter.
func (r *Registry) Formatter(rule domain.FormatRule) (Formatter, error) {
	key := string(rule.Kind)
	switch rule.Kind {
	case domain.FormatNone:
		return FormatPlain, nil
	case domain.FormatCustom:
		key = customKey(rule.Name)
	}
	r.mu.RLock()
	format, ok := r.formatters[key]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: format %q", ErrUnknownRule, rule.String())
	}
	return format, nil
}

// customKey namespaces custom names so they never collide with built-in kinds.
func customKey(name string) string {
	return "custom:" + strings.TrimSpace(name)
}

// CompareNumeric orders values numerically; non-numeric values sort after numeric ones.
func CompareNumeric(a, b any) int {
	av, aerr := cast.ToFloat64E(a)
	bv, berr := cast.ToFloat64E(b)
	switch {
	case aerr != nil && berr != nil:
		return CompareLexicographic(a, b)
	case aerr != nil:
		return 1
	case berr != nil:
		return -1
	case av < bv:
		return -1
	case av > bv:
		return 1
	default:
		return 0
	}
}

// CompareLexicographic orders values by their case-folded string form.
func CompareLexicographic(a, b any) int {
	return strings.Compare(strings.ToLower(FormatPlain(a)), strings.ToLower(FormatPlain(b)))
}

// CompareDate orders values as timestamps; unparseable values sort last.
func CompareDate(a, b any) int {
	at, aok := toTime(a)
	bt, bok := toTime(b)
	switch {
	case !aok && !bok:
		return 0
	case !aok:
		return 1
	case !bok:
		return -1
	}
	return at.Compare(bt)
}

// FormatPlain renders a value as a string; nil renders empty.
func FormatPlain(v any) string {
	if v == nil {
		return ""
	}
	if f, ok := v.(float64); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return cast.ToString(v)
}

// FormatNumber renders a numeric value without trailing zeros and passes other values through.
func FormatNumber(v any) string {
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return FormatPlain(v)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// FormatDate renders a timestamp as YYYY-MM-DD and passes unparseable values through.
func FormatDate(v any) string {
	ts, ok := toTime(v)
	if !ok {
		return FormatPlain(v)
	}
	return ts.UTC().Format(time.DateOnly)
}

// FormatUpper renders the value in upper case.
func FormatUpper(v any) string {
	return strings.ToUpper(FormatPlain(v))
}

// toTime coerces one cell value into a timestamp.
func toTime(v any) (time.Time, bool) {
	if v == nil {
		return time.Time{}, false
	}
	if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
		return time.Time{}, false
	}
	ts, err := cast.ToTimeE(v)
	if err != nil || ts.IsZero() {
		return time.Time{}, false
	}
	return ts, true
}
