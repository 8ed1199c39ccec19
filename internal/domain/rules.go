package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// SortKind identifies one comparator family a grid column can sort with.
type SortKind string

// Built-in sort kinds.
const (
	SortNone          SortKind = ""
	SortNumeric       SortKind = "numeric"
	SortLexicographic SortKind = "lexicographic"
	SortDate          SortKind = "date"
	SortCustom        SortKind = "custom"
)

// SortRule is the declarative replacement for serialized compare functions in layout JSON.
// Legacy marks rules decoded from the grid widget's compareFunction key.
type SortRule struct {
	Kind   SortKind `json:"kind,omitempty"`
	Name   string   `json:"name,omitempty"`
	Legacy bool     `json:"-"`
}

// IsZero reports whether no sort rule was configured.
func (r SortRule) IsZero() bool {
	return r.Kind == SortNone && strings.TrimSpace(r.Name) == ""
}

// String renders the rule in its shorthand form.
func (r SortRule) String() string {
	if r.Kind == SortCustom {
		return "custom:" + r.Name
	}
	return string(r.Kind)
}

// UnmarshalJSON accepts `{"kind":"numeric"}`, `"numeric"`, or `"custom:name"`.
func (r *SortRule) UnmarshalJSON(data []byte) error {
	raw, obj, err := decodeRule(data)
	if err != nil {
		return err
	}
	if obj != nil {
		r.Kind = SortKind(normalizeRuleKind(obj.Kind))
		r.Name = strings.TrimSpace(obj.Name)
		return nil
	}
	kind, name := splitRuleShorthand(raw)
	r.Kind = SortKind(kind)
	r.Name = name
	return nil
}

// FormatKind identifies one cell formatter family.
type FormatKind string

// Built-in format kinds.
const (
	FormatNone   FormatKind = ""
	FormatPlain  FormatKind = "plain"
	FormatNumber FormatKind = "number"
	FormatDate   FormatKind = "date"
	FormatUpper  FormatKind = "upper"
	FormatCustom FormatKind = "custom"
)

// FormatRule is the declarative replacement for serialized value-prepare functions.
// Legacy marks rules decoded from the grid widget's valuePrepareFunction key.
type FormatRule struct {
	Kind   FormatKind `json:"kind,omitempty"`
	Name   string     `json:"name,omitempty"`
	Legacy bool       `json:"-"`
}

// IsZero reports whether no format rule was configured.
func (r FormatRule) IsZero() bool {
	return r.Kind == FormatNone && strings.TrimSpace(r.Name) == ""
}

// String renders the rule in its shorthand form.
func (r FormatRule) String() string {
	if r.Kind == FormatCustom {
		return "custom:" + r.Name
	}
	return string(r.Kind)
}

// UnmarshalJSON accepts the same shapes as SortRule.
func (r *FormatRule) UnmarshalJSON(data []byte) error {
	raw, obj, err := decodeRule(data)
	if err != nil {
		return err
	}
	if obj != nil {
		r.Kind = FormatKind(normalizeRuleKind(obj.Kind))
		r.Name = strings.TrimSpace(obj.Name)
		return nil
	}
	kind, name := splitRuleShorthand(raw)
	r.Kind = FormatKind(kind)
	r.Name = name
	return nil
}

// ruleObject is the tagged object form shared by sort and format rules.
type ruleObject struct {
	Kind string `json:"kind"`
	Name string `json:"name"`
}

// decodeRule decodes either a shorthand string or the tagged object form.
func decodeRule(data []byte) (string, *ruleObject, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return "", nil, nil
	}
	switch data[0] {
	case '"':
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return "", nil, fmt.Errorf("%w: %v", ErrInvalidRule, err)
		}
		return raw, nil, nil
	case '{':
		var obj ruleObject
		if err := json.Unmarshal(data, &obj); err != nil {
			return "", nil, fmt.Errorf("%w: %v", ErrInvalidRule, err)
		}
		return "", &obj, nil
	default:
		return "", nil, fmt.Errorf("%w: unsupported rule payload %s", ErrInvalidRule, string(data))
	}
}

// splitRuleShorthand parses `kind` or `custom:name` into its parts.
func splitRuleShorthand(raw string) (string, string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ""
	}
	if kind, name, ok := strings.Cut(raw, ":"); ok {
		return normalizeRuleKind(kind), strings.TrimSpace(name)
	}
	return normalizeRuleKind(raw), ""
}

// normalizeRuleKind canonicalizes rule kind casing.
func normalizeRuleKind(kind string) string {
	return strings.ToLower(strings.TrimSpace(kind))
}
