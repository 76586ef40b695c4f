package domain

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// RangeOp is a comparison operator inside a filter condition. The spelling
// matches the wire form the filter translator is prompted to emit.
type RangeOp string

const (
	RangeLT  RangeOp = "$lt"
	RangeLTE RangeOp = "$lte"
	RangeGT  RangeOp = "$gt"
	RangeGTE RangeOp = "$gte"
	RangeEQ  RangeOp = "$eq"
)

// FilterFields is the fixed attribute schema a predicate may reference.
// A predicate touching anything outside this set is invalid and must be
// discarded before it reaches a backend.
var FilterFields = map[string]struct{}{
	"cheese_type":  {},
	"cheese_form":  {},
	"brand":        {},
	"price_each":   {},
	"price_per_lb": {},
	"lb_per_each":  {},
	"case":         {},
	"sku":          {},
	"upc":          {},
}

// FieldCondition holds either an equality value or a set of range operators
// for a single field, never both.
type FieldCondition struct {
	Equals string
	Range  map[RangeOp]float64
}

// FilterPredicate is a conjunction of per-field conditions. Conditions
// compose with AND only; there is no OR and no negation.
type FilterPredicate struct {
	Fields map[string]FieldCondition
}

func (p *FilterPredicate) IsZero() bool {
	return p == nil || len(p.Fields) == 0
}

// Validate rejects predicates referencing fields outside the fixed schema.
func (p *FilterPredicate) Validate() error {
	if p.IsZero() {
		return nil
	}
	for field := range p.Fields {
		if _, ok := FilterFields[field]; !ok {
			return WrapError(ErrInvalidFilterField, "validate filter", fmt.Errorf("unknown field %q", field))
		}
	}
	return nil
}

// FieldNames returns the constrained fields in stable order, for logging.
func (p *FilterPredicate) FieldNames() []string {
	if p.IsZero() {
		return nil
	}
	names := make([]string, 0, len(p.Fields))
	for field := range p.Fields {
		names = append(names, field)
	}
	sort.Strings(names)
	return names
}

var knownRangeOps = map[RangeOp]struct{}{
	RangeLT: {}, RangeLTE: {}, RangeGT: {}, RangeGTE: {}, RangeEQ: {},
}

// ParseFilterJSON decodes a model- or caller-supplied filter object into a
// predicate. Two shapes are accepted, matching what the translator prompt
// asks for: a flat object of field conditions, or {"$and":[...]} wrapping a
// list of single-field objects. Anything else is malformed model output;
// there is deliberately no brace-repair of almost-JSON.
func ParseFilterJSON(raw string) (*FilterPredicate, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "{}" || raw == "null" {
		return nil, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return nil, WrapError(ErrMalformedModelOutput, "parse filter", err)
	}

	predicate := &FilterPredicate{Fields: make(map[string]FieldCondition)}

	if andRaw, ok := obj["$and"]; ok {
		if len(obj) != 1 {
			return nil, WrapError(ErrMalformedModelOutput, "parse filter", fmt.Errorf("$and mixed with bare fields"))
		}
		var clauses []map[string]json.RawMessage
		if err := json.Unmarshal(andRaw, &clauses); err != nil {
			return nil, WrapError(ErrMalformedModelOutput, "parse filter", err)
		}
		for _, clause := range clauses {
			if err := mergeFilterFields(predicate, clause); err != nil {
				return nil, err
			}
		}
	} else if err := mergeFilterFields(predicate, obj); err != nil {
		return nil, err
	}

	if len(predicate.Fields) == 0 {
		return nil, nil
	}
	return predicate, nil
}

func mergeFilterFields(dst *FilterPredicate, obj map[string]json.RawMessage) error {
	for field, valueRaw := range obj {
		cond, err := parseFieldCondition(field, valueRaw)
		if err != nil {
			return err
		}
		dst.Fields[field] = cond
	}
	return nil
}

func parseFieldCondition(field string, raw json.RawMessage) (FieldCondition, error) {
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return FieldCondition{}, WrapError(ErrMalformedModelOutput, "parse filter", err)
	}

	switch typed := value.(type) {
	case string:
		return FieldCondition{Equals: typed}, nil
	case float64:
		return FieldCondition{Range: map[RangeOp]float64{RangeEQ: typed}}, nil
	case map[string]any:
		ops := make(map[RangeOp]float64, len(typed))
		for opName, opValue := range typed {
			op := RangeOp(opName)
			if _, ok := knownRangeOps[op]; !ok {
				return FieldCondition{}, WrapError(ErrMalformedModelOutput, "parse filter", fmt.Errorf("field %q: unknown operator %q", field, opName))
			}
			number, ok := opValue.(float64)
			if !ok {
				return FieldCondition{}, WrapError(ErrMalformedModelOutput, "parse filter", fmt.Errorf("field %q: operator %s requires a number", field, opName))
			}
			ops[op] = number
		}
		if len(ops) == 0 {
			return FieldCondition{}, WrapError(ErrMalformedModelOutput, "parse filter", fmt.Errorf("field %q: empty operator set", field))
		}
		return FieldCondition{Range: ops}, nil
	default:
		return FieldCondition{}, WrapError(ErrMalformedModelOutput, "parse filter", fmt.Errorf("field %q: unsupported condition type %T", field, value))
	}
}
