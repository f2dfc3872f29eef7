package domain

import (
	"reflect"
	"time"
)

// Operator names a comparison applied by a query condition.
type Operator string

// Supported condition operators.
const (
	OpEq    Operator = "="
	OpNeq   Operator = "!="
	OpIn    Operator = "in"
	OpNotIn Operator = "not in"
	OpLt    Operator = "<"
	OpGt    Operator = ">"
	OpLte   Operator = "<="
	OpGte   Operator = ">="
)

// Condition is a single field comparison. Conditions with an empty field or
// an unknown operator are skipped during evaluation (treated as always
// true); this permissive default is intentional, not a validation point.
type Condition struct {
	Field    string
	Operator Operator
	Value    any
}

// Domain is a conjunctive filter: a record matches when every condition
// holds. An empty or nil domain matches everything.
type Domain []Condition

// Record is anything the query evaluator can filter.
type Record interface {
	RecordID() int
	Fields() map[string]any
}

// Matches evaluates the domain against a record's field map.
func (d Domain) Matches(fields map[string]any) bool {
	for _, cond := range d {
		if cond.Field == "" {
			continue
		}
		value, ok := fields[cond.Field]
		if !ok {
			value = nil
		}
		switch cond.Operator {
		case OpEq:
			if !equalValues(value, cond.Value) {
				return false
			}
		case OpNeq:
			if equalValues(value, cond.Value) {
				return false
			}
		case OpIn:
			if !containsValue(cond.Value, value) {
				return false
			}
		case OpNotIn:
			if containsValue(cond.Value, value) {
				return false
			}
		case OpLt, OpGt, OpLte, OpGte:
			cmp, ok := compareValues(value, cond.Value)
			if !ok {
				return false
			}
			switch cond.Operator {
			case OpLt:
				if cmp >= 0 {
					return false
				}
			case OpGt:
				if cmp <= 0 {
					return false
				}
			case OpLte:
				if cmp > 0 {
					return false
				}
			case OpGte:
				if cmp < 0 {
					return false
				}
			}
		default:
			// Unknown operator: skip the condition.
		}
	}
	return true
}

// equalValues compares two scalars after normalization. Typed strings
// (RequestState, RequestType) compare equal to their underlying string and
// to each other; numeric kinds compare by value.
func equalValues(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if at, aok := a.(time.Time); aok {
		bt, bok := b.(time.Time)
		return bok && at.Equal(bt)
	}
	if af, aok := asFloat(a); aok {
		bf, bok := asFloat(b)
		return bok && af == bf
	}
	if as, aok := asString(a); aok {
		bs, bok := asString(b)
		return bok && as == bs
	}
	if ab, aok := a.(bool); aok {
		bb, bok := b.(bool)
		return bok && ab == bb
	}
	return reflect.DeepEqual(a, b)
}

// compareValues orders two scalars. The second return is false when the
// values are not mutually orderable (including nil on either side).
func compareValues(a, b any) (int, bool) {
	if a == nil || b == nil {
		return 0, false
	}
	if at, aok := a.(time.Time); aok {
		bt, bok := b.(time.Time)
		if !bok {
			return 0, false
		}
		switch {
		case at.Before(bt):
			return -1, true
		case at.After(bt):
			return 1, true
		default:
			return 0, true
		}
	}
	if af, aok := asFloat(a); aok {
		bf, bok := asFloat(b)
		if !bok {
			return 0, false
		}
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		default:
			return 0, true
		}
	}
	if as, aok := asString(a); aok {
		bs, bok := asString(b)
		if !bok {
			return 0, false
		}
		switch {
		case as < bs:
			return -1, true
		case as > bs:
			return 1, true
		default:
			return 0, true
		}
	}
	return 0, false
}

// containsValue reports whether the candidate appears in the condition's
// slice operand. Non-slice operands degrade to a single-element membership
// test.
func containsValue(operand, candidate any) bool {
	if operand == nil {
		return false
	}
	rv := reflect.ValueOf(operand)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return equalValues(candidate, operand)
	}
	for i := 0; i < rv.Len(); i++ {
		if equalValues(candidate, rv.Index(i).Interface()) {
			return true
		}
	}
	return false
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func asString(v any) (string, bool) {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.String {
		return rv.String(), true
	}
	return "", false
}
