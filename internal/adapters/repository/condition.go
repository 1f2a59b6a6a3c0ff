package repository

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Condition guards a single-item write. All conditions passed to a write
// must hold.
type Condition struct {
	exists *bool
	equals map[string]any
}

// MustExist requires the item to be present.
func MustExist() Condition {
	v := true
	return Condition{exists: &v}
}

// MustNotExist requires the key to be free.
func MustNotExist() Condition {
	v := false
	return Condition{exists: &v}
}

// AttributesEqual requires the item to be present with every listed
// attribute equal to the given value.
func AttributesEqual(attrs map[string]any) Condition {
	v := true
	return Condition{exists: &v, equals: attrs}
}

// holds evaluates the condition against the current item (nil when absent).
func (c Condition) holds(current Item) bool {
	if c.exists != nil && *c.exists != (current != nil) {
		return false
	}
	for name, want := range c.equals {
		got, ok := current[name]
		if !ok || !valuesEqual(got, want) {
			return false
		}
	}
	return true
}

func allHold(conds []Condition, current Item) bool {
	for _, c := range conds {
		if !c.holds(current) {
			return false
		}
	}
	return true
}

// sortedEquals lists equality attributes in a stable order.
func (c Condition) sortedEquals() []string {
	names := make([]string, 0, len(c.equals))
	for n := range c.equals {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// valuesEqual compares stored values, treating every numeric representation
// of the same number as equal.
func valuesEqual(a, b any) bool {
	if fa, ok := asFloat(a); ok {
		fb, ok := asFloat(b)
		return ok && fa == fb
	}
	return fmt.Sprint(a) == fmt.Sprint(b) && sameKind(a, b)
}

func sameKind(a, b any) bool {
	switch a.(type) {
	case string:
		_, ok := b.(string)
		return ok
	case bool:
		_, ok := b.(bool)
		return ok
	case nil:
		return b == nil
	default:
		return true
	}
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
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// Value readers used by the codecs. Each tolerates the representations the
// backends return (JSON numbers, float64, int).

func stringValue(it Item, name string) string {
	switch v := it[name].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func intValue(it Item, name string) (int, bool) {
	switch v := it[name].(type) {
	case string:
		n, err := strconv.Atoi(v)
		return n, err == nil
	default:
		f, ok := asFloat(v)
		return int(f), ok
	}
}

func boolValue(it Item, name string) bool {
	switch v := it[name].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	default:
		return false
	}
}

func sortedFieldNames(fields map[string]any) []string {
	names := make([]string, 0, len(fields))
	for n := range fields {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
