// internal/dispatch/conditions.go
package dispatch

import (
	"bytes"
	"encoding/json"

	"merchant-triggers/internal/actions"
)

// ConditionsMatch evaluates a binding's conditions against the firing context.
// Conditions are a flat JSON object; each key must match (implicit AND). A
// literal value requires equality, a list requires membership. Empty, invalid
// or non-object conditions match everything, as does an object followed by
// trailing data.
func ConditionsMatch(raw json.RawMessage, data map[string]interface{}) bool {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || !json.Valid(trimmed) {
		return true
	}

	var conds map[string]interface{}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	if err := dec.Decode(&conds); err != nil {
		return true
	}

	for key, want := range conds {
		got, ok := actions.Lookup(data, key)
		if !ok {
			return false
		}
		if list, isList := want.([]interface{}); isList {
			if !containsValue(list, got) {
				return false
			}
			continue
		}
		if !valuesEqual(want, got) {
			return false
		}
	}
	return true
}

func containsValue(list []interface{}, got interface{}) bool {
	for _, want := range list {
		if valuesEqual(want, got) {
			return true
		}
	}
	return false
}

// valuesEqual compares a condition literal with a context value. Numbers
// compare by value whatever their Go type; a number never equals a string.
func valuesEqual(want, got interface{}) bool {
	if want == nil || got == nil {
		return want == nil && got == nil
	}

	wn, wantIsNum := toNumber(want)
	gn, gotIsNum := toNumber(got)
	if wantIsNum || gotIsNum {
		return wantIsNum && gotIsNum && wn == gn
	}

	wb, wantIsBool := want.(bool)
	gb, gotIsBool := got.(bool)
	if wantIsBool || gotIsBool {
		return wantIsBool && gotIsBool && wb == gb
	}

	return actions.Stringify(want) == actions.Stringify(got)
}

func toNumber(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}
