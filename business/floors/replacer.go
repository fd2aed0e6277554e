package floors

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
)

const (
	DefaultMinImpressions = 10000
	DefaultCategory       = "other"
)

// ValueReplacer caps categorical columns to values seen often enough at
// training time. Immutable after construction.
type ValueReplacer struct {
	validValues  map[string][]any
	defaultValue any
	index        map[string]map[string]struct{}
}

func NewValueReplacer(validValues map[string][]any, defaultValue any) *ValueReplacer {
	r := &ValueReplacer{
		validValues:  make(map[string][]any, len(validValues)),
		defaultValue: defaultValue,
		index:        make(map[string]map[string]struct{}, len(validValues)),
	}
	for col, vals := range validValues {
		r.validValues[col] = append([]any(nil), vals...)
		set := make(map[string]struct{}, len(vals))
		for _, v := range vals {
			set[valueKey(v)] = struct{}{}
		}
		r.index[col] = set
	}
	return r
}

func (r *ValueReplacer) ValidValues() map[string][]any {
	out := make(map[string][]any, len(r.validValues))
	for col, vals := range r.validValues {
		out[col] = append([]any(nil), vals...)
	}
	return out
}

func (r *ValueReplacer) DefaultValue() any { return r.defaultValue }

// Allowed reports whether v is kept as-is for column.
func (r *ValueReplacer) Allowed(column string, v any) bool {
	if r == nil {
		return true
	}
	set, ok := r.index[column]
	if !ok {
		return true
	}
	_, ok = set[valueKey(v)]
	return ok
}

// Transform returns a copy of record where every configured column holds an
// allowed value or the default. Unconfigured columns pass through.
func (r *ValueReplacer) Transform(record map[string]any) map[string]any {
	out := make(map[string]any, len(record)+4)
	for k, v := range record {
		out[k] = v
	}
	if r == nil {
		return out
	}
	for col := range r.validValues {
		v, ok := out[col]
		if !ok || !r.Allowed(col, v) {
			out[col] = r.defaultValue
		}
	}
	return out
}

type replacerJSON struct {
	ValidValues  map[string][]any `json:"validValues"`
	DefaultValue any              `json:"defaultValue"`
}

func (r *ValueReplacer) MarshalJSON() ([]byte, error) {
	vv := r.validValues
	if vv == nil {
		vv = map[string][]any{}
	}
	return json.Marshal(replacerJSON{ValidValues: vv, DefaultValue: r.defaultValue})
}

func (r *ValueReplacer) UnmarshalJSON(b []byte) error {
	var raw replacerJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("decode value replacer: %w", err)
	}
	*r = *NewValueReplacer(raw.ValidValues, raw.DefaultValue)
	return nil
}

// FitValueReplacer counts the values of each column (null is its own bucket)
// and keeps those seen at least minImpressions times. Columns missing from
// every row, or without a qualifying value, are left unconfigured.
func FitValueReplacer(rows []map[string]any, columns []string, minImpressions int, defaultValue any) *ValueReplacer {
	valid := make(map[string][]any)

	for _, col := range columns {
		present := false
		for _, row := range rows {
			if _, ok := row[col]; ok {
				present = true
				break
			}
		}
		if !present {
			continue
		}

		counts := make(map[string]int)
		sample := make(map[string]any)
		for _, row := range rows {
			v := row[col]
			k := valueKey(v)
			counts[k]++
			if _, ok := sample[k]; !ok {
				sample[k] = normalizeNull(v)
			}
		}

		var kept []any
		for k, n := range counts {
			if n >= minImpressions {
				kept = append(kept, sample[k])
			}
		}
		if len(kept) == 0 {
			continue
		}
		sortValues(kept)
		valid[col] = kept
	}

	return NewValueReplacer(valid, defaultValue)
}

func normalizeNull(v any) any {
	if f, ok := v.(float64); ok && math.IsNaN(f) {
		return nil
	}
	return v
}

// valueKey gives equal keys to values that compare equal after a JSON round
// trip: every number is a float64 and NaN is null.
func valueKey(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return "s:" + x
	case bool:
		return "b:" + strconv.FormatBool(x)
	case json.Number:
		if f, err := x.Float64(); err == nil {
			return numberKey(f)
		}
		return "s:" + string(x)
	}
	if f, ok := toFloat(v); ok {
		return numberKey(f)
	}
	return fmt.Sprintf("o:%v", v)
}

func numberKey(f float64) string {
	if math.IsNaN(f) {
		return "null"
	}
	return "n:" + strconv.FormatFloat(f, 'g', -1, 64)
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int8:
		return float64(x), true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint8:
		return float64(x), true
	case uint16:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	default:
		return 0, false
	}
}

// sortValues orders numbers, then strings, then booleans, null last.
func sortValues(vals []any) {
	rank := func(v any) int {
		switch v.(type) {
		case nil:
			return 3
		case string:
			return 1
		case bool:
			return 2
		default:
			return 0
		}
	}
	sort.SliceStable(vals, func(i, j int) bool {
		ri, rj := rank(vals[i]), rank(vals[j])
		if ri != rj {
			return ri < rj
		}
		switch a := vals[i].(type) {
		case string:
			return a < vals[j].(string)
		case bool:
			return !a && vals[j].(bool)
		case nil:
			return false
		default:
			fa, _ := toFloat(a)
			fb, _ := toFloat(vals[j])
			return fa < fb
		}
	})
}
