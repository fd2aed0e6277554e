package floors

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rowsOf(col string, counts map[any]int) []map[string]any {
	var rows []map[string]any
	for v, n := range counts {
		for i := 0; i < n; i++ {
			rows = append(rows, map[string]any{col: v})
		}
	}
	return rows
}

func TestFitValueReplacer(t *testing.T) {
	rows := rowsOf("country", map[any]int{"US": 5, "DE": 3, "FR": 1, nil: 4})
	rows = append(rows, rowsOf("platform", map[any]int{"ios": 1})...)

	r := FitValueReplacer(rows, []string{"country", "platform", "missing"}, 3, "other")

	valid := r.ValidValues()
	assert.Equal(t, []any{"DE", "US", nil}, valid["country"], "sorted with null last")
	// platform is absent from most rows, so its null bucket qualifies
	assert.Equal(t, []any{nil}, valid["platform"])
	assert.NotContains(t, valid, "missing")
	assert.Equal(t, "other", r.DefaultValue())
}

func TestFitValueReplacer_DropsColumnsWithoutQualifyingValues(t *testing.T) {
	rows := rowsOf("city", map[any]int{"a": 1, "b": 1})
	r := FitValueReplacer(rows, []string{"city"}, 2, "other")
	assert.Empty(t, r.ValidValues())
}

func TestFitValueReplacer_NumbersCompareAfterJSON(t *testing.T) {
	rows := rowsOf("level", map[any]int{3: 2, 7: 1})
	r := FitValueReplacer(rows, []string{"level"}, 2, -1)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(`{"level": 3}`), &decoded))
	assert.Equal(t, 3.0, r.Transform(decoded)["level"])
	assert.Equal(t, -1, r.Transform(map[string]any{"level": 7})["level"])
}

func TestValueReplacerTransform(t *testing.T) {
	r := NewValueReplacer(map[string][]any{
		"country":  {"US", "DE"},
		"platform": {"ios", nil},
	}, "other")

	in := map[string]any{"country": "FR", "platform": nil, "score": 0.7}
	out := r.Transform(in)

	assert.Equal(t, map[string]any{"country": "other", "platform": nil, "score": 0.7}, out)
	assert.Equal(t, "FR", in["country"], "input must not change")

	out = r.Transform(map[string]any{"country": nil})
	assert.Equal(t, "other", out["country"], "null is replaced unless allowed")
	assert.Equal(t, "other", out["platform"], "missing configured columns get the default")
}

func TestValueReplacerTransform_Idempotent(t *testing.T) {
	r := NewValueReplacer(map[string][]any{
		"country": {"US"},
		"os":      {nil},
		"level":   {1.0, 2.0},
	}, "other")

	inputs := []map[string]any{
		{},
		{"country": "US", "os": "android", "level": 2},
		{"country": nil, "level": "2", "extra": true},
		{"country": "other", "os": nil},
	}
	for _, in := range inputs {
		once := r.Transform(in)
		twice := r.Transform(once)
		assert.Equal(t, once, twice)

		for col := range r.ValidValues() {
			v, ok := once[col]
			require.True(t, ok, "configured column %s must be set", col)
			if v == "other" {
				continue
			}
			assert.True(t, r.Allowed(col, v), "column %s value %v", col, v)
		}
	}
}

func TestValueReplacer_NilPassesThrough(t *testing.T) {
	var r *ValueReplacer
	in := map[string]any{"a": 1}
	assert.Equal(t, in, r.Transform(in))
}

func TestValueReplacer_JSONPersistence(t *testing.T) {
	r := NewValueReplacer(map[string][]any{"country": {"US", nil}, "level": {1, 2}}, "other")

	b, err := json.Marshal(r)
	require.NoError(t, err)

	var back ValueReplacer
	require.NoError(t, json.Unmarshal(b, &back))

	for _, in := range []map[string]any{
		{"country": "US", "level": 2},
		{"country": nil, "level": 3},
		{"country": "BR"},
	} {
		assert.Equal(t, r.Transform(in), back.Transform(in))
	}
}
