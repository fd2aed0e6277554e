package floors

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"smartBidFloor/domain"
)

// Context keys the engine derives for every scored combination.
const (
	KeyDayOfWeek       = "assignmentDayOfWeek"
	KeyHourOfDay       = "assignmentHourOfDay"
	KeyHighestBidFloor = "highestBidFloorValue"
	KeyMediumBidFloor  = "mediumBidFloorValue"
	KeyTotalAmount     = "totalAmount"
)

type DType string

const (
	DTypeCategory DType = "category"
	DTypeFloat32  DType = "float32"
	DTypeInt64    DType = "Int64"
)

type Field struct {
	Name   string `json:"name"`
	DType  DType  `json:"dtype"`
	Target bool   `json:"target,omitempty"`

	// Categories maps a categorical value to its code (its index).
	Categories []string `json:"categories,omitempty"`
}

// Features is the model input schema. Columns are ordered by name.
type Features struct {
	fields   []Field
	sorted   []Field
	catIndex []map[string]int
}

func NewFeatures(fields []Field) *Features {
	f := &Features{fields: append([]Field(nil), fields...)}
	for _, fld := range f.fields {
		if !fld.Target {
			f.sorted = append(f.sorted, fld)
		}
	}
	sort.SliceStable(f.sorted, func(i, j int) bool { return f.sorted[i].Name < f.sorted[j].Name })

	f.catIndex = make([]map[string]int, len(f.sorted))
	for i, fld := range f.sorted {
		if fld.DType != DTypeCategory {
			continue
		}
		idx := make(map[string]int, len(fld.Categories))
		for code, c := range fld.Categories {
			idx[c] = code
		}
		f.catIndex[i] = idx
	}
	return f
}

func (f *Features) Fields() []Field { return append([]Field(nil), f.fields...) }

// Names lists feature columns in model order.
func (f *Features) Names() []string {
	names := make([]string, len(f.sorted))
	for i, fld := range f.sorted {
		names[i] = fld.Name
	}
	return names
}

func (f *Features) Len() int { return len(f.sorted) }

// Vector converts a context into the model's native row. Missing or
// unparseable values become NaN.
func (f *Features) Vector(ctx map[string]any) []float64 {
	row := make([]float64, len(f.sorted))
	for i, fld := range f.sorted {
		v, ok := ctx[fld.Name]
		if !ok || v == nil {
			row[i] = math.NaN()
			continue
		}
		if fld.DType == DTypeCategory {
			row[i] = f.categoryCode(i, v)
			continue
		}
		row[i] = numericValue(v)
	}
	return row
}

func (f *Features) categoryCode(i int, v any) float64 {
	s, ok := categoryLabel(v)
	if !ok {
		return math.NaN()
	}
	code, ok := f.catIndex[i][s]
	if !ok {
		return math.NaN()
	}
	return float64(code)
}

func categoryLabel(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case bool:
		return strconv.FormatBool(x), true
	case json.Number:
		return x.String(), true
	}
	if n, ok := toFloat(v); ok {
		if math.IsNaN(n) {
			return "", false
		}
		return strconv.FormatFloat(n, 'f', -1, 64), true
	}
	return "", false
}

func numericValue(v any) float64 {
	switch x := v.(type) {
	case bool:
		if x {
			return 1
		}
		return 0
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return math.NaN()
		}
		return n
	case json.Number:
		n, err := x.Float64()
		if err != nil {
			return math.NaN()
		}
		return n
	}
	if n, ok := toFloat(v); ok {
		return n
	}
	return math.NaN()
}

func (f *Features) MarshalJSON() ([]byte, error) {
	fields := f.fields
	if fields == nil {
		fields = []Field{}
	}
	return json.Marshal(struct {
		Fields []Field `json:"fields"`
	}{fields})
}

func (f *Features) UnmarshalJSON(b []byte) error {
	var raw struct {
		Fields []Field `json:"fields"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("decode features: %w", err)
	}
	for _, fld := range raw.Fields {
		if fld.Name == "" {
			return fmt.Errorf("decode features: field without name")
		}
		switch fld.DType {
		case DTypeCategory, DTypeFloat32, DTypeInt64:
		default:
			return fmt.Errorf("decode features: field %s has unknown dtype %q", fld.Name, fld.DType)
		}
	}
	*f = *NewFeatures(raw.Fields)
	return nil
}

// FeaturesFromETLConfig builds the schema for an app: one field per
// collected context attribute plus the engine-derived ones.
func FeaturesFromETLConfig(cfg domain.ETLConfig) *Features {
	fields := make([]Field, 0, len(cfg.Context)+5)
	for _, c := range cfg.Context {
		name := c.Path
		if name == "" {
			name = c.Name
		}
		dtype := DTypeFloat32
		if strings.EqualFold(c.DataType, "string") {
			dtype = DTypeCategory
		}
		fields = append(fields, Field{Name: name, DType: dtype})
	}
	fields = append(fields,
		Field{Name: KeyDayOfWeek, DType: DTypeInt64},
		Field{Name: KeyHourOfDay, DType: DTypeInt64},
		Field{Name: KeyHighestBidFloor, DType: DTypeFloat32},
		Field{Name: KeyMediumBidFloor, DType: DTypeFloat32},
		Field{Name: KeyTotalAmount, DType: DTypeFloat32, Target: true},
	)
	return NewFeatures(fields)
}

// dayOfWeek is 0 for Monday through 6 for Sunday, in UTC.
func dayOfWeek(t time.Time) int {
	return (int(t.UTC().Weekday()) + 6) % 7
}

// withDerivedContext copies ctx and adds the time keys and the floor values
// of combo. A pair sets highest from its last element and medium from the
// one before it; a single floor sets medium only.
func withDerivedContext(ctx map[string]any, now time.Time, combo Combination) map[string]any {
	out := make(map[string]any, len(ctx)+4)
	for k, v := range ctx {
		out[k] = v
	}
	now = now.UTC()
	out[KeyDayOfWeek] = dayOfWeek(now)
	out[KeyHourOfDay] = now.Hour()

	switch n := len(combo); {
	case n >= 2:
		out[KeyHighestBidFloor] = combo[n-1].BidFloor
		out[KeyMediumBidFloor] = combo[n-2].BidFloor
	case n == 1:
		out[KeyHighestBidFloor] = nil
		out[KeyMediumBidFloor] = combo[0].BidFloor
	default:
		out[KeyHighestBidFloor] = nil
		out[KeyMediumBidFloor] = nil
	}
	return out
}
