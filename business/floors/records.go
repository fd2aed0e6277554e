package floors

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"smartBidFloor/domain"

	"github.com/shopspring/decimal"
)

// NormalizeFloors canonicalizes caller supplied floors. Each element may be a
// domain.FloorRecord, a map keyed by id/name/bidFloor, or a flat slice of
// alternating keys and values.
func NormalizeFloors(raw []any) ([]domain.FloorRecord, error) {
	if len(raw) == 0 {
		return nil, ErrNoCandidates
	}

	out := make([]domain.FloorRecord, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for i, item := range raw {
		rec, err := normalizeFloor(item)
		if err != nil {
			return nil, fmt.Errorf("floor %d: %w", i, err)
		}
		if _, dup := seen[rec.ID]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateFloorID, rec.ID)
		}
		seen[rec.ID] = struct{}{}
		out = append(out, rec)
	}
	return out, nil
}

func normalizeFloor(item any) (domain.FloorRecord, error) {
	switch v := item.(type) {
	case domain.FloorRecord:
		return v, nil
	case *domain.FloorRecord:
		if v == nil {
			return domain.FloorRecord{}, ErrInvalidFloor
		}
		return *v, nil
	case map[string]any:
		return floorFromMap(v)
	case map[string]string:
		m := make(map[string]any, len(v))
		for k, s := range v {
			m[k] = s
		}
		return floorFromMap(m)
	case []any:
		if len(v)%2 != 0 {
			return domain.FloorRecord{}, fmt.Errorf("%w: odd number of key/value items", ErrInvalidFloor)
		}
		m := make(map[string]any, len(v)/2)
		for i := 0; i < len(v); i += 2 {
			k, ok := v[i].(string)
			if !ok {
				return domain.FloorRecord{}, fmt.Errorf("%w: key %v is not a string", ErrInvalidFloor, v[i])
			}
			m[k] = v[i+1]
		}
		return floorFromMap(m)
	default:
		return domain.FloorRecord{}, fmt.Errorf("%w: unsupported type %T", ErrInvalidFloor, item)
	}
}

func floorFromMap(m map[string]any) (domain.FloorRecord, error) {
	id, ok := stringValue(m["id"])
	if !ok || id == "" {
		return domain.FloorRecord{}, fmt.Errorf("%w: missing id", ErrInvalidFloor)
	}
	name, _ := stringValue(m["name"])
	bid, err := bidFloorValue(m["bidFloor"])
	if err != nil {
		return domain.FloorRecord{}, fmt.Errorf("%w: id %s: %v", ErrInvalidFloor, id, err)
	}
	return domain.FloorRecord{ID: id, Name: name, BidFloor: bid}, nil
}

func stringValue(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case fmt.Stringer:
		return s.String(), true
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), true
	case int:
		return strconv.Itoa(s), true
	case int64:
		return strconv.FormatInt(s, 10), true
	default:
		return "", false
	}
}

func bidFloorValue(v any) (float64, error) {
	switch b := v.(type) {
	case float64:
		return b, nil
	case float32:
		return float64(b), nil
	case int:
		return float64(b), nil
	case int64:
		return float64(b), nil
	case decimal.Decimal:
		return b.InexactFloat64(), nil
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(b))
		if err != nil {
			return 0, fmt.Errorf("bidFloor %q: %w", b, err)
		}
		return d.InexactFloat64(), nil
	case interface{ Float64() (float64, error) }:
		return b.Float64()
	case nil:
		return 0, fmt.Errorf("missing bidFloor")
	default:
		return 0, fmt.Errorf("bidFloor has unsupported type %T", v)
	}
}

// Rank is the integer after the last underscore of name, 0 when absent or
// not numeric. Suffixes beyond the int range clamp to its bounds.
func Rank(name string) int {
	suffix := name
	if i := strings.LastIndex(name, "_"); i >= 0 {
		suffix = name[i+1:]
	}
	n, err := strconv.ParseInt(strings.TrimSpace(suffix), 10, strconv.IntSize)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0
	}
	return int(n)
}

// SortByRankDesc returns a stable rank-descending copy.
func SortByRankDesc(floors []domain.FloorRecord) []domain.FloorRecord {
	out := append([]domain.FloorRecord(nil), floors...)
	sort.SliceStable(out, func(i, j int) bool {
		return Rank(out[i].Name) > Rank(out[j].Name)
	})
	return out
}

// SplitLowest returns the always-included lowest floor and the remaining
// floors in their input order.
func SplitLowest(floors []domain.FloorRecord) (domain.FloorRecord, []domain.FloorRecord) {
	sorted := SortByRankDesc(floors)
	lowest := sorted[len(sorted)-1]

	rest := make([]domain.FloorRecord, 0, len(floors)-1)
	for _, f := range floors {
		if f.ID == lowest.ID {
			continue
		}
		rest = append(rest, f)
	}
	return lowest, rest
}
