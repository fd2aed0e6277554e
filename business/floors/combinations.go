package floors

import (
	"fmt"
	"strconv"

	"smartBidFloor/domain"
)

// Cardinality is the maximum number of floors in a response, including the
// lowest. CardinalityUnspecified behaves like 3 or more.
type Cardinality int

const CardinalityUnspecified Cardinality = 0

func (c Cardinality) validate() error {
	if c < 0 {
		return fmt.Errorf("%w: %d", ErrUnsupportedCardinality, c)
	}
	return nil
}

// subsetSize is the number of scored floors per combination.
func (c Cardinality) subsetSize() int {
	switch {
	case c == CardinalityUnspecified || c >= 3:
		return 2
	case c == 2:
		return 1
	default:
		return 0
	}
}

// Combination is one admissible action, ordered rank-descending.
type Combination []domain.FloorRecord

func (c Combination) IDs() []string {
	ids := make([]string, len(c))
	for i, f := range c {
		ids[i] = f.ID
	}
	return ids
}

func (c Combination) sameAs(o Combination) bool {
	if len(c) != len(o) {
		return false
	}
	for i := range c {
		if c[i].ID != o[i].ID {
			return false
		}
	}
	return true
}

// EnumerateCombinations lists every size-k subset of rest in input order,
// each subset sorted rank-descending. k larger than len(rest) shrinks to it.
func EnumerateCombinations(rest []domain.FloorRecord, k int) []Combination {
	if k > len(rest) {
		k = len(rest)
	}
	if k <= 0 {
		return nil
	}

	var out []Combination
	idx := make([]int, k)
	for i := range idx {
		idx[i] = i
	}
	n := len(rest)
	for {
		combo := make([]domain.FloorRecord, k)
		for i, j := range idx {
			combo[i] = rest[j]
		}
		out = append(out, Combination(SortByRankDesc(combo)))

		// next index tuple in lexicographic order
		i := k - 1
		for i >= 0 && idx[i] == i+n-k {
			i--
		}
		if i < 0 {
			return out
		}
		idx[i]++
		for j := i + 1; j < k; j++ {
			idx[j] = idx[j-1] + 1
		}
	}
}

// shuffleCombinations is a Fisher-Yates shuffle driven by the owned stream.
func shuffleCombinations(combos []Combination, s Stream) {
	for i := len(combos) - 1; i > 0; i-- {
		j := s.IntN(i + 1)
		combos[i], combos[j] = combos[j], combos[i]
	}
}

func (c Cardinality) String() string {
	if c == CardinalityUnspecified {
		return "unspecified"
	}
	return strconv.Itoa(int(c))
}
