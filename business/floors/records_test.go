package floors

import (
	"encoding/json"
	"math"
	"testing"

	"smartBidFloor/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRank(t *testing.T) {
	tests := []struct {
		name string
		want int
	}{
		{"bidfloor_12", 12},
		{"a_b_3", 3},
		{"7", 7},
		{"no_suffix_x", 0},
		{"trailing_", 0},
		{"", 0},
		{"neg_-2", -2},
		{"padded_007", 7},
		{"huge_99999999999999999999999", math.MaxInt},
		{"tiny_-99999999999999999999999", math.MinInt},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Rank(tt.name))
		})
	}
}

func TestNormalizeFloors_Shapes(t *testing.T) {
	var fromJSON []any
	require.NoError(t, json.Unmarshal([]byte(`[{"id":"j","name":"x_3","bidFloor":1.25}]`), &fromJSON))

	raw := []any{
		domain.FloorRecord{ID: "a", Name: "x_1", BidFloor: 0.5},
		&domain.FloorRecord{ID: "b", Name: "x_2", BidFloor: 0.75},
		map[string]string{"id": "c", "name": "x_4", "bidFloor": "2.10"},
		[]any{"id", "d", "name", "x_5", "bidFloor", 3},
		fromJSON[0],
	}
	got, err := NormalizeFloors(raw)
	require.NoError(t, err)

	assert.Equal(t, []domain.FloorRecord{
		{ID: "a", Name: "x_1", BidFloor: 0.5},
		{ID: "b", Name: "x_2", BidFloor: 0.75},
		{ID: "c", Name: "x_4", BidFloor: 2.1},
		{ID: "d", Name: "x_5", BidFloor: 3},
		{ID: "j", Name: "x_3", BidFloor: 1.25},
	}, got)
}

func TestNormalizeFloors_Errors(t *testing.T) {
	_, err := NormalizeFloors(nil)
	assert.ErrorIs(t, err, ErrNoCandidates)

	_, err = NormalizeFloors([]any{map[string]any{"name": "x_1", "bidFloor": 1.0}})
	assert.ErrorIs(t, err, ErrInvalidFloor)

	_, err = NormalizeFloors([]any{map[string]any{"id": "a", "bidFloor": "cheap"}})
	assert.ErrorIs(t, err, ErrInvalidFloor)

	_, err = NormalizeFloors([]any{[]any{"id", "a", "name"}})
	assert.ErrorIs(t, err, ErrInvalidFloor)
}

func TestSplitLowest_KeepsInputOrder(t *testing.T) {
	in := []domain.FloorRecord{floor("3", 3, 3), floor("1", 1, 1), floor("4", 4, 4), floor("2", 2, 2)}

	lowest, rest := SplitLowest(in)
	assert.Equal(t, "1", lowest.ID)
	assert.Equal(t, []string{"3", "4", "2"}, Combination(rest).IDs())
}

func TestSortByRankDesc_StableOnTies(t *testing.T) {
	in := []domain.FloorRecord{
		{ID: "a", Name: "plain"},
		{ID: "b", Name: "x_2"},
		{ID: "c", Name: "other"},
	}
	got := SortByRankDesc(in)
	assert.Equal(t, []string{"b", "a", "c"}, Combination(got).IDs())
	assert.Equal(t, "a", in[0].ID, "input must not be reordered")
}

func TestSortByRankDesc_OverflowRanksHighest(t *testing.T) {
	in := []domain.FloorRecord{
		{ID: "a", Name: "floor_12"},
		{ID: "b", Name: "floor_99999999999999999999999"},
		{ID: "c", Name: "floor_1"},
	}
	got := SortByRankDesc(in)
	assert.Equal(t, []string{"b", "a", "c"}, Combination(got).IDs())
}

func TestEnumerateCombinations(t *testing.T) {
	rest := []domain.FloorRecord{floor("2", 2, 2), floor("4", 4, 4), floor("3", 3, 3)}

	pairs := EnumerateCombinations(rest, 2)
	var got [][]string
	for _, c := range pairs {
		got = append(got, c.IDs())
	}
	assert.Equal(t, [][]string{{"4", "2"}, {"3", "2"}, {"4", "3"}}, got)

	singles := EnumerateCombinations(rest, 1)
	require.Len(t, singles, 3)
	assert.Equal(t, []string{"2"}, singles[0].IDs())

	assert.Len(t, EnumerateCombinations(rest, 5), 1, "k shrinks to the available floors")
	assert.Empty(t, EnumerateCombinations(nil, 2))
	assert.Empty(t, EnumerateCombinations(rest, 0))
}

func TestCardinalitySubsetSize(t *testing.T) {
	assert.Equal(t, 2, CardinalityUnspecified.subsetSize())
	assert.Equal(t, 2, Cardinality(3).subsetSize())
	assert.Equal(t, 2, Cardinality(10).subsetSize())
	assert.Equal(t, 1, Cardinality(2).subsetSize())
	assert.Equal(t, 0, Cardinality(1).subsetSize())
	assert.Equal(t, "unspecified", CardinalityUnspecified.String())
}
