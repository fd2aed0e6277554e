package model

import (
	"fmt"
	"math"
)

const (
	splitNumerical   = 0
	splitCategorical = 1
)

// tree is one regression tree in flat array form. Leaves have left == -1 and
// carry their value in cond.
type tree struct {
	left        []int32
	right       []int32
	feature     []int32
	cond        []float32
	defaultLeft []bool
	splitType   []uint8
	// categories going right, per categorical node
	categories map[int32]map[int32]struct{}
}

func (t *tree) validate(numFeature int) error {
	n := len(t.left)
	if n == 0 {
		return fmt.Errorf("empty tree")
	}
	if len(t.right) != n || len(t.feature) != n || len(t.cond) != n || len(t.defaultLeft) != n {
		return fmt.Errorf("node arrays differ in length")
	}
	if t.splitType != nil && len(t.splitType) != n {
		return fmt.Errorf("split_type length %d, want %d", len(t.splitType), n)
	}
	for i := 0; i < n; i++ {
		if t.left[i] == -1 {
			continue
		}
		if t.left[i] <= int32(i) || int(t.left[i]) >= n || t.right[i] <= int32(i) || int(t.right[i]) >= n {
			return fmt.Errorf("node %d has invalid children", i)
		}
		if t.feature[i] < 0 || (numFeature > 0 && int(t.feature[i]) >= numFeature) {
			return fmt.Errorf("node %d splits on feature %d out of range", i, t.feature[i])
		}
	}
	return nil
}

// leaf walks the tree for one row and returns the leaf value.
func (t *tree) leaf(row []float64) float32 {
	var node int32
	for t.left[node] != -1 {
		x := row[t.feature[node]]
		switch {
		case math.IsNaN(x):
			if t.defaultLeft[node] {
				node = t.left[node]
			} else {
				node = t.right[node]
			}
		case t.splitType != nil && t.splitType[node] == splitCategorical:
			if t.goesRight(node, x) {
				node = t.right[node]
			} else {
				node = t.left[node]
			}
		default:
			if float32(x) < t.cond[node] {
				node = t.left[node]
			} else {
				node = t.right[node]
			}
		}
	}
	return t.cond[node]
}

func (t *tree) goesRight(node int32, x float64) bool {
	if x < 0 || x != math.Trunc(x) {
		return false
	}
	set := t.categories[node]
	_, ok := set[int32(x)]
	return ok
}
