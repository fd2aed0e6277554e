package floors

import (
	"fmt"
	"math"
	"testing"
	"time"

	"smartBidFloor/domain"
)

// scriptedStream replays fixed draws and fails the test when it runs dry.
type scriptedStream struct {
	t      *testing.T
	floats []float64
	ints   []int
}

func (s *scriptedStream) Float64() float64 {
	s.t.Helper()
	if len(s.floats) == 0 {
		s.t.Fatal("scripted stream: no float draws left")
	}
	f := s.floats[0]
	s.floats = s.floats[1:]
	return f
}

func (s *scriptedStream) IntN(n int) int {
	s.t.Helper()
	if len(s.ints) == 0 {
		s.t.Fatal("scripted stream: no int draws left")
	}
	v := s.ints[0]
	s.ints = s.ints[1:]
	if v >= n {
		s.t.Fatalf("scripted stream: draw %d out of range %d", v, n)
	}
	return v
}

func (s *scriptedStream) Uint64() uint64 { return 0 }

// identityShuffle leaves a Fisher-Yates shuffle as a no-op.
type identityShuffle struct{}

func (identityShuffle) Float64() float64 { return 0 }
func (identityShuffle) IntN(n int) int   { return n - 1 }
func (identityShuffle) Uint64() uint64   { return 0 }

type regressorFunc func(row []float64) float64

func (f regressorFunc) Predict(rows [][]float64) ([]float64, error) {
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = f(r)
	}
	return out, nil
}

func (f regressorFunc) NumFeatures() int { return 2 }

var fixedNow = time.Date(2024, 1, 1, 13, 30, 0, 0, time.UTC) // a Monday

func fixedClock() time.Time { return fixedNow }

func floor(id string, rank int, bid float64) domain.FloorRecord {
	return domain.FloorRecord{ID: id, Name: fmt.Sprintf("bidfloor_%d", rank), BidFloor: bid}
}

func fourFloors() []any {
	return []any{
		floor("4", 4, 4.0),
		floor("3", 3, 3.0),
		floor("2", 2, 2.0),
		floor("1", 1, 1.0),
	}
}

// pairSchema exposes the two derived floor values to the model.
func pairSchema() *Features {
	return NewFeatures([]Field{
		{Name: KeyMediumBidFloor, DType: DTypeFloat32},
		{Name: KeyHighestBidFloor, DType: DTypeFloat32},
	})
}

// pairModel scores pairs keyed by (highest, medium) as derived from the
// rank-descending combination.
func pairModel(scores map[[2]float64]float64) regressorFunc {
	return func(row []float64) float64 {
		return scores[[2]float64{row[0], row[1]}]
	}
}

func trainedArtifact(model Regressor, eps float64) Artifact {
	return Artifact{
		Epsilon:       &eps,
		ValueReplacer: NewValueReplacer(nil, DefaultCategory),
		Features:      pairSchema(),
		Model:         model,
	}
}

func nanOr(v float64) float64 {
	if math.IsNaN(v) {
		return -1
	}
	return v
}
