package floors

import (
	"fmt"
	"math"
	"time"

	"smartBidFloor/domain"

	"github.com/shopspring/decimal"
)

// NotModeledScore marks estimates that were not produced by a model.
const NotModeledScore = -1.0

// Regressor is a trained model scoring feature rows in model column order.
type Regressor interface {
	Predict(rows [][]float64) ([]float64, error)
	NumFeatures() int
}

// Estimate is the score of one combination with the inputs that produced it.
type Estimate struct {
	Combination Combination
	Value       float64
	Context     map[string]any
	Transformed map[string]any
	Features    []float64
}

func (e Estimate) toDomain() domain.PredictionEstimate {
	return domain.PredictionEstimate{AdUnitIDs: e.Combination.IDs(), PredictedValue: e.Value}
}

func toDomainEstimates(es []Estimate) []domain.PredictionEstimate {
	out := make([]domain.PredictionEstimate, len(es))
	for i, e := range es {
		out[i] = e.toDomain()
	}
	return out
}

// RewardEstimator scores candidate combinations for one context.
type RewardEstimator interface {
	Score(ctx map[string]any, combos []Combination, now time.Time) ([]Estimate, error)
}

// ModelEstimator scores with a trained regressor.
type ModelEstimator struct {
	Model    Regressor
	Replacer *ValueReplacer
	Features *Features
}

func (m *ModelEstimator) Score(ctx map[string]any, combos []Combination, now time.Time) ([]Estimate, error) {
	out := make([]Estimate, len(combos))
	rows := make([][]float64, len(combos))
	for i, combo := range combos {
		derived := withDerivedContext(ctx, now, combo)
		transformed := m.Replacer.Transform(derived)
		rows[i] = m.Features.Vector(transformed)
		out[i] = Estimate{
			Combination: combo,
			Context:     derived,
			Transformed: transformed,
			Features:    rows[i],
		}
	}
	if len(rows) == 0 {
		return out, nil
	}

	preds, err := m.Model.Predict(rows)
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}
	if len(preds) != len(rows) {
		return nil, fmt.Errorf("predict: got %d scores for %d rows", len(preds), len(rows))
	}
	for i, p := range preds {
		out[i].Value = p
	}
	return out, nil
}

const (
	DefaultNearestFeatureKey        = "user.avgInterRevenueLast72Hours"
	DefaultNearestFloorMultiplier   = 1.0
	DefaultNearestFeatureMultiplier = 1500.0
)

// NearestConfig parameterizes the nearest-value heuristic: the target is
// feature*FeatureMultiplier and each floor is placed at bidFloor*FloorMultiplier.
type NearestConfig struct {
	FeatureKey        string  `json:"featureKey,omitempty"`
	FloorMultiplier   float64 `json:"floorMultiplier,omitempty"`
	FeatureMultiplier float64 `json:"featureMultiplier,omitempty"`
}

func (c NearestConfig) withDefaults() NearestConfig {
	if c.FeatureKey == "" {
		c.FeatureKey = DefaultNearestFeatureKey
	}
	if c.FloorMultiplier == 0 {
		c.FloorMultiplier = DefaultNearestFloorMultiplier
	}
	if c.FeatureMultiplier == 0 {
		c.FeatureMultiplier = DefaultNearestFeatureMultiplier
	}
	return c
}

// NearestEstimator scores single floors by minus the distance to the target.
type NearestEstimator struct {
	cfg NearestConfig
}

func NewNearestEstimator(cfg NearestConfig) *NearestEstimator {
	return &NearestEstimator{cfg: cfg.withDefaults()}
}

func (n *NearestEstimator) Config() NearestConfig { return n.cfg }

func (n *NearestEstimator) Score(ctx map[string]any, combos []Combination, now time.Time) ([]Estimate, error) {
	signal := numericValue(ctx[n.cfg.FeatureKey])
	if math.IsNaN(signal) || math.IsInf(signal, 0) {
		signal = 0
	}
	target := decimal.NewFromFloat(signal).Mul(decimal.NewFromFloat(n.cfg.FeatureMultiplier))
	floorMult := decimal.NewFromFloat(n.cfg.FloorMultiplier)

	out := make([]Estimate, len(combos))
	for i, combo := range combos {
		if len(combo) != 1 {
			return nil, fmt.Errorf("%w: nearest heuristic scores single floors, got %d", ErrUnsupportedCardinality, len(combo))
		}
		dist := decimal.NewFromFloat(combo[0].BidFloor).Mul(floorMult).Sub(target).Abs()
		out[i] = Estimate{
			Combination: combo,
			Value:       -dist.InexactFloat64(),
			Context:     withDerivedContext(ctx, now, combo),
		}
	}
	return out, nil
}
