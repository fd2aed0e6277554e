package floors

import (
	"context"
	"fmt"
	"time"

	"smartBidFloor/domain"

	"golang.org/x/sync/errgroup"
)

// Decision is the outcome of one Decide call.
type Decision struct {
	Response domain.FloorResponse
	// Context is the caller context plus the keys derived for the chosen
	// combination.
	Context   map[string]any
	Variant   Variant
	Branch    Branch
	Estimates []Estimate
}

// Predictor decides which floors to serve. It owns its random streams and
// is not safe for concurrent use; Clone gives another worker its own copy.
type Predictor struct {
	variant   Variant
	epsilon   float64
	estimator RewardEstimator
	streams   Streams
	now       func() time.Time
}

type Option func(*Predictor)

// WithClock replaces time.Now for derived time features.
func WithClock(now func() time.Time) Option {
	return func(p *Predictor) { p.now = now }
}

// NewPredictor builds the predictor variant described by a.
func NewPredictor(a Artifact, defaultEpsilon float64, streams Streams, opts ...Option) (*Predictor, error) {
	v, err := a.Variant()
	if err != nil {
		return nil, err
	}

	eps := defaultEpsilon
	if a.Epsilon != nil {
		eps = *a.Epsilon
	}
	if eps < 0 || eps > 1 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEpsilon, eps)
	}

	p := &Predictor{variant: v, epsilon: eps, streams: streams, now: time.Now}
	switch v {
	case VariantTrainedModel:
		p.estimator = &ModelEstimator{Model: a.Model, Replacer: a.ValueReplacer, Features: a.Features}
	case VariantNearestHeuristic:
		p.estimator = NewNearestEstimator(*a.Nearest)
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *Predictor) Variant() Variant { return p.variant }
func (p *Predictor) Epsilon() float64 { return p.epsilon }

// Clone shares the read-only model with a new stream pair.
func (p *Predictor) Clone(streams Streams) *Predictor {
	c := *p
	c.streams = streams
	return &c
}

// Decide chooses the floors to serve for ctx. floors accepts the inputs
// NormalizeFloors does; ctx is not modified.
func (p *Predictor) Decide(ctx map[string]any, floors []any, card Cardinality) (Decision, error) {
	if err := card.validate(); err != nil {
		return Decision{}, err
	}
	records, err := NormalizeFloors(floors)
	if err != nil {
		return Decision{}, err
	}
	return p.decideRecords(ctx, records, card)
}

func (p *Predictor) decideRecords(ctx map[string]any, records []domain.FloorRecord, card Cardinality) (Decision, error) {
	now := p.now()
	lowest, rest := SplitLowest(records)

	if p.variant == VariantNearestHeuristic {
		return p.decideNearest(ctx, lowest, rest, card, now)
	}

	combos := EnumerateCombinations(rest, card.subsetSize())
	if len(combos) == 0 {
		return p.lowestOnly(ctx, lowest, now), nil
	}

	shuffleCombinations(combos, p.streams.Shuffle)

	if p.variant == VariantColdStart {
		ch := chooseUniform(len(combos), p.streams.Exploration)
		chosen := combos[ch.index]
		return Decision{
			Response: assembleResponse(chosen, lowest, ch.propensity, notModeled(chosen.IDs())),
			Context:  withDerivedContext(ctx, now, chosen),
			Variant:  p.variant,
			Branch:   ch.branch,
		}, nil
	}

	estimates, err := p.estimator.Score(ctx, combos, now)
	if err != nil {
		return Decision{}, fmt.Errorf("score combinations: %w", err)
	}
	ch := chooseEpsilonGreedy(estimates, p.epsilon, p.streams.Exploration)
	chosen := estimates[ch.index]
	return Decision{
		Response:  assembleResponse(chosen.Combination, lowest, ch.propensity, toDomainEstimates(estimates)),
		Context:   chosen.Context,
		Variant:   p.variant,
		Branch:    ch.branch,
		Estimates: estimates,
	}, nil
}

func (p *Predictor) decideNearest(ctx map[string]any, lowest domain.FloorRecord, rest []domain.FloorRecord, card Cardinality, now time.Time) (Decision, error) {
	switch {
	case card == 1:
		return p.lowestOnly(ctx, lowest, now), nil
	case card != 2:
		return Decision{}, fmt.Errorf("%w: nearest heuristic serves 1 or 2 floors, got %s", ErrUnsupportedCardinality, card)
	}

	combos := EnumerateCombinations(rest, 1)
	if len(combos) == 0 {
		return p.lowestOnly(ctx, lowest, now), nil
	}
	estimates, err := p.estimator.Score(ctx, combos, now)
	if err != nil {
		return Decision{}, fmt.Errorf("score combinations: %w", err)
	}
	best := estimates[bestIndex(estimates)]
	return Decision{
		Response:  assembleResponse(best.Combination, lowest, 1.0, toDomainEstimates(estimates)),
		Context:   best.Context,
		Variant:   p.variant,
		Branch:    BranchNearest,
		Estimates: estimates,
	}, nil
}

func (p *Predictor) lowestOnly(ctx map[string]any, lowest domain.FloorRecord, now time.Time) Decision {
	return Decision{
		Response: assembleResponse(nil, lowest, 1.0, notModeled([]string{lowest.ID})),
		Context:  withDerivedContext(ctx, now, nil),
		Variant:  p.variant,
		Branch:   BranchLowestOnly,
	}
}

// Explain scores every combination in enumeration order without drawing
// from the streams. Cold-start predictors return no estimates.
func (p *Predictor) Explain(ctx map[string]any, floors []any, card Cardinality) ([]Estimate, int, error) {
	if err := card.validate(); err != nil {
		return nil, -1, err
	}
	records, err := NormalizeFloors(floors)
	if err != nil {
		return nil, -1, err
	}
	_, rest := SplitLowest(records)

	k := card.subsetSize()
	if p.variant == VariantNearestHeuristic {
		if card != 1 && card != 2 {
			return nil, -1, fmt.Errorf("%w: nearest heuristic serves 1 or 2 floors, got %s", ErrUnsupportedCardinality, card)
		}
		k = int(card) - 1
	}
	combos := EnumerateCombinations(rest, k)
	if len(combos) == 0 || p.estimator == nil {
		return nil, -1, nil
	}
	estimates, err := p.estimator.Score(ctx, combos, p.now())
	if err != nil {
		return nil, -1, fmt.Errorf("score combinations: %w", err)
	}
	return estimates, bestIndex(estimates), nil
}

// BatchItem is one context of a batched call.
type BatchItem struct {
	Context     map[string]any
	Floors      []any
	Cardinality Cardinality
}

// DecideBatch decides every item. Child streams are split off in item order
// before the work fans out, so results do not depend on scheduling.
func (p *Predictor) DecideBatch(ctx context.Context, items []BatchItem, parallelism int) ([]Decision, error) {
	workers := make([]*Predictor, len(items))
	for i := range items {
		workers[i] = p.Clone(p.streams.Split())
	}

	out := make([]Decision, len(items))
	g, gctx := errgroup.WithContext(ctx)
	if parallelism > 0 {
		g.SetLimit(parallelism)
	}
	for i := range items {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			d, err := workers[i].Decide(items[i].Context, items[i].Floors, items[i].Cardinality)
			if err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}
			out[i] = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
