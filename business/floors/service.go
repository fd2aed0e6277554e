package floors

import (
	"context"
	"fmt"

	"smartBidFloor/domain"
	"smartBidFloor/pkg/logger"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type FloorService struct {
	registry     *Registry
	cfgSource    ConfigSource
	decisionRepo DecisionRepository
	defaultCfg   Config
}

func NewFloorService(
	registry *Registry,
	cfgSource ConfigSource,
	decisionRepo DecisionRepository,
	defaultCfg Config,
) *FloorService {
	return &FloorService{
		registry:     registry,
		cfgSource:    cfgSource,
		decisionRepo: decisionRepo,
		defaultCfg:   defaultCfg,
	}
}

func (s *FloorService) modelKey(req domain.AllocationRequest) ModelKey {
	return ModelKey{
		CustomerID: s.defaultCfg.CustomerID,
		AppID:      req.Reference,
		ModelID:    req.ModelID,
	}
}

// Allocate serves one user.
func (s *FloorService) Allocate(ctx context.Context, req domain.AllocationRequest) (domain.Allocation, error) {
	if err := ctx.Err(); err != nil {
		return domain.Allocation{}, fmt.Errorf("context error: %w", err)
	}

	key := s.modelKey(req)
	pool, err := s.registry.Pool(ctx, key)
	if err != nil {
		return domain.Allocation{}, err
	}
	card := s.resolveCardinality(ctx, key, req.MaxAdUnits)

	pr, err := pool.Acquire(ctx)
	if err != nil {
		return domain.Allocation{}, err
	}
	d, err := pr.Decide(req.Context, req.AdUnits, card)
	pool.Release(pr)
	if err != nil {
		return domain.Allocation{}, fmt.Errorf("user %s: %w", req.UserID, err)
	}

	s.record(ctx, key, req, d)
	return toAllocation(req, d), nil
}

type batchGroup struct {
	key     ModelKey
	indices []int
}

// AllocateBatch serves many users in one call. Requests for the same model
// share one predictor instance and draw from it in request order; any
// failure fails the whole batch.
func (s *FloorService) AllocateBatch(ctx context.Context, reqs []domain.AllocationRequest) ([]domain.Allocation, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var groups []*batchGroup
	byKey := make(map[ModelKey]*batchGroup)
	for i, req := range reqs {
		key := s.modelKey(req)
		g, ok := byKey[key]
		if !ok {
			g = &batchGroup{key: key}
			byKey[key] = g
			groups = append(groups, g)
		}
		g.indices = append(g.indices, i)
	}

	out := make([]domain.Allocation, len(reqs))
	decisions := make([]Decision, len(reqs))
	for _, g := range groups {
		pool, err := s.registry.Pool(ctx, g.key)
		if err != nil {
			return nil, err
		}

		items := make([]BatchItem, len(g.indices))
		for j, i := range g.indices {
			items[j] = BatchItem{
				Context:     reqs[i].Context,
				Floors:      reqs[i].AdUnits,
				Cardinality: s.resolveCardinality(ctx, g.key, reqs[i].MaxAdUnits),
			}
		}

		pr, err := pool.Acquire(ctx)
		if err != nil {
			return nil, err
		}
		ds, err := pr.DecideBatch(ctx, items, s.defaultCfg.BatchParallelism)
		pool.Release(pr)
		if err != nil {
			return nil, fmt.Errorf("model %s: %w", g.key, err)
		}
		for j, i := range g.indices {
			decisions[i] = ds[j]
		}
	}

	for i, req := range reqs {
		s.record(ctx, s.modelKey(req), req, decisions[i])
		out[i] = toAllocation(req, decisions[i])
	}
	return out, nil
}

// DebugAllocate scores every combination for one request without serving
// or recording a decision.
func (s *FloorService) DebugAllocate(ctx context.Context, req domain.AllocationRequest) ([]domain.AllocationDebug, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	key := s.modelKey(req)
	pool, err := s.registry.Pool(ctx, key)
	if err != nil {
		return nil, err
	}
	card := s.resolveCardinality(ctx, key, req.MaxAdUnits)

	pr, err := pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	estimates, best, err := pr.Explain(req.Context, req.AdUnits, card)
	pool.Release(pr)
	if err != nil {
		return nil, err
	}

	logger.Debug("floor_debug_allocate",
		"trace_id", TraceIDFromContext(ctx),
		"model_key", key.String(),
		"variant", pool.Variant(),
		"combinations", len(estimates),
	)

	out := make([]domain.AllocationDebug, len(estimates))
	for i, e := range estimates {
		out[i] = domain.AllocationDebug{
			AdUnitIDs:          e.Combination.IDs(),
			PredictedValue:     e.Value,
			Context:            e.Context,
			TransformedContext: e.Transformed,
			Features:           e.Features,
			Best:               i == best,
		}
	}
	return out, nil
}

func (s *FloorService) record(ctx context.Context, key ModelKey, req domain.AllocationRequest, d Decision) {
	observeDecision(d)

	tid := TraceIDFromContext(ctx)
	logger.Debug("floor_allocate",
		"trace_id", tid,
		"model_key", key.String(),
		"user_id", req.UserID,
		"variant", d.Variant,
		"branch", d.Branch,
		"ad_unit_ids", d.Response.SelectedAdUnitIDs,
		"propensity", d.Response.Propensity,
	)

	if s.decisionRepo == nil {
		return
	}
	row := domain.FloorDecision{
		ID:                uuid.NewString(),
		TraceID:           tid,
		CustomerID:        key.CustomerID,
		AppID:             key.AppID,
		ModelID:           key.ModelID,
		UserID:            req.UserID,
		Variant:           string(d.Variant),
		Branch:            string(d.Branch),
		Propensity:        d.Response.Propensity,
		AdUnitIDs:         d.Response.SelectedAdUnitIDs,
		BidFloorValues:    d.Response.SelectedBidFloorValues,
		Estimates:         d.Response.Estimates,
		Context:           datatypes.JSONMap(d.Context),
		StickinessSeconds: req.AssignmentStickinessInSeconds,
	}
	if err := s.decisionRepo.SaveDecision(ctx, row); err != nil {
		logger.Warn("floor_decision_save_failed",
			"trace_id", tid,
			"model_key", key.String(),
			"error", err,
		)
	}
}

func toAllocation(req domain.AllocationRequest, d Decision) domain.Allocation {
	return domain.Allocation{
		FloorResponse: d.Response,
		UserID:        req.UserID,
		ModelID:       req.ModelID,
		Reference:     req.Reference,
	}
}
