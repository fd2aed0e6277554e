package floors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"smartBidFloor/pkg/logger"

	"golang.org/x/sync/singleflight"
)

// ModelKey identifies one artifact.
type ModelKey struct {
	CustomerID string
	AppID      string
	ModelID    string
}

func (k ModelKey) String() string {
	return k.CustomerID + "/" + k.AppID + "/" + k.ModelID
}

// ParseModelKey reads "app/model" or "customer/app/model"; a two-part key
// takes customerID.
func ParseModelKey(s, customerID string) (ModelKey, error) {
	parts := strings.Split(s, "/")
	switch len(parts) {
	case 2:
		if parts[0] != "" && parts[1] != "" {
			return ModelKey{CustomerID: customerID, AppID: parts[0], ModelID: parts[1]}, nil
		}
	case 3:
		if parts[0] != "" && parts[1] != "" && parts[2] != "" {
			return ModelKey{CustomerID: parts[0], AppID: parts[1], ModelID: parts[2]}, nil
		}
	}
	return ModelKey{}, fmt.Errorf("invalid model key %q", s)
}

// PredictorPool hands out predictor instances, one per concurrent caller.
type PredictorPool struct {
	key       ModelKey
	variant   Variant
	instances chan *Predictor
	size      int
	lastUsed  atomic.Int64
}

func newPredictorPool(key ModelKey, proto *Predictor, streams []Streams) *PredictorPool {
	p := &PredictorPool{
		key:       key,
		variant:   proto.Variant(),
		instances: make(chan *Predictor, len(streams)),
		size:      len(streams),
	}
	for _, s := range streams {
		p.instances <- proto.Clone(s)
	}
	p.touch()
	return p
}

func (p *PredictorPool) touch() { p.lastUsed.Store(time.Now().UnixNano()) }

func (p *PredictorPool) Key() ModelKey    { return p.key }
func (p *PredictorPool) Variant() Variant { return p.variant }
func (p *PredictorPool) Size() int        { return p.size }

// Acquire blocks until an instance is free or ctx is done.
func (p *PredictorPool) Acquire(ctx context.Context) (*Predictor, error) {
	select {
	case pr := <-p.instances:
		p.touch()
		return pr, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("context error: %w", ctx.Err())
	}
}

func (p *PredictorPool) Release(pr *Predictor) {
	p.instances <- pr
}

// Registry loads each artifact once and keeps a predictor pool per key.
type Registry struct {
	repo    ArtifactRepository
	seeds   *SeedSequence
	cfg     Config
	options []Option

	mu    sync.RWMutex
	pools map[ModelKey]*PredictorPool
	// bumped on Invalidate so a reload never replays earlier seeds
	generations map[ModelKey]int
	group       singleflight.Group
}

func NewRegistry(repo ArtifactRepository, baseSeed uint64, cfg Config, opts ...Option) *Registry {
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	return &Registry{
		repo:    repo,
		seeds:   NewSeedSequence(baseSeed),
		cfg:     cfg,
		options: opts,
		pools:   make(map[ModelKey]*PredictorPool),

		generations: make(map[ModelKey]int),
	}
}

// Pool returns the pool for key, loading the artifact on first use. Load
// failures are returned every time and never replaced by a cold start.
func (r *Registry) Pool(ctx context.Context, key ModelKey) (*PredictorPool, error) {
	r.mu.RLock()
	pool, ok := r.pools[key]
	r.mu.RUnlock()
	if ok {
		return pool, nil
	}

	v, err, _ := r.group.Do(key.String(), func() (any, error) {
		for {
			r.mu.RLock()
			pool, ok := r.pools[key]
			gen := r.generations[key]
			r.mu.RUnlock()
			if ok {
				return pool, nil
			}

			pool, err := r.load(ctx, key, gen)
			if err != nil {
				return nil, err
			}

			r.mu.Lock()
			if r.generations[key] == gen {
				r.pools[key] = pool
				r.capPools(key)
				r.mu.Unlock()
				return pool, nil
			}
			r.mu.Unlock()

			// Invalidated while loading; the artifact read may be stale.
			logger.Info("floor_model_load_superseded", "model_key", key.String(), "generation", gen)
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("context error: %w", err)
			}
		}
	})
	if err != nil {
		return nil, err
	}
	return v.(*PredictorPool), nil
}

func (r *Registry) load(ctx context.Context, key ModelKey, gen int) (*PredictorPool, error) {
	start := time.Now()
	a, err := r.repo.LoadArtifact(ctx, key)
	if err != nil {
		ModelLoadsTotal.WithLabelValues("unknown", loadResult(err)).Inc()
		return nil, fmt.Errorf("load artifact %s: %w", key, err)
	}

	proto, err := NewPredictor(a, r.cfg.Epsilon, Streams{}, r.options...)
	if err != nil {
		ModelLoadsTotal.WithLabelValues(string(a.Kind), "invalid").Inc()
		return nil, fmt.Errorf("build predictor %s: %w", key, err)
	}

	streams := r.seeds.ForKey(fmt.Sprintf("%s#%d", key, gen)).Spawn(r.cfg.Workers)
	pool := newPredictorPool(key, proto, streams)

	ModelLoadsTotal.WithLabelValues(string(proto.Variant()), "ok").Inc()
	logger.Info("floor_model_loaded",
		"model_key", key.String(),
		"variant", proto.Variant(),
		"epsilon", proto.Epsilon(),
		"workers", pool.Size(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return pool, nil
}

func loadResult(err error) string {
	if errors.Is(err, ErrModelNotFound) {
		return "not_found"
	}
	return "error"
}

// Invalidate drops key so the next call reloads it. A load already in
// flight for key is discarded rather than stored.
func (r *Registry) Invalidate(key ModelKey) {
	r.mu.Lock()
	delete(r.pools, key)
	r.generations[key]++
	r.mu.Unlock()
	r.group.Forget(key.String())
}

// Preload loads every key, stopping at the first failure.
func (r *Registry) Preload(ctx context.Context, keys []ModelKey) error {
	for _, k := range keys {
		if _, err := r.Pool(ctx, k); err != nil {
			return err
		}
	}
	return nil
}

// Loaded lists the keys currently held.
func (r *Registry) Loaded() []ModelKey {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ModelKey, 0, len(r.pools))
	for k := range r.pools {
		out = append(out, k)
	}
	return out
}
