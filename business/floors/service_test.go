package floors

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"

	"smartBidFloor/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeArtifacts struct {
	mu        sync.Mutex
	artifacts map[ModelKey]Artifact
	loads     atomic.Int32
}

func (f *fakeArtifacts) LoadArtifact(_ context.Context, key ModelKey) (Artifact, error) {
	f.loads.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.artifacts[key]
	if !ok {
		return Artifact{}, ErrModelNotFound
	}
	return a, nil
}

type fakeConfigs map[ModelKey]domain.FloorConfig

func (f fakeConfigs) GetFloorConfig(_ context.Context, customerID, appID, modelID string) (domain.FloorConfig, bool, error) {
	c, ok := f[ModelKey{CustomerID: customerID, AppID: appID, ModelID: modelID}]
	return c, ok, nil
}

type brokenConfigs struct{}

func (brokenConfigs) GetFloorConfig(context.Context, string, string, string) (domain.FloorConfig, bool, error) {
	return domain.FloorConfig{}, false, errors.New("config store down")
}

type fakeDecisions struct {
	mu   sync.Mutex
	rows []domain.FloorDecision
	err  error
}

func (f *fakeDecisions) SaveDecision(_ context.Context, d domain.FloorDecision) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.rows = append(f.rows, d)
	return nil
}

var (
	coldKey    = ModelKey{CustomerID: "acme", AppID: "app1", ModelID: "default_bid_floor"}
	trainedKey = ModelKey{CustomerID: "acme", AppID: "app1", ModelID: "trained"}
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.CustomerID = "acme"
	cfg.Workers = 2
	return cfg
}

func newTestService(t *testing.T, seed uint64, src ConfigSource, decisions DecisionRepository) (*FloorService, *fakeArtifacts) {
	t.Helper()
	model := pairModel(map[[2]float64]float64{{3, 4}: 5, {2, 3}: 1, {2, 4}: 2})
	repo := &fakeArtifacts{artifacts: map[ModelKey]Artifact{
		coldKey:    EmptyArtifact(0.1),
		trainedKey: trainedArtifact(model, 0),
	}}
	cfg := testConfig()
	reg := NewRegistry(repo, seed, cfg, WithClock(fixedClock))
	return NewFloorService(reg, src, decisions, cfg), repo
}

func request(user, model string) domain.AllocationRequest {
	return domain.AllocationRequest{
		ModelID:   model,
		UserID:    user,
		Reference: "app1",
		Context:   map[string]any{"device.country": "US"},
		AdUnits:   fourFloors(),
	}
}

func intPtr(v int) *int { return &v }

func TestAllocate_ColdStartRecordsDecision(t *testing.T) {
	decisions := &fakeDecisions{}
	svc, _ := newTestService(t, 1, nil, decisions)

	ctx := WithTraceID(context.Background(), "trace-1")
	req := request("u1", "default_bid_floor")
	req.AssignmentStickinessInSeconds = 3600

	got, err := svc.Allocate(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, "app1", got.Reference)
	require.Len(t, got.SelectedAdUnitIDs, 3)
	assert.Equal(t, "1", got.SelectedAdUnitIDs[2])
	assert.InDelta(t, 1.0/3, got.Propensity, 1e-12)

	require.Len(t, decisions.rows, 1)
	row := decisions.rows[0]
	assert.Equal(t, "trace-1", row.TraceID)
	assert.Equal(t, "acme", row.CustomerID)
	assert.Equal(t, "app1", row.AppID)
	assert.Equal(t, string(VariantColdStart), row.Variant)
	assert.Equal(t, string(BranchColdStart), row.Branch)
	assert.Equal(t, 3600, row.StickinessSeconds)
	assert.NotEmpty(t, row.ID)
	assert.Equal(t, []string(got.SelectedAdUnitIDs), []string(row.AdUnitIDs))
	assert.Equal(t, 0, row.Context["assignmentDayOfWeek"])
}

func TestAllocate_TrainedModelExploitsBest(t *testing.T) {
	svc, _ := newTestService(t, 1, nil, nil)

	got, err := svc.Allocate(context.Background(), request("u1", "trained"))
	require.NoError(t, err)
	assert.Equal(t, []string{"4", "3", "1"}, got.SelectedAdUnitIDs)
	assert.Equal(t, []float64{4, 3, 1}, got.SelectedBidFloorValues)
	assert.Equal(t, 1.0, got.Propensity)
	assert.Len(t, got.Estimates, 3)
}

func TestAllocate_CardinalityPrecedence(t *testing.T) {
	configs := fakeConfigs{coldKey: {MaxAdUnits: 1}}

	tests := []struct {
		name    string
		src     ConfigSource
		request *int
		wantLen int
	}{
		{name: "request wins", src: configs, request: intPtr(2), wantLen: 2},
		{name: "config source", src: configs, wantLen: 1},
		{name: "default when unset", src: fakeConfigs{}, wantLen: 3},
		{name: "default when source fails", src: brokenConfigs{}, wantLen: 3},
		{name: "no source", wantLen: 3},
		{name: "chain prefers first source", src: ConfigChain{configs, fakeConfigs{coldKey: {MaxAdUnits: 2}}}, wantLen: 1},
		{name: "chain falls through a miss", src: ConfigChain{fakeConfigs{}, configs}, wantLen: 1},
		{name: "chain skips a failing source", src: ConfigChain{brokenConfigs{}, configs}, wantLen: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(t, 1, tt.src, nil)
			req := request("u1", "default_bid_floor")
			req.MaxAdUnits = tt.request

			got, err := svc.Allocate(context.Background(), req)
			require.NoError(t, err)
			assert.Len(t, got.SelectedAdUnitIDs, tt.wantLen)
		})
	}
}

func TestConfigChain(t *testing.T) {
	ctx := context.Background()
	primary := fakeConfigs{coldKey: {MaxAdUnits: 2}}
	fallback := fakeConfigs{coldKey: {MaxAdUnits: 4}, trainedKey: {MaxAdUnits: 3}}
	chain := ConfigChain{primary, nil, fallback}

	cfg, ok, err := chain.GetFloorConfig(ctx, "acme", "app1", "default_bid_floor")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, cfg.MaxAdUnits)

	cfg, ok, err = chain.GetFloorConfig(ctx, "acme", "app1", "trained")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 3, cfg.MaxAdUnits)

	_, ok, err = chain.GetFloorConfig(ctx, "acme", "app1", "other")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = ConfigChain{brokenConfigs{}, fallback}.GetFloorConfig(ctx, "acme", "app1", "other")
	assert.NoError(t, err, "one healthy source is enough")
	assert.False(t, ok)

	_, _, err = ConfigChain{brokenConfigs{}, brokenConfigs{}}.GetFloorConfig(ctx, "acme", "app1", "other")
	assert.Error(t, err)
}

func TestAllocate_Errors(t *testing.T) {
	svc, repo := newTestService(t, 1, nil, nil)

	_, err := svc.Allocate(context.Background(), request("u1", "missing"))
	assert.ErrorIs(t, err, ErrModelNotFound)
	_, err = svc.Allocate(context.Background(), request("u1", "missing"))
	assert.ErrorIs(t, err, ErrModelNotFound)
	assert.Equal(t, int32(2), repo.loads.Load(), "failed loads are not cached")

	req := request("u1", "default_bid_floor")
	req.AdUnits = append(req.AdUnits, floor("4", 9, 9.0))
	_, err = svc.Allocate(context.Background(), req)
	assert.ErrorIs(t, err, ErrDuplicateFloorID)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = svc.Allocate(ctx, request("u1", "default_bid_floor"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAllocate_SaveFailureStillServes(t *testing.T) {
	svc, _ := newTestService(t, 1, nil, &fakeDecisions{err: errors.New("db down")})

	got, err := svc.Allocate(context.Background(), request("u1", "default_bid_floor"))
	require.NoError(t, err)
	assert.NotEmpty(t, got.SelectedAdUnitIDs)
}

func TestAllocateBatch(t *testing.T) {
	reqs := []domain.AllocationRequest{
		request("u1", "default_bid_floor"),
		request("u2", "trained"),
		request("u3", "default_bid_floor"),
		request("u4", "default_bid_floor"),
	}

	run := func() ([]domain.Allocation, *fakeDecisions) {
		decisions := &fakeDecisions{}
		svc, _ := newTestService(t, 99, nil, decisions)
		out, err := svc.AllocateBatch(context.Background(), reqs)
		require.NoError(t, err)
		return out, decisions
	}

	first, decisions := run()
	second, _ := run()
	assert.Equal(t, first, second, "same seed gives the same batch")

	require.Len(t, first, 4)
	for i, a := range first {
		assert.Equal(t, reqs[i].UserID, a.UserID)
		assert.Equal(t, "1", a.SelectedAdUnitIDs[len(a.SelectedAdUnitIDs)-1])
	}
	assert.Equal(t, []string{"4", "3", "1"}, first[1].SelectedAdUnitIDs)

	require.Len(t, decisions.rows, 4)
	for i, row := range decisions.rows {
		assert.Equal(t, reqs[i].UserID, row.UserID)
	}
}

func TestAllocateBatch_OneFailureFailsAll(t *testing.T) {
	decisions := &fakeDecisions{}
	svc, _ := newTestService(t, 1, nil, decisions)

	bad := request("u2", "default_bid_floor")
	bad.AdUnits = []any{"not a floor"}

	_, err := svc.AllocateBatch(context.Background(), []domain.AllocationRequest{
		request("u1", "default_bid_floor"),
		bad,
	})
	assert.ErrorIs(t, err, ErrInvalidFloor)
	assert.Empty(t, decisions.rows)
}

func TestDebugAllocate(t *testing.T) {
	decisions := &fakeDecisions{}
	svc, _ := newTestService(t, 1, nil, decisions)

	out, err := svc.DebugAllocate(context.Background(), request("u1", "trained"))
	require.NoError(t, err)
	require.Len(t, out, 3)

	var best []string
	for _, d := range out {
		if d.Best {
			best = d.AdUnitIDs
		}
		assert.Len(t, d.Features, 2)
	}
	assert.Equal(t, []string{"4", "3"}, best)
	assert.Empty(t, decisions.rows, "debug calls are not recorded")

	out, err = svc.DebugAllocate(context.Background(), request("u1", "default_bid_floor"))
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestRegistry_LoadsOnce(t *testing.T) {
	repo := &fakeArtifacts{artifacts: map[ModelKey]Artifact{coldKey: EmptyArtifact(0.1)}}
	reg := NewRegistry(repo, 5, testConfig())

	var wg sync.WaitGroup
	pools := make([]*PredictorPool, 16)
	for i := range pools {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := reg.Pool(context.Background(), coldKey)
			assert.NoError(t, err)
			pools[i] = p
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), repo.loads.Load())
	for _, p := range pools {
		assert.Same(t, pools[0], p)
	}
	assert.Equal(t, 2, pools[0].Size())
	assert.Equal(t, VariantColdStart, pools[0].Variant())
	assert.Equal(t, []ModelKey{coldKey}, reg.Loaded())

	reg.Invalidate(coldKey)
	reloaded, err := reg.Pool(context.Background(), coldKey)
	require.NoError(t, err)
	assert.NotSame(t, pools[0], reloaded)
	assert.Equal(t, int32(2), repo.loads.Load())
}

// gatedArtifacts reads the artifact, then holds the first load until release
// is closed.
type gatedArtifacts struct {
	*fakeArtifacts
	once    sync.Once
	started chan struct{}
	release chan struct{}
}

func (g *gatedArtifacts) LoadArtifact(ctx context.Context, key ModelKey) (Artifact, error) {
	a, err := g.fakeArtifacts.LoadArtifact(ctx, key)
	g.once.Do(func() {
		close(g.started)
		<-g.release
	})
	return a, err
}

func TestRegistry_InvalidateDiscardsInFlightLoad(t *testing.T) {
	inner := &fakeArtifacts{artifacts: map[ModelKey]Artifact{coldKey: EmptyArtifact(0.1)}}
	repo := &gatedArtifacts{fakeArtifacts: inner, started: make(chan struct{}), release: make(chan struct{})}
	reg := NewRegistry(repo, 5, testConfig())

	first := make(chan *PredictorPool, 1)
	go func() {
		p, err := reg.Pool(context.Background(), coldKey)
		assert.NoError(t, err)
		first <- p
	}()
	<-repo.started

	model := pairModel(map[[2]float64]float64{{3, 4}: 5})
	inner.mu.Lock()
	inner.artifacts[coldKey] = trainedArtifact(model, 0)
	inner.mu.Unlock()
	reg.Invalidate(coldKey)
	close(repo.release)

	assert.Equal(t, VariantTrainedModel, (<-first).Variant())

	pool, err := reg.Pool(context.Background(), coldKey)
	require.NoError(t, err)
	assert.Equal(t, VariantTrainedModel, pool.Variant())
	assert.Equal(t, int32(2), inner.loads.Load())
}

func TestRegistry_PreloadStopsAtFailure(t *testing.T) {
	repo := &fakeArtifacts{artifacts: map[ModelKey]Artifact{coldKey: EmptyArtifact(0.1)}}
	reg := NewRegistry(repo, 5, testConfig())

	err := reg.Preload(context.Background(), []ModelKey{coldKey, trainedKey})
	assert.ErrorIs(t, err, ErrModelNotFound)
	assert.Equal(t, []ModelKey{coldKey}, reg.Loaded())
}

func TestRegistry_InvalidArtifactFailsClosed(t *testing.T) {
	repo := &fakeArtifacts{artifacts: map[ModelKey]Artifact{
		coldKey: {Kind: VariantTrainedModel},
	}}
	reg := NewRegistry(repo, 5, testConfig())

	_, err := reg.Pool(context.Background(), coldKey)
	assert.ErrorIs(t, err, ErrModelExpected)
	assert.Empty(t, reg.Loaded())
}

func TestPredictorPool_AcquireHonoursContext(t *testing.T) {
	proto, err := NewPredictor(EmptyArtifact(0.1), 0.1, Streams{})
	require.NoError(t, err)
	pool := newPredictorPool(coldKey, proto, NewSeedSequence(1).Spawn(1))

	pr, err := pool.Acquire(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = pool.Acquire(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	pool.Release(pr)
	_, err = pool.Acquire(context.Background())
	assert.NoError(t, err)
}

func TestParseModelKey(t *testing.T) {
	k, err := ParseModelKey("app1/m1", "acme")
	require.NoError(t, err)
	assert.Equal(t, ModelKey{CustomerID: "acme", AppID: "app1", ModelID: "m1"}, k)
	assert.Equal(t, "acme/app1/m1", k.String())

	k, err = ParseModelKey("other/app2/m2", "acme")
	require.NoError(t, err)
	assert.Equal(t, "other", k.CustomerID)

	for _, bad := range []string{"", "solo", "a//b", "a/b/c/d", "/x"} {
		_, err := ParseModelKey(bad, "acme")
		assert.Error(t, err, bad)
	}
}

func TestRegistry_EvictsLeastRecentlyUsed(t *testing.T) {
	keys := []ModelKey{
		{CustomerID: "acme", AppID: "a", ModelID: "m"},
		{CustomerID: "acme", AppID: "b", ModelID: "m"},
		{CustomerID: "acme", AppID: "c", ModelID: "m"},
	}
	repo := &fakeArtifacts{artifacts: map[ModelKey]Artifact{}}
	for _, k := range keys {
		repo.artifacts[k] = EmptyArtifact(0.1)
	}
	cfg := testConfig()
	cfg.MaxLoadedModels = 2
	reg := NewRegistry(repo, 5, cfg)
	ctx := context.Background()

	a, err := reg.Pool(ctx, keys[0])
	require.NoError(t, err)
	_, err = reg.Pool(ctx, keys[1])
	require.NoError(t, err)

	// a is used after b was loaded, so b is the oldest
	a.lastUsed.Store(math.MaxInt64)
	_, err = reg.Pool(ctx, keys[2])
	require.NoError(t, err)

	assert.ElementsMatch(t, []ModelKey{keys[0], keys[2]}, reg.Loaded())
}
