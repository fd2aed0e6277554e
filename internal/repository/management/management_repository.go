package management

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"smartBidFloor/business/floors"
	"smartBidFloor/domain"
)

var (
	ErrNotFound         = errors.New("management api: not found")
	ErrUnexpectedStatus = errors.New("management api: unexpected status")
)

type Config struct {
	BaseURL string
	Timeout time.Duration
	// CacheTTL bounds how long model parameters are reused. 0 disables caching.
	CacheTTL time.Duration
}

type cachedModel struct {
	cfg     domain.ModelConfig
	found   bool
	expires time.Time
}

// ManagementRepository reads app settings from the bid floor management
// service.
type ManagementRepository struct {
	cfg    Config
	client *http.Client
	now    func() time.Time

	mu    sync.Mutex
	cache map[string]cachedModel
}

var _ floors.ConfigSource = (*ManagementRepository)(nil)

func NewManagementRepository(cfg Config) *ManagementRepository {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &ManagementRepository{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		now:    time.Now,
		cache:  make(map[string]cachedModel),
	}
}

func (r *ManagementRepository) get(ctx context.Context, endpoint string, out any) error {
	u := strings.TrimRight(r.cfg.BaseURL, "/") + endpoint
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Add("Accept", "application/json")

	res, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("management api: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("management api: read body: %w", err)
	}
	switch {
	case res.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, endpoint)
	case res.StatusCode < 200 || res.StatusCode > 299:
		return fmt.Errorf("%w: %s returned %d", ErrUnexpectedStatus, endpoint, res.StatusCode)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("management api: decode %s: %w", endpoint, err)
	}
	return nil
}

func (r *ManagementRepository) FetchETLConfig(ctx context.Context, appID string) (domain.ETLConfig, error) {
	var cfg domain.ETLConfig
	err := r.get(ctx, "/bidfloor/app/"+url.PathEscape(appID)+"/config/etl", &cfg)
	return cfg, err
}

func (r *ManagementRepository) FetchModelConfig(ctx context.Context, appID, modelID string) (domain.ModelConfig, error) {
	var cfg domain.ModelConfig
	err := r.get(ctx, "/bidfloor/app/"+url.PathEscape(appID)+"/model/"+url.PathEscape(modelID), &cfg)
	return cfg, err
}

func (r *ManagementRepository) cachedModelConfig(ctx context.Context, appID, modelID string) (domain.ModelConfig, bool, error) {
	key := appID + "/" + modelID
	if r.cfg.CacheTTL > 0 {
		r.mu.Lock()
		c, ok := r.cache[key]
		r.mu.Unlock()
		if ok && r.now().Before(c.expires) {
			return c.cfg, c.found, nil
		}
	}

	cfg, err := r.FetchModelConfig(ctx, appID, modelID)
	found := true
	if errors.Is(err, ErrNotFound) {
		found, err = false, nil
	}
	if err != nil {
		return domain.ModelConfig{}, false, err
	}

	if r.cfg.CacheTTL > 0 {
		r.mu.Lock()
		r.cache[key] = cachedModel{cfg: cfg, found: found, expires: r.now().Add(r.cfg.CacheTTL)}
		r.mu.Unlock()
	}
	return cfg, found, nil
}

// GetFloorConfig maps the model parameters of the management service onto a
// floor config. The service is scoped to one customer, so customerID is
// only copied through.
func (r *ManagementRepository) GetFloorConfig(ctx context.Context, customerID, appID, modelID string) (domain.FloorConfig, bool, error) {
	mc, found, err := r.cachedModelConfig(ctx, appID, modelID)
	if err != nil || !found {
		return domain.FloorConfig{}, false, err
	}

	out := domain.FloorConfig{CustomerID: customerID, AppID: appID, ModelID: modelID}
	if v, ok := intParam(mc.Parameters, "maxAdUnits"); ok {
		out.MaxAdUnits = v
	}
	return out, true, nil
}

// ModelEpsilon reports the exploration rate configured for a model, if any.
func (r *ManagementRepository) ModelEpsilon(ctx context.Context, appID, modelID string) (float64, bool, error) {
	mc, found, err := r.cachedModelConfig(ctx, appID, modelID)
	if err != nil || !found {
		return 0, false, err
	}
	f, ok := mc.Parameters["epsilon"].(float64)
	return f, ok, nil
}

func intParam(params map[string]any, name string) (int, bool) {
	switch v := params[name].(type) {
	case float64:
		if v != math.Trunc(v) {
			return 0, false
		}
		return int(v), true
	case string:
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}
