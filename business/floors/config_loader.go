package floors

import (
	"context"
	"errors"

	"smartBidFloor/domain"
	"smartBidFloor/pkg/logger"
)

// resolveCardinality picks the cardinality for one request: the request
// value, then the config source, then the default.
func (s *FloorService) resolveCardinality(ctx context.Context, key ModelKey, requested *int) Cardinality {
	if requested != nil {
		return Cardinality(*requested)
	}

	if s.cfgSource != nil {
		cfg, ok, err := s.cfgSource.GetFloorConfig(ctx, key.CustomerID, key.AppID, key.ModelID)
		if err != nil {
			logger.Warn("floor_config_lookup_failed",
				"trace_id", TraceIDFromContext(ctx),
				"model_key", key.String(),
				"error", err,
			)
		} else if ok && cfg.MaxAdUnits > 0 {
			return Cardinality(cfg.MaxAdUnits)
		}
	}

	return Cardinality(s.defaultCfg.DefaultMaxAdUnits)
}

// ConfigChain consults each source in order and returns the first usable
// setting. A failing source is logged and skipped; the chain only errors
// when every source failed.
type ConfigChain []ConfigSource

var _ ConfigSource = ConfigChain(nil)

func (c ConfigChain) GetFloorConfig(ctx context.Context, customerID, appID, modelID string) (domain.FloorConfig, bool, error) {
	var errs []error
	tried := 0
	for _, src := range c {
		if src == nil {
			continue
		}
		tried++
		cfg, ok, err := src.GetFloorConfig(ctx, customerID, appID, modelID)
		if err != nil {
			logger.Warn("floor_config_source_failed",
				"trace_id", TraceIDFromContext(ctx),
				"app_id", appID,
				"model_id", modelID,
				"error", err,
			)
			errs = append(errs, err)
			continue
		}
		if ok && cfg.MaxAdUnits > 0 {
			return cfg, true, nil
		}
	}
	if tried > 0 && len(errs) == tried {
		return domain.FloorConfig{}, false, errors.Join(errs...)
	}
	return domain.FloorConfig{}, false, nil
}
