package floors

import (
	"sort"

	"smartBidFloor/pkg/logger"
)

// capPools drops the least recently used pools above cfg.MaxLoadedModels,
// never the one just loaded. Callers hold r.mu.
func (r *Registry) capPools(keep ModelKey) {
	limit := r.cfg.MaxLoadedModels
	if limit <= 0 || len(r.pools) <= limit {
		return
	}

	type poolInfo struct {
		key      ModelKey
		lastUsed int64
	}

	infos := make([]poolInfo, 0, len(r.pools))
	for k, p := range r.pools {
		if k == keep {
			continue
		}
		infos = append(infos, poolInfo{key: k, lastUsed: p.lastUsed.Load()})
	}

	// oldest first, ties by key for a stable order
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].lastUsed == infos[j].lastUsed {
			return infos[i].key.String() < infos[j].key.String()
		}
		return infos[i].lastUsed < infos[j].lastUsed
	})

	toDrop := len(r.pools) - limit
	for i := 0; i < toDrop && i < len(infos); i++ {
		delete(r.pools, infos[i].key)
		r.generations[infos[i].key]++
		logger.Info("floor_model_evicted", "model_key", infos[i].key.String())
	}
}
