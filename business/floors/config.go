package floors

import (
	"context"

	"smartBidFloor/domain"
)

type Config struct {
	CustomerID string

	// Epsilon applies to artifacts that do not carry their own.
	Epsilon float64

	// DefaultMaxAdUnits is used when neither the request nor the config
	// source sets one. 0 leaves the cardinality unspecified.
	DefaultMaxAdUnits int

	// Workers is the number of predictor instances per loaded model.
	Workers int

	// MaxLoadedModels caps the registry; the least recently used model is
	// dropped first. 0 means no cap.
	MaxLoadedModels int

	// BatchParallelism bounds the fan-out of one batched call.
	BatchParallelism int

	Nearest NearestConfig

	MinImpressions  int
	DefaultCategory string
}

const (
	defaultCustomerID       = "default"
	defaultEpsilon          = 0.1
	defaultWorkers          = 4
	defaultBatchParallelism = 8

	// DefaultModelID is the model id cold-start artifacts are published under.
	DefaultModelID = "default_bid_floor"
)

func DefaultConfig() Config {
	return Config{
		CustomerID:       defaultCustomerID,
		Epsilon:          defaultEpsilon,
		Workers:          defaultWorkers,
		BatchParallelism: defaultBatchParallelism,
		Nearest: NearestConfig{
			FeatureKey:        DefaultNearestFeatureKey,
			FloorMultiplier:   DefaultNearestFloorMultiplier,
			FeatureMultiplier: DefaultNearestFeatureMultiplier,
		},
		MinImpressions:  DefaultMinImpressions,
		DefaultCategory: DefaultCategory,
	}
}

// ConfigSource reads per-app floor settings.
type ConfigSource interface {
	GetFloorConfig(ctx context.Context, customerID, appID, modelID string) (domain.FloorConfig, bool, error)
}

// ConfigRepository is a ConfigSource that can also be written.
type ConfigRepository interface {
	ConfigSource
	UpsertFloorConfig(ctx context.Context, cfg domain.FloorConfig) error
}

type DecisionRepository interface {
	SaveDecision(ctx context.Context, d domain.FloorDecision) error
}

// ArtifactRepository loads model bundles.
type ArtifactRepository interface {
	LoadArtifact(ctx context.Context, key ModelKey) (Artifact, error)
}
