package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App        AppConfig
	Server     ServerConfig
	Database   DatabaseConfig
	JWT        JWTConfig
	Admin      AdminConfig
	Model      ModelConfig
	Management ManagementConfig
}

type AppConfig struct {
	Name        string
	Version     string
	Environment string
}

type ServerConfig struct {
	Port string
}

type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

type JWTConfig struct {
	SecretKey string
}

// AdminConfig is the single operator account of the admin API. An empty
// password hash disables login.
type AdminConfig struct {
	Username     string
	PasswordHash string
	TokenTTL     time.Duration
}

type ModelConfig struct {
	ArtifactDir       string
	CustomerID        string
	Seed              uint64
	SeedSet           bool
	Workers           int
	MaxLoadedModels   int
	BatchParallelism  int
	Epsilon           float64
	DefaultMaxAdUnits int
	Preload           []string

	NearestFeatureKey        string
	NearestFloorMultiplier   float64
	NearestFeatureMultiplier float64

	MinImpressions  int
	DefaultCategory string
}

type ManagementConfig struct {
	BaseURL string
	Timeout time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var errs []error

	cfg := &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", "smartBidFloor"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
			Environment: getEnv("APP_ENV", "development"),
		},
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
		},
		Database: DatabaseConfig{
			Enabled:  getBool("DB_ENABLED", false, &errs),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", "smart_bid_floor"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		JWT: JWTConfig{
			SecretKey: getEnv("JWT_SECRET", ""),
		},
		Admin: AdminConfig{
			Username:     getEnv("ADMIN_USERNAME", "admin"),
			PasswordHash: getEnv("ADMIN_PASSWORD_HASH", ""),
			TokenTTL:     getDuration("ADMIN_TOKEN_TTL", 12*time.Hour, &errs),
		},
		Model: ModelConfig{
			ArtifactDir:       getEnv("MODEL_ARTIFACT_DIR", "./models"),
			CustomerID:        getEnv("MODEL_CUSTOMER_ID", "default"),
			Workers:           getInt("MODEL_WORKERS", 4, &errs),
			MaxLoadedModels:   getInt("MODEL_MAX_LOADED", 0, &errs),
			BatchParallelism:  getInt("MODEL_BATCH_PARALLELISM", 8, &errs),
			Epsilon:           getFloat("MODEL_EPSILON", 0.1, &errs),
			DefaultMaxAdUnits: getInt("MODEL_DEFAULT_MAX_AD_UNITS", 0, &errs),
			Preload:           splitList(getEnv("MODEL_PRELOAD", "")),

			NearestFeatureKey:        getEnv("NEAREST_FEATURE_KEY", "user.avgInterRevenueLast72Hours"),
			NearestFloorMultiplier:   getFloat("NEAREST_FLOOR_MULTIPLIER", 1, &errs),
			NearestFeatureMultiplier: getFloat("NEAREST_FEATURE_MULTIPLIER", 1500, &errs),

			MinImpressions:  getInt("REPLACER_MIN_IMPRESSIONS", 10000, &errs),
			DefaultCategory: getEnv("REPLACER_DEFAULT_CATEGORY", "other"),
		},
		Management: ManagementConfig{
			BaseURL: getEnv("MANAGEMENT_API_URL", ""),
			Timeout: getDuration("MANAGEMENT_API_TIMEOUT", 5*time.Second, &errs),
		},
	}

	if s := os.Getenv("MODEL_SEED"); s != "" {
		seed, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid MODEL_SEED: %w", err))
		}
		cfg.Model.Seed = seed
		cfg.Model.SeedSet = true
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	if cfg.JWT.SecretKey == "" {
		return nil, errors.New("missing jwt secret")
	}

	if cfg.Database.Enabled && cfg.Database.Password == "" {
		return nil, errors.New("missing database password")
	}

	if cfg.Model.Epsilon < 0 || cfg.Model.Epsilon > 1 {
		return nil, errors.New("MODEL_EPSILON must be within [0, 1]")
	}

	if cfg.Model.Workers <= 0 {
		return nil, errors.New("MODEL_WORKERS must be positive")
	}

	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}

	return defaultVal
}

func getInt(key string, defaultVal int, errs *[]error) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
		return defaultVal
	}
	return n
}

func getFloat(key string, defaultVal float64, errs *[]error) float64 {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
		return defaultVal
	}
	return f
}

func getBool(key string, defaultVal bool, errs *[]error) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
		return defaultVal
	}
	return b
}

func getDuration(key string, defaultVal time.Duration, errs *[]error) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
		return defaultVal
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
