package main

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"smartBidFloor/app/echo-server/router"
	"smartBidFloor/business/floors"
	"smartBidFloor/internal/middleware"
	"smartBidFloor/internal/repository/artifact"
	"smartBidFloor/internal/repository/management"
	psqlRepo "smartBidFloor/internal/repository/postgres"
	"smartBidFloor/internal/rest"
	"smartBidFloor/pkg/config"
	"smartBidFloor/pkg/database"
	"smartBidFloor/pkg/logger"
	"smartBidFloor/pkg/metrics"
	"smartBidFloor/pkg/utils"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
)

func engineConfig(cfg *config.Config) floors.Config {
	ec := floors.DefaultConfig()
	ec.CustomerID = cfg.Model.CustomerID
	ec.Epsilon = cfg.Model.Epsilon
	ec.DefaultMaxAdUnits = cfg.Model.DefaultMaxAdUnits
	ec.Workers = cfg.Model.Workers
	ec.MaxLoadedModels = cfg.Model.MaxLoadedModels
	ec.BatchParallelism = cfg.Model.BatchParallelism
	ec.Nearest = floors.NearestConfig{
		FeatureKey:        cfg.Model.NearestFeatureKey,
		FloorMultiplier:   cfg.Model.NearestFloorMultiplier,
		FeatureMultiplier: cfg.Model.NearestFeatureMultiplier,
	}
	ec.MinImpressions = cfg.Model.MinImpressions
	ec.DefaultCategory = cfg.Model.DefaultCategory
	return ec
}

func baseSeed(cfg *config.Config) uint64 {
	if cfg.Model.SeedSet {
		return cfg.Model.Seed
	}
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		logger.Fatal("Failed to draw base seed", "error", err)
	}
	return binary.LittleEndian.Uint64(b[:])
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Init(cfg.App.Environment)
	defer logger.Sync()
	logger.Info("Starting smartBidFloor", "version", cfg.App.Version)

	utils.SetJWTSecret(cfg.JWT.SecretKey)
	metrics.Init()

	engineCfg := engineConfig(cfg)
	seed := baseSeed(cfg)
	logger.Info("Engine seed", "seed", seed, "fixed", cfg.Model.SeedSet)

	// Init repo
	store := artifact.NewFileStore(cfg.Model.ArtifactDir)
	registry := floors.NewRegistry(store, seed, engineCfg)

	var (
		cfgSource    floors.ConfigSource
		decisionRepo floors.DecisionRepository
		adminHandler *rest.FloorAdminHandler
	)

	if cfg.Database.Enabled {
		db, err := database.InitPostgres(cfg)
		if err != nil {
			logger.Fatal("Failed to connect to database", "error", err)
		}
		logger.Info("Database connected successfully")

		floorCfgRepo := psqlRepo.NewFloorConfigRepository(db)
		decisions := psqlRepo.NewDecisionRepository(db)
		cfgSource = floorCfgRepo
		decisionRepo = decisions
		adminHandler = rest.NewFloorAdminHandler(floorCfgRepo, decisions, registry, engineCfg.CustomerID)
	}

	// Admin writes land in postgres, so it is consulted before the
	// management api.
	if cfg.Management.BaseURL != "" {
		mgmt := management.NewManagementRepository(management.Config{
			BaseURL:  cfg.Management.BaseURL,
			Timeout:  cfg.Management.Timeout,
			CacheTTL: time.Minute,
		})
		if cfgSource != nil {
			cfgSource = floors.ConfigChain{cfgSource, mgmt}
		} else {
			cfgSource = mgmt
		}
		logger.Info("Using management api for floor config", "url", cfg.Management.BaseURL)
	}

	if err := preload(registry, store, engineCfg.CustomerID, cfg.Model.Preload); err != nil {
		logger.Fatal("Failed to preload models", "error", err)
	}

	// Init service
	floorService := floors.NewFloorService(registry, cfgSource, decisionRepo, engineCfg)

	// Init handler
	floorHandler := rest.NewFloorHandler(floorService)
	authHandler := rest.NewAuthHandler(cfg.Admin.Username, cfg.Admin.PasswordHash, cfg.Admin.TokenTTL)

	// Init echo
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// HTTP error handler
	e.HTTPErrorHandler = middleware.ErrorHandler

	// Global middleware
	e.Use(echomiddleware.Recover())
	e.Use(middleware.TraceID())
	e.Use(metrics.Middleware())

	authRequired := middleware.AuthMiddleware()
	adminOnly := middleware.AdminOnly()

	// Setup routes
	router.SetOpsRoutes(e)
	api := e.Group("/api/v1")
	router.SetAuthRoutes(api, authHandler)
	router.SetFloorRoutes(api, floorHandler, authRequired)
	if adminHandler != nil {
		router.SetFloorAdminRoutes(api, adminHandler, authRequired, adminOnly)
	}

	// Goroutine server
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Server.Port)
		logger.Info("Server starting", "address", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", "error", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	logger.Info("Server stopped")
}

// preload loads the listed keys, or every stored artifact for "*".
func preload(registry *floors.Registry, store *artifact.FileStore, customerID string, names []string) error {
	if len(names) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	var keys []floors.ModelKey
	for _, n := range names {
		if n == "*" {
			all, err := store.Keys(ctx)
			if err != nil {
				return err
			}
			keys = append(keys, all...)
			continue
		}
		k, err := floors.ParseModelKey(n, customerID)
		if err != nil {
			return err
		}
		keys = append(keys, k)
	}
	return registry.Preload(ctx, keys)
}
