package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"card-approval-service/internal/adapters/primary/http/handlers"
	"card-approval-service/internal/adapters/primary/http/middleware"
	"card-approval-service/internal/adapters/secondary/flavors"
	"card-approval-service/internal/adapters/secondary/mlflow"
	"card-approval-service/internal/adapters/secondary/numeric"
	"card-approval-service/internal/adapters/secondary/postgres"
	"card-approval-service/internal/adapters/secondary/redis"
	"card-approval-service/internal/config"
	output "card-approval-service/internal/core/ports/output"
	"card-approval-service/internal/core/services"
	"card-approval-service/internal/observability"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logFile, err := observability.InitLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logFile.Close()

	ctx := context.Background()

	shutdownTracing, err := observability.InitTracing(ctx, cfg.Tracing, cfg.App)
	if err != nil {
		log.Fatalf("init tracing: %v", err)
	}

	log.Infof("starting %s v%s", cfg.App.Name, cfg.App.Version)
	log.Infof("MLflow URI: %s", cfg.Registry.TrackingURI)
	log.Infof("model: %s (%s)", cfg.Model.Name, cfg.Model.Stage)

	mlflow.SetupGCSCredentials(cfg.Registry.GCSCredentialsPath)

	// ============================================================================
	// Hexagonal Architecture Wiring
	// ============================================================================

	// Secondary Adapters (Registry, Model Flavors, Preprocessing Decoder)
	registry := mlflow.NewClient(&cfg.Registry)
	knownFlavors := flavors.DefaultFlavors()

	locator := services.NewArtifactLocator(registry, cfg.Model.CacheDir)
	modelLoader := services.NewModelLoader(flavors.NewGenericLoader(knownFlavors), knownFlavors)
	preprocessingLoader := services.NewPreprocessingLoader(numeric.NewDecoder(), registry, cfg.Model.CacheDir)

	modelSvc := services.NewModelService(services.ModelServiceConfig{
		Name:      cfg.Model.Name,
		Stage:     cfg.Model.Stage,
		LocalPath: cfg.Model.Path,
	}, locator, modelLoader, preprocessingLoader)

	metrics := observability.NewMetrics()

	// Eager model load; the service does not start without a model
	log.Info("loading model...")
	if err := modelSvc.Load(ctx); err != nil {
		log.Fatalf("load model: %v", err)
	}
	info := modelSvc.Info()
	metrics.SetModelLoaded(true)
	log.WithFields(log.Fields{
		"version": info.Version,
		"run_id":  info.RunID,
		"source":  info.Source,
		"flavor":  info.Flavor,
	}).Info("model ready")

	// Prediction Audit Log (Optional - based on config)
	var predictionLogs output.PredictionLogRepository
	if cfg.Database.Enabled {
		pool, err := newPool(ctx, cfg.Database)
		if err != nil {
			log.Fatalf("database: %v", err)
		}
		defer pool.Close()
		predictionLogs = postgres.NewPredictionLogRepository(pool)
		log.Info("prediction audit log enabled")
	} else {
		log.Info("prediction audit log disabled")
	}

	// Prediction Cache (Optional - based on config)
	var predictionCache output.PredictionCache
	if cfg.Cache.Enabled {
		client, err := redis.NewClient(ctx, cfg.Cache.RedisURL)
		if err != nil {
			log.Warnf("redis init failed (continuing without prediction cache): %v", err)
		} else {
			defer client.Close()
			predictionCache = redis.NewPredictionCache(client)
			log.Info("prediction cache enabled")
		}
	} else {
		log.Info("prediction cache disabled")
	}

	// Core Services (Application Layer)
	predictionSvc := services.NewPredictionService(modelSvc, predictionCache, predictionLogs, cfg.Cache.TTL)
	healthSvc := services.NewHealthService(registry, modelSvc, cfg.App.Version)

	// Primary Adapter (HTTP Handlers)
	h := handlers.New(predictionSvc, modelSvc, healthSvc, metrics, cfg.App)

	// Setup router
	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(
		middleware.RequestID(),
		middleware.Tracing(),
		middleware.Logging(),
		middleware.Metrics(metrics),
		middleware.CORS(cfg.CORS),
		gin.Recovery(),
	)

	h.RegisterProbes(router)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := router.Group("/api/v1")
	h.RegisterRoutes(api, middleware.RateLimit(cfg.RateLimit))

	// Start server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		log.Infof("starting server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("server forced shutdown: %v", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Warnf("tracer shutdown: %v", err)
	}

	log.Info("server stopped")
}

func newPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse db config: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	poolCfg.MinConns = int32(cfg.MaxIdleConns)
	poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create db pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	log.Info("database connection established")
	return pool, nil
}
