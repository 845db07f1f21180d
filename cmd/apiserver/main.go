// The longmap API server. It wires PostgreSQL, Redis, Kafka, Milvus, MinIO
// and the embedding provider into the ingest and analysis services and serves
// the REST API until it receives SIGINT or SIGTERM.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/openlongevity/longmap/internal/analysis/classify"
	"github.com/openlongevity/longmap/internal/analysis/extract"
	"github.com/openlongevity/longmap/internal/analysis/funding"
	"github.com/openlongevity/longmap/internal/analysis/gapscore"
	"github.com/openlongevity/longmap/internal/analysis/match"
	"github.com/openlongevity/longmap/internal/application/analysis"
	"github.com/openlongevity/longmap/internal/application/fetchstatus"
	"github.com/openlongevity/longmap/internal/application/indexer"
	"github.com/openlongevity/longmap/internal/application/ingest"
	"github.com/openlongevity/longmap/internal/config"
	"github.com/openlongevity/longmap/internal/infrastructure/database/postgres"
	"github.com/openlongevity/longmap/internal/infrastructure/database/postgres/repositories"
	"github.com/openlongevity/longmap/internal/infrastructure/database/redis"
	"github.com/openlongevity/longmap/internal/infrastructure/embedding"
	"github.com/openlongevity/longmap/internal/infrastructure/messaging/kafka"
	"github.com/openlongevity/longmap/internal/infrastructure/monitoring/logging"
	"github.com/openlongevity/longmap/internal/infrastructure/monitoring/prometheus"
	"github.com/openlongevity/longmap/internal/infrastructure/search/milvus"
	"github.com/openlongevity/longmap/internal/infrastructure/storage/minio"
	httpserver "github.com/openlongevity/longmap/internal/interfaces/http"
	"github.com/openlongevity/longmap/internal/interfaces/http/handlers"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file (env-only when empty)")
	migrate := flag.Bool("migrate", true, "run pending database migrations on startup")
	flag.Parse()

	if err := run(*configPath, *migrate); err != nil {
		fmt.Fprintln(os.Stderr, "apiserver:", err)
		os.Exit(1)
	}
}

func run(configPath string, migrate bool) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger = logger.Named("apiserver")
	logger.Info("starting", logging.Int("port", cfg.Server.Port))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if migrate {
		if err := postgres.RunMigrations(cfg.Database); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}

	pool, err := postgres.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	metrics := prometheus.New()

	rdb, err := redis.NewClient(ctx, cfg.Redis, logger)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer rdb.Close()
	cache := redis.NewCache(rdb, logger, redis.Options{Metrics: metrics})

	producer, err := kafka.NewProducer(cfg.Kafka, logger)
	if err != nil {
		return fmt.Errorf("create kafka producer: %w", err)
	}
	defer producer.Close()

	archive, err := minio.NewArchive(ctx, cfg.MinIO, logger)
	if err != nil {
		return fmt.Errorf("connect minio: %w", err)
	}

	problems := repositories.NewProblemRepository(pool, logger)
	capabilities := repositories.NewCapabilityRepository(pool, logger)
	resources := repositories.NewResourceRepository(pool, logger)
	problemCaps := repositories.NewProblemCapabilityRepository(pool, logger)
	capResources := repositories.NewCapabilityResourceRepository(pool, logger)
	gaps := repositories.NewGapRepository(pool, logger)

	// Embeddings and the vector index are optional; without them the matcher
	// falls back to lexical similarity and the similar-resources endpoint
	// reports unavailable.
	var embedder match.Embedder
	var similar handlers.SimilarFinder
	if provider := embedding.New(cfg.Embedding, logger); provider != nil {
		embedder = provider

		mc, err := milvus.NewClient(ctx, cfg.Milvus, logger)
		if err != nil {
			return fmt.Errorf("connect milvus: %w", err)
		}
		defer mc.Close()
		similar = indexer.New(resources, provider, milvus.NewResourceIndex(mc, cfg.Milvus, logger), logger)
	}

	matcher := match.New(
		match.Config{SimilarityThreshold: cfg.Analysis.SimilarityThreshold},
		match.Deps{Embedder: embedder, Logger: logger, Metrics: metrics},
	)

	ingestSvc := ingest.NewService(ingest.Deps{
		Problems:            problems,
		Capabilities:        capabilities,
		Resources:           resources,
		ProblemCapabilities: problemCaps,
		CapabilityResources: capResources,
		Classifier:          classify.New(),
		Extractor:           extract.New(),
		Matcher:             matcher,
		Archive:             archive,
		Events:              producer,
		Metrics:             metrics,
		Logger:              logger,
	})

	analysisSvc := analysis.NewService(analysis.Deps{
		Problems:            problems,
		Capabilities:        capabilities,
		Resources:           resources,
		ProblemCapabilities: problemCaps,
		CapabilityResources: capResources,
		Gaps:                gaps,
		Scorer: gapscore.New(gapscore.Config{
			CostWeight:   cfg.Analysis.CostWeight,
			TimeWeight:   cfg.Analysis.TimeWeight,
			ImpactWeight: cfg.Analysis.ImpactWeight,
		}),
		Funding:            funding.New(),
		Matcher:            matcher,
		DuplicateThreshold: cfg.Analysis.DuplicateThreshold,
		Cache:              cache,
		Events:             producer,
		Metrics:            metrics,
		Logger:             logger,
	})

	tracker := fetchstatus.New()
	runner := ingest.NewRunner(cfg.Worker, ingest.RunnerDeps{
		Service: ingestSvc,
		Polls:   ingest.BuildPolls(cfg.Sources, logger),
		Tracker: tracker,
		Cache:   cache,
		Metrics: metrics,
		Logger:  logger,
	})

	router := httpserver.NewRouter(httpserver.RouterConfig{
		Problems:     handlers.NewProblemHandler(problems, capabilities, problemCaps, ingestSvc, logger),
		Capabilities: handlers.NewCapabilityHandler(capabilities, resources, capResources, logger),
		Resources:    handlers.NewResourceHandler(resources, capResources, similar, logger),
		Gaps:         handlers.NewGapHandler(gaps, analysisSvc, logger),
		Analysis:     handlers.NewAnalysisHandler(analysisSvc, runner, tracker, logger),
		Health:       handlers.NewHealthHandler(pool, cache, logger),
		Metrics:      metrics,
		Logger:       logger,
	})
	srv := httpserver.NewServer(cfg.Server, router, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	if err := srv.Stop(context.Background()); err != nil {
		logger.Error("shutdown", logging.Err(err))
	}
	logger.Info("stopped")
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.LoadFromEnv()
	}
	return config.Load(path)
}
