// The longmap worker runs the scheduled ingestion and analysis pipeline. On
// every cron tick it takes a distributed lock, fetches recent documents from
// the configured literature sources, re-scores the capability catalog and
// refreshes the Milvus resource index. It also consumes externally submitted
// problems from Kafka.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

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
	"github.com/openlongevity/longmap/pkg/errors"
)

const (
	// fetchLockTTL bounds one pipeline run; a crashed worker frees the lock
	// after this long.
	fetchLockTTL = 45 * time.Minute
	runTimeout   = 40 * time.Minute

	fetchLockName = "worker:fetch"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file (env-only when empty)")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, "worker:", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger = logger.Named("worker")
	logger.Info("starting", logging.String("schedule", cfg.Worker.Schedule))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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
	lock := redis.NewLock(rdb, logger, fetchLockName, fetchLockTTL)

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

	var embedder match.Embedder
	var index *indexer.Service
	if provider := embedding.New(cfg.Embedding, logger); provider != nil {
		embedder = provider

		mc, err := milvus.NewClient(ctx, cfg.Milvus, logger)
		if err != nil {
			return fmt.Errorf("connect milvus: %w", err)
		}
		defer mc.Close()
		index = indexer.New(resources, provider, milvus.NewResourceIndex(mc, cfg.Milvus, logger), logger)
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

	runner := ingest.NewRunner(cfg.Worker, ingest.RunnerDeps{
		Service: ingestSvc,
		Polls:   ingest.BuildPolls(cfg.Sources, logger),
		Tracker: fetchstatus.New(),
		Cache:   cache,
		Metrics: metrics,
		Logger:  logger,
	})

	consumer, err := kafka.NewConsumer(cfg.Kafka, []string{kafka.TopicProblemSubmitted}, producer, logger)
	if err != nil {
		return fmt.Errorf("create kafka consumer: %w", err)
	}
	consumer.Subscribe(kafka.TopicProblemSubmitted, submittedProblemHandler(ingestSvc, logger))
	if err := consumer.Start(ctx); err != nil {
		return fmt.Errorf("start kafka consumer: %w", err)
	}
	defer consumer.Close()

	pipeline := func() {
		runPipeline(ctx, lock, runner, analysisSvc, index, logger)
	}

	sched := cron.New()
	if _, err := sched.AddFunc(cfg.Worker.Schedule, pipeline); err != nil {
		return fmt.Errorf("schedule %q: %w", cfg.Worker.Schedule, err)
	}
	sched.Start()
	defer sched.Stop()

	// One pass at startup so a fresh deployment has data before the first
	// scheduled tick.
	go pipeline()

	<-ctx.Done()
	logger.Info("shutdown signal received")
	return nil
}

// runPipeline executes one fetch + analyze + index pass under the
// distributed lock. A run already held by another worker is skipped.
func runPipeline(
	ctx context.Context,
	lock *redis.Lock,
	runner *ingest.Runner,
	analysisSvc *analysis.Service,
	index *indexer.Service,
	logger logging.Logger,
) {
	acquired, err := lock.TryAcquire(ctx)
	if err != nil {
		logger.Error("acquire fetch lock", logging.Err(err))
		return
	}
	if !acquired {
		logger.Info("fetch lock held elsewhere, skipping run")
		return
	}
	defer func() {
		if err := lock.Release(context.Background()); err != nil {
			logger.Warn("release fetch lock", logging.Err(err))
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	report, err := runner.Run(ctx)
	if err != nil {
		logger.Error("fetch run failed", logging.Err(err))
		return
	}
	logger.Info("fetch run finished",
		logging.Int("fetched", report.Fetched),
		logging.Int("created", report.Created),
		logging.Int("skipped", report.Skipped),
		logging.Int("failed", report.Failed),
	)

	summary, err := analysisSvc.RunGapAnalysis(ctx)
	if err != nil {
		logger.Error("gap analysis failed", logging.Err(err))
		return
	}
	logger.Info("gap analysis finished",
		logging.Int("scored", summary.CapabilitiesScored),
		logging.Int("gaps_open", summary.GapsOpen),
		logging.Int("gaps_closed", summary.GapsClosed),
	)

	if index != nil {
		indexed, err := index.SyncActive(ctx)
		if err != nil {
			logger.Error("resource index sync failed", logging.Err(err))
			return
		}
		logger.Info("resource index synced", logging.Int("indexed", indexed))
	}
}

// submittedProblemHandler ingests problems published by external systems on
// problem.submitted. Duplicates are acknowledged, not dead-lettered.
func submittedProblemHandler(ingestSvc *ingest.Service, logger logging.Logger) kafka.Handler {
	logger = logger.Named("problem_consumer")
	return func(ctx context.Context, env *kafka.Envelope) error {
		var payload kafka.ProblemSubmittedPayload
		if err := env.DecodePayload(&payload); err != nil {
			return err
		}
		result, err := ingestSvc.CreateProblem(ctx, ingest.CreateProblemInput{
			Title:       payload.Title,
			Description: payload.Description,
			Category:    payload.Category,
			Source:      payload.Source,
			SourceID:    payload.SourceID,
			SourceURL:   payload.SourceURL,
		})
		if err != nil {
			if errors.IsCode(err, errors.CodeDuplicateProblem) {
				logger.Info("duplicate submission skipped", logging.String("title", payload.Title))
				return nil
			}
			return err
		}
		logger.Info("submitted problem ingested",
			logging.String("problem_id", result.ProblemID),
			logging.String("category", result.Category),
		)
		return nil
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.LoadFromEnv()
	}
	return config.Load(path)
}
