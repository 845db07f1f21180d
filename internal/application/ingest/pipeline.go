package ingest

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/openlongevity/longmap/internal/application/fetchstatus"
	"github.com/openlongevity/longmap/internal/config"
	"github.com/openlongevity/longmap/internal/infrastructure/monitoring/logging"
	"github.com/openlongevity/longmap/internal/infrastructure/monitoring/prometheus"
	"github.com/openlongevity/longmap/internal/infrastructure/sources"
	"github.com/openlongevity/longmap/pkg/errors"
)

// analysisCachePrefix is the key prefix of cached analysis results. Every
// successful fetch run invalidates it: new problems change every downstream
// answer.
const analysisCachePrefix = "analysis:"

// CacheInvalidator drops cached analysis results. Satisfied by redis.Cache.
type CacheInvalidator interface {
	DeleteByPrefix(ctx context.Context, prefix string) (int64, error)
}

// Poll pairs a literature source with its fetch budget.
type Poll struct {
	Source     sources.Source
	MaxResults int
}

// BuildPolls constructs the enabled sources from configuration.
func BuildPolls(cfg config.SourcesConfig, logger logging.Logger) []Poll {
	if logger == nil {
		logger = logging.NewNop()
	}

	var polls []Poll
	if cfg.PubMed.Enabled {
		polls = append(polls, Poll{sources.NewPubMed(cfg.PubMed, logger), cfg.PubMed.MaxResults})
	}
	if cfg.ClinicalTrials.Enabled {
		polls = append(polls, Poll{sources.NewClinicalTrials(cfg.ClinicalTrials, logger), cfg.ClinicalTrials.MaxResults})
	}
	if cfg.BioRxiv.Enabled {
		polls = append(polls, Poll{sources.NewBioRxiv(cfg.BioRxiv, logger), cfg.BioRxiv.MaxResults})
	}
	return polls
}

// RunnerDeps wires the fetch runner. Tracker, Cache and Metrics are optional.
type RunnerDeps struct {
	Service *Service
	Polls   []Poll
	Tracker *fetchstatus.Tracker
	Cache   CacheInvalidator
	Metrics *prometheus.Metrics
	Logger  logging.Logger
}

// Runner executes one fetch-and-ingest pass over every configured source.
// The worker schedules it; the CLI runs it once.
type Runner struct {
	deps        RunnerDeps
	daysBack    int
	concurrency int
	logger      logging.Logger
}

// NewRunner creates a Runner with the worker's fetch window and parallelism.
func NewRunner(cfg config.WorkerConfig, deps RunnerDeps) *Runner {
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	daysBack := cfg.DaysBack
	if daysBack <= 0 {
		daysBack = config.DefaultWorkerDaysBack
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = config.DefaultWorkerConcurrency
	}
	return &Runner{
		deps:        deps,
		daysBack:    daysBack,
		concurrency: concurrency,
		logger:      logger.Named("fetch_runner"),
	}
}

// RunReport aggregates one full pass.
type RunReport struct {
	Fetched int           `json:"fetched"`
	Created int           `json:"created"`
	Skipped int           `json:"skipped"`
	Failed  int           `json:"failed"`
	Elapsed time.Duration `json:"elapsed"`

	// FailedSources names sources whose fetch itself failed; their documents
	// are simply absent from the counts above.
	FailedSources []string `json:"failed_sources,omitempty"`
}

// Run fetches every source since the configured cutoff and ingests the
// results. Sources run concurrently, bounded by the worker's concurrency. A
// source failing to fetch is reported and skipped; Run errors only when a
// run is already active or every source failed.
func (r *Runner) Run(ctx context.Context) (*RunReport, error) {
	if r.deps.Tracker != nil {
		if err := r.deps.Tracker.BeginRun(); err != nil {
			return nil, err
		}
	}

	start := time.Now()
	cutoff := start.AddDate(0, 0, -r.daysBack)
	r.logger.Info("fetch run started",
		logging.Int("sources", len(r.deps.Polls)),
		logging.String("cutoff", cutoff.Format("2006-01-02")))

	var (
		mu     sync.Mutex
		report RunReport
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for _, poll := range r.deps.Polls {
		poll := poll
		g.Go(func() error {
			r.runSource(gctx, poll, cutoff, &mu, &report)
			return nil
		})
	}
	_ = g.Wait()

	report.Elapsed = time.Since(start)

	var runErr error
	if len(r.deps.Polls) > 0 && len(report.FailedSources) == len(r.deps.Polls) {
		runErr = errors.New(errors.CodeSourceFetchFailed, "every literature source failed to fetch")
	}

	if runErr == nil && report.Created > 0 && r.deps.Cache != nil {
		if n, err := r.deps.Cache.DeleteByPrefix(ctx, analysisCachePrefix); err != nil {
			r.logger.Warn("analysis cache invalidation failed", logging.Err(err))
		} else if n > 0 {
			r.logger.Debug("analysis cache invalidated", logging.Int64("keys", n))
		}
	}

	if r.deps.Tracker != nil {
		r.deps.Tracker.EndRun(runErr)
	}

	r.logger.Info("fetch run finished",
		logging.Int("fetched", report.Fetched),
		logging.Int("created", report.Created),
		logging.Int("skipped", report.Skipped),
		logging.Int("failed", report.Failed),
		logging.Duration("elapsed", report.Elapsed))
	return &report, runErr
}

func (r *Runner) runSource(ctx context.Context, poll Poll, cutoff time.Time, mu *sync.Mutex, report *RunReport) {
	name := poll.Source.Name()

	fetchStart := time.Now()
	docs, err := poll.Source.FetchRecent(ctx, cutoff, poll.MaxResults)
	fetchElapsed := time.Since(fetchStart)

	if r.deps.Metrics != nil {
		status := "ok"
		if err != nil {
			status = "failed"
		}
		r.deps.Metrics.SourceFetchTotal.WithLabelValues(name, status).Inc()
		r.deps.Metrics.SourceFetchDuration.WithLabelValues(name).Observe(fetchElapsed.Seconds())
	}

	if err != nil {
		r.logger.Error("source fetch failed", logging.String("source", name), logging.Err(err))
		if r.deps.Tracker != nil {
			r.deps.Tracker.RecordSource(fetchstatus.SourceResult{Source: name, Error: err.Error()})
		}
		mu.Lock()
		report.FailedSources = append(report.FailedSources, name)
		mu.Unlock()
		return
	}

	sum, err := r.deps.Service.IngestBatch(ctx, name, docs)
	if sum == nil {
		sum = &Summary{Source: name}
	}

	result := fetchstatus.SourceResult{
		Source:  name,
		Fetched: sum.Fetched,
		Created: sum.Created,
		Skipped: sum.Skipped,
		Failed:  sum.Failed,
	}
	if err != nil {
		// IngestBatch only errors on catalog load or cancellation; partial
		// counts are still worth recording.
		result.Error = err.Error()
		r.logger.Error("batch ingest aborted", logging.String("source", name), logging.Err(err))
	}
	if r.deps.Tracker != nil {
		r.deps.Tracker.RecordSource(result)
	}

	mu.Lock()
	report.Fetched += sum.Fetched
	report.Created += sum.Created
	report.Skipped += sum.Skipped
	report.Failed += sum.Failed
	mu.Unlock()
}
