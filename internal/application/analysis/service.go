// Package analysis orchestrates the pure scoring core over the repositories:
// catalog-wide gap analysis, keystone capabilities, duplication clusters,
// coordination opportunities, funding ranking and platform statistics. All
// read-side answers are cacheable; every gap-analysis run invalidates them.
package analysis

import (
	"context"
	"time"

	"github.com/openlongevity/longmap/internal/analysis/funding"
	"github.com/openlongevity/longmap/internal/analysis/gapscore"
	"github.com/openlongevity/longmap/internal/analysis/match"
	"github.com/openlongevity/longmap/internal/domain/capability"
	"github.com/openlongevity/longmap/internal/domain/gap"
	"github.com/openlongevity/longmap/internal/domain/mapping"
	"github.com/openlongevity/longmap/internal/domain/problem"
	"github.com/openlongevity/longmap/internal/domain/resource"
	"github.com/openlongevity/longmap/internal/infrastructure/messaging/kafka"
	"github.com/openlongevity/longmap/internal/infrastructure/monitoring/logging"
	"github.com/openlongevity/longmap/internal/infrastructure/monitoring/prometheus"
	"github.com/openlongevity/longmap/pkg/errors"
)

const (
	// cachePrefix heads every cached analysis answer. The ingest runner and
	// RunGapAnalysis both invalidate this prefix.
	cachePrefix = "analysis:"

	reportTTL = 10 * time.Minute
	statsTTL  = time.Minute

	// capabilityPageSize bounds how many capabilities one repository page of
	// the analysis run loads.
	capabilityPageSize = 500
)

// ResultCache caches serialized analysis answers. Satisfied by redis.Cache.
type ResultCache interface {
	GetOrSet(ctx context.Context, key string, dest interface{}, ttl time.Duration, loader func(ctx context.Context) (interface{}, error)) error
	DeleteByPrefix(ctx context.Context, prefix string) (int64, error)
}

// EventPublisher emits domain events. Satisfied by *kafka.Producer.
type EventPublisher interface {
	Publish(ctx context.Context, topic, key string, env *kafka.Envelope) error
}

// Deps wires the analysis service. Cache, Events and Metrics are optional.
type Deps struct {
	Problems            problem.Repository
	Capabilities        capability.Repository
	Resources           resource.Repository
	ProblemCapabilities mapping.ProblemCapabilityRepository
	CapabilityResources mapping.CapabilityResourceRepository
	Gaps                gap.Repository

	Scorer  *gapscore.Scorer
	Funding *funding.Scorer
	Matcher *match.Matcher

	// DuplicateThreshold is the similarity at which two resources count as
	// duplicates. Zero falls back to the matcher's package default.
	DuplicateThreshold float64

	Cache   ResultCache
	Events  EventPublisher
	Metrics *prometheus.Metrics
	Logger  logging.Logger
}

// Service answers every analysis question the API and CLI expose.
type Service struct {
	deps   Deps
	logger logging.Logger
}

// NewService creates the analysis service. Repositories, Scorer, Funding and
// Matcher are required.
func NewService(deps Deps) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{deps: deps, logger: logger.Named("analysis")}
}

// RunSummary describes one catalog-wide gap analysis pass.
type RunSummary struct {
	CapabilitiesScored int           `json:"capabilities_scored"`
	GapsOpen           int           `json:"gaps_open"`
	GapsClosed         int           `json:"gaps_closed"`
	Elapsed            time.Duration `json:"elapsed"`
}

// RunGapAnalysis re-scores every capability in the catalog. A capability with
// a resource mapping at or above the match threshold has its gap removed;
// every other capability gets its gap written (or rewritten). The pass is
// idempotent: running it twice against unchanged data yields identical rows.
func (s *Service) RunGapAnalysis(ctx context.Context) (*RunSummary, error) {
	start := time.Now()
	summary := &RunSummary{}

	for offset := 0; ; offset += capabilityPageSize {
		page, err := s.deps.Capabilities.List(ctx, capabilityPageSize, offset)
		if err != nil {
			s.finishRun(ctx, summary, start, err)
			return nil, err
		}
		if len(page) == 0 {
			break
		}

		for _, c := range page {
			if err := ctx.Err(); err != nil {
				s.finishRun(ctx, summary, start, err)
				return nil, err
			}
			if err := s.scoreCapability(ctx, c, summary); err != nil {
				s.finishRun(ctx, summary, start, err)
				return nil, err
			}
			summary.CapabilitiesScored++
		}

		if len(page) < capabilityPageSize {
			break
		}
	}

	summary.Elapsed = time.Since(start)
	s.finishRun(ctx, summary, start, nil)
	return summary, nil
}

func (s *Service) scoreCapability(ctx context.Context, c *capability.Capability, summary *RunSummary) error {
	numBlocked, err := s.deps.ProblemCapabilities.CountRequiredByCapability(ctx, c.ID)
	if err != nil {
		return err
	}
	hasMatch, err := s.deps.CapabilityResources.HasMatchAbove(ctx, c.ID, gapscore.MatchThreshold())
	if err != nil {
		return err
	}

	g := s.deps.Scorer.Score(c, int(numBlocked), hasMatch)
	if g == nil {
		// Served capability: drop its gap if one was recorded earlier.
		_, err := s.deps.Gaps.GetByCapability(ctx, c.ID)
		if errors.IsNotFound(err) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := s.deps.Gaps.DeleteByCapability(ctx, c.ID); err != nil {
			return err
		}
		summary.GapsClosed++
		return nil
	}

	if err := s.deps.Gaps.Upsert(ctx, g); err != nil {
		return err
	}
	summary.GapsOpen++

	if s.deps.Metrics != nil {
		s.deps.Metrics.GapsDetectedTotal.WithLabelValues(string(g.Priority)).Inc()
	}
	s.publishGapDetected(ctx, g, c)
	return nil
}

// finishRun records run metrics, refreshes the open-gap gauge, emits
// analysis.completed and invalidates cached answers. Failures here are
// logged, never returned: the run's own error already decides the outcome.
func (s *Service) finishRun(ctx context.Context, summary *RunSummary, start time.Time, runErr error) {
	elapsed := time.Since(start)

	if s.deps.Metrics != nil {
		status := "ok"
		if runErr != nil {
			status = "failed"
		}
		s.deps.Metrics.AnalysisRunsTotal.WithLabelValues(status).Inc()
		s.deps.Metrics.AnalysisRunDuration.Observe(elapsed.Seconds())
	}

	if runErr != nil {
		s.logger.Error("gap analysis run failed",
			logging.Int("capabilities_scored", summary.CapabilitiesScored),
			logging.Err(runErr))
		return
	}

	s.refreshOpenGapsGauge(ctx)

	if s.deps.Cache != nil {
		if _, err := s.deps.Cache.DeleteByPrefix(ctx, cachePrefix); err != nil {
			s.logger.Warn("analysis cache invalidation failed", logging.Err(err))
		}
	}

	if s.deps.Events != nil {
		env, err := kafka.NewEnvelope(kafka.TopicAnalysisCompleted, "analysis", kafka.AnalysisCompletedPayload{
			CapabilitiesScored: summary.CapabilitiesScored,
			GapsOpen:           summary.GapsOpen,
			GapsClosed:         summary.GapsClosed,
			Elapsed:            elapsed.String(),
			CompletedAt:        time.Now().UTC(),
		})
		if err == nil {
			err = s.deps.Events.Publish(ctx, kafka.TopicAnalysisCompleted, "", env)
		}
		if err != nil {
			s.logger.Warn("publish analysis.completed", logging.Err(err))
		}
	}

	s.logger.Info("gap analysis run finished",
		logging.Int("capabilities_scored", summary.CapabilitiesScored),
		logging.Int("gaps_open", summary.GapsOpen),
		logging.Int("gaps_closed", summary.GapsClosed),
		logging.Duration("elapsed", elapsed))
}

func (s *Service) refreshOpenGapsGauge(ctx context.Context) {
	if s.deps.Metrics == nil {
		return
	}
	counts, err := s.deps.Gaps.CountByPriority(ctx)
	if err != nil {
		s.logger.Warn("open-gap gauge refresh failed", logging.Err(err))
		return
	}
	for _, p := range []gap.Priority{gap.PriorityCritical, gap.PriorityHigh, gap.PriorityMedium, gap.PriorityLow} {
		s.deps.Metrics.GapsOpen.WithLabelValues(string(p)).Set(float64(counts[p]))
	}
}

func (s *Service) publishGapDetected(ctx context.Context, g *gap.Gap, c *capability.Capability) {
	if s.deps.Events == nil {
		return
	}

	env, err := kafka.NewEnvelope(kafka.TopicGapDetected, "analysis", kafka.GapDetectedPayload{
		GapID:              g.ID.String(),
		CapabilityID:       c.ID.String(),
		CapabilityName:     c.Name,
		Priority:           string(g.Priority),
		ImpactScore:        g.ImpactScore,
		NumBlockedProblems: g.NumBlockedProblems,
		DetectedAt:         time.Now().UTC(),
	})
	if err == nil {
		err = s.deps.Events.Publish(ctx, kafka.TopicGapDetected, g.ID.String(), env)
	}
	if err != nil {
		s.logger.Warn("publish gap.detected",
			logging.String("gap_id", g.ID.String()),
			logging.Err(err))
	}
}
