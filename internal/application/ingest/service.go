// Package ingest turns raw literature documents into persisted problems,
// capabilities and mappings. It is the write path of the engine: the worker
// feeds it fetched documents, the event consumer feeds it externally
// submitted problems, and everything downstream (gap analysis, the API) reads
// what it wrote.
package ingest

import (
	"context"
	"time"

	"github.com/openlongevity/longmap/internal/analysis/classify"
	"github.com/openlongevity/longmap/internal/analysis/extract"
	"github.com/openlongevity/longmap/internal/analysis/match"
	"github.com/openlongevity/longmap/internal/domain/capability"
	"github.com/openlongevity/longmap/internal/domain/mapping"
	"github.com/openlongevity/longmap/internal/domain/problem"
	"github.com/openlongevity/longmap/internal/domain/resource"
	"github.com/openlongevity/longmap/internal/infrastructure/messaging/kafka"
	"github.com/openlongevity/longmap/internal/infrastructure/monitoring/logging"
	"github.com/openlongevity/longmap/internal/infrastructure/monitoring/prometheus"
	"github.com/openlongevity/longmap/internal/infrastructure/sources"
	"github.com/openlongevity/longmap/internal/infrastructure/storage/minio"
	"github.com/openlongevity/longmap/pkg/errors"
)

// extractionConfidence is attached to every problem-capability mapping the
// extractor produces. The pattern path has no per-match score, so a single
// moderately-high value applies.
const extractionConfidence = 0.8

// Outcome of ingesting one document.
const (
	StatusCreated   = "created"
	StatusDuplicate = "duplicate"
)

// Archiver persists raw source payloads. Satisfied by *minio.Archive.
type Archiver interface {
	Store(ctx context.Context, p minio.Payload) (string, error)
}

// EventPublisher emits domain events. Satisfied by *kafka.Producer.
type EventPublisher interface {
	Publish(ctx context.Context, topic, key string, env *kafka.Envelope) error
}

// Deps wires the service. Archive, Events and Metrics are optional; a nil
// value disables that side effect.
type Deps struct {
	Problems            problem.Repository
	Capabilities        capability.Repository
	Resources           resource.Repository
	ProblemCapabilities mapping.ProblemCapabilityRepository
	CapabilityResources mapping.CapabilityResourceRepository

	Classifier *classify.Classifier
	Extractor  *extract.Extractor
	Matcher    *match.Matcher

	Archive Archiver
	Events  EventPublisher
	Metrics *prometheus.Metrics
	Logger  logging.Logger
}

// Service ingests documents and manually submitted problems.
type Service struct {
	deps   Deps
	logger logging.Logger
}

// NewService creates the ingest service. The repositories, classifier,
// extractor and matcher are required.
func NewService(deps Deps) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{deps: deps, logger: logger.Named("ingest")}
}

// Result describes what one ingested document produced.
type Result struct {
	Status       string    `json:"status"`
	ProblemID    string    `json:"problem_id,omitempty"`
	Title        string    `json:"title,omitempty"`
	Category     string    `json:"category,omitempty"`
	Capabilities int       `json:"capabilities"`
	Matches      int       `json:"matches"`
	IngestedAt   time.Time `json:"ingested_at"`
}

// Summary aggregates a batch of documents from one source.
type Summary struct {
	Source  string `json:"source"`
	Fetched int    `json:"fetched"`
	Created int    `json:"created"`
	Skipped int    `json:"skipped"`
	Failed  int    `json:"failed"`
}

// IngestDocument runs the full pipeline for a single fetched document:
// dedup on (source, source_id), classify, persist the problem, extract and
// upsert capabilities, map them to the problem, match them against the active
// resource catalog, archive the raw payload and emit problem.ingested.
func (s *Service) IngestDocument(ctx context.Context, doc sources.Document) (*Result, error) {
	catalog, err := s.deps.Resources.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	return s.ingestDocument(ctx, doc, catalog)
}

// IngestBatch ingests every document against a catalog loaded once. A
// document failing is counted and logged, not fatal: the rest of the batch
// still lands.
func (s *Service) IngestBatch(ctx context.Context, source string, docs []sources.Document) (*Summary, error) {
	catalog, err := s.deps.Resources.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	sum := &Summary{Source: source, Fetched: len(docs)}
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		res, err := s.ingestDocument(ctx, doc, catalog)
		switch {
		case err != nil:
			sum.Failed++
			s.logger.Warn("document ingest failed",
				logging.String("source", doc.Source),
				logging.String("source_id", doc.SourceID),
				logging.Err(err))
		case res.Status == StatusDuplicate:
			sum.Skipped++
		default:
			sum.Created++
		}
	}
	return sum, nil
}

// CreateProblemInput is a manually submitted problem, arriving over the
// problem.submitted topic or the API. Category is optional; when empty the
// classifier decides.
type CreateProblemInput struct {
	Title       string
	Description string
	Category    string
	Source      string
	SourceID    string
	SourceURL   string
}

// CreateProblem ingests a hand-curated problem. It runs the same extraction
// and matching pipeline as fetched documents; only parsing differs.
func (s *Service) CreateProblem(ctx context.Context, input CreateProblemInput) (*Result, error) {
	title := input.Title
	description := input.Description
	if title == "" {
		title, description = classify.SplitTitleDescription(description)
	}
	if title == "" {
		return nil, errors.Validation("problem title is required")
	}
	if description == "" {
		description = title
	}

	category, ok := problem.ParseCategory(input.Category)
	if !ok {
		if input.Category != "" {
			return nil, errors.InvalidParam("unknown category: " + input.Category)
		}
		category = s.deps.Classifier.Classify(title + "\n\n" + description)
	}

	if input.Source != "" && input.SourceID != "" {
		exists, err := s.deps.Problems.ExistsBySource(ctx, input.Source, input.SourceID)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, errors.Newf(errors.CodeDuplicateProblem,
				"problem %s/%s already exists", input.Source, input.SourceID)
		}
	}

	p, err := problem.New(title, description, category)
	if err != nil {
		return nil, err
	}
	if input.Source != "" {
		p.WithSource(input.Source, input.SourceID, input.SourceURL)
	}

	catalog, err := s.deps.Resources.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	return s.persistProblem(ctx, p, description, catalog)
}

func (s *Service) ingestDocument(ctx context.Context, doc sources.Document, catalog []*resource.Resource) (*Result, error) {
	if doc.Source == "" || doc.SourceID == "" {
		return nil, errors.Validation("document needs a source and source_id")
	}

	exists, err := s.deps.Problems.ExistsBySource(ctx, doc.Source, doc.SourceID)
	if err != nil {
		return nil, err
	}
	if exists {
		s.countIngested(doc.Source, StatusDuplicate)
		return &Result{Status: StatusDuplicate}, nil
	}

	title := doc.Title
	description := doc.Abstract
	if title == "" {
		title, description = classify.SplitTitleDescription(doc.Text())
	}
	if title == "" {
		s.countIngested(doc.Source, "failed")
		return nil, errors.New(errors.CodeSourceParseFailed, "document has no usable title")
	}

	if description == "" {
		// Abstract-less records still carry signal in the title.
		description = title
	}

	category := s.deps.Classifier.Classify(doc.Text())

	p, err := problem.New(title, description, category)
	if err != nil {
		s.countIngested(doc.Source, "failed")
		return nil, err
	}
	p.WithSource(doc.Source, doc.SourceID, doc.URL)

	s.archive(ctx, doc)

	res, err := s.persistProblem(ctx, p, description, catalog)
	if err != nil {
		s.countIngested(doc.Source, "failed")
		return nil, err
	}
	s.countIngested(doc.Source, StatusCreated)
	return res, nil
}

// persistProblem writes the problem and everything derived from it. The
// description drives extraction; the classifier has already seen the full
// text.
func (s *Service) persistProblem(ctx context.Context, p *problem.Problem, description string, catalog []*resource.Resource) (*Result, error) {
	if err := s.deps.Problems.Create(ctx, p); err != nil {
		return nil, err
	}

	result := &Result{
		Status:     StatusCreated,
		ProblemID:  string(p.ID),
		Title:      p.Title,
		Category:   string(p.Category),
		IngestedAt: time.Now().UTC(),
	}

	for _, extracted := range s.deps.Extractor.Extract(description) {
		canonical, err := s.deps.Capabilities.Upsert(ctx, extracted)
		if err != nil {
			return nil, err
		}
		if s.deps.Metrics != nil {
			s.deps.Metrics.CapabilitiesExtracted.WithLabelValues(string(canonical.Type)).Inc()
		}

		pc, err := mapping.NewProblemCapability(p.ID, canonical.ID, extractionConfidence, true)
		if err != nil {
			return nil, err
		}
		if err := s.deps.ProblemCapabilities.Upsert(ctx, pc); err != nil {
			return nil, err
		}
		result.Capabilities++

		for _, scored := range s.deps.Matcher.Match(ctx, canonical, catalog) {
			cr, err := mapping.NewCapabilityResource(canonical.ID, scored.Resource.ID, scored.Score)
			if err != nil {
				return nil, err
			}
			if err := s.deps.CapabilityResources.Upsert(ctx, cr); err != nil {
				return nil, err
			}
			result.Matches++
		}
	}

	s.publishIngested(ctx, p)
	return result, nil
}

// archive stores the raw payload. Archival failure never fails the ingest;
// the document itself has already been parsed.
func (s *Service) archive(ctx context.Context, doc sources.Document) {
	if s.deps.Archive == nil || len(doc.Raw) == 0 {
		return
	}

	_, err := s.deps.Archive.Store(ctx, minio.Payload{
		Source:      doc.Source,
		SourceID:    doc.SourceID,
		ContentType: "application/json",
		FetchedAt:   time.Now().UTC(),
		Body:        doc.Raw,
	})
	status := "ok"
	if err != nil {
		status = "failed"
		s.logger.Warn("payload archive failed",
			logging.String("source", doc.Source),
			logging.String("source_id", doc.SourceID),
			logging.Err(err))
	}
	if s.deps.Metrics != nil {
		s.deps.Metrics.PayloadsArchivedTotal.WithLabelValues(status).Inc()
	}
}

func (s *Service) publishIngested(ctx context.Context, p *problem.Problem) {
	if s.deps.Events == nil {
		return
	}

	env, err := kafka.NewEnvelope(kafka.TopicProblemIngested, "ingest", kafka.ProblemIngestedPayload{
		ProblemID:  string(p.ID),
		Title:      p.Title,
		Category:   string(p.Category),
		Source:     p.Source,
		SourceID:   p.SourceID,
		IngestedAt: time.Now().UTC(),
	})
	if err != nil {
		s.logger.Warn("build problem.ingested event", logging.Err(err))
		return
	}

	status := "ok"
	if err := s.deps.Events.Publish(ctx, kafka.TopicProblemIngested, string(p.ID), env); err != nil {
		status = "failed"
		s.logger.Warn("publish problem.ingested",
			logging.String("problem_id", string(p.ID)),
			logging.Err(err))
	}
	if s.deps.Metrics != nil {
		s.deps.Metrics.EventsPublishedTotal.WithLabelValues(kafka.TopicProblemIngested, status).Inc()
	}
}

func (s *Service) countIngested(source, status string) {
	if s.deps.Metrics != nil {
		s.deps.Metrics.ProblemsIngestedTotal.WithLabelValues(source, status).Inc()
	}
}
