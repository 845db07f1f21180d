// Package match scores the similarity between required capabilities and the
// existing resource catalog, and clusters near-duplicate resources. The
// preferred similarity metric is embedding cosine similarity; when no
// embedding provider is configured, or the provider fails, scoring falls
// back to token-set Jaccard overlap automatically and silently.
package match

import (
	"context"
	"sort"

	"github.com/openlongevity/longmap/internal/domain/capability"
	"github.com/openlongevity/longmap/internal/domain/resource"
	"github.com/openlongevity/longmap/internal/infrastructure/monitoring/logging"
	"github.com/openlongevity/longmap/internal/infrastructure/monitoring/prometheus"
)

// DefaultSimilarityThreshold is the minimum score for a resource to count as
// a match for a capability.
const DefaultSimilarityThreshold = 0.7

// Embedder turns texts into fixed-length numeric vectors. Implementations
// are treated as fallible, possibly-blocking external calls; any error
// triggers the Jaccard fallback.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// ScoredResource pairs a catalog resource with its similarity score.
type ScoredResource struct {
	Resource *resource.Resource `json:"resource"`
	Score    float64            `json:"score"`
}

// compatibleTypes keys capability types to the resource types that can
// satisfy them. A capability type absent from this table is compatible with
// every resource type.
var compatibleTypes = map[capability.Type][]resource.Type{
	capability.TypeMeasurementTool:     {resource.TypeCoreFacility, resource.TypeHardware, resource.TypeSoftware},
	capability.TypeModelSystem:         {resource.TypeMouseModel, resource.TypeCellLine},
	capability.TypeDataset:             {resource.TypeDataset, resource.TypeDatabase},
	capability.TypeComputationalMethod: {resource.TypeSoftware},
	capability.TypeSoftware:            {resource.TypeSoftware},
	capability.TypeHardware:            {resource.TypeHardware, resource.TypeCoreFacility},
	capability.TypeProtocol:            {resource.TypeProtocol},
	capability.TypeInfrastructure:      {resource.TypeCoreFacility, resource.TypeInfrastructure, resource.TypeHardware},
}

// CompatibleTypes returns the resource types that can satisfy the given
// capability type. Unmapped capability types are compatible with all
// resource types.
func CompatibleTypes(t capability.Type) []resource.Type {
	if types, ok := compatibleTypes[t]; ok {
		return types
	}
	return resource.Types()
}

// Config holds matcher tuning knobs.
type Config struct {
	// SimilarityThreshold is the minimum score kept by Match.
	SimilarityThreshold float64
}

// Deps holds matcher dependencies. Embedder may be nil, in which case every
// score uses the Jaccard fallback. Metrics is optional.
type Deps struct {
	Embedder Embedder
	Logger   logging.Logger
	Metrics  *prometheus.Metrics
}

// Matcher scores capability-resource similarity over a resource catalog.
type Matcher struct {
	embedder  Embedder
	logger    logging.Logger
	metrics   *prometheus.Metrics
	threshold float64
}

// New creates a Matcher. A zero threshold is replaced by
// DefaultSimilarityThreshold; a nil logger is replaced by a no-op logger.
func New(cfg Config, deps Deps) *Matcher {
	threshold := cfg.SimilarityThreshold
	if threshold == 0 {
		threshold = DefaultSimilarityThreshold
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Matcher{
		embedder:  deps.Embedder,
		logger:    logger,
		metrics:   deps.Metrics,
		threshold: threshold,
	}
}

// Threshold returns the matcher's similarity threshold.
func (m *Matcher) Threshold() float64 { return m.threshold }

// Match scores every active, type-compatible resource in catalog against the
// capability and returns those meeting the similarity threshold, sorted by
// score descending. Equal scores preserve catalog order, keeping the result
// deterministic for a fixed input. An empty result is valid: it means no
// adequate resource exists.
func (m *Matcher) Match(ctx context.Context, cap *capability.Capability, catalog []*resource.Resource) []ScoredResource {
	compatible := make(map[resource.Type]struct{})
	for _, t := range CompatibleTypes(cap.Type) {
		compatible[t] = struct{}{}
	}

	capText := cap.Text()

	var matches []ScoredResource
	for _, res := range catalog {
		if !res.IsActive {
			continue
		}
		if _, ok := compatible[res.Type]; !ok {
			continue
		}
		score := m.Similarity(ctx, capText, res.Text())
		if score >= m.threshold {
			matches = append(matches, ScoredResource{Resource: res, Score: score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	return matches
}

// Similarity returns the similarity of two texts: embedding cosine when a
// provider is configured and succeeds, token-set Jaccard otherwise. Provider
// failures are logged at WARN and never surfaced to the caller.
func (m *Matcher) Similarity(ctx context.Context, a, b string) float64 {
	if m.embedder == nil {
		return Jaccard(a, b)
	}

	vectors, err := m.embedder.Embed(ctx, []string{a, b})
	if err != nil || len(vectors) != 2 {
		m.logger.Warn("embedding failed, falling back to token similarity",
			logging.Err(err))
		if m.metrics != nil {
			m.metrics.EmbeddingRequestsTotal.WithLabelValues("error").Inc()
			m.metrics.EmbeddingFallbacksTotal.Inc()
		}
		return Jaccard(a, b)
	}
	if m.metrics != nil {
		m.metrics.EmbeddingRequestsTotal.WithLabelValues("success").Inc()
	}
	return Cosine(vectors[0], vectors[1])
}
