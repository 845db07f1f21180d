// Package indexer keeps the resource vector index in step with the catalog.
// The worker resyncs after every fetch run so duplicate pre-screening always
// searches current embeddings.
package indexer

import (
	"context"

	"github.com/openlongevity/longmap/internal/domain/resource"
	"github.com/openlongevity/longmap/internal/infrastructure/monitoring/logging"
	"github.com/openlongevity/longmap/internal/infrastructure/search/milvus"
	"github.com/openlongevity/longmap/pkg/errors"
	"github.com/openlongevity/longmap/pkg/types/common"
)

// embedBatchSize bounds one embedding request; provider limits sit well
// above this.
const embedBatchSize = 64

// listPageSize pages the catalog scan that prunes deactivated resources.
const listPageSize = 500

// defaultSimilarTopK is the Similar result size when the caller passes 0.
const defaultSimilarTopK = 10

// VectorIndex is the slice of the milvus index the service needs.
type VectorIndex interface {
	EnsureCollection(ctx context.Context) error
	Upsert(ctx context.Context, items []milvus.ResourceVector) error
	DeleteByID(ctx context.Context, id common.ID) error
	Search(ctx context.Context, vector []float32, topK int, types []string) ([]milvus.Hit, error)
}

// Embedder turns resource texts into vectors. Satisfied by the embedding
// provider.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Service synchronizes active resources into the vector index.
type Service struct {
	resources resource.Repository
	embedder  Embedder
	index     VectorIndex
	logger    logging.Logger
}

func New(resources resource.Repository, embedder Embedder, index VectorIndex, logger logging.Logger) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{
		resources: resources,
		embedder:  embedder,
		index:     index,
		logger:    logger.Named("indexer"),
	}
}

// SyncActive embeds every active resource and upserts it into the index,
// then prunes entries for deactivated resources. It returns the number of
// resources indexed.
func (s *Service) SyncActive(ctx context.Context) (int, error) {
	if err := s.index.EnsureCollection(ctx); err != nil {
		return 0, err
	}

	active, err := s.resources.ListActive(ctx)
	if err != nil {
		return 0, err
	}

	indexed := 0
	for start := 0; start < len(active); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(active) {
			end = len(active)
		}
		batch := active[start:end]

		texts := make([]string, len(batch))
		for i, r := range batch {
			texts[i] = r.Text()
		}
		vectors, err := s.embedder.Embed(ctx, texts)
		if err != nil {
			return indexed, errors.Wrap(err, errors.CodeEmbeddingFailed, "failed to embed resource batch")
		}
		if len(vectors) != len(batch) {
			return indexed, errors.New(errors.CodeEmbeddingFailed, "embedding count does not match batch size")
		}

		items := make([]milvus.ResourceVector, len(batch))
		for i, r := range batch {
			items[i] = milvus.ResourceVector{ID: r.ID, Type: string(r.Type), Vector: vectors[i]}
		}
		if err := s.index.Upsert(ctx, items); err != nil {
			return indexed, err
		}
		indexed += len(batch)
	}

	pruned, err := s.pruneInactive(ctx)
	if err != nil {
		return indexed, err
	}

	s.logger.Info("resource index synced",
		logging.Int("resources", indexed),
		logging.Int("pruned", pruned),
	)
	return indexed, nil
}

// pruneInactive removes index entries for resources deactivated since the
// last sync. Deleting an absent id is a no-op in milvus, so the pass is
// idempotent.
func (s *Service) pruneInactive(ctx context.Context) (int, error) {
	pruned := 0
	for offset := 0; ; offset += listPageSize {
		page, err := s.resources.List(ctx, resource.ListFilter{Limit: listPageSize, Offset: offset})
		if err != nil {
			return pruned, err
		}
		for _, r := range page {
			if r.IsActive {
				continue
			}
			if err := s.Remove(ctx, r.ID); err != nil {
				return pruned, err
			}
			pruned++
		}
		if len(page) < listPageSize {
			return pruned, nil
		}
	}
}

// Remove drops one resource from the index.
func (s *Service) Remove(ctx context.Context, id common.ID) error {
	return s.index.DeleteByID(ctx, id)
}

// SimilarResource pairs a catalog resource with its vector similarity to the
// query resource.
type SimilarResource struct {
	Resource *resource.Resource `json:"resource"`
	Score    float64            `json:"score"`
}

// Similar returns the topK resources closest to the given one in the vector
// index, excluding the resource itself. Hits whose rows have since been
// deleted are skipped.
func (s *Service) Similar(ctx context.Context, id common.ID, topK int) ([]SimilarResource, error) {
	base, err := s.resources.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = defaultSimilarTopK
	}

	vectors, err := s.embedder.Embed(ctx, []string{base.Text()})
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeEmbeddingFailed, "failed to embed query resource")
	}
	if len(vectors) != 1 {
		return nil, errors.New(errors.CodeEmbeddingFailed, "embedding count does not match query size")
	}

	// One extra hit absorbs the query resource matching itself.
	hits, err := s.index.Search(ctx, vectors[0], topK+1, nil)
	if err != nil {
		return nil, err
	}

	out := make([]SimilarResource, 0, len(hits))
	for _, h := range hits {
		if h.ID == id {
			continue
		}
		r, err := s.resources.GetByID(ctx, h.ID)
		if err != nil {
			if errors.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		out = append(out, SimilarResource{Resource: r, Score: float64(h.Score)})
		if len(out) == topK {
			break
		}
	}
	return out, nil
}
