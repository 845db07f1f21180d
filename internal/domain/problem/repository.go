package problem

import (
	"context"

	"github.com/openlongevity/longmap/pkg/types/common"
)

// ListFilter narrows List queries.
type ListFilter struct {
	Category *Category
	Source   string
	Limit    int
	Offset   int
}

// Repository defines the persistence contract for problems.
type Repository interface {
	Create(ctx context.Context, p *Problem) error
	GetByID(ctx context.Context, id common.ID) (*Problem, error)

	// GetBySource resolves a problem by its (source, source_id) dedup key.
	// Returns a CodeNotFound error when absent.
	GetBySource(ctx context.Context, source, sourceID string) (*Problem, error)

	// ExistsBySource reports whether a problem with the given dedup key is
	// already persisted; the ingest pipeline uses it to skip re-parsing.
	ExistsBySource(ctx context.Context, source, sourceID string) (bool, error)

	List(ctx context.Context, filter ListFilter) ([]*Problem, error)
	Count(ctx context.Context) (int64, error)

	// CountByCategory returns the number of problems per category, used by
	// the matrix summary endpoint.
	CountByCategory(ctx context.Context) (map[Category]int64, error)
}
