package gap

import (
	"context"

	"github.com/openlongevity/longmap/pkg/types/common"
)

// ListFilter narrows List queries.
type ListFilter struct {
	Priority *Priority
	Limit    int
	Offset   int
}

// Repository defines the persistence contract for gaps.
type Repository interface {
	// Upsert inserts the gap or replaces the existing row for the same
	// capability, preserving the at-most-one-gap-per-capability invariant.
	Upsert(ctx context.Context, g *Gap) error

	GetByID(ctx context.Context, id common.ID) (*Gap, error)
	GetByCapability(ctx context.Context, capabilityID common.ID) (*Gap, error)
	DeleteByCapability(ctx context.Context, capabilityID common.ID) error

	List(ctx context.Context, filter ListFilter) ([]*Gap, error)
	Count(ctx context.Context) (int64, error)

	// ListTopByImpact returns the n highest-impact gaps ordered by
	// impact_score descending; the funding ranker's first stage.
	ListTopByImpact(ctx context.Context, n int) ([]*Gap, error)

	// CountByPriority returns gap counts per priority tier.
	CountByPriority(ctx context.Context) (map[Priority]int64, error)

	// SumBlockedValue totals blocked_research_value over all gaps; the
	// stats endpoint's headline number.
	SumBlockedValue(ctx context.Context) (float64, error)
}
