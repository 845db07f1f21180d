package capability

import (
	"context"

	"github.com/openlongevity/longmap/pkg/types/common"
)

// WithProblemCount pairs a capability with the number of problems mapped to
// it; used by the keystone-capability query.
type WithProblemCount struct {
	Capability   *Capability `json:"capability"`
	ProblemCount int64       `json:"problem_count"`
}

// Repository defines the persistence contract for capabilities.
type Repository interface {
	Create(ctx context.Context, c *Capability) error
	GetByID(ctx context.Context, id common.ID) (*Capability, error)

	// GetByNameAndType resolves the (name, type) uniqueness key. Returns a
	// CodeNotFound error when absent.
	GetByNameAndType(ctx context.Context, name string, typ Type) (*Capability, error)

	// Upsert inserts the capability or, when the (name, type) key already
	// exists, returns the persisted row without modifying it. The returned
	// capability always carries the canonical persisted ID.
	Upsert(ctx context.Context, c *Capability) (*Capability, error)

	List(ctx context.Context, limit, offset int) ([]*Capability, error)
	Count(ctx context.Context) (int64, error)

	// ListKeystone returns the top-n capabilities ordered by the number of
	// problems that require them.
	ListKeystone(ctx context.Context, n int) ([]*WithProblemCount, error)
}
