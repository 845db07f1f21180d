package resource

import (
	"context"

	"github.com/openlongevity/longmap/pkg/types/common"
)

// ListFilter narrows List queries.
type ListFilter struct {
	Types      []Type
	ActiveOnly bool
	Limit      int
	Offset     int
}

// Repository defines the persistence contract for resources.
type Repository interface {
	Create(ctx context.Context, r *Resource) error
	GetByID(ctx context.Context, id common.ID) (*Resource, error)
	Update(ctx context.Context, r *Resource) error

	List(ctx context.Context, filter ListFilter) ([]*Resource, error)
	Count(ctx context.Context) (int64, error)

	// ListActive returns every active resource in stable catalog order
	// (creation order). The matcher and the duplication detector depend on
	// this order being deterministic.
	ListActive(ctx context.Context) ([]*Resource, error)

	// ListActiveByTypes returns active resources restricted to the given
	// types, in the same stable catalog order.
	ListActiveByTypes(ctx context.Context, types []Type) ([]*Resource, error)
}
