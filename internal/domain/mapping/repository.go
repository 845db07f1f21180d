package mapping

import (
	"context"

	"github.com/openlongevity/longmap/pkg/types/common"
)

// ProblemCapabilityRepository defines the persistence contract for
// problem-capability mappings.
type ProblemCapabilityRepository interface {
	// Upsert inserts the mapping, or leaves the existing row for the same
	// (problem, capability) pair untouched.
	Upsert(ctx context.Context, m *ProblemCapability) error

	ListByProblem(ctx context.Context, problemID common.ID) ([]*ProblemCapability, error)
	ListByCapability(ctx context.Context, capabilityID common.ID) ([]*ProblemCapability, error)

	// CountRequiredByCapability counts mappings with is_required=true for the
	// capability; the gap scorer's blocked-problem count.
	CountRequiredByCapability(ctx context.Context, capabilityID common.ID) (int64, error)

	DeleteByProblem(ctx context.Context, problemID common.ID) error
}

// CapabilityResourceRepository defines the persistence contract for
// capability-resource mappings.
type CapabilityResourceRepository interface {
	// Upsert inserts the mapping, or updates the match score of the existing
	// row for the same (capability, resource) pair.
	Upsert(ctx context.Context, m *CapabilityResource) error

	ListByCapability(ctx context.Context, capabilityID common.ID) ([]*CapabilityResource, error)

	// HasMatchAbove reports whether any mapping for the capability carries a
	// match score at or above threshold; the gap scorer's existing-match test.
	HasMatchAbove(ctx context.Context, capabilityID common.ID, threshold float64) (bool, error)

	DeleteByResource(ctx context.Context, resourceID common.ID) error
}
