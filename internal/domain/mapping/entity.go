// Package mapping implements the join records connecting problems to the
// capabilities they require and capabilities to the resources that could
// fill them. Mappings are owned by neither side exclusively; deleting either
// endpoint invalidates its mappings.
package mapping

import (
	"github.com/openlongevity/longmap/pkg/errors"
	"github.com/openlongevity/longmap/pkg/types/common"
)

// ProblemCapability maps a problem to a required (or optional) capability.
// The (ProblemID, CapabilityID) pair is unique.
type ProblemCapability struct {
	common.BaseEntity

	ProblemID    common.ID `json:"problem_id"`
	CapabilityID common.ID `json:"capability_id"`

	// ConfidenceScore reflects extraction confidence, bounded to [0, 1].
	ConfidenceScore float64 `json:"confidence_score"`
	IsRequired      bool    `json:"is_required"`
}

// NewProblemCapability creates a problem-capability mapping.
func NewProblemCapability(problemID, capabilityID common.ID, confidence float64, required bool) (*ProblemCapability, error) {
	if problemID.IsZero() || capabilityID.IsZero() {
		return nil, errors.InvalidParam("mapping endpoints must both be set")
	}
	if confidence < 0 || confidence > 1 {
		return nil, errors.InvalidParam("confidence score must be within [0, 1]")
	}

	return &ProblemCapability{
		BaseEntity:      common.NewBaseEntity(),
		ProblemID:       problemID,
		CapabilityID:    capabilityID,
		ConfidenceScore: confidence,
		IsRequired:      required,
	}, nil
}

// CapabilityResource maps a capability to an existing resource with a match
// score. The (CapabilityID, ResourceID) pair is unique.
type CapabilityResource struct {
	common.BaseEntity

	CapabilityID common.ID `json:"capability_id"`
	ResourceID   common.ID `json:"resource_id"`

	// MatchScore is the matcher's similarity score, bounded to [0, 1].
	MatchScore float64 `json:"match_score"`
}

// NewCapabilityResource creates a capability-resource mapping.
func NewCapabilityResource(capabilityID, resourceID common.ID, matchScore float64) (*CapabilityResource, error) {
	if capabilityID.IsZero() || resourceID.IsZero() {
		return nil, errors.InvalidParam("mapping endpoints must both be set")
	}
	if matchScore < 0 || matchScore > 1 {
		return nil, errors.InvalidParam("match score must be within [0, 1]")
	}

	return &CapabilityResource{
		BaseEntity:   common.NewBaseEntity(),
		CapabilityID: capabilityID,
		ResourceID:   resourceID,
		MatchScore:   matchScore,
	}, nil
}
