// Package gap implements the Gap bounded context: a required capability with
// no adequately matching resource, representing an unmet infrastructure need.
package gap

import (
	"github.com/openlongevity/longmap/pkg/errors"
	"github.com/openlongevity/longmap/pkg/types/common"
)

// ─────────────────────────────────────────────────────────────────────────────
// Priority enumeration
// ─────────────────────────────────────────────────────────────────────────────

// Priority tiers a gap by the research value it blocks.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// IsValid reports whether p is a recognised priority value.
func (p Priority) IsValid() bool {
	switch p {
	case PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// String returns the wire value of the priority.
func (p Priority) String() string { return string(p) }

// Rank orders priorities for comparison: critical=3 … low=0. Unknown values
// rank below low.
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 3
	case PriorityHigh:
		return 2
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 0
	}
	return -1
}

// ─────────────────────────────────────────────────────────────────────────────
// Gap entity
// ─────────────────────────────────────────────────────────────────────────────

// Gap represents a missing capability. At most one gap exists per capability;
// that uniqueness is enforced by the repository, not by the scorer that
// produces Gap values.
type Gap struct {
	common.BaseEntity

	CapabilityID common.ID `json:"capability_id"`
	Description  string    `json:"description"`

	// EstimatedCost (USD) and EstimatedTime (months) are copied from the
	// capability at scoring time.
	EstimatedCost float64 `json:"estimated_cost,omitempty"`
	EstimatedTime int     `json:"estimated_time,omitempty"`

	// BlockedResearchValue is the heuristic dollar-value proxy for research
	// impeded by this gap.
	BlockedResearchValue float64 `json:"blocked_research_value"`
	NumBlockedProblems   int     `json:"num_blocked_problems"`

	Priority Priority `json:"priority"`

	// ImpactScore is bounded to [0, 1].
	ImpactScore float64 `json:"impact_score"`
}

// New creates a Gap for the given capability, enforcing construction
// invariants: the capability reference must be set, the priority recognised,
// and the impact score within [0, 1].
func New(capabilityID common.ID, description string, priority Priority, impactScore float64) (*Gap, error) {
	if capabilityID.IsZero() {
		return nil, errors.InvalidParam("gap capability id must be set")
	}
	if !priority.IsValid() {
		return nil, errors.InvalidParam("unrecognised gap priority: " + string(priority))
	}
	if impactScore < 0 || impactScore > 1 {
		return nil, errors.InvalidParam("gap impact score must be within [0, 1]")
	}

	return &Gap{
		BaseEntity:   common.NewBaseEntity(),
		CapabilityID: capabilityID,
		Description:  description,
		Priority:     priority,
		ImpactScore:  impactScore,
	}, nil
}
