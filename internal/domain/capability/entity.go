// Package capability implements the Capability bounded context: a required
// tool, technology, dataset, or method needed to address research problems.
package capability

import (
	"strings"

	"github.com/openlongevity/longmap/pkg/errors"
	"github.com/openlongevity/longmap/pkg/types/common"
)

// ─────────────────────────────────────────────────────────────────────────────
// Type enumeration
// ─────────────────────────────────────────────────────────────────────────────

// Type classifies what kind of capability is required.
type Type string

const (
	TypeMeasurementTool     Type = "measurement_tool"
	TypeModelSystem         Type = "model_system"
	TypeDataset             Type = "dataset"
	TypeComputationalMethod Type = "computational_method"
	TypeInfrastructure      Type = "infrastructure"
	TypeSoftware            Type = "software"
	TypeHardware            Type = "hardware"
	TypeProtocol            Type = "protocol"
	TypeOther               Type = "other"
)

// Types lists every capability type in declaration order.
func Types() []Type {
	return []Type{
		TypeMeasurementTool,
		TypeModelSystem,
		TypeDataset,
		TypeComputationalMethod,
		TypeInfrastructure,
		TypeSoftware,
		TypeHardware,
		TypeProtocol,
		TypeOther,
	}
}

// IsValid reports whether t is a recognised capability type.
func (t Type) IsValid() bool {
	switch t {
	case TypeMeasurementTool, TypeModelSystem, TypeDataset,
		TypeComputationalMethod, TypeInfrastructure, TypeSoftware,
		TypeHardware, TypeProtocol, TypeOther:
		return true
	}
	return false
}

// String returns the wire value of the type.
func (t Type) String() string { return string(t) }

// ParseType coerces a free-form string to a Type, mapping unrecognised input
// to TypeOther with ok=false.
func ParseType(s string) (typ Type, ok bool) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	if t.IsValid() {
		return t, true
	}
	return TypeOther, false
}

// ─────────────────────────────────────────────────────────────────────────────
// Capability entity
// ─────────────────────────────────────────────────────────────────────────────

// Capability represents a required capability for solving problems. The
// (Name, Type) pair is unique at persistence time; the extractor fills
// EstimatedCost, EstimatedTime, and ComplexityScore heuristically when the
// source text does not supply them.
type Capability struct {
	common.BaseEntity

	Name        string `json:"name"`
	Description string `json:"description"`
	Type        Type   `json:"type"`

	// EstimatedCost is in USD; EstimatedTime in months.
	EstimatedCost float64 `json:"estimated_cost,omitempty"`
	EstimatedTime int     `json:"estimated_time,omitempty"`

	// ComplexityScore is bounded to [0, 1].
	ComplexityScore float64 `json:"complexity_score,omitempty"`
}

// New creates a Capability, enforcing construction invariants.
func New(name, description string, typ Type) (*Capability, error) {
	if name == "" {
		return nil, errors.InvalidParam("capability name must not be empty")
	}
	if !typ.IsValid() {
		return nil, errors.InvalidParam("unrecognised capability type: " + string(typ))
	}

	return &Capability{
		BaseEntity:  common.NewBaseEntity(),
		Name:        name,
		Description: description,
		Type:        typ,
	}, nil
}

// SetEstimates records cost (USD), time (months), and complexity for the
// capability. Complexity outside [0, 1] is rejected.
func (c *Capability) SetEstimates(cost float64, months int, complexity float64) error {
	if complexity < 0 || complexity > 1 {
		return errors.InvalidParam("complexity score must be within [0, 1]")
	}
	c.EstimatedCost = cost
	c.EstimatedTime = months
	c.ComplexityScore = complexity
	c.Touch()
	return nil
}

// Text returns the concatenated name and description used as similarity input
// by the resource matcher.
func (c *Capability) Text() string {
	if c.Description == "" {
		return c.Name
	}
	return c.Name + " " + c.Description
}

// Key returns the (name, type) uniqueness key, lower-cased.
func (c *Capability) Key() string {
	return strings.ToLower(c.Name) + "|" + string(c.Type)
}
