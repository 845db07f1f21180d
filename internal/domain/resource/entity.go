// Package resource implements the Resource bounded context: an existing,
// concrete asset (facility, dataset, model line, software) that may satisfy
// a required capability.
package resource

import (
	"strings"

	"github.com/openlongevity/longmap/pkg/errors"
	"github.com/openlongevity/longmap/pkg/types/common"
)

// ─────────────────────────────────────────────────────────────────────────────
// Type enumeration
// ─────────────────────────────────────────────────────────────────────────────

// Type classifies an existing resource.
type Type string

const (
	TypeCoreFacility   Type = "core_facility"
	TypeDataset        Type = "dataset"
	TypeCRO            Type = "cro"
	TypeSoftware       Type = "software"
	TypeHardware       Type = "hardware"
	TypeMouseModel     Type = "mouse_model"
	TypeCellLine       Type = "cell_line"
	TypeProtocol       Type = "protocol"
	TypeDatabase       Type = "database"
	TypeInfrastructure Type = "infrastructure"
	TypeOther          Type = "other"
)

// Types lists every resource type in declaration order.
func Types() []Type {
	return []Type{
		TypeCoreFacility,
		TypeDataset,
		TypeCRO,
		TypeSoftware,
		TypeHardware,
		TypeMouseModel,
		TypeCellLine,
		TypeProtocol,
		TypeDatabase,
		TypeInfrastructure,
		TypeOther,
	}
}

// IsValid reports whether t is a recognised resource type.
func (t Type) IsValid() bool {
	switch t {
	case TypeCoreFacility, TypeDataset, TypeCRO, TypeSoftware, TypeHardware,
		TypeMouseModel, TypeCellLine, TypeProtocol, TypeDatabase,
		TypeInfrastructure, TypeOther:
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
// Resource entity
// ─────────────────────────────────────────────────────────────────────────────

// Resource represents an existing R&D resource. Only active resources
// participate in capability matching and duplication detection.
type Resource struct {
	common.BaseEntity

	Name        string `json:"name"`
	Description string `json:"description"`
	Type        Type   `json:"type"`

	Organization string `json:"organization,omitempty"`
	Location     string `json:"location,omitempty"`
	URL          string `json:"url,omitempty"`

	// Cost is in USD, where applicable.
	Cost float64 `json:"cost,omitempty"`

	// Availability is a free-form tag such as "public", "academic",
	// or "commercial".
	Availability string `json:"availability,omitempty"`

	IsActive bool `json:"is_active"`

	Source   string `json:"source,omitempty"`
	SourceID string `json:"source_id,omitempty"`
}

// New creates an active Resource, enforcing construction invariants.
func New(name, description string, typ Type) (*Resource, error) {
	if name == "" {
		return nil, errors.InvalidParam("resource name must not be empty")
	}
	if !typ.IsValid() {
		return nil, errors.InvalidParam("unrecognised resource type: " + string(typ))
	}

	return &Resource{
		BaseEntity:  common.NewBaseEntity(),
		Name:        name,
		Description: description,
		Type:        typ,
		IsActive:    true,
	}, nil
}

// Deactivate removes the resource from matching without deleting it.
func (r *Resource) Deactivate() {
	r.IsActive = false
	r.Touch()
}

// Text returns the concatenated name and description used as similarity
// input by the matcher and the duplication detector.
func (r *Resource) Text() string {
	if r.Description == "" {
		return r.Name
	}
	return r.Name + " " + r.Description
}
