// Package problem implements the Problem bounded context: an open problem in
// aging research, classified into the hallmarks-of-aging taxonomy. All
// business rules that concern problems live here; persistence is handled by
// the repository layer.
package problem

import (
	"github.com/openlongevity/longmap/pkg/errors"
	"github.com/openlongevity/longmap/pkg/types/common"
)

// ─────────────────────────────────────────────────────────────────────────────
// Category enumeration
// ─────────────────────────────────────────────────────────────────────────────

// Category is one of the nine hallmarks of aging, plus Other as a catch-all.
type Category string

const (
	CategoryGenomicInstability                Category = "genomic_instability"
	CategoryTelomereAttrition                 Category = "telomere_attrition"
	CategoryEpigeneticAlterations             Category = "epigenetic_alterations"
	CategoryLossOfProteostasis                Category = "loss_of_proteostasis"
	CategoryDeregulatedNutrientSensing        Category = "deregulated_nutrient_sensing"
	CategoryMitochondrialDysfunction          Category = "mitochondrial_dysfunction"
	CategoryCellularSenescence                Category = "cellular_senescence"
	CategoryStemCellExhaustion                Category = "stem_cell_exhaustion"
	CategoryAlteredIntercellularCommunication Category = "altered_intercellular_communication"
	CategoryOther                             Category = "other"
)

// Categories lists every category in declaration order. Consumers that score
// categories against each other (the classifier) rely on this order as the
// tie-break: the first-declared category wins.
func Categories() []Category {
	return []Category{
		CategoryGenomicInstability,
		CategoryTelomereAttrition,
		CategoryEpigeneticAlterations,
		CategoryLossOfProteostasis,
		CategoryDeregulatedNutrientSensing,
		CategoryMitochondrialDysfunction,
		CategoryCellularSenescence,
		CategoryStemCellExhaustion,
		CategoryAlteredIntercellularCommunication,
		CategoryOther,
	}
}

// IsValid reports whether c is a recognised category value.
func (c Category) IsValid() bool {
	switch c {
	case CategoryGenomicInstability, CategoryTelomereAttrition,
		CategoryEpigeneticAlterations, CategoryLossOfProteostasis,
		CategoryDeregulatedNutrientSensing, CategoryMitochondrialDysfunction,
		CategoryCellularSenescence, CategoryStemCellExhaustion,
		CategoryAlteredIntercellularCommunication, CategoryOther:
		return true
	}
	return false
}

// String returns the wire value of the category.
func (c Category) String() string { return string(c) }

// ParseCategory coerces a free-form string to a Category. Unrecognised input
// maps to CategoryOther with ok=false so callers can preserve the raw value
// instead of silently discarding it.
func ParseCategory(s string) (cat Category, ok bool) {
	c := Category(s)
	if c.IsValid() {
		return c, true
	}
	return CategoryOther, false
}

// ─────────────────────────────────────────────────────────────────────────────
// Problem entity
// ─────────────────────────────────────────────────────────────────────────────

// Problem represents an open problem in aging research. It is created once
// from source text and is immutable afterwards except for audit timestamps.
// The (Source, SourceID) pair is the natural deduplication key: two problems
// must never share it.
type Problem struct {
	common.BaseEntity

	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    Category `json:"category"`

	// CategoryRaw preserves the original category string when classification
	// input could not be coerced onto the closed Category set.
	CategoryRaw string `json:"category_raw,omitempty"`

	Source    string `json:"source,omitempty"`
	SourceID  string `json:"source_id,omitempty"`
	SourceURL string `json:"source_url,omitempty"`
}

// New creates a Problem, enforcing construction invariants: title and
// description must be non-empty and the category must be a recognised value.
func New(title, description string, category Category) (*Problem, error) {
	if title == "" {
		return nil, errors.InvalidParam("problem title must not be empty")
	}
	if description == "" {
		return nil, errors.InvalidParam("problem description must not be empty")
	}
	if !category.IsValid() {
		return nil, errors.InvalidParam("unrecognised problem category: " + string(category))
	}

	return &Problem{
		BaseEntity:  common.NewBaseEntity(),
		Title:       title,
		Description: description,
		Category:    category,
	}, nil
}

// WithSource attaches source provenance to the problem and returns it for
// chaining during construction.
func (p *Problem) WithSource(source, sourceID, sourceURL string) *Problem {
	p.Source = source
	p.SourceID = sourceID
	p.SourceURL = sourceURL
	return p
}

// SourceKey returns the (source, source_id) deduplication key, or "" when the
// problem carries no provenance.
func (p *Problem) SourceKey() string {
	if p.Source == "" || p.SourceID == "" {
		return ""
	}
	return p.Source + "/" + p.SourceID
}
