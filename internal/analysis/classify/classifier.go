// Package classify maps free research text onto the hallmarks-of-aging
// category taxonomy using keyword frequency scoring. It is the deterministic
// path of problem classification: a pure function of the input text and the
// static keyword tables, with no side effects.
package classify

import (
	"regexp"
	"strings"

	"github.com/openlongevity/longmap/internal/domain/problem"
)

// categoryKeywords associates each hallmark category with the phrases that
// indicate it. Matching is case-insensitive substring containment; a
// category's score is the number of distinct entries present in the text,
// not the total occurrence count.
var categoryKeywords = map[problem.Category][]string{
	problem.CategoryGenomicInstability: {
		"genomic instability", "DNA damage", "mutations", "chromosomal aberrations",
		"double-strand breaks", "nucleotide excision repair",
	},
	problem.CategoryTelomereAttrition: {
		"telomere", "telomerase", "telomere shortening", "telomere attrition",
	},
	problem.CategoryEpigeneticAlterations: {
		"epigenetic", "DNA methylation", "histone modification", "chromatin",
		"epigenome", "epigenetic clock",
	},
	problem.CategoryLossOfProteostasis: {
		"proteostasis", "protein folding", "protein aggregation", "autophagy",
		"ubiquitin-proteasome", "chaperone",
	},
	problem.CategoryDeregulatedNutrientSensing: {
		"nutrient sensing", "mTOR", "insulin", "IGF-1", "AMPK", "sirtuin",
		"caloric restriction",
	},
	problem.CategoryMitochondrialDysfunction: {
		"mitochondria", "mitochondrial", "oxidative stress", "ROS", "ATP",
		"mitochondrial DNA", "mitophagy",
	},
	problem.CategoryCellularSenescence: {
		"senescence", "senescent cells", "SASP", "p16", "p21", "senolytics",
	},
	problem.CategoryStemCellExhaustion: {
		"stem cell", "hematopoietic", "regenerative capacity", "tissue repair",
	},
	problem.CategoryAlteredIntercellularCommunication: {
		"inflammation", "inflammaging", "cytokine", "immune system",
		"cell-cell communication", "signaling",
	},
}

// sentenceEnd splits prose on sentence-terminating punctuation.
var sentenceEnd = regexp.MustCompile(`[.!?]\s+`)

// Classifier classifies text into the category taxonomy.
type Classifier struct {
	keywords map[problem.Category][]string
	order    []problem.Category
}

// New returns a Classifier backed by the static keyword tables. The
// declaration order of problem.Categories is the tie-break: the
// first-declared category wins an equal score.
func New() *Classifier {
	return &Classifier{
		keywords: categoryKeywords,
		order:    problem.Categories(),
	}
}

// Classify returns the category whose keyword list has the most distinct
// entries present in text. Ties break by category declaration order; a text
// matching no keyword at all classifies as CategoryOther.
func (c *Classifier) Classify(text string) problem.Category {
	textLower := strings.ToLower(text)

	best := problem.CategoryOther
	bestScore := 0
	for _, cat := range c.order {
		keywords, ok := c.keywords[cat]
		if !ok {
			continue
		}
		score := 0
		for _, kw := range keywords {
			if strings.Contains(textLower, strings.ToLower(kw)) {
				score++
			}
		}
		if score > bestScore {
			best = cat
			bestScore = score
		}
	}
	return best
}

// SplitTitleDescription derives a (title, description) pair from raw text.
// The first line is the title when the text is multi-line; otherwise the
// first sentence; otherwise a 200-character prefix with an ellipsis.
func SplitTitleDescription(text string) (title, description string) {
	trimmed := strings.TrimSpace(text)

	if lines := strings.Split(trimmed, "\n"); len(lines) > 1 {
		title = strings.TrimSpace(lines[0])
		description = strings.TrimSpace(strings.Join(lines[1:], "\n"))
		return title, description
	}

	if sentences := sentenceEnd.Split(trimmed, -1); len(sentences) > 1 {
		title = sentences[0]
		description = strings.Join(sentences[1:], ". ")
		return title, description
	}

	if len(trimmed) > 200 {
		return trimmed[:200] + "...", trimmed
	}
	return trimmed, trimmed
}
