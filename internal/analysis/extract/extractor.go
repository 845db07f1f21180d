// Package extract implements the pattern path of capability extraction: it
// scans research text for capability-indicating regex patterns, derives
// candidate capability records from the surrounding context, deduplicates
// them by name overlap, and fills in heuristic cost/time/complexity
// estimates. An empty result means "no capabilities detected", never an
// error.
package extract

import (
	"regexp"
	"strings"

	"github.com/openlongevity/longmap/internal/domain/capability"
)

// contextRadius is the number of characters kept on each side of a pattern
// match as the candidate's description.
const contextRadius = 50

// maxNameLen caps names derived from curated phrase matches.
const maxNameLen = 100

// minNameLen filters out noise: candidates whose derived name is this short
// or shorter are discarded.
const minNameLen = 3

// typePatterns maps each capability type to the regex patterns that indicate
// it. Patterns run case-insensitively over the lower-cased text; every match
// produces one candidate.
var typePatterns = []struct {
	typ      capability.Type
	patterns []string
}{
	{capability.TypeMeasurementTool, []string{
		`(?:single-cell|bulk|spatial)\s+(?:rna|dna|atac)\s+sequencing`,
		`flow\s+cytometry`,
		`mass\s+spectrometry`,
		`(?:confocal|fluorescence|electron|super-resolution)\s+microscopy`,
		`qpcr|rt-pcr|pcr`,
		`western\s+blot`,
		`elisa`,
		`immunofluorescence`,
		`sequencing\s+platform`,
		`measurement\s+(?:tool|method|technique)`,
		`assay`, `detection`, `quantification`, `imaging`,
	}},
	{capability.TypeModelSystem, []string{
		`(?:mouse|rat|zebrafish|drosophila)\s+model`,
		`animal\s+model`,
		`cell\s+line`,
		`organoid(?:s)?`,
		`ipsc`,
		`stem\s+cell`,
		`in\s+vitro\s+model`,
		`in\s+vivo\s+model`,
	}},
	{capability.TypeDataset, []string{
		`(?:proteomic|transcriptomic|genomic|metabolomic)\s+dataset`,
		`omics\s+data`,
		`database`,
		`repository`,
		`public\s+dataset`,
	}},
	{capability.TypeComputationalMethod, []string{
		`algorithm`, `computational`, `machine learning`,
		`modeling`, `simulation`, `prediction`,
	}},
	{capability.TypeSoftware, []string{
		`software`, `tool`, `platform`, `pipeline`,
	}},
	{capability.TypeHardware, []string{
		`equipment`, `instrument`, `device`, `machine`,
	}},
	{capability.TypeProtocol, []string{
		`protocol`, `method`, `procedure`, `standard`,
	}},
}

// phrasePatterns is the curated set of complete capability phrases. When one
// of these matches inside a candidate's context window, the phrase (with a
// little surrounding context) becomes the candidate name; otherwise the name
// falls back to the words around the raw match.
var phrasePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:single-cell|bulk|spatial)\s+(?:rna|dna|atac)\s+sequencing`),
	regexp.MustCompile(`(?i)(?:mouse|rat|zebrafish)\s+model(?:s)?`),
	regexp.MustCompile(`(?i)(?:flow\s+)?cytometry`),
	regexp.MustCompile(`(?i)mass\s+spectrometry`),
	regexp.MustCompile(`(?i)(?:confocal|fluorescence|electron)\s+microscopy`),
	regexp.MustCompile(`(?i)(?:crispr|gene\s+editing)`),
	regexp.MustCompile(`(?i)(?:proteomic|transcriptomic|genomic)\s+dataset`),
	regexp.MustCompile(`(?i)organoid(?:s)?`),
	regexp.MustCompile(`(?i)cell\s+line(?:s)?`),
}

// complexityWords trigger the high-complexity cost/time adjustment.
var complexityWords = []string{"complex", "advanced", "novel", "cutting-edge"}

// baseEstimates holds the per-type (cost USD, time months) heuristics used
// when the source text supplies no estimate.
var baseEstimates = map[capability.Type]struct {
	cost   float64
	months int
}{
	capability.TypeMeasurementTool:     {50_000, 6},
	capability.TypeModelSystem:         {100_000, 12},
	capability.TypeDataset:             {20_000, 3},
	capability.TypeComputationalMethod: {50_000, 6},
	capability.TypeSoftware:            {100_000, 12},
	capability.TypeHardware:            {200_000, 18},
	capability.TypeProtocol:            {10_000, 2},
	capability.TypeInfrastructure:      {500_000, 24},
}

var defaultEstimate = struct {
	cost   float64
	months int
}{50_000, 6}

// baseComplexity holds the per-type base complexity score.
var baseComplexity = map[capability.Type]float64{
	capability.TypeMeasurementTool:     0.5,
	capability.TypeModelSystem:         0.7,
	capability.TypeDataset:             0.3,
	capability.TypeComputationalMethod: 0.6,
	capability.TypeSoftware:            0.6,
	capability.TypeHardware:            0.8,
	capability.TypeProtocol:            0.4,
	capability.TypeInfrastructure:      0.9,
}

const defaultComplexity = 0.5

var whitespaceRun = regexp.MustCompile(`\s+`)

// Extractor scans text for required capabilities.
type Extractor struct {
	compiled []struct {
		typ      capability.Type
		patterns []*regexp.Regexp
	}
}

// New returns an Extractor with all pattern tables compiled.
func New() *Extractor {
	e := &Extractor{}
	for _, tp := range typePatterns {
		entry := struct {
			typ      capability.Type
			patterns []*regexp.Regexp
		}{typ: tp.typ}
		for _, p := range tp.patterns {
			entry.patterns = append(entry.patterns, regexp.MustCompile(`(?i)`+p))
		}
		e.compiled = append(e.compiled, entry)
	}
	return e
}

// Extract returns the capabilities the text implies it requires. Every
// surviving candidate has a name longer than three characters and carries
// heuristic cost, time, and complexity estimates. No match yields an empty
// slice.
func (e *Extractor) Extract(text string) []*capability.Capability {
	textLower := strings.ToLower(text)

	var candidates []*capability.Capability
	for _, entry := range e.compiled {
		candidates = append(candidates, e.findCandidates(textLower, entry.patterns, entry.typ)...)
	}

	candidates = Deduplicate(candidates)

	for _, c := range candidates {
		if c.EstimatedCost == 0 {
			c.EstimatedCost, c.EstimatedTime = estimateRequirements(c)
		}
		if c.ComplexityScore == 0 {
			c.ComplexityScore = estimateComplexity(c)
		}
	}

	return candidates
}

func (e *Extractor) findCandidates(text string, patterns []*regexp.Regexp, typ capability.Type) []*capability.Capability {
	var out []*capability.Capability
	for _, re := range patterns {
		for _, loc := range re.FindAllStringIndex(text, -1) {
			start := loc[0] - contextRadius
			if start < 0 {
				start = 0
			}
			end := loc[1] + contextRadius
			if end > len(text) {
				end = len(text)
			}
			context := text[start:end]

			name := extractName(context, text[loc[0]:loc[1]])
			if len(name) <= minNameLen {
				continue
			}

			cand, err := capability.New(name, strings.TrimSpace(context), typ)
			if err != nil {
				continue
			}
			out = append(out, cand)
		}
	}
	return out
}

// extractName derives a capability name from the context window. A curated
// complete-phrase match (plus 20 characters of context on each side) is
// preferred; otherwise the 3-5 words surrounding the raw match are used.
func extractName(context, matched string) string {
	contextLower := strings.ToLower(context)

	for _, re := range phrasePatterns {
		if loc := re.FindStringIndex(contextLower); loc != nil {
			start := loc[0] - 20
			if start < 0 {
				start = 0
			}
			end := loc[1] + 20
			if end > len(context) {
				end = len(context)
			}
			phrase := strings.TrimSpace(context[start:end])
			phrase = whitespaceRun.ReplaceAllString(phrase, " ")
			if len(phrase) > maxNameLen {
				phrase = phrase[:maxNameLen]
			}
			return phrase
		}
	}

	matchIdx := strings.Index(contextLower, strings.ToLower(matched))
	if matchIdx == -1 {
		return matched
	}

	words := strings.Fields(context)
	charPos := 0
	wordIdx := 0
	for i, word := range words {
		if charPos >= matchIdx {
			wordIdx = i
			break
		}
		charPos += len(word) + 1
	}

	start := wordIdx - 2
	if start < 0 {
		start = 0
	}
	end := wordIdx + 4
	if end > len(words) {
		end = len(words)
	}
	return strings.TrimSpace(strings.Join(words[start:end], " "))
}

// Deduplicate filters candidates whose lower-cased name is a substring of,
// or contains, an already-kept name. The filter is intentionally asymmetric
// and order-dependent: the first member of an overlapping family survives.
// It is idempotent on its own output.
func Deduplicate(candidates []*capability.Capability) []*capability.Capability {
	if len(candidates) == 0 {
		return nil
	}

	unique := make([]*capability.Capability, 0, len(candidates))
	seen := make([]string, 0, len(candidates))

	for _, cand := range candidates {
		nameLower := strings.ToLower(cand.Name)
		duplicate := false
		for _, s := range seen {
			if strings.Contains(s, nameLower) || strings.Contains(nameLower, s) {
				duplicate = true
				break
			}
		}
		if !duplicate {
			unique = append(unique, cand)
			seen = append(seen, nameLower)
		}
	}
	return unique
}

// estimateRequirements returns heuristic (cost USD, time months) for a
// capability from the per-type base table, scaled up when the description
// signals high complexity.
func estimateRequirements(c *capability.Capability) (float64, int) {
	est, ok := baseEstimates[c.Type]
	if !ok {
		est = defaultEstimate
	}
	cost, months := est.cost, est.months

	descLower := strings.ToLower(c.Description)
	for _, word := range complexityWords {
		if strings.Contains(descLower, word) {
			cost *= 1.5
			months = int(float64(months) * 1.3)
			break
		}
	}
	return cost, months
}

// estimateComplexity returns a heuristic complexity score from the per-type
// base, bumped by 0.1 (capped at 1.0) for long descriptions.
func estimateComplexity(c *capability.Capability) float64 {
	complexity, ok := baseComplexity[c.Type]
	if !ok {
		complexity = defaultComplexity
	}
	if len(c.Description) > 500 {
		complexity += 0.1
		if complexity > 1.0 {
			complexity = 1.0
		}
	}
	return complexity
}
