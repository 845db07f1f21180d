// Package gapscore scores a required capability that lacks an adequate
// resource match, producing a Gap record with blocked-value, priority, and
// impact estimates. Scoring is a pure function of its inputs: the same
// capability and mapping state always produce bit-identical Gap fields.
package gapscore

import (
	"fmt"

	"github.com/openlongevity/longmap/internal/domain/capability"
	"github.com/openlongevity/longmap/internal/domain/gap"
)

const (
	// valuePerProblem is the crude linear proxy for research value blocked
	// per problem, in USD. It is deliberately uncalibrated.
	valuePerProblem = 2_000_000

	// matchThreshold is the mapping score at or above which a capability is
	// considered served by an existing resource and therefore not a gap.
	matchThreshold = 0.7

	// Default impact-formula weights.
	DefaultCostWeight   = 0.3
	DefaultTimeWeight   = 0.3
	DefaultImpactWeight = 0.4
)

// Config holds the impact-formula weights. Zero values fall back to the
// defaults 0.3/0.3/0.4.
type Config struct {
	CostWeight   float64
	TimeWeight   float64
	ImpactWeight float64
}

// Scorer computes gap records from capabilities and their mapping state.
type Scorer struct {
	costWeight   float64
	timeWeight   float64
	impactWeight float64
}

// New creates a Scorer. When all three weights are zero the defaults apply.
func New(cfg Config) *Scorer {
	if cfg.CostWeight == 0 && cfg.TimeWeight == 0 && cfg.ImpactWeight == 0 {
		cfg = Config{
			CostWeight:   DefaultCostWeight,
			TimeWeight:   DefaultTimeWeight,
			ImpactWeight: DefaultImpactWeight,
		}
	}
	return &Scorer{
		costWeight:   cfg.CostWeight,
		timeWeight:   cfg.TimeWeight,
		impactWeight: cfg.ImpactWeight,
	}
}

// MatchThreshold returns the mapping score above which a capability does not
// count as a gap.
func MatchThreshold() float64 { return matchThreshold }

// Score returns the Gap for a capability, or nil when hasMatch indicates an
// existing resource mapping at or above the match threshold already serves
// it. numBlocked is the count of problems that require the capability.
func (s *Scorer) Score(c *capability.Capability, numBlocked int, hasMatch bool) *gap.Gap {
	if hasMatch {
		return nil
	}

	blockedValue := float64(numBlocked) * valuePerProblem
	priority := determinePriority(blockedValue, numBlocked)
	impact := s.impactScore(c.EstimatedCost, c.EstimatedTime, blockedValue, numBlocked)

	g, err := gap.New(c.ID, fmt.Sprintf("Missing capability: %s", c.Name), priority, impact)
	if err != nil {
		// Unreachable: the capability carries a valid ID and impact is
		// clamped to [0, 1] above.
		return nil
	}
	g.EstimatedCost = c.EstimatedCost
	g.EstimatedTime = c.EstimatedTime
	g.BlockedResearchValue = blockedValue
	g.NumBlockedProblems = numBlocked
	return g
}

// determinePriority tiers a gap by blocked value and blocked-problem count;
// the first matching rule wins.
func determinePriority(blockedValue float64, numBlocked int) gap.Priority {
	switch {
	case blockedValue >= 100_000_000 || numBlocked >= 10:
		return gap.PriorityCritical
	case blockedValue >= 10_000_000 || numBlocked >= 5:
		return gap.PriorityHigh
	case blockedValue >= 1_000_000 || numBlocked >= 2:
		return gap.PriorityMedium
	default:
		return gap.PriorityLow
	}
}

// impactScore combines four normalized sub-scores into a weighted impact in
// [0, 1]. cost_score is not floor-clamped before weighting: a very expensive
// capability bleeds a negative contribution into the total, which only the
// final clamp bounds.
func (s *Scorer) impactScore(cost float64, timeMonths int, blockedValue float64, numBlocked int) float64 {
	costScore := min1(1.0 - cost/10_000_000)
	timeScore := min1(1.0 - float64(timeMonths)/60)
	valueScore := min1(blockedValue / 100_000_000)
	problemsScore := min1(float64(numBlocked) / 20)

	impact := s.costWeight*costScore +
		s.timeWeight*timeScore +
		s.impactWeight*(valueScore+problemsScore)/2

	if impact < 0 {
		return 0
	}
	if impact > 1 {
		return 1
	}
	return impact
}

func min1(v float64) float64 {
	if v > 1 {
		return 1
	}
	return v
}
