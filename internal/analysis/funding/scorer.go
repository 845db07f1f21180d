// Package funding predicts how attractive a gap is to funders. Unlike the
// gap scorer's weighted average, attractiveness is an additive sum of four
// independent bounded factors, clamped to [0, 1] at the end.
package funding

import (
	"sort"

	"github.com/openlongevity/longmap/internal/domain/gap"
)

// Likelihood labels the predicted chance a gap attracts funding.
type Likelihood string

const (
	LikelihoodHigh   Likelihood = "high"
	LikelihoodMedium Likelihood = "medium"
	LikelihoodLow    Likelihood = "low"
)

// Prediction is the funding attractiveness result for one gap.
type Prediction struct {
	GapID               string             `json:"gap_id"`
	AttractivenessScore float64            `json:"attractiveness_score"`
	Factors             map[string]float64 `json:"factors"`
	Likelihood          Likelihood         `json:"predicted_funding_likelihood"`
}

// RankedGap pairs a gap with its funding prediction.
type RankedGap struct {
	Gap        *gap.Gap    `json:"gap"`
	Prediction *Prediction `json:"prediction"`
}

// Scorer predicts funding attractiveness of gaps.
type Scorer struct{}

// New creates a funding Scorer.
func New() *Scorer {
	return &Scorer{}
}

// Predict computes the attractiveness of a gap from four additive factors:
// impact (up to 0.3 from blocked-problem count), cost efficiency (up to 0.2
// from cost per blocked problem), market size (up to 0.3 from blocked
// research value), and feasibility (up to 0.2 from estimated time). The sum
// is clamped to [0, 1].
func (s *Scorer) Predict(g *gap.Gap) *Prediction {
	score := 0.0
	factors := make(map[string]float64)

	if g.NumBlockedProblems > 0 {
		impact := float64(g.NumBlockedProblems) / 20 * 0.3
		if impact > 0.3 {
			impact = 0.3
		}
		score += impact
		factors["impact"] = impact
	}

	if g.EstimatedCost > 0 && g.NumBlockedProblems > 0 {
		costPerProblem := g.EstimatedCost / float64(g.NumBlockedProblems)
		var costFactor float64
		switch {
		case costPerProblem < 1_000_000:
			costFactor = 0.2
		case costPerProblem < 5_000_000:
			costFactor = 0.1
		default:
			costFactor = 0.05
		}
		score += costFactor
		factors["cost_efficiency"] = costFactor
	}

	if g.BlockedResearchValue > 0 {
		var marketFactor float64
		switch {
		case g.BlockedResearchValue >= 100_000_000:
			marketFactor = 0.3
		case g.BlockedResearchValue >= 10_000_000:
			marketFactor = 0.2
		default:
			marketFactor = 0.1
		}
		score += marketFactor
		factors["market_size"] = marketFactor
	}

	if g.EstimatedTime > 0 {
		var feasibilityFactor float64
		switch {
		case g.EstimatedTime <= 12:
			feasibilityFactor = 0.2
		case g.EstimatedTime <= 24:
			feasibilityFactor = 0.15
		default:
			feasibilityFactor = 0.1
		}
		score += feasibilityFactor
		factors["feasibility"] = feasibilityFactor
	}

	if score > 1 {
		score = 1
	}

	return &Prediction{
		GapID:               g.ID.String(),
		AttractivenessScore: score,
		Factors:             factors,
		Likelihood:          likelihood(score),
	}
}

func likelihood(score float64) Likelihood {
	switch {
	case score >= 0.7:
		return LikelihoodHigh
	case score >= 0.4:
		return LikelihoodMedium
	default:
		return LikelihoodLow
	}
}

// Rank orders gaps by funding potential in two stages: take the top 2·topN
// gaps by existing impact score, predict attractiveness for that subset,
// re-sort it by attractiveness descending, and truncate to topN. The wider
// first stage keeps high-attractiveness gaps that sit just outside the
// naive top-N by impact alone, without predicting over the whole catalog.
func (s *Scorer) Rank(gaps []*gap.Gap, topN int) []*RankedGap {
	if topN <= 0 || len(gaps) == 0 {
		return nil
	}

	pool := make([]*gap.Gap, len(gaps))
	copy(pool, gaps)
	sort.SliceStable(pool, func(i, j int) bool {
		return pool[i].ImpactScore > pool[j].ImpactScore
	})
	if len(pool) > 2*topN {
		pool = pool[:2*topN]
	}

	ranked := make([]*RankedGap, 0, len(pool))
	for _, g := range pool {
		ranked = append(ranked, &RankedGap{Gap: g, Prediction: s.Predict(g)})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Prediction.AttractivenessScore > ranked[j].Prediction.AttractivenessScore
	})

	if len(ranked) > topN {
		ranked = ranked[:topN]
	}
	return ranked
}
