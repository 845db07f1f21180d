package analysis

import (
	"context"
	"fmt"

	"github.com/openlongevity/longmap/internal/analysis/funding"
	"github.com/openlongevity/longmap/internal/analysis/match"
	"github.com/openlongevity/longmap/internal/domain/capability"
	"github.com/openlongevity/longmap/internal/domain/gap"
	"github.com/openlongevity/longmap/internal/domain/problem"
	"github.com/openlongevity/longmap/internal/domain/resource"
)

// Parameter bounds for the report queries.
const (
	defaultKeystoneTopN = 10
	maxKeystoneTopN     = 100

	defaultClusterMinGroups = 3
	minClusterMinGroups     = 2
	maxClusterMinGroups     = 10

	defaultFundingTopN = 20
	maxFundingTopN     = 100

	defaultMatrixLimit = 100
	maxMatrixLimit     = 1000
)

// Keystones returns the capabilities required by the most problems. These
// are the highest-leverage build targets: one keystone unblocks many
// problems at once.
func (s *Service) Keystones(ctx context.Context, topN int) ([]*capability.WithProblemCount, error) {
	topN = clamp(topN, defaultKeystoneTopN, 1, maxKeystoneTopN)

	load := func(ctx context.Context) (interface{}, error) {
		return s.deps.Capabilities.ListKeystone(ctx, topN)
	}
	if s.deps.Cache == nil {
		v, err := load(ctx)
		if err != nil {
			return nil, err
		}
		return v.([]*capability.WithProblemCount), nil
	}

	var out []*capability.WithProblemCount
	key := fmt.Sprintf("%skeystones:%d", cachePrefix, topN)
	if err := s.deps.Cache.GetOrSet(ctx, key, &out, reportTTL, load); err != nil {
		return nil, err
	}
	return out, nil
}

// Cluster is a group of near-duplicate active resources.
type Cluster struct {
	Size      int                  `json:"size"`
	Resources []*resource.Resource `json:"resources"`
}

// DuplicationClusters groups active resources whose texts are
// near-duplicates and returns the groups of at least minGroups members.
// Clusters are not cached: they are cheap relative to their staleness cost
// and the CLI is their main consumer.
func (s *Service) DuplicationClusters(ctx context.Context, minGroups int) ([]Cluster, error) {
	minGroups = clamp(minGroups, defaultClusterMinGroups, minClusterMinGroups, maxClusterMinGroups)

	active, err := s.deps.Resources.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	threshold := s.deps.DuplicateThreshold
	if threshold == 0 {
		threshold = match.DefaultDuplicateThreshold
	}

	var clusters []Cluster
	for _, group := range s.deps.Matcher.FindDuplicateClusters(ctx, active, threshold) {
		if len(group) < minGroups {
			continue
		}
		clusters = append(clusters, Cluster{Size: len(group), Resources: group})
	}
	return clusters, nil
}

// Opportunity flags a duplication cluster worth coordinating on.
type Opportunity struct {
	Type           string               `json:"type"`
	Severity       string               `json:"severity"`
	Recommendation string               `json:"recommendation"`
	Resources      []*resource.Resource `json:"resources"`
}

// CoordinationOpportunities turns duplication clusters into actionable
// flags: three or more groups building the same thing is high severity, two
// is medium.
func (s *Service) CoordinationOpportunities(ctx context.Context) ([]Opportunity, error) {
	clusters, err := s.DuplicationClusters(ctx, minClusterMinGroups)
	if err != nil {
		return nil, err
	}

	opportunities := make([]Opportunity, 0, len(clusters))
	for _, cl := range clusters {
		severity := "medium"
		if cl.Size >= 3 {
			severity = "high"
		}
		opportunities = append(opportunities, Opportunity{
			Type:           "duplication",
			Severity:       severity,
			Recommendation: "Consider coordination or resource sharing",
			Resources:      cl.Resources,
		})
	}
	return opportunities, nil
}

// FundingRanking returns the topN gaps most attractive to funders. The
// candidate pool is twice topN by impact so a cheap, fast, high-value gap
// just outside the impact top-N still surfaces.
func (s *Service) FundingRanking(ctx context.Context, topN int) ([]*funding.RankedGap, error) {
	topN = clamp(topN, defaultFundingTopN, 1, maxFundingTopN)

	load := func(ctx context.Context) (interface{}, error) {
		pool, err := s.deps.Gaps.ListTopByImpact(ctx, 2*topN)
		if err != nil {
			return nil, err
		}
		return s.deps.Funding.Rank(pool, topN), nil
	}
	if s.deps.Cache == nil {
		v, err := load(ctx)
		if err != nil {
			return nil, err
		}
		return v.([]*funding.RankedGap), nil
	}

	var out []*funding.RankedGap
	key := fmt.Sprintf("%sfunding:%d", cachePrefix, topN)
	if err := s.deps.Cache.GetOrSet(ctx, key, &out, reportTTL, load); err != nil {
		return nil, err
	}
	return out, nil
}

// Stats is the platform-wide summary served by the stats endpoint.
type Stats struct {
	NumProblems               int64                      `json:"num_problems"`
	NumCapabilities           int64                      `json:"num_capabilities"`
	NumResources              int64                      `json:"num_resources"`
	NumGaps                   int64                      `json:"num_gaps"`
	TotalBlockedResearchValue float64                    `json:"total_blocked_research_value"`
	ProblemsByCategory        map[problem.Category]int64 `json:"problems_by_category"`
	GapsByPriority            map[gap.Priority]int64     `json:"gaps_by_priority"`
}

// PlatformStats returns entity counts, the blocked-value total and the
// category/priority breakdowns.
func (s *Service) PlatformStats(ctx context.Context) (*Stats, error) {
	load := func(ctx context.Context) (interface{}, error) {
		return s.loadStats(ctx)
	}
	if s.deps.Cache == nil {
		v, err := load(ctx)
		if err != nil {
			return nil, err
		}
		return v.(*Stats), nil
	}

	var out Stats
	if err := s.deps.Cache.GetOrSet(ctx, cachePrefix+"stats", &out, statsTTL, load); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Service) loadStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	var err error

	if stats.NumProblems, err = s.deps.Problems.Count(ctx); err != nil {
		return nil, err
	}
	if stats.NumCapabilities, err = s.deps.Capabilities.Count(ctx); err != nil {
		return nil, err
	}
	if stats.NumResources, err = s.deps.Resources.Count(ctx); err != nil {
		return nil, err
	}
	if stats.NumGaps, err = s.deps.Gaps.Count(ctx); err != nil {
		return nil, err
	}
	if stats.TotalBlockedResearchValue, err = s.deps.Gaps.SumBlockedValue(ctx); err != nil {
		return nil, err
	}
	if stats.ProblemsByCategory, err = s.deps.Problems.CountByCategory(ctx); err != nil {
		return nil, err
	}
	if stats.GapsByPriority, err = s.deps.Gaps.CountByPriority(ctx); err != nil {
		return nil, err
	}
	return stats, nil
}

// MatrixCell is one capability requirement inside a matrix row.
type MatrixCell struct {
	CapabilityID string  `json:"capability_id"`
	Name         string  `json:"name"`
	Type         string  `json:"type"`
	Confidence   float64 `json:"confidence"`
	IsRequired   bool    `json:"is_required"`
}

// MatrixRow is one problem and the capabilities it requires.
type MatrixRow struct {
	ProblemID    string       `json:"problem_id"`
	Title        string       `json:"title"`
	Category     string       `json:"category"`
	Capabilities []MatrixCell `json:"capabilities"`
}

// Matrix returns the problem-capability requirement matrix for up to limit
// problems.
func (s *Service) Matrix(ctx context.Context, limit int) ([]MatrixRow, error) {
	limit = clamp(limit, defaultMatrixLimit, 1, maxMatrixLimit)

	load := func(ctx context.Context) (interface{}, error) {
		return s.loadMatrix(ctx, limit)
	}
	if s.deps.Cache == nil {
		v, err := load(ctx)
		if err != nil {
			return nil, err
		}
		return v.([]MatrixRow), nil
	}

	var out []MatrixRow
	key := fmt.Sprintf("%smatrix:%d", cachePrefix, limit)
	if err := s.deps.Cache.GetOrSet(ctx, key, &out, reportTTL, load); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) loadMatrix(ctx context.Context, limit int) ([]MatrixRow, error) {
	problems, err := s.deps.Problems.List(ctx, problem.ListFilter{Limit: limit})
	if err != nil {
		return nil, err
	}

	// A capability usually appears in many rows; resolve each once.
	capCache := make(map[string]*capability.Capability)

	rows := make([]MatrixRow, 0, len(problems))
	for _, p := range problems {
		row := MatrixRow{
			ProblemID: p.ID.String(),
			Title:     p.Title,
			Category:  string(p.Category),
		}

		mappings, err := s.deps.ProblemCapabilities.ListByProblem(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		for _, m := range mappings {
			c, ok := capCache[m.CapabilityID.String()]
			if !ok {
				c, err = s.deps.Capabilities.GetByID(ctx, m.CapabilityID)
				if err != nil {
					return nil, err
				}
				capCache[m.CapabilityID.String()] = c
			}
			row.Capabilities = append(row.Capabilities, MatrixCell{
				CapabilityID: c.ID.String(),
				Name:         c.Name,
				Type:         string(c.Type),
				Confidence:   m.ConfidenceScore,
				IsRequired:   m.IsRequired,
			})
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// clamp applies the default for non-positive values and bounds the rest.
func clamp(v, def, min, max int) int {
	if v <= 0 {
		return def
	}
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
