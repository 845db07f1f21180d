package gapscore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openlongevity/longmap/internal/domain/capability"
	"github.com/openlongevity/longmap/internal/domain/gap"
)

func mustCapability(t *testing.T, name string, typ capability.Type, cost float64, months int) *capability.Capability {
	t.Helper()
	c, err := capability.New(name, "", typ)
	require.NoError(t, err)
	c.EstimatedCost = cost
	c.EstimatedTime = months
	return c
}

func TestScore_NilWhenMatched(t *testing.T) {
	s := New(Config{})
	c := mustCapability(t, "mouse model", capability.TypeModelSystem, 100_000, 12)
	assert.Nil(t, s.Score(c, 12, true))
}

func TestScore_EndToEndFixture(t *testing.T) {
	// model_system at $100k/12mo blocking 12 problems: blocked value $24M,
	// priority critical (numBlocked >= 10), impact ≈ 0.705.
	s := New(Config{})
	c := mustCapability(t, "aged mouse model", capability.TypeModelSystem, 100_000, 12)

	g := s.Score(c, 12, false)
	require.NotNil(t, g)
	assert.Equal(t, c.ID, g.CapabilityID)
	assert.Equal(t, "Missing capability: aged mouse model", g.Description)
	assert.Equal(t, 24_000_000.0, g.BlockedResearchValue)
	assert.Equal(t, 12, g.NumBlockedProblems)
	assert.Equal(t, gap.PriorityCritical, g.Priority)
	assert.Equal(t, 100_000.0, g.EstimatedCost)
	assert.Equal(t, 12, g.EstimatedTime)

	// cost_score 0.99, time_score 0.8, value_score 0.24, problems_score 0.6
	// -> 0.3*0.99 + 0.3*0.8 + 0.4*0.42 = 0.705
	assert.InDelta(t, 0.705, g.ImpactScore, 1e-9)
}

func TestScore_Deterministic(t *testing.T) {
	s := New(Config{})
	c := mustCapability(t, "organoid core", capability.TypeInfrastructure, 500_000, 24)

	g1 := s.Score(c, 3, false)
	g2 := s.Score(c, 3, false)
	require.NotNil(t, g1)
	require.NotNil(t, g2)
	assert.Equal(t, g1.ImpactScore, g2.ImpactScore)
	assert.Equal(t, g1.Priority, g2.Priority)
	assert.Equal(t, g1.BlockedResearchValue, g2.BlockedResearchValue)
}

func TestDeterminePriority_Tiers(t *testing.T) {
	tests := []struct {
		name         string
		blockedValue float64
		numBlocked   int
		want         gap.Priority
	}{
		{"value critical", 100_000_000, 1, gap.PriorityCritical},
		{"count critical", 0, 10, gap.PriorityCritical},
		{"value high", 10_000_000, 1, gap.PriorityHigh},
		{"count high", 0, 5, gap.PriorityHigh},
		{"value medium", 1_000_000, 1, gap.PriorityMedium},
		{"count medium", 0, 2, gap.PriorityMedium},
		{"low", 0, 1, gap.PriorityLow},
		{"zero", 0, 0, gap.PriorityLow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, determinePriority(tt.blockedValue, tt.numBlocked))
		})
	}
}

func TestDeterminePriority_Monotonic(t *testing.T) {
	// Increasing numBlocked never decreases the priority tier.
	prev := -1
	for n := 0; n <= 25; n++ {
		p := determinePriority(float64(n)*2_000_000, n)
		require.GreaterOrEqual(t, p.Rank(), prev, "n=%d", n)
		prev = p.Rank()
	}
}

func TestImpactScore_BoundedForArbitraryInputs(t *testing.T) {
	s := New(Config{})
	inputs := []struct {
		cost    float64
		months  int
		value   float64
		blocked int
	}{
		{0, 0, 0, 0},
		{50_000_000, 0, 0, 0},      // negative cost_score bleeds in
		{0, 600, 0, 0},             // negative time_score
		{0, 0, 1e12, 1000},         // saturated value and problems
		{1e9, 1200, 1e12, 100000},  // everything extreme
	}
	for _, in := range inputs {
		got := s.impactScore(in.cost, in.months, in.value, in.blocked)
		assert.GreaterOrEqual(t, got, 0.0)
		assert.LessOrEqual(t, got, 1.0)
	}
}

func TestImpactScore_CostPenaltyBleed(t *testing.T) {
	s := New(Config{})

	// $50M cost gives cost_score -4; with nothing else contributing the
	// total goes negative and clamps to zero.
	assert.Equal(t, 0.0, s.impactScore(50_000_000, 60, 0, 0))

	// The same cost with maximal value/problems still drags the total down
	// versus a cheap capability.
	expensive := s.impactScore(50_000_000, 0, 200_000_000, 40)
	cheap := s.impactScore(0, 0, 200_000_000, 40)
	assert.Less(t, expensive, cheap)
}

func TestNew_CustomWeights(t *testing.T) {
	s := New(Config{CostWeight: 1, TimeWeight: 0, ImpactWeight: 0})
	// Only cost contributes: cost 0 -> cost_score 1 -> impact 1.
	assert.Equal(t, 1.0, s.impactScore(0, 600, 0, 0))
}
