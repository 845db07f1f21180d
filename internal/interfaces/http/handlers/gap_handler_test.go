package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openlongevity/longmap/internal/analysis/funding"
	"github.com/openlongevity/longmap/internal/domain/gap"
	"github.com/openlongevity/longmap/pkg/types/common"
)

func mustGap(t *testing.T, priority gap.Priority, blocked float64) *gap.Gap {
	t.Helper()
	g, err := gap.New(common.NewID(), "no resource covers this capability", priority, blocked/1e6)
	require.NoError(t, err)
	g.BlockedResearchValue = blocked
	return g
}

func TestListGaps(t *testing.T) {
	f := newFixture(t)
	f.gaps.add(mustGap(t, gap.PriorityCritical, 120_000_000))
	f.gaps.add(mustGap(t, gap.PriorityMedium, 4_000_000))

	t.Run("priority filter narrows the page", func(t *testing.T) {
		rec, env := f.do(t, http.MethodGet, "/api/v1/gaps?priority=critical", nil)
		assertStatus(t, rec, http.StatusOK)

		var got []*gap.Gap
		decodeData(t, env, &got)
		require.Len(t, got, 1)
		assert.Equal(t, gap.PriorityCritical, got[0].Priority)
	})

	t.Run("min_blocked_value floors the page", func(t *testing.T) {
		rec, env := f.do(t, http.MethodGet, "/api/v1/gaps?min_blocked_value=10000000", nil)
		assertStatus(t, rec, http.StatusOK)

		var got []*gap.Gap
		decodeData(t, env, &got)
		require.Len(t, got, 1)
		assert.Equal(t, 120_000_000.0, got[0].BlockedResearchValue)
	})

	t.Run("unknown priority is rejected", func(t *testing.T) {
		rec, _ := f.do(t, http.MethodGet, "/api/v1/gaps?priority=urgent", nil)
		assertStatus(t, rec, http.StatusBadRequest)
	})
}

func TestGetGap(t *testing.T) {
	f := newFixture(t)
	g := mustGap(t, gap.PriorityHigh, 20_000_000)
	f.gaps.add(g)

	rec, env := f.do(t, http.MethodGet, "/api/v1/gaps/"+g.ID.String(), nil)
	assertStatus(t, rec, http.StatusOK)

	var got gap.Gap
	decodeData(t, env, &got)
	assert.Equal(t, g.ID, got.ID)

	t.Run("missing gap yields 404", func(t *testing.T) {
		rec, _ := f.do(t, http.MethodGet, "/api/v1/gaps/b9f4c0de-0000-4000-8000-000000000000", nil)
		assertStatus(t, rec, http.StatusNotFound)
	})
}

func TestFundingPotential(t *testing.T) {
	f := newFixture(t)
	f.gaps.add(mustGap(t, gap.PriorityCritical, 80_000_000))
	f.gaps.add(mustGap(t, gap.PriorityLow, 2_000_000))

	rec, env := f.do(t, http.MethodGet, "/api/v1/gaps/funding-potential?top_n=1", nil)
	assertStatus(t, rec, http.StatusOK)

	var ranked []*funding.RankedGap
	decodeData(t, env, &ranked)
	require.Len(t, ranked, 1)
	require.NotNil(t, ranked[0].Prediction)
	assert.Greater(t, ranked[0].Prediction.AttractivenessScore, 0.0)
	// The ranker widens its candidate pool to twice the requested size.
	assert.Equal(t, 2, f.gaps.gotTopN)
}
