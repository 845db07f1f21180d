//go:build integration

package repositories_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openlongevity/longmap/internal/domain/capability"
	"github.com/openlongevity/longmap/internal/domain/gap"
	"github.com/openlongevity/longmap/internal/infrastructure/database/postgres/repositories"
	"github.com/openlongevity/longmap/pkg/errors"
	"github.com/openlongevity/longmap/pkg/types/common"
)

func TestGapRepository(t *testing.T) {
	pool := startPostgres(t)
	logger := testLogger()
	repo := repositories.NewGapRepository(pool, logger)
	capRepo := repositories.NewCapabilityRepository(pool, logger)
	ctx := context.Background()

	newGap := func(name string, priority gap.Priority, impact float64) *gap.Gap {
		c := mustCapability(t, name, capability.TypeMeasurementTool)
		require.NoError(t, capRepo.Create(ctx, c))

		g, err := gap.New(c.ID, "missing: "+name, priority, impact)
		require.NoError(t, err)
		require.NoError(t, repo.Upsert(ctx, g))
		return g
	}

	critical := newGap("in vivo senescence reporter", gap.PriorityCritical, 0.9)
	high := newGap("longitudinal methylation cohort", gap.PriorityHigh, 0.7)
	low := newGap("archived protocol registry", gap.PriorityLow, 0.2)

	t.Run("upsert replaces the row for the same capability", func(t *testing.T) {
		rescored, err := gap.New(critical.CapabilityID, "rescored description", gap.PriorityMedium, 0.5)
		require.NoError(t, err)
		rescored.NumBlockedProblems = 4
		require.NoError(t, repo.Upsert(ctx, rescored))

		got, err := repo.GetByCapability(ctx, critical.CapabilityID)
		require.NoError(t, err)
		assert.Equal(t, critical.ID, got.ID, "row identity survives rescoring")
		assert.Equal(t, gap.PriorityMedium, got.Priority)
		assert.Equal(t, 0.5, got.ImpactScore)
		assert.Equal(t, 4, got.NumBlockedProblems)

		n, err := repo.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(3), n, "rescoring does not add rows")

		// Restore the original scoring for the ordering assertions below.
		require.NoError(t, repo.Upsert(ctx, critical))
	})

	t.Run("list orders by impact descending", func(t *testing.T) {
		all, err := repo.List(ctx, gap.ListFilter{})
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, critical.ID, all[0].ID)
		assert.Equal(t, high.ID, all[1].ID)
		assert.Equal(t, low.ID, all[2].ID)

		pr := gap.PriorityHigh
		filtered, err := repo.List(ctx, gap.ListFilter{Priority: &pr})
		require.NoError(t, err)
		require.Len(t, filtered, 1)
		assert.Equal(t, high.ID, filtered[0].ID)
	})

	t.Run("top by impact truncates the pool", func(t *testing.T) {
		top, err := repo.ListTopByImpact(ctx, 2)
		require.NoError(t, err)
		require.Len(t, top, 2)
		assert.Equal(t, critical.ID, top[0].ID)
		assert.Equal(t, high.ID, top[1].ID)

		none, err := repo.ListTopByImpact(ctx, 0)
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("count by priority", func(t *testing.T) {
		counts, err := repo.CountByPriority(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), counts[gap.PriorityCritical])
		assert.Equal(t, int64(1), counts[gap.PriorityHigh])
		assert.Equal(t, int64(1), counts[gap.PriorityLow])
	})

	t.Run("sum blocked value totals every gap", func(t *testing.T) {
		critical.BlockedResearchValue = 6_000_000
		high.BlockedResearchValue = 2_000_000
		require.NoError(t, repo.Upsert(ctx, critical))
		require.NoError(t, repo.Upsert(ctx, high))

		total, err := repo.SumBlockedValue(ctx)
		require.NoError(t, err)
		assert.Equal(t, 8_000_000.0, total)
	})

	t.Run("delete by capability is idempotent", func(t *testing.T) {
		require.NoError(t, repo.DeleteByCapability(ctx, low.CapabilityID))
		_, err := repo.GetByCapability(ctx, low.CapabilityID)
		assert.True(t, errors.IsNotFound(err))

		require.NoError(t, repo.DeleteByCapability(ctx, low.CapabilityID))
		require.NoError(t, repo.DeleteByCapability(ctx, common.NewID()))
	})
}
