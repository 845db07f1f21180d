package repositories

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openlongevity/longmap/internal/domain/gap"
	"github.com/openlongevity/longmap/internal/infrastructure/monitoring/logging"
	"github.com/openlongevity/longmap/pkg/errors"
	"github.com/openlongevity/longmap/pkg/types/common"
)

const gapColumns = `id, capability_id, description, estimated_cost, estimated_time,
	blocked_research_value, num_blocked_problems, priority, impact_score,
	created_at, updated_at`

// GapRepository is the PostgreSQL implementation of gap.Repository. The
// at-most-one-gap-per-capability invariant is enforced by a UNIQUE constraint
// on capability_id.
type GapRepository struct {
	pool   *pgxpool.Pool
	logger logging.Logger
}

// NewGapRepository constructs a ready-to-use GapRepository.
func NewGapRepository(pool *pgxpool.Pool, logger logging.Logger) *GapRepository {
	return &GapRepository{pool: pool, logger: logger.Named("gap_repo")}
}

var _ gap.Repository = (*GapRepository)(nil)

// Upsert inserts the gap or replaces the existing row for the same
// capability. Re-scoring a capability overwrites every scored field while the
// original row identity and created_at survive.
func (r *GapRepository) Upsert(ctx context.Context, g *gap.Gap) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO gaps (`+gapColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (capability_id) DO UPDATE SET
			description            = EXCLUDED.description,
			estimated_cost         = EXCLUDED.estimated_cost,
			estimated_time         = EXCLUDED.estimated_time,
			blocked_research_value = EXCLUDED.blocked_research_value,
			num_blocked_problems   = EXCLUDED.num_blocked_problems,
			priority               = EXCLUDED.priority,
			impact_score           = EXCLUDED.impact_score,
			updated_at             = EXCLUDED.updated_at`,
		g.ID, g.CapabilityID, g.Description, g.EstimatedCost, g.EstimatedTime,
		g.BlockedResearchValue, g.NumBlockedProblems, g.Priority, g.ImpactScore,
		g.CreatedAt, g.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("upsert gap", logging.Err(err))
		return errors.Wrap(err, errors.CodeDatabaseError, "failed to upsert gap")
	}
	return nil
}

// GetByID loads a gap by primary key.
func (r *GapRepository) GetByID(ctx context.Context, id common.ID) (*gap.Gap, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+gapColumns+` FROM gaps WHERE id = $1`, id)
	return r.scanGap(row, string(id))
}

// GetByCapability loads the gap recorded for a capability, if any.
func (r *GapRepository) GetByCapability(ctx context.Context, capabilityID common.ID) (*gap.Gap, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+gapColumns+` FROM gaps WHERE capability_id = $1`, capabilityID)
	return r.scanGap(row, "capability="+string(capabilityID))
}

// DeleteByCapability removes the gap for a capability. Deleting a gap that
// does not exist is not an error: the analysis pipeline calls this whenever a
// capability gains a resource match.
func (r *GapRepository) DeleteByCapability(ctx context.Context, capabilityID common.ID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM gaps WHERE capability_id = $1`, capabilityID)
	if err != nil {
		r.logger.Error("delete gap by capability", logging.Err(err))
		return errors.Wrap(err, errors.CodeDatabaseError, "failed to delete gap")
	}
	return nil
}

// List returns gaps matching the filter, highest impact first.
func (r *GapRepository) List(ctx context.Context, filter gap.ListFilter) ([]*gap.Gap, error) {
	q := newQueryBuilder(`SELECT ` + gapColumns + ` FROM gaps`)
	if filter.Priority != nil {
		q.where("priority = " + q.arg(*filter.Priority))
	}
	q.orderBy("impact_score DESC, created_at ASC")
	q.paginate(filter.Limit, filter.Offset)

	rows, err := r.pool.Query(ctx, q.sql(), q.args()...)
	if err != nil {
		r.logger.Error("list gaps", logging.Err(err))
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "failed to query gaps")
	}
	defer rows.Close()

	return r.scanGaps(rows)
}

// Count returns the total number of gaps.
func (r *GapRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM gaps`).Scan(&n); err != nil {
		return 0, errors.Wrap(err, errors.CodeDatabaseError, "failed to count gaps")
	}
	return n, nil
}

// ListTopByImpact returns the n highest-impact gaps, the funding ranker's
// candidate pool.
func (r *GapRepository) ListTopByImpact(ctx context.Context, n int) ([]*gap.Gap, error) {
	if n <= 0 {
		return nil, nil
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+gapColumns+` FROM gaps
		ORDER BY impact_score DESC, created_at ASC
		LIMIT $1`, n)
	if err != nil {
		r.logger.Error("list top gaps", logging.Err(err))
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "failed to query top gaps")
	}
	defer rows.Close()

	return r.scanGaps(rows)
}

// CountByPriority returns gap counts per priority tier.
func (r *GapRepository) CountByPriority(ctx context.Context) (map[gap.Priority]int64, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT priority, COUNT(*) FROM gaps GROUP BY priority`)
	if err != nil {
		r.logger.Error("count gaps by priority", logging.Err(err))
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "failed to count gaps by priority")
	}
	defer rows.Close()

	result := make(map[gap.Priority]int64)
	for rows.Next() {
		var p string
		var n int64
		if err := rows.Scan(&p, &n); err != nil {
			return nil, errors.Wrap(err, errors.CodeDatabaseError, "failed to scan priority count")
		}
		result[gap.Priority(p)] = n
	}
	return result, rows.Err()
}

// SumBlockedValue totals blocked_research_value across all gaps.
func (r *GapRepository) SumBlockedValue(ctx context.Context) (float64, error) {
	var total float64
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(blocked_research_value), 0) FROM gaps`).Scan(&total)
	if err != nil {
		return 0, errors.Wrap(err, errors.CodeDatabaseError, "failed to sum blocked research value")
	}
	return total, nil
}

func (r *GapRepository) scanGap(row pgx.Row, key string) (*gap.Gap, error) {
	var g gap.Gap
	err := row.Scan(
		&g.ID, &g.CapabilityID, &g.Description, &g.EstimatedCost, &g.EstimatedTime,
		&g.BlockedResearchValue, &g.NumBlockedProblems, &g.Priority, &g.ImpactScore,
		&g.CreatedAt, &g.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, errors.NotFound("gap", key)
		}
		r.logger.Error("scan gap", logging.Err(err))
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "failed to scan gap row")
	}
	return &g, nil
}

func (r *GapRepository) scanGaps(rows pgx.Rows) ([]*gap.Gap, error) {
	var result []*gap.Gap
	for rows.Next() {
		var g gap.Gap
		err := rows.Scan(
			&g.ID, &g.CapabilityID, &g.Description, &g.EstimatedCost, &g.EstimatedTime,
			&g.BlockedResearchValue, &g.NumBlockedProblems, &g.Priority, &g.ImpactScore,
			&g.CreatedAt, &g.UpdatedAt,
		)
		if err != nil {
			r.logger.Error("scan gaps", logging.Err(err))
			return nil, errors.Wrap(err, errors.CodeDatabaseError, "failed to scan gap row")
		}
		result = append(result, &g)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "gap row iteration failed")
	}
	return result, nil
}
