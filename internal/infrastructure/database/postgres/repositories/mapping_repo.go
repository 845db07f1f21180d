package repositories

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openlongevity/longmap/internal/domain/mapping"
	"github.com/openlongevity/longmap/internal/infrastructure/monitoring/logging"
	"github.com/openlongevity/longmap/pkg/errors"
	"github.com/openlongevity/longmap/pkg/types/common"
)

// ─────────────────────────────────────────────────────────────────────────────
// ProblemCapabilityRepository
// ─────────────────────────────────────────────────────────────────────────────

// ProblemCapabilityRepository is the PostgreSQL implementation of
// mapping.ProblemCapabilityRepository.
type ProblemCapabilityRepository struct {
	pool   *pgxpool.Pool
	logger logging.Logger
}

// NewProblemCapabilityRepository constructs a ready-to-use repository.
func NewProblemCapabilityRepository(pool *pgxpool.Pool, logger logging.Logger) *ProblemCapabilityRepository {
	return &ProblemCapabilityRepository{pool: pool, logger: logger.Named("problem_capability_repo")}
}

var _ mapping.ProblemCapabilityRepository = (*ProblemCapabilityRepository)(nil)

// Upsert inserts the mapping, leaving an existing row for the same
// (problem, capability) pair untouched. Re-running the ingest pipeline over
// the same documents is a no-op here.
func (r *ProblemCapabilityRepository) Upsert(ctx context.Context, m *mapping.ProblemCapability) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO problem_capabilities
			(id, problem_id, capability_id, confidence_score, is_required, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (problem_id, capability_id) DO NOTHING`,
		m.ID, m.ProblemID, m.CapabilityID, m.ConfidenceScore, m.IsRequired,
		m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("upsert problem-capability mapping", logging.Err(err))
		return errors.Wrap(err, errors.CodeDatabaseError, "failed to upsert problem-capability mapping")
	}
	return nil
}

// ListByProblem returns every mapping for a problem, in creation order.
func (r *ProblemCapabilityRepository) ListByProblem(ctx context.Context, problemID common.ID) ([]*mapping.ProblemCapability, error) {
	return r.list(ctx, "problem_id", problemID)
}

// ListByCapability returns every mapping for a capability, in creation order.
func (r *ProblemCapabilityRepository) ListByCapability(ctx context.Context, capabilityID common.ID) ([]*mapping.ProblemCapability, error) {
	return r.list(ctx, "capability_id", capabilityID)
}

// CountRequiredByCapability counts required mappings for the capability; the
// gap scorer's blocked-problem count.
func (r *ProblemCapabilityRepository) CountRequiredByCapability(ctx context.Context, capabilityID common.ID) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM problem_capabilities
		WHERE capability_id = $1 AND is_required`, capabilityID).Scan(&n)
	if err != nil {
		r.logger.Error("count required mappings", logging.Err(err))
		return 0, errors.Wrap(err, errors.CodeDatabaseError, "failed to count required mappings")
	}
	return n, nil
}

// DeleteByProblem removes every mapping for a problem.
func (r *ProblemCapabilityRepository) DeleteByProblem(ctx context.Context, problemID common.ID) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM problem_capabilities WHERE problem_id = $1`, problemID)
	if err != nil {
		r.logger.Error("delete mappings by problem", logging.Err(err))
		return errors.Wrap(err, errors.CodeDatabaseError, "failed to delete problem-capability mappings")
	}
	return nil
}

func (r *ProblemCapabilityRepository) list(ctx context.Context, column string, id common.ID) ([]*mapping.ProblemCapability, error) {
	// column is one of two fixed identifiers, never user input.
	rows, err := r.pool.Query(ctx, `
		SELECT id, problem_id, capability_id, confidence_score, is_required, created_at, updated_at
		FROM problem_capabilities
		WHERE `+column+` = $1
		ORDER BY created_at ASC`, id)
	if err != nil {
		r.logger.Error("list problem-capability mappings", logging.Err(err))
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "failed to query problem-capability mappings")
	}
	defer rows.Close()

	var result []*mapping.ProblemCapability
	for rows.Next() {
		var m mapping.ProblemCapability
		err := rows.Scan(
			&m.ID, &m.ProblemID, &m.CapabilityID, &m.ConfidenceScore, &m.IsRequired,
			&m.CreatedAt, &m.UpdatedAt,
		)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeDatabaseError, "failed to scan problem-capability row")
		}
		result = append(result, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "problem-capability row iteration failed")
	}
	return result, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// CapabilityResourceRepository
// ─────────────────────────────────────────────────────────────────────────────

// CapabilityResourceRepository is the PostgreSQL implementation of
// mapping.CapabilityResourceRepository.
type CapabilityResourceRepository struct {
	pool   *pgxpool.Pool
	logger logging.Logger
}

// NewCapabilityResourceRepository constructs a ready-to-use repository.
func NewCapabilityResourceRepository(pool *pgxpool.Pool, logger logging.Logger) *CapabilityResourceRepository {
	return &CapabilityResourceRepository{pool: pool, logger: logger.Named("capability_resource_repo")}
}

var _ mapping.CapabilityResourceRepository = (*CapabilityResourceRepository)(nil)

// Upsert inserts the mapping, or refreshes the match score of the existing
// row for the same (capability, resource) pair.
func (r *CapabilityResourceRepository) Upsert(ctx context.Context, m *mapping.CapabilityResource) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO capability_resources
			(id, capability_id, resource_id, match_score, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (capability_id, resource_id) DO UPDATE SET
			match_score = EXCLUDED.match_score,
			updated_at  = EXCLUDED.updated_at`,
		m.ID, m.CapabilityID, m.ResourceID, m.MatchScore, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("upsert capability-resource mapping", logging.Err(err))
		return errors.Wrap(err, errors.CodeDatabaseError, "failed to upsert capability-resource mapping")
	}
	return nil
}

// ListByCapability returns mappings for a capability, best match first.
func (r *CapabilityResourceRepository) ListByCapability(ctx context.Context, capabilityID common.ID) ([]*mapping.CapabilityResource, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, capability_id, resource_id, match_score, created_at, updated_at
		FROM capability_resources
		WHERE capability_id = $1
		ORDER BY match_score DESC, created_at ASC`, capabilityID)
	if err != nil {
		r.logger.Error("list capability-resource mappings", logging.Err(err))
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "failed to query capability-resource mappings")
	}
	defer rows.Close()

	var result []*mapping.CapabilityResource
	for rows.Next() {
		var m mapping.CapabilityResource
		err := rows.Scan(&m.ID, &m.CapabilityID, &m.ResourceID, &m.MatchScore, &m.CreatedAt, &m.UpdatedAt)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeDatabaseError, "failed to scan capability-resource row")
		}
		result = append(result, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "capability-resource row iteration failed")
	}
	return result, nil
}

// HasMatchAbove reports whether any mapping for the capability carries a
// match score at or above threshold.
func (r *CapabilityResourceRepository) HasMatchAbove(ctx context.Context, capabilityID common.ID, threshold float64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM capability_resources
			WHERE capability_id = $1 AND match_score >= $2
		)`, capabilityID, threshold).Scan(&exists)
	if err != nil {
		r.logger.Error("check capability match", logging.Err(err))
		return false, errors.Wrap(err, errors.CodeDatabaseError, "failed to check capability match")
	}
	return exists, nil
}

// DeleteByResource removes every mapping that references a resource; called
// when a resource is deactivated or removed from the catalog.
func (r *CapabilityResourceRepository) DeleteByResource(ctx context.Context, resourceID common.ID) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM capability_resources WHERE resource_id = $1`, resourceID)
	if err != nil {
		r.logger.Error("delete mappings by resource", logging.Err(err))
		return errors.Wrap(err, errors.CodeDatabaseError, "failed to delete capability-resource mappings")
	}
	return nil
}
