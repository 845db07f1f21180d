package repositories

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openlongevity/longmap/internal/domain/capability"
	"github.com/openlongevity/longmap/internal/infrastructure/monitoring/logging"
	"github.com/openlongevity/longmap/pkg/errors"
	"github.com/openlongevity/longmap/pkg/types/common"
)

const capabilityColumns = `id, name, description, type,
	estimated_cost, estimated_time, complexity_score, created_at, updated_at`

// CapabilityRepository is the PostgreSQL implementation of
// capability.Repository. The (name, type) uniqueness key is enforced
// case-insensitively by a lower(name) index.
type CapabilityRepository struct {
	pool   *pgxpool.Pool
	logger logging.Logger
}

// NewCapabilityRepository constructs a ready-to-use CapabilityRepository.
func NewCapabilityRepository(pool *pgxpool.Pool, logger logging.Logger) *CapabilityRepository {
	return &CapabilityRepository{pool: pool, logger: logger.Named("capability_repo")}
}

var _ capability.Repository = (*CapabilityRepository)(nil)

// Create persists a new capability; a (name, type) collision yields a
// CodeConflict error.
func (r *CapabilityRepository) Create(ctx context.Context, c *capability.Capability) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO capabilities (`+capabilityColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		c.ID, c.Name, c.Description, c.Type,
		c.EstimatedCost, c.EstimatedTime, c.ComplexityScore, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return errors.Conflict("capability with this name and type already exists")
		}
		r.logger.Error("create capability", logging.Err(err))
		return errors.Wrap(err, errors.CodeDatabaseError, "failed to insert capability")
	}
	return nil
}

// GetByID loads a capability by primary key.
func (r *CapabilityRepository) GetByID(ctx context.Context, id common.ID) (*capability.Capability, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+capabilityColumns+` FROM capabilities WHERE id = $1`, id)
	return r.scanCapability(row, string(id))
}

// GetByNameAndType resolves the case-insensitive (name, type) key.
func (r *CapabilityRepository) GetByNameAndType(ctx context.Context, name string, typ capability.Type) (*capability.Capability, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+capabilityColumns+` FROM capabilities
		WHERE lower(name) = lower($1) AND type = $2`, name, typ)
	return r.scanCapability(row, name+"|"+string(typ))
}

// Upsert inserts the capability, or returns the already-persisted row for the
// same (name, type) key without modifying it. The returned capability always
// carries the canonical persisted ID.
func (r *CapabilityRepository) Upsert(ctx context.Context, c *capability.Capability) (*capability.Capability, error) {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO capabilities (`+capabilityColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (lower(name), type) DO NOTHING`,
		c.ID, c.Name, c.Description, c.Type,
		c.EstimatedCost, c.EstimatedTime, c.ComplexityScore, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("upsert capability", logging.Err(err))
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "failed to upsert capability")
	}
	if tag.RowsAffected() > 0 {
		return c, nil
	}
	return r.GetByNameAndType(ctx, c.Name, c.Type)
}

// List returns capabilities in creation order.
func (r *CapabilityRepository) List(ctx context.Context, limit, offset int) ([]*capability.Capability, error) {
	q := newQueryBuilder(`SELECT ` + capabilityColumns + ` FROM capabilities`)
	q.orderBy("created_at ASC")
	q.paginate(limit, offset)

	rows, err := r.pool.Query(ctx, q.sql(), q.args()...)
	if err != nil {
		r.logger.Error("list capabilities", logging.Err(err))
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "failed to query capabilities")
	}
	defer rows.Close()

	return r.scanCapabilities(rows)
}

// Count returns the total number of capabilities.
func (r *CapabilityRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM capabilities`).Scan(&n); err != nil {
		return 0, errors.Wrap(err, errors.CodeDatabaseError, "failed to count capabilities")
	}
	return n, nil
}

// ListKeystone returns the top-n capabilities by the number of problems
// mapped to them. Capabilities no problem references are excluded.
func (r *CapabilityRepository) ListKeystone(ctx context.Context, n int) ([]*capability.WithProblemCount, error) {
	if n <= 0 {
		return nil, nil
	}

	rows, err := r.pool.Query(ctx, `
		SELECT c.id, c.name, c.description, c.type,
		       c.estimated_cost, c.estimated_time, c.complexity_score,
		       c.created_at, c.updated_at,
		       COUNT(pc.id) AS problem_count
		FROM capabilities c
		JOIN problem_capabilities pc ON pc.capability_id = c.id
		GROUP BY c.id, c.name, c.description, c.type,
		         c.estimated_cost, c.estimated_time, c.complexity_score,
		         c.created_at, c.updated_at
		ORDER BY problem_count DESC, c.created_at ASC
		LIMIT $1`, n)
	if err != nil {
		r.logger.Error("list keystone capabilities", logging.Err(err))
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "failed to query keystone capabilities")
	}
	defer rows.Close()

	var result []*capability.WithProblemCount
	for rows.Next() {
		var c capability.Capability
		var count int64
		err := rows.Scan(
			&c.ID, &c.Name, &c.Description, &c.Type,
			&c.EstimatedCost, &c.EstimatedTime, &c.ComplexityScore,
			&c.CreatedAt, &c.UpdatedAt, &count,
		)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeDatabaseError, "failed to scan keystone row")
		}
		result = append(result, &capability.WithProblemCount{Capability: &c, ProblemCount: count})
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "keystone row iteration failed")
	}
	return result, nil
}

func (r *CapabilityRepository) scanCapability(row pgx.Row, key string) (*capability.Capability, error) {
	var c capability.Capability
	err := row.Scan(
		&c.ID, &c.Name, &c.Description, &c.Type,
		&c.EstimatedCost, &c.EstimatedTime, &c.ComplexityScore, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, errors.NotFound("capability", key)
		}
		r.logger.Error("scan capability", logging.Err(err))
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "failed to scan capability row")
	}
	return &c, nil
}

func (r *CapabilityRepository) scanCapabilities(rows pgx.Rows) ([]*capability.Capability, error) {
	var result []*capability.Capability
	for rows.Next() {
		var c capability.Capability
		err := rows.Scan(
			&c.ID, &c.Name, &c.Description, &c.Type,
			&c.EstimatedCost, &c.EstimatedTime, &c.ComplexityScore, &c.CreatedAt, &c.UpdatedAt,
		)
		if err != nil {
			r.logger.Error("scan capabilities", logging.Err(err))
			return nil, errors.Wrap(err, errors.CodeDatabaseError, "failed to scan capability row")
		}
		result = append(result, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "capability row iteration failed")
	}
	return result, nil
}
