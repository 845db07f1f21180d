// Package repositories provides the PostgreSQL implementations of all domain
// repository interfaces. Every method takes a context.Context and uses
// parameterised queries exclusively.
package repositories

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openlongevity/longmap/internal/domain/problem"
	"github.com/openlongevity/longmap/internal/infrastructure/monitoring/logging"
	"github.com/openlongevity/longmap/pkg/errors"
	"github.com/openlongevity/longmap/pkg/types/common"
)

const problemColumns = `id, title, description, category, category_raw,
	source, source_id, source_url, created_at, updated_at`

// ProblemRepository is the PostgreSQL implementation of problem.Repository.
type ProblemRepository struct {
	pool   *pgxpool.Pool
	logger logging.Logger
}

// NewProblemRepository constructs a ready-to-use ProblemRepository.
func NewProblemRepository(pool *pgxpool.Pool, logger logging.Logger) *ProblemRepository {
	return &ProblemRepository{pool: pool, logger: logger.Named("problem_repo")}
}

var _ problem.Repository = (*ProblemRepository)(nil)

// Create persists a new problem. Inserting a second problem with the same
// (source, source_id) dedup key yields a CodeDuplicateProblem error.
func (r *ProblemRepository) Create(ctx context.Context, p *problem.Problem) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO problems (`+problemColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		p.ID, p.Title, p.Description, p.Category, p.CategoryRaw,
		p.Source, p.SourceID, p.SourceURL, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return errors.Wrap(err, errors.CodeDuplicateProblem, "problem already ingested from this source")
		}
		r.logger.Error("create problem", logging.Err(err))
		return errors.Wrap(err, errors.CodeDatabaseError, "failed to insert problem")
	}
	return nil
}

// GetByID loads a problem by primary key.
func (r *ProblemRepository) GetByID(ctx context.Context, id common.ID) (*problem.Problem, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+problemColumns+` FROM problems WHERE id = $1`, id)
	return r.scanProblem(row, string(id))
}

// GetBySource resolves a problem by its (source, source_id) dedup key.
func (r *ProblemRepository) GetBySource(ctx context.Context, source, sourceID string) (*problem.Problem, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+problemColumns+` FROM problems
		WHERE source = $1 AND source_id = $2`, source, sourceID)
	return r.scanProblem(row, source+"/"+sourceID)
}

// ExistsBySource reports whether the dedup key is already persisted.
func (r *ProblemRepository) ExistsBySource(ctx context.Context, source, sourceID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM problems WHERE source = $1 AND source_id = $2
		)`, source, sourceID).Scan(&exists)
	if err != nil {
		r.logger.Error("exists by source", logging.Err(err))
		return false, errors.Wrap(err, errors.CodeDatabaseError, "failed to check problem existence")
	}
	return exists, nil
}

// List returns problems matching the filter, newest first.
func (r *ProblemRepository) List(ctx context.Context, filter problem.ListFilter) ([]*problem.Problem, error) {
	q := newQueryBuilder(`SELECT ` + problemColumns + ` FROM problems`)
	if filter.Category != nil {
		q.where("category = " + q.arg(*filter.Category))
	}
	if filter.Source != "" {
		q.where("source = " + q.arg(filter.Source))
	}
	q.orderBy("created_at DESC")
	q.paginate(filter.Limit, filter.Offset)

	rows, err := r.pool.Query(ctx, q.sql(), q.args()...)
	if err != nil {
		r.logger.Error("list problems", logging.Err(err))
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "failed to query problems")
	}
	defer rows.Close()

	return r.scanProblems(rows)
}

// Count returns the total number of problems.
func (r *ProblemRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM problems`).Scan(&n); err != nil {
		return 0, errors.Wrap(err, errors.CodeDatabaseError, "failed to count problems")
	}
	return n, nil
}

// CountByCategory returns problem counts per category.
func (r *ProblemRepository) CountByCategory(ctx context.Context) (map[problem.Category]int64, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT category, COUNT(*) FROM problems GROUP BY category`)
	if err != nil {
		r.logger.Error("count by category", logging.Err(err))
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "failed to count problems by category")
	}
	defer rows.Close()

	result := make(map[problem.Category]int64)
	for rows.Next() {
		var cat string
		var n int64
		if err := rows.Scan(&cat, &n); err != nil {
			return nil, errors.Wrap(err, errors.CodeDatabaseError, "failed to scan category count")
		}
		result[problem.Category(cat)] = n
	}
	return result, rows.Err()
}

func (r *ProblemRepository) scanProblem(row pgx.Row, key string) (*problem.Problem, error) {
	var p problem.Problem
	err := row.Scan(
		&p.ID, &p.Title, &p.Description, &p.Category, &p.CategoryRaw,
		&p.Source, &p.SourceID, &p.SourceURL, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, errors.NotFound("problem", key)
		}
		r.logger.Error("scan problem", logging.Err(err))
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "failed to scan problem row")
	}
	return &p, nil
}

func (r *ProblemRepository) scanProblems(rows pgx.Rows) ([]*problem.Problem, error) {
	var result []*problem.Problem
	for rows.Next() {
		var p problem.Problem
		err := rows.Scan(
			&p.ID, &p.Title, &p.Description, &p.Category, &p.CategoryRaw,
			&p.Source, &p.SourceID, &p.SourceURL, &p.CreatedAt, &p.UpdatedAt,
		)
		if err != nil {
			r.logger.Error("scan problems", logging.Err(err))
			return nil, errors.Wrap(err, errors.CodeDatabaseError, "failed to scan problem row")
		}
		result = append(result, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "problem row iteration failed")
	}
	return result, nil
}
