package repositories

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openlongevity/longmap/internal/domain/resource"
	"github.com/openlongevity/longmap/internal/infrastructure/monitoring/logging"
	"github.com/openlongevity/longmap/pkg/errors"
	"github.com/openlongevity/longmap/pkg/types/common"
)

const resourceColumns = `id, name, description, type, organization, location,
	url, cost, availability, is_active, source, source_id, created_at, updated_at`

// ResourceRepository is the PostgreSQL implementation of resource.Repository.
// Active-resource queries return rows in creation order: the matcher and the
// duplicate detector rely on that order being stable across calls.
type ResourceRepository struct {
	pool   *pgxpool.Pool
	logger logging.Logger
}

// NewResourceRepository constructs a ready-to-use ResourceRepository.
func NewResourceRepository(pool *pgxpool.Pool, logger logging.Logger) *ResourceRepository {
	return &ResourceRepository{pool: pool, logger: logger.Named("resource_repo")}
}

var _ resource.Repository = (*ResourceRepository)(nil)

// Create persists a new resource.
func (r *ResourceRepository) Create(ctx context.Context, res *resource.Resource) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO resources (`+resourceColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		res.ID, res.Name, res.Description, res.Type, res.Organization, res.Location,
		res.URL, res.Cost, res.Availability, res.IsActive, res.Source, res.SourceID,
		res.CreatedAt, res.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("create resource", logging.Err(err))
		return errors.Wrap(err, errors.CodeDatabaseError, "failed to insert resource")
	}
	return nil
}

// GetByID loads a resource by primary key.
func (r *ResourceRepository) GetByID(ctx context.Context, id common.ID) (*resource.Resource, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+resourceColumns+` FROM resources WHERE id = $1`, id)
	return r.scanResource(row, string(id))
}

// Update persists mutations to an existing resource. The created_at column is
// never touched so catalog order is preserved.
func (r *ResourceRepository) Update(ctx context.Context, res *resource.Resource) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE resources SET
			name=$1, description=$2, type=$3, organization=$4, location=$5,
			url=$6, cost=$7, availability=$8, is_active=$9,
			source=$10, source_id=$11, updated_at=$12
		WHERE id=$13`,
		res.Name, res.Description, res.Type, res.Organization, res.Location,
		res.URL, res.Cost, res.Availability, res.IsActive,
		res.Source, res.SourceID, touchNow(), res.ID,
	)
	if err != nil {
		r.logger.Error("update resource", logging.Err(err))
		return errors.Wrap(err, errors.CodeDatabaseError, "failed to update resource")
	}
	if tag.RowsAffected() == 0 {
		return errors.NotFound("resource", string(res.ID))
	}
	return nil
}

// List returns resources matching the filter, in catalog order.
func (r *ResourceRepository) List(ctx context.Context, filter resource.ListFilter) ([]*resource.Resource, error) {
	q := newQueryBuilder(`SELECT ` + resourceColumns + ` FROM resources`)
	if filter.ActiveOnly {
		q.where("is_active")
	}
	if len(filter.Types) > 0 {
		q.where("type = ANY(" + q.arg(typeStrings(filter.Types)) + ")")
	}
	q.orderBy("created_at ASC")
	q.paginate(filter.Limit, filter.Offset)

	rows, err := r.pool.Query(ctx, q.sql(), q.args()...)
	if err != nil {
		r.logger.Error("list resources", logging.Err(err))
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "failed to query resources")
	}
	defer rows.Close()

	return r.scanResources(rows)
}

// Count returns the total number of resources, active or not.
func (r *ResourceRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM resources`).Scan(&n); err != nil {
		return 0, errors.Wrap(err, errors.CodeDatabaseError, "failed to count resources")
	}
	return n, nil
}

// ListActive returns every active resource in catalog order.
func (r *ResourceRepository) ListActive(ctx context.Context) ([]*resource.Resource, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+resourceColumns+` FROM resources
		WHERE is_active
		ORDER BY created_at ASC`)
	if err != nil {
		r.logger.Error("list active resources", logging.Err(err))
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "failed to query active resources")
	}
	defer rows.Close()

	return r.scanResources(rows)
}

// ListActiveByTypes returns active resources restricted to the given types,
// in catalog order. An empty type list yields no rows.
func (r *ResourceRepository) ListActiveByTypes(ctx context.Context, types []resource.Type) ([]*resource.Resource, error) {
	if len(types) == 0 {
		return nil, nil
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+resourceColumns+` FROM resources
		WHERE is_active AND type = ANY($1)
		ORDER BY created_at ASC`, typeStrings(types))
	if err != nil {
		r.logger.Error("list active resources by type",
			logging.String("types", strings.Join(typeStrings(types), ",")),
			logging.Err(err))
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "failed to query active resources by type")
	}
	defer rows.Close()

	return r.scanResources(rows)
}

// typeStrings converts resource types to plain strings for array binding.
func typeStrings(types []resource.Type) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	return out
}

func (r *ResourceRepository) scanResource(row pgx.Row, key string) (*resource.Resource, error) {
	var res resource.Resource
	err := row.Scan(
		&res.ID, &res.Name, &res.Description, &res.Type, &res.Organization, &res.Location,
		&res.URL, &res.Cost, &res.Availability, &res.IsActive, &res.Source, &res.SourceID,
		&res.CreatedAt, &res.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, errors.NotFound("resource", key)
		}
		r.logger.Error("scan resource", logging.Err(err))
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "failed to scan resource row")
	}
	return &res, nil
}

func (r *ResourceRepository) scanResources(rows pgx.Rows) ([]*resource.Resource, error) {
	var result []*resource.Resource
	for rows.Next() {
		var res resource.Resource
		err := rows.Scan(
			&res.ID, &res.Name, &res.Description, &res.Type, &res.Organization, &res.Location,
			&res.URL, &res.Cost, &res.Availability, &res.IsActive, &res.Source, &res.SourceID,
			&res.CreatedAt, &res.UpdatedAt,
		)
		if err != nil {
			r.logger.Error("scan resources", logging.Err(err))
			return nil, errors.Wrap(err, errors.CodeDatabaseError, "failed to scan resource row")
		}
		result = append(result, &res)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "resource row iteration failed")
	}
	return result, nil
}
