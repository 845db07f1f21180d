package repositories

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// pgUniqueViolation is the PostgreSQL error code for unique-constraint
// violations.
const pgUniqueViolation = "23505"

// isUniqueViolation reports whether err is a unique-constraint violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return stderrors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// touchNow returns the timestamp used for server-side updated_at refreshes.
func touchNow() time.Time { return time.Now().UTC() }

// ─────────────────────────────────────────────────────────────────────────────
// queryBuilder — incremental WHERE / ORDER BY / LIMIT assembly
// ─────────────────────────────────────────────────────────────────────────────

// defaultPageSize and maxPageSize mirror the API pagination bounds.
const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// queryBuilder assembles a parameterised SELECT from optional filter clauses.
// Placeholders are numbered in the order arg is called.
type queryBuilder struct {
	base       string
	conditions []string
	order      string
	tail       string
	params     []interface{}
}

func newQueryBuilder(base string) *queryBuilder {
	return &queryBuilder{base: base}
}

// arg registers a query parameter and returns its placeholder.
func (q *queryBuilder) arg(v interface{}) string {
	q.params = append(q.params, v)
	return fmt.Sprintf("$%d", len(q.params))
}

// where appends an AND-combined condition. Conditions must reference
// placeholders obtained from arg, never interpolate values.
func (q *queryBuilder) where(cond string) {
	q.conditions = append(q.conditions, cond)
}

func (q *queryBuilder) orderBy(expr string) {
	q.order = expr
}

// paginate applies LIMIT/OFFSET with the API's defaults: a non-positive limit
// becomes defaultPageSize, limits above maxPageSize are clamped, negative
// offsets become zero.
func (q *queryBuilder) paginate(limit, offset int) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	q.tail = fmt.Sprintf("LIMIT %s OFFSET %s", q.arg(limit), q.arg(offset))
}

func (q *queryBuilder) sql() string {
	var b strings.Builder
	b.WriteString(q.base)
	if len(q.conditions) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(q.conditions, " AND "))
	}
	if q.order != "" {
		b.WriteString(" ORDER BY ")
		b.WriteString(q.order)
	}
	if q.tail != "" {
		b.WriteString(" ")
		b.WriteString(q.tail)
	}
	return b.String()
}

func (q *queryBuilder) args() []interface{} {
	return q.params
}
