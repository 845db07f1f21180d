package repositories

import (
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/openlongevity/longmap/internal/domain/resource"
)

func TestQueryBuilder(t *testing.T) {
	t.Parallel()

	t.Run("no conditions", func(t *testing.T) {
		t.Parallel()
		q := newQueryBuilder("SELECT id FROM problems")
		assert.Equal(t, "SELECT id FROM problems", q.sql())
		assert.Empty(t, q.args())
	})

	t.Run("conditions are AND-combined in order", func(t *testing.T) {
		t.Parallel()
		q := newQueryBuilder("SELECT id FROM problems")
		q.where("category = " + q.arg("other"))
		q.where("source = " + q.arg("pubmed"))
		q.orderBy("created_at DESC")

		assert.Equal(t,
			"SELECT id FROM problems WHERE category = $1 AND source = $2 ORDER BY created_at DESC",
			q.sql())
		assert.Equal(t, []interface{}{"other", "pubmed"}, q.args())
	})

	t.Run("paginate defaults and clamps", func(t *testing.T) {
		t.Parallel()
		cases := []struct {
			name                  string
			limit, offset         int
			wantLimit, wantOffset int
		}{
			{"zero limit uses default", 0, 10, defaultPageSize, 10},
			{"negative offset becomes zero", 20, -5, 20, 0},
			{"oversized limit is clamped", 9999, 0, maxPageSize, 0},
			{"in-range values pass through", 25, 50, 25, 50},
		}
		for _, tc := range cases {
			tc := tc
			t.Run(tc.name, func(t *testing.T) {
				t.Parallel()
				q := newQueryBuilder("SELECT id FROM problems")
				q.paginate(tc.limit, tc.offset)

				assert.Equal(t, "SELECT id FROM problems LIMIT $1 OFFSET $2", q.sql())
				assert.Equal(t, []interface{}{tc.wantLimit, tc.wantOffset}, q.args())
			})
		}
	})

	t.Run("pagination placeholders come after filter placeholders", func(t *testing.T) {
		t.Parallel()
		q := newQueryBuilder("SELECT id FROM gaps")
		q.where("priority = " + q.arg("critical"))
		q.paginate(10, 0)

		assert.Equal(t, "SELECT id FROM gaps WHERE priority = $1 LIMIT $2 OFFSET $3", q.sql())
		assert.Equal(t, []interface{}{"critical", 10, 0}, q.args())
	})
}

func TestIsUniqueViolation(t *testing.T) {
	t.Parallel()

	assert.True(t, isUniqueViolation(&pgconn.PgError{Code: pgUniqueViolation}))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, isUniqueViolation(assert.AnError))
	assert.False(t, isUniqueViolation(nil))
}

func TestTypeStrings(t *testing.T) {
	t.Parallel()

	got := typeStrings([]resource.Type{resource.TypeCoreFacility, resource.TypeDataset})
	assert.Equal(t, []string{"core_facility", "dataset"}, got)
	assert.Empty(t, typeStrings(nil))
}
