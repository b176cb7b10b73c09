package store

import (
	"context"
	"database/sql"
	"testing"

	"entgo.io/ent/dialect"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/matthewbaird/dashboard/internal/domain"
	"github.com/matthewbaird/dashboard/internal/types"
)

func TestDialectFor(t *testing.T) {
	d, err := DialectFor("sqlite")
	require.NoError(t, err)
	assert.Equal(t, dialect.SQLite, d)

	d, err = DialectFor("pgx")
	require.NoError(t, err)
	assert.Equal(t, dialect.Postgres, d)

	_, err = DialectFor("oracle")
	require.Error(t, err)

	_, err = NewSQLStore(nil, "gremlin", testCatalog())
	require.Error(t, err)
}

func TestSQLStore_CountStatement(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s, err := NewSQLStore(db, dialect.SQLite, testCatalog())
	require.NoError(t, err)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM `account_move` WHERE .*`state`").
		WithArgs("posted").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(3)))

	dom, err := domain.Parse(`[('state', '=', 'posted')]`)
	require.NoError(t, err)

	n, err := s.Count(context.Background(), "account.move", dom)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_ReadGroupPostgres(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s, err := NewSQLStore(db, dialect.Postgres, testCatalog())
	require.NoError(t, err)

	mock.ExpectQuery(`to_char\("account_move"\."date", 'YYYY-MM'\).*SUM\("account_move"\."amount_total"\).*GROUP BY`).
		WillReturnRows(sqlmock.NewRows([]string{"month", "count", "sum"}).
			AddRow("2024-01", int64(2), "150.50").
			AddRow(nil, int64(1), nil))

	rows, err := s.ReadGroup(context.Background(), "account.move", nil,
		[]Aggregate{{Field: "amount_total", Func: types.AggSum}},
		[]types.FieldSpec{{Field: "date", Bucket: "month"}})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "janvier 2024", rows[0]["date:month"])
	assert.Equal(t, 2.0, rows[0].Count())
	assert.Equal(t, 150.5, rows[0]["amount_total_sum"])
	assert.Nil(t, rows[1]["date:month"])
	assert.Equal(t, 0.0, rows[1]["amount_total_sum"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_ReadGroupRelationJoin(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s, err := NewSQLStore(db, dialect.MySQL, testCatalog())
	require.NoError(t, err)

	mock.ExpectQuery("LEFT JOIN `res_partner` AS `rel_partner_id`").
		WillReturnRows(sqlmock.NewRows([]string{"partner_id", "name", "count"}).
			AddRow(int64(2), "Acme", int64(4)))

	rows, err := s.ReadGroup(context.Background(), "account.move", nil, nil, []types.FieldSpec{{Field: "partner_id"}})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, types.RelationRef{ID: int64(2), Name: "Acme"}, rows[0]["partner_id"])
	assert.Equal(t, 4.0, rows[0].Count())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_UnknownField(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s, err := NewSQLStore(db, dialect.SQLite, testCatalog())
	require.NoError(t, err)

	dom, _ := domain.Parse(`[('nope', '=', 1)]`)
	_, err = s.Count(context.Background(), "account.move", dom)
	require.ErrorIs(t, err, ErrUnknownField)

	_, err = s.ReadGroup(context.Background(), "account.move", nil, nil, []types.FieldSpec{{Field: "nope"}})
	require.ErrorIs(t, err, ErrUnknownField)
}

// openSQLite creates an in-memory database with the test catalog's tables.
func openSQLite(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	stmts := []string{
		`CREATE TABLE res_partner (id INTEGER PRIMARY KEY, name TEXT)`,
		`CREATE TABLE account_move (id INTEGER PRIMARY KEY, name TEXT, date TEXT, partner_id INTEGER, state TEXT, amount_total REAL)`,
		`INSERT INTO res_partner (id, name) VALUES (1, 'Zeta Corp'), (2, 'Acme')`,
		`INSERT INTO account_move (id, name, date, partner_id, state, amount_total) VALUES
			(1, 'INV/001', '2024-01-15', 1, 'posted', 100.0),
			(2, 'INV/002', '2024-01-20', 2, 'posted', 50.0),
			(3, 'INV/003', '2024-02-03', 2, 'draft', 25.0),
			(4, 'INV/004', NULL, NULL, 'draft', 10.0)`,
	}
	for _, stmt := range stmts {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}
	return db
}

func TestSQLStore_SQLite(t *testing.T) {
	db := openSQLite(t)
	s, err := NewSQLStore(db, dialect.SQLite, testCatalog())
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("search", func(t *testing.T) {
		dom, err := domain.Parse(`['|', ('state', '=', 'posted'), ('partner_id', '=', False)]`)
		require.NoError(t, err)

		recs, err := s.Search(ctx, "account.move", dom, SearchOptions{
			Fields: []string{"name", "partner_id", "amount_total"},
			Order:  []types.OrderSpec{{Field: "amount_total", Desc: true}},
			Limit:  2,
		})
		require.NoError(t, err)
		require.Len(t, recs, 2)
		assert.Equal(t, "INV/001", recs[0]["name"])
		assert.Equal(t, types.RelationRef{ID: int64(1), Name: "Zeta Corp"}, recs[0]["partner_id"])
		assert.Equal(t, 100.0, recs[0]["amount_total"])
		assert.Equal(t, "INV/002", recs[1]["name"])
		_, hasName := recs[0]["partner_id__name"]
		assert.False(t, hasName)
	})

	t.Run("count", func(t *testing.T) {
		dom, err := domain.Parse(`[('name', 'ilike', 'inv/00'), ('state', 'in', ['draft'])]`)
		require.NoError(t, err)
		n, err := s.Count(ctx, "account.move", dom)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})

	t.Run("read group by relation", func(t *testing.T) {
		rows, err := s.ReadGroup(ctx, "account.move", nil,
			[]Aggregate{{Field: "amount_total", Func: types.AggSum}},
			[]types.FieldSpec{{Field: "partner_id"}})
		require.NoError(t, err)
		require.Len(t, rows, 3)

		byName := map[string]types.GroupRow{}
		for _, r := range rows {
			if ref, ok := r["partner_id"].(types.RelationRef); ok {
				byName[ref.Name] = r
			}
		}
		assert.Equal(t, 75.0, byName["Acme"].Number("amount_total_sum"))
		assert.Equal(t, 100.0, byName["Zeta Corp"].Number("amount_total_sum"))
	})

	t.Run("read group by bucket", func(t *testing.T) {
		dom, _ := domain.Parse(`[('date', '!=', False)]`)
		rows, err := s.ReadGroup(ctx, "account.move", dom,
			[]Aggregate{{Field: "amount_total", Func: types.AggSum}},
			[]types.FieldSpec{{Field: "date", Bucket: "quarter"}, {Field: "state"}})
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, "Q1/2024", rows[0]["date:quarter"])
		assert.Equal(t, "draft", rows[0]["state"])
		assert.Equal(t, 25.0, rows[0].Number("amount_total_sum"))
		assert.Equal(t, "posted", rows[1]["state"])
		assert.Equal(t, 150.0, rows[1].Number("amount_total_sum"))
	})
}
