package store

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/returnguard/returnguard/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

var purchaseCols = []string{
	"id", "product_name", "merchant", "purchase_day", "return_days",
	"warranty_months", "price_cents", "notes", "archived",
	"created_at_ms", "updated_at_ms",
}

func TestPostgresStore_CreatePurchase(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO purchases`).
		WithArgs(pgxmock.AnyArg(), "Akkuschrauber", "Haas Maschinen", int64(19800), 14, 24,
			cents(19990), "Kassenbon", false, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	p := testPurchase()
	require.NoError(t, s.CreatePurchase(context.Background(), p))
	assert.NotEmpty(t, p.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetPurchase_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT .* FROM purchases WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetPurchase(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetPurchase(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT .* FROM purchases WHERE id = \$1`).
		WithArgs("p-1").
		WillReturnRows(pgxmock.NewRows(purchaseCols).AddRow(
			"p-1", "Akkuschrauber", "Haas Maschinen", int64(19800), 14, 24,
			cents(19990), "", false, int64(1000), int64(1000),
		))

	got, err := s.GetPurchase(context.Background(), "p-1")
	require.NoError(t, err)
	assert.Equal(t, "Akkuschrauber", got.ProductName)
	require.NotNil(t, got.PriceCents)
	assert.Equal(t, int64(19990), *got.PriceCents)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListPurchases(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT .* FROM purchases WHERE archived = FALSE ORDER BY`).
		WillReturnRows(pgxmock.NewRows(purchaseCols).AddRow(
			"p-1", "Akkuschrauber", "Haas Maschinen", int64(19800), 14, 24,
			(*int64)(nil), "", false, int64(1000), int64(1000),
		))

	got, err := s.ListPurchases(context.Background(), ListFilter{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Nil(t, got[0].PriceCents)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteNotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`DELETE FROM purchases WHERE id = \$1`).
		WithArgs("missing").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err := s.DeletePurchase(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SetArchived(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE purchases SET archived = \$1`).
		WithArgs(true, pgxmock.AnyArg(), "p-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	assert.NoError(t, s.SetArchived(context.Background(), "p-1", true))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DueBetween(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT .* FROM purchases\s+WHERE archived = FALSE AND return_days > 0`).
		WithArgs(int64(19814), int64(19815)).
		WillReturnRows(pgxmock.NewRows(purchaseCols).AddRow(
			"p-1", "Akkuschrauber", "Haas Maschinen", int64(19800), 14, 24,
			cents(19990), "", false, int64(1000), int64(1000),
		))

	got, err := s.DueBetween(context.Background(), 19814, 19815)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ReplaceAll(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM purchases`).
		WillReturnResult(pgxmock.NewResult("DELETE", 2))
	mock.ExpectExec(`INSERT INTO purchases`).
		WithArgs(
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	item := *testPurchase()
	item.ID = "imported-1"
	require.NoError(t, s.ReplaceAll(context.Background(), []model.Purchase{item}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS purchases`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	assert.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
