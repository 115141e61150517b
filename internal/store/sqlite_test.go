package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/returnguard/returnguard/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })
	return s
}

func cents(v int64) *int64 { return &v }

func testPurchase() *model.Purchase {
	return &model.Purchase{
		ProductName:    "Akkuschrauber",
		Merchant:       "Haas Maschinen",
		PurchaseDay:    19800,
		ReturnDays:     14,
		WarrantyMonths: 24,
		PriceCents:     cents(19990),
		Notes:          "Kassenbon",
	}
}

func TestSQLiteStore_CreateAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := testPurchase()
	require.NoError(t, s.CreatePurchase(ctx, p))
	assert.NotEmpty(t, p.ID)
	assert.NotZero(t, p.CreatedAtMs)

	got, err := s.GetPurchase(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ProductName, got.ProductName)
	assert.Equal(t, p.Merchant, got.Merchant)
	assert.Equal(t, p.PurchaseDay, got.PurchaseDay)
	require.NotNil(t, got.PriceCents)
	assert.Equal(t, int64(19990), *got.PriceCents)
	assert.False(t, got.Archived)
}

func TestSQLiteStore_CreateKeepsProvidedID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := testPurchase()
	p.ID = "fixed-id"
	require.NoError(t, s.CreatePurchase(ctx, p))

	got, err := s.GetPurchase(ctx, "fixed-id")
	require.NoError(t, err)
	assert.Equal(t, "fixed-id", got.ID)
}

func TestSQLiteStore_GetNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetPurchase(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore_NilPrice(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := testPurchase()
	p.PriceCents = nil
	require.NoError(t, s.CreatePurchase(ctx, p))

	got, err := s.GetPurchase(ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, got.PriceCents)
}

func TestSQLiteStore_ListExcludesArchived(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	active := testPurchase()
	require.NoError(t, s.CreatePurchase(ctx, active))

	archived := testPurchase()
	archived.Archived = true
	require.NoError(t, s.CreatePurchase(ctx, archived))

	got, err := s.ListPurchases(ctx, ListFilter{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, active.ID, got[0].ID)

	all, err := s.ListPurchases(ctx, ListFilter{IncludeArchived: true})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestSQLiteStore_ListMerchantFilter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := testPurchase()
	require.NoError(t, s.CreatePurchase(ctx, a))
	b := testPurchase()
	b.Merchant = "Anders GmbH"
	require.NoError(t, s.CreatePurchase(ctx, b))

	got, err := s.ListPurchases(ctx, ListFilter{Merchant: "Anders GmbH"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, b.ID, got[0].ID)
}

func TestSQLiteStore_ListOrderAndLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	later := testPurchase()
	later.PurchaseDay = 19900 // due 19914
	require.NoError(t, s.CreatePurchase(ctx, later))
	soon := testPurchase()
	soon.PurchaseDay = 19700 // due 19714
	require.NoError(t, s.CreatePurchase(ctx, soon))
	archived := testPurchase()
	archived.PurchaseDay = 19600
	archived.Archived = true
	require.NoError(t, s.CreatePurchase(ctx, archived))

	// active first, soonest return deadline on top
	got, err := s.ListPurchases(ctx, ListFilter{IncludeArchived: true})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, soon.ID, got[0].ID)
	assert.Equal(t, later.ID, got[1].ID)
	assert.Equal(t, archived.ID, got[2].ID)

	limited, err := s.ListPurchases(ctx, ListFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, soon.ID, limited[0].ID)
}

func TestSQLiteStore_Update(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := testPurchase()
	require.NoError(t, s.CreatePurchase(ctx, p))

	p.ProductName = "Winkelschleifer"
	p.ReturnDays = 30
	require.NoError(t, s.UpdatePurchase(ctx, p))

	got, err := s.GetPurchase(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Winkelschleifer", got.ProductName)
	assert.Equal(t, 30, got.ReturnDays)
}

func TestSQLiteStore_UpdateNotFound(t *testing.T) {
	s := newTestStore(t)

	p := testPurchase()
	p.ID = "missing"
	err := s.UpdatePurchase(context.Background(), p)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore_SetArchived(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := testPurchase()
	require.NoError(t, s.CreatePurchase(ctx, p))
	require.NoError(t, s.SetArchived(ctx, p.ID, true))

	got, err := s.GetPurchase(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, got.Archived)

	assert.ErrorIs(t, s.SetArchived(ctx, "missing", true), ErrNotFound)
}

func TestSQLiteStore_Delete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := testPurchase()
	require.NoError(t, s.CreatePurchase(ctx, p))
	require.NoError(t, s.DeletePurchase(ctx, p.ID))

	_, err := s.GetPurchase(ctx, p.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, s.DeletePurchase(ctx, p.ID), ErrNotFound)
}

func TestSQLiteStore_DueBetween(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	due := testPurchase()
	due.PurchaseDay = 19800
	due.ReturnDays = 14 // due day 19814
	require.NoError(t, s.CreatePurchase(ctx, due))

	later := testPurchase()
	later.PurchaseDay = 19810
	later.ReturnDays = 14 // due day 19824
	require.NoError(t, s.CreatePurchase(ctx, later))

	noReturn := testPurchase()
	noReturn.ReturnDays = 0
	require.NoError(t, s.CreatePurchase(ctx, noReturn))

	archived := testPurchase()
	archived.PurchaseDay = 19800
	archived.Archived = true
	require.NoError(t, s.CreatePurchase(ctx, archived))

	got, err := s.DueBetween(ctx, 19814, 19815)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, due.ID, got[0].ID)

	// both bounds inclusive
	got, err = s.DueBetween(ctx, 19814, 19824)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestSQLiteStore_ReplaceAll(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	old := testPurchase()
	require.NoError(t, s.CreatePurchase(ctx, old))

	replacement := *testPurchase()
	replacement.ID = "imported-1"
	replacement.CreatedAtMs = 1
	replacement.UpdatedAtMs = 1
	require.NoError(t, s.ReplaceAll(ctx, []model.Purchase{replacement}))

	got, err := s.ListPurchases(ctx, ListFilter{IncludeArchived: true})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "imported-1", got[0].ID)

	_, err = s.GetPurchase(ctx, old.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore_ReplaceAllEmpty(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreatePurchase(ctx, testPurchase()))
	require.NoError(t, s.ReplaceAll(ctx, nil))

	got, err := s.ListPurchases(ctx, ListFilter{IncludeArchived: true})
	require.NoError(t, err)
	assert.Empty(t, got)
}
