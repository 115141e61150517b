package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/returnguard/returnguard/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS purchases (
	id              TEXT PRIMARY KEY,
	product_name    TEXT NOT NULL,
	merchant        TEXT NOT NULL DEFAULT '',
	purchase_day    INTEGER NOT NULL,
	return_days     INTEGER NOT NULL,
	warranty_months INTEGER NOT NULL,
	price_cents     INTEGER,
	notes           TEXT NOT NULL DEFAULT '',
	archived        INTEGER NOT NULL DEFAULT 0,
	created_at_ms   INTEGER NOT NULL,
	updated_at_ms   INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_purchases_archived ON purchases(archived);
CREATE INDEX IF NOT EXISTS idx_purchases_merchant ON purchases(merchant);
CREATE INDEX IF NOT EXISTS idx_purchases_purchase_day ON purchases(purchase_day);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const purchaseColumns = `id, product_name, merchant, purchase_day, return_days, warranty_months, price_cents, notes, archived, created_at_ms, updated_at_ms`

func (s *SQLiteStore) CreatePurchase(ctx context.Context, p *model.Purchase) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	now := time.Now().UnixMilli()
	if p.CreatedAtMs == 0 {
		p.CreatedAtMs = now
	}
	p.UpdatedAtMs = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO purchases (`+purchaseColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.ProductName, p.Merchant, p.PurchaseDay, p.ReturnDays, p.WarrantyMonths,
		p.PriceCents, p.Notes, boolToInt(p.Archived), p.CreatedAtMs, p.UpdatedAtMs,
	)
	return eris.Wrap(err, "sqlite: insert purchase")
}

func (s *SQLiteStore) GetPurchase(ctx context.Context, id string) (*model.Purchase, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+purchaseColumns+` FROM purchases WHERE id = ?`, id)
	p, err := scanPurchase(row)
	if err == sql.ErrNoRows {
		return nil, eris.Wrapf(ErrNotFound, "id %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get purchase %s", id)
	}
	return p, nil
}

func (s *SQLiteStore) ListPurchases(ctx context.Context, filter ListFilter) ([]model.Purchase, error) {
	query := `SELECT ` + purchaseColumns + ` FROM purchases`
	var conds []string
	var args []any
	if !filter.IncludeArchived {
		conds = append(conds, "archived = 0")
	}
	if filter.Merchant != "" {
		conds = append(conds, "merchant = ?")
		args = append(args, filter.Merchant)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	// Active purchases first, soonest return deadline on top.
	query += " ORDER BY archived ASC, purchase_day + return_days ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list purchases")
	}
	defer rows.Close()
	return collectPurchases(rows)
}

func (s *SQLiteStore) UpdatePurchase(ctx context.Context, p *model.Purchase) error {
	p.UpdatedAtMs = time.Now().UnixMilli()
	res, err := s.db.ExecContext(ctx,
		`UPDATE purchases SET product_name = ?, merchant = ?, purchase_day = ?, return_days = ?,
			warranty_months = ?, price_cents = ?, notes = ?, archived = ?, updated_at_ms = ?
		 WHERE id = ?`,
		p.ProductName, p.Merchant, p.PurchaseDay, p.ReturnDays, p.WarrantyMonths,
		p.PriceCents, p.Notes, boolToInt(p.Archived), p.UpdatedAtMs, p.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update purchase %s", p.ID)
	}
	return checkRowsAffected(res, p.ID)
}

func (s *SQLiteStore) SetArchived(ctx context.Context, id string, archived bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE purchases SET archived = ?, updated_at_ms = ? WHERE id = ?`,
		boolToInt(archived), time.Now().UnixMilli(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set archived %s", id)
	}
	return checkRowsAffected(res, id)
}

func (s *SQLiteStore) DeletePurchase(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM purchases WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete purchase %s", id)
	}
	return checkRowsAffected(res, id)
}

func (s *SQLiteStore) DueBetween(ctx context.Context, fromDay, toDay int64) ([]model.Purchase, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+purchaseColumns+` FROM purchases
		 WHERE archived = 0 AND return_days > 0
		   AND purchase_day + return_days BETWEEN ? AND ?
		 ORDER BY purchase_day + return_days ASC`,
		fromDay, toDay,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: due between")
	}
	defer rows.Close()
	return collectPurchases(rows)
}

func (s *SQLiteStore) ReplaceAll(ctx context.Context, items []model.Purchase) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin replace")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM purchases`); err != nil {
		return eris.Wrap(err, "sqlite: clear purchases")
	}
	for i := range items {
		p := &items[i]
		_, err := tx.ExecContext(ctx,
			`INSERT INTO purchases (`+purchaseColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID, p.ProductName, p.Merchant, p.PurchaseDay, p.ReturnDays, p.WarrantyMonths,
			p.PriceCents, p.Notes, boolToInt(p.Archived), p.CreatedAtMs, p.UpdatedAtMs,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: replace insert %s", p.ID)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit replace")
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

type scannable interface {
	Scan(dest ...any) error
}

func scanPurchase(row scannable) (*model.Purchase, error) {
	var p model.Purchase
	var archived int
	err := row.Scan(
		&p.ID, &p.ProductName, &p.Merchant, &p.PurchaseDay, &p.ReturnDays,
		&p.WarrantyMonths, &p.PriceCents, &p.Notes, &archived,
		&p.CreatedAtMs, &p.UpdatedAtMs,
	)
	if err != nil {
		return nil, err
	}
	p.Archived = archived != 0
	return &p, nil
}

func collectPurchases(rows *sql.Rows) ([]model.Purchase, error) {
	var out []model.Purchase
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan purchase")
		}
		out = append(out, *p)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate purchases")
}
