package store

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/returnguard/returnguard/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses, satisfied by pgxmock
// in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS purchases (
	id              TEXT PRIMARY KEY,
	product_name    TEXT NOT NULL,
	merchant        TEXT NOT NULL DEFAULT '',
	purchase_day    BIGINT NOT NULL,
	return_days     INT NOT NULL,
	warranty_months INT NOT NULL,
	price_cents     BIGINT,
	notes           TEXT NOT NULL DEFAULT '',
	archived        BOOLEAN NOT NULL DEFAULT FALSE,
	created_at_ms   BIGINT NOT NULL,
	updated_at_ms   BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_purchases_archived ON purchases(archived);
CREATE INDEX IF NOT EXISTS idx_purchases_merchant ON purchases(merchant);
CREATE INDEX IF NOT EXISTS idx_purchases_purchase_day ON purchases(purchase_day);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreatePurchase(ctx context.Context, p *model.Purchase) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	now := time.Now().UnixMilli()
	if p.CreatedAtMs == 0 {
		p.CreatedAtMs = now
	}
	p.UpdatedAtMs = now

	_, err := s.pool.Exec(ctx,
		`INSERT INTO purchases (id, product_name, merchant, purchase_day, return_days, warranty_months, price_cents, notes, archived, created_at_ms, updated_at_ms)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		p.ID, p.ProductName, p.Merchant, p.PurchaseDay, p.ReturnDays, p.WarrantyMonths,
		p.PriceCents, p.Notes, p.Archived, p.CreatedAtMs, p.UpdatedAtMs,
	)
	return eris.Wrap(err, "postgres: insert purchase")
}

func (s *PostgresStore) GetPurchase(ctx context.Context, id string) (*model.Purchase, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, product_name, merchant, purchase_day, return_days, warranty_months, price_cents, notes, archived, created_at_ms, updated_at_ms
		 FROM purchases WHERE id = $1`, id)

	var p model.Purchase
	err := row.Scan(
		&p.ID, &p.ProductName, &p.Merchant, &p.PurchaseDay, &p.ReturnDays,
		&p.WarrantyMonths, &p.PriceCents, &p.Notes, &p.Archived,
		&p.CreatedAtMs, &p.UpdatedAtMs,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "id %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get purchase %s", id)
	}
	return &p, nil
}

func (s *PostgresStore) ListPurchases(ctx context.Context, filter ListFilter) ([]model.Purchase, error) {
	query := `SELECT id, product_name, merchant, purchase_day, return_days, warranty_months, price_cents, notes, archived, created_at_ms, updated_at_ms FROM purchases`
	var conds []string
	var args []any
	if !filter.IncludeArchived {
		conds = append(conds, "archived = FALSE")
	}
	if filter.Merchant != "" {
		args = append(args, filter.Merchant)
		conds = append(conds, "merchant = $"+strconv.Itoa(len(args)))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY archived ASC, purchase_day + return_days ASC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += " LIMIT $" + strconv.Itoa(len(args))
		if filter.Offset > 0 {
			args = append(args, filter.Offset)
			query += " OFFSET $" + strconv.Itoa(len(args))
		}
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list purchases")
	}
	defer rows.Close()
	return collectPgxPurchases(rows)
}

func (s *PostgresStore) UpdatePurchase(ctx context.Context, p *model.Purchase) error {
	p.UpdatedAtMs = time.Now().UnixMilli()
	tag, err := s.pool.Exec(ctx,
		`UPDATE purchases SET product_name = $1, merchant = $2, purchase_day = $3, return_days = $4,
			warranty_months = $5, price_cents = $6, notes = $7, archived = $8, updated_at_ms = $9
		 WHERE id = $10`,
		p.ProductName, p.Merchant, p.PurchaseDay, p.ReturnDays, p.WarrantyMonths,
		p.PriceCents, p.Notes, p.Archived, p.UpdatedAtMs, p.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update purchase %s", p.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "id %s", p.ID)
	}
	return nil
}

func (s *PostgresStore) SetArchived(ctx context.Context, id string, archived bool) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE purchases SET archived = $1, updated_at_ms = $2 WHERE id = $3`,
		archived, time.Now().UnixMilli(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: set archived %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "id %s", id)
	}
	return nil
}

func (s *PostgresStore) DeletePurchase(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM purchases WHERE id = $1`, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete purchase %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "id %s", id)
	}
	return nil
}

func (s *PostgresStore) DueBetween(ctx context.Context, fromDay, toDay int64) ([]model.Purchase, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, product_name, merchant, purchase_day, return_days, warranty_months, price_cents, notes, archived, created_at_ms, updated_at_ms
		 FROM purchases
		 WHERE archived = FALSE AND return_days > 0
		   AND purchase_day + return_days BETWEEN $1 AND $2
		 ORDER BY purchase_day + return_days ASC`,
		fromDay, toDay,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: due between")
	}
	defer rows.Close()
	return collectPgxPurchases(rows)
}

func (s *PostgresStore) ReplaceAll(ctx context.Context, items []model.Purchase) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin replace")
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM purchases`); err != nil {
		return eris.Wrap(err, "postgres: clear purchases")
	}
	for i := range items {
		p := &items[i]
		_, err := tx.Exec(ctx,
			`INSERT INTO purchases (id, product_name, merchant, purchase_day, return_days, warranty_months, price_cents, notes, archived, created_at_ms, updated_at_ms)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			p.ID, p.ProductName, p.Merchant, p.PurchaseDay, p.ReturnDays, p.WarrantyMonths,
			p.PriceCents, p.Notes, p.Archived, p.CreatedAtMs, p.UpdatedAtMs,
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: replace insert %s", p.ID)
		}
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit replace")
}

func collectPgxPurchases(rows pgx.Rows) ([]model.Purchase, error) {
	var out []model.Purchase
	for rows.Next() {
		var p model.Purchase
		err := rows.Scan(
			&p.ID, &p.ProductName, &p.Merchant, &p.PurchaseDay, &p.ReturnDays,
			&p.WarrantyMonths, &p.PriceCents, &p.Notes, &p.Archived,
			&p.CreatedAtMs, &p.UpdatedAtMs,
		)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan purchase")
		}
		out = append(out, p)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate purchases")
}
