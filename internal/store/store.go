// Package store persists purchases behind a driver-agnostic interface with
// SQLite and PostgreSQL backends.
package store

import (
	"context"
	"database/sql"

	"github.com/rotisserie/eris"

	"github.com/returnguard/returnguard/internal/config"
	"github.com/returnguard/returnguard/internal/model"
)

// ErrNotFound is returned when no purchase matches the given id.
var ErrNotFound = eris.New("store: purchase not found")

// ListFilter specifies criteria for listing purchases.
type ListFilter struct {
	IncludeArchived bool   `json:"include_archived,omitempty"`
	Merchant        string `json:"merchant,omitempty"`
	Limit           int    `json:"limit,omitempty"`
	Offset          int    `json:"offset,omitempty"`
}

// Store defines the persistence interface for purchases.
type Store interface {
	CreatePurchase(ctx context.Context, p *model.Purchase) error
	GetPurchase(ctx context.Context, id string) (*model.Purchase, error)
	ListPurchases(ctx context.Context, filter ListFilter) ([]model.Purchase, error)
	UpdatePurchase(ctx context.Context, p *model.Purchase) error
	SetArchived(ctx context.Context, id string, archived bool) error
	DeletePurchase(ctx context.Context, id string) error

	// DueBetween returns active purchases whose return deadline falls in
	// [fromDay, toDay], both inclusive epoch days.
	DueBetween(ctx context.Context, fromDay, toDay int64) ([]model.Purchase, error)

	// ReplaceAll atomically swaps the full purchase set, used by backup
	// import.
	ReplaceAll(ctx context.Context, items []model.Purchase) error

	Migrate(ctx context.Context) error
	Close() error
}

// Open creates the Store selected by the configuration and runs migrations.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	var (
		s   Store
		err error
	)
	switch cfg.Driver {
	case "sqlite":
		s, err = NewSQLite(cfg.Path)
	case "postgres":
		s, err = NewPostgres(ctx, cfg.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func checkRowsAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrapf(err, "store: rows affected for %s", id)
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "id %s", id)
	}
	return nil
}
