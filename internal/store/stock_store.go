package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/gpwsignals/engine/internal/domain"
)

// SQLStockStore is the sqlite-backed StockStore.
type SQLStockStore struct {
	db  *DB
	log zerolog.Logger
}

func NewSQLStockStore(db *DB, log zerolog.Logger) *SQLStockStore {
	return &SQLStockStore{db: db, log: log.With().Str("repo", "stock").Logger()}
}

func (r *SQLStockStore) GetBySymbol(ctx context.Context, symbol string) (*domain.Stock, error) {
	row := r.db.Conn().QueryRowContext(ctx, `
		SELECT id, symbol, name, is_monitored, market, industry, is_deleted, created_at, updated_at
		FROM stocks WHERE symbol = ? AND is_deleted = 0`, strings.ToUpper(symbol))
	s, err := scanStock(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get stock by symbol: %w", err)
	}
	return s, nil
}

func (r *SQLStockStore) ListMonitored(ctx context.Context) ([]domain.Stock, error) {
	rows, err := r.db.Conn().QueryContext(ctx, `
		SELECT id, symbol, name, is_monitored, market, industry, is_deleted, created_at, updated_at
		FROM stocks WHERE is_monitored = 1 AND is_deleted = 0 ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("list monitored stocks: %w", err)
	}
	defer rows.Close()

	var out []domain.Stock
	for rows.Next() {
		s, err := scanStock(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stock: %w", err)
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func (r *SQLStockStore) Upsert(ctx context.Context, s domain.Stock) error {
	now := timeStr(time.Now())
	_, err := r.db.Conn().ExecContext(ctx, `
		INSERT INTO stocks (symbol, name, is_monitored, market, industry, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(symbol) DO UPDATE SET
			name = excluded.name,
			is_monitored = excluded.is_monitored,
			market = excluded.market,
			industry = excluded.industry,
			updated_at = excluded.updated_at`,
		strings.ToUpper(s.Symbol), s.Name, boolToInt(s.IsMonitored), s.Market, s.Industry, now, now)
	if err != nil {
		return fmt.Errorf("upsert stock %s: %w", s.Symbol, err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanStock(row scanner) (*domain.Stock, error) {
	var s domain.Stock
	var isMonitored, isDeleted int64
	var createdAt, updatedAt string
	if err := row.Scan(&s.ID, &s.Symbol, &s.Name, &isMonitored, &s.Market, &s.Industry, &isDeleted, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	s.IsMonitored = intToBool(isMonitored)
	s.IsDeleted = intToBool(isDeleted)
	var err error
	if s.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if s.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}
