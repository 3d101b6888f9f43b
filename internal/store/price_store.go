package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/gpwsignals/engine/internal/domain"
)

// SQLOHLCVStore is the sqlite-backed OHLCVStore.
type SQLOHLCVStore struct {
	db  *DB
	log zerolog.Logger
}

func NewSQLOHLCVStore(db *DB, log zerolog.Logger) *SQLOHLCVStore {
	return &SQLOHLCVStore{db: db, log: log.With().Str("repo", "ohlcv").Logger()}
}

func (r *SQLOHLCVStore) Insert(ctx context.Context, bar domain.OHLCVBar) error {
	_, err := r.db.Conn().ExecContext(ctx, `
		INSERT INTO ohlcv_bars (stock, timestamp, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(stock, timestamp) DO NOTHING`,
		bar.Stock, timeStr(bar.Timestamp), bar.Open.String(), bar.High.String(), bar.Low.String(), bar.Close.String(), bar.Volume)
	if err != nil {
		return fmt.Errorf("insert bar %s@%s: %w", bar.Stock, bar.Timestamp, err)
	}
	return nil
}

func (r *SQLOHLCVStore) BarsSince(ctx context.Context, stock string, ts time.Time) ([]domain.OHLCVBar, error) {
	rows, err := r.db.Conn().QueryContext(ctx, `
		SELECT id, stock, timestamp, open, high, low, close, volume
		FROM ohlcv_bars WHERE stock = ? AND timestamp > ? ORDER BY timestamp ASC`,
		stock, timeStr(ts))
	if err != nil {
		return nil, fmt.Errorf("bars since: %w", err)
	}
	defer rows.Close()
	return scanBars(rows)
}

func (r *SQLOHLCVStore) BarsInRange(ctx context.Context, stock string, from, to time.Time) ([]domain.OHLCVBar, error) {
	rows, err := r.db.Conn().QueryContext(ctx, `
		SELECT id, stock, timestamp, open, high, low, close, volume
		FROM ohlcv_bars WHERE stock = ? AND timestamp >= ? AND timestamp <= ? ORDER BY timestamp ASC`,
		stock, timeStr(from), timeStr(to))
	if err != nil {
		return nil, fmt.Errorf("bars in range: %w", err)
	}
	defer rows.Close()
	return scanBars(rows)
}

func (r *SQLOHLCVStore) LatestClose(ctx context.Context, stock string) (*domain.OHLCVBar, error) {
	row := r.db.Conn().QueryRowContext(ctx, `
		SELECT id, stock, timestamp, open, high, low, close, volume
		FROM ohlcv_bars WHERE stock = ? ORDER BY timestamp DESC LIMIT 1`, stock)
	bar, err := scanBar(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest close: %w", err)
	}
	return bar, nil
}

func scanBars(rows *sql.Rows) ([]domain.OHLCVBar, error) {
	var out []domain.OHLCVBar
	for rows.Next() {
		bar, err := scanBar(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		out = append(out, *bar)
	}
	return out, rows.Err()
}

func scanBar(row scanner) (*domain.OHLCVBar, error) {
	var b domain.OHLCVBar
	var ts, open, high, low, close string
	if err := row.Scan(&b.ID, &b.Stock, &ts, &open, &high, &low, &close, &b.Volume); err != nil {
		return nil, err
	}
	var err error
	if b.Timestamp, err = parseTime(ts); err != nil {
		return nil, err
	}
	if b.Open, err = decimal.NewFromString(open); err != nil {
		return nil, err
	}
	if b.High, err = decimal.NewFromString(high); err != nil {
		return nil, err
	}
	if b.Low, err = decimal.NewFromString(low); err != nil {
		return nil, err
	}
	if b.Close, err = decimal.NewFromString(close); err != nil {
		return nil, err
	}
	return &b, nil
}
