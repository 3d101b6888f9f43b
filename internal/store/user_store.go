package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/gpwsignals/engine/internal/domain"
)

// SQLUserStore is the sqlite-backed UserStore.
type SQLUserStore struct {
	db  *DB
	log zerolog.Logger
}

func NewSQLUserStore(db *DB, log zerolog.Logger) *SQLUserStore {
	return &SQLUserStore{db: db, log: log.With().Str("repo", "user").Logger()}
}

func (r *SQLUserStore) Get(ctx context.Context, userID int64) (*domain.UserPreferences, error) {
	row := r.db.Conn().QueryRowContext(ctx, `
		SELECT user_id, available_capital, target_profit_pct, max_loss_pct, max_position_size_pct,
		       min_position_value, min_confidence_threshold, min_daily_volume, trading_style,
		       notification_channels, max_signals_per_day, dispatch_hold_summary,
		       telegram_chat_id, email
		FROM user_preferences WHERE user_id = ?`, userID)
	p, err := scanUserPreferences(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user preferences %d: %w", userID, err)
	}
	return p, nil
}

func (r *SQLUserStore) ListAll(ctx context.Context) ([]domain.UserPreferences, error) {
	rows, err := r.db.Conn().QueryContext(ctx, `
		SELECT user_id, available_capital, target_profit_pct, max_loss_pct, max_position_size_pct,
		       min_position_value, min_confidence_threshold, min_daily_volume, trading_style,
		       notification_channels, max_signals_per_day, dispatch_hold_summary,
		       telegram_chat_id, email
		FROM user_preferences ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("list user preferences: %w", err)
	}
	defer rows.Close()

	var out []domain.UserPreferences
	for rows.Next() {
		p, err := scanUserPreferences(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user preferences: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r *SQLUserStore) Upsert(ctx context.Context, p domain.UserPreferences) error {
	channels, err := json.Marshal(p.NotificationChannels)
	if err != nil {
		return fmt.Errorf("marshal notification channels: %w", err)
	}
	_, err = r.db.Conn().ExecContext(ctx, `
		INSERT INTO user_preferences
			(user_id, available_capital, target_profit_pct, max_loss_pct, max_position_size_pct,
			 min_position_value, min_confidence_threshold, min_daily_volume, trading_style,
			 notification_channels, max_signals_per_day, dispatch_hold_summary,
			 telegram_chat_id, email, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			available_capital = excluded.available_capital,
			target_profit_pct = excluded.target_profit_pct,
			max_loss_pct = excluded.max_loss_pct,
			max_position_size_pct = excluded.max_position_size_pct,
			min_position_value = excluded.min_position_value,
			min_confidence_threshold = excluded.min_confidence_threshold,
			min_daily_volume = excluded.min_daily_volume,
			trading_style = excluded.trading_style,
			notification_channels = excluded.notification_channels,
			max_signals_per_day = excluded.max_signals_per_day,
			dispatch_hold_summary = excluded.dispatch_hold_summary,
			telegram_chat_id = excluded.telegram_chat_id,
			email = excluded.email,
			updated_at = excluded.updated_at`,
		p.UserID, p.AvailableCapital.String(), p.TargetProfitPct.String(), p.MaxLossPct.String(),
		p.MaxPositionSizePct.String(), p.MinPositionValue.String(), p.MinConfidenceThreshold,
		p.MinDailyVolume, string(p.TradingStyle), string(channels), p.MaxSignalsPerDay,
		boolToInt(p.DispatchHoldSummary), p.TelegramChatID, p.Email, timeStr(time.Now()))
	if err != nil {
		return fmt.Errorf("upsert user preferences %d: %w", p.UserID, err)
	}
	return nil
}

func scanUserPreferences(row scanner) (*domain.UserPreferences, error) {
	var p domain.UserPreferences
	var availableCapital, targetProfitPct, maxLossPct, maxPositionSizePct, minPositionValue string
	var tradingStyle, channels string
	var dispatchHoldSummary int64
	if err := row.Scan(
		&p.UserID, &availableCapital, &targetProfitPct, &maxLossPct, &maxPositionSizePct,
		&minPositionValue, &p.MinConfidenceThreshold, &p.MinDailyVolume, &tradingStyle,
		&channels, &p.MaxSignalsPerDay, &dispatchHoldSummary,
		&p.TelegramChatID, &p.Email,
	); err != nil {
		return nil, err
	}

	var err error
	if p.AvailableCapital, err = decimal.NewFromString(availableCapital); err != nil {
		return nil, err
	}
	if p.TargetProfitPct, err = decimal.NewFromString(targetProfitPct); err != nil {
		return nil, err
	}
	if p.MaxLossPct, err = decimal.NewFromString(maxLossPct); err != nil {
		return nil, err
	}
	if p.MaxPositionSizePct, err = decimal.NewFromString(maxPositionSizePct); err != nil {
		return nil, err
	}
	if p.MinPositionValue, err = decimal.NewFromString(minPositionValue); err != nil {
		return nil, err
	}
	p.TradingStyle = domain.TradingStyle(tradingStyle)
	p.DispatchHoldSummary = intToBool(dispatchHoldSummary)
	if err := json.Unmarshal([]byte(channels), &p.NotificationChannels); err != nil {
		return nil, fmt.Errorf("unmarshal notification channels: %w", err)
	}
	return &p, nil
}
