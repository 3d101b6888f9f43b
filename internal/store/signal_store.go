package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/gpwsignals/engine/internal/domain"
)

// ErrAlreadyResolved is returned by AttachOutcomeAndResolve when a signal
// already carries an outcome; outcomes are write-once.
var ErrAlreadyResolved = errors.New("signal already resolved")

// SQLSignalStore is the sqlite-backed SignalStore.
type SQLSignalStore struct {
	db  *DB
	log zerolog.Logger
}

func NewSQLSignalStore(db *DB, log zerolog.Logger) *SQLSignalStore {
	return &SQLSignalStore{db: db, log: log.With().Str("repo", "signal").Logger()}
}

// InsertAndSupersede marks any existing open (undispatched-or-dispatched,
// unresolved, unexpired) signal for the same (user, stock, session) as
// expired, then inserts sig, all in one transaction. This is the dedup
// rule: at most one live signal per user/stock/session.
func (r *SQLSignalStore) InsertAndSupersede(ctx context.Context, sig *domain.TradingSignal) error {
	tx, err := r.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	sessionDate := sig.SessionDate.UTC().Format("2006-01-02")
	if _, err := tx.ExecContext(ctx, `
		UPDATE trading_signals SET is_expired = 1, updated_at = ?
		WHERE user_id = ? AND stock = ? AND session_date = ?
		  AND is_expired = 0 AND id NOT IN (SELECT signal_id FROM signal_outcomes)`,
		timeStr(time.Now()), sig.UserID, sig.Stock, sessionDate); err != nil {
		return fmt.Errorf("supersede prior signals: %w", err)
	}

	reasonJSON, err := json.Marshal(sig.Reason)
	if err != nil {
		return fmt.Errorf("marshal reason: %w", err)
	}
	var newsImpactJSON sql.NullString
	if sig.NewsImpact != nil {
		blob, err := json.Marshal(sig.NewsImpact)
		if err != nil {
			return fmt.Errorf("marshal news impact: %w", err)
		}
		newsImpactJSON = sql.NullString{String: string(blob), Valid: true}
	}

	now := timeStr(time.Now())
	res, err := tx.ExecContext(ctx, `
		INSERT INTO trading_signals
			(user_id, stock, session_date, created_at, type, confidence, price_at_signal,
			 target_price, stop_loss_price, position_shares, reason, news_impact,
			 modified_by_news, is_dispatched, dispatched_at, is_expired, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, NULL, 0, ?)`,
		sig.UserID, sig.Stock, sessionDate, timeStr(sig.CreatedAt2), string(sig.Type), sig.Confidence,
		sig.PriceAtSignal.String(), sig.TargetPrice.String(), sig.StopLossPrice.String(), sig.PositionShares,
		string(reasonJSON), newsImpactJSON, boolToInt(sig.ModifiedByNews), now)
	if err != nil {
		return fmt.Errorf("insert signal: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	sig.ID = id
	return nil
}

func (r *SQLSignalStore) InsertHold(ctx context.Context, sig *domain.TradingSignal) error {
	reasonJSON, err := json.Marshal(sig.Reason)
	if err != nil {
		return fmt.Errorf("marshal reason: %w", err)
	}
	var newsImpactJSON sql.NullString
	if sig.NewsImpact != nil {
		blob, err := json.Marshal(sig.NewsImpact)
		if err != nil {
			return fmt.Errorf("marshal news impact: %w", err)
		}
		newsImpactJSON = sql.NullString{String: string(blob), Valid: true}
	}

	sessionDate := sig.SessionDate.UTC().Format("2006-01-02")
	now := timeStr(time.Now())
	res, err := r.db.Conn().ExecContext(ctx, `
		INSERT INTO trading_signals
			(user_id, stock, session_date, created_at, type, confidence, price_at_signal,
			 target_price, stop_loss_price, position_shares, reason, news_impact,
			 modified_by_news, is_dispatched, dispatched_at, is_expired, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, NULL, 0, ?)`,
		sig.UserID, sig.Stock, sessionDate, timeStr(sig.CreatedAt2), string(sig.Type), sig.Confidence,
		sig.PriceAtSignal.String(), sig.TargetPrice.String(), sig.StopLossPrice.String(), sig.PositionShares,
		string(reasonJSON), newsImpactJSON, boolToInt(sig.ModifiedByNews), now)
	if err != nil {
		return fmt.Errorf("insert hold signal: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	sig.ID = id
	return nil
}

func (r *SQLSignalStore) OpenSignalForKey(ctx context.Context, userID int64, stock string, sessionDate time.Time) (*domain.TradingSignal, error) {
	row := r.db.Conn().QueryRowContext(ctx, `
		SELECT id, user_id, stock, session_date, created_at, type, confidence,
		       price_at_signal, target_price, stop_loss_price, position_shares, reason,
		       news_impact, modified_by_news, is_dispatched, dispatched_at, is_expired
		FROM trading_signals
		WHERE user_id = ? AND stock = ? AND session_date = ? AND type != 'hold'
		  AND is_expired = 0 AND id NOT IN (SELECT signal_id FROM signal_outcomes)
		ORDER BY created_at DESC LIMIT 1`,
		userID, stock, sessionDate.UTC().Format("2006-01-02"))
	sig, err := scanSignal(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open signal for key: %w", err)
	}
	return sig, nil
}

func (r *SQLSignalStore) CountForUserOnDate(ctx context.Context, userID int64, sessionDate time.Time) (int, error) {
	var n int
	err := r.db.Conn().QueryRowContext(ctx, `
		SELECT COUNT(1) FROM trading_signals
		WHERE user_id = ? AND session_date = ? AND type != 'hold'`,
		userID, sessionDate.UTC().Format("2006-01-02")).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count signals for user on date: %w", err)
	}
	return n, nil
}

func (r *SQLSignalStore) OpenSignals(ctx context.Context, asOf time.Time) ([]domain.TradingSignal, error) {
	rows, err := r.db.Conn().QueryContext(ctx, `
		SELECT s.id, s.user_id, s.stock, s.session_date, s.created_at, s.type, s.confidence,
		       s.price_at_signal, s.target_price, s.stop_loss_price, s.position_shares, s.reason,
		       s.news_impact, s.modified_by_news, s.is_dispatched, s.dispatched_at, s.is_expired
		FROM trading_signals s
		WHERE s.type != 'hold' AND s.is_expired = 0
		  AND s.id NOT IN (SELECT signal_id FROM signal_outcomes)
		  AND s.session_date <= ?
		ORDER BY s.created_at ASC`, asOf.UTC().Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("open signals: %w", err)
	}
	defer rows.Close()
	return scanSignals(rows)
}

func (r *SQLSignalStore) UndispatchedSignals(ctx context.Context) ([]domain.TradingSignal, error) {
	rows, err := r.db.Conn().QueryContext(ctx, `
		SELECT id, user_id, stock, session_date, created_at, type, confidence,
		       price_at_signal, target_price, stop_loss_price, position_shares, reason,
		       news_impact, modified_by_news, is_dispatched, dispatched_at, is_expired
		FROM trading_signals WHERE is_dispatched = 0 AND is_expired = 0 ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("undispatched signals: %w", err)
	}
	defer rows.Close()
	return scanSignals(rows)
}

func (r *SQLSignalStore) MarkDispatched(ctx context.Context, signalID int64, at time.Time) error {
	_, err := r.db.Conn().ExecContext(ctx, `
		UPDATE trading_signals SET is_dispatched = 1, dispatched_at = ?, updated_at = ? WHERE id = ?`,
		timeStr(at), timeStr(time.Now()), signalID)
	if err != nil {
		return fmt.Errorf("mark dispatched %d: %w", signalID, err)
	}
	return nil
}

func (r *SQLSignalStore) ExpireUndispatched(ctx context.Context, before time.Time) (int, error) {
	res, err := r.db.Conn().ExecContext(ctx, `
		UPDATE trading_signals SET is_expired = 1, updated_at = ?
		WHERE is_dispatched = 0 AND is_expired = 0 AND created_at < ?`,
		timeStr(time.Now()), timeStr(before))
	if err != nil {
		return 0, fmt.Errorf("expire undispatched: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (r *SQLSignalStore) AttachOutcomeAndResolve(ctx context.Context, outcome domain.SignalOutcome) error {
	tx, err := r.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM signal_outcomes WHERE signal_id = ?`, outcome.SignalID).Scan(&exists); err != nil {
		return fmt.Errorf("check existing outcome: %w", err)
	}
	if exists > 0 {
		return ErrAlreadyResolved
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO signal_outcomes (signal_id, resolution, exit_price, exit_at, realised_return_pct, holding_minutes)
		VALUES (?, ?, ?, ?, ?, ?)`,
		outcome.SignalID, string(outcome.Resolution), outcome.ExitPrice.String(), timeStr(outcome.ExitAt),
		outcome.RealisedReturnPct.String(), outcome.HoldingMinutes); err != nil {
		return fmt.Errorf("insert outcome: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r *SQLSignalStore) RecordDelivery(ctx context.Context, d domain.ChannelDelivery) error {
	_, err := r.db.Conn().ExecContext(ctx, `
		INSERT INTO channel_deliveries (signal_id, channel, status, attempts, last_attempt_at, delivered_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(signal_id, channel) DO UPDATE SET
			status = excluded.status,
			attempts = excluded.attempts,
			last_attempt_at = excluded.last_attempt_at,
			delivered_at = excluded.delivered_at`,
		d.SignalID, string(d.Channel), d.Status, d.Attempts, nullTimeStr(d.LastAttemptAt), nullTimeStr(d.DeliveredAt))
	if err != nil {
		return fmt.Errorf("record delivery for signal %d/%s: %w", d.SignalID, d.Channel, err)
	}
	return nil
}

// ResolvedSince returns every resolved (non-hold) signal for stock whose
// outcome's exitAt falls at or after since, ascending, with Outcome
// populated -- the feedback-aggregate source spec.md's overview names
// ("the intraday performance tracker ... produces feedback aggregates").
func (r *SQLSignalStore) ResolvedSince(ctx context.Context, stock string, since time.Time) ([]domain.TradingSignal, error) {
	rows, err := r.db.Conn().QueryContext(ctx, `
		SELECT s.id, s.user_id, s.stock, s.session_date, s.created_at, s.type, s.confidence,
		       s.price_at_signal, s.target_price, s.stop_loss_price, s.position_shares, s.reason,
		       s.news_impact, s.modified_by_news, s.is_dispatched, s.dispatched_at, s.is_expired,
		       o.resolution, o.exit_price, o.exit_at, o.realised_return_pct, o.holding_minutes
		FROM trading_signals s
		JOIN signal_outcomes o ON o.signal_id = s.id
		WHERE s.stock = ? AND o.exit_at >= ?
		ORDER BY o.exit_at ASC`, stock, timeStr(since))
	if err != nil {
		return nil, fmt.Errorf("resolved signals since: %w", err)
	}
	defer rows.Close()

	var out []domain.TradingSignal
	for rows.Next() {
		sig, outcome, err := scanSignalWithOutcome(rows)
		if err != nil {
			return nil, fmt.Errorf("scan resolved signal: %w", err)
		}
		sig.Outcome = outcome
		out = append(out, *sig)
	}
	return out, rows.Err()
}

func scanSignalWithOutcome(row scanner) (*domain.TradingSignal, *domain.SignalOutcome, error) {
	var s domain.TradingSignal
	var sessionDate, createdAt, sigType string
	var priceAtSignal, targetPrice, stopLossPrice string
	var reasonJSON string
	var newsImpactJSON sql.NullString
	var modifiedByNews, isDispatched, isExpired int64
	var dispatchedAt sql.NullString
	var resolution, exitPrice, exitAt, realisedReturnPct string
	var holdingMinutes int64

	if err := row.Scan(
		&s.ID, &s.UserID, &s.Stock, &sessionDate, &createdAt, &sigType, &s.Confidence,
		&priceAtSignal, &targetPrice, &stopLossPrice, &s.PositionShares, &reasonJSON,
		&newsImpactJSON, &modifiedByNews, &isDispatched, &dispatchedAt, &isExpired,
		&resolution, &exitPrice, &exitAt, &realisedReturnPct, &holdingMinutes,
	); err != nil {
		return nil, nil, err
	}

	var err error
	if s.SessionDate, err = time.Parse("2006-01-02", sessionDate); err != nil {
		return nil, nil, err
	}
	if s.CreatedAt2, err = parseTime(createdAt); err != nil {
		return nil, nil, err
	}
	s.Type = domain.SignalType(sigType)
	if s.PriceAtSignal, err = decimal.NewFromString(priceAtSignal); err != nil {
		return nil, nil, err
	}
	if s.TargetPrice, err = decimal.NewFromString(targetPrice); err != nil {
		return nil, nil, err
	}
	if s.StopLossPrice, err = decimal.NewFromString(stopLossPrice); err != nil {
		return nil, nil, err
	}
	if err := json.Unmarshal([]byte(reasonJSON), &s.Reason); err != nil {
		return nil, nil, fmt.Errorf("unmarshal reason: %w", err)
	}
	if newsImpactJSON.Valid {
		var ni domain.NewsImpact
		if err := json.Unmarshal([]byte(newsImpactJSON.String), &ni); err != nil {
			return nil, nil, fmt.Errorf("unmarshal news impact: %w", err)
		}
		s.NewsImpact = &ni
	}
	s.ModifiedByNews = intToBool(modifiedByNews)
	s.IsDispatched = intToBool(isDispatched)
	s.IsExpired = intToBool(isExpired)
	if s.DispatchedAt, err = nullStringToTimePtr(dispatchedAt); err != nil {
		return nil, nil, err
	}

	outcome := &domain.SignalOutcome{SignalID: s.ID, Resolution: domain.Resolution(resolution), HoldingMinutes: holdingMinutes}
	if outcome.ExitPrice, err = decimal.NewFromString(exitPrice); err != nil {
		return nil, nil, err
	}
	if outcome.RealisedReturnPct, err = decimal.NewFromString(realisedReturnPct); err != nil {
		return nil, nil, err
	}
	if outcome.ExitAt, err = parseTime(exitAt); err != nil {
		return nil, nil, err
	}
	return &s, outcome, nil
}

func (r *SQLSignalStore) DeliveryStatus(ctx context.Context, signalID int64, channel domain.NotificationChannel) (*domain.ChannelDelivery, error) {
	row := r.db.Conn().QueryRowContext(ctx, `
		SELECT signal_id, channel, status, attempts, last_attempt_at, delivered_at
		FROM channel_deliveries WHERE signal_id = ? AND channel = ?`, signalID, string(channel))

	var d domain.ChannelDelivery
	var ch string
	var lastAttempt, deliveredAt sql.NullString
	err := row.Scan(&d.SignalID, &ch, &d.Status, &d.Attempts, &lastAttempt, &deliveredAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("delivery status for signal %d/%s: %w", signalID, channel, err)
	}
	d.Channel = domain.NotificationChannel(ch)
	if d.LastAttemptAt, err = nullStringToTimePtr(lastAttempt); err != nil {
		return nil, err
	}
	if d.DeliveredAt, err = nullStringToTimePtr(deliveredAt); err != nil {
		return nil, err
	}
	return &d, nil
}

func scanSignals(rows *sql.Rows) ([]domain.TradingSignal, error) {
	var out []domain.TradingSignal
	for rows.Next() {
		sig, err := scanSignal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan signal: %w", err)
		}
		out = append(out, *sig)
	}
	return out, rows.Err()
}

func scanSignal(row scanner) (*domain.TradingSignal, error) {
	var s domain.TradingSignal
	var sessionDate, createdAt, sigType string
	var priceAtSignal, targetPrice, stopLossPrice string
	var reasonJSON string
	var newsImpactJSON sql.NullString
	var modifiedByNews, isDispatched, isExpired int64
	var dispatchedAt sql.NullString

	if err := row.Scan(
		&s.ID, &s.UserID, &s.Stock, &sessionDate, &createdAt, &sigType, &s.Confidence,
		&priceAtSignal, &targetPrice, &stopLossPrice, &s.PositionShares, &reasonJSON,
		&newsImpactJSON, &modifiedByNews, &isDispatched, &dispatchedAt, &isExpired,
	); err != nil {
		return nil, err
	}

	var err error
	if s.SessionDate, err = time.Parse("2006-01-02", sessionDate); err != nil {
		return nil, err
	}
	if s.CreatedAt2, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	s.Type = domain.SignalType(sigType)
	if s.PriceAtSignal, err = decimal.NewFromString(priceAtSignal); err != nil {
		return nil, err
	}
	if s.TargetPrice, err = decimal.NewFromString(targetPrice); err != nil {
		return nil, err
	}
	if s.StopLossPrice, err = decimal.NewFromString(stopLossPrice); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(reasonJSON), &s.Reason); err != nil {
		return nil, fmt.Errorf("unmarshal reason: %w", err)
	}
	if newsImpactJSON.Valid {
		var ni domain.NewsImpact
		if err := json.Unmarshal([]byte(newsImpactJSON.String), &ni); err != nil {
			return nil, fmt.Errorf("unmarshal news impact: %w", err)
		}
		s.NewsImpact = &ni
	}
	s.ModifiedByNews = intToBool(modifiedByNews)
	s.IsDispatched = intToBool(isDispatched)
	s.IsExpired = intToBool(isExpired)
	if s.DispatchedAt, err = nullStringToTimePtr(dispatchedAt); err != nil {
		return nil, err
	}
	return &s, nil
}
