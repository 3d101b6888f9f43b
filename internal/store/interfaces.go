package store

import (
	"context"
	"time"

	"github.com/gpwsignals/engine/internal/domain"
)

// StockStore is the read/write interface over monitored GPW securities.
type StockStore interface {
	GetBySymbol(ctx context.Context, symbol string) (*domain.Stock, error)
	ListMonitored(ctx context.Context) ([]domain.Stock, error)
	Upsert(ctx context.Context, s domain.Stock) error
}

// OHLCVStore is the read/write interface over minute-aligned price bars.
type OHLCVStore interface {
	// Insert appends a bar. A duplicate (stock, timestamp) is a no-op,
	// matching the append-only idempotence spec.md §3 requires.
	Insert(ctx context.Context, bar domain.OHLCVBar) error
	// BarsSince returns bars for stock strictly after ts, ascending.
	BarsSince(ctx context.Context, stock string, ts time.Time) ([]domain.OHLCVBar, error)
	// BarsInRange returns bars for stock within [from, to], ascending.
	BarsInRange(ctx context.Context, stock string, from, to time.Time) ([]domain.OHLCVBar, error)
	// LatestClose returns the most recent bar for stock, if any.
	LatestClose(ctx context.Context, stock string) (*domain.OHLCVBar, error)
}

// NewsStore is the read/write interface over ingested articles.
type NewsStore interface {
	// InsertIfNew inserts an article by URL, reporting whether it was
	// new (false means it was already present and nothing changed).
	InsertIfNew(ctx context.Context, a domain.NewsArticle) (bool, error)
	Unclassified(ctx context.Context, limit int) ([]domain.NewsArticle, error)
	SetClassification(ctx context.Context, articleID int64, c domain.Classification) error
	RecentForStock(ctx context.Context, symbol string, since time.Time) ([]domain.NewsArticle, error)
}

// UserStore is the read/write interface over per-user preferences.
type UserStore interface {
	Get(ctx context.Context, userID int64) (*domain.UserPreferences, error)
	ListAll(ctx context.Context) ([]domain.UserPreferences, error)
	Upsert(ctx context.Context, p domain.UserPreferences) error
}

// SignalStore is the read/write interface over generated signals and
// their eventual outcomes.
type SignalStore interface {
	// InsertAndSupersede inserts a new signal for (user, stock, session)
	// and marks any existing open signal for the same key as expired,
	// all within one transaction (spec.md §4.8 dedup/supersede rule).
	// Populates sig.ID with the assigned row id.
	InsertAndSupersede(ctx context.Context, sig *domain.TradingSignal) error
	// InsertHold inserts a hold signal as a plain row: unlike
	// InsertAndSupersede it never expires other open signals for the
	// same key, since a hold carries no dedup/supersede semantics
	// (spec.md §4.8) and must not cancel a real open buy/sell.
	InsertHold(ctx context.Context, sig *domain.TradingSignal) error
	// OpenSignalForKey returns the live (unexpired, unresolved) non-hold
	// signal for (userID, stock, sessionDate), if any, so the generator
	// can apply the same-type-reject / opposite-type-supersede rule
	// (spec.md §4.8 "Deduplication") before calling InsertAndSupersede.
	OpenSignalForKey(ctx context.Context, userID int64, stock string, sessionDate time.Time) (*domain.TradingSignal, error)
	// CountForUserOnDate counts all non-hold signals generated for userID
	// on sessionDate, dispatched or not, for the maxSignalsPerDay
	// eligibility check (spec.md §4.8).
	CountForUserOnDate(ctx context.Context, userID int64, sessionDate time.Time) (int, error)
	OpenSignals(ctx context.Context, asOf time.Time) ([]domain.TradingSignal, error)
	UndispatchedSignals(ctx context.Context) ([]domain.TradingSignal, error)
	MarkDispatched(ctx context.Context, signalID int64, at time.Time) error
	ExpireUndispatched(ctx context.Context, before time.Time) (int, error)
	// AttachOutcomeAndResolve writes the final outcome for a signal and
	// marks it closed, write-once (a second call for the same signal is
	// a no-op returning ErrAlreadyResolved).
	AttachOutcomeAndResolve(ctx context.Context, outcome domain.SignalOutcome) error
	RecordDelivery(ctx context.Context, d domain.ChannelDelivery) error
	// DeliveryStatus returns the existing delivery record for
	// (signalID, channel), if any, so the Dispatcher can skip a channel
	// that already delivered successfully (spec.md §4.9 "idempotent by
	// (signal, channel)") while still retrying channels that failed.
	DeliveryStatus(ctx context.Context, signalID int64, channel domain.NotificationChannel) (*domain.ChannelDelivery, error)
	// ResolvedSince returns resolved (outcome-attached) signals for stock
	// whose outcome exitAt is at or after since, ascending, for feedback
	// aggregation (spec.md overview: "produces feedback aggregates").
	ResolvedSince(ctx context.Context, stock string, since time.Time) ([]domain.TradingSignal, error)
}

// ScheduleStore records scheduler executions (spec.md §4.2).
type ScheduleStore interface {
	RecordExecution(ctx context.Context, e domain.ScheduleExecution) error
	RecentExecutions(ctx context.Context, kind domain.ScheduleKind, limit int) ([]domain.ScheduleExecution, error)
}
