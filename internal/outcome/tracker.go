// Package outcome implements the Outcome Tracker (spec.md §4.10):
// resolving open signals against subsequent OHLCV bars, strictly
// write-once, in parallel across signals via internal/workerpool.
package outcome

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/gpwsignals/engine/internal/clock"
	"github.com/gpwsignals/engine/internal/domain"
	"github.com/gpwsignals/engine/internal/store"
	"github.com/gpwsignals/engine/internal/workerpool"
	"github.com/gpwsignals/engine/pkg/decimalutil"
)

type resolveResult struct {
	signalID int64
	resolved bool
	err      error
}

// Tracker resolves non-hold, non-resolved TradingSignals in timestamp
// order against bars strictly after their createdAt.
type Tracker struct {
	signals store.SignalStore
	bars    store.OHLCVStore
	cal     *clock.Calendar
	pool    *workerpool.Pool
	log     zerolog.Logger
}

func New(signals store.SignalStore, bars store.OHLCVStore, cal *clock.Calendar, maxConcurrency int, log zerolog.Logger) *Tracker {
	return &Tracker{
		signals: signals,
		bars:    bars,
		cal:     cal,
		pool:    workerpool.New(maxConcurrency),
		log:     log.With().Str("component", "outcome").Logger(),
	}
}

// Run resolves every currently-open signal as of now, returning the
// number successfully resolved. A single signal's store failure does
// not abort the batch (spec.md §7 "Transient-external").
func (t *Tracker) Run(ctx context.Context, now time.Time) (resolved int, err error) {
	open, err := t.signals.OpenSignals(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("outcome: list open signals: %w", err)
	}

	results := workerpool.Map(ctx, t.pool, open, func(ctx context.Context, sig domain.TradingSignal) resolveResult {
		ok, err := t.resolveOne(ctx, sig, now)
		return resolveResult{signalID: sig.ID, resolved: ok, err: err}
	})

	for _, r := range results {
		if r.err != nil {
			t.log.Warn().Err(r.err).Int64("signal_id", r.signalID).Msg("outcome resolution failed")
			continue
		}
		if r.resolved {
			resolved++
		}
	}
	return resolved, nil
}

// resolveOne evaluates sig against its bars and, if a resolution fires,
// attaches it. Resolution is strictly one-way: AttachOutcomeAndResolve
// is a no-op (ErrAlreadyResolved) if called twice for the same signal.
func (t *Tracker) resolveOne(ctx context.Context, sig domain.TradingSignal, now time.Time) (bool, error) {
	bars, err := t.bars.BarsSince(ctx, sig.Stock, sig.CreatedAt2)
	if err != nil {
		return false, fmt.Errorf("bars since for %s: %w", sig.Stock, err)
	}
	if len(bars) == 0 {
		return false, nil
	}

	session := t.cal.SessionFor(sig.SessionDate)
	var outcome *domain.SignalOutcome
	for _, bar := range bars {
		if o := resolutionFor(sig, bar); o != nil {
			outcome = o
			break
		}
	}

	if outcome == nil {
		last := bars[len(bars)-1]
		if !session.IsTradingDay || !last.Timestamp.Before(session.CloseTime) {
			outcome = &domain.SignalOutcome{
				SignalID:   sig.ID,
				Resolution: domain.ResolutionClosedAtSessionEnd,
				ExitPrice:  last.Close,
				ExitAt:     last.Timestamp,
			}
		}
	}

	if outcome == nil {
		return false, nil // still open, nothing fired yet
	}

	outcome.RealisedReturnPct = realisedReturnPct(sig, outcome.ExitPrice)
	outcome.HoldingMinutes = int64(outcome.ExitAt.Sub(sig.CreatedAt2).Minutes())

	if err := t.signals.AttachOutcomeAndResolve(ctx, *outcome); err != nil {
		if err == store.ErrAlreadyResolved {
			return false, nil
		}
		return false, fmt.Errorf("attach outcome for signal %d: %w", sig.ID, err)
	}
	return true, nil
}

// resolutionFor checks one bar against sig's target/stop, returning the
// resolved outcome if it fires, or nil if the bar doesn't resolve it.
func resolutionFor(sig domain.TradingSignal, bar domain.OHLCVBar) *domain.SignalOutcome {
	switch sig.Type {
	case domain.SignalBuy:
		if bar.High.GreaterThanOrEqual(sig.TargetPrice) {
			return &domain.SignalOutcome{SignalID: sig.ID, Resolution: domain.ResolutionTargetHit, ExitPrice: sig.TargetPrice, ExitAt: bar.Timestamp}
		}
		if bar.Low.LessThanOrEqual(sig.StopLossPrice) {
			return &domain.SignalOutcome{SignalID: sig.ID, Resolution: domain.ResolutionStopHit, ExitPrice: sig.StopLossPrice, ExitAt: bar.Timestamp}
		}
	case domain.SignalSell:
		if bar.Low.LessThanOrEqual(sig.TargetPrice) {
			return &domain.SignalOutcome{SignalID: sig.ID, Resolution: domain.ResolutionTargetHit, ExitPrice: sig.TargetPrice, ExitAt: bar.Timestamp}
		}
		if bar.High.GreaterThanOrEqual(sig.StopLossPrice) {
			return &domain.SignalOutcome{SignalID: sig.ID, Resolution: domain.ResolutionStopHit, ExitPrice: sig.StopLossPrice, ExitAt: bar.Timestamp}
		}
	}
	return nil
}

// realisedReturnPct is the signed percentage return of exitPrice versus
// priceAtSignal, sign chosen by direction.
func realisedReturnPct(sig domain.TradingSignal, exitPrice decimal.Decimal) decimal.Decimal {
	diff := exitPrice.Sub(sig.PriceAtSignal)
	if sig.Type == domain.SignalSell {
		diff = diff.Neg()
	}
	pct := diff.Div(sig.PriceAtSignal).Mul(decimal.NewFromInt(100))
	return decimalutil.Round4(pct)
}
