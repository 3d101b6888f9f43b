package outcome

import (
	"context"
	"fmt"
	"time"

	"github.com/gpwsignals/engine/internal/domain"
	"github.com/gpwsignals/engine/internal/store"
	"github.com/gpwsignals/engine/pkg/formulas"
)

// Summary is a feedback aggregate over a stock's resolved signals: the
// overview's "intraday performance tracker ... produces feedback
// aggregates" made concrete as a win-rate and return distribution.
type Summary struct {
	Stock          string
	ResolvedCount  int
	TargetHitCount int
	StopHitCount   int
	WinRatePct     float64
	AvgReturnPct   float64
	ReturnStdDev   float64
}

// Summarize computes a Summary for stock over signals resolved at or
// after since. A stock with no resolved signals yet returns a zero-value
// Summary (ResolvedCount 0), not an error.
func Summarize(ctx context.Context, signals store.SignalStore, stock string, since time.Time) (Summary, error) {
	resolved, err := signals.ResolvedSince(ctx, stock, since)
	if err != nil {
		return Summary{}, fmt.Errorf("outcome: resolved signals for %s: %w", stock, err)
	}

	s := Summary{Stock: stock, ResolvedCount: len(resolved)}
	if len(resolved) == 0 {
		return s, nil
	}

	returns := make([]float64, 0, len(resolved))
	for _, sig := range resolved {
		if sig.Outcome == nil {
			continue
		}
		switch sig.Outcome.Resolution {
		case domain.ResolutionTargetHit:
			s.TargetHitCount++
		case domain.ResolutionStopHit:
			s.StopHitCount++
		}
		ret, _ := sig.Outcome.RealisedReturnPct.Float64()
		returns = append(returns, ret)
	}

	s.AvgReturnPct = formulas.Mean(returns)
	s.ReturnStdDev = formulas.StdDev(returns)
	s.WinRatePct = float64(s.TargetHitCount) / float64(s.ResolvedCount) * 100
	return s, nil
}
