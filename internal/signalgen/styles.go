// Package signalgen implements the Signal Generator (spec.md §4.8):
// eligibility filter, technical vote tally, news adjustment, preference
// filter, risk envelope, and deduplication/supersede.
package signalgen

import (
	"github.com/shopspring/decimal"

	"github.com/gpwsignals/engine/internal/domain"
)

// Envelope is the resolved risk envelope for one signal: the fractional
// target/stop distances from priceAtSignal and the fraction of available
// capital a position may use.
type Envelope struct {
	TargetProfitPct    decimal.Decimal
	MaxLossPct         decimal.Decimal
	MaxPositionSizePct decimal.Decimal
}

// StyleDefaults holds the default risk envelope per domain.TradingStyle,
// used whenever a user leaves the corresponding preference field at its
// zero value (spec.md §4.8 "Risk envelope"; the exact magnitudes are an
// Open Question the source leaves ambiguous — see DESIGN.md).
var StyleDefaults = map[domain.TradingStyle]Envelope{
	domain.StyleConservative: {pct("0.02"), pct("0.01"), pct("0.05")},
	domain.StyleModerate:     {pct("0.03"), pct("0.02"), pct("0.10")},
	domain.StyleAggressive:   {pct("0.05"), pct("0.03"), pct("0.20")},
	domain.StyleScalping:     {pct("0.01"), pct("0.005"), pct("0.10")},
	domain.StyleSwing:        {pct("0.08"), pct("0.04"), pct("0.15")},
}

func pct(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// resolveEnvelope returns the style default for p.TradingStyle, with any
// explicit non-zero preference field overriding its corresponding
// default field.
func resolveEnvelope(p domain.UserPreferences) Envelope {
	env, ok := StyleDefaults[p.TradingStyle]
	if !ok {
		env = StyleDefaults[domain.StyleModerate]
	}
	if !p.TargetProfitPct.IsZero() {
		env.TargetProfitPct = p.TargetProfitPct
	}
	if !p.MaxLossPct.IsZero() {
		env.MaxLossPct = p.MaxLossPct
	}
	if !p.MaxPositionSizePct.IsZero() {
		env.MaxPositionSizePct = p.MaxPositionSizePct
	}
	return env
}
