// Package newsanalyzer computes the time-weighted news sentiment
// aggregate for a stock (spec.md §4.7): a decaying, source- and
// impact-weighted combination of recent Classification.perStock entries.
package newsanalyzer

import (
	"fmt"
	"math"

	"github.com/gpwsignals/engine/internal/domain"
)

// PeriodWeight is the piecewise age-bucket weight table: ≤15min, ≤60min,
// ≤240min, and older than 240min (any older age, including earlier days).
type PeriodWeight struct {
	Within15Min  float64
	Within60Min  float64
	Within240Min float64
	OlderToday   float64
}

// Profile names a complete weighting configuration for the analyzer,
// selected via config.yaml's news section (spec.md §4.7: "named
// profile").
type Profile struct {
	Name                   string
	HalfLifeMinutes        float64
	Period                 PeriodWeight
	ImpactWeights          map[domain.ImpactLevel]float64
	BreakingNewsMultiplier float64
	MarketHoursMultiplier  float64
	PreMarketMultiplier    float64
}

// defaultImpactWeights is unchanged across profiles per spec.md §4.7.
func defaultImpactWeights() map[domain.ImpactLevel]float64 {
	return map[domain.ImpactLevel]float64{
		domain.ImpactVeryHigh: 2.0,
		domain.ImpactHigh:     1.5,
		domain.ImpactMedium:   1.0,
		domain.ImpactLow:      0.6,
		domain.ImpactMinimal:  0.3,
	}
}

// Validate checks that the piecewise period weights sum to 1 +/- 0.05,
// per spec.md §4.7.
func (p Profile) Validate() error {
	sum := p.Period.Within15Min + p.Period.Within60Min + p.Period.Within240Min + p.Period.OlderToday
	if math.Abs(sum-1.0) > 0.05 {
		return fmt.Errorf("newsanalyzer: profile %q period weights sum to %.3f, want 1 +/- 0.05", p.Name, sum)
	}
	if p.HalfLifeMinutes < 15 || p.HalfLifeMinutes > 1440 {
		return fmt.Errorf("newsanalyzer: profile %q halfLifeMinutes %.0f out of [15, 1440]", p.Name, p.HalfLifeMinutes)
	}
	return nil
}

// PeriodWeightFor returns the piecewise weight for an article's age.
func (p Profile) PeriodWeightFor(ageMinutes float64) float64 {
	switch {
	case ageMinutes <= 15:
		return p.Period.Within15Min
	case ageMinutes <= 60:
		return p.Period.Within60Min
	case ageMinutes <= 240:
		return p.Period.Within240Min
	default:
		return p.Period.OlderToday
	}
}

// Named profiles (spec.md §4.7): intraday-aggressive, intraday-default,
// intraday-conservative, swing.
var (
	IntradayAggressive = Profile{
		Name: "intraday-aggressive", HalfLifeMinutes: 60,
		Period:        PeriodWeight{Within15Min: 0.50, Within60Min: 0.30, Within240Min: 0.15, OlderToday: 0.05},
		ImpactWeights: defaultImpactWeights(), BreakingNewsMultiplier: 2.0, MarketHoursMultiplier: 1.5, PreMarketMultiplier: 1.2,
	}
	IntradayDefault = Profile{
		Name: "intraday-default", HalfLifeMinutes: 120,
		Period:        PeriodWeight{Within15Min: 0.40, Within60Min: 0.30, Within240Min: 0.20, OlderToday: 0.10},
		ImpactWeights: defaultImpactWeights(), BreakingNewsMultiplier: 2.0, MarketHoursMultiplier: 1.5, PreMarketMultiplier: 1.2,
	}
	IntradayConservative = Profile{
		Name: "intraday-conservative", HalfLifeMinutes: 240,
		Period:        PeriodWeight{Within15Min: 0.30, Within60Min: 0.30, Within240Min: 0.25, OlderToday: 0.15},
		ImpactWeights: defaultImpactWeights(), BreakingNewsMultiplier: 2.0, MarketHoursMultiplier: 1.5, PreMarketMultiplier: 1.2,
	}
	Swing = Profile{
		Name: "swing", HalfLifeMinutes: 720,
		Period:        PeriodWeight{Within15Min: 0.20, Within60Min: 0.25, Within240Min: 0.25, OlderToday: 0.30},
		ImpactWeights: defaultImpactWeights(), BreakingNewsMultiplier: 2.0, MarketHoursMultiplier: 1.5, PreMarketMultiplier: 1.2,
	}
)

// ProfileByName resolves one of the named profiles, defaulting to
// IntradayDefault for an unrecognised name.
func ProfileByName(name string) Profile {
	switch name {
	case "intraday-aggressive":
		return IntradayAggressive
	case "intraday-conservative":
		return IntradayConservative
	case "swing":
		return Swing
	default:
		return IntradayDefault
	}
}
