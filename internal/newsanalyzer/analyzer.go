package newsanalyzer

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/gpwsignals/engine/internal/clock"
	"github.com/gpwsignals/engine/internal/domain"
	"github.com/gpwsignals/engine/internal/store"
)

// Aggregate is the time-weighted news view for one stock over a lookback
// window (spec.md §4.7).
type Aggregate struct {
	WeightedSentiment float64 // undefined (zero) when TotalWeight == 0
	TotalWeight       float64
	ArticleCount      int
	Momentum          float64 // aggregate(last 2h) - aggregate(older than 2h)
	ImpactLevel       domain.ImpactLevel
	Summary           string
}

// SourceWeights maps a feed id to a [0, 2] weight, from config.yaml's
// news.sourceWeights (spec.md §6). Unlisted sources default to 1.0.
type SourceWeights map[string]float64

func (w SourceWeights) weight(source string) float64 {
	if v, ok := w[source]; ok {
		return v
	}
	return 1.0
}

// Analyzer computes Aggregate for a stock from classified articles.
type Analyzer struct {
	news     store.NewsStore
	cal      *clock.Calendar
	profile  Profile
	sources  SourceWeights
}

// New builds an Analyzer using profile for weighting and sources for
// per-feed weight overrides.
func New(news store.NewsStore, cal *clock.Calendar, profile Profile, sources SourceWeights) *Analyzer {
	return &Analyzer{news: news, cal: cal, profile: profile, sources: sources}
}

// Aggregate computes the weighted sentiment aggregate for symbol over the
// given lookback window, as of now.
func (a *Analyzer) Aggregate(ctx context.Context, symbol string, lookback time.Duration, now time.Time) (Aggregate, error) {
	articles, err := a.news.RecentForStock(ctx, symbol, now.Add(-lookback))
	if err != nil {
		return Aggregate{}, fmt.Errorf("newsanalyzer: fetch recent articles for %s: %w", symbol, err)
	}

	var (
		weightedSum, totalWeight   float64
		recentSum, recentWeight    float64
		olderSum, olderWeight      float64
		count                      int
		maxImpact                  = domain.ImpactMinimal
	)

	for _, article := range articles {
		if !article.HasClassification() {
			continue
		}
		var sentiment *domain.StockSentiment
		for i := range article.Classification.PerStock {
			if article.Classification.PerStock[i].Symbol == symbol {
				sentiment = &article.Classification.PerStock[i]
				break
			}
		}
		if sentiment == nil {
			continue
		}

		ageMinutes := now.Sub(article.PublishedAt).Minutes()
		if ageMinutes < 0 {
			ageMinutes = 0
		}
		impact := article.Classification.Impact
		w := a.weightFor(article.Source, ageMinutes, impact, now)

		weightedSum += sentiment.SentimentScore * w
		totalWeight += w
		count++
		if impactRank(impact) > impactRank(maxImpact) {
			maxImpact = impact
		}

		if ageMinutes <= 120 {
			recentSum += sentiment.SentimentScore * w
			recentWeight += w
		} else {
			olderSum += sentiment.SentimentScore * w
			olderWeight += w
		}
	}

	var weightedSentiment float64
	if totalWeight > 0 {
		weightedSentiment = weightedSum / totalWeight
	}

	var recentAgg, olderAgg float64
	if recentWeight > 0 {
		recentAgg = recentSum / recentWeight
	}
	if olderWeight > 0 {
		olderAgg = olderSum / olderWeight
	}

	return Aggregate{
		WeightedSentiment: weightedSentiment,
		TotalWeight:       totalWeight,
		ArticleCount:      count,
		Momentum:          recentAgg - olderAgg,
		ImpactLevel:       maxImpact,
		Summary:           fmt.Sprintf("%d articles, weighted sentiment %.2f, impact %s", count, weightedSentiment, maxImpact),
	}, nil
}

// weightFor computes w_i = sourceWeight * periodWeight(age) *
// impactWeight(impact) * exp(-ln2 * ageMinutes / halfLife), then applies
// the breaking-news, market-hours, and pre-market multipliers.
func (a *Analyzer) weightFor(source string, ageMinutes float64, impact domain.ImpactLevel, now time.Time) float64 {
	sourceW := a.sources.weight(source)
	periodW := a.profile.PeriodWeightFor(ageMinutes)
	impactW := a.profile.ImpactWeights[impact]
	decay := math.Exp(-math.Ln2 * ageMinutes / a.profile.HalfLifeMinutes)

	w := sourceW * periodW * impactW * decay

	if (impact == domain.ImpactHigh || impact == domain.ImpactVeryHigh) && ageMinutes <= 60 {
		w *= a.profile.BreakingNewsMultiplier
	}

	switch {
	case a.cal.IsInSession(now):
		w *= a.profile.MarketHoursMultiplier
	case isPreMarket(now):
		w *= a.profile.PreMarketMultiplier
	}

	return w
}

func isPreMarket(t time.Time) bool {
	local := t.In(clock.Warsaw)
	h, m := local.Hour(), local.Minute()
	minutes := h*60 + m
	return minutes >= 7*60 && minutes < 9*60
}

func impactRank(i domain.ImpactLevel) int {
	switch i {
	case domain.ImpactVeryHigh:
		return 4
	case domain.ImpactHigh:
		return 3
	case domain.ImpactMedium:
		return 2
	case domain.ImpactLow:
		return 1
	default:
		return 0
	}
}
