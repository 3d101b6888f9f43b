package signalgen

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/gpwsignals/engine/internal/config"
	"github.com/gpwsignals/engine/internal/domain"
	"github.com/gpwsignals/engine/internal/events"
	"github.com/gpwsignals/engine/internal/newsanalyzer"
	"github.com/gpwsignals/engine/internal/store"
	"github.com/gpwsignals/engine/pkg/decimalutil"
)

// NewsAnalyzer is the subset of internal/newsanalyzer.Analyzer the
// generator depends on, named here so tests can substitute a fake.
type NewsAnalyzer interface {
	Aggregate(ctx context.Context, symbol string, lookback time.Duration, now time.Time) (newsanalyzer.Aggregate, error)
}

// Aggregate is the news view the generator reasons over.
type Aggregate = newsanalyzer.Aggregate

const newsLookback = 24 * time.Hour

// Generator implements spec.md §4.8's eligibility filter, technical
// score, news adjustment, preference filter, risk envelope, and
// deduplication, for one (user, stock) pair per call.
type Generator struct {
	stocks  store.StockStore
	bars    store.OHLCVStore
	signals store.SignalStore
	news    NewsAnalyzer
	prefs   *prefCache
	bus     *events.Manager
	log     zerolog.Logger

	magnitudes magnitudes
}

// New builds a Generator. profile selects the confidence-adjustment
// magnitudes (spec.md §4.8, §6 "signalProfile").
func New(stocks store.StockStore, bars store.OHLCVStore, signals store.SignalStore, news NewsAnalyzer,
	users store.UserStore, bus *events.Manager, profile config.SignalProfile, log zerolog.Logger) *Generator {
	return &Generator{
		stocks:     stocks,
		bars:       bars,
		signals:    signals,
		news:       news,
		prefs:      newPrefCache(users, bus),
		bus:        bus,
		log:        log.With().Str("component", "signalgen").Logger(),
		magnitudes: magnitudesFor(profile),
	}
}

// Generate produces (and persists, unless rejected by dedup) at most one
// TradingSignal for (userID, symbol) as of now. A nil result with a nil
// error means the pair was ineligible and no signal was produced at all
// (not even a hold) -- e.g. the stock isn't monitored -- or that the
// candidate was rejected as a same-type duplicate and not persisted.
func (g *Generator) Generate(ctx context.Context, userID int64, symbol string, now time.Time) (*domain.TradingSignal, error) {
	logger := g.log.With().Int64("user_id", userID).Str("stock", symbol).Logger()

	stock, err := g.stocks.GetBySymbol(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("signalgen: load stock %s: %w", symbol, err)
	}
	if stock == nil || !stock.IsMonitored {
		return nil, nil
	}

	prefs, err := g.prefs.get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("signalgen: load preferences for user %d: %w", userID, err)
	}
	if prefs == nil {
		return nil, nil
	}

	sessionDate := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	dayStart := sessionDate
	bars, err := g.bars.BarsInRange(ctx, symbol, dayStart, now)
	if err != nil {
		return nil, fmt.Errorf("signalgen: load bars for %s: %w", symbol, err)
	}
	if len(bars) == 0 {
		return nil, nil
	}
	last := bars[len(bars)-1]

	avgDailyVolume := sumVolume(bars)
	if avgDailyVolume < prefs.MinDailyVolume {
		logger.Debug().Msg("below minDailyVolume, skipping")
		return nil, nil
	}

	signalCount, err := g.signals.CountForUserOnDate(ctx, userID, sessionDate)
	if err != nil {
		return nil, fmt.Errorf("signalgen: count signals for user %d: %w", userID, err)
	}
	if prefs.MaxSignalsPerDay > 0 && signalCount >= prefs.MaxSignalsPerDay {
		logger.Debug().Msg("maxSignalsPerDay reached, skipping")
		return nil, nil
	}

	sig := &domain.TradingSignal{
		UserID:        userID,
		Stock:         symbol,
		SessionDate:   sessionDate,
		CreatedAt2:    now,
		PriceAtSignal: last.Close,
	}

	closes := closesOf(bars)
	votes, ok := technicalScore(closes)
	if !ok {
		sig.Type = domain.SignalHold
		sig.Confidence = 0
		sig.Reason = domain.Reason{Kind: domain.ReasonInsufficientData, Detail: "fewer bars than required for a full indicator window"}
		return g.persist(ctx, sig, prefs)
	}

	bullish, bearish := votes.count(true), votes.count(false)
	switch {
	case bullish >= 3 && bullish > bearish:
		sig.Type = domain.SignalBuy
		sig.Confidence = preliminaryConfidence(bullish, g.magnitudes)
		sig.Reason = domain.Reason{Kind: domain.ReasonTechnicalVotes, BullishVotes: votes.bullish}
	case bearish >= 3 && bearish > bullish:
		sig.Type = domain.SignalSell
		sig.Confidence = preliminaryConfidence(bearish, g.magnitudes)
		sig.Reason = domain.Reason{Kind: domain.ReasonTechnicalVotes, BearishVotes: votes.bearish}
	default:
		sig.Type = domain.SignalHold
		sig.Confidence = preliminaryConfidence(max(bullish, bearish), g.magnitudes)
		sig.Reason = domain.Reason{Kind: domain.ReasonTechnicalVotes, BullishVotes: votes.bullish, BearishVotes: votes.bearish, Detail: "fewer than 3 concurring votes"}
	}

	agg, err := g.news.Aggregate(ctx, symbol, newsLookback, now)
	if err != nil {
		return nil, fmt.Errorf("signalgen: news aggregate for %s: %w", symbol, err)
	}
	g.applyNewsAdjustment(sig, agg)

	if sig.Confidence < prefs.MinConfidenceThreshold && sig.Type != domain.SignalHold {
		req, act := prefs.MinConfidenceThreshold, sig.Confidence
		sig.Type = domain.SignalHold
		sig.Reason = domain.Reason{Kind: domain.ReasonPreferenceFilter, RequiredConfidence: &req, ActualConfidence: &act}
	}

	if sig.Type != domain.SignalHold {
		g.applyRiskEnvelope(sig, *prefs)
	}

	return g.persist(ctx, sig, prefs)
}

// applyNewsAdjustment implements spec.md §4.8's "News adjustment" rules.
// It never touches a candidate whose confidence is already 0
// (insufficient technicals).
func (g *Generator) applyNewsAdjustment(sig *domain.TradingSignal, agg Aggregate) {
	if sig.Confidence == 0 {
		return
	}
	if agg.TotalWeight == 0 {
		return // news-neutral: modifiedByNews stays false
	}

	s, impact := agg.WeightedSentiment, agg.ImpactLevel
	highImpact := impact == domain.ImpactHigh || impact == domain.ImpactVeryHigh

	sig.NewsImpact = &domain.NewsImpact{
		Kind:              domain.NewsImpactAggregate,
		WeightedSentiment: s,
		TotalWeight:       agg.TotalWeight,
		ArticleCount:      agg.ArticleCount,
		Impact:            impact,
	}

	boost := g.magnitudes.newsBoost
	if highImpact {
		boost *= 1.5
	}

	switch sig.Type {
	case domain.SignalBuy:
		if s <= -0.7 && highImpact {
			sig.Type = domain.SignalHold
			sig.Reason = domain.Reason{Kind: domain.ReasonNewsVeto, NewsSentiment: &s, NewsImpact: &impact, Detail: "news_veto"}
			sig.ModifiedByNews = true
			return
		}
		if s >= 0.5 {
			sig.Confidence = finalizeConfidence(sig.Confidence + boost)
			sig.Reason = domain.Reason{Kind: domain.ReasonNewsAdjusted, BullishVotes: sig.Reason.BullishVotes, NewsSentiment: &s, NewsImpact: &impact}
			sig.ModifiedByNews = true
		}
	case domain.SignalSell:
		if s >= 0.7 && highImpact {
			sig.Type = domain.SignalHold
			sig.Reason = domain.Reason{Kind: domain.ReasonNewsVeto, NewsSentiment: &s, NewsImpact: &impact, Detail: "news_veto"}
			sig.ModifiedByNews = true
			return
		}
		if s <= -0.5 {
			sig.Confidence = finalizeConfidence(sig.Confidence + boost)
			sig.Reason = domain.Reason{Kind: domain.ReasonNewsAdjusted, BearishVotes: sig.Reason.BearishVotes, NewsSentiment: &s, NewsImpact: &impact}
			sig.ModifiedByNews = true
		}
	case domain.SignalHold:
		if math.Abs(s) >= 0.8 && impact == domain.ImpactVeryHigh {
			if s > 0 {
				sig.Type = domain.SignalBuy
			} else {
				sig.Type = domain.SignalSell
			}
			sig.Confidence = finalizeConfidence(50 + boost)
			sig.Reason = domain.Reason{Kind: domain.ReasonNewsAdjusted, NewsSentiment: &s, NewsImpact: &impact, Detail: "converted from hold by strong news"}
			sig.ModifiedByNews = true
		}
	}
	if sig.Type != domain.SignalHold {
		sig.Confidence = finalizeConfidence(sig.Confidence)
	}
}

// applyRiskEnvelope implements spec.md §4.8's "Risk envelope": target and
// stop from the style-resolved envelope, and integer, floor-rounded
// position sizing.
func (g *Generator) applyRiskEnvelope(sig *domain.TradingSignal, prefs domain.UserPreferences) {
	env := resolveEnvelope(prefs)
	price := sig.PriceAtSignal

	switch sig.Type {
	case domain.SignalBuy:
		sig.TargetPrice = decimalutil.Round4(price.Mul(decimal.NewFromInt(1).Add(env.TargetProfitPct)))
		sig.StopLossPrice = decimalutil.Round4(price.Mul(decimal.NewFromInt(1).Sub(env.MaxLossPct)))
	case domain.SignalSell:
		sig.TargetPrice = decimalutil.Round4(price.Mul(decimal.NewFromInt(1).Sub(env.TargetProfitPct)))
		sig.StopLossPrice = decimalutil.Round4(price.Mul(decimal.NewFromInt(1).Add(env.MaxLossPct)))
	}

	positionValue := decimal.Min(prefs.AvailableCapital.Mul(env.MaxPositionSizePct), prefs.AvailableCapital)
	if !price.IsPositive() {
		sig.PositionShares = 0
		return
	}
	shares := positionValue.Div(price).Floor()
	sig.PositionShares = shares.IntPart()

	if positionValue.LessThan(prefs.MinPositionValue) {
		sig.Type = domain.SignalHold
		sig.Reason = domain.Reason{Kind: domain.ReasonPreferenceFilter, Detail: "position value below minPositionValue"}
		sig.PositionShares = 0
	}
}

// persist applies spec.md §4.8's "Deduplication" rule and writes the
// signal, unless it's a rejected same-type duplicate.
func (g *Generator) persist(ctx context.Context, sig *domain.TradingSignal, prefs *domain.UserPreferences) (*domain.TradingSignal, error) {
	if sig.Type == domain.SignalHold {
		// Holds aren't deduplicated against prior open signals -- the
		// dispatcher decides whether to surface them, gated on the
		// user's dispatch_hold_summary opt-in.
		if err := g.signals.InsertHold(ctx, sig); err != nil {
			return nil, fmt.Errorf("signalgen: insert hold signal for %s: %w", sig.Stock, err)
		}
		return sig, nil
	}

	existing, err := g.signals.OpenSignalForKey(ctx, sig.UserID, sig.Stock, sig.SessionDate)
	if err != nil {
		return nil, fmt.Errorf("signalgen: open signal lookup for %s: %w", sig.Stock, err)
	}
	if existing != nil {
		if existing.Type == sig.Type {
			g.log.Debug().Str("stock", sig.Stock).Int64("user_id", sig.UserID).Msg("rejecting duplicate same-type signal")
			return nil, nil
		}
		if err := g.signals.AttachOutcomeAndResolve(ctx, domain.SignalOutcome{
			SignalID:   existing.ID,
			Resolution: domain.ResolutionCancelled,
			ExitPrice:  sig.PriceAtSignal,
			ExitAt:     sig.CreatedAt2,
		}); err != nil {
			return nil, fmt.Errorf("signalgen: cancel superseded signal %d: %w", existing.ID, err)
		}
		if g.bus != nil {
			g.bus.Emit(events.SignalSuperseded, "signalgen", map[string]interface{}{
				"signal_id": existing.ID, "stock": sig.Stock, "user_id": sig.UserID,
			})
		}
	}

	if !sig.ValidatePriceEnvelope() {
		return nil, fmt.Errorf("signalgen: invariant violation: price envelope invalid for %s", sig.Stock)
	}

	if err := g.signals.InsertAndSupersede(ctx, sig); err != nil {
		return nil, fmt.Errorf("signalgen: insert signal for %s: %w", sig.Stock, err)
	}
	return sig, nil
}

func sumVolume(bars []domain.OHLCVBar) int64 {
	var total int64
	for _, b := range bars {
		total += b.Volume
	}
	return total
}

func closesOf(bars []domain.OHLCVBar) []decimal.Decimal {
	out := make([]decimal.Decimal, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}
