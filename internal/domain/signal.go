package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReasonKind discriminates the tagged variant stored in TradingSignal.Reason.
type ReasonKind string

const (
	ReasonInsufficientData ReasonKind = "insufficient_data"
	ReasonTechnicalVotes   ReasonKind = "technical_votes"
	ReasonNewsAdjusted     ReasonKind = "news_adjusted"
	ReasonNewsVeto         ReasonKind = "news_veto"
	ReasonPreferenceFilter ReasonKind = "preference_filter"
)

// Reason is the structured, discriminated explanation attached to every
// TradingSignal. Only the fields relevant to Kind are populated; it is
// persisted as a single JSON column.
type Reason struct {
	Kind ReasonKind `json:"kind"`

	// ReasonTechnicalVotes / ReasonNewsAdjusted
	BullishVotes []string `json:"bullish_votes,omitempty"`
	BearishVotes []string `json:"bearish_votes,omitempty"`

	// ReasonNewsAdjusted / ReasonNewsVeto
	NewsSentiment *float64     `json:"news_sentiment,omitempty"`
	NewsImpact    *ImpactLevel `json:"news_impact,omitempty"`

	// ReasonPreferenceFilter
	RequiredConfidence *float64 `json:"required_confidence,omitempty"`
	ActualConfidence   *float64 `json:"actual_confidence,omitempty"`

	Detail string `json:"detail,omitempty"`
}

// NewsImpactKind discriminates NewsImpact: either no news contributed to a
// signal, or an aggregate view did.
type NewsImpactKind string

const (
	NewsImpactNone      NewsImpactKind = "none"
	NewsImpactAggregate NewsImpactKind = "aggregate"
)

// NewsImpact is the tagged variant recorded on a TradingSignal describing
// whether and how news affected it.
type NewsImpact struct {
	Kind             NewsImpactKind `json:"kind"`
	WeightedSentiment float64       `json:"weighted_sentiment,omitempty"`
	TotalWeight       float64       `json:"total_weight,omitempty"`
	ArticleCount      int           `json:"article_count,omitempty"`
	Impact            ImpactLevel   `json:"impact,omitempty"`
}

// TradingSignal is one BUY/SELL/HOLD advisory for a (user, stock) during a
// session. Produced only by the Signal Generator; dispatched at most once;
// resolved at most once.
type TradingSignal struct {
	Base
	ID              int64           `json:"id"`
	UserID          int64           `json:"user_id"`
	Stock           string          `json:"stock"` // symbol
	SessionDate     time.Time       `json:"session_date"`
	CreatedAt2      time.Time       `json:"created_at_signal"` // UTC; distinct from Base.CreatedAt audit column
	Type            SignalType      `json:"type"`
	Confidence      float64         `json:"confidence"` // [0, 100]
	PriceAtSignal   decimal.Decimal `json:"price_at_signal"`
	TargetPrice     decimal.Decimal `json:"target_price"`
	StopLossPrice   decimal.Decimal `json:"stop_loss_price"`
	PositionShares  int64           `json:"position_shares"`
	Reason          Reason          `json:"reason"`
	NewsImpact      *NewsImpact     `json:"news_impact,omitempty"`
	ModifiedByNews  bool            `json:"modified_by_news"`
	IsDispatched    bool            `json:"is_dispatched"`
	DispatchedAt    *time.Time      `json:"dispatched_at,omitempty"`
	Outcome         *SignalOutcome  `json:"outcome,omitempty"`
	IsExpired       bool            `json:"is_expired"` // undispatched at session close, never retried
}

// IsOpen reports whether the signal is a live, unresolved buy/sell.
func (s TradingSignal) IsOpen() bool {
	return s.Type != SignalHold && s.Outcome == nil && !s.IsExpired
}

// ValidatePriceEnvelope enforces invariant 2 from the specification:
// for buy, targetPrice > priceAtSignal > stopLossPrice; mirrored for sell.
func (s TradingSignal) ValidatePriceEnvelope() bool {
	switch s.Type {
	case SignalBuy:
		return s.TargetPrice.GreaterThan(s.PriceAtSignal) &&
			s.PriceAtSignal.GreaterThan(s.StopLossPrice)
	case SignalSell:
		return s.TargetPrice.LessThan(s.PriceAtSignal) &&
			s.PriceAtSignal.LessThan(s.StopLossPrice)
	default:
		return true // hold carries no price envelope invariant
	}
}

// SignalOutcome is the realised result of a resolved TradingSignal,
// written once and never mutated thereafter.
type SignalOutcome struct {
	SignalID          int64           `json:"signal_id"`
	Resolution        Resolution      `json:"resolution"`
	ExitPrice         decimal.Decimal `json:"exit_price"`
	ExitAt            time.Time       `json:"exit_at"`
	RealisedReturnPct decimal.Decimal `json:"realised_return_pct"`
	HoldingMinutes    int64           `json:"holding_minutes"`
}

// ChannelDelivery tracks per-channel dispatch idempotence for one signal.
type ChannelDelivery struct {
	SignalID      int64               `json:"signal_id"`
	Channel       NotificationChannel `json:"channel"`
	Status        string              `json:"status"` // pending, delivered, failed
	Attempts      int                 `json:"attempts"`
	LastAttemptAt *time.Time          `json:"last_attempt_at,omitempty"`
	DeliveredAt   *time.Time          `json:"delivered_at,omitempty"`
}
