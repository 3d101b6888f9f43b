package domain

import "time"

// Base holds the soft-delete and audit columns shared by every persisted
// entity in this system.
type Base struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	IsDeleted bool      `json:"is_deleted"`
}

// SignalType is the advisory direction of a TradingSignal.
type SignalType string

const (
	SignalBuy  SignalType = "buy"
	SignalSell SignalType = "sell"
	SignalHold SignalType = "hold"
)

// TradingStyle selects the default risk envelope for a user, before
// explicit preference overrides are applied.
type TradingStyle string

const (
	StyleConservative TradingStyle = "conservative"
	StyleModerate      TradingStyle = "moderate"
	StyleAggressive    TradingStyle = "aggressive"
	StyleScalping      TradingStyle = "scalping"
	StyleSwing         TradingStyle = "swing"
)

// ImpactLevel is the market-moving potential assigned to a news
// classification or an aggregated news view.
type ImpactLevel string

const (
	ImpactMinimal  ImpactLevel = "minimal"
	ImpactLow      ImpactLevel = "low"
	ImpactMedium   ImpactLevel = "medium"
	ImpactHigh     ImpactLevel = "high"
	ImpactVeryHigh ImpactLevel = "very_high"
)

// Sentiment is the coarse classifier label for an article.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// NotificationChannel identifies a dispatch transport.
type NotificationChannel string

const (
	ChannelTelegram NotificationChannel = "telegram"
	ChannelEmail    NotificationChannel = "email"
)

// Resolution is how a TradingSignal's outcome was settled.
type Resolution string

const (
	ResolutionTargetHit          Resolution = "target_hit"
	ResolutionStopHit            Resolution = "stop_hit"
	ResolutionClosedAtSessionEnd Resolution = "closed_at_session_end"
	ResolutionCancelled          Resolution = "cancelled"
)
