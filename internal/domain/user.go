package domain

import "github.com/shopspring/decimal"

// UserPreferences governs how the Signal Generator treats one user.
// Numeric fields left at their zero value take their default from
// TradingStyle (see internal/signalgen.StyleDefaults); a non-zero
// explicit field always overrides the style default.
type UserPreferences struct {
	UserID                int64           `json:"user_id"`
	AvailableCapital       decimal.Decimal `json:"available_capital"`
	TargetProfitPct        decimal.Decimal `json:"target_profit_pct"`
	MaxLossPct             decimal.Decimal `json:"max_loss_pct"`
	MinConfidenceThreshold float64         `json:"min_confidence_threshold"` // [30, 95]
	MaxPositionSizePct     decimal.Decimal `json:"max_position_size_pct"`
	MinPositionValue       decimal.Decimal `json:"min_position_value"`
	MinDailyVolume         int64           `json:"min_daily_volume"`
	TradingStyle           TradingStyle    `json:"trading_style"`
	NotificationChannels   []NotificationChannel `json:"notification_channels"`
	MaxSignalsPerDay       int             `json:"max_signals_per_day"`
	DispatchHoldSummary    bool            `json:"dispatch_hold_summary"` // opt-in to daily hold summary
	TelegramChatID         int64           `json:"telegram_chat_id,omitempty"`
	Email                  string          `json:"email,omitempty"`
}

// HasChannel reports whether the user enabled a given dispatch channel.
func (p UserPreferences) HasChannel(ch NotificationChannel) bool {
	for _, c := range p.NotificationChannels {
		if c == ch {
			return true
		}
	}
	return false
}
