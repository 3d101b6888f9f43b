package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Stock is a GPW-listed security the engine may monitor. Created by admin
// import; the engine only ever reads it.
type Stock struct {
	Base
	ID          int64  `json:"id"`
	Symbol      string `json:"symbol"` // unique, 3-6 upper-case
	Name        string `json:"name"`
	IsMonitored bool   `json:"is_monitored"`
	Market      string `json:"market"`
	Industry    string `json:"industry"`
}

// OHLCVBar is one minute-aligned price bar for a stock. Bars are
// append-only: once written, a (stock, timestamp) pair is never mutated.
type OHLCVBar struct {
	ID        int64           `json:"id"`
	Stock     string          `json:"stock"` // symbol
	Timestamp time.Time       `json:"timestamp"` // UTC, minute-aligned
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Volume    int64           `json:"volume"`
}

// Valid enforces the OHLCVBar invariants from the specification:
// low <= min(open,close) <= max(open,close) <= high and volume >= 0.
func (b OHLCVBar) Valid() bool {
	if b.Volume < 0 {
		return false
	}
	lo := decimal.Min(b.Open, b.Close)
	hi := decimal.Max(b.Open, b.Close)
	if b.Low.GreaterThan(lo) || hi.GreaterThan(b.High) {
		return false
	}
	return true
}

// Session is a single GPW trading day.
type Session struct {
	Date          time.Time // local calendar date, midnight Europe/Warsaw
	OpenTime      time.Time // UTC instant of 09:00 local
	CloseTime     time.Time // UTC instant of 17:00 local
	IsTradingDay  bool
}

// Contains reports whether t (any timezone) falls within the session's
// continuous trading window.
func (s Session) Contains(t time.Time) bool {
	if !s.IsTradingDay {
		return false
	}
	u := t.UTC()
	return !u.Before(s.OpenTime) && !u.After(s.CloseTime)
}
