package signalgen

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestTechnicalScore_TooFewBarsIsUnavailable(t *testing.T) {
	_, ok := technicalScore([]decimal.Decimal{decimal.NewFromInt(10)})
	assert.False(t, ok)

	closes := make([]decimal.Decimal, 30)
	for i := range closes {
		closes[i] = decimal.NewFromInt(int64(100 + i))
	}
	_, ok = technicalScore(closes) // MACD needs 35 bars
	assert.False(t, ok)
}

func TestTechnicalScore_EnoughBarsEvaluates(t *testing.T) {
	closes := make([]decimal.Decimal, 60)
	for i := range closes {
		closes[i] = decimal.NewFromInt(int64(100 + i))
	}
	votes, ok := technicalScore(closes)
	assert.True(t, ok)
	// steady uptrend: RSI should be high, not oversold
	assert.NotContains(t, votes.bullish, "rsi_oversold")
}
