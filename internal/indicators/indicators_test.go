package indicators

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func closes(vals ...float64) []decimal.Decimal {
	out := make([]decimal.Decimal, len(vals))
	for i, v := range vals {
		out[i] = decimal.NewFromFloat(v)
	}
	return out
}

func TestSMA_Unavailable_InsufficientData(t *testing.T) {
	r := SMA(closes(1, 2, 3), 5)
	assert.False(t, r.Available)
}

func TestSMA_ComputesArithmeticMean(t *testing.T) {
	r := SMA(closes(10, 20, 30), 3)
	assert.True(t, r.Available)
	assert.True(t, r.Value.Equal(decimal.NewFromInt(20)))
}

func TestRSI_UnavailableBelowNPlus1Bars(t *testing.T) {
	vals := make([]float64, 14)
	for i := range vals {
		vals[i] = 100
	}
	r := RSI(closes(vals...), 14)
	assert.False(t, r.Available, "RSI(14) requires 15 bars")
}

func TestRSI_AvailableAtNPlus1Bars(t *testing.T) {
	vals := make([]float64, 15)
	for i := range vals {
		vals[i] = 100 + float64(i)
	}
	r := RSI(closes(vals...), 14)
	assert.True(t, r.Available)
	assert.True(t, r.Value.GreaterThan(decimal.NewFromInt(50)), "steadily rising closes should push RSI above 50")
}

func TestComputeBollinger_UnavailableBelow20Bars(t *testing.T) {
	b := ComputeBollinger(closes(1, 2, 3))
	assert.False(t, b.Mid.Available)
	assert.False(t, b.Upper.Available)
	assert.False(t, b.Lower.Available)
}

func TestComputeBollinger_FlatSeriesHasZeroWidth(t *testing.T) {
	vals := make([]float64, 20)
	for i := range vals {
		vals[i] = 50
	}
	b := ComputeBollinger(closes(vals...))
	assert.True(t, b.Mid.Available)
	assert.True(t, b.Mid.Value.Equal(decimal.NewFromInt(50)))
	assert.True(t, b.Upper.Value.Equal(b.Mid.Value))
	assert.True(t, b.Lower.Value.Equal(b.Mid.Value))
}

func TestComputeMACD_UnavailableBelow35Bars(t *testing.T) {
	vals := make([]float64, 30)
	for i := range vals {
		vals[i] = 100
	}
	m := ComputeMACD(closes(vals...))
	assert.False(t, m.Line.Available)
}

func TestComputeMACD_AvailableAtSufficientBars(t *testing.T) {
	vals := make([]float64, 60)
	for i := range vals {
		vals[i] = 100 + float64(i)*0.1
	}
	m := ComputeMACD(closes(vals...))
	assert.True(t, m.Line.Available)
	assert.True(t, m.Signal.Available)
	assert.True(t, m.Histogram.Available)
}
