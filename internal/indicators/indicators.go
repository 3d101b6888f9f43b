// Package indicators computes SMA/EMA/RSI/MACD/Bollinger over OHLCV close
// series (spec.md §4.6) directly over github.com/markcheno/go-talib and
// gonum.org/v1/gonum/stat: it converts decimal closes to float64 for the
// numeric libraries, rounds results back to 4 fractional digits via
// pkg/decimalutil, and returns an explicit "unavailable" marker rather
// than an imputed value when a series is too short, per spec.md §4.6.
package indicators

import (
	"math"

	"github.com/markcheno/go-talib"
	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"

	"github.com/gpwsignals/engine/pkg/decimalutil"
)

// Result is a single indicator value or an explicit "unavailable" marker.
type Result struct {
	Value     decimal.Decimal
	Available bool
}

func unavailable() Result { return Result{} }

func available(v float64) Result {
	return Result{Value: decimalutil.Round4(decimalutil.FromFloat64(v)), Available: true}
}

func closesToFloat(closes []decimal.Decimal) []float64 {
	out := make([]float64, len(closes))
	for i, c := range closes {
		f, _ := c.Float64()
		out[i] = f
	}
	return out
}

// SMA is the arithmetic mean of the last n closes. Requires n bars.
func SMA(closes []decimal.Decimal, n int) Result {
	if n <= 0 || len(closes) < n {
		return unavailable()
	}
	window := closesToFloat(closes[len(closes)-n:])
	return available(stat.Mean(window, nil))
}

// EMA is Wilder's exponential smoothing with alpha = 2/(n+1), seeded by
// SMA(n) over the first n bars (go-talib's convention). Requires n bars.
func EMA(closes []decimal.Decimal, n int) Result {
	if n <= 0 || len(closes) < n {
		return unavailable()
	}
	values := talib.Ema(closesToFloat(closes), n)
	return lastFinite(values)
}

func lastFinite(values []float64) Result {
	if len(values) == 0 {
		return unavailable()
	}
	last := values[len(values)-1]
	if last != last { // NaN
		return unavailable()
	}
	return available(last)
}

// RSI is the standard Wilder RSI(n), default 14. Requires n+1 bars.
// Output is in [0, 100]; <30 is oversold, >70 is overbought.
func RSI(closes []decimal.Decimal, n int) Result {
	if n <= 0 {
		n = 14
	}
	if len(closes) < n+1 {
		return unavailable()
	}
	values := talib.Rsi(closesToFloat(closes), n)
	return lastFinite(values)
}

// MACD is macd = EMA12 - EMA26, signal = EMA9(macd), histogram = macd -
// signal. Unavailable as a whole unless all three components compute.
type MACD struct {
	Line      Result
	Signal    Result
	Histogram Result
}

// ComputeMACD computes MACD(12,26,9) over closes.
func ComputeMACD(closes []decimal.Decimal) MACD {
	if len(closes) < 26+9 {
		return MACD{Line: unavailable(), Signal: unavailable(), Histogram: unavailable()}
	}
	macd, signal, hist := talib.Macd(closesToFloat(closes), 12, 26, 9)
	line := lastFinite(macd)
	sig := lastFinite(signal)
	h := lastFinite(hist)
	if !line.Available || !sig.Available || !h.Available {
		return MACD{Line: unavailable(), Signal: unavailable(), Histogram: unavailable()}
	}
	return MACD{Line: line, Signal: sig, Histogram: h}
}

// Bollinger is mid = SMA20, upper/lower = mid +/- 2*population-stdev(20).
type Bollinger struct {
	Mid   Result
	Upper Result
	Lower Result
}

// ComputeBollinger computes Bollinger(20, 2.0) over closes using the
// population standard deviation, per spec.md §4.6.
func ComputeBollinger(closes []decimal.Decimal) Bollinger {
	const n = 20
	const k = 2.0
	if len(closes) < n {
		return Bollinger{Mid: unavailable(), Upper: unavailable(), Lower: unavailable()}
	}
	window := closesToFloat(closes[len(closes)-n:])
	mean := stat.Mean(window, nil)
	// population standard deviation: gonum's stat.StdDev is the sample
	// (n-1) estimator, so compute population variance directly.
	var sumSq float64
	for _, v := range window {
		d := v - mean
		sumSq += d * d
	}
	popStdDev := math.Sqrt(sumSq / float64(len(window)))

	return Bollinger{
		Mid:   available(mean),
		Upper: available(mean + k*popStdDev),
		Lower: available(mean - k*popStdDev),
	}
}
