package signalgen

import (
	"github.com/shopspring/decimal"

	"github.com/gpwsignals/engine/internal/indicators"
)

const (
	rsiPeriod = 14
	smaShort  = 5
	smaLong   = 20
)

// voteSet names which technical criteria fired, for Reason.BullishVotes /
// Reason.BearishVotes (spec.md §4.8 "Technical score").
type voteSet struct {
	bullish []string
	bearish []string
}

func (v voteSet) count(bullish bool) int {
	if bullish {
		return len(v.bullish)
	}
	return len(v.bearish)
}

// technicalScore evaluates the four vote criteria on closes (ascending,
// oldest first). "Crosses" criteria compare the latest snapshot against
// the snapshot computed with the final bar dropped. ok is false when any
// indicator required for a full evaluation is unavailable (too few
// bars), signalling spec.md §4.8's insufficient_data error condition.
func technicalScore(closes []decimal.Decimal) (votes voteSet, ok bool) {
	if len(closes) < 2 {
		return voteSet{}, false
	}
	prevCloses := closes[:len(closes)-1]

	rsi := indicators.RSI(closes, rsiPeriod)
	boll := indicators.ComputeBollinger(closes)
	macdCur := indicators.ComputeMACD(closes)
	macdPrev := indicators.ComputeMACD(prevCloses)
	smaShortCur := indicators.SMA(closes, smaShort)
	smaLongCur := indicators.SMA(closes, smaLong)
	smaShortPrev := indicators.SMA(prevCloses, smaShort)
	smaLongPrev := indicators.SMA(prevCloses, smaLong)

	if !rsi.Available || !boll.Mid.Available || !macdCur.Histogram.Available ||
		!macdPrev.Histogram.Available || !smaShortCur.Available || !smaLongCur.Available ||
		!smaShortPrev.Available || !smaLongPrev.Available {
		return voteSet{}, false
	}

	lastClose := closes[len(closes)-1]

	if rsi.Value.LessThan(decimal.NewFromInt(30)) {
		votes.bullish = append(votes.bullish, "rsi_oversold")
	}
	if rsi.Value.GreaterThan(decimal.NewFromInt(70)) {
		votes.bearish = append(votes.bearish, "rsi_overbought")
	}

	if lastClose.LessThan(boll.Lower.Value) {
		votes.bullish = append(votes.bullish, "below_bollinger_lower")
	}
	if lastClose.GreaterThan(boll.Upper.Value) {
		votes.bearish = append(votes.bearish, "above_bollinger_upper")
	}

	macdCrossedUp := !macdPrev.Histogram.Value.IsPositive() && macdCur.Histogram.Value.IsPositive()
	macdCrossedDown := !macdPrev.Histogram.Value.IsNegative() && macdCur.Histogram.Value.IsNegative()
	if macdCrossedUp {
		votes.bullish = append(votes.bullish, "macd_histogram_crossed_up")
	}
	if macdCrossedDown {
		votes.bearish = append(votes.bearish, "macd_histogram_crossed_down")
	}

	smaCrossedUp := !smaShortPrev.Value.GreaterThan(smaLongPrev.Value) && smaShortCur.Value.GreaterThan(smaLongCur.Value)
	smaCrossedDown := !smaShortPrev.Value.LessThan(smaLongPrev.Value) && smaShortCur.Value.LessThan(smaLongCur.Value)
	if smaCrossedUp {
		votes.bullish = append(votes.bullish, "sma_crossed_up")
	}
	if smaCrossedDown {
		votes.bearish = append(votes.bearish, "sma_crossed_down")
	}

	return votes, true
}
