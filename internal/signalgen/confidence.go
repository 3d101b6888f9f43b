package signalgen

import (
	"math"

	"github.com/gpwsignals/engine/internal/config"
)

// magnitudes holds the confidence-adjustment constants §4.8 parameterises
// by config.SignalProfile: the per-vote preliminary-confidence step and
// the base news-confidence boost (before the 1.5x high/very_high
// multiplier). Balanced matches the literal values in spec.md §8's
// worked examples; conservative and aggressive scale them down/up.
type magnitudes struct {
	perVoteStep float64
	newsBoost   float64
}

var profileMagnitudes = map[config.SignalProfile]magnitudes{
	config.ProfileConservative: {perVoteStep: 7, newsBoost: 10},
	config.ProfileBalanced:     {perVoteStep: 10, newsBoost: 15},
	config.ProfileAggressive:   {perVoteStep: 13, newsBoost: 22},
}

func magnitudesFor(profile config.SignalProfile) magnitudes {
	if m, ok := profileMagnitudes[profile]; ok {
		return m
	}
	return profileMagnitudes[config.ProfileBalanced]
}

// preliminaryConfidence implements "50 + 10*(votes-3) clamped [50,90]",
// generalised by profile to perVoteStep in place of the literal 10.
func preliminaryConfidence(votes int, m magnitudes) float64 {
	c := 50 + m.perVoteStep*float64(votes-3)
	return clamp(c, 50, 90)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// finalizeConfidence floors to a whole percentage point and clamps to
// [0, 100], matching spec.md §8 scenario 1's "82.5 -> 82".
func finalizeConfidence(c float64) float64 {
	return clamp(math.Floor(c), 0, 100)
}
