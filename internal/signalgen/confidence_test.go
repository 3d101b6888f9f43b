package signalgen

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gpwsignals/engine/internal/config"
)

func TestPreliminaryConfidence_ClampsToRange(t *testing.T) {
	m := magnitudesFor(config.ProfileBalanced)
	assert.Equal(t, 50.0, preliminaryConfidence(0, m))
	assert.Equal(t, 60.0, preliminaryConfidence(4, m))
	assert.Equal(t, 90.0, preliminaryConfidence(100, m))
}

func TestMagnitudesFor_UnknownProfileFallsBackToBalanced(t *testing.T) {
	assert.Equal(t, profileMagnitudes[config.ProfileBalanced], magnitudesFor(config.SignalProfile("nonsense")))
}

func TestFinalizeConfidence_FloorsAndClamps(t *testing.T) {
	assert.Equal(t, 82.0, finalizeConfidence(82.5))
	assert.Equal(t, 100.0, finalizeConfidence(140))
	assert.Equal(t, 0.0, finalizeConfidence(-5))
}

func TestScenario1_OversoldBounceBuyConfidence(t *testing.T) {
	// spec.md §8 scenario 1: 4 bullish votes, balanced profile,
	// weightedSentiment=+0.62 impact=high -> 50 + 10*(4-3) + 15*1.5 = 82.5 -> 82.
	m := magnitudesFor(config.ProfileBalanced)
	prelim := preliminaryConfidence(4, m)
	boosted := prelim + m.newsBoost*1.5
	assert.Equal(t, 82.0, finalizeConfidence(boosted))
}
