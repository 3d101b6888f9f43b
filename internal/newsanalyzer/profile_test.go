package newsanalyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNamedProfiles_PeriodWeightsSumToOne(t *testing.T) {
	for _, p := range []Profile{IntradayAggressive, IntradayDefault, IntradayConservative, Swing} {
		assert.NoError(t, p.Validate(), p.Name)
	}
}

func TestProfile_Validate_RejectsSkewedWeights(t *testing.T) {
	p := IntradayDefault
	p.Period.Within15Min = 0.9
	assert.Error(t, p.Validate())
}

func TestProfile_Validate_RejectsOutOfRangeHalfLife(t *testing.T) {
	p := IntradayDefault
	p.HalfLifeMinutes = 5
	assert.Error(t, p.Validate())
}

func TestPeriodWeightFor_Buckets(t *testing.T) {
	p := IntradayDefault
	assert.Equal(t, p.Period.Within15Min, p.PeriodWeightFor(10))
	assert.Equal(t, p.Period.Within60Min, p.PeriodWeightFor(45))
	assert.Equal(t, p.Period.Within240Min, p.PeriodWeightFor(200))
	assert.Equal(t, p.Period.OlderToday, p.PeriodWeightFor(500))
}

func TestProfileByName_FallsBackToDefault(t *testing.T) {
	assert.Equal(t, "intraday-default", ProfileByName("nonsense").Name)
	assert.Equal(t, "swing", ProfileByName("swing").Name)
}
