package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEasterSunday(t *testing.T) {
	cases := map[int]string{
		2024: "2024-03-31",
		2025: "2025-04-20",
		2026: "2026-04-05",
	}
	for year, want := range cases {
		got := easterSunday(year)
		assert.Equal(t, want, got.Format("2006-01-02"), "year %d", year)
	}
}

func TestIsTradingDay_Weekend(t *testing.T) {
	cal := NewCalendar(RealClock{}, 0, 0, 0, 0)
	saturday := time.Date(2026, 8, 1, 0, 0, 0, 0, Warsaw)
	require.Equal(t, time.Saturday, saturday.Weekday())
	assert.False(t, cal.IsTradingDay(saturday))
}

func TestIsTradingDay_FixedHolidays(t *testing.T) {
	cal := NewCalendar(RealClock{}, 0, 0, 0, 0)
	for _, d := range []time.Time{
		date(2026, time.January, 1),
		date(2026, time.January, 6),
		date(2026, time.May, 1),
		date(2026, time.May, 3),
		date(2026, time.August, 15),
		date(2026, time.November, 1),
		date(2026, time.November, 11),
		date(2026, time.December, 25),
		date(2026, time.December, 26),
	} {
		assert.False(t, cal.IsTradingDay(d), d.Format("2006-01-02"))
	}
}

func TestIsTradingDay_EasterRelative(t *testing.T) {
	cal := NewCalendar(RealClock{}, 0, 0, 0, 0)
	easter := easterSunday(2026)
	assert.False(t, cal.IsTradingDay(easter.AddDate(0, 0, 1)), "easter monday")
	assert.False(t, cal.IsTradingDay(easter.AddDate(0, 0, 60)), "corpus christi")
	// an ordinary Monday two weeks before easter monday should be a trading day.
	assert.True(t, cal.IsTradingDay(easter.AddDate(0, 0, -13)))
}

func TestIsTradingDay_ExtraHolidays(t *testing.T) {
	cal := NewCalendar(RealClock{}, 0, 0, 0, 0)
	d := date(2026, time.June, 3) // an arbitrary ordinary Wednesday
	require.True(t, cal.IsTradingDay(d))

	cal.SetExtraHolidays([]time.Time{d})
	assert.False(t, cal.IsTradingDay(d))
}

func TestSessionFor_Bounds(t *testing.T) {
	cal := NewCalendar(RealClock{}, 0, 0, 0, 0)
	noon := time.Date(2026, 6, 3, 12, 0, 0, 0, Warsaw)
	sess := cal.SessionFor(noon)

	open := time.Date(2026, 6, 3, 9, 0, 0, 0, Warsaw)
	close := time.Date(2026, 6, 3, 17, 0, 0, 0, Warsaw)
	assert.True(t, sess.OpenTime.Equal(open.UTC()))
	assert.True(t, sess.CloseTime.Equal(close.UTC()))
	assert.True(t, sess.IsTradingDay)

	assert.True(t, sess.Contains(open))
	assert.True(t, sess.Contains(close))
	assert.True(t, sess.Contains(noon))
	assert.False(t, sess.Contains(open.Add(-time.Minute)))
	assert.False(t, sess.Contains(close.Add(time.Minute)))
}

func TestIsInSession(t *testing.T) {
	fc := NewFakeClock(time.Date(2026, 6, 3, 10, 30, 0, 0, time.UTC))
	cal := NewCalendar(fc, 0, 0, 0, 0)
	assert.True(t, cal.IsInSession(fc.Now().In(Warsaw)))

	fc.Set(time.Date(2026, 6, 3, 20, 0, 0, 0, time.UTC))
	assert.False(t, cal.IsInSession(fc.Now().In(Warsaw)))
}

func TestCurrentSession_UsesClock(t *testing.T) {
	fc := NewFakeClock(time.Date(2026, 8, 1, 8, 0, 0, 0, time.UTC)) // Saturday
	cal := NewCalendar(fc, 0, 0, 0, 0)
	sess := cal.CurrentSession()
	assert.False(t, sess.IsTradingDay)
}
