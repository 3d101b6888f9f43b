package scheduler

import (
	"time"

	"github.com/gpwsignals/engine/internal/clock"
)

// Weekday is a bit in a Schedule's ActiveDays bitset, Monday through
// Sunday (spec.md §4.2 "activeDays (bitset Mon..Sun)").
type Weekday uint8

const (
	Monday Weekday = 1 << iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

const AllDays = Monday | Tuesday | Wednesday | Thursday | Friday | Saturday | Sunday
const Weekdays = Monday | Tuesday | Wednesday | Thursday | Friday

func weekdayBit(d time.Weekday) Weekday {
	switch d {
	case time.Monday:
		return Monday
	case time.Tuesday:
		return Tuesday
	case time.Wednesday:
		return Wednesday
	case time.Thursday:
		return Thursday
	case time.Friday:
		return Friday
	case time.Saturday:
		return Saturday
	default:
		return Sunday
	}
}

// Window bounds when a Schedule is allowed to run: a local-time
// hour-of-day range [StartHour, EndHour) and a day-of-week bitset,
// optionally also excluding Polish public holidays.
type Window struct {
	StartHour       int
	EndHour         int
	ActiveDays      Weekday
	RespectHolidays bool
}

// allows reports whether t (any instant) falls inside w, evaluated in
// Europe/Warsaw local time.
func (w Window) allows(cal *clock.Calendar, t time.Time) bool {
	local := t.In(clock.Warsaw)
	if w.ActiveDays&weekdayBit(local.Weekday()) == 0 {
		return false
	}
	if w.RespectHolidays && !cal.IsTradingDay(local) {
		return false
	}
	hour := local.Hour()
	if w.StartHour <= w.EndHour {
		return hour >= w.StartHour && hour < w.EndHour
	}
	// wrapping window (e.g. 17-9 "off session") spans midnight.
	return hour >= w.StartHour || hour < w.EndHour
}

// nextBoundary returns the next instant at or after from that both
// aligns to a intervalMinutes-minute boundary of the Warsaw-local day
// and satisfies w, searching at most 8 days ahead before giving up.
func nextBoundary(cal *clock.Calendar, from time.Time, intervalMinutes int, w Window) time.Time {
	if intervalMinutes <= 0 {
		intervalMinutes = 1
	}
	local := from.In(clock.Warsaw)
	dayStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, clock.Warsaw)
	minutesSinceMidnight := int(local.Sub(dayStart).Minutes())
	nextSlot := ((minutesSinceMidnight / intervalMinutes) + 1) * intervalMinutes

	candidate := dayStart.Add(time.Duration(nextSlot) * time.Minute)
	limit := from.Add(8 * 24 * time.Hour)
	for candidate.Before(limit) {
		if w.allows(cal, candidate) {
			return candidate.UTC()
		}
		candidate = candidate.Add(time.Duration(intervalMinutes) * time.Minute)
	}
	return candidate.UTC()
}
