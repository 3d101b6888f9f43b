package clock

import (
	"time"

	"github.com/gpwsignals/engine/internal/domain"
)

// Warsaw is the Europe/Warsaw location, loaded once at package init. GPW
// session windows, holiday tables, and scheduler activity windows are all
// expressed in this location.
var Warsaw = mustLoadLocation("Europe/Warsaw")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		// Europe/Warsaw ships with every standard Go/tzdata install; a
		// missing zoneinfo database is a deployment defect, not a
		// recoverable runtime condition.
		panic("clock: failed to load " + name + ": " + err.Error())
	}
	return loc
}

// SessionOpen / SessionClose are the default GPW continuous-trading
// window, overridable via config.Session.
var (
	SessionOpenHour, SessionOpenMinute   = 9, 0
	SessionCloseHour, SessionCloseMinute = 17, 0
)

// Calendar computes GPW session windows and holiday status. It is
// constructed once per Engine and is immutable after NewCalendar returns,
// except for ExtraHolidays which SetExtraHolidays replaces wholesale.
type Calendar struct {
	clock          Clock
	extraHolidays  map[string]bool // "YYYY-MM-DD" in Europe/Warsaw
	openHour       int
	openMinute     int
	closeHour      int
	closeMinute    int
}

// NewCalendar builds a Calendar using clock for Now() and the given
// session bounds (local hour/minute). Pass zero values to use the
// package defaults (09:00/17:00).
func NewCalendar(clock Clock, openH, openM, closeH, closeM int) *Calendar {
	if openH == 0 && openM == 0 && closeH == 0 && closeM == 0 {
		openH, openM, closeH, closeM = SessionOpenHour, SessionOpenMinute, SessionCloseHour, SessionCloseMinute
	}
	return &Calendar{
		clock:         clock,
		extraHolidays: make(map[string]bool),
		openHour:      openH,
		openMinute:    openM,
		closeHour:     closeH,
		closeMinute:   closeM,
	}
}

// SetExtraHolidays replaces the calendar.extraHolidays configuration
// (spec.md §6), given as dates in Europe/Warsaw.
func (c *Calendar) SetExtraHolidays(dates []time.Time) {
	m := make(map[string]bool, len(dates))
	for _, d := range dates {
		m[dateKey(d)] = true
	}
	c.extraHolidays = m
}

func dateKey(t time.Time) string {
	return t.In(Warsaw).Format("2006-01-02")
}

// Now returns the current instant in UTC.
func (c *Calendar) Now() time.Time { return c.clock.Now() }

// LocalNow returns the current instant in Europe/Warsaw.
func (c *Calendar) LocalNow() time.Time { return c.clock.Now().In(Warsaw) }

// IsTradingDay reports whether d (interpreted as a Europe/Warsaw calendar
// date) is a GPW trading day: not a weekend, not a built-in or
// configured Polish public holiday.
func (c *Calendar) IsTradingDay(d time.Time) bool {
	d = d.In(Warsaw)
	wd := d.Weekday()
	if wd == time.Saturday || wd == time.Sunday {
		return false
	}
	if polishHolidays(d.Year())[dateKey(d)] {
		return false
	}
	if c.extraHolidays[dateKey(d)] {
		return false
	}
	return true
}

// CurrentSession returns the Session containing LocalNow's calendar date.
func (c *Calendar) CurrentSession() domain.Session {
	return c.SessionFor(c.LocalNow())
}

// SessionFor builds the Session for the calendar date containing t.
func (c *Calendar) SessionFor(t time.Time) domain.Session {
	local := t.In(Warsaw)
	dateOnly := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, Warsaw)
	open := time.Date(local.Year(), local.Month(), local.Day(), c.openHour, c.openMinute, 0, 0, Warsaw)
	close := time.Date(local.Year(), local.Month(), local.Day(), c.closeHour, c.closeMinute, 0, 0, Warsaw)
	return domain.Session{
		Date:         dateOnly,
		OpenTime:     open.UTC(),
		CloseTime:    close.UTC(),
		IsTradingDay: c.IsTradingDay(dateOnly),
	}
}

// IsInSession reports whether t falls within the continuous trading
// window of its own calendar date.
func (c *Calendar) IsInSession(t time.Time) bool {
	return c.SessionFor(t).Contains(t)
}

// polishHolidays returns the built-in holiday table for a given year,
// keyed "YYYY-MM-DD" in Europe/Warsaw: New Year, Epiphany, Easter Monday,
// May 1, May 3 Constitution Day, Corpus Christi, Assumption, All Saints,
// Independence Day, Christmas Day, Boxing Day.
func polishHolidays(year int) map[string]bool {
	easter := easterSunday(year)
	fixed := []time.Time{
		date(year, time.January, 1),
		date(year, time.January, 6),
		easter.AddDate(0, 0, 1),  // Easter Monday
		date(year, time.May, 1),
		date(year, time.May, 3),
		easter.AddDate(0, 0, 60), // Corpus Christi
		date(year, time.August, 15),
		date(year, time.November, 1),
		date(year, time.November, 11),
		date(year, time.December, 25),
		date(year, time.December, 26),
	}
	out := make(map[string]bool, len(fixed))
	for _, d := range fixed {
		out[dateKey(d)] = true
	}
	return out
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, Warsaw)
}

// easterSunday computes the Gregorian Easter Sunday for year using the
// anonymous (Meeus/Jones/Butcher) algorithm.
func easterSunday(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1
	return date(year, time.Month(month), day)
}
