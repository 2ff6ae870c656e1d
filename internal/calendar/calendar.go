// Package calendar answers date questions for the NYSE daily calendar.
package calendar

import "time"

// Truncate returns midnight UTC of t's calendar day, read in t's own location.
func Truncate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Days returns every calendar day in [start, end], both truncated to midnight UTC.
// It returns nil when start is after end.
func Days(start, end time.Time) []time.Time {
	s := Truncate(start)
	e := Truncate(end)
	if s.After(e) {
		return nil
	}
	out := make([]time.Time, 0, int(e.Sub(s).Hours()/24)+1)
	for d := s; !d.After(e); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}

// IsTradingDay reports whether the NYSE holds a regular session on d.
// It excludes weekends and the exchange's full-day holidays.
func IsTradingDay(d time.Time) bool {
	d = Truncate(d)
	if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}
	_, holiday := holidays(d.Year())[d]
	return !holiday
}

// CountTradingDays returns how many sessions fall in [start, end].
func CountTradingDays(start, end time.Time) int {
	n := 0
	for _, d := range Days(start, end) {
		if IsTradingDay(d) {
			n++
		}
	}
	return n
}

// holidays returns the observed NYSE holidays of a year.
func holidays(year int) map[time.Time]struct{} {
	days := []time.Time{
		observed(date(year, time.January, 1)),
		nthWeekday(year, time.January, time.Monday, 3),  // Martin Luther King Jr. Day
		nthWeekday(year, time.February, time.Monday, 3), // Washington's Birthday
		easterSunday(year).AddDate(0, 0, -2),            // Good Friday
		lastWeekday(year, time.May, time.Monday),        // Memorial Day
		observed(date(year, time.July, 4)),
		nthWeekday(year, time.September, time.Monday, 1),  // Labor Day
		nthWeekday(year, time.November, time.Thursday, 4), // Thanksgiving
		observed(date(year, time.December, 25)),
	}
	if year >= 2022 {
		days = append(days, observed(date(year, time.June, 19))) // Juneteenth
	}

	out := make(map[time.Time]struct{}, len(days))
	for _, d := range days {
		// New Year's Day falling on a Saturday is not observed on the prior Friday.
		if d.Year() != year {
			continue
		}
		out[d] = struct{}{}
	}
	return out
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// observed moves a Saturday holiday to Friday and a Sunday holiday to Monday.
func observed(d time.Time) time.Time {
	switch d.Weekday() {
	case time.Saturday:
		return d.AddDate(0, 0, -1)
	case time.Sunday:
		return d.AddDate(0, 0, 1)
	}
	return d
}

func nthWeekday(year int, month time.Month, wd time.Weekday, n int) time.Time {
	d := date(year, month, 1)
	offset := (int(wd) - int(d.Weekday()) + 7) % 7
	return d.AddDate(0, 0, offset+7*(n-1))
}

func lastWeekday(year int, month time.Month, wd time.Weekday) time.Time {
	d := date(year, month+1, 1).AddDate(0, 0, -1)
	offset := (int(d.Weekday()) - int(wd) + 7) % 7
	return d.AddDate(0, 0, -offset)
}

// easterSunday returns the date of Easter Sunday for a given year
// (Meeus/Jones/Butcher algorithm).
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
	day := ((h + l - 7*m + 114) % 31) + 1

	return date(year, time.Month(month), day)
}
