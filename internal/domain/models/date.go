package models

import "time"

// DateDim is one row of the calendar dimension.
//
// The key is the YYYYMMDD encoding of the date, so it is stable across
// re-ingestion and can be computed without a lookup.
type DateDim struct {
	DateKey      int
	FullDate     time.Time
	Year         int
	Month        int
	Day          int
	Quarter      int
	DayOfWeek    int // 0=Monday
	WeekOfYear   int // ISO week
	IsTradingDay bool
}

// DateKey returns the YYYYMMDD integer key for the calendar day of t.
func DateKey(t time.Time) int {
	y, m, d := t.Date()
	return y*10000 + int(m)*100 + d
}

// NewDateDim derives every calendar attribute of t's day.
// Trading-day status is left to the caller.
func NewDateDim(t time.Time) DateDim {
	y, m, d := t.Date()
	_, week := t.ISOWeek()
	return DateDim{
		DateKey:    DateKey(t),
		FullDate:   time.Date(y, m, d, 0, 0, 0, 0, time.UTC),
		Year:       y,
		Month:      int(m),
		Day:        d,
		Quarter:    (int(m)-1)/3 + 1,
		DayOfWeek:  (int(t.Weekday()) + 6) % 7,
		WeekOfYear: week,
	}
}
