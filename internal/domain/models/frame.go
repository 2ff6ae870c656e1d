package models

import "time"

// Frame is the tabular history a provider returns: one row per trading day.
//
// Columns holds the header of every value column. A single-level header has
// one entry per column (e.g. ["Adj Close"]); a multi-level header has one
// entry per level (e.g. ["Close", "AAPL"]).
type Frame struct {
	Columns [][]string
	Rows    []FrameRow
}

// FrameRow holds the values of one trading day in column order.
type FrameRow struct {
	Date   time.Time
	Values []float64
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	if f == nil {
		return 0
	}
	return len(f.Rows)
}
