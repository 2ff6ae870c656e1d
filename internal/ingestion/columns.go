package ingestion

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/guttosm/stockpulse/internal/domain/models"
)

// ErrMissingColumn is returned when a frame lacks a required OHLCV column.
var ErrMissingColumn = errors.New("missing column")

// fields in resolution order; adj_close is the only optional one
const (
	fieldOpen = iota
	fieldHigh
	fieldLow
	fieldClose
	fieldAdjClose
	fieldVolume
	numFields
)

var fieldNames = [numFields]string{"open", "high", "low", "close", "adj_close", "volume"}

var aliases = map[string]int{
	"open":            fieldOpen,
	"open_price":      fieldOpen,
	"high":            fieldHigh,
	"high_price":      fieldHigh,
	"low":             fieldLow,
	"low_price":       fieldLow,
	"close":           fieldClose,
	"close_price":     fieldClose,
	"price":           fieldClose,
	"adj_close":       fieldAdjClose,
	"adjclose":        fieldAdjClose,
	"adjusted_close":  fieldAdjClose,
	"adj_close_price": fieldAdjClose,
	"volume":          fieldVolume,
	"vol":             fieldVolume,
}

// columnMap holds the frame index of each field, -1 when absent.
type columnMap [numFields]int

// normalizeColumn flattens a header to its first level, lowercases it and
// turns spaces, hyphens and dots into single underscores.
func normalizeColumn(levels []string) string {
	if len(levels) == 0 {
		return ""
	}
	name := strings.ToLower(strings.TrimSpace(levels[0]))
	name = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '.', '\t':
			return '_'
		}
		return r
	}, name)
	for strings.Contains(name, "__") {
		name = strings.ReplaceAll(name, "__", "_")
	}
	return strings.Trim(name, "_")
}

// resolveColumns maps the frame header onto the known fields. The first
// matching column wins.
func resolveColumns(columns [][]string) (columnMap, error) {
	var m columnMap
	for i := range m {
		m[i] = -1
	}
	for i, col := range columns {
		f, ok := aliases[normalizeColumn(col)]
		if ok && m[f] < 0 {
			m[f] = i
		}
	}

	var missing []string
	for f, idx := range m {
		if idx < 0 && f != fieldAdjClose {
			missing = append(missing, fieldNames[f])
		}
	}
	if len(missing) > 0 {
		return m, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return m, nil
}

// extractBars converts the frame into bars sorted by date. Rows without a
// close are skipped; a missing open, high, low or adjusted close falls back
// to the close and a missing volume to zero.
func extractBars(frame *models.Frame) ([]models.Bar, error) {
	if frame.Len() == 0 {
		return nil, nil
	}
	m, err := resolveColumns(frame.Columns)
	if err != nil {
		return nil, err
	}

	bars := make([]models.Bar, 0, len(frame.Rows))
	for _, row := range frame.Rows {
		get := func(f int) float64 {
			if m[f] < 0 || m[f] >= len(row.Values) {
				return math.NaN()
			}
			return row.Values[m[f]]
		}

		closePx := get(fieldClose)
		if math.IsNaN(closePx) {
			continue
		}
		vol := get(fieldVolume)
		if math.IsNaN(vol) {
			vol = 0
		}
		if vol < 0 {
			return nil, fmt.Errorf("negative volume on %s", row.Date.Format("2006-01-02"))
		}

		bars = append(bars, models.Bar{
			Date:     row.Date,
			Open:     orElse(get(fieldOpen), closePx),
			High:     orElse(get(fieldHigh), closePx),
			Low:      orElse(get(fieldLow), closePx),
			Close:    closePx,
			AdjClose: orElse(get(fieldAdjClose), closePx),
			Volume:   int64(vol),
		})
	}

	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return bars, nil
}

func orElse(v, fallback float64) float64 {
	if math.IsNaN(v) {
		return fallback
	}
	return v
}
