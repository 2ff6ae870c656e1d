// Package csvfile implements provider.Provider over a directory of CSV exports.
//
// Layout:
//
//	<dir>/<SYMBOL>.csv   daily history; one "Date" column plus value columns
//	<dir>/profiles.csv   optional; header symbol,name,sector,industry
//
// History files may carry a yfinance-style two-level header, where the
// second header row starts with "Ticker" and an optional third row
// starts with "Date" and is otherwise empty.
package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/guttosm/stockpulse/internal/calendar"
	"github.com/guttosm/stockpulse/internal/domain/models"
	"github.com/guttosm/stockpulse/internal/logger"
	"github.com/guttosm/stockpulse/internal/provider"
)

const profilesFile = "profiles.csv"

// accepted date layouts, tried in order against the first 10 chars or the whole cell
var dateLayouts = []string{"2006-01-02", "01/02/2006", "20060102"}

// Provider reads histories and profiles from a local directory.
type Provider struct {
	dir string
}

var _ provider.Provider = (*Provider)(nil)

// New returns a provider rooted at dir.
func New(dir string) *Provider {
	return &Provider{dir: dir}
}

// Profile looks the symbol up in profiles.csv. A missing file or row yields
// an empty profile, not an error: metadata is optional.
func (p *Provider) Profile(ctx context.Context, symbol string) (models.Profile, error) {
	if err := ctx.Err(); err != nil {
		return models.Profile{}, err
	}

	f, err := os.Open(filepath.Join(p.dir, profilesFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return models.Profile{}, nil
		}
		return models.Profile{}, fmt.Errorf("open profiles: %w", err)
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return models.Profile{}, nil
		}
		return models.Profile{}, fmt.Errorf("read profiles header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	symCol, ok := idx["symbol"]
	if !ok {
		return models.Profile{}, fmt.Errorf("profiles header: missing symbol column")
	}

	cell := func(rec []string, name string) string {
		i, ok := idx[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			return models.Profile{}, nil
		}
		if err != nil {
			return models.Profile{}, fmt.Errorf("read profiles: %w", err)
		}
		if symCol >= len(rec) || !strings.EqualFold(strings.TrimSpace(rec[symCol]), symbol) {
			continue
		}
		return models.Profile{
			Name:     cell(rec, "name"),
			Sector:   cell(rec, "sector"),
			Industry: cell(rec, "industry"),
		}, nil
	}
}

// History reads <dir>/<SYMBOL>.csv and returns the rows dated within [start, end],
// sorted ascending. Empty cells become NaN.
func (p *Provider) History(ctx context.Context, symbol string, start, end time.Time) (*models.Frame, error) {
	path := filepath.Join(p.dir, strings.ToUpper(symbol)+".csv")
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", symbol, provider.ErrSymbolNotFound)
		}
		return nil, fmt.Errorf("open: %w", err)
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%s: %w", symbol, provider.ErrSymbolNotFound)
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	dateCol := -1
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), "date") {
			dateCol = i
			break
		}
	}

	levels := [][]string{header}
	lineNumber := 1
	var pending []string // first data row, when the header turned out to be single-level

	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read line after %d: %w", lineNumber, err)
		}
		lineNumber++
		first := ""
		if len(rec) > 0 {
			first = strings.TrimSpace(rec[0])
		}
		switch {
		case strings.EqualFold(first, "ticker"):
			levels = append(levels, rec)
			continue
		case strings.EqualFold(first, "date") && blankAfterFirst(rec):
			dateCol = 0
			continue
		}
		pending = rec
		break
	}
	if dateCol < 0 {
		return nil, fmt.Errorf("header: missing Date column")
	}

	frame := &models.Frame{}
	valueCols := make([]int, 0, len(header))
	for i := range header {
		if i == dateCol {
			continue
		}
		valueCols = append(valueCols, i)
		col := make([]string, 0, len(levels))
		for _, lvl := range levels {
			if i < len(lvl) {
				col = append(col, strings.TrimSpace(lvl[i]))
			} else {
				col = append(col, "")
			}
		}
		frame.Columns = append(frame.Columns, col)
	}

	start, end = calendar.Truncate(start), calendar.Truncate(end)
	addRow := func(rec []string) error {
		if dateCol >= len(rec) {
			return fmt.Errorf("line %d: missing date", lineNumber)
		}
		d, err := parseDate(rec[dateCol])
		if err != nil {
			return fmt.Errorf("line %d: %w", lineNumber, err)
		}
		if d.Before(start) || d.After(end) {
			return nil
		}
		vals := make([]float64, len(valueCols))
		for j, c := range valueCols {
			if c >= len(rec) {
				vals[j] = math.NaN()
				continue
			}
			v, err := parseValue(rec[c])
			if err != nil {
				return fmt.Errorf("line %d col %d: %w", lineNumber, c+1, err)
			}
			vals[j] = v
		}
		frame.Rows = append(frame.Rows, models.FrameRow{Date: d, Values: vals})
		return nil
	}

	if pending != nil {
		if err := addRow(pending); err != nil {
			return nil, err
		}
		for {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			rec, err := r.Read()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return nil, fmt.Errorf("read line after %d: %w", lineNumber, err)
			}
			lineNumber++
			if err := addRow(rec); err != nil {
				return nil, err
			}
		}
	}

	if frame.Len() == 0 {
		return nil, fmt.Errorf("%s: no rows in range: %w", symbol, provider.ErrSymbolNotFound)
	}
	sort.SliceStable(frame.Rows, func(i, j int) bool { return frame.Rows[i].Date.Before(frame.Rows[j].Date) })

	log := logger.Component("csvfile")
	log.Debug().Str("symbol", symbol).Str("file", path).Int("rows", frame.Len()).Msg("csv history loaded")
	return frame, nil
}

func blankAfterFirst(rec []string) bool {
	for _, c := range rec[1:] {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	candidates := []string{s}
	if len(s) > 10 {
		candidates = append(candidates, s[:10])
	}
	for _, c := range candidates {
		for _, layout := range dateLayouts {
			if d, err := time.Parse(layout, c); err == nil {
				return d, nil
			}
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

// parseValue accepts empty cells (NaN) and comma decimal separators.
func parseValue(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "nan") || strings.EqualFold(s, "null") {
		return math.NaN(), nil
	}
	// a lone comma without a dot is a decimal separator, anything else groups thousands
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	} else {
		s = strings.ReplaceAll(s, ",", "")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return v, nil
}
