package ingestion

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/guttosm/stockpulse/internal/calendar"
	"github.com/guttosm/stockpulse/internal/domain/models"
	"github.com/guttosm/stockpulse/internal/provider"
	"github.com/guttosm/stockpulse/internal/storage"
)

// memWarehouse is an in-memory storage.Warehouse with the same key semantics.
type memWarehouse struct {
	mu      sync.Mutex
	dates   map[int]models.DateDim
	stocks  map[string]models.StockDim
	facts   map[[2]int64]models.PriceFact
	nextKey int64
	writes  int

	failUpsert error
}

var _ storage.Warehouse = (*memWarehouse)(nil)

func newMemWarehouse() *memWarehouse {
	return &memWarehouse{
		dates:  map[int]models.DateDim{},
		stocks: map[string]models.StockDim{},
		facts:  map[[2]int64]models.PriceFact{},
	}
}

func (m *memWarehouse) Initialize(context.Context) error { return nil }

func (m *memWarehouse) EnsureDateRange(_ context.Context, start, end time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	for _, d := range calendar.Days(start, end) {
		k := models.DateKey(d)
		if _, ok := m.dates[k]; !ok {
			m.dates[k] = models.NewDateDim(d)
		}
	}
	return nil
}

func (m *memWarehouse) RegisterStock(_ context.Context, s models.StockDim) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	sym := storage.NormalizeSymbol(s.Symbol)
	if sym == "" {
		return 0, storage.ErrInvalidSymbol
	}
	if got, ok := m.stocks[sym]; ok {
		return got.StockKey, nil
	}
	m.nextKey++
	s.Symbol, s.StockKey = sym, m.nextKey
	if s.CompanyName == "" {
		s.CompanyName = sym
	}
	if s.Sector == "" {
		s.Sector = models.UnknownClassification
	}
	if s.Industry == "" {
		s.Industry = models.UnknownClassification
	}
	m.stocks[sym] = s
	return s.StockKey, nil
}

func (m *memWarehouse) LookupStock(_ context.Context, symbol string) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.stocks[storage.NormalizeSymbol(symbol)]
	return s.StockKey, ok, nil
}

func (m *memWarehouse) UpsertPrice(ctx context.Context, f models.PriceFact) error {
	return m.UpsertPrices(ctx, []models.PriceFact{f})
}

func (m *memWarehouse) UpsertPrices(_ context.Context, facts []models.PriceFact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	if m.failUpsert != nil {
		return m.failUpsert
	}
	for _, f := range facts {
		if _, ok := m.dates[f.DateKey]; !ok {
			return storage.ErrNotFound
		}
	}
	for _, f := range facts {
		m.facts[[2]int64{int64(f.DateKey), f.StockKey}] = f
	}
	return nil
}

func (m *memWarehouse) ListStocks(context.Context) ([]models.StockDim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.StockDim, 0, len(m.stocks))
	for _, s := range m.stocks {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out, nil
}

func (m *memWarehouse) AnalyticsWindow(_ context.Context, symbol string, limit int) ([]models.WindowPoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.stocks[storage.NormalizeSymbol(symbol)]
	if !ok || limit <= 0 {
		return nil, nil
	}
	var pts []models.WindowPoint
	for k, f := range m.facts {
		if k[1] == s.StockKey {
			pts = append(pts, models.WindowPoint{Date: m.dates[f.DateKey].FullDate, Close: f.Close, Volume: f.Volume})
		}
	}
	sort.Slice(pts, func(i, j int) bool { return pts[i].Date.Before(pts[j].Date) })
	if len(pts) > limit {
		pts = pts[len(pts)-limit:]
	}
	return pts, nil
}

func (m *memWarehouse) CountDates(_ context.Context, start, end time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, d := range calendar.Days(start, end) {
		if _, ok := m.dates[models.DateKey(d)]; ok {
			n++
		}
	}
	return n, nil
}

func (m *memWarehouse) CountFacts(_ context.Context, symbol string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.stocks[storage.NormalizeSymbol(symbol)]
	if !ok {
		return 0, nil
	}
	n := 0
	for k := range m.facts {
		if k[1] == s.StockKey {
			n++
		}
	}
	return n, nil
}

func (m *memWarehouse) Ping(context.Context) error { return nil }

// fakeProvider serves canned frames keyed by symbol.
type fakeProvider struct {
	mu       sync.Mutex
	profiles map[string]models.Profile
	frames   map[string]*models.Frame
	err      error
	calls    int
}

func (f *fakeProvider) Profile(ctx context.Context, symbol string) (models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return models.Profile{}, f.err
	}
	return f.profiles[symbol], nil
}

func (f *fakeProvider) History(ctx context.Context, symbol string, start, end time.Time) (*models.Frame, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	fr, ok := f.frames[symbol]
	if !ok {
		return nil, provider.ErrSymbolNotFound
	}
	return fr, nil
}

var errUpstream = errors.New("connection reset by peer")

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// closesFrame builds a yfinance-shaped frame with one row per close, on
// consecutive weekdays starting 2024-01-02.
func closesFrame(closes ...float64) *models.Frame {
	fr := &models.Frame{Columns: [][]string{{"Open"}, {"High"}, {"Low"}, {"Close"}, {"Adj Close"}, {"Volume"}}}
	d := day(2024, 1, 2)
	for i, c := range closes {
		for d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			d = d.AddDate(0, 0, 1)
		}
		fr.Rows = append(fr.Rows, models.FrameRow{
			Date:   d,
			Values: []float64{c - 1, c + 1, c - 2, c, c, float64(1000 * (i + 1))},
		})
		d = d.AddDate(0, 0, 1)
	}
	return fr
}
