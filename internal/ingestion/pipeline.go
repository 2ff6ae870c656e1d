// Package ingestion loads provider history into the warehouse.
package ingestion

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/guttosm/stockpulse/internal/calendar"
	"github.com/guttosm/stockpulse/internal/domain/models"
	"github.com/guttosm/stockpulse/internal/logger"
	"github.com/guttosm/stockpulse/internal/provider"
	"github.com/guttosm/stockpulse/internal/storage"
)

// DefaultHistoryDays is the trailing window used when a caller passes days <= 0.
const DefaultHistoryDays = 180

var (
	// ErrEmptySymbol is the validation cause for a blank symbol.
	ErrEmptySymbol = errors.New("symbol is required")
	// ErrMalformedSymbol is the validation cause for a symbol with unsupported characters.
	ErrMalformedSymbol = errors.New("symbol contains unsupported characters")

	symbolPattern = regexp.MustCompile(`^[A-Z0-9.\-^=]+$`)
)

// Summary describes a successful run.
type Summary struct {
	Symbol   string
	StockKey int64
	Rows     int
	Sessions int // trading days in the requested window
	From     time.Time
	To       time.Time
}

// Pipeline fetches history from a provider and upserts it into the warehouse.
type Pipeline struct {
	warehouse   storage.Warehouse
	provider    provider.Provider
	now         func() time.Time
	defaultDays int
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithClock overrides time.Now, which anchors the history window.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// WithDefaultDays sets the window used when Ingest is called with days <= 0.
func WithDefaultDays(days int) Option {
	return func(p *Pipeline) {
		if days > 0 {
			p.defaultDays = days
		}
	}
}

// NewPipeline wires a pipeline over the given collaborators.
func NewPipeline(w storage.Warehouse, prov provider.Provider, opts ...Option) *Pipeline {
	p := &Pipeline{
		warehouse:   w,
		provider:    prov,
		now:         time.Now,
		defaultDays: DefaultHistoryDays,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Ingest loads the trailing `days` calendar days of history for symbol.
//
// Nothing is written unless both the profile and the history were fetched and
// normalized. The stock is then registered, the date dimension extended over
// the fetched range and every bar upserted in one transaction, so re-running
// over an overlapping range converges to the same state.
//
// A non-nil error is always an *Error.
func (p *Pipeline) Ingest(ctx context.Context, symbol string, days int) (Summary, error) {
	sym := storage.NormalizeSymbol(symbol)
	if sym == "" {
		return Summary{}, fail(KindValidation, sym, ErrEmptySymbol)
	}
	if !symbolPattern.MatchString(sym) {
		return Summary{}, fail(KindValidation, sym, fmt.Errorf("%w: %q", ErrMalformedSymbol, sym))
	}
	if days <= 0 {
		days = p.defaultDays
	}

	started := time.Now()
	end := calendar.Truncate(p.now().UTC())
	start := end.AddDate(0, 0, -days)

	var (
		profile models.Profile
		frame   *models.Frame
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		profile, err = p.provider.Profile(gctx, sym)
		if err != nil {
			return fmt.Errorf("profile: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		frame, err = p.provider.History(gctx, sym, start, end)
		if err != nil {
			return fmt.Errorf("history: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		kind := KindProvider
		if errors.Is(err, provider.ErrSymbolNotFound) {
			kind = KindNotFound
		}
		logger.L().Warn().Str("symbol", sym).Str("kind", kind.String()).Err(err).Msg("fetch failed")
		return Summary{}, fail(kind, sym, err)
	}

	bars, err := extractBars(frame)
	if err != nil {
		return Summary{}, fail(KindProvider, sym, fmt.Errorf("normalize: %w", err))
	}
	if len(bars) == 0 {
		return Summary{}, fail(KindNotFound, sym, fmt.Errorf("empty history: %w", provider.ErrSymbolNotFound))
	}

	stockKey, err := p.warehouse.RegisterStock(ctx, models.StockDim{
		Symbol:      sym,
		CompanyName: profile.Name,
		Sector:      profile.Sector,
		Industry:    profile.Industry,
	})
	if err != nil {
		return Summary{}, fail(KindStorage, sym, err)
	}

	first, last := bars[0].Date, bars[len(bars)-1].Date
	from, to := start, end
	if first.Before(from) {
		from = first
	}
	if last.After(to) {
		to = last
	}
	if err := p.warehouse.EnsureDateRange(ctx, from, to); err != nil {
		return Summary{}, fail(KindStorage, sym, err)
	}

	facts := make([]models.PriceFact, len(bars))
	for i, b := range bars {
		facts[i] = b.Fact(stockKey)
	}
	if err := p.warehouse.UpsertPrices(ctx, facts); err != nil {
		return Summary{}, fail(KindStorage, sym, err)
	}

	sum := Summary{
		Symbol:   sym,
		StockKey: stockKey,
		Rows:     len(facts),
		Sessions: calendar.CountTradingDays(start, end),
		From:     first,
		To:       last,
	}
	logger.L().Info().
		Str("symbol", sym).
		Int64("stock_key", stockKey).
		Int("rows", sum.Rows).
		Int("sessions", sum.Sessions).
		Str("from", first.Format("2006-01-02")).
		Str("to", last.Format("2006-01-02")).
		Dur("elapsed", time.Since(started)).
		Msg("ingestion done")
	return sum, nil
}
