package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/guttosm/stockpulse/internal/analytics"
	"github.com/guttosm/stockpulse/internal/domain/models"
	"github.com/guttosm/stockpulse/internal/ingestion"
	"github.com/guttosm/stockpulse/internal/logger"
	"github.com/guttosm/stockpulse/internal/storage"
)

// DefaultAnalyticsWindow is the number of most recent trading days analysed.
const DefaultAnalyticsWindow = 90

// Ingester loads history for one symbol; *ingestion.Pipeline satisfies it.
type Ingester interface {
	Ingest(ctx context.Context, symbol string, days int) (ingestion.Summary, error)
}

// StocksService exposes the operations the HTTP layer calls.
type StocksService interface {
	AddSymbol(ctx context.Context, symbol string) models.AddSymbolResult
	ListSymbols(ctx context.Context) ([]models.StockDim, error)
	// GetAnalytics returns nil, nil when the symbol has no facts.
	GetAnalytics(ctx context.Context, symbol string) (*models.Analytics, error)
}

type stocksService struct {
	warehouse storage.Warehouse
	ingester  Ingester
	days      int
	window    int
}

// NewStocksService builds the service. days <= 0 lets the ingester pick its
// default; window <= 0 means DefaultAnalyticsWindow.
func NewStocksService(w storage.Warehouse, ing Ingester, days, window int) StocksService {
	if window <= 0 {
		window = DefaultAnalyticsWindow
	}
	return &stocksService{warehouse: w, ingester: ing, days: days, window: window}
}

func (s *stocksService) AddSymbol(ctx context.Context, symbol string) models.AddSymbolResult {
	sum, err := s.ingester.Ingest(ctx, symbol, s.days)
	if err != nil {
		logger.L().Warn().Str("symbol", symbol).Err(err).Msg("add symbol failed")
		return models.AddSymbolResult{Success: false, Message: failureMessage(symbol, err)}
	}
	return models.AddSymbolResult{
		Success: true,
		Message: fmt.Sprintf("Successfully added %s (%d trading days)", sum.Symbol, sum.Rows),
	}
}

func (s *stocksService) ListSymbols(ctx context.Context) ([]models.StockDim, error) {
	return s.warehouse.ListStocks(ctx)
}

func (s *stocksService) GetAnalytics(ctx context.Context, symbol string) (*models.Analytics, error) {
	sym := storage.NormalizeSymbol(symbol)
	if sym == "" {
		return nil, nil
	}
	points, err := s.warehouse.AnalyticsWindow(ctx, sym, s.window)
	if err != nil {
		return nil, fmt.Errorf("analytics window %s: %w", sym, err)
	}
	return analytics.Summarize(sym, points), nil
}

func failureMessage(symbol string, err error) string {
	var ie *ingestion.Error
	if !errors.As(err, &ie) {
		return fmt.Sprintf("Failed to add %s: %v", symbol, err)
	}
	switch ie.Kind {
	case ingestion.KindValidation:
		return fmt.Sprintf("Invalid symbol %q: %v", symbol, ie.Err)
	case ingestion.KindNotFound:
		return fmt.Sprintf("No data found for %s", ie.Symbol)
	case ingestion.KindProvider:
		return fmt.Sprintf("Failed to fetch data for %s: %v", ie.Symbol, ie.Err)
	default:
		return fmt.Sprintf("Failed to store data for %s: %v", ie.Symbol, ie.Err)
	}
}
