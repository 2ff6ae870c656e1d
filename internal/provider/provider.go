// Package provider defines the market-data collaborator the ingestion pipeline reads from.
package provider

import (
	"context"
	"errors"
	"time"

	"github.com/guttosm/stockpulse/internal/domain/models"
)

// ErrSymbolNotFound is returned when the provider has no data for a ticker
// (unknown, delisted, or an empty history).
var ErrSymbolNotFound = errors.New("symbol not found")

// Provider returns static company metadata and a daily OHLCV history.
//
// History returns trading days only, in any order, between start and end inclusive.
// Column naming is provider specific; callers normalize it.
type Provider interface {
	Profile(ctx context.Context, symbol string) (models.Profile, error)
	History(ctx context.Context, symbol string, start, end time.Time) (*models.Frame, error)
}
