// Package analytics derives window statistics from warehouse price points.
package analytics

import (
	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/floats"

	"github.com/guttosm/stockpulse/internal/domain/models"
)

// Summarize computes the analytics of an ascending window. It returns nil
// when the window is empty.
//
// The previous price is the second-to-last close, or the current one for a
// single-row window. The percentage change is zero when the previous close is.
func Summarize(symbol string, window []models.WindowPoint) *models.Analytics {
	n := len(window)
	if n == 0 {
		return nil
	}

	closes := make([]float64, n)
	chart := make([]models.ChartPoint, n)
	var volume int64
	for i, p := range window {
		closes[i] = p.Close
		volume += p.Volume
		chart[i] = models.ChartPoint{Date: p.Date, ClosePrice: round2(p.Close), Volume: p.Volume}
	}

	current := decimal.NewFromFloat(closes[n-1])
	prev := current
	if n > 1 {
		prev = decimal.NewFromFloat(closes[n-2])
	}
	change := current.Sub(prev)
	pct := decimal.Zero
	if !prev.IsZero() {
		pct = change.Div(prev).Mul(decimal.NewFromInt(100))
	}

	return &models.Analytics{
		Symbol:         symbol,
		CurrentPrice:   toFloat(current),
		PriceChange:    toFloat(change),
		PriceChangePct: toFloat(pct),
		High:           round2(floats.Max(closes)),
		Low:            round2(floats.Min(closes)),
		AvgVolume:      volume / int64(n),
		ChartData:      chart,
	}
}

func round2(v float64) float64 {
	return toFloat(decimal.NewFromFloat(v))
}

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}
