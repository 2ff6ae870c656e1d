package dto

import "github.com/guttosm/stockpulse/internal/domain/models"

const chartDateLayout = "2006-01-02"

// AddSymbolRequest is the body accepted by POST /api/v1/symbols.
type AddSymbolRequest struct {
	Symbol string `json:"symbol" binding:"required" example:"AAPL"`
}

// AddSymbolResponse reports whether the symbol was loaded.
type AddSymbolResponse struct {
	Success bool   `json:"success" example:"true"`
	Message string `json:"message" example:"loaded 124 trading days for AAPL"`
}

// StockSummary is one entry of GET /api/v1/symbols.
type StockSummary struct {
	Symbol string `json:"symbol" example:"AAPL"`
	Name   string `json:"name" example:"Apple Inc."`
	Sector string `json:"sector" example:"Technology"`
}

// StockListResponse wraps the registered symbols.
type StockListResponse struct {
	Stocks []StockSummary `json:"stocks"`
}

// ChartPoint is one point of the chart series, with the date as YYYY-MM-DD.
type ChartPoint struct {
	Date       string  `json:"date" example:"2024-01-31"`
	ClosePrice float64 `json:"close_price" example:"103.00"`
	Volume     int64   `json:"volume" example:"1200000"`
}

// AnalyticsResponse represents the JSON returned by GET /api/v1/analytics/{symbol}.
type AnalyticsResponse struct {
	Symbol         string       `json:"symbol" example:"AAPL"`
	CurrentPrice   float64      `json:"current_price" example:"103.00"`
	PriceChange    float64      `json:"price_change" example:"-2.00"`
	PriceChangePct float64      `json:"price_change_pct" example:"-1.90"`
	High           float64      `json:"high" example:"105.00"`
	Low            float64      `json:"low" example:"100.00"`
	AvgVolume      int64        `json:"avg_volume" example:"1200000"`
	ChartData      []ChartPoint `json:"chart_data"`
}

// NewStockListResponse maps dimension rows to the list payload.
func NewStockListResponse(stocks []models.StockDim) StockListResponse {
	out := StockListResponse{Stocks: make([]StockSummary, 0, len(stocks))}
	for _, s := range stocks {
		out.Stocks = append(out.Stocks, StockSummary{Symbol: s.Symbol, Name: s.CompanyName, Sector: s.Sector})
	}
	return out
}

// NewAnalyticsResponse maps the domain analytics to the API payload.
func NewAnalyticsResponse(a *models.Analytics) AnalyticsResponse {
	resp := AnalyticsResponse{
		Symbol:         a.Symbol,
		CurrentPrice:   a.CurrentPrice,
		PriceChange:    a.PriceChange,
		PriceChangePct: a.PriceChangePct,
		High:           a.High,
		Low:            a.Low,
		AvgVolume:      a.AvgVolume,
		ChartData:      make([]ChartPoint, 0, len(a.ChartData)),
	}
	for _, p := range a.ChartData {
		resp.ChartData = append(resp.ChartData, ChartPoint{
			Date:       p.Date.Format(chartDateLayout),
			ClosePrice: p.ClosePrice,
			Volume:     p.Volume,
		})
	}
	return resp
}
