package models

import "time"

// Analytics summarizes the recent price window of a single symbol.
//
// Currency fields are rounded to two decimals. AvgVolume is the truncated
// arithmetic mean of the window's volume.
//
// swagger:model Analytics
type Analytics struct {
	Symbol         string       `json:"symbol" example:"AAPL"`
	CurrentPrice   float64      `json:"current_price" example:"103.00"`
	PriceChange    float64      `json:"price_change" example:"-2.00"`
	PriceChangePct float64      `json:"price_change_pct" example:"-1.90"`
	High           float64      `json:"high" example:"105.00"`
	Low            float64      `json:"low" example:"100.00"`
	AvgVolume      int64        `json:"avg_volume" example:"1200000"`
	ChartData      []ChartPoint `json:"chart_data"`
}

// ChartPoint is one entry of the ascending chart series.
type ChartPoint struct {
	Date       time.Time `json:"date"`
	ClosePrice float64   `json:"close_price"`
	Volume     int64     `json:"volume"`
}
