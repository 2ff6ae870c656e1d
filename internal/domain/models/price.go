package models

import "time"

// PriceFact is one OHLCV row for a (date, stock) pair.
type PriceFact struct {
	FactKey  int64
	DateKey  int
	StockKey int64
	Open     float64
	High     float64
	Low      float64
	Close    float64
	AdjClose float64
	Volume   int64
}

// Bar is a normalized trading-day row extracted from a provider frame.
type Bar struct {
	Date     time.Time
	Open     float64
	High     float64
	Low      float64
	Close    float64
	AdjClose float64
	Volume   int64
}

// Fact converts the bar into a fact row for the given stock key.
func (b Bar) Fact(stockKey int64) PriceFact {
	return PriceFact{
		DateKey:  DateKey(b.Date),
		StockKey: stockKey,
		Open:     b.Open,
		High:     b.High,
		Low:      b.Low,
		Close:    b.Close,
		AdjClose: b.AdjClose,
		Volume:   b.Volume,
	}
}

// WindowPoint is the slice of a fact row the analytics window needs.
type WindowPoint struct {
	Date   time.Time
	Close  float64
	Volume int64
}
