package models

import "time"

// UnknownClassification is stored when the provider omits sector or industry.
const UnknownClassification = "Unknown"

// StockDim represents a tracked ticker in the stock dimension.
//
// swagger:model StockDim
type StockDim struct {
	StockKey    int64     `json:"-"`
	Symbol      string    `json:"symbol" example:"AAPL"`
	CompanyName string    `json:"name" example:"Apple Inc."`
	Sector      string    `json:"sector" example:"Technology"`
	Industry    string    `json:"industry,omitempty" example:"Consumer Electronics"`
	CreatedAt   time.Time `json:"-"`
}

// Profile is the static company metadata returned by a market-data provider.
// Any field may be empty.
type Profile struct {
	Name     string
	Sector   string
	Industry string
}

// AddSymbolResult is the outcome of registering and loading a symbol.
type AddSymbolResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
