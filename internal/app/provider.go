package app

import (
	"fmt"

	"github.com/guttosm/stockpulse/config"
	"github.com/guttosm/stockpulse/internal/provider"
	"github.com/guttosm/stockpulse/internal/provider/csvfile"
	"github.com/guttosm/stockpulse/internal/provider/yahoo"
)

// NewProvider builds the market-data provider selected by cfg.Name.
func NewProvider(cfg config.ProviderConfig) (provider.Provider, error) {
	switch cfg.Name {
	case config.ProviderYahoo, "":
		opts := []yahoo.ClientOption{yahoo.WithRateLimit(cfg.RateLimit)}
		if cfg.BaseURL != "" {
			opts = append(opts, yahoo.WithBaseURL(cfg.BaseURL))
		}
		if cfg.Timeout > 0 {
			opts = append(opts, yahoo.WithTimeout(cfg.Timeout))
		}
		return yahoo.NewClient(opts...), nil
	case config.ProviderCSV:
		if cfg.CSVDir == "" {
			return nil, fmt.Errorf("csv provider: directory is required")
		}
		return csvfile.New(cfg.CSVDir), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Name)
	}
}
