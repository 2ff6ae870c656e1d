package app

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/guttosm/stockpulse/config"
	"github.com/guttosm/stockpulse/internal/api"
	"github.com/guttosm/stockpulse/internal/ingestion"
	"github.com/guttosm/stockpulse/internal/logger"
	"github.com/guttosm/stockpulse/internal/service"
	"github.com/guttosm/stockpulse/internal/storage"
)

// Components are the dependencies shared by every run mode.
type Components struct {
	DB        *sql.DB
	Warehouse storage.Warehouse
	Pipeline  *ingestion.Pipeline
	Service   service.StocksService
}

// Close releases the database handle.
func (c *Components) Close() {
	if c != nil && c.DB != nil {
		_ = c.DB.Close()
	}
}

// initWarehouse is an indirection so unit tests can skip migrations.
var initWarehouse = func(ctx context.Context, w storage.Warehouse) error {
	return w.Initialize(ctx)
}

// Bootstrap connects to PostgreSQL, applies the schema and wires the
// provider, pipeline and service from cfg. The caller must Close the result.
func Bootstrap(ctx context.Context, cfg config.Config) (*Components, error) {
	db, err := postgresOpener(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize postgres: %w", err)
	}

	w := storage.NewWarehouse(db)
	if err := initWarehouse(ctx, w); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize warehouse: %w", err)
	}

	prov, err := NewProvider(cfg.Provider)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize provider: %w", err)
	}

	pipeline := ingestion.NewPipeline(w, prov, ingestion.WithDefaultDays(cfg.Warehouse.HistoryDays))
	svc := service.NewStocksService(w, pipeline, cfg.Warehouse.HistoryDays, cfg.Warehouse.AnalyticsWindow)

	logger.L().Info().
		Str("provider", cfg.Provider.Name).
		Int("history_days", cfg.Warehouse.HistoryDays).
		Int("analytics_window", cfg.Warehouse.AnalyticsWindow).
		Msg("components ready")

	return &Components{DB: db, Warehouse: w, Pipeline: pipeline, Service: svc}, nil
}

// InitializeApp sets up all application dependencies and returns
// a fully configured Gin router, a cleanup function for graceful shutdown,
// and any error encountered during initialization.
//
// Responsibilities:
//   - Bootstraps the warehouse, provider, pipeline and service.
//   - Creates the HTTP handler layer and the Gin router.
//   - Registers health and readiness probes backed by the warehouse.
//   - Provides a cleanup function to close the database handle.
func InitializeApp() (*gin.Engine, func(), error) {
	cfg := config.AppConfig

	comps, err := Bootstrap(context.Background(), cfg)
	if err != nil {
		return nil, nil, err
	}

	handler := api.NewHandler(comps.Service)
	router := api.NewRouter(handler, cfg.Server.RequestTimeout)

	api.NewHealthHandler(comps.Warehouse.Ping).Register(router)

	return router, comps.Close, nil
}
