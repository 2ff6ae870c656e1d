package main

//
//  @title           stockpulse API
//  @version         1.0
//  @description     Daily equity price warehouse with symbol ingestion and window analytics.
//  @termsOfService  https://github.com/guttosm/stockpulse
//  @contact.name    API Support
//  @contact.url     https://github.com/guttosm/stockpulse
//  @contact.email   support@example.com
//  @license.name    MIT
//  @license.url     https://opensource.org/licenses/MIT
//  @host            localhost:8080
//  @BasePath        /
//  @schemes         http
//
//  @tag.name        symbols
//  @tag.description Register symbols and list the tracked ones
//
//  @tag.name        analytics
//  @tag.description Window statistics and chart series per symbol
//
//  @tag.name        health
//  @tag.description Liveness and readiness probes

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/guttosm/stockpulse/config"
	_ "github.com/guttosm/stockpulse/docs" // swagger docs
	"github.com/guttosm/stockpulse/internal/app"
	"github.com/guttosm/stockpulse/internal/ingestion"
	"github.com/guttosm/stockpulse/internal/logger"
	"github.com/guttosm/stockpulse/internal/storage"
)

// startServer initializes and starts the HTTP server in a separate goroutine.
//
// WriteTimeout leaves room for POST /api/v1/symbols, which waits on the provider.
func startServer(router http.Handler, port string) *http.Server {
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.L().Info().Str("port", port).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L().Fatal().Err(err).Msg("server failed to start")
		}
	}()

	return server
}

// gracefulShutdown gracefully terminates the HTTP server and cleans up resources
// when an OS interrupt signal (SIGINT, SIGTERM) is received.
func gracefulShutdown(ctx context.Context, server *http.Server, cleanup func()) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	logger.L().Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.L().Fatal().Err(err).Msg("server forced to shutdown")
	}

	cleanup()
	logger.L().Info().Msg("server exited gracefully")
}

// parseSymbols splits a comma or whitespace separated list, dropping blanks
// and duplicates while keeping the first-seen order.
func parseSymbols(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
	seen := make(map[string]struct{}, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		sym := storage.NormalizeSymbol(f)
		if _, dup := seen[sym]; dup {
			continue
		}
		seen[sym] = struct{}{}
		out = append(out, sym)
	}
	return out
}

// runIngest loads every symbol and returns an error when any of them failed.
func runIngest(ctx context.Context, p *ingestion.Pipeline, symbols []string, days, parallel int) error {
	if len(symbols) == 0 {
		return errors.New("no symbols given; use --symbols AAPL,MSFT")
	}

	outcomes, err := p.IngestSymbols(ctx, symbols, days, parallel)
	if err != nil {
		return fmt.Errorf("ingestion aborted: %w", err)
	}

	var failed []string
	for _, o := range outcomes {
		if o.Err != nil {
			failed = append(failed, o.Symbol)
			continue
		}
		logger.L().Info().Str("symbol", o.Symbol).Int("rows", o.Summary.Rows).Msg("symbol loaded")
	}
	if len(failed) > 0 {
		return fmt.Errorf("%d of %d symbols failed: %s", len(failed), len(outcomes), strings.Join(failed, ", "))
	}
	return nil
}

// main is the entry point of the stockpulse application.
//
// Modes (selected via --mode flag):
//   - api:     Starts the REST API (default).
//   - ingest:  Loads --symbols into the warehouse and exits.
//   - migrate: Applies the schema migrations and exits.
//
// Flags:
//   - --symbols:  Comma separated tickers for ingest mode.
//   - --days:     Trailing calendar days to fetch. Defaults to HISTORY_DAYS.
//   - --parallel: Symbols processed concurrently (0=auto up to CPU, max 8).
//   - --port:     Port for the API server. Defaults to SERVER_PORT.
func main() {
	// Load configuration from environment or .env file
	config.LoadConfig()

	// Initialize JSON logger
	logger.Init()

	mode := flag.String("mode", "api", "Mode: api, ingest or migrate")
	symbols := flag.String("symbols", "", "Comma separated symbols to ingest")
	days := flag.Int("days", config.AppConfig.Warehouse.HistoryDays, "Trailing calendar days of history to fetch")
	parallel := flag.Int("parallel", 0, "How many symbols to ingest concurrently (0=auto up to CPU, max 8)")
	port := flag.String("port", config.AppConfig.Server.Port, "Port for API mode")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch *mode {
	case "migrate":
		logger.L().Info().Msg("applying migrations")
		db, err := app.InitPostgres(config.AppConfig)
		if err != nil {
			logger.L().Fatal().Err(err).Msg("db connect error")
		}
		defer func() { _ = db.Close() }()

		if err := storage.NewWarehouse(db).Initialize(ctx); err != nil {
			logger.L().Fatal().Err(err).Msg("migration failed")
		}
		logger.L().Info().Msg("schema up to date")

	case "ingest":
		logger.L().Info().Msg("running ingestion")
		comps, err := app.Bootstrap(ctx, config.AppConfig)
		if err != nil {
			logger.L().Fatal().Err(err).Msg("bootstrap error")
		}
		defer comps.Close()

		if err := runIngest(ctx, comps.Pipeline, parseSymbols(*symbols), *days, *parallel); err != nil {
			comps.Close()
			logger.L().Fatal().Err(err).Msg("ingestion failed")
		}
		logger.L().Info().Msg("ingestion completed successfully")

	case "api":
		stop()
		logger.L().Info().Msg("starting API server")

		router, cleanup, err := app.InitializeApp()
		if err != nil {
			logger.L().Fatal().Err(err).Msg("app init error")
		}

		server := startServer(router, *port)
		gracefulShutdown(context.Background(), server, cleanup)

	default:
		logger.L().Fatal().Str("mode", *mode).Msg("unknown mode")
	}
}
