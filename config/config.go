package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the full application configuration loaded from environment variables or .env file.
//
// Example ENV:
//
//	SERVER_PORT=8080
//	SERVER_REQUEST_TIMEOUT=60s
//	POSTGRES_HOST=localhost
//	POSTGRES_PORT=5432
//	POSTGRES_USER=admin
//	POSTGRES_PASSWORD=secret
//	POSTGRES_DB=stockpulse
//	POSTGRES_SSLMODE=disable
//	PROVIDER=yahoo
//	PROVIDER_TIMEOUT=30s
//	PROVIDER_RATE_LIMIT=2
//	HISTORY_DAYS=180
//	ANALYTICS_WINDOW=90
type Config struct {
	Server    ServerConfig
	Postgres  PostgresConfig
	Provider  ProviderConfig
	Warehouse WarehouseConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port           string        // TCP port, e.g. "8080"
	RequestTimeout time.Duration // per-request context deadline
}

// PostgresConfig defines connection details for PostgreSQL.
// URL is the DSN computed from the other fields.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	URL      string
}

// Provider names accepted in PROVIDER.
const (
	ProviderYahoo = "yahoo"
	ProviderCSV   = "csv"
)

// ProviderConfig selects and tunes the market-data provider.
type ProviderConfig struct {
	Name      string        // yahoo | csv
	BaseURL   string        // yahoo only; empty means the public endpoint
	Timeout   time.Duration // HTTP client timeout
	RateLimit int           // requests per second, 0 disables limiting
	CSVDir    string        // csv only
}

// WarehouseConfig holds ingestion and analytics windows.
type WarehouseConfig struct {
	HistoryDays     int // trailing calendar days fetched by AddSymbol
	AnalyticsWindow int // most recent trading days analysed
}

// AppConfig is the globally accessible configuration instance, populated by LoadConfig.
var AppConfig Config

// LoadConfig initializes the global AppConfig.
//
// Precedence (from lowest to highest):
//  1. Defaults set in this function.
//  2. Values from .env file (if present).
//  3. Environment variables.
//
// validateConfig terminates the process when required values are missing.
func LoadConfig() {
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_REQUEST_TIMEOUT", "60s")

	viper.SetDefault("POSTGRES_HOST", "localhost")
	viper.SetDefault("POSTGRES_PORT", 5432)
	viper.SetDefault("POSTGRES_USER", "postgres")
	viper.SetDefault("POSTGRES_PASSWORD", "postgres")
	viper.SetDefault("POSTGRES_DB", "stockpulse")
	viper.SetDefault("POSTGRES_SSLMODE", "disable")

	viper.SetDefault("PROVIDER", ProviderYahoo)
	viper.SetDefault("PROVIDER_BASE_URL", "")
	viper.SetDefault("PROVIDER_TIMEOUT", "30s")
	viper.SetDefault("PROVIDER_RATE_LIMIT", 2)
	viper.SetDefault("PROVIDER_CSV_DIR", "./data/prices")

	viper.SetDefault("HISTORY_DAYS", 180)
	viper.SetDefault("ANALYTICS_WINDOW", 90)

	// Optionally read from .env if present (common in local dev)
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig()

	viper.AutomaticEnv()

	AppConfig = Config{
		Server: ServerConfig{
			Port:           viper.GetString("SERVER_PORT"),
			RequestTimeout: viper.GetDuration("SERVER_REQUEST_TIMEOUT"),
		},
		Postgres: PostgresConfig{
			Host:     viper.GetString("POSTGRES_HOST"),
			Port:     viper.GetInt("POSTGRES_PORT"),
			User:     viper.GetString("POSTGRES_USER"),
			Password: viper.GetString("POSTGRES_PASSWORD"),
			DBName:   viper.GetString("POSTGRES_DB"),
			SSLMode:  viper.GetString("POSTGRES_SSLMODE"),
		},
		Provider: ProviderConfig{
			Name:      strings.ToLower(strings.TrimSpace(viper.GetString("PROVIDER"))),
			BaseURL:   viper.GetString("PROVIDER_BASE_URL"),
			Timeout:   viper.GetDuration("PROVIDER_TIMEOUT"),
			RateLimit: viper.GetInt("PROVIDER_RATE_LIMIT"),
			CSVDir:    viper.GetString("PROVIDER_CSV_DIR"),
		},
		Warehouse: WarehouseConfig{
			HistoryDays:     viper.GetInt("HISTORY_DAYS"),
			AnalyticsWindow: viper.GetInt("ANALYTICS_WINDOW"),
		},
	}

	AppConfig.Postgres.URL = AppConfig.Postgres.DSN()

	validateConfig()
}

// DSN builds the connection string used by database/sql.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.DBName, p.SSLMode,
	)
}

// validateConfig terminates the application when required values are missing or invalid.
func validateConfig() {
	if problems := checkConfig(AppConfig); len(problems) > 0 {
		log.Fatalf("invalid configuration: %v\n", problems)
	}
}

// checkConfig lists every missing or invalid setting of cfg.
func checkConfig(cfg Config) []string {
	var problems []string

	if cfg.Server.Port == "" {
		problems = append(problems, "SERVER_PORT")
	}
	if cfg.Postgres.Host == "" {
		problems = append(problems, "POSTGRES_HOST")
	}
	if cfg.Postgres.Port == 0 {
		problems = append(problems, "POSTGRES_PORT")
	}
	if cfg.Postgres.User == "" {
		problems = append(problems, "POSTGRES_USER")
	}
	if cfg.Postgres.Password == "" {
		problems = append(problems, "POSTGRES_PASSWORD")
	}
	if cfg.Postgres.DBName == "" {
		problems = append(problems, "POSTGRES_DB")
	}

	switch cfg.Provider.Name {
	case ProviderYahoo:
	case ProviderCSV:
		if cfg.Provider.CSVDir == "" {
			problems = append(problems, "PROVIDER_CSV_DIR")
		}
	default:
		problems = append(problems, fmt.Sprintf("PROVIDER (%q: want yahoo or csv)", cfg.Provider.Name))
	}
	if cfg.Provider.RateLimit < 0 {
		problems = append(problems, "PROVIDER_RATE_LIMIT (negative)")
	}
	if cfg.Warehouse.HistoryDays <= 0 {
		problems = append(problems, "HISTORY_DAYS (must be positive)")
	}
	if cfg.Warehouse.AnalyticsWindow <= 0 {
		problems = append(problems, "ANALYTICS_WINDOW (must be positive)")
	}

	return problems
}
