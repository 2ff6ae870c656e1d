package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync"
	"time"

	pq "github.com/lib/pq"
	goose "github.com/pressly/goose/v3"

	"github.com/guttosm/stockpulse/internal/calendar"
	"github.com/guttosm/stockpulse/internal/domain/models"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var (
	// ErrNotFound is returned when a write references a stock or date key that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidSymbol is returned for an empty symbol.
	ErrInvalidSymbol = errors.New("invalid symbol")
	// ErrInvalidFact is returned for a fact row that cannot be stored (e.g. negative volume).
	ErrInvalidFact = errors.New("invalid price fact")
)

const pqForeignKeyViolation = "23503"

// Warehouse owns the star schema (dim_date, dim_stock, fact_stock_prices).
// It is the only component that talks to Postgres.
type Warehouse interface {
	Initialize(ctx context.Context) error
	EnsureDateRange(ctx context.Context, start, end time.Time) error
	RegisterStock(ctx context.Context, stock models.StockDim) (int64, error)
	LookupStock(ctx context.Context, symbol string) (int64, bool, error)
	UpsertPrice(ctx context.Context, fact models.PriceFact) error
	UpsertPrices(ctx context.Context, facts []models.PriceFact) error
	ListStocks(ctx context.Context) ([]models.StockDim, error)
	AnalyticsWindow(ctx context.Context, symbol string, limit int) ([]models.WindowPoint, error)
	CountDates(ctx context.Context, start, end time.Time) (int, error)
	CountFacts(ctx context.Context, symbol string) (int, error)
	Ping(ctx context.Context) error
}

// warehouse serializes writers with mu; readers share the read lock.
type warehouse struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewWarehouse wraps an open database handle. The caller keeps ownership of db.
func NewWarehouse(db *sql.DB) Warehouse {
	return &warehouse{db: db}
}

// migrate is an indirection so unit tests can skip goose.
var migrate = func(ctx context.Context, db *sql.DB) error {
	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db, sub)
	if err != nil {
		return fmt.Errorf("goose provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

// NormalizeSymbol trims and uppercases a ticker symbol.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// Initialize applies the schema migrations. It is safe to call on every start.
func (w *warehouse) Initialize(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := migrate(ctx, w.db); err != nil {
		return fmt.Errorf("initialize schema: %w", err)
	}
	return nil
}

// EnsureDateRange inserts a dim_date row for every day in [start, end] that is not present yet.
func (w *warehouse) EnsureDateRange(ctx context.Context, start, end time.Time) error {
	days := calendar.Days(start, end)
	if len(days) == 0 {
		return nil
	}

	n := len(days)
	keys := make([]int64, 0, n)
	dates := make([]string, 0, n)
	years := make([]int64, 0, n)
	months := make([]int64, 0, n)
	dayNums := make([]int64, 0, n)
	quarters := make([]int64, 0, n)
	weekdays := make([]int64, 0, n)
	weeks := make([]int64, 0, n)
	trading := make([]bool, 0, n)

	for _, d := range days {
		dim := models.NewDateDim(d)
		keys = append(keys, int64(dim.DateKey))
		dates = append(dates, dim.FullDate.Format("2006-01-02"))
		years = append(years, int64(dim.Year))
		months = append(months, int64(dim.Month))
		dayNums = append(dayNums, int64(dim.Day))
		quarters = append(quarters, int64(dim.Quarter))
		weekdays = append(weekdays, int64(dim.DayOfWeek))
		weeks = append(weeks, int64(dim.WeekOfYear))
		trading = append(trading, calendar.IsTradingDay(d))
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	_, err := w.db.ExecContext(ctx, `
		INSERT INTO dim_date (date_key, full_date, year, month, day, quarter, day_of_week, week_of_year, is_trading_day)
		SELECT * FROM unnest($1::int[], $2::date[], $3::int[], $4::int[], $5::int[], $6::int[], $7::int[], $8::int[], $9::bool[])
		ON CONFLICT (date_key) DO NOTHING
	`,
		pq.Array(keys), pq.Array(dates), pq.Array(years), pq.Array(months), pq.Array(dayNums),
		pq.Array(quarters), pq.Array(weekdays), pq.Array(weeks), pq.Array(trading),
	)
	if err != nil {
		return fmt.Errorf("insert date range %s..%s: %w", dates[0], dates[n-1], err)
	}
	return nil
}

// RegisterStock inserts the stock if its symbol is new and returns the key either way.
// Metadata of an existing symbol is left untouched.
func (w *warehouse) RegisterStock(ctx context.Context, stock models.StockDim) (int64, error) {
	symbol := NormalizeSymbol(stock.Symbol)
	if symbol == "" {
		return 0, ErrInvalidSymbol
	}
	name := strings.TrimSpace(stock.CompanyName)
	if name == "" {
		name = symbol
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO dim_stock (symbol, company_name, sector, industry)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (symbol) DO NOTHING
	`, symbol, name, orUnknown(stock.Sector), orUnknown(stock.Industry)); err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("insert stock %s: %w", symbol, err)
	}

	var key int64
	if err := tx.QueryRowContext(ctx, `SELECT stock_key FROM dim_stock WHERE symbol = $1`, symbol).Scan(&key); err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("resolve stock %s: %w", symbol, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return key, nil
}

// LookupStock resolves a symbol (case-insensitive) to its stock key.
func (w *warehouse) LookupStock(ctx context.Context, symbol string) (int64, bool, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	var key int64
	err := w.db.QueryRowContext(ctx, `SELECT stock_key FROM dim_stock WHERE symbol = $1`, NormalizeSymbol(symbol)).Scan(&key)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return key, true, nil
}

const upsertPriceSQL = `
		INSERT INTO fact_stock_prices (date_key, stock_key, open_price, high_price, low_price, close_price, adj_close_price, volume)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (date_key, stock_key) DO UPDATE
		SET open_price = EXCLUDED.open_price,
		    high_price = EXCLUDED.high_price,
		    low_price = EXCLUDED.low_price,
		    close_price = EXCLUDED.close_price,
		    adj_close_price = EXCLUDED.adj_close_price,
		    volume = EXCLUDED.volume
	`

// UpsertPrice writes or replaces the fact identified by (date key, stock key).
func (w *warehouse) UpsertPrice(ctx context.Context, fact models.PriceFact) error {
	if err := validateFact(fact); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	_, err := w.db.ExecContext(ctx, upsertPriceSQL, factArgs(fact)...)
	return mapWriteErr(err, fact)
}

// UpsertPrices writes many facts in a single transaction: either all rows land or none do.
func (w *warehouse) UpsertPrices(ctx context.Context, facts []models.PriceFact) error {
	if len(facts) == 0 {
		return nil
	}
	for _, f := range facts {
		if err := validateFact(f); err != nil {
			return err
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, upsertPriceSQL)
	if err != nil {
		_ = tx.Rollback()
		return err
	}

	for _, f := range facts {
		if _, err := stmt.ExecContext(ctx, factArgs(f)...); err != nil {
			_ = stmt.Close()
			_ = tx.Rollback()
			return mapWriteErr(err, f)
		}
	}

	if err := stmt.Close(); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// ListStocks returns every registered stock ordered by symbol.
func (w *warehouse) ListStocks(ctx context.Context) ([]models.StockDim, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	rows, err := w.db.QueryContext(ctx, `
		SELECT stock_key, symbol, company_name, sector, industry, created_at
		FROM dim_stock
		ORDER BY symbol
	`)
	if err != nil {
		return nil, fmt.Errorf("list stocks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	stocks := make([]models.StockDim, 0)
	for rows.Next() {
		var s models.StockDim
		if err := rows.Scan(&s.StockKey, &s.Symbol, &s.CompanyName, &s.Sector, &s.Industry, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan stock: %w", err)
		}
		stocks = append(stocks, s)
	}
	return stocks, rows.Err()
}

// AnalyticsWindow returns up to limit of the most recent facts for symbol, oldest first.
func (w *warehouse) AnalyticsWindow(ctx context.Context, symbol string, limit int) ([]models.WindowPoint, error) {
	if limit <= 0 {
		return nil, nil
	}

	w.mu.RLock()
	defer w.mu.RUnlock()

	rows, err := w.db.QueryContext(ctx, `
		SELECT d.full_date, f.close_price, f.volume
		FROM fact_stock_prices f
		JOIN dim_date d ON f.date_key = d.date_key
		JOIN dim_stock s ON f.stock_key = s.stock_key
		WHERE s.symbol = $1
		ORDER BY f.date_key DESC
		LIMIT $2
	`, NormalizeSymbol(symbol), limit)
	if err != nil {
		return nil, fmt.Errorf("query analytics window: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var points []models.WindowPoint
	for rows.Next() {
		var p models.WindowPoint
		if err := rows.Scan(&p.Date, &p.Close, &p.Volume); err != nil {
			return nil, fmt.Errorf("scan analytics row: %w", err)
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// newest-first from storage; callers consume a time series
	for i, j := 0, len(points)-1; i < j; i, j = i+1, j-1 {
		points[i], points[j] = points[j], points[i]
	}
	return points, nil
}

// CountDates counts dim_date rows between start and end inclusive.
func (w *warehouse) CountDates(ctx context.Context, start, end time.Time) (int, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	var n int
	err := w.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM dim_date WHERE date_key BETWEEN $1 AND $2`,
		models.DateKey(start), models.DateKey(end)).Scan(&n)
	return n, err
}

// CountFacts counts fact rows stored for symbol.
func (w *warehouse) CountFacts(ctx context.Context, symbol string) (int, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	var n int
	err := w.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM fact_stock_prices f
		JOIN dim_stock s ON f.stock_key = s.stock_key
		WHERE s.symbol = $1
	`, NormalizeSymbol(symbol)).Scan(&n)
	return n, err
}

// Ping checks database connectivity.
func (w *warehouse) Ping(ctx context.Context) error {
	return w.db.PingContext(ctx)
}

func orUnknown(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return models.UnknownClassification
	}
	return s
}

func validateFact(f models.PriceFact) error {
	if f.Volume < 0 {
		return fmt.Errorf("%w: negative volume %d for date %d", ErrInvalidFact, f.Volume, f.DateKey)
	}
	if f.DateKey <= 0 || f.StockKey <= 0 {
		return fmt.Errorf("%w: date key %d, stock key %d", ErrNotFound, f.DateKey, f.StockKey)
	}
	return nil
}

func factArgs(f models.PriceFact) []any {
	return []any{f.DateKey, f.StockKey, f.Open, f.High, f.Low, f.Close, f.AdjClose, f.Volume}
}

// mapWriteErr reports foreign key violations as ErrNotFound.
func mapWriteErr(err error, f models.PriceFact) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == pqForeignKeyViolation {
		return fmt.Errorf("%w: date key %d or stock key %d (%s)", ErrNotFound, f.DateKey, f.StockKey, pqErr.Constraint)
	}
	return fmt.Errorf("upsert price %d/%d: %w", f.DateKey, f.StockKey, err)
}
