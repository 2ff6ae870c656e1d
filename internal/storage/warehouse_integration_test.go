//go:build integration
// +build integration

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	_ "github.com/lib/pq"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/guttosm/stockpulse/internal/domain/models"
)

// startPostgres spins up a Postgres container and returns a DSN and terminate func.
func startPostgres(t *testing.T) (dsn string, terminate func()) {
	t.Helper()
	ctx := context.Background()

	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       "stockpulse",
			"POSTGRES_USER":     "postgres",
			"POSTGRES_PASSWORD": "postgres",
		},
		WaitingFor: wait.ForSQL("5432/tcp", "postgres", func(host string, port nat.Port) string {
			return fmt.Sprintf("host=%s port=%s user=postgres password=postgres dbname=stockpulse sslmode=disable", host, port.Port())
		}).WithStartupTimeout(60 * time.Second),
	}

	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Fatalf("container start: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}

	dsn = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", "postgres", "postgres", host, port.Port(), "stockpulse")
	terminate = func() { _ = container.Terminate(context.Background()) }
	return dsn, terminate
}

func openDB(t *testing.T, dsn string) *sql.DB {
	t.Helper()
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Fatalf("ping: %v", err)
	}
	return db
}

func TestWarehouse_Integration(t *testing.T) {
	dsn, terminate := startPostgres(t)
	defer terminate()
	db := openDB(t, dsn)
	defer db.Close()

	ctx := context.Background()
	w := NewWarehouse(db)

	// twice: initialization must be idempotent
	for i := 0; i < 2; i++ {
		if err := w.Initialize(ctx); err != nil {
			t.Fatalf("initialize #%d: %v", i+1, err)
		}
	}

	jan1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	jan31 := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)

	t.Run("date range completeness", func(t *testing.T) {
		if err := w.EnsureDateRange(ctx, jan1, jan31); err != nil {
			t.Fatalf("ensure: %v", err)
		}
		// overlapping range must not duplicate
		if err := w.EnsureDateRange(ctx, jan1.AddDate(0, 0, 10), jan31); err != nil {
			t.Fatalf("ensure overlap: %v", err)
		}
		n, err := w.CountDates(ctx, jan1, jan31)
		if err != nil || n != 31 {
			t.Fatalf("want 31 rows got %d err=%v", n, err)
		}

		var quarter, dow int
		if err := db.QueryRow(`SELECT quarter, day_of_week FROM dim_date WHERE date_key = 20240117`).Scan(&quarter, &dow); err != nil {
			t.Fatalf("select: %v", err)
		}
		if quarter != 1 || dow != 2 { // Wednesday
			t.Fatalf("quarter=%d dow=%d", quarter, dow)
		}
	})

	t.Run("registration is idempotent", func(t *testing.T) {
		k1, err := w.RegisterStock(ctx, models.StockDim{Symbol: "aapl", CompanyName: "Apple Inc."})
		if err != nil {
			t.Fatalf("register: %v", err)
		}
		k2, err := w.RegisterStock(ctx, models.StockDim{Symbol: "AAPL", CompanyName: "Other"})
		if err != nil || k1 != k2 {
			t.Fatalf("want same key, got %d/%d err=%v", k1, k2, err)
		}
		var rows int
		var name string
		if err := db.QueryRow(`SELECT COUNT(*), MIN(company_name) FROM dim_stock WHERE symbol = 'AAPL'`).Scan(&rows, &name); err != nil {
			t.Fatalf("count: %v", err)
		}
		if rows != 1 || name != "Apple Inc." {
			t.Fatalf("rows=%d name=%q", rows, name)
		}
	})

	t.Run("fact upsert replaces", func(t *testing.T) {
		key, ok, err := w.LookupStock(ctx, "AAPL")
		if err != nil || !ok {
			t.Fatalf("lookup: ok=%v err=%v", ok, err)
		}
		f := models.PriceFact{DateKey: 20240102, StockKey: key, Open: 1, High: 2, Low: 1, Close: 1.5, AdjClose: 1.5, Volume: 10}
		if err := w.UpsertPrice(ctx, f); err != nil {
			t.Fatalf("upsert: %v", err)
		}
		f.Close, f.Volume = 1.9, 20
		if err := w.UpsertPrices(ctx, []models.PriceFact{f}); err != nil {
			t.Fatalf("upsert batch: %v", err)
		}
		n, err := w.CountFacts(ctx, "AAPL")
		if err != nil || n != 1 {
			t.Fatalf("want 1 fact got %d err=%v", n, err)
		}
		points, err := w.AnalyticsWindow(ctx, "aapl", 90)
		if err != nil || len(points) != 1 || points[0].Close != 1.9 || points[0].Volume != 20 {
			t.Fatalf("unexpected window %+v err=%v", points, err)
		}
	})

	t.Run("unknown stock key is not found", func(t *testing.T) {
		err := w.UpsertPrice(ctx, models.PriceFact{DateKey: 20240102, StockKey: 9999, Volume: 1})
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("want ErrNotFound got %v", err)
		}
	})
}
