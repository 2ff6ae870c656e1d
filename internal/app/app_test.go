package app

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/guttosm/stockpulse/config"
	"github.com/guttosm/stockpulse/internal/storage"
)

func testConfig() config.Config {
	return config.Config{
		Postgres:  config.PostgresConfig{Host: "127.0.0.1", Port: 54329, User: "x", Password: "y", DBName: "z", SSLMode: "disable"},
		Provider:  config.ProviderConfig{Name: config.ProviderCSV, CSVDir: "."},
		Warehouse: config.WarehouseConfig{HistoryDays: 180, AnalyticsWindow: 90},
	}
}

// stubSeams replaces the database opener and the migration step.
func stubSeams(t *testing.T, db *sql.DB, initErr error) {
	t.Helper()
	oldOpen, oldInit := postgresOpener, initWarehouse
	postgresOpener = func(config.Config) (*sql.DB, error) { return db, nil }
	initWarehouse = func(context.Context, storage.Warehouse) error { return initErr }
	t.Cleanup(func() {
		postgresOpener, initWarehouse = oldOpen, oldInit
	})
}

// TestInitPostgres_InvalidHost expects ping failure.
func TestInitPostgres_InvalidHost(t *testing.T) {
	db, err := InitPostgres(testConfig())
	if err == nil {
		_ = db.Close()
		t.Fatalf("expected error connecting to invalid DB")
	}
}

// TestInitializeApp_DBFailure ensures InitializeApp returns error when DB cannot connect.
func TestInitializeApp_DBFailure(t *testing.T) {
	old := config.AppConfig
	t.Cleanup(func() { config.AppConfig = old })
	config.AppConfig = testConfig()

	r, cleanup, err := InitializeApp()
	if err == nil || r != nil || cleanup != nil {
		if cleanup != nil {
			cleanup()
		}
		t.Fatalf("expected error from InitializeApp with invalid DB config")
	}
}

func TestBootstrap_Failures(t *testing.T) {
	t.Run("migration error closes db", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("sqlmock new: %v", err)
		}
		mock.ExpectClose()
		stubSeams(t, db, errors.New("goose failed"))

		if _, err := Bootstrap(context.Background(), testConfig()); err == nil {
			t.Fatalf("expected error")
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Fatalf("unmet expectations: %v", err)
		}
	})

	t.Run("bad provider closes db", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("sqlmock new: %v", err)
		}
		mock.ExpectClose()
		stubSeams(t, db, nil)

		cfg := testConfig()
		cfg.Provider.Name = "bloomberg"
		if _, err := Bootstrap(context.Background(), cfg); err == nil {
			t.Fatalf("expected error")
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Fatalf("unmet expectations: %v", err)
		}
	})
}

func TestInitializeApp_HappyPath(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	mock.ExpectPing()
	mock.ExpectQuery(`SELECT stock_key, symbol`).
		WillReturnRows(sqlmock.NewRows([]string{"stock_key", "symbol", "company_name", "sector", "industry", "created_at"}))
	mock.ExpectClose()
	stubSeams(t, db, nil)

	old := config.AppConfig
	t.Cleanup(func() { config.AppConfig = old })
	config.AppConfig = testConfig()

	router, cleanup, err := InitializeApp()
	if err != nil || router == nil || cleanup == nil {
		t.Fatalf("InitializeApp failed: err=%v", err)
	}

	for _, tc := range []struct {
		path string
		want int
	}{
		{"/healthz", http.StatusOK},
		{"/readyz", http.StatusOK},
		{"/api/v1/symbols", http.StatusOK},
	} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tc.path, nil))
		if w.Code != tc.want {
			t.Fatalf("%s status=%d body=%s", tc.path, w.Code, w.Body.String())
		}
	}

	cleanup()

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
