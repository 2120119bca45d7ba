package database

import (
	"errors"
	"io/fs"
	"strings"
	"testing"
	"time"

	"crypto-tracker/internal/config"
	"crypto-tracker/internal/models"
)

func TestDSN(t *testing.T) {
	cfg := config.DatabaseConfig{
		Host:     "db",
		Port:     5433,
		User:     "tracker",
		Password: "secret",
		DBName:   "crypto_tracker",
		SSLMode:  "require",
	}

	want := "host=db port=5433 user=tracker password=secret dbname=crypto_tracker sslmode=require"
	if got := DSN(cfg); got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected up and down migration, got %d files", len(entries))
	}

	up, err := fs.ReadFile(migrationsFS, "migrations/000001_init.up.sql")
	if err != nil {
		t.Fatal(err)
	}
	for _, table := range []string{"analysis_runs", "watchlist_matches"} {
		if !strings.Contains(string(up), table) {
			t.Errorf("up migration does not create %s", table)
		}
	}
}

func TestWithoutConnection(t *testing.T) {
	DB = nil

	if err := SaveRun(Run{ID: "r"}); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("SaveRun() error = %v", err)
	}
	if err := (Emitter{}).EmitEvent(models.MatchEvent{}); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("EmitEvent() error = %v", err)
	}
	if _, err := GetMatches("r"); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("GetMatches() error = %v", err)
	}
	if err := RunMigrations(config.DatabaseConfig{}); err == nil {
		t.Error("RunMigrations() without a connection should fail")
	}
	if err := Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestNullHelpers(t *testing.T) {
	if nullTime(time.Time{}).Valid {
		t.Error("zero time should be NULL")
	}
	if !nullTime(time.Now()).Valid {
		t.Error("non-zero time should be valid")
	}
	if nullString("").Valid || !nullString("x").Valid {
		t.Error("unexpected nullString validity")
	}
}
