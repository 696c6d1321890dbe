// Package testdb provides utilities for tests that run against a real
// PostgreSQL database.
//
// Tests using it are skipped unless MORNO_TEST_DATABASE_URL is set. In CI the
// variable is required and a missing URL fails the test instead.
package testdb

import (
	"context"
	"database/sql"
	"errors"
	"net/url"
	"os"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the pgx database/sql driver
)

// EnvDatabaseURL names the variable holding the test database URL.
const EnvDatabaseURL = "MORNO_TEST_DATABASE_URL"

// ciEnvVars are set by the CI systems the project runs on.
var ciEnvVars = []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI"}

// IsCI reports whether the tests run in a CI environment.
func IsCI() bool {
	for _, name := range ciEnvVars {
		if os.Getenv(name) != "" {
			return true
		}
	}
	return false
}

// DatabaseURL returns the test database URL, skipping the test when none is
// configured outside CI.
func DatabaseURL(t *testing.T) string {
	t.Helper()
	dbURL := os.Getenv(EnvDatabaseURL)
	if dbURL == "" {
		if IsCI() {
			t.Fatalf("%s must be set in CI", EnvDatabaseURL)
		}
		t.Skipf("%s not set", EnvDatabaseURL)
	}
	return dbURL
}

// Open connects to the test database and closes it when the test ends.
func Open(t *testing.T) *sql.DB {
	t.Helper()
	dbURL := DatabaseURL(t)

	db, err := sql.Open("pgx", dbURL)
	if err != nil {
		t.Fatalf("failed to open test database %s: %v", MaskDatabaseURL(dbURL), err)
	}
	t.Cleanup(func() { _ = db.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		t.Fatalf("failed to reach test database %s: %v", MaskDatabaseURL(dbURL), err)
	}
	return db
}

// WithTx runs fn inside a transaction that is always rolled back, so tests
// can write freely without leaving rows behind.
func WithTx(t *testing.T, db *sql.DB, fn func(t *testing.T, tx *sql.Tx)) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("failed to begin transaction: %v", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			t.Logf("failed to roll back test transaction: %v", err)
		}
	}()

	fn(t, tx)
}

// MaskDatabaseURL hides the password of a database URL for logging.
func MaskDatabaseURL(dbURL string) string {
	u, err := url.Parse(dbURL)
	if err != nil {
		return "<unparseable database url>"
	}
	return u.Redacted()
}
