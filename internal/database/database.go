// Package database opens the local SQLite database shared by the audit log
// and the record snapshot store.
package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	_ "modernc.org/sqlite"
)

const (
	appDir = "fdu"
	dbFile = "fdu.db"

	// DisableEnv turns off every write to the local database when set to
	// a true value ("1", "true").
	DisableEnv = "FDU_DISABLE_AUDIT"

	// TimeLayout stores timestamps with a fixed-width fraction so that
	// text order matches time order.
	TimeLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

var pathOverride string

// SetPath overrides the default database path. Intended for testing.
func SetPath(p string) { pathOverride = p }

// ResetPath clears the path override. Intended for testing.
func ResetPath() { pathOverride = "" }

// DefaultPath returns the default database path.
func DefaultPath() (string, error) {
	if pathOverride != "" {
		return pathOverride, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("database: unable to determine config directory: %w", err)
	}
	return filepath.Join(base, appDir, dbFile), nil
}

// Disabled reports whether DisableEnv asks for no local persistence.
func Disabled() bool {
	v, err := strconv.ParseBool(os.Getenv(DisableEnv))
	return err == nil && v
}

// Open opens a SQLite database at the provided path.
func Open(path string) (*sql.DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("database: failed to create directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("database: failed to open database: %w", err)
	}
	return db, nil
}
