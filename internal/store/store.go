// Package store is the sqlite persistence layer for users, sessions and todos.
package store

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// Driver names accepted by OpenWithDriver.
const (
	DriverPure = "sqlite"  // modernc.org/sqlite, no cgo
	DriverCgo  = "sqlite3" // github.com/mattn/go-sqlite3
)

// Sentinel errors returned by store operations.
var (
	ErrNotFound      = errors.New("not found")
	ErrUsernameTaken = errors.New("username already exists")
)

// Store wraps the database connection.
type Store struct {
	conn *sql.DB
	path string
}

// Open opens the database at dbPath with the pure-Go driver.
func Open(dbPath string) (*Store, error) {
	return OpenWithDriver(DriverPure, dbPath)
}

// OpenWithDriver opens the database with the named driver and runs any
// pending migrations. The file and its directory are created if missing.
func OpenWithDriver(driver, dbPath string) (*Store, error) {
	if driver == "" {
		driver = DriverPure
	}
	if driver != DriverPure && driver != DriverCgo {
		return nil, fmt.Errorf("unknown sqlite driver %q", driver)
	}

	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	conn, err := sql.Open(driver, dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// sqlite allows one writer; a single connection also keeps :memory: shared.
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	conn.Exec("PRAGMA synchronous=NORMAL")
	conn.Exec("PRAGMA foreign_keys=ON")

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	s := &Store{conn: conn, path: dbPath}

	if _, err := s.RunMigrations(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return s, nil
}

// Ping checks the database connection is alive.
func (s *Store) Ping() error {
	return s.conn.Ping()
}

// Close checkpoints the WAL and closes the database connection.
func (s *Store) Close() error {
	s.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return s.conn.Close()
}

// RunMigrations runs any pending database migrations and returns how many ran.
func (s *Store) RunMigrations() (int, error) {
	if _, err := s.conn.Exec(`CREATE TABLE IF NOT EXISTS schema_info (key TEXT PRIMARY KEY, value TEXT NOT NULL)`); err != nil {
		return 0, fmt.Errorf("create schema_info: %w", err)
	}

	currentVersion := s.SchemaVersion()
	if currentVersion >= SchemaVersion {
		return 0, nil
	}

	run := 0
	for _, m := range Migrations {
		if m.Version <= currentVersion {
			continue
		}
		if _, err := s.conn.Exec(m.SQL); err != nil {
			return run, fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}
		if err := s.setSchemaVersion(m.Version); err != nil {
			return run, fmt.Errorf("set version %d: %w", m.Version, err)
		}
		run++
	}

	if err := s.setSchemaVersion(SchemaVersion); err != nil {
		return run, err
	}
	return run, nil
}

// SchemaVersion returns the recorded schema version, or 0 for a fresh database.
func (s *Store) SchemaVersion() int {
	var version string
	if err := s.conn.QueryRow("SELECT value FROM schema_info WHERE key = 'version'").Scan(&version); err != nil {
		return 0
	}
	var v int
	fmt.Sscanf(version, "%d", &v)
	return v
}

func (s *Store) setSchemaVersion(version int) error {
	_, err := s.conn.Exec(`INSERT OR REPLACE INTO schema_info (key, value) VALUES ('version', ?)`,
		fmt.Sprintf("%d", version))
	return err
}

// generateID creates a prefixed ID with 16 random hex chars.
func generateID(prefix string) (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return prefix + hex.EncodeToString(b), nil
}
