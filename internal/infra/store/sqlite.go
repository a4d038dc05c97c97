package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/rs/zerolog/log"
)

const (
	// CurrentSchemaVersion is the current database schema version.
	CurrentSchemaVersion = "1"

	// DefaultFavoritesPath is the default path for the durable favorites database.
	DefaultFavoritesPath = "data/favorites.db"

	// DefaultCachePath is the default path for the session response cache.
	DefaultCachePath = "data/session-cache.db"
)

// Options configures a SQLite-backed store.
type Options struct {
	// Path of the database file. ":memory:" keeps everything in RAM.
	Path string

	// Session purges every entry on Open, so the contents live only as long
	// as the process.
	Session bool

	// QuotaBytes caps the summed size of all values. Zero disables the cap.
	QuotaBytes int64
}

// DB is a SQLite key-value store.
type DB struct {
	mu   sync.RWMutex
	db   *sql.DB
	opts Options
}

// NewDB creates a new store instance. Call Open before use.
func NewDB(opts Options) *DB {
	if opts.Path == "" {
		opts.Path = DefaultFavoritesPath
	}
	return &DB{opts: opts}
}

// Open opens the database and initializes the schema.
func (d *DB) Open() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	dsn := d.opts.Path
	if dsn != ":memory:" {
		dir := filepath.Dir(d.opts.Path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create store directory: %w", err)
		}
		dsn += "?_journal=WAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return fmt.Errorf("failed to open store database: %w", err)
	}

	// SQLite only supports one writer; a single connection also keeps
	// ":memory:" databases from splitting across connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	d.db = db

	if err := d.initSchema(); err != nil {
		d.db.Close()
		d.db = nil
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	if d.opts.Session {
		if _, err := d.db.Exec("DELETE FROM kv"); err != nil {
			d.db.Close()
			d.db = nil
			return fmt.Errorf("failed to purge session store: %w", err)
		}
	}

	log.Info().
		Str("path", d.opts.Path).
		Bool("session", d.opts.Session).
		Int64("quota_bytes", d.opts.QuotaBytes).
		Msg("Store database opened")
	return nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.db != nil {
		err := d.db.Close()
		d.db = nil
		return err
	}
	return nil
}

// initSchema initializes the database schema.
func (d *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		size INTEGER NOT NULL,
		updated_at TEXT DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS store_meta (
		key TEXT PRIMARY KEY,
		value TEXT,
		updated_at TEXT DEFAULT CURRENT_TIMESTAMP
	);
	`
	if _, err := d.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	currentVersion := d.getSchemaVersion()
	if currentVersion != "" && currentVersion != CurrentSchemaVersion {
		log.Info().
			Str("current", currentVersion).
			Str("target", CurrentSchemaVersion).
			Msg("Migrating store schema")
	}
	if currentVersion != CurrentSchemaVersion {
		return d.setMeta("schema_version", CurrentSchemaVersion)
	}
	return nil
}

// getSchemaVersion returns the current schema version.
func (d *DB) getSchemaVersion() string {
	var version string
	err := d.db.QueryRow("SELECT value FROM store_meta WHERE key = 'schema_version'").Scan(&version)
	if err != nil {
		return ""
	}
	return version
}

// setMeta sets a metadata value.
func (d *DB) setMeta(key, value string) error {
	now := time.Now().Format(time.RFC3339)
	_, err := d.db.Exec(`
		INSERT INTO store_meta (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = ?, updated_at = ?
	`, key, value, now, value, now)
	return err
}

// Get returns the value stored under key.
func (d *DB) Get(key string) ([]byte, bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.db == nil {
		return nil, false, ErrNotOpen
	}

	var value []byte
	err := d.db.QueryRow("SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %q: %w", key, err)
	}
	return value, true, nil
}

// Set stores value under key. Returns ErrQuotaExceeded when the write would
// exceed the configured quota; the previous value is left untouched.
func (d *DB) Set(key string, value []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.db == nil {
		return ErrNotOpen
	}

	if d.opts.QuotaBytes > 0 {
		var others int64
		err := d.db.QueryRow("SELECT COALESCE(SUM(size), 0) FROM kv WHERE key != ?", key).Scan(&others)
		if err != nil {
			return fmt.Errorf("quota check: %w", err)
		}
		if others+int64(len(value)) > d.opts.QuotaBytes {
			return ErrQuotaExceeded
		}
	}

	now := time.Now().Format(time.RFC3339)
	_, err := d.db.Exec(`
		INSERT INTO kv (key, value, size, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = ?, size = ?, updated_at = ?
	`, key, value, len(value), now, value, len(value), now)
	if err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (d *DB) Delete(key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.db == nil {
		return ErrNotOpen
	}
	if _, err := d.db.Exec("DELETE FROM kv WHERE key = ?", key); err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	return nil
}

// Keys returns every key starting with prefix, oldest first.
func (d *DB) Keys(prefix string) ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.db == nil {
		return nil, ErrNotOpen
	}

	rows, err := d.db.Query("SELECT key FROM kv WHERE substr(key, 1, ?) = ? ORDER BY rowid", len(prefix), prefix)
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys, rows.Err()
}

// GetStats returns store statistics.
func (d *DB) GetStats() (*Stats, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.db == nil {
		return nil, ErrNotOpen
	}

	stats := &Stats{QuotaBytes: d.opts.QuotaBytes}
	err := d.db.QueryRow("SELECT COUNT(*), COALESCE(SUM(size), 0) FROM kv").Scan(&stats.Entries, &stats.Bytes)
	if err != nil {
		return nil, err
	}
	return stats, nil
}
