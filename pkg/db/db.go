package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Register driver
)

// Setting keys seeded into app_settings on a fresh database.
const (
	SettingCurrentLanguage = "current_language"
	SettingAudioCooldown   = "audio_cooldown_seconds"
)

// DB wraps the sql.DB connection.
type DB struct {
	*sql.DB
}

// Init opens the database and runs migrations.
func Init(path string) (*DB, error) {
	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	// WAL lets the admin file fallback read while the guide writes
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=30000;"); err != nil {
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	d := &DB{db}
	// Enforce single connection to avoid SQLITE_BUSY errors during concurrent writes
	db.SetMaxOpenConns(1)

	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	if err := d.seed(); err != nil {
		db.Close()
		return nil, fmt.Errorf("seed failed: %w", err)
	}

	return d, nil
}

// OpenReadOnly opens an existing database without creating or migrating it.
// Used to import POIs straight from the admin server's database file.
func OpenReadOnly(path string) (*DB, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("db file: %w", err)
	}

	db, err := sql.Open("sqlite", "file:"+filepath.ToSlash(path)+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	return &DB{db}, nil
}

// PruneCache removes cache entries older than the specified duration.
func (d *DB) PruneCache(olderThan time.Duration) (int64, error) {
	// Format time compatible with SQLite DEFAULT CURRENT_TIMESTAMP (YYYY-MM-DD HH:MM:SS)
	deadline := time.Now().Add(-olderThan).UTC().Format("2006-01-02 15:04:05")
	res, err := d.Exec("DELETE FROM cache WHERE created_at < ?", deadline)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (d *DB) migrate() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS pois (
			id TEXT PRIMARY KEY,
			latitude REAL NOT NULL,
			longitude REAL NOT NULL,
			radius_meters REAL NOT NULL,
			priority INTEGER NOT NULL DEFAULT 0,
			map_link TEXT NOT NULL DEFAULT '',
			image_url TEXT NOT NULL DEFAULT '',
			audio_url TEXT NOT NULL DEFAULT '',
			is_active INTEGER NOT NULL DEFAULT 1
		);`,
		`CREATE TABLE IF NOT EXISTS poi_translations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			poi_id TEXT NOT NULL,
			lang_code TEXT NOT NULL,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			tts_text TEXT NOT NULL DEFAULT ''
		);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_poi_lang ON poi_translations(poi_id, lang_code);`,
		`CREATE TABLE IF NOT EXISTS playback_states (
			poi_id TEXT PRIMARY KEY,
			last_played_utc INTEGER NOT NULL,
			last_language TEXT NOT NULL DEFAULT '',
			play_count INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS app_settings (
			key TEXT PRIMARY KEY,
			value TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS cache (
			key TEXT PRIMARY KEY,
			value BLOB,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
	}

	for _, q := range queries {
		if _, err := d.Exec(q); err != nil {
			return fmt.Errorf("exec error: %w query: %s", err, q)
		}
	}

	// Migration: databases created by early builds lack is_active
	var colCount int
	err := d.QueryRow("SELECT count(*) FROM pragma_table_info('pois') WHERE name='is_active'").Scan(&colCount)
	if err == nil && colCount == 0 {
		if _, err := d.Exec("ALTER TABLE pois ADD COLUMN is_active INTEGER NOT NULL DEFAULT 1"); err != nil {
			return fmt.Errorf("failed to add is_active column: %w", err)
		}
	}

	return nil
}

// seed writes the default settings into an empty database. Existing values are kept.
func (d *DB) seed() error {
	var poiCount int
	if err := d.QueryRow("SELECT count(*) FROM pois").Scan(&poiCount); err != nil {
		return err
	}
	if poiCount > 0 {
		return nil
	}

	defaults := map[string]string{
		SettingCurrentLanguage: "vi",
		SettingAudioCooldown:   "90",
	}
	for k, v := range defaults {
		if _, err := d.Exec("INSERT OR IGNORE INTO app_settings (key, value) VALUES (?, ?)", k, v); err != nil {
			return fmt.Errorf("seed %s: %w", k, err)
		}
	}
	return nil
}
