package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hpungsan/snag/internal/config"
	_ "modernc.org/sqlite"
)

// CurrentSchemaVersion is the latest schema version.
// Bump this when adding migrations.
const CurrentSchemaVersion = 2

// Init initializes the SQLite database at baseDir/snag.db.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.snag.
func Init(baseDir string) (*sql.DB, error) {
	// Create base directory with restricted permissions
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	_ = os.Chmod(baseDir, 0700)

	exportsDir := filepath.Join(baseDir, "exports")
	if err := os.MkdirAll(exportsDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create exports directory: %w", err)
	}
	_ = os.Chmod(exportsDir, 0700)

	// Pragmas in the connection string apply to every pooled connection
	dbPath := filepath.Join(baseDir, "snag.db")
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := verifyWALMode(db); err != nil {
		db.Close()
		return nil, err
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	_ = os.Chmod(dbPath, 0600)

	return db, nil
}

// ConfigurePool applies connection pool settings from config.
// Only sets limits if explicitly configured (non-zero values).
func ConfigurePool(db *sql.DB, cfg *config.Config) {
	if cfg == nil {
		return
	}
	if cfg.DBMaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	}
	if cfg.DBMaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	}
}

// migrate applies schema migrations based on user_version.
func migrate(db *sql.DB) error {
	version, err := GetUserVersion(db)
	if err != nil {
		return err
	}

	// Migration 0 -> 1: reports table
	if version < 1 {
		schema := `
		CREATE TABLE IF NOT EXISTS reports (
		  id             TEXT PRIMARY KEY,
		  title          TEXT NOT NULL,
		  body           TEXT NOT NULL,
		  size_bytes     INTEGER NOT NULL,
		  context_hash   TEXT NOT NULL,
		  source_url     TEXT,
		  labels_json    TEXT,
		  milestone      INTEGER,
		  sections_json  TEXT,
		  truncated      INTEGER NOT NULL DEFAULT 0,
		  screenshot_url TEXT,
		  created_at     INTEGER NOT NULL,
		  updated_at     INTEGER NOT NULL,
		  deleted_at     INTEGER
		);

		CREATE INDEX IF NOT EXISTS idx_reports_created
		ON reports(created_at DESC)
		WHERE deleted_at IS NULL;

		CREATE INDEX IF NOT EXISTS idx_reports_context_hash
		ON reports(context_hash, created_at)
		WHERE deleted_at IS NULL;
		`
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("migration 1 failed: %w", err)
		}
		if err := SetUserVersion(db, 1); err != nil {
			return err
		}
	}

	// Migration 1 -> 2: full-text index over title and body
	if version < 2 {
		schema := `
		CREATE VIRTUAL TABLE IF NOT EXISTS reports_fts
		USING fts5(title, body, content='reports', content_rowid='rowid');

		CREATE TRIGGER IF NOT EXISTS reports_fts_ai AFTER INSERT ON reports BEGIN
		  INSERT INTO reports_fts(rowid, title, body) VALUES (new.rowid, new.title, new.body);
		END;

		CREATE TRIGGER IF NOT EXISTS reports_fts_ad AFTER DELETE ON reports BEGIN
		  INSERT INTO reports_fts(reports_fts, rowid, title, body) VALUES ('delete', old.rowid, old.title, old.body);
		END;

		CREATE TRIGGER IF NOT EXISTS reports_fts_au AFTER UPDATE OF title, body ON reports BEGIN
		  INSERT INTO reports_fts(reports_fts, rowid, title, body) VALUES ('delete', old.rowid, old.title, old.body);
		  INSERT INTO reports_fts(rowid, title, body) VALUES (new.rowid, new.title, new.body);
		END;

		INSERT INTO reports_fts(reports_fts) VALUES ('rebuild');
		`
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("migration 2 failed: %w", err)
		}
		if err := SetUserVersion(db, 2); err != nil {
			return err
		}
	}

	return nil
}

// verifyWALMode checks that WAL mode is active (set via connection string).
func verifyWALMode(db *sql.DB) error {
	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode;").Scan(&journalMode); err != nil {
		return fmt.Errorf("failed to verify journal mode: %w", err)
	}
	if journalMode != "wal" {
		return fmt.Errorf("expected WAL mode, got %s", journalMode)
	}
	return nil
}

// GetUserVersion returns the current schema version (user_version pragma).
func GetUserVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get user_version: %w", err)
	}
	return version, nil
}

// SetUserVersion sets the schema version (user_version pragma).
func SetUserVersion(db *sql.DB, version int) error {
	_, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", version))
	if err != nil {
		return fmt.Errorf("failed to set user_version: %w", err)
	}
	return nil
}
