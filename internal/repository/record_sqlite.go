package repository

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	_ "modernc.org/sqlite" // Pure Go SQLite driver - no CGO required
)

// SQLiteStore implements Store using SQLite.
// Thread-safe with WAL mode for concurrent reads.
type SQLiteStore struct {
	sqlStore
}

// NewSQLiteStore opens the twin database at dbPath (e.g. "./data/twin.db").
func NewSQLiteStore(dbPath string, log *zap.Logger) (*SQLiteStore, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %w", err)
	}

	// SQLite only supports 1 writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := createSQLiteTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	log.Info("sqlite store initialized", zap.String("path", dbPath))
	return &SQLiteStore{sqlStore{
		db:  db,
		log: log,
		upsertAdmin: `
			INSERT INTO admins (email, password_hash, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(email) DO UPDATE SET
				password_hash = excluded.password_hash,
				updated_at = excluded.updated_at`,
	}}, nil
}

func createSQLiteTables(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS records (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		collection TEXT NOT NULL,
		name TEXT NOT NULL,
		price REAL NOT NULL DEFAULT 0,
		description TEXT NOT NULL DEFAULT '',
		image_data BLOB,
		image_type TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_records_collection ON records(collection);
	CREATE TABLE IF NOT EXISTS admins (
		email TEXT PRIMARY KEY,
		password_hash BLOB NOT NULL,
		updated_at DATETIME NOT NULL
	);
	`
	_, err := db.Exec(query)
	return err
}

// GetStats returns statistics about the database file.
func (s *SQLiteStore) GetStats(ctx context.Context) (map[string]interface{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make(map[string]interface{})

	var count int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM records").Scan(&count); err != nil {
		return nil, err
	}
	stats["total_records"] = count

	// Database file size (approximate from page count)
	var pageCount, pageSize int64
	_ = s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount)
	_ = s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
	stats["db_size_bytes"] = pageCount * pageSize

	return stats, nil
}

// Ensure SQLiteStore implements Store
var _ Store = (*SQLiteStore)(nil)
