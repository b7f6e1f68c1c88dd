package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLStore implements Store using MySQL.
type MySQLStore struct {
	sqlStore
}

// NewMySQLStore opens dsn, verifies the connection and creates the tables.
func NewMySQLStore(ctx context.Context, dsn string, log *zap.Logger) (*MySQLStore, error) {
	if log == nil {
		log = zap.NewNop()
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}
	if err := createMySQLTables(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	log.Info("mysql store initialized")
	return &MySQLStore{sqlStore{
		db:  db,
		log: log,
		upsertAdmin: `
			INSERT INTO admins (email, password_hash, updated_at) VALUES (?, ?, ?)
			ON DUPLICATE KEY UPDATE
				password_hash = VALUES(password_hash),
				updated_at = VALUES(updated_at)`,
	}}, nil
}

// MySQL runs one statement per Exec unless multiStatements is enabled.
func createMySQLTables(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS records (
			seq BIGINT AUTO_INCREMENT PRIMARY KEY,
			id VARCHAR(32) NOT NULL UNIQUE,
			collection VARCHAR(64) NOT NULL,
			name VARCHAR(255) NOT NULL,
			price DOUBLE NOT NULL DEFAULT 0,
			description TEXT NOT NULL,
			image_data LONGBLOB,
			image_type VARCHAR(64),
			created_at DATETIME(6) NOT NULL,
			updated_at DATETIME(6) NOT NULL,
			INDEX idx_records_collection (collection)
		)`,
		`CREATE TABLE IF NOT EXISTS admins (
			email VARCHAR(255) PRIMARY KEY,
			password_hash VARBINARY(255) NOT NULL,
			updated_at DATETIME(6) NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// GetStats returns statistics about the schema.
func (s *MySQLStore) GetStats(ctx context.Context) (map[string]interface{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make(map[string]interface{})

	var count int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM records").Scan(&count); err != nil {
		return nil, err
	}
	stats["total_records"] = count

	var size sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT SUM(data_length + index_length) FROM information_schema.tables
		WHERE table_schema = DATABASE()`).Scan(&size)
	if err == nil && size.Valid {
		stats["db_size_bytes"] = size.Int64
	}

	return stats, nil
}

// Ensure MySQLStore implements Store
var _ Store = (*MySQLStore)(nil)
