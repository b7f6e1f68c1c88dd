package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"pazzo-admin/internal/model"
)

// sqlStore holds the queries shared by the SQLite and MySQL stores. Both
// drivers accept ? placeholders; only DDL and upserts differ.
type sqlStore struct {
	db          *sql.DB
	mu          sync.RWMutex
	log         *zap.Logger
	upsertAdmin string
}

const recordColumns = `id, collection, name, price, description, image_data, image_type, created_at, updated_at`

func scanRecord(row interface{ Scan(...interface{}) error }) (*model.Record, error) {
	var rec model.Record
	var imageType sql.NullString
	if err := row.Scan(
		&rec.ID,
		&rec.Collection,
		&rec.Name,
		&rec.Price,
		&rec.Description,
		&rec.ImageData,
		&imageType,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	); err != nil {
		return nil, err
	}
	rec.ImageType = imageType.String
	return &rec, nil
}

// List returns every record in a collection in insertion order.
func (s *sqlStore) List(ctx context.Context, collection string) ([]model.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM records WHERE collection = ? ORDER BY seq`, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", collection, err)
	}
	defer rows.Close()

	records := make([]model.Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// Get returns one record or ErrNotFound.
func (s *sqlStore) Get(ctx context.Context, collection, id string) (*model.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, err := scanRecord(s.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM records WHERE collection = ? AND id = ?`, collection, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	return rec, nil
}

// Create inserts rec.
func (s *sqlStore) Create(ctx context.Context, rec *model.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO records (`+recordColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Collection, rec.Name, rec.Price, rec.Description,
		rec.ImageData, rec.ImageType, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert record: %w", err)
	}
	return nil
}

// Update replaces the stored fields of rec.
func (s *sqlStore) Update(ctx context.Context, rec *model.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx, `
		UPDATE records SET name = ?, price = ?, description = ?, image_data = ?, image_type = ?, updated_at = ?
		WHERE collection = ? AND id = ?`,
		rec.Name, rec.Price, rec.Description, rec.ImageData, rec.ImageType, rec.UpdatedAt,
		rec.Collection, rec.ID)
	if err != nil {
		return fmt.Errorf("failed to update record: %w", err)
	}
	return expectOne(result)
}

// Delete removes one record.
func (s *sqlStore) Delete(ctx context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE collection = ? AND id = ?`, collection, id)
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	return expectOne(result)
}

func expectOne(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Reset removes every record.
func (s *sqlStore) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx, `DELETE FROM records`)
	if err != nil {
		return fmt.Errorf("failed to reset records: %w", err)
	}
	n, _ := result.RowsAffected()
	s.log.Info("records reset", zap.Int64("deleted", n))
	return nil
}

// Stats returns per-collection counts and revenue.
func (s *sqlStore) Stats(ctx context.Context) ([]model.CollectionStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT collection, COUNT(*), COALESCE(SUM(price), 0)
		FROM records GROUP BY collection ORDER BY collection`)
	if err != nil {
		return nil, fmt.Errorf("failed to query stats: %w", err)
	}
	defer rows.Close()

	var stats []model.CollectionStats
	for rows.Next() {
		var st model.CollectionStats
		if err := rows.Scan(&st.Collection, &st.Count, &st.Revenue); err != nil {
			return nil, fmt.Errorf("failed to scan stats: %w", err)
		}
		stats = append(stats, st)
	}
	return stats, rows.Err()
}

// GetAdmin finds an admin by email.
func (s *sqlStore) GetAdmin(ctx context.Context, email string) (*model.Admin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var admin model.Admin
	err := s.db.QueryRowContext(ctx,
		`SELECT email, password_hash, updated_at FROM admins WHERE email = ?`, email).
		Scan(&admin.Email, &admin.PasswordHash, &admin.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get admin: %w", err)
	}
	return &admin, nil
}

// UpsertAdmin creates or replaces an admin account.
func (s *sqlStore) UpsertAdmin(ctx context.Context, admin *model.Admin) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if admin.UpdatedAt.IsZero() {
		admin.UpdatedAt = time.Now().UTC()
	}
	if _, err := s.db.ExecContext(ctx, s.upsertAdmin, admin.Email, admin.PasswordHash, admin.UpdatedAt); err != nil {
		return fmt.Errorf("failed to upsert admin: %w", err)
	}
	return nil
}

// Ping verifies the database connection.
func (s *sqlStore) Ping() error {
	return s.db.Ping()
}

// Close closes the database connection.
func (s *sqlStore) Close() error {
	return s.db.Close()
}
