package repository

import (
	"context"
	"errors"

	"pazzo-admin/internal/model"
)

// ErrNotFound is returned when a record or admin does not exist.
var ErrNotFound = errors.New("not found")

// RecordRepository defines twin collection data access methods.
type RecordRepository interface {
	// List returns every record in a collection in insertion order.
	List(ctx context.Context, collection string) ([]model.Record, error)

	// Get returns one record or ErrNotFound.
	Get(ctx context.Context, collection, id string) (*model.Record, error)

	// Create inserts rec. ID and timestamps must already be set.
	Create(ctx context.Context, rec *model.Record) error

	// Update replaces the stored fields of rec. Returns ErrNotFound if missing.
	Update(ctx context.Context, rec *model.Record) error

	// Delete removes one record. Returns ErrNotFound if missing.
	Delete(ctx context.Context, collection, id string) error

	// Reset removes every record in every collection.
	Reset(ctx context.Context) error

	// Stats returns per-collection counts and revenue.
	Stats(ctx context.Context) ([]model.CollectionStats, error)

	// GetStats returns storage-level statistics.
	GetStats(ctx context.Context) (map[string]interface{}, error)

	// Close closes the repository connection.
	Close() error
}

// AdminRepository defines admin account data access methods.
type AdminRepository interface {
	// GetAdmin finds an admin by email. Returns ErrNotFound if missing.
	GetAdmin(ctx context.Context, email string) (*model.Admin, error)

	// UpsertAdmin creates or replaces an admin account.
	UpsertAdmin(ctx context.Context, admin *model.Admin) error
}

// Store is a repository backing both collections and admin accounts.
type Store interface {
	RecordRepository
	AdminRepository
}
