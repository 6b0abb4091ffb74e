// Package store persists the vault catalog. It defines the Store interface
// the update pipeline runs against and provides two backends: PostgREST for
// the hosted deployment and direct Postgres for self-hosted installs.
package store

import (
	"context"
	"time"

	"github.com/caddvault/vault-updater/internal/domain"
)

// Backend names accepted by configuration.
const (
	BackendPostgREST = "postgrest"
	BackendPostgres  = "postgres"
)

const (
	// DefaultTable is the catalog table name.
	DefaultTable = "packages"

	// DefaultTimeout bounds a single store round trip.
	DefaultTimeout = 30 * time.Second
)

// Selection narrows which catalog records a List call returns. The zero
// Selection matches every record.
type Selection struct {
	// IDs restricts the listing to an explicit record set.
	IDs []string

	// UpdatedBefore keeps only records whose last_updated is strictly older.
	// The zero time disables the cutoff.
	UpdatedBefore time.Time

	// RepoHostOnly keeps only records with a GitHub repository link.
	RepoHostOnly bool

	// WithPublication keeps only records with a publication reference.
	WithPublication bool
}

// Store reads and writes catalog records.
type Store interface {
	// List returns records matching sel ordered by id, window [offset,
	// offset+limit). A limit <= 0 disables the window.
	List(ctx context.Context, sel Selection, offset, limit int) ([]domain.PackageRecord, error)

	// Update applies a partial field update to one record, stamping
	// last_updated. Returns domain.ErrNotFound when no record matched id.
	Update(ctx context.Context, id string, set domain.FieldUpdateSet) error

	// Name identifies the backend for logs and statistics.
	Name() string
}
