// Package session persists HTTP session records through the database
// capability. InfraStore picks the adapter matching the pool's backend.
package session

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DefaultTable is the table session records live in.
const DefaultTable = "kcore_sessions"

// Record is one stored session. The store routes by ID and never looks
// inside Data.
type Record struct {
	ID        string
	Data      []byte
	ExpiresAt time.Time
}

// NewID returns a fresh random session id.
func NewID() string {
	return uuid.NewString()
}

// Expired reports whether the record is expired at now.
func (r *Record) Expired(now time.Time) bool {
	return !r.ExpiresAt.After(now)
}

// Store is the session store capability.
type Store interface {
	// Save inserts or replaces the record with rec.ID.
	Save(ctx context.Context, rec *Record) error

	// Load returns the record with id, or (nil, nil) when it is absent or
	// expired.
	Load(ctx context.Context, id string) (*Record, error)

	// Delete removes the record with id. Deleting an absent id is not an error.
	Delete(ctx context.Context, id string) error

	// Migrate creates the backing schema. It is idempotent.
	Migrate(ctx context.Context) error
}

// Expirer is implemented by stores that can purge expired records in bulk.
type Expirer interface {
	DeleteExpired(ctx context.Context) (int64, error)
}
