// Package vector defines the vector index collaborator: upsert and search
// against a named collection keyed by UUID.
package vector

import (
	"context"

	"github.com/google/uuid"
)

// Result is a search hit.
type Result struct {
	ID uuid.UUID

	// Score is the cosine similarity (higher = more similar).
	Score float32

	Payload map[string]any
}

// Driver handles storage and retrieval of vectors in one collection.
type Driver interface {
	// EnsureCollection creates the collection with the given vector size if
	// it does not exist yet.
	EnsureCollection(ctx context.Context, size uint64) error

	// Upsert stores vec under id, replacing any previous point with that id.
	Upsert(ctx context.Context, id uuid.UUID, vec []float32, payload map[string]any) error

	// Search returns up to limit points closest to vec, best first.
	Search(ctx context.Context, vec []float32, limit uint64) ([]Result, error)

	// Delete removes points by id. Unknown ids are ignored.
	Delete(ctx context.Context, ids ...uuid.UUID) error

	// Close releases any resources held by the driver.
	Close() error
}
