// Package inmemory is a vector Driver kept in process memory. Search is a
// linear cosine scan, which is fine for tests and small development sets.
package inmemory

import (
	"context"
	"fmt"
	"maps"
	"math"
	"slices"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/GKaszewski/k-core/pkg/vector"
)

type point struct {
	vec     []float32
	norm    float64
	payload map[string]any
}

// Driver implements vector.Driver in memory.
type Driver struct {
	mu     sync.RWMutex
	size   uint64
	points map[uuid.UUID]point
}

var _ vector.Driver = (*Driver)(nil)

// NewDriver creates an empty driver. EnsureCollection must be called before
// the first upsert.
func NewDriver() *Driver {
	return &Driver{points: make(map[uuid.UUID]point)}
}

func (d *Driver) EnsureCollection(_ context.Context, size uint64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.size != 0 && d.size != size {
		return fmt.Errorf("%w: collection has size %d, asked for %d", vector.ErrDimensionMismatch, d.size, size)
	}
	d.size = size
	return nil
}

func (d *Driver) Upsert(_ context.Context, id uuid.UUID, vec []float32, payload map[string]any) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.check(vec); err != nil {
		return err
	}
	d.points[id] = point{
		vec:     slices.Clone(vec),
		norm:    norm(vec),
		payload: maps.Clone(payload),
	}
	return nil
}

func (d *Driver) Search(_ context.Context, vec []float32, limit uint64) ([]vector.Result, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if err := d.check(vec); err != nil {
		return nil, err
	}

	qn := norm(vec)
	results := make([]vector.Result, 0, len(d.points))
	for id, p := range d.points {
		results = append(results, vector.Result{
			ID:      id,
			Score:   cosine(vec, qn, p.vec, p.norm),
			Payload: maps.Clone(p.payload),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID.String() < results[j].ID.String()
	})
	if uint64(len(results)) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (d *Driver) Delete(_ context.Context, ids ...uuid.UUID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, id := range ids {
		delete(d.points, id)
	}
	return nil
}

// Len returns the number of stored points.
func (d *Driver) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.points)
}

func (d *Driver) Close() error {
	return nil
}

func (d *Driver) check(vec []float32) error {
	if d.size == 0 {
		return vector.ErrCollectionMissing
	}
	if uint64(len(vec)) != d.size {
		return fmt.Errorf("%w: got %d, want %d", vector.ErrDimensionMismatch, len(vec), d.size)
	}
	return nil
}

func norm(v []float32) float64 {
	var s float64
	for _, x := range v {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s)
}

func cosine(a []float32, an float64, b []float32, bn float64) float32 {
	if an == 0 || bn == 0 {
		return 0
	}
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return float32(s / (an * bn))
}
