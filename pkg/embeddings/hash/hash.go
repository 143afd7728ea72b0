// Package hash is a local, deterministic embedding model based on feature
// hashing. It needs no network and no model files, which makes it the
// offline default and the model used in tests.
//
// An Embedder reuses an internal accumulator between calls and is not safe
// for concurrent use. Share it through a worker.Pool.
package hash

import (
	"context"
	"math"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"

	"github.com/GKaszewski/k-core/pkg/embeddings"
)

// DefaultDimensions matches the size of common small sentence models.
const DefaultDimensions = 384

// Embedder maps words and character trigrams into a fixed number of signed
// buckets and L2-normalises the result.
type Embedder struct {
	dims int
	acc  []float64
}

var _ embeddings.Embedder = (*Embedder)(nil)

// New creates an Embedder producing vectors of the given size.
func New(dimensions int) *Embedder {
	if dimensions <= 0 {
		dimensions = DefaultDimensions
	}
	return &Embedder{dims: dimensions, acc: make([]float64, dimensions)}
}

// Dimensions returns the vector size.
func (e *Embedder) Dimensions() int {
	return e.dims
}

// Embed hashes text into a unit vector.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, embeddings.ErrEmptyText
	}

	clear(e.acc)
	for _, tok := range tokenize(text) {
		e.add("w:"+tok, 1)
		padded := "^" + tok + "$"
		runes := []rune(padded)
		for i := 0; i+3 <= len(runes); i++ {
			e.add("t:"+string(runes[i:i+3]), 0.5)
		}
	}

	var norm float64
	for _, v := range e.acc {
		norm += v * v
	}
	out := make([]float32, e.dims)
	if norm == 0 {
		return out, nil
	}
	norm = math.Sqrt(norm)
	for i, v := range e.acc {
		out[i] = float32(v / norm)
	}
	return out, nil
}

func (e *Embedder) add(feature string, weight float64) {
	h := xxhash.Sum64String(feature)
	idx := int(h % uint64(e.dims)) //nolint:gosec // dims is positive
	if h&(1<<63) != 0 {
		weight = -weight
	}
	e.acc[idx] += weight
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Close is a no-op.
func (e *Embedder) Close() error {
	return nil
}
