package embeddings

import "errors"

var (
	// ErrEmbedding is returned when embedding generation fails.
	ErrEmbedding = errors.New("embedding failed")

	// ErrEmptyText is returned when there is nothing to embed.
	ErrEmptyText = errors.New("text must not be empty")

	// ErrPoolClosed is returned for jobs submitted to a closed worker pool.
	ErrPoolClosed = errors.New("embedding pool closed")
)
