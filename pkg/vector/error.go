package vector

import "errors"

var (
	// ErrCollectionMissing is returned when the collection was never created.
	ErrCollectionMissing = errors.New("vector collection does not exist")

	// ErrDimensionMismatch is returned when a vector does not match the
	// collection's size.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrConnection is returned when the vector store connection fails.
	ErrConnection = errors.New("vector store connection failed")
)
