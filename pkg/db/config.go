// Package db selects a database backend from a connection descriptor and
// exposes it behind a single pool handle.
package db

import "time"

const (
	DefaultURL            = "sqlite::memory:"
	DefaultMaxConnections = 5
	DefaultMinConnections = 1
	DefaultAcquireTimeout = 30 * time.Second
)

// Config describes a database connection. It is passed by value and never
// mutated after construction.
type Config struct {
	// URL is the connection string. postgres:// and postgresql:// select
	// Postgres when it is enabled; anything else falls back to SQLite.
	URL string

	MaxConnections uint32
	MinConnections uint32

	// AcquireTimeout bounds the initial connect and every connection
	// acquisition. Zero means DefaultAcquireTimeout.
	AcquireTimeout time.Duration

	// StrictScheme rejects URLs that are neither a Postgres nor a SQLite form
	// instead of falling back to SQLite.
	StrictScheme bool
}

// NewDefaultConfig returns the in-memory SQLite descriptor with the default
// pool sizes.
func NewDefaultConfig() Config {
	return NewConfig(DefaultURL)
}

// NewConfig returns a descriptor for url with the default pool sizes.
func NewConfig(url string) Config {
	return Config{
		URL:            url,
		MaxConnections: DefaultMaxConnections,
		MinConnections: DefaultMinConnections,
		AcquireTimeout: DefaultAcquireTimeout,
	}
}

// InMemoryConfig returns the in-memory SQLite descriptor. An in-memory
// database lives inside a single connection, so the pool is pinned to one.
func InMemoryConfig() Config {
	return Config{
		URL:            DefaultURL,
		MaxConnections: 1,
		MinConnections: 1,
		AcquireTimeout: DefaultAcquireTimeout,
	}
}
