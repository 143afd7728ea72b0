// Package api is the HTTP composition root: it wires the capability handles
// into a fiber app.
package api

import (
	"time"

	brokerutils "github.com/GKaszewski/k-core/pkg/broker/utils"
	"github.com/GKaszewski/k-core/pkg/db"
	"github.com/GKaszewski/k-core/pkg/embeddings"
	"github.com/GKaszewski/k-core/pkg/session"
	"github.com/GKaszewski/k-core/pkg/vector"
)

const (
	// DefaultSessionExpiry is the session inactivity timeout.
	DefaultSessionExpiry = 7 * 24 * time.Hour

	// DefaultEventsTopic receives the events the server emits.
	DefaultEventsTopic = "kcore.events"

	defaultSearchLimit = 5
	maxSearchLimit     = 100
)

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8080")
	ListenAddr string

	Server ServerConfig

	Session SessionConfig

	// EventsTopic is where session and document events are published.
	// Empty means DefaultEventsTopic.
	EventsTopic string
}

// ServerConfig holds the cross-cutting middleware settings.
type ServerConfig struct {
	// CORSOrigins lists the origins allowed to make credentialed
	// cross-origin requests. Entries that do not parse are skipped.
	CORSOrigins []string
}

// SessionConfig configures the HTTP session cookie.
type SessionConfig struct {
	// Expiry is the inactivity timeout. Zero means DefaultSessionExpiry.
	Expiry time.Duration

	CookieSecure bool
}

// Deps are the capability handles the server routes to. Nil handles turn
// their routes into 503 responses.
type Deps struct {
	Pool     *db.Pool
	Sessions session.Store
	Broker   *brokerutils.Client
	Embedder embeddings.Embedder
	Vectors  vector.Driver
}
