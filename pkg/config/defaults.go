package config

import (
	"time"

	"github.com/GKaszewski/k-core/pkg/db"
	"github.com/GKaszewski/k-core/pkg/session"
)

const (
	defaultSessionExpiry = 7 * 24 * time.Hour

	defaultBrokerURL    = "memory://"
	defaultClientName   = "kcore"
	defaultServerListen = ":8080"

	defaultVectorProvider   = "inmemory"
	defaultVectorCollection = "kcore"

	defaultEmbeddingProvider   = "hash"
	defaultEmbeddingTarget     = "http://localhost:11434"
	defaultEmbeddingModel      = "nomic-embed-text"
	defaultEmbeddingDimensions = 384
	defaultEmbeddingWorkers    = 1
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Database: DatabaseConfig{
			URL:            db.DefaultURL,
			MaxConnections: db.DefaultMaxConnections,
			MinConnections: db.DefaultMinConnections,
			AcquireTimeout: db.DefaultAcquireTimeout.String(),
		},
		Session: SessionConfig{
			Table:           session.DefaultTable,
			Expiry:          defaultSessionExpiry.String(),
			CleanupInterval: session.DefaultCleanupInterval.String(),
		},
		Broker: BrokerConfig{
			URL:        defaultBrokerURL,
			ClientName: defaultClientName,
		},
		Vector: VectorConfig{
			Provider:   defaultVectorProvider,
			Collection: defaultVectorCollection,
		},
		Embedding: EmbeddingConfig{
			Provider:   defaultEmbeddingProvider,
			Target:     defaultEmbeddingTarget,
			Model:      defaultEmbeddingModel,
			Dimensions: defaultEmbeddingDimensions,
			Workers:    defaultEmbeddingWorkers,
		},
		Server: ServerConfig{
			Listen: defaultServerListen,
		},
	}
}
