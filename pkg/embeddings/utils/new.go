// Package embeddingutils is the embeddings utility package
package embeddingutils

import (
	"fmt"
	"log/slog"

	"github.com/GKaszewski/k-core/pkg/apperr"
	"github.com/GKaszewski/k-core/pkg/embeddings"
	"github.com/GKaszewski/k-core/pkg/embeddings/hash"
	"github.com/GKaszewski/k-core/pkg/embeddings/ollama"
	"github.com/GKaszewski/k-core/pkg/embeddings/worker"
)

const (
	ProviderHash   = "hash"
	ProviderOllama = "ollama"
)

type NewEmbedderOpts struct {
	ProviderType string
	TargetURL    string
	Model        string
	Dimensions   int

	// Workers is the number of model instances. Zero means one shared
	// instance.
	Workers uint

	Logger *slog.Logger
}

// NewEmbedder builds the configured provider behind a worker pool.
func NewEmbedder(o *NewEmbedderOpts) (*worker.Pool, error) {
	factory, err := providerFactory(o)
	if err != nil {
		return nil, err
	}

	pool, err := worker.NewPool(&worker.Config{
		Factory: factory,
		Size:    o.Workers,
		Logger:  o.Logger,
	})
	if err != nil {
		return nil, apperr.Backend(o.ProviderType, "embeddings.init", err)
	}
	return pool, nil
}

func providerFactory(o *NewEmbedderOpts) (worker.Factory, error) {
	switch o.ProviderType {
	case ProviderHash, "":
		return func() (embeddings.Embedder, error) {
			return hash.New(o.Dimensions), nil
		}, nil
	case ProviderOllama:
		return func() (embeddings.Embedder, error) {
			return ollama.NewEmbedder(ollama.EmbedderConfig{
				BaseURL:    o.TargetURL,
				Model:      o.Model,
				Dimensions: o.Dimensions,
			})
		}, nil
	default:
		return nil, apperr.Configuration(fmt.Sprintf("unsupported embedding provider: %s", o.ProviderType))
	}
}
