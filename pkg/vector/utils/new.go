// Package vectorutils picks a vector Driver by provider name.
package vectorutils

import (
	"fmt"
	"log/slog"

	"github.com/GKaszewski/k-core/pkg/apperr"
	"github.com/GKaszewski/k-core/pkg/vector"
	"github.com/GKaszewski/k-core/pkg/vector/inmemory"
	"github.com/GKaszewski/k-core/pkg/vector/qdrant"
)

const (
	ProviderInMemory = "inmemory"
	ProviderQdrant   = "qdrant"
)

type NewVectorDriverOpts struct {
	ProviderType string
	TargetURL    string
	APIKey       string
	Collection   string
	Logger       *slog.Logger
}

func NewVectorDriver(o *NewVectorDriverOpts) (vector.Driver, error) {
	switch o.ProviderType {
	case ProviderInMemory, "":
		return inmemory.NewDriver(), nil
	case ProviderQdrant:
		d, err := qdrant.NewDriver(qdrant.Config{
			URL:        o.TargetURL,
			APIKey:     o.APIKey,
			Collection: o.Collection,
		}, o.Logger)
		if err != nil {
			return nil, apperr.Backend(ProviderQdrant, "vector.connect", err)
		}
		return d, nil
	default:
		return nil, apperr.Configuration(fmt.Sprintf("unsupported vector store provider: %s", o.ProviderType))
	}
}
