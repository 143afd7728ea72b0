// Package handles opens every capability handle described by a Config and
// closes them in reverse order.
package handles

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/GKaszewski/k-core/api"
	brokerutils "github.com/GKaszewski/k-core/pkg/broker/utils"
	"github.com/GKaszewski/k-core/pkg/config"
	"github.com/GKaszewski/k-core/pkg/db"
	embeddingutils "github.com/GKaszewski/k-core/pkg/embeddings/utils"
	"github.com/GKaszewski/k-core/pkg/embeddings/worker"
	"github.com/GKaszewski/k-core/pkg/logger"
	"github.com/GKaszewski/k-core/pkg/session"
	"github.com/GKaszewski/k-core/pkg/vector"
	vectorutils "github.com/GKaszewski/k-core/pkg/vector/utils"
)

// Handles is the set of open capability handles.
type Handles struct {
	Pool     *db.Pool
	Sessions *session.InfraStore
	Broker   *brokerutils.Client
	Embedder *worker.Pool
	Vectors  vector.Driver

	closers []func() error
}

// OpenDatabase connects the pool and builds the session store over it.
func OpenDatabase(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Handles, error) {
	if log == nil {
		log = logger.Nop()
	}
	h := &Handles{}

	descriptor, err := cfg.Database.Descriptor()
	if err != nil {
		return nil, err
	}
	h.Pool, err = db.Connect(ctx, descriptor, db.WithLogger(log))
	if err != nil {
		return nil, fmt.Errorf("connecting database: %w", err)
	}
	h.closers = append(h.closers, h.Pool.Close)

	h.Sessions = session.NewInfraStore(h.Pool,
		session.WithTable(cfg.Session.Table),
		session.WithLogger(log),
	)

	return h, nil
}

// Open connects every capability. On failure, whatever was opened is closed.
func Open(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Handles, error) {
	if log == nil {
		log = logger.Nop()
	}

	h, err := OpenDatabase(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	h.Broker, err = brokerutils.NewBroker(ctx, &brokerutils.NewBrokerOpts{
		URL:        cfg.Broker.URL,
		ClientName: cfg.Broker.ClientName,
		GroupID:    cfg.Broker.GroupID,
		Logger:     log,
	})
	if err != nil {
		return nil, h.abort(fmt.Errorf("connecting broker: %w", err))
	}
	h.closers = append(h.closers, h.Broker.Close)

	h.Embedder, err = embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
		ProviderType: cfg.Embedding.Provider,
		TargetURL:    cfg.Embedding.Target,
		Model:        cfg.Embedding.Model,
		Dimensions:   int(cfg.Embedding.Dimensions), //nolint:gosec // bounded by config parsing
		Workers:      cfg.Embedding.Workers,
		Logger:       log,
	})
	if err != nil {
		return nil, h.abort(fmt.Errorf("starting embedder: %w", err))
	}
	h.closers = append(h.closers, h.Embedder.Close)

	h.Vectors, err = vectorutils.NewVectorDriver(&vectorutils.NewVectorDriverOpts{
		ProviderType: cfg.Vector.Provider,
		TargetURL:    cfg.Vector.Target,
		Collection:   cfg.Vector.Collection,
		Logger:       log,
	})
	if err != nil {
		return nil, h.abort(fmt.Errorf("connecting vector index: %w", err))
	}
	h.closers = append(h.closers, h.Vectors.Close)

	return h, nil
}

// Deps returns the handles as API dependencies.
func (h *Handles) Deps() api.Deps {
	deps := api.Deps{
		Pool:    h.Pool,
		Broker:  h.Broker,
		Vectors: h.Vectors,
	}
	// Typed nils would defeat the server's nil checks.
	if h.Sessions != nil {
		deps.Sessions = h.Sessions
	}
	if h.Embedder != nil {
		deps.Embedder = h.Embedder
	}
	return deps
}

// Close closes every handle, most recently opened first.
func (h *Handles) Close() error {
	var errs []error
	for i := len(h.closers) - 1; i >= 0; i-- {
		if err := h.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	h.closers = nil
	return errors.Join(errs...)
}

func (h *Handles) abort(err error) error {
	if cerr := h.Close(); cerr != nil {
		return errors.Join(err, cerr)
	}
	return err
}
