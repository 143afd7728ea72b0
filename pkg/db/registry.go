package db

import (
	"context"
	"log/slog"
	"slices"
	"sync"
)

// backend is the contract every compiled-in database backend satisfies.
type backend interface {
	kind() Kind
	ping(ctx context.Context) error
	exec(ctx context.Context, query string, args ...any) (int64, error)
	stats() Stats
	close() error
}

type opener func(ctx context.Context, plan Plan, log *slog.Logger) (backend, error)

var (
	registryMu sync.RWMutex
	registry   = map[Kind]opener{}
)

// register is called from the init of each build-tagged backend file.
func register(k Kind, open opener) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[k] = open
}

func lookup(k Kind) (opener, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	open, ok := registry[k]
	return open, ok
}

// Enabled lists the backends compiled into this build, in resolution order.
func Enabled() []Kind {
	registryMu.RLock()
	defer registryMu.RUnlock()

	kinds := make([]Kind, 0, len(registry))
	for _, k := range []Kind{KindPostgres, KindSQLite} {
		if _, ok := registry[k]; ok {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// intersect keeps the kinds of want that are also compiled in.
func intersect(want []Kind) []Kind {
	have := Enabled()
	out := make([]Kind, 0, len(want))
	for _, k := range want {
		if slices.Contains(have, k) && !slices.Contains(out, k) {
			out = append(out, k)
		}
	}
	return out
}
