package db

import (
	"context"
	"log/slog"
	"time"

	"github.com/GKaszewski/k-core/pkg/apperr"
	"github.com/GKaszewski/k-core/pkg/logger"
	"github.com/GKaszewski/k-core/pkg/metrics"
)

// Stats is a snapshot of pool usage.
type Stats struct {
	MaxConnections  int
	OpenConnections int
	InUse           int
	Idle            int
}

// Pool is the database handle. It holds exactly one backend, selected once
// by Connect, and forwards every call to it. A Pool is safe for concurrent
// use; synchronisation lives in the native pool underneath.
type Pool struct {
	kind           Kind
	backend        backend
	acquireTimeout time.Duration
	logger         *slog.Logger
}

// Option configures Connect.
type Option func(*options)

type options struct {
	logger   *slog.Logger
	backends []Kind
	narrowed bool
}

// WithLogger sets the logger used by the pool.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithBackends narrows the enabled backends to kinds. Kinds that are not
// compiled in are ignored.
func WithBackends(kinds ...Kind) Option {
	return func(o *options) {
		o.backends = kinds
		o.narrowed = true
	}
}

// Connect resolves cfg against the enabled backends, opens the selected one
// and verifies it within cfg's acquire timeout.
func Connect(ctx context.Context, cfg Config, opts ...Option) (*Pool, error) {
	o := &options{logger: logger.Nop()}
	for _, opt := range opts {
		opt(o)
	}

	enabled := Enabled()
	if o.narrowed {
		enabled = intersect(o.backends)
	}

	plan, err := Resolve(cfg, enabled)
	if err != nil {
		return nil, err
	}
	if plan.Fallback {
		o.logger.Warn("unrecognised database url scheme, falling back to sqlite",
			"scheme", plan.Scheme,
		)
	}

	open, ok := lookup(plan.Kind)
	if !ok {
		return nil, apperr.Configuration("no supported backend enabled")
	}

	log := o.logger.With("backend", string(plan.Kind))
	start := time.Now()
	b, err := open(ctx, plan, log)
	metrics.ObserveDispatch("db", string(plan.Kind), "connect", start, err)
	if err != nil {
		return nil, err
	}

	log.Debug("database pool ready",
		"max_connections", plan.MaxConnections,
		"min_connections", plan.MinConnections,
		"in_memory", plan.InMemory,
	)

	return &Pool{kind: plan.Kind, backend: b, acquireTimeout: plan.AcquireTimeout, logger: log}, nil
}

// Kind reports the active backend. The zero Pool reports "".
func (p *Pool) Kind() Kind {
	if p == nil {
		return ""
	}
	return p.kind
}

// Ping acquires a connection and checks it is alive.
func (p *Pool) Ping(ctx context.Context) error {
	b, err := p.active("db.ping")
	if err != nil {
		return err
	}

	start := time.Now()
	err = b.ping(ctx)
	metrics.ObserveDispatch("db", string(p.kind), "ping", start, err)
	if err != nil {
		return apperr.Backend(string(p.kind), "db.ping", err)
	}
	return nil
}

// Exec runs a statement that returns no rows and reports the rows affected.
func (p *Pool) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	b, err := p.active("db.exec")
	if err != nil {
		return 0, err
	}

	start := time.Now()
	n, err := b.exec(ctx, query, args...)
	metrics.ObserveDispatch("db", string(p.kind), "exec", start, err)
	if err != nil {
		return 0, apperr.Backend(string(p.kind), "db.exec", err)
	}
	return n, nil
}

// AcquireTimeout is the bound applied to every connection acquisition.
// Adapters that use the native pool directly apply it too.
func (p *Pool) AcquireTimeout() time.Duration {
	if p == nil || p.acquireTimeout <= 0 {
		return DefaultAcquireTimeout
	}
	return p.acquireTimeout
}

// Logger returns the pool's logger, tagged with the backend.
func (p *Pool) Logger() *slog.Logger {
	if p == nil || p.logger == nil {
		return logger.Nop()
	}
	return p.logger
}

// Stats returns a snapshot of pool usage. The zero Pool reports zeros.
func (p *Pool) Stats() Stats {
	b, err := p.active("db.stats")
	if err != nil {
		return Stats{}
	}
	return b.stats()
}

// Close releases every connection.
func (p *Pool) Close() error {
	b, err := p.active("db.close")
	if err != nil {
		return err
	}
	if err := b.close(); err != nil {
		return apperr.Backend(string(p.kind), "db.close", err)
	}
	return nil
}

// active returns the backend matching the pool's tag. A mismatch means the
// Pool was not built by Connect.
func (p *Pool) active(op string) (backend, error) {
	if p != nil && p.backend != nil && p.backend.kind() == p.kind {
		return p.backend, nil
	}

	var kind Kind
	log := slog.Default()
	if p != nil {
		kind = p.kind
		if p.logger != nil {
			log = p.logger
		}
	}
	log.Error("database pool has no backend for its tag", "op", op, "kind", string(kind))
	return nil, &apperr.Error{Kind: apperr.KindInternal, Op: op, Msg: "database pool has no backend for tag " + quoteKind(kind)}
}

func quoteKind(k Kind) string {
	return `"` + string(k) + `"`
}
