//go:build !nopostgres

package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/GKaszewski/k-core/pkg/apperr"
)

func init() {
	register(KindPostgres, openPostgres)
}

type postgresBackend struct {
	pool   *pgxpool.Pool
	plan   Plan
	logger *slog.Logger
}

func openPostgres(ctx context.Context, plan Plan, log *slog.Logger) (backend, error) {
	cfg, err := pgxpool.ParseConfig(plan.DSN)
	if err != nil {
		return nil, &apperr.Error{Kind: apperr.KindConfiguration, Backend: string(KindPostgres), Op: "db.connect", Msg: "invalid connection string", Err: err}
	}
	cfg.MaxConns = int32(plan.MaxConnections) //nolint:gosec // clamped by Resolve
	cfg.MinConns = int32(plan.MinConnections) //nolint:gosec // clamped by Resolve

	ctx, cancel := context.WithTimeout(ctx, plan.AcquireTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, apperr.Backend(string(KindPostgres), "db.connect", fmt.Errorf("failed to open pool: %w", err))
	}

	// Verify the server is reachable
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, apperr.Backend(string(KindPostgres), "db.connect", fmt.Errorf("failed to ping database: %w", err))
	}

	return &postgresBackend{pool: pool, plan: plan, logger: log}, nil
}

func (b *postgresBackend) acquire(ctx context.Context) (*pgxpool.Conn, error) {
	actx, cancel := context.WithTimeout(ctx, b.plan.AcquireTimeout)
	defer cancel()

	c, err := b.pool.Acquire(actx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	return c, nil
}

func (b *postgresBackend) kind() Kind { return KindPostgres }

func (b *postgresBackend) ping(ctx context.Context) error {
	c, err := b.acquire(ctx)
	if err != nil {
		return err
	}
	defer c.Release()
	return c.Ping(ctx)
}

func (b *postgresBackend) exec(ctx context.Context, query string, args ...any) (int64, error) {
	c, err := b.acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer c.Release()

	tag, err := c.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (b *postgresBackend) stats() Stats {
	s := b.pool.Stat()
	return Stats{
		MaxConnections:  int(s.MaxConns()),
		OpenConnections: int(s.TotalConns()),
		InUse:           int(s.AcquiredConns()),
		Idle:            int(s.IdleConns()),
	}
}

func (b *postgresBackend) close() error {
	b.pool.Close()
	return nil
}

// Postgres returns the native *pgxpool.Pool when the pool is backed by
// Postgres.
func (p *Pool) Postgres() (*pgxpool.Pool, bool) {
	if p == nil {
		return nil, false
	}
	b, ok := p.backend.(*postgresBackend)
	if !ok || p.kind != KindPostgres {
		return nil, false
	}
	return b.pool, true
}
