//go:build !nosqlite

package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/GKaszewski/k-core/pkg/apperr"
)

func init() {
	register(KindSQLite, openSQLite)
}

type sqliteBackend struct {
	db     *sql.DB
	plan   Plan
	logger *slog.Logger
}

func openSQLite(ctx context.Context, plan Plan, log *slog.Logger) (backend, error) {
	dsn := plan.DSN
	if !plan.InMemory {
		dsn = withSQLitePragmas(dsn)
	}

	db, err := sql.Open(sqliteDriverName, dsn)
	if err != nil {
		return nil, &apperr.Error{Kind: apperr.KindConfiguration, Backend: string(KindSQLite), Op: "db.connect", Msg: "invalid connection string", Err: err}
	}

	db.SetMaxOpenConns(int(plan.MaxConnections))
	db.SetMaxIdleConns(int(plan.MaxConnections))
	if plan.InMemory {
		// Closing the last connection drops the database.
		db.SetConnMaxLifetime(0)
		db.SetConnMaxIdleTime(0)
	}

	b := &sqliteBackend{db: db, plan: plan, logger: log}
	if err := b.warm(ctx); err != nil {
		db.Close()
		return nil, apperr.Backend(string(KindSQLite), "db.connect", err)
	}
	return b, nil
}

// warm opens MinConnections connections and pings each, all within the
// acquire timeout, then returns them to the idle set.
func (b *sqliteBackend) warm(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, b.plan.AcquireTimeout)
	defer cancel()

	n := max(int(b.plan.MinConnections), 1)
	conns := make([]*sql.Conn, 0, n)
	defer func() {
		for _, c := range conns {
			c.Close()
		}
	}()

	for range n {
		c, err := b.db.Conn(ctx)
		if err != nil {
			return fmt.Errorf("failed to open connection: %w", err)
		}
		conns = append(conns, c)
		if err := c.PingContext(ctx); err != nil {
			return fmt.Errorf("failed to ping database: %w", err)
		}
	}
	return nil
}

func (b *sqliteBackend) acquire(ctx context.Context) (*sql.Conn, error) {
	actx, cancel := context.WithTimeout(ctx, b.plan.AcquireTimeout)
	defer cancel()

	c, err := b.db.Conn(actx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	return c, nil
}

func (b *sqliteBackend) kind() Kind { return KindSQLite }

func (b *sqliteBackend) ping(ctx context.Context) error {
	c, err := b.acquire(ctx)
	if err != nil {
		return err
	}
	defer c.Close()
	return c.PingContext(ctx)
}

func (b *sqliteBackend) exec(ctx context.Context, query string, args ...any) (int64, error) {
	c, err := b.acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer c.Close()

	res, err := c.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (b *sqliteBackend) stats() Stats {
	s := b.db.Stats()
	return Stats{
		MaxConnections:  s.MaxOpenConnections,
		OpenConnections: s.OpenConnections,
		InUse:           s.InUse,
		Idle:            s.Idle,
	}
}

func (b *sqliteBackend) close() error {
	return b.db.Close()
}

// SQLite returns the native *sql.DB when the pool is backed by SQLite.
func (p *Pool) SQLite() (*sql.DB, bool) {
	if p == nil {
		return nil, false
	}
	b, ok := p.backend.(*sqliteBackend)
	if !ok || p.kind != KindSQLite {
		return nil, false
	}
	return b.db, true
}

func appendQuery(dsn string, params ...string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	var sb strings.Builder
	sb.WriteString(dsn)
	for _, p := range params {
		key, _, _ := strings.Cut(p, "=")
		if strings.Contains(dsn, key+"=") && !strings.HasPrefix(key, "_pragma") {
			continue
		}
		sb.WriteString(sep)
		sb.WriteString(p)
		sep = "&"
	}
	return sb.String()
}
