//go:build !nopostgres

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"entgo.io/ent/dialect"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/GKaszewski/k-core/pkg/apperr"
	"github.com/GKaszewski/k-core/pkg/db"
)

func init() {
	registerAdapter(db.KindPostgres, func(pool *db.Pool, o *options) (Store, bool) {
		pg, ok := pool.Postgres()
		if !ok {
			return nil, false
		}
		return newPostgresStore(pg, o), true
	})
}

// PostgresStore keeps sessions in a Postgres table.
type PostgresStore struct {
	pool           *pgxpool.Pool
	q              queries
	now            func() time.Time
	acquireTimeout time.Duration
	logger         *slog.Logger
}

var (
	_ Store   = (*PostgresStore)(nil)
	_ Expirer = (*PostgresStore)(nil)
)

// NewPostgresStore wraps an open *pgxpool.Pool.
func NewPostgresStore(pool *pgxpool.Pool, opts ...Option) *PostgresStore {
	return newPostgresStore(pool, newOptions(opts))
}

func newPostgresStore(pool *pgxpool.Pool, o *options) *PostgresStore {
	return &PostgresStore{
		pool:           pool,
		q:              queries{dialect: dialect.Postgres, table: o.table},
		now:            o.now,
		acquireTimeout: o.acquireTimeout,
		logger:         o.logger,
	}
}

func (s *PostgresStore) conn(ctx context.Context) (*pgxpool.Conn, error) {
	actx, cancel := context.WithTimeout(ctx, s.acquireTimeout)
	defer cancel()

	c, err := s.pool.Acquire(actx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) exec(ctx context.Context, op, query string, args ...any) (int64, error) {
	c, err := s.conn(ctx)
	if err != nil {
		return 0, apperr.Backend(string(db.KindPostgres), op, err)
	}
	defer c.Release()

	tag, err := c.Exec(ctx, query, args...)
	if err != nil {
		return 0, apperr.Backend(string(db.KindPostgres), op, err)
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) Save(ctx context.Context, rec *Record) error {
	if rec == nil || rec.ID == "" {
		return apperr.Validation(errEmptyID.Error())
	}
	data := rec.Data
	if data == nil {
		data = []byte{}
	}

	query, args := s.q.save(&Record{ID: rec.ID, Data: data, ExpiresAt: rec.ExpiresAt})
	_, err := s.exec(ctx, "session.save", query, args...)
	return err
}

func (s *PostgresStore) Load(ctx context.Context, id string) (*Record, error) {
	if id == "" {
		return nil, nil
	}

	c, err := s.conn(ctx)
	if err != nil {
		return nil, apperr.Backend(string(db.KindPostgres), "session.load", err)
	}
	defer c.Release()

	query, args := s.q.load(id, s.now())
	var (
		rec Record
		exp int64
	)
	err = c.QueryRow(ctx, query, args...).Scan(&rec.ID, &rec.Data, &exp)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Backend(string(db.KindPostgres), "session.load", err)
	}
	rec.ExpiresAt = time.Unix(0, exp)
	return &rec, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	query, args := s.q.delete(id)
	_, err := s.exec(ctx, "session.delete", query, args...)
	return err
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	for _, stmt := range s.q.createTable("BYTEA") {
		if _, err := s.exec(ctx, "session.migrate", stmt); err != nil {
			return err
		}
	}
	s.logger.Debug("session table ready", "table", s.q.table)
	return nil
}

// DeleteExpired removes every expired record and reports how many went.
func (s *PostgresStore) DeleteExpired(ctx context.Context) (int64, error) {
	query, args := s.q.deleteExpired(s.now())
	return s.exec(ctx, "session.delete_expired", query, args...)
}

// Postgres returns the Postgres adapter when it is the active one.
func (s *InfraStore) Postgres() (*PostgresStore, bool) {
	if s == nil {
		return nil, false
	}
	st, ok := s.store.(*PostgresStore)
	return st, ok
}
