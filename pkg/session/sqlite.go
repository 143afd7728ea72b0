//go:build !nosqlite

package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"entgo.io/ent/dialect"

	"github.com/GKaszewski/k-core/pkg/apperr"
	"github.com/GKaszewski/k-core/pkg/db"
)

func init() {
	registerAdapter(db.KindSQLite, func(pool *db.Pool, o *options) (Store, bool) {
		sqlDB, ok := pool.SQLite()
		if !ok {
			return nil, false
		}
		return newSQLiteStore(sqlDB, o), true
	})
}

// SQLiteStore keeps sessions in a SQLite table.
type SQLiteStore struct {
	db             *sql.DB
	q              queries
	now            func() time.Time
	acquireTimeout time.Duration
	logger         *slog.Logger
}

var (
	_ Store   = (*SQLiteStore)(nil)
	_ Expirer = (*SQLiteStore)(nil)
)

// NewSQLiteStore wraps an open *sql.DB.
func NewSQLiteStore(sqlDB *sql.DB, opts ...Option) *SQLiteStore {
	return newSQLiteStore(sqlDB, newOptions(opts))
}

func newSQLiteStore(sqlDB *sql.DB, o *options) *SQLiteStore {
	return &SQLiteStore{
		db:             sqlDB,
		q:              queries{dialect: dialect.SQLite, table: o.table},
		now:            o.now,
		acquireTimeout: o.acquireTimeout,
		logger:         o.logger,
	}
}

func (s *SQLiteStore) conn(ctx context.Context) (*sql.Conn, error) {
	actx, cancel := context.WithTimeout(ctx, s.acquireTimeout)
	defer cancel()

	c, err := s.db.Conn(actx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	return c, nil
}

func (s *SQLiteStore) exec(ctx context.Context, op, query string, args ...any) (int64, error) {
	c, err := s.conn(ctx)
	if err != nil {
		return 0, apperr.Backend(string(db.KindSQLite), op, err)
	}
	defer c.Close()

	res, err := c.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, apperr.Backend(string(db.KindSQLite), op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, apperr.Backend(string(db.KindSQLite), op, err)
	}
	return n, nil
}

func (s *SQLiteStore) Save(ctx context.Context, rec *Record) error {
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

func (s *SQLiteStore) Load(ctx context.Context, id string) (*Record, error) {
	if id == "" {
		return nil, nil
	}

	c, err := s.conn(ctx)
	if err != nil {
		return nil, apperr.Backend(string(db.KindSQLite), "session.load", err)
	}
	defer c.Close()

	query, args := s.q.load(id, s.now())
	var (
		rec Record
		exp int64
	)
	err = c.QueryRowContext(ctx, query, args...).Scan(&rec.ID, &rec.Data, &exp)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Backend(string(db.KindSQLite), "session.load", err)
	}
	rec.ExpiresAt = time.Unix(0, exp)
	return &rec, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	query, args := s.q.delete(id)
	_, err := s.exec(ctx, "session.delete", query, args...)
	return err
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	for _, stmt := range s.q.createTable("BLOB") {
		if _, err := s.exec(ctx, "session.migrate", stmt); err != nil {
			return err
		}
	}
	s.logger.Debug("session table ready", "table", s.q.table)
	return nil
}

// DeleteExpired removes every expired record and reports how many went.
func (s *SQLiteStore) DeleteExpired(ctx context.Context) (int64, error) {
	query, args := s.q.deleteExpired(s.now())
	return s.exec(ctx, "session.delete_expired", query, args...)
}

// SQLite returns the SQLite adapter when it is the active one.
func (s *InfraStore) SQLite() (*SQLiteStore, bool) {
	if s == nil {
		return nil, false
	}
	st, ok := s.store.(*SQLiteStore)
	return st, ok
}
