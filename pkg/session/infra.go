package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/GKaszewski/k-core/pkg/apperr"
	"github.com/GKaszewski/k-core/pkg/db"
	"github.com/GKaszewski/k-core/pkg/logger"
	"github.com/GKaszewski/k-core/pkg/metrics"
)

const errNoBackend = "no database backend enabled for sessions"

type adapterFactory func(pool *db.Pool, o *options) (Store, bool)

var (
	adaptersMu sync.RWMutex
	adapters   = map[db.Kind]adapterFactory{}
)

func registerAdapter(k db.Kind, f adapterFactory) {
	adaptersMu.Lock()
	defer adaptersMu.Unlock()
	adapters[k] = f
}

func adapterFor(k db.Kind) (adapterFactory, bool) {
	adaptersMu.RLock()
	defer adaptersMu.RUnlock()
	f, ok := adapters[k]
	return f, ok
}

// Option configures the session stores.
type Option func(*options)

type options struct {
	table          string
	logger         *slog.Logger
	now            func() time.Time
	acquireTimeout time.Duration
}

// WithTable sets the session table name. Names that are not plain SQL
// identifiers are ignored.
func WithTable(name string) Option {
	return func(o *options) {
		if tableName.MatchString(name) {
			o.table = name
		}
	}
}

// WithLogger sets the store's logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithClock overrides the time source used for expiry.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func newOptions(opts []Option) *options {
	o := &options{
		table:          DefaultTable,
		logger:         logger.Nop(),
		now:            time.Now,
		acquireTimeout: db.DefaultAcquireTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// InfraStore is the session store handle over a db.Pool. It holds the
// adapter for the pool's backend. When no adapter exists for that backend
// every operation fails with a backend error.
type InfraStore struct {
	kind   db.Kind
	store  Store
	logger *slog.Logger
}

var _ Store = (*InfraStore)(nil)

// NewInfraStore picks the session adapter matching pool.Kind().
func NewInfraStore(pool *db.Pool, opts ...Option) *InfraStore {
	o := newOptions(opts)
	o.acquireTimeout = pool.AcquireTimeout()
	kind := pool.Kind()
	s := &InfraStore{kind: kind, logger: o.logger.With("backend", string(kind))}

	f, ok := adapterFor(kind)
	if !ok {
		s.logger.Warn(errNoBackend)
		return s
	}
	store, ok := f(pool, o)
	if !ok {
		s.logger.Warn(errNoBackend)
		return s
	}
	s.store = store
	return s
}

// Kind reports the backend the store was built for.
func (s *InfraStore) Kind() db.Kind {
	return s.kind
}

func (s *InfraStore) active(op string) (Store, error) {
	if s == nil || s.store == nil {
		return nil, apperr.BackendMsg(backendName(s), op, errNoBackend)
	}
	return s.store, nil
}

func backendName(s *InfraStore) string {
	if s == nil || s.kind == "" {
		return "none"
	}
	return string(s.kind)
}

func (s *InfraStore) observe(op string, start time.Time, err error) {
	metrics.ObserveDispatch("session", backendName(s), op, start, err)
}

// Save forwards to the active adapter.
func (s *InfraStore) Save(ctx context.Context, rec *Record) error {
	store, err := s.active("session.save")
	if err != nil {
		return err
	}
	start := time.Now()
	err = store.Save(ctx, rec)
	s.observe("save", start, err)
	return err
}

// Load forwards to the active adapter.
func (s *InfraStore) Load(ctx context.Context, id string) (*Record, error) {
	store, err := s.active("session.load")
	if err != nil {
		return nil, err
	}
	start := time.Now()
	rec, err := store.Load(ctx, id)
	s.observe("load", start, err)
	return rec, err
}

// Delete forwards to the active adapter.
func (s *InfraStore) Delete(ctx context.Context, id string) error {
	store, err := s.active("session.delete")
	if err != nil {
		return err
	}
	start := time.Now()
	err = store.Delete(ctx, id)
	s.observe("delete", start, err)
	return err
}

// Migrate forwards to the active adapter.
func (s *InfraStore) Migrate(ctx context.Context) error {
	store, err := s.active("session.migrate")
	if err != nil {
		return err
	}
	start := time.Now()
	err = store.Migrate(ctx)
	s.observe("migrate", start, err)
	return err
}

// DeleteExpired forwards to the active adapter.
func (s *InfraStore) DeleteExpired(ctx context.Context) (int64, error) {
	store, err := s.active("session.delete_expired")
	if err != nil {
		return 0, err
	}
	exp, ok := store.(Expirer)
	if !ok {
		return 0, nil
	}
	start := time.Now()
	n, err := exp.DeleteExpired(ctx)
	s.observe("delete_expired", start, err)
	return n, err
}
