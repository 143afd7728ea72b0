package session

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/GKaszewski/k-core/pkg/apperr"
)

// MemoryStore keeps sessions in process memory. It is meant for tests and
// single-process development servers.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
	now     func() time.Time
}

var (
	_ Store   = (*MemoryStore)(nil)
	_ Expirer = (*MemoryStore)(nil)
)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	o := newOptions(opts)
	return &MemoryStore{
		records: make(map[string]Record),
		now:     o.now,
	}
}

func (s *MemoryStore) Save(_ context.Context, rec *Record) error {
	if rec == nil || rec.ID == "" {
		return apperr.Validation(errEmptyID.Error())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ID] = Record{
		ID:        rec.ID,
		Data:      slices.Clone(rec.Data),
		ExpiresAt: rec.ExpiresAt.Round(0),
	}
	return nil
}

func (s *MemoryStore) Load(_ context.Context, id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok || rec.Expired(s.now()) {
		return nil, nil
	}
	rec.Data = slices.Clone(rec.Data)
	return &rec, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)
	return nil
}

func (s *MemoryStore) Migrate(context.Context) error {
	return nil
}

// DeleteExpired removes every expired record and reports how many went.
func (s *MemoryStore) DeleteExpired(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var n int64
	for id, rec := range s.records {
		if rec.Expired(now) {
			delete(s.records, id)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored records, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
