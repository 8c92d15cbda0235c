package idempotency

import (
	"context"
	"sync"
	"time"

	"github.com/studiofit/frontdesk-api/internal/ports/out/idempotency"
)

type entry struct {
	rec       idempotency.Record
	expiresAt time.Time
}

// Store is an in-memory implementation of idempotency.Store.
// Records expire idempotency.Retention after their CreatedAt. It is safe for concurrent use.
type Store struct {
	mu  sync.RWMutex
	m   map[idempotency.Fingerprint]entry
	now func() time.Time
}

func NewStore() *Store {
	return &Store{
		m:   make(map[idempotency.Fingerprint]entry),
		now: time.Now,
	}
}

func (s *Store) Get(ctx context.Context, fp idempotency.Fingerprint) (idempotency.Record, bool, error) {
	_ = ctx
	s.mu.RLock()
	e, ok := s.m[fp]
	s.mu.RUnlock()
	if !ok {
		return idempotency.Record{}, false, nil
	}
	if s.now().After(e.expiresAt) {
		s.mu.Lock()
		delete(s.m, fp)
		s.mu.Unlock()
		return idempotency.Record{}, false, nil
	}
	return e.rec, true, nil
}

func (s *Store) Put(ctx context.Context, fp idempotency.Fingerprint, rec idempotency.Record) error {
	_ = ctx
	created := rec.CreatedAt
	if created.IsZero() {
		created = s.now().UTC()
		rec.CreatedAt = created
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[fp] = entry{rec: rec, expiresAt: created.Add(idempotency.Retention)}
	return nil
}
