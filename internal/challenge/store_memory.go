package challenge

import (
	"context"
	"sync"
	"time"

	"idverse/pkg/platform/sentinel"
)

// retention keeps expired and used nonces around long enough to tell a
// replay or late presentation apart from a nonce that was never issued.
const retention = 10 * time.Minute

type memoryRecord struct {
	expiresAt time.Time
	used      bool
}

// InMemoryStore is the single-instance challenge store. Consumption runs
// under one lock, so exactly one concurrent caller wins a nonce.
type InMemoryStore struct {
	mu        sync.Mutex
	records   map[string]memoryRecord
	lastSweep time.Time
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[string]memoryRecord)}
}

func (s *InMemoryStore) Save(_ context.Context, ch Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep(ch.IssuedAt)
	s.records[ch.Nonce] = memoryRecord{expiresAt: ch.ExpiresAt}
	return nil
}

func (s *InMemoryStore) Consume(_ context.Context, nonce string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[nonce]
	if !ok {
		return sentinel.ErrNotFound
	}
	if rec.used {
		return sentinel.ErrAlreadyUsed
	}
	if now.After(rec.expiresAt) {
		return sentinel.ErrExpired
	}
	rec.used = true
	s.records[nonce] = rec
	return nil
}

// sweep drops records past their retention window. Called with s.mu held.
func (s *InMemoryStore) sweep(now time.Time) {
	if now.Sub(s.lastSweep) < time.Minute {
		return
	}
	s.lastSweep = now
	for nonce, rec := range s.records {
		if now.After(rec.expiresAt.Add(retention)) {
			delete(s.records, nonce)
		}
	}
}
