package docstore

import (
	"context"
	"crypto/sha256"
	"encoding/base32"
	"sync"

	"idverse/pkg/platform/sentinel"
)

var refEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// InMemoryStore is a content-addressed document store for mock mode and
// tests. References are digest-derived, so Put is idempotent by content
// like the IPFS-backed store.
type InMemoryStore struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{docs: make(map[string][]byte)}
}

func (s *InMemoryStore) Put(_ context.Context, data []byte) (string, error) {
	sum := sha256.Sum256(data)
	ref := "mem-" + refEncoding.EncodeToString(sum[:])

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[ref]; !ok {
		stored := make([]byte, len(data))
		copy(stored, data)
		s.docs[ref] = stored
	}
	return ref, nil
}

func (s *InMemoryStore) Get(_ context.Context, ref string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.docs[ref]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}
