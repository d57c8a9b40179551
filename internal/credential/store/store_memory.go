package store

import (
	"context"
	"sync"

	"idverse/internal/credential/models"
	"idverse/pkg/platform/sentinel"
)

// InMemoryStore backs mock mode and tests.
type InMemoryStore struct {
	mu          sync.RWMutex
	credentials map[string]models.CredentialRecord
	requests    map[string]models.IssuanceRequest
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		credentials: make(map[string]models.CredentialRecord),
		requests:    make(map[string]models.IssuanceRequest),
	}
}

func (s *InMemoryStore) Save(_ context.Context, record models.CredentialRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credentials[record.ID] = record
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id string) (models.CredentialRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if record, ok := s.credentials[id]; ok {
		return record, nil
	}
	return models.CredentialRecord{}, sentinel.ErrNotFound
}

func (s *InMemoryStore) FindBySubject(_ context.Context, subjectID string) ([]models.CredentialRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.CredentialRecord
	for _, record := range s.credentials {
		if record.SubjectID == subjectID {
			out = append(out, record)
		}
	}
	return out, nil
}

func (s *InMemoryStore) SaveRequest(_ context.Context, req models.IssuanceRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests[req.ID] = req
	return nil
}

func (s *InMemoryStore) FindRequestByID(_ context.Context, id string) (models.IssuanceRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if req, ok := s.requests[id]; ok {
		return req, nil
	}
	return models.IssuanceRequest{}, sentinel.ErrNotFound
}
