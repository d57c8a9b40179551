package store

import (
	"context"
	"sort"
	"sync"

	"idverse/internal/benefit/models"
	"idverse/pkg/platform/sentinel"
)

// InMemoryStore backs mock mode and tests.
type InMemoryStore struct {
	mu           sync.RWMutex
	applications map[string]models.Application
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{applications: make(map[string]models.Application)}
}

func (s *InMemoryStore) Save(_ context.Context, app models.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applications[app.ID] = app
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id string) (models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if app, ok := s.applications[id]; ok {
		return app, nil
	}
	return models.Application{}, sentinel.ErrNotFound
}

func (s *InMemoryStore) FindBySubject(_ context.Context, subjectID string) ([]models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Application
	for _, app := range s.applications {
		if app.SubjectID == subjectID {
			out = append(out, app)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
