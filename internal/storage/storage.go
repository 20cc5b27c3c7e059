// Package storage keeps generated artifacts addressable by id so they can be
// previewed and downloaded after generation.
package storage

import (
	"context"
	"errors"
	"sync"

	"github.com/cristianadrielbraun/qrstudio/internal/model"
)

// ErrNotFound is returned by Get for unknown ids.
var ErrNotFound = errors.New("artifact not found")

// Store saves and loads artifacts.
type Store interface {
	Put(ctx context.Context, id string, a model.Artifact) error
	Get(ctx context.Context, id string) (model.Artifact, error)
}

// MemoryStore is an in-process Store holding at most capacity artifacts.
// When full, the oldest entry is evicted.
type MemoryStore struct {
	mu       sync.Mutex
	capacity int
	order    []string
	items    map[string]model.Artifact
}

// NewMemoryStore returns a MemoryStore. A non-positive capacity means 128.
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = 128
	}
	return &MemoryStore{
		capacity: capacity,
		items:    make(map[string]model.Artifact, capacity),
	}
}

func (s *MemoryStore) Put(_ context.Context, id string, a model.Artifact) error {
	if id == "" {
		return errors.New("empty artifact id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		s.order = append(s.order, id)
	}
	s.items[id] = a
	for len(s.order) > s.capacity {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.items, oldest)
	}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (model.Artifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.items[id]
	if !ok {
		return model.Artifact{}, ErrNotFound
	}
	return a, nil
}

// Len returns the number of stored artifacts.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
