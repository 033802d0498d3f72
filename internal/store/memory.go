package store

import (
	"sync"
	"time"

	"github.com/haneul/dcrawl/internal/model"
)

// memoryStore is the ephemeral in-process backend used when STORE_PATH
// is empty. A per-instance mutex serializes
// every reader and writer, since there is no transactional engine
// underneath to do it for us.
type memoryStore struct {
	mu   sync.Mutex
	data map[string]model.GalleryState
}

// NewMemory builds an empty in-memory Store.
func NewMemory() Store {
	return &memoryStore{data: make(map[string]model.GalleryState)}
}

func (s *memoryStore) FetchAndUpdate(id string, fn UpdateFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, found := s.data[id]
	var existingPtr *model.GalleryState
	if found {
		existingPtr = &existing
	}

	next, err := fn(existingPtr, found)
	if err != nil {
		return err
	}
	if next == nil {
		return nil
	}
	s.data[id] = *next
	return nil
}

func (s *memoryStore) ForEach(fn func(id string, state model.GalleryState) error) error {
	s.mu.Lock()
	snapshot := make(map[string]model.GalleryState, len(s.data))
	for k, v := range s.data {
		snapshot[k] = v
	}
	s.mu.Unlock()

	for id, state := range snapshot {
		if err := fn(id, state); err != nil {
			return err
		}
	}
	return nil
}

func (s *memoryStore) BackfillRegisteredAt(now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, state := range s.data {
		if state.RegisteredAt.IsZero() {
			state.RegisteredAt = now
			s.data[id] = state
		}
	}
	return nil
}

func (s *memoryStore) Close() error { return nil }
