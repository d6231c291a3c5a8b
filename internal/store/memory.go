package store

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a map-backed Store for tests and store-less local runs.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]Document
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]Document)}
}

func (s *MemoryStore) Load(_ context.Context, roomID string) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[roomID]
	if !ok {
		return nil, ErrNotFound
	}
	return &doc, nil
}

func (s *MemoryStore) Save(_ context.Context, roomID, content string, ts time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[roomID] = Document{RoomID: roomID, Content: content, LastUpdated: ts.UTC()}
	return nil
}
