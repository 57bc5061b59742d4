package cache

import (
	"context"
	"sync"

	"kyclens/pkg/platform/sentinel"
)

// InMemoryStore is the default process-lifetime snapshot cache.
type InMemoryStore struct {
	mu    sync.RWMutex
	snaps map[string]*Snapshot
}

func NewMemory() *InMemoryStore {
	return &InMemoryStore{
		snaps: make(map[string]*Snapshot),
	}
}

func (s *InMemoryStore) Get(_ context.Context, src string) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, exists := s.snaps[src]
	if !exists {
		return nil, sentinel.ErrCacheMiss
	}
	cp := *snap
	return &cp, nil
}

func (s *InMemoryStore) Put(_ context.Context, snap *Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *snap
	s.snaps[snap.Source] = &cp
	return nil
}
