package cache

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// MemoryStore keeps entries for the life of the process. With a positive capacity the
// least recently used entries are evicted; otherwise it never evicts.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*Entry
	lru     *lru.Cache[string, *Entry]
}

func NewMemoryStore(capacity int) *MemoryStore {
	s := &MemoryStore{}
	if capacity > 0 {
		// lru.New only fails on a non-positive size.
		s.lru, _ = lru.New[string, *Entry](capacity)
	} else {
		s.entries = map[string]*Entry{}
	}
	return s
}

func (s *MemoryStore) get(fp string) (*Entry, bool) {
	if s.lru != nil {
		return s.lru.Get(fp)
	}
	e, ok := s.entries[fp]
	return e, ok
}

func (s *MemoryStore) Get(_ context.Context, fingerprint string) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.get(fingerprint)
	if !ok {
		return nil, nil
	}
	return e.clone(), nil
}

func (s *MemoryStore) Touch(_ context.Context, fingerprint string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.get(fingerprint); ok {
		e.LastAccessedAt = at
		e.AccessCount++
	}
	return nil
}

func (s *MemoryStore) PutIfAbsent(_ context.Context, e Entry) (*Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.get(e.Fingerprint); ok {
		return existing.clone(), false, nil
	}
	stored := e.clone()
	if s.lru != nil {
		s.lru.Add(e.Fingerprint, stored)
	} else {
		s.entries[e.Fingerprint] = stored
	}
	return stored.clone(), true, nil
}

func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lru != nil {
		return s.lru.Len()
	}
	return len(s.entries)
}
