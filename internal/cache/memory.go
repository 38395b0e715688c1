package cache

import (
	"context"
	"sync"
	"time"
)

var _ Store = (*MemoryStore)(nil)

type memoryEntry struct {
	value   []byte
	expires time.Time // zero means never
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expires.IsZero() && !now.Before(e.expires)
}

// MemoryStore is an in-process Store.
//
// CONCURRENCY:
// One RWMutex guards the whole map. Reads take the read lock, so concurrent
// cache hits never block each other. Expired entries are only dropped when
// they are read (lazy expiry); there is no background sweeper.
type MemoryStore struct {
	mu         sync.RWMutex
	namespaces map[string]map[string]memoryEntry
	now        func() time.Time
}

// NewMemoryStore creates an empty store using the wall clock.
func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreWithClock(time.Now)
}

// NewMemoryStoreWithClock lets tests control expiry.
func NewMemoryStoreWithClock(now func() time.Time) *MemoryStore {
	return &MemoryStore{
		namespaces: make(map[string]map[string]memoryEntry),
		now:        now,
	}
}

func (s *MemoryStore) Get(_ context.Context, namespace, key string) ([]byte, bool, error) {
	s.mu.RLock()
	entry, ok := s.namespaces[namespace][key]
	s.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}

	if entry.expired(s.now()) {
		s.mu.Lock()
		// Re-check under the write lock: another request may have stored a
		// fresh value in between.
		if current, ok := s.namespaces[namespace][key]; ok && current.expired(s.now()) {
			delete(s.namespaces[namespace], key)
		}
		s.mu.Unlock()
		return nil, false, nil
	}

	return entry.value, true, nil
}

func (s *MemoryStore) Set(_ context.Context, namespace, key string, value []byte, ttl time.Duration) error {
	entry := memoryEntry{value: append([]byte(nil), value...)}
	if ttl != NeverExpires {
		entry.expires = s.now().Add(ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ns, ok := s.namespaces[namespace]
	if !ok {
		ns = make(map[string]memoryEntry)
		s.namespaces[namespace] = ns
	}
	ns[key] = entry
	return nil
}

func (s *MemoryStore) Remove(_ context.Context, namespace, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k := range s.namespaces[namespace] {
		if matchesSubkey(k, key) {
			delete(s.namespaces[namespace], k)
		}
	}
	return nil
}

func (s *MemoryStore) Clear(_ context.Context, namespace string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.namespaces, namespace)
	return nil
}
