package session

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// MemoryStore implements Store with a size-bounded LRU whose entries expire
// after the TTL.
type MemoryStore struct {
	entries *expirable.LRU[string, string]
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore(ttl time.Duration, maxEntries int) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &MemoryStore{entries: expirable.NewLRU[string, string](maxEntries, nil, ttl)}
}

// Get returns the value for key.
func (s *MemoryStore) Get(_ context.Context, sessionID string, key Key) (string, bool, error) {
	v, ok := s.entries.Get(entryKey(sessionID, key))
	return v, ok, nil
}

// Set stores value for key.
func (s *MemoryStore) Set(_ context.Context, sessionID string, key Key, value string) error {
	s.entries.Add(entryKey(sessionID, key), value)
	return nil
}

// Snapshot returns every live value of the session.
func (s *MemoryStore) Snapshot(_ context.Context, sessionID string) (map[Key]string, error) {
	out := make(map[Key]string)
	for _, k := range Keys {
		if v, ok := s.entries.Get(entryKey(sessionID, k)); ok {
			out[k] = v
		}
	}
	return out, nil
}

// Clear removes every value of the session.
func (s *MemoryStore) Clear(_ context.Context, sessionID string) error {
	for _, k := range Keys {
		s.entries.Remove(entryKey(sessionID, k))
	}
	return nil
}

// Len returns the number of live entries across sessions.
func (s *MemoryStore) Len() int {
	return s.entries.Len()
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}

// Verify interface compliance.
var _ Store = (*MemoryStore)(nil)
