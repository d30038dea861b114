package session

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// DefaultMemoryStoreSize bounds the number of sessions a MemoryStore keeps.
const DefaultMemoryStoreSize = 1024

// MemoryStore keeps sessions in a bounded LRU whose entries expire after a TTL.
type MemoryStore struct {
	lru *expirable.LRU[string, *Session]
}

// NewMemoryStore creates a store holding at most size sessions for ttl each.
// size <= 0 uses DefaultMemoryStoreSize; ttl <= 0 disables expiry.
func NewMemoryStore(size int, ttl time.Duration) *MemoryStore {
	if size <= 0 {
		size = DefaultMemoryStoreSize
	}
	if ttl < 0 {
		ttl = 0
	}
	return &MemoryStore{
		lru: expirable.NewLRU[string, *Session](size, nil, ttl),
	}
}

// Get returns a copy of the stored session.
func (m *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	s, ok := m.lru.Get(id)
	if !ok {
		StoreMisses.WithLabelValues("memory").Inc()
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	StoreHits.WithLabelValues("memory").Inc()
	return s.Clone(), nil
}

// Save stores a copy of s.
func (m *MemoryStore) Save(_ context.Context, s *Session) error {
	if s == nil || s.ID == "" {
		StoreErrors.WithLabelValues("memory", "save").Inc()
		return fmt.Errorf("session must have an id")
	}
	m.lru.Add(s.ID, s.Clone())
	return nil
}

// Delete removes a session.
func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.lru.Remove(id)
	return nil
}

// Len returns the number of sessions held, including expired ones not yet purged.
func (m *MemoryStore) Len() int {
	return m.lru.Len()
}
