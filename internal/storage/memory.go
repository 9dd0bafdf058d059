package storage

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store used in tests and when no database path is configured.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]map[string]string
	feed   *feed
	closed bool
}

// NewMemoryStore constructs an empty memory-backed store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: map[string]map[string]string{}, feed: newFeed()}
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, namespace, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return "", false, ErrClosed
	}
	v, ok := s.values[namespace][key]
	return v, ok, nil
}

// Set implements Store.
func (s *MemoryStore) Set(_ context.Context, namespace, key, value string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	ns, ok := s.values[namespace]
	if !ok {
		ns = map[string]string{}
		s.values[namespace] = ns
	}
	ns[key] = value
	s.mu.Unlock()
	s.feed.publish(Change{Namespace: namespace, Key: key})
	return nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(_ context.Context, namespace, key string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if ns, ok := s.values[namespace]; ok {
		delete(ns, key)
	}
	s.mu.Unlock()
	s.feed.publish(Change{Namespace: namespace, Key: key, Deleted: true})
	return nil
}

// Watch implements Store.
func (s *MemoryStore) Watch() (<-chan Change, func()) { return s.feed.watch() }

// Close implements Store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.feed.close()
	return nil
}
