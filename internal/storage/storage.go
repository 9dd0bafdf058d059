// Package storage provides the durable per-visitor key/value store that backs
// persisted preferences (language, theme, reading history).
package storage

import (
	"context"
	"errors"
	"sync"
)

// Well-known keys. The names are part of the persisted format.
const (
	KeyLanguage       = "language"
	KeyDarkMode       = "darkMode"
	KeyReadingHistory = "readingHistory"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("storage: closed")

// Store persists string values under (namespace, key). A namespace is usually a visitor id.
type Store interface {
	Get(ctx context.Context, namespace, key string) (string, bool, error)
	Set(ctx context.Context, namespace, key, value string) error
	Delete(ctx context.Context, namespace, key string) error
	// Watch subscribes to change signals. The returned func unsubscribes.
	Watch() (<-chan Change, func())
	Close() error
}

// Change is an advisory signal that a key was written. It carries no value;
// receivers re-read the store.
type Change struct {
	Namespace string
	Key       string
	Deleted   bool
}

const watchBuffer = 32

// feed fans out change signals. Slow watchers drop signals rather than block writers.
type feed struct {
	mu     sync.Mutex
	next   int
	subs   map[int]chan Change
	closed bool
}

func newFeed() *feed {
	return &feed{subs: map[int]chan Change{}}
}

func (f *feed) watch() (<-chan Change, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan Change, watchBuffer)
	if f.closed {
		close(ch)
		return ch, func() {}
	}
	id := f.next
	f.next++
	f.subs[id] = ch
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			if c, ok := f.subs[id]; ok {
				delete(f.subs, id)
				close(c)
			}
		})
	}
}

func (f *feed) publish(c Change) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.subs {
		select {
		case ch <- c:
		default:
		}
	}
}

func (f *feed) close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	for id, ch := range f.subs {
		delete(f.subs, id)
		close(ch)
	}
}
