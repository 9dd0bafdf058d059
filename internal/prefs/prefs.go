// Package prefs persists per-visitor display preferences: the colour theme and
// the recently read articles.
package prefs

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"kabaranime.id/portal/internal/storage"
)

// MaxHistory is the number of entries kept in the reading history.
const MaxHistory = 5

// Theme persists the dark-mode flag.
type Theme struct {
	store     storage.Store
	namespace string
	logger    *zap.Logger
}

// NewTheme binds a Theme to a visitor namespace.
func NewTheme(store storage.Store, namespace string, logger *zap.Logger) *Theme {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Theme{store: store, namespace: namespace, logger: logger}
}

// Dark reports whether dark mode is on. Unreadable values count as off.
func (t *Theme) Dark(ctx context.Context) bool {
	raw, ok, err := t.store.Get(ctx, t.namespace, storage.KeyDarkMode)
	if err != nil {
		t.logger.Warn("read theme", zap.String("visitor", t.namespace), zap.Error(err))
		return false
	}
	if !ok {
		return false
	}
	dark, err := strconv.ParseBool(raw)
	if err != nil {
		t.logger.Warn("malformed theme value", zap.String("visitor", t.namespace), zap.String("value", raw))
		return false
	}
	return dark
}

// SetDark stores the flag as "true" or "false".
func (t *Theme) SetDark(ctx context.Context, dark bool) error {
	if err := t.store.Set(ctx, t.namespace, storage.KeyDarkMode, strconv.FormatBool(dark)); err != nil {
		return fmt.Errorf("prefs: save theme: %w", err)
	}
	return nil
}

// Toggle flips dark mode and returns the new value.
func (t *Theme) Toggle(ctx context.Context) (bool, error) {
	dark := !t.Dark(ctx)
	return dark, t.SetDark(ctx, dark)
}

// Name is "dark" or "light".
func (t *Theme) Name(ctx context.Context) string {
	if t.Dark(ctx) {
		return "dark"
	}
	return "light"
}

// Entry is one recently viewed article.
type Entry struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Slug      string    `json:"slug"`
	Category  string    `json:"category"`
	Thumbnail string    `json:"thumbnail,omitempty"`
	ViewedAt  time.Time `json:"viewedAt"`
	ViewCount int       `json:"viewCount"`
}

// Path is the article URL of the entry.
func (e Entry) Path() string { return "/" + e.Category + "/" + e.Slug }

// History is the bounded reading history of a visitor.
type History struct {
	mu        sync.Mutex
	store     storage.Store
	namespace string
	logger    *zap.Logger
	now       func() time.Time
}

// NewHistory binds a History to a visitor namespace.
func NewHistory(store storage.Store, namespace string, logger *zap.Logger, now func() time.Time) *History {
	if logger == nil {
		logger = zap.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	return &History{store: store, namespace: namespace, logger: logger, now: now}
}

// List returns entries, most recently viewed first. Corrupt data yields an empty list.
func (h *History) List(ctx context.Context) []Entry {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.load(ctx)
}

// Record moves e to the front, bumping its view count if it was already
// present, and keeps at most MaxHistory entries.
func (h *History) Record(ctx context.Context, e Entry) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	entries := h.load(ctx)
	e.ViewedAt = h.now()
	e.ViewCount = 1
	kept := entries[:0]
	for _, old := range entries {
		if old.ID == e.ID {
			e.ViewCount = old.ViewCount + 1
			continue
		}
		kept = append(kept, old)
	}
	entries = append([]Entry{e}, kept...)
	if len(entries) > MaxHistory {
		entries = entries[:MaxHistory]
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("prefs: encode history: %w", err)
	}
	if err := h.store.Set(ctx, h.namespace, storage.KeyReadingHistory, string(raw)); err != nil {
		return fmt.Errorf("prefs: save history: %w", err)
	}
	return nil
}

// Clear removes the history.
func (h *History) Clear(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.store.Delete(ctx, h.namespace, storage.KeyReadingHistory); err != nil {
		return fmt.Errorf("prefs: clear history: %w", err)
	}
	return nil
}

func (h *History) load(ctx context.Context) []Entry {
	raw, ok, err := h.store.Get(ctx, h.namespace, storage.KeyReadingHistory)
	if err != nil {
		h.logger.Warn("read history", zap.String("visitor", h.namespace), zap.Error(err))
		return []Entry{}
	}
	if !ok || raw == "" {
		return []Entry{}
	}
	var entries []Entry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		h.logger.Warn("malformed reading history", zap.String("visitor", h.namespace), zap.Error(err))
		return []Entry{}
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].ViewedAt.After(entries[j].ViewedAt) })
	return entries
}
