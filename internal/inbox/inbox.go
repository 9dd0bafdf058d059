// Package inbox keeps the notification feed shown on the notifications page.
package inbox

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"kabaranime.id/portal/internal/i18n"
)

// ErrNotFound is returned when an id is not in the feed.
var ErrNotFound = errors.New("inbox: notification not found")

// Kind classifies a notification.
type Kind string

const (
	KindNewArticle   Kind = "new_article"
	KindCommentReply Kind = "comment_reply"
	KindSystem       Kind = "system"
)

// Filter selects which notifications List returns.
type Filter string

const (
	FilterAll    Filter = "all"
	FilterUnread Filter = "unread"
)

// ParseFilter maps a query value onto a Filter; unknown values yield all.
func ParseFilter(s string) Filter {
	if Filter(s) == FilterUnread {
		return FilterUnread
	}
	return FilterAll
}

// Item is one notification as stored in the feed file.
type Item struct {
	ID        string                   `yaml:"id"`
	Kind      Kind                     `yaml:"kind"`
	Title     map[i18n.Language]string `yaml:"title"`
	Message   map[i18n.Language]string `yaml:"message"`
	Link      string                   `yaml:"link"`
	CreatedAt time.Time                `yaml:"created_at"`
}

// Notification is an item localized for display with its read flag.
type Notification struct {
	ID        string
	Kind      Kind
	Title     string
	Message   string
	Link      string
	CreatedAt time.Time
	Read      bool
}

// Feed is the shared, immutable list of notifications.
type Feed struct {
	items []Item
}

// LoadFeed reads a YAML feed file.
func LoadFeed(path string) (*Feed, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("inbox: read %s: %w", path, err)
	}
	var doc struct {
		Notifications []Item `yaml:"notifications"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("inbox: decode %s: %w", path, err)
	}
	return NewFeed(doc.Notifications), nil
}

// NewFeed sorts items newest first.
func NewFeed(items []Item) *Feed {
	sorted := append([]Item(nil), items...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].CreatedAt.After(sorted[j].CreatedAt) })
	return &Feed{items: sorted}
}

// Inbox is one visitor's view of the feed.
type Inbox struct {
	mu   sync.Mutex
	feed *Feed
	read map[string]bool
}

// New creates an inbox with nothing read.
func New(feed *Feed) *Inbox {
	if feed == nil {
		feed = NewFeed(nil)
	}
	return &Inbox{feed: feed, read: map[string]bool{}}
}

// List returns notifications in lang matching f, newest first.
func (in *Inbox) List(lang i18n.Language, f Filter) []Notification {
	in.mu.Lock()
	defer in.mu.Unlock()
	out := make([]Notification, 0, len(in.feed.items))
	for _, it := range in.feed.items {
		read := in.read[it.ID]
		if f == FilterUnread && read {
			continue
		}
		out = append(out, Notification{
			ID:        it.ID,
			Kind:      it.Kind,
			Title:     localize(it.Title, lang),
			Message:   localize(it.Message, lang),
			Link:      it.Link,
			CreatedAt: it.CreatedAt,
			Read:      read,
		})
	}
	return out
}

// Unread counts notifications not yet read.
func (in *Inbox) Unread() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	n := 0
	for _, it := range in.feed.items {
		if !in.read[it.ID] {
			n++
		}
	}
	return n
}

// MarkRead flags one notification as read.
func (in *Inbox) MarkRead(id string) error {
	in.mu.Lock()
	defer in.mu.Unlock()
	for _, it := range in.feed.items {
		if it.ID == id {
			in.read[id] = true
			return nil
		}
	}
	return ErrNotFound
}

// MarkAllRead flags every notification as read and returns how many changed.
func (in *Inbox) MarkAllRead() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	n := 0
	for _, it := range in.feed.items {
		if !in.read[it.ID] {
			in.read[it.ID] = true
			n++
		}
	}
	return n
}

func localize(m map[i18n.Language]string, lang i18n.Language) string {
	if v := m[lang]; v != "" {
		return v
	}
	if v := m[i18n.Default]; v != "" {
		return v
	}
	return m[lang.Other()]
}
