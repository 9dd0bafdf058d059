package catalog

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	// ErrEmptyComment is returned when a comment body is blank after sanitizing.
	ErrEmptyComment = errors.New("catalog: empty comment")
	// ErrCommentNotFound is returned when a like targets an unknown comment.
	ErrCommentNotFound = errors.New("catalog: comment not found")
)

// Comment is one entry of an article thread as seen by a visitor.
type Comment struct {
	ID        string
	ArticleID string
	Author    string
	Body      string
	CreatedAt time.Time
	Likes     int
	Liked     bool
}

type comment struct {
	Comment
	likedBy map[string]struct{}
}

// Sanitizer strips markup from user input.
type Sanitizer interface {
	Sanitize(string) string
}

// Thread holds the comments of one article. Likes are tracked per visitor.
type Thread struct {
	mu        sync.Mutex
	articleID string
	comments  []*comment
	sanitizer Sanitizer
	now       func() time.Time
}

// NewThread creates a thread seeded with bundled comments.
func NewThread(articleID string, seeds []SeedComment, s Sanitizer, now func() time.Time) *Thread {
	if now == nil {
		now = time.Now
	}
	t := &Thread{articleID: articleID, sanitizer: s, now: now}
	for _, sc := range seeds {
		t.comments = append(t.comments, &comment{
			Comment: Comment{
				ID:        ulid.Make().String(),
				ArticleID: articleID,
				Author:    sc.Author,
				Body:      sc.Body,
				CreatedAt: sc.CreatedAt,
				Likes:     sc.Likes,
			},
			likedBy: map[string]struct{}{},
		})
	}
	return t
}

// Add appends a comment. A blank body leaves the thread unchanged and
// returns ErrEmptyComment. A blank author is stored as anonymous.
func (t *Thread) Add(author, body string) (Comment, error) {
	if t.sanitizer != nil {
		body = t.sanitizer.Sanitize(body)
		author = t.sanitizer.Sanitize(author)
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return Comment{}, ErrEmptyComment
	}
	c := &comment{
		Comment: Comment{
			ID:        ulid.Make().String(),
			ArticleID: t.articleID,
			Author:    strings.TrimSpace(author),
			Body:      body,
			CreatedAt: t.now(),
		},
		likedBy: map[string]struct{}{},
	}
	t.mu.Lock()
	t.comments = append(t.comments, c)
	t.mu.Unlock()
	return c.Comment, nil
}

// ToggleLike flips visitor's like on comment id and returns the result.
func (t *Thread) ToggleLike(id, visitor string) (Comment, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, c := range t.comments {
		if c.ID != id {
			continue
		}
		if _, liked := c.likedBy[visitor]; liked {
			delete(c.likedBy, visitor)
			c.Likes--
		} else {
			c.likedBy[visitor] = struct{}{}
			c.Likes++
		}
		return c.view(visitor), nil
	}
	return Comment{}, ErrCommentNotFound
}

// List returns the comments newest first with visitor's like flags.
func (t *Thread) List(visitor string) []Comment {
	t.mu.Lock()
	out := make([]Comment, 0, len(t.comments))
	for _, c := range t.comments {
		out = append(out, c.view(visitor))
	}
	t.mu.Unlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// Len is the number of comments.
func (t *Thread) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.comments)
}

func (c *comment) view(visitor string) Comment {
	v := c.Comment
	_, v.Liked = c.likedBy[visitor]
	return v
}

// Board owns the comment threads of every article, created on first use.
type Board struct {
	mu        sync.Mutex
	catalog   *Catalog
	threads   map[string]*Thread
	sanitizer Sanitizer
	now       func() time.Time
}

// NewBoard creates a Board over c.
func NewBoard(c *Catalog, s Sanitizer, now func() time.Time) *Board {
	return &Board{catalog: c, threads: map[string]*Thread{}, sanitizer: s, now: now}
}

// Thread returns the thread of articleID.
func (b *Board) Thread(articleID string) *Thread {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.threads[articleID]
	if !ok {
		var seeds []SeedComment
		if b.catalog != nil {
			seeds = b.catalog.Seeds(articleID)
		}
		t = NewThread(articleID, seeds, b.sanitizer, b.now)
		b.threads[articleID] = t
	}
	return t
}
