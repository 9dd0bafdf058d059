package catalog

import (
	"errors"
	"fmt"
	"html/template"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"kabaranime.id/portal/internal/i18n"
	"kabaranime.id/portal/internal/markup"
)

// ErrNotFound is returned when a category or article lookup misses.
var ErrNotFound = errors.New("catalog: not found")

// Catalog is the immutable, shared article set.
type Catalog struct {
	articles []Article
	byPath   map[string]int
	seeds    map[string][]SeedComment
}

// SeedComment is a comment bundled with the catalog file.
type SeedComment struct {
	Author    string    `yaml:"author"`
	Body      string    `yaml:"body"`
	Likes     int       `yaml:"likes"`
	CreatedAt time.Time `yaml:"created_at"`
}

type articleFile struct {
	Articles []articleRecord `yaml:"articles"`
}

type articleRecord struct {
	ID          string            `yaml:"id"`
	Slug        string            `yaml:"slug"`
	Category    string            `yaml:"category"`
	Author      string            `yaml:"author"`
	Thumbnail   string            `yaml:"thumbnail"`
	Tags        []string          `yaml:"tags"`
	PublishedAt time.Time         `yaml:"published_at"`
	Likes       int               `yaml:"likes"`
	Comments    int               `yaml:"comments"`
	Views       int               `yaml:"views"`
	Featured    bool              `yaml:"featured"`
	Title       map[string]string `yaml:"title"`
	Excerpt     map[string]string `yaml:"excerpt"`
	Body        map[string]string `yaml:"body"`
	Thread      []SeedComment     `yaml:"thread"`
}

// LoadFile reads a YAML catalog and renders article bodies with r.
func LoadFile(path string, r *markup.Renderer) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	return Parse(raw, r)
}

// Parse decodes a YAML catalog document.
func Parse(raw []byte, r *markup.Renderer) (*Catalog, error) {
	var doc articleFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("catalog: decode: %w", err)
	}
	articles := make([]Article, 0, len(doc.Articles))
	seeds := make(map[string][]SeedComment)
	for i, rec := range doc.Articles {
		a, err := rec.toArticle(r)
		if err != nil {
			return nil, fmt.Errorf("catalog: article %d: %w", i, err)
		}
		articles = append(articles, a)
		if len(rec.Thread) > 0 {
			seeds[a.ID] = rec.Thread
		}
	}
	c, err := New(articles)
	if err != nil {
		return nil, err
	}
	c.seeds = seeds
	return c, nil
}

func (rec articleRecord) toArticle(r *markup.Renderer) (Article, error) {
	cat, ok := ParseCategory(rec.Category)
	if !ok {
		return Article{}, fmt.Errorf("unknown category %q", rec.Category)
	}
	a := Article{
		ID:             rec.ID,
		Slug:           rec.Slug,
		Category:       cat,
		Author:         rec.Author,
		Thumbnail:      rec.Thumbnail,
		Tags:           rec.Tags,
		PublishedAt:    rec.PublishedAt,
		Likes:          rec.Likes,
		CommentCount:   rec.Comments,
		Views:          rec.Views,
		Featured:       rec.Featured,
		Title:          localized(rec.Title),
		Excerpt:        localized(rec.Excerpt),
		Body:           make(map[i18n.Language]template.HTML, len(rec.Body)),
		ReadingMinutes: make(map[i18n.Language]int, len(rec.Body)),
	}
	for code, src := range rec.Body {
		lang, ok := i18n.ParseLanguage(code)
		if !ok {
			continue
		}
		body, err := r.Render(src)
		if err != nil {
			return Article{}, err
		}
		a.Body[lang] = body
		text := markup.PlainText(string(body))
		a.ReadingMinutes[lang] = markup.ReadingMinutes(text)
		if a.Excerpt[lang] == "" {
			a.Excerpt[lang] = markup.Excerpt(text, 160)
		}
	}
	return a, nil
}

func localized(m map[string]string) Localized {
	out := make(Localized, len(m))
	for code, v := range m {
		if lang, ok := i18n.ParseLanguage(code); ok {
			out[lang] = strings.TrimSpace(v)
		}
	}
	return out
}

// New indexes articles, rejecting missing ids and duplicate paths.
func New(articles []Article) (*Catalog, error) {
	c := &Catalog{
		articles: make([]Article, 0, len(articles)),
		byPath:   make(map[string]int, len(articles)),
		seeds:    map[string][]SeedComment{},
	}
	ids := make(map[string]struct{}, len(articles))
	for _, a := range articles {
		if a.ID == "" || a.Slug == "" {
			return nil, fmt.Errorf("catalog: article %q missing id or slug", a.Slug)
		}
		if _, dup := ids[a.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate id %q", a.ID)
		}
		if _, dup := c.byPath[a.Path()]; dup {
			return nil, fmt.Errorf("catalog: duplicate path %q", a.Path())
		}
		ids[a.ID] = struct{}{}
		c.byPath[a.Path()] = len(c.articles)
		c.articles = append(c.articles, cloneArticle(a))
	}
	return c, nil
}

// All returns every article in file order.
func (c *Catalog) All() []Article {
	out := make([]Article, len(c.articles))
	copy(out, c.articles)
	return out
}

// Len is the number of articles.
func (c *Catalog) Len() int { return len(c.articles) }

// ByCategory returns the articles of one category in file order.
func (c *Catalog) ByCategory(cat Category) []Article {
	var out []Article
	for _, a := range c.articles {
		if a.Category == cat {
			out = append(out, a)
		}
	}
	return out
}

// Article looks up one article by category and slug.
func (c *Catalog) Article(cat Category, slug string) (Article, error) {
	idx, ok := c.byPath["/"+string(cat)+"/"+slug]
	if !ok {
		return Article{}, ErrNotFound
	}
	return c.articles[idx], nil
}

// ByTag returns articles carrying tag, newest first.
func (c *Catalog) ByTag(tag string) []Article {
	var out []Article
	for _, a := range c.articles {
		if a.HasTag(tag) {
			out = append(out, a)
		}
	}
	return Sort(out, SortNewest)
}

// TagCount is a tag with the number of articles using it.
type TagCount struct {
	Tag   string
	Count int
}

// Tags lists every tag by descending use, then alphabetically.
func (c *Catalog) Tags() []TagCount {
	counts := make(map[string]int)
	for _, a := range c.articles {
		for _, t := range a.Tags {
			counts[t]++
		}
	}
	out := make([]TagCount, 0, len(counts))
	for t, n := range counts {
		out = append(out, TagCount{Tag: t, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Tag < out[j].Tag
	})
	return out
}

// Featured returns featured articles, newest first.
func (c *Catalog) Featured() []Article {
	var out []Article
	for _, a := range c.articles {
		if a.Featured {
			out = append(out, a)
		}
	}
	return Sort(out, SortNewest)
}

// Latest returns up to n articles, newest first.
func (c *Catalog) Latest(n int) []Article {
	return head(Sort(c.articles, SortNewest), n)
}

// Trending returns up to n articles by trending score.
func (c *Catalog) Trending(n int) []Article {
	return head(Sort(c.articles, SortTrending), n)
}

// Related returns up to n articles sharing the category or a tag with a.
func (c *Catalog) Related(a Article, n int) []Article {
	var out []Article
	for _, other := range Sort(c.articles, SortNewest) {
		if other.ID == a.ID {
			continue
		}
		if other.Category == a.Category || sharesTag(a, other) {
			out = append(out, other)
		}
	}
	return head(out, n)
}

// Seeds returns the bundled comments of an article.
func (c *Catalog) Seeds(articleID string) []SeedComment {
	return append([]SeedComment(nil), c.seeds[articleID]...)
}

func sharesTag(a, b Article) bool {
	for _, t := range a.Tags {
		if b.HasTag(t) {
			return true
		}
	}
	return false
}

func head(items []Article, n int) []Article {
	if n >= 0 && len(items) > n {
		return items[:n]
	}
	return items
}
