// Package cms serves the localized static pages (about, privacy, faq, ...)
// from markdown files with YAML front matter.
package cms

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"kabaranime.id/portal/internal/i18n"
	"kabaranime.id/portal/internal/markup"
)

// ErrNotFound is returned when no language variant of a page exists.
var ErrNotFound = errors.New("cms: not found")

// ContentPage represents a localized static page.
type ContentPage struct {
	Slug      string
	Lang      i18n.Language
	Title     string
	Summary   string
	Body      template.HTML
	Format    string // "markdown" (default) or "html"
	UpdatedAt time.Time
	Icon      string
	Banner    *ContentBanner
	SEO       ContentSEO
	// Fallback is set when the page was served in another language than requested.
	Fallback bool
}

// ContentSEO holds optional metadata overrides for static pages.
type ContentSEO struct {
	Title       string
	Description string
}

// ContentBanner models an optional banner/alert displayed above the body.
type ContentBanner struct {
	Variant  string
	Title    string
	Message  string
	LinkText string
	LinkURL  string
}

type contentFrontMatter struct {
	Title     string                    `yaml:"title"`
	Summary   string                    `yaml:"summary"`
	Format    string                    `yaml:"format"`
	UpdatedAt string                    `yaml:"updated_at"`
	Icon      string                    `yaml:"icon"`
	SEO       contentFrontMatterSEO     `yaml:"seo"`
	Banner    *contentFrontMatterBanner `yaml:"banner"`
}

type contentFrontMatterSEO struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
}

type contentFrontMatterBanner struct {
	Variant  string `yaml:"variant"`
	Title    string `yaml:"title"`
	Message  string `yaml:"message"`
	LinkText string `yaml:"link_text"`
	LinkURL  string `yaml:"link_url"`
}

const (
	defaultContentFormat = "markdown"
	defaultCacheTTL      = 5 * time.Minute
)

// Store reads pages from <dir>/pages/<lang>/<slug>.md and caches them.
type Store struct {
	dir      string
	renderer *markup.Renderer
	ttl      time.Duration
	now      func() time.Time

	mu    sync.RWMutex
	items map[string]contentCacheEntry
}

type contentCacheEntry struct {
	page    ContentPage
	expires time.Time
}

// NewStore creates a Store rooted at dir. ttl <= 0 uses five minutes.
func NewStore(dir string, r *markup.Renderer, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	if r == nil {
		r = markup.New()
	}
	return &Store{dir: dir, renderer: r, ttl: ttl, now: time.Now, items: map[string]contentCacheEntry{}}
}

// Dir returns the content root.
func (s *Store) Dir() string { return s.dir }

// GetContentPage returns slug in lang, falling back to Indonesian and then English.
func (s *Store) GetContentPage(ctx context.Context, slug string, lang i18n.Language) (ContentPage, error) {
	slug = sanitizeSlug(slug)
	if slug == "" {
		return ContentPage{}, ErrNotFound
	}
	if !lang.Valid() {
		lang = i18n.Default
	}
	key := string(lang) + "|" + slug
	if page, ok := s.cached(key); ok {
		return page, nil
	}
	if err := ctx.Err(); err != nil {
		return ContentPage{}, err
	}
	page, err := s.fallbackContentPage(slug, lang)
	if err != nil {
		return ContentPage{}, err
	}
	s.store(key, page)
	return cloneContentPage(page), nil
}

// Invalidate drops every cached page, e.g. after content files change.
func (s *Store) Invalidate() {
	s.mu.Lock()
	s.items = map[string]contentCacheEntry{}
	s.mu.Unlock()
}

func (s *Store) fallbackContentPage(slug string, lang i18n.Language) (ContentPage, error) {
	priority := []i18n.Language{lang}
	for _, l := range []i18n.Language{i18n.Indonesian, i18n.English} {
		if l != lang {
			priority = append(priority, l)
		}
	}
	for _, candidate := range priority {
		page, err := s.readContentMarkdown(slug, candidate)
		if err == nil {
			page.Fallback = candidate != lang
			return page, nil
		}
		if errors.Is(err, ErrNotFound) {
			continue
		}
		// parse errors stop the search
		return ContentPage{}, err
	}
	return ContentPage{}, ErrNotFound
}

func (s *Store) readContentMarkdown(slug string, lang i18n.Language) (ContentPage, error) {
	file := filepath.Join(s.dir, "pages", string(lang), slug+".md")
	data, err := os.ReadFile(file)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ContentPage{}, ErrNotFound
		}
		return ContentPage{}, err
	}
	fm, body := splitFrontMatter(string(data))
	front := contentFrontMatter{}
	if strings.TrimSpace(fm) != "" {
		if err := yaml.Unmarshal([]byte(fm), &front); err != nil {
			return ContentPage{}, fmt.Errorf("cms: parse front matter %s: %w", file, err)
		}
	}
	page := ContentPage{
		Slug:    slug,
		Lang:    lang,
		Title:   strings.TrimSpace(front.Title),
		Summary: strings.TrimSpace(front.Summary),
		Format:  strings.TrimSpace(front.Format),
		Icon:    strings.TrimSpace(front.Icon),
		SEO: ContentSEO{
			Title:       strings.TrimSpace(front.SEO.Title),
			Description: strings.TrimSpace(front.SEO.Description),
		},
	}
	if page.Format == "" {
		page.Format = defaultContentFormat
	}
	switch page.Format {
	case "html":
		page.Body = template.HTML(s.renderer.SanitizeHTML(body))
	default:
		rendered, err := s.renderer.Render(body)
		if err != nil {
			return ContentPage{}, fmt.Errorf("cms: render %s: %w", file, err)
		}
		page.Body = rendered
	}
	if front.Banner != nil {
		page.Banner = &ContentBanner{
			Variant:  strings.TrimSpace(front.Banner.Variant),
			Title:    strings.TrimSpace(front.Banner.Title),
			Message:  strings.TrimSpace(front.Banner.Message),
			LinkText: strings.TrimSpace(front.Banner.LinkText),
			LinkURL:  strings.TrimSpace(front.Banner.LinkURL),
		}
	}
	page.UpdatedAt = parseContentDate(front.UpdatedAt)
	if page.UpdatedAt.IsZero() {
		if info, err := os.Stat(file); err == nil {
			page.UpdatedAt = info.ModTime()
		}
	}
	if page.Title == "" {
		page.Title = prettifySlug(slug)
	}
	if page.Summary == "" {
		page.Summary = markup.Excerpt(markup.PlainText(string(page.Body)), 160)
	}
	return page, nil
}

func splitFrontMatter(input string) (string, string) {
	input = strings.TrimLeft(input, "\ufeff")
	lines := strings.Split(input, "\n")
	if strings.TrimSpace(lines[0]) != "---" {
		return "", input
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			fm := strings.Join(lines[1:i], "\n")
			body := strings.Join(lines[i+1:], "\n")
			return fm, strings.TrimLeft(body, "\n\r")
		}
	}
	return "", input
}

func parseContentDate(v string) time.Time {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02", "2006/01/02", "2006-1-2"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t
		}
	}
	return time.Time{}
}

func prettifySlug(slug string) string {
	parts := strings.Split(strings.TrimSpace(slug), "-")
	for i, part := range parts {
		if part == "" {
			continue
		}
		runes := []rune(part)
		runes[0] = asciiUpper(runes[0])
		parts[i] = string(runes)
	}
	return strings.Join(parts, " ")
}

func sanitizeSlug(slug string) string {
	slug = strings.Trim(strings.TrimSpace(strings.ToLower(slug)), "/")
	if slug == "" || strings.Contains(slug, "..") || strings.ContainsAny(slug, `/\`) {
		return ""
	}
	return slug
}

func (s *Store) cached(key string) (ContentPage, bool) {
	now := s.now()
	s.mu.RLock()
	entry, ok := s.items[key]
	s.mu.RUnlock()
	if !ok || now.After(entry.expires) {
		return ContentPage{}, false
	}
	return cloneContentPage(entry.page), true
}

func (s *Store) store(key string, page ContentPage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = contentCacheEntry{page: cloneContentPage(page), expires: s.now().Add(s.ttl)}
}

func cloneContentPage(src ContentPage) ContentPage {
	cp := src
	if src.Banner != nil {
		b := *src.Banner
		cp.Banner = &b
	}
	return cp
}

func asciiUpper(r rune) rune {
	if r >= 'a' && r <= 'z' {
		return r - ('a' - 'A')
	}
	return r
}
