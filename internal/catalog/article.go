package catalog

import (
	"html/template"
	"time"

	"kabaranime.id/portal/internal/i18n"
)

// Localized holds one string per language.
type Localized map[i18n.Language]string

// Get returns the value for lang, falling back to the other language.
func (l Localized) Get(lang i18n.Language) string {
	if v := l[lang]; v != "" {
		return v
	}
	if v := l[i18n.Default]; v != "" {
		return v
	}
	return l[lang.Other()]
}

// Article is a published news item.
type Article struct {
	ID           string
	Slug         string
	Category     Category
	Author       string
	Thumbnail    string
	Tags         []string
	PublishedAt  time.Time
	Likes        int
	CommentCount int
	Views        int
	Featured     bool

	Title   Localized
	Excerpt Localized
	// Body is sanitized HTML rendered from markdown at load time.
	Body           map[i18n.Language]template.HTML
	ReadingMinutes map[i18n.Language]int
}

// Path is the article URL.
func (a Article) Path() string { return "/" + string(a.Category) + "/" + a.Slug }

// TrendingScore weighs comments twice as much as likes.
func (a Article) TrendingScore() int { return a.Likes + 2*a.CommentCount }

// BodyHTML returns the rendered body for lang with language fallback.
func (a Article) BodyHTML(lang i18n.Language) template.HTML {
	if b, ok := a.Body[lang]; ok && b != "" {
		return b
	}
	if b, ok := a.Body[i18n.Default]; ok && b != "" {
		return b
	}
	return a.Body[lang.Other()]
}

// Reading returns the reading-time estimate in minutes for lang.
func (a Article) Reading(lang i18n.Language) int {
	if m, ok := a.ReadingMinutes[lang]; ok && m > 0 {
		return m
	}
	return 1
}

// HasTag reports whether the article carries tag.
func (a Article) HasTag(tag string) bool {
	for _, t := range a.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

func cloneArticle(a Article) Article {
	c := a
	if a.Tags != nil {
		c.Tags = append([]string(nil), a.Tags...)
	}
	return c
}
