package seo

import (
	"encoding/json"
)

// JSON marshals v to a compact JSON string. It returns an empty string on error.
func JSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// Organization returns a minimal Organization schema.
func Organization(name, url, logoURL string) map[string]any {
	m := map[string]any{
		"@context": "https://schema.org",
		"@type":    "Organization",
		"name":     name,
	}
	if url != "" {
		m["url"] = url
	}
	if logoURL != "" {
		m["logo"] = logoURL
	}
	return m
}

// WebSite returns a minimal WebSite schema with optional SearchAction.
func WebSite(name, url, searchActionURL string) map[string]any {
	m := map[string]any{
		"@context": "https://schema.org",
		"@type":    "WebSite",
		"name":     name,
	}
	if url != "" {
		m["url"] = url
	}
	if searchActionURL != "" {
		m["potentialAction"] = map[string]any{
			"@type":       "SearchAction",
			"target":      searchActionURL + "{search_term_string}",
			"query-input": "required name=search_term_string",
		}
	}
	return m
}

// BreadcrumbItem maps name and absolute item URL.
type BreadcrumbItem struct {
	Name string
	Item string
}

// BreadcrumbList builds schema.org BreadcrumbList.
func BreadcrumbList(items []BreadcrumbItem) map[string]any {
	el := make([]map[string]any, 0, len(items))
	for i, it := range items {
		el = append(el, map[string]any{
			"@type":    "ListItem",
			"position": i + 1,
			"name":     it.Name,
			"item":     it.Item,
		})
	}
	return map[string]any{
		"@context":        "https://schema.org",
		"@type":           "BreadcrumbList",
		"itemListElement": el,
	}
}

// NewsArticle describes an article page.
type NewsArticle struct {
	Headline      string
	Description   string
	URL           string
	Image         string
	Author        string
	Section       string
	Keywords      []string
	Language      string
	DatePublished string
}

// Article returns a NewsArticle schema payload.
func Article(a NewsArticle) map[string]any {
	m := map[string]any{
		"@context": "https://schema.org",
		"@type":    "NewsArticle",
		"headline": a.Headline,
	}
	if a.Description != "" {
		m["description"] = a.Description
	}
	if a.URL != "" {
		m["url"] = a.URL
		m["mainEntityOfPage"] = a.URL
	}
	if a.Image != "" {
		m["image"] = a.Image
	}
	if a.Author != "" {
		m["author"] = map[string]any{"@type": "Person", "name": a.Author}
	}
	if a.Section != "" {
		m["articleSection"] = a.Section
	}
	if len(a.Keywords) > 0 {
		m["keywords"] = a.Keywords
	}
	if a.Language != "" {
		m["inLanguage"] = a.Language
	}
	if a.DatePublished != "" {
		m["datePublished"] = a.DatePublished
	}
	return m
}

// CollectionPage describes a listing page such as a category or tag.
func CollectionPage(name, url string, itemURLs []string) map[string]any {
	items := make([]map[string]any, 0, len(itemURLs))
	for i, u := range itemURLs {
		items = append(items, map[string]any{"@type": "ListItem", "position": i + 1, "url": u})
	}
	return map[string]any{
		"@context": "https://schema.org",
		"@type":    "CollectionPage",
		"name":     name,
		"url":      url,
		"mainEntity": map[string]any{
			"@type":           "ItemList",
			"itemListElement": items,
		},
	}
}
