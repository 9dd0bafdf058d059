// Package nav builds the header navigation, footer links and breadcrumbs.
package nav

import (
	"path"
	"strings"

	"kabaranime.id/portal/internal/catalog"
)

// Item represents a top-level navigation item.
type Item struct {
	Path     string // e.g. "/anime"
	LabelKey string // i18n key, e.g. "category.anime"
}

// RenderedItem is a view model for templates.
type RenderedItem struct {
	Href     string
	LabelKey string
	Active   bool
}

// Crumb represents a breadcrumb entry. If LabelKey is empty, use Label.
type Crumb struct {
	Href     string
	LabelKey string
	Label    string
	Active   bool
}

// FooterGroup is a titled column of footer links.
type FooterGroup struct {
	TitleKey string
	Items    []Item
}

// Main is the primary navigation definition: home, every category, tags.
var Main = func() []Item {
	items := []Item{{Path: "/", LabelKey: "nav.home"}}
	for _, c := range catalog.Categories {
		items = append(items, Item{Path: c.Path(), LabelKey: c.LabelKey()})
	}
	return append(items, Item{Path: "/tags", LabelKey: "nav.tags"})
}()

// Footer lists the static pages grouped as in the site footer.
var Footer = []FooterGroup{
	{TitleKey: "footer.group.company", Items: []Item{
		{Path: "/about", LabelKey: "footer.about"},
		{Path: "/contact", LabelKey: "footer.contact"},
		{Path: "/faq", LabelKey: "footer.faq"},
	}},
	{TitleKey: "footer.group.legal", Items: []Item{
		{Path: "/privacy", LabelKey: "footer.privacy"},
		{Path: "/terms", LabelKey: "footer.terms"},
		{Path: "/disclaimer", LabelKey: "footer.disclaimer"},
	}},
	{TitleKey: "footer.group.support", Items: []Item{
		{Path: "/help", LabelKey: "footer.help"},
		{Path: "/report-bug", LabelKey: "footer.report_bug"},
		{Path: "/feature-request", LabelKey: "footer.feature_request"},
	}},
}

// sections maps top-level path segments that are not categories to labels.
var sections = map[string]string{
	"tags":            "nav.tags",
	"tag":             "nav.tags",
	"search":          "nav.search",
	"settings":        "nav.settings",
	"notifications":   "nav.notifications",
	"login":           "nav.login",
	"about":           "footer.about",
	"privacy":         "footer.privacy",
	"terms":           "footer.terms",
	"disclaimer":      "footer.disclaimer",
	"contact":         "footer.contact",
	"faq":             "footer.faq",
	"help":            "footer.help",
	"report-bug":      "footer.report_bug",
	"feature-request": "footer.feature_request",
}

// Build renders navigation items with active state given the current path.
func Build(currentPath string) []RenderedItem {
	if currentPath == "" {
		currentPath = "/"
	}
	items := make([]RenderedItem, 0, len(Main))
	for _, it := range Main {
		items = append(items, RenderedItem{
			Href:     it.Path,
			LabelKey: it.LabelKey,
			Active:   isActive(it.Path, currentPath),
		})
	}
	return items
}

func isActive(itemPath, currentPath string) bool {
	if itemPath == "/" {
		return currentPath == "/"
	}
	// "/tags" also covers "/tag/<name>"
	if itemPath == "/tags" && strings.HasPrefix(currentPath, "/tag/") {
		return true
	}
	return currentPath == itemPath || strings.HasPrefix(currentPath, itemPath+"/")
}

// Breadcrumbs builds breadcrumb entries from the current path. The first
// segment uses a label key when it is a category or known section; deeper
// segments get a prettified label that handlers may replace (see WithLast).
func Breadcrumbs(currentPath string) []Crumb {
	if currentPath == "" {
		currentPath = "/"
	}
	crumbs := []Crumb{{Href: "/", LabelKey: "nav.home", Active: currentPath == "/"}}
	if currentPath == "/" {
		return crumbs
	}

	clean := path.Clean(currentPath)
	parts := strings.Split(strings.TrimPrefix(clean, "/"), "/")
	if parts[0] == "" {
		return crumbs
	}

	top := parts[0]
	labelKey := sections[top]
	href := "/" + top
	if c, ok := catalog.ParseCategory(top); ok {
		labelKey = c.LabelKey()
	}
	if top == "tag" {
		href = "/tags"
	}
	crumbs = append(crumbs, Crumb{Href: href, LabelKey: labelKey, Label: titleFromSegment(top), Active: len(parts) == 1})

	acc := "/" + top
	for i := 1; i < len(parts); i++ {
		acc += "/" + parts[i]
		crumbs = append(crumbs, Crumb{
			Href:   acc,
			Label:  titleFromSegment(parts[i]),
			Active: i == len(parts)-1,
		})
	}
	return crumbs
}

// WithLast replaces the label of the final crumb, e.g. with an article title.
func WithLast(crumbs []Crumb, label string) []Crumb {
	if len(crumbs) == 0 || label == "" {
		return crumbs
	}
	out := append([]Crumb(nil), crumbs...)
	out[len(out)-1].LabelKey = ""
	out[len(out)-1].Label = label
	return out
}

func titleFromSegment(seg string) string {
	if seg == "" {
		return seg
	}
	s := strings.ReplaceAll(seg, "-", " ")
	s = strings.ReplaceAll(s, "_", " ")
	r := []rune(s)
	r[0] = toUpper(r[0])
	return string(r)
}

func toUpper(r rune) rune {
	if r >= 'a' && r <= 'z' {
		return r - ('a' - 'A')
	}
	return r
}
