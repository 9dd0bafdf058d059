// Package router maps request paths onto page identifiers. It knows nothing about
// content: whether a category or article exists is decided by the page itself.
package router

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

// PageID identifies a page component.
type PageID string

const (
	PageHome           PageID = "home"
	PageCategory       PageID = "category"
	PageArticle        PageID = "article"
	PageTags           PageID = "tags"
	PageTag            PageID = "tag"
	PageSearch         PageID = "search"
	PageSettings       PageID = "settings"
	PageNotifications  PageID = "notifications"
	PageLogin          PageID = "login"
	PageAbout          PageID = "about"
	PagePrivacy        PageID = "privacy"
	PageTerms          PageID = "terms"
	PageDisclaimer     PageID = "disclaimer"
	PageContact        PageID = "contact"
	PageFAQ            PageID = "faq"
	PageHelp           PageID = "help"
	PageReportBug      PageID = "report-bug"
	PageFeatureRequest PageID = "feature-request"
	PageNotFound       PageID = "not-found"
)

// Params holds named segment values.
type Params map[string]string

// Get returns the value of a named segment or "".
func (p Params) Get(name string) string { return p[name] }

// Route maps a pattern such as "/:category/:slug" to a page.
type Route struct {
	Pattern string
	Page    PageID

	segments []segment
}

type segment struct {
	value string
	param bool
}

// Match is the result of resolving a path.
type Match struct {
	Page     PageID
	Params   Params
	Pattern  string
	Path     string // normalized path
	RawQuery string
}

// Query parses the raw query string. Pages own their query parameters.
func (m Match) Query() url.Values {
	v, err := url.ParseQuery(m.RawQuery)
	if err != nil {
		return url.Values{}
	}
	return v
}

// URL returns the normalized path with the original query string.
func (m Match) URL() string {
	if m.RawQuery == "" {
		return m.Path
	}
	return m.Path + "?" + m.RawQuery
}

// Table is an ordered list of routes; the first matching route wins.
type Table struct {
	routes []Route
}

// NewTable compiles the patterns. Routes must be ordered most specific first.
func NewTable(routes ...Route) (*Table, error) {
	t := &Table{routes: make([]Route, 0, len(routes))}
	seen := map[string]struct{}{}
	for _, r := range routes {
		if !strings.HasPrefix(r.Pattern, "/") {
			return nil, fmt.Errorf("router: pattern %q must start with /", r.Pattern)
		}
		if r.Page == "" {
			return nil, fmt.Errorf("router: pattern %q has no page", r.Pattern)
		}
		if _, dup := seen[r.Pattern]; dup {
			return nil, fmt.Errorf("router: duplicate pattern %q", r.Pattern)
		}
		seen[r.Pattern] = struct{}{}
		r.segments = nil
		for _, part := range splitPath(r.Pattern) {
			if strings.HasPrefix(part, ":") {
				name := strings.TrimPrefix(part, ":")
				if name == "" {
					return nil, fmt.Errorf("router: empty parameter name in %q", r.Pattern)
				}
				r.segments = append(r.segments, segment{value: name, param: true})
				continue
			}
			r.segments = append(r.segments, segment{value: part})
		}
		t.routes = append(t.routes, r)
	}
	return t, nil
}

// MustNewTable is NewTable that panics on invalid patterns.
func MustNewTable(routes ...Route) *Table {
	t, err := NewTable(routes...)
	if err != nil {
		panic(err)
	}
	return t
}

// Routes returns the routes in match order.
func (t *Table) Routes() []Route {
	out := make([]Route, len(t.routes))
	copy(out, t.routes)
	return out
}

// Resolve maps a raw path (optionally carrying a query string) to a page.
// Unmatched paths resolve to PageNotFound.
func (t *Table) Resolve(raw string) Match {
	p, q := Normalize(raw)
	parts := splitPath(p)
	for _, r := range t.routes {
		if params, ok := r.match(parts); ok {
			return Match{Page: r.Page, Params: params, Pattern: r.Pattern, Path: p, RawQuery: q}
		}
	}
	return Match{Page: PageNotFound, Params: Params{}, Path: p, RawQuery: q}
}

func (r Route) match(parts []string) (Params, bool) {
	if len(parts) != len(r.segments) {
		return nil, false
	}
	params := Params{}
	for i, seg := range r.segments {
		if seg.param {
			if parts[i] == "" {
				return nil, false
			}
			params[seg.value] = parts[i]
			continue
		}
		if parts[i] != seg.value {
			return nil, false
		}
	}
	return params, true
}

// Normalize strips the fragment, query string and trailing slash. The root path stays "/".
func Normalize(raw string) (p string, rawQuery string) {
	raw = strings.TrimSpace(raw)
	if i := strings.IndexByte(raw, '#'); i != -1 {
		raw = raw[:i]
	}
	if i := strings.IndexByte(raw, '?'); i != -1 {
		rawQuery = raw[i+1:]
		raw = raw[:i]
	}
	if raw == "" {
		return "/", rawQuery
	}
	if !strings.HasPrefix(raw, "/") {
		raw = "/" + raw
	}
	p = path.Clean(raw)
	return p, rawQuery
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

// Default is the portal route table.
var Default = MustNewTable(
	Route{Pattern: "/", Page: PageHome},
	Route{Pattern: "/settings", Page: PageSettings},
	Route{Pattern: "/notifications", Page: PageNotifications},
	Route{Pattern: "/login", Page: PageLogin},
	Route{Pattern: "/tags", Page: PageTags},
	Route{Pattern: "/tag/:tag", Page: PageTag},
	Route{Pattern: "/search", Page: PageSearch},
	Route{Pattern: "/about", Page: PageAbout},
	Route{Pattern: "/privacy", Page: PagePrivacy},
	Route{Pattern: "/terms", Page: PageTerms},
	Route{Pattern: "/disclaimer", Page: PageDisclaimer},
	Route{Pattern: "/contact", Page: PageContact},
	Route{Pattern: "/faq", Page: PageFAQ},
	Route{Pattern: "/help", Page: PageHelp},
	Route{Pattern: "/report-bug", Page: PageReportBug},
	Route{Pattern: "/feature-request", Page: PageFeatureRequest},
	Route{Pattern: "/:category/:slug", Page: PageArticle},
	Route{Pattern: "/:category", Page: PageCategory},
)

// StaticPages lists page ids backed by markdown content, keyed to their slug.
var StaticPages = map[PageID]string{
	PageAbout:          "about",
	PagePrivacy:        "privacy",
	PageTerms:          "terms",
	PageDisclaimer:     "disclaimer",
	PageContact:        "contact",
	PageFAQ:            "faq",
	PageHelp:           "help",
	PageReportBug:      "report-bug",
	PageFeatureRequest: "feature-request",
}
