package catalog

import (
	"net/url"
	"sort"
	"strconv"
	"strings"

	"kabaranime.id/portal/internal/i18n"
)

// SortOrder selects how a listing is ordered.
type SortOrder string

const (
	SortNewest   SortOrder = "newest"
	SortOldest   SortOrder = "oldest"
	SortPopular  SortOrder = "popular"
	SortTrending SortOrder = "trending"
)

// SortOrders lists the orders offered in the sort control.
var SortOrders = []SortOrder{SortNewest, SortOldest, SortPopular, SortTrending}

// ParseSortOrder maps a query value onto a SortOrder; unknown values yield newest.
func ParseSortOrder(s string) SortOrder {
	switch o := SortOrder(strings.ToLower(strings.TrimSpace(s))); o {
	case SortNewest, SortOldest, SortPopular, SortTrending:
		return o
	default:
		return SortNewest
	}
}

// LabelKey is the translation key of the order's label.
func (o SortOrder) LabelKey() string { return "listing.sort." + string(o) }

// ViewMode is the listing layout.
type ViewMode string

const (
	ViewGrid ViewMode = "grid"
	ViewList ViewMode = "list"
)

const (
	GridPageSize = 12
	ListPageSize = 8
)

// ParseViewMode maps a query value onto a ViewMode; unknown values yield grid.
func ParseViewMode(s string) ViewMode {
	if ViewMode(strings.ToLower(strings.TrimSpace(s))) == ViewList {
		return ViewList
	}
	return ViewGrid
}

// PageSize is the number of items shown per page in this mode.
func (v ViewMode) PageSize() int {
	if v == ViewList {
		return ListPageSize
	}
	return GridPageSize
}

// Filter keeps articles whose title, excerpt or author contains query,
// case-insensitively, in lang. A blank query keeps everything.
func Filter(articles []Article, lang i18n.Language, query string) []Article {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return append([]Article(nil), articles...)
	}
	out := make([]Article, 0, len(articles))
	for _, a := range articles {
		if strings.Contains(strings.ToLower(a.Title.Get(lang)), q) ||
			strings.Contains(strings.ToLower(a.Excerpt.Get(lang)), q) ||
			strings.Contains(strings.ToLower(a.Author), q) {
			out = append(out, a)
		}
	}
	return out
}

// Sort returns a stably ordered copy of articles.
func Sort(articles []Article, order SortOrder) []Article {
	out := append([]Article(nil), articles...)
	var less func(a, b Article) bool
	switch ParseSortOrder(string(order)) {
	case SortOldest:
		less = func(a, b Article) bool { return a.PublishedAt.Before(b.PublishedAt) }
	case SortPopular:
		less = func(a, b Article) bool { return a.Likes > b.Likes }
	case SortTrending:
		less = func(a, b Article) bool { return a.TrendingScore() > b.TrendingScore() }
	default:
		less = func(a, b Article) bool { return a.PublishedAt.After(b.PublishedAt) }
	}
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

// TotalPages is ceil(total/size), never below 1.
func TotalPages(total, size int) int {
	if size <= 0 || total <= 0 {
		return 1
	}
	return (total + size - 1) / size
}

// ClampPage forces page into [1, totalPages].
func ClampPage(page, totalPages int) int {
	if totalPages < 1 {
		totalPages = 1
	}
	switch {
	case page < 1:
		return 1
	case page > totalPages:
		return totalPages
	default:
		return page
	}
}

// ParsePage reads a page number; malformed values yield 1.
func ParsePage(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// ListingState is the page-level state of a category listing.
type ListingState struct {
	Query string
	Sort  SortOrder
	View  ViewMode
	Page  int
}

// DefaultListingState is the state of a freshly opened listing.
func DefaultListingState() ListingState {
	return ListingState{Sort: SortNewest, View: ViewGrid, Page: 1}
}

// ListingStateFromQuery reads q, sort, view and page from URL values.
func ListingStateFromQuery(v url.Values) ListingState {
	return ListingState{
		Query: strings.TrimSpace(v.Get("q")),
		Sort:  ParseSortOrder(v.Get("sort")),
		View:  ParseViewMode(v.Get("view")),
		Page:  ParsePage(v.Get("page")),
	}
}

// Apply moves from s to next. Changing the query or the sort order returns
// to page 1; changing only the view mode keeps the requested page.
func (s ListingState) Apply(next ListingState) ListingState {
	next.Sort = ParseSortOrder(string(next.Sort))
	next.View = ParseViewMode(string(next.View))
	if next.Page < 1 {
		next.Page = 1
	}
	if strings.TrimSpace(next.Query) != strings.TrimSpace(s.Query) || next.Sort != ParseSortOrder(string(s.Sort)) {
		next.Page = 1
	}
	return next
}

// Values encodes the state as URL query values, omitting defaults.
func (s ListingState) Values() url.Values {
	v := url.Values{}
	if s.Query != "" {
		v.Set("q", s.Query)
	}
	if s.Sort != "" && s.Sort != SortNewest {
		v.Set("sort", string(s.Sort))
	}
	if s.View == ViewList {
		v.Set("view", string(s.View))
	}
	if s.Page > 1 {
		v.Set("page", strconv.Itoa(s.Page))
	}
	return v
}

// WithPage returns a copy pointing at page.
func (s ListingState) WithPage(page int) ListingState {
	s.Page = page
	return s
}

// WithView returns a copy using view.
func (s ListingState) WithView(view ViewMode) ListingState {
	s.View = view
	return s
}

// Listing is one rendered page of a filtered, sorted article set.
type Listing struct {
	State      ListingState
	Items      []Article
	Total      int
	TotalPages int
	PageSize   int
}

// HasPrev reports whether a previous page exists.
func (l Listing) HasPrev() bool { return l.State.Page > 1 }

// HasNext reports whether a next page exists.
func (l Listing) HasNext() bool { return l.State.Page < l.TotalPages }

// Pages enumerates 1..TotalPages for pagination controls.
func (l Listing) Pages() []int {
	out := make([]int, l.TotalPages)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

// List filters, sorts and paginates articles for st, clamping the page.
func List(articles []Article, lang i18n.Language, st ListingState) Listing {
	st.Sort = ParseSortOrder(string(st.Sort))
	st.View = ParseViewMode(string(st.View))
	matched := Sort(Filter(articles, lang, st.Query), st.Sort)
	size := st.View.PageSize()
	total := len(matched)
	pages := TotalPages(total, size)
	st.Page = ClampPage(st.Page, pages)
	start := (st.Page - 1) * size
	end := start + size
	if end > total {
		end = total
	}
	items := []Article{}
	if start < total {
		items = matched[start:end]
	}
	return Listing{State: st, Items: items, Total: total, TotalPages: pages, PageSize: size}
}
