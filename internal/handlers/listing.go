package handlers

import (
	"kabaranime.id/portal/internal/catalog"
	"kabaranime.id/portal/internal/i18n"
)

// BuildListing turns a computed listing into the category page view.
func BuildListing(c catalog.Category, l catalog.Listing, lang i18n.Language) *ListingView {
	base := c.Path()
	st := l.State
	v := &ListingView{
		Category:       c,
		TitleKey:       c.LabelKey(),
		DescriptionKey: c.DescriptionKey(),
		BasePath:       base,
		Canonical:      href(base, st),
		State:          st,
		Cards:          Cards(l.Items, lang),
		Total:          l.Total,
		TotalPages:     l.TotalPages,
		GridHref:       href(base, st.WithView(catalog.ViewGrid)),
		ListHref:       href(base, st.WithView(catalog.ViewList)),
	}
	for _, o := range catalog.SortOrders {
		v.Sorts = append(v.Sorts, SortOption{Value: o, LabelKey: o.LabelKey(), Selected: o == st.Sort})
	}
	if l.HasPrev() {
		v.PrevHref = href(base, st.WithPage(st.Page-1))
	}
	if l.HasNext() {
		v.NextHref = href(base, st.WithPage(st.Page+1))
	}
	for _, n := range l.Pages() {
		v.Pages = append(v.Pages, PageLink{Number: n, Href: href(base, st.WithPage(n)), Current: n == st.Page})
	}
	return v
}

func href(base string, st catalog.ListingState) string {
	if q := st.Values().Encode(); q != "" {
		return base + "?" + q
	}
	return base
}
