package handlers

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"kabaranime.id/portal/internal/catalog"
	"kabaranime.id/portal/internal/i18n"
)

func articles(n int) []catalog.Article {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]catalog.Article, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, catalog.Article{
			ID:          fmt.Sprintf("a-%02d", i),
			Slug:        fmt.Sprintf("s-%02d", i),
			Category:    catalog.CategoryManga,
			PublishedAt: base.Add(time.Duration(i) * time.Hour),
			Likes:       1500,
			Title:       catalog.Localized{i18n.Indonesian: "Judul", i18n.English: "Title"},
		})
	}
	return out
}

func TestBuildListingLinks(t *testing.T) {
	st := catalog.ListingState{Query: "one", Sort: catalog.SortPopular, View: catalog.ViewGrid, Page: 2}
	l := catalog.List(articles(25), i18n.English, catalog.ListingState{Sort: st.Sort, View: st.View, Page: 2})
	v := BuildListing(catalog.CategoryManga, l, i18n.English)

	require.Equal(t, "/manga", v.BasePath)
	require.Equal(t, "/manga?page=2&sort=popular", v.Canonical)
	require.Equal(t, "/manga?sort=popular", v.PrevHref)
	require.Equal(t, "/manga?page=3&sort=popular", v.NextHref)
	require.Equal(t, "/manga?page=2&sort=popular&view=list", v.ListHref)
	require.Len(t, v.Pages, 3)
	require.True(t, v.Pages[1].Current)
	require.Len(t, v.Cards, 12)
	require.Equal(t, "1.5K", v.Cards[0].Likes)

	var selected []catalog.SortOrder
	for _, s := range v.Sorts {
		if s.Selected {
			selected = append(selected, s.Value)
		}
	}
	require.Equal(t, []catalog.SortOrder{catalog.SortPopular}, selected)
}

func TestCardLocalized(t *testing.T) {
	a := articles(1)[0]
	require.Equal(t, "Judul", Card(a, i18n.Indonesian).Title)
	require.Equal(t, "1,5 rb", Card(a, i18n.Indonesian).Likes)
	require.Equal(t, "/manga/s-00", Card(a, i18n.English).Href)
	require.Equal(t, "category.manga", Card(a, i18n.English).CategoryKey)
}

func TestCommentsUseAnonymousName(t *testing.T) {
	now := time.Date(2025, 1, 1, 1, 0, 0, 0, time.UTC)
	views := Comments([]catalog.Comment{{ID: "c1", Body: "hi", CreatedAt: now.Add(-2 * time.Minute)}}, i18n.English, "Anonymous", "/anime/x/comments", now)
	require.Equal(t, "Anonymous", views[0].Author)
	require.Equal(t, "2 minutes ago", views[0].When)
	require.Equal(t, "/anime/x/comments/c1/like", views[0].LikeHref)
}
