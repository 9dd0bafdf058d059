package catalog

import (
	"fmt"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"kabaranime.id/portal/internal/i18n"
)

var epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func makeArticles(n int) []Article {
	out := make([]Article, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, Article{
			ID:          fmt.Sprintf("a-%02d", i),
			Slug:        fmt.Sprintf("story-%02d", i),
			Category:    CategoryAnime,
			Author:      "Rina",
			PublishedAt: epoch.Add(time.Duration(i) * time.Hour),
			Title: Localized{
				i18n.Indonesian: fmt.Sprintf("Berita %02d", i),
				i18n.English:    fmt.Sprintf("Story %02d", i),
			},
			Excerpt: Localized{i18n.Indonesian: "ringkasan", i18n.English: "summary"},
		})
	}
	return out
}

func TestListGridPagination(t *testing.T) {
	articles := makeArticles(25)

	l := List(articles, i18n.English, ListingState{View: ViewGrid, Page: 1})
	require.Equal(t, 3, l.TotalPages)
	require.Len(t, l.Items, 12)
	require.Equal(t, 25, l.Total)
	require.False(t, l.HasPrev())
	require.True(t, l.HasNext())

	last := List(articles, i18n.English, ListingState{View: ViewGrid, Page: 3})
	require.Len(t, last.Items, 1)
	require.False(t, last.HasNext())
	require.Equal(t, []int{1, 2, 3}, last.Pages())
}

func TestListSearchResetsPage(t *testing.T) {
	articles := makeArticles(25)
	articles[3].Title[i18n.English] = "Chainsaw Man returns"
	articles[17].Excerpt[i18n.English] = "The CHAINSAW arc begins"

	prev := ListingState{View: ViewGrid, Sort: SortNewest, Page: 2}
	next := prev.Apply(ListingState{Query: "chainsaw", View: ViewGrid, Sort: SortNewest, Page: 2})
	require.Equal(t, 1, next.Page)

	l := List(articles, i18n.English, next)
	require.Equal(t, 1, l.TotalPages)
	require.Len(t, l.Items, 2)
	require.Equal(t, "a-17", l.Items[0].ID)
	require.Equal(t, "a-03", l.Items[1].ID)
}

func TestListSearchUsesActiveLanguage(t *testing.T) {
	articles := makeArticles(3)
	require.Len(t, List(articles, i18n.Indonesian, ListingState{Query: "berita"}).Items, 3)
	require.Empty(t, List(articles, i18n.English, ListingState{Query: "berita"}).Items)
	require.Len(t, List(articles, i18n.English, ListingState{Query: "  "}).Items, 3)
}

func TestListSearchMatchesAuthor(t *testing.T) {
	articles := makeArticles(3)
	articles[1].Author = "Dimas Pratama"
	l := List(articles, i18n.English, ListingState{Query: "dimas"})
	require.Len(t, l.Items, 1)
	require.Equal(t, "a-01", l.Items[0].ID)
}

func TestApplyKeepsPageOnViewChange(t *testing.T) {
	prev := ListingState{Query: "x", Sort: SortPopular, View: ViewGrid, Page: 3}
	next := prev.Apply(ListingState{Query: "x", Sort: SortPopular, View: ViewList, Page: 3})
	require.Equal(t, 3, next.Page)
	require.Equal(t, ViewList, next.View)

	sorted := prev.Apply(ListingState{Query: "x", Sort: SortOldest, View: ViewGrid, Page: 3})
	require.Equal(t, 1, sorted.Page)
}

func TestListClampsOutOfRangePage(t *testing.T) {
	articles := makeArticles(25)

	l := List(articles, i18n.English, ListingState{View: ViewList, Page: 4})
	require.Equal(t, 4, l.TotalPages)
	require.Equal(t, 4, l.State.Page)
	require.Len(t, l.Items, 1)

	// switching back to grid leaves only three pages
	g := List(articles, i18n.English, l.State.WithView(ViewGrid))
	require.Equal(t, 3, g.State.Page)

	require.Equal(t, 1, List(articles, i18n.English, ListingState{Page: -4}).State.Page)
	require.Equal(t, 3, List(articles, i18n.English, ListingState{Page: 99}).State.Page)
}

func TestListEmptyResultHasOnePage(t *testing.T) {
	l := List(nil, i18n.English, ListingState{Query: "nothing", Page: 5})
	require.Equal(t, 1, l.TotalPages)
	require.Equal(t, 1, l.State.Page)
	require.Empty(t, l.Items)
}

func TestSortOrders(t *testing.T) {
	articles := makeArticles(4)
	articles[0].Likes, articles[0].CommentCount = 10, 0
	articles[1].Likes, articles[1].CommentCount = 5, 10
	articles[2].Likes, articles[2].CommentCount = 10, 0
	articles[3].Likes, articles[3].CommentCount = 1, 1

	ids := func(in []Article) []string {
		var out []string
		for _, a := range in {
			out = append(out, a.ID)
		}
		return out
	}

	require.Equal(t, []string{"a-03", "a-02", "a-01", "a-00"}, ids(Sort(articles, SortNewest)))
	require.Equal(t, []string{"a-00", "a-01", "a-02", "a-03"}, ids(Sort(articles, SortOldest)))
	// equal likes keep their original relative order
	require.Equal(t, []string{"a-00", "a-02", "a-01", "a-03"}, ids(Sort(articles, SortPopular)))
	require.Equal(t, []string{"a-01", "a-00", "a-02", "a-03"}, ids(Sort(articles, SortTrending)))
	require.Equal(t, ids(Sort(articles, SortNewest)), ids(Sort(articles, "bogus")))
	require.Equal(t, "a-00", articles[0].ID, "input must not be reordered")
}

func TestParsers(t *testing.T) {
	require.Equal(t, SortTrending, ParseSortOrder("Trending"))
	require.Equal(t, SortNewest, ParseSortOrder("random"))
	require.Equal(t, ViewList, ParseViewMode("list"))
	require.Equal(t, ViewGrid, ParseViewMode(""))
	require.Equal(t, 1, ParsePage("abc"))
	require.Equal(t, 1, ParsePage("0"))
	require.Equal(t, 7, ParsePage(" 7 "))
}

func TestListingStateQueryRoundTrip(t *testing.T) {
	v, err := url.ParseQuery("q=naruto&sort=popular&view=list&page=2")
	require.NoError(t, err)
	st := ListingStateFromQuery(v)
	require.Equal(t, ListingState{Query: "naruto", Sort: SortPopular, View: ViewList, Page: 2}, st)
	require.Equal(t, "page=2&q=naruto&sort=popular&view=list", st.Values().Encode())
	require.Empty(t, DefaultListingState().Values().Encode())
}
