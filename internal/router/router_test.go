package router

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveDefaultTable(t *testing.T) {
	cases := []struct {
		path   string
		page   PageID
		params Params
	}{
		{"/", PageHome, Params{}},
		{"", PageHome, Params{}},
		{"/anime", PageCategory, Params{"category": "anime"}},
		{"/anime?page=2", PageCategory, Params{"category": "anime"}},
		{"/anime/chainsaw-man-s2", PageArticle, Params{"category": "anime", "slug": "chainsaw-man-s2"}},
		{"/tag/isekai", PageTag, Params{"tag": "isekai"}},
		{"/tags", PageTags, Params{}},
		{"/settings", PageSettings, Params{}},
		{"/notifications", PageNotifications, Params{}},
		{"/login", PageLogin, Params{}},
		{"/search?q=one+piece", PageSearch, Params{}},
		{"/report-bug", PageReportBug, Params{}},
		{"/feature-request", PageFeatureRequest, Params{}},
		{"/no-such-category", PageCategory, Params{"category": "no-such-category"}},
		{"/a/b/c", PageNotFound, Params{}},
	}
	for _, tc := range cases {
		got := Default.Resolve(tc.path)
		require.Equal(t, tc.page, got.Page, tc.path)
		require.Equal(t, tc.params, got.Params, tc.path)
	}
}

func TestResolveIgnoresTrailingSlashAndQuery(t *testing.T) {
	paths := []string{"/", "/anime", "/anime/some-slug", "/tag/mecha", "/settings", "/about"}
	suffixes := []string{"/", "?page=3", "/?sort=oldest&view=list", "#comments"}
	for _, p := range paths {
		want := Default.Resolve(p)
		for _, s := range suffixes {
			got := Default.Resolve(p + s)
			require.Equal(t, want.Page, got.Page, p+s)
			require.Equal(t, want.Params, got.Params, p+s)
			require.Equal(t, want.Path, got.Path, p+s)
		}
	}
}

func TestResolveKeepsRawQueryForPages(t *testing.T) {
	m := Default.Resolve("/anime/?page=2&q=chainsaw")
	require.Equal(t, "/anime", m.Path)
	require.Equal(t, "page=2&q=chainsaw", m.RawQuery)
	require.Equal(t, "2", m.Query().Get("page"))
	require.Equal(t, "/anime?page=2&q=chainsaw", m.URL())
}

func TestStaticSegmentsWinOverParams(t *testing.T) {
	tbl := MustNewTable(
		Route{Pattern: "/tag/:tag", Page: PageTag},
		Route{Pattern: "/:category/:slug", Page: PageArticle},
	)
	require.Equal(t, PageTag, tbl.Resolve("/tag/x").Page)
	require.Equal(t, PageArticle, tbl.Resolve("/tagz/x").Page)
	require.Equal(t, PageNotFound, tbl.Resolve("/").Page)
}

func TestNewTableRejectsBadPatterns(t *testing.T) {
	_, err := NewTable(Route{Pattern: "nope", Page: PageHome})
	require.Error(t, err)
	_, err = NewTable(Route{Pattern: "/:", Page: PageHome})
	require.Error(t, err)
	_, err = NewTable(Route{Pattern: "/a", Page: PageHome}, Route{Pattern: "/a", Page: PageAbout})
	require.Error(t, err)
	_, err = NewTable(Route{Pattern: "/a"})
	require.Error(t, err)
}

func TestEveryStaticPageIsRouted(t *testing.T) {
	for page, slug := range StaticPages {
		require.Equal(t, page, Default.Resolve("/"+slug).Page, slug)
	}
}
