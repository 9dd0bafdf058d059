package seo

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAbsoluteURL(t *testing.T) {
	require.Equal(t, "https://kabaranime.id/anime?page=2", AbsoluteURL("https://kabaranime.id/", "/anime?page=2"))
	require.Equal(t, "https://kabaranime.id/", AbsoluteURL("https://kabaranime.id", ""))
	require.Equal(t, "https://cdn.example/x.jpg", AbsoluteURL("https://kabaranime.id", "https://cdn.example/x.jpg"))
}

func TestAlternates(t *testing.T) {
	alts := Alternates("https://kabaranime.id", "/anime?page=2", []string{"id", "en"}, "id")
	require.Equal(t, []Alternate{
		{Href: "https://kabaranime.id/anime?hl=id&page=2", Hreflang: "id"},
		{Href: "https://kabaranime.id/anime?hl=en&page=2", Hreflang: "en"},
		{Href: "https://kabaranime.id/anime?hl=id&page=2", Hreflang: "x-default"},
	}, alts)
}

func TestArticleJSONLD(t *testing.T) {
	raw := JSON(Article(NewsArticle{
		Headline:      "Chainsaw Man movie announced",
		URL:           "https://kabaranime.id/anime/chainsaw-man-movie",
		Author:        "Rina Putri",
		Keywords:      []string{"mappa"},
		Language:      "en",
		DatePublished: "2025-09-01T08:00:00Z",
	}))
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &m))
	require.Equal(t, "NewsArticle", m["@type"])
	require.Equal(t, "en", m["inLanguage"])
	require.Equal(t, "Rina Putri", m["author"].(map[string]any)["name"])
	require.NotContains(t, m, "image")
}

func TestBreadcrumbListPositions(t *testing.T) {
	m := BreadcrumbList([]BreadcrumbItem{{Name: "Beranda", Item: "https://kabaranime.id/"}, {Name: "Anime", Item: "https://kabaranime.id/anime"}})
	items := m["itemListElement"].([]map[string]any)
	require.Equal(t, 2, items[1]["position"])
}
