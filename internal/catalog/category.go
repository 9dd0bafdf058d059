package catalog

import "strings"

// Category is the closed set of content sections.
type Category string

const (
	CategoryAnime   Category = "anime"
	CategoryManga   Category = "manga"
	CategoryNews    Category = "news"
	CategoryReviews Category = "reviews"
	CategoryEvents  Category = "events"
	CategoryGames   Category = "games"
)

// Categories lists every category in navigation order.
var Categories = []Category{
	CategoryAnime,
	CategoryManga,
	CategoryNews,
	CategoryReviews,
	CategoryEvents,
	CategoryGames,
}

// ParseCategory maps a path segment onto a Category.
func ParseCategory(s string) (Category, bool) {
	switch c := Category(strings.ToLower(strings.TrimSpace(s))); c {
	case CategoryAnime, CategoryManga, CategoryNews, CategoryReviews, CategoryEvents, CategoryGames:
		return c, true
	default:
		return "", false
	}
}

// LabelKey is the translation key of the category name.
func (c Category) LabelKey() string { return "category." + string(c) }

// DescriptionKey is the translation key of the category blurb.
func (c Category) DescriptionKey() string { return "category." + string(c) + ".description" }

// Path is the listing URL.
func (c Category) Path() string { return "/" + string(c) }
