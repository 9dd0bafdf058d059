package handlers

import (
	"time"

	"kabaranime.id/portal/internal/catalog"
	"kabaranime.id/portal/internal/format"
	"kabaranime.id/portal/internal/i18n"
	"kabaranime.id/portal/internal/prefs"
)

// ArticleCard is an article summarized for lists and the article header.
type ArticleCard struct {
	ID           string
	Href         string
	Title        string
	Excerpt      string
	Author       string
	Thumbnail    string
	Category     catalog.Category
	CategoryKey  string
	Tags         []string
	Published    string
	PublishedISO string
	Reading      int
	Likes        string
	Comments     string
	Views        string
	Featured     bool
}

// Card builds the card of a in lang.
func Card(a catalog.Article, lang i18n.Language) ArticleCard {
	return ArticleCard{
		ID:           a.ID,
		Href:         a.Path(),
		Title:        a.Title.Get(lang),
		Excerpt:      a.Excerpt.Get(lang),
		Author:       a.Author,
		Thumbnail:    a.Thumbnail,
		Category:     a.Category,
		CategoryKey:  a.Category.LabelKey(),
		Tags:         a.Tags,
		Published:    format.FmtDate(a.PublishedAt, lang),
		PublishedISO: format.ISODate(a.PublishedAt),
		Reading:      a.Reading(lang),
		Likes:        format.FmtCompact(a.Likes, lang),
		Comments:     format.FmtCompact(a.CommentCount, lang),
		Views:        format.FmtCompact(a.Views, lang),
		Featured:     a.Featured,
	}
}

// Cards maps Card over articles.
func Cards(articles []catalog.Article, lang i18n.Language) []ArticleCard {
	out := make([]ArticleCard, 0, len(articles))
	for _, a := range articles {
		out = append(out, Card(a, lang))
	}
	return out
}

// HistoryEntry records a in the reading history in lang.
func HistoryEntry(a catalog.Article, lang i18n.Language) prefs.Entry {
	return prefs.Entry{
		ID:        a.ID,
		Title:     a.Title.Get(lang),
		Slug:      a.Slug,
		Category:  string(a.Category),
		Thumbnail: a.Thumbnail,
	}
}

// Comments renders a thread for the visitor.
func Comments(list []catalog.Comment, lang i18n.Language, anonymous, likeBase string, now time.Time) []CommentView {
	out := make([]CommentView, 0, len(list))
	for _, c := range list {
		author := c.Author
		if author == "" {
			author = anonymous
		}
		out = append(out, CommentView{
			ID:       c.ID,
			Author:   author,
			Body:     c.Body,
			When:     format.FmtRelative(c.CreatedAt, now, lang),
			WhenISO:  format.ISODate(c.CreatedAt),
			Likes:    c.Likes,
			Liked:    c.Liked,
			LikeHref: likeBase + "/" + c.ID + "/like",
		})
	}
	return out
}
