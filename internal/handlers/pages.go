// Package handlers holds the view models the templates render.
package handlers

import (
	"html/template"

	"kabaranime.id/portal/internal/catalog"
	"kabaranime.id/portal/internal/cms"
	"kabaranime.id/portal/internal/i18n"
	"kabaranime.id/portal/internal/inbox"
	"kabaranime.id/portal/internal/middleware"
	"kabaranime.id/portal/internal/nav"
	"kabaranime.id/portal/internal/notify"
	"kabaranime.id/portal/internal/prefs"
	"kabaranime.id/portal/internal/router"
	"kabaranime.id/portal/internal/seo"
)

// PageData is the view model every full page shares with the base layout.
type PageData struct {
	Title     string
	Lang      i18n.Language
	Page      router.PageID
	SEO       seo.Meta
	Analytics Analytics

	Path        string
	Nav         []nav.RenderedItem
	Breadcrumbs []nav.Crumb
	Footer      []nav.FooterGroup

	Theme         string
	CSRFToken     string
	User          *middleware.User
	Unread        int
	Notifications notify.State
	CanGoBack     bool
	CanGoForward  bool

	// Per-page payloads; exactly one is set.
	Home     *HomeView
	Listing  *ListingView
	Article  *ArticleView
	Tags     *TagsView
	Tag      *TagView
	Search   *SearchView
	Settings *SettingsView
	Inbox    *InboxView
	Content  *cms.ContentPage
	Feedback *FeedbackView
	Login    *LoginView
}

// NotificationsView renders the toast stack and both popups. OOB marks an
// out-of-band swap appended to another fragment.
type NotificationsView struct {
	Lang          i18n.Language
	Notifications notify.State
	OOB           bool
}

// NotificationsView returns the notification region of the layout.
func (p PageData) NotificationsView() NotificationsView {
	return NotificationsView{Lang: p.Lang, Notifications: p.Notifications}
}

// HomeView is the landing page.
type HomeView struct {
	Featured []ArticleCard
	Latest   []ArticleCard
	Trending []ArticleCard
	Recent   []prefs.Entry
}

// SortOption is one entry of the sort control.
type SortOption struct {
	Value    catalog.SortOrder
	LabelKey string
	Selected bool
}

// PageLink is one pagination control.
type PageLink struct {
	Number  int
	Href    string
	Current bool
}

// ListingView is a category page.
type ListingView struct {
	Category       catalog.Category
	TitleKey       string
	DescriptionKey string
	BasePath       string
	Canonical      string
	State          catalog.ListingState
	Cards          []ArticleCard
	Total          int
	TotalPages     int
	Sorts          []SortOption
	GridHref       string
	ListHref       string
	PrevHref       string
	NextHref       string
	Pages          []PageLink
}

// CommentView is one rendered comment.
type CommentView struct {
	ID       string
	Author   string
	Body     string
	When     string
	WhenISO  string
	Likes    int
	Liked    bool
	LikeHref string
}

// ArticleView is an article page.
type ArticleView struct {
	Card         ArticleCard
	Body         template.HTML
	Comments     []CommentView
	CommentsHref string
	Related      []ArticleCard
}

// TagsView is the tag index.
type TagsView struct {
	Tags []catalog.TagCount
}

// TagView lists the articles of one tag.
type TagView struct {
	Tag   string
	Cards []ArticleCard
}

// SearchView is the site-wide search page.
type SearchView struct {
	Query string
	Total int
	Cards []ArticleCard
}

// SettingsView is the settings page.
type SettingsView struct {
	Language  i18n.Language
	Languages []i18n.Language
	Dark      bool
	History   []prefs.Entry
}

// InboxView is the notifications page.
type InboxView struct {
	Filter inbox.Filter
	Items  []InboxItem
	Unread int
}

// InboxItem is a notification with its display time.
type InboxItem struct {
	inbox.Notification
	When string
}

// FeedbackView backs the contact, report-bug and feature-request pages.
type FeedbackView struct {
	Kind    string
	Content *cms.ContentPage
}

// LoginView is the login form.
type LoginView struct {
	Identifier string
}
