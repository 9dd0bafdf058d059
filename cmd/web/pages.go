package main

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"kabaranime.id/portal/internal/catalog"
	"kabaranime.id/portal/internal/cms"
	"kabaranime.id/portal/internal/format"
	handlersPkg "kabaranime.id/portal/internal/handlers"
	"kabaranime.id/portal/internal/i18n"
	"kabaranime.id/portal/internal/inbox"
	mw "kabaranime.id/portal/internal/middleware"
	"kabaranime.id/portal/internal/nav"
	"kabaranime.id/portal/internal/notify"
	"kabaranime.id/portal/internal/portal"
	"kabaranime.id/portal/internal/router"
	"kabaranime.id/portal/internal/seo"
)

// navHeader set to "replace" overwrites the current history entry instead of pushing.
const navHeader = "X-Nav"

const (
	homeLatest   = 6
	homeTrending = 5
	relatedCount = 3
)

// pageHandler resolves the request path through the router table, records the
// navigation on the visitor's navigator and renders the matching page.
func (a *app) pageHandler(w http.ResponseWriter, r *http.Request, st *portal.State) {
	target := pageURL(r.URL)
	var m router.Match
	if mw.IsHistoryRestore(r) {
		m = st.Navigator.Sync(target)
	} else {
		replace := strings.EqualFold(r.Header.Get(navHeader), "replace")
		m = st.Navigator.Navigate(target, replace)
		if mw.IsHTMX(r.Context()) {
			if replace {
				mw.ReplaceURL(w, m.URL())
			} else {
				mw.PushURL(w, m.URL())
			}
		}
	}
	mw.SetPage(r.Context(), string(m.Page))

	switch m.Page {
	case router.PageHome:
		a.homePage(w, r, st, m)
	case router.PageCategory:
		a.categoryPage(w, r, st, m)
	case router.PageArticle:
		a.articlePage(w, r, st, m)
	case router.PageTags:
		a.tagsPage(w, r, st, m)
	case router.PageTag:
		a.tagPage(w, r, st, m)
	case router.PageSearch:
		a.searchPage(w, r, st, m)
	case router.PageSettings:
		a.settingsPage(w, r, st, m)
	case router.PageNotifications:
		a.inboxPage(w, r, st, m)
	case router.PageLogin:
		a.loginPage(w, r, st, m)
	case router.PageAbout, router.PagePrivacy, router.PageTerms, router.PageDisclaimer,
		router.PageFAQ, router.PageHelp, router.PageContact, router.PageReportBug, router.PageFeatureRequest:
		a.contentPage(w, r, st, m)
	default:
		a.notFound(w, r, st, m)
	}
}

// origin resolves the page an htmx request was issued from, as reported by
// HX-Current-URL. Each tab reports its own page. Plain requests and history
// restores have no origin.
func (a *app) origin(r *http.Request) (router.Match, bool) {
	if !mw.IsHTMX(r.Context()) || mw.IsHistoryRestore(r) {
		return router.Match{}, false
	}
	cur := r.Header.Get("HX-Current-URL")
	if cur == "" {
		return router.Match{}, false
	}
	u, err := url.Parse(cur)
	if err != nil || (u.Host != "" && u.Host != r.Host) {
		return router.Match{}, false
	}
	return a.routes.Resolve(pageURL(u)), true
}

// basePage fills the layout fields shared by every page.
func (a *app) basePage(r *http.Request, st *portal.State, m router.Match) handlersPkg.PageData {
	ctx := r.Context()
	return handlersPkg.PageData{
		Lang:        st.Language.Language(),
		Page:        m.Page,
		Path:        m.Path,
		Nav:         nav.Build(m.Path),
		Breadcrumbs: nav.Breadcrumbs(m.Path),
		Footer:      nav.Footer,
		Theme:       st.Theme.Name(ctx),
		CSRFToken:   mw.CSRFToken(r),
		User:        mw.UserFromContext(ctx),
		Analytics:   a.analytics,
	}
}

// describe sets the title and the SEO block for canonicalPath.
func (a *app) describe(vm *handlersPkg.PageData, title, desc, canonicalPath string) {
	brand := a.bundle.T(vm.Lang, "brand.name")
	vm.Title = title
	vm.SEO.Title = brand
	if title != "" && title != brand {
		vm.SEO.Title = title + " | " + brand
	}
	if desc == "" {
		desc = a.bundle.T(vm.Lang, "brand.tagline")
	}
	vm.SEO.Description = desc
	vm.SEO.Canonical = seo.AbsoluteURL(a.cfg.BaseURL, canonicalPath)
	vm.SEO.OG = seo.OpenGraph{
		Title:       vm.SEO.Title,
		Description: desc,
		Type:        "website",
		URL:         vm.SEO.Canonical,
		SiteName:    brand,
		Locale:      ogLocale(vm.Lang),
	}
	vm.SEO.Twitter.Card = "summary_large_image"
	langs := make([]string, 0, len(i18n.Supported))
	for _, l := range i18n.Supported {
		langs = append(langs, l.String())
	}
	vm.SEO.Alternates = seo.Alternates(a.cfg.BaseURL, canonicalPath, langs, a.bundle.Fallback().String())
	vm.SEO.JSONLD = append(vm.SEO.JSONLD, seo.JSON(seo.BreadcrumbList(a.breadcrumbItems(vm))))
}

func (a *app) breadcrumbItems(vm *handlersPkg.PageData) []seo.BreadcrumbItem {
	items := make([]seo.BreadcrumbItem, 0, len(vm.Breadcrumbs))
	for _, c := range vm.Breadcrumbs {
		name := c.Label
		if c.LabelKey != "" {
			name = a.bundle.T(vm.Lang, c.LabelKey)
		}
		items = append(items, seo.BreadcrumbItem{Name: name, Item: seo.AbsoluteURL(a.cfg.BaseURL, c.Href)})
	}
	return items
}

func ogLocale(l i18n.Language) string {
	if l == i18n.English {
		return "en_US"
	}
	return "id_ID"
}

func (a *app) homePage(w http.ResponseWriter, r *http.Request, st *portal.State, m router.Match) {
	lang := st.Language.Language()
	vm := a.basePage(r, st, m)
	vm.Home = &handlersPkg.HomeView{
		Featured: handlersPkg.Cards(a.catalog.Featured(), lang),
		Latest:   handlersPkg.Cards(a.catalog.Latest(homeLatest), lang),
		Trending: handlersPkg.Cards(a.catalog.Trending(homeTrending), lang),
		Recent:   st.History.List(r.Context()),
	}
	a.describe(&vm, a.bundle.T(lang, "brand.name"), a.bundle.T(lang, "brand.tagline"), "/")
	brand := a.bundle.T(lang, "brand.name")
	vm.SEO.JSONLD = append(vm.SEO.JSONLD,
		seo.JSON(seo.Organization(brand, a.cfg.BaseURL, seo.AbsoluteURL(a.cfg.BaseURL, "/assets/img/logo.svg"))),
		seo.JSON(seo.WebSite(brand, a.cfg.BaseURL, seo.AbsoluteURL(a.cfg.BaseURL, "/search?q="))),
	)

	if st.OfferNewsletter() {
		a.offerNewsletter(st)
	}
	a.renderPage(w, r, st, http.StatusOK, "home", vm)
}

// offerNewsletter opens the newsletter popup. Its action confirms a
// subscription once the email was accepted.
func (a *app) offerNewsletter(st *portal.State) {
	center := st.Notifications
	subscribed := t(st, "newsletter.subscribed")
	center.ShowNewsletter(t(st, "newsletter.title"), t(st, "newsletter.message"), &notify.Action{
		Label: t(st, "newsletter.action"),
		Run:   func() { center.Success(subscribed) },
	})
}

func (a *app) categoryPage(w http.ResponseWriter, r *http.Request, st *portal.State, m router.Match) {
	cat, ok := catalog.ParseCategory(m.Params.Get("category"))
	if !ok {
		a.notFound(w, r, st, m)
		return
	}
	lang := st.Language.Language()
	requested := catalog.ListingStateFromQuery(m.Query())
	prev := requested
	if from, ok := a.origin(r); ok && from.Page == router.PageCategory && from.Path == m.Path {
		prev = catalog.ListingStateFromQuery(from.Query())
	}
	listing := catalog.List(a.catalog.ByCategory(cat), lang, prev.Apply(requested))
	view := handlersPkg.BuildListing(cat, listing, lang)

	// a reset or clamped page is recorded under its canonical URL
	if view.Canonical != m.URL() {
		st.Navigator.Navigate(view.Canonical, true)
		if mw.IsHTMX(r.Context()) {
			w.Header().Del("HX-Push-Url")
			mw.ReplaceURL(w, view.Canonical)
		}
	}

	vm := a.basePage(r, st, m)
	vm.Listing = view
	a.describe(&vm, a.bundle.T(lang, view.TitleKey), a.bundle.T(lang, view.DescriptionKey), view.Canonical)
	urls := make([]string, 0, len(view.Cards))
	for _, c := range view.Cards {
		urls = append(urls, seo.AbsoluteURL(a.cfg.BaseURL, c.Href))
	}
	vm.SEO.JSONLD = append(vm.SEO.JSONLD, seo.JSON(seo.CollectionPage(vm.Title, vm.SEO.Canonical, urls)))
	a.renderPage(w, r, st, http.StatusOK, "category", vm)
}

func (a *app) articlePage(w http.ResponseWriter, r *http.Request, st *portal.State, m router.Match) {
	art, ok := a.findArticle(m.Params.Get("category"), m.Params.Get("slug"))
	if !ok {
		a.notFound(w, r, st, m)
		return
	}
	ctx := r.Context()
	lang := st.Language.Language()
	if err := st.History.Record(ctx, handlersPkg.HistoryEntry(art, lang)); err != nil {
		mw.LoggerFrom(ctx).Warn("record reading history", zap.Error(err), zap.String("article", art.ID))
	}

	card := handlersPkg.Card(art, lang)
	vm := a.basePage(r, st, m)
	vm.Breadcrumbs = nav.WithLast(vm.Breadcrumbs, card.Title)
	vm.Article = &handlersPkg.ArticleView{
		Card:         card,
		Body:         art.BodyHTML(lang),
		Comments:     a.commentViews(st, art),
		CommentsHref: art.Path() + "/comments",
		Related:      handlersPkg.Cards(a.catalog.Related(art, relatedCount), lang),
	}
	a.describe(&vm, card.Title, card.Excerpt, art.Path())
	vm.SEO.OG.Type = "article"
	vm.SEO.OG.Image = seo.AbsoluteURL(a.cfg.BaseURL, art.Thumbnail)
	vm.SEO.Twitter.Image = vm.SEO.OG.Image
	vm.SEO.JSONLD = append(vm.SEO.JSONLD, seo.JSON(seo.Article(seo.NewsArticle{
		Headline:      card.Title,
		Description:   card.Excerpt,
		URL:           vm.SEO.Canonical,
		Image:         vm.SEO.OG.Image,
		Author:        art.Author,
		Section:       a.bundle.T(lang, card.CategoryKey),
		Keywords:      art.Tags,
		Language:      lang.String(),
		DatePublished: card.PublishedISO,
	})))
	a.renderPage(w, r, st, http.StatusOK, "article", vm)
}

func (a *app) findArticle(category, slug string) (catalog.Article, bool) {
	cat, ok := catalog.ParseCategory(category)
	if !ok {
		return catalog.Article{}, false
	}
	art, err := a.catalog.Article(cat, slug)
	if err != nil {
		return catalog.Article{}, false
	}
	return art, true
}

func (a *app) commentViews(st *portal.State, art catalog.Article) []handlersPkg.CommentView {
	list := a.board.Thread(art.ID).List(st.Visitor)
	return handlersPkg.Comments(list, st.Language.Language(), t(st, "comment.anonymous"), art.Path()+"/comments", a.now())
}

func (a *app) tagsPage(w http.ResponseWriter, r *http.Request, st *portal.State, m router.Match) {
	lang := st.Language.Language()
	vm := a.basePage(r, st, m)
	vm.Tags = &handlersPkg.TagsView{Tags: a.catalog.Tags()}
	a.describe(&vm, a.bundle.T(lang, "tags.title"), "", "/tags")
	a.renderPage(w, r, st, http.StatusOK, "tags", vm)
}

func (a *app) tagPage(w http.ResponseWriter, r *http.Request, st *portal.State, m router.Match) {
	lang := st.Language.Language()
	tag := m.Params.Get("tag")
	vm := a.basePage(r, st, m)
	vm.Breadcrumbs = nav.WithLast(vm.Breadcrumbs, "#"+tag)
	vm.Tag = &handlersPkg.TagView{Tag: tag, Cards: handlersPkg.Cards(a.catalog.ByTag(tag), lang)}
	a.describe(&vm, a.bundle.Tf(lang, "tag.title", tag), "", m.Path)
	a.renderPage(w, r, st, http.StatusOK, "tag", vm)
}

func (a *app) searchPage(w http.ResponseWriter, r *http.Request, st *portal.State, m router.Match) {
	lang := st.Language.Language()
	q := strings.TrimSpace(m.Query().Get("q"))
	view := &handlersPkg.SearchView{Query: q}
	if q != "" {
		found := catalog.Sort(catalog.Filter(a.catalog.All(), lang, q), catalog.SortNewest)
		view.Total = len(found)
		view.Cards = handlersPkg.Cards(found, lang)
	}
	vm := a.basePage(r, st, m)
	vm.Search = view
	a.describe(&vm, a.bundle.T(lang, "search.title"), "", "/search")
	vm.SEO.Robots = "noindex, follow"
	a.renderPage(w, r, st, http.StatusOK, "search", vm)
}

func (a *app) settingsPage(w http.ResponseWriter, r *http.Request, st *portal.State, m router.Match) {
	ctx := r.Context()
	lang := st.Language.Language()
	vm := a.basePage(r, st, m)
	vm.Settings = &handlersPkg.SettingsView{
		Language:  lang,
		Languages: i18n.Supported,
		Dark:      st.Theme.Dark(ctx),
		History:   st.History.List(ctx),
	}
	a.describe(&vm, a.bundle.T(lang, "settings.title"), "", "/settings")
	vm.SEO.Robots = "noindex"
	a.renderPage(w, r, st, http.StatusOK, "settings", vm)
}

func (a *app) inboxView(st *portal.State, filter inbox.Filter) *handlersPkg.InboxView {
	lang := st.Language.Language()
	now := a.now()
	items := st.Inbox.List(lang, filter)
	view := &handlersPkg.InboxView{Filter: filter, Unread: st.Inbox.Unread(), Items: make([]handlersPkg.InboxItem, 0, len(items))}
	for _, n := range items {
		view.Items = append(view.Items, handlersPkg.InboxItem{Notification: n, When: format.FmtRelative(n.CreatedAt, now, lang)})
	}
	return view
}

func (a *app) inboxPage(w http.ResponseWriter, r *http.Request, st *portal.State, m router.Match) {
	lang := st.Language.Language()
	vm := a.basePage(r, st, m)
	vm.Inbox = a.inboxView(st, inbox.ParseFilter(m.Query().Get("filter")))
	a.describe(&vm, a.bundle.T(lang, "notifications.title"), "", "/notifications")
	vm.SEO.Robots = "noindex"
	a.renderPage(w, r, st, http.StatusOK, "notifications", vm)
}

func (a *app) loginPage(w http.ResponseWriter, r *http.Request, st *portal.State, m router.Match) {
	lang := st.Language.Language()
	vm := a.basePage(r, st, m)
	vm.Login = &handlersPkg.LoginView{}
	a.describe(&vm, a.bundle.T(lang, "login.title"), "", "/login")
	vm.SEO.Robots = "noindex"
	a.renderPage(w, r, st, http.StatusOK, "login", vm)
}

// contentPage renders a markdown-backed page; contact, report-bug and
// feature-request also carry the feedback form.
func (a *app) contentPage(w http.ResponseWriter, r *http.Request, st *portal.State, m router.Match) {
	lang := st.Language.Language()
	slug := router.StaticPages[m.Page]
	page, err := a.pages.GetContentPage(r.Context(), slug, lang)
	if err != nil {
		if !errors.Is(err, cms.ErrNotFound) {
			mw.LoggerFrom(r.Context()).Error("load content page", zap.String("slug", slug), zap.Error(err))
		}
		a.notFound(w, r, st, m)
		return
	}
	vm := a.basePage(r, st, m)
	vm.Breadcrumbs = nav.WithLast(vm.Breadcrumbs, page.Title)
	name := "content"
	switch m.Page {
	case router.PageContact, router.PageReportBug, router.PageFeatureRequest:
		vm.Feedback = &handlersPkg.FeedbackView{Kind: slug, Content: &page}
		name = "feedback"
	default:
		vm.Content = &page
	}
	title, desc := page.Title, page.Summary
	if page.SEO.Title != "" {
		title = page.SEO.Title
	}
	if page.SEO.Description != "" {
		desc = page.SEO.Description
	}
	a.describe(&vm, title, desc, m.Path)
	a.renderPage(w, r, st, http.StatusOK, name, vm)
}

// notFound renders the dedicated not-found page with HTTP 404.
func (a *app) notFound(w http.ResponseWriter, r *http.Request, st *portal.State, m router.Match) {
	mw.SetPage(r.Context(), string(router.PageNotFound))
	lang := st.Language.Language()
	m.Page = router.PageNotFound
	vm := a.basePage(r, st, m)
	vm.Breadcrumbs = nil
	a.describe(&vm, a.bundle.T(lang, "notfound.title"), a.bundle.T(lang, "notfound.message"), m.Path)
	vm.SEO.Robots = "noindex"
	vm.SEO.JSONLD = nil
	a.renderPage(w, r, st, http.StatusNotFound, "notfound", vm)
}
