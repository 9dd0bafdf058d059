package main

import (
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"kabaranime.id/portal/internal/catalog"
	"kabaranime.id/portal/internal/cms"
	"kabaranime.id/portal/internal/config"
	handlersPkg "kabaranime.id/portal/internal/handlers"
	"kabaranime.id/portal/internal/i18n"
	"kabaranime.id/portal/internal/inbox"
	"kabaranime.id/portal/internal/markup"
	mw "kabaranime.id/portal/internal/middleware"
	"kabaranime.id/portal/internal/notify"
	"kabaranime.id/portal/internal/observability"
	"kabaranime.id/portal/internal/portal"
	"kabaranime.id/portal/internal/router"
	"kabaranime.id/portal/internal/storage"
)

const (
	assetMaxAge    = 7 * 24 * time.Hour
	requestTimeout = 30 * time.Second
)

// deps are the loaded shared services. Scheduler and Now default to real time.
type deps struct {
	Config    config.Config
	Logger    *zap.Logger
	Store     storage.Store
	Bundle    *i18n.Bundle
	Catalog   *catalog.Catalog
	Feed      *inbox.Feed
	Pages     *cms.Store
	Renderer  *markup.Renderer
	Scheduler notify.Scheduler
	Now       func() time.Time
}

// app wires shared services to HTTP handlers. Per-visitor state comes from
// the registry and is passed to handlers explicitly.
type app struct {
	cfg       config.Config
	logger    *zap.Logger
	store     storage.Store
	bundle    *i18n.Bundle
	catalog   *catalog.Catalog
	board     *catalog.Board
	pages     *cms.Store
	routes    *router.Table
	registry  *portal.Registry
	views     *views
	metrics   *observability.Metrics
	analytics handlersPkg.Analytics
	now       func() time.Time
	upgrader  websocket.Upgrader
}

func newApp(d deps) (*app, error) {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	v, err := newViews(d.Config.Paths.Templates, d.Bundle, d.Logger.Named("views"))
	if err != nil {
		return nil, err
	}
	a := &app{
		cfg:       d.Config,
		logger:    d.Logger,
		store:     d.Store,
		bundle:    d.Bundle,
		catalog:   d.Catalog,
		board:     catalog.NewBoard(d.Catalog, d.Renderer, d.Now),
		pages:     d.Pages,
		routes:    router.Default,
		views:     v,
		analytics: handlersPkg.AnalyticsFromConfig(d.Config.Analytics),
		now:       d.Now,
	}
	a.metrics = observability.NewMetrics(func() int { return a.registry.Len() })
	a.registry = portal.NewRegistry(portal.Config{
		Bundle:    d.Bundle,
		Store:     d.Store,
		Routes:    a.routes,
		Feed:      d.Feed,
		Scheduler: d.Scheduler,
		Logger:    d.Logger.Named("portal"),
		Now:       d.Now,
		IdleTTL:   d.Config.Portal.VisitorIdleTTL,
		OnToast:   func(k notify.Kind) { a.metrics.ToastShown(string(k)) },

		ToastDuration: d.Config.Portal.ToastDuration,
	})
	a.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     sameOrigin,
	}
	return a, nil
}

// Close releases every visitor state and its timers.
func (a *app) Close() { a.registry.Close() }

func (a *app) handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	// If deployed behind a trusted reverse proxy/load balancer, RealIP will use
	// X-Forwarded-For to determine the client IP.
	r.Use(chimw.RealIP)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "ok")
	})
	r.Handle("/metrics", a.metrics.Handler())
	r.Handle("/assets/*", mw.AssetsWithCache(a.cfg.Paths.Public+"/assets", assetMaxAge, a.cfg.Dev))

	r.Group(func(r chi.Router) {
		r.Use(mw.HTMX)
		r.Use(mw.Session(mw.SessionOptions{
			Secret: a.cfg.Session.Secret,
			Secure: a.cfg.Session.Secure,
			MaxAge: a.cfg.Session.MaxAge,
			Logger: a.logger,
		}))
		r.Use(mw.Locale(a.bundle))
		r.Use(mw.Auth(a.cfg.Dev))
		r.Use(mw.CSRF)
		r.Use(mw.VaryLocale)
		r.Use(mw.Logger(a.logger))
		r.Use(mw.Instrument(a.metrics.ObserveRequest))
		r.Use(chimw.Recoverer)

		// the websocket must see the raw connection
		r.Get("/ws", a.withState(a.liveHandler))

		r.Group(func(r chi.Router) {
			r.Use(chimw.Compress(5))
			r.Use(chimw.Timeout(requestTimeout))

			r.Get("/_frag/notifications", a.withState(a.notificationsFrag))
			r.Delete("/toasts/{id}", a.withState(a.dismissToastHandler))
			r.Post("/newsletter", a.withState(a.newsletterOpenHandler))
			r.Delete("/newsletter", a.withState(a.newsletterCloseHandler))
			r.Post("/newsletter/action", a.withState(a.newsletterSubscribeHandler))
			r.Delete("/alert", a.withState(a.alertCloseHandler))
			r.Post("/alert/action", a.withState(a.alertActionHandler))

			r.Post("/lang", a.withState(a.languageHandler))
			r.Post("/theme", a.withState(a.themeHandler))
			r.Post("/history/clear", a.withState(a.historyClearHandler))

			r.Post("/nav/back", a.withState(a.backHandler))
			r.Post("/nav/forward", a.withState(a.forwardHandler))

			r.Post("/notifications/read-all", a.withState(a.inboxReadAllHandler))
			r.Post("/notifications/{id}/read", a.withState(a.inboxReadHandler))

			r.Post("/login", a.withState(a.loginHandler))
			r.Post("/logout", a.withState(a.logoutHandler))
			r.Post("/feedback/{kind}", a.withState(a.feedbackHandler))

			r.Post("/{category}/{slug}/comments", a.withState(a.commentHandler))
			r.Post("/{category}/{slug}/comments/{id}/like", a.withState(a.commentLikeHandler))

			// every page goes through the router table
			r.Get("/*", a.withState(a.pageHandler))
		})
	})
	return r
}

// stateHandler receives the visitor's state explicitly.
type stateHandler func(w http.ResponseWriter, r *http.Request, st *portal.State)

// withState resolves the visitor's state and applies a ?hl= override to it.
func (a *app) withState(h stateHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := mw.GetSession(r)
		st := a.registry.Get(r.Context(), sess.Visitor, mw.Lang(r), initialPath(r))
		if l, ok := mw.HasLangOverride(r); ok && l != st.Language.Language() {
			if err := st.Language.SetLanguage(r.Context(), l); err != nil {
				mw.LoggerFrom(r.Context()).Warn("apply language override", zap.Error(err))
			}
		}
		h(w, r, st)
	}
}

// initialPath is where a new visitor's navigator starts: the page itself for
// GET requests, otherwise the page the request was sent from.
func initialPath(r *http.Request) string {
	if r.Method == http.MethodGet && r.URL.Path != "/ws" && r.URL.Path != "/_frag/notifications" {
		return pageURL(r.URL)
	}
	return refererPath(r)
}

// refererPath returns the same-origin referer as a path, or "/".
func refererPath(r *http.Request) string {
	ref := r.Header.Get("HX-Current-URL")
	if ref == "" {
		ref = r.Referer()
	}
	u, err := url.Parse(ref)
	if err != nil || ref == "" || (u.Host != "" && u.Host != r.Host) {
		return "/"
	}
	return pageURL(u)
}

// pageURL is the path and query of u without the hl override.
func pageURL(u *url.URL) string {
	q := u.Query()
	q.Del("hl")
	p := u.Path
	if p == "" {
		p = "/"
	}
	if enc := q.Encode(); enc != "" {
		return p + "?" + enc
	}
	return p
}

func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	return err == nil && u.Host == r.Host
}

// t translates key in the visitor's language.
func t(st *portal.State, key string) string { return st.Language.T(key) }
