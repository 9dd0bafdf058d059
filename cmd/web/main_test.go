package main

import (
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"kabaranime.id/portal/internal/config"
	"kabaranime.id/portal/internal/i18n"
	"kabaranime.id/portal/internal/notify"
	"kabaranime.id/portal/internal/storage"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// testServer runs the full handler stack against the bundled content.
type testServer struct {
	t      *testing.T
	app    *app
	srv    *httptest.Server
	client *http.Client
	sched  *notify.ManualScheduler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	cfg, err := config.LoadFrom(map[string]string{
		"KABAR_TEMPLATES_DIR":  "../../templates",
		"KABAR_PUBLIC_DIR":     "../../public",
		"KABAR_LOCALES_DIR":    "../../locales",
		"KABAR_CONTENT_DIR":    "../../content",
		"KABAR_SESSION_SECRET": strings.Repeat("s", 32),
		"KABAR_BASE_URL":       "https://kabaranime.test",
	})
	require.NoError(t, err)

	// handlers on hijacked connections may log after the test returns
	d, err := loadDeps(cfg, storage.NewMemoryStore(), zap.NewNop())
	require.NoError(t, err)
	sched := notify.NewManualScheduler()
	d.Scheduler = sched

	a, err := newApp(d)
	require.NoError(t, err)
	srv := httptest.NewServer(a.handler())

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	t.Cleanup(func() {
		client.CloseIdleConnections()
		srv.Close()
		a.Close()
	})
	return &testServer{t: t, app: a, srv: srv, client: client, sched: sched}
}

// csrf returns the token issued to this client's session.
func (s *testServer) csrf() string {
	u, _ := url.Parse(s.srv.URL)
	for _, c := range s.client.Jar.Cookies(u) {
		if c.Name == "csrf_token" {
			return c.Value
		}
	}
	s.t.Fatal("no csrf cookie; issue a GET first")
	return ""
}

func (s *testServer) do(method, path string, form url.Values, hx bool) *http.Response {
	s.t.Helper()
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequest(method, s.srv.URL+path, body)
	require.NoError(s.t, err)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if method != http.MethodGet {
		req.Header.Set("X-CSRF-Token", s.csrf())
	}
	if hx {
		req.Header.Set("HX-Request", "true")
	}
	resp, err := s.client.Do(req)
	require.NoError(s.t, err)
	s.t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (s *testServer) get(path string) *http.Response { return s.do(http.MethodGet, path, nil, false) }

func (s *testServer) hxGet(path string) *http.Response { return s.do(http.MethodGet, path, nil, true) }

// send issues a GET with extra headers.
func (s *testServer) send(path string, headers map[string]string) *http.Response {
	s.t.Helper()
	req, err := http.NewRequest(http.MethodGet, s.srv.URL+path, nil)
	require.NoError(s.t, err)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := s.client.Do(req)
	require.NoError(s.t, err)
	s.t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

// hxNavigate is a boosted link or form request issued from the page at current.
func (s *testServer) hxNavigate(path, current string) *http.Response {
	return s.send(path, map[string]string{"HX-Request": "true", "HX-Current-URL": s.srv.URL + current})
}

// historyRestore is what the browser's back or forward button sends for path.
func (s *testServer) historyRestore(path string) *http.Response {
	return s.send(path, map[string]string{
		"HX-Request":                 "true",
		"HX-History-Restore-Request": "true",
		"HX-Current-URL":             s.srv.URL + path,
	})
}

func (s *testServer) hxPost(path string, form url.Values) *http.Response {
	if form == nil {
		form = url.Values{}
	}
	return s.do(http.MethodPost, path, form, true)
}

func (s *testServer) tr(lang i18n.Language, key string) string { return s.app.bundle.T(lang, key) }

func parse(t *testing.T, resp *http.Response) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	require.NoError(t, err)
	return doc
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	resp := s.get("/healthz")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, "ok", strings.TrimSpace(string(body)))
}

func TestMetricsCountPages(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusOK, s.get("/").StatusCode)

	resp := s.get("/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "kabar_page_requests_total")
	require.Contains(t, string(body), "kabar_active_visitors 1")
}

func TestHomeIsLocalized(t *testing.T) {
	s := newTestServer(t)

	doc := parse(t, s.get("/"))
	lang, _ := doc.Find("html").Attr("lang")
	require.Equal(t, "id", lang)
	require.Equal(t, s.tr(i18n.Indonesian, "nav.tags"), strings.TrimSpace(doc.Find(`#site-nav a[href="/tags"]`).Text()))
	require.Equal(t, 1, doc.Find(`link[rel="alternate"][hreflang="en"]`).Length())

	doc = parse(t, s.get("/?hl=en"))
	lang, _ = doc.Find("html").Attr("lang")
	require.Equal(t, "en", lang)
	require.Equal(t, s.tr(i18n.English, "nav.tags"), strings.TrimSpace(doc.Find(`#site-nav a[href="/tags"]`).Text()))

	// the override sticks for later requests
	doc = parse(t, s.get("/"))
	lang, _ = doc.Find("html").Attr("lang")
	require.Equal(t, "en", lang)
}

func TestUnknownPathRendersNotFound(t *testing.T) {
	s := newTestServer(t)
	for _, path := range []string{"/definitely/not/a/page", "/cooking", "/anime/no-such-article"} {
		resp := s.get(path)
		require.Equal(t, http.StatusNotFound, resp.StatusCode, path)
		doc := parse(t, resp)
		require.Equal(t, 1, doc.Find(".notfound").Length(), path)
		robots, _ := doc.Find(`meta[name="robots"]`).Attr("content")
		require.Equal(t, "noindex", robots)
	}
}

func TestCategoryClampsPageAndReplacesURL(t *testing.T) {
	s := newTestServer(t)
	s.get("/")

	resp := s.hxGet("/anime?page=9")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "/anime?page=3", resp.Header.Get("HX-Replace-Url"))
	require.Empty(t, resp.Header.Get("HX-Push-Url"))

	doc := parse(t, resp)
	require.Equal(t, "3", strings.TrimSpace(doc.Find(`.pagination [aria-current="page"]`).Text()))
	require.Equal(t, 1, doc.Find("#listing .card").Length())
	canonical, _ := doc.Find(`link[rel="canonical"]`).Attr("href")
	require.Equal(t, "https://kabaranime.test/anime?page=3", canonical)
}

func TestCategorySearchResetsPage(t *testing.T) {
	s := newTestServer(t)
	s.get("/")

	resp := s.hxNavigate("/anime?page=2", "/anime")
	require.Equal(t, "/anime?page=2", resp.Header.Get("HX-Push-Url"))
	doc := parse(t, resp)
	require.Equal(t, 12, doc.Find("#listing .card").Length())

	resp = s.hxNavigate("/anime?page=2&q=chainsaw", "/anime?page=2")
	require.Equal(t, "/anime?q=chainsaw", resp.Header.Get("HX-Replace-Url"))
	doc = parse(t, resp)
	require.Equal(t, 2, doc.Find("#listing .card").Length())
	require.Equal(t, 0, doc.Find(".pagination").Length())
	val, _ := doc.Find("#listing-q").Attr("value")
	require.Equal(t, "chainsaw", val)
}

func TestCategoryViewSwitchKeepsPage(t *testing.T) {
	s := newTestServer(t)
	s.get("/anime?page=2")

	doc := parse(t, s.hxNavigate("/anime?page=2&view=list", "/anime?page=2"))
	require.Equal(t, "2", strings.TrimSpace(doc.Find(`.pagination [aria-current="page"]`).Text()))
	require.Equal(t, 1, doc.Find("#listing .cards-list").Length())
	require.Equal(t, 8, doc.Find("#listing .card").Length())
}

func TestCategorySortChangeResetsPage(t *testing.T) {
	s := newTestServer(t)
	s.get("/anime?page=3")

	resp := s.hxNavigate("/anime?page=3&sort=oldest", "/anime?page=3")
	require.Equal(t, "/anime?sort=oldest", resp.Header.Get("HX-Replace-Url"))
	doc := parse(t, resp)
	require.Equal(t, "1", strings.TrimSpace(doc.Find(`.pagination [aria-current="page"]`).Text()))
}

func TestCategoryResetIgnoresOtherTabs(t *testing.T) {
	s := newTestServer(t)
	s.get("/anime")

	// a second tab of the same visitor changes the sort order
	s.hxNavigate("/anime?sort=popular", "/anime")

	resp := s.hxNavigate("/anime?page=3", "/anime")
	require.Equal(t, "/anime?page=3", resp.Header.Get("HX-Push-Url"))
	require.Empty(t, resp.Header.Get("HX-Replace-Url"))
	doc := parse(t, resp)
	require.Equal(t, "3", strings.TrimSpace(doc.Find(`.pagination [aria-current="page"]`).Text()))
}

const chainsawArticle = "/anime/chainsaw-man-season-2-announced"

func TestArticlePageMetadata(t *testing.T) {
	s := newTestServer(t)
	doc := parse(t, s.get(chainsawArticle+"?hl=en"))

	require.Equal(t, "Chainsaw Man Season 2 officially announced", strings.TrimSpace(doc.Find("article h1").Text()))
	ogType, _ := doc.Find(`meta[property="og:type"]`).Attr("content")
	require.Equal(t, "article", ogType)

	var ld []string
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, sel *goquery.Selection) {
		ld = append(ld, sel.Text())
	})
	require.NotEmpty(t, ld)
	require.Contains(t, strings.Join(ld, "\n"), `"NewsArticle"`)
	require.Contains(t, strings.Join(ld, "\n"), `"BreadcrumbList"`)
	require.Equal(t, 2, doc.Find("#comments .comment").Length())
}

func TestEmptyCommentWarns(t *testing.T) {
	s := newTestServer(t)
	s.get(chainsawArticle)

	resp := s.hxPost(chainsawArticle+"/comments", url.Values{"body": {"   "}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc := parse(t, resp)
	require.Equal(t, 2, doc.Find("#comments .comment").Length())
	warn := doc.Find(`#notifications[hx-swap-oob] .toast-warning`)
	require.Equal(t, 1, warn.Length())
	require.Contains(t, warn.Text(), s.tr(i18n.Indonesian, "comment.empty"))
}

func TestPostComment(t *testing.T) {
	s := newTestServer(t)
	s.get(chainsawArticle)

	doc := parse(t, s.hxPost(chainsawArticle+"/comments", url.Values{"author": {"Sekar"}, "body": {"Nggak sabar!"}}))
	require.Equal(t, 3, doc.Find("#comments .comment").Length())
	require.Contains(t, doc.Find("#comments").Text(), "Nggak sabar!")
	require.Equal(t, 1, doc.Find("#notifications .toast-success").Length())
}

func TestCommentLikeToggles(t *testing.T) {
	s := newTestServer(t)
	doc := parse(t, s.get(chainsawArticle))

	first := doc.Find("#comments .comment").First()
	id, _ := first.Attr("id")
	action, _ := first.Find("form").Attr("action")
	before, err := strconv.Atoi(strings.TrimSpace(first.Find(".like-count").Text()))
	require.NoError(t, err)

	doc = parse(t, s.hxPost(action, nil))
	liked := doc.Find("#" + id)
	require.Equal(t, strconv.Itoa(before+1), strings.TrimSpace(liked.Find(".like-count").Text()))
	pressed, _ := liked.Find("button.like").Attr("aria-pressed")
	require.Equal(t, "true", pressed)

	doc = parse(t, s.hxPost(action, nil))
	require.Equal(t, strconv.Itoa(before), strings.TrimSpace(doc.Find("#"+id+" .like-count").Text()))
}

func TestModifyingRequestsNeedCSRF(t *testing.T) {
	s := newTestServer(t)
	s.get("/")

	req, err := http.NewRequest(http.MethodPost, s.srv.URL+"/lang", strings.NewReader("lang=en"))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := s.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestLanguageToggle(t *testing.T) {
	s := newTestServer(t)
	s.get("/")

	resp := s.hxPost("/lang", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Equal(t, "true", resp.Header.Get("HX-Refresh"))

	doc := parse(t, s.get("/"))
	lang, _ := doc.Find("html").Attr("lang")
	require.Equal(t, "en", lang)
	require.Contains(t, doc.Find("#notifications .toast-success").Text(), s.tr(i18n.English, "settings.language.changed"))
}

func TestUnsupportedLanguageIsRejected(t *testing.T) {
	s := newTestServer(t)
	s.get("/")

	resp := s.hxPost("/lang", url.Values{"lang": {"fr"}})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	doc := parse(t, resp)
	require.Equal(t, 1, doc.Find(".toast-error").Length())

	doc = parse(t, s.get("/"))
	lang, _ := doc.Find("html").Attr("lang")
	require.Equal(t, "id", lang)
}

func TestThemeToggle(t *testing.T) {
	s := newTestServer(t)
	s.get("/")

	require.Equal(t, http.StatusNoContent, s.hxPost("/theme", url.Values{"dark": {"true"}}).StatusCode)
	doc := parse(t, s.get("/"))
	theme, _ := doc.Find("html").Attr("data-theme")
	require.Equal(t, "dark", theme)

	require.Equal(t, http.StatusBadRequest, s.hxPost("/theme", url.Values{"dark": {"maybe"}}).StatusCode)
}

func TestToastExpiresOnSchedule(t *testing.T) {
	s := newTestServer(t)
	s.get("/")
	s.hxPost("/theme", nil)

	doc := parse(t, s.hxGet("/_frag/notifications"))
	toast := doc.Find(".toast")
	require.Equal(t, 1, toast.Length())
	trigger, _ := toast.Attr("hx-trigger")
	require.Equal(t, "load delay:5000ms", trigger)

	s.sched.Advance(5 * time.Second)
	doc = parse(t, s.hxGet("/_frag/notifications"))
	require.Equal(t, 0, doc.Find(".toast").Length())
}

func TestDismissToast(t *testing.T) {
	s := newTestServer(t)
	s.get("/")
	s.hxPost("/theme", nil)

	doc := parse(t, s.hxGet("/_frag/notifications"))
	id, _ := doc.Find(".toast").Attr("id")
	doc = parse(t, s.do(http.MethodDelete, "/toasts/"+strings.TrimPrefix(id, "toast-"), nil, true))
	require.Equal(t, 0, doc.Find(".toast").Length())
	require.Equal(t, 0, s.sched.Pending())
}

func TestNewsletterOfferedOnce(t *testing.T) {
	s := newTestServer(t)

	doc := parse(t, s.get("/"))
	require.Equal(t, 1, doc.Find(".popup-newsletter").Length())

	doc = parse(t, s.do(http.MethodDelete, "/newsletter", nil, true))
	require.Equal(t, 0, doc.Find(".popup-newsletter").Length())

	doc = parse(t, s.get("/"))
	require.Equal(t, 0, doc.Find(".popup-newsletter").Length())
}

func TestNewsletterSubscribe(t *testing.T) {
	s := newTestServer(t)
	s.get("/")

	doc := parse(t, s.hxPost("/newsletter/action", url.Values{"email": {"not-an-email"}}))
	require.Equal(t, 1, doc.Find(".popup-newsletter").Length())
	require.Equal(t, 1, doc.Find(".toast-warning").Length())

	doc = parse(t, s.hxPost("/newsletter/action", url.Values{"email": {"fan@example.com"}}))
	require.Equal(t, 0, doc.Find(".popup-newsletter").Length())
	require.Contains(t, doc.Find(".toast-success").Text(), s.tr(i18n.Indonesian, "newsletter.subscribed"))
}

func TestClearHistoryNeedsConfirmation(t *testing.T) {
	s := newTestServer(t)
	s.get(chainsawArticle)

	doc := parse(t, s.get("/settings"))
	require.Equal(t, 1, doc.Find(".history li").Length())

	doc = parse(t, s.hxPost("/history/clear", nil))
	require.Equal(t, 1, doc.Find(".alert").Length())

	// closing keeps the history
	s.do(http.MethodDelete, "/alert", nil, true)
	doc = parse(t, s.get("/settings"))
	require.Equal(t, 1, doc.Find(".history li").Length())

	s.hxPost("/history/clear", nil)
	resp := s.hxPost("/alert/action", nil)
	require.Equal(t, "true", resp.Header.Get("HX-Refresh"))
	doc = parse(t, s.get("/settings"))
	require.Equal(t, 0, doc.Find(".history li").Length())
	require.Equal(t, 0, doc.Find(".alert").Length())
}

func TestBackAndForward(t *testing.T) {
	s := newTestServer(t)
	s.get("/")
	s.get("/anime")

	resp := s.hxPost("/nav/back", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Equal(t, "/", resp.Header.Get("HX-Location"))

	resp = s.hxPost("/nav/forward", nil)
	require.Equal(t, "/anime", resp.Header.Get("HX-Location"))

	resp = s.do(http.MethodPost, "/nav/back", url.Values{}, false)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/", resp.Header.Get("Location"))
}

func TestBrowserHistoryResyncsNavigator(t *testing.T) {
	s := newTestServer(t)
	doc := parse(t, s.get("/anime"))
	cfg, _ := doc.Find(`meta[name="htmx-config"]`).Attr("content")
	require.Contains(t, cfg, `"historyCacheSize":0`)

	s.hxNavigate("/anime?sort=popular", "/anime")

	resp := s.historyRestore("/anime")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Empty(t, resp.Header.Get("HX-Push-Url"))

	resp = s.hxNavigate("/anime?page=3", "/anime")
	require.Empty(t, resp.Header.Get("HX-Replace-Url"))
	doc = parse(t, resp)
	require.Equal(t, "3", strings.TrimSpace(doc.Find(`.pagination [aria-current="page"]`).Text()))

	resp = s.hxPost("/nav/back", nil)
	require.Equal(t, "/anime", resp.Header.Get("HX-Location"))
}

func TestLoginAndLogout(t *testing.T) {
	s := newTestServer(t)
	s.get("/login")

	resp := s.hxPost("/login", url.Values{"identifier": {""}, "password": {""}})
	doc := parse(t, resp)
	require.Equal(t, 1, doc.Find(".toast-warning").Length())

	resp = s.hxPost("/login", url.Values{"identifier": {"rina"}, "password": {"hunter2"}})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Equal(t, "/", resp.Header.Get("HX-Redirect"))

	doc = parse(t, s.get("/"))
	require.Contains(t, doc.Find(".header-actions").Text(), "rina")

	s.hxPost("/logout", nil)
	doc = parse(t, s.get("/"))
	require.Equal(t, 1, doc.Find(`.header-actions a[href="/login"]`).Length())
}

func TestFeedbackForms(t *testing.T) {
	s := newTestServer(t)
	doc := parse(t, s.get("/contact"))
	require.Equal(t, 1, doc.Find(`form[action="/feedback/contact"]`).Length())

	doc = parse(t, s.hxPost("/feedback/contact", url.Values{"message": {" "}}))
	require.Equal(t, 1, doc.Find(".alert-warning").Length())
	s.do(http.MethodDelete, "/alert", nil, true)

	doc = parse(t, s.hxPost("/feedback/report-bug", url.Values{"message": {"Tombol kembali tidak aktif."}}))
	require.Contains(t, doc.Find(".toast-info").Text(), s.tr(i18n.Indonesian, "feedback.thanks"))

	require.Equal(t, http.StatusNotFound, s.hxPost("/feedback/complaints", url.Values{"message": {"x"}}).StatusCode)
}

func TestContentPages(t *testing.T) {
	s := newTestServer(t)
	doc := parse(t, s.get("/about?hl=en"))
	require.Contains(t, doc.Find("article h1").Text(), "About Us")

	doc = parse(t, s.get("/privacy"))
	require.Equal(t, 1, doc.Find(".banner").Length())
}

func TestInboxMarkAllRead(t *testing.T) {
	s := newTestServer(t)
	doc := parse(t, s.get("/notifications"))
	require.Equal(t, 4, doc.Find(".inbox-item.unread").Length())
	require.Equal(t, "4", strings.TrimSpace(doc.Find("#unread-badge").Text()))

	doc = parse(t, s.hxPost("/notifications/n002/read", nil))
	require.Equal(t, 3, doc.Find(".inbox-item.unread").Length())

	doc = parse(t, s.hxPost("/notifications/read-all", nil))
	require.Equal(t, 0, doc.Find(".inbox-item.unread").Length())
	_, hidden := doc.Find(`#unread-badge[hx-swap-oob]`).Attr("hidden")
	require.True(t, hidden)

	doc = parse(t, s.hxPost("/notifications/n999/read", nil))
	require.Equal(t, 1, doc.Find(".toast-error").Length())
}

func TestSearchPage(t *testing.T) {
	s := newTestServer(t)
	doc := parse(t, s.get("/search?q=chainsaw"))
	require.Equal(t, 4, doc.Find(".card").Length())
	robots, _ := doc.Find(`meta[name="robots"]`).Attr("content")
	require.Equal(t, "noindex, follow", robots)
}

func TestLiveSocketPushesNotifications(t *testing.T) {
	s := newTestServer(t)
	s.get("/")

	dialer := websocket.Dialer{Jar: s.client.Jar, HandshakeTimeout: 2 * time.Second}
	conn, resp, err := dialer.Dial("ws"+strings.TrimPrefix(s.srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	s.hxPost("/theme", nil)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Contains(t, string(msg), `id="notifications"`)
	require.Contains(t, string(msg), `hx-swap-oob="true"`)
	require.Contains(t, string(msg), "toast-success")
}
