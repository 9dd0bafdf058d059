package middleware

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"kabaranime.id/portal/internal/i18n"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func chain(h http.Handler) http.Handler {
	return Session(SessionOptions{Secret: testSecret})(HTMX(CSRF(h)))
}

func sessionCookies(t *testing.T, h http.Handler) []*http.Cookie {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	return rec.Result().Cookies()
}

func find(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestSessionAssignsStableVisitor(t *testing.T) {
	var seen []string
	h := chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, GetSession(r).Visitor)
	}))

	cookies := sessionCookies(t, h)
	sc := find(cookies, sessionCookieName)
	require.NotNil(t, sc)
	require.True(t, sc.HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(sc)
	h.ServeHTTP(httptest.NewRecorder(), req)

	require.Len(t, seen, 2)
	require.NotEmpty(t, seen[0])
	require.Equal(t, seen[0], seen[1])
}

func TestSessionRejectsTamperedCookie(t *testing.T) {
	var visitor string
	h := chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		visitor = GetSession(r).Visitor
	}))
	sc := find(sessionCookies(t, h), sessionCookieName)
	first := visitor

	forged := *sc
	forged.Value = strings.Replace(sc.Value, ".", "x.", 1)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&forged)
	h.ServeHTTP(httptest.NewRecorder(), req)
	require.NotEqual(t, first, visitor)
}

func TestCSRFEnforcedOnUnsafeMethods(t *testing.T) {
	h := chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	cookies := sessionCookies(t, h)
	sc, cc := find(cookies, sessionCookieName), find(cookies, csrfCookieName)
	require.NotNil(t, cc)

	missing := httptest.NewRequest(http.MethodPost, "/lang", nil)
	missing.AddCookie(sc)
	missing.AddCookie(cc)
	missing.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, missing)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "application/json")

	ok := httptest.NewRequest(http.MethodPost, "/lang", nil)
	ok.AddCookie(sc)
	ok.AddCookie(cc)
	ok.Header.Set(CSRFHeader, cc.Value)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, ok)
	require.Equal(t, http.StatusNoContent, rec.Code)

	form := url.Values{CSRFField: {cc.Value}, "lang": {"en"}}
	post := httptest.NewRequest(http.MethodPost, "/lang", strings.NewReader(form.Encode()))
	post.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	post.AddCookie(sc)
	post.AddCookie(cc)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, post)
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestLocaleNegotiation(t *testing.T) {
	bundle, err := i18n.NewBundle(map[i18n.Language]map[string]string{i18n.Indonesian: {}, i18n.English: {}}, i18n.Indonesian)
	require.NoError(t, err)

	var got i18n.Language
	h := Locale(bundle)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { got = Lang(r) }))

	cases := []struct {
		name   string
		target string
		cookie string
		accept string
		want   i18n.Language
	}{
		{name: "default", target: "/", want: i18n.Indonesian},
		{name: "accept-language", target: "/", accept: "en-US,en;q=0.9", want: i18n.English},
		{name: "cookie beats header", target: "/", cookie: "id", accept: "en", want: i18n.Indonesian},
		{name: "query beats cookie", target: "/?hl=en", cookie: "id", want: i18n.English},
		{name: "bad query ignored", target: "/?hl=xx", accept: "en", want: i18n.English},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.target, nil)
			if tc.cookie != "" {
				req.AddCookie(&http.Cookie{Name: LangCookie, Value: tc.cookie})
			}
			if tc.accept != "" {
				req.Header.Set("Accept-Language", tc.accept)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestLoggerWritesOneEntry(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h := Session(SessionOptions{Secret: testSecret})(Logger(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		LoggerFrom(r.Context()).Debug("inside")
		w.WriteHeader(http.StatusTeapot)
	})))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/anime", nil))

	entries := logs.FilterMessage("request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	require.Equal(t, "/anime", fields["path"])
	require.EqualValues(t, http.StatusTeapot, fields["status"])
	require.NotEmpty(t, fields["visitor"])
}

func TestInstrumentReportsPage(t *testing.T) {
	var page string
	var status int
	h := Instrument(func(p string, s int, _ time.Duration) { page, status = p, s })(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		SetPage(r.Context(), "category")
		w.WriteHeader(http.StatusNotFound)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))
	require.Equal(t, "category", page)
	require.Equal(t, http.StatusNotFound, status)
}

func TestTriggerEncodesEvents(t *testing.T) {
	rec := httptest.NewRecorder()
	Trigger(rec, map[string]any{"toast": map[string]string{"kind": "success"}})
	require.JSONEq(t, `{"toast":{"kind":"success"}}`, rec.Header().Get("HX-Trigger"))

	rec = httptest.NewRecorder()
	Trigger(rec, nil)
	require.Empty(t, rec.Header().Get("HX-Trigger"))
}

func TestAuthDebugHeaderInDev(t *testing.T) {
	var user *User
	h := Session(SessionOptions{Secret: testSecret})(Auth(true)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user = UserFromContext(r.Context())
	})))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer debug:rina")
	h.ServeHTTP(httptest.NewRecorder(), req)
	require.NotNil(t, user)
	require.Equal(t, "rina", user.ID)

	user = nil
	prod := Session(SessionOptions{Secret: testSecret})(Auth(false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user = UserFromContext(r.Context())
	})))
	prod.ServeHTTP(httptest.NewRecorder(), req)
	require.Nil(t, user)
}
