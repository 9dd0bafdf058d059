package main

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	mw "kabaranime.id/portal/internal/middleware"
	"kabaranime.id/portal/internal/notify"
	"kabaranime.id/portal/internal/portal"
)

// feedbackKinds are the pages carrying the feedback form.
var feedbackKinds = map[string]bool{
	"contact":         true,
	"report-bug":      true,
	"feature-request": true,
}

const maxFeedbackRunes = 4000

// loginHandler signs the visitor in. There is no account backend: any
// non-blank identifier and password pair is accepted.
func (a *app) loginHandler(w http.ResponseWriter, r *http.Request, st *portal.State) {
	ident := strings.TrimSpace(r.PostFormValue("identifier"))
	password := r.PostFormValue("password")
	if ident == "" || strings.TrimSpace(password) == "" {
		st.Notifications.Warning(t(st, "login.required"))
		a.respondNotifications(w, r, st)
		return
	}
	sess := mw.GetSession(r)
	sess.SignIn(userID(ident), ident)
	mw.LoggerFrom(r.Context()).Info("signed in", zap.String("user_id", sess.UserID))
	st.Notifications.Success(st.Language.Tf("login.welcome", ident))
	a.redirect(w, r, "/")
}

func (a *app) logoutHandler(w http.ResponseWriter, r *http.Request, st *portal.State) {
	mw.GetSession(r).SignOut()
	st.Notifications.Info(t(st, "login.signed_out"))
	a.redirect(w, r, "/")
}

// userID derives a stable opaque id from the identifier.
func userID(ident string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(ident)))
	return "u_" + hex.EncodeToString(sum[:8])
}

// feedbackHandler accepts the contact, report-bug and feature-request forms.
// A blank message raises a warning alert and nothing is recorded.
func (a *app) feedbackHandler(w http.ResponseWriter, r *http.Request, st *portal.State) {
	kind := chi.URLParam(r, "kind")
	if !feedbackKinds[kind] {
		mw.WriteError(w, r, http.StatusNotFound, "unknown feedback form")
		return
	}
	msg := strings.TrimSpace(r.PostFormValue("message"))
	if msg == "" {
		st.Notifications.ShowAlert(notify.KindWarning, t(st, "feedback.required_title"), t(st, "feedback.required"), nil)
		a.respondNotifications(w, r, st)
		return
	}
	if utf8.RuneCountInString(msg) > maxFeedbackRunes {
		st.Notifications.Warning(t(st, "feedback.too_long"))
		a.respondNotifications(w, r, st)
		return
	}
	email, _ := parseEmail(r.PostFormValue("email"))
	mw.LoggerFrom(r.Context()).Info("feedback received",
		zap.String("kind", kind),
		zap.String("visitor", st.Visitor),
		zap.Bool("has_email", email != ""),
		zap.Int("length", utf8.RuneCountInString(msg)),
	)
	st.Notifications.Info(t(st, "feedback.thanks"))
	a.respondNotifications(w, r, st)
}

// redirect sends the client to p with a full page load, which also picks up
// the rotated CSRF token.
func (a *app) redirect(w http.ResponseWriter, r *http.Request, p string) {
	if mw.IsHTMX(r.Context()) {
		w.Header().Set("HX-Redirect", p)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, p, http.StatusSeeOther)
}
