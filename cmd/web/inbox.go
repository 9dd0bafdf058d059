package main

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"kabaranime.id/portal/internal/inbox"
	mw "kabaranime.id/portal/internal/middleware"
	"kabaranime.id/portal/internal/portal"
)

func (a *app) inboxReadAllHandler(w http.ResponseWriter, r *http.Request, st *portal.State) {
	if n := st.Inbox.MarkAllRead(); n > 0 {
		st.Notifications.Success(t(st, "notifications.all_read"))
	}
	a.respondInbox(w, r, st)
}

func (a *app) inboxReadHandler(w http.ResponseWriter, r *http.Request, st *portal.State) {
	if err := st.Inbox.MarkRead(chi.URLParam(r, "id")); err != nil {
		if !errors.Is(err, inbox.ErrNotFound) {
			mw.WriteError(w, r, http.StatusInternalServerError, "internal error")
			return
		}
		st.Notifications.Error(t(st, "notifications.not_found"))
	}
	a.respondInbox(w, r, st)
}

// respondInbox re-renders the inbox list with the unread badge and the
// notification region out of band.
func (a *app) respondInbox(w http.ResponseWriter, r *http.Request, st *portal.State) {
	if !mw.IsHTMX(r.Context()) {
		http.Redirect(w, r, "/notifications", http.StatusSeeOther)
		return
	}
	filter := inbox.ParseFilter(r.URL.Query().Get("filter"))
	data := map[string]any{
		"Lang":      st.Language.Language(),
		"Inbox":     a.inboxView(st, filter),
		"CSRFToken": mw.CSRFToken(r),
	}
	a.renderTemplate(w, r, "frag_inbox", data,
		fragment{name: "frag_unread_badge", data: map[string]any{"Unread": st.Inbox.Unread(), "OOB": true}},
		notificationsFragment(st, true),
	)
}
