package main

import (
	"bytes"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	handlersPkg "kabaranime.id/portal/internal/handlers"
	mw "kabaranime.id/portal/internal/middleware"
	"kabaranime.id/portal/internal/portal"
)

// newsletterKey stores the subscribed address in the visitor's namespace.
const newsletterKey = "newsletterEmail"

const (
	wsWriteWait  = 10 * time.Second
	wsPingPeriod = 30 * time.Second
)

// notificationsFrag renders the notification region on its own.
func (a *app) notificationsFrag(w http.ResponseWriter, r *http.Request, st *portal.State) {
	a.respondNotifications(w, r, st)
}

// respondNotifications answers a notification mutation: htmx gets the
// refreshed region, plain form posts go back where they came from.
func (a *app) respondNotifications(w http.ResponseWriter, r *http.Request, st *portal.State) {
	if !mw.IsHTMX(r.Context()) && r.Method != http.MethodGet {
		http.Redirect(w, r, refererPath(r), http.StatusSeeOther)
		return
	}
	f := notificationsFragment(st, false)
	a.renderTemplate(w, r, f.name, f.data)
}

// dismissToastHandler is the manual dismiss path; the toast's own expiry
// request lands here too.
func (a *app) dismissToastHandler(w http.ResponseWriter, r *http.Request, st *portal.State) {
	st.Notifications.RemoveToast(chi.URLParam(r, "id"))
	a.respondNotifications(w, r, st)
}

func (a *app) newsletterOpenHandler(w http.ResponseWriter, r *http.Request, st *portal.State) {
	a.offerNewsletter(st)
	a.respondNotifications(w, r, st)
}

func (a *app) newsletterCloseHandler(w http.ResponseWriter, r *http.Request, st *portal.State) {
	st.Notifications.CloseNewsletter()
	a.respondNotifications(w, r, st)
}

// newsletterSubscribeHandler validates the address, then runs the popup's
// action and closes it. An invalid address leaves the popup open.
func (a *app) newsletterSubscribeHandler(w http.ResponseWriter, r *http.Request, st *portal.State) {
	addr, ok := parseEmail(r.PostFormValue("email"))
	if !ok {
		st.Notifications.Warning(t(st, "newsletter.invalid_email"))
		a.respondNotifications(w, r, st)
		return
	}
	if err := a.store.Set(r.Context(), st.Visitor, newsletterKey, addr); err != nil {
		mw.LoggerFrom(r.Context()).Error("store newsletter subscription", zap.Error(err))
		st.Notifications.Error(t(st, "error.generic"))
		a.respondNotifications(w, r, st)
		return
	}
	if !st.Notifications.TriggerNewsletterAction() {
		// subscribed from the footer form without an open popup
		st.Notifications.Success(t(st, "newsletter.subscribed"))
	}
	st.Notifications.CloseNewsletter()
	a.respondNotifications(w, r, st)
}

func parseEmail(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	addr, err := mail.ParseAddress(raw)
	if err != nil || addr.Name != "" || !strings.Contains(addr.Address[strings.LastIndexByte(addr.Address, '@')+1:], ".") {
		return "", false
	}
	return strings.ToLower(addr.Address), true
}

func (a *app) alertCloseHandler(w http.ResponseWriter, r *http.Request, st *portal.State) {
	st.Notifications.CloseAlert()
	a.respondNotifications(w, r, st)
}

// alertActionHandler runs the alert's action and closes it. Actions usually
// change page content, so htmx reloads the page.
func (a *app) alertActionHandler(w http.ResponseWriter, r *http.Request, st *portal.State) {
	ran := st.Notifications.TriggerAlertAction()
	st.Notifications.CloseAlert()
	if ran && mw.IsHTMX(r.Context()) {
		w.Header().Set("HX-Refresh", "true")
	}
	a.respondNotifications(w, r, st)
}

// liveHandler pushes the notification region over a websocket after every
// change, plus a language marker when another tab switches language.
func (a *app) liveHandler(w http.ResponseWriter, r *http.Request, st *portal.State) {
	logger := mw.LoggerFrom(r.Context())
	// subscribe first so changes made right after the handshake are delivered
	updates, stopUpdates := st.Notifications.Subscribe()
	defer stopUpdates()
	langs, stopLangs := st.Language.Subscribe()
	defer stopLangs()

	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	// the client never sends anything; reading detects the close
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()
	for {
		var msg []byte
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case s, ok := <-updates:
			if !ok {
				return
			}
			var buf bytes.Buffer
			view := handlersPkg.NotificationsView{Lang: st.Language.Language(), Notifications: s, OOB: true}
			if err := a.views.fragments().ExecuteTemplate(&buf, "frag_notifications", view); err != nil {
				logger.Error("render live notifications", zap.Error(err))
				return
			}
			msg = buf.Bytes()
		case l, ok := <-langs:
			if !ok {
				return
			}
			var buf bytes.Buffer
			if err := a.views.fragments().ExecuteTemplate(&buf, "frag_live_lang", l); err != nil {
				logger.Error("render language marker", zap.Error(err))
				return
			}
			msg = buf.Bytes()
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
			continue
		}
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			logger.Debug("websocket write", zap.Error(err))
			return
		}
	}
}
