package main

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"kabaranime.id/portal/internal/i18n"
	mw "kabaranime.id/portal/internal/middleware"
	"kabaranime.id/portal/internal/notify"
	"kabaranime.id/portal/internal/portal"
)

// languageHandler sets the language from the lang field, or toggles it when
// the field is absent. Unsupported codes are rejected and change nothing.
func (a *app) languageHandler(w http.ResponseWriter, r *http.Request, st *portal.State) {
	ctx := r.Context()
	raw := strings.TrimSpace(r.PostFormValue("lang"))
	var err error
	if raw == "" {
		_, err = st.Language.Toggle(ctx)
	} else {
		lang, ok := i18n.ParseLanguage(raw)
		if !ok {
			err = i18n.ErrUnsupportedLanguage
		} else {
			err = st.Language.SetLanguage(ctx, lang)
		}
	}
	if errors.Is(err, i18n.ErrUnsupportedLanguage) {
		st.Notifications.Error(t(st, "settings.language.invalid"))
		if !mw.IsHTMX(r.Context()) {
			mw.WriteError(w, r, http.StatusBadRequest, "unsupported language")
			return
		}
		f := notificationsFragment(st, false)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusBadRequest)
		_ = a.views.fragments().ExecuteTemplate(w, f.name, f.data)
		return
	}
	if err != nil {
		// the switch applies to this visitor even when persisting failed
		mw.LoggerFrom(ctx).Warn("persist language", zap.Error(err))
	}
	lang := st.Language.Language()
	http.SetCookie(w, &http.Cookie{Name: mw.LangCookie, Value: lang.String(), Path: "/", SameSite: http.SameSiteLaxMode})
	st.Notifications.Success(t(st, "settings.language.changed"))
	a.refresh(w, r)
}

// themeHandler sets dark mode from the dark field ("true"/"false") or toggles it.
func (a *app) themeHandler(w http.ResponseWriter, r *http.Request, st *portal.State) {
	ctx := r.Context()
	var err error
	if raw := strings.TrimSpace(r.PostFormValue("dark")); raw != "" {
		dark, perr := strconv.ParseBool(raw)
		if perr != nil {
			mw.WriteError(w, r, http.StatusBadRequest, "invalid theme")
			return
		}
		err = st.Theme.SetDark(ctx, dark)
	} else {
		_, err = st.Theme.Toggle(ctx)
	}
	if err != nil {
		mw.LoggerFrom(ctx).Error("persist theme", zap.Error(err))
		st.Notifications.Error(t(st, "error.generic"))
		a.respondNotifications(w, r, st)
		return
	}
	st.Notifications.Success(t(st, "settings.theme.changed"))
	a.refresh(w, r)
}

// historyClearHandler asks for confirmation; the alert's action clears the list.
func (a *app) historyClearHandler(w http.ResponseWriter, r *http.Request, st *portal.State) {
	center := st.Notifications
	history := st.History
	cleared := t(st, "settings.history.cleared")
	logger := mw.LoggerFrom(r.Context())
	center.ShowAlert(notify.KindWarning, t(st, "settings.history.clear_title"), t(st, "settings.history.clear_confirm"), &notify.Action{
		Label: t(st, "settings.history.clear"),
		Run: func() {
			// runs in a later request; the originating one is gone
			if err := history.Clear(context.Background()); err != nil {
				logger.Warn("clear reading history", zap.Error(err))
				return
			}
			center.Success(cleared)
		},
	})
	a.respondNotifications(w, r, st)
}

// refresh reloads the current page so every region picks up the change.
func (a *app) refresh(w http.ResponseWriter, r *http.Request) {
	if mw.IsHTMX(r.Context()) {
		w.Header().Set("HX-Refresh", "true")
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, refererPath(r), http.StatusSeeOther)
}
