package main

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"kabaranime.id/portal/internal/catalog"
	mw "kabaranime.id/portal/internal/middleware"
	"kabaranime.id/portal/internal/portal"
)

// commentHandler posts a comment. A blank body raises a warning toast and
// leaves the thread unchanged.
func (a *app) commentHandler(w http.ResponseWriter, r *http.Request, st *portal.State) {
	art, ok := a.findArticle(chi.URLParam(r, "category"), chi.URLParam(r, "slug"))
	if !ok {
		mw.WriteError(w, r, http.StatusNotFound, "article not found")
		return
	}
	author := r.PostFormValue("author")
	if u := mw.UserFromContext(r.Context()); u != nil && u.Name != "" {
		author = u.Name
	}
	_, err := a.board.Thread(art.ID).Add(author, r.PostFormValue("body"))
	switch {
	case errors.Is(err, catalog.ErrEmptyComment):
		st.Notifications.Warning(t(st, "comment.empty"))
	case err != nil:
		mw.LoggerFrom(r.Context()).Error("add comment", zap.Error(err), zap.String("article", art.ID))
		st.Notifications.Error(t(st, "error.generic"))
	default:
		a.metrics.CommentPosted()
		st.Notifications.Success(t(st, "comment.posted"))
	}
	a.respondComments(w, r, st, art)
}

// commentLikeHandler toggles the visitor's like on one comment.
func (a *app) commentLikeHandler(w http.ResponseWriter, r *http.Request, st *portal.State) {
	art, ok := a.findArticle(chi.URLParam(r, "category"), chi.URLParam(r, "slug"))
	if !ok {
		mw.WriteError(w, r, http.StatusNotFound, "article not found")
		return
	}
	if _, err := a.board.Thread(art.ID).ToggleLike(chi.URLParam(r, "id"), st.Visitor); err != nil {
		if !errors.Is(err, catalog.ErrCommentNotFound) {
			mw.LoggerFrom(r.Context()).Error("toggle like", zap.Error(err))
		}
		st.Notifications.Error(t(st, "comment.not_found"))
	}
	a.respondComments(w, r, st, art)
}

// respondComments re-renders the thread with the notification region out of band.
func (a *app) respondComments(w http.ResponseWriter, r *http.Request, st *portal.State, art catalog.Article) {
	if !mw.IsHTMX(r.Context()) {
		http.Redirect(w, r, art.Path()+"#comments", http.StatusSeeOther)
		return
	}
	data := map[string]any{
		"Lang":         st.Language.Language(),
		"Comments":     a.commentViews(st, art),
		"CommentsHref": art.Path() + "/comments",
		"CSRFToken":    mw.CSRFToken(r),
		"User":         mw.UserFromContext(r.Context()),
	}
	a.renderTemplate(w, r, "frag_comments", data, notificationsFragment(st, true))
}
