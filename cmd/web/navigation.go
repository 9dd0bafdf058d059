package main

import (
	"net/http"

	mw "kabaranime.id/portal/internal/middleware"
	"kabaranime.id/portal/internal/portal"
	"kabaranime.id/portal/internal/router"
)

// backHandler steps the visitor's history back and sends the client there.
func (a *app) backHandler(w http.ResponseWriter, r *http.Request, st *portal.State) {
	m, _ := st.Navigator.Back()
	a.goTo(w, r, m)
}

// forwardHandler steps the visitor's history forward.
func (a *app) forwardHandler(w http.ResponseWriter, r *http.Request, st *portal.State) {
	m, _ := st.Navigator.Forward()
	a.goTo(w, r, m)
}

// goTo sends the client to m. The follow-up GET lands on the active entry,
// which leaves the history stack untouched.
func (a *app) goTo(w http.ResponseWriter, r *http.Request, m router.Match) {
	if mw.IsHTMX(r.Context()) {
		mw.Redirect(w, m.URL())
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, m.URL(), http.StatusSeeOther)
}
