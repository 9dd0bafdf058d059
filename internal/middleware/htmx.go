package middleware

import (
	"encoding/json"
	"net/http"
)

// HTMX marks requests coming from htmx so handlers/middlewares can adapt responses
func HTMX(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		is := r.Header.Get("HX-Request") == "true"
		ctx := WithHTMX(r.Context(), is)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// IsHistoryRestore reports the browser's back or forward button landing on a
// page htmx refetches. The layout disables the history cache, so every
// back/forward arrives here.
func IsHistoryRestore(r *http.Request) bool {
	return r.Header.Get("HX-History-Restore-Request") == "true"
}

// PushURL asks htmx to add url to the browser history.
func PushURL(w http.ResponseWriter, url string) { w.Header().Set("HX-Push-Url", url) }

// ReplaceURL asks htmx to overwrite the current history entry with url.
func ReplaceURL(w http.ResponseWriter, url string) { w.Header().Set("HX-Replace-Url", url) }

// Redirect makes htmx perform a full client-side navigation to url.
func Redirect(w http.ResponseWriter, url string) { w.Header().Set("HX-Location", url) }

// Trigger sets HX-Trigger so the client fires the named events with payloads.
func Trigger(w http.ResponseWriter, events map[string]any) {
	if len(events) == 0 {
		return
	}
	b, err := json.Marshal(events)
	if err != nil {
		return
	}
	w.Header().Set("HX-Trigger", string(b))
}
