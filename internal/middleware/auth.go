package middleware

import (
	"net/http"
	"strings"
)

// Auth hydrates the user from the session. With dev enabled, the header
// "Authorization: Bearer debug:<uid>" signs in as uid for local testing.
func Auth(dev bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if dev {
				if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer debug:"); ok && token != "" {
					s := GetSession(r)
					if s.UserID != token {
						s.SignIn(token, token)
					}
				}
			}
			if s := GetSession(r); s.UserID != "" && UserFromContext(r.Context()) == nil {
				r = r.WithContext(WithUser(r.Context(), &User{ID: s.UserID, Name: s.UserName}))
			}
			next.ServeHTTP(w, r)
		})
	}
}
