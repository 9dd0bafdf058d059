package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	chiMid "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Logger emits one structured zap entry per request and stores a
// request-scoped logger in the context for handlers.
func Logger(base *zap.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rid := chiMid.GetReqID(r.Context())
			ctx := r.Context()
			if rid != "" {
				ctx = WithRequestID(ctx, rid)
			}
			reqLogger := base.With(zap.String("request_id", rid))
			ctx = WithLogger(ctx, reqLogger)

			ww := chiMid.NewWrapResponseWriter(w, r.ProtoMajor)
			r = r.WithContext(ctx)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Duration("duration", time.Since(start)),
				zap.String("remote_ip", clientIP(r)),
				zap.Bool("htmx", IsHTMX(r.Context())),
			}
			// session middleware runs before this one
			if s := GetSession(r); s.Visitor != "" {
				fields = append(fields, zap.String("visitor", s.Visitor))
				if s.UserID != "" {
					fields = append(fields, zap.String("user_id", s.UserID))
				}
			}
			switch {
			case status >= 500:
				reqLogger.Error("request", fields...)
			case status >= 400:
				reqLogger.Warn("request", fields...)
			default:
				reqLogger.Info("request", fields...)
			}
		})
	}
}

type pageLabel struct{ page string }

// Instrument reports every request to observe with the page id handlers
// recorded through SetPage.
func Instrument(observe func(page string, status int, d time.Duration)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			label := &pageLabel{}
			ww := chiMid.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(context.WithValue(r.Context(), ctxKeyPage, label)))
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			observe(label.page, status, time.Since(start))
		})
	}
}

// SetPage labels the current request for metrics.
func SetPage(ctx context.Context, page string) {
	if l, ok := ctx.Value(ctxKeyPage).(*pageLabel); ok {
		l.page = page
	}
}

func clientIP(r *http.Request) string {
	// the last X-Forwarded-For hop is appended by our own proxy
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		p := strings.Split(xff, ",")
		return strings.TrimSpace(p[len(p)-1])
	}
	if xrip := r.Header.Get("X-Real-IP"); xrip != "" {
		return xrip
	}
	host := r.RemoteAddr
	if i := strings.LastIndex(host, ":"); i != -1 {
		return host[:i]
	}
	return host
}
