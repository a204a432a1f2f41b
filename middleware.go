package dashboard

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/oklahomer/go-kasumi/logger"
)

type contextKey string

const sessionContextKey contextKey = "session"

func withSession(ctx context.Context, current *loginSession) context.Context {
	return context.WithValue(ctx, sessionContextKey, current)
}

// userIDFrom returns the id of the logged-in user put in ctx by requireLogin.
func userIDFrom(ctx context.Context) string {
	if current, ok := ctx.Value(sessionContextKey).(*loginSession); ok {
		return current.userID
	}
	return ""
}

// formTokenFrom returns the form token of the session put in ctx by requireLogin.
func formTokenFrom(ctx context.Context) string {
	if current, ok := ctx.Value(sessionContextKey).(*loginSession); ok {
		return current.formToken
	}
	return ""
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		logger.Debugf("%s %s -> %d (%s)", r.Method, r.URL.Path, ww.Status(), time.Since(start))
	})
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Content-Security-Policy",
			"default-src 'self'; "+
				"style-src 'self' 'unsafe-inline'; "+
				"img-src 'self' https://cdn.discordapp.com; "+
				"frame-ancestors 'none'; "+
				"base-uri 'self'; "+
				"form-action 'self' https://discord.com")

		next.ServeHTTP(w, r)
	})
}
