package middleware

import (
	"net/http"

	"github.com/JonMunkholm/tabdiff/internal/core"
)

// RequestMetadata stores the client address and User-Agent in the request
// context so comparison logs can name who asked for them. It must run after
// TrustedRealIP.
func RequestMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := core.ContextWithClientIP(r.Context(), hostOnly(r.RemoteAddr))
		ctx = core.ContextWithUserAgent(ctx, r.UserAgent())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
