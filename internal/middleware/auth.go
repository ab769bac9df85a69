package middleware

import (
	"net/http"

	"inkroll/internal/identity"
	"inkroll/internal/trust"
)

// UserIDHeader carries the authenticated user id, set by the auth layer in
// front of this service. The engine trusts it; sessions are issued and
// verified upstream.
const UserIDHeader = "X-Inkroll-User"

// IdentityMiddleware lifts the trusted identity header into the request
// context. Requests without the header proceed as anonymous.
func IdentityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if userID := r.Header.Get(UserIDHeader); userID != "" {
			r = r.WithContext(identity.WithUserID(r.Context(), userID))
		}
		next.ServeHTTP(w, r)
	})
}

// WriteLimitMiddleware applies the generic write limit to mutating requests
// from anonymous callers, keyed by client IP. Authenticated traffic is
// limited per actor inside the engine, so it passes through here.
func WriteLimitMiddleware(limiter *trust.RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
				if identity.UserIDFrom(r.Context()) == "" {
					if !limiter.Allow("ip:"+GetClientIP(r), trust.ActionWrite) {
						http.Error(w, "Too many requests", http.StatusTooManyRequests)
						return
					}
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
