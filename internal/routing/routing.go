package routing

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"inkroll/internal/handlers"
	"inkroll/internal/middleware"
	"inkroll/internal/trust"
)

// Config holds the configuration needed for setting up routes
type Config struct {
	Handlers *handlers.Handler
	Limiter  *trust.RateLimiter
	Logger   zerolog.Logger
}

// SetupRouter creates and configures the HTTP router with all routes and
// middleware. Order outermost-in: tracing, identity, logging, write limit.
func SetupRouter(cfg Config) http.Handler {
	h := cfg.Handlers
	mux := http.NewServeMux()

	// End-user endpoints
	mux.HandleFunc("POST /api/comments/{source}/{id}/votes", h.HandleVote)
	mux.HandleFunc("POST /api/comments/{source}/{id}/reports", h.HandleReport)

	// Moderator endpoints
	mux.HandleFunc("GET /api/mod/reports", h.HandlePendingReports)
	mux.HandleFunc("POST /api/mod/reports/{id}/accept", h.HandleAcceptReport)
	mux.HandleFunc("POST /api/mod/reports/{id}/reject", h.HandleRejectReport)
	mux.HandleFunc("DELETE /api/mod/comments/{source}/{id}", h.HandleDeleteComment)
	mux.HandleFunc("POST /api/mod/comments/{source}/{id}/pardon", h.HandlePardon)
	mux.HandleFunc("POST /api/mod/comments/{source}/{id}/whitelist", h.HandleWhitelist)
	mux.HandleFunc("POST /api/mod/comments/{source}/{id}/pin", h.HandlePin)
	mux.HandleFunc("GET /api/mod/overrides", h.HandleOverrides)
	mux.HandleFunc("GET /api/mod/audit", h.HandleAuditLog)

	// Operational endpoints
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	var handler http.Handler = mux
	handler = middleware.WriteLimitMiddleware(cfg.Limiter)(handler)
	handler = middleware.LoggingMiddleware(cfg.Logger)(handler)
	handler = middleware.IdentityMiddleware(handler)
	handler = otelhttp.NewHandler(handler, "inkroll")

	return handler
}
