package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkroll_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "inkroll_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"method", "path"})
)

// Trust engine counters (incremented on occurrence)
var (
	VotesCastTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkroll_votes_cast_total",
		Help: "Total number of vote operations",
	}, []string{"source", "operation"})

	ReportsSubmittedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkroll_reports_submitted_total",
		Help: "Total number of comment reports submitted",
	}, []string{"source"})

	DuplicateReportsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inkroll_duplicate_reports_total",
		Help: "Total number of report submissions absorbed as idempotent duplicates",
	})

	RateLimitedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkroll_rate_limited_total",
		Help: "Total number of requests denied by the rate limiter",
	}, []string{"action"})

	AutoHidesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkroll_auto_hides_total",
		Help: "Total number of comments hidden automatically by the visibility policy",
	}, []string{"source"})

	AutoUnhidesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkroll_auto_unhides_total",
		Help: "Total number of comments made visible again by policy re-evaluation",
	}, []string{"source"})

	ModerationActionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkroll_moderation_actions_total",
		Help: "Total number of moderator actions applied",
	}, []string{"action"})

	AuditWriteFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inkroll_audit_write_failures_total",
		Help: "Total number of best-effort audit sink writes that failed",
	})
)

// Business gauges (updated periodically by the collector)
var (
	PendingReportsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "inkroll_pending_reports",
		Help: "Number of reports currently awaiting moderator review",
	})

	HiddenCommentsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "inkroll_hidden_comments",
		Help: "Number of comments currently hidden",
	})

	RateLimitCountersGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "inkroll_rate_limit_counters",
		Help: "Number of live in-memory rate limit counters",
	})
)

// NormalizePath reduces high-cardinality path labels by replacing dynamic
// segments with placeholders. This keeps the metric label space bounded.
func NormalizePath(path string) string {
	segments := splitPath(path)
	if len(segments) < 3 || segments[0] != "api" {
		return path
	}

	switch segments[1] {
	case "comments":
		// /api/comments/{source}/{id} and its vote/report subresources
		if len(segments) == 4 {
			return "/api/comments/:source/:id"
		}
		if len(segments) == 5 {
			return "/api/comments/:source/:id/" + segments[4]
		}
	case "mod":
		if len(segments) == 5 && segments[2] == "reports" {
			// /api/mod/reports/{id}/accept etc.
			return "/api/mod/reports/:id/" + segments[4]
		}
		if segments[2] == "comments" {
			if len(segments) == 5 {
				return "/api/mod/comments/:source/:id"
			}
			if len(segments) == 6 {
				return "/api/mod/comments/:source/:id/" + segments[5]
			}
		}
	}

	return path
}

func splitPath(path string) []string {
	// Skip leading slash
	if len(path) > 0 && path[0] == '/' {
		path = path[1:]
	}
	var segments []string
	start := 0
	for i := 0; i < len(path); i++ {
		if path[i] == '/' {
			segments = append(segments, path[start:i])
			start = i + 1
		}
	}
	if start < len(path) {
		segments = append(segments, path[start:])
	}
	return segments
}
