package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		// Exact routes (no normalization needed)
		{"/", "/"},
		{"/healthz", "/healthz"},
		{"/metrics", "/metrics"},
		{"/api/mod/reports", "/api/mod/reports"},
		{"/api/mod/audit", "/api/mod/audit"},

		// Comment subresources
		{"/api/comments/title/abc123", "/api/comments/:source/:id"},
		{"/api/comments/title/abc123/votes", "/api/comments/:source/:id/votes"},
		{"/api/comments/page/991/reports", "/api/comments/:source/:id/reports"},
		{"/api/comments/news/42/votes", "/api/comments/:source/:id/votes"},

		// Moderation report actions
		{"/api/mod/reports/9f2c/accept", "/api/mod/reports/:id/accept"},
		{"/api/mod/reports/9f2c/reject", "/api/mod/reports/:id/reject"},

		// Moderation comment actions
		{"/api/mod/comments/title/abc123", "/api/mod/comments/:source/:id"},
		{"/api/mod/comments/title/abc123/pardon", "/api/mod/comments/:source/:id/pardon"},
		{"/api/mod/comments/team_post/77/whitelist", "/api/mod/comments/:source/:id/whitelist"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizePath(tt.input))
		})
	}
}
