package trust

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPolicyDecide_ScoreThreshold(t *testing.T) {
	p := DefaultPolicy()

	assert.False(t, p.Decide(SourceTitle, -14, 0, nil))
	assert.True(t, p.Decide(SourceTitle, -15, 0, nil), "boundary is inclusive")
	assert.True(t, p.Decide(SourceTitle, -100, 0, nil))
	assert.False(t, p.Decide(SourceTitle, 0, 0, nil))
}

func TestPolicyDecide_ReportThresholdPerSource(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		name    string
		source  Source
		reports int
		hidden  bool
	}{
		{"title below", SourceTitle, 4, false},
		{"title at threshold", SourceTitle, 5, true},
		{"team post at threshold", SourceTeamPost, 5, true},
		{"news at threshold", SourceNews, 5, true},
		{"page tolerates more", SourcePage, 5, false},
		{"page below", SourcePage, 9, false},
		{"page at threshold", SourcePage, 10, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.hidden, p.Decide(tt.source, 0, tt.reports, nil))
		})
	}
}

func TestPolicyDecide_OverrideWins(t *testing.T) {
	p := DefaultPolicy()

	// A whitelisted comment stays visible no matter the signals.
	whitelisted := &Override{IsWhitelisted: true}
	assert.False(t, p.Decide(SourceTitle, -100, 50, whitelisted))

	// A non-whitelist pin hides even a perfectly healthy comment.
	blacklisted := &Override{IsWhitelisted: false}
	assert.True(t, p.Decide(SourceTitle, 100, 0, blacklisted))
}

func TestPolicy_CustomThresholds(t *testing.T) {
	p := NewPolicy(-5, map[Source]int{SourcePage: 3})

	assert.True(t, p.Decide(SourceTitle, -5, 0, nil))
	assert.False(t, p.Decide(SourceTitle, -4, 0, nil))

	assert.Equal(t, 3, p.ReportThreshold(SourcePage))
	assert.True(t, p.Decide(SourcePage, 0, 3, nil))

	// Sources without an explicit entry use the default.
	assert.Equal(t, DefaultReportHideThreshold, p.ReportThreshold(SourceNews))
}
