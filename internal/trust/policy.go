package trust

// Default auto-hide thresholds. Score is universal; report thresholds are
// per-source configuration because page discussions tolerate more noise
// than title discussions.
const (
	// ScoreHideThreshold hides a comment once its net vote score drops to
	// this value or below.
	ScoreHideThreshold = -15

	// DefaultReportHideThreshold is used for sources without an explicit
	// report threshold.
	DefaultReportHideThreshold = 5

	// PageReportHideThreshold is the report threshold for page comments.
	PageReportHideThreshold = 10
)

// Policy decides whether a comment should be hidden from the automatic
// signals. It is a pure value: Decide has no side effects.
type Policy struct {
	scoreHide  int
	reportHide map[Source]int
}

// DefaultPolicy returns the production thresholds.
func DefaultPolicy() Policy {
	return Policy{
		scoreHide: ScoreHideThreshold,
		reportHide: map[Source]int{
			SourceTitle:    DefaultReportHideThreshold,
			SourcePage:     PageReportHideThreshold,
			SourceTeamPost: DefaultReportHideThreshold,
			SourceNews:     DefaultReportHideThreshold,
		},
	}
}

// NewPolicy builds a Policy with custom thresholds. Sources missing from
// reportHide fall back to DefaultReportHideThreshold.
func NewPolicy(scoreHide int, reportHide map[Source]int) Policy {
	rh := make(map[Source]int, len(reportHide))
	for src, n := range reportHide {
		rh[src] = n
	}
	return Policy{scoreHide: scoreHide, reportHide: rh}
}

// ReportThreshold returns the open-report count at which comments from the
// given source are hidden.
func (p Policy) ReportThreshold(src Source) int {
	if n, ok := p.reportHide[src]; ok {
		return n
	}
	return DefaultReportHideThreshold
}

// Decide maps the automatic signals and an optional moderator override to
// the hidden state. Priority order, first match wins:
//
//  1. An override pins the result: whitelisted comments are always visible,
//     a non-whitelist pin forces the comment hidden.
//  2. Score at or below the score threshold hides.
//  3. Open reports at or above the source's report threshold hide.
//  4. Otherwise the comment is visible.
//
// Both thresholds are inclusive. Decide never touches pinning; is_pinned is
// orthogonal to visibility.
func (p Policy) Decide(src Source, score, openReports int, override *Override) bool {
	if override != nil {
		return !override.IsWhitelisted
	}
	if score <= p.scoreHide {
		return true
	}
	if openReports >= p.ReportThreshold(src) {
		return true
	}
	return false
}
