package trust

import "time"

// Source identifies which part of the site a comment is attached to.
type Source string

const (
	SourceTitle    Source = "title"
	SourcePage     Source = "page"
	SourceTeamPost Source = "team_post"
	SourceNews     Source = "news"
)

// AllSources returns every comment source the engine knows about.
func AllSources() []Source {
	return []Source{SourceTitle, SourcePage, SourceTeamPost, SourceNews}
}

// Valid reports whether s is a known comment source.
func (s Source) Valid() bool {
	switch s {
	case SourceTitle, SourcePage, SourceTeamPost, SourceNews:
		return true
	}
	return false
}

// ParseSource converts a raw string into a Source.
func ParseSource(raw string) (Source, error) {
	s := Source(raw)
	if !s.Valid() {
		return "", Errorf(KindInvalidArgument, "unknown comment source: %q", raw)
	}
	return s, nil
}

// CommentRef identifies a comment across all sources. IDs are opaque tokens:
// some sources use sequential integers, others large random identifiers, so
// the engine never interprets them beyond equality and ordering.
type CommentRef struct {
	Source Source `json:"source"`
	ID     string `json:"id"`
}

func (r CommentRef) String() string {
	return string(r.Source) + "/" + r.ID
}

// Validate checks that the ref names a known source and a non-empty id.
func (r CommentRef) Validate() error {
	if !r.Source.Valid() {
		return Errorf(KindInvalidArgument, "unknown comment source: %q", string(r.Source))
	}
	if r.ID == "" {
		return Errorf(KindInvalidArgument, "comment id is required")
	}
	return nil
}

// Comment is the engine's view of a persisted comment row. Score and
// ReportsCount are derived from the vote and report ledgers; they are only
// ever written inside the same transaction as the ledger mutation that
// changed them.
type Comment struct {
	Ref          CommentRef `json:"ref"`
	AuthorID     string     `json:"author_id"`
	Body         string     `json:"body"`
	ParentID     string     `json:"parent_id,omitempty"` // empty for top-level comments
	CreatedAt    time.Time  `json:"created_at"`
	EditedAt     *time.Time `json:"edited_at,omitempty"`
	IsPinned     bool       `json:"is_pinned"`
	IsHidden     bool       `json:"is_hidden"`
	ReportsCount int        `json:"reports_count"` // open reports
	Score        int        `json:"score"`
}

// Vote values are -1, 0 or +1. Zero means "retract": the vote row is deleted.
const (
	VoteDown    = -1
	VoteRetract = 0
	VoteUp      = 1
)

// ValidVoteValue reports whether v is an accepted vote value.
func ValidVoteValue(v int) bool {
	return v == VoteDown || v == VoteRetract || v == VoteUp
}

// ReportReason is the fixed taxonomy of complaint reasons. Unrecognized
// reasons are rejected, never coerced.
type ReportReason string

const (
	ReasonSpam         ReportReason = "spam"
	ReasonHarassment   ReportReason = "harassment"
	ReasonHate         ReportReason = "hate"
	ReasonIllegalTrade ReportReason = "illegal_trade"
	ReasonSpoiler      ReportReason = "spoiler"
	ReasonOfftopic     ReportReason = "offtopic"
	ReasonAbuse        ReportReason = "abuse"
	ReasonOther        ReportReason = "other"
)

// ParseReason converts a raw string into a ReportReason.
func ParseReason(raw string) (ReportReason, error) {
	switch r := ReportReason(raw); r {
	case ReasonSpam, ReasonHarassment, ReasonHate, ReasonIllegalTrade,
		ReasonSpoiler, ReasonOfftopic, ReasonAbuse, ReasonOther:
		return r, nil
	}
	return "", Errorf(KindInvalidArgument, "unknown report reason: %q", raw)
}

// ReportStatus is the resolution state of a report. Open is the initial
// state; accepted, rejected and closed are terminal.
type ReportStatus string

const (
	ReportOpen     ReportStatus = "open"
	ReportAccepted ReportStatus = "accepted"
	ReportRejected ReportStatus = "rejected"
	ReportClosed   ReportStatus = "closed"
)

// Terminal reports whether the status is a resolution state.
func (s ReportStatus) Terminal() bool {
	return s == ReportAccepted || s == ReportRejected || s == ReportClosed
}

// Report is a structured complaint against a comment. At most one open
// report exists per (comment, reporter); the storage layer enforces this
// with a unique constraint.
type Report struct {
	ID         string       `json:"id"`
	Ref        CommentRef   `json:"ref"`
	ReporterID string       `json:"reporter_id"`
	Reason     ReportReason `json:"reason"`
	Details    string       `json:"details,omitempty"`
	Status     ReportStatus `json:"status"`
	CreatedAt  time.Time    `json:"created_at"`
	ResolvedBy string       `json:"resolved_by,omitempty"`
	ResolvedAt *time.Time   `json:"resolved_at,omitempty"`
}

// Override is a moderator-set visibility pin. When present it takes
// precedence over automatic scoring: whitelisted comments stay visible,
// non-whitelisted pins force the comment hidden. One row per comment,
// last write wins.
type Override struct {
	Ref           CommentRef `json:"ref"`
	IsWhitelisted bool       `json:"is_whitelisted"`
	SetBy         string     `json:"set_by"`
	SetAt         time.Time  `json:"set_at"`
}

// ReportReceipt is returned to the caller after a report submission.
type ReportReceipt struct {
	ReportsCount int  `json:"reports_count"`
	IsHidden     bool `json:"is_hidden"`
}

// VoteReceipt is returned to the caller after a vote.
type VoteReceipt struct {
	Score    int  `json:"score"`
	IsHidden bool `json:"is_hidden"`
}
