package trust

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"inkroll/internal/metrics"
)

// AuditAction names a logged moderation action.
type AuditAction string

const (
	AuditAcceptReport     AuditAction = "accept_report"
	AuditRejectReport     AuditAction = "reject_report"
	AuditDeleteComment    AuditAction = "delete_comment"
	AuditPardonComment    AuditAction = "pardon_comment"
	AuditWhitelistComment AuditAction = "whitelist_comment"
	AuditPinComment       AuditAction = "pin_comment"
	AuditAutoHide         AuditAction = "auto_hide"
	AuditAutoUnhide       AuditAction = "auto_unhide"
)

// AuditEntry is one record in the append-only moderation audit log.
type AuditEntry struct {
	ID        string            `json:"id"`
	Action    AuditAction       `json:"action"`
	ActorID   string            `json:"actor_id"` // moderator id, or "automod"
	Target    string            `json:"target"`   // comment ref or report id
	Metadata  map[string]string `json:"metadata,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	AutoMod   bool              `json:"auto_mod"`
}

// AuditSink is the append-only log of moderation actions. Writes are
// best-effort: a Record failure must never fail or roll back the moderation
// action that produced it.
type AuditSink interface {
	Record(ctx context.Context, entry AuditEntry) error
	List(ctx context.Context, limit int) ([]AuditEntry, error)
}

// recordAudit writes an audit entry and swallows failures. The moderation
// effect is authoritative; the audit trail is not allowed to veto it.
func recordAudit(ctx context.Context, sink AuditSink, entry AuditEntry) {
	if sink == nil {
		return
	}
	if err := sink.Record(ctx, entry); err != nil {
		metrics.AuditWriteFailuresTotal.Inc()
		log.Error().
			Err(err).
			Str("action", string(entry.Action)).
			Str("actor", entry.ActorID).
			Str("target", entry.Target).
			Msg("trust: audit record failed")
	}
}
