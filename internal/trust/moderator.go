package trust

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"inkroll/internal/metrics"
)

// Roles answers role-gating questions for moderation entry points. The
// identity provider is trusted; the engine only enforces the gate.
type Roles interface {
	IsModerator(id string) bool
	IsAdmin(id string) bool
}

// Controller orchestrates moderator actions over the report ledger, the
// comment store and the override registry. Every mutating action runs as a
// single transaction and, on success, records an audit entry best-effort.
type Controller struct {
	store  Store
	audit  AuditSink
	roles  Roles
	policy Policy
}

// NewController builds a Controller sharing the engine's store and policy.
func NewController(store Store, audit AuditSink, roles Roles, policy Policy) *Controller {
	return &Controller{store: store, audit: audit, roles: roles, policy: policy}
}

func (c *Controller) requireModerator(actorID string) error {
	if actorID == "" {
		return Errorf(KindUnauthorized, "caller identity required")
	}
	if c.roles == nil || !c.roles.IsModerator(actorID) {
		return Errorf(KindForbidden, "moderator role required")
	}
	return nil
}

// AcceptReport marks an open report as accepted and optionally hides the
// comment in the same breath. Accepting an already-resolved report is a
// Conflict, not a silent re-apply.
func (c *Controller) AcceptReport(ctx context.Context, actorID, reportID string, hide bool) error {
	if err := c.requireModerator(actorID); err != nil {
		return err
	}

	var target CommentRef
	err := c.store.InTx(ctx, func(tx Tx) error {
		r, err := tx.GetReport(ctx, reportID)
		if err != nil {
			return err
		}
		if r == nil {
			return Errorf(KindNotFound, "report %s not found", reportID)
		}
		if r.Status != ReportOpen {
			return Errorf(KindConflict, "report %s already resolved as %s", reportID, r.Status)
		}
		target = r.Ref

		if err := tx.SetReportStatus(ctx, reportID, ReportAccepted, actorID); err != nil {
			return err
		}
		return c.settleComment(ctx, tx, r.Ref, hide)
	})
	if err != nil {
		return WrapInternal("accept report", err)
	}

	c.finishAction(ctx, actorID, AuditAcceptReport, reportID, map[string]string{
		"comment": target.String(),
		"hide":    strconv.FormatBool(hide),
	})
	return nil
}

// RejectReport marks an open report as rejected. The comment's open-report
// tally shrinks and the visibility policy is re-run against the fresh
// count; rejecting never hides a comment by itself.
func (c *Controller) RejectReport(ctx context.Context, actorID, reportID string) error {
	if err := c.requireModerator(actorID); err != nil {
		return err
	}

	var target CommentRef
	err := c.store.InTx(ctx, func(tx Tx) error {
		r, err := tx.GetReport(ctx, reportID)
		if err != nil {
			return err
		}
		if r == nil {
			return Errorf(KindNotFound, "report %s not found", reportID)
		}
		if r.Status != ReportOpen {
			return Errorf(KindConflict, "report %s already resolved as %s", reportID, r.Status)
		}
		target = r.Ref

		if err := tx.SetReportStatus(ctx, reportID, ReportRejected, actorID); err != nil {
			return err
		}
		return c.settleComment(ctx, tx, r.Ref, false)
	})
	if err != nil {
		return WrapInternal("reject report", err)
	}

	c.finishAction(ctx, actorID, AuditRejectReport, reportID, map[string]string{
		"comment": target.String(),
	})
	return nil
}

// DeleteComment hard-deletes the comment along with its direct replies and
// closes every open report on the deleted comments as accepted. The cascade
// is deliberately one level deep, matching the flat-reply UI. Safe to
// retry: deleting an absent comment succeeds.
func (c *Controller) DeleteComment(ctx context.Context, actorID string, ref CommentRef) error {
	if err := c.requireModerator(actorID); err != nil {
		return err
	}
	if err := ref.Validate(); err != nil {
		return err
	}

	var deleted int
	err := c.store.InTx(ctx, func(tx Tx) error {
		existing, err := tx.GetComment(ctx, ref)
		if err != nil {
			return err
		}
		if existing == nil {
			return nil // delete-if-exists
		}

		replies, err := tx.ListReplies(ctx, ref)
		if err != nil {
			return err
		}

		victims := append([]CommentRef{ref}, replies...)
		if _, err := tx.CloseOpenReports(ctx, victims, ReportAccepted, actorID); err != nil {
			return err
		}
		for _, v := range victims {
			if err := tx.DeleteComment(ctx, v); err != nil {
				return err
			}
		}
		deleted = len(victims)
		return nil
	})
	if err != nil {
		return WrapInternal("delete comment", err)
	}
	if deleted == 0 {
		log.Debug().Str("comment", ref.String()).Msg("trust: delete of absent comment, nothing to do")
		return nil
	}

	c.finishAction(ctx, actorID, AuditDeleteComment, ref.String(), map[string]string{
		"deleted": strconv.Itoa(deleted),
	})
	return nil
}

// Pardon clears a comment's standing: all open reports are resolved as
// rejected, the open-report count drops back to zero and the comment is
// made visible again. Safe to retry on an already-pardoned comment.
func (c *Controller) Pardon(ctx context.Context, actorID string, ref CommentRef) error {
	if err := c.requireModerator(actorID); err != nil {
		return err
	}
	if err := ref.Validate(); err != nil {
		return err
	}

	var closed int
	err := c.store.InTx(ctx, func(tx Tx) error {
		existing, err := tx.GetComment(ctx, ref)
		if err != nil {
			return err
		}
		if existing == nil {
			return Errorf(KindNotFound, "comment %s not found", ref)
		}

		closed, err = tx.CloseOpenReports(ctx, []CommentRef{ref}, ReportRejected, actorID)
		if err != nil {
			return err
		}
		if _, _, err := tx.RefreshAggregates(ctx, ref); err != nil {
			return err
		}
		return tx.SetHidden(ctx, ref, false)
	})
	if err != nil {
		return WrapInternal("pardon comment", err)
	}

	c.finishAction(ctx, actorID, AuditPardonComment, ref.String(), map[string]string{
		"reports_closed": strconv.Itoa(closed),
	})
	return nil
}

// Whitelist pins the comment's visibility with an override row. A
// whitelisted comment stays visible no matter how its score or report
// count evolves; the pin holds until a moderator writes a new override.
func (c *Controller) Whitelist(ctx context.Context, actorID string, ref CommentRef, isWhitelisted bool) error {
	if err := c.requireModerator(actorID); err != nil {
		return err
	}
	if err := ref.Validate(); err != nil {
		return err
	}

	err := c.store.InTx(ctx, func(tx Tx) error {
		existing, err := tx.GetComment(ctx, ref)
		if err != nil {
			return err
		}
		if existing == nil {
			return Errorf(KindNotFound, "comment %s not found", ref)
		}

		if err := tx.PutOverride(ctx, Override{
			Ref:           ref,
			IsWhitelisted: isWhitelisted,
			SetBy:         actorID,
			SetAt:         time.Now().UTC(),
		}); err != nil {
			return err
		}

		// The override changes the policy outcome immediately.
		score, reports, err := tx.RefreshAggregates(ctx, ref)
		if err != nil {
			return err
		}
		ov := &Override{Ref: ref, IsWhitelisted: isWhitelisted}
		hidden := c.policy.Decide(ref.Source, score, reports, ov)
		if hidden != existing.IsHidden {
			return tx.SetHidden(ctx, ref, hidden)
		}
		return nil
	})
	if err != nil {
		return WrapInternal("whitelist comment", err)
	}

	c.finishAction(ctx, actorID, AuditWhitelistComment, ref.String(), map[string]string{
		"is_whitelisted": strconv.FormatBool(isWhitelisted),
	})
	return nil
}

// SetPinned toggles the pinned flag on a comment. Pinning is orthogonal to
// visibility; the policy never touches it.
func (c *Controller) SetPinned(ctx context.Context, actorID string, ref CommentRef, pinned bool) error {
	if err := c.requireModerator(actorID); err != nil {
		return err
	}
	if err := ref.Validate(); err != nil {
		return err
	}

	existing, err := c.store.GetComment(ctx, ref)
	if err != nil {
		return WrapInternal("pin comment", err)
	}
	if existing == nil {
		return Errorf(KindNotFound, "comment %s not found", ref)
	}
	if err := c.store.SetPinned(ctx, ref, pinned); err != nil {
		return WrapInternal("pin comment", err)
	}

	c.finishAction(ctx, actorID, AuditPinComment, ref.String(), map[string]string{
		"pinned": strconv.FormatBool(pinned),
	})
	return nil
}

// PendingReports returns the open report queue, newest first.
func (c *Controller) PendingReports(ctx context.Context, actorID string) ([]Report, error) {
	if err := c.requireModerator(actorID); err != nil {
		return nil, err
	}
	reports, err := c.store.ListPendingReports(ctx)
	if err != nil {
		return nil, WrapInternal("list pending reports", err)
	}
	return reports, nil
}

// Overrides returns the override rows for a batch of comments, for
// moderation list views.
func (c *Controller) Overrides(ctx context.Context, actorID string, refs []CommentRef) (map[CommentRef]Override, error) {
	if err := c.requireModerator(actorID); err != nil {
		return nil, err
	}
	out, err := c.store.GetOverrides(ctx, refs)
	if err != nil {
		return nil, WrapInternal("batch override lookup", err)
	}
	return out, nil
}

// AuditLog returns the most recent audit entries. Reading the audit trail
// is admin-only; it exposes moderator identities platform-wide.
func (c *Controller) AuditLog(ctx context.Context, actorID string, limit int) ([]AuditEntry, error) {
	if actorID == "" {
		return nil, Errorf(KindUnauthorized, "caller identity required")
	}
	if c.roles == nil || !c.roles.IsAdmin(actorID) {
		return nil, Errorf(KindForbidden, "admin role required")
	}
	if c.audit == nil {
		return nil, nil
	}
	entries, err := c.audit.List(ctx, limit)
	if err != nil {
		return nil, WrapInternal("list audit log", err)
	}
	return entries, nil
}

// settleComment refreshes aggregates after a report resolution and applies
// either the forced hide or the policy outcome.
func (c *Controller) settleComment(ctx context.Context, tx Tx, ref CommentRef, forceHide bool) error {
	score, reports, err := tx.RefreshAggregates(ctx, ref)
	if err != nil {
		return err
	}
	if forceHide {
		return tx.SetHidden(ctx, ref, true)
	}
	override, err := tx.GetOverride(ctx, ref)
	if err != nil {
		return err
	}
	return tx.SetHidden(ctx, ref, c.policy.Decide(ref.Source, score, reports, override))
}

// finishAction bumps metrics, logs and records the audit entry for a
// committed moderation action.
func (c *Controller) finishAction(ctx context.Context, actorID string, action AuditAction, target string, metadata map[string]string) {
	metrics.ModerationActionsTotal.WithLabelValues(string(action)).Inc()

	log.Info().
		Str("actor", actorID).
		Str("action", string(action)).
		Str("target", target).
		Msg("trust: moderation action applied")

	recordAudit(ctx, c.audit, AuditEntry{
		ID:        uuid.NewString(),
		Action:    action,
		ActorID:   actorID,
		Target:    target,
		Metadata:  metadata,
		Timestamp: time.Now().UTC(),
	})
}
