package trust

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"inkroll/internal/metrics"
	"inkroll/internal/tracing"
)

// Engine is the end-user facing half of the trust engine: the vote and
// report ledgers plus the automatic visibility policy that runs after every
// ledger write. Moderator actions live on Controller.
type Engine struct {
	store   Store
	audit   AuditSink
	limiter *RateLimiter
	policy  Policy
}

// EngineOption customizes an Engine.
type EngineOption func(*Engine)

// WithPolicy overrides the default visibility thresholds.
func WithPolicy(p Policy) EngineOption {
	return func(e *Engine) { e.policy = p }
}

// WithRateLimiter overrides the default rate limiter, mainly for tests.
func WithRateLimiter(l *RateLimiter) EngineOption {
	return func(e *Engine) { e.limiter = l }
}

// NewEngine builds an Engine. The audit sink may be nil, in which case
// automod actions are only logged.
func NewEngine(store Store, audit AuditSink, opts ...EngineOption) *Engine {
	e := &Engine{
		store:   store,
		audit:   audit,
		limiter: NewRateLimiter(nil),
		policy:  DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Limiter exposes the engine's rate limiter so transport middleware can
// apply the generic write limit to anonymous traffic.
func (e *Engine) Limiter() *RateLimiter { return e.limiter }

// Policy returns the engine's visibility policy.
func (e *Engine) Policy() Policy { return e.policy }

// CastVote records a signed vote by voterID on the referenced comment.
// Value 0 retracts any existing vote; -1/+1 upsert, so the voter's last
// vote wins. The vote write, the aggregate recomputation and the visibility
// re-evaluation happen in one transaction.
func (e *Engine) CastVote(ctx context.Context, ref CommentRef, voterID string, value int) (*VoteReceipt, error) {
	if voterID == "" {
		return nil, Errorf(KindUnauthorized, "voting requires a signed-in caller")
	}
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	if !ValidVoteValue(value) {
		return nil, Errorf(KindInvalidArgument, "vote value must be -1, 0 or 1, got %d", value)
	}
	if !e.limiter.Allow(voterID, ActionWrite) {
		metrics.RateLimitedTotal.WithLabelValues(string(ActionWrite)).Inc()
		return nil, Errorf(KindRateLimited, "too many requests, slow down")
	}

	ctx, span := tracing.EngineSpan(ctx, "cast_vote", ref.String(), voterID)
	defer span.End()

	var (
		receipt VoteReceipt
		flip    *visibilityFlip
	)
	err := e.store.InTx(ctx, func(tx Tx) error {
		c, err := tx.GetComment(ctx, ref)
		if err != nil {
			return err
		}
		if c == nil {
			return Errorf(KindNotFound, "comment %s not found", ref)
		}

		if value == VoteRetract {
			err = tx.DeleteVote(ctx, ref, voterID)
		} else {
			err = tx.UpsertVote(ctx, ref, voterID, value)
		}
		if err != nil {
			return err
		}

		score, _, hidden, f, err := e.reevaluate(ctx, tx, c)
		if err != nil {
			return err
		}
		receipt = VoteReceipt{Score: score, IsHidden: hidden}
		flip = f
		return nil
	})
	if err != nil {
		tracing.EndWithError(span, err)
		return nil, WrapInternal("cast vote", err)
	}

	op := "cast"
	if value == VoteRetract {
		op = "retract"
	}
	metrics.VotesCastTotal.WithLabelValues(string(ref.Source), op).Inc()
	e.auditFlip(ctx, ref, flip)

	log.Debug().
		Str("comment", ref.String()).
		Str("voter", voterID).
		Int("value", value).
		Int("score", receipt.Score).
		Bool("hidden", receipt.IsHidden).
		Msg("trust: vote recorded")

	return &receipt, nil
}

// SubmitReport files a complaint by reporterID against the referenced
// comment. Submission is idempotent while a prior report from the same
// reporter is still open: the duplicate is acknowledged as success without
// a second row, so callers can't probe whether someone else reported first.
func (e *Engine) SubmitReport(ctx context.Context, ref CommentRef, reporterID string, reason ReportReason, details string) (*ReportReceipt, error) {
	if reporterID == "" {
		return nil, Errorf(KindUnauthorized, "reporting requires a signed-in caller")
	}
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	if _, err := ParseReason(string(reason)); err != nil {
		return nil, err
	}
	if !e.limiter.Allow(reporterID, ActionReport) {
		metrics.RateLimitedTotal.WithLabelValues(string(ActionReport)).Inc()
		return nil, Errorf(KindRateLimited, "too many reports, try again later")
	}

	ctx, span := tracing.EngineSpan(ctx, "submit_report", ref.String(), reporterID)
	defer span.End()

	var (
		receipt   ReportReceipt
		duplicate bool
		flip      *visibilityFlip
	)
	err := e.store.InTx(ctx, func(tx Tx) error {
		c, err := tx.GetComment(ctx, ref)
		if err != nil {
			return err
		}
		if c == nil {
			return Errorf(KindNotFound, "comment %s not found", ref)
		}

		open, err := tx.HasOpenReport(ctx, ref, reporterID)
		if err != nil {
			return err
		}
		if open {
			duplicate = true
		} else {
			created, err := tx.InsertReport(ctx, Report{
				ID:         uuid.NewString(),
				Ref:        ref,
				ReporterID: reporterID,
				Reason:     reason,
				Details:    details,
				Status:     ReportOpen,
				CreatedAt:  time.Now().UTC(),
			})
			if err != nil {
				return err
			}
			// The pre-check has a race window; the unique constraint on open
			// reports is authoritative and a lost race is still a duplicate.
			duplicate = !created
		}

		_, reports, hidden, f, err := e.reevaluate(ctx, tx, c)
		if err != nil {
			return err
		}
		receipt = ReportReceipt{ReportsCount: reports, IsHidden: hidden}
		flip = f
		return nil
	})
	if err != nil {
		tracing.EndWithError(span, err)
		return nil, WrapInternal("submit report", err)
	}

	if duplicate {
		metrics.DuplicateReportsTotal.Inc()
	} else {
		metrics.ReportsSubmittedTotal.WithLabelValues(string(ref.Source)).Inc()
	}
	e.auditFlip(ctx, ref, flip)

	log.Info().
		Str("comment", ref.String()).
		Str("reporter", reporterID).
		Str("reason", string(reason)).
		Bool("duplicate", duplicate).
		Int("reports", receipt.ReportsCount).
		Bool("hidden", receipt.IsHidden).
		Msg("trust: report received")

	return &receipt, nil
}

// visibilityFlip records an automatic is_hidden transition for auditing.
type visibilityFlip struct {
	hidden  bool
	score   int
	reports int
}

// reevaluate refreshes the aggregates and re-runs the visibility policy for
// the comment c inside the transaction, writing is_hidden when it changed.
// Returns the fresh (score, openReports, hidden) and a non-nil flip when
// the hidden state transitioned.
func (e *Engine) reevaluate(ctx context.Context, tx Tx, c *Comment) (int, int, bool, *visibilityFlip, error) {
	score, reports, err := tx.RefreshAggregates(ctx, c.Ref)
	if err != nil {
		return 0, 0, false, nil, err
	}
	override, err := tx.GetOverride(ctx, c.Ref)
	if err != nil {
		return 0, 0, false, nil, err
	}

	hidden := e.policy.Decide(c.Ref.Source, score, reports, override)
	var flip *visibilityFlip
	if hidden != c.IsHidden {
		if err := tx.SetHidden(ctx, c.Ref, hidden); err != nil {
			return 0, 0, false, nil, err
		}
		flip = &visibilityFlip{hidden: hidden, score: score, reports: reports}
	}
	return score, reports, hidden, flip, nil
}

// auditFlip records an automod visibility transition, best-effort.
func (e *Engine) auditFlip(ctx context.Context, ref CommentRef, flip *visibilityFlip) {
	if flip == nil {
		return
	}
	action := AuditAutoUnhide
	if flip.hidden {
		action = AuditAutoHide
		metrics.AutoHidesTotal.WithLabelValues(string(ref.Source)).Inc()
	} else {
		metrics.AutoUnhidesTotal.WithLabelValues(string(ref.Source)).Inc()
	}
	recordAudit(ctx, e.audit, AuditEntry{
		ID:      uuid.NewString(),
		Action:  action,
		ActorID: "automod",
		Target:  ref.String(),
		Metadata: map[string]string{
			"score":   strconv.Itoa(flip.score),
			"reports": strconv.Itoa(flip.reports),
		},
		Timestamp: time.Now().UTC(),
		AutoMod:   true,
	})
}
