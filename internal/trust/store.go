package trust

import "context"

// Store defines the persistence interface for the trust engine.
// Implementations must be safe for concurrent use. Lookups return nil (not
// an error) when the row does not exist; the engine decides whether that is
// a NotFound condition.
type Store interface {
	// InTx runs fn inside a single storage transaction. If fn returns an
	// error the transaction is rolled back and the error is returned
	// unchanged; partial state is never left behind.
	InTx(ctx context.Context, fn func(tx Tx) error) error

	// Comment lifecycle. Creation happens in the authoring endpoints;
	// the engine only mutates visibility, pinning and aggregates.
	CreateComment(ctx context.Context, c Comment) error
	GetComment(ctx context.Context, ref CommentRef) (*Comment, error)
	SetPinned(ctx context.Context, ref CommentRef, pinned bool) error

	// Overrides (moderator visibility pins).
	GetOverride(ctx context.Context, ref CommentRef) (*Override, error)
	GetOverrides(ctx context.Context, refs []CommentRef) (map[CommentRef]Override, error)

	// Report queue reads for moderation views.
	ListPendingReports(ctx context.Context) ([]Report, error)
	CountReports(ctx context.Context, ref CommentRef) (open, lifetime int, err error)
}

// Tx is the transactional scope every ledger mutation runs in. All aggregate
// maintenance goes through RefreshAggregates so the score and open-report
// count on the comment row are always computed set-based against the ledger
// rows, inside the same transaction as the triggering write.
type Tx interface {
	GetComment(ctx context.Context, ref CommentRef) (*Comment, error)

	// Vote ledger: one signed vote per (comment, voter), last write wins.
	UpsertVote(ctx context.Context, ref CommentRef, voterID string, value int) error
	DeleteVote(ctx context.Context, ref CommentRef, voterID string) error

	// Report ledger. InsertReport returns created=false when an open report
	// by the same reporter already exists (unique-constraint race), which
	// the engine treats as the idempotent-duplicate case.
	InsertReport(ctx context.Context, r Report) (created bool, err error)
	HasOpenReport(ctx context.Context, ref CommentRef, reporterID string) (bool, error)
	GetReport(ctx context.Context, id string) (*Report, error)
	SetReportStatus(ctx context.Context, id string, status ReportStatus, resolvedBy string) error
	CloseOpenReports(ctx context.Context, refs []CommentRef, status ReportStatus, resolvedBy string) (int, error)

	// RefreshAggregates recomputes score and the open-report count on the
	// comment row from the ledger rows and returns the fresh values.
	RefreshAggregates(ctx context.Context, ref CommentRef) (score, openReports int, err error)
	SetHidden(ctx context.Context, ref CommentRef, hidden bool) error

	GetOverride(ctx context.Context, ref CommentRef) (*Override, error)
	PutOverride(ctx context.Context, o Override) error

	// ListReplies returns the direct children of a comment. The delete
	// cascade is one level deep: replies of replies stay.
	ListReplies(ctx context.Context, ref CommentRef) ([]CommentRef, error)
	DeleteComment(ctx context.Context, ref CommentRef) error
}
