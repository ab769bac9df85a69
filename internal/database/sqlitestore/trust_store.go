package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"inkroll/internal/trust"
)

// Ensure Store implements the interface at compile time.
var _ trust.Store = (*Store)(nil)

// querier abstracts *sql.DB and *sql.Tx so the row helpers serve both the
// direct read methods and the transactional scope.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// InTx runs fn in a single transaction, rolling back on error.
func (s *Store) InTx(ctx context.Context, fn func(tx trust.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(&storeTx{q: sqlTx}); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			return fmt.Errorf("%w (rollback also failed: %v)", err, rbErr)
		}
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// ========== Comments ==========

func (s *Store) CreateComment(ctx context.Context, c trust.Comment) error {
	var editedAt any
	if c.EditedAt != nil {
		editedAt = c.EditedAt.Format(time.RFC3339Nano)
	}
	var parent any
	if c.ParentID != "" {
		parent = c.ParentID
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO comments (source, id, author_id, body, parent_id, created_at, edited_at,
			is_pinned, is_hidden, reports_count, score)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, 0)
	`, c.Ref.Source, c.Ref.ID, c.AuthorID, c.Body, parent,
		c.CreatedAt.Format(time.RFC3339Nano), editedAt, boolToInt(c.IsPinned), boolToInt(c.IsHidden))
	if err != nil {
		return fmt.Errorf("create comment: %w", err)
	}
	return nil
}

func (s *Store) GetComment(ctx context.Context, ref trust.CommentRef) (*trust.Comment, error) {
	return getComment(ctx, s.db, ref)
}

func (s *Store) SetPinned(ctx context.Context, ref trust.CommentRef, pinned bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE comments SET is_pinned = ? WHERE source = ? AND id = ?`,
		boolToInt(pinned), ref.Source, ref.ID)
	if err != nil {
		return fmt.Errorf("set pinned: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("comment not found: %s", ref)
	}
	return nil
}

func getComment(ctx context.Context, q querier, ref trust.CommentRef) (*trust.Comment, error) {
	var (
		c                   trust.Comment
		parent, editedAtStr sql.NullString
		createdAtStr        string
		pinned, hidden      int
	)
	err := q.QueryRowContext(ctx, `
		SELECT source, id, author_id, body, parent_id, created_at, edited_at,
			is_pinned, is_hidden, reports_count, score
		FROM comments WHERE source = ? AND id = ?
	`, ref.Source, ref.ID).Scan(&c.Ref.Source, &c.Ref.ID, &c.AuthorID, &c.Body, &parent,
		&createdAtStr, &editedAtStr, &pinned, &hidden, &c.ReportsCount, &c.Score)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get comment: %w", err)
	}
	c.ParentID = parent.String
	c.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAtStr)
	if editedAtStr.Valid {
		t, _ := time.Parse(time.RFC3339Nano, editedAtStr.String)
		c.EditedAt = &t
	}
	c.IsPinned = pinned == 1
	c.IsHidden = hidden == 1
	return &c, nil
}

// ========== Overrides ==========

func (s *Store) GetOverride(ctx context.Context, ref trust.CommentRef) (*trust.Override, error) {
	return getOverride(ctx, s.db, ref)
}

func (s *Store) GetOverrides(ctx context.Context, refs []trust.CommentRef) (map[trust.CommentRef]trust.Override, error) {
	out := make(map[trust.CommentRef]trust.Override, len(refs))
	for _, ref := range refs {
		ov, err := getOverride(ctx, s.db, ref)
		if err != nil {
			return nil, err
		}
		if ov != nil {
			out[ref] = *ov
		}
	}
	return out, nil
}

func getOverride(ctx context.Context, q querier, ref trust.CommentRef) (*trust.Override, error) {
	var (
		ov          trust.Override
		whitelisted int
		setAtStr    string
	)
	err := q.QueryRowContext(ctx, `
		SELECT source, comment_id, is_whitelisted, set_by, set_at
		FROM overrides WHERE source = ? AND comment_id = ?
	`, ref.Source, ref.ID).Scan(&ov.Ref.Source, &ov.Ref.ID, &whitelisted, &ov.SetBy, &setAtStr)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get override: %w", err)
	}
	ov.IsWhitelisted = whitelisted == 1
	ov.SetAt, _ = time.Parse(time.RFC3339Nano, setAtStr)
	return &ov, nil
}

// ========== Report queue reads ==========

func (s *Store) ListPendingReports(ctx context.Context) ([]trust.Report, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source, comment_id, reporter_id, reason, details, status, created_at, resolved_by, resolved_at
		FROM reports WHERE status = 'open' ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list pending reports: %w", err)
	}
	defer rows.Close()
	return scanReports(rows)
}

func (s *Store) CountReports(ctx context.Context, ref trust.CommentRef) (open, lifetime int, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status = 'open'),
			COUNT(*)
		FROM reports WHERE source = ? AND comment_id = ?
	`, ref.Source, ref.ID).Scan(&open, &lifetime)
	if err != nil {
		return 0, 0, fmt.Errorf("count reports: %w", err)
	}
	return open, lifetime, nil
}

func scanReports(rows *sql.Rows) ([]trust.Report, error) {
	var reports []trust.Report
	for rows.Next() {
		var (
			r             trust.Report
			createdAtStr  string
			resolvedAtStr sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.Ref.Source, &r.Ref.ID, &r.ReporterID, &r.Reason,
			&r.Details, &r.Status, &createdAtStr, &r.ResolvedBy, &resolvedAtStr); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		r.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAtStr)
		if resolvedAtStr.Valid {
			t, _ := time.Parse(time.RFC3339Nano, resolvedAtStr.String)
			r.ResolvedAt = &t
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

// ========== Transactional scope ==========

type storeTx struct {
	q *sql.Tx
}

var _ trust.Tx = (*storeTx)(nil)

func (t *storeTx) GetComment(ctx context.Context, ref trust.CommentRef) (*trust.Comment, error) {
	return getComment(ctx, t.q, ref)
}

func (t *storeTx) UpsertVote(ctx context.Context, ref trust.CommentRef, voterID string, value int) error {
	_, err := t.q.ExecContext(ctx, `
		INSERT INTO votes (source, comment_id, voter_id, value, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(source, comment_id, voter_id) DO UPDATE SET
			value      = excluded.value,
			updated_at = excluded.updated_at
	`, ref.Source, ref.ID, voterID, value, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("upsert vote: %w", err)
	}
	return nil
}

func (t *storeTx) DeleteVote(ctx context.Context, ref trust.CommentRef, voterID string) error {
	_, err := t.q.ExecContext(ctx,
		`DELETE FROM votes WHERE source = ? AND comment_id = ? AND voter_id = ?`,
		ref.Source, ref.ID, voterID)
	if err != nil {
		return fmt.Errorf("delete vote: %w", err)
	}
	return nil
}

func (t *storeTx) InsertReport(ctx context.Context, r trust.Report) (bool, error) {
	var resolvedAt any
	if r.ResolvedAt != nil {
		resolvedAt = r.ResolvedAt.Format(time.RFC3339Nano)
	}
	_, err := t.q.ExecContext(ctx, `
		INSERT INTO reports (id, source, comment_id, reporter_id, reason, details, status, created_at, resolved_by, resolved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.Ref.Source, r.Ref.ID, r.ReporterID, r.Reason, r.Details, r.Status,
		r.CreatedAt.Format(time.RFC3339Nano), r.ResolvedBy, resolvedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("insert report: %w", err)
	}
	return true, nil
}

func (t *storeTx) HasOpenReport(ctx context.Context, ref trust.CommentRef, reporterID string) (bool, error) {
	var exists int
	err := t.q.QueryRowContext(ctx, `
		SELECT 1 FROM reports
		WHERE source = ? AND comment_id = ? AND reporter_id = ? AND status = 'open'
		LIMIT 1
	`, ref.Source, ref.ID, reporterID).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check open report: %w", err)
	}
	return exists == 1, nil
}

func (t *storeTx) GetReport(ctx context.Context, id string) (*trust.Report, error) {
	rows, err := t.q.QueryContext(ctx, `
		SELECT id, source, comment_id, reporter_id, reason, details, status, created_at, resolved_by, resolved_at
		FROM reports WHERE id = ?
	`, id)
	if err != nil {
		return nil, fmt.Errorf("get report: %w", err)
	}
	defer rows.Close()
	reports, err := scanReports(rows)
	if err != nil {
		return nil, err
	}
	if len(reports) == 0 {
		return nil, nil
	}
	return &reports[0], nil
}

func (t *storeTx) SetReportStatus(ctx context.Context, id string, status trust.ReportStatus, resolvedBy string) error {
	res, err := t.q.ExecContext(ctx, `
		UPDATE reports SET status = ?, resolved_by = ?, resolved_at = ? WHERE id = ?
	`, status, resolvedBy, time.Now().UTC().Format(time.RFC3339Nano), id)
	if err != nil {
		return fmt.Errorf("set report status: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("report not found: %s", id)
	}
	return nil
}

func (t *storeTx) CloseOpenReports(ctx context.Context, refs []trust.CommentRef, status trust.ReportStatus, resolvedBy string) (int, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	total := 0
	for _, ref := range refs {
		res, err := t.q.ExecContext(ctx, `
			UPDATE reports SET status = ?, resolved_by = ?, resolved_at = ?
			WHERE source = ? AND comment_id = ? AND status = 'open'
		`, status, resolvedBy, now, ref.Source, ref.ID)
		if err != nil {
			return 0, fmt.Errorf("close open reports: %w", err)
		}
		n, _ := res.RowsAffected()
		total += int(n)
	}
	return total, nil
}

// RefreshAggregates recomputes the derived columns set-based against the
// ledger tables, so concurrent writers serialize on the comment row instead
// of racing read-modify-write arithmetic in the application.
func (t *storeTx) RefreshAggregates(ctx context.Context, ref trust.CommentRef) (int, int, error) {
	_, err := t.q.ExecContext(ctx, `
		UPDATE comments SET
			score = COALESCE((SELECT SUM(value) FROM votes
				WHERE votes.source = comments.source AND votes.comment_id = comments.id), 0),
			reports_count = (SELECT COUNT(*) FROM reports
				WHERE reports.source = comments.source AND reports.comment_id = comments.id
				AND reports.status = 'open')
		WHERE source = ? AND id = ?
	`, ref.Source, ref.ID)
	if err != nil {
		return 0, 0, fmt.Errorf("refresh aggregates: %w", err)
	}

	var score, reports int
	err = t.q.QueryRowContext(ctx,
		`SELECT score, reports_count FROM comments WHERE source = ? AND id = ?`,
		ref.Source, ref.ID).Scan(&score, &reports)
	if err != nil {
		return 0, 0, fmt.Errorf("read aggregates: %w", err)
	}
	return score, reports, nil
}

func (t *storeTx) SetHidden(ctx context.Context, ref trust.CommentRef, hidden bool) error {
	_, err := t.q.ExecContext(ctx,
		`UPDATE comments SET is_hidden = ? WHERE source = ? AND id = ?`,
		boolToInt(hidden), ref.Source, ref.ID)
	if err != nil {
		return fmt.Errorf("set hidden: %w", err)
	}
	return nil
}

func (t *storeTx) GetOverride(ctx context.Context, ref trust.CommentRef) (*trust.Override, error) {
	return getOverride(ctx, t.q, ref)
}

func (t *storeTx) PutOverride(ctx context.Context, o trust.Override) error {
	_, err := t.q.ExecContext(ctx, `
		INSERT INTO overrides (source, comment_id, is_whitelisted, set_by, set_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(source, comment_id) DO UPDATE SET
			is_whitelisted = excluded.is_whitelisted,
			set_by         = excluded.set_by,
			set_at         = excluded.set_at
	`, o.Ref.Source, o.Ref.ID, boolToInt(o.IsWhitelisted), o.SetBy, o.SetAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("put override: %w", err)
	}
	return nil
}

func (t *storeTx) ListReplies(ctx context.Context, ref trust.CommentRef) ([]trust.CommentRef, error) {
	rows, err := t.q.QueryContext(ctx,
		`SELECT source, id FROM comments WHERE source = ? AND parent_id = ?`,
		ref.Source, ref.ID)
	if err != nil {
		return nil, fmt.Errorf("list replies: %w", err)
	}
	defer rows.Close()

	var refs []trust.CommentRef
	for rows.Next() {
		var r trust.CommentRef
		if err := rows.Scan(&r.Source, &r.ID); err != nil {
			return nil, fmt.Errorf("scan reply: %w", err)
		}
		refs = append(refs, r)
	}
	return refs, rows.Err()
}

func (t *storeTx) DeleteComment(ctx context.Context, ref trust.CommentRef) error {
	if _, err := t.q.ExecContext(ctx,
		`DELETE FROM votes WHERE source = ? AND comment_id = ?`, ref.Source, ref.ID); err != nil {
		return fmt.Errorf("delete comment votes: %w", err)
	}
	if _, err := t.q.ExecContext(ctx,
		`DELETE FROM comments WHERE source = ? AND id = ?`, ref.Source, ref.ID); err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	return nil
}

// CountHidden returns the number of currently hidden comments, for the
// metrics collector.
func (s *Store) CountHidden(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM comments WHERE is_hidden = 1`).Scan(&n)
	return n, err
}

// CountPendingReports returns the number of open reports, for the metrics
// collector.
func (s *Store) CountPendingReports(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reports WHERE status = 'open'`).Scan(&n)
	return n, err
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
