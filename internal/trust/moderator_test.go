package trust_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inkroll/internal/database/sqlitestore"
	"inkroll/internal/trust"
)

// modFixture wires an engine and controller over the same store so tests can
// drive automod state and then act on it as a moderator.
type modFixture struct {
	store      *sqlitestore.Store
	sink       *recordingSink
	engine     *trust.Engine
	controller *trust.Controller
}

func setupModeration(t *testing.T) *modFixture {
	t.Helper()
	store := setupStore(t)
	sink := &recordingSink{}
	engine := trust.NewEngine(store, sink, trust.WithRateLimiter(looseLimiter()))
	controller := trust.NewController(store, sink, testRoles(), trust.DefaultPolicy())
	return &modFixture{store: store, sink: sink, engine: engine, controller: controller}
}

// openReport submits one report and returns its id from the pending queue.
func (f *modFixture) openReport(t *testing.T, ref trust.CommentRef, reporterID string) string {
	t.Helper()
	ctx := context.Background()
	_, err := f.engine.SubmitReport(ctx, ref, reporterID, trust.ReasonSpam, "")
	require.NoError(t, err)

	pending, err := f.store.ListPendingReports(ctx)
	require.NoError(t, err)
	for _, r := range pending {
		if r.Ref == ref && r.ReporterID == reporterID {
			return r.ID
		}
	}
	t.Fatalf("report by %s on %s not found in pending queue", reporterID, ref)
	return ""
}

func TestRoleGating(t *testing.T) {
	ctx := context.Background()
	f := setupModeration(t)
	ref := seedComment(t, f.store, trust.SourceTitle, "c1", "author-1", "")

	t.Run("anonymous", func(t *testing.T) {
		err := f.controller.Pardon(ctx, "", ref)
		assert.True(t, trust.IsKind(err, trust.KindUnauthorized))
	})

	t.Run("regular user", func(t *testing.T) {
		err := f.controller.Pardon(ctx, "reader-1", ref)
		assert.True(t, trust.IsKind(err, trust.KindForbidden))
	})

	t.Run("moderator cannot read audit log", func(t *testing.T) {
		_, err := f.controller.AuditLog(ctx, "mod-1", 10)
		assert.True(t, trust.IsKind(err, trust.KindForbidden))
	})

	t.Run("admin inherits moderator", func(t *testing.T) {
		err := f.controller.Pardon(ctx, "admin-1", ref)
		assert.NoError(t, err)
	})
}

func TestAcceptReport(t *testing.T) {
	ctx := context.Background()
	f := setupModeration(t)
	ref := seedComment(t, f.store, trust.SourceTitle, "c1", "author-1", "")
	reportID := f.openReport(t, ref, "reporter-1")

	require.NoError(t, f.controller.AcceptReport(ctx, "mod-1", reportID, true))

	c, err := f.store.GetComment(ctx, ref)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.True(t, c.IsHidden)
	assert.Equal(t, 0, c.ReportsCount, "accepted report no longer counts as open")

	open, lifetime, err := f.store.CountReports(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, 0, open)
	assert.Equal(t, 1, lifetime)

	t.Run("second accept conflicts", func(t *testing.T) {
		err := f.controller.AcceptReport(ctx, "mod-1", reportID, true)
		assert.True(t, trust.IsKind(err, trust.KindConflict))
	})

	t.Run("unknown report", func(t *testing.T) {
		err := f.controller.AcceptReport(ctx, "mod-1", "no-such-report", false)
		assert.True(t, trust.IsKind(err, trust.KindNotFound))
	})
}

func TestAcceptReport_WithoutHideFollowsPolicy(t *testing.T) {
	ctx := context.Background()
	f := setupModeration(t)
	ref := seedComment(t, f.store, trust.SourceTitle, "c1", "author-1", "")
	reportID := f.openReport(t, ref, "reporter-1")

	require.NoError(t, f.controller.AcceptReport(ctx, "mod-1", reportID, false))

	c, err := f.store.GetComment(ctx, ref)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.False(t, c.IsHidden)
}

func TestRejectReport_UnhidesBelowThreshold(t *testing.T) {
	ctx := context.Background()
	f := setupModeration(t)
	ref := seedComment(t, f.store, trust.SourceTitle, "c1", "author-1", "")

	// Push the comment over the report threshold so automod hides it.
	ids := make([]string, 5)
	for i := range ids {
		ids[i] = f.openReport(t, ref, fmt.Sprintf("reporter-%d", i))
	}
	c, err := f.store.GetComment(ctx, ref)
	require.NoError(t, err)
	require.True(t, c.IsHidden)

	// Rejecting one report drops the open count to 4 and the policy unhides.
	require.NoError(t, f.controller.RejectReport(ctx, "mod-1", ids[0]))

	c, err = f.store.GetComment(ctx, ref)
	require.NoError(t, err)
	assert.False(t, c.IsHidden)
	assert.Equal(t, 4, c.ReportsCount)

	t.Run("second reject conflicts", func(t *testing.T) {
		err := f.controller.RejectReport(ctx, "mod-1", ids[0])
		assert.True(t, trust.IsKind(err, trust.KindConflict))
	})
}

func TestDeleteComment_CascadesOneLevel(t *testing.T) {
	ctx := context.Background()
	f := setupModeration(t)
	parent := seedComment(t, f.store, trust.SourceTitle, "parent", "author-1", "")
	reply := seedComment(t, f.store, trust.SourceTitle, "reply", "author-2", "parent")
	nested := seedComment(t, f.store, trust.SourceTitle, "nested", "author-3", "reply")

	f.openReport(t, parent, "reporter-1")
	f.openReport(t, reply, "reporter-2")

	require.NoError(t, f.controller.DeleteComment(ctx, "mod-1", parent))

	c, err := f.store.GetComment(ctx, parent)
	require.NoError(t, err)
	assert.Nil(t, c)

	c, err = f.store.GetComment(ctx, reply)
	require.NoError(t, err)
	assert.Nil(t, c, "direct reply is deleted")

	c, err = f.store.GetComment(ctx, nested)
	require.NoError(t, err)
	assert.NotNil(t, c, "cascade stops at one level")

	// Reports on the deleted comments are resolved as accepted, not orphaned.
	for _, ref := range []trust.CommentRef{parent, reply} {
		open, lifetime, err := f.store.CountReports(ctx, ref)
		require.NoError(t, err)
		assert.Equal(t, 0, open)
		assert.Equal(t, 1, lifetime)
	}

	t.Run("deleting again is a no-op", func(t *testing.T) {
		assert.NoError(t, f.controller.DeleteComment(ctx, "mod-1", parent))
	})
}

func TestPardon_ResetsStanding(t *testing.T) {
	ctx := context.Background()
	f := setupModeration(t)
	ref := seedComment(t, f.store, trust.SourceTitle, "c1", "author-1", "")

	for i := 0; i < 5; i++ {
		f.openReport(t, ref, fmt.Sprintf("reporter-%d", i))
	}
	c, err := f.store.GetComment(ctx, ref)
	require.NoError(t, err)
	require.True(t, c.IsHidden)

	require.NoError(t, f.controller.Pardon(ctx, "mod-1", ref))

	c, err = f.store.GetComment(ctx, ref)
	require.NoError(t, err)
	assert.False(t, c.IsHidden)
	assert.Equal(t, 0, c.ReportsCount)

	open, lifetime, err := f.store.CountReports(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, 0, open)
	assert.Equal(t, 5, lifetime)

	t.Run("missing comment", func(t *testing.T) {
		err := f.controller.Pardon(ctx, "mod-1", trust.CommentRef{Source: trust.SourceTitle, ID: "nope"})
		assert.True(t, trust.IsKind(err, trust.KindNotFound))
	})
}

func TestWhitelist_OverridesPolicy(t *testing.T) {
	ctx := context.Background()
	f := setupModeration(t)
	ref := seedComment(t, f.store, trust.SourceTitle, "c1", "author-1", "")

	// Hide the comment via score, then whitelist it: the override wins.
	for i := 0; i < 15; i++ {
		_, err := f.engine.CastVote(ctx, ref, fmt.Sprintf("voter-%d", i), trust.VoteDown)
		require.NoError(t, err)
	}
	c, err := f.store.GetComment(ctx, ref)
	require.NoError(t, err)
	require.True(t, c.IsHidden)

	require.NoError(t, f.controller.Whitelist(ctx, "mod-1", ref, true))

	c, err = f.store.GetComment(ctx, ref)
	require.NoError(t, err)
	assert.False(t, c.IsHidden)

	// Further downvotes no longer hide it.
	receipt, err := f.engine.CastVote(ctx, ref, "voter-late", trust.VoteDown)
	require.NoError(t, err)
	assert.False(t, receipt.IsHidden)

	// Flipping the override to a blacklist pin hides the comment regardless
	// of score.
	require.NoError(t, f.controller.Whitelist(ctx, "mod-1", ref, false))
	c, err = f.store.GetComment(ctx, ref)
	require.NoError(t, err)
	assert.True(t, c.IsHidden)
}

func TestWhitelist_BatchLookup(t *testing.T) {
	ctx := context.Background()
	f := setupModeration(t)
	a := seedComment(t, f.store, trust.SourceTitle, "a", "author-1", "")
	b := seedComment(t, f.store, trust.SourcePage, "b", "author-2", "")
	unpinned := seedComment(t, f.store, trust.SourceNews, "c", "author-3", "")

	require.NoError(t, f.controller.Whitelist(ctx, "mod-1", a, true))
	require.NoError(t, f.controller.Whitelist(ctx, "mod-2", b, false))

	out, err := f.controller.Overrides(ctx, "mod-1", []trust.CommentRef{a, b, unpinned})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.True(t, out[a].IsWhitelisted)
	assert.False(t, out[b].IsWhitelisted)
	_, ok := out[unpinned]
	assert.False(t, ok)
}

func TestSetPinned(t *testing.T) {
	ctx := context.Background()
	f := setupModeration(t)
	ref := seedComment(t, f.store, trust.SourceTeamPost, "c1", "author-1", "")

	require.NoError(t, f.controller.SetPinned(ctx, "mod-1", ref, true))
	c, err := f.store.GetComment(ctx, ref)
	require.NoError(t, err)
	assert.True(t, c.IsPinned)

	require.NoError(t, f.controller.SetPinned(ctx, "mod-1", ref, false))
	c, err = f.store.GetComment(ctx, ref)
	require.NoError(t, err)
	assert.False(t, c.IsPinned)

	err = f.controller.SetPinned(ctx, "mod-1", trust.CommentRef{Source: trust.SourceTitle, ID: "nope"}, true)
	assert.True(t, trust.IsKind(err, trust.KindNotFound))
}

func TestModeration_AuditTrail(t *testing.T) {
	ctx := context.Background()
	f := setupModeration(t)
	ref := seedComment(t, f.store, trust.SourceTitle, "c1", "author-1", "")
	reportID := f.openReport(t, ref, "reporter-1")

	require.NoError(t, f.controller.AcceptReport(ctx, "mod-1", reportID, true))
	require.NoError(t, f.controller.Pardon(ctx, "mod-1", ref))

	actions := f.sink.actions()
	assert.Contains(t, actions, trust.AuditAcceptReport)
	assert.Contains(t, actions, trust.AuditPardonComment)

	entries, err := f.controller.AuditLog(ctx, "admin-1", 10)
	require.NoError(t, err)
	assert.Len(t, entries, len(actions))
}

func TestModeration_AuditFailureDoesNotVeto(t *testing.T) {
	ctx := context.Background()
	f := setupModeration(t)
	ref := seedComment(t, f.store, trust.SourceTitle, "c1", "author-1", "")

	f.sink.fail = true
	require.NoError(t, f.controller.DeleteComment(ctx, "mod-1", ref))

	c, err := f.store.GetComment(ctx, ref)
	require.NoError(t, err)
	assert.Nil(t, c, "deletion lands even when the audit write fails")
}
