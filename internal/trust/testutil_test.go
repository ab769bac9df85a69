package trust_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"inkroll/internal/database/sqlitestore"
	"inkroll/internal/trust"
)

// setupStore opens a fresh SQLite store in a temp dir.
func setupStore(t *testing.T) *sqlitestore.Store {
	t.Helper()
	store, err := sqlitestore.Open(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// seedComment inserts a comment and returns its ref.
func seedComment(t *testing.T, store *sqlitestore.Store, source trust.Source, id, author, parent string) trust.CommentRef {
	t.Helper()
	ref := trust.CommentRef{Source: source, ID: id}
	require.NoError(t, store.CreateComment(context.Background(), trust.Comment{
		Ref:       ref,
		AuthorID:  author,
		Body:      "test comment body",
		ParentID:  parent,
		CreatedAt: time.Now().UTC(),
	}))
	return ref
}

// recordingSink is an in-memory AuditSink. With fail set, every Record
// returns an error so tests can check that audit failures stay best-effort.
type recordingSink struct {
	mu      sync.Mutex
	entries []trust.AuditEntry
	fail    bool
}

func (s *recordingSink) Record(_ context.Context, entry trust.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("audit sink unavailable")
	}
	s.entries = append(s.entries, entry)
	return nil
}

func (s *recordingSink) List(_ context.Context, limit int) ([]trust.AuditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit > len(s.entries) {
		limit = len(s.entries)
	}
	out := make([]trust.AuditEntry, limit)
	// newest first
	for i := 0; i < limit; i++ {
		out[i] = s.entries[len(s.entries)-1-i]
	}
	return out, nil
}

func (s *recordingSink) actions() []trust.AuditAction {
	s.mu.Lock()
	defer s.mu.Unlock()
	var actions []trust.AuditAction
	for _, e := range s.entries {
		actions = append(actions, e.Action)
	}
	return actions
}

// staticRoles is a fixed role lookup for tests.
type staticRoles struct {
	mods   map[string]bool
	admins map[string]bool
}

func (r staticRoles) IsModerator(id string) bool { return r.mods[id] || r.admins[id] }
func (r staticRoles) IsAdmin(id string) bool     { return r.admins[id] }

func testRoles() staticRoles {
	return staticRoles{
		mods:   map[string]bool{"mod-1": true, "mod-2": true},
		admins: map[string]bool{"admin-1": true},
	}
}

// looseLimiter returns a limiter that won't interfere with tests exercising
// other behavior.
func looseLimiter() *trust.RateLimiter {
	return trust.NewRateLimiter(map[trust.Action]trust.Rule{
		trust.ActionReport: {Max: 10000, Window: time.Hour},
		trust.ActionWrite:  {Max: 10000, Window: time.Hour},
	})
}
