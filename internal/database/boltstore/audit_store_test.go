package boltstore

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inkroll/internal/trust"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(Options{Path: filepath.Join(t.TempDir(), "audit.db")})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestAuditStore_RecordAndList(t *testing.T) {
	ctx := context.Background()
	sink := openTestStore(t).AuditStore()

	base := time.Now().UTC().Truncate(time.Second)
	for i := 0; i < 5; i++ {
		err := sink.Record(ctx, trust.AuditEntry{
			ID:        fmt.Sprintf("entry-%d", i),
			Action:    trust.AuditDeleteComment,
			ActorID:   "mod-1",
			Target:    fmt.Sprintf("title/c%d", i),
			Metadata:  map[string]string{"deleted": "1"},
			Timestamp: base.Add(time.Duration(i) * time.Second),
		})
		require.NoError(t, err)
	}

	entries, err := sink.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 5)

	// Newest first.
	assert.Equal(t, "entry-4", entries[0].ID)
	assert.Equal(t, "entry-0", entries[4].ID)
	assert.Equal(t, "mod-1", entries[0].ActorID)
	assert.Equal(t, "title/c4", entries[0].Target)
	assert.Equal(t, map[string]string{"deleted": "1"}, entries[0].Metadata)
	assert.True(t, entries[0].Timestamp.Equal(base.Add(4*time.Second)))
}

func TestAuditStore_ListLimit(t *testing.T) {
	ctx := context.Background()
	sink := openTestStore(t).AuditStore()

	base := time.Now().UTC()
	for i := 0; i < 10; i++ {
		require.NoError(t, sink.Record(ctx, trust.AuditEntry{
			ID:        fmt.Sprintf("entry-%d", i),
			Action:    trust.AuditAutoHide,
			ActorID:   "automod",
			Timestamp: base.Add(time.Duration(i) * time.Millisecond),
		}))
	}

	entries, err := sink.List(ctx, 3)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "entry-9", entries[0].ID)
	assert.Equal(t, "entry-7", entries[2].ID)
}

func TestAuditStore_ListEmpty(t *testing.T) {
	sink := openTestStore(t).AuditStore()

	entries, err := sink.List(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestAuditStore_SameTimestampKeysDistinct(t *testing.T) {
	ctx := context.Background()
	sink := openTestStore(t).AuditStore()

	ts := time.Now().UTC()
	require.NoError(t, sink.Record(ctx, trust.AuditEntry{ID: "a", Action: trust.AuditAutoHide, Timestamp: ts}))
	require.NoError(t, sink.Record(ctx, trust.AuditEntry{ID: "b", Action: trust.AuditAutoUnhide, Timestamp: ts}))

	entries, err := sink.List(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "entries in the same nanosecond must not overwrite each other")
}
