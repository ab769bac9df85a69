package boltstore

import (
	"context"
	"encoding/json"
	"fmt"

	bolt "go.etcd.io/bbolt"

	"inkroll/internal/trust"
)

// AuditStore implements trust.AuditSink on BoltDB.
type AuditStore struct {
	db *bolt.DB
}

// Ensure AuditStore implements the interface at compile time.
var _ trust.AuditSink = (*AuditStore)(nil)

// Record appends a moderation audit entry.
func (s *AuditStore) Record(ctx context.Context, entry trust.AuditEntry) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(BucketAuditLog)
		if bucket == nil {
			return fmt.Errorf("bucket not found: %s", BucketAuditLog)
		}

		data, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("failed to marshal audit entry: %w", err)
		}

		// Timestamp-based key for chronological ordering; the entry id
		// disambiguates actions landing in the same nanosecond.
		key := fmt.Sprintf("%020d:%s", entry.Timestamp.UnixNano(), entry.ID)

		return bucket.Put([]byte(key), data)
	})
}

// List returns the most recent audit entries, newest first.
func (s *AuditStore) List(ctx context.Context, limit int) ([]trust.AuditEntry, error) {
	var entries []trust.AuditEntry

	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(BucketAuditLog)
		if bucket == nil {
			return nil
		}

		// Keys are zero-padded timestamps, so a reverse cursor walk yields
		// newest first without loading the whole bucket.
		c := bucket.Cursor()
		for k, v := c.Last(); k != nil && len(entries) < limit; k, v = c.Prev() {
			var entry trust.AuditEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				continue // Skip malformed entries
			}
			entries = append(entries, entry)
		}
		return nil
	})

	return entries, err
}
