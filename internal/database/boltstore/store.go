// Package boltstore provides the BoltDB (bbolt) backed audit sink: an
// append-only log of moderation actions kept separate from the relational
// store so a busy audit trail never contends with ledger transactions.
package boltstore

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

// BucketAuditLog stores moderation audit entries keyed by
// "timestamp:entry_id" for chronological iteration.
var BucketAuditLog = []byte("audit_log")

// Store wraps a BoltDB database.
type Store struct {
	db *bolt.DB
}

// Options configures the BoltDB store.
type Options struct {
	// Path to the database file. Parent directories will be created if needed.
	Path string

	// Timeout for obtaining a file lock on the database.
	// If zero, a default of 5 seconds is used.
	Timeout time.Duration

	// FileMode for creating the database file.
	// If zero, 0600 is used.
	FileMode os.FileMode
}

// Open creates or opens a BoltDB database at the specified path and creates
// the audit bucket if it doesn't exist.
func Open(opts Options) (*Store, error) {
	if opts.Path == "" {
		opts.Path = "inkroll-audit.db"
	}
	if opts.Timeout == 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.FileMode == 0 {
		opts.FileMode = 0600
	}

	// Ensure parent directory exists
	dir := filepath.Dir(opts.Path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := bolt.Open(opts.Path, opts.FileMode, &bolt.Options{
		Timeout: opts.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(BucketAuditLog)
		if err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", BucketAuditLog, err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// AuditStore returns the audit sink backed by this database.
func (s *Store) AuditStore() *AuditStore {
	return &AuditStore{db: s.db}
}
