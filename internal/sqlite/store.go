// This file implements opening, configuring and closing the store.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/processflow/pkg/types"
)

// Pragmas applied to every pooled connection. foreign_keys is a
// per-connection setting in SQLite, so it must ride on the DSN rather than a
// one-off Exec.
const dsnPragmas = "_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"

// Store is the ProcessFlow persistence layer. It owns one database handle for
// its lifetime. Writes are serialized through withTx; reads share a read lock
// and never overlap an open write transaction.
type Store struct {
	mu     sync.RWMutex
	closed bool
	config types.Config
	db     *sql.DB
	log    zerolog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for store diagnostics.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.log = l }
}

// Open creates the data and media directories, opens the database file and
// ensures the schema. Every failure wraps types.ErrStorageInit.
func Open(config types.Config, opts ...Option) (*Store, error) {
	s := &Store{config: config, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrStorageInit, err)
	}
	if err := os.MkdirAll(config.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: creating data dir: %w", types.ErrStorageInit, err)
	}
	if err := os.MkdirAll(config.MediaDir(), 0o755); err != nil {
		return nil, fmt.Errorf("%w: creating media dir: %w", types.ErrStorageInit, err)
	}

	db, err := sql.Open("sqlite", "file:"+config.DatabasePath()+"?"+dsnPragmas)
	if err != nil {
		return nil, fmt.Errorf("%w: opening database: %w", types.ErrStorageInit, err)
	}
	s.db = db

	if err := s.checkForeignKeys(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %w", types.ErrStorageInit, err)
	}
	if err := s.EnsureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %w", types.ErrStorageInit, err)
	}

	s.log.Debug().Str("path", config.DatabasePath()).Msg("store opened")
	return s, nil
}

// checkForeignKeys fails when the driver did not honor the foreign_keys
// pragma; every cascade rule depends on it.
func (s *Store) checkForeignKeys() error {
	var enabled int
	if err := s.db.QueryRow("PRAGMA foreign_keys").Scan(&enabled); err != nil {
		return fmt.Errorf("reading foreign_keys pragma: %w", err)
	}
	if enabled != 1 {
		return fmt.Errorf("foreign key enforcement is disabled")
	}
	return nil
}

// EnsureSchema creates every table, index and trigger that does not exist
// yet and seeds default settings into an empty settings table. Repeated
// calls have no effect.
func (s *Store) EnsureSchema() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning schema transaction: %w", err)
	}
	defer tx.Rollback()

	for _, group := range [][]string{schemaDDL, indexDDL, triggerDDL} {
		for _, stmt := range group {
			if _, err := tx.Exec(stmt); err != nil {
				return fmt.Errorf("creating schema: %w", err)
			}
		}
	}
	if err := seedDefaultSettings(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing schema: %w", err)
	}
	return nil
}

// Close releases the database handle. Close is idempotent; after Close every
// operation returns types.ErrStoreClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.db.Close(); err != nil {
		return err
	}
	s.log.Debug().Msg("store closed")
	return nil
}

// Config returns the configuration the store was opened with.
func (s *Store) Config() types.Config {
	return s.config
}

// newID generates a UUID v7 for entity IDs.
func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to UUID v4 if v7 generation fails
		return uuid.New().String()
	}
	return id.String()
}

// nextStamp returns a write timestamp strictly after prev, so two updates in
// the same millisecond still advance updatedAt.
func nextStamp(prev int64) int64 {
	now := types.NowMillis()
	if now <= prev {
		return prev + 1
	}
	return now
}
