// This file implements the transaction and read helpers and error classification.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/mesh-intelligence/processflow/pkg/types"
)

// querier is the statement surface shared by *sql.DB and *sql.Tx. Hydration
// helpers take a querier so the same code serves plain reads and the
// read-back at the end of a write transaction.
type querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// withTx runs fn inside one write transaction. It holds the store write lock
// for the whole scope, so composite writes never interleave. Any error from
// fn or from commit rolls the transaction back and is returned with driver
// constraint failures classified as types.ErrConstraintViolation.
//
// There is no nested form: helpers that run inside a
// transaction take the *sql.Tx and never call withTx.
func (s *Store) withTx(fn func(tx *sql.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return types.ErrStoreClosed
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return classify(err)
	}
	if err := tx.Commit(); err != nil {
		return classify(fmt.Errorf("committing transaction: %w", err))
	}
	return nil
}

// withRead runs fn under the store read lock against the shared handle.
func (s *Store) withRead(fn func(q querier) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return types.ErrStoreClosed
	}
	return classify(fn(s.db))
}

// classify tags SQLite constraint failures with ErrConstraintViolation while
// keeping the driver error in the chain.
func classify(err error) error {
	if err == nil || errors.Is(err, types.ErrConstraintViolation) {
		return err
	}
	var se *msqlite.Error
	if errors.As(err, &se) && se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT {
		return fmt.Errorf("%w: %w", types.ErrConstraintViolation, err)
	}
	return err
}

// notFound builds the error for a missing entity.
func notFound(entity, id string) error {
	return fmt.Errorf("%s %s: %w", entity, id, types.ErrNotFound)
}

// violation builds a constraint error raised by application checks.
func violation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", types.ErrConstraintViolation, fmt.Sprintf(format, args...))
}

// exists reports whether query returns a row.
func exists(q querier, query string, args ...any) (bool, error) {
	var one int
	err := q.QueryRow(query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// nullString maps a nil pointer to SQL NULL.
func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

// stringPtr maps SQL NULL to a nil pointer.
func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
