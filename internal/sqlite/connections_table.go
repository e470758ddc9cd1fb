// This file implements the process connection accessors.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/processflow/pkg/types"
)

const connectionSelect = `SELECT id, source_id, target_id, label, type, style, created_at, updated_at
FROM process_connections`

// CreateConnection inserts an edge between two existing processes. The type
// defaults to "default".
func (s *Store) CreateConnection(patch types.ConnectionPatch) (types.Connection, error) {
	now := types.NowMillis()
	c := types.Connection{
		ID:        newID(),
		SourceID:  patch.SourceID.Value,
		TargetID:  patch.TargetID.Value,
		Label:     patch.Label.Value,
		Type:      patch.Type.Or(types.ConnectionDefault),
		Style:     patch.Style.Value,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if c.SourceID == "" || c.TargetID == "" {
		return types.Connection{}, fmt.Errorf("connection needs source and target: %w", types.ErrInvalidData)
	}
	if c.Type == "" {
		c.Type = types.ConnectionDefault
	}
	if !types.ValidConnectionType(c.Type) {
		return types.Connection{}, fmt.Errorf("connection type %q: %w", c.Type, types.ErrInvalidData)
	}

	var created types.Connection
	err := s.withTx(func(tx *sql.Tx) error {
		style, err := styleColumn(c.Style)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(`INSERT INTO process_connections (
    id, source_id, target_id, label, type, style, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID, c.SourceID, c.TargetID, nullString(c.Label), c.Type, style, c.CreatedAt, c.UpdatedAt,
		); err != nil {
			return fmt.Errorf("inserting connection: %w", err)
		}
		created, err = getConnection(tx, c.ID)
		return err
	})
	if err != nil {
		return types.Connection{}, fmt.Errorf("creating connection: %w", err)
	}
	return created, nil
}

// UpdateConnection applies patch to the stored connection.
func (s *Store) UpdateConnection(id string, patch types.ConnectionPatch) (types.Connection, error) {
	if id == "" {
		return types.Connection{}, types.ErrInvalidID
	}
	if v, ok := patch.Type.Get(); ok && !types.ValidConnectionType(v) {
		return types.Connection{}, fmt.Errorf("connection type %q: %w", v, types.ErrInvalidData)
	}

	var updated types.Connection
	err := s.withTx(func(tx *sql.Tx) error {
		c, err := getConnection(tx, id)
		if err != nil {
			return err
		}
		if v, ok := patch.SourceID.Get(); ok && v != "" {
			c.SourceID = v
		}
		if v, ok := patch.TargetID.Get(); ok && v != "" {
			c.TargetID = v
		}
		if v, ok := patch.Label.Get(); ok {
			c.Label = v
		}
		if v, ok := patch.Type.Get(); ok {
			c.Type = v
		}
		if v, ok := patch.Style.Get(); ok {
			c.Style = v
		}
		c.UpdatedAt = nextStamp(c.UpdatedAt)

		style, err := styleColumn(c.Style)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(`UPDATE process_connections SET
    source_id = ?, target_id = ?, label = ?, type = ?, style = ?, updated_at = ?
WHERE id = ?`,
			c.SourceID, c.TargetID, nullString(c.Label), c.Type, style, c.UpdatedAt, id,
		); err != nil {
			return fmt.Errorf("updating connection: %w", err)
		}
		updated, err = getConnection(tx, id)
		return err
	})
	if err != nil {
		return types.Connection{}, fmt.Errorf("updating connection: %w", err)
	}
	return updated, nil
}

// DeleteConnection removes a connection. Deleting a missing id succeeds.
func (s *Store) DeleteConnection(id string) error {
	if id == "" {
		return types.ErrInvalidID
	}
	err := s.withTx(func(tx *sql.Tx) error {
		_, err := tx.Exec("DELETE FROM process_connections WHERE id = ?", id)
		return err
	})
	if err != nil {
		return fmt.Errorf("deleting connection %s: %w", id, err)
	}
	return nil
}

// GetConnection returns the connection with the given id.
func (s *Store) GetConnection(id string) (types.Connection, error) {
	if id == "" {
		return types.Connection{}, types.ErrInvalidID
	}
	var c types.Connection
	err := s.withRead(func(q querier) error {
		var err error
		c, err = getConnection(q, id)
		return err
	})
	return c, err
}

// ListConnections returns the connections whose source or target is
// processID, or every connection when processID is empty. Most recently
// updated first.
func (s *Store) ListConnections(processID string) ([]types.Connection, error) {
	var out []types.Connection
	err := s.withRead(func(q querier) error {
		var err error
		out, err = listConnections(q, processID)
		return err
	})
	return out, err
}

func getConnection(q querier, id string) (types.Connection, error) {
	c, err := scanConnection(q.QueryRow(connectionSelect+" WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return types.Connection{}, notFound("connection", id)
	}
	return c, err
}

func listConnections(q querier, processID string) ([]types.Connection, error) {
	query := connectionSelect
	var args []any
	if processID != "" {
		query += " WHERE source_id = ? OR target_id = ?"
		args = append(args, processID, processID)
	}
	query += " ORDER BY updated_at DESC, id DESC"

	rows, err := q.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing connections: %w", err)
	}
	defer rows.Close()

	out := []types.Connection{}
	for rows.Next() {
		c, err := scanConnection(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanConnection(row scanner) (types.Connection, error) {
	var (
		c            types.Connection
		label, style sql.NullString
	)
	err := row.Scan(&c.ID, &c.SourceID, &c.TargetID, &label, &c.Type, &style, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Connection{}, err
		}
		return types.Connection{}, fmt.Errorf("scanning connection: %w", err)
	}
	c.Label = stringPtr(label)
	if style.Valid && style.String != "" {
		var st types.ConnectionStyle
		if err := json.Unmarshal([]byte(style.String), &st); err != nil {
			return types.Connection{}, fmt.Errorf("parsing connection style: %w", err)
		}
		c.Style = &st
	}
	return c, nil
}

func styleColumn(style *types.ConnectionStyle) (sql.NullString, error) {
	if style == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(style)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("marshaling connection style: %w", err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}
