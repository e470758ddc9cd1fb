// This file implements the processes table accessor and subtree queries.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/processflow/pkg/types"
)

const processSelect = `SELECT id, title, description, content, parent_id,
    position_x, position_y, width, height, color, icon,
    created_at, updated_at, version, last_modified_by, sync_status
FROM processes`

// CreateProcess inserts a process built from patch. Absent fields take their
// defaults: title "New Process", position at the origin, sync status local.
// A parent that does not exist is a constraint violation.
func (s *Store) CreateProcess(patch types.ProcessPatch) (types.Process, error) {
	now := types.NowMillis()
	p := types.Process{
		ID:             newID(),
		Title:          patch.Title.Value,
		Description:    patch.Description.Value,
		Content:        patch.Content.Value,
		ParentID:       normalizeParent(patch.ParentID.Value),
		Position:       patch.Position.Value,
		Size:           patch.Size.Value,
		Color:          patch.Color.Value,
		Icon:           patch.Icon.Value,
		LastModifiedBy: patch.LastModifiedBy.Value,
		SyncStatus:     patch.SyncStatus.Or(types.SyncLocal),
		CreatedAt:      now,
		UpdatedAt:      now,
		Version:        1,
	}
	if p.Title == "" {
		p.Title = types.DefaultProcessTitle
	}
	if !types.ValidSyncStatus(p.SyncStatus) {
		return types.Process{}, fmt.Errorf("sync status %q: %w", p.SyncStatus, types.ErrInvalidData)
	}

	var created types.Process
	err := s.withTx(func(tx *sql.Tx) error {
		if err := insertProcess(tx, p); err != nil {
			return err
		}
		var err error
		created, err = getProcess(tx, p.ID)
		return err
	})
	if err != nil {
		return types.Process{}, fmt.Errorf("creating process: %w", err)
	}
	s.log.Debug().Str("id", created.ID).Msg("process created")
	return created, nil
}

// UpdateProcess applies patch to the stored process. Present fields
// overwrite, absent ones are kept. updatedAt advances and version increments
// even for an empty patch. Moving a process under itself or one of its
// descendants is a constraint violation.
func (s *Store) UpdateProcess(id string, patch types.ProcessPatch) (types.Process, error) {
	if id == "" {
		return types.Process{}, types.ErrInvalidID
	}
	if v, ok := patch.SyncStatus.Get(); ok && !types.ValidSyncStatus(v) {
		return types.Process{}, fmt.Errorf("sync status %q: %w", v, types.ErrInvalidData)
	}

	var updated types.Process
	err := s.withTx(func(tx *sql.Tx) error {
		p, err := getProcess(tx, id)
		if err != nil {
			return err
		}
		if v, ok := patch.Title.Get(); ok {
			p.Title = v
		}
		if v, ok := patch.Description.Get(); ok {
			p.Description = v
		}
		if v, ok := patch.Content.Get(); ok {
			p.Content = v
		}
		if v, ok := patch.ParentID.Get(); ok {
			p.ParentID = normalizeParent(v)
			if p.ParentID != nil {
				if err := checkReparent(tx, id, *p.ParentID); err != nil {
					return err
				}
			}
		}
		if v, ok := patch.Position.Get(); ok {
			p.Position = v
		}
		if v, ok := patch.Size.Get(); ok {
			p.Size = v
		}
		if v, ok := patch.Color.Get(); ok {
			p.Color = v
		}
		if v, ok := patch.Icon.Get(); ok {
			p.Icon = v
		}
		if v, ok := patch.LastModifiedBy.Get(); ok {
			p.LastModifiedBy = v
		}
		if v, ok := patch.SyncStatus.Get(); ok {
			p.SyncStatus = v
		}
		p.UpdatedAt = nextStamp(p.UpdatedAt)

		width, height := sizeColumns(p.Size)
		if _, err := tx.Exec(`UPDATE processes SET
    title = ?, description = ?, content = ?, parent_id = ?,
    position_x = ?, position_y = ?, width = ?, height = ?, color = ?, icon = ?,
    updated_at = ?, version = version + 1, last_modified_by = ?, sync_status = ?
WHERE id = ?`,
			p.Title, p.Description, p.Content, nullString(p.ParentID),
			p.Position.X, p.Position.Y, width, height, nullString(p.Color), nullString(p.Icon),
			p.UpdatedAt, nullString(p.LastModifiedBy), p.SyncStatus,
			id,
		); err != nil {
			return fmt.Errorf("updating process: %w", err)
		}
		updated, err = getProcess(tx, id)
		return err
	})
	if err != nil {
		return types.Process{}, fmt.Errorf("updating process: %w", err)
	}
	return updated, nil
}

// DeleteProcess removes a process. The schema cascades the delete to
// sub-processes, connections, note links, checklist instances and media
// attachments. Deleting a missing id succeeds.
func (s *Store) DeleteProcess(id string) error {
	if id == "" {
		return types.ErrInvalidID
	}
	err := s.withTx(func(tx *sql.Tx) error {
		_, err := tx.Exec("DELETE FROM processes WHERE id = ?", id)
		return err
	})
	if err != nil {
		return fmt.Errorf("deleting process %s: %w", id, err)
	}
	s.log.Debug().Str("id", id).Msg("process deleted")
	return nil
}

// GetProcess returns the process with the given id.
func (s *Store) GetProcess(id string) (types.Process, error) {
	if id == "" {
		return types.Process{}, types.ErrInvalidID
	}
	var p types.Process
	err := s.withRead(func(q querier) error {
		var err error
		p, err = getProcess(q, id)
		return err
	})
	return p, err
}

// ListProcesses returns processes matching filter, most recently updated
// first.
func (s *Store) ListProcesses(filter types.ParentFilter) ([]types.Process, error) {
	var out []types.Process
	err := s.withRead(func(q querier) error {
		var err error
		out, err = listProcesses(q, filter)
		return err
	})
	return out, err
}

// GetProcessWithRelations returns a process together with its direct
// sub-processes, incident connections, linked notes and checklist instances.
func (s *Store) GetProcessWithRelations(id string) (types.ProcessWithRelations, error) {
	if id == "" {
		return types.ProcessWithRelations{}, types.ErrInvalidID
	}
	var out types.ProcessWithRelations
	err := s.withRead(func(q querier) error {
		p, err := getProcess(q, id)
		if err != nil {
			return err
		}
		out.Process = p
		if out.SubProcesses, err = listProcesses(q, types.ChildrenOf(id)); err != nil {
			return err
		}
		if out.Connections, err = listConnections(q, id); err != nil {
			return err
		}
		if out.Notes, err = notesLinkedToProcess(q, id); err != nil {
			return err
		}
		out.Checklists, err = listInstances(q, id)
		return err
	})
	return out, err
}

func insertProcess(q querier, p types.Process) error {
	width, height := sizeColumns(p.Size)
	_, err := q.Exec(`INSERT INTO processes (
    id, title, description, content, parent_id,
    position_x, position_y, width, height, color, icon,
    created_at, updated_at, version, last_modified_by, sync_status
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Title, p.Description, p.Content, nullString(p.ParentID),
		p.Position.X, p.Position.Y, width, height, nullString(p.Color), nullString(p.Icon),
		p.CreatedAt, p.UpdatedAt, p.Version, nullString(p.LastModifiedBy), p.SyncStatus,
	)
	if err != nil {
		return fmt.Errorf("inserting process: %w", err)
	}
	return nil
}

func getProcess(q querier, id string) (types.Process, error) {
	p, err := scanProcess(q.QueryRow(processSelect+" WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return types.Process{}, notFound("process", id)
	}
	return p, err
}

func listProcesses(q querier, filter types.ParentFilter) ([]types.Process, error) {
	query := processSelect
	var args []any
	switch parentID, children := filter.ParentID(); {
	case filter.IsRoot():
		query += " WHERE parent_id IS NULL"
	case children:
		query += " WHERE parent_id = ?"
		args = append(args, parentID)
	}
	query += " ORDER BY updated_at DESC, created_at DESC, id DESC"

	rows, err := q.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing processes: %w", err)
	}
	defer rows.Close()

	out := []types.Process{}
	for rows.Next() {
		p, err := scanProcess(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanProcess(row scanner) (types.Process, error) {
	var (
		p                     types.Process
		description, content  sql.NullString
		parentID, color, icon sql.NullString
		lastModifiedBy        sql.NullString
		width, height         sql.NullFloat64
	)
	err := row.Scan(
		&p.ID, &p.Title, &description, &content, &parentID,
		&p.Position.X, &p.Position.Y, &width, &height, &color, &icon,
		&p.CreatedAt, &p.UpdatedAt, &p.Version, &lastModifiedBy, &p.SyncStatus,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Process{}, err
		}
		return types.Process{}, fmt.Errorf("scanning process: %w", err)
	}
	p.Description = description.String
	p.Content = content.String
	p.ParentID = stringPtr(parentID)
	p.Color = stringPtr(color)
	p.Icon = stringPtr(icon)
	p.LastModifiedBy = stringPtr(lastModifiedBy)
	if width.Valid && height.Valid {
		p.Size = &types.Size{Width: width.Float64, Height: height.Float64}
	}
	return p, nil
}

// checkReparent rejects a parent that is the process itself or lies in its
// subtree, which would detach the subtree from every root.
func checkReparent(q querier, id, parentID string) error {
	if parentID == id {
		return violation("process %s cannot be its own parent", id)
	}
	cycle, err := exists(q, `WITH RECURSIVE subtree(id) AS (
    SELECT id FROM processes WHERE parent_id = ?
    UNION
    SELECT p.id FROM processes p JOIN subtree s ON p.parent_id = s.id
)
SELECT 1 FROM subtree WHERE id = ?`, id, parentID)
	if err != nil {
		return fmt.Errorf("checking process ancestry: %w", err)
	}
	if cycle {
		return violation("process %s cannot move under its descendant %s", id, parentID)
	}
	return nil
}

// normalizeParent treats an empty parent id as no parent.
func normalizeParent(p *string) *string {
	if p == nil || *p == "" {
		return nil
	}
	return p
}

func sizeColumns(size *types.Size) (sql.NullFloat64, sql.NullFloat64) {
	if size == nil {
		return sql.NullFloat64{}, sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: size.Width, Valid: true},
		sql.NullFloat64{Float64: size.Height, Valid: true}
}
