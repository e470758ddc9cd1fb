// This file implements the notes accessors, tags, process links and search.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mesh-intelligence/processflow/pkg/types"
)

const noteSelect = `SELECT id, title, content, created_at, updated_at, version, last_modified_by, sync_status
FROM notes`

// CreateNote inserts a note with its tags and links in one transaction. A
// linked process or note that does not exist is a constraint violation and
// nothing is written.
func (s *Store) CreateNote(patch types.NotePatch) (types.Note, error) {
	now := types.NowMillis()
	n := types.Note{
		ID:              newID(),
		Title:           patch.Title.Value,
		Content:         patch.Content.Value,
		Tags:            dedupe(patch.Tags.Value),
		LinkedProcesses: dedupe(patch.LinkedProcesses.Value),
		LinkedNotes:     dedupe(patch.LinkedNotes.Value),
		LastModifiedBy:  patch.LastModifiedBy.Value,
		SyncStatus:      patch.SyncStatus.Or(types.SyncLocal),
		CreatedAt:       now,
		UpdatedAt:       now,
		Version:         1,
	}
	if n.Title == "" {
		n.Title = types.DefaultNoteTitle
	}
	if !types.ValidSyncStatus(n.SyncStatus) {
		return types.Note{}, fmt.Errorf("sync status %q: %w", n.SyncStatus, types.ErrInvalidData)
	}

	var created types.Note
	err := s.withTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`INSERT INTO notes (
    id, title, content, created_at, updated_at, version, last_modified_by, sync_status
) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			n.ID, n.Title, n.Content, n.CreatedAt, n.UpdatedAt, n.Version,
			nullString(n.LastModifiedBy), n.SyncStatus,
		); err != nil {
			return fmt.Errorf("inserting note: %w", err)
		}
		if err := replaceNoteTags(tx, n.ID, n.Tags); err != nil {
			return err
		}
		if err := replaceNoteProcessLinks(tx, n.ID, n.LinkedProcesses); err != nil {
			return err
		}
		if err := replaceNoteNoteLinks(tx, n.ID, n.LinkedNotes); err != nil {
			return err
		}
		var err error
		created, err = getNote(tx, n.ID)
		return err
	})
	if err != nil {
		return types.Note{}, fmt.Errorf("creating note: %w", err)
	}
	s.log.Debug().Str("id", created.ID).Msg("note created")
	return created, nil
}

// UpdateNote applies patch to the stored note. A present tag or link list
// replaces the stored set as a whole.
func (s *Store) UpdateNote(id string, patch types.NotePatch) (types.Note, error) {
	if id == "" {
		return types.Note{}, types.ErrInvalidID
	}
	if v, ok := patch.SyncStatus.Get(); ok && !types.ValidSyncStatus(v) {
		return types.Note{}, fmt.Errorf("sync status %q: %w", v, types.ErrInvalidData)
	}

	var updated types.Note
	err := s.withTx(func(tx *sql.Tx) error {
		n, err := getNote(tx, id)
		if err != nil {
			return err
		}
		if v, ok := patch.Title.Get(); ok {
			n.Title = v
		}
		if v, ok := patch.Content.Get(); ok {
			n.Content = v
		}
		if v, ok := patch.LastModifiedBy.Get(); ok {
			n.LastModifiedBy = v
		}
		if v, ok := patch.SyncStatus.Get(); ok {
			n.SyncStatus = v
		}
		n.UpdatedAt = nextStamp(n.UpdatedAt)

		if _, err := tx.Exec(`UPDATE notes SET
    title = ?, content = ?, updated_at = ?, version = version + 1,
    last_modified_by = ?, sync_status = ?
WHERE id = ?`,
			n.Title, n.Content, n.UpdatedAt, nullString(n.LastModifiedBy), n.SyncStatus, id,
		); err != nil {
			return fmt.Errorf("updating note: %w", err)
		}
		if v, ok := patch.Tags.Get(); ok {
			if err := replaceNoteTags(tx, id, dedupe(v)); err != nil {
				return err
			}
		}
		if v, ok := patch.LinkedProcesses.Get(); ok {
			if err := replaceNoteProcessLinks(tx, id, dedupe(v)); err != nil {
				return err
			}
		}
		if v, ok := patch.LinkedNotes.Get(); ok {
			if err := replaceNoteNoteLinks(tx, id, dedupe(v)); err != nil {
				return err
			}
		}
		updated, err = getNote(tx, id)
		return err
	})
	if err != nil {
		return types.Note{}, fmt.Errorf("updating note: %w", err)
	}
	return updated, nil
}

// DeleteNote removes a note. Its tags and links, links pointing at it,
// checklist instances and media attachments go with it. Deleting a missing
// id succeeds.
func (s *Store) DeleteNote(id string) error {
	if id == "" {
		return types.ErrInvalidID
	}
	err := s.withTx(func(tx *sql.Tx) error {
		_, err := tx.Exec("DELETE FROM notes WHERE id = ?", id)
		return err
	})
	if err != nil {
		return fmt.Errorf("deleting note %s: %w", id, err)
	}
	s.log.Debug().Str("id", id).Msg("note deleted")
	return nil
}

// GetNote returns the note with the given id.
func (s *Store) GetNote(id string) (types.Note, error) {
	if id == "" {
		return types.Note{}, types.ErrInvalidID
	}
	var n types.Note
	err := s.withRead(func(q querier) error {
		var err error
		n, err = getNote(q, id)
		return err
	})
	return n, err
}

// ListNotes returns every note, most recently updated first.
func (s *Store) ListNotes() ([]types.Note, error) {
	var out []types.Note
	err := s.withRead(func(q querier) error {
		var err error
		out, err = queryNotes(q, noteSelect+" ORDER BY updated_at DESC, created_at DESC, id DESC")
		return err
	})
	return out, err
}

// SearchNotes returns notes whose title, content or any tag contains query,
// ignoring case. Each note appears once, most recently updated first. An
// empty query matches every note.
func (s *Store) SearchNotes(query string) ([]types.Note, error) {
	pattern := "%" + escapeLike(foldText(query)) + "%"
	var out []types.Note
	err := s.withRead(func(q querier) error {
		var err error
		out, err = queryNotes(q, noteSelect+` WHERE fold(title) LIKE ?1 ESCAPE '\'
    OR fold(coalesce(content, '')) LIKE ?1 ESCAPE '\'
    OR EXISTS (
        SELECT 1 FROM note_tags t
        WHERE t.note_id = notes.id AND fold(t.tag) LIKE ?1 ESCAPE '\'
    )
ORDER BY updated_at DESC, created_at DESC, id DESC`, pattern)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("searching notes: %w", err)
	}
	return out, nil
}

// notesLinkedToProcess returns the notes linked to processID.
func notesLinkedToProcess(q querier, processID string) ([]types.Note, error) {
	return queryNotes(q, noteSelect+` WHERE id IN (
    SELECT note_id FROM note_process_links WHERE process_id = ?
)
ORDER BY updated_at DESC, created_at DESC, id DESC`, processID)
}

func getNote(q querier, id string) (types.Note, error) {
	n, err := scanNote(q.QueryRow(noteSelect+" WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return types.Note{}, notFound("note", id)
	}
	if err != nil {
		return types.Note{}, err
	}
	if err := hydrateNote(q, &n); err != nil {
		return types.Note{}, err
	}
	return n, nil
}

// queryNotes runs a note SELECT and hydrates each row. Rows are collected
// before hydration so only one result set is open at a time.
func queryNotes(q querier, query string, args ...any) ([]types.Note, error) {
	rows, err := q.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing notes: %w", err)
	}
	out := []types.Note{}
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i := range out {
		if err := hydrateNote(q, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func scanNote(row scanner) (types.Note, error) {
	var (
		n              types.Note
		content        sql.NullString
		lastModifiedBy sql.NullString
	)
	err := row.Scan(&n.ID, &n.Title, &content, &n.CreatedAt, &n.UpdatedAt,
		&n.Version, &lastModifiedBy, &n.SyncStatus)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Note{}, err
		}
		return types.Note{}, fmt.Errorf("scanning note: %w", err)
	}
	n.Content = content.String
	n.LastModifiedBy = stringPtr(lastModifiedBy)
	return n, nil
}

// hydrateNote loads the tag and link sets in insertion order.
func hydrateNote(q querier, n *types.Note) error {
	var err error
	if n.Tags, err = queryStrings(q,
		"SELECT tag FROM note_tags WHERE note_id = ? ORDER BY rowid", n.ID); err != nil {
		return fmt.Errorf("loading tags for note %s: %w", n.ID, err)
	}
	if n.LinkedProcesses, err = queryStrings(q,
		"SELECT process_id FROM note_process_links WHERE note_id = ? ORDER BY rowid", n.ID); err != nil {
		return fmt.Errorf("loading process links for note %s: %w", n.ID, err)
	}
	if n.LinkedNotes, err = queryStrings(q,
		"SELECT linked_note_id FROM note_note_links WHERE note_id = ? ORDER BY rowid", n.ID); err != nil {
		return fmt.Errorf("loading note links for note %s: %w", n.ID, err)
	}
	return nil
}

func replaceNoteTags(tx *sql.Tx, noteID string, tags []string) error {
	if _, err := tx.Exec("DELETE FROM note_tags WHERE note_id = ?", noteID); err != nil {
		return fmt.Errorf("clearing tags: %w", err)
	}
	for _, tag := range tags {
		if _, err := tx.Exec("INSERT INTO note_tags (note_id, tag) VALUES (?, ?)", noteID, tag); err != nil {
			return fmt.Errorf("inserting tag %q: %w", tag, err)
		}
	}
	return nil
}

func replaceNoteProcessLinks(tx *sql.Tx, noteID string, processIDs []string) error {
	if _, err := tx.Exec("DELETE FROM note_process_links WHERE note_id = ?", noteID); err != nil {
		return fmt.Errorf("clearing process links: %w", err)
	}
	for _, pid := range processIDs {
		if _, err := tx.Exec(
			"INSERT INTO note_process_links (note_id, process_id) VALUES (?, ?)", noteID, pid,
		); err != nil {
			return fmt.Errorf("linking process %s: %w", pid, err)
		}
	}
	return nil
}

func replaceNoteNoteLinks(tx *sql.Tx, noteID string, noteIDs []string) error {
	if _, err := tx.Exec("DELETE FROM note_note_links WHERE note_id = ?", noteID); err != nil {
		return fmt.Errorf("clearing note links: %w", err)
	}
	for _, linked := range noteIDs {
		if _, err := tx.Exec(
			"INSERT INTO note_note_links (note_id, linked_note_id) VALUES (?, ?)", noteID, linked,
		); err != nil {
			return fmt.Errorf("linking note %s: %w", linked, err)
		}
	}
	return nil
}

// queryStrings collects a single text column.
func queryStrings(q querier, query string, args ...any) ([]string, error) {
	rows, err := q.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// dedupe drops repeated and empty values, keeping first occurrences in order.
func dedupe(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes s match literally inside a LIKE pattern with ESCAPE '\'.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
