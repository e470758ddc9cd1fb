// This file implements media file storage and the media accessors.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"

	"github.com/mesh-intelligence/processflow/pkg/types"
)

const mediaSelect = `SELECT id, filename, mime_type, size, path, thumbnail_path, metadata, created_at
FROM media_files`

// SaveMedia stores upload in the media directory as <id><ext> and records
// it, attached to the upload's target when one is named. The file is
// written before the rows and removed again when the rows cannot be written.
func (s *Store) SaveMedia(upload types.MediaUpload) (types.MediaFile, error) {
	if upload.Filename == "" {
		return types.MediaFile{}, fmt.Errorf("media needs a filename: %w", types.ErrInvalidData)
	}
	if upload.AttachedTo != "" && !types.ValidAttachedType(upload.AttachedType) {
		return types.MediaFile{}, fmt.Errorf("attached type %q: %w", upload.AttachedType, types.ErrInvalidData)
	}

	m := types.MediaFile{
		ID:        newID(),
		Filename:  upload.Filename,
		MimeType:  upload.MimeType,
		Size:      int64(len(upload.Data)),
		Metadata:  upload.Metadata,
		CreatedAt: types.NowMillis(),
	}
	detected := mimetype.Detect(upload.Data)
	if m.MimeType == "" {
		m.MimeType = detected.String()
	}
	ext := filepath.Ext(upload.Filename)
	if ext == "" {
		ext = detected.Extension()
	}
	m.Path = filepath.Join(s.config.MediaDir(), m.ID+ext)

	if err := s.writeMediaFile(m.Path, upload.Data); err != nil {
		return types.MediaFile{}, err
	}

	var saved types.MediaFile
	err := s.withTx(func(tx *sql.Tx) error {
		metadata, err := metadataColumn(m.Metadata)
		if err != nil {
			return err
		}
		if upload.AttachedTo != "" {
			if err := checkTarget(tx, upload.AttachedType, upload.AttachedTo); err != nil {
				return err
			}
		}
		if _, err := tx.Exec(`INSERT INTO media_files (
    id, filename, mime_type, size, path, thumbnail_path, metadata, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			m.ID, m.Filename, m.MimeType, m.Size, m.Path, nullString(m.ThumbnailPath), metadata, m.CreatedAt,
		); err != nil {
			return fmt.Errorf("inserting media: %w", err)
		}
		if upload.AttachedTo != "" {
			if err := attachMedia(tx, m.ID, upload.AttachedTo, upload.AttachedType); err != nil {
				return err
			}
		}
		saved, err = getMedia(tx, m.ID)
		return err
	})
	if err != nil {
		s.removeMediaFile(m.Path)
		return types.MediaFile{}, fmt.Errorf("saving media: %w", err)
	}
	s.log.Debug().Str("id", saved.ID).Str("mime", saved.MimeType).Int64("size", saved.Size).Msg("media saved")
	return saved, nil
}

// GetMedia returns the media record and its bytes. A record whose file
// cannot be read fails with types.ErrIO.
func (s *Store) GetMedia(id string) (types.MediaContent, error) {
	if id == "" {
		return types.MediaContent{}, types.ErrInvalidID
	}
	var m types.MediaFile
	err := s.withRead(func(q querier) error {
		var err error
		m, err = getMedia(q, id)
		return err
	})
	if err != nil {
		return types.MediaContent{}, err
	}
	data, err := os.ReadFile(m.Path)
	if err != nil {
		return types.MediaContent{}, fmt.Errorf("%w: reading media %s: %w", types.ErrIO, id, err)
	}
	return types.MediaContent{File: m, Data: data}, nil
}

// DeleteMedia removes the media record and its attachments, then its file
// and thumbnail. File removal failures are logged, not returned. Deleting a
// missing id succeeds.
func (s *Store) DeleteMedia(id string) error {
	if id == "" {
		return types.ErrInvalidID
	}
	var removed *types.MediaFile
	err := s.withTx(func(tx *sql.Tx) error {
		m, err := getMedia(tx, id)
		if errors.Is(err, types.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if _, err := tx.Exec("DELETE FROM media_files WHERE id = ?", id); err != nil {
			return err
		}
		removed = &m
		return nil
	})
	if err != nil {
		return fmt.Errorf("deleting media %s: %w", id, err)
	}
	if removed != nil {
		s.removeMediaFile(removed.Path)
		if removed.ThumbnailPath != nil {
			s.removeMediaFile(*removed.ThumbnailPath)
		}
		s.log.Debug().Str("id", id).Msg("media deleted")
	}
	return nil
}

// ListMedia returns media attached to attachedTo, or every media record when
// attachedTo is empty. Newest first.
func (s *Store) ListMedia(attachedTo string) ([]types.MediaFile, error) {
	query := mediaSelect
	var args []any
	if attachedTo != "" {
		query += " WHERE id IN (SELECT media_id FROM media_attachments WHERE attached_to = ?)"
		args = append(args, attachedTo)
	}
	query += " ORDER BY created_at DESC, id DESC"

	var out []types.MediaFile
	err := s.withRead(func(q querier) error {
		rows, err := q.Query(query, args...)
		if err != nil {
			return fmt.Errorf("listing media: %w", err)
		}
		out = []types.MediaFile{}
		for rows.Next() {
			m, err := scanMedia(rows)
			if err != nil {
				rows.Close()
				return err
			}
			out = append(out, m)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return err
		}
		rows.Close()

		for i := range out {
			if out[i].AttachedTo, err = mediaAttachments(q, out[i].ID); err != nil {
				return err
			}
		}
		return nil
	})
	return out, err
}

// AttachMedia links a media record to a process or note. Attaching twice
// has no further effect.
func (s *Store) AttachMedia(mediaID, targetID, targetType string) (types.MediaFile, error) {
	if mediaID == "" || targetID == "" {
		return types.MediaFile{}, types.ErrInvalidID
	}
	if !types.ValidAttachedType(targetType) {
		return types.MediaFile{}, fmt.Errorf("attached type %q: %w", targetType, types.ErrInvalidData)
	}
	var m types.MediaFile
	err := s.withTx(func(tx *sql.Tx) error {
		if _, err := getMedia(tx, mediaID); err != nil {
			return err
		}
		if err := checkTarget(tx, targetType, targetID); err != nil {
			return err
		}
		if err := attachMedia(tx, mediaID, targetID, targetType); err != nil {
			return err
		}
		var err error
		m, err = getMedia(tx, mediaID)
		return err
	})
	if err != nil {
		return types.MediaFile{}, fmt.Errorf("attaching media %s: %w", mediaID, err)
	}
	return m, nil
}

// DetachMedia removes the link between a media record and a target. The
// media record and file stay.
func (s *Store) DetachMedia(mediaID, targetID string) error {
	if mediaID == "" || targetID == "" {
		return types.ErrInvalidID
	}
	err := s.withTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(
			"DELETE FROM media_attachments WHERE media_id = ? AND attached_to = ?", mediaID, targetID)
		return err
	})
	if err != nil {
		return fmt.Errorf("detaching media %s: %w", mediaID, err)
	}
	return nil
}

func (s *Store) writeMediaFile(path string, data []byte) error {
	if err := writeFileAtomic(path, data); err != nil {
		return fmt.Errorf("%w: writing media file: %w", types.ErrIO, err)
	}
	return nil
}

func (s *Store) removeMediaFile(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.log.Warn().Err(err).Str("path", path).Msg("removing media file")
	}
}

func attachMedia(tx *sql.Tx, mediaID, targetID, targetType string) error {
	if _, err := tx.Exec(`INSERT INTO media_attachments (media_id, attached_to, attached_type)
VALUES (?, ?, ?)
ON CONFLICT (media_id, attached_to) DO NOTHING`,
		mediaID, targetID, targetType,
	); err != nil {
		return fmt.Errorf("attaching media: %w", err)
	}
	return nil
}

func getMedia(q querier, id string) (types.MediaFile, error) {
	m, err := scanMedia(q.QueryRow(mediaSelect+" WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return types.MediaFile{}, notFound("media", id)
	}
	if err != nil {
		return types.MediaFile{}, err
	}
	if m.AttachedTo, err = mediaAttachments(q, id); err != nil {
		return types.MediaFile{}, err
	}
	return m, nil
}

func scanMedia(row scanner) (types.MediaFile, error) {
	var (
		m                   types.MediaFile
		thumbnail, metadata sql.NullString
	)
	err := row.Scan(&m.ID, &m.Filename, &m.MimeType, &m.Size, &m.Path, &thumbnail, &metadata, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.MediaFile{}, err
		}
		return types.MediaFile{}, fmt.Errorf("scanning media: %w", err)
	}
	m.ThumbnailPath = stringPtr(thumbnail)
	if metadata.Valid && metadata.String != "" {
		var md types.MediaMetadata
		if err := json.Unmarshal([]byte(metadata.String), &md); err != nil {
			return types.MediaFile{}, fmt.Errorf("parsing media metadata: %w", err)
		}
		m.Metadata = &md
	}
	return m, nil
}

func mediaAttachments(q querier, mediaID string) ([]types.Attachment, error) {
	rows, err := q.Query(
		"SELECT attached_to, attached_type FROM media_attachments WHERE media_id = ? ORDER BY rowid", mediaID)
	if err != nil {
		return nil, fmt.Errorf("loading attachments for media %s: %w", mediaID, err)
	}
	defer rows.Close()

	out := []types.Attachment{}
	for rows.Next() {
		var a types.Attachment
		if err := rows.Scan(&a.TargetID, &a.TargetType); err != nil {
			return nil, fmt.Errorf("scanning attachment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func metadataColumn(md *types.MediaMetadata) (sql.NullString, error) {
	if md == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(md)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("marshaling media metadata: %w", err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}
