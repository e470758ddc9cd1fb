// Unit tests for media storage, attachment and deletion.
package sqlite

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/processflow/pkg/types"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func mediaDirEntries(t *testing.T, s *Store) []string {
	t.Helper()
	entries, err := os.ReadDir(s.Config().MediaDir())
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestSaveMedia(t *testing.T) {
	s := openTestStore(t)

	p, err := s.CreateProcess(types.ProcessPatch{})
	require.NoError(t, err)
	width := 1.0
	m, err := s.SaveMedia(types.MediaUpload{
		Filename:     "Pixel.PNG",
		Data:         pngHeader,
		AttachedTo:   p.ID,
		AttachedType: types.AttachedToProcess,
		Metadata:     &types.MediaMetadata{Width: &width, Height: &width},
	})
	require.NoError(t, err)

	assert.Equal(t, "image/png", m.MimeType, "mime type sniffed from content")
	assert.Equal(t, int64(len(pngHeader)), m.Size)
	assert.Equal(t, filepath.Join(s.Config().MediaDir(), m.ID+".PNG"), m.Path, "extension keeps the filename's case")
	assert.Equal(t, []types.Attachment{{TargetID: p.ID, TargetType: types.AttachedToProcess}}, m.AttachedTo)
	require.NotNil(t, m.Metadata)
	assert.Equal(t, 1.0, *m.Metadata.Width)

	got, err := s.GetMedia(m.ID)
	require.NoError(t, err)
	assert.Equal(t, m, got.File)
	assert.Equal(t, pngHeader, got.Data)
}

func TestSaveMedia_ExplicitMimeType(t *testing.T) {
	s := openTestStore(t)

	m, err := s.SaveMedia(types.MediaUpload{
		Filename: "notes",
		Data:     []byte("plain words"),
		MimeType: "text/markdown",
	})
	require.NoError(t, err)
	assert.Equal(t, "text/markdown", m.MimeType)
	assert.Equal(t, ".txt", filepath.Ext(m.Path), "extension from sniffed type when the name has none")
	assert.Empty(t, m.AttachedTo)
}

func TestSaveMedia_RemovesFileWhenRowsFail(t *testing.T) {
	s := openTestStore(t)

	_, err := s.SaveMedia(types.MediaUpload{
		Filename:     "orphan.txt",
		Data:         []byte("never recorded"),
		AttachedTo:   "ghost",
		AttachedType: types.AttachedToNote,
	})
	require.ErrorIs(t, err, types.ErrConstraintViolation)
	assert.Empty(t, mediaDirEntries(t, s))

	all, err := s.ListMedia("")
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestSaveMedia_Errors(t *testing.T) {
	s := openTestStore(t)

	_, err := s.SaveMedia(types.MediaUpload{Data: []byte("x")})
	assert.ErrorIs(t, err, types.ErrInvalidData, "filename required")

	_, err = s.SaveMedia(types.MediaUpload{Filename: "a.txt", AttachedTo: "x", AttachedType: "folder"})
	assert.ErrorIs(t, err, types.ErrInvalidData)
	assert.Empty(t, mediaDirEntries(t, s))
}

func TestGetMedia_MissingFile(t *testing.T) {
	s := openTestStore(t)

	m, err := s.SaveMedia(types.MediaUpload{Filename: "gone.txt", Data: []byte("soon gone")})
	require.NoError(t, err)
	require.NoError(t, os.Remove(m.Path))

	_, err = s.GetMedia(m.ID)
	assert.ErrorIs(t, err, types.ErrIO)

	_, err = s.GetMedia("missing")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestDeleteMedia(t *testing.T) {
	s := openTestStore(t)

	n, err := s.CreateNote(types.NotePatch{})
	require.NoError(t, err)
	m, err := s.SaveMedia(types.MediaUpload{
		Filename:     "photo.txt",
		Data:         []byte("bytes"),
		AttachedTo:   n.ID,
		AttachedType: types.AttachedToNote,
	})
	require.NoError(t, err)

	require.NoError(t, s.DeleteMedia(m.ID))
	_, err = os.Stat(m.Path)
	assert.True(t, os.IsNotExist(err), "file removed")
	_, err = s.GetMedia(m.ID)
	assert.ErrorIs(t, err, types.ErrNotFound)

	var attachments int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM media_attachments").Scan(&attachments))
	assert.Zero(t, attachments)

	assert.NoError(t, s.DeleteMedia(m.ID), "second delete is a no-op")
}

func TestDeleteMedia_FileAlreadyGone(t *testing.T) {
	s := openTestStore(t)

	m, err := s.SaveMedia(types.MediaUpload{Filename: "a.txt", Data: []byte("a")})
	require.NoError(t, err)
	require.NoError(t, os.Remove(m.Path))

	assert.NoError(t, s.DeleteMedia(m.ID))
}

func TestAttachDetachMedia(t *testing.T) {
	s := openTestStore(t)

	p, err := s.CreateProcess(types.ProcessPatch{})
	require.NoError(t, err)
	n, err := s.CreateNote(types.NotePatch{})
	require.NoError(t, err)
	m, err := s.SaveMedia(types.MediaUpload{Filename: "shared.txt", Data: []byte("shared")})
	require.NoError(t, err)
	loose, err := s.SaveMedia(types.MediaUpload{Filename: "loose.txt", Data: []byte("loose")})
	require.NoError(t, err)

	_, err = s.AttachMedia(m.ID, p.ID, types.AttachedToProcess)
	require.NoError(t, err)
	got, err := s.AttachMedia(m.ID, n.ID, types.AttachedToNote)
	require.NoError(t, err)
	got, err = s.AttachMedia(m.ID, n.ID, types.AttachedToNote)
	require.NoError(t, err, "attaching twice is a no-op")
	assert.Len(t, got.AttachedTo, 2)

	_, err = s.AttachMedia(m.ID, "ghost", types.AttachedToProcess)
	assert.ErrorIs(t, err, types.ErrConstraintViolation)
	_, err = s.AttachMedia("missing", p.ID, types.AttachedToProcess)
	assert.ErrorIs(t, err, types.ErrNotFound)

	forNote, err := s.ListMedia(n.ID)
	require.NoError(t, err)
	require.Len(t, forNote, 1)
	assert.Equal(t, m.ID, forNote[0].ID)

	all, err := s.ListMedia("")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, s.DetachMedia(m.ID, n.ID))
	forNote, err = s.ListMedia(n.ID)
	require.NoError(t, err)
	assert.Empty(t, forNote)
	assert.NoError(t, s.DetachMedia(m.ID, n.ID))

	_, err = s.GetMedia(loose.ID)
	assert.NoError(t, err)
}
