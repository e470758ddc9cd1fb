// Unit tests for process operations.
package sqlite

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/processflow/pkg/types"
)

func strPtr(s string) *string { return &s }

func TestCreateProcess_Defaults(t *testing.T) {
	at := time.UnixMilli(1_700_000_000_000)
	freezeClock(t, at)
	s := openTestStore(t)

	p, err := s.CreateProcess(types.ProcessPatch{})
	require.NoError(t, err)

	assert.NotEmpty(t, p.ID)
	assert.Equal(t, types.DefaultProcessTitle, p.Title)
	assert.Equal(t, types.Position{}, p.Position)
	assert.Nil(t, p.ParentID)
	assert.Nil(t, p.Size)
	assert.Equal(t, types.SyncLocal, p.SyncStatus)
	assert.Equal(t, int64(1), p.Version)
	assert.Equal(t, at.UnixMilli(), p.CreatedAt)
	assert.Equal(t, p.CreatedAt, p.UpdatedAt)
}

func TestCreateProcess_GetReturnsSame(t *testing.T) {
	s := openTestStore(t)

	p, err := s.CreateProcess(types.ProcessPatch{
		Title:          types.Some("Planning"),
		Description:    types.Some("quarterly planning"),
		Content:        types.Some("# agenda"),
		Position:       types.Some(types.Position{X: 120.5, Y: -40}),
		Size:           types.Some(&types.Size{Width: 200, Height: 80}),
		Color:          types.Some(strPtr("#ff0000")),
		Icon:           types.Some(strPtr("calendar")),
		LastModifiedBy: types.Some(strPtr("alice")),
	})
	require.NoError(t, err)

	got, err := s.GetProcess(p.ID)
	require.NoError(t, err)
	assert.Equal(t, p, got)
	assert.Equal(t, "#ff0000", *got.Color)
	assert.Equal(t, 200.0, got.Size.Width)
}

func TestCreateProcess_Errors(t *testing.T) {
	s := openTestStore(t)

	_, err := s.CreateProcess(types.ProcessPatch{ParentID: types.Some(strPtr("missing"))})
	assert.ErrorIs(t, err, types.ErrConstraintViolation, "parent must exist")

	_, err = s.CreateProcess(types.ProcessPatch{SyncStatus: types.Some("pending")})
	assert.ErrorIs(t, err, types.ErrInvalidData)

	all, err := s.ListProcesses(types.AllProcesses())
	require.NoError(t, err)
	assert.Empty(t, all, "failed creates leave nothing behind")
}

func TestUpdateProcess_EmptyPatchBumpsVersion(t *testing.T) {
	freezeClock(t, time.UnixMilli(1_700_000_000_000))
	s := openTestStore(t)

	p, err := s.CreateProcess(types.ProcessPatch{Title: types.Some("Draft")})
	require.NoError(t, err)

	u, err := s.UpdateProcess(p.ID, types.ProcessPatch{})
	require.NoError(t, err)
	assert.Equal(t, p.Version+1, u.Version)
	assert.Greater(t, u.UpdatedAt, p.UpdatedAt, "updatedAt advances even within one millisecond")
	assert.Equal(t, p.CreatedAt, u.CreatedAt)
	assert.Equal(t, p.Title, u.Title)

	u2, err := s.UpdateProcess(p.ID, types.ProcessPatch{})
	require.NoError(t, err)
	assert.Equal(t, p.Version+2, u2.Version)
	assert.Greater(t, u2.UpdatedAt, u.UpdatedAt)
}

func TestUpdateProcess_Presence(t *testing.T) {
	s := openTestStore(t)

	p, err := s.CreateProcess(types.ProcessPatch{
		Title: types.Some("Original"),
		Color: types.Some(strPtr("#00ff00")),
		Size:  types.Some(&types.Size{Width: 10, Height: 20}),
	})
	require.NoError(t, err)

	u, err := s.UpdateProcess(p.ID, types.ProcessPatch{
		Title: types.Some("Renamed"),
		Color: types.Some[*string](nil),
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", u.Title)
	assert.Nil(t, u.Color, "present nil clears")
	require.NotNil(t, u.Size, "absent field is kept")
	assert.Equal(t, 10.0, u.Size.Width)
}

func TestUpdateProcess_Errors(t *testing.T) {
	s := openTestStore(t)

	_, err := s.UpdateProcess("missing", types.ProcessPatch{Title: types.Some("x")})
	assert.ErrorIs(t, err, types.ErrNotFound)

	_, err = s.UpdateProcess("", types.ProcessPatch{})
	assert.ErrorIs(t, err, types.ErrInvalidID)
}

func TestUpdateProcess_Reparent(t *testing.T) {
	s := openTestStore(t)

	a, err := s.CreateProcess(types.ProcessPatch{Title: types.Some("A")})
	require.NoError(t, err)
	b, err := s.CreateProcess(types.ProcessPatch{Title: types.Some("B"), ParentID: types.Some(&a.ID)})
	require.NoError(t, err)
	c, err := s.CreateProcess(types.ProcessPatch{Title: types.Some("C"), ParentID: types.Some(&b.ID)})
	require.NoError(t, err)

	_, err = s.UpdateProcess(a.ID, types.ProcessPatch{ParentID: types.Some(&a.ID)})
	assert.ErrorIs(t, err, types.ErrConstraintViolation, "own parent")

	_, err = s.UpdateProcess(a.ID, types.ProcessPatch{ParentID: types.Some(&c.ID)})
	assert.ErrorIs(t, err, types.ErrConstraintViolation, "descendant as parent")

	moved, err := s.UpdateProcess(c.ID, types.ProcessPatch{ParentID: types.Some(&a.ID)})
	require.NoError(t, err)
	assert.Equal(t, a.ID, *moved.ParentID)

	root, err := s.UpdateProcess(b.ID, types.ProcessPatch{ParentID: types.Some[*string](nil)})
	require.NoError(t, err)
	assert.Nil(t, root.ParentID)
}

func TestProcesses_PlanningScenario(t *testing.T) {
	s := openTestStore(t)

	a, err := s.CreateProcess(types.ProcessPatch{Title: types.Some("Planning")})
	require.NoError(t, err)
	b, err := s.CreateProcess(types.ProcessPatch{Title: types.Some("Requirements"), ParentID: types.Some(&a.ID)})
	require.NoError(t, err)
	conn, err := s.CreateConnection(types.ConnectionPatch{
		SourceID: types.Some(a.ID),
		TargetID: types.Some(b.ID),
		Label:    types.Some(strPtr("Start")),
	})
	require.NoError(t, err)

	roots, err := s.ListProcesses(types.RootProcesses())
	require.NoError(t, err)
	require.Len(t, roots, 1)
	assert.Equal(t, a.ID, roots[0].ID)

	children, err := s.ListProcesses(types.ChildrenOf(a.ID))
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, b.ID, children[0].ID)

	all, err := s.ListProcesses(types.AllProcesses())
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, s.DeleteProcess(a.ID))

	_, err = s.GetProcess(b.ID)
	assert.ErrorIs(t, err, types.ErrNotFound)
	_, err = s.GetConnection(conn.ID)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestListProcesses_NewestUpdatedFirst(t *testing.T) {
	freezeClock(t, time.UnixMilli(1_700_000_000_000))
	s := openTestStore(t)

	first, err := s.CreateProcess(types.ProcessPatch{Title: types.Some("first")})
	require.NoError(t, err)
	second, err := s.CreateProcess(types.ProcessPatch{Title: types.Some("second")})
	require.NoError(t, err)
	_, err = s.UpdateProcess(first.ID, types.ProcessPatch{Title: types.Some("first, edited")})
	require.NoError(t, err)

	all, err := s.ListProcesses(types.AllProcesses())
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, first.ID, all[0].ID)
	assert.Equal(t, second.ID, all[1].ID)
}

func TestDeleteProcess_CascadesToGrandchildrenAndAttachments(t *testing.T) {
	s := openTestStore(t)

	root, err := s.CreateProcess(types.ProcessPatch{Title: types.Some("root")})
	require.NoError(t, err)
	child, err := s.CreateProcess(types.ProcessPatch{ParentID: types.Some(&root.ID)})
	require.NoError(t, err)
	grandchild, err := s.CreateProcess(types.ProcessPatch{ParentID: types.Some(&child.ID)})
	require.NoError(t, err)
	other, err := s.CreateProcess(types.ProcessPatch{Title: types.Some("unrelated")})
	require.NoError(t, err)

	tmpl, err := s.CreateTemplate(types.TemplatePatch{
		Items: types.Some([]types.ChecklistItemInput{{Text: "one"}}),
	})
	require.NoError(t, err)
	inst, err := s.CreateInstance(types.InstancePatch{
		TemplateID:   types.Some(tmpl.ID),
		AttachedTo:   types.Some(grandchild.ID),
		AttachedType: types.Some(types.AttachedToProcess),
	})
	require.NoError(t, err)
	note, err := s.CreateNote(types.NotePatch{LinkedProcesses: types.Some([]string{grandchild.ID, other.ID})})
	require.NoError(t, err)
	media, err := s.SaveMedia(types.MediaUpload{
		Filename:     "diagram.txt",
		Data:         []byte("boxes and arrows"),
		AttachedTo:   grandchild.ID,
		AttachedType: types.AttachedToProcess,
	})
	require.NoError(t, err)

	require.NoError(t, s.DeleteProcess(root.ID))

	for _, id := range []string{root.ID, child.ID, grandchild.ID} {
		_, err := s.GetProcess(id)
		assert.ErrorIs(t, err, types.ErrNotFound, id)
	}
	_, err = s.GetInstance(inst.ID)
	assert.ErrorIs(t, err, types.ErrNotFound, "instance attached to a cascaded process goes too")

	gotNote, err := s.GetNote(note.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{other.ID}, gotNote.LinkedProcesses)

	gotMedia, err := s.GetMedia(media.ID)
	require.NoError(t, err, "media survives, only its attachment goes")
	assert.Empty(t, gotMedia.File.AttachedTo)

	_, err = s.GetTemplate(tmpl.ID)
	assert.NoError(t, err, "templates are independent of processes")
	_, err = s.GetProcess(other.ID)
	assert.NoError(t, err)
}

func TestDeleteProcess_Idempotent(t *testing.T) {
	s := openTestStore(t)

	assert.NoError(t, s.DeleteProcess("never-existed"))
	assert.ErrorIs(t, s.DeleteProcess(""), types.ErrInvalidID)
}

func TestGetProcessWithRelations(t *testing.T) {
	s := openTestStore(t)

	a, err := s.CreateProcess(types.ProcessPatch{Title: types.Some("A")})
	require.NoError(t, err)
	b, err := s.CreateProcess(types.ProcessPatch{Title: types.Some("B"), ParentID: types.Some(&a.ID)})
	require.NoError(t, err)
	c, err := s.CreateProcess(types.ProcessPatch{Title: types.Some("C")})
	require.NoError(t, err)
	_, err = s.CreateConnection(types.ConnectionPatch{SourceID: types.Some(c.ID), TargetID: types.Some(a.ID)})
	require.NoError(t, err)
	_, err = s.CreateConnection(types.ConnectionPatch{SourceID: types.Some(b.ID), TargetID: types.Some(c.ID)})
	require.NoError(t, err)
	note, err := s.CreateNote(types.NotePatch{Title: types.Some("about A"), LinkedProcesses: types.Some([]string{a.ID})})
	require.NoError(t, err)
	tmpl, err := s.CreateTemplate(types.TemplatePatch{Title: types.Some("steps")})
	require.NoError(t, err)
	inst, err := s.CreateInstance(types.InstancePatch{
		TemplateID:   types.Some(tmpl.ID),
		AttachedTo:   types.Some(a.ID),
		AttachedType: types.Some(types.AttachedToProcess),
	})
	require.NoError(t, err)

	rel, err := s.GetProcessWithRelations(a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, rel.ID)
	require.Len(t, rel.SubProcesses, 1)
	assert.Equal(t, b.ID, rel.SubProcesses[0].ID)
	require.Len(t, rel.Connections, 1, "only edges touching A")
	assert.Equal(t, c.ID, rel.Connections[0].SourceID)
	require.Len(t, rel.Notes, 1)
	assert.Equal(t, note.ID, rel.Notes[0].ID)
	require.Len(t, rel.Checklists, 1)
	assert.Equal(t, inst.ID, rel.Checklists[0].ID)

	_, err = s.GetProcessWithRelations("missing")
	assert.ErrorIs(t, err, types.ErrNotFound)
}
