// Unit tests for notes, tags and search.
package sqlite

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/processflow/pkg/types"
)

func TestCreateNote(t *testing.T) {
	s := openTestStore(t)

	p, err := s.CreateProcess(types.ProcessPatch{})
	require.NoError(t, err)
	other, err := s.CreateNote(types.NotePatch{})
	require.NoError(t, err)
	assert.Equal(t, types.DefaultNoteTitle, other.Title)
	assert.Equal(t, []string{}, other.Tags)

	n, err := s.CreateNote(types.NotePatch{
		Title:           types.Some("Meeting"),
		Content:         types.Some("agenda"),
		Tags:            types.Some([]string{"work", "urgent", "work", ""}),
		LinkedProcesses: types.Some([]string{p.ID}),
		LinkedNotes:     types.Some([]string{other.ID}),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"work", "urgent"}, n.Tags, "tags deduplicated in first-seen order")
	assert.Equal(t, []string{p.ID}, n.LinkedProcesses)
	assert.Equal(t, []string{other.ID}, n.LinkedNotes)

	got, err := s.GetNote(n.ID)
	require.NoError(t, err)
	assert.Equal(t, n, got)
}

func TestCreateNote_RollsBackOnBadLink(t *testing.T) {
	s := openTestStore(t)

	_, err := s.CreateNote(types.NotePatch{
		Title:           types.Some("orphan"),
		Tags:            types.Some([]string{"x"}),
		LinkedProcesses: types.Some([]string{"no-such-process"}),
	})
	require.ErrorIs(t, err, types.ErrConstraintViolation)

	notes, err := s.ListNotes()
	require.NoError(t, err)
	assert.Empty(t, notes, "note row is rolled back with its links")

	var tags int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM note_tags").Scan(&tags))
	assert.Zero(t, tags)
}

func TestUpdateNote_ReplacesSets(t *testing.T) {
	s := openTestStore(t)

	n, err := s.CreateNote(types.NotePatch{
		Title: types.Some("tagged"),
		Tags:  types.Some([]string{"a", "b"}),
	})
	require.NoError(t, err)

	u, err := s.UpdateNote(n.ID, types.NotePatch{Content: types.Some("body")})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, u.Tags, "absent tags are kept")
	assert.Equal(t, "body", u.Content)
	assert.Equal(t, n.Version+1, u.Version)

	u, err = s.UpdateNote(n.ID, types.NotePatch{Tags: types.Some([]string{"c"})})
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, u.Tags)

	u, err = s.UpdateNote(n.ID, types.NotePatch{Tags: types.Some[[]string](nil)})
	require.NoError(t, err)
	assert.Empty(t, u.Tags, "present empty list clears")

	_, err = s.UpdateNote("missing", types.NotePatch{})
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestDeleteNote_Cascades(t *testing.T) {
	s := openTestStore(t)

	target, err := s.CreateNote(types.NotePatch{Title: types.Some("target")})
	require.NoError(t, err)
	source, err := s.CreateNote(types.NotePatch{
		Title:       types.Some("source"),
		LinkedNotes: types.Some([]string{target.ID}),
	})
	require.NoError(t, err)
	tmpl, err := s.CreateTemplate(types.TemplatePatch{})
	require.NoError(t, err)
	inst, err := s.CreateInstance(types.InstancePatch{
		TemplateID:   types.Some(tmpl.ID),
		AttachedTo:   types.Some(target.ID),
		AttachedType: types.Some(types.AttachedToNote),
	})
	require.NoError(t, err)

	require.NoError(t, s.DeleteNote(target.ID))

	got, err := s.GetNote(source.ID)
	require.NoError(t, err)
	assert.Empty(t, got.LinkedNotes, "links to a deleted note go with it")
	_, err = s.GetInstance(inst.ID)
	assert.ErrorIs(t, err, types.ErrNotFound)

	assert.NoError(t, s.DeleteNote(target.ID))
}

func TestSearchNotes(t *testing.T) {
	s := openTestStore(t)

	base := time.UnixMilli(1_700_000_000_000)
	freezeClock(t, base)
	byTitle, err := s.CreateNote(types.NotePatch{Title: types.Some("Planning Notes")})
	require.NoError(t, err)

	freezeClock(t, base.Add(time.Second))
	byTag, err := s.CreateNote(types.NotePatch{
		Title: types.Some("Roadmap"),
		Tags:  types.Some([]string{"planning", "q3-plan"}),
	})
	require.NoError(t, err)

	freezeClock(t, base.Add(2*time.Second))
	_, err = s.CreateNote(types.NotePatch{Title: types.Some("Groceries"), Content: types.Some("milk")})
	require.NoError(t, err)

	got, err := s.SearchNotes("plan")
	require.NoError(t, err)
	require.Len(t, got, 2, "a note matching twice appears once")
	assert.Equal(t, byTag.ID, got[0].ID, "newest updated first")
	assert.Equal(t, byTitle.ID, got[1].ID)

	got, err = s.SearchNotes("MILK")
	require.NoError(t, err)
	require.Len(t, got, 1, "matching ignores case")

	got, err = s.SearchNotes("%")
	require.NoError(t, err)
	assert.Empty(t, got, "LIKE wildcards match literally")

	got, err = s.SearchNotes("")
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestSearchNotes_FoldsNonASCII(t *testing.T) {
	s := openTestStore(t)

	byTitle, err := s.CreateNote(types.NotePatch{Title: types.Some("Étude plan")})
	require.NoError(t, err)
	byTag, err := s.CreateNote(types.NotePatch{
		Title: types.Some("Backlog"),
		Tags:  types.Some([]string{"Ärger"}),
	})
	require.NoError(t, err)

	for _, query := range []string{"Étude", "étude", "ÉTUDE"} {
		got, err := s.SearchNotes(query)
		require.NoError(t, err)
		require.Len(t, got, 1, "query %q", query)
		assert.Equal(t, byTitle.ID, got[0].ID)
	}
	for _, query := range []string{"Ärger", "ärger", "ÄRGER"} {
		got, err := s.SearchNotes(query)
		require.NoError(t, err)
		require.Len(t, got, 1, "query %q", query)
		assert.Equal(t, byTag.ID, got[0].ID)
	}
}

func TestFoldText(t *testing.T) {
	assert.Equal(t, "étude ärger", foldText("ÉTUDE Ärger"))
}

func TestDedupe(t *testing.T) {
	assert.Equal(t, []string{}, dedupe(nil))
	assert.Equal(t, []string{"a", "b"}, dedupe([]string{"a", "", "b", "a"}))
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `50\% off\_now \\o/`, escapeLike(`50% off_now \o/`))
}
