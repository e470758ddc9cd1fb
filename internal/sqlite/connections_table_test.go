// Unit tests for process connection operations.
package sqlite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/processflow/pkg/types"
)

func TestConnections_CRUD(t *testing.T) {
	s := openTestStore(t)

	a, err := s.CreateProcess(types.ProcessPatch{Title: types.Some("A")})
	require.NoError(t, err)
	b, err := s.CreateProcess(types.ProcessPatch{Title: types.Some("B")})
	require.NoError(t, err)

	c, err := s.CreateConnection(types.ConnectionPatch{
		SourceID: types.Some(a.ID),
		TargetID: types.Some(b.ID),
		Label:    types.Some(strPtr("next")),
		Style:    types.Some(&types.ConnectionStyle{Stroke: "#333", StrokeWidth: 2}),
	})
	require.NoError(t, err)
	assert.Equal(t, types.ConnectionDefault, c.Type)
	require.NotNil(t, c.Style)
	assert.Equal(t, 2.0, c.Style.StrokeWidth)

	got, err := s.GetConnection(c.ID)
	require.NoError(t, err)
	assert.Equal(t, c, got)

	u, err := s.UpdateConnection(c.ID, types.ConnectionPatch{
		Label: types.Some[*string](nil),
		Type:  types.Some(types.ConnectionConditional),
	})
	require.NoError(t, err)
	assert.Nil(t, u.Label)
	assert.Equal(t, types.ConnectionConditional, u.Type)
	assert.Equal(t, c.Style, u.Style, "absent style is kept")
	assert.Greater(t, u.UpdatedAt, c.UpdatedAt)

	require.NoError(t, s.DeleteConnection(c.ID))
	_, err = s.GetConnection(c.ID)
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.NoError(t, s.DeleteConnection(c.ID), "second delete is a no-op")
}

func TestCreateConnection_Errors(t *testing.T) {
	s := openTestStore(t)

	a, err := s.CreateProcess(types.ProcessPatch{})
	require.NoError(t, err)

	tests := []struct {
		name  string
		patch types.ConnectionPatch
		want  error
	}{
		{
			name:  "missing target",
			patch: types.ConnectionPatch{SourceID: types.Some(a.ID)},
			want:  types.ErrInvalidData,
		},
		{
			name: "unknown type",
			patch: types.ConnectionPatch{
				SourceID: types.Some(a.ID), TargetID: types.Some(a.ID), Type: types.Some("dotted"),
			},
			want: types.ErrInvalidData,
		},
		{
			name:  "target does not exist",
			patch: types.ConnectionPatch{SourceID: types.Some(a.ID), TargetID: types.Some("ghost")},
			want:  types.ErrConstraintViolation,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.CreateConnection(tt.patch)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	all, err := s.ListConnections("")
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestListConnections_ByProcess(t *testing.T) {
	s := openTestStore(t)

	a, err := s.CreateProcess(types.ProcessPatch{Title: types.Some("A")})
	require.NoError(t, err)
	b, err := s.CreateProcess(types.ProcessPatch{Title: types.Some("B")})
	require.NoError(t, err)
	c, err := s.CreateProcess(types.ProcessPatch{Title: types.Some("C")})
	require.NoError(t, err)

	ab, err := s.CreateConnection(types.ConnectionPatch{SourceID: types.Some(a.ID), TargetID: types.Some(b.ID)})
	require.NoError(t, err)
	bc, err := s.CreateConnection(types.ConnectionPatch{SourceID: types.Some(b.ID), TargetID: types.Some(c.ID)})
	require.NoError(t, err)

	forB, err := s.ListConnections(b.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{ab.ID, bc.ID}, connectionIDs(forB))

	forA, err := s.ListConnections(a.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{ab.ID}, connectionIDs(forA))

	all, err := s.ListConnections("")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, s.DeleteProcess(c.ID))
	all, err = s.ListConnections("")
	require.NoError(t, err)
	assert.Equal(t, []string{ab.ID}, connectionIDs(all), "deleting an endpoint deletes the edge")
}

func connectionIDs(cs []types.Connection) []string {
	ids := make([]string, len(cs))
	for i, c := range cs {
		ids[i] = c.ID
	}
	return ids
}
