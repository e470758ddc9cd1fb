package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionalPresence(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantSet    bool
		wantParent *string
	}{
		{name: "absent field", input: `{}`, wantSet: false},
		{name: "explicit null", input: `{"parentId": null}`, wantSet: true},
		{name: "value", input: `{"parentId": "p1"}`, wantSet: true, wantParent: strPtr("p1")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p ProcessPatch
			require.NoError(t, json.Unmarshal([]byte(tt.input), &p))
			assert.Equal(t, tt.wantSet, p.ParentID.Set)
			assert.Equal(t, tt.wantParent, p.ParentID.Value)
		})
	}
}

func TestOptionalCollections(t *testing.T) {
	var p NotePatch
	require.NoError(t, json.Unmarshal([]byte(`{"title":"Plan","tags":[]}`), &p))

	title, ok := p.Title.Get()
	assert.True(t, ok)
	assert.Equal(t, "Plan", title)

	assert.True(t, p.Tags.Set, "empty array is present")
	assert.Empty(t, p.Tags.Value)
	assert.False(t, p.LinkedNotes.Set)
	assert.Equal(t, "fallback", p.Content.Or("fallback"))
}

func TestOptionalMarshal(t *testing.T) {
	out, err := json.Marshal(struct {
		A Optional[int] `json:"a"`
		B Optional[int] `json:"b"`
	}{A: Some(3)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":3,"b":null}`, string(out))
}

func TestParentFilterFrom(t *testing.T) {
	assert.True(t, ParentFilterFrom(Optional[*string]{}).IsAll())
	assert.True(t, ParentFilterFrom(Some[*string](nil)).IsRoot())

	id, ok := ParentFilterFrom(Some(strPtr("p1"))).ParentID()
	assert.True(t, ok)
	assert.Equal(t, "p1", id)

	_, ok = RootProcesses().ParentID()
	assert.False(t, ok)
}

func TestParseFormatAndMode(t *testing.T) {
	f, err := ParseFormat("sql")
	require.NoError(t, err)
	assert.Equal(t, FormatSQL, f)

	_, err = ParseFormat("xml")
	assert.ErrorIs(t, err, ErrInvalidFormat)

	m, err := ParseImportMode("replace")
	require.NoError(t, err)
	assert.Equal(t, ImportReplace, m)

	_, err = ParseImportMode("overwrite")
	assert.ErrorIs(t, err, ErrInvalidData)
}

func strPtr(s string) *string { return &s }
