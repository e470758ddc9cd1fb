// Unit tests for default settings seeding.
package sqlite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/processflow/pkg/types"
)

func TestSeedDefaultSettings_OnlyWhenEmpty(t *testing.T) {
	s := openTestStore(t)

	_, err := s.db.Exec("DELETE FROM app_settings WHERE key <> 'theme'")
	require.NoError(t, err)
	require.NoError(t, s.EnsureSchema())
	settings, err := s.GetSettings()
	require.NoError(t, err)
	assert.Len(t, settings, 1, "a non-empty settings table is not reseeded")

	_, err = s.db.Exec("DELETE FROM app_settings")
	require.NoError(t, err)
	require.NoError(t, s.EnsureSchema())
	settings, err = s.GetSettings()
	require.NoError(t, err)
	assert.Len(t, settings, len(types.DefaultSettings))
}

func TestSeedDefaultSettings_ReseedsAfterEmptyingImport(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(types.Config{DataDir: dir})
	require.NoError(t, err)
	require.NoError(t, s.Import([]byte(`{"version":"1.0","processes":[],"settings":[]}`), types.ImportReplace))
	settings, err := s.GetSettings()
	require.NoError(t, err)
	assert.Empty(t, settings, "an empty settings list clears the table")
	require.NoError(t, s.Close())

	s, err = Open(types.Config{DataDir: dir})
	require.NoError(t, err)
	defer s.Close()
	settings, err = s.GetSettings()
	require.NoError(t, err)
	assert.Len(t, settings, len(types.DefaultSettings), "reopening reseeds the defaults")
}
