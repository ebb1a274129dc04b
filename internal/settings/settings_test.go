package settings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpen_CreatesDefaultsWhenMissing(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	require.Equal(t, "Radio Studio", s.Get().RadioName)

	info, err := os.Stat(filepath.Join(dir, "config", fileName))
	require.NoError(t, err)
	require.Equal(t, os.FileMode(filePerm), info.Mode().Perm())
}

func TestOpen_LoadsPersistedValues(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, s.Update(func(cur *Settings) { cur.RadioName = "My Station" }))

	reopened, err := Open(dir)
	require.NoError(t, err)
	require.Equal(t, "My Station", reopened.Get().RadioName)
}

func TestUpdate_PersistsCredentialChanges(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)

	require.NoError(t, s.Update(func(cur *Settings) {
		cur.LiveUsername = "dj"
		cur.LivePassword = "secret"
	}))

	reopened, err := Open(dir)
	require.NoError(t, err)
	got := reopened.Get()
	require.Equal(t, "dj", got.LiveUsername)
	require.Equal(t, "secret", got.LivePassword)
}
