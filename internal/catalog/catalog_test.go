package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// S2 — Catalog merge.
func TestCatalog_MergeOrder(t *testing.T) {
	base := t.TempDir()
	musicDir := filepath.Join(base, "music")
	require.NoError(t, os.MkdirAll(musicDir, 0o755))
	for _, f := range []string{"b.mp3", "a.mp3", "c.mp3"} {
		require.NoError(t, os.WriteFile(filepath.Join(musicDir, f), []byte("x"), 0o644))
	}

	c, err := New(base)
	require.NoError(t, err)

	require.NoError(t, c.SaveOrder(KindSong, []string{"c.mp3", "a.mp3", "z.mp3"}))

	got := c.Snapshot(KindSong)
	names := make([]string, len(got))
	for i, m := range got {
		names[i] = m.Filename
	}
	require.Equal(t, []string{"c.mp3", "a.mp3", "b.mp3"}, names)
}

func TestCatalog_RescanIsIdempotent(t *testing.T) {
	base := t.TempDir()
	musicDir := filepath.Join(base, "music")
	require.NoError(t, os.MkdirAll(musicDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(musicDir, "a.mp3"), []byte("x"), 0o644))

	c, err := New(base)
	require.NoError(t, err)
	require.NoError(t, c.SaveOrder(KindSong, []string{"a.mp3"}))

	before := c.Snapshot(KindSong)
	require.NoError(t, c.Rescan(KindSong))
	require.NoError(t, c.Rescan(KindSong))
	after := c.Snapshot(KindSong)
	require.Equal(t, before, after)
}

func TestCatalog_DisplayName(t *testing.T) {
	m := MediaItem{Kind: KindSong, Filename: "Some_Song_Title.mp3"}
	require.Equal(t, "Some Song Title", m.DisplayName())
}
