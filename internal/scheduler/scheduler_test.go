package scheduler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/airwave/station/internal/catalog"
)

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte("x"), 0o644))
	}
}

func newTestCatalog(t *testing.T, songs, jingles, ads []string) *catalog.Catalog {
	t.Helper()
	base := t.TempDir()
	writeFiles(t, filepath.Join(base, "music"), songs...)
	writeFiles(t, filepath.Join(base, "jingles"), jingles...)
	writeFiles(t, filepath.Join(base, "ads"), ads...)
	c, err := catalog.New(base)
	require.NoError(t, err)
	return c
}

// S1 — Interleaving.
func TestScheduler_Interleaving(t *testing.T) {
	c := newTestCatalog(t,
		[]string{"s1.mp3", "s2.mp3", "s3.mp3", "s4.mp3", "s5.mp3", "s6.mp3"},
		[]string{"j1.mp3", "j2.mp3"},
		[]string{"a1.mp3"},
	)
	require.NoError(t, c.SaveOrder(catalog.KindSong, []string{"s1.mp3", "s2.mp3", "s3.mp3", "s4.mp3", "s5.mp3", "s6.mp3"}))
	require.NoError(t, c.SaveOrder(catalog.KindJingle, []string{"j1.mp3", "j2.mp3"}))
	require.NoError(t, c.SaveOrder(catalog.KindAd, []string{"a1.mp3"}))

	s := New(c)
	s.SetMode(ModeSequential)
	s.SetIntervals(3, 5)

	want := []string{"s1.mp3", "s2.mp3", "s3.mp3", "j1.mp3", "s4.mp3", "s5.mp3", "a1.mp3", "s6.mp3", "j2.mp3"}
	for i, w := range want {
		item, ok := s.Next()
		require.Truef(t, ok, "call %d", i)
		require.Equalf(t, w, item.Filename, "call %d", i)
	}
}

func TestScheduler_JingleBeatsAdOnTie(t *testing.T) {
	c := newTestCatalog(t, []string{"s1.mp3"}, []string{"j1.mp3"}, []string{"a1.mp3"})
	require.NoError(t, c.SaveOrder(catalog.KindSong, []string{"s1.mp3"}))
	require.NoError(t, c.SaveOrder(catalog.KindJingle, []string{"j1.mp3"}))
	require.NoError(t, c.SaveOrder(catalog.KindAd, []string{"a1.mp3"}))

	s := New(c)
	s.SetMode(ModeSequential)
	s.SetIntervals(1, 1)

	// First call has both counters at 0 < interval, so it's a song.
	item, ok := s.Next()
	require.True(t, ok)
	require.Equal(t, "s1.mp3", item.Filename)

	// Now both songsSinceJingle and songsSinceAd are 1 >= 1: jingle wins.
	item, ok = s.Next()
	require.True(t, ok)
	require.Equal(t, "j1.mp3", item.Filename)
}

func TestScheduler_EmptyCatalogReturnsNone(t *testing.T) {
	c := newTestCatalog(t, nil, nil, nil)
	s := New(c)
	_, ok := s.Next()
	require.False(t, ok)
}
