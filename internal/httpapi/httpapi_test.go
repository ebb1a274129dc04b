package httpapi

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/airwave/station/internal/broadcast"
	"github.com/airwave/station/internal/catalog"
	"github.com/airwave/station/internal/listeners"
	"github.com/airwave/station/internal/scheduler"
	"github.com/airwave/station/internal/settings"
)

func newTestServer(t *testing.T) (*Server, *settings.Store) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "music"), 0o755))
	c, err := catalog.New(dir)
	require.NoError(t, err)
	sched := scheduler.New(c)
	state := broadcast.NewState("Test Radio")
	reg := listeners.NewRegistry()
	st, err := settings.Open(dir)
	require.NoError(t, err)

	return New(state, reg, c, sched, st, nil, zerolog.Nop()), st
}

func TestHandleStatus_ReportsCurrentState(t *testing.T) {
	s, _ := newTestServer(t)
	srv := httptest.NewServer(s.Routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAdminEndpoints_RequireAuth(t *testing.T) {
	s, _ := newTestServer(t)
	srv := httptest.NewServer(s.Routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/admin/listclients")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAdminEndpoints_AcceptCorrectCredentials(t *testing.T) {
	s, st := newTestServer(t)
	srv := httptest.NewServer(s.Routes())
	defer srv.Close()

	cur := st.Get()
	req, err := http.NewRequest(http.MethodGet, srv.URL+"/admin/listclients", nil)
	require.NoError(t, err)
	req.SetBasicAuth(cur.AdminUsername, cur.AdminPassword)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHandlePause_TogglesBroadcastState(t *testing.T) {
	s, st := newTestServer(t)
	srv := httptest.NewServer(s.Routes())
	defer srv.Close()

	cur := st.Get()
	req, err := http.NewRequest(http.MethodGet, srv.URL+"/admin/pause", nil)
	require.NoError(t, err)
	req.SetBasicAuth(cur.AdminUsername, cur.AdminPassword)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.False(t, s.state.IsPlaying())
}

// S6 — legacy Shoutcast metadata push updates now_playing.
func TestHandleMetadata_UpdatesNowPlaying(t *testing.T) {
	s, st := newTestServer(t)
	srv := httptest.NewServer(s.Routes())
	defer srv.Close()

	cur := st.Get()
	req, err := http.NewRequest(http.MethodGet, srv.URL+"/admin/metadata?mode=updinfo&mount=/live&song=Hello+World%21", nil)
	require.NoError(t, err)
	req.SetBasicAuth(cur.AdminUsername, cur.AdminPassword)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "Hello World!", s.state.NowPlaying())
}

func TestHandleMetadata_RejectsUnsupportedMode(t *testing.T) {
	s, st := newTestServer(t)
	srv := httptest.NewServer(s.Routes())
	defer srv.Close()

	cur := st.Get()
	req, err := http.NewRequest(http.MethodGet, srv.URL+"/admin/metadata?mode=bogus&song=x", nil)
	require.NoError(t, err)
	req.SetBasicAuth(cur.AdminUsername, cur.AdminPassword)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandleStream_DetachesListenerOnClientDisconnect(t *testing.T) {
	s, _ := newTestServer(t)
	srv := httptest.NewServer(s.Routes())
	defer srv.Close()

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/stream", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return s.registry.Count() == 1 }, time.Second, time.Millisecond)

	resp.Body.Close()
	require.Eventually(t, func() bool { return s.registry.Count() == 0 }, time.Second, time.Millisecond)
}
