package dispatch

import (
	"bufio"
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/airwave/station/internal/liveingest"
)

func TestIsLiveIngest(t *testing.T) {
	cases := []struct {
		line string
		want bool
	}{
		{"SOURCE /live HTTP/1.0", true},
		{"PUT /live HTTP/1.1", true},
		{"GET /stream HTTP/1.1", false},
		{"GET /status HTTP/1.1", false},
		{"POST /admin/metadata HTTP/1.1", false},
	}
	for _, c := range cases {
		require.Equal(t, c.want, isLiveIngest(c.line), c.line)
	}
}

func TestDispatcher_ProxiesNonLiveRequestsToInternalHTTP(t *testing.T) {
	internal := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/status", r.URL.Path)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}))
	defer internal.Close()
	internalAddr := internal.Listener.Addr().String()

	publicLn, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer publicLn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d := New(publicLn.Addr().String(), internalAddr, time.Second, liveingest.Credentials{}, make(chan []byte, 1), liveingest.NewLiveState(func(bool) {}, func(string) {}), zerolog.Nop())

	go func() {
		ln := publicLn
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go d.handleConn(ctx, conn)
		}
	}()

	conn, err := net.Dial("tcp", publicLn.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("GET /status HTTP/1.1\r\nHost: x\r\n\r\n"))
	require.NoError(t, err)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	resp, err := http.ReadResponse(bufio.NewReader(conn), nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, "ok", string(body))
}
