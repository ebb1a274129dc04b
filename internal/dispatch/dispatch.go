// Package dispatch accepts TCP connections on the station's single public
// port and routes them either to the live-ingest handler (Icecast-style
// SOURCE/PUT requests) or proxies them byte-for-byte to the loopback HTTP
// surface, based on a short peek at the request line.
package dispatch

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/airwave/station/internal/liveingest"
)

// maxPeekLine bounds how many bytes dispatch will buffer while looking for
// the request line before giving up on a connection.
const maxPeekLine = 2048

// Dispatcher owns the public listener and the routing decision between
// live-ingest and the HTTP surface.
type Dispatcher struct {
	listenAddr   string
	internalAddr string
	peekTimeout  time.Duration

	creds     liveingest.Credentials
	liveChan  chan<- []byte
	liveState *liveingest.LiveState

	log zerolog.Logger
}

// New creates a Dispatcher. internalAddr is the loopback address the HTTP
// surface listens on (spec.md §6: the public port is the only one exposed).
func New(listenAddr, internalAddr string, peekTimeout time.Duration, creds liveingest.Credentials, liveChan chan<- []byte, liveState *liveingest.LiveState, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		listenAddr:   listenAddr,
		internalAddr: internalAddr,
		peekTimeout:  peekTimeout,
		creds:        creds,
		liveChan:     liveChan,
		liveState:    liveState,
		log:          log.With().Str("component", "dispatch").Logger(),
	}
}

// ListenAndServe accepts connections until ctx is cancelled.
func (d *Dispatcher) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", d.listenAddr)
	if err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	d.log.Info().Str("addr", d.listenAddr).Msg("dispatcher listening")
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			d.log.Warn().Err(err).Msg("accept failed")
			continue
		}
		if tc, ok := conn.(*net.TCPConn); ok {
			tuneKeepAlive(tc, d.log)
		}
		go d.handleConn(ctx, conn)
	}
}

func (d *Dispatcher) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(d.peekTimeout))
	reader := bufio.NewReaderSize(conn, maxPeekLine)
	line, err := reader.ReadSlice('\n')
	if err != nil {
		if !errors.Is(err, io.EOF) {
			d.log.Debug().Err(err).Msg("failed to peek request line")
		}
		return
	}
	_ = conn.SetReadDeadline(time.Time{})
	requestLine := strings.TrimRight(string(line), "\r\n")

	if isLiveIngest(requestLine) {
		if err := liveingest.Handle(conn, requestLine, reader, d.creds, d.liveChan, d.liveState, d.log); err != nil {
			d.log.Debug().Err(err).Msg("live ingest session ended")
		}
		return
	}

	d.proxyToInternal(ctx, conn, requestLine, reader)
}

// isLiveIngest reports whether a request line names the live-ingest mount
// using either the Icecast-native SOURCE verb or a PUT from a generic
// encoder (e.g. ffmpeg).
func isLiveIngest(requestLine string) bool {
	switch {
	case strings.HasPrefix(requestLine, "SOURCE /live"):
		return true
	case strings.HasPrefix(requestLine, "PUT /live"):
		return true
	default:
		return false
	}
}

// proxyToInternal forwards the already-consumed request line plus everything
// still buffered, then splices the rest of the connection to the loopback
// HTTP surface in both directions.
func (d *Dispatcher) proxyToInternal(ctx context.Context, conn net.Conn, requestLine string, reader *bufio.Reader) {
	upstream, err := (&net.Dialer{}).DialContext(ctx, "tcp", d.internalAddr)
	if err != nil {
		d.log.Warn().Err(err).Msg("failed to dial internal HTTP surface")
		return
	}
	defer upstream.Close()

	if _, err := upstream.Write([]byte(requestLine + "\r\n")); err != nil {
		return
	}

	done := make(chan struct{}, 2)
	go func() {
		_, _ = io.Copy(upstream, reader)
		if tc, ok := upstream.(*net.TCPConn); ok {
			_ = tc.CloseWrite()
		}
		done <- struct{}{}
	}()
	go func() {
		_, _ = io.Copy(conn, upstream)
		done <- struct{}{}
	}()
	<-done
}
