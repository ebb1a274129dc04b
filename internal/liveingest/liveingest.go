// Package liveingest handles Icecast-style SOURCE/PUT connections: it
// authenticates the source, extracts its display metadata, and republishes
// the raw MP3 body onto the live channel for the broadcast switch to pick up.
package liveingest

import (
	"bufio"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// State names the live-ingest connection's lifecycle (spec.md C5).
type State string

const (
	StateIdle           State = "idle"
	StateAuthenticating State = "authenticating"
	StateStreaming      State = "streaming"
	StateClosing        State = "closing"
)

const (
	headerTimeout = 10 * time.Second
	maxHeaderSize = 8 * 1024 // header reader's buffer size; header length is bounded only by headerTimeout
	bodyChunkSize = 4096
)

// Credentials is the SOURCE/PUT basic-auth username/password pair.
type Credentials struct {
	Username string
	Password string
}

// Matches performs a constant-time comparison against both fields so
// failure timing can't leak which half was wrong.
func (c Credentials) Matches(user, pass string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(c.Username), []byte(user)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(c.Password), []byte(pass)) == 1
	return userOK && passOK
}

// LiveState carries the caller-supplied hooks Handle uses to report a source
// going on/off air and its display name; it stores no state itself
// (broadcast.State owns the authoritative LiveActive flag).
type LiveState struct {
	setActive func(bool)
	setName   func(string)
}

// NewLiveState binds the callbacks liveingest uses to flip broadcast state
// without importing the broadcast package directly (keeps this package
// testable without a full Switch).
func NewLiveState(setActive func(bool), setName func(string)) *LiveState {
	return &LiveState{setActive: setActive, setName: setName}
}

var (
	// ErrAlreadyActive names the case of a second source connecting while
	// one is already streaming. Handle does not check for that case and
	// never returns this error; a second authenticated source is accepted.
	ErrAlreadyActive = errors.New("liveingest: a source is already connected")
	errUnauthorized  = errors.New("liveingest: unauthorized")
)

// Handle drives one SOURCE/PUT connection end to end. firstLine is the
// request line already consumed by the dispatcher while sniffing the
// protocol; headerReader must yield the remaining header bytes (and nothing
// else has been read from conn yet). live receives ≤4KiB body chunks via a
// non-blocking send — a slow consumer causes chunks to be dropped, never the
// ingest connection to stall.
func Handle(conn net.Conn, firstLine string, headerReader *bufio.Reader, creds Credentials, live chan<- []byte, state *LiveState, log zerolog.Logger) error {
	log = log.With().Str("component", "liveingest").Str("remote", conn.RemoteAddr().String()).Logger()

	connState := StateAuthenticating
	_ = conn.SetReadDeadline(time.Now().Add(headerTimeout))
	req, body, err := parseRequest(firstLine, headerReader)
	if err != nil {
		return fmt.Errorf("liveingest: parse request: %w", err)
	}

	user, pass, ok := req.BasicAuth()
	if !ok || !creds.Matches(user, pass) {
		log.Warn().Str("state", string(connState)).Msg("authentication failed")
		_, _ = conn.Write([]byte("HTTP/1.0 401 Unauthorized\r\n\r\n"))
		return errUnauthorized
	}

	name := req.Header.Get("Ice-Name")
	if name == "" {
		name = "Live Broadcast"
	}

	_ = conn.SetReadDeadline(time.Time{})

	if _, err := conn.Write([]byte("HTTP/1.0 200 OK\r\nIcecast-Auth: 1\r\n\r\n")); err != nil {
		return fmt.Errorf("liveingest: write auth response: %w", err)
	}

	connState = StateStreaming
	state.setName(name)
	state.setActive(true)
	log.Info().Str("name", name).Msg("live source connected")

	defer func() {
		connState = StateClosing
		state.setActive(false)
		log.Info().Msg("live source disconnected")
	}()

	buf := make([]byte, bodyChunkSize)
	for {
		n, err := body.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case live <- chunk:
			default:
				log.Debug().Msg("live channel full, dropping chunk")
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("liveingest: read body: %w", err)
		}
	}
}

// parseRequest reassembles the full request (firstLine was already consumed
// by the protocol sniffer) into one bufio.Reader, parses the headers via
// http.ReadRequest, and hands back that same reader so the caller can keep
// reading the body from it afterward — a second, independent bufio.Reader
// would buffer body bytes ahead into itself and lose them.
//
// SOURCE isn't a method net/http's request-line parser accepts, so it's
// rewritten to PUT; only the headers are inspected here, not the verb.
func parseRequest(firstLine string, r *bufio.Reader) (*http.Request, *bufio.Reader, error) {
	line := firstLine
	if strings.HasPrefix(line, "SOURCE ") {
		line = "PUT " + strings.TrimPrefix(line, "SOURCE ")
	}
	combined := bufio.NewReaderSize(io.MultiReader(strings.NewReader(line+"\r\n"), r), maxHeaderSize)
	req, err := http.ReadRequest(combined)
	if err != nil {
		return nil, nil, err
	}
	return req, combined, nil
}
