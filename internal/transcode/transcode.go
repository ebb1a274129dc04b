// Package transcode launches an external MP3 encoder on a file path and
// exposes it as a paced chunk stream, draining its diagnostic output so the
// subprocess never deadlocks on a full stderr pipe.
package transcode

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"syscall"
)

const (
	// ChunkSize is the maximum size of a chunk handed off downstream.
	ChunkSize = 4096

	// SampleRate / Channels describe the constant-parameter MP3 output
	// spec.md §4.1 requires; the bitrate is set per Adapter.
	SampleRate = 44100
	Channels   = 2
)

// silentFrameHeader is a fixed 4-byte MP3 frame header pattern used to pad
// out a silent frame (spec.md §6).
var silentFrameHeader = []byte{0xFF, 0xFB, 0x90, 0x44}

// SilentFrame returns a canonical ChunkSize silent MP3 frame: a valid frame
// header followed by zero padding, keeping listener decoders alive during
// gaps.
func SilentFrame() []byte {
	frame := make([]byte, ChunkSize)
	copy(frame, silentFrameHeader)
	return frame
}

// Starter launches a transcode session for a file path. Adapter is the real
// ffmpeg-backed implementation; callers that need to fake a transcoder in
// tests can substitute their own.
type Starter interface {
	Start(ctx context.Context, path string) (*Session, error)
}

// Adapter spawns ffmpeg processes on demand.
type Adapter struct {
	ffmpegPath  string
	bitrateKbps int
}

var _ Starter = (*Adapter)(nil)

// New creates an Adapter that invokes ffmpegPath with real-time pacing
// (-re) to produce bitrateKbps CBR MP3.
func New(ffmpegPath string, bitrateKbps int) *Adapter {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if bitrateKbps <= 0 {
		bitrateKbps = 128
	}
	return &Adapter{ffmpegPath: ffmpegPath, bitrateKbps: bitrateKbps}
}

// Session is a running transcode of one file.
type Session struct {
	chunks chan []byte
	done   chan error
	cancel func()
	once   cancelOnce
}

type cancelOnce struct {
	done bool
}

// NewSession wraps an already-running chunk/done/cancel triple as a
// Session. Exposed so alternate Starter implementations (and tests) can
// produce a Session without spawning a subprocess.
func NewSession(chunks chan []byte, done chan error, cancel func()) *Session {
	return &Session{chunks: chunks, done: done, cancel: cancel}
}

// Chunks yields ≤ChunkSize byte slices as they become available.
func (s *Session) Chunks() <-chan []byte { return s.chunks }

// Done resolves with the subprocess's exit status (nil on clean termination,
// including cooperative cancellation).
func (s *Session) Done() <-chan error { return s.done }

// Cancel requests termination of the underlying subprocess. Idempotent.
func (s *Session) Cancel() {
	if s.once.done {
		return
	}
	s.once.done = true
	s.cancel()
}

// Start launches ffmpeg on path and begins streaming decoded chunks.
func (a *Adapter) Start(ctx context.Context, path string) (*Session, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	cctx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(cctx, a.ffmpegPath,
		"-re",
		"-i", path,
		"-vn",
		"-ar", itoa(SampleRate),
		"-ac", itoa(Channels),
		"-b:a", itoa(a.bitrateKbps)+"k",
		"-f", "mp3",
		"pipe:1",
	)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		cancel()
		return nil, err
	}

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, err
	}

	s := &Session{
		chunks: make(chan []byte, 4),
		done:   make(chan error, 1),
		cancel: cancel,
	}

	// MUST always drain stderr, even discarding it, or ffmpeg blocks on a
	// full pipe mid-track (spec.md §9).
	go drain(stderr)

	go func() {
		buf := make([]byte, ChunkSize)
		for {
			n, rerr := stdout.Read(buf)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				select {
				case s.chunks <- chunk:
				case <-cctx.Done():
					close(s.chunks)
					s.done <- waitNormalized(cmd)
					return
				}
			}
			if rerr != nil {
				close(s.chunks)
				s.done <- waitNormalized(cmd)
				return
			}
		}
	}()

	return s, nil
}

func drain(r io.Reader) {
	_, _ = io.Copy(io.Discard, r)
}

// waitNormalized waits for cmd to exit and maps termination signals
// (SIGTERM/SIGKILL, used by Cancel) to a nil error, matching spec.md §4.1's
// "exit codes corresponding to normal termination signals are non-errors."
func waitNormalized(cmd *exec.Cmd) error {
	err := cmd.Wait()
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if exitErr.ProcessState != nil {
			code := exitErr.ProcessState.ExitCode()
			if code == 0 {
				return nil
			}
		}
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			if sig := ws.Signal(); sig == syscall.SIGTERM || sig == syscall.SIGKILL {
				return nil
			}
		}
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	pos := len(buf)
	for n > 0 {
		pos--
		buf[pos] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		pos--
		buf[pos] = '-'
	}
	return string(buf[pos:])
}
