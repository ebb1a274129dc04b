//go:build linux

package dispatch

import (
	"net"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"
)

// tuneKeepAlive enables TCP keepalive with shorter-than-default probe
// intervals, so a listener whose network vanished (phone locked, wifi drop)
// is detected and its sink freed well before the OS default (~2 hours)
// would notice.
func tuneKeepAlive(conn *net.TCPConn, log zerolog.Logger) {
	if err := conn.SetKeepAlive(true); err != nil {
		log.Debug().Err(err).Msg("failed to enable keepalive")
		return
	}
	if err := conn.SetKeepAlivePeriod(30 * time.Second); err != nil {
		log.Debug().Err(err).Msg("failed to set keepalive period")
		return
	}

	rawConn, err := conn.SyscallConn()
	if err != nil {
		return
	}
	_ = rawConn.Control(func(fd uintptr) {
		_ = unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_KEEPCNT, 3)
		_ = unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_KEEPINTVL, 10)
	})
}
