//go:build !linux

package dispatch

import (
	"net"
	"time"

	"github.com/rs/zerolog"
)

// tuneKeepAlive enables basic keepalive on platforms without the Linux
// TCP_KEEPCNT/TCP_KEEPINTVL socket options.
func tuneKeepAlive(conn *net.TCPConn, log zerolog.Logger) {
	if err := conn.SetKeepAlive(true); err != nil {
		log.Debug().Err(err).Msg("failed to enable keepalive")
		return
	}
	_ = conn.SetKeepAlivePeriod(30 * time.Second)
}
