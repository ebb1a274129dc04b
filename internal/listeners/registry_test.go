package listeners

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// S5 — Slow listener.
func TestRegistry_SlowListenerDoesNotBlockOthers(t *testing.T) {
	r := NewRegistry()
	slow := r.Attach(net.ParseIP("10.0.0.1"), "ua", "browser")

	// Fill the slow listener's sink completely without going through a
	// fast listener that would be filled identically.
	for i := 0; i < sinkCapacity; i++ {
		slow.ch <- []byte{byte(i)}
	}
	require.Len(t, slow.ch, sinkCapacity)

	fast := r.Attach(net.ParseIP("10.0.0.2"), "ua", "browser")

	// Distribute should not block even though slow's sink is full, and
	// fast (freshly attached, empty sink) must still receive the chunk.
	done := make(chan struct{})
	go func() {
		r.Distribute([]byte("more"))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Distribute blocked on a full listener sink")
	}

	require.Equal(t, 1, len(fast.ch))
	require.Len(t, slow.ch, sinkCapacity) // slow's chunk was dropped, not blocked

	require.True(t, slow.IsConnected())
	r.Detach(slow)
	require.False(t, slow.IsConnected())
}

func TestRegistry_AttachDetach(t *testing.T) {
	r := NewRegistry()
	require.Equal(t, 0, r.Count())
	l := r.Attach(nil, "", "")
	require.Equal(t, 1, r.Count())
	r.Detach(l)
	require.Equal(t, 0, r.Count())
}

func TestRegistry_EmitsConnectAndDisconnectEvents(t *testing.T) {
	r := NewRegistry()
	l := r.Attach(net.ParseIP("10.0.0.3"), "ua", "browser")

	evt := <-r.Events()
	require.Equal(t, EventConnected, evt.Type)
	require.Equal(t, l.ID, evt.Listener.ID)

	r.Detach(l)
	evt = <-r.Events()
	require.Equal(t, EventDisconnected, evt.Type)
	require.Equal(t, l.ID, evt.Listener.ID)
}

func TestListener_HeartbeatEmitsEvent(t *testing.T) {
	r := NewRegistry()
	l := r.Attach(nil, "", "")
	<-r.Events() // connected

	l.Heartbeat()
	evt := <-r.Events()
	require.Equal(t, EventHeartbeat, evt.Type)
	require.NotNil(t, l.LastHeartbeat.Load())
}
