package listeners

import (
	"net"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// sinkCapacity is the fixed per-listener buffer size from spec.md §3.
const sinkCapacity = 512

// Listener is one attached audio sink plus its connection metadata.
type Listener struct {
	ID string
	ch chan []byte

	ConnectedAt    time.Time
	DisconnectedAt atomic.Pointer[time.Time]

	RemoteIP   net.IP
	IPHash     string
	Country    string
	Region     string
	City       string
	Lat, Lon   float64
	UserAgent  string
	ClientType string

	ByteSent      atomic.Int64
	LastHeartbeat atomic.Pointer[time.Time]
	Enriched      atomic.Bool

	droppedInARow int
	notify        func(EventType)
}

func newListener(remoteIP net.IP, userAgent, clientType string) *Listener {
	return &Listener{
		ID:          uuid.NewString(),
		ch:          make(chan []byte, sinkCapacity),
		ConnectedAt: time.Now().UTC(),
		RemoteIP:    remoteIP,
		UserAgent:   userAgent,
		ClientType:  clientType,
	}
}

// attachNotify wires the Registry's event sink into this listener; called
// once, from Registry.Attach.
func (l *Listener) attachNotify(fn func(EventType)) {
	l.notify = fn
}

func (l *Listener) emit(t EventType) {
	if l.notify != nil {
		l.notify(t)
	}
}

// MarkEnriched records that geo enrichment has completed and emits
// EventEnriched.
func (l *Listener) MarkEnriched() {
	l.Enriched.Store(true)
	l.emit(EventEnriched)
}

// Heartbeat records a liveness ping (e.g. from a periodic client poll) and
// emits EventHeartbeat.
func (l *Listener) Heartbeat() {
	now := time.Now().UTC()
	l.LastHeartbeat.Store(&now)
	l.emit(EventHeartbeat)
}

// Chunks is the channel a stream writer ranges over to pull audio for this
// listener.
func (l *Listener) Chunks() <-chan []byte { return l.ch }

// MarkDisconnected records the disconnect time; idempotent in effect since
// only the first recorded time is observed by readers.
func (l *Listener) MarkDisconnected() {
	now := time.Now().UTC()
	l.DisconnectedAt.CompareAndSwap(nil, &now)
}

// IsConnected reports whether this listener has not yet disconnected.
func (l *Listener) IsConnected() bool {
	return l.DisconnectedAt.Load() == nil
}
