package listeners

import (
	"net"
	"sync"
	"time"
)

// eventSinkCapacity bounds the registry's event feed; a slow or absent
// consumer never blocks Attach/Detach/Enrich.
const eventSinkCapacity = 256

// Registry tracks every attached listener sink and fans chunks out to them,
// implementing spec.md's Listener Registry (C7).
type Registry struct {
	mu        sync.RWMutex
	listeners map[string]*Listener

	droppedFrames int64
	events        chan Event
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		listeners: make(map[string]*Listener),
		events:    make(chan Event, eventSinkCapacity),
	}
}

// Events returns the registry's connect/disconnect/enrich/heartbeat feed.
// Consumers (e.g. the station's event logger) should drain it promptly; a full buffer drops
// the oldest-pending event rather than blocking the caller.
func (r *Registry) Events() <-chan Event {
	return r.events
}

func (r *Registry) publish(t EventType, l *Listener) {
	evt := Event{Type: t, Timestamp: time.Now().UTC(), Listener: l}
	select {
	case r.events <- evt:
	default:
		select {
		case <-r.events:
		default:
		}
		select {
		case r.events <- evt:
		default:
		}
	}
}

// Attach creates and registers a new listener sink.
func (r *Registry) Attach(remoteIP net.IP, userAgent, clientType string) *Listener {
	l := newListener(remoteIP, userAgent, clientType)
	l.attachNotify(func(t EventType) { r.publish(t, l) })
	r.mu.Lock()
	r.listeners[l.ID] = l
	r.mu.Unlock()
	l.emit(EventConnected)
	return l
}

// Detach removes a listener. Safe to call more than once.
func (r *Registry) Detach(l *Listener) {
	l.markDisconnectedOnce()
	r.mu.Lock()
	delete(r.listeners, l.ID)
	r.mu.Unlock()
	l.emit(EventDisconnected)
}

func (l *Listener) markDisconnectedOnce() {
	if l.DisconnectedAt.Load() == nil {
		l.MarkDisconnected()
	}
}

// Count returns the number of currently attached listeners.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.listeners)
}

// Snapshot returns all currently attached listeners.
func (r *Registry) Snapshot() []*Listener {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Listener, 0, len(r.listeners))
	for _, l := range r.listeners {
		out = append(out, l)
	}
	return out
}

// Distribute performs a non-blocking enqueue of chunk to every attached
// listener. A listener whose sink is full simply drops the chunk for that
// listener — the registry never blocks on a slow listener, and per
// spec.md §4.7/S5 it is never evicted here; only the HTTP stream writer
// detaches a listener, and only on an actual write failure.
func (r *Registry) Distribute(chunk []byte) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, l := range r.listeners {
		select {
		case l.ch <- chunk:
			l.droppedInARow = 0
		default:
			l.droppedInARow++
			r.droppedFrames++
		}
	}
}
