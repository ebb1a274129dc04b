package analytics

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/airwave/station/internal/listeners"
)

// maxRecentPlays bounds how many play events accumulate between reporting
// cycles, in case the upstream collector is unreachable for a while.
const maxRecentPlays = 64

// Reporter periodically snapshots the listener registry and recently played
// items and posts them to an optional external collector.
type Reporter struct {
	client    *Client
	registry  *listeners.Registry
	radioName string
	log       zerolog.Logger

	mu      sync.Mutex
	plays   []PlayEvent
	buckets *BucketTracker
}

// NewReporter builds a Reporter. client may point at an empty URL, in which
// case reporting cycles are a no-op (Send degrades gracefully).
func NewReporter(client *Client, registry *listeners.Registry, radioName string, log zerolog.Logger) *Reporter {
	return &Reporter{
		client:    client,
		registry:  registry,
		radioName: radioName,
		log:       log.With().Str("component", "analytics").Logger(),
		buckets:   NewBucketTracker(),
	}
}

// RecordPlay appends a play event to the next reporting batch.
func (r *Reporter) RecordPlay(kind, display string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plays = append(r.plays, PlayEvent{Kind: kind, Display: display, StartedAt: time.Now().UTC()})
	if len(r.plays) > maxRecentPlays {
		r.plays = r.plays[len(r.plays)-maxRecentPlays:]
	}
}

// Run sends a batch every interval until ctx is cancelled.
func (r *Reporter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			batch := r.drainSnapshot()
			if err := r.client.Send(ctx, batch); err != nil {
				r.log.Debug().Err(err).Msg("analytics send failed")
			}
		}
	}
}

func (r *Reporter) drainSnapshot() Batch {
	listenerList := r.registry.Snapshot()
	sessions := make([]ListenerSession, 0, len(listenerList))
	countries := map[string]int{}
	for _, l := range listenerList {
		sessions = append(sessions, ListenerSession{
			ID:          l.ID,
			ConnectedAt: l.ConnectedAt,
			IPHash:      l.IPHash,
			UserAgent:   l.UserAgent,
			ClientType:  l.ClientType,
			Country:     l.Country,
			Region:      l.Region,
			City:        l.City,
			Lat:         l.Lat,
			Lon:         l.Lon,
			BytesSent:   l.ByteSent.Load(),
		})
		if l.Country != "" {
			countries[l.Country]++
		}
	}

	now := time.Now().UTC()
	r.buckets.Sample(now, len(sessions), countries)
	ready := r.buckets.DrainReady(now)

	r.mu.Lock()
	plays := r.plays
	r.plays = nil
	r.mu.Unlock()

	return Batch{
		RadioName:   r.radioName,
		GeneratedAt: now,
		ActiveCount: len(sessions),
		Sessions:    sessions,
		PlayEvents:  plays,
		Buckets:     ready,
	}
}
