// Package autodj drives the scheduler and transcoder to keep the auto-DJ
// channel fed, reacting to pause/live preemption (spec.md C4).
package autodj

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/airwave/station/internal/broadcast"
	"github.com/airwave/station/internal/catalog"
	"github.com/airwave/station/internal/scheduler"
	"github.com/airwave/station/internal/transcode"
)

const (
	// noItemBackoff is how long to wait before retrying Next() when the
	// scheduler has nothing to play (spec.md §4.4).
	noItemBackoff = 5 * time.Second

	// silencePace mimics the real-time cadence a decoded frame would have
	// paced by the transcoder, so silence during pause/live doesn't flood
	// the channel.
	silencePace = 26 * time.Millisecond // one 1152-sample MP3 frame at 44.1kHz
)

// Producer owns the auto-DJ channel and the long-lived loop that fills it.
type Producer struct {
	catalog   *catalog.Catalog
	scheduler *scheduler.Scheduler
	adapter   transcode.Starter
	state     *broadcast.State

	out chan []byte
	log zerolog.Logger

	onPlay func(kind, display string)
}

// SetPlayHook registers a callback invoked whenever playItem starts a new
// catalog item, letting callers (e.g. an analytics reporter) observe the
// play-out stream without the producer depending on them directly.
func (p *Producer) SetPlayHook(fn func(kind, display string)) {
	p.onPlay = fn
}

// New creates a Producer. chanSize is the auto-DJ channel's bounded
// capacity (spec.md §5: ~128).
func New(c *catalog.Catalog, s *scheduler.Scheduler, adapter transcode.Starter, state *broadcast.State, chanSize int, log zerolog.Logger) *Producer {
	return &Producer{
		catalog:   c,
		scheduler: s,
		adapter:   adapter,
		state:     state,
		out:       make(chan []byte, chanSize),
		log:       log.With().Str("component", "autodj").Logger(),
	}
}

// Chan is the auto-DJ channel the broadcaster consumes from.
func (p *Producer) Chan() <-chan []byte { return p.out }

// Run drives the producer loop until ctx is cancelled.
func (p *Producer) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if !p.state.IsPlaying() || p.state.LiveActive() {
			p.publishSilence(ctx)
			continue
		}

		item, ok := p.scheduler.Next()
		if !ok {
			p.publishSilenceFor(ctx, noItemBackoff)
			continue
		}

		p.playItem(ctx, item)
	}
}

func (p *Producer) publishSilence(ctx context.Context) {
	p.publishSilenceFor(ctx, silencePace)
}

func (p *Producer) publishSilenceFor(ctx context.Context, d time.Duration) {
	select {
	case p.out <- transcode.SilentFrame():
	case <-ctx.Done():
		return
	}
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}

func (p *Producer) playItem(ctx context.Context, item catalog.MediaItem) {
	if !p.catalog.Exists(item) {
		p.log.Warn().Str("file", item.Filename).Msg("media file missing, triggering rescan")
		_ = p.catalog.Rescan(item.Kind)
		return
	}

	display := item.DisplayName()
	if item.Kind != catalog.KindSong {
		display = "(" + string(item.Kind) + ") " + display
	}
	p.state.SetNowPlaying(display)
	if p.onPlay != nil {
		p.onPlay(string(item.Kind), display)
	}

	path := p.catalog.Path(item)
	session, err := p.adapter.Start(ctx, path)
	if err != nil {
		p.log.Warn().Err(err).Str("file", item.Filename).Msg("failed to start transcoder")
		return
	}

	livePoll := time.NewTicker(50 * time.Millisecond)
	defer livePoll.Stop()

	for {
		select {
		case chunk, more := <-session.Chunks():
			if !more {
				if err := <-session.Done(); err != nil {
					p.log.Warn().Err(err).Str("file", item.Filename).Msg("transcoder exited abnormally")
				}
				return
			}
			select {
			case p.out <- chunk:
			case <-ctx.Done():
				session.Cancel()
				return
			}
		case <-livePoll.C:
			if p.state.LiveActive() {
				session.Cancel()
				<-session.Done()
				return
			}
		case <-ctx.Done():
			session.Cancel()
			return
		}
	}
}
