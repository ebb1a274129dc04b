// Package broadcast implements the master switch (spec.md C6): it selects
// between the auto-DJ and live channels and fans chunks out to every
// attached listener sink.
package broadcast

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/airwave/station/internal/listeners"
	"github.com/airwave/station/internal/transcode"
)

const (
	liveTimeout    = 500 * time.Millisecond
	autoDJTimeout  = time.Second
	liveSilenceLog = 5 * time.Second
)

// State is the shared BroadcastState from spec.md §3: is_playing / live /
// display / cover guarded by one coarse lock, as spec.md §5 requires.
type State struct {
	mu sync.RWMutex

	isPlaying  bool
	liveActive bool

	nowPlayingDisplay string
	currentCoverURL   string
	radioName         string

	liveChan <-chan []byte
}

// NewState returns a State with playback enabled and defaults populated.
func NewState(radioName string) *State {
	return &State{
		isPlaying:         true,
		nowPlayingDisplay: "Starting up...",
		currentCoverURL:   "/static/cover/default.png",
		radioName:         radioName,
	}
}

// SetLiveChan wires the live ingest channel so SetLiveActive can drain any
// stale backlog before a new live session goes on air.
func (s *State) SetLiveChan(ch <-chan []byte) {
	s.mu.Lock()
	s.liveChan = ch
	s.mu.Unlock()
}

func (s *State) IsPlaying() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isPlaying
}

func (s *State) Pause() {
	s.mu.Lock()
	s.isPlaying = false
	s.mu.Unlock()
}

func (s *State) Resume() {
	s.mu.Lock()
	s.isPlaying = true
	s.mu.Unlock()
}

func (s *State) LiveActive() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.liveActive
}

// SetLiveActive flips the live flag. Going live (false -> true) first drains
// any stale backlog on the live channel — a previous/aborted session's
// leftover chunks must never play out under a new one — mirroring the
// original's go_live() emptying live_queue before setting the flag.
func (s *State) SetLiveActive(active bool) {
	s.mu.Lock()
	if active && !s.liveActive {
		drainLiveChan(s.liveChan)
	}
	s.liveActive = active
	if active {
		s.currentCoverURL = "/static/cover/default.png"
	}
	s.mu.Unlock()
}

func drainLiveChan(ch <-chan []byte) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}

func (s *State) NowPlaying() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nowPlayingDisplay
}

func (s *State) SetNowPlaying(display string) {
	s.mu.Lock()
	s.nowPlayingDisplay = display
	s.mu.Unlock()
}

func (s *State) CoverURL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentCoverURL
}

func (s *State) SetCoverURL(url string) {
	s.mu.Lock()
	s.currentCoverURL = url
	s.mu.Unlock()
}

func (s *State) RadioName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.radioName
}

func (s *State) SetRadioName(name string) {
	s.mu.Lock()
	s.radioName = name
	s.mu.Unlock()
}

// Switch is the single master-broadcast loop: exactly one source (auto-DJ
// or live) feeds the Registry at any instant.
type Switch struct {
	state    *State
	registry *listeners.Registry
	autoDJ   <-chan []byte
	live     <-chan []byte

	log zerolog.Logger

	running atomic.Bool
}

// New creates a Switch over the given auto-DJ and live channels.
func New(state *State, registry *listeners.Registry, autoDJChan, liveChan <-chan []byte, log zerolog.Logger) *Switch {
	return &Switch{
		state:    state,
		registry: registry,
		autoDJ:   autoDJChan,
		live:     liveChan,
		log:      log.With().Str("component", "broadcast").Logger(),
	}
}

// Run drives the select loop until stop is closed.
func (sw *Switch) Run(stop <-chan struct{}) {
	sw.running.Store(true)
	defer sw.running.Store(false)

	silenceStreak := 0
	wasLive := false

	for {
		select {
		case <-stop:
			return
		default:
		}

		var chunk []byte
		if sw.state.LiveActive() {
			if !wasLive {
				// auto-DJ chunks queued before the switch never play out
				drainLiveChan(sw.autoDJ)
				wasLive = true
			}
			select {
			case chunk = <-sw.live:
				silenceStreak = 0
			case <-time.After(liveTimeout):
				chunk = transcode.SilentFrame()
				silenceStreak++
				// log once per ~5s silence window, not per iteration
				if silenceStreak == int(liveSilenceLog/liveTimeout) {
					sw.log.Warn().Msg("live source connected but sending no data")
				}
			case <-stop:
				return
			}
		} else {
			wasLive = false
			silenceStreak = 0
			select {
			case chunk = <-sw.autoDJ:
				if sw.state.LiveActive() {
					continue
				}
			case <-time.After(autoDJTimeout):
				chunk = transcode.SilentFrame()
			case <-stop:
				return
			}
		}

		sw.registry.Distribute(chunk)
	}
}
