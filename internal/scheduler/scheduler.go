// Package scheduler decides the next item the auto-DJ should play, enforcing
// jingle/ad interleaving intervals under shuffle or sequential song order.
package scheduler

import (
	"math/rand/v2"
	"sync"

	"github.com/airwave/station/internal/catalog"
)

// Mode selects how the song queue is rebuilt once drained.
type Mode string

const (
	ModeShuffle    Mode = "shuffle"
	ModeSequential Mode = "sequential"
)

// Scheduler holds the mutable interleaving state described in spec.md's
// SchedulerState: mode, intervals, counters, cursors, and the transient
// play queue of upcoming songs.
type Scheduler struct {
	mu sync.Mutex

	catalog *catalog.Catalog

	mode           Mode
	jingleInterval int
	adInterval     int

	songsSinceJingle int
	songsSinceAd     int
	lastJingleIdx    int
	lastAdIdx        int

	playQueue []catalog.MediaItem
}

// New creates a Scheduler bound to a Catalog, starting in shuffle mode with
// both interleaving intervals disabled (0 == disabled, per spec.md §3).
func New(c *catalog.Catalog) *Scheduler {
	return &Scheduler{
		catalog:       c,
		mode:          ModeShuffle,
		lastJingleIdx: -1,
		lastAdIdx:     -1,
	}
}

// SetMode switches between shuffle and sequential song ordering.
func (s *Scheduler) SetMode(m Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m == ModeShuffle || m == ModeSequential {
		s.mode = m
	}
}

// SetIntervals updates the jingle/ad interleaving intervals. A value of 0
// disables that kind entirely.
func (s *Scheduler) SetIntervals(jingle, ad int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if jingle >= 0 {
		s.jingleInterval = jingle
	}
	if ad >= 0 {
		s.adInterval = ad
	}
}

// Next decides the next item to play, mutating counters/cursors. Returns
// ok=false when there is nothing playable at all (empty catalog).
func (s *Scheduler) Next() (catalog.MediaItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	jingles := s.catalog.Snapshot(catalog.KindJingle)
	if s.jingleInterval > 0 && s.songsSinceJingle >= s.jingleInterval && len(jingles) > 0 {
		s.lastJingleIdx = (s.lastJingleIdx + 1) % len(jingles)
		s.songsSinceJingle = 0
		return jingles[s.lastJingleIdx], true
	}

	ads := s.catalog.Snapshot(catalog.KindAd)
	if s.adInterval > 0 && s.songsSinceAd >= s.adInterval && len(ads) > 0 {
		s.lastAdIdx = (s.lastAdIdx + 1) % len(ads)
		s.songsSinceAd = 0
		return ads[s.lastAdIdx], true
	}

	if len(s.playQueue) == 0 {
		s.rebuildQueueLocked()
	}
	if len(s.playQueue) == 0 {
		return catalog.MediaItem{}, false
	}

	item := s.playQueue[0]
	s.playQueue = s.playQueue[1:]
	s.songsSinceJingle++
	s.songsSinceAd++
	return item, true
}

// Peek computes the same decision Next() would make, without mutating any
// state. Used for "next up" reporting.
func (s *Scheduler) Peek() (catalog.MediaItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	nextSinceJingle := s.songsSinceJingle + 1
	nextSinceAd := s.songsSinceAd + 1

	jingles := s.catalog.Snapshot(catalog.KindJingle)
	if s.jingleInterval > 0 && nextSinceJingle > s.jingleInterval && len(jingles) > 0 {
		idx := (s.lastJingleIdx + 1) % len(jingles)
		return jingles[idx], true
	}

	ads := s.catalog.Snapshot(catalog.KindAd)
	if s.adInterval > 0 && nextSinceAd > s.adInterval && len(ads) > 0 {
		idx := (s.lastAdIdx + 1) % len(ads)
		return ads[idx], true
	}

	if len(s.playQueue) > 0 {
		return s.playQueue[0], true
	}
	songs := s.catalog.Snapshot(catalog.KindSong)
	if len(songs) > 0 {
		if s.mode == ModeSequential {
			return songs[0], true
		}
		// shuffle: no deterministic peek, report the first catalog entry
		// as a placeholder "some song" indicator.
		return songs[0], true
	}
	return catalog.MediaItem{}, false
}

// rebuildQueueLocked refills playQueue from the song catalog. Must be
// called with mu held.
func (s *Scheduler) rebuildQueueLocked() {
	songs := s.catalog.Snapshot(catalog.KindSong)
	if len(songs) == 0 {
		return
	}
	queue := make([]catalog.MediaItem, len(songs))
	copy(queue, songs)
	if s.mode == ModeShuffle {
		rand.Shuffle(len(queue), func(i, j int) {
			queue[i], queue[j] = queue[j], queue[i]
		})
	}
	s.playQueue = queue
}
