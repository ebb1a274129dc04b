package analytics

import (
	"sync"
	"time"
)

// BucketInterval names one of the three rolling aggregation windows a
// bucket tracker keeps.
type BucketInterval string

const (
	IntervalMinute  BucketInterval = "MINUTE"
	IntervalFiveMin BucketInterval = "FIVE_MIN"
	IntervalHour    BucketInterval = "HOUR"
)

var bucketDurations = map[BucketInterval]time.Duration{
	IntervalMinute:  time.Minute,
	IntervalFiveMin: 5 * time.Minute,
	IntervalHour:    time.Hour,
}

// ListenerBucket is one completed aggregation window: the peak concurrent
// listener count observed, total listener-minutes accrued, and a country
// breakdown.
type ListenerBucket struct {
	Interval        BucketInterval `json:"interval"`
	BucketStart     time.Time      `json:"bucket_start"`
	ActivePeak      int            `json:"active_peak"`
	ListenerMinutes int            `json:"listener_minutes"`
	Countries       map[string]int `json:"countries"`
}

// BucketTracker accumulates listener-count samples into rolling
// minute/five-minute/hour buckets and hands back completed ones for
// reporting.
type BucketTracker struct {
	mu   sync.Mutex
	data map[BucketInterval]map[time.Time]*ListenerBucket
	last time.Time
}

// NewBucketTracker creates an empty tracker.
func NewBucketTracker() *BucketTracker {
	return &BucketTracker{
		data: map[BucketInterval]map[time.Time]*ListenerBucket{
			IntervalMinute:  {},
			IntervalFiveMin: {},
			IntervalHour:    {},
		},
	}
}

// Sample records one observation of the active listener count and country
// breakdown, and accrues listener-minutes for the time elapsed since the
// previous sample.
func (b *BucketTracker) Sample(now time.Time, active int, countries map[string]int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for interval, dur := range bucketDurations {
		start := now.Truncate(dur).UTC()
		m := b.data[interval]
		bkt, ok := m[start]
		if !ok {
			bkt = &ListenerBucket{Interval: interval, BucketStart: start, Countries: map[string]int{}}
			m[start] = bkt
		}
		if active > bkt.ActivePeak {
			bkt.ActivePeak = active
		}
		for c, n := range countries {
			bkt.Countries[c] += n
		}
	}

	if b.last.IsZero() || active == 0 {
		b.last = now
		return
	}
	// Whole minutes are accrued; the remainder carries over to the next
	// sample so short sampling intervals still add up.
	minutes := int(now.Sub(b.last).Minutes())
	if minutes > 0 {
		for _, m := range b.data {
			for _, bkt := range m {
				bkt.ListenerMinutes += minutes * active
			}
		}
		b.last = b.last.Add(time.Duration(minutes) * time.Minute)
	}
}

// DrainReady removes and returns every bucket whose window has fully
// elapsed as of cutoff.
func (b *BucketTracker) DrainReady(cutoff time.Time) []ListenerBucket {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []ListenerBucket
	for interval, m := range b.data {
		dur := bucketDurations[interval]
		for start, bkt := range m {
			if !start.Add(dur).After(cutoff) {
				out = append(out, *bkt)
				delete(m, start)
			}
		}
	}
	return out
}
