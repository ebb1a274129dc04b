package analytics

import "time"

// ListenerSession describes one attached listener at snapshot time, the
// fields the geo resolver and registry populate on a listener.
type ListenerSession struct {
	ID          string    `json:"id"`
	ConnectedAt time.Time `json:"connected_at"`
	IPHash      string    `json:"ip_hash"`
	UserAgent   string    `json:"user_agent"`
	ClientType  string    `json:"client_type"`
	Country     string    `json:"country"`
	Region      string    `json:"region"`
	City        string    `json:"city"`
	Lat         float64   `json:"lat"`
	Lon         float64   `json:"lon"`
	BytesSent   int64     `json:"bytes_sent"`
}

// PlayEvent marks the start of a catalog item or the live source playing.
type PlayEvent struct {
	Kind      string    `json:"kind"` // song, jingle, ad, live
	Display   string    `json:"display"`
	StartedAt time.Time `json:"started_at"`
}

// Batch is one reporting cycle's worth of data posted upstream.
type Batch struct {
	RadioName   string            `json:"radio_name"`
	GeneratedAt time.Time         `json:"generated_at"`
	ActiveCount int               `json:"active_count"`
	Sessions    []ListenerSession `json:"sessions"`
	PlayEvents  []PlayEvent       `json:"play_events"`
	Buckets     []ListenerBucket  `json:"buckets,omitempty"`
}
