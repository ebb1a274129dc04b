package config

import (
	"flag"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every env/flag-driven setting the station needs at startup.
type Config struct {
	PublicPort   int    // public TCP port: HTTP + Icecast-style SOURCE/PUT ingest
	internalPort int    // loopback port the HTTP surface actually listens on, proxied to by the dispatcher
	DataDir      string // base dir holding music/, jingles/, ads/, config/

	FFmpegPath  string
	BitrateKbps int

	RadioName string

	GeoDBPath string
	GeoSalt   string

	PeekTimeout    time.Duration
	HeaderTimeout  time.Duration
	LiveChanSize   int
	AutoDJChanSize int
	ListenerBuf    int
}

func (c *Config) InternalAddr() string {
	return "127.0.0.1:" + strconv.Itoa(c.internalPort)
}

// Load builds a Config from environment variables (loaded from .env if
// present) then lets --port override the public port, matching spec.md's
// CLI surface.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		PublicPort:     envInt("PORT", 8000),
		internalPort:   envInt("INTERNAL_PORT", 8900),
		DataDir:        envString("DATA_DIR", "./data"),
		FFmpegPath:     envString("FFMPEG_PATH", "ffmpeg"),
		BitrateKbps:    envInt("BITRATE_KBPS", 128),
		RadioName:      envString("RADIO_NAME", "Radio Studio"),
		GeoDBPath:      envString("GEOIP_DB_PATH", ""),
		GeoSalt:        envString("GEOIP_SALT", "change-me"),
		PeekTimeout:    5 * time.Second,
		HeaderTimeout:  10 * time.Second,
		LiveChanSize:   128,
		AutoDJChanSize: 128,
		ListenerBuf:    512,
	}

	port := flag.Int("port", cfg.PublicPort, "public port to listen on")
	if !flag.Parsed() {
		flag.Parse()
	}
	cfg.PublicPort = *port

	return cfg
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
