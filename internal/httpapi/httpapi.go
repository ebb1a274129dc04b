// Package httpapi implements the loopback HTTP surface the dispatcher
// proxies ordinary (non-ingest) requests to: listener streaming, status
// JSON, and the admin control endpoints that mutate catalog/scheduler/
// broadcast state.
package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/airwave/station/internal/broadcast"
	"github.com/airwave/station/internal/catalog"
	"github.com/airwave/station/internal/geo"
	"github.com/airwave/station/internal/liveingest"
	"github.com/airwave/station/internal/listeners"
	"github.com/airwave/station/internal/netutil"
	"github.com/airwave/station/internal/scheduler"
	"github.com/airwave/station/internal/settings"
)

// Server wires the station's domain objects to net/http handlers.
type Server struct {
	state     *broadcast.State
	registry  *listeners.Registry
	catalog   *catalog.Catalog
	scheduler *scheduler.Scheduler
	settings  *settings.Store
	geo       *geo.Resolver

	log zerolog.Logger
}

// New builds a Server. geoResolver may be nil-valued (disabled) per config.
func New(state *broadcast.State, registry *listeners.Registry, c *catalog.Catalog, s *scheduler.Scheduler, st *settings.Store, geoResolver *geo.Resolver, log zerolog.Logger) *Server {
	return &Server{
		state:     state,
		registry:  registry,
		catalog:   c,
		scheduler: s,
		settings:  st,
		geo:       geoResolver,
		log:       log.With().Str("component", "httpapi").Logger(),
	}
}

// Routes returns the mux the loopback listener serves.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/stream", s.handleStream)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/now_playing", s.handleNowPlaying)

	mux.HandleFunc("/admin/metadata", s.requireAdmin(s.handleMetadata))
	mux.HandleFunc("/admin/listclients", s.requireAdmin(s.handleListClients))
	mux.HandleFunc("/admin/pause", s.requireAdmin(s.handlePause))
	mux.HandleFunc("/admin/resume", s.requireAdmin(s.handleResume))
	mux.HandleFunc("/admin/mode", s.requireAdmin(s.handleMode))
	mux.HandleFunc("/admin/intervals", s.requireAdmin(s.handleIntervals))
	mux.HandleFunc("/admin/credentials", s.requireAdmin(s.handleCredentials))
	mux.HandleFunc("/admin/catalog/order", s.requireAdmin(s.handleCatalogOrder))

	return mux
}

// requireAdmin wraps a handler with HTTP Basic Auth checked against the
// persisted admin credentials, constant-time compared.
func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		cur := s.settings.Get()
		creds := liveingest.Credentials{Username: cur.AdminUsername, Password: cur.AdminPassword}
		if !ok || !creds.Matches(user, pass) {
			w.Header().Set("WWW-Authenticate", `Basic realm="admin"`)
			netutil.ServerResponse(w, http.StatusUnauthorized, "unauthorized", nil)
			return
		}
		next(w, r)
	}
}

// handleStream attaches a new listener and streams chunks to it until the
// write fails or the client disconnects — the only place a listener is ever
// detached (spec.md §4.7/S5: the registry itself never evicts on drops).
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	ip := netutil.ExtractClientIp(r)
	clientType := netutil.ClassifyUserAgent(r.UserAgent())
	l := s.registry.Attach(ip, r.UserAgent(), clientType)
	if s.geo != nil {
		s.geo.Enrich(l)
	}
	s.log.Info().Str("listener", l.ID).Int("total", s.registry.Count()).Msg("listener attached")

	defer func() {
		s.registry.Detach(l)
		s.log.Info().Str("listener", l.ID).Msg("listener detached")
	}()

	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx := r.Context()
	for {
		select {
		case chunk, ok := <-l.Chunks():
			if !ok {
				return
			}
			if len(chunk) == 0 {
				continue
			}
			if _, err := w.Write(chunk); err != nil {
				return
			}
			l.ByteSent.Add(int64(len(chunk)))
			flusher.Flush()
		case <-ctx.Done():
			return
		}
	}
}

type statusResponse struct {
	RadioName  string `json:"radio_name"`
	IsPlaying  bool   `json:"is_playing"`
	LiveActive bool   `json:"live_active"`
	NowPlaying string `json:"now_playing"`
	CoverURL   string `json:"cover_url"`
	Listeners  int    `json:"listeners"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		RadioName:  s.state.RadioName(),
		IsPlaying:  s.state.IsPlaying(),
		LiveActive: s.state.LiveActive(),
		NowPlaying: s.state.NowPlaying(),
		CoverURL:   s.state.CoverURL(),
		Listeners:  s.registry.Count(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleNowPlaying(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"now_playing": s.state.NowPlaying()})
}

// handleMetadata implements the legacy Shoutcast/Icecast admin metadata push:
// GET /admin/metadata?mode=updinfo&mount=/live&song=Artist - Title
func (s *Server) handleMetadata(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("mode") != "updinfo" {
		netutil.ServerResponse(w, http.StatusBadRequest, "unsupported mode", nil)
		return
	}
	song := r.URL.Query().Get("song")
	if song == "" {
		netutil.ServerResponse(w, http.StatusBadRequest, "missing song", nil)
		return
	}
	s.state.SetNowPlaying(song)
	netutil.ServerResponse(w, http.StatusOK, "updated", nil)
}

type listenerView struct {
	ID         string `json:"id"`
	Country    string `json:"country"`
	Region     string `json:"region"`
	City       string `json:"city"`
	ClientType string `json:"client_type"`
	BytesSent  int64  `json:"bytes_sent"`
}

func (s *Server) handleListClients(w http.ResponseWriter, r *http.Request) {
	snapshot := s.registry.Snapshot()
	out := make([]listenerView, 0, len(snapshot))
	for _, l := range snapshot {
		out = append(out, listenerView{
			ID:         l.ID,
			Country:    l.Country,
			Region:     l.Region,
			City:       l.City,
			ClientType: l.ClientType,
			BytesSent:  l.ByteSent.Load(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.state.Pause()
	netutil.ServerResponse(w, http.StatusOK, "paused", nil)
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	s.state.Resume()
	netutil.ServerResponse(w, http.StatusOK, "resumed", nil)
}

func (s *Server) handleMode(w http.ResponseWriter, r *http.Request) {
	mode := scheduler.Mode(r.URL.Query().Get("mode"))
	if mode != scheduler.ModeShuffle && mode != scheduler.ModeSequential {
		netutil.ServerResponse(w, http.StatusBadRequest, "mode must be shuffle or sequential", nil)
		return
	}
	s.scheduler.SetMode(mode)
	netutil.ServerResponse(w, http.StatusOK, "mode updated", nil)
}

func (s *Server) handleIntervals(w http.ResponseWriter, r *http.Request) {
	jingle, err := strconv.Atoi(r.URL.Query().Get("jingle"))
	if err != nil {
		netutil.ServerResponse(w, http.StatusBadRequest, "invalid jingle interval", nil)
		return
	}
	ad, err := strconv.Atoi(r.URL.Query().Get("ad"))
	if err != nil {
		netutil.ServerResponse(w, http.StatusBadRequest, "invalid ad interval", nil)
		return
	}
	s.scheduler.SetIntervals(jingle, ad)
	netutil.ServerResponse(w, http.StatusOK, "intervals updated", nil)
}

func (s *Server) handleCredentials(w http.ResponseWriter, r *http.Request) {
	var body struct {
		LiveUsername  string `json:"live_username"`
		LivePassword  string `json:"live_password"`
		AdminUsername string `json:"admin_username"`
		AdminPassword string `json:"admin_password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		netutil.ServerResponse(w, http.StatusBadRequest, "invalid body", nil)
		return
	}
	err := s.settings.Update(func(cur *settings.Settings) {
		if body.LiveUsername != "" {
			cur.LiveUsername = body.LiveUsername
		}
		if body.LivePassword != "" {
			cur.LivePassword = body.LivePassword
		}
		if body.AdminUsername != "" {
			cur.AdminUsername = body.AdminUsername
		}
		if body.AdminPassword != "" {
			cur.AdminPassword = body.AdminPassword
		}
	})
	if err != nil {
		netutil.ServerResponse(w, http.StatusInternalServerError, "failed to persist credentials", nil)
		return
	}
	netutil.ServerResponse(w, http.StatusOK, "credentials updated", nil)
}

func (s *Server) handleCatalogOrder(w http.ResponseWriter, r *http.Request) {
	kind := catalog.Kind(r.URL.Query().Get("kind"))
	var body struct {
		Order []string `json:"order"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		netutil.ServerResponse(w, http.StatusBadRequest, "invalid body", nil)
		return
	}
	if err := s.catalog.SaveOrder(kind, body.Order); err != nil {
		netutil.ServerResponse(w, http.StatusInternalServerError, "failed to save order", nil)
		return
	}
	netutil.ServerResponse(w, http.StatusOK, "order saved", nil)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
