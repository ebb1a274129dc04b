// Package station wires the catalog, scheduler, transcoder, auto-DJ
// producer, broadcast switch, listener registry, live ingest, dispatcher,
// and HTTP surface into one running broadcast. It is the single-node
// equivalent of the teacher lineage's per-studio Manager/Studio pair,
// scaled down to one station instead of a registry of many.
package station

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/airwave/station/config"
	"github.com/airwave/station/internal/analytics"
	"github.com/airwave/station/internal/autodj"
	"github.com/airwave/station/internal/broadcast"
	"github.com/airwave/station/internal/catalog"
	"github.com/airwave/station/internal/dispatch"
	"github.com/airwave/station/internal/geo"
	"github.com/airwave/station/internal/httpapi"
	"github.com/airwave/station/internal/liveingest"
	"github.com/airwave/station/internal/listeners"
	"github.com/airwave/station/internal/scheduler"
	"github.com/airwave/station/internal/settings"
	"github.com/airwave/station/internal/transcode"
)

// snapshotInterval is how often the analytics reporter posts a batch
// upstream, mirroring the teacher's Manager.snapshotInterval default.
const snapshotInterval = 5 * time.Second

// Station owns every long-lived goroutine and the domain objects spec.md's
// BroadcastState/Catalog/Scheduler/Listener Registry describe. It exposes
// their mutators to the HTTP control surface; each component keeps its own
// fine-grained lock rather than one literal global mutex, since no
// operation needs atomicity across components — every hot loop only ever
// needs a coherent snapshot from one component at a time (see DESIGN.md).
type Station struct {
	cfg *config.Config
	log zerolog.Logger

	Catalog   *catalog.Catalog
	Scheduler *scheduler.Scheduler
	State     *broadcast.State
	Registry  *listeners.Registry
	Settings  *settings.Store
	Geo       *geo.Resolver

	producer *autodj.Producer
	sw       *broadcast.Switch
	reporter *analytics.Reporter

	liveChan chan []byte
	dispatch *dispatch.Dispatcher
	httpSrv  *http.Server
}

// New assembles a Station from cfg. It does not start any goroutines; call
// Run for that.
func New(cfg *config.Config, log zerolog.Logger) (*Station, error) {
	cat, err := catalog.New(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	st, err := settings.Open(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	cur := st.Get()

	sched := scheduler.New(cat)
	state := broadcast.NewState(cur.RadioName)
	registry := listeners.NewRegistry()
	geoResolver := geo.NewResolver(cfg.GeoDBPath, cfg.GeoSalt, cfg.GeoDBPath != "")

	adapter := transcode.New(cfg.FFmpegPath, cfg.BitrateKbps)
	reporter := analytics.NewReporter(analytics.NewClient("", ""), registry, cur.RadioName, log)

	producer := autodj.New(cat, sched, adapter, state, cfg.AutoDJChanSize, log)
	producer.SetPlayHook(reporter.RecordPlay)

	liveChan := make(chan []byte, cfg.LiveChanSize)
	state.SetLiveChan(liveChan)
	sw := broadcast.New(state, registry, producer.Chan(), liveChan, log)

	httpServer := httpapi.New(state, registry, cat, sched, st, geoResolver, log)

	liveState := liveingest.NewLiveState(state.SetLiveActive, func(name string) {
		state.SetNowPlaying("(live) " + name)
	})
	creds := liveingest.Credentials{Username: cur.LiveUsername, Password: cur.LivePassword}
	d := dispatch.New(
		net.JoinHostPort("", strconv.Itoa(cfg.PublicPort)),
		cfg.InternalAddr(),
		cfg.PeekTimeout,
		creds,
		liveChan,
		liveState,
		log,
	)

	return &Station{
		cfg:       cfg,
		log:       log,
		Catalog:   cat,
		Scheduler: sched,
		State:     state,
		Registry:  registry,
		Settings:  st,
		Geo:       geoResolver,
		producer:  producer,
		sw:        sw,
		reporter:  reporter,
		liveChan:  liveChan,
		dispatch:  d,
		httpSrv:   &http.Server{Addr: cfg.InternalAddr(), Handler: httpServer.Routes()},
	}, nil
}

// logListenerEvents drains the registry's connect/disconnect/enrich/
// heartbeat feed at debug level until ctx is cancelled.
func (s *Station) logListenerEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-s.Registry.Events():
			s.log.Debug().
				Str("event", string(evt.Type)).
				Str("listener_id", evt.Listener.ID).
				Msg("listener event")
		}
	}
}

// Run starts every long-lived goroutine and blocks until ctx is cancelled.
func (s *Station) Run(ctx context.Context) error {
	stop := make(chan struct{})
	go s.producer.Run(ctx)
	go s.sw.Run(stop)
	go s.reporter.Run(ctx, snapshotInterval)
	go s.logListenerEvents(ctx)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	go func() {
		errCh <- s.dispatch.ListenAndServe(ctx)
	}()

	select {
	case <-ctx.Done():
		close(stop)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpSrv.Shutdown(shutdownCtx)
		if s.Geo != nil {
			s.Geo.Close()
		}
		return nil
	case err := <-errCh:
		close(stop)
		return err
	}
}
