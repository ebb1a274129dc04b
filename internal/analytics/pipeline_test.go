package analytics

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/airwave/station/internal/listeners"
)

func TestReporter_RecordPlay_AppearsInNextSnapshot(t *testing.T) {
	reg := listeners.NewRegistry()
	r := NewReporter(NewClient("", ""), reg, "Test Radio", zerolog.Nop())

	r.RecordPlay("song", "Some Track")
	batch := r.drainSnapshot()

	require.Len(t, batch.PlayEvents, 1)
	require.Equal(t, "song", batch.PlayEvents[0].Kind)

	// A second snapshot with no new plays should be empty.
	batch2 := r.drainSnapshot()
	require.Empty(t, batch2.PlayEvents)
}

func TestReporter_SnapshotReflectsAttachedListeners(t *testing.T) {
	reg := listeners.NewRegistry()
	l := reg.Attach(net.ParseIP("1.2.3.4"), "ua", "browser")
	l.Country = "RW"

	r := NewReporter(NewClient("", ""), reg, "Test Radio", zerolog.Nop())
	batch := r.drainSnapshot()

	require.Equal(t, 1, batch.ActiveCount)
	require.Equal(t, "RW", batch.Sessions[0].Country)
}

func TestReporter_Run_IsNoopWithoutURLConfigured(t *testing.T) {
	reg := listeners.NewRegistry()
	r := NewReporter(NewClient("", ""), reg, "Test Radio", zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	r.Run(ctx, 10*time.Millisecond)
}
