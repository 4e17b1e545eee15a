package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNilMetricsAreNoOps(t *testing.T) {
	var m *Metrics
	m.PacketSent("reliable_ordered")
	m.Dropped(DropStale)
	m.Playback(3, 1.1)
	m.ConnectionOpened()
}

func TestCountersByLabel(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.Dropped(DropStale)
	m.Dropped(DropStale)
	m.Dropped(DropMalformed)
	m.ConnectionOpened()
	m.ConnectionOpened()
	m.ConnectionClosed()

	if got := testutil.ToFloat64(m.packetsDropped.WithLabelValues(DropStale)); got != 2 {
		t.Fatalf("stale drops = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.packetsDropped.WithLabelValues(DropMalformed)); got != 1 {
		t.Fatalf("malformed drops = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.connections); got != 1 {
		t.Fatalf("connections = %v, want 1", got)
	}
}
