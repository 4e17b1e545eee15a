// Package metrics holds the prometheus collectors shared by the transport,
// session and snapshot layers. A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "netsnap"

// Drop reasons.
const (
	DropStale       = "stale"
	DropDuplicate   = "duplicate"
	DropMalformed   = "malformed"
	DropUnknownPeer = "unknown_peer"
	DropRejected    = "rejected"
	DropOverflow    = "overflow"
)

type Metrics struct {
	packetsSent      *prometheus.CounterVec
	packetsReceived  *prometheus.CounterVec
	packetsDropped   *prometheus.CounterVec
	resends          prometheus.Counter
	connections      prometheus.Gauge
	snapshotsSent    prometheus.Counter
	snapshotsUsed    prometheus.Counter
	bufferDepth      prometheus.Gauge
	playbackScalar   prometheus.Gauge
	tickDuration     prometheus.Histogram
	obstaclesSpawned prometheus.Counter
}

// New registers every collector with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		packetsSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transport",
			Name:      "packets_sent_total",
			Help:      "Packets handed to the socket by delivery method",
		}, []string{"delivery"}),

		packetsReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transport",
			Name:      "packets_received_total",
			Help:      "Packets delivered to the application by delivery method",
		}, []string{"delivery"}),

		packetsDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transport",
			Name:      "packets_dropped_total",
			Help:      "Packets discarded before delivery by reason",
		}, []string{"reason"}),

		resends: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transport",
			Name:      "resends_total",
			Help:      "Reliable packets retransmitted",
		}),

		connections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "transport",
			Name:      "connections",
			Help:      "Established connections",
		}),

		snapshotsSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "sent_total",
			Help:      "Snapshots broadcast by the server",
		}),

		snapshotsUsed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "consumed_total",
			Help:      "Snapshots popped from the client buffer by playback",
		}),

		bufferDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "buffer_depth",
			Help:      "Snapshots waiting in the client buffer",
		}),

		playbackScalar: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "playback_scalar",
			Help:      "Current playback speed multiplier",
		}),

		tickDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "tick_duration_seconds",
			Help:      "Time spent in one server tick",
			Buckets:   []float64{.0001, .0005, .001, .0025, .005, .01, .025, .05},
		}),

		obstaclesSpawned: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "obstacles_spawned_total",
			Help:      "Obstacles created by the server",
		}),
	}
}

func (m *Metrics) PacketSent(delivery string) {
	if m == nil {
		return
	}
	m.packetsSent.WithLabelValues(delivery).Inc()
}

func (m *Metrics) PacketReceived(delivery string) {
	if m == nil {
		return
	}
	m.packetsReceived.WithLabelValues(delivery).Inc()
}

func (m *Metrics) Dropped(reason string) {
	if m == nil {
		return
	}
	m.packetsDropped.WithLabelValues(reason).Inc()
}

func (m *Metrics) Resent() {
	if m == nil {
		return
	}
	m.resends.Inc()
}

func (m *Metrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.connections.Inc()
}

func (m *Metrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.connections.Dec()
}

func (m *Metrics) SnapshotSent() {
	if m == nil {
		return
	}
	m.snapshotsSent.Inc()
}

func (m *Metrics) SnapshotConsumed() {
	if m == nil {
		return
	}
	m.snapshotsUsed.Inc()
}

// Playback records the buffer depth and speed multiplier of the interpolator.
func (m *Metrics) Playback(depth int, scalar float64) {
	if m == nil {
		return
	}
	m.bufferDepth.Set(float64(depth))
	m.playbackScalar.Set(scalar)
}

func (m *Metrics) ObserveTick(d time.Duration) {
	if m == nil {
		return
	}
	m.tickDuration.Observe(d.Seconds())
}

func (m *Metrics) ObstacleSpawned() {
	if m == nil {
		return
	}
	m.obstaclesSpawned.Inc()
}
