package snapshot

import (
	"time"

	"github.com/automoto/netsnap/shared/metrics"
	"github.com/automoto/netsnap/shared/netcomponents"
	"github.com/automoto/netsnap/shared/protocol"
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/filter"
)

type Config struct {
	// BaseInterval is the playback time of one snapshot step at normal speed.
	// It matches the server send interval.
	BaseInterval time.Duration
	// TargetDepth is the buffer depth at which playback runs at normal speed.
	TargetDepth int
	// MaxSequenceScale caps how many intervals a gap in sequence numbers may
	// stretch one step to.
	MaxSequenceScale uint32
	// MinScalar and MaxScalar bound the playback speed multiplier.
	MinScalar float64
	MaxScalar float64
	// DropStale discards snapshots that are not newer than the last admitted
	// one instead of queueing them.
	DropStale bool

	Metrics *metrics.Metrics
}

func DefaultConfig() Config {
	return Config{
		BaseInterval:     DefaultInterval,
		TargetDepth:      2,
		MaxSequenceScale: 4,
		MinScalar:        0.1,
		MaxScalar:        4.0,
	}
}

var lerping = donburi.NewQuery(filter.Contains(
	netcomponents.NetworkID,
	netcomponents.Transform,
	netcomponents.Lerp,
))

// Interpolator plays buffered snapshots back with a small delay, speeding up
// when the buffer grows past TargetDepth and slowing down when it drains.
type Interpolator struct {
	cfg      Config
	buf      *Buffer
	clock    float64
	previous uint32
	current  uint32
	last     uint32
	admitted bool
	seeds    []donburi.Entity
}

func NewInterpolator(cfg Config) *Interpolator {
	d := DefaultConfig()
	if cfg.BaseInterval <= 0 {
		cfg.BaseInterval = d.BaseInterval
	}
	if cfg.TargetDepth <= 0 {
		cfg.TargetDepth = d.TargetDepth
	}
	if cfg.MaxSequenceScale == 0 {
		cfg.MaxSequenceScale = d.MaxSequenceScale
	}
	if cfg.MinScalar <= 0 {
		cfg.MinScalar = d.MinScalar
	}
	if cfg.MaxScalar < cfg.MinScalar {
		cfg.MaxScalar = max(d.MaxScalar, cfg.MinScalar)
	}
	return &Interpolator{cfg: cfg, buf: NewBuffer(defaultBufferSize)}
}

// Admit queues s for playback. It reports false when DropStale is set and s
// is not newer than the last admitted snapshot.
func (in *Interpolator) Admit(s protocol.Snapshot) bool {
	if in.cfg.DropStale && in.admitted && int32(s.Sequence-in.last) <= 0 {
		in.cfg.Metrics.Dropped(metrics.DropStale)
		return false
	}
	in.buf.Push(s)
	in.last, in.admitted = s.Sequence, true
	return true
}

// Seed gives every networked entity that has no lerp state one that holds it
// at its current pose.
func (in *Interpolator) Seed(w donburi.World) {
	netcomponents.Networked.Each(w, func(e *donburi.Entry) {
		if !e.HasComponent(netcomponents.Lerp) {
			in.seeds = append(in.seeds, e.Entity())
		}
	})
	for _, entity := range in.seeds {
		e := w.Entry(entity)
		tr := *netcomponents.Transform.Get(e)
		e.AddComponent(netcomponents.Lerp)
		netcomponents.Lerp.SetValue(e, netcomponents.Settle(tr))
	}
	in.seeds = in.seeds[:0]
}

// BufferScalar is the playback speed multiplier for the current depth.
func (in *Interpolator) BufferScalar() float64 {
	s := 1 - float64(in.cfg.TargetDepth-in.buf.Len())/10
	return min(max(s, in.cfg.MinScalar), in.cfg.MaxScalar)
}

// LerpDuration is the playback time of one step for a sequence gap.
func (in *Interpolator) LerpDuration(gap uint32) time.Duration {
	gap = min(max(gap, 1), in.cfg.MaxSequenceScale)
	return in.cfg.BaseInterval * time.Duration(gap)
}

// Update advances playback by dt and rewrites the Transform of every lerping
// entity. It does nothing while the buffer is empty.
func (in *Interpolator) Update(dt time.Duration, w donburi.World) bool {
	if in.buf.Len() == 0 {
		return false
	}

	scalar := in.BufferScalar()
	in.clock += dt.Seconds() * scalar
	duration := in.LerpDuration(in.current - in.previous).Seconds()

	if in.clock > duration {
		in.clock -= duration
		snap, _ := in.buf.Pop()
		in.previous, in.current = in.current, snap.Sequence
		in.cfg.Metrics.SnapshotConsumed()

		lerping.Each(w, func(e *donburi.Entry) {
			l := netcomponents.Lerp.Get(e)
			if tr, ok := snap.Find(*netcomponents.NetworkID.Get(e)); ok {
				l.Advance(netcomponents.TransformData{Position: tr.Position, Rotation: tr.Rotation})
			} else {
				l.Hold()
			}
		})
	}

	t := float32(min(max(in.clock/duration, 0), 1))
	lerping.Each(w, func(e *donburi.Entry) {
		netcomponents.Transform.SetValue(e, netcomponents.LerpTransform(*netcomponents.Lerp.Get(e), t))
	})
	in.cfg.Metrics.Playback(in.buf.Len(), scalar)
	return true
}

// Reset drops every buffered snapshot and rewinds playback.
func (in *Interpolator) Reset() {
	in.buf.Clear()
	in.clock = 0
	in.previous, in.current, in.last = 0, 0, 0
	in.admitted = false
}

func (in *Interpolator) Depth() int { return in.buf.Len() }

// Clock returns the playback time into the current step.
func (in *Interpolator) Clock() time.Duration {
	return time.Duration(in.clock * float64(time.Second))
}
