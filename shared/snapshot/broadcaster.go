// Package snapshot produces periodic world snapshots on the server and plays
// them back smoothly on clients.
package snapshot

import (
	"cmp"
	"slices"
	"time"

	"github.com/automoto/netsnap/shared/metrics"
	"github.com/automoto/netsnap/shared/netcomponents"
	"github.com/automoto/netsnap/shared/protocol"
	"github.com/automoto/netsnap/shared/transport"
	"github.com/yohamta/donburi"
)

// DefaultInterval is the server snapshot period (20 Hz).
const DefaultInterval = 50 * time.Millisecond

// Sender broadcasts a packet to every connected client.
type Sender interface {
	SendToAll(packet protocol.ServerPacket, delivery transport.DeliveryMethod)
}

type Broadcaster struct {
	interval time.Duration
	acc      time.Duration
	sequence uint32
	metrics  *metrics.Metrics
}

func NewBroadcaster(interval time.Duration, m *metrics.Metrics) *Broadcaster {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Broadcaster{interval: interval, metrics: m}
}

// Update advances the send timer by dt and broadcasts one snapshot once more
// than a full interval has accumulated. Worlds without networked entities
// are skipped and do not consume a sequence number.
func (b *Broadcaster) Update(dt time.Duration, w donburi.World, s Sender) bool {
	b.acc += dt
	if b.acc <= b.interval {
		return false
	}
	b.acc -= b.interval

	transforms := Collect(w)
	if len(transforms) == 0 {
		return false
	}
	s.SendToAll(protocol.Snapshot{Sequence: b.sequence, Transforms: transforms}, transport.UnreliableSequenced)
	b.sequence++
	b.metrics.SnapshotSent()
	return true
}

// Sequence returns the sequence number the next snapshot will carry.
func (b *Broadcaster) Sequence() uint32 { return b.sequence }

// Collect returns the pose of every networked entity ordered by id.
func Collect(w donburi.World) []protocol.EntityTransform {
	var out []protocol.EntityTransform
	netcomponents.Networked.Each(w, func(e *donburi.Entry) {
		tr := netcomponents.Transform.Get(e)
		out = append(out, protocol.EntityTransform{
			ID:       *netcomponents.NetworkID.Get(e),
			Position: tr.Position,
			Rotation: tr.Rotation,
		})
	})
	slices.SortFunc(out, func(a, b protocol.EntityTransform) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}
