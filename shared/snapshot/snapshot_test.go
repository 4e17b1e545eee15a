package snapshot

import (
	"math"
	"testing"
	"time"

	"github.com/automoto/netsnap/shared/identity"
	"github.com/automoto/netsnap/shared/netcomponents"
	"github.com/automoto/netsnap/shared/protocol"
	"github.com/automoto/netsnap/shared/transport"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/yohamta/donburi"
)

func spawn(w donburi.World, id identity.NetID, pos mgl32.Vec3) donburi.Entity {
	entity := w.Create(netcomponents.NetworkID, netcomponents.Transform)
	e := w.Entry(entity)
	netcomponents.NetworkID.SetValue(e, id)
	netcomponents.Transform.SetValue(e, netcomponents.At(pos))
	return entity
}

func position(w donburi.World, entity donburi.Entity) mgl32.Vec3 {
	return netcomponents.Transform.Get(w.Entry(entity)).Position
}

func snap(seq uint32, transforms ...protocol.EntityTransform) protocol.Snapshot {
	return protocol.Snapshot{Sequence: seq, Transforms: transforms}
}

func at(id identity.NetID, x float32) protocol.EntityTransform {
	return protocol.EntityTransform{ID: id, Position: mgl32.Vec3{x, 0, 0}, Rotation: mgl32.QuatIdent()}
}

func TestBufferIsFIFOAcrossGrowth(t *testing.T) {
	b := NewBuffer(2)
	for i := uint32(0); i < 5; i++ {
		b.Push(snap(i))
	}
	if _, _ = b.Pop(); b.Len() != 4 {
		t.Fatalf("Len = %d", b.Len())
	}
	b.Push(snap(5))

	for want := uint32(1); want <= 5; want++ {
		s, ok := b.Pop()
		if !ok || s.Sequence != want {
			t.Fatalf("Pop = %d, %v; want %d", s.Sequence, ok, want)
		}
	}
	if _, ok := b.Front(); ok {
		t.Fatal("Front on empty buffer")
	}
}

func TestBufferKeepsArrivalOrder(t *testing.T) {
	b := NewBuffer(4)
	b.Push(snap(9))
	b.Push(snap(3))
	if s, _ := b.Pop(); s.Sequence != 9 {
		t.Fatalf("buffer reordered snapshots: got %d first", s.Sequence)
	}
}

type recordingSender struct {
	sent       []protocol.Snapshot
	deliveries []transport.DeliveryMethod
}

func (r *recordingSender) SendToAll(p protocol.ServerPacket, d transport.DeliveryMethod) {
	r.sent = append(r.sent, p.(protocol.Snapshot))
	r.deliveries = append(r.deliveries, d)
}

func TestBroadcasterSendsAfterStrictlyMoreThanOneInterval(t *testing.T) {
	w := donburi.NewWorld()
	spawn(w, 7, mgl32.Vec3{7, 0, 0})
	spawn(w, 2, mgl32.Vec3{2, 0, 0})

	b := NewBroadcaster(50*time.Millisecond, nil)
	var s recordingSender

	if b.Update(50*time.Millisecond, w, &s) {
		t.Fatal("sent at exactly one interval")
	}
	if !b.Update(time.Millisecond, w, &s) {
		t.Fatal("did not send past one interval")
	}
	if !b.Update(50*time.Millisecond, w, &s) {
		t.Fatal("did not send with the leftover accumulator")
	}

	if len(s.sent) != 2 || s.sent[0].Sequence != 0 || s.sent[1].Sequence != 1 {
		t.Fatalf("sent = %+v", s.sent)
	}
	if s.deliveries[0] != transport.UnreliableSequenced {
		t.Fatalf("delivery = %v", s.deliveries[0])
	}
	ts := s.sent[0].Transforms
	if len(ts) != 2 || ts[0].ID != 2 || ts[1].ID != 7 {
		t.Fatalf("transforms not sorted by id: %+v", ts)
	}
}

func TestBroadcasterSkipsEmptyWorld(t *testing.T) {
	b := NewBroadcaster(0, nil)
	var s recordingSender
	if b.Update(time.Second, donburi.NewWorld(), &s) || len(s.sent) != 0 || b.Sequence() != 0 {
		t.Fatalf("sent %d snapshots for an empty world", len(s.sent))
	}
}

func TestLerpDurationClampsGap(t *testing.T) {
	in := NewInterpolator(DefaultConfig())
	for gap, want := range map[uint32]time.Duration{
		0:    50 * time.Millisecond,
		1:    50 * time.Millisecond,
		5:    200 * time.Millisecond,
		1000: 200 * time.Millisecond,
	} {
		if got := in.LerpDuration(gap); got != want {
			t.Fatalf("LerpDuration(%d) = %v, want %v", gap, got, want)
		}
	}
}

func TestBufferScalarFollowsDepth(t *testing.T) {
	in := NewInterpolator(DefaultConfig())
	if got := in.BufferScalar(); math.Abs(got-0.8) > 1e-9 {
		t.Fatalf("empty scalar = %v, want 0.8", got)
	}
	in.Admit(snap(0))
	in.Admit(snap(1))
	if got := in.BufferScalar(); got != 1 {
		t.Fatalf("target-depth scalar = %v, want 1", got)
	}
	for i := uint32(2); i < 100; i++ {
		in.Admit(snap(i))
	}
	if got := in.BufferScalar(); got != 4 {
		t.Fatalf("deep buffer scalar = %v, want the 4.0 ceiling", got)
	}
}

func TestUpdateWithEmptyBufferIsNoOp(t *testing.T) {
	w := donburi.NewWorld()
	e := spawn(w, 1, mgl32.Vec3{3, 0, 0})
	in := NewInterpolator(DefaultConfig())
	in.Seed(w)

	for i := 0; i < 3; i++ {
		if in.Update(time.Second, w) {
			t.Fatal("Update reported work on an empty buffer")
		}
	}
	if in.Clock() != 0 || position(w, e) != (mgl32.Vec3{3, 0, 0}) {
		t.Fatalf("state changed: clock=%v pos=%v", in.Clock(), position(w, e))
	}
}

func TestSingleEntityReachesMidpoint(t *testing.T) {
	w := donburi.NewWorld()
	e := spawn(w, 1, mgl32.Vec3{})
	in := NewInterpolator(DefaultConfig())
	in.Seed(w)
	if !w.Entry(e).HasComponent(netcomponents.Lerp) {
		t.Fatal("Seed did not add lerp state")
	}

	in.Admit(snap(0, at(1, 10)))
	in.Admit(snap(1, at(1, 20)))
	in.Admit(snap(2, at(1, 30)))

	// Depth 3 plays at 1.1x: 55ms of playback pops the first snapshot with
	// 5ms left over.
	in.Update(50*time.Millisecond, w)
	if got := position(w, e)[0]; !mgl32.FloatEqualThreshold(got, 1, 1e-4) {
		t.Fatalf("after first step x = %v, want 1", got)
	}

	// Depth 2 plays at 1x: 25ms into a 50ms step is halfway from 0 to 10.
	in.Update(20*time.Millisecond, w)
	if got := position(w, e)[0]; !mgl32.FloatEqualThreshold(got, 5, 1e-4) {
		t.Fatalf("midpoint x = %v, want 5", got)
	}
}

func TestAbsentEntityHoldsItsTarget(t *testing.T) {
	w := donburi.NewWorld()
	a := spawn(w, 1, mgl32.Vec3{})
	b := spawn(w, 2, mgl32.Vec3{4, 0, 0})
	in := NewInterpolator(DefaultConfig())
	in.Seed(w)

	in.Admit(snap(0, at(1, 10)))
	in.Update(80*time.Millisecond, w)

	lb := netcomponents.Lerp.Get(w.Entry(b))
	if lb.FromPosition != (mgl32.Vec3{4, 0, 0}) || lb.ToPosition != (mgl32.Vec3{4, 0, 0}) {
		t.Fatalf("absent entity lerp = %+v", lb)
	}
	if la := netcomponents.Lerp.Get(w.Entry(a)); la.ToPosition != (mgl32.Vec3{10, 0, 0}) {
		t.Fatalf("present entity target = %v", la.ToPosition)
	}
}

func TestSequenceGapStretchesNextStep(t *testing.T) {
	w := donburi.NewWorld()
	spawn(w, 1, mgl32.Vec3{})
	in := NewInterpolator(Config{TargetDepth: 1})
	in.Seed(w)

	in.Admit(snap(0, at(1, 0)))
	in.Update(60*time.Millisecond, w)
	in.Admit(snap(3, at(1, 30)))
	in.Update(60*time.Millisecond, w)
	in.Admit(snap(4, at(1, 40)))

	// previous=0 current=3: the next step lasts three intervals.
	if got := in.LerpDuration(in.current - in.previous); got != 150*time.Millisecond {
		t.Fatalf("step = %v, want 150ms", got)
	}
}

func TestDropStaleIsOptIn(t *testing.T) {
	loose := NewInterpolator(DefaultConfig())
	loose.Admit(snap(5))
	if !loose.Admit(snap(4)) || loose.Depth() != 2 {
		t.Fatal("default admission must queue unconditionally")
	}

	cfg := DefaultConfig()
	cfg.DropStale = true
	strict := NewInterpolator(cfg)
	strict.Admit(snap(5))
	if strict.Admit(snap(5)) || strict.Admit(snap(4)) {
		t.Fatal("stale snapshot admitted")
	}
	if !strict.Admit(snap(6)) || strict.Depth() != 2 {
		t.Fatalf("depth = %d, want 2", strict.Depth())
	}
}

func TestReset(t *testing.T) {
	w := donburi.NewWorld()
	spawn(w, 1, mgl32.Vec3{})
	in := NewInterpolator(DefaultConfig())
	in.Seed(w)
	in.Admit(snap(0, at(1, 1)))
	in.Admit(snap(1, at(1, 2)))
	in.Update(70*time.Millisecond, w)

	in.Reset()
	if in.Depth() != 0 || in.Clock() != 0 || in.current != 0 || in.previous != 0 {
		t.Fatalf("Reset left state: depth=%d clock=%v", in.Depth(), in.Clock())
	}
}
