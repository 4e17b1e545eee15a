package core

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/automoto/netsnap/shared/identity"
	"github.com/automoto/netsnap/shared/metrics"
	"github.com/automoto/netsnap/shared/protocol"
	"github.com/automoto/netsnap/shared/transport"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap/zaptest"
)

const step = 10 * time.Millisecond

func newTestServer(t *testing.T) (*transport.MemoryHub, *Server) {
	t.Helper()
	hub := transport.NewMemoryHub()
	tr, err := hub.Listen("arena", transport.Config{})
	if err != nil {
		t.Fatal(err)
	}
	s := NewServer(tr, Config{Seed: 42}, zaptest.NewLogger(t).Sugar(), nil)
	t.Cleanup(func() { _ = s.Close() })
	return hub, s
}

// join connects a raw transport client and ticks until the server has
// spawned its player.
func join(t *testing.T, hub *transport.MemoryHub, s *Server) *transport.Client {
	t.Helper()
	before := s.PlayerCount()
	c := hub.NewClient(transport.Config{})
	if err := c.Connect("arena"); err != nil {
		t.Fatal(err)
	}
	s.Tick(0)
	c.Poll()
	c.Receive(nil)
	s.Tick(0)
	if s.PlayerCount() != before+1 {
		t.Fatalf("player count = %d, want %d", s.PlayerCount(), before+1)
	}
	return c
}

func send(t *testing.T, c *transport.Client, p protocol.ClientPacket, d transport.DeliveryMethod) {
	t.Helper()
	data, err := protocol.EncodeClient(p)
	if err != nil {
		t.Fatal(err)
	}
	c.Send(data, d)
}

// received decodes every pending message, skipping snapshots.
func received(t *testing.T, c *transport.Client) []protocol.ServerPacket {
	t.Helper()
	c.Poll()
	var out []protocol.ServerPacket
	for _, ev := range c.Receive(nil) {
		if ev.Kind != transport.EventMessage {
			continue
		}
		p, err := protocol.DecodeServer(ev.Payload)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if _, ok := p.(protocol.Snapshot); ok {
			continue
		}
		out = append(out, p)
	}
	return out
}

func stateOf(t *testing.T, pkts []protocol.ServerPacket) protocol.State {
	t.Helper()
	for _, p := range pkts {
		if st, ok := p.(protocol.State); ok {
			return st
		}
	}
	t.Fatalf("no State in %#v", pkts)
	return protocol.State{}
}

func TestReadyBeforeObstaclesSendsOnlySelf(t *testing.T) {
	hub, s := newTestServer(t)
	c := join(t, hub, s)

	send(t, c, protocol.Ready{}, transport.ReliableOrdered)
	s.Tick(0)

	st := stateOf(t, received(t, c))
	want := protocol.Spawn{ID: c.ID(), Kind: protocol.KindPlayer}
	if len(st.Spawns) != 1 || st.Spawns[0] != want {
		t.Fatalf("spawns = %+v", st.Spawns)
	}
}

func TestObstaclesCountDownAndAppearInState(t *testing.T) {
	hub, s := newTestServer(t)
	first := join(t, hub, s)

	for _, want := range []identity.NetID{255, 254} {
		id, err := s.SpawnObstacle()
		if err != nil || id != want {
			t.Fatalf("SpawnObstacle = %d, %v; want %d", id, err, want)
		}
	}
	pkts := received(t, first)
	if len(pkts) != 2 {
		t.Fatalf("first client got %#v", pkts)
	}
	if o, ok := pkts[0].(protocol.SpawnObstacle); !ok || o.ID != 255 {
		t.Fatalf("first announcement = %#v", pkts[0])
	}

	second := join(t, hub, s)
	send(t, second, protocol.Ready{}, transport.ReliableOrdered)
	s.Tick(0)

	st := stateOf(t, received(t, second))
	wantIDs := []identity.NetID{second.ID(), first.ID(), 254, 255}
	wantKinds := []protocol.SpawnKind{protocol.KindPlayer, protocol.KindPlayer, protocol.KindObstacle, protocol.KindObstacle}
	if len(st.Spawns) != len(wantIDs) {
		t.Fatalf("spawns = %+v", st.Spawns)
	}
	for i, sp := range st.Spawns {
		if sp.ID != wantIDs[i] || sp.Kind != wantKinds[i] {
			t.Fatalf("spawn %d = %+v, want id %d kind %v", i, sp, wantIDs[i], wantKinds[i])
		}
	}

	if pkts := received(t, first); len(pkts) != 1 || pkts[0] != (protocol.PlayerConnected{ID: second.ID()}) {
		t.Fatalf("first client got %#v", pkts)
	}
}

func TestDisconnectIsAnnouncedToOthers(t *testing.T) {
	hub, s := newTestServer(t)
	a := join(t, hub, s)
	b := join(t, hub, s)
	received(t, a)

	b.Disconnect()
	s.Tick(0)

	if s.PlayerCount() != 1 {
		t.Fatalf("player count = %d", s.PlayerCount())
	}
	if pkts := received(t, a); len(pkts) != 1 || pkts[0] != (protocol.PlayerDisconnected{ID: b.ID()}) {
		t.Fatalf("remaining client got %#v", pkts)
	}
}

func TestInputMovesAndTurnsPlayer(t *testing.T) {
	hub, s := newTestServer(t)
	c := join(t, hub, s)

	send(t, c, protocol.Input{Vector: mgl32.Vec2{1, 0}}, transport.UnreliableSequenced)
	for i := 0; i < 100; i++ {
		s.Tick(step)
	}

	p := s.Players()[0]
	// Full speed is reached after 0.1s, so one second covers about 9.5 units.
	if p.Position[0] < 9 || p.Position[0] > 10 || p.Position[2] != 0 {
		t.Fatalf("position = %v", p.Position)
	}
	if math.Abs(float64(p.Yaw)+math.Pi/2) > 1e-2 {
		t.Fatalf("yaw = %v, want -pi/2", p.Yaw)
	}
}

func TestNonFiniteInputIsDropped(t *testing.T) {
	hub := transport.NewMemoryHub()
	tr, err := hub.Listen("arena", transport.Config{})
	if err != nil {
		t.Fatal(err)
	}
	reg := prometheus.NewRegistry()
	s := NewServer(tr, Config{Seed: 42}, zaptest.NewLogger(t).Sugar(), metrics.New(reg))
	defer s.Close()
	c := join(t, hub, s)

	nan := float32(math.NaN())
	inf := float32(math.Inf(1))
	for _, v := range []mgl32.Vec2{{nan, 0}, {0, inf}} {
		send(t, c, protocol.Input{Vector: v}, transport.UnreliableSequenced)
		s.Tick(step)
	}
	send(t, c, protocol.Input{Vector: mgl32.Vec2{1, 0}}, transport.UnreliableSequenced)
	for i := 0; i < 100; i++ {
		s.Tick(step)
	}

	p := s.Players()[0]
	if math.IsNaN(float64(p.Yaw)) || p.Position[0] < 9 || p.Position[0] > 10 {
		t.Fatalf("player after bad input: position=%v yaw=%v", p.Position, p.Yaw)
	}
	if math.Abs(float64(p.Yaw)+math.Pi/2) > 1e-2 {
		t.Fatalf("yaw = %v, want -pi/2", p.Yaw)
	}

	want := `
# HELP netsnap_transport_packets_dropped_total Packets discarded before delivery by reason
# TYPE netsnap_transport_packets_dropped_total counter
netsnap_transport_packets_dropped_total{reason="malformed"} 2
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(want), "netsnap_transport_packets_dropped_total"); err != nil {
		t.Fatal(err)
	}
}

func TestWallStopsPlayer(t *testing.T) {
	hub, s := newTestServer(t)
	c := join(t, hub, s)

	send(t, c, protocol.Input{Vector: mgl32.Vec2{1, 0}}, transport.UnreliableSequenced)
	for i := 0; i < 500; i++ {
		s.Tick(step)
	}

	edge := float32(s.cfg.ArenaHalfSize - playerSize/2)
	if x := s.Players()[0].Position[0]; !mgl32.FloatEqualThreshold(x, edge, 1e-3) {
		t.Fatalf("x = %v, want %v", x, edge)
	}
}
