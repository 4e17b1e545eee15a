package game

import (
	"errors"
	"testing"
	"time"

	"github.com/automoto/netsnap/network"
	"github.com/automoto/netsnap/shared/netcomponents"
	"github.com/automoto/netsnap/shared/transport"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap/zaptest"
)

const step = 10 * time.Millisecond

func memoryOptions(t *testing.T, hub *transport.MemoryHub) Options {
	return Options{
		Kind:   transport.Memory,
		Addr:   "arena",
		Hub:    hub,
		Logger: zaptest.NewLogger(t).Sugar(),
	}
}

func run(n int, sessions ...*Session) {
	for i := 0; i < n; i++ {
		for _, s := range sessions {
			s.Tick(step)
		}
	}
}

func hostAndJoin(t *testing.T) (*Session, *Session) {
	t.Helper()
	hub := transport.NewMemoryHub()
	host, err := Host(memoryOptions(t, hub))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = host.Close() })
	run(3, host)

	guest, err := Join(memoryOptions(t, hub))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = guest.Close() })
	run(5, host, guest)
	return host, guest
}

func TestHostAndJoinShareRoster(t *testing.T) {
	host, guest := hostAndJoin(t)

	if !host.IsHost() || guest.IsHost() {
		t.Fatalf("host=%v guest=%v", host.IsHost(), guest.IsHost())
	}
	if id, ok := host.LocalID(); !ok || id != 0 {
		t.Fatalf("host id = %d, %v", id, ok)
	}
	if id, ok := guest.LocalID(); !ok || id != 1 {
		t.Fatalf("guest id = %d, %v", id, ok)
	}
	if n := netcomponents.Networked.Count(host.World()); n != 2 {
		t.Fatalf("host world has %d entities", n)
	}
	for _, id := range guest.Players() {
		if _, ok := netcomponents.Find(guest.World(), id); !ok {
			t.Fatalf("guest world missing player %d", id)
		}
	}
	if n := netcomponents.Networked.Count(guest.World()); n != 2 {
		t.Fatalf("guest world has %d entities", n)
	}
}

func TestObstacleReachesGuest(t *testing.T) {
	host, guest := hostAndJoin(t)

	id, err := host.SpawnObstacle()
	if err != nil || id != 255 {
		t.Fatalf("SpawnObstacle = %d, %v", id, err)
	}
	run(2, host, guest)

	e, ok := netcomponents.Find(guest.World(), id)
	if !ok || !e.HasComponent(netcomponents.ObstacleTag) {
		t.Fatalf("guest world has no obstacle %d", id)
	}
	if _, err := guest.SpawnObstacle(); !errors.Is(err, ErrNotHost) {
		t.Fatalf("guest SpawnObstacle err = %v", err)
	}
}

func TestGuestInputIsPlayedBack(t *testing.T) {
	host, guest := hostAndJoin(t)

	guest.SetInput(mgl32.Vec2{1, 0})
	run(100, host, guest)

	id, _ := guest.LocalID()
	e, ok := netcomponents.Find(guest.World(), id)
	if !ok {
		t.Fatal("guest lost its own player")
	}
	if x := netcomponents.Transform.Get(e).Position[0]; x < 1 {
		t.Fatalf("interpolated x = %v after a second of input", x)
	}
	if !e.HasComponent(netcomponents.Lerp) {
		t.Fatal("guest player was never seeded for playback")
	}

	hostEntry, _ := netcomponents.Find(host.World(), id)
	if hx := netcomponents.Transform.Get(hostEntry).Position[0]; hx < 5 {
		t.Fatalf("authoritative x = %v", hx)
	}
}

func TestHostKeepsNoSnapshotBuffer(t *testing.T) {
	host, guest := hostAndJoin(t)
	guest.SetInput(mgl32.Vec2{0, 1})
	for i := 0; i < 200; i++ {
		run(1, host, guest)
		if d := host.BufferDepth(); d != 0 {
			t.Fatalf("tick %d: host buffered %d snapshots", i, d)
		}
	}
}

func TestHostCloseTearsDownGuest(t *testing.T) {
	host, guest := hostAndJoin(t)

	if err := host.Close(); err != nil {
		t.Fatal(err)
	}
	events := guest.Tick(step)

	sawDisconnect := false
	for _, ev := range events {
		if _, ok := ev.(network.Disconnected); ok {
			sawDisconnect = true
		}
	}
	if !sawDisconnect || !guest.Closed() || guest.IsConnected() {
		t.Fatalf("guest events = %#v closed=%v", events, guest.Closed())
	}
	if n := netcomponents.Networked.Count(guest.World()); n != 0 {
		t.Fatalf("guest world kept %d entities", n)
	}
	if guest.BufferDepth() != 0 || len(guest.Players()) != 0 {
		t.Fatalf("teardown left depth=%d players=%v", guest.BufferDepth(), guest.Players())
	}
	if guest.Tick(step) != nil {
		t.Fatal("closed session still ticking")
	}
}
