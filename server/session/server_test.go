package session

import (
	"slices"
	"testing"

	"github.com/automoto/netsnap/shared/identity"
	"github.com/automoto/netsnap/shared/protocol"
	"github.com/automoto/netsnap/shared/transport"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap/zaptest"
)

func setup(t *testing.T) (*transport.MemoryHub, *Server) {
	t.Helper()
	hub := transport.NewMemoryHub()
	tr, err := hub.Listen("arena", transport.Config{})
	if err != nil {
		t.Fatal(err)
	}
	s := NewServer(tr, zaptest.NewLogger(t).Sugar(), nil)
	t.Cleanup(func() { _ = s.Close() })
	return hub, s
}

func connect(t *testing.T, hub *transport.MemoryHub, s *Server) *transport.Client {
	t.Helper()
	c := hub.NewClient(transport.Config{})
	if err := c.Connect("arena"); err != nil {
		t.Fatal(err)
	}
	s.Update()
	c.Poll()
	c.Receive(nil)
	evs := s.Update()
	if len(evs) != 1 || evs[0] != (PlayerConnected{ID: c.ID()}) {
		t.Fatalf("events = %#v", evs)
	}
	return c
}

func send(t *testing.T, c *transport.Client, p protocol.ClientPacket) {
	t.Helper()
	data, err := protocol.EncodeClient(p)
	if err != nil {
		t.Fatal(err)
	}
	c.Send(data, transport.ReliableOrdered)
}

func TestDecodesClientPackets(t *testing.T) {
	hub, s := setup(t)
	c := connect(t, hub, s)

	send(t, c, protocol.Ready{})
	send(t, c, protocol.Input{Vector: mgl32.Vec2{0, -1}})
	c.Send([]byte{7}, transport.ReliableOrdered)

	evs := s.Update()
	want := []Event{
		PlayerReady{ID: c.ID()},
		PlayerInput{ID: c.ID(), Vector: mgl32.Vec2{0, -1}},
	}
	if !slices.Equal(evs, want) {
		t.Fatalf("events = %#v", evs)
	}
}

func TestPlayersTrackConnections(t *testing.T) {
	hub, s := setup(t)
	a := connect(t, hub, s)
	connect(t, hub, s)
	if got := s.Players(); !slices.Equal(got, []identity.NetID{0, 1}) {
		t.Fatalf("players = %v", got)
	}

	a.Disconnect()
	evs := s.Update()
	if len(evs) != 1 || evs[0] != (PlayerDisconnected{ID: 0}) {
		t.Fatalf("events = %#v", evs)
	}
	if got := s.Players(); !slices.Equal(got, []identity.NetID{1}) {
		t.Fatalf("players = %v", got)
	}
}

func TestSendToAllExcept(t *testing.T) {
	hub, s := setup(t)
	a := connect(t, hub, s)
	b := connect(t, hub, s)

	s.SendToAllExcept(a.ID(), protocol.PlayerConnected{ID: a.ID()}, transport.ReliableOrdered)

	a.Poll()
	if evs := a.Receive(nil); len(evs) != 0 {
		t.Fatalf("excluded client got %+v", evs)
	}
	b.Poll()
	evs := b.Receive(nil)
	if len(evs) != 1 {
		t.Fatalf("client events = %+v", evs)
	}
	p, err := protocol.DecodeServer(evs[0].Payload)
	if err != nil || p != (protocol.PlayerConnected{ID: a.ID()}) {
		t.Fatalf("decoded %#v, %v", p, err)
	}
}

func TestGenerateIDCountsDown(t *testing.T) {
	_, s := setup(t)
	for _, want := range []identity.NetID{255, 254} {
		if id, err := s.GenerateID(); err != nil || id != want {
			t.Fatalf("GenerateID = %d, %v", id, err)
		}
	}
}
