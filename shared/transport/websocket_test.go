package transport

import (
	"bytes"
	"testing"
	"time"
)

func TestWebSocketHandshakeAndDelivery(t *testing.T) {
	srv, err := ListenWebSocket("127.0.0.1:0", Config{Password: "pw"})
	if err != nil {
		t.Fatal(err)
	}
	defer srv.Close()

	c := NewWebSocketClient(Config{Password: "pw"})
	defer c.Close()
	if err := c.Connect(srv.Addr()); err != nil {
		t.Fatal(err)
	}

	var srvEvents, cliEvents []Event
	pump(t, srv, c, &srvEvents, &cliEvents, func() bool { return hasKind(cliEvents, EventConnected) })
	c.Send([]byte("ready"), ReliableOrdered)
	pump(t, srv, c, &srvEvents, &cliEvents, func() bool { return hasKind(srvEvents, EventMessage) })

	if srvEvents[0].Kind != EventConnected || srvEvents[1].Kind != EventMessage || !bytes.Equal(srvEvents[1].Payload, []byte("ready")) {
		t.Fatalf("server events = %+v", srvEvents)
	}

	cliEvents = cliEvents[:0]
	srv.Send(0, []byte("one"), UnreliableSequenced)
	srv.Send(0, []byte("two"), UnreliableSequenced)
	pump(t, srv, c, &srvEvents, &cliEvents, func() bool { return len(cliEvents) == 2 })
	if !bytes.Equal(cliEvents[1].Payload, []byte("two")) {
		t.Fatalf("client events = %+v", cliEvents)
	}

	srvEvents = srvEvents[:0]
	c.Disconnect()
	pump(t, srv, c, &srvEvents, &cliEvents, func() bool { return hasKind(srvEvents, EventDisconnected) })
}

func TestWebSocketReplyIsAnsweredWithoutTraffic(t *testing.T) {
	// Heartbeats are far off, so only the answer to the reply can
	// establish the server side.
	cfg := Config{HeartbeatInterval: time.Minute, IdleTimeout: time.Minute}
	srv, err := ListenWebSocket("127.0.0.1:0", cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer srv.Close()

	c := NewWebSocketClient(cfg)
	defer c.Close()
	if err := c.Connect(srv.Addr()); err != nil {
		t.Fatal(err)
	}

	var srvEvents, cliEvents []Event
	pump(t, srv, c, &srvEvents, &cliEvents, func() bool { return hasKind(srvEvents, EventConnected) })
	if !hasKind(cliEvents, EventConnected) || hasKind(srvEvents, EventMessage) {
		t.Fatalf("server=%+v client=%+v", srvEvents, cliEvents)
	}
}

func TestWebSocketServerCloseDisconnectsClient(t *testing.T) {
	srv, err := ListenWebSocket("127.0.0.1:0", Config{})
	if err != nil {
		t.Fatal(err)
	}
	c := NewWebSocketClient(Config{})
	defer c.Close()
	_ = c.Connect(srv.Addr())

	var srvEvents, cliEvents []Event
	pump(t, srv, c, &srvEvents, &cliEvents, func() bool { return hasKind(cliEvents, EventConnected) })
	c.Send([]byte("hi"), ReliableOrdered)
	pump(t, srv, c, &srvEvents, &cliEvents, func() bool { return hasKind(srvEvents, EventConnected) })

	_ = srv.Close()
	deadline := 0
	for !hasKind(cliEvents, EventDisconnected) {
		c.Poll()
		cliEvents = c.Receive(cliEvents)
		deadline++
		if deadline > 3000 {
			t.Fatalf("client never saw the close: %+v", cliEvents)
		}
		time.Sleep(time.Millisecond)
	}
}
