package transport

import (
	"errors"
	"testing"
	"time"

	"github.com/automoto/netsnap/shared/wire"
)

func TestReliableChannelReordersAndDeduplicates(t *testing.T) {
	c := newReliableChannel()

	out, res := c.receive(1, []byte("b"), nil)
	if res != recvHeld || len(out) != 0 {
		t.Fatalf("early packet: %v %q", res, out)
	}
	out, res = c.receive(2, []byte("c"), nil)
	if res != recvHeld || len(out) != 0 {
		t.Fatalf("early packet: %v %q", res, out)
	}
	if _, res := c.receive(2, []byte("c"), nil); res != recvDuplicate {
		t.Fatalf("held duplicate: %v", res)
	}

	out, res = c.receive(0, []byte("a"), nil)
	if res != recvDelivered || len(out) != 3 || string(out[0]) != "a" || string(out[1]) != "b" || string(out[2]) != "c" {
		t.Fatalf("in-order flush: %v %q", res, out)
	}
	if _, res := c.receive(1, []byte("b"), nil); res != recvDuplicate {
		t.Fatalf("delivered duplicate: %v", res)
	}
	if _, res := c.receive(3+maxHeld+1, nil, nil); res != recvTooFar {
		t.Fatalf("far packet: %v", res)
	}
}

func TestReliableChannelWrapsSequence(t *testing.T) {
	c := newReliableChannel()
	c.expected = 65535

	out, _ := c.receive(0, []byte("after"), nil)
	if len(out) != 0 {
		t.Fatalf("delivered out of order: %q", out)
	}
	out, _ = c.receive(65535, []byte("before"), nil)
	if len(out) != 2 || string(out[0]) != "before" || string(out[1]) != "after" {
		t.Fatalf("wrap flush: %q", out)
	}
}

func TestReliableChannelResendsUntilAcked(t *testing.T) {
	c := newReliableChannel()
	start := time.Unix(100, 0)
	seq := c.stamp()
	c.track(seq, []byte("d"), start)

	var sent int
	count := func([]byte) { sent++ }

	c.resend(start.Add(50*time.Millisecond), 100*time.Millisecond, count)
	if sent != 0 {
		t.Fatalf("resent too early")
	}
	c.resend(start.Add(100*time.Millisecond), 100*time.Millisecond, count)
	if sent != 1 {
		t.Fatalf("sent = %d, want 1", sent)
	}

	c.ack(seq)
	c.resend(start.Add(time.Second), 100*time.Millisecond, count)
	if sent != 1 || c.inFlight() != 0 {
		t.Fatalf("resent after ack: sent=%d inFlight=%d", sent, c.inFlight())
	}
}

func TestSequencerDropsStaleAcrossWrap(t *testing.T) {
	var s sequencer
	for _, tc := range []struct {
		seq  uint16
		want bool
	}{
		{65534, true},
		{65533, false},
		{65534, false},
		{1, true},
		{65535, false},
		{2, true},
	} {
		if got := s.accept(tc.seq); got != tc.want {
			t.Fatalf("accept(%d) = %v, want %v", tc.seq, got, tc.want)
		}
	}
}

func TestDatagramHeader(t *testing.T) {
	d := encodeDatagram(DefaultProtocolID, pktReliable, 513, []byte{9})
	if len(d) != udpHeaderSize+1 {
		t.Fatalf("len = %d", len(d))
	}
	h, payload, err := decodeDatagram(d, DefaultProtocolID)
	if err != nil || h.kind != pktReliable || h.seq != 513 || len(payload) != 1 || payload[0] != 9 {
		t.Fatalf("decode = %+v %v %v", h, payload, err)
	}

	if _, _, err := decodeDatagram(d, DefaultProtocolID+1); !errors.Is(err, errForeignProtocol) {
		t.Fatalf("foreign protocol: %v", err)
	}
	if _, _, err := decodeDatagram(d[:5], DefaultProtocolID); !errors.Is(err, wire.ErrShortBuffer) {
		t.Fatalf("short datagram: %v", err)
	}
}

func TestBidEncoding(t *testing.T) {
	if err := checkBid(encodeBid("pw"), "pw"); err != nil {
		t.Fatal(err)
	}
	if err := checkBid(encodeBid("anything"), ""); err != nil {
		t.Fatalf("open server rejected bid: %v", err)
	}
	if err := checkBid(encodeBid("no"), "pw"); !errors.Is(err, ErrWrongPassword) {
		t.Fatalf("wrong password: %v", err)
	}
	if err := checkBid([]byte{1, 2}, ""); err == nil {
		t.Fatal("garbage bid accepted")
	}
	if _, err := decodeReply([]byte{1, 2}); !errors.Is(err, ErrBadHandshake) {
		t.Fatalf("long reply: %v", err)
	}
}
