package transport

import "time"

// A link is the backend-specific half of a transport. It reports raw
// activity per remote peer and leaves handshakes and ids to Server and Client.

type linkKind int

const (
	// linkPacket carries an application payload.
	linkPacket linkKind = iota
	// linkAlive reports transport-level traffic with no payload.
	linkAlive
	// linkTimeout reports that the peer went quiet for too long.
	linkTimeout
	// linkClosed reports an explicit disconnect or a closed stream.
	linkClosed
)

type linkEvent struct {
	kind    linkKind
	peer    string
	payload []byte
}

type serverLink interface {
	poll(dst []linkEvent) []linkEvent
	sendTo(peer string, payload []byte, delivery DeliveryMethod)
	// drop forgets peer without notifying it.
	drop(peer string)
	// kick notifies peer of the disconnect and forgets it.
	kick(peer string)
	addr() string
	close() error
}

type clientLink interface {
	dial(addr string) error
	poll(dst []linkEvent) []linkEvent
	send(payload []byte, delivery DeliveryMethod)
	disconnect()
	close() error
}

// liveness tracks when a peer was last heard from and last written to.
type liveness struct {
	lastRecv time.Time
	lastSend time.Time
}

func newLiveness(now time.Time) liveness {
	return liveness{lastRecv: now, lastSend: now}
}

func (l *liveness) heard(now time.Time) { l.lastRecv = now }
func (l *liveness) wrote(now time.Time) { l.lastSend = now }

func (l *liveness) expired(now time.Time, idle time.Duration) bool {
	return now.Sub(l.lastRecv) > idle
}

func (l *liveness) needsHeartbeat(now time.Time, interval time.Duration) bool {
	return now.Sub(l.lastSend) >= interval
}

// sequencer filters unreliable-sequenced traffic: only payloads newer than the
// last accepted one pass.
type sequencer struct {
	next uint16
	last uint16
	seen bool
}

func (s *sequencer) stamp() uint16 {
	seq := s.next
	s.next++
	return seq
}

func (s *sequencer) accept(seq uint16) bool {
	if s.seen && !seqNewer(seq, s.last) {
		return false
	}
	s.seen = true
	s.last = seq
	return true
}

// seqNewer reports whether a follows b in wrapping 16-bit sequence space.
func seqNewer(a, b uint16) bool {
	return int16(a-b) > 0
}
