package transport

import "time"

// maxHeld bounds how far ahead of the next expected sequence a reliable
// packet may arrive before it is dropped and left to retransmission.
const maxHeld = 512

type recvResult int

const (
	recvDelivered recvResult = iota
	recvHeld
	recvDuplicate
	recvTooFar
)

type outgoing struct {
	datagram []byte
	sentAt   time.Time
}

// reliableChannel is the per-peer state of the reliable-ordered stream:
// sequence stamping and retransmission on the sending side, reordering and
// duplicate suppression on the receiving side.
type reliableChannel struct {
	nextSend uint16
	expected uint16
	held     map[uint16][]byte
	unacked  map[uint16]*outgoing
}

func newReliableChannel() *reliableChannel {
	return &reliableChannel{
		held:    make(map[uint16][]byte),
		unacked: make(map[uint16]*outgoing),
	}
}

func (c *reliableChannel) stamp() uint16 {
	seq := c.nextSend
	c.nextSend++
	return seq
}

// track keeps datagram for retransmission until seq is acknowledged.
func (c *reliableChannel) track(seq uint16, datagram []byte, now time.Time) {
	c.unacked[seq] = &outgoing{datagram: datagram, sentAt: now}
}

func (c *reliableChannel) ack(seq uint16) {
	delete(c.unacked, seq)
}

// resend calls fn for every unacknowledged datagram older than interval.
func (c *reliableChannel) resend(now time.Time, interval time.Duration, fn func([]byte)) {
	for _, o := range c.unacked {
		if now.Sub(o.sentAt) >= interval {
			o.sentAt = now
			fn(o.datagram)
		}
	}
}

func (c *reliableChannel) inFlight() int { return len(c.unacked) }

// receive accepts a reliable payload and appends every payload that is now
// deliverable in order to dst.
func (c *reliableChannel) receive(seq uint16, payload []byte, dst [][]byte) ([][]byte, recvResult) {
	switch {
	case seq == c.expected:
		dst = append(dst, payload)
		c.expected++
		for {
			next, ok := c.held[c.expected]
			if !ok {
				break
			}
			delete(c.held, c.expected)
			dst = append(dst, next)
			c.expected++
		}
		return dst, recvDelivered
	case !seqNewer(seq, c.expected):
		return dst, recvDuplicate
	case uint16(seq-c.expected) > maxHeld:
		return dst, recvTooFar
	}
	if _, dup := c.held[seq]; dup {
		return dst, recvDuplicate
	}
	c.held[seq] = payload
	return dst, recvHeld
}
