package transport

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
	"sync"

	"github.com/automoto/netsnap/shared/metrics"
	"github.com/automoto/netsnap/shared/wire"
	"go.uber.org/zap"
)

// Packet kinds shared by the UDP datagram header and WebSocket frames.
const (
	pktUnreliable uint8 = iota
	pktReliable
	pktAck
	pktHeartbeat
	pktDisconnect
)

// udpHeaderSize is protocol id (u32), kind (u8) and sequence (u16).
const udpHeaderSize = 7

const maxDatagram = 64 * 1024

type udpHeader struct {
	kind uint8
	seq  uint16
}

func encodeDatagram(protocolID uint32, kind uint8, seq uint16, payload []byte) []byte {
	w := wire.NewWriter(udpHeaderSize + len(payload))
	w.U32(protocolID)
	w.U8(kind)
	w.U16(seq)
	w.Raw(payload)
	return w.Bytes()
}

var errForeignProtocol = errors.New("foreign protocol id")

func decodeDatagram(data []byte, protocolID uint32) (udpHeader, []byte, error) {
	r := wire.NewReader(data)
	id := r.U32()
	h := udpHeader{kind: r.U8(), seq: r.U16()}
	if err := r.Err(); err != nil {
		return udpHeader{}, nil, err
	}
	if id != protocolID {
		return udpHeader{}, nil, errForeignProtocol
	}
	if h.kind > pktDisconnect {
		return udpHeader{}, nil, fmt.Errorf("packet kind %d: %w", h.kind, wire.ErrUnknownTag)
	}
	return h, r.Rest(), nil
}

type udpPeer struct {
	addr     netip.AddrPort
	live     liveness
	reliable *reliableChannel
	seqOut   sequencer
	seqIn    sequencer
}

type udpDatagram struct {
	from netip.AddrPort
	data []byte
}

// udpLink owns one socket. A reader goroutine feeds datagrams into incoming;
// everything else runs on the goroutine calling poll.
type udpLink struct {
	conn     *net.UDPConn
	cfg      Config
	log      *zap.SugaredLogger
	accept   bool
	incoming chan udpDatagram
	peers    map[string]*udpPeer
	ready    [][]byte

	closeOnce sync.Once
	wg        sync.WaitGroup
}

func newUDPLink(conn *net.UDPConn, cfg Config, accept bool) *udpLink {
	l := &udpLink{
		conn:     conn,
		cfg:      cfg,
		log:      cfg.Logger,
		accept:   accept,
		incoming: make(chan udpDatagram, cfg.QueueSize),
		peers:    make(map[string]*udpPeer),
	}
	l.wg.Add(1)
	go l.readLoop()
	return l
}

func (l *udpLink) readLoop() {
	defer l.wg.Done()
	buf := make([]byte, maxDatagram)
	for {
		n, from, err := l.conn.ReadFromUDPAddrPort(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			l.log.Debugw("udp read", "error", err)
			continue
		}
		d := udpDatagram{
			from: netip.AddrPortFrom(from.Addr().Unmap(), from.Port()),
			data: append([]byte(nil), buf[:n]...),
		}
		select {
		case l.incoming <- d:
		default:
			l.cfg.Metrics.Dropped(metrics.DropOverflow)
		}
	}
}

func (l *udpLink) addPeer(addr netip.AddrPort) *udpPeer {
	p := &udpPeer{
		addr:     addr,
		live:     newLiveness(l.cfg.clock()),
		reliable: newReliableChannel(),
	}
	l.peers[addr.String()] = p
	return p
}

func (l *udpLink) poll(dst []linkEvent) []linkEvent {
	now := l.cfg.clock()
drain:
	for {
		select {
		case d := <-l.incoming:
			dst = l.process(dst, d)
		default:
			break drain
		}
	}

	for key, p := range l.peers {
		if p.live.expired(now, l.cfg.IdleTimeout) {
			delete(l.peers, key)
			dst = append(dst, linkEvent{kind: linkTimeout, peer: key})
			continue
		}
		p.reliable.resend(now, l.cfg.ResendInterval, func(datagram []byte) {
			l.cfg.Metrics.Resent()
			l.writeRaw(p, datagram)
		})
		if p.live.needsHeartbeat(now, l.cfg.HeartbeatInterval) {
			l.write(p, pktHeartbeat, 0, nil)
		}
	}
	return dst
}

func (l *udpLink) process(dst []linkEvent, d udpDatagram) []linkEvent {
	h, payload, err := decodeDatagram(d.data, l.cfg.ProtocolID)
	if err != nil {
		l.cfg.Metrics.Dropped(metrics.DropMalformed)
		return dst
	}

	key := d.from.String()
	p := l.peers[key]
	if p == nil {
		if !l.accept || (h.kind != pktReliable && h.kind != pktUnreliable) {
			l.cfg.Metrics.Dropped(metrics.DropUnknownPeer)
			return dst
		}
		p = l.addPeer(d.from)
	}
	p.live.heard(l.cfg.clock())

	switch h.kind {
	case pktReliable:
		l.write(p, pktAck, h.seq, nil)
		var res recvResult
		l.ready, res = p.reliable.receive(h.seq, payload, l.ready[:0])
		switch res {
		case recvDuplicate:
			l.cfg.Metrics.Dropped(metrics.DropDuplicate)
		case recvTooFar:
			l.cfg.Metrics.Dropped(metrics.DropOverflow)
		}
		for _, b := range l.ready {
			l.cfg.Metrics.PacketReceived(ReliableOrdered.String())
			dst = append(dst, linkEvent{kind: linkPacket, peer: key, payload: b})
		}
		clear(l.ready)
	case pktUnreliable:
		if !p.seqIn.accept(h.seq) {
			l.cfg.Metrics.Dropped(metrics.DropStale)
			return dst
		}
		l.cfg.Metrics.PacketReceived(UnreliableSequenced.String())
		dst = append(dst, linkEvent{kind: linkPacket, peer: key, payload: payload})
	case pktAck:
		p.reliable.ack(h.seq)
		dst = append(dst, linkEvent{kind: linkAlive, peer: key})
	case pktHeartbeat:
		dst = append(dst, linkEvent{kind: linkAlive, peer: key})
	case pktDisconnect:
		delete(l.peers, key)
		dst = append(dst, linkEvent{kind: linkClosed, peer: key})
	}
	return dst
}

func (l *udpLink) write(p *udpPeer, kind uint8, seq uint16, payload []byte) {
	l.writeRaw(p, encodeDatagram(l.cfg.ProtocolID, kind, seq, payload))
}

func (l *udpLink) writeRaw(p *udpPeer, datagram []byte) {
	if _, err := l.conn.WriteToUDPAddrPort(datagram, p.addr); err != nil {
		l.log.Debugw("udp write", "peer", p.addr, "error", err)
	}
	p.live.wrote(l.cfg.clock())
}

func (l *udpLink) sendTo(peer string, payload []byte, delivery DeliveryMethod) {
	p := l.peers[peer]
	if p == nil {
		return
	}
	l.cfg.Metrics.PacketSent(delivery.String())
	switch delivery {
	case ReliableOrdered:
		seq := p.reliable.stamp()
		datagram := encodeDatagram(l.cfg.ProtocolID, pktReliable, seq, payload)
		p.reliable.track(seq, datagram, l.cfg.clock())
		l.writeRaw(p, datagram)
	default:
		l.write(p, pktUnreliable, p.seqOut.stamp(), payload)
	}
}

func (l *udpLink) drop(peer string) {
	delete(l.peers, peer)
}

func (l *udpLink) kick(peer string) {
	if p := l.peers[peer]; p != nil {
		l.write(p, pktDisconnect, 0, nil)
		delete(l.peers, peer)
	}
}

func (l *udpLink) addr() string { return l.conn.LocalAddr().String() }

func (l *udpLink) close() error {
	var err error
	l.closeOnce.Do(func() {
		err = l.conn.Close()
		l.wg.Wait()
	})
	return err
}

// ListenUDP binds a UDP server on addr.
func ListenUDP(addr string, cfg Config) (*Server, error) {
	cfg = cfg.withDefaults()
	ua, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", addr, err)
	}
	conn, err := net.ListenUDP("udp", ua)
	if err != nil {
		return nil, fmt.Errorf("bind %s: %w", addr, err)
	}
	cfg.Logger.Infow("udp transport listening", "addr", conn.LocalAddr())
	return newServer(newUDPLink(conn, cfg, true), cfg), nil
}

// NewUDPClient returns a client whose socket is opened on Connect.
func NewUDPClient(cfg Config) *Client {
	cfg = cfg.withDefaults()
	return newClient(&udpClientLink{cfg: cfg}, cfg)
}

type udpClientLink struct {
	cfg    Config
	sock   *udpLink
	server string
}

func (l *udpClientLink) dial(addr string) error {
	ua, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return err
	}
	ap := ua.AddrPort()
	ap = netip.AddrPortFrom(ap.Addr().Unmap(), ap.Port())

	// Each session gets a fresh socket and reliable stream.
	if l.sock != nil {
		_ = l.sock.close()
		l.sock = nil
	}
	network := "udp6"
	if ap.Addr().Is4() {
		network = "udp4"
	}
	conn, err := net.ListenUDP(network, nil)
	if err != nil {
		return err
	}
	l.sock = newUDPLink(conn, l.cfg, false)
	l.sock.addPeer(ap)
	l.server = ap.String()
	return nil
}

func (l *udpClientLink) poll(dst []linkEvent) []linkEvent {
	if l.sock == nil {
		return dst
	}
	return l.sock.poll(dst)
}

func (l *udpClientLink) send(payload []byte, delivery DeliveryMethod) {
	if l.sock != nil {
		l.sock.sendTo(l.server, payload, delivery)
	}
}

func (l *udpClientLink) disconnect() {
	if l.sock != nil {
		l.sock.kick(l.server)
	}
}

func (l *udpClientLink) close() error {
	if l.sock == nil {
		return nil
	}
	return l.sock.close()
}
