package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/automoto/netsnap/shared/metrics"
	"github.com/automoto/netsnap/shared/wire"
	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// WebSocketPath is where the WebSocket backend accepts connections.
const WebSocketPath = "/ws"

const (
	wsHeaderSize   = 3
	wsWriteTimeout = 5 * time.Second
)

// Every binary frame starts with kind (u8) and sequence (u16) so unreliable
// sequenced payloads can still be discarded when stale.
func encodeFrame(kind uint8, seq uint16, payload []byte) []byte {
	w := wire.NewWriter(wsHeaderSize + len(payload))
	w.U8(kind)
	w.U16(seq)
	w.Raw(payload)
	return w.Bytes()
}

func decodeFrame(data []byte) (udpHeader, []byte, error) {
	r := wire.NewReader(data)
	h := udpHeader{kind: r.U8(), seq: r.U16()}
	if err := r.Err(); err != nil {
		return udpHeader{}, nil, err
	}
	switch h.kind {
	case pktReliable, pktUnreliable, pktHeartbeat, pktDisconnect:
		return h, r.Rest(), nil
	default:
		return udpHeader{}, nil, fmt.Errorf("frame kind %d: %w", h.kind, wire.ErrUnknownTag)
	}
}

type wsPeer struct {
	key    string
	out    chan []byte
	cancel context.CancelFunc
	live   liveness
	seqIn  sequencer
	seqOut sequencer
	gone   bool
}

type wsInbound struct {
	peer   *wsPeer
	data   []byte
	closed bool
}

// writeLoop sends queued frames until out is closed or ctx ends.
func writeLoop(ctx context.Context, conn *websocket.Conn, out <-chan []byte, log *zap.SugaredLogger) {
	for {
		select {
		case <-ctx.Done():
			_ = conn.CloseNow()
			return
		case frame, ok := <-out:
			if !ok {
				_ = conn.Close(websocket.StatusNormalClosure, "")
				return
			}
			wctx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
			err := conn.Write(wctx, websocket.MessageBinary, frame)
			cancel()
			if err != nil {
				log.Debugw("websocket write", "error", err)
				_ = conn.CloseNow()
				return
			}
		}
	}
}

// readLoop forwards binary frames until the connection fails, then reports
// the close.
func readLoop(ctx context.Context, conn *websocket.Conn, peer *wsPeer, in chan<- wsInbound) {
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			break
		}
		if typ != websocket.MessageBinary {
			continue
		}
		select {
		case in <- wsInbound{peer: peer, data: data}:
		case <-ctx.Done():
			return
		}
	}
	select {
	case in <- wsInbound{peer: peer, closed: true}:
	case <-ctx.Done():
	}
}

type wsServerLink struct {
	cfg      Config
	log      *zap.SugaredLogger
	ln       net.Listener
	srv      *http.Server
	incoming chan wsInbound
	peers    map[string]*wsPeer
	nextID   atomic.Uint64

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// ListenWebSocket serves WebSocket connections on addr at WebSocketPath.
func ListenWebSocket(addr string, cfg Config) (*Server, error) {
	cfg = cfg.withDefaults()
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("bind %s: %w", addr, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	l := &wsServerLink{
		cfg:      cfg,
		log:      cfg.Logger,
		ln:       ln,
		incoming: make(chan wsInbound, cfg.QueueSize),
		peers:    make(map[string]*wsPeer),
		ctx:      ctx,
		cancel:   cancel,
	}

	r := chi.NewRouter()
	r.Get(WebSocketPath, l.accept)
	l.srv = &http.Server{Handler: r, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := l.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.log.Errorw("websocket listener stopped", "error", err)
		}
	}()
	cfg.Logger.Infow("websocket transport listening", "addr", ln.Addr())
	return newServer(l, cfg), nil
}

func (l *wsServerLink) accept(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		l.log.Debugw("websocket accept", "remote", r.RemoteAddr, "error", err)
		return
	}
	l.wg.Add(1)
	defer l.wg.Done()

	ctx, cancel := context.WithCancel(l.ctx)
	defer cancel()

	p := &wsPeer{
		key:    fmt.Sprintf("ws-%d-%s", l.nextID.Add(1), r.RemoteAddr),
		out:    make(chan []byte, l.cfg.QueueSize),
		cancel: cancel,
	}
	go writeLoop(ctx, conn, p.out, l.log)
	readLoop(ctx, conn, p, l.incoming)
	_ = conn.CloseNow()
}

func (l *wsServerLink) poll(dst []linkEvent) []linkEvent {
	now := l.cfg.clock()
drain:
	for {
		select {
		case in := <-l.incoming:
			dst = l.process(dst, in, now)
		default:
			break drain
		}
	}

	for key, p := range l.peers {
		if p.live.expired(now, l.cfg.IdleTimeout) {
			l.forget(key, p)
			dst = append(dst, linkEvent{kind: linkTimeout, peer: key})
			continue
		}
		if p.live.needsHeartbeat(now, l.cfg.HeartbeatInterval) {
			l.enqueue(p, encodeFrame(pktHeartbeat, 0, nil), now)
		}
	}
	return dst
}

func (l *wsServerLink) process(dst []linkEvent, in wsInbound, now time.Time) []linkEvent {
	p := in.peer
	known := l.peers[p.key] == p

	if in.closed {
		if known {
			delete(l.peers, p.key)
			dst = append(dst, linkEvent{kind: linkClosed, peer: p.key})
		}
		return dst
	}

	if p.gone {
		return dst
	}
	h, payload, err := decodeFrame(in.data)
	if err != nil {
		l.cfg.Metrics.Dropped(metrics.DropMalformed)
		return dst
	}
	if !known {
		if h.kind != pktReliable && h.kind != pktUnreliable {
			l.cfg.Metrics.Dropped(metrics.DropUnknownPeer)
			return dst
		}
		p.live = newLiveness(now)
		l.peers[p.key] = p
	}
	p.live.heard(now)
	return appendFrameEvent(dst, p, h, payload, l.cfg.Metrics, func() {
		l.forget(p.key, p)
	})
}

// appendFrameEvent turns one decoded frame into link events for both ends.
func appendFrameEvent(dst []linkEvent, p *wsPeer, h udpHeader, payload []byte, m *metrics.Metrics, closed func()) []linkEvent {
	switch h.kind {
	case pktReliable:
		m.PacketReceived(ReliableOrdered.String())
		dst = append(dst, linkEvent{kind: linkPacket, peer: p.key, payload: payload})
	case pktUnreliable:
		if !p.seqIn.accept(h.seq) {
			m.Dropped(metrics.DropStale)
			return dst
		}
		m.PacketReceived(UnreliableSequenced.String())
		dst = append(dst, linkEvent{kind: linkPacket, peer: p.key, payload: payload})
	case pktHeartbeat:
		dst = append(dst, linkEvent{kind: linkAlive, peer: p.key})
	case pktDisconnect:
		closed()
		dst = append(dst, linkEvent{kind: linkClosed, peer: p.key})
	}
	return dst
}

func (l *wsServerLink) enqueue(p *wsPeer, frame []byte, now time.Time) {
	select {
	case p.out <- frame:
		p.live.wrote(now)
	default:
		l.cfg.Metrics.Dropped(metrics.DropOverflow)
		l.log.Warnw("websocket send queue full", "peer", p.key)
	}
}

// forget removes a known peer and lets its writer flush and close.
func (l *wsServerLink) forget(key string, p *wsPeer) {
	delete(l.peers, key)
	p.gone = true
	close(p.out)
}

func (l *wsServerLink) sendTo(peer string, payload []byte, delivery DeliveryMethod) {
	p := l.peers[peer]
	if p == nil {
		return
	}
	l.cfg.Metrics.PacketSent(delivery.String())
	if delivery == ReliableOrdered {
		l.enqueue(p, encodeFrame(pktReliable, 0, payload), l.cfg.clock())
		return
	}
	l.enqueue(p, encodeFrame(pktUnreliable, p.seqOut.stamp(), payload), l.cfg.clock())
}

func (l *wsServerLink) drop(peer string) {
	if p := l.peers[peer]; p != nil {
		l.forget(peer, p)
	}
}

func (l *wsServerLink) kick(peer string) {
	if p := l.peers[peer]; p != nil {
		l.enqueue(p, encodeFrame(pktDisconnect, 0, nil), l.cfg.clock())
		l.forget(peer, p)
	}
}

func (l *wsServerLink) addr() string { return l.ln.Addr().String() }

func (l *wsServerLink) close() error {
	var err error
	l.closeOnce.Do(func() {
		err = l.srv.Close()
		l.cancel()
		l.wg.Wait()
	})
	return err
}

// NewWebSocketClient returns a client that dials ws://addr/ws on Connect.
func NewWebSocketClient(cfg Config) *Client {
	cfg = cfg.withDefaults()
	return newClient(&wsClientLink{cfg: cfg, log: cfg.Logger}, cfg)
}

type wsClientLink struct {
	cfg      Config
	log      *zap.SugaredLogger
	peer     *wsPeer
	incoming chan wsInbound
	// greeted is set once the first packet from the server was answered.
	greeted bool
}

func (l *wsClientLink) dial(addr string) error {
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &wsPeer{
		key:    addr,
		out:    make(chan []byte, l.cfg.QueueSize),
		cancel: cancel,
		live:   newLiveness(l.cfg.clock()),
	}
	in := make(chan wsInbound, l.cfg.QueueSize)
	l.peer, l.incoming = p, in
	l.greeted = false

	url := "ws://" + addr + WebSocketPath
	go func() {
		defer cancel()
		dctx, dcancel := context.WithTimeout(ctx, l.cfg.IdleTimeout)
		conn, _, err := websocket.Dial(dctx, url, nil)
		dcancel()
		if err != nil {
			l.log.Infow("websocket dial failed", "url", url, "error", err)
			select {
			case in <- wsInbound{peer: p, closed: true}:
			case <-ctx.Done():
			}
			return
		}
		go writeLoop(ctx, conn, p.out, l.log)
		readLoop(ctx, conn, p, in)
		_ = conn.CloseNow()
	}()
	return nil
}

func (l *wsClientLink) poll(dst []linkEvent) []linkEvent {
	p := l.peer
	if p == nil {
		return dst
	}
	now := l.cfg.clock()
	n := len(dst)
drain:
	for l.peer == p {
		select {
		case in := <-l.incoming:
			if in.closed {
				l.teardown()
				return append(dst, linkEvent{kind: linkClosed, peer: p.key})
			}
			h, payload, err := decodeFrame(in.data)
			if err != nil {
				l.cfg.Metrics.Dropped(metrics.DropMalformed)
				continue
			}
			p.live.heard(now)
			dst = appendFrameEvent(dst, p, h, payload, l.cfg.Metrics, l.teardown)
		default:
			break drain
		}
	}
	if l.peer != p {
		return dst
	}

	if p.live.expired(now, l.cfg.IdleTimeout) {
		l.teardown()
		return append(dst, linkEvent{kind: linkTimeout, peer: p.key})
	}
	// The first packet (the handshake reply) is answered with an alive
	// frame so the server can establish without waiting for traffic.
	if !l.greeted && receivedPacket(dst[n:]) {
		l.greeted = true
		l.enqueue(encodeFrame(pktHeartbeat, 0, nil), now)
		return dst
	}
	if p.live.needsHeartbeat(now, l.cfg.HeartbeatInterval) {
		l.enqueue(encodeFrame(pktHeartbeat, 0, nil), now)
	}
	return dst
}

func receivedPacket(evs []linkEvent) bool {
	for _, ev := range evs {
		if ev.kind == linkPacket {
			return true
		}
	}
	return false
}

func (l *wsClientLink) enqueue(frame []byte, now time.Time) {
	select {
	case l.peer.out <- frame:
		l.peer.live.wrote(now)
	default:
		l.cfg.Metrics.Dropped(metrics.DropOverflow)
	}
}

func (l *wsClientLink) send(payload []byte, delivery DeliveryMethod) {
	if l.peer == nil {
		return
	}
	l.cfg.Metrics.PacketSent(delivery.String())
	if delivery == ReliableOrdered {
		l.enqueue(encodeFrame(pktReliable, 0, payload), l.cfg.clock())
		return
	}
	l.enqueue(encodeFrame(pktUnreliable, l.peer.seqOut.stamp(), payload), l.cfg.clock())
}

func (l *wsClientLink) teardown() {
	if l.peer == nil {
		return
	}
	l.peer.cancel()
	l.peer, l.incoming = nil, nil
}

// disconnect flushes a disconnect notice before the writer closes the socket.
func (l *wsClientLink) disconnect() {
	p := l.peer
	if p == nil {
		return
	}
	l.enqueue(encodeFrame(pktDisconnect, 0, nil), l.cfg.clock())
	close(p.out)
	time.AfterFunc(wsWriteTimeout, p.cancel)
	l.peer, l.incoming = nil, nil
}

func (l *wsClientLink) close() error {
	l.disconnect()
	return nil
}
