package transport

import (
	"fmt"
	"sync"

	"github.com/automoto/netsnap/shared/metrics"
)

// MemoryHub connects in-process servers and clients by name. It never loses
// or reorders payloads, so both delivery methods behave alike.
type MemoryHub struct {
	mu      sync.Mutex
	servers map[string]*memServerLink
	nextID  int
}

// DefaultHub backs Listen and NewClient for the Memory kind.
var DefaultHub = NewMemoryHub()

func NewMemoryHub() *MemoryHub {
	return &MemoryHub{servers: make(map[string]*memServerLink)}
}

type memFrame struct {
	kind    linkKind
	peer    string
	payload []byte
}

// Listen registers a server under name.
func (h *MemoryHub) Listen(name string, cfg Config) (*Server, error) {
	cfg = cfg.withDefaults()

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.servers[name]; ok {
		return nil, fmt.Errorf("memory transport: %q already in use", name)
	}
	link := &memServerLink{
		hub:     h,
		name:    name,
		cfg:     cfg,
		inbox:   make(chan memFrame, cfg.QueueSize),
		clients: make(map[string]*memClientLink),
	}
	h.servers[name] = link
	return newServer(link, cfg), nil
}

func (h *MemoryHub) NewClient(cfg Config) *Client {
	cfg = cfg.withDefaults()

	h.mu.Lock()
	h.nextID++
	key := fmt.Sprintf("mem-%d", h.nextID)
	h.mu.Unlock()

	return newClient(&memClientLink{
		hub:   h,
		key:   key,
		cfg:   cfg,
		inbox: make(chan memFrame, cfg.QueueSize),
	}, cfg)
}

// Drop severs c from its server as if the connection had timed out on both
// ends.
func (h *MemoryHub) Drop(c *Client) {
	link, ok := c.link.(*memClientLink)
	if !ok {
		return
	}
	h.mu.Lock()
	srv := link.server
	link.server = nil
	if srv != nil {
		delete(srv.clients, link.key)
	}
	h.mu.Unlock()

	if srv != nil {
		deliver(srv.inbox, memFrame{kind: linkTimeout, peer: link.key}, srv.cfg.Metrics)
	}
	deliver(link.inbox, memFrame{kind: linkTimeout}, link.cfg.Metrics)
}

func deliver(ch chan memFrame, f memFrame, m *metrics.Metrics) {
	select {
	case ch <- f:
	default:
		m.Dropped(metrics.DropOverflow)
	}
}

func drainFrames(ch chan memFrame, dst []linkEvent, m *metrics.Metrics) []linkEvent {
	for {
		select {
		case f := <-ch:
			if f.kind == linkPacket {
				m.PacketReceived(ReliableOrdered.String())
			}
			dst = append(dst, linkEvent{kind: f.kind, peer: f.peer, payload: f.payload})
		default:
			return dst
		}
	}
}

type memServerLink struct {
	hub     *MemoryHub
	name    string
	cfg     Config
	inbox   chan memFrame
	clients map[string]*memClientLink // guarded by hub.mu
	closed  bool
}

func (l *memServerLink) poll(dst []linkEvent) []linkEvent {
	return drainFrames(l.inbox, dst, l.cfg.Metrics)
}

func (l *memServerLink) sendTo(peer string, payload []byte, delivery DeliveryMethod) {
	l.hub.mu.Lock()
	c := l.clients[peer]
	l.hub.mu.Unlock()
	if c == nil {
		return
	}
	l.cfg.Metrics.PacketSent(delivery.String())
	deliver(c.inbox, memFrame{kind: linkPacket, payload: clone(payload)}, l.cfg.Metrics)
}

// Memory links have no idle timer, so a rejected client is told right away.
func (l *memServerLink) drop(peer string) {
	l.kick(peer)
}

func (l *memServerLink) kick(peer string) {
	l.hub.mu.Lock()
	c := l.clients[peer]
	if c != nil {
		c.server = nil
		delete(l.clients, peer)
	}
	l.hub.mu.Unlock()
	if c != nil {
		deliver(c.inbox, memFrame{kind: linkClosed}, l.cfg.Metrics)
	}
}

func (l *memServerLink) addr() string { return l.name }

func (l *memServerLink) close() error {
	l.hub.mu.Lock()
	defer l.hub.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	for key, c := range l.clients {
		c.server = nil
		delete(l.clients, key)
		deliver(c.inbox, memFrame{kind: linkClosed}, l.cfg.Metrics)
	}
	delete(l.hub.servers, l.name)
	return nil
}

type memClientLink struct {
	hub    *MemoryHub
	key    string
	cfg    Config
	inbox  chan memFrame
	server *memServerLink // guarded by hub.mu
}

func (l *memClientLink) dial(addr string) error {
	l.hub.mu.Lock()
	defer l.hub.mu.Unlock()
	srv, ok := l.hub.servers[addr]
	if !ok {
		return fmt.Errorf("memory transport: no server named %q", addr)
	}
	srv.clients[l.key] = l
	l.server = srv
	return nil
}

// Received packets are acknowledged with an alive frame the way the UDP
// backend acks reliable datagrams, which lets the server establish the
// connection without waiting for application traffic.
func (l *memClientLink) poll(dst []linkEvent) []linkEvent {
	n := len(dst)
	dst = drainFrames(l.inbox, dst, l.cfg.Metrics)

	acked := false
	for _, ev := range dst[n:] {
		if ev.kind == linkPacket {
			acked = true
		}
	}
	if !acked {
		return dst
	}
	l.hub.mu.Lock()
	srv := l.server
	l.hub.mu.Unlock()
	if srv != nil {
		deliver(srv.inbox, memFrame{kind: linkAlive, peer: l.key}, l.cfg.Metrics)
	}
	return dst
}

func (l *memClientLink) send(payload []byte, delivery DeliveryMethod) {
	l.hub.mu.Lock()
	srv := l.server
	l.hub.mu.Unlock()
	if srv == nil {
		return
	}
	l.cfg.Metrics.PacketSent(delivery.String())
	deliver(srv.inbox, memFrame{kind: linkPacket, peer: l.key, payload: clone(payload)}, l.cfg.Metrics)
}

func (l *memClientLink) disconnect() {
	l.hub.mu.Lock()
	srv := l.server
	l.server = nil
	if srv != nil {
		delete(srv.clients, l.key)
	}
	l.hub.mu.Unlock()
	if srv != nil {
		deliver(srv.inbox, memFrame{kind: linkClosed, peer: l.key}, l.cfg.Metrics)
	}
}

func (l *memClientLink) close() error {
	l.disconnect()
	return nil
}

func clone(b []byte) []byte {
	return append([]byte(nil), b...)
}
