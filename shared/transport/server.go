package transport

import (
	"errors"

	"github.com/automoto/netsnap/shared/identity"
	"github.com/automoto/netsnap/shared/metrics"
	"go.uber.org/zap"
)

// Server implements ServerTransport on top of any backend link.
// All methods must be called from the goroutine that drives Poll.
type Server struct {
	link    serverLink
	cfg     Config
	log     *zap.SugaredLogger
	ids     *identity.Allocator
	peers   *identity.Registry[string]
	pending []Event
	scratch []linkEvent
}

func newServer(link serverLink, cfg Config) *Server {
	return &Server{
		link:  link,
		cfg:   cfg,
		log:   cfg.Logger,
		ids:   identity.NewAllocator(),
		peers: identity.NewRegistry[string](),
	}
}

func (s *Server) Poll() {
	s.scratch = s.link.poll(s.scratch[:0])
	for _, ev := range s.scratch {
		s.handle(ev)
	}
	clear(s.scratch)
}

func (s *Server) handle(ev linkEvent) {
	id, state, known := s.peers.Lookup(ev.peer)

	switch ev.kind {
	case linkPacket:
		switch {
		case !known:
			s.handshake(ev.peer, ev.payload)
		case state == identity.StateConnecting:
			// The first traffic after the reply establishes the connection.
			s.establish(ev.peer)
			s.pending = append(s.pending, Event{Kind: EventMessage, ID: id, Payload: ev.payload})
		default:
			s.pending = append(s.pending, Event{Kind: EventMessage, ID: id, Payload: ev.payload})
		}
	case linkAlive:
		if known && state == identity.StateConnecting {
			s.establish(ev.peer)
		}
	case linkTimeout, linkClosed:
		if !known {
			return
		}
		s.peers.Remove(ev.peer)
		if state == identity.StateConnected {
			s.cfg.Metrics.ConnectionClosed()
			s.log.Infow("peer disconnected", "id", id, "peer", ev.peer, "timeout", ev.kind == linkTimeout)
			s.pending = append(s.pending, Event{Kind: EventDisconnected, ID: id})
		} else {
			s.log.Debugw("handshake abandoned", "id", id, "peer", ev.peer)
		}
	}
}

func (s *Server) handshake(peer string, payload []byte) {
	if err := checkBid(payload, s.cfg.Password); err != nil {
		reason := metrics.DropMalformed
		if errors.Is(err, ErrWrongPassword) {
			reason = metrics.DropRejected
		}
		s.cfg.Metrics.Dropped(reason)
		s.log.Warnw("connection bid rejected", "peer", peer, "error", err)
		s.link.drop(peer)
		return
	}

	id, err := s.ids.NextClient()
	if err != nil {
		s.cfg.Metrics.Dropped(metrics.DropRejected)
		s.log.Errorw("connection bid rejected", "peer", peer, "error", err)
		s.link.drop(peer)
		return
	}

	s.peers.Begin(peer, id)
	s.link.sendTo(peer, encodeReply(id), ReliableOrdered)
	s.log.Debugw("handshake reply sent", "peer", peer, "id", id)
}

func (s *Server) establish(peer string) {
	id, ok := s.peers.Promote(peer)
	if !ok {
		return
	}
	s.cfg.Metrics.ConnectionOpened()
	s.log.Infow("peer connected", "id", id, "peer", peer)
	s.pending = append(s.pending, Event{Kind: EventConnected, ID: id})
}

func (s *Server) Receive(dst []Event) []Event {
	dst = append(dst, s.pending...)
	clear(s.pending)
	s.pending = s.pending[:0]
	return dst
}

func (s *Server) Send(id identity.NetID, payload []byte, delivery DeliveryMethod) {
	peer, ok := s.peers.Addr(id)
	if !ok {
		s.log.Debugw("send to unknown id", "id", id)
		return
	}
	s.link.sendTo(peer, payload, delivery)
}

func (s *Server) SendToAll(payload []byte, delivery DeliveryMethod) {
	for _, id := range s.peers.Connected() {
		s.Send(id, payload, delivery)
	}
}

func (s *Server) SendToAllExcept(excluded identity.NetID, payload []byte, delivery DeliveryMethod) {
	for _, id := range s.peers.Connected() {
		if id != excluded {
			s.Send(id, payload, delivery)
		}
	}
}

func (s *Server) GenerateID() (identity.NetID, error) {
	return s.ids.NextObject()
}

// Kick disconnects a connected client and reports it through Receive like
// any other disconnect.
func (s *Server) Kick(id identity.NetID) bool {
	peer, ok := s.peers.Addr(id)
	if !ok {
		return false
	}
	s.link.kick(peer)
	s.handle(linkEvent{kind: linkClosed, peer: peer})
	return true
}

func (s *Server) Addr() string { return s.link.addr() }

func (s *Server) Close() error {
	for _, id := range s.peers.Connected() {
		if peer, ok := s.peers.Addr(id); ok {
			s.link.kick(peer)
		}
	}
	return s.link.close()
}
