// Package session turns raw server transport traffic into typed player
// events and encodes outgoing server packets.
package session

import (
	"slices"

	"github.com/automoto/netsnap/shared/identity"
	"github.com/automoto/netsnap/shared/logging"
	"github.com/automoto/netsnap/shared/metrics"
	"github.com/automoto/netsnap/shared/protocol"
	"github.com/automoto/netsnap/shared/transport"
	"go.uber.org/zap"
)

// Server owns a server transport and the set of connected players. It is
// driven from the game loop and is not safe for concurrent use.
type Server struct {
	transport transport.ServerTransport
	log       *zap.SugaredLogger
	metrics   *metrics.Metrics

	players map[identity.NetID]struct{}
	raw     []transport.Event
	events  []Event
}

func NewServer(t transport.ServerTransport, log *zap.SugaredLogger, m *metrics.Metrics) *Server {
	return &Server{
		transport: t,
		log:       logging.OrNop(log),
		metrics:   m,
		players:   make(map[identity.NetID]struct{}),
	}
}

// Update polls the transport and returns decoded events in arrival order.
// The returned slice is reused by the next call.
func (s *Server) Update() []Event {
	s.transport.Poll()
	s.raw = s.transport.Receive(s.raw[:0])
	s.events = s.events[:0]

	for _, ev := range s.raw {
		switch ev.Kind {
		case transport.EventConnected:
			s.players[ev.ID] = struct{}{}
			s.log.Infow("player connected", "id", ev.ID)
			s.events = append(s.events, PlayerConnected{ID: ev.ID})
		case transport.EventDisconnected:
			delete(s.players, ev.ID)
			s.log.Infow("player disconnected", "id", ev.ID)
			s.events = append(s.events, PlayerDisconnected{ID: ev.ID})
		case transport.EventMessage:
			s.message(ev.ID, ev.Payload)
		}
	}
	clear(s.raw)
	return s.events
}

func (s *Server) message(id identity.NetID, payload []byte) {
	p, err := protocol.DecodeClient(payload)
	if err != nil {
		s.metrics.Dropped(metrics.DropMalformed)
		s.log.Warnw("dropping malformed client packet", "id", id, "bytes", len(payload), "error", err)
		return
	}
	switch p := p.(type) {
	case protocol.Ready:
		s.events = append(s.events, PlayerReady{ID: id})
	case protocol.Input:
		s.events = append(s.events, PlayerInput{ID: id, Vector: p.Vector})
	}
}

func (s *Server) encode(p protocol.ServerPacket) ([]byte, bool) {
	data, err := protocol.EncodeServer(p)
	if err != nil {
		s.log.Errorw("encode server packet", "error", err)
		return nil, false
	}
	return data, true
}

func (s *Server) Send(id identity.NetID, p protocol.ServerPacket, delivery transport.DeliveryMethod) {
	if data, ok := s.encode(p); ok {
		s.transport.Send(id, data, delivery)
	}
}

func (s *Server) SendToAll(p protocol.ServerPacket, delivery transport.DeliveryMethod) {
	if data, ok := s.encode(p); ok {
		s.transport.SendToAll(data, delivery)
	}
}

func (s *Server) SendToAllExcept(excluded identity.NetID, p protocol.ServerPacket, delivery transport.DeliveryMethod) {
	if data, ok := s.encode(p); ok {
		s.transport.SendToAllExcept(excluded, data, delivery)
	}
}

// GenerateID allocates an object id from the top of the id space.
func (s *Server) GenerateID() (identity.NetID, error) {
	return s.transport.GenerateID()
}

// Players returns the connected player ids in ascending order.
func (s *Server) Players() []identity.NetID {
	ids := make([]identity.NetID, 0, len(s.players))
	for id := range s.players {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (s *Server) Addr() string { return s.transport.Addr() }

func (s *Server) Close() error {
	clear(s.players)
	return s.transport.Close()
}
