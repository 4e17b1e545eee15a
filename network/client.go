package network

import (
	"fmt"
	"slices"

	"github.com/automoto/netsnap/shared/identity"
	"github.com/automoto/netsnap/shared/logging"
	"github.com/automoto/netsnap/shared/metrics"
	"github.com/automoto/netsnap/shared/protocol"
	"github.com/automoto/netsnap/shared/transport"
	"go.uber.org/zap"
)

// Client is the protocol session on top of a client transport. It decodes
// server packets into events and tracks which players are known.
// It is not safe for concurrent use; drive it from the game loop.
type Client struct {
	transport transport.ClientTransport
	log       *zap.SugaredLogger
	metrics   *metrics.Metrics

	// embedded means id 0 belongs to a client sharing the server's process.
	embedded bool
	players  map[identity.NetID]struct{}
	raw      []transport.Event
	events   []Event
}

func NewClient(t transport.ClientTransport, log *zap.SugaredLogger, m *metrics.Metrics) *Client {
	return &Client{
		transport: t,
		log:       logging.OrNop(log),
		metrics:   m,
		embedded:  true,
		players:   make(map[identity.NetID]struct{}),
	}
}

// SetEmbeddedHost controls whether id 0 is treated as the in-process host.
// Clients of a dedicated server turn it off so the first joiner still
// receives snapshots.
func (c *Client) SetEmbeddedHost(on bool) { c.embedded = on }

func (c *Client) ID() identity.NetID { return c.transport.ID() }

func (c *Client) IsConnected() bool { return c.transport.IsConnected() }

// IsHost reports whether this client was the first to join a server running
// in the same process. The host sees authoritative poses directly.
func (c *Client) IsHost() bool {
	return c.embedded && c.transport.IsConnected() && c.transport.ID() == 0
}

func (c *Client) Connect(addr string) error {
	return c.transport.Connect(addr)
}

// Disconnect notifies the server and forgets every known player.
func (c *Client) Disconnect() {
	c.transport.Disconnect()
	c.Reset()
}

// Send encodes p and hands it to the transport. Delivery is fire-and-forget.
func (c *Client) Send(p protocol.ClientPacket, delivery transport.DeliveryMethod) error {
	data, err := protocol.EncodeClient(p)
	if err != nil {
		return fmt.Errorf("send: %w", err)
	}
	c.transport.Send(data, delivery)
	return nil
}

// Update polls the transport and returns the decoded events in arrival
// order. Call it once per tick; the returned slice is reused by the next call.
func (c *Client) Update() []Event {
	c.transport.Poll()
	c.raw = c.transport.Receive(c.raw[:0])
	c.events = c.events[:0]

	for _, ev := range c.raw {
		switch ev.Kind {
		case transport.EventConnected:
			c.players[ev.ID] = struct{}{}
			c.events = append(c.events, Connected{ID: ev.ID})
		case transport.EventDisconnected:
			c.Reset()
			c.events = append(c.events, Disconnected{})
		case transport.EventMessage:
			c.message(ev.Payload)
		}
	}
	clear(c.raw)
	return c.events
}

func (c *Client) message(payload []byte) {
	p, err := protocol.DecodeServer(payload)
	if err != nil {
		c.metrics.Dropped(metrics.DropMalformed)
		c.log.Warnw("dropping malformed server packet", "bytes", len(payload), "error", err)
		return
	}

	switch p := p.(type) {
	case protocol.PlayerConnected:
		c.players[p.ID] = struct{}{}
		c.events = append(c.events, PlayerConnected{ID: p.ID})
	case protocol.PlayerDisconnected:
		delete(c.players, p.ID)
		c.events = append(c.events, PlayerDisconnected{ID: p.ID})
	case protocol.State:
		for _, s := range p.Spawns {
			if s.Kind == protocol.KindPlayer {
				c.players[s.ID] = struct{}{}
			}
		}
		c.events = append(c.events, State{Spawns: p.Spawns})
	case protocol.Snapshot:
		// The host already renders the authoritative world.
		if c.IsHost() {
			return
		}
		c.events = append(c.events, Snapshot{Snapshot: p})
	case protocol.SpawnObstacle:
		c.events = append(c.events, SpawnObstacle{ID: p.ID, Position: p.Position})
	}
}

// Players returns every known player id, including our own, in ascending
// order.
func (c *Client) Players() []identity.NetID {
	ids := make([]identity.NetID, 0, len(c.players))
	for id := range c.players {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Reset forgets every known player.
func (c *Client) Reset() {
	clear(c.players)
}

func (c *Client) Close() error {
	c.Reset()
	return c.transport.Close()
}
