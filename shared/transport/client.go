package transport

import (
	"fmt"

	"github.com/automoto/netsnap/shared/identity"
	"github.com/automoto/netsnap/shared/metrics"
	"go.uber.org/zap"
)

// Client implements ClientTransport on top of any backend link.
type Client struct {
	link    clientLink
	cfg     Config
	log     *zap.SugaredLogger
	state   identity.ConnState
	id      identity.NetID
	pending []Event
	scratch []linkEvent
}

func newClient(link clientLink, cfg Config) *Client {
	return &Client{link: link, cfg: cfg, log: cfg.Logger}
}

func (c *Client) Connect(addr string) error {
	if c.state != identity.StateDisconnected {
		return ErrNotIdle
	}
	if err := c.link.dial(addr); err != nil {
		return fmt.Errorf("connect %s: %w", addr, err)
	}
	c.state = identity.StateConnecting
	c.link.send(encodeBid(c.cfg.Password), ReliableOrdered)
	c.log.Debugw("handshake sent", "addr", addr)
	return nil
}

func (c *Client) Poll() {
	c.scratch = c.link.poll(c.scratch[:0])
	for _, ev := range c.scratch {
		c.handle(ev)
	}
	clear(c.scratch)
}

func (c *Client) handle(ev linkEvent) {
	switch ev.kind {
	case linkPacket:
		switch c.state {
		case identity.StateConnecting:
			id, err := decodeReply(ev.payload)
			if err != nil {
				c.cfg.Metrics.Dropped(metrics.DropMalformed)
				c.log.Warnw("ignoring handshake reply", "error", err)
				return
			}
			c.id = id
			c.state = identity.StateConnected
			c.cfg.Metrics.ConnectionOpened()
			c.log.Infow("connected", "id", id)
			c.pending = append(c.pending, Event{Kind: EventConnected, ID: id})
		case identity.StateConnected:
			c.pending = append(c.pending, Event{Kind: EventMessage, ID: c.id, Payload: ev.payload})
		}
	case linkTimeout, linkClosed:
		if c.state == identity.StateDisconnected {
			return
		}
		if c.state == identity.StateConnected {
			c.cfg.Metrics.ConnectionClosed()
		}
		c.log.Infow("disconnected", "state", c.state, "timeout", ev.kind == linkTimeout)
		c.state = identity.StateDisconnected
		c.pending = append(c.pending, Event{Kind: EventDisconnected})
	}
}

func (c *Client) Receive(dst []Event) []Event {
	dst = append(dst, c.pending...)
	clear(c.pending)
	c.pending = c.pending[:0]
	return dst
}

// Send is a no-op until the handshake completes.
func (c *Client) Send(payload []byte, delivery DeliveryMethod) {
	if c.state != identity.StateConnected {
		return
	}
	c.link.send(payload, delivery)
}

func (c *Client) IsConnected() bool { return c.state == identity.StateConnected }

func (c *Client) ID() identity.NetID { return c.id }

// Disconnect tells the server the client is leaving. No event is emitted
// locally.
func (c *Client) Disconnect() {
	if c.state == identity.StateDisconnected {
		return
	}
	if c.state == identity.StateConnected {
		c.cfg.Metrics.ConnectionClosed()
	}
	c.link.disconnect()
	c.state = identity.StateDisconnected
	c.id = 0
}

func (c *Client) Close() error {
	c.Disconnect()
	return c.link.close()
}
