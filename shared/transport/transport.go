// Package transport moves opaque payloads between one server and many
// clients. It performs the password handshake, hands out client ids and turns
// link activity into Connected, Disconnected and Message events.
//
// Three backends share the same semantics: UDP with its own reliability layer,
// WebSocket, and an in-process memory hub for tests.
package transport

import (
	"fmt"
	"strings"
	"time"

	"github.com/automoto/netsnap/shared/identity"
	"github.com/automoto/netsnap/shared/metrics"
	"go.uber.org/zap"
)

// DeliveryMethod selects the delivery guarantee of a send.
type DeliveryMethod uint8

const (
	// ReliableOrdered payloads arrive exactly once and in send order.
	ReliableOrdered DeliveryMethod = iota
	// UnreliableSequenced payloads may be lost; anything older than the
	// newest one already delivered is discarded.
	UnreliableSequenced
)

func (d DeliveryMethod) String() string {
	switch d {
	case ReliableOrdered:
		return "reliable_ordered"
	case UnreliableSequenced:
		return "unreliable_sequenced"
	default:
		return fmt.Sprintf("delivery(%d)", uint8(d))
	}
}

type EventKind int

const (
	EventConnected EventKind = iota
	EventDisconnected
	EventMessage
)

func (k EventKind) String() string {
	switch k {
	case EventConnected:
		return "connected"
	case EventDisconnected:
		return "disconnected"
	case EventMessage:
		return "message"
	default:
		return "unknown"
	}
}

// Event is produced by Receive. On the client, ID is only meaningful for
// EventConnected.
type Event struct {
	Kind    EventKind
	ID      identity.NetID
	Payload []byte
}

// ClientTransport is the client side of a connection to one server.
type ClientTransport interface {
	// Connect starts the handshake without blocking. It fails only when addr
	// cannot be resolved.
	Connect(addr string) error
	// Poll performs pending I/O. Call it once per tick before Receive.
	Poll()
	// Receive appends every pending event to dst.
	Receive(dst []Event) []Event
	Send(payload []byte, delivery DeliveryMethod)
	IsConnected() bool
	ID() identity.NetID
	// Disconnect notifies the server and drops the connection.
	Disconnect()
	Close() error
}

// ServerTransport is the listening side.
type ServerTransport interface {
	Poll()
	Receive(dst []Event) []Event
	Send(id identity.NetID, payload []byte, delivery DeliveryMethod)
	SendToAll(payload []byte, delivery DeliveryMethod)
	SendToAllExcept(excluded identity.NetID, payload []byte, delivery DeliveryMethod)
	// GenerateID returns a fresh id for a server-owned object.
	GenerateID() (identity.NetID, error)
	Addr() string
	Close() error
}

// Kind names a transport backend.
type Kind string

const (
	UDP       Kind = "udp"
	WebSocket Kind = "websocket"
	Memory    Kind = "memory"
)

func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case UDP, WebSocket, Memory:
		return k, nil
	case "ws":
		return WebSocket, nil
	default:
		return "", fmt.Errorf("unknown transport %q (want udp, websocket or memory)", s)
	}
}

// Listen binds a server of the given kind. Memory servers register on the
// default hub under addr.
func Listen(kind Kind, addr string, cfg Config) (*Server, error) {
	switch kind {
	case UDP:
		return ListenUDP(addr, cfg)
	case WebSocket:
		return ListenWebSocket(addr, cfg)
	case Memory:
		return DefaultHub.Listen(addr, cfg)
	default:
		return nil, fmt.Errorf("listen: unknown transport %q", kind)
	}
}

// NewClient returns an unconnected client of the given kind.
func NewClient(kind Kind, cfg Config) (*Client, error) {
	switch kind {
	case UDP:
		return NewUDPClient(cfg), nil
	case WebSocket:
		return NewWebSocketClient(cfg), nil
	case Memory:
		return DefaultHub.NewClient(cfg), nil
	default:
		return nil, fmt.Errorf("client: unknown transport %q", kind)
	}
}

type Config struct {
	// Password gates the handshake when non-empty.
	Password string
	// ProtocolID prefixes every UDP datagram; others are ignored.
	ProtocolID uint32

	HeartbeatInterval time.Duration
	IdleTimeout       time.Duration
	ResendInterval    time.Duration
	// QueueSize bounds the channel between socket goroutines and Poll.
	QueueSize int

	Logger  *zap.SugaredLogger
	Metrics *metrics.Metrics

	clock func() time.Time
}

const DefaultProtocolID uint32 = 0x6e736e70

func DefaultConfig() Config {
	return Config{
		ProtocolID:        DefaultProtocolID,
		HeartbeatInterval: time.Second,
		IdleTimeout:       5 * time.Second,
		ResendInterval:    100 * time.Millisecond,
		QueueSize:         1024,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.ProtocolID == 0 {
		c.ProtocolID = d.ProtocolID
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = d.HeartbeatInterval
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = d.IdleTimeout
	}
	if c.ResendInterval <= 0 {
		c.ResendInterval = d.ResendInterval
	}
	if c.QueueSize <= 0 {
		c.QueueSize = d.QueueSize
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop().Sugar()
	}
	if c.clock == nil {
		c.clock = time.Now
	}
	return c
}
