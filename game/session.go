// Package game coordinates one client session: it optionally hosts the
// authoritative server in-process, drives the client protocol each tick and
// keeps the local world in step with what the server announces.
package game

import (
	"errors"
	"fmt"
	"time"

	"github.com/automoto/netsnap/network"
	"github.com/automoto/netsnap/server/core"
	"github.com/automoto/netsnap/shared/identity"
	"github.com/automoto/netsnap/shared/logging"
	"github.com/automoto/netsnap/shared/metrics"
	"github.com/automoto/netsnap/shared/netcomponents"
	"github.com/automoto/netsnap/shared/protocol"
	"github.com/automoto/netsnap/shared/snapshot"
	"github.com/automoto/netsnap/shared/transport"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/yohamta/donburi"
	"go.uber.org/zap"
)

// DefaultInputSendRate matches the server snapshot rate.
const DefaultInputSendRate = 50 * time.Millisecond

var (
	ErrNotHost = errors.New("game: only the host can do that")
	ErrClosed  = errors.New("game: session closed")
)

type Options struct {
	Kind      transport.Kind
	Addr      string
	Transport transport.Config
	// Hub backs the Memory kind. Nil uses transport.DefaultHub.
	Hub *transport.MemoryHub

	Server        core.Config
	Snapshot      snapshot.Config
	InputSendRate time.Duration

	Logger  *zap.SugaredLogger
	Metrics *metrics.Metrics
}

func (o Options) withDefaults() Options {
	if o.Kind == "" {
		o.Kind = transport.UDP
	}
	if o.InputSendRate <= 0 {
		o.InputSendRate = DefaultInputSendRate
	}
	if o.Kind == transport.Memory && o.Hub == nil {
		o.Hub = transport.DefaultHub
	}
	o.Logger = logging.OrNop(o.Logger)
	o.Transport.Metrics = o.Metrics
	o.Snapshot.Metrics = o.Metrics
	return o
}

// Session is one connection to a game, hosted or joined. It is driven by
// Tick from a single goroutine.
type Session struct {
	opts Options
	log  *zap.SugaredLogger

	server *core.Server // host only
	client *network.Client
	world  donburi.World
	interp *snapshot.Interpolator

	input   mgl32.Vec2
	sendAcc time.Duration
	ready   bool
	closed  bool
}

// Host binds a server on opts.Addr and connects a local client to it. The
// local client gets id 0 and renders the server's world directly.
func Host(opts Options) (*Session, error) {
	opts = opts.withDefaults()

	tcfg := opts.Transport
	tcfg.Logger = opts.Logger.Named("transport")
	var (
		tr  *transport.Server
		err error
	)
	if opts.Kind == transport.Memory {
		tr, err = opts.Hub.Listen(opts.Addr, tcfg)
	} else {
		tr, err = transport.Listen(opts.Kind, opts.Addr, tcfg)
	}
	if err != nil {
		return nil, fmt.Errorf("host: %w", err)
	}
	srv := core.NewServer(tr, opts.Server, opts.Logger.Named("server"), opts.Metrics)

	s, err := connect(opts, srv.Addr(), srv)
	if err != nil {
		_ = srv.Close()
		return nil, fmt.Errorf("host: %w", err)
	}
	return s, nil
}

// Join connects to a server at opts.Addr.
func Join(opts Options) (*Session, error) {
	opts = opts.withDefaults()
	s, err := connect(opts, opts.Addr, nil)
	if err != nil {
		return nil, fmt.Errorf("join: %w", err)
	}
	s.client.SetEmbeddedHost(false)
	return s, nil
}

func connect(opts Options, addr string, srv *core.Server) (*Session, error) {
	tcfg := opts.Transport
	tcfg.Logger = opts.Logger.Named("transport")
	var (
		ct  *transport.Client
		err error
	)
	if opts.Kind == transport.Memory {
		ct = opts.Hub.NewClient(tcfg)
	} else if ct, err = transport.NewClient(opts.Kind, tcfg); err != nil {
		return nil, err
	}

	client := network.NewClient(ct, opts.Logger.Named("client"), opts.Metrics)
	if err := client.Connect(addr); err != nil {
		_ = client.Close()
		return nil, err
	}

	s := &Session{
		opts:   opts,
		log:    opts.Logger.Named("game"),
		server: srv,
		client: client,
		interp: snapshot.NewInterpolator(opts.Snapshot),
	}
	if srv != nil {
		s.world = srv.World()
	} else {
		s.world = donburi.NewWorld()
	}
	return s, nil
}

// Tick advances the session by dt in a fixed order: the hosted server,
// the client protocol, snapshot admission, playback, game logic and finally
// input sending. It returns the client events handled this tick.
func (s *Session) Tick(dt time.Duration) []network.Event {
	if s.closed {
		return nil
	}
	if s.server != nil {
		s.server.Tick(dt)
	}

	events := s.client.Update()

	if !s.IsHost() {
		for _, ev := range events {
			if snap, ok := ev.(network.Snapshot); ok {
				s.interp.Admit(snap.Snapshot)
			}
		}
		s.interp.Seed(s.world)
		s.interp.Update(dt, s.world)
	}

	for _, ev := range events {
		if !s.handle(ev) {
			return events
		}
	}

	s.sendInput(dt)
	return events
}

// handle applies one event to the world. It reports false once the session
// has been torn down.
func (s *Session) handle(ev network.Event) bool {
	switch ev := ev.(type) {
	case network.Connected:
		s.log.Infow("connected", "id", ev.ID, "host", s.IsHost())
		if err := s.client.Send(protocol.Ready{}, transport.ReliableOrdered); err != nil {
			s.log.Warnw("send ready", "error", err)
		}
		s.ready = true
	case network.State:
		for _, sp := range ev.Spawns {
			s.spawn(sp)
		}
	case network.PlayerConnected:
		s.spawn(protocol.Spawn{ID: ev.ID, Kind: protocol.KindPlayer})
	case network.SpawnObstacle:
		s.spawn(protocol.Spawn{ID: ev.ID, Kind: protocol.KindObstacle, Position: ev.Position})
	case network.PlayerDisconnected:
		s.despawn(ev.ID)
	case network.Disconnected:
		s.log.Infow("disconnected")
		s.teardown()
		return false
	}
	return true
}

// spawn realizes a spawn descriptor in the local world. The host's world
// is the server's, which already holds every entity.
func (s *Session) spawn(sp protocol.Spawn) {
	if s.IsHost() {
		return
	}
	if e, ok := netcomponents.Find(s.world, sp.ID); ok {
		netcomponents.Transform.SetValue(e, netcomponents.At(sp.Position))
		if e.HasComponent(netcomponents.Lerp) {
			netcomponents.Lerp.SetValue(e, netcomponents.Settle(netcomponents.At(sp.Position)))
		}
		return
	}

	tag := netcomponents.PlayerTag
	if sp.Kind == protocol.KindObstacle {
		tag = netcomponents.ObstacleTag
	}
	e := s.world.Entry(s.world.Create(netcomponents.NetworkID, netcomponents.Transform, tag))
	netcomponents.NetworkID.SetValue(e, sp.ID)
	netcomponents.Transform.SetValue(e, netcomponents.At(sp.Position))
	s.log.Debugw("spawned", "id", sp.ID, "kind", sp.Kind)
}

func (s *Session) despawn(id identity.NetID) {
	if s.IsHost() {
		return
	}
	if e, ok := netcomponents.Find(s.world, id); ok {
		s.world.Remove(e.Entity())
		s.log.Debugw("despawned", "id", id)
	}
}

func (s *Session) sendInput(dt time.Duration) {
	if !s.ready || !s.client.IsConnected() {
		return
	}
	s.sendAcc += dt
	if s.sendAcc <= s.opts.InputSendRate {
		return
	}
	s.sendAcc -= s.opts.InputSendRate

	v := s.input
	if v.Len() > 0 {
		v = v.Normalize()
	}
	if err := s.client.Send(protocol.Input{Vector: v}, transport.UnreliableSequenced); err != nil {
		s.log.Warnw("send input", "error", err)
	}
}

// SetInput sets the movement vector sent on the next input tick. X is
// screen right and Y is screen down, which map to world X and Z.
func (s *Session) SetInput(v mgl32.Vec2) { s.input = v }

// SpawnObstacle asks the hosted server for a new obstacle.
func (s *Session) SpawnObstacle() (identity.NetID, error) {
	if s.closed {
		return 0, ErrClosed
	}
	if s.server == nil {
		return 0, ErrNotHost
	}
	return s.server.SpawnObstacle()
}

func (s *Session) World() donburi.World { return s.world }

func (s *Session) LocalID() (identity.NetID, bool) {
	return s.client.ID(), s.client.IsConnected()
}

// IsHost reports whether this session runs the server in-process.
func (s *Session) IsHost() bool { return s.server != nil }

func (s *Session) IsConnected() bool { return !s.closed && s.client.IsConnected() }

func (s *Session) Closed() bool { return s.closed }

func (s *Session) Players() []identity.NetID { return s.client.Players() }

func (s *Session) BufferDepth() int { return s.interp.Depth() }

// Addr returns the hosted server's bound address, or the joined address.
func (s *Session) Addr() string {
	if s.server != nil {
		return s.server.Addr()
	}
	return s.opts.Addr
}

// Close disconnects and releases everything the session owns.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	return s.teardown()
}

// teardown drops players, buffered snapshots, lerp state and entities
// together.
func (s *Session) teardown() error {
	s.closed = true
	s.ready = false
	s.interp.Reset()

	err := s.client.Close()
	if s.server != nil {
		err = errors.Join(err, s.server.Close())
	} else {
		var remove []donburi.Entity
		netcomponents.Networked.Each(s.world, func(e *donburi.Entry) {
			remove = append(remove, e.Entity())
		})
		for _, entity := range remove {
			s.world.Remove(entity)
		}
	}
	return err
}
