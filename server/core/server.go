// Package core is the authoritative game server: it owns the world, applies
// player input and broadcasts snapshots.
package core

import (
	"cmp"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/automoto/netsnap/server/session"
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

var spawnPoint = mgl32.Vec3{}

// Server manages the game state and client connections. All methods must be
// called from the goroutine that drives Tick; use GameLoop to reach it from
// elsewhere.
type Server struct {
	cfg     Config
	log     *zap.SugaredLogger
	metrics *metrics.Metrics

	session     *session.Server
	world       donburi.World
	arena       *Arena
	broadcaster *snapshot.Broadcaster
	rng         *rand.Rand

	players   map[identity.NetID]*PlayerBody
	bodies    map[donburi.Entity]*PlayerBody
	obstacles map[identity.NetID]*Obstacle
}

// NewServer wraps a bound transport.
func NewServer(t transport.ServerTransport, cfg Config, log *zap.SugaredLogger, m *metrics.Metrics) *Server {
	cfg = cfg.withDefaults()
	log = logging.OrNop(log)

	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	return &Server{
		cfg:         cfg,
		log:         log,
		metrics:     m,
		session:     session.NewServer(t, log, m),
		world:       donburi.NewWorld(),
		arena:       NewArena(cfg.ArenaHalfSize),
		broadcaster: snapshot.NewBroadcaster(cfg.SnapshotInterval, m),
		rng:         rand.New(rand.NewPCG(seed, seed>>1|1)),
		players:     make(map[identity.NetID]*PlayerBody),
		bodies:      make(map[donburi.Entity]*PlayerBody),
		obstacles:   make(map[identity.NetID]*Obstacle),
	}
}

// Tick runs one simulation step: protocol update, event handling, movement,
// obstacle motion and snapshot broadcast, in that order.
func (s *Server) Tick(dt time.Duration) {
	start := time.Now()

	for _, ev := range s.session.Update() {
		s.handle(ev)
	}

	secs := float32(dt.Seconds())
	s.updatePlayers(secs)
	s.updateObstacles(secs)
	s.broadcaster.Update(dt, s.world, s.session)

	s.metrics.ObserveTick(time.Since(start))
}

func (s *Server) handle(ev session.Event) {
	switch ev := ev.(type) {
	case session.PlayerConnected:
		s.spawnPlayer(ev.ID)
		s.session.SendToAllExcept(ev.ID, protocol.PlayerConnected{ID: ev.ID}, transport.ReliableOrdered)
	case session.PlayerDisconnected:
		s.despawnPlayer(ev.ID)
		s.session.SendToAllExcept(ev.ID, protocol.PlayerDisconnected{ID: ev.ID}, transport.ReliableOrdered)
	case session.PlayerReady:
		s.session.Send(ev.ID, protocol.State{Spawns: s.stateFor(ev.ID)}, transport.ReliableOrdered)
	case session.PlayerInput:
		s.applyInput(ev.ID, ev.Vector)
	}
}

func (s *Server) spawnPlayer(id identity.NetID) {
	if _, ok := s.players[id]; ok {
		return
	}
	entity := s.world.Create(
		netcomponents.NetworkID,
		netcomponents.Transform,
		netcomponents.Velocity,
		netcomponents.Input,
		netcomponents.PlayerTag,
	)
	e := s.world.Entry(entity)
	netcomponents.NetworkID.SetValue(e, id)
	netcomponents.Transform.SetValue(e, netcomponents.At(spawnPoint))

	b := newPlayerBody(s.arena, id, entity)
	s.players[id] = b
	s.bodies[entity] = b
	s.log.Debugw("player spawned", "id", id)
}

func (s *Server) despawnPlayer(id identity.NetID) {
	b, ok := s.players[id]
	if !ok {
		return
	}
	delete(s.players, id)
	delete(s.bodies, b.Entity)
	removePlayerBody(s.arena, b)
	if s.world.Valid(b.Entity) {
		s.world.Remove(b.Entity)
	}
	s.log.Debugw("player removed", "id", id)
}

// stateFor lists the receiving player first, then every other networked
// entity by ascending id.
func (s *Server) stateFor(id identity.NetID) []protocol.Spawn {
	self := protocol.Spawn{ID: id, Kind: protocol.KindPlayer, Position: spawnPoint}
	var others []protocol.Spawn

	netcomponents.Networked.Each(s.world, func(e *donburi.Entry) {
		eid := *netcomponents.NetworkID.Get(e)
		pos := netcomponents.Transform.Get(e).Position
		if eid == id {
			self.Position = pos
			return
		}
		kind := protocol.KindPlayer
		if e.HasComponent(netcomponents.ObstacleTag) {
			kind = protocol.KindObstacle
		}
		others = append(others, protocol.Spawn{ID: eid, Kind: kind, Position: pos})
	})
	slices.SortFunc(others, func(a, b protocol.Spawn) int { return cmp.Compare(a.ID, b.ID) })

	return append([]protocol.Spawn{self}, others...)
}

func (s *Server) applyInput(id identity.NetID, v mgl32.Vec2) {
	b, ok := s.players[id]
	if !ok || !s.world.Valid(b.Entity) {
		return
	}
	if !finite(v[0]) || !finite(v[1]) {
		s.metrics.Dropped(metrics.DropMalformed)
		s.log.Warnw("non-finite input dropped", "id", id, "vector", v)
		return
	}
	dir := mgl32.Vec3{v[0], 0, v[1]}
	// Clients send normalized vectors; anything longer is clamped.
	if l := dir.Len(); l > 1 {
		dir = dir.Mul(1 / l)
	}
	netcomponents.Input.Get(s.world.Entry(b.Entity)).Direction = dir
}

func finite(f float32) bool {
	return !math.IsNaN(float64(f)) && !math.IsInf(float64(f), 0)
}

// SpawnObstacle creates an obstacle at a random point and announces it to
// every client.
func (s *Server) SpawnObstacle() (identity.NetID, error) {
	id, err := s.session.GenerateID()
	if err != nil {
		return 0, fmt.Errorf("spawn obstacle: %w", err)
	}
	pos := s.randomPoint()
	target := s.randomPoint()
	period := float32(s.cfg.ObstacleMinPeriod + s.rng.IntN(s.cfg.ObstacleMaxPeriod-s.cfg.ObstacleMinPeriod+1))

	entity := s.world.Create(netcomponents.NetworkID, netcomponents.Transform, netcomponents.ObstacleTag)
	e := s.world.Entry(entity)
	netcomponents.NetworkID.SetValue(e, id)
	netcomponents.Transform.SetValue(e, netcomponents.At(pos))

	s.obstacles[id] = newObstacle(id, entity, s.arena.AddObstacle(pos), pos, target, period)
	s.session.SendToAll(protocol.SpawnObstacle{ID: id, Position: pos}, transport.ReliableOrdered)
	s.metrics.ObstacleSpawned()
	s.log.Infow("obstacle spawned", "id", id, "position", pos, "target", target)
	return id, nil
}

// PlayerInfo is a read-only view of one connected player.
type PlayerInfo struct {
	ID       identity.NetID `json:"id"`
	Position mgl32.Vec3     `json:"position"`
	Yaw      float32        `json:"yaw"`
}

// Players returns every spawned player ordered by id.
func (s *Server) Players() []PlayerInfo {
	out := make([]PlayerInfo, 0, len(s.players))
	for id, b := range s.players {
		if !s.world.Valid(b.Entity) {
			continue
		}
		tr := netcomponents.Transform.Get(s.world.Entry(b.Entity))
		out = append(out, PlayerInfo{ID: id, Position: tr.Position, Yaw: b.Yaw})
	}
	slices.SortFunc(out, func(a, b PlayerInfo) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

func (s *Server) PlayerCount() int { return len(s.players) }

func (s *Server) ObstacleCount() int { return len(s.obstacles) }

// World returns the authoritative world. A host client renders it directly.
func (s *Server) World() donburi.World { return s.world }

func (s *Server) Addr() string { return s.session.Addr() }

func (s *Server) TickRate() int { return s.cfg.TickRate }

// Close disconnects every client and releases the transport.
func (s *Server) Close() error {
	for id := range s.players {
		s.despawnPlayer(id)
	}
	return s.session.Close()
}
