// Package protocol defines the packets exchanged between client and server
// and their binary encoding.
package protocol

import (
	"github.com/automoto/netsnap/shared/identity"
	"github.com/go-gl/mathgl/mgl32"
)

// ClientPacket is sent from a client to the server.
type ClientPacket interface {
	clientPacket()
}

// Ready tells the server the client has finished loading and wants the
// current world state.
type Ready struct{}

// Input carries the client's movement intent for the current tick.
type Input struct {
	Vector mgl32.Vec2
}

func (Ready) clientPacket() {}
func (Input) clientPacket() {}

// ServerPacket is sent from the server to one or more clients.
type ServerPacket interface {
	serverPacket()
}

type PlayerConnected struct {
	ID identity.NetID
}

type PlayerDisconnected struct {
	ID identity.NetID
}

// State is the reply to Ready. The first spawn is always the receiving
// client's own player.
type State struct {
	Spawns []Spawn
}

type SpawnObstacle struct {
	ID       identity.NetID
	Position mgl32.Vec3
}

func (PlayerConnected) serverPacket()    {}
func (PlayerDisconnected) serverPacket() {}
func (State) serverPacket()              {}
func (Snapshot) serverPacket()           {}
func (SpawnObstacle) serverPacket()      {}

// SpawnKind is the kind of entity a Spawn describes.
type SpawnKind uint32

const (
	KindPlayer SpawnKind = iota
	KindObstacle
)

func (k SpawnKind) String() string {
	switch k {
	case KindPlayer:
		return "player"
	case KindObstacle:
		return "obstacle"
	default:
		return "unknown"
	}
}

type Spawn struct {
	ID       identity.NetID
	Kind     SpawnKind
	Position mgl32.Vec3
}

// EntityTransform is the pose of one networked entity.
type EntityTransform struct {
	ID       identity.NetID
	Position mgl32.Vec3
	Rotation mgl32.Quat
}

// Snapshot is the pose of every networked entity at one server tick.
// Transforms are ordered by ascending id.
type Snapshot struct {
	Sequence   uint32
	Transforms []EntityTransform
}

// Find returns the transform recorded for id.
func (s Snapshot) Find(id identity.NetID) (EntityTransform, bool) {
	lo, hi := 0, len(s.Transforms)
	for lo < hi {
		mid := (lo + hi) / 2
		if s.Transforms[mid].ID < id {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(s.Transforms) && s.Transforms[lo].ID == id {
		return s.Transforms[lo], true
	}
	return EntityTransform{}, false
}
