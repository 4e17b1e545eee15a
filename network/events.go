package network

import (
	"github.com/automoto/netsnap/shared/identity"
	"github.com/automoto/netsnap/shared/protocol"
	"github.com/go-gl/mathgl/mgl32"
)

// Event is produced by Client.Update.
type Event interface {
	clientEvent()
}

// Connected reports that the handshake finished and id is ours.
type Connected struct {
	ID identity.NetID
}

// Disconnected reports that the connection was lost or refused.
type Disconnected struct{}

type PlayerConnected struct {
	ID identity.NetID
}

type PlayerDisconnected struct {
	ID identity.NetID
}

// State is the server's answer to Ready. Spawns[0] is the local player.
type State struct {
	Spawns []protocol.Spawn
}

type Snapshot struct {
	protocol.Snapshot
}

type SpawnObstacle struct {
	ID       identity.NetID
	Position mgl32.Vec3
}

func (Connected) clientEvent()          {}
func (Disconnected) clientEvent()       {}
func (PlayerConnected) clientEvent()    {}
func (PlayerDisconnected) clientEvent() {}
func (State) clientEvent()              {}
func (Snapshot) clientEvent()           {}
func (SpawnObstacle) clientEvent()      {}
