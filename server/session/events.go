package session

import (
	"github.com/automoto/netsnap/shared/identity"
	"github.com/go-gl/mathgl/mgl32"
)

// Event is produced by Server.Update.
type Event interface {
	serverEvent()
}

type PlayerConnected struct {
	ID identity.NetID
}

type PlayerDisconnected struct {
	ID identity.NetID
}

// PlayerReady asks for the current world state.
type PlayerReady struct {
	ID identity.NetID
}

// PlayerInput carries a movement vector on the XZ plane as (x, z).
type PlayerInput struct {
	ID     identity.NetID
	Vector mgl32.Vec2
}

func (PlayerConnected) serverEvent()    {}
func (PlayerDisconnected) serverEvent() {}
func (PlayerReady) serverEvent()        {}
func (PlayerInput) serverEvent()        {}
