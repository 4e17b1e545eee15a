package netcomponents

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/yohamta/donburi"
)

// VelocityData is the server-side linear velocity of a player.
type VelocityData struct {
	Linear mgl32.Vec3
}

var Velocity = donburi.NewComponentType[VelocityData]()

// InputData is the latest movement intent received for a player, on the XZ
// plane.
type InputData struct {
	Direction mgl32.Vec3
}

var Input = donburi.NewComponentType[InputData]()
