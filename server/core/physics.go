package core

import (
	"math"

	"github.com/automoto/netsnap/shared/netcomponents"
	"github.com/go-gl/mathgl/mgl32"
)

var up = mgl32.Vec3{0, 1, 0}

// moveTowards steps cur toward target by at most maxDelta.
func moveTowards(cur, target, maxDelta float32) float32 {
	d := target - cur
	if d <= maxDelta && d >= -maxDelta {
		return target
	}
	if d > 0 {
		return cur + maxDelta
	}
	return cur - maxDelta
}

// accelerate moves the horizontal velocity toward input*maxSpeed.
func accelerate(vel, input mgl32.Vec3, maxSpeed, maxAccel, dt float32) mgl32.Vec3 {
	target := input.Mul(maxSpeed)
	step := maxAccel * dt
	return mgl32.Vec3{
		moveTowards(vel[0], target[0], step),
		vel[1],
		moveTowards(vel[2], target[2], step),
	}
}

// heading is the yaw that faces along dir on the XZ plane.
func heading(dir mgl32.Vec3) float32 {
	return float32(math.Atan2(float64(-dir[0]), float64(-dir[2])))
}

// wrapAngle maps a into [-pi, pi].
func wrapAngle(a float32) float32 {
	for a < -math.Pi {
		a += 2 * math.Pi
	}
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	return a
}

// turn closes yaw on the direction of input proportionally to the remaining
// angle. A zero input keeps the current yaw.
func turn(yaw float32, input mgl32.Vec3, rate, dt float32) float32 {
	if input == (mgl32.Vec3{}) {
		return yaw
	}
	return wrapAngle(yaw + wrapAngle(heading(input)-yaw)*rate*dt)
}

// updatePlayers runs one movement step for every player.
func (s *Server) updatePlayers(dt float32) {
	for _, b := range s.bodies {
		if !s.world.Valid(b.Entity) {
			continue
		}
		e := s.world.Entry(b.Entity)
		input := netcomponents.Input.Get(e).Direction
		vel := netcomponents.Velocity.Get(e)
		tr := netcomponents.Transform.Get(e)

		vel.Linear = accelerate(vel.Linear, input, s.cfg.MaxSpeed, s.cfg.MaxAccel, dt)
		pos, blockedX, blockedZ := s.arena.Slide(b.Object, vel.Linear.Mul(dt))
		if blockedX {
			vel.Linear[0] = 0
		}
		if blockedZ {
			vel.Linear[2] = 0
		}

		b.Yaw = turn(b.Yaw, input, s.cfg.TurnRate, dt)
		tr.Position = pos
		tr.Rotation = mgl32.QuatRotate(b.Yaw, up)
	}
}
