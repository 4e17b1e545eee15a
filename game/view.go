package game

import "github.com/go-gl/mathgl/mgl32"

// MoveVector turns held directions into a movement vector in screen axes:
// X grows to the right and Y grows downward. Opposite directions cancel.
func MoveVector(left, right, up, down bool) mgl32.Vec2 {
	var v mgl32.Vec2
	if left {
		v[0]--
	}
	if right {
		v[0]++
	}
	if up {
		v[1]--
	}
	if down {
		v[1]++
	}
	return v
}

// Project maps a world position onto a top-down view of the XZ plane
// centered on the origin.
func Project(pos mgl32.Vec3, pixelsPerUnit float64, width, height int) (float32, float32) {
	x := float64(width)/2 + float64(pos[0])*pixelsPerUnit
	y := float64(height)/2 + float64(pos[2])*pixelsPerUnit
	return float32(x), float32(y)
}

// Facing is the screen direction an entity with rotation rot looks along.
// The unrotated forward is -Z, which is screen up.
func Facing(rot mgl32.Quat) mgl32.Vec2 {
	f := rot.Rotate(mgl32.Vec3{0, 0, -1})
	return mgl32.Vec2{f[0], f[2]}
}
