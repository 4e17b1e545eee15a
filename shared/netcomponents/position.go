package netcomponents

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/yohamta/donburi"
)

// TransformData is the authoritative pose of a networked entity. On clients
// it is the rendered pose, rewritten every tick by interpolation.
type TransformData struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
}

// At returns an unrotated pose at position.
func At(position mgl32.Vec3) TransformData {
	return TransformData{Position: position, Rotation: mgl32.QuatIdent()}
}

var Transform = donburi.NewComponentType[TransformData]()

// LerpData holds the two poses a remote entity is blended between.
type LerpData struct {
	FromPosition mgl32.Vec3
	FromRotation mgl32.Quat
	ToPosition   mgl32.Vec3
	ToRotation   mgl32.Quat
}

var Lerp = donburi.NewComponentType[LerpData]()

// Settle starts a lerp that holds the entity at its current pose.
func Settle(tr TransformData) LerpData {
	return LerpData{
		FromPosition: tr.Position,
		FromRotation: tr.Rotation,
		ToPosition:   tr.Position,
		ToRotation:   tr.Rotation,
	}
}

// Advance makes the previous target the new start and aims at next.
func (l *LerpData) Advance(next TransformData) {
	l.FromPosition, l.FromRotation = l.ToPosition, l.ToRotation
	l.ToPosition, l.ToRotation = next.Position, next.Rotation
}

// Hold makes the previous target both start and end.
func (l *LerpData) Hold() {
	l.FromPosition, l.FromRotation = l.ToPosition, l.ToRotation
}

// LerpTransform blends linearly between positions and spherically between
// rotations along the shorter arc.
func LerpTransform(l LerpData, t float32) TransformData {
	to := l.ToRotation
	if l.FromRotation.Dot(to) < 0 {
		to = to.Scale(-1)
	}
	return TransformData{
		Position: l.FromPosition.Add(l.ToPosition.Sub(l.FromPosition).Mul(t)),
		Rotation: mgl32.QuatSlerp(l.FromRotation, to, t),
	}
}
