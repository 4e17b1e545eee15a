package core

import (
	"github.com/automoto/netsnap/shared/identity"
	"github.com/automoto/netsnap/shared/netcomponents"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/solarlune/resolv"
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
	"github.com/yohamta/donburi"
)

// smoothstep eases with 3t^2 - 2t^3.
var smoothstep ease.TweenFunc = func(t, b, c, d float32) float32 {
	x := t / d
	return b + c*x*x*(3-2*x)
}

// Obstacle ping-pongs between its spawn point and a random target.
type Obstacle struct {
	ID     identity.NetID
	Entity donburi.Entity
	Object *resolv.Object

	from, to mgl32.Vec3
	progress *gween.Tween
}

func newObstacle(id identity.NetID, entity donburi.Entity, obj *resolv.Object, from, to mgl32.Vec3, period float32) *Obstacle {
	return &Obstacle{
		ID:       id,
		Entity:   entity,
		Object:   obj,
		from:     from,
		to:       to,
		progress: gween.New(0, 1, period, smoothstep),
	}
}

// step advances the obstacle by dt seconds and returns its position.
func (o *Obstacle) step(dt float32) mgl32.Vec3 {
	t, done := o.progress.Update(dt)
	pos := o.from.Add(o.to.Sub(o.from).Mul(t))
	if done {
		o.from, o.to = o.to, o.from
		o.progress.Reset()
	}
	return pos
}

func (s *Server) updateObstacles(dt float32) {
	for _, o := range s.obstacles {
		if !s.world.Valid(o.Entity) {
			continue
		}
		pos := o.step(dt)
		s.arena.Place(o.Object, pos)
		netcomponents.Transform.Get(s.world.Entry(o.Entity)).Position = pos
	}
}

// randomPoint picks an integer point in [-r, r] on X and Z.
func (s *Server) randomPoint() mgl32.Vec3 {
	r := s.cfg.ObstacleRange
	x := s.rng.IntN(2*r+1) - r
	z := s.rng.IntN(2*r+1) - r
	return mgl32.Vec3{float32(x), 0, float32(z)}
}
