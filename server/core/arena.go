package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/solarlune/resolv"
)

const (
	tagSolid  = "solid"
	tagPlayer = "player"

	// Space units per world unit. resolv cells are integer sized.
	spaceScale   = 16
	wallMargin   = 1
	playerSize   = 1.0
	obstacleSize = 2.0
	maxStep      = spaceScale / 2
)

// Arena is the collision space of the XZ plane. World X maps to space X and
// world Z to space Y, shifted so the whole arena has positive coordinates.
type Arena struct {
	Space  *resolv.Space
	half   float64
	offset float64
}

// NewArena builds a square arena of half-extent half walled on all sides.
func NewArena(half float64) *Arena {
	offset := (half + wallMargin) * spaceScale
	size := int(2 * offset)
	space := resolv.NewSpace(size, size, spaceScale, spaceScale)

	w := float64(size)
	m := float64(wallMargin * spaceScale)
	for _, r := range [][4]float64{
		{0, 0, w, m},
		{0, w - m, w, m},
		{0, 0, m, w},
		{w - m, 0, m, w},
	} {
		obj := resolv.NewObject(r[0], r[1], r[2], r[3], tagSolid)
		obj.SetShape(resolv.NewRectangle(0, 0, r[2], r[3]))
		space.Add(obj)
	}
	return &Arena{Space: space, half: half, offset: offset}
}

func (a *Arena) newBody(pos mgl32.Vec3, size float64, tags ...string) *resolv.Object {
	s := size * spaceScale
	x, y := a.toSpace(pos)
	obj := resolv.NewObject(x-s/2, y-s/2, s, s, tags...)
	obj.SetShape(resolv.NewRectangle(0, 0, s, s))
	a.Space.Add(obj)
	return obj
}

func (a *Arena) AddPlayer(pos mgl32.Vec3) *resolv.Object {
	return a.newBody(pos, playerSize, tagPlayer)
}

func (a *Arena) AddObstacle(pos mgl32.Vec3) *resolv.Object {
	return a.newBody(pos, obstacleSize, tagSolid)
}

func (a *Arena) Remove(obj *resolv.Object) {
	a.Space.Remove(obj)
}

// Place moves obj so its center is at pos, ignoring collisions.
func (a *Arena) Place(obj *resolv.Object, pos mgl32.Vec3) {
	x, y := a.toSpace(pos)
	obj.X, obj.Y = x-obj.W/2, y-obj.H/2
	obj.Update()
}

// Slide moves obj by delta, stopping flush against solids one axis at a
// time. It returns the resulting world position and which axes were blocked.
func (a *Arena) Slide(obj *resolv.Object, delta mgl32.Vec3) (pos mgl32.Vec3, blockedX, blockedZ bool) {
	blockedX = slideAxis(obj, float64(delta[0])*spaceScale, 0)
	blockedZ = slideAxis(obj, 0, float64(delta[2])*spaceScale)
	return a.center(obj), blockedX, blockedZ
}

// slideAxis moves obj along one axis in steps of at most half a cell, since
// resolv only inspects the destination rectangle.
func slideAxis(obj *resolv.Object, dx, dy float64) bool {
	dist := math.Abs(dx + dy)
	if dist == 0 {
		return false
	}
	n := math.Ceil(dist / maxStep)
	sx, sy := dx/n, dy/n
	for i := 0; i < int(n); i++ {
		mx, my, blocked := sweep(obj, sx, sy)
		obj.X += mx
		obj.Y += my
		obj.Update()
		if blocked {
			return true
		}
	}
	return false
}

// sweep clamps a single-axis move against the solids the move would enter.
// resolv reports everything sharing a cell, so candidates are filtered by
// actual overlap. Solids already overlapping obj do not block.
func sweep(obj *resolv.Object, dx, dy float64) (float64, float64, bool) {
	check := obj.Check(dx, dy, tagSolid)
	if check == nil {
		return dx, dy, false
	}
	blocked := false
	for _, s := range check.ObjectsByTags(tagSolid) {
		if s == obj || overlaps(obj.X, obj.Y, obj.W, obj.H, s) || !overlaps(obj.X+dx, obj.Y+dy, obj.W, obj.H, s) {
			continue
		}
		blocked = true
		switch {
		case dx > 0:
			dx = min(dx, s.X-(obj.X+obj.W))
		case dx < 0:
			dx = max(dx, s.X+s.W-obj.X)
		case dy > 0:
			dy = min(dy, s.Y-(obj.Y+obj.H))
		case dy < 0:
			dy = max(dy, s.Y+s.H-obj.Y)
		}
	}
	return dx, dy, blocked
}

func overlaps(x, y, w, h float64, o *resolv.Object) bool {
	return x < o.X+o.W && o.X < x+w && y < o.Y+o.H && o.Y < y+h
}

func (a *Arena) toSpace(pos mgl32.Vec3) (x, y float64) {
	return float64(pos[0])*spaceScale + a.offset, float64(pos[2])*spaceScale + a.offset
}

func (a *Arena) center(obj *resolv.Object) mgl32.Vec3 {
	x := (obj.X + obj.W/2 - a.offset) / spaceScale
	z := (obj.Y + obj.H/2 - a.offset) / spaceScale
	return mgl32.Vec3{float32(x), 0, float32(z)}
}

// Contains reports whether pos lies inside the walls.
func (a *Arena) Contains(pos mgl32.Vec3) bool {
	h := float32(a.half)
	return pos[0] >= -h && pos[0] <= h && pos[2] >= -h && pos[2] <= h
}
