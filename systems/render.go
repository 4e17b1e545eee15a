package systems

import (
	"fmt"
	"image/color"

	"github.com/automoto/netsnap/components"
	cfg "github.com/automoto/netsnap/config"
	"github.com/automoto/netsnap/fonts"
	"github.com/automoto/netsnap/game"
	"github.com/automoto/netsnap/shared/netcomponents"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text" //nolint:staticcheck // TODO: migrate to text/v2
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/ecs"
)

const facingLength = 12

// DrawArena fills the background and the walkable square.
func DrawArena(e *ecs.ECS, screen *ebiten.Image) {
	w, h := screen.Bounds().Dx(), screen.Bounds().Dy()
	vector.FillRect(screen, 0, 0, float32(w), float32(h), cfg.Draw.Background, false)

	half := float32(cfg.Server.ArenaHalfSize * cfg.Draw.PixelsPerUnit)
	cx, cy := float32(w)/2, float32(h)/2
	vector.FillRect(screen, cx-half, cy-half, 2*half, 2*half, cfg.Draw.ArenaColor, false)
}

// DrawEntities draws every networked entity top-down: obstacles as squares
// and players as discs with a marker in the direction they face.
func DrawEntities(e *ecs.ECS, screen *ebiten.Image) {
	entry, ok := components.Match.First(e.World)
	if !ok {
		return
	}
	s := components.Match.Get(entry).Session
	local, _ := s.LocalID()
	w, h := screen.Bounds().Dx(), screen.Bounds().Dy()
	small := fonts.Small.Get()

	netcomponents.Networked.Each(s.World(), func(ent *donburi.Entry) {
		id := *netcomponents.NetworkID.Get(ent)
		tr := netcomponents.Transform.Get(ent)
		x, y := game.Project(tr.Position, cfg.Draw.PixelsPerUnit, w, h)

		if ent.HasComponent(netcomponents.ObstacleTag) {
			size := cfg.Draw.ObstacleSize
			vector.FillRect(screen, x-size/2, y-size/2, size, size, cfg.Draw.ObstacleColor, false)
			return
		}

		var body color.Color = cfg.Draw.RemoteColor
		if id == local {
			body = cfg.Draw.LocalColor
		}
		vector.DrawFilledCircle(screen, x, y, cfg.Draw.PlayerRadius, body, true)

		f := game.Facing(tr.Rotation).Mul(facingLength)
		vector.StrokeLine(screen, x, y, x+f[0], y+f[1], 2, cfg.Draw.FacingColor, true)

		text.Draw(screen, fmt.Sprint(id), small, int(x)-4, int(y)-int(cfg.Draw.PlayerRadius)-4, cfg.Draw.TextColor)
	})
}

// DrawHUD shows the local id, the role and the snapshot buffer depth.
func DrawHUD(e *ecs.ECS, screen *ebiten.Image) {
	entry, ok := components.Match.First(e.World)
	if !ok {
		return
	}
	match := components.Match.Get(entry)
	s := match.Session

	role := "guest"
	if s.IsHost() {
		role = "host"
	}
	status := "connecting"
	if id, ok := s.LocalID(); ok {
		status = fmt.Sprintf("id %d", id)
	}

	small := fonts.Small.Get()
	text.Draw(screen, fmt.Sprintf("%s  %s  %s", role, status, s.Addr()), small, 8, 16, cfg.Draw.TextColor)
	text.Draw(screen, fmt.Sprintf("players %d  buffer %d", len(s.Players()), s.BufferDepth()), small, 8, 32, cfg.Draw.TextColor)
	if match.Notice != "" {
		text.Draw(screen, match.Notice, small, 8, 48, cfg.Yellow)
	}
	text.Draw(screen, "arrows move  S obstacle  Q menu", small, 8, screen.Bounds().Dy()-10, cfg.Draw.TextColor)
}
