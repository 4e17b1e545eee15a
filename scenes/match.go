package scenes

import (
	"image/color"
	"sync"

	cfg "github.com/automoto/netsnap/config"
	"github.com/automoto/netsnap/game"
	"github.com/automoto/netsnap/systems"
	"github.com/automoto/netsnap/systems/factory"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/ecs"
)

// MatchScene draws the arena of a running session and feeds it input
type MatchScene struct {
	ecs          *ecs.ECS
	sceneChanger SceneChanger
	opts         game.Options
	session      *game.Session
	once         sync.Once
}

func NewMatchScene(sc SceneChanger, opts game.Options, s *game.Session) *MatchScene {
	return &MatchScene{sceneChanger: sc, opts: opts, session: s}
}

func (ms *MatchScene) Update() {
	ms.once.Do(ms.configure)
	ms.ecs.Update()
}

func (ms *MatchScene) Draw(screen *ebiten.Image) {
	screen.Fill(color.Black)

	if ms.ecs == nil {
		return
	}
	ms.ecs.Draw(screen)
}

// Close ends the session, for when the window goes away mid-match.
func (ms *MatchScene) Close() error {
	return ms.session.Close()
}

func (ms *MatchScene) configure() {
	ms.ecs = ecs.NewECS(donburi.NewWorld())

	ms.ecs.AddSystem(systems.UpdateInput)
	ms.ecs.AddSystem(systems.NewUpdateMatch(ms.leave))

	ms.ecs.AddRenderer(cfg.Default, systems.DrawArena)
	ms.ecs.AddRenderer(cfg.Default, systems.DrawEntities)
	ms.ecs.AddRenderer(cfg.HUD, systems.DrawHUD)

	factory.CreateMatch(ms.ecs, ms.session)
}

func (ms *MatchScene) leave(status string) {
	ms.sceneChanger.ChangeScene(NewMenuScene(ms.sceneChanger, ms.opts, status))
}
