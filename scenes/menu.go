package scenes

import (
	"image/color"
	"sync"

	cfg "github.com/automoto/netsnap/config"
	"github.com/automoto/netsnap/components"
	"github.com/automoto/netsnap/game"
	"github.com/automoto/netsnap/shared/logging"
	"github.com/automoto/netsnap/shared/transport"
	"github.com/automoto/netsnap/systems"
	"github.com/automoto/netsnap/systems/factory"
	"github.com/automoto/netsnap/ui"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/ecs"
)

// SceneChanger allows scenes to trigger transitions
type SceneChanger = systems.SceneChanger

// MenuScene lets the player host or join
type MenuScene struct {
	ecs          *ecs.ECS
	sceneChanger SceneChanger
	connectUI    *ui.ConnectUI
	opts         game.Options
	status       string
	once         sync.Once
}

// NewMenuScene creates a menu that starts sessions from opts. status is
// shown briefly, for example after a disconnect.
func NewMenuScene(sc SceneChanger, opts game.Options, status string) *MenuScene {
	return &MenuScene{sceneChanger: sc, opts: opts, status: status}
}

func (ms *MenuScene) Update() {
	ms.once.Do(ms.configure)

	// Widgets first so a click is handled in the same frame.
	if ms.connectUI != nil {
		if entry, ok := components.Menu.First(ms.ecs.World); ok {
			ms.connectUI.Update(components.Menu.Get(entry))
		}
	}
	ms.ecs.Update()
}

func (ms *MenuScene) Draw(screen *ebiten.Image) {
	// Always clear screen to prevent white flashes from OS window background
	screen.Fill(color.Black)

	if ms.ecs == nil {
		return
	}
	ms.ecs.Draw(screen)
	if ms.connectUI != nil {
		ms.connectUI.Draw(screen)
	}
}

func (ms *MenuScene) configure() {
	ms.ecs = ecs.NewECS(donburi.NewWorld())

	ms.ecs.AddSystem(systems.UpdateInput)
	ms.ecs.AddSystem(systems.NewUpdateMenu(ms.sceneChanger, ms.connect))

	ms.ecs.AddRenderer(cfg.Default, systems.DrawMenu)

	menu := factory.CreateMenu(ms.ecs, ms.opts.Addr, string(ms.opts.Kind), ms.status)

	cu, err := ui.NewConnectUI(components.Menu.Get(menu))
	if err != nil {
		// Hotkeys still work without the panel.
		logging.OrNop(ms.opts.Logger).Warnw("connect panel unavailable", "error", err)
		return
	}
	ms.connectUI = cu
}

func (ms *MenuScene) connect(host bool, addr, kindName string) error {
	kind, err := transport.ParseKind(kindName)
	if err != nil {
		return err
	}
	opts := ms.opts
	opts.Kind, opts.Addr = kind, addr

	var s *game.Session
	if host {
		s, err = game.Host(opts)
	} else {
		s, err = game.Join(opts)
	}
	if err != nil {
		return err
	}

	_ = systems.SaveEndpoint(systems.SavedEndpoint{Addr: addr, Transport: string(kind)})
	ms.sceneChanger.ChangeScene(NewMatchScene(ms.sceneChanger, opts, s))
	return nil
}
