package systems

import (
	"time"

	"github.com/automoto/netsnap/components"
	cfg "github.com/automoto/netsnap/config"
	"github.com/automoto/netsnap/fonts"
	"github.com/automoto/netsnap/shared/transport"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text" //nolint:staticcheck // TODO: migrate to text/v2
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/yohamta/donburi/ecs"
)

// SceneChanger allows systems to trigger scene transitions
type SceneChanger interface {
	ChangeScene(scene interface{})
	Quit()
}

// Connector starts a session against the menu's endpoint. host selects
// between hosting and joining.
type Connector func(host bool, addr, transport string) error

// frameDelta is the simulated time of one ebiten update.
func frameDelta() time.Duration {
	return time.Second / time.Duration(ebiten.TPS())
}

// NewUpdateMenu creates the menu system. connect runs on H or J or a widget
// request; its error becomes the status line.
func NewUpdateMenu(sc SceneChanger, connect Connector) ecs.System {
	return func(e *ecs.ECS) {
		entry, ok := components.Menu.First(e.World)
		if !ok {
			return
		}
		menu := components.Menu.Get(entry)
		input := getOrCreateInput(e)

		if menu.StatusLeft > 0 {
			menu.StatusLeft -= frameDelta()
		}

		req := menu.Request
		menu.Request = components.MenuNone
		if req == components.MenuNone && !menu.Editing {
			req = menuHotkey(input)
		}

		var host bool
		switch req {
		case components.MenuHost:
			host = true
		case components.MenuJoin:
		case components.MenuNextTransport:
			menu.Transport = NextTransport(menu.Transport)
			return
		case components.MenuQuit:
			sc.Quit()
			return
		default:
			return
		}

		if err := connect(host, menu.Addr, menu.Transport); err != nil {
			logger.Warnw("connect failed", "host", host, "addr", menu.Addr, "error", err)
			menu.SetStatus(err.Error(), cfg.Draw.StatusDuration)
		}
	}
}

func menuHotkey(input *components.InputData) components.MenuRequest {
	switch {
	case GetAction(input, cfg.ActionHost).JustPressed:
		return components.MenuHost
	case GetAction(input, cfg.ActionJoin).JustPressed:
		return components.MenuJoin
	case GetAction(input, cfg.ActionQuit).JustPressed:
		return components.MenuQuit
	}
	return components.MenuNone
}

var transportCycle = [...]transport.Kind{transport.UDP, transport.WebSocket, transport.Memory}

// NextTransport returns the backend after name in the menu's cycle. Unknown
// names restart the cycle.
func NextTransport(name string) string {
	kind, err := transport.ParseKind(name)
	if err != nil {
		return string(transportCycle[0])
	}
	for i, k := range transportCycle {
		if k == kind {
			return string(transportCycle[(i+1)%len(transportCycle)])
		}
	}
	return string(transportCycle[0])
}

// DrawMenu renders the connect menu
func DrawMenu(e *ecs.ECS, screen *ebiten.Image) {
	if _, ok := components.Menu.First(e.World); !ok {
		return
	}

	width := float32(screen.Bounds().Dx())
	height := float32(screen.Bounds().Dy())
	vector.FillRect(screen, 0, 0, width, height, cfg.Draw.Background, false)

	text.Draw(screen, cfg.C.Title, fonts.Title.Get(), 40, 120, cfg.Draw.TextColor)

	lines := []string{
		"H  host a game",
		"J  join a game",
		"Q  quit",
	}
	regular := fonts.Regular.Get()
	for i, line := range lines {
		text.Draw(screen, line, regular, 40, 200+i*28, cfg.Draw.TextColor)
	}
}
