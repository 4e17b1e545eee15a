package factory

import (
	"github.com/automoto/netsnap/archetypes"
	"github.com/automoto/netsnap/components"
	cfg "github.com/automoto/netsnap/config"
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/ecs"
)

// CreateMenu spawns the menu singleton. A non-empty status is shown for the
// configured status duration.
func CreateMenu(ecs *ecs.ECS, addr, transport, status string) *donburi.Entry {
	menu := archetypes.Menu.Spawn(ecs)
	data := &components.MenuData{Addr: addr, Transport: transport}
	if status != "" {
		data.SetStatus(status, cfg.Draw.StatusDuration)
	}
	components.Menu.Set(menu, data)
	return menu
}
