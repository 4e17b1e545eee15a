package archetypes

import (
	"github.com/automoto/netsnap/components"
	cfg "github.com/automoto/netsnap/config"
	"github.com/automoto/netsnap/tags"
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/ecs"
)

var (
	Menu = newArchetype(
		tags.Menu,
		components.Menu,
		components.Input,
	)
	Match = newArchetype(
		tags.Match,
		components.Match,
		components.Input,
	)
)

type archetype struct {
	components []donburi.IComponentType
}

func newArchetype(cs ...donburi.IComponentType) *archetype {
	return &archetype{
		components: cs,
	}
}

func (a *archetype) Spawn(ecs *ecs.ECS, cs ...donburi.IComponentType) *donburi.Entry {
	e := ecs.World.Entry(ecs.Create(
		cfg.Default,
		append(a.components, cs...)...,
	))
	return e
}
