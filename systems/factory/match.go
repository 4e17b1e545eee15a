package factory

import (
	"github.com/automoto/netsnap/archetypes"
	"github.com/automoto/netsnap/components"
	"github.com/automoto/netsnap/game"
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/ecs"
)

func CreateMatch(ecs *ecs.ECS, s *game.Session) *donburi.Entry {
	match := archetypes.Match.Spawn(ecs)
	components.Match.Set(match, &components.MatchData{Session: s})
	return match
}
