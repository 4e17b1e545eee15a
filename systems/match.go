package systems

import (
	"errors"
	"fmt"

	"github.com/automoto/netsnap/components"
	cfg "github.com/automoto/netsnap/config"
	"github.com/automoto/netsnap/game"
	"github.com/yohamta/donburi/ecs"
)

// NewUpdateMatch creates the system that drives the running session.
// leave is called once the session has ended, with a status for the menu.
func NewUpdateMatch(leave func(status string)) ecs.System {
	return func(e *ecs.ECS) {
		entry, ok := components.Match.First(e.World)
		if !ok {
			return
		}
		match := components.Match.Get(entry)
		s := match.Session
		input := getOrCreateInput(e)

		if GetAction(input, cfg.ActionQuit).JustPressed {
			if err := s.Close(); err != nil {
				logger.Warnw("close session", "error", err)
			}
			leave("")
			return
		}

		if GetAction(input, cfg.ActionSpawnObstacle).JustPressed {
			match.Notice = spawnObstacle(s)
		}

		s.SetInput(MoveIntent(input))
		s.Tick(frameDelta())

		if s.Closed() {
			leave("disconnected from server")
		}
	}
}

func spawnObstacle(s *game.Session) string {
	id, err := s.SpawnObstacle()
	switch {
	case errors.Is(err, game.ErrNotHost):
		return "only the host can spawn obstacles"
	case err != nil:
		logger.Warnw("spawn obstacle", "error", err)
		return err.Error()
	}
	return fmt.Sprintf("spawned obstacle %d", id)
}
