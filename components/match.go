package components

import (
	"github.com/automoto/netsnap/game"
	"github.com/yohamta/donburi"
)

// MatchData holds the running session. This is a singleton component; only
// one match exists at a time.
type MatchData struct {
	Session *game.Session
	// Notice is a short message drawn in the HUD, such as a failed spawn.
	Notice string
}

var Match = donburi.NewComponentType[MatchData]()
