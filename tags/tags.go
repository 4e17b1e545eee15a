package tags

import "github.com/yohamta/donburi"

var (
	Menu  = donburi.NewTag().SetName("Menu")
	Match = donburi.NewTag().SetName("Match")
)
