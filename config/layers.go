package config

import "github.com/yohamta/donburi/ecs"

// Render layers, drawn in order
const (
	Default ecs.LayerID = iota
	HUD
)
