package core

import (
	"github.com/automoto/netsnap/shared/identity"
	"github.com/solarlune/resolv"
	"github.com/yohamta/donburi"
)

// PlayerBody is the server-only state of a player entity. It is not a
// donburi component and is never sent to clients.
type PlayerBody struct {
	ID     identity.NetID
	Entity donburi.Entity
	Object *resolv.Object
	// Yaw is the rotation about +Y in radians; zero faces -Z.
	Yaw float32
}

func newPlayerBody(arena *Arena, id identity.NetID, entity donburi.Entity) *PlayerBody {
	return &PlayerBody{
		ID:     id,
		Entity: entity,
		Object: arena.AddPlayer(spawnPoint),
	}
}

func removePlayerBody(arena *Arena, b *PlayerBody) {
	arena.Remove(b.Object)
}
