// Package netcomponents holds the donburi components shared by the server and
// the client for networked entities.
package netcomponents

import (
	"github.com/automoto/netsnap/shared/identity"
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/filter"
)

var NetworkID = donburi.NewComponentType[identity.NetID]()

var (
	PlayerTag   = donburi.NewTag().SetName("Player")
	ObstacleTag = donburi.NewTag().SetName("Obstacle")
)

// Networked matches every entity that has an id and a pose.
var Networked = donburi.NewQuery(filter.Contains(NetworkID, Transform))

// Find returns the networked entity with id.
func Find(w donburi.World, id identity.NetID) (*donburi.Entry, bool) {
	var found *donburi.Entry
	Networked.Each(w, func(e *donburi.Entry) {
		if found == nil && *NetworkID.Get(e) == id {
			found = e
		}
	})
	return found, found != nil
}
