// Package identity allocates network ids and tracks which transport address
// owns which id. It has no dependency on any transport so every backend can
// share the same bookkeeping.
package identity

import (
	"errors"
	"fmt"
)

// NetID identifies a connected peer or a server-owned object for the lifetime
// of a session.
type NetID uint8

// MaxIdentities is the hard capacity of one session. Client ids and object ids
// are carved from opposite ends of the same range and are never reclaimed.
const MaxIdentities = 256

// ErrExhausted is returned once the client and object ends of the id range
// would meet.
var ErrExhausted = errors.New("identity: id space exhausted")

// Allocator hands out client ids from 0 upward and object ids from 255
// downward. The two ends can never produce the same id.
type Allocator struct {
	nextClient int
	nextObject int
}

func NewAllocator() *Allocator {
	return &Allocator{
		nextClient: 0,
		nextObject: MaxIdentities - 1,
	}
}

// NextClient returns the next sequential client id.
func (a *Allocator) NextClient() (NetID, error) {
	if a.nextClient > a.nextObject {
		return 0, fmt.Errorf("client id: %w", ErrExhausted)
	}
	id := NetID(a.nextClient)
	a.nextClient++
	return id, nil
}

// NextObject returns the next server-owned object id.
func (a *Allocator) NextObject() (NetID, error) {
	if a.nextObject < a.nextClient {
		return 0, fmt.Errorf("object id: %w", ErrExhausted)
	}
	id := NetID(a.nextObject)
	a.nextObject--
	return id, nil
}

// Remaining reports how many ids are still available to either end.
func (a *Allocator) Remaining() int {
	return a.nextObject - a.nextClient + 1
}
