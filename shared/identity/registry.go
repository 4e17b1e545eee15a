package identity

import "sort"

// ConnState is the lifecycle state of a connection.
type ConnState int

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

type connection struct {
	id    NetID
	state ConnState
}

// Registry maps transport addresses to ids. Only connected entries are
// reachable by id; connecting entries wait for the transport to confirm the
// handshake.
type Registry[A comparable] struct {
	byAddr map[A]*connection
	byID   map[NetID]A
}

func NewRegistry[A comparable]() *Registry[A] {
	return &Registry[A]{
		byAddr: make(map[A]*connection),
		byID:   make(map[NetID]A),
	}
}

// Begin records addr as connecting with the given id.
func (r *Registry[A]) Begin(addr A, id NetID) {
	r.byAddr[addr] = &connection{id: id, state: StateConnecting}
}

// Promote moves a connecting addr to connected. It returns false when addr is
// not connecting.
func (r *Registry[A]) Promote(addr A) (NetID, bool) {
	c, ok := r.byAddr[addr]
	if !ok || c.state != StateConnecting {
		return 0, false
	}
	c.state = StateConnected
	r.byID[c.id] = addr
	return c.id, true
}

// Lookup returns the id and state recorded for addr.
func (r *Registry[A]) Lookup(addr A) (NetID, ConnState, bool) {
	c, ok := r.byAddr[addr]
	if !ok {
		return 0, StateDisconnected, false
	}
	return c.id, c.state, true
}

// Remove forgets addr and returns the state it was in.
func (r *Registry[A]) Remove(addr A) (NetID, ConnState, bool) {
	c, ok := r.byAddr[addr]
	if !ok {
		return 0, StateDisconnected, false
	}
	delete(r.byAddr, addr)
	if c.state == StateConnected {
		delete(r.byID, c.id)
	}
	return c.id, c.state, true
}

// Addr returns the address of a connected id.
func (r *Registry[A]) Addr(id NetID) (A, bool) {
	addr, ok := r.byID[id]
	return addr, ok
}

// Connected returns the ids of every connected peer in ascending order.
func (r *Registry[A]) Connected() []NetID {
	ids := make([]NetID, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Len returns the number of tracked addresses in any state.
func (r *Registry[A]) Len() int {
	return len(r.byAddr)
}
