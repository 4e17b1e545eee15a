package snapshot

import "github.com/automoto/netsnap/shared/protocol"

const defaultBufferSize = 16

// Buffer is a FIFO ring of snapshots in arrival order. It grows instead of
// dropping, so nothing admitted is lost before playback consumes it.
type Buffer struct {
	items []protocol.Snapshot
	head  int
	n     int
}

func NewBuffer(capacity int) *Buffer {
	if capacity < 1 {
		capacity = defaultBufferSize
	}
	return &Buffer{items: make([]protocol.Snapshot, capacity)}
}

// Push appends s at the back.
func (b *Buffer) Push(s protocol.Snapshot) {
	if b.n == len(b.items) {
		b.grow()
	}
	b.items[(b.head+b.n)%len(b.items)] = s
	b.n++
}

// Pop removes and returns the front snapshot.
func (b *Buffer) Pop() (protocol.Snapshot, bool) {
	if b.n == 0 {
		return protocol.Snapshot{}, false
	}
	s := b.items[b.head]
	b.items[b.head] = protocol.Snapshot{}
	b.head = (b.head + 1) % len(b.items)
	b.n--
	return s, true
}

func (b *Buffer) Front() (protocol.Snapshot, bool) {
	if b.n == 0 {
		return protocol.Snapshot{}, false
	}
	return b.items[b.head], true
}

func (b *Buffer) Len() int { return b.n }

func (b *Buffer) Clear() {
	clear(b.items)
	b.head, b.n = 0, 0
}

func (b *Buffer) grow() {
	items := make([]protocol.Snapshot, len(b.items)*2)
	for i := 0; i < b.n; i++ {
		items[i] = b.items[(b.head+i)%len(b.items)]
	}
	b.items, b.head = items, 0
}
