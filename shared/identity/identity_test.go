package identity

import (
	"errors"
	"testing"
)

func TestClientAndObjectIDsComeFromOppositeEnds(t *testing.T) {
	a := NewAllocator()

	for want := 0; want < 3; want++ {
		id, err := a.NextClient()
		if err != nil {
			t.Fatalf("NextClient: %v", err)
		}
		if int(id) != want {
			t.Fatalf("client id = %d, want %d", id, want)
		}
	}

	for _, want := range []NetID{255, 254} {
		id, err := a.NextObject()
		if err != nil {
			t.Fatalf("NextObject: %v", err)
		}
		if id != want {
			t.Fatalf("object id = %d, want %d", id, want)
		}
	}
}

func TestAllocatorNeverCollides(t *testing.T) {
	a := NewAllocator()
	seen := make(map[NetID]bool)

	for i := 0; ; i++ {
		var (
			id  NetID
			err error
		)
		if i%2 == 0 {
			id, err = a.NextClient()
		} else {
			id, err = a.NextObject()
		}
		if err != nil {
			if !errors.Is(err, ErrExhausted) {
				t.Fatalf("unexpected error: %v", err)
			}
			break
		}
		if seen[id] {
			t.Fatalf("id %d handed out twice", id)
		}
		seen[id] = true
	}

	if len(seen) != MaxIdentities {
		t.Fatalf("allocated %d ids, want %d", len(seen), MaxIdentities)
	}
	if a.Remaining() != 0 {
		t.Fatalf("Remaining = %d, want 0", a.Remaining())
	}
	if _, err := a.NextObject(); !errors.Is(err, ErrExhausted) {
		t.Fatalf("NextObject after exhaustion: %v", err)
	}
}

func TestRegistryLifecycle(t *testing.T) {
	r := NewRegistry[string]()
	r.Begin("a", 0)

	if _, ok := r.Addr(0); ok {
		t.Fatal("connecting id must not be addressable")
	}
	if _, state, _ := r.Lookup("a"); state != StateConnecting {
		t.Fatalf("state = %v, want connecting", state)
	}

	id, ok := r.Promote("a")
	if !ok || id != 0 {
		t.Fatalf("Promote = %d, %v", id, ok)
	}
	if _, ok := r.Promote("a"); ok {
		t.Fatal("second Promote should fail")
	}
	if addr, ok := r.Addr(0); !ok || addr != "a" {
		t.Fatalf("Addr(0) = %q, %v", addr, ok)
	}

	r.Begin("b", 1)
	r.Promote("b")
	if got := r.Connected(); len(got) != 2 || got[0] != 0 || got[1] != 1 {
		t.Fatalf("Connected = %v", got)
	}

	id, state, ok := r.Remove("a")
	if !ok || id != 0 || state != StateConnected {
		t.Fatalf("Remove = %d, %v, %v", id, state, ok)
	}
	if _, ok := r.Addr(0); ok {
		t.Fatal("removed id still addressable")
	}
	if r.Len() != 1 {
		t.Fatalf("Len = %d, want 1", r.Len())
	}
}
