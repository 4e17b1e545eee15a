package systems

import (
	"errors"
	"testing"

	"github.com/automoto/netsnap/components"
	cfg "github.com/automoto/netsnap/config"
	"github.com/automoto/netsnap/systems/factory"
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/ecs"
)

type fakeChanger struct{ quit bool }

func (f *fakeChanger) ChangeScene(interface{}) {}
func (f *fakeChanger) Quit()                   { f.quit = true }

type connectCall struct {
	host      bool
	addr      string
	transport string
}

func newMenuWorld(t *testing.T, connectErr error) (*ecs.ECS, *components.MenuData, *fakeChanger, *[]connectCall) {
	t.Helper()
	e := ecs.NewECS(donburi.NewWorld())
	entry := factory.CreateMenu(e, "127.0.0.1:7373", "udp", "")
	sc := &fakeChanger{}
	var calls []connectCall
	e.AddSystem(NewUpdateMenu(sc, func(host bool, addr, transport string) error {
		calls = append(calls, connectCall{host, addr, transport})
		return connectErr
	}))
	return e, components.Menu.Get(entry), sc, &calls
}

func TestMenuWidgetRequests(t *testing.T) {
	e, menu, sc, calls := newMenuWorld(t, nil)

	menu.Request = components.MenuNextTransport
	e.Update()
	if menu.Transport != "websocket" || menu.Request != components.MenuNone {
		t.Fatalf("transport=%q request=%v", menu.Transport, menu.Request)
	}

	menu.Addr = "10.0.0.2:9000"
	menu.Request = components.MenuJoin
	e.Update()
	want := connectCall{false, "10.0.0.2:9000", "websocket"}
	if len(*calls) != 1 || (*calls)[0] != want {
		t.Fatalf("calls = %+v", *calls)
	}

	menu.Request = components.MenuHost
	e.Update()
	if len(*calls) != 2 || !(*calls)[1].host {
		t.Fatalf("calls = %+v", *calls)
	}

	menu.Request = components.MenuQuit
	e.Update()
	if !sc.quit {
		t.Fatal("quit request ignored")
	}
}

func TestMenuHotkeysIgnoredWhileEditing(t *testing.T) {
	e, menu, _, calls := newMenuWorld(t, nil)
	input := getOrCreateInput(e)
	input.Current[cfg.ActionHost] = true

	menu.Editing = true
	e.Update()
	if len(*calls) != 0 {
		t.Fatalf("hotkey fired while editing: %+v", *calls)
	}

	menu.Editing = false
	input.Previous = [cfg.ActionCount]bool{}
	e.Update()
	if len(*calls) != 1 || !(*calls)[0].host {
		t.Fatalf("calls = %+v", *calls)
	}
}

func TestMenuConnectErrorBecomesStatus(t *testing.T) {
	e, menu, _, _ := newMenuWorld(t, errors.New("connect 127.0.0.1:7373: refused"))

	menu.Request = components.MenuJoin
	e.Update()
	if !menu.ShowStatus() || menu.Status != "connect 127.0.0.1:7373: refused" {
		t.Fatalf("status = %q left=%v", menu.Status, menu.StatusLeft)
	}
}

func TestNextTransport(t *testing.T) {
	cases := map[string]string{
		"udp":       "websocket",
		"websocket": "memory",
		"ws":        "memory",
		"memory":    "udp",
		"carrier":   "udp",
	}
	for in, want := range cases {
		if got := NextTransport(in); got != want {
			t.Errorf("NextTransport(%q) = %q, want %q", in, got, want)
		}
	}
}
