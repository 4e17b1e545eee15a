package components

import (
	"time"

	"github.com/yohamta/donburi"
)

// MenuRequest is an action asked for by a menu widget, handled by the menu
// system on its next update.
type MenuRequest int

const (
	MenuNone MenuRequest = iota
	MenuHost
	MenuJoin
	MenuQuit
	MenuNextTransport
)

// MenuData stores the state of the connect menu
type MenuData struct {
	Addr      string
	Transport string
	// Status is shown under the options until StatusLeft runs out.
	Status     string
	StatusLeft time.Duration

	Request MenuRequest
	// Editing is set while a text field has focus. Hotkeys are ignored then.
	Editing bool
}

// SetStatus shows msg for d.
func (m *MenuData) SetStatus(msg string, d time.Duration) {
	m.Status, m.StatusLeft = msg, d
}

// ShowStatus reports whether the status line is still visible.
func (m *MenuData) ShowStatus() bool {
	return m.StatusLeft > 0 && m.Status != ""
}

var Menu = donburi.NewComponentType[MenuData]()
