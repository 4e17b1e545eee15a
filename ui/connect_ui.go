package ui

import (
	"bytes"
	"image/color"
	"strings"

	"github.com/automoto/netsnap/components"
	"github.com/ebitenui/ebitenui"
	"github.com/ebitenui/ebitenui/image"
	"github.com/ebitenui/ebitenui/widget"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"golang.org/x/image/font/gofont/goregular"
)

// ConnectUI is the menu's endpoint panel: an editable address, a transport
// toggle and the host, join and quit buttons. Widgets only post requests to
// the menu; the menu system acts on them.
type ConnectUI struct {
	UI *ebitenui.UI

	menu *components.MenuData

	addrInput    *widget.TextInput
	transportBtn *widget.Button
	statusLabel  *widget.Label

	normalFace text.Face
	smallFace  text.Face
}

// NewConnectUI builds the panel around menu. The address field starts with
// menu.Addr.
func NewConnectUI(menu *components.MenuData) (*ConnectUI, error) {
	cu := &ConnectUI{menu: menu}
	if err := cu.loadFonts(); err != nil {
		return nil, err
	}
	cu.buildUI()
	cu.addrInput.SetText(menu.Addr)
	return cu, nil
}

func (cu *ConnectUI) loadFonts() error {
	fontSource, err := text.NewGoTextFaceSource(bytes.NewReader(goregular.TTF))
	if err != nil {
		return err
	}
	cu.normalFace = &text.GoTextFace{Source: fontSource, Size: 16}
	cu.smallFace = &text.GoTextFace{Source: fontSource, Size: 13}
	return nil
}

func (cu *ConnectUI) buildUI() {
	rootContainer := widget.NewContainer(
		widget.ContainerOpts.Layout(widget.NewAnchorLayout(
			widget.AnchorLayoutOpts.Padding(widget.NewInsetsSimple(40)),
		)),
	)

	padding := widget.Insets{Top: 10, Bottom: 10, Left: 12, Right: 12}
	panel := widget.NewContainer(
		widget.ContainerOpts.BackgroundImage(image.NewNineSliceColor(color.RGBA{30, 30, 45, 255})),
		widget.ContainerOpts.Layout(widget.NewRowLayout(
			widget.RowLayoutOpts.Direction(widget.DirectionVertical),
			widget.RowLayoutOpts.Padding(&padding),
			widget.RowLayoutOpts.Spacing(8),
		)),
		widget.ContainerOpts.WidgetOpts(
			widget.WidgetOpts.LayoutData(widget.AnchorLayoutData{
				HorizontalPosition: widget.AnchorLayoutPositionCenter,
				VerticalPosition:   widget.AnchorLayoutPositionEnd,
			}),
		),
	)

	panel.AddChild(cu.buildEndpointRow())
	panel.AddChild(cu.buildButtons())

	cu.statusLabel = widget.NewLabel(
		widget.LabelOpts.Text("", &cu.smallFace, &widget.LabelColor{
			Idle: color.RGBA{255, 200, 100, 255},
		}),
	)
	panel.AddChild(cu.statusLabel)

	rootContainer.AddChild(panel)
	cu.UI = &ebitenui.UI{Container: rootContainer}
}

func (cu *ConnectUI) buildEndpointRow() *widget.Container {
	row := widget.NewContainer(
		widget.ContainerOpts.Layout(widget.NewRowLayout(
			widget.RowLayoutOpts.Direction(widget.DirectionHorizontal),
			widget.RowLayoutOpts.Spacing(6),
		)),
	)

	row.AddChild(widget.NewLabel(
		widget.LabelOpts.Text("Address:", &cu.normalFace, &widget.LabelColor{
			Idle: color.RGBA{200, 200, 200, 255},
		}),
	))

	cu.addrInput = widget.NewTextInput(
		widget.TextInputOpts.WidgetOpts(widget.WidgetOpts.MinSize(220, 26)),
		widget.TextInputOpts.Image(&widget.TextInputImage{
			Idle:     image.NewNineSliceColor(color.RGBA{50, 50, 70, 255}),
			Disabled: image.NewNineSliceColor(color.RGBA{40, 40, 50, 255}),
		}),
		widget.TextInputOpts.Face(&cu.normalFace),
		widget.TextInputOpts.Color(&widget.TextInputColor{
			Idle:          color.RGBA{255, 255, 255, 255},
			Disabled:      color.RGBA{128, 128, 128, 255},
			Caret:         color.RGBA{255, 255, 255, 255},
			DisabledCaret: color.RGBA{128, 128, 128, 255},
		}),
		widget.TextInputOpts.Placeholder("127.0.0.1:7373"),
		widget.TextInputOpts.Padding(widget.NewInsetsSimple(4)),
	)
	row.AddChild(cu.addrInput)

	cu.transportBtn = cu.newButton("", color.RGBA{60, 60, 80, 255}, components.MenuNextTransport)
	row.AddChild(cu.transportBtn)
	return row
}

func (cu *ConnectUI) buildButtons() *widget.Container {
	container := widget.NewContainer(
		widget.ContainerOpts.Layout(widget.NewRowLayout(
			widget.RowLayoutOpts.Direction(widget.DirectionHorizontal),
			widget.RowLayoutOpts.Spacing(10),
		)),
	)
	container.AddChild(cu.newButton("Host", color.RGBA{40, 100, 40, 255}, components.MenuHost))
	container.AddChild(cu.newButton("Join", color.RGBA{40, 70, 110, 255}, components.MenuJoin))
	container.AddChild(cu.newButton("Quit", color.RGBA{100, 40, 40, 255}, components.MenuQuit))
	return container
}

// newButton posts req to the menu when clicked.
func (cu *ConnectUI) newButton(label string, base color.RGBA, req components.MenuRequest) *widget.Button {
	return widget.NewButton(
		widget.ButtonOpts.WidgetOpts(widget.WidgetOpts.MinSize(100, 28)),
		widget.ButtonOpts.Image(&widget.ButtonImage{
			Idle:    image.NewNineSliceColor(base),
			Hover:   image.NewNineSliceColor(lighten(base)),
			Pressed: image.NewNineSliceColor(darken(base)),
		}),
		widget.ButtonOpts.Text(label, &cu.normalFace, &widget.ButtonTextColor{
			Idle:    color.RGBA{255, 255, 255, 255},
			Hover:   color.RGBA{230, 230, 230, 255},
			Pressed: color.RGBA{180, 180, 180, 255},
		}),
		widget.ButtonOpts.ClickedHandler(func(args *widget.ButtonClickedEventArgs) {
			cu.menu.Request = req
		}),
	)
}

func lighten(c color.RGBA) color.RGBA {
	return color.RGBA{R: c.R + (255-c.R)/4, G: c.G + (255-c.G)/4, B: c.B + (255-c.B)/4, A: c.A}
}

func darken(c color.RGBA) color.RGBA {
	return color.RGBA{R: c.R - c.R/4, G: c.G - c.G/4, B: c.B - c.B/4, A: c.A}
}

// Update runs the widgets against menu and copies the address field back.
// menu is passed each frame since the ECS may move its storage.
func (cu *ConnectUI) Update(menu *components.MenuData) {
	cu.menu = menu
	cu.UI.Update()

	if addr := strings.TrimSpace(cu.addrInput.GetText()); addr != "" {
		menu.Addr = addr
	}
	menu.Editing = cu.addrInput.IsFocused()

	if t := cu.transportBtn.Text(); t != nil {
		t.Label = menu.Transport
	}
	cu.statusLabel.Label = ""
	if menu.ShowStatus() {
		cu.statusLabel.Label = menu.Status
	}
}

func (cu *ConnectUI) Draw(screen *ebiten.Image) {
	cu.UI.Draw(screen)
}
