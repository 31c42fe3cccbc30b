//go:build sdl2

package sdl2

import (
	"github.com/lr35902/dmg-core/jeebie/debug"
	"github.com/veandco/go-sdl2/sdl"
)

const (
	DebugWindowWidth  = 1300
	DebugWindowHeight = 560
)

// DebugWindow is a secondary SDL2 window showing OAM, VRAM, and APU state,
// redrawn on demand from the last data pushed via UpdateData.
type DebugWindow struct {
	window   *sdl.Window
	renderer *sdl.Renderer
	visible  bool

	oam   *debug.OAMData
	vram  *debug.VRAMData
	audio *debug.AudioData

	needsUpdate bool
}

func NewDebugWindow() *DebugWindow {
	return &DebugWindow{needsUpdate: true}
}

func (dw *DebugWindow) Init() error {
	window, err := sdl.CreateWindow(
		"Game Boy Debug",
		sdl.WINDOWPOS_CENTERED,
		sdl.WINDOWPOS_CENTERED,
		DebugWindowWidth,
		DebugWindowHeight,
		sdl.WINDOW_SHOWN|sdl.WINDOW_RESIZABLE,
	)
	if err != nil {
		return err
	}
	dw.window = window

	renderer, err := sdl.CreateRenderer(window, -1, sdl.RENDERER_ACCELERATED)
	if err != nil {
		window.Destroy()
		return err
	}
	dw.renderer = renderer

	dw.window.Hide()
	return nil
}

// UpdateData replaces the OAM/VRAM/APU snapshots shown in the window.
func (dw *DebugWindow) UpdateData(oam *debug.OAMData, vram *debug.VRAMData, audio *debug.AudioData) {
	dw.oam = oam
	dw.vram = vram
	dw.audio = audio
	dw.needsUpdate = true
}

// ProcessEvent lets the debug window react to its own close button; input
// for the emulator itself is handled by the main Backend.
func (dw *DebugWindow) ProcessEvent(evt sdl.Event) {
	if e, ok := evt.(*sdl.WindowEvent); ok {
		if e.Event == sdl.WINDOWEVENT_CLOSE && dw.window != nil && e.WindowID == dw.window.GetID() {
			dw.SetVisible(false)
		}
	}
}

func (dw *DebugWindow) Render() error {
	if !dw.visible || !dw.needsUpdate || dw.renderer == nil {
		return nil
	}

	dw.renderer.SetDrawColor(30, 30, 30, 255)
	dw.renderer.Clear()

	dw.renderOAMPanel()
	dw.renderVRAMPanel()
	dw.renderAudioPanel()

	dw.renderer.Present()
	dw.needsUpdate = false
	return nil
}

// renderOAMPanel draws one row per visible sprite: green for normal priority,
// red for sprites drawn behind the background.
func (dw *DebugWindow) renderOAMPanel() {
	panelRect := &sdl.Rect{X: 10, Y: 10, W: 420, H: 540}
	dw.renderer.SetDrawColor(40, 40, 40, 255)
	dw.renderer.FillRect(panelRect)
	dw.renderer.SetDrawColor(100, 100, 100, 255)
	dw.renderer.DrawRect(panelRect)

	if dw.oam == nil {
		return
	}

	const rowHeight = 13
	for i, sprite := range dw.oam.GetVisibleSprites() {
		y := int32(20 + i*rowHeight)
		if y > 540 {
			break
		}
		if sprite.DecodeAttributes().BackgroundPriority {
			dw.renderer.SetDrawColor(200, 120, 120, 255)
		} else {
			dw.renderer.SetDrawColor(120, 200, 120, 255)
		}
		dw.renderer.FillRect(&sdl.Rect{X: 20, Y: y, W: 10, H: 10})
	}
}

// renderVRAMPanel draws the full 384-tile VRAM grid as a grayscale thumbnail,
// one cell per tile, shaded by its average pixel luma.
func (dw *DebugWindow) renderVRAMPanel() {
	panelRect := &sdl.Rect{X: 440, Y: 10, W: 450, H: 540}
	dw.renderer.SetDrawColor(40, 40, 40, 255)
	dw.renderer.FillRect(panelRect)
	dw.renderer.SetDrawColor(100, 100, 100, 255)
	dw.renderer.DrawRect(panelRect)

	if dw.vram == nil {
		return
	}

	grid := dw.vram.GetTileGrid()
	const cell = 4
	for row := range grid {
		for col, tile := range grid[row] {
			x := int32(450 + col*cell)
			y := int32(20 + row*cell)
			shade := tileAverageShade(tile)
			dw.renderer.SetDrawColor(shade, shade, shade, 255)
			dw.renderer.FillRect(&sdl.Rect{X: x, Y: y, W: cell, H: cell})
		}
	}
}

// tileAverageShade maps a tile's average 2-bit color value to a grayscale byte.
func tileAverageShade(tile debug.TilePattern) uint8 {
	var sum, count int
	for _, row := range tile.Pixels() {
		for _, px := range row {
			sum += int(px)
			count++
		}
	}
	if count == 0 {
		return 255
	}
	avg := sum / count // 0 (white) .. 3 (black)
	return uint8(255 - avg*85)
}

// renderAudioPanel draws one bar per channel: bar length tracks volume (0-15),
// green when the channel is enabled, grey when it's silent.
func (dw *DebugWindow) renderAudioPanel() {
	panelRect := &sdl.Rect{X: 900, Y: 10, W: 390, H: 540}
	dw.renderer.SetDrawColor(40, 40, 40, 255)
	dw.renderer.FillRect(panelRect)
	dw.renderer.SetDrawColor(100, 100, 100, 255)
	dw.renderer.DrawRect(panelRect)

	if dw.audio == nil {
		return
	}

	channels := [4]debug.ChannelStatus{
		dw.audio.Channels.Ch1,
		dw.audio.Channels.Ch2,
		dw.audio.Channels.Ch3,
		dw.audio.Channels.Ch4,
	}

	const barMaxWidth = 340
	const barHeight = 24
	const rowGap = 40
	for i, ch := range channels {
		y := int32(30 + i*rowGap)
		width := int32(barMaxWidth) * int32(ch.Volume) / 15
		if ch.Enabled {
			dw.renderer.SetDrawColor(120, 200, 120, 255)
		} else {
			dw.renderer.SetDrawColor(90, 90, 90, 255)
		}
		dw.renderer.FillRect(&sdl.Rect{X: 910, Y: y, W: width, H: barHeight})
		dw.renderer.SetDrawColor(150, 150, 150, 255)
		dw.renderer.DrawRect(&sdl.Rect{X: 910, Y: y, W: barMaxWidth, H: barHeight})
	}
}

func (dw *DebugWindow) SetVisible(visible bool) {
	dw.visible = visible
	if dw.window == nil {
		return
	}
	if visible {
		dw.window.Show()
		dw.needsUpdate = true
	} else {
		dw.window.Hide()
	}
}

func (dw *DebugWindow) IsVisible() bool {
	return dw.visible
}

func (dw *DebugWindow) IsInitialized() bool {
	return dw.window != nil
}

func (dw *DebugWindow) Cleanup() error {
	if dw.renderer != nil {
		dw.renderer.Destroy()
	}
	if dw.window != nil {
		dw.window.Destroy()
	}
	return nil
}
