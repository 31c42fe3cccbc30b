package video

import (
	"fmt"
	"log/slog"

	"github.com/lr35902/dmg-core/jeebie/addr"
	"github.com/lr35902/dmg-core/jeebie/bit"
	"github.com/lr35902/dmg-core/jeebie/memory"
)

// GpuMode is the PPU's current rendering stage. Values match STAT bits 1-0.
type GpuMode int

const (
	// hblankMode (Mode 0): horizontal blank, CPU can access VRAM/OAM
	hblankMode GpuMode = 0
	// vblankMode (Mode 1): vertical blank, CPU can access VRAM/OAM
	vblankMode GpuMode = 1
	// oamReadMode (Mode 2): PPU reading OAM, CPU cannot access OAM
	oamReadMode GpuMode = 2
	// vramReadMode (Mode 3): PPU reading VRAM, CPU cannot access VRAM/OAM
	vramReadMode GpuMode = 3
)

const (
	hblankCycles       = 204
	oamScanlineCycles  = 80
	vramScanlineCycles = 172
	scanlineCycles     = oamScanlineCycles + vramScanlineCycles + hblankCycles

	vblankLines    = 10
	framesCycles   = scanlineCycles * (FramebufferHeight + vblankLines)
	line153Cycles  = 4104 // LY=153 is held for only ~4 T-cycles before wrapping
	line153HoldEnd = 4    // modeCounterAux threshold matching that hold window
	vblankExitAt   = 10 * scanlineCycles
)

// GPU drives the PPU's mode state machine and rasterizes each scanline into
// a FrameBuffer. Sprite selection/priority is delegated to an OAM scanning
// the same bus, so the duplicate sprite-selection logic this package used
// to carry inline here and in oam.go now lives in one place.
type GPU struct {
	memory      *memory.MMU
	framebuffer *FrameBuffer
	oam         *OAM
	bgColorRow  []byte // per-pixel BG/window color index (0-3), for sprite BG-priority checks

	mode             GpuMode
	line             int // LY, 0-153
	cycles           int // cycles accumulated in the current mode
	vblankCycles     int // cycles accumulated across the whole VBlank period
	vBlankLine       int // which of the 10 VBlank lines we're on
	scanlineRendered bool
	windowLineCounter int // internal window line counter, 0-143
}

func NewGpu(mem *memory.MMU) *GPU {
	gpu := &GPU{
		framebuffer: NewFrameBuffer(),
		memory:      mem,
		oam:         NewOAM(mem),
		bgColorRow:  make([]byte, FramebufferSize),
		mode:        vblankMode,
		line:        144,
	}

	lcdc := mem.Read(addr.LCDC)
	bgp := mem.Read(addr.BGP)
	slog.Debug("GPU initialized", "LCDC", fmt.Sprintf("0x%02X", lcdc), "LCD_enabled", (lcdc&0x80) != 0, "BGP", fmt.Sprintf("0x%02X", bgp))

	return gpu
}

func (g *GPU) GetFrameBuffer() *FrameBuffer {
	return g.framebuffer
}

// Tick advances the PPU by cycles T-cycles, running whichever mode handler
// is active and switching modes as their budgets are exhausted.
func (g *GPU) Tick(cycles int) {
	g.cycles += cycles

	switch g.mode {
	case hblankMode:
		g.tickHBlank()
	case vblankMode:
		g.tickVBlank(cycles)
	case oamReadMode:
		g.tickOAMScan()
	case vramReadMode:
		g.tickPixelTransfer()
	}

	if g.cycles >= framesCycles {
		g.cycles -= framesCycles
	}
}

func (g *GPU) tickHBlank() {
	if g.cycles < hblankCycles {
		return
	}
	g.cycles -= hblankCycles
	g.setMode(oamReadMode)
	g.setLY(g.line + 1)

	if g.line == 144 {
		g.enterVBlank()
		return
	}
	if g.memory.ReadBit(statOamIrq, addr.STAT) {
		g.memory.RequestInterrupt(addr.LCDSTATInterrupt)
	}
}

func (g *GPU) enterVBlank() {
	g.setMode(vblankMode)
	g.vBlankLine = 0
	g.vblankCycles = g.cycles
	g.windowLineCounter = 0

	g.memory.RequestInterrupt(addr.VBlankInterrupt)
	if g.memory.ReadBit(statVblankIrq, addr.STAT) {
		g.memory.RequestInterrupt(addr.LCDSTATInterrupt)
	}
}

func (g *GPU) tickVBlank(cycles int) {
	g.vblankCycles += cycles

	if g.vblankCycles >= scanlineCycles {
		g.vblankCycles -= scanlineCycles
		g.vBlankLine++
		if g.vBlankLine <= vblankLines-1 {
			g.setLY(g.line + 1)
		}
	}

	// real DMG hardware quirk: LY briefly reports 0 for a few T-cycles
	// before the new frame's OAM scan begins, rather than jumping straight
	// from 153 to 0 at the VBlank/OAM-scan boundary.
	if g.cycles >= line153Cycles && g.vblankCycles >= line153HoldEnd && g.line == 153 {
		g.setLY(0)
	}

	if g.cycles >= vblankExitAt {
		g.cycles -= vblankExitAt
		g.setMode(oamReadMode)
		if g.memory.ReadBit(statOamIrq, addr.STAT) {
			g.memory.RequestInterrupt(addr.LCDSTATInterrupt)
		}
	}
}

func (g *GPU) tickOAMScan() {
	if g.cycles < oamScanlineCycles {
		return
	}
	g.cycles -= oamScanlineCycles
	g.setMode(vramReadMode)
	g.scanlineRendered = false
}

func (g *GPU) tickPixelTransfer() {
	if !g.scanlineRendered {
		if g.readLCDCVariable(lcdDisplayEnable) == 1 {
			g.drawScanline()
		}
		g.scanlineRendered = true
	}

	if g.cycles < vramScanlineCycles {
		return
	}
	g.cycles -= vramScanlineCycles
	g.setMode(hblankMode)
	if g.memory.ReadBit(statHblankIrq, addr.STAT) {
		g.memory.RequestInterrupt(addr.LCDSTATInterrupt)
	}
}

func (g *GPU) drawScanline() {
	if g.readLCDCVariable(lcdDisplayEnable) == 0 {
		lineStart := g.line * FramebufferWidth
		for i := 0; i < FramebufferWidth; i++ {
			g.framebuffer.buffer[lineStart+i] = uint32(WhiteColor)
		}
		return
	}

	g.drawBackground()
	g.drawWindow()
	g.drawSprites()
}

// tileAddressFor resolves the VRAM address of the row (pixelY2 = row*2
// bytes into the tile) for a tile map entry, honoring LCDC's signed/unsigned
// tile data addressing mode.
func tileAddressFor(tilesBase uint16, useSignedTileSet bool, mapValue byte, rowOffsetBytes int) uint16 {
	if useSignedTileSet {
		signedTile := int(int8(mapValue))
		return uint16(int(tilesBase) + signedTile*16 + rowOffsetBytes)
	}
	return tilesBase + uint16(int(mapValue)*16+rowOffsetBytes)
}

func (g *GPU) drawBackground() {
	lineStart := g.line * FramebufferWidth

	if g.readLCDCVariable(bgDisplay) == 0 {
		// background disabled: still shows color 0 of BGP, not a blank screen
		palette := g.memory.Read(addr.BGP)
		color0 := palette & 0x03
		displayColor := uint32(ByteToColor(color0))
		for i := range FramebufferWidth {
			g.framebuffer.buffer[lineStart+i] = displayColor
			g.bgColorRow[lineStart+i] = 0
		}
		return
	}

	useSignedTileSet := g.readLCDCVariable(bgWindowTileDataSelect) == 0
	tilesBase := addr.TileData0
	if useSignedTileSet {
		tilesBase = addr.TileData2
	}

	tileMapBase := addr.TileMap1
	if g.readLCDCVariable(bgTileMapDisplaySelect) == 0 {
		tileMapBase = addr.TileMap0
	}

	scrollX := g.memory.Read(addr.SCX)
	scrollY := g.memory.Read(addr.SCY)
	wrappedLine := (g.line + int(scrollY)) & 0xFF // BG map wraps at 256px
	mapRowBase := (wrappedLine / 8) * 32
	rowOffsetBytes := (wrappedLine % 8) * 2

	for screenX := 0; screenX < FramebufferWidth; screenX++ {
		mapX := (screenX + int(scrollX)) & 0xFF
		mapTileCol := mapX / 8
		tileXOffset := mapX % 8

		mapValue := g.memory.Read(tileMapBase + uint16(mapRowBase+mapTileCol))
		tileAddr := tileAddressFor(tilesBase, useSignedTileSet, mapValue, rowOffsetBytes)

		low := g.memory.Read(tileAddr)
		high := g.memory.Read(tileAddr + 1)
		pixel := decodePixel(uint8(7-tileXOffset), low, high)

		pos := lineStart + screenX
		palette := g.memory.Read(addr.BGP)
		color := (palette >> (pixel * 2)) & 0x03
		g.framebuffer.buffer[pos] = uint32(ByteToColor(color))
		g.bgColorRow[pos] = color
	}
}

func (g *GPU) drawWindow() {
	if g.windowLineCounter > 143 || g.readLCDCVariable(windowDisplayEnable) == 0 {
		return
	}

	wx := g.memory.Read(addr.WX) - 7
	wy := g.memory.Read(addr.WY)

	if wx > 159 || wy > 143 || int(wy) > g.line {
		return
	}

	if g.line < 5 {
		slog.Debug("Window rendering", "line", g.line, "windowLine", g.windowLineCounter, "wx", wx, "wy", wy)
	}

	useSignedTileSet := g.readLCDCVariable(bgWindowTileDataSelect) == 0
	tilesBase := addr.TileData0
	if useSignedTileSet {
		tilesBase = addr.TileData2
	}

	tileMapBase := addr.TileMap1
	if g.readLCDCVariable(windowTileMapSelect) == 0 {
		tileMapBase = addr.TileMap0
	}

	mapRowBase := (g.windowLineCounter / 8) * 32
	rowOffsetBytes := (g.windowLineCounter & 7) * 2
	lineStart := g.line * FramebufferWidth

	tileCount := (FramebufferWidth - int(wx) + 7) / 8
	if tileCount > 32 {
		tileCount = 32
	}

	for tileX := 0; tileX < tileCount; tileX++ {
		mapValue := g.memory.Read(tileMapBase + uint16(mapRowBase+tileX))
		tileAddr := tileAddressFor(tilesBase, useSignedTileSet, mapValue, rowOffsetBytes)
		low := g.memory.Read(tileAddr)
		high := g.memory.Read(tileAddr + 1)

		xBase := tileX * 8
		for px := 0; px < 8; px++ {
			bufferX := xBase + px + int(wx)
			if bufferX < int(wx) || bufferX >= FramebufferWidth {
				continue
			}

			pixel := decodePixel(uint8(7-px), low, high)
			pos := lineStart + bufferX
			if pos >= len(g.framebuffer.buffer) {
				continue
			}

			palette := g.memory.Read(addr.BGP)
			color := (palette >> (pixel * 2)) & 0x03
			g.framebuffer.buffer[pos] = uint32(ByteToColor(color))
			g.bgColorRow[pos] = color
		}
	}
	g.windowLineCounter++
}

// drawSprites renders every sprite owning at least one pixel on the current
// scanline, using OAM's pre-resolved per-sprite pixel ownership mask instead
// of re-deriving priority here.
func (g *GPU) drawSprites() {
	if g.readLCDCVariable(spriteDisplayEnable) != 1 {
		return
	}

	sprites := g.oam.GetSpritesForScanline(g.line)
	lineStart := g.line * FramebufferWidth
	spriteHeight := 8
	if g.readLCDCVariable(spriteSize) == 1 {
		spriteHeight = 16
	}

	for i := range sprites {
		sprite := &sprites[i]
		if !sprite.HasPriorityForAnyPixel() {
			continue
		}
		g.drawSprite(sprite, spriteHeight, lineStart)
	}
}

func (g *GPU) drawSprite(sprite *Sprite, spriteHeight, lineStart int) {
	tileMask := 0xFF
	if spriteHeight == 16 {
		tileMask = 0xFE
	}
	tileNumber := (int(sprite.TileIndex) & tileMask) * 16

	objPalette := addr.OBP0
	if sprite.PaletteOBP1 {
		objPalette = addr.OBP1
	}

	row := g.line - int(sprite.Y)
	if sprite.FlipY {
		row = spriteHeight - 1 - row
	}

	rowOffsetBytes := row * 2
	tileOffset := 0
	if spriteHeight == 16 && row >= 8 {
		rowOffsetBytes = (row - 8) * 2
		tileOffset = 16
	}

	// sprites always use unsigned addressing from 0x8000
	tileAddr := addr.TileData0 + uint16(tileNumber+rowOffsetBytes+tileOffset)
	low := g.memory.Read(tileAddr)
	high := g.memory.Read(tileAddr + 1)

	for px := 0; px < 8; px++ {
		if !sprite.HasPriorityForPixel(px) {
			continue
		}

		bufferX := int(sprite.X) + px
		bitIndex := uint8(7 - px)
		if sprite.FlipX {
			bitIndex = uint8(px)
		}
		pixel := decodePixel(bitIndex, low, high)
		if pixel == 0 {
			continue // transparent
		}

		pos := lineStart + bufferX
		if sprite.BehindBG && g.bgColorRow[pos] != 0 {
			continue // sprite is behind a non-transparent background pixel
		}

		palette := g.memory.Read(objPalette)
		color := (palette >> (pixel * 2)) & 0x03
		g.framebuffer.buffer[pos] = uint32(ByteToColor(color))
	}
}

// LCD Stat (Status) Register bit values
// Bit 7 - unused
// Bit 6 - Interrupt based on LYC to LY comparison (based on bit 2)
// Bit 5 - Interrupt when Mode 10 (oamReadMode)
// Bit 4 - Interrupt when Mode 01 (vblankMode)
// Bit 3 - Interrupt when Mode 00 (hblankMode)
// Bit 2 - condition for triggering LYC/LY (0=LYC != LY, 1=LYC == LY)
// Bit 1,0 - represents the current GPU mode
type statFlag uint8

const (
	statLycIrq       statFlag = 6
	statOamIrq                = 5
	statVblankIrq             = 4
	statHblankIrq             = 3
	statLycCondition          = 2
)

// LCDC (LCD Control) Register bit values
type lcdcFlag uint8

const (
	lcdDisplayEnable       lcdcFlag = 7
	windowTileMapSelect             = 6
	windowDisplayEnable             = 5
	bgWindowTileDataSelect          = 4
	bgTileMapDisplaySelect          = 3
	spriteSize                      = 2
	spriteDisplayEnable             = 1
	bgDisplay                       = 0
)

func (g *GPU) readLCDCVariable(flag lcdcFlag) byte {
	if bit.IsSet(uint8(flag), g.memory.Read(addr.LCDC)) {
		return 1
	}
	return 0
}

func (g *GPU) compareLYToLYC() {
	ly := g.memory.Read(addr.LY)
	lyc := g.memory.Read(addr.LYC)
	stat := g.memory.Read(addr.STAT)

	if ly == lyc {
		stat = bit.Set(statLycCondition, stat)
		if bit.IsSet(uint8(statLycIrq), stat) {
			g.memory.RequestInterrupt(addr.LCDSTATInterrupt)
		}
	} else {
		stat = bit.Reset(statLycCondition, stat)
	}

	g.memory.Write(addr.STAT, stat)
}

// setMode writes the new mode into STAT bits 1-0.
func (g *GPU) setMode(mode GpuMode) {
	g.mode = mode
	stat := g.memory.Read(addr.STAT)
	stat = stat&0xFC | byte(g.mode)
	g.memory.Write(addr.STAT, stat)
}

// setLY updates LY and re-evaluates the LYC coincidence flag/interrupt.
func (g *GPU) setLY(line int) {
	g.line = line
	g.memory.Write(addr.LY, byte(g.line))
	g.compareLYToLYC()
}
