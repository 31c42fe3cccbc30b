package video

import "github.com/lr35902/dmg-core/jeebie/bit"

// TileRow is one row of an 8x8 tile: two bit-planes that combine into a
// 2-bit color index per pixel.
//
//	Byte 1 (Low):  bit plane 0 - bit 0 of each pixel's color
//	Byte 2 (High): bit plane 1 - bit 1 of each pixel's color
//
// Bit 7 is the leftmost pixel, bit 0 the rightmost. A complete tile is 8
// rows (16 bytes) in VRAM. See https://gbdev.io/pandocs/Tile_Data.html.
type TileRow struct {
	Low  byte
	High byte
}

func decodePixel(bitIndex uint8, low, high byte) int {
	pixel := 0
	if bit.IsSet(bitIndex, low) {
		pixel |= 1
	}
	if bit.IsSet(bitIndex, high) {
		pixel |= 2
	}
	return pixel
}

// GetPixel extracts a pixel's color index (0-3). pixelX is 0-7, 0 leftmost.
func (t TileRow) GetPixel(pixelX int) int {
	return decodePixel(uint8(7-pixelX), t.Low, t.High)
}

// GetPixelFlipped is GetPixel with the row read right-to-left, for sprites
// using the horizontal flip attribute.
func (t TileRow) GetPixelFlipped(pixelX int) int {
	return decodePixel(uint8(pixelX), t.Low, t.High)
}

// Tile is a complete 8x8 tile pattern, 8 rows of 16 bytes total in VRAM.
type Tile struct {
	Index int // source tile index, only meaningful when set via FetchTileWithIndex
	Rows  [8]TileRow
}

// GetPixel returns the color index (0-3) at (x, y), (0,0) top-left.
func (t *Tile) GetPixel(x, y int) int {
	if y < 0 || y >= 8 || x < 0 || x >= 8 {
		return 0
	}
	return t.Rows[y].GetPixel(x)
}

// Pixels renders the tile as an 8x8 grid of shades, for the debug package.
func (t *Tile) Pixels() [8][8]GBColor {
	var pixels [8][8]GBColor
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			pixels[y][x] = GBColor(t.Rows[y].GetPixel(x))
		}
	}
	return pixels
}

// MemoryReader is the minimal read-only bus access tile/sprite fetching needs.
type MemoryReader interface {
	Read(addr uint16) byte
}

// FetchTile reads a 16-byte tile pattern starting at baseAddr.
func FetchTile(memory MemoryReader, baseAddr uint16) Tile {
	var tile Tile
	for row := 0; row < 8; row++ {
		rowAddr := baseAddr + uint16(row*2)
		tile.Rows[row] = TileRow{
			Low:  memory.Read(rowAddr),
			High: memory.Read(rowAddr + 1),
		}
	}
	return tile
}

// FetchTileWithIndex is FetchTile plus stamping the tile's source index,
// for callers (debug tile viewers) that need to report it back.
func FetchTileWithIndex(memory MemoryReader, baseAddr uint16, index int) Tile {
	tile := FetchTile(memory, baseAddr)
	tile.Index = index
	return tile
}
