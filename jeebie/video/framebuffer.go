package video

// GBColor is one of the DMG's four shades, packed as RGBA8888.
type GBColor uint32

const (
	FramebufferWidth  = 160
	FramebufferHeight = 144
	FramebufferSize   = FramebufferWidth * FramebufferHeight
)

const (
	BlackColor     GBColor = 0x000000FF
	DarkGreyColor  GBColor = 0x4C4C4CFF
	LightGreyColor GBColor = 0x989898FF
	WhiteColor     GBColor = 0xFFFFFFFF
)

// shades indexes a 2-bit palette color (0-3) to its displayed GBColor.
var shades = [4]GBColor{WhiteColor, LightGreyColor, DarkGreyColor, BlackColor}

// ByteToColor maps a 2-bit palette index (as produced by BGP/OBP0/OBP1) to
// the shade it displays as.
func ByteToColor(value byte) GBColor {
	if value > 3 {
		return 0
	}
	return shades[value]
}

// FrameBuffer is one rendered frame: 160x144 pixels, one uint32 RGBA value
// each, row-major.
type FrameBuffer struct {
	width  uint
	height uint
	buffer []uint32
}

func NewFrameBuffer() *FrameBuffer {
	return &FrameBuffer{
		width:  FramebufferWidth,
		height: FramebufferHeight,
		buffer: make([]uint32, FramebufferSize),
	}
}

func (fb FrameBuffer) GetPixel(x, y uint) uint32 {
	return fb.buffer[y*fb.width+x]
}

func (fb *FrameBuffer) SetPixel(x, y uint, color GBColor) {
	fb.buffer[y*fb.width+x] = uint32(color)
}

func (fb *FrameBuffer) ToSlice() []uint32 {
	return fb.buffer
}

// Clear resets the framebuffer to black.
func (fb *FrameBuffer) Clear() {
	for i := range fb.buffer {
		fb.buffer[i] = 0
	}
}

// ToBinaryData returns the framebuffer as raw RGBA8888 bytes, for hashing
// and golden-image comparisons.
func (fb *FrameBuffer) ToBinaryData() []byte {
	data := make([]byte, len(fb.buffer)*4)
	for i, pixel := range fb.buffer {
		data[i*4] = byte(pixel >> 24)
		data[i*4+1] = byte(pixel >> 16)
		data[i*4+2] = byte(pixel >> 8)
		data[i*4+3] = byte(pixel)
	}
	return data
}

// ToGrayscale collapses the framebuffer to one of the four DMG shade
// indices (0=black..3=white) per pixel, for comparisons that don't care
// about the exact RGBA encoding.
func (fb *FrameBuffer) ToGrayscale() []byte {
	data := make([]byte, len(fb.buffer))
	for i, pixel := range fb.buffer {
		switch GBColor(pixel) {
		case DarkGreyColor:
			data[i] = 1
		case LightGreyColor:
			data[i] = 2
		case WhiteColor:
			data[i] = 3
		default:
			data[i] = 0
		}
	}
	return data
}
