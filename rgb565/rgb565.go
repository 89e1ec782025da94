// Package rgb565 implements the 16-bit packed colour format used for both
// clip files and the display buffer. Each pixel is two bytes, with 5 bits for
// red, 6 bits for green and 5 bits for blue. There is no alpha channel.
//
//	bit 76543210  76543210
//	    RRRRRGGG  GGGBBBBB
//	   high byte  low byte
package rgb565

import (
	"image/color"
	"unsafe"
)

// Pixel is a packed 5-6-5 colour.
type Pixel uint16

const (
	Black Pixel = 0x0000
	White Pixel = 0xffff

	// MidGray is FromRGB(127, 127, 127)
	MidGray Pixel = 0x7bef
)

// FromRGB packs 8-bit channel values. Each channel is scaled rather than
// truncated so that 255 maps to the channel maximum. Values outside 0..255
// are clamped.
func FromRGB(r, g, b int) Pixel {
	r, g, b = clamp(r), clamp(g), clamp(b)
	return Pixel(((31*(r+4))/255)<<11 |
		((63*(g+2))/255)<<5 |
		((31 * (b + 4)) / 255))
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}

// RGBA implements the color.Color interface.
func (p Pixel) RGBA() (r, g, b, a uint32) {
	// To convert a channel from 5 or 6 bits back to 16 bits the short bit
	// pattern is repeated until all 16 bits are filled. This maps the
	// minimum and maximum channel values to the minimum and maximum 16 bit
	// values.
	rBits := uint32(p & 0xf800) // RRRRR00000000000
	gBits := uint32(p & 0x07e0) // 00000GGGGGG00000
	bBits := uint32(p & 0x001f) // 00000000000BBBBB
	r = rBits | rBits>>5 | rBits>>10 | rBits>>15
	g = gBits<<5 | gBits>>1 | gBits>>7
	b = bBits<<11 | bBits<<6 | bBits<<1 | bBits>>4
	a = 0xffff
	return
}

// Model converts any color.Color to a Pixel.
var Model color.Model = color.ModelFunc(func(c color.Color) color.Color {
	if p, ok := c.(Pixel); ok {
		return p
	}
	return Convert(c)
})

// Convert returns the Pixel nearest to c. Alpha is ignored.
func Convert(c color.Color) Pixel {
	r, g, b, _ := c.RGBA()
	return FromRGB(int(r>>8), int(g>>8), int(b>>8))
}

// Bytes returns the pixels as a byte slice sharing the same memory. Byte
// order is that of the host.
func Bytes(p []Pixel) []byte {
	if len(p) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(p))), len(p)*2)
}

// Pixels returns a byte slice as pixels sharing the same memory. A trailing
// odd byte is not part of the result. The slice must be 2-byte aligned,
// which is always true for memory returned by mmap.
func Pixels(b []byte) []Pixel {
	if len(b) < 2 {
		return nil
	}
	return unsafe.Slice((*Pixel)(unsafe.Pointer(unsafe.SliceData(b))), len(b)/2)
}
