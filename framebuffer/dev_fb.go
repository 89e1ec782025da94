package framebuffer

import (
	"os"

	"github.com/rpg-lab/rpg/internal/ioctl"
)

// DefaultDevice is the primary frame buffer.
const DefaultDevice = "/dev/fb0"

// FrameBuffer is a wrapper around [os.File] that provides convenience methods
// for interacting with a frame buffer device.
type FrameBuffer os.File

// OpenFrameBuffer opens a frame buffer device.
func OpenFrameBuffer(name string, flags int) (*FrameBuffer, error) {
	f, err := os.OpenFile(name, flags, os.ModeDevice)
	if err != nil {
		return nil, err
	}
	return (*FrameBuffer)(f), nil
}

// File converts the frame buffer back to a file.
func (fb *FrameBuffer) File() *os.File {
	return (*os.File)(fb)
}

// Close closes the device. Mappings created with Map() remain valid until
// they are unmapped.
func (fb *FrameBuffer) Close() error {
	return fb.File().Close()
}

// FixScreenInfo returns the fixed properties of the screen.
func (fb *FrameBuffer) FixScreenInfo() (FbFixScreenInfo, error) {
	return ioctl.Get[FbFixScreenInfo](fb.File(), kFBIOGET_FSCREENINFO)
}

// VarScreenInfo returns the variable properties of the screen.
func (fb *FrameBuffer) VarScreenInfo() (FbVarScreenInfo, error) {
	return ioctl.Get[FbVarScreenInfo](fb.File(), kFBIOGET_VSCREENINFO)
}

// PutVarScreenInfo asks the driver to apply the variable properties. The
// driver may adjust the values in vi to what it actually supports.
func (fb *FrameBuffer) PutVarScreenInfo(vi *FbVarScreenInfo) error {
	return ioctl.Pointer(fb.File(), kFBIOPUT_VSCREENINFO, vi)
}

// Map memory maps length bytes of the frame buffer for reading and writing.
func (fb *FrameBuffer) Map(length int) (*Mapping, error) {
	return mapShared(int(fb.File().Fd()), length)
}

// <linux/fb.h> ioctls
//
// 0x46 is 'F'
const (
	kFBIOGET_VSCREENINFO = 0x4600
	kFBIOPUT_VSCREENINFO = 0x4601
	kFBIOGET_FSCREENINFO = 0x4602
)

// <linux/fb.h> FB_ACTIVATE_* values for FbVarScreenInfo.Activate
const (
	ActivateNow   = 0
	ActivateForce = 128
)

// <linux/fb.h> struct fb_fix_screeninfo
type FbFixScreenInfo struct {
	ID [16]byte

	// physical address and length of frame buffer memory
	SMemStart uintptr
	SMemLen   uint32

	Type    uint32
	TypeAux uint32
	Visual  uint32

	XPanStep  uint16
	YPanStep  uint16
	YWrapStep uint16

	// length of a line in bytes
	LineLength uint32

	// physical address and length of memory mapped I/O
	MmioStart uintptr
	MmioLen   uint32

	Accel        uint32
	Capabilities uint16
	_            [2]uint16
}

// <linux/fb.h> struct fb_var_screeninfo
type FbVarScreenInfo struct {
	// visible resolution
	XRes, YRes uint32

	// virtual resolution. a virtual height of twice the visible height is
	// what allows the displayed half to be flipped
	XResVirtual, YResVirtual uint32

	// offset of the visible area inside the virtual area
	XOffset, YOffset uint32

	BitsPerPixel uint32
	Grayscale    uint32

	Red, Green, Blue, Alpha FbBitField

	NonStd   uint32
	Activate uint32

	// physical dimensions in mm
	Height, Width uint32

	_ uint32

	// timings
	PixelClock  uint32
	LeftMargin  uint32
	RightMargin uint32
	UpperMargin uint32
	LowerMargin uint32
	HSyncLen    uint32
	VSyncLen    uint32
	Sync        uint32
	VMode       uint32

	Rotate     uint32
	ColorSpace uint32
	_          [4]uint32
}

// <linux/fb.h> struct fb_bitfield
//
// Offsets are counted from the least significant bit of a pixel value.
type FbBitField struct {
	Offset   uint32
	Length   uint32
	MsbRight uint32
}

// IsRGB565 returns true if the pixel layout is the packed 5-6-5 layout of
// the rgb565 package.
func (vi FbVarScreenInfo) IsRGB565() bool {
	return vi.BitsPerPixel == 16 &&
		vi.Red == FbBitField{Offset: 11, Length: 5} &&
		vi.Green == FbBitField{Offset: 5, Length: 6} &&
		vi.Blue == FbBitField{Offset: 0, Length: 5}
}
