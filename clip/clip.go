// Package clip reads and writes animation files.
//
// An animation file holds one loop of a drifting grating. It is a header of
// three unsigned 16-bit values, followed by the frames of the loop. Each
// frame is a row-major raster of RGB565 pixels. All values are in host byte
// order and there is no padding.
//
//	frames per cycle   uint16
//	spatial frequency  uint16 (truncated to a whole number)
//	temporal frequency uint16 (truncated to a whole number)
//	frame 0            width*height uint16
//	...
//	frame N-1
//
// The resolution is not stored in the file. A file is only meaningful
// together with the resolution it was encoded for, which must be the
// resolution of the display it is played on.
package clip

import (
	"fmt"
	"image"

	"github.com/rpg-lab/rpg/fault"
	"github.com/rpg-lab/rpg/rgb565"
)

// Header is the fixed-size start of an animation file.
type Header struct {
	FramesPerCycle    uint16
	SpatialFrequency  uint16
	TemporalFrequency uint16
}

// HeaderSize is the size of Header in bytes.
const HeaderSize = 6

// headerPixels is HeaderSize in units of rgb565.Pixel
const headerPixels = HeaderSize / 2

// Clip is an animation loaded into memory.
type Clip struct {
	Header Header

	width  int
	height int

	// the whole file, including the header words. frames are views of
	// this buffer
	data []rgb565.Pixel
}

// Width returns the width of each frame.
func (c *Clip) Width() int {
	return c.width
}

// Height returns the height of each frame.
func (c *Clip) Height() int {
	return c.height
}

// FrameSize returns the size of one frame in bytes.
func (c *Clip) FrameSize() int {
	return c.width * c.height * 2
}

// Len returns the number of frames in the loop. It is zero once the clip has
// been released.
func (c *Clip) Len() int {
	if c.data == nil {
		return 0
	}
	return int(c.Header.FramesPerCycle)
}

// Released returns true if Release() has been called.
func (c *Clip) Released() bool {
	return c.data == nil
}

// Frame returns the pixels of frame i. The slice shares memory with the clip
// and must not be used after Release().
func (c *Clip) Frame(i int) ([]rgb565.Pixel, error) {
	if c.data == nil {
		return nil, fault.Errorf(fault.InvalidParameter, "clip: frame", "clip has been released")
	}
	if i < 0 || i >= int(c.Header.FramesPerCycle) {
		return nil, fault.Errorf(fault.InvalidParameter, "clip: frame", "frame %d out of range (%d frames)", i, c.Header.FramesPerCycle)
	}
	n := c.width * c.height
	start := headerPixels + i*n
	return c.data[start : start+n : start+n], nil
}

// Image returns frame i as an image. The image shares memory with the clip.
func (c *Clip) Image(i int) (image.Image, error) {
	px, err := c.Frame(i)
	if err != nil {
		return nil, err
	}
	return &rgb565.Image{Pix: px, Width: c.width, Height: c.height}, nil
}

// Release frees the memory held by the clip. The clip cannot be used after
// this and every accessor reports that it has been released.
func (c *Clip) Release() {
	c.data = nil
}

func (c *Clip) String() string {
	if c.data == nil {
		return "released clip"
	}
	return fmt.Sprintf("%d frames of %dx%d (sf=%d tf=%d)",
		c.Header.FramesPerCycle, c.width, c.height,
		c.Header.SpatialFrequency, c.Header.TemporalFrequency)
}
