package rgb565

import (
	"image"
	"image/color"
	"image/draw"
)

// Image is a row-major raster of pixels. It implements the draw.Image
// interface so it can be used with the image/draw and image/png packages.
// The Pix slice may be memory owned elsewhere, such as a mapped display
// buffer.
type Image struct {
	Pix    []Pixel
	Width  int
	Height int
}

var _ draw.Image = (*Image)(nil)

// NewImage allocates a raster of the given size.
func NewImage(width, height int) *Image {
	return &Image{
		Pix:    make([]Pixel, width*height),
		Width:  width,
		Height: height,
	}
}

// Bounds implements the image.Image interface.
func (m *Image) Bounds() image.Rectangle {
	return image.Rect(0, 0, m.Width, m.Height)
}

// ColorModel implements the image.Image interface.
func (m *Image) ColorModel() color.Model {
	return Model
}

// At implements the image.Image interface. Coordinates outside the image
// are black.
func (m *Image) At(x, y int) color.Color {
	return m.PixelAt(x, y)
}

// Set implements the draw.Image interface. Coordinates outside the image are
// ignored.
func (m *Image) Set(x, y int, c color.Color) {
	m.SetPixel(x, y, Convert(c))
}

// PixelAt returns the pixel at the given coordinates.
func (m *Image) PixelAt(x, y int) Pixel {
	if x < 0 || x >= m.Width || y < 0 || y >= m.Height {
		return Black
	}
	return m.Pix[y*m.Width+x]
}

// SetPixel sets the pixel at the given coordinates.
func (m *Image) SetPixel(x, y int, p Pixel) {
	if x < 0 || x >= m.Width || y < 0 || y >= m.Height {
		return
	}
	m.Pix[y*m.Width+x] = p
}

// Fill sets every pixel to p.
func (m *Image) Fill(p Pixel) {
	if len(m.Pix) == 0 {
		return
	}
	m.Pix[0] = p
	for n := 1; n < len(m.Pix); n *= 2 {
		copy(m.Pix[n:], m.Pix[:n])
	}
}
