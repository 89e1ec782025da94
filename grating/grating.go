// Package grating computes the frames of a drifting grating.
//
// A grating is a periodic pattern of light and dark bars. A square grating
// has hard edges between pure black and pure white. A sine grating varies
// smoothly through the greys. The pattern moves perpendicular to its bars
// by a whole number of pixels each frame, so that after a whole number of
// frames (see FramesPerCycle) it is back where it started and a short clip
// can be looped without a visible jump.
package grating

import (
	"fmt"
	"math"
	"strings"

	"github.com/rpg-lab/rpg/fault"
	"github.com/rpg-lab/rpg/rgb565"
)

// Waveform is the luminance profile of the grating.
type Waveform int

const (
	Square Waveform = iota
	Sine
)

func (w Waveform) String() string {
	switch w {
	case Square:
		return "square"
	case Sine:
		return "sine"
	}
	return fmt.Sprintf("waveform(%d)", int(w))
}

// ParseWaveform returns the Waveform with the given name.
func ParseWaveform(s string) (Waveform, error) {
	switch strings.ToLower(s) {
	case "square":
		return Square, nil
	case "sine":
		return Sine, nil
	}
	return 0, fault.Errorf(fault.InvalidParameter, "grating: parse waveform", "unknown waveform %q", s)
}

// Params describes a grating in pixel units.
type Params struct {
	Width  int
	Height int

	// direction of drift in degrees anticlockwise from the x-axis. only the
	// whole number part is used
	Angle float64

	Wavelength int
	Speed      int
	Waveform   Waveform

	// percentage of each axis covered by the grating. the remainder is a
	// mid-grey border split evenly between both sides
	PercentFilled int
}

// the axis-aligned directions use raw coordinates rather than trigonometry so
// that rounding cannot introduce a phase error across the screen
type direction int

const (
	rotated direction = iota
	angle0
	angle90
	angle180
	angle270
)

// Synthesizer produces frames for one set of grating parameters.
type Synthesizer struct {
	p   Params
	dir direction
	cos float64
	sin float64

	// aperture
	x0, x1 int
	y0, y1 int
}

// NewSynthesizer validates the parameters and prepares a Synthesizer.
func NewSynthesizer(p Params) (*Synthesizer, error) {
	const op = "grating: new synthesizer"

	switch {
	case p.Width <= 0 || p.Height <= 0:
		return nil, fault.Errorf(fault.InvalidParameter, op, "invalid resolution %dx%d", p.Width, p.Height)
	case p.Wavelength <= 0:
		return nil, fault.Errorf(fault.InvalidParameter, op, "wavelength must be positive (%d)", p.Wavelength)
	case p.Speed < 1:
		return nil, fault.Errorf(fault.InvalidParameter, op, "speed must be at least one (%d)", p.Speed)
	case p.PercentFilled < 0 || p.PercentFilled > 100:
		return nil, fault.Errorf(fault.InvalidParameter, op, "percent filled must be 0 to 100 (%d)", p.PercentFilled)
	case p.Waveform != Square && p.Waveform != Sine:
		return nil, fault.Errorf(fault.InvalidParameter, op, "unknown waveform (%v)", p.Waveform)
	}

	s := &Synthesizer{p: p}

	angle := ((int(p.Angle)%360 + 360) % 360)
	switch angle {
	case 0:
		s.dir = angle0
	case 90:
		s.dir = angle90
	case 180:
		s.dir = angle180
	case 270:
		s.dir = angle270
	default:
		theta := float64(180-angle) * math.Pi / 180
		s.sin, s.cos = math.Sincos(theta)
	}

	s.x0, s.x1 = aperture(p.Width, p.PercentFilled)
	s.y0, s.y1 = aperture(p.Height, p.PercentFilled)

	return s, nil
}

// aperture returns the half-open range of a centred run of percent% of size.
func aperture(size, percent int) (int, int) {
	filled := size * percent / 100
	start := (size - filled) / 2
	return start, start + filled
}

// Params returns the parameters the Synthesizer was created with.
func (s *Synthesizer) Params() Params {
	return s.p
}

// phase returns the position of pixel (x, y) along the direction of drift at
// time step t.
func (s *Synthesizer) phase(x, y, t int) float64 {
	var p float64
	switch s.dir {
	case angle0:
		p = float64(-x)
	case angle90:
		p = float64(y)
	case angle180:
		p = float64(x)
	case angle270:
		p = float64(-y)
	default:
		p = s.cos*float64(x) + s.sin*float64(y)
	}
	// the displacement is reduced to within one wavelength so that time step
	// t+FramesPerCycle computes exactly the same value as time step t
	return p + float64((s.p.Speed*t)%s.p.Wavelength)
}

// Brightness returns the pixel at (x, y) for time step t.
func (s *Synthesizer) Brightness(x, y, t int) rgb565.Pixel {
	if x < s.x0 || x >= s.x1 || y < s.y0 || y >= s.y1 {
		return rgb565.MidGray
	}

	xp := s.phase(x, y, t)

	if s.p.Waveform == Sine {
		b := 255 * (0.5*math.Sin(2*math.Pi*xp/float64(s.p.Wavelength)) + 0.5)
		return rgb565.FromRGB(int(b), int(b), int(b))
	}

	// the double modulo keeps the result in [0, wavelength) for negative
	// phases
	whole, frac := math.Modf(xp)
	wl := s.p.Wavelength
	pos := (float64((int(whole)%wl+wl)%wl) + frac) / float64(wl)
	if pos < 0.5 {
		return rgb565.White
	}
	return rgb565.Black
}

// Frame returns a newly allocated row-major raster for time step t.
func (s *Synthesizer) Frame(t int) []rgb565.Pixel {
	px := make([]rgb565.Pixel, s.p.Width*s.p.Height)
	s.Render(px, t)
	return px
}

// Render writes the raster for time step t into px, which must hold at
// least Width*Height pixels.
func (s *Synthesizer) Render(px []rgb565.Pixel, t int) {
	w := s.p.Width
	for y := 0; y < s.p.Height; y++ {
		row := px[y*w : (y+1)*w]
		for x := range row {
			row[x] = s.Brightness(x, y, t)
		}
	}
}
