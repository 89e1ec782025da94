package grating

import (
	"math"

	"golang.org/x/exp/constraints"

	"github.com/rpg-lab/rpg/fault"
)

// DegreesSubtended is the visual angle, in degrees, assumed to be covered by
// the width of the screen.
const DegreesSubtended = 80

// DefaultFrameRate is the frame rate clips are built for unless told
// otherwise.
const DefaultFrameRate = 60

// Stimulus describes a grating in physical units.
type Stimulus struct {
	// screen width in pixels
	Width int

	// cycles per degree of visual angle
	SpatialFrequency float64

	// cycles per second
	TemporalFrequency float64

	// frames per second. zero means DefaultFrameRate
	FrameRate int
}

// Motion is a Stimulus quantised to whole pixels and whole frames.
type Motion struct {
	// length of one cycle in pixels
	Wavelength int

	// distance moved per frame in pixels
	Speed int

	// number of frames after which the pattern repeats exactly
	FramesPerCycle int

	// the temporal frequency that will actually be seen. this differs from
	// the requested frequency when Speed had to be rounded
	AchievedTemporalFrequency float64
}

// Quantize converts a stimulus to pixel and frame units.
//
// The wavelength is truncated so that the pattern tiles in whole pixels and
// the speed is rounded to whole pixels per frame, with a minimum of one. The
// pattern therefore repeats after Wavelength/gcd(Wavelength, Speed) frames.
func Quantize(s Stimulus) (Motion, error) {
	const op = "grating: quantize"

	fps := s.FrameRate
	if fps == 0 {
		fps = DefaultFrameRate
	}

	switch {
	case s.Width <= 0:
		return Motion{}, fault.Errorf(fault.InvalidParameter, op, "width must be positive (%d)", s.Width)
	case fps < 0:
		return Motion{}, fault.Errorf(fault.InvalidParameter, op, "frame rate must be positive (%d)", fps)
	case !(s.SpatialFrequency > 0) || math.IsInf(s.SpatialFrequency, 0):
		return Motion{}, fault.Errorf(fault.InvalidParameter, op, "spatial frequency must be positive (%v)", s.SpatialFrequency)
	case !(s.TemporalFrequency >= 0) || math.IsInf(s.TemporalFrequency, 0):
		return Motion{}, fault.Errorf(fault.InvalidParameter, op, "temporal frequency must not be negative (%v)", s.TemporalFrequency)
	}

	// integer division of the width is intentional: it matches the way the
	// wavelength has always been derived
	wavelength := int(float64(s.Width/DegreesSubtended) / s.SpatialFrequency)
	if wavelength < 1 {
		return Motion{}, fault.Errorf(fault.InvalidParameter, op,
			"spatial frequency %v is too high for a width of %d pixels", s.SpatialFrequency, s.Width)
	}

	speed := int(math.Round(float64(wavelength) * s.TemporalFrequency / float64(fps)))
	if speed < 1 {
		speed = 1
	}

	return Motion{
		Wavelength:                wavelength,
		Speed:                     speed,
		FramesPerCycle:            FramesPerCycle(wavelength, speed),
		AchievedTemporalFrequency: float64(speed*fps) / float64(wavelength),
	}, nil
}

// FramesPerCycle is the minimal number of frames after which a grating of
// the given wavelength moving at the given speed returns to its starting
// phase. It returns zero if either value is not positive.
func FramesPerCycle(wavelength, speed int) int {
	d := GCD(wavelength, speed)
	if d <= 0 {
		return 0
	}
	return wavelength / d
}

// GCD returns the greatest common divisor of a and b. If either value is
// zero the result is zero, not the other value.
func GCD[T constraints.Integer](a, b T) T {
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	if a == 0 || b == 0 {
		return 0
	}
	for b != 0 {
		a, b = b, a%b
	}
	return a
}
