package grating_test

import (
	"math"
	"testing"

	"github.com/rpg-lab/rpg/fault"
	"github.com/rpg-lab/rpg/grating"
	"github.com/rpg-lab/rpg/internal/test"
)

func TestGCD(t *testing.T) {
	test.ExpectEquality(t, grating.GCD(42, 2), 2)
	test.ExpectEquality(t, grating.GCD(2, 42), 2)
	test.ExpectEquality(t, grating.GCD(17, 5), 1)
	test.ExpectEquality(t, grating.GCD(12, 12), 12)
	test.ExpectEquality(t, grating.GCD(uint16(48), uint16(18)), uint16(6))
	test.ExpectEquality(t, grating.GCD(-12, 8), 4)

	// zero is not treated as the identity
	test.ExpectEquality(t, grating.GCD(0, 5), 0)
	test.ExpectEquality(t, grating.GCD(5, 0), 0)
	test.ExpectEquality(t, grating.GCD(0, 0), 0)

	// large inputs do not recurse
	test.ExpectEquality(t, grating.GCD(int64(1)<<62, int64(3)), int64(1))
}

func TestFramesPerCycle(t *testing.T) {
	test.ExpectEquality(t, grating.FramesPerCycle(42, 2), 21)
	test.ExpectEquality(t, grating.FramesPerCycle(42, 42), 1)
	test.ExpectEquality(t, grating.FramesPerCycle(7, 3), 7)

	// no division by zero when either value is zero
	test.ExpectEquality(t, grating.FramesPerCycle(0, 3), 0)
	test.ExpectEquality(t, grating.FramesPerCycle(42, 0), 0)
}

func TestQuantize(t *testing.T) {
	m, err := grating.Quantize(grating.Stimulus{
		Width:             1680,
		SpatialFrequency:  0.5,
		TemporalFrequency: 3,
		FrameRate:         60,
	})
	test.ExpectSuccess(t, err)

	// (1680/80)/0.5 = 42 pixels; 42*3/60 = 2.1 rounds to 2 pixels per frame
	test.ExpectEquality(t, m.Wavelength, 42)
	test.ExpectEquality(t, m.Speed, 2)
	test.ExpectEquality(t, m.FramesPerCycle, 21)
	test.ExpectSuccess(t, math.Abs(m.AchievedTemporalFrequency-120.0/42.0) < 1e-9)
}

func TestQuantizeTruncatesWavelength(t *testing.T) {
	// 1000/80 is 12 in integer arithmetic, and 12/0.7 = 17.14 truncates to 17
	m, err := grating.Quantize(grating.Stimulus{Width: 1000, SpatialFrequency: 0.7, TemporalFrequency: 1})
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, m.Wavelength, 17)
}

func TestQuantizeMinimumSpeed(t *testing.T) {
	// a very slow drift still moves one pixel per frame
	m, err := grating.Quantize(grating.Stimulus{Width: 1680, SpatialFrequency: 0.5, TemporalFrequency: 0.1})
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, m.Speed, 1)
	test.ExpectEquality(t, m.FramesPerCycle, 42)
	test.ExpectSuccess(t, math.Abs(m.AchievedTemporalFrequency-60.0/42.0) < 1e-9)

	// a temporal frequency of zero is allowed but still drifts
	m, err = grating.Quantize(grating.Stimulus{Width: 1680, SpatialFrequency: 0.5})
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, m.Speed, 1)
}

func TestQuantizeDefaultFrameRate(t *testing.T) {
	a, err := grating.Quantize(grating.Stimulus{Width: 1680, SpatialFrequency: 0.25, TemporalFrequency: 2})
	test.ExpectSuccess(t, err)
	b, err := grating.Quantize(grating.Stimulus{Width: 1680, SpatialFrequency: 0.25, TemporalFrequency: 2, FrameRate: 60})
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, a, b)
}

func TestQuantizeInvalid(t *testing.T) {
	for _, s := range []grating.Stimulus{
		{Width: 0, SpatialFrequency: 1, TemporalFrequency: 1},
		{Width: 1680, SpatialFrequency: 0, TemporalFrequency: 1},
		{Width: 1680, SpatialFrequency: math.NaN(), TemporalFrequency: 1},
		{Width: 1680, SpatialFrequency: 1, TemporalFrequency: -1},
		{Width: 1680, SpatialFrequency: 1, TemporalFrequency: 1, FrameRate: -60},

		// wavelength truncates to zero pixels
		{Width: 1680, SpatialFrequency: 50, TemporalFrequency: 1},
		{Width: 40, SpatialFrequency: 0.1, TemporalFrequency: 1},
	} {
		_, err := grating.Quantize(s)
		test.ExpectError(t, err, fault.InvalidParameter)
	}
}
