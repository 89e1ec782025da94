package clip

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/rpg-lab/rpg/fault"
	"github.com/rpg-lab/rpg/grating"
	"github.com/rpg-lab/rpg/rgb565"
)

// Options describes the clip to encode.
type Options struct {
	// direction of drift in degrees anticlockwise from the x-axis
	Angle float64

	// cycles per degree of visual angle
	SpatialFrequency float64

	// cycles per second
	TemporalFrequency float64

	// resolution of the display the clip will be played on
	Width  int
	Height int

	Waveform grating.Waveform

	// percentage of each axis covered by the grating (0 to 100)
	PercentFilled int

	// zero means grating.DefaultFrameRate
	FrameRate int

	// suppress the warning about an adjusted temporal frequency
	Quiet bool
}

// Result describes an encoded clip.
type Result struct {
	Motion grating.Motion
	Header Header
}

// number of frames to time before estimating how long encoding will take
const estimateAfter = 5

// Encode writes an animation file for the grating described by opts. The file
// holds the shortest loop that repeats seamlessly.
func Encode(path string, opts Options) (Result, error) {
	// parameters are checked before the file is created so that a bad
	// request leaves nothing behind
	if _, _, err := prepare(opts); err != nil {
		return Result{}, err
	}

	f, err := os.Create(path)
	if err != nil {
		return Result{}, fault.New(fault.FileError, "clip: encode", err)
	}

	slog.Info("clip: encoding", "path", path)

	w := bufio.NewWriterSize(f, 1<<20)
	res, err := EncodeTo(w, opts)
	if err == nil {
		err = w.Flush()
	}
	err = errors.Join(err, f.Close())
	if err != nil {
		_ = os.Remove(path)
		if fault.KindOf(err) == 0 {
			err = fault.New(fault.FileError, "clip: encode", err)
		}
		return Result{}, err
	}

	return res, nil
}

// EncodeTo writes an animation to w. See Encode().
func EncodeTo(w io.Writer, opts Options) (Result, error) {
	motion, synth, err := prepare(opts)
	if err != nil {
		return Result{}, err
	}

	if !opts.Quiet && motion.AchievedTemporalFrequency != opts.TemporalFrequency {
		attrs := []any{
			"requested", opts.TemporalFrequency,
			"achieved", motion.AchievedTemporalFrequency,
		}
		// a stationary grating still drifts by one pixel per frame
		if opts.TemporalFrequency != 0 {
			attrs = append(attrs, "percent", 100*motion.AchievedTemporalFrequency/opts.TemporalFrequency)
		}
		slog.Warn("clip: temporal frequency adjusted to fit whole pixels per frame", attrs...)
	}

	if motion.FramesPerCycle > math.MaxUint16 {
		return Result{}, fault.Errorf(fault.InvalidParameter, "clip: encode",
			"loop of %d frames cannot be stored", motion.FramesPerCycle)
	}

	hdr := Header{
		FramesPerCycle:    uint16(motion.FramesPerCycle),
		SpatialFrequency:  truncate(opts.SpatialFrequency),
		TemporalFrequency: truncate(opts.TemporalFrequency),
	}

	slog.Debug("clip: quantised",
		"wavelength", motion.Wavelength,
		"speed", motion.Speed,
		"frames_per_cycle", motion.FramesPerCycle)

	if err := binary.Write(w, binary.NativeEndian, hdr); err != nil {
		return Result{}, fault.New(fault.FileError, "clip: encode", err)
	}

	start := time.Now()
	for t := 0; t < motion.FramesPerCycle; t++ {
		frame := synth.Frame(t)
		if _, err := w.Write(rgb565.Bytes(frame)); err != nil {
			return Result{}, fault.New(fault.FileError, "clip: encode", err)
		}

		if t == estimateAfter-1 && motion.FramesPerCycle > estimateAfter {
			per := time.Since(start) / estimateAfter
			slog.Info("clip: encoding progress",
				"frames", motion.FramesPerCycle,
				"expected", (per * time.Duration(motion.FramesPerCycle)).Round(time.Second))
		}
	}

	return Result{Motion: motion, Header: hdr}, nil
}

func prepare(opts Options) (grating.Motion, *grating.Synthesizer, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return grating.Motion{}, nil, fault.Errorf(fault.InvalidParameter, "clip: encode",
			"invalid resolution %dx%d", opts.Width, opts.Height)
	}

	motion, err := grating.Quantize(grating.Stimulus{
		Width:             opts.Width,
		SpatialFrequency:  opts.SpatialFrequency,
		TemporalFrequency: opts.TemporalFrequency,
		FrameRate:         opts.FrameRate,
	})
	if err != nil {
		return grating.Motion{}, nil, err
	}

	synth, err := grating.NewSynthesizer(grating.Params{
		Width:         opts.Width,
		Height:        opts.Height,
		Angle:         opts.Angle,
		Wavelength:    motion.Wavelength,
		Speed:         motion.Speed,
		Waveform:      opts.Waveform,
		PercentFilled: opts.PercentFilled,
	})
	if err != nil {
		return grating.Motion{}, nil, err
	}

	return motion, synth, nil
}

// the header only has room for whole numbers. fractional frequencies are
// truncated, so a spatial frequency of 0.5 is stored as 0. the stored values
// are informational and are never used to reconstruct the grating
func truncate(v float64) uint16 {
	if v <= 0 {
		return 0
	}
	if v >= math.MaxUint16 {
		return math.MaxUint16
	}
	return uint16(v)
}
