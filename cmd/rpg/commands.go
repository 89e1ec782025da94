package main

import (
	"errors"
	"flag"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/draw"

	"github.com/rpg-lab/rpg/clip"
	"github.com/rpg-lab/rpg/display"
	"github.com/rpg-lab/rpg/fault"
	"github.com/rpg-lab/rpg/grating"
	"github.com/rpg-lab/rpg/mailbox"
	"github.com/rpg-lab/rpg/playback"
	"github.com/rpg-lab/rpg/rgb565"
)

func usageError(fs *flag.FlagSet, format string, args ...any) error {
	fs.Usage()
	return fault.Errorf(fault.InvalidParameter, fs.Name(), format, args...)
}

// resolution fills in a zero width or height with the current display
// resolution reported by the firmware
func resolution(width, height int) (int, int, error) {
	if width > 0 && height > 0 {
		return width, height, nil
	}

	c, err := mailbox.Open(*mailboxDevice)
	if err != nil {
		return 0, 0, err
	}
	defer c.Close()

	w, h, err := c.Resolution()
	if err != nil {
		return 0, 0, err
	}
	if width <= 0 {
		width = w
	}
	if height <= 0 {
		height = h
	}
	slog.Debug("rpg: using display resolution", "width", width, "height", height)
	return width, height, nil
}

func cmdEncode(args []string) error {
	fs := flag.NewFlagSet("encode", flag.ContinueOnError)
	angle := fs.Float64("angle", 0, "Direction of drift in degrees")
	sf := fs.Float64("sf", 0.05, "Spatial frequency in cycles per degree")
	tf := fs.Float64("tf", 1, "Temporal frequency in cycles per second")
	width := fs.Int("width", 0, "Width in pixels (default: the current display width)")
	height := fs.Int("height", 0, "Height in pixels (default: the current display height)")
	wave := fs.String("wave", "square", "Waveform (square, sine)")
	fill := fs.Int("fill", 100, "Percentage of the screen covered by the grating")
	fps := fs.Int("fps", grating.DefaultFrameRate, "Frame rate the animation will be played at")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "Usage: rpg encode [flags] <file>")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return usageError(fs, "expected one output file")
	}

	waveform, err := grating.ParseWaveform(*wave)
	if err != nil {
		return err
	}

	w, h, err := resolution(*width, *height)
	if err != nil {
		return err
	}

	start := time.Now()
	res, err := clip.Encode(fs.Arg(0), clip.Options{
		Angle:             *angle,
		SpatialFrequency:  *sf,
		TemporalFrequency: *tf,
		Width:             w,
		Height:            h,
		Waveform:          waveform,
		PercentFilled:     *fill,
		FrameRate:         *fps,
	})
	if err != nil {
		return err
	}

	fmt.Printf("%s: %d frames of %dx%d, wavelength %d px, %d px/frame, %.3g Hz (in %v)\n",
		fs.Arg(0), res.Motion.FramesPerCycle, w, h, res.Motion.Wavelength, res.Motion.Speed,
		res.Motion.AchievedTemporalFrequency, time.Since(start).Round(time.Millisecond))
	return nil
}

func cmdInfo(args []string) error {
	fs := flag.NewFlagSet("info", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "Usage: rpg info <file>...")
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return usageError(fs, "expected at least one file")
	}

	var errs []error
	for _, path := range fs.Args() {
		h, err := clip.ReadHeader(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		fmt.Printf("%s: frames=%d sf=%d tf=%d\n", path, h.FramesPerCycle, h.SpatialFrequency, h.TemporalFrequency)
	}
	return errors.Join(errs...)
}

func cmdPreview(args []string) error {
	fs := flag.NewFlagSet("preview", flag.ContinueOnError)
	width := fs.Int("width", 0, "Width the animation was encoded for (default: the current display width)")
	height := fs.Int("height", 0, "Height the animation was encoded for (default: the current display height)")
	frame := fs.Int("frame", 0, "Frame to save")
	scale := fs.Float64("scale", 1, "Scale the saved image by this factor")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "Usage: rpg preview [flags] <file> <png>")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return usageError(fs, "expected an animation file and an output file")
	}

	w, h, err := resolution(*width, *height)
	if err != nil {
		return err
	}

	c, err := clip.Load(fs.Arg(0), w, h)
	if err != nil {
		return err
	}
	defer c.Release()

	img, err := c.Image(*frame)
	if err != nil {
		return err
	}
	img, err = scaled(img, *scale)
	if err != nil {
		return err
	}

	f, err := os.Create(fs.Arg(1))
	if err != nil {
		return fault.New(fault.FileError, "preview", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fault.New(fault.FileError, "preview", err)
	}
	if err := f.Close(); err != nil {
		return fault.New(fault.FileError, "preview", err)
	}
	return nil
}

// scaled returns a resized copy of img. A copy is made even at a scale of one
// and never shares memory with the clip
func scaled(img image.Image, scale float64) (image.Image, error) {
	b := img.Bounds()
	w := int(float64(b.Dx()) * scale)
	h := int(float64(b.Dy()) * scale)
	if w < 1 || h < 1 {
		return nil, fault.Errorf(fault.InvalidParameter, "preview", "scale %v leaves no pixels", scale)
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	if w == b.Dx() && h == b.Dy() {
		draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	} else {
		draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	}
	return dst, nil
}

func cmdResolution() error {
	c, err := mailbox.Open(*mailboxDevice)
	if err != nil {
		return err
	}
	defer c.Close()

	m, err := c.Mode()
	if err != nil {
		return err
	}
	fmt.Printf("%dx%d %d bpp\n", m.Width, m.Height, m.Depth)
	return nil
}

// parseColor accepts a hex colour such as #808080. An empty string is the
// neutral grey shown between animations.
func parseColor(s string) (rgb565.Pixel, error) {
	if s == "" {
		return rgb565.MidGray, nil
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return 0, fault.New(fault.InvalidParameter, "color", err)
	}
	return rgb565.Convert(c.Clamped()), nil
}

// interrupted stops at the next opportunity after SIGINT or SIGTERM. The
// display must be shut down properly for the console to be usable again so
// the signals never kill the process outright
func interrupted() (func() bool, func()) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	check := func() bool {
		select {
		case <-ch:
			return true
		default:
			return false
		}
	}
	return check, func() { signal.Stop(ch) }
}

func cmdFlat(args []string) error {
	fs := flag.NewFlagSet("flat", flag.ContinueOnError)
	width := fs.Int("width", 0, "Width of the mode (default: the current display width)")
	height := fs.Int("height", 0, "Height of the mode (default: the current display height)")
	color := fs.String("color", "", "Colour as #rrggbb (default: mid grey)")
	hold := fs.Duration("hold", 5*time.Second, "How long to show the colour")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "Usage: rpg flat [flags]")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}

	c, err := parseColor(*color)
	if err != nil {
		return err
	}

	w, h, err := resolution(*width, *height)
	if err != nil {
		return err
	}
	cfg, err := displayConfig(w, h)
	if err != nil {
		return err
	}

	stop, release := interrupted()
	defer release()

	d, err := display.Initialize(cfg)
	if err != nil {
		return err
	}

	err = d.DisplayFlatColor(1-d.Front(), c)
	if err == nil {
		deadline := time.Now().Add(*hold)
		for time.Now().Before(deadline) && !stop() {
			time.Sleep(10 * time.Millisecond)
		}
	}

	return errors.Join(err, d.Shutdown())
}

func cmdPlay(args []string) error {
	fs := flag.NewFlagSet("play", flag.ContinueOnError)
	width := fs.Int("width", 0, "Width of the mode (default: the current display width)")
	height := fs.Int("height", 0, "Height of the mode (default: the current display height)")
	fps := fs.Float64("fps", playback.DefaultFrameRate, "Frame rate")
	duration := fs.Duration("duration", playback.DefaultDuration, "How long to play each animation")
	adjustment := fs.Duration("adjust", playback.DefaultAdjustment, "Time subtracted from every frame period")
	gap := fs.Duration("gap", time.Second, "Time the background is shown between animations")
	background := fs.String("background", "", "Background colour as #rrggbb (default: mid grey)")
	chunk := fs.Int("chunk", clip.DefaultChunkPages, "Pages mapped at a time while loading")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "Usage: rpg play [flags] <file>...")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return usageError(fs, "expected at least one animation file")
	}

	bg, err := parseColor(*background)
	if err != nil {
		return err
	}

	if *adjustment == 0 {
		*adjustment = -1
	}
	pcfg := playback.Config{
		FrameRate:  *fps,
		Duration:   *duration,
		Adjustment: *adjustment,
	}

	w, h, err := resolution(*width, *height)
	if err != nil {
		return err
	}
	cfg, err := displayConfig(w, h)
	if err != nil {
		return err
	}

	stop, release := interrupted()
	defer release()

	d, err := display.Initialize(cfg)
	if err != nil {
		return err
	}

	err = play(d, fs.Args(), bg, *gap, clip.Loader{ChunkSize: *chunk}, pcfg, stop)
	return errors.Join(err, d.Shutdown())
}

// play shows each animation in turn with the background in between. A
// missed deadline only ends that animation. It is reported at the end
func play(d *display.Handle, files []string, bg rgb565.Pixel, gap time.Duration, loader clip.Loader, cfg playback.Config, stop func() bool) error {
	var violations []error

	for i, path := range files {
		if stop() {
			slog.Info("rpg: interrupted", "remaining", len(files)-i)
			break
		}

		if err := d.DisplayFlatColor(1-d.Front(), bg); err != nil {
			return err
		}

		shown := time.Now()
		c, err := loader.Load(path, d.Width(), d.Height())
		if err != nil {
			return err
		}
		if wait := gap - time.Since(shown); wait > 0 {
			time.Sleep(wait)
		}

		stats, err := playback.Play(d, c, cfg)
		c.Release()

		if errors.Is(err, fault.TimingViolation) {
			fmt.Printf("%s: %v\n", path, err)
			violations = append(violations, fmt.Errorf("%s: %w", path, err))
			continue
		}
		if err != nil {
			return err
		}

		fmt.Printf("%s: %d frames, fastest %.2f fps, slowest %.2f fps (session %s, started %s)\n",
			path, stats.Frames, stats.Fastest, stats.Slowest, stats.Session, stats.Started.Format(time.RFC3339Nano))
	}

	if err := d.DisplayFlatColor(1-d.Front(), bg); err != nil {
		return err
	}
	return errors.Join(violations...)
}
