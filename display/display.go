// Package display owns the frame buffer for the duration of an experiment.
//
// Initialize switches the screen to the requested resolution with a virtual
// frame buffer twice as tall, so that two complete frames fit one above the
// other. One half is shown while the other is written, and the firmware is
// asked to move the visible area from one half to the other (a flip), which
// needs no copying.
//
// Only one Handle can exist at a time. Shutdown must be called exactly once
// to restore the original screen mode, including after a failed playback.
package display

import (
	"errors"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/rpg-lab/rpg/fault"
	"github.com/rpg-lab/rpg/framebuffer"
	"github.com/rpg-lab/rpg/mailbox"
	"github.com/rpg-lab/rpg/rgb565"
)

// Depth is the only supported colour depth, in bits per pixel.
const Depth = 16

// Firmware is the part of the firmware mailbox used by the display.
// *mailbox.Client implements it.
type Firmware interface {
	Mode() (mailbox.Mode, error)
	SetVirtualOffset(x, y int) error
	Close() error
}

// Device is a frame buffer that can be memory mapped.
// *framebuffer.FrameBuffer implements it.
type Device interface {
	Map(length int) (*framebuffer.Mapping, error)
	Close() error
}

// Config configures Initialize. Only Width and Height are required. Nil
// collaborators are replaced with the real devices.
type Config struct {
	Width  int
	Height int

	// paths of the devices. empty values mean framebuffer.DefaultDevice and
	// mailbox.DefaultDevice
	FrameBufferDevice string
	MailboxDevice     string

	Firmware   Firmware
	ModeSetter ModeSetter
	Console    Console

	// OpenDevice opens the frame buffer device for reading and writing
	OpenDevice func(path string) (Device, error)
}

func (cfg *Config) defaults() {
	if cfg.FrameBufferDevice == "" {
		cfg.FrameBufferDevice = framebuffer.DefaultDevice
	}
	if cfg.MailboxDevice == "" {
		cfg.MailboxDevice = mailbox.DefaultDevice
	}
	if cfg.ModeSetter == nil {
		cfg.ModeSetter = Ioctl{Device: cfg.FrameBufferDevice}
	}
	if cfg.Console == nil {
		cfg.Console = &TTYConsole{}
	}
	if cfg.OpenDevice == nil {
		cfg.OpenDevice = func(path string) (Device, error) {
			return framebuffer.OpenFrameBuffer(path, os.O_RDWR)
		}
	}
}

// claimed is true while a Handle exists
var claimed atomic.Bool

// Handle is exclusive access to the display.
type Handle struct {
	width  int
	height int

	// the mode found at initialisation, restored at shutdown
	original mailbox.Mode

	fw      Firmware
	modes   ModeSetter
	console Console
	dev     Device
	mapping *framebuffer.Mapping
	halves  [2]*rgb565.Image
	front   int

	modeChanged  bool
	cursorHidden bool
	closed       bool
}

// Initialize takes ownership of the display and switches it to a
// width×height mode with a double height virtual buffer.
//
// Failure leaves the display as it was found and returns an error of kind
// fault.ProtocolFailure, fault.ModeNotSupported or
// fault.ResourceUnavailable.
func Initialize(cfg Config) (_ *Handle, err error) {
	const op = "display: initialize"

	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fault.Errorf(fault.InvalidParameter, op, "invalid resolution %dx%d", cfg.Width, cfg.Height)
	}
	cfg.defaults()

	if !claimed.CompareAndSwap(false, true) {
		return nil, fault.Errorf(fault.ResourceUnavailable, op, "display is already initialised")
	}

	h := &Handle{
		width:   cfg.Width,
		height:  cfg.Height,
		modes:   cfg.ModeSetter,
		console: cfg.Console,
	}

	// undo whatever was done before the failure
	defer func() {
		if err != nil {
			if uerr := h.unwind(); uerr != nil {
				slog.Error("display: cleanup after failed initialisation", "error", uerr)
			}
			claimed.Store(false)
		}
	}()

	h.fw = cfg.Firmware
	if h.fw == nil {
		c, err := mailbox.Open(cfg.MailboxDevice)
		if err != nil {
			return nil, err
		}
		h.fw = c
	}

	h.original, err = h.fw.Mode()
	if err != nil {
		return nil, err
	}
	slog.Debug("display: original mode", "width", h.original.Width, "height", h.original.Height, "depth", h.original.Depth)

	h.modeChanged = true
	err = h.modes.SetMode(Mode{
		XRes:  cfg.Width,
		YRes:  cfg.Height,
		VXRes: cfg.Width,
		VYRes: 2 * cfg.Height,
		Depth: Depth,
	})
	if err != nil {
		return nil, fault.New(fault.ModeNotSupported, op, err)
	}

	current, err := h.fw.Mode()
	if err != nil {
		return nil, err
	}
	if current.Width != cfg.Width || current.Height != cfg.Height {
		return nil, fault.Errorf(fault.ModeNotSupported, op, "requested %dx%d but firmware reports %dx%d",
			cfg.Width, cfg.Height, current.Width, current.Height)
	}

	if err := h.console.HideCursor(); err != nil {
		slog.Warn("display: cannot hide cursor", "error", err)
	} else {
		h.cursorHidden = true
	}

	h.dev, err = cfg.OpenDevice(cfg.FrameBufferDevice)
	if err != nil {
		return nil, fault.New(fault.ResourceUnavailable, op, err)
	}

	h.mapping, err = h.dev.Map(2 * h.BufferSize())
	if err != nil {
		return nil, fault.New(fault.ResourceUnavailable, op, err)
	}

	n := cfg.Width * cfg.Height
	for i := range h.halves {
		h.halves[i], err = h.mapping.Image(i*n, cfg.Width, cfg.Height)
		if err != nil {
			return nil, fault.New(fault.ResourceUnavailable, op, err)
		}
	}

	// start from a known state with the front half visible
	if err := h.fw.SetVirtualOffset(0, 0); err != nil {
		return nil, err
	}

	slog.Info("display: initialised", "width", cfg.Width, "height", cfg.Height, "depth", Depth)
	return h, nil
}

// unwind releases everything acquired so far, in reverse order
func (h *Handle) unwind() error {
	var errs []error

	h.halves = [2]*rgb565.Image{}
	if h.mapping != nil {
		errs = append(errs, h.mapping.Unmap())
		h.mapping = nil
	}
	if h.dev != nil {
		errs = append(errs, h.dev.Close())
		h.dev = nil
	}
	if h.modeChanged {
		slog.Debug("display: restoring original mode")
		errs = append(errs, h.modes.SetMode(Mode{
			XRes:  h.original.Width,
			YRes:  h.original.Height,
			VXRes: h.original.Width,
			VYRes: h.original.Height,
			Depth: h.original.Depth,
		}))
		h.modeChanged = false
	}
	if h.cursorHidden {
		errs = append(errs, h.console.ShowCursor())
		h.cursorHidden = false
	}
	if h.fw != nil {
		errs = append(errs, h.fw.Close())
		h.fw = nil
	}

	return errors.Join(errs...)
}

// Shutdown unmaps the display buffer, restores the original mode and
// re-enables the cursor. The Handle cannot be used afterwards and a second
// call returns an error.
func (h *Handle) Shutdown() error {
	const op = "display: shutdown"

	if h.closed {
		return fault.Errorf(fault.ResourceUnavailable, op, "display has already been shut down")
	}
	h.closed = true
	defer claimed.Store(false)

	if err := h.unwind(); err != nil {
		return fault.New(fault.ResourceUnavailable, op, err)
	}
	slog.Info("display: shut down")
	return nil
}

// Width returns the visible width in pixels.
func (h *Handle) Width() int {
	return h.width
}

// Height returns the visible height in pixels.
func (h *Handle) Height() int {
	return h.height
}

// BufferSize returns the size in bytes of one half of the display buffer.
func (h *Handle) BufferSize() int {
	return h.width * h.height * Depth / 8
}

// Front returns the half that is currently visible.
func (h *Handle) Front() int {
	return h.front
}

// Buffer returns a view of one half of the display buffer. The view must not
// be used after Shutdown().
func (h *Handle) Buffer(half int) (*rgb565.Image, error) {
	if err := h.check("display: buffer", half); err != nil {
		return nil, err
	}
	return h.halves[half], nil
}

// Write copies a frame into one half of the display buffer. The frame must
// hold exactly Width()*Height() pixels.
func (h *Handle) Write(half int, px []rgb565.Pixel) error {
	const op = "display: write"
	if err := h.check(op, half); err != nil {
		return err
	}
	dst := h.halves[half].Pix
	if len(px) != len(dst) {
		return fault.Errorf(fault.IncompatibleClip, op, "frame of %d pixels does not fit buffer of %d pixels", len(px), len(dst))
	}
	copy(dst, px)
	return nil
}

// Flip makes the given half visible.
func (h *Handle) Flip(half int) error {
	if err := h.check("display: flip", half); err != nil {
		return err
	}
	if err := h.fw.SetVirtualOffset(0, half*h.height); err != nil {
		return err
	}
	h.front = half
	return nil
}

// DisplayFlatColor fills one half with a single colour and flips to it.
func (h *Handle) DisplayFlatColor(half int, c rgb565.Pixel) error {
	if err := h.check("display: flat color", half); err != nil {
		return err
	}
	h.halves[half].Fill(c)
	return h.Flip(half)
}

func (h *Handle) check(op string, half int) error {
	if h.closed {
		return fault.Errorf(fault.ResourceUnavailable, op, "display has been shut down")
	}
	if half != 0 && half != 1 {
		return fault.Errorf(fault.InvalidParameter, op, "no buffer half %d", half)
	}
	return nil
}
