package display_test

import (
	"errors"
	"testing"

	"github.com/rpg-lab/rpg/display"
	"github.com/rpg-lab/rpg/fault"
	"github.com/rpg-lab/rpg/framebuffer"
	"github.com/rpg-lab/rpg/internal/test"
	"github.com/rpg-lab/rpg/mailbox"
	"github.com/rpg-lab/rpg/rgb565"
)

// firmware reports whatever mode the modes fake last applied
type firmware struct {
	mode    mailbox.Mode
	offsets []int
	closed  bool
	fail    error
}

func (f *firmware) Mode() (mailbox.Mode, error) {
	if f.fail != nil {
		return mailbox.Mode{}, fault.New(fault.ProtocolFailure, "fake", f.fail)
	}
	return f.mode, nil
}

func (f *firmware) SetVirtualOffset(x, y int) error {
	f.offsets = append(f.offsets, y)
	return nil
}

func (f *firmware) Close() error {
	f.closed = true
	return nil
}

type modes struct {
	fw      *firmware
	applied []display.Mode

	// the firmware silently keeps the old resolution
	ignore bool

	fail error
}

func (m *modes) SetMode(mode display.Mode) error {
	m.applied = append(m.applied, mode)
	if m.fail != nil {
		return m.fail
	}
	if !m.ignore {
		m.fw.mode = mailbox.Mode{Width: mode.XRes, Height: mode.YRes, Depth: mode.Depth}
	}
	return nil
}

type console struct {
	hidden bool
	shown  int
}

func (c *console) HideCursor() error {
	c.hidden = true
	return nil
}

func (c *console) ShowCursor() error {
	c.hidden = false
	c.shown++
	return nil
}

type device struct {
	closed  bool
	length  int
	mapping *framebuffer.Mapping
}

func (d *device) Map(length int) (*framebuffer.Mapping, error) {
	d.length = length
	m, err := framebuffer.MapAnonymous(length)
	d.mapping = m
	return m, err
}

func (d *device) Close() error {
	d.closed = true
	return nil
}

type rig struct {
	fw      *firmware
	modes   *modes
	console *console
	dev     *device
	openErr error
}

func newRig() *rig {
	fw := &firmware{mode: mailbox.Mode{Width: 1920, Height: 1080, Depth: 32}}
	return &rig{
		fw:      fw,
		modes:   &modes{fw: fw},
		console: &console{},
		dev:     &device{},
	}
}

func (r *rig) config(w, h int) display.Config {
	return display.Config{
		Width:      w,
		Height:     h,
		Firmware:   r.fw,
		ModeSetter: r.modes,
		Console:    r.console,
		OpenDevice: func(string) (display.Device, error) {
			if r.openErr != nil {
				return nil, r.openErr
			}
			return r.dev, nil
		},
	}
}

var original = display.Mode{XRes: 1920, YRes: 1080, VXRes: 1920, VYRes: 1080, Depth: 32}

func TestInitializeShutdown(t *testing.T) {
	r := newRig()
	h, err := display.Initialize(r.config(16, 8))
	test.ExpectSuccess(t, err)

	test.ExpectEquality(t, len(r.modes.applied), 1)
	test.ExpectEquality(t, r.modes.applied[0], display.Mode{XRes: 16, YRes: 8, VXRes: 16, VYRes: 16, Depth: 16})
	test.ExpectSuccess(t, r.console.hidden)

	test.ExpectEquality(t, h.BufferSize(), 16*8*2)
	test.ExpectEquality(t, r.dev.length, 2*h.BufferSize())
	test.ExpectEquality(t, h.Front(), 0)

	test.ExpectSuccess(t, h.DisplayFlatColor(1, rgb565.MidGray))
	test.ExpectEquality(t, h.Front(), 1)
	test.ExpectEquality(t, r.fw.offsets[len(r.fw.offsets)-1], 8)

	back, err := h.Buffer(1)
	test.ExpectSuccess(t, err)
	for _, p := range back.Pix {
		test.ExpectEquality(t, p, rgb565.MidGray)
	}
	front, err := h.Buffer(0)
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, front.PixelAt(0, 0), rgb565.Black)

	frame := make([]rgb565.Pixel, 16*8)
	frame[5] = rgb565.White
	test.ExpectSuccess(t, h.Write(0, frame))
	test.ExpectEquality(t, front.Pix[5], rgb565.White)
	test.ExpectSuccess(t, h.Flip(0))
	test.ExpectEquality(t, r.fw.offsets[len(r.fw.offsets)-1], 0)

	test.ExpectSuccess(t, h.Shutdown())
	test.ExpectEquality(t, r.modes.applied[len(r.modes.applied)-1], original)
	test.ExpectEquality(t, r.console.shown, 1)
	test.ExpectSuccess(t, r.fw.closed)
	test.ExpectSuccess(t, r.dev.closed)
	test.ExpectEquality(t, r.dev.mapping.Len(), 0)

	// the handle is unusable after shutdown
	test.ExpectError(t, h.Shutdown(), fault.ResourceUnavailable)
	test.ExpectError(t, h.Write(0, frame), fault.ResourceUnavailable)
	test.ExpectError(t, h.Flip(1), fault.ResourceUnavailable)
	test.ExpectError(t, h.DisplayFlatColor(0, rgb565.Black), fault.ResourceUnavailable)
	_, err = h.Buffer(0)
	test.ExpectError(t, err, fault.ResourceUnavailable)
	test.ExpectEquality(t, r.console.shown, 1)
}

func TestExclusive(t *testing.T) {
	r := newRig()
	h, err := display.Initialize(r.config(16, 8))
	test.ExpectSuccess(t, err)

	_, err = display.Initialize(newRig().config(16, 8))
	test.ExpectError(t, err, fault.ResourceUnavailable)

	test.ExpectSuccess(t, h.Shutdown())

	h, err = display.Initialize(newRig().config(16, 8))
	test.ExpectSuccess(t, err)
	test.ExpectSuccess(t, h.Shutdown())
}

func TestModeNotHonoured(t *testing.T) {
	r := newRig()
	r.modes.ignore = true

	_, err := display.Initialize(r.config(16, 8))
	test.ExpectError(t, err, fault.ModeNotSupported)

	// the original mode was put back and everything released
	test.ExpectEquality(t, len(r.modes.applied), 2)
	test.ExpectEquality(t, r.modes.applied[1], original)
	test.ExpectSuccess(t, r.fw.closed)
	test.ExpectFailure(t, r.console.hidden)

	// the claim was released
	h, err := display.Initialize(newRig().config(16, 8))
	test.ExpectSuccess(t, err)
	test.ExpectSuccess(t, h.Shutdown())
}

func TestModeSetterFailure(t *testing.T) {
	r := newRig()
	r.modes.fail = errors.New("fbset: exit status 1")

	_, err := display.Initialize(r.config(16, 8))
	test.ExpectError(t, err, fault.ModeNotSupported)
	test.ExpectEquality(t, r.modes.applied[len(r.modes.applied)-1], original)
}

func TestDeviceUnavailable(t *testing.T) {
	r := newRig()
	r.openErr = errors.New("permission denied")

	_, err := display.Initialize(r.config(16, 8))
	test.ExpectError(t, err, fault.ResourceUnavailable)

	test.ExpectEquality(t, r.modes.applied[len(r.modes.applied)-1], original)
	test.ExpectEquality(t, r.console.shown, 1)
	test.ExpectSuccess(t, r.fw.closed)
}

func TestFirmwareFailure(t *testing.T) {
	r := newRig()
	r.fw.fail = errors.New("ioctl failed")

	_, err := display.Initialize(r.config(16, 8))
	test.ExpectError(t, err, fault.ProtocolFailure)

	// nothing was changed so nothing is restored
	test.ExpectEquality(t, len(r.modes.applied), 0)
	test.ExpectEquality(t, r.console.shown, 0)
}

func TestInvalidUse(t *testing.T) {
	_, err := display.Initialize(newRig().config(0, 8))
	test.ExpectError(t, err, fault.InvalidParameter)

	h, err := display.Initialize(newRig().config(4, 4))
	test.ExpectSuccess(t, err)
	defer h.Shutdown()

	test.ExpectError(t, h.Write(2, make([]rgb565.Pixel, 16)), fault.InvalidParameter)
	test.ExpectError(t, h.Write(0, make([]rgb565.Pixel, 15)), fault.IncompatibleClip)
	test.ExpectError(t, h.Flip(-1), fault.InvalidParameter)
}

func TestFbsetArgs(t *testing.T) {
	args := display.Fbset{}.Args(display.Mode{XRes: 1680, YRes: 1050, VXRes: 1680, VYRes: 2100, Depth: 16})
	expected := []string{"-xres", "1680", "-yres", "1050", "-vxres", "1680", "-vyres", "2100", "-depth", "16"}
	test.ExpectEquality(t, len(args), len(expected))
	for i := range expected {
		test.ExpectEquality(t, args[i], expected[i])
	}

	args = display.Fbset{Device: "/dev/fb1"}.Args(display.Mode{})
	test.ExpectEquality(t, args[0], "-fb")
	test.ExpectEquality(t, args[1], "/dev/fb1")
}

func TestFbsetFailure(t *testing.T) {
	err := display.Fbset{Path: "/nonexistent/fbset"}.SetMode(display.Mode{XRes: 1, YRes: 1, VXRes: 1, VYRes: 2, Depth: 16})
	test.ExpectFailure(t, err)
}
