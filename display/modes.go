package display

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"strconv"

	"github.com/rpg-lab/rpg/framebuffer"
)

// Mode is a visible and virtual resolution with a colour depth.
type Mode struct {
	XRes  int
	YRes  int
	VXRes int
	VYRes int
	Depth int
}

// ModeSetter changes the kernel video mode.
type ModeSetter interface {
	SetMode(m Mode) error
}

// Ioctl sets the mode directly on the frame buffer device.
type Ioctl struct {
	// empty means framebuffer.DefaultDevice
	Device string
}

// SetMode implements the ModeSetter interface.
func (d Ioctl) SetMode(m Mode) error {
	dev := d.Device
	if dev == "" {
		dev = framebuffer.DefaultDevice
	}

	fb, err := framebuffer.OpenFrameBuffer(dev, os.O_RDWR)
	if err != nil {
		return err
	}
	defer fb.Close()

	vi, err := fb.VarScreenInfo()
	if err != nil {
		return err
	}

	vi.XRes = uint32(m.XRes)
	vi.YRes = uint32(m.YRes)
	vi.XResVirtual = uint32(m.VXRes)
	vi.YResVirtual = uint32(m.VYRes)
	vi.XOffset = 0
	vi.YOffset = 0
	vi.BitsPerPixel = uint32(m.Depth)
	vi.Activate = framebuffer.ActivateNow | framebuffer.ActivateForce

	if err := fb.PutVarScreenInfo(&vi); err != nil {
		return fmt.Errorf("set mode %dx%d (virtual %dx%d) at %d bpp: %w", m.XRes, m.YRes, m.VXRes, m.VYRes, m.Depth, err)
	}

	// only the mode used for playback is checked. restoring the original
	// mode accepts whatever the driver chooses
	if m.Depth != Depth {
		return nil
	}
	if !vi.IsRGB565() {
		return fmt.Errorf("driver did not select an RGB565 pixel layout")
	}

	// the buffer halves are addressed as packed rows
	fi, err := fb.FixScreenInfo()
	if err != nil {
		return err
	}
	if stride := m.XRes * Depth / 8; int(fi.LineLength) != stride {
		return fmt.Errorf("driver pads lines to %d bytes, expected %d", fi.LineLength, stride)
	}
	return nil
}

// Fbset sets the mode by running the fbset utility.
type Fbset struct {
	// path of the fbset executable. empty means "fbset" found on PATH
	Path string

	// frame buffer device passed with -fb. empty means fbset's default
	Device string
}

// Args returns the command line arguments for the mode.
func (f Fbset) Args(m Mode) []string {
	var args []string
	if f.Device != "" {
		args = append(args, "-fb", f.Device)
	}
	return append(args,
		"-xres", strconv.Itoa(m.XRes),
		"-yres", strconv.Itoa(m.YRes),
		"-vxres", strconv.Itoa(m.VXRes),
		"-vyres", strconv.Itoa(m.VYRes),
		"-depth", strconv.Itoa(m.Depth),
	)
}

// SetMode implements the ModeSetter interface.
func (f Fbset) SetMode(m Mode) error {
	path := f.Path
	if path == "" {
		path = "fbset"
	}
	out, err := exec.Command(path, f.Args(m)...).CombinedOutput()
	if err != nil {
		if msg := bytes.TrimSpace(out); len(msg) > 0 {
			return fmt.Errorf("fbset: %w: %s", err, msg)
		}
		return fmt.Errorf("fbset: %w", err)
	}
	return nil
}
