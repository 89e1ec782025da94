package framebuffer

import (
	"os"

	"github.com/rpg-lab/rpg/internal/ioctl"
)

// TTY is a virtual console, such as /dev/tty1, opened for the KD* mode
// ioctls.
type TTY os.File

// OpenMyTTY opens the current process's TTY. Requires procfs mounted at /proc.
func OpenMyTTY(flags int) (*TTY, error) {
	name, err := os.Readlink("/proc/self/fd/0")
	if err != nil {
		return nil, err
	}
	return OpenTTY(name, flags)
}

// OpenTTY opens a TTY.
func OpenTTY(name string, flags int) (*TTY, error) {
	f, err := os.OpenFile(name, flags, os.ModeDevice)
	if err != nil {
		return nil, err
	}
	return (*TTY)(f), nil
}

// File converts the TTY back to a file.
func (d *TTY) File() *os.File {
	return (*os.File)(d)
}

// Close closes the TTY.
func (d *TTY) Close() error {
	return d.File().Close()
}

// SwitchMode sets the mode and returns the mode it replaced, so that the
// caller can put it back. Graphics mode stops the kernel drawing the console,
// including the cursor, on top of the frame buffer.
func (d *TTY) SwitchMode(mode TTYMode) (TTYMode, error) {
	prev, err := d.GetMode()
	if err != nil {
		return prev, err
	}
	if prev == mode {
		return prev, nil
	}
	return prev, d.SetMode(mode)
}

// SetMode sets the TTY's mode.
func (d *TTY) SetMode(mode TTYMode) error {
	return ioctl.Call(d.File(), kKDSETMODE, uintptr(mode))
}

// GetMode returns the TTY's current mode.
func (d *TTY) GetMode() (TTYMode, error) {
	return ioctl.Get[TTYMode](d.File(), kKDGETMODE)
}

// TTYMode is the display mode of a virtual console.
type TTYMode int32

const (
	TTYTextMode     TTYMode = kKD_TEXT
	TTYGraphicsMode TTYMode = kKD_GRAPHICS
)

// <linux/kd.h> ioctls
//
// 0x4B is 'K', to avoid collision with termios and vt
const (
	kKDSETMODE = 0x4B3A
	kKDGETMODE = 0x4B3B

	kKD_TEXT     = 0x00
	kKD_GRAPHICS = 0x01
)
