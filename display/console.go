package display

import (
	"errors"
	"os"

	"github.com/pkg/term"

	"github.com/rpg-lab/rpg/framebuffer"
)

// Console hides the text cursor, and anything else the terminal would draw,
// while the display is in use.
type Console interface {
	HideCursor() error
	ShowCursor() error
}

// ANSI sequences understood by the Linux console
const (
	cursorHide = "\x1b[?25l"
	cursorShow = "\x1b[?25h"
)

// TTYConsole is the terminal the program is run from. While the cursor is
// hidden, keyboard echo is also turned off so that typing cannot draw over
// the stimulus.
type TTYConsole struct {
	// empty means the controlling terminal
	Path string

	// also switch the virtual console to graphics mode, which stops the
	// kernel drawing text on the frame buffer at all. only meaningful for a
	// virtual console such as /dev/tty1
	GraphicsMode bool

	t     *term.Term
	tty   *framebuffer.TTY
	saved framebuffer.TTYMode
}

func (c *TTYConsole) path() string {
	if c.Path == "" {
		return "/dev/tty"
	}
	return c.Path
}

// an empty Path means the terminal on stdin
func (c *TTYConsole) openTTY() (*framebuffer.TTY, error) {
	if c.Path == "" {
		return framebuffer.OpenMyTTY(os.O_RDWR)
	}
	return framebuffer.OpenTTY(c.Path, os.O_RDWR)
}

// HideCursor implements the Console interface.
func (c *TTYConsole) HideCursor() error {
	t, err := term.Open(c.path(), term.CBreakMode)
	if err != nil {
		return err
	}
	if _, err := t.Write([]byte(cursorHide)); err != nil {
		return errors.Join(err, t.Restore(), t.Close())
	}
	c.t = t

	if c.GraphicsMode {
		tty, err := c.openTTY()
		if err != nil {
			return errors.Join(err, c.ShowCursor())
		}
		prev, err := tty.SwitchMode(framebuffer.TTYGraphicsMode)
		if err != nil {
			return errors.Join(err, tty.Close(), c.ShowCursor())
		}
		c.tty, c.saved = tty, prev
	}

	return nil
}

// ShowCursor implements the Console interface.
func (c *TTYConsole) ShowCursor() error {
	var errs []error

	if c.tty != nil {
		errs = append(errs, c.tty.SetMode(c.saved), c.tty.Close())
		c.tty = nil
	}

	if c.t != nil {
		_, err := c.t.Write([]byte(cursorShow))
		errs = append(errs, err, c.t.Restore(), c.t.Close())
		c.t = nil
	}

	return errors.Join(errs...)
}

// NoConsole leaves the terminal alone.
type NoConsole struct{}

// HideCursor implements the Console interface.
func (NoConsole) HideCursor() error { return nil }

// ShowCursor implements the Console interface.
func (NoConsole) ShowCursor() error { return nil }
