// rpg generates drifting grating stimuli and plays them full screen on a
// Raspberry Pi.
//
// Usage:
//
//	rpg [options] <command> [arguments]
//
// Commands:
//
//	encode [flags] <file>         Render a grating animation to a file
//	info <file>...                Show the header of animation files
//	preview [flags] <file> <png>  Save one frame of an animation as a PNG
//	resolution                    Show the current display resolution
//	flat [flags]                  Fill the screen with a single colour
//	play [flags] <file>...        Play animations one after another
package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/rpg-lab/rpg/display"
	"github.com/rpg-lab/rpg/fault"
)

var (
	fbDevice      = flag.String("fb", "/dev/fb0", "Frame buffer device")
	mailboxDevice = flag.String("mailbox", "/dev/vcio", "Firmware mailbox device")
	modeset       = flag.String("modeset", "ioctl", "How to change the video mode (ioctl, fbset)")
	fbsetPath     = flag.String("fbset", "fbset", "Path of the fbset utility, used with -modeset=fbset")
	ttyPath       = flag.String("tty", "", "Terminal to hide the cursor on (default: the controlling terminal)")
	graphics      = flag.Bool("graphics", false, "Switch the terminal to graphics mode while the display is in use")
	verbose       = flag.Bool("v", false, "Verbose output")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] <command> [arguments]\n\n", os.Args[0])
		fmt.Fprintln(os.Stderr, "Commands:")
		fmt.Fprintln(os.Stderr, "  encode [flags] <file>         Render a grating animation to a file")
		fmt.Fprintln(os.Stderr, "  info <file>...                Show the header of animation files")
		fmt.Fprintln(os.Stderr, "  preview [flags] <file> <png>  Save one frame of an animation as a PNG")
		fmt.Fprintln(os.Stderr, "  resolution                    Show the current display resolution")
		fmt.Fprintln(os.Stderr, "  flat [flags]                  Fill the screen with a single colour")
		fmt.Fprintln(os.Stderr, "  play [flags] <file>...        Play animations one after another")
		fmt.Fprintln(os.Stderr, "\nRun '<command> -h' for the flags of a command.")
		fmt.Fprintln(os.Stderr, "\nOptions:")
		flag.PrintDefaults()
	}

	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	args := flag.Args()[1:]

	var err error
	switch flag.Arg(0) {
	case "encode":
		err = cmdEncode(args)
	case "info":
		err = cmdInfo(args)
	case "preview":
		err = cmdPreview(args)
	case "resolution":
		err = cmdResolution()
	case "flat":
		err = cmdFlat(args)
	case "play":
		err = cmdPlay(args)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", flag.Arg(0))
		flag.Usage()
		os.Exit(2)
	}

	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// exitCode distinguishes the kinds of failure for scripts driving an
// experiment
func exitCode(err error) int {
	switch fault.KindOf(err) {
	case fault.InvalidParameter:
		return 2
	case fault.TimingViolation:
		return 3
	case fault.ResourceUnavailable, fault.ModeNotSupported, fault.ProtocolFailure:
		return 4
	}
	return 1
}

// displayConfig builds the display configuration from the global options
func displayConfig(width, height int) (display.Config, error) {
	cfg := display.Config{
		Width:             width,
		Height:            height,
		FrameBufferDevice: *fbDevice,
		MailboxDevice:     *mailboxDevice,
		Console:           &display.TTYConsole{Path: *ttyPath, GraphicsMode: *graphics},
	}

	switch *modeset {
	case "ioctl":
		cfg.ModeSetter = display.Ioctl{Device: *fbDevice}
	case "fbset":
		cfg.ModeSetter = display.Fbset{Path: *fbsetPath, Device: *fbDevice}
	default:
		return cfg, fault.Errorf(fault.InvalidParameter, "rpg", "unknown mode setter %q", *modeset)
	}

	return cfg, nil
}
