// Package fault classifies the failures reported by the display, codec and
// playback packages.
//
// Every error returned by those packages carries a Kind. Because Kind itself
// implements the error interface, callers test for a class of failure with
// the standard library:
//
//	stats, err := playback.Play(h, c, cfg)
//	if errors.Is(err, fault.TimingViolation) {
//		// the session was aborted but the display is still usable
//	}
//
// Nothing in this module exits the process on error. That decision belongs
// to the caller.
package fault

import (
	"errors"
	"fmt"
)

// Kind is a class of failure.
type Kind int

const (
	// a device or channel could not be opened or mapped
	ResourceUnavailable Kind = iota + 1

	// the firmware did not honour the requested resolution
	ModeNotSupported

	// a mailbox exchange with the firmware failed
	ProtocolFailure

	// a clip file is missing, unreadable or unwritable
	FileError

	// a playback frame missed its deadline
	TimingViolation

	// a stimulus or configuration value is outside its valid range
	InvalidParameter

	// a clip does not fit the display it is played on
	IncompatibleClip
)

var names = map[Kind]string{
	ResourceUnavailable: "resource unavailable",
	ModeNotSupported:    "mode not supported",
	ProtocolFailure:     "protocol failure",
	FileError:           "file error",
	TimingViolation:     "timing violation",
	InvalidParameter:    "invalid parameter",
	IncompatibleClip:    "incompatible clip",
}

// Error implements the error interface so that a Kind can be used as the
// target of errors.Is().
func (k Kind) Error() string {
	if s, ok := names[k]; ok {
		return s
	}
	return fmt.Sprintf("fault(%d)", int(k))
}

// Error is a failure of a known Kind raised by the named operation.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the Kind of this error.
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

// New wraps err as a failure of the given kind. The cause may be nil.
func New(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf is like New but builds the cause from a format string. The %w verb
// is supported.
func Errorf(kind Kind, op string, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind of the first *Error in the chain, or zero if there
// is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
