package fault_test

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/rpg-lab/rpg/fault"
	"github.com/rpg-lab/rpg/internal/test"
)

func TestKindMatching(t *testing.T) {
	err := fault.New(fault.FileError, "clip: load", fs.ErrNotExist)
	test.ExpectError(t, err, fault.FileError)
	test.ExpectError(t, err, fs.ErrNotExist)
	test.ExpectFailure(t, errors.Is(err, fault.TimingViolation))

	wrapped := fmt.Errorf("session 3: %w", err)
	test.ExpectError(t, wrapped, fault.FileError)
	test.ExpectEquality(t, fault.KindOf(wrapped), fault.FileError)
	test.ExpectEquality(t, fault.KindOf(errors.New("plain")), fault.Kind(0))
}

func TestMessage(t *testing.T) {
	err := fault.Errorf(fault.TimingViolation, "playback", "frame %d overran", 7)
	test.ExpectEquality(t, err.Error(), "playback: timing violation: frame 7 overran")

	err = fault.New(fault.ModeNotSupported, "display: initialize", nil)
	test.ExpectEquality(t, err.Error(), "display: initialize: mode not supported")
}
