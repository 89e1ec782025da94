package ioctl_test

import (
	"testing"

	"github.com/rpg-lab/rpg/internal/ioctl"
	"github.com/rpg-lab/rpg/internal/test"
)

func TestIOWR(t *testing.T) {
	// _IOWR(100, 0, char *) on 32 and 64 bit ARM
	test.ExpectEquality(t, ioctl.IOWR(100, 0, 4), uintptr(0xc0046400))
	test.ExpectEquality(t, ioctl.IOWR(100, 0, 8), uintptr(0xc0086400))
}
