// Package ioctl wraps the ioctl system call for the device packages.
package ioctl

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// <asm-generic/ioctl.h> request encoding
const (
	nrBits   = 8
	typeBits = 8
	sizeBits = 14

	nrShift   = 0
	typeShift = nrShift + nrBits
	sizeShift = typeShift + typeBits
	dirShift  = sizeShift + sizeBits

	dirWrite = 1
	dirRead  = 2
)

// IOWR encodes a read/write request number in the same way as the _IOWR()
// macro.
func IOWR(typ, nr, size uintptr) uintptr {
	return (dirRead|dirWrite)<<dirShift | size<<sizeShift | typ<<typeShift | nr<<nrShift
}

// Call makes an ioctl system call with an integer argument.
func Call(dev *os.File, cmd, data uintptr) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, dev.Fd(), cmd, data)
	if errno != 0 {
		return os.NewSyscallError(fmt.Sprintf("ioctl (cmd=0x%x)", cmd), errno)
	}
	return nil
}

// Pointer makes an ioctl system call passing a pointer to v. The kernel may
// read from and write to v.
func Pointer[V any](dev *os.File, cmd uintptr, v *V) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, dev.Fd(), cmd, uintptr(unsafe.Pointer(v)))
	if errno != 0 {
		return os.NewSyscallError(fmt.Sprintf("ioctl (cmd=0x%x)", cmd), errno)
	}
	return nil
}

// Get calls an ioctl, passing it a pointer to a value (of type V) and
// returning the value.
func Get[V any](dev *os.File, cmd uintptr) (V, error) {
	var v V
	err := Pointer(dev, cmd, &v)
	return v, err
}
