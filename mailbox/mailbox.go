// Package mailbox talks to the VideoCore firmware through the property
// interface exposed by the vcio character device.
//
// A property message is a buffer of 32-bit words: the total size in bytes, a
// request/response code, one or more tags and a terminating zero tag. Each
// tag is an id, the size of its value buffer, a request/response code and
// the value words. The firmware answers by overwriting the message in place.
//
// Messages are declared here as Go structs whose field order is the wire
// order, so that no word offsets need to be computed by hand. See
// https://github.com/raspberrypi/firmware/wiki/Mailbox-property-interface
package mailbox

import (
	"os"
	"unsafe"

	"github.com/rpg-lab/rpg/fault"
	"github.com/rpg-lab/rpg/internal/ioctl"
)

// DefaultDevice is the firmware mailbox character device.
const DefaultDevice = "/dev/vcio"

// tag ids
const (
	tagGetDisplaySize   = 0x00040003
	tagGetDepth         = 0x00040005
	tagSetVirtualOffset = 0x00048009
)

// buffer codes
const (
	codeRequest = 0x00000000
	codeSuccess = 0x80000000
)

// the kernel copies exactly this many words from and to the caller
const (
	bufferWords = 32
	bufferAlign = 16
)

// _IOWR(100, 0, char *)
var ioctlProperty = ioctl.IOWR(100, 0, unsafe.Sizeof(uintptr(0)))

type header struct {
	Size uint32
	Code uint32
}

type tag struct {
	ID        uint32
	ValueSize uint32
	Code      uint32
}

type sizeTag struct {
	tag
	Width  uint32
	Height uint32
}

type depthTag struct {
	tag
	Depth uint32
}

type offsetTag struct {
	tag
	X uint32
	Y uint32
}

type resolutionMessage struct {
	header
	Size sizeTag
	End  uint32
}

type modeMessage struct {
	header
	Size  sizeTag
	Depth depthTag
	End   uint32
}

type offsetMessage struct {
	header
	Offset offsetTag
	End    uint32
}

func newResolutionMessage() *resolutionMessage {
	m := &resolutionMessage{
		Size: sizeTag{tag: tag{ID: tagGetDisplaySize, ValueSize: 8}},
	}
	m.header = header{Size: uint32(unsafe.Sizeof(*m)), Code: codeRequest}
	return m
}

func newModeMessage() *modeMessage {
	m := &modeMessage{
		Size:  sizeTag{tag: tag{ID: tagGetDisplaySize, ValueSize: 8}},
		Depth: depthTag{tag: tag{ID: tagGetDepth, ValueSize: 4}},
	}
	m.header = header{Size: uint32(unsafe.Sizeof(*m)), Code: codeRequest}
	return m
}

func newOffsetMessage(x, y uint32) *offsetMessage {
	m := &offsetMessage{
		Offset: offsetTag{tag: tag{ID: tagSetVirtualOffset, ValueSize: 8}, X: x, Y: y},
	}
	m.header = header{Size: uint32(unsafe.Sizeof(*m)), Code: codeRequest}
	return m
}

// Mode is the resolution and colour depth reported by the firmware.
type Mode struct {
	Width  int
	Height int
	Depth  int
}

// Client exchanges property messages with the firmware. All calls block
// until the firmware has answered.
type Client struct {
	dev      *os.File
	transfer func(buf *[bufferWords]uint32) error
}

// Open opens the mailbox device. An empty path means DefaultDevice.
func Open(path string) (*Client, error) {
	if path == "" {
		path = DefaultDevice
	}
	f, err := os.OpenFile(path, os.O_RDONLY, os.ModeDevice)
	if err != nil {
		return nil, fault.New(fault.ProtocolFailure, "mailbox: open", err)
	}
	c := &Client{dev: f}
	c.transfer = func(buf *[bufferWords]uint32) error {
		return ioctl.Pointer(c.dev, ioctlProperty, buf)
	}
	return c, nil
}

// Close closes the mailbox device.
func (c *Client) Close() error {
	if c.dev == nil {
		return nil
	}
	err := c.dev.Close()
	c.dev = nil
	c.transfer = nil
	return err
}

// Resolution returns the width and height of the display.
func (c *Client) Resolution() (int, int, error) {
	m := newResolutionMessage()
	if err := exchange(c, m, "mailbox: get resolution"); err != nil {
		return 0, 0, err
	}
	return int(m.Size.Width), int(m.Size.Height), nil
}

// Mode returns the resolution and depth of the display.
func (c *Client) Mode() (Mode, error) {
	m := newModeMessage()
	if err := exchange(c, m, "mailbox: get mode"); err != nil {
		return Mode{}, err
	}
	return Mode{
		Width:  int(m.Size.Width),
		Height: int(m.Size.Height),
		Depth:  int(m.Depth.Depth),
	}, nil
}

// SetVirtualOffset moves the visible area within the virtual frame buffer.
// With a virtual height of twice the visible height, a y offset of zero
// shows the front half and a y offset of the visible height shows the back
// half.
func (c *Client) SetVirtualOffset(x, y int) error {
	m := newOffsetMessage(uint32(x), uint32(y))
	return exchange(c, m, "mailbox: set virtual offset")
}

// exchange copies the message into an aligned buffer, hands it to the
// firmware and copies the answer back into the message.
func exchange[M any](c *Client, msg *M, op string) error {
	if c.transfer == nil {
		return fault.Errorf(fault.ProtocolFailure, op, "mailbox is closed")
	}

	n := unsafe.Sizeof(*msg)
	if n > bufferWords*4 {
		return fault.Errorf(fault.ProtocolFailure, op, "message of %d bytes does not fit buffer", n)
	}

	buf := alignedBuffer()
	wire := unsafe.Slice((*byte)(unsafe.Pointer(buf)), bufferWords*4)
	local := unsafe.Slice((*byte)(unsafe.Pointer(msg)), n)
	copy(wire, local)

	if err := c.transfer(buf); err != nil {
		return fault.New(fault.ProtocolFailure, op, err)
	}

	copy(local, wire[:n])
	if code := (*header)(unsafe.Pointer(msg)).Code; code != codeSuccess {
		return fault.Errorf(fault.ProtocolFailure, op, "firmware response code %#08x", code)
	}
	return nil
}

// alignedBuffer returns a zeroed buffer of bufferWords words on a
// bufferAlign boundary. heap allocations are never moved so the alignment
// holds for the lifetime of the buffer.
func alignedBuffer() *[bufferWords]uint32 {
	raw := new([bufferWords + bufferAlign/4]uint32)
	skip := (bufferAlign - uintptr(unsafe.Pointer(&raw[0]))%bufferAlign) % bufferAlign / 4
	return (*[bufferWords]uint32)(raw[skip : skip+bufferWords])
}
