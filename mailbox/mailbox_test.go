package mailbox

import (
	"errors"
	"testing"
	"unsafe"

	"github.com/rpg-lab/rpg/fault"
	"github.com/rpg-lab/rpg/internal/test"
)

// firmware answers property requests the way the VideoCore does, by
// overwriting the value words and the buffer code in place.
type firmware struct {
	width, height, depth uint32
	xoffset, yoffset     uint32
	requests             [][]uint32
	fail                 error
	reject               bool
}

func (f *firmware) transfer(buf *[bufferWords]uint32) error {
	if f.fail != nil {
		return f.fail
	}

	if uintptr(unsafe.Pointer(buf))%bufferAlign != 0 {
		return errors.New("buffer not aligned")
	}

	words := int(buf[0] / 4)
	f.requests = append(f.requests, append([]uint32(nil), buf[:words]...))

	if f.reject {
		buf[1] = 0x80000001
		return nil
	}

	i := 2
	for buf[i] != 0 {
		id, size := buf[i], buf[i+1]
		v := buf[i+3:]
		switch id {
		case tagGetDisplaySize:
			v[0], v[1] = f.width, f.height
		case tagGetDepth:
			v[0] = f.depth
		case tagSetVirtualOffset:
			f.xoffset, f.yoffset = v[0], v[1]
		}
		buf[i+2] = 0x80000000 | size
		i += 3 + int(size/4)
	}
	buf[1] = codeSuccess
	return nil
}

func newTestClient(f *firmware) *Client {
	return &Client{transfer: f.transfer}
}

func TestModeWireLayout(t *testing.T) {
	fw := &firmware{width: 1680, height: 1050, depth: 16}
	c := newTestClient(fw)

	m, err := c.Mode()
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, m, Mode{Width: 1680, Height: 1050, Depth: 16})

	// the request must match the firmware's documented layout word for word
	expected := []uint32{
		48, 0,
		0x00040003, 8, 0, 0, 0,
		0x00040005, 4, 0, 0,
		0,
	}
	test.ExpectEquality(t, len(fw.requests), 1)
	test.ExpectEquality(t, len(fw.requests[0]), len(expected))
	for i := range expected {
		test.ExpectEquality(t, fw.requests[0][i], expected[i])
	}
}

func TestResolution(t *testing.T) {
	fw := &firmware{width: 800, height: 600, depth: 32}
	c := newTestClient(fw)

	w, h, err := c.Resolution()
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, w, 800)
	test.ExpectEquality(t, h, 600)
	test.ExpectEquality(t, fw.requests[0][0], uint32(32))
	test.ExpectEquality(t, fw.requests[0][2], uint32(0x00040003))
}

func TestSetVirtualOffset(t *testing.T) {
	fw := &firmware{}
	c := newTestClient(fw)

	test.ExpectSuccess(t, c.SetVirtualOffset(0, 1050))
	test.ExpectEquality(t, fw.yoffset, uint32(1050))

	expected := []uint32{32, 0, 0x00048009, 8, 0, 0, 1050, 0}
	for i := range expected {
		test.ExpectEquality(t, fw.requests[0][i], expected[i])
	}

	test.ExpectSuccess(t, c.SetVirtualOffset(0, 0))
	test.ExpectEquality(t, fw.yoffset, uint32(0))
}

func TestProtocolFailure(t *testing.T) {
	fw := &firmware{fail: errors.New("ioctl failed")}
	c := newTestClient(fw)
	_, err := c.Mode()
	test.ExpectError(t, err, fault.ProtocolFailure)

	fw = &firmware{reject: true}
	c = newTestClient(fw)
	err = c.SetVirtualOffset(0, 0)
	test.ExpectError(t, err, fault.ProtocolFailure)

	c = &Client{}
	_, _, err = c.Resolution()
	test.ExpectError(t, err, fault.ProtocolFailure)
}

func TestOpenMissingDevice(t *testing.T) {
	_, err := Open("/nonexistent/vcio")
	test.ExpectError(t, err, fault.ProtocolFailure)
}

func TestAlignedBuffer(t *testing.T) {
	for i := 0; i < 16; i++ {
		buf := alignedBuffer()
		test.ExpectEquality(t, uintptr(unsafe.Pointer(buf))%bufferAlign, uintptr(0))
	}
}
