package clip

import (
	"encoding/binary"
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/rpg-lab/rpg/fault"
	"github.com/rpg-lab/rpg/rgb565"
)

// DefaultChunkPages is the default size, in pages, of the window used to
// read a clip file.
const DefaultChunkPages = 20000

// Loader reads animation files into memory. The zero value is ready to use.
type Loader struct {
	// the largest number of bytes mapped at any one time while reading the
	// body of a file. it is rounded up to a whole number of pages. zero
	// means DefaultChunkPages pages
	ChunkSize int
}

// Load reads an animation file encoded for the given resolution, using the
// default Loader.
func Load(path string, width, height int) (*Clip, error) {
	return Loader{}.Load(path, width, height)
}

// ReadHeader reads only the header of an animation file.
func ReadHeader(path string) (Header, error) {
	const op = "clip: read header"

	f, size, err := open(path, op)
	if err != nil {
		return Header{}, err
	}
	defer f.Close()

	if size < HeaderSize {
		return Header{}, fault.Errorf(fault.FileError, op, "%s is too short to be an animation file", path)
	}
	return readHeader(f, op)
}

// Load reads the animation file at path. The file is first mapped just far
// enough to read the header, which gives the length of the body. The body is
// then copied through a sequence of mapped windows of at most ChunkSize
// bytes into a single buffer owned by the returned Clip.
//
// The file must be exactly the size implied by the header and the
// resolution. A file encoded for a different resolution fails with
// fault.IncompatibleClip.
func (l Loader) Load(path string, width, height int) (*Clip, error) {
	const op = "clip: load"

	if width <= 0 || height <= 0 {
		return nil, fault.Errorf(fault.InvalidParameter, op, "invalid resolution %dx%d", width, height)
	}

	f, size, err := open(path, op)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if size < HeaderSize {
		return nil, fault.Errorf(fault.FileError, op, "%s is too short to be an animation file", path)
	}

	hdr, err := readHeader(f, op)
	if err != nil {
		return nil, err
	}
	if hdr.FramesPerCycle == 0 {
		return nil, fault.Errorf(fault.FileError, op, "%s contains no frames", path)
	}

	total := int64(HeaderSize) + int64(hdr.FramesPerCycle)*int64(width)*int64(height)*2
	if size != total {
		return nil, fault.Errorf(fault.IncompatibleClip, op,
			"%s is %d bytes but %d frames of %dx%d need %d bytes", path, size, hdr.FramesPerCycle, width, height, total)
	}

	data := make([]rgb565.Pixel, total/2)
	dst := rgb565.Bytes(data)

	chunk := l.chunkSize()
	fd := int(f.Fd())
	for off := 0; off < len(dst); off += chunk {
		n := min(chunk, len(dst)-off)
		win, err := unix.Mmap(fd, int64(off), n, unix.PROT_READ, unix.MAP_PRIVATE)
		if err != nil {
			return nil, fault.New(fault.FileError, op, fmt.Errorf("mmap at offset %d: %w", off, err))
		}
		copy(dst[off:], win)
		if err := unix.Munmap(win); err != nil {
			return nil, fault.New(fault.FileError, op, err)
		}
	}

	return &Clip{
		Header: hdr,
		width:  width,
		height: height,
		data:   data,
	}, nil
}

func (l Loader) chunkSize() int {
	page := unix.Getpagesize()
	if l.ChunkSize <= 0 {
		return DefaultChunkPages * page
	}
	return (l.ChunkSize + page - 1) / page * page
}

func open(path string, op string) (*os.File, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fault.New(fault.FileError, op, err)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, fault.New(fault.FileError, op, err)
	}
	return f, fi.Size(), nil
}

// readHeader maps the smallest possible window of the file to read the
// header
func readHeader(f *os.File, op string) (Header, error) {
	win, err := unix.Mmap(int(f.Fd()), 0, HeaderSize, unix.PROT_READ, unix.MAP_PRIVATE)
	if err != nil {
		return Header{}, fault.New(fault.FileError, op, fmt.Errorf("mmap header: %w", err))
	}
	defer unix.Munmap(win)

	return Header{
		FramesPerCycle:    binary.NativeEndian.Uint16(win[0:]),
		SpatialFrequency:  binary.NativeEndian.Uint16(win[2:]),
		TemporalFrequency: binary.NativeEndian.Uint16(win[4:]),
	}, nil
}
