package framebuffer

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/rpg-lab/rpg/rgb565"
)

// Mapping is a region of memory mapped from a frame buffer device. Access to
// the pixels is through views created with Image(), each of which is checked
// against the extent of the mapping when it is created.
type Mapping struct {
	mem    []byte
	pixels []rgb565.Pixel
}

func mapShared(fd int, length int) (*Mapping, error) {
	if length <= 0 {
		return nil, fmt.Errorf("invalid mapping length (%d)", length)
	}
	mem, err := unix.Mmap(fd, 0, length, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap: %w", err)
	}
	return &Mapping{mem: mem, pixels: rgb565.Pixels(mem)}, nil
}

// MapAnonymous creates a mapping that is not backed by a device. It behaves
// exactly like a device mapping and is useful for off-screen rendering.
func MapAnonymous(length int) (*Mapping, error) {
	if length <= 0 {
		return nil, fmt.Errorf("invalid mapping length (%d)", length)
	}
	mem, err := unix.Mmap(-1, 0, length, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("mmap: %w", err)
	}
	return &Mapping{mem: mem, pixels: rgb565.Pixels(mem)}, nil
}

// Len returns the size of the mapping in bytes. The size is zero after
// Unmap().
func (m *Mapping) Len() int {
	return len(m.mem)
}

// Image returns a width by height view of the mapping starting at the given
// pixel offset. The view shares memory with the mapping and must not be used
// after Unmap().
func (m *Mapping) Image(offset, width, height int) (*rgb565.Image, error) {
	if m.mem == nil {
		return nil, errors.New("mapping has been unmapped")
	}
	if offset < 0 || width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid view (offset=%d, %dx%d)", offset, width, height)
	}
	end := offset + width*height
	if end > len(m.pixels) {
		return nil, fmt.Errorf("view (offset=%d, %dx%d) exceeds mapping of %d pixels", offset, width, height, len(m.pixels))
	}
	return &rgb565.Image{
		Pix:    m.pixels[offset:end:end],
		Width:  width,
		Height: height,
	}, nil
}

// Unmap releases the mapping. It is safe to call more than once.
func (m *Mapping) Unmap() error {
	if m.mem == nil {
		return nil
	}
	mem := m.mem
	m.mem = nil
	m.pixels = nil
	return unix.Munmap(mem)
}
