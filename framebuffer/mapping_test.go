package framebuffer_test

import (
	"testing"
	"unsafe"

	"github.com/rpg-lab/rpg/framebuffer"
	"github.com/rpg-lab/rpg/internal/test"
	"github.com/rpg-lab/rpg/rgb565"
)

func TestMappingViews(t *testing.T) {
	const w, h = 8, 4
	m, err := framebuffer.MapAnonymous(2 * w * h * 2)
	test.ExpectSuccess(t, err)
	defer m.Unmap()

	test.ExpectEquality(t, m.Len(), 2*w*h*2)

	front, err := m.Image(0, w, h)
	test.ExpectSuccess(t, err)
	back, err := m.Image(w*h, w, h)
	test.ExpectSuccess(t, err)

	back.Fill(rgb565.White)
	test.ExpectEquality(t, front.PixelAt(w-1, h-1), rgb565.Black)
	test.ExpectEquality(t, back.PixelAt(0, 0), rgb565.White)

	// views cannot be grown past their extent
	test.ExpectEquality(t, cap(front.Pix), w*h)
}

func TestMappingBounds(t *testing.T) {
	m, err := framebuffer.MapAnonymous(64)
	test.ExpectSuccess(t, err)

	_, err = m.Image(0, 4, 8)
	test.ExpectSuccess(t, err)
	_, err = m.Image(1, 4, 8)
	test.ExpectFailure(t, err)
	_, err = m.Image(-1, 1, 1)
	test.ExpectFailure(t, err)
	_, err = m.Image(0, 0, 1)
	test.ExpectFailure(t, err)

	test.ExpectSuccess(t, m.Unmap())
	test.ExpectEquality(t, m.Len(), 0)
	_, err = m.Image(0, 1, 1)
	test.ExpectFailure(t, err)

	// second unmap is harmless
	test.ExpectSuccess(t, m.Unmap())
}

func TestScreenInfoLayout(t *testing.T) {
	// sizes from <linux/fb.h>
	test.ExpectEquality(t, unsafe.Sizeof(framebuffer.FbVarScreenInfo{}), uintptr(160))
	test.ExpectEquality(t, unsafe.Sizeof(framebuffer.FbBitField{}), uintptr(12))
}

func TestIsRGB565(t *testing.T) {
	vi := framebuffer.FbVarScreenInfo{
		BitsPerPixel: 16,
		Red:          framebuffer.FbBitField{Offset: 11, Length: 5},
		Green:        framebuffer.FbBitField{Offset: 5, Length: 6},
		Blue:         framebuffer.FbBitField{Offset: 0, Length: 5},
	}
	test.ExpectSuccess(t, vi.IsRGB565())

	vi.BitsPerPixel = 32
	test.ExpectFailure(t, vi.IsRGB565())
}
