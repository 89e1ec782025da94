// Package framebuffer provides access to a Linux frame buffer device and the
// virtual console it is displayed on.
//
// The device is opened with OpenFrameBuffer. Its screen information can be
// read and, for a change of resolution, written back with PutVarScreenInfo.
// Pixel memory is obtained with Map, which returns a Mapping. Views of the
// mapping are rgb565.Image values whose extent has been checked against the
// mapping, so a view can never reach outside the device memory.
//
//	fb, err := framebuffer.OpenFrameBuffer("/dev/fb0", os.O_RDWR)
//	...
//	m, err := fb.Map(2 * width * height * 2)
//	...
//	back, err := m.Image(width*height, width, height)
//	back.Fill(rgb565.MidGray)
//
// Only the 16-bit RGB565 pixel layout is supported.
package framebuffer
