package epd

import (
	"fmt"
	"image"
)

// PackPlane converts a grayscale layer into the panel's 1bpp wire format:
// y-major rows, MSB-first within each byte, bit 1 for paper and 0 for ink.
// The layer width must be a multiple of 8.
func PackPlane(layer *image.Gray) ([]byte, error) {
	b := layer.Bounds()
	w, h := b.Dx(), b.Dy()
	if w%8 != 0 {
		return nil, fmt.Errorf("pack: width %d not a multiple of 8", w)
	}
	stride := w / 8
	buf := make([]byte, stride*h)
	for i := range buf {
		buf[i] = 0xFF
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if layer.GrayAt(b.Min.X+x, b.Min.Y+y).Y < 0x80 {
				buf[y*stride+x/8] &^= 0x80 >> uint(x%8)
			}
		}
	}
	return buf, nil
}
