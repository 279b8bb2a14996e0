package render

import (
	"image"
	"image/color"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// Ink selects which physical layer a primitive lands on.
type Ink int

const (
	InkBlack Ink = iota
	InkRed
)

// Canvas is a pair of grayscale layers matching the panel's black and red
// planes. White (0xFF) is paper, anything dark is ink.
type Canvas struct {
	Black *image.Gray
	Red   *image.Gray
}

// NewCanvas allocates both layers filled white.
func NewCanvas(w, h int) *Canvas {
	c := &Canvas{
		Black: image.NewGray(image.Rect(0, 0, w, h)),
		Red:   image.NewGray(image.Rect(0, 0, w, h)),
	}
	for i := range c.Black.Pix {
		c.Black.Pix[i] = 0xFF
	}
	for i := range c.Red.Pix {
		c.Red.Pix[i] = 0xFF
	}
	return c
}

func (c *Canvas) layer(ink Ink) *image.Gray {
	if ink == InkRed {
		return c.Red
	}
	return c.Black
}

func (c *Canvas) set(ink Ink, x, y int) {
	l := c.layer(ink)
	if (image.Point{X: x, Y: y}.In(l.Bounds())) {
		l.SetGray(x, y, color.Gray{Y: 0})
	}
}

// HLine draws a horizontal line from x0 to x1 at y, thickened downward.
func (c *Canvas) HLine(ink Ink, x0, x1, y, width int) {
	if x1 < x0 {
		x0, x1 = x1, x0
	}
	for dy := 0; dy < width; dy++ {
		for x := x0; x <= x1; x++ {
			c.set(ink, x, y+dy)
		}
	}
}

// VLine draws a vertical line from y0 to y1 at x, thickened rightward.
func (c *Canvas) VLine(ink Ink, x, y0, y1, width int) {
	if y1 < y0 {
		y0, y1 = y1, y0
	}
	for dx := 0; dx < width; dx++ {
		for y := y0; y <= y1; y++ {
			c.set(ink, x+dx, y)
		}
	}
}

// Rect draws a rectangle outline.
func (c *Canvas) Rect(ink Ink, x0, y0, x1, y1, width int) {
	c.HLine(ink, x0, x1, y0, width)
	c.HLine(ink, x0, x1, y1-width+1, width)
	c.VLine(ink, x0, y0, y1, width)
	c.VLine(ink, x1-width+1, y0, y1, width)
}

// Text draws s with its top-left corner at (x, y).
func (c *Canvas) Text(ink Ink, x, y int, face font.Face, s string) {
	if s == "" {
		return
	}
	ascent := face.Metrics().Ascent.Ceil()
	d := font.Drawer{
		Dst:  c.layer(ink),
		Src:  image.NewUniform(color.Gray{Y: 0}),
		Face: face,
		Dot:  fixed.P(x, y+ascent),
	}
	d.DrawString(s)
}
