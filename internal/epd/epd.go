// Package epd drives the 7.5" black/red panel over SPI and provides a
// file-backed preview display for hosts without the hardware.
package epd

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
)

// Panel dimensions of the Waveshare 7.5" V2 tri-color module.
const (
	PanelWidth  = 800
	PanelHeight = 480
)

// FileDisplay composites the two layers into a PNG on disk. It stands in
// for the panel during development and powers the preview endpoint.
type FileDisplay struct {
	Path string
}

func NewFileDisplay(path string) *FileDisplay {
	return &FileDisplay{Path: path}
}

func (d *FileDisplay) Width() int  { return PanelWidth }
func (d *FileDisplay) Height() int { return PanelHeight }

// Commit renders black over red over white and writes the PNG atomically.
func (d *FileDisplay) Commit(black, red *image.Gray) error {
	if err := checkLayers(black, red); err != nil {
		return err
	}
	out := image.NewRGBA(image.Rect(0, 0, PanelWidth, PanelHeight))
	for y := 0; y < PanelHeight; y++ {
		for x := 0; x < PanelWidth; x++ {
			c := color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}
			if red.GrayAt(x, y).Y < 0x80 {
				c = color.RGBA{R: 0xC8, A: 0xFF}
			}
			if black.GrayAt(x, y).Y < 0x80 {
				c = color.RGBA{A: 0xFF}
			}
			out.SetRGBA(x, y, c)
		}
	}

	if dir := filepath.Dir(d.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create preview dir: %w", err)
		}
	}
	tmp := d.Path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create preview: %w", err)
	}
	if err := png.Encode(f, out); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("encode preview: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, d.Path)
}

func (d *FileDisplay) Sleep() error { return nil }

func checkLayers(black, red *image.Gray) error {
	want := image.Rect(0, 0, PanelWidth, PanelHeight)
	if black.Bounds() != want || red.Bounds() != want {
		return fmt.Errorf("layer bounds %v / %v, want %v", black.Bounds(), red.Bounds(), want)
	}
	return nil
}
