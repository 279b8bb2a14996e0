//go:build !(linux && (arm || arm64))

package epd

import (
	"errors"
	"image"
)

// ErrNoPanel is returned on platforms without the SPI hardware.
var ErrNoPanel = errors.New("epd: no panel hardware on this platform")

// Panel is a placeholder on non-Pi builds; Open always fails and callers
// fall back to the file-backed preview display.
type Panel struct{}

func Open() (*Panel, error) { return nil, ErrNoPanel }

func (p *Panel) Width() int  { return PanelWidth }
func (p *Panel) Height() int { return PanelHeight }

func (p *Panel) Commit(black, red *image.Gray) error { return ErrNoPanel }

func (p *Panel) Sleep() error { return ErrNoPanel }

func (p *Panel) Close() error { return nil }
