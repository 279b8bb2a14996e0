//go:build linux && (arm || arm64)

package epd

import (
	"fmt"
	"image"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"picalendar/internal/log"
)

// Raspberry Pi wiring of the Waveshare HAT. CS is on spidev0.0.
const (
	pinRST  = "GPIO17"
	pinDC   = "GPIO25"
	pinBUSY = "GPIO24"
)

const (
	spiChunk    = 4096
	busyTimeout = 40 * time.Second
)

// Panel is the 7.5" V2 tri-color module on SPI0. The panel is re-initialized
// on every Commit because Sleep drops it into deep sleep between refreshes.
type Panel struct {
	port spi.PortCloser
	conn spi.Conn
	rst  gpio.PinIO
	dc   gpio.PinIO
	busy gpio.PinIO
}

// Open probes the SPI bus and control pins.
func Open() (*Panel, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("epd: host init: %w", err)
	}
	port, err := spireg.Open("")
	if err != nil {
		return nil, fmt.Errorf("epd: open spi: %w", err)
	}
	conn, err := port.Connect(4*physic.MegaHertz, spi.Mode0, 8)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("epd: connect spi: %w", err)
	}
	p := &Panel{port: port, conn: conn}
	for _, pin := range []struct {
		name string
		dst  *gpio.PinIO
	}{
		{pinRST, &p.rst},
		{pinDC, &p.dc},
		{pinBUSY, &p.busy},
	} {
		g := gpioreg.ByName(pin.name)
		if g == nil {
			port.Close()
			return nil, fmt.Errorf("epd: pin %s not found", pin.name)
		}
		*pin.dst = g
	}
	if err := p.rst.Out(gpio.High); err != nil {
		port.Close()
		return nil, fmt.Errorf("epd: configure rst: %w", err)
	}
	if err := p.dc.Out(gpio.High); err != nil {
		port.Close()
		return nil, fmt.Errorf("epd: configure dc: %w", err)
	}
	if err := p.busy.In(gpio.PullNoChange, gpio.NoEdge); err != nil {
		port.Close()
		return nil, fmt.Errorf("epd: configure busy: %w", err)
	}
	return p, nil
}

func (p *Panel) Width() int  { return PanelWidth }
func (p *Panel) Height() int { return PanelHeight }

func (p *Panel) Close() error { return p.port.Close() }

// Commit wakes the panel, streams both planes and triggers a full refresh.
// A full refresh takes roughly 16 seconds on this module.
func (p *Panel) Commit(black, red *image.Gray) error {
	if err := checkLayers(black, red); err != nil {
		return err
	}
	blackPlane, err := PackPlane(black)
	if err != nil {
		return err
	}
	redPlane, err := PackPlane(red)
	if err != nil {
		return err
	}
	// The red plane is active-high on the wire.
	for i := range redPlane {
		redPlane[i] = ^redPlane[i]
	}

	if err := p.init(); err != nil {
		return err
	}
	if err := p.command(0x10, blackPlane...); err != nil {
		return err
	}
	if err := p.command(0x13, redPlane...); err != nil {
		return err
	}
	if err := p.command(0x12); err != nil {
		return err
	}
	time.Sleep(100 * time.Millisecond)
	return p.waitIdle()
}

// Sleep powers the panel down into deep sleep. Required between refreshes:
// leaving the panel driven damages the film.
func (p *Panel) Sleep() error {
	if err := p.command(0x02); err != nil {
		return err
	}
	if err := p.waitIdle(); err != nil {
		return err
	}
	return p.command(0x07, 0xA5)
}

func (p *Panel) reset() {
	p.rst.Out(gpio.High)
	time.Sleep(20 * time.Millisecond)
	p.rst.Out(gpio.Low)
	time.Sleep(2 * time.Millisecond)
	p.rst.Out(gpio.High)
	time.Sleep(20 * time.Millisecond)
}

// init runs the vendor power-on sequence for the V2 controller.
func (p *Panel) init() error {
	p.reset()
	steps := []struct {
		cmd  byte
		data []byte
	}{
		{0x01, []byte{0x07, 0x07, 0x3F, 0x3F}}, // power setting
		{0x04, nil},                            // power on
		{0x00, []byte{0x0F}},                   // panel setting, KW/R mode
		{0x61, []byte{0x03, 0x20, 0x01, 0xE0}}, // resolution 800x480
		{0x15, []byte{0x00}},
		{0x50, []byte{0x11, 0x07}}, // VCOM and data interval
		{0x60, []byte{0x22}},       // TCON
	}
	for _, s := range steps {
		if err := p.command(s.cmd, s.data...); err != nil {
			return err
		}
		if s.cmd == 0x04 {
			time.Sleep(100 * time.Millisecond)
			if err := p.waitIdle(); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *Panel) command(cmd byte, data ...byte) error {
	if err := p.dc.Out(gpio.Low); err != nil {
		return err
	}
	if err := p.conn.Tx([]byte{cmd}, nil); err != nil {
		return fmt.Errorf("epd: command 0x%02x: %w", cmd, err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := p.dc.Out(gpio.High); err != nil {
		return err
	}
	for off := 0; off < len(data); off += spiChunk {
		end := off + spiChunk
		if end > len(data) {
			end = len(data)
		}
		if err := p.conn.Tx(data[off:end], nil); err != nil {
			return fmt.Errorf("epd: data for 0x%02x: %w", cmd, err)
		}
	}
	return nil
}

// waitIdle polls the busy pin, which is held low while the controller works.
func (p *Panel) waitIdle() error {
	deadline := time.Now().Add(busyTimeout)
	for p.busy.Read() == gpio.Low {
		if time.Now().After(deadline) {
			return fmt.Errorf("epd: busy timeout after %s", busyTimeout)
		}
		if err := p.command(0x71); err != nil {
			return err
		}
		time.Sleep(20 * time.Millisecond)
	}
	log.Debug("epd idle")
	return nil
}
