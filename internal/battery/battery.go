// Package battery reads the PiSugar UPS over I2C so the health endpoint
// can report charge state on battery-powered installs.
package battery

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// PiSugar register map (models 2/3).
const (
	addrPiSugar = 0x57

	regVoltageHigh = 0x22
	regVoltageLow  = 0x23
	regPercent     = 0x2A
)

// Status is one battery reading. Available is false when no UPS hardware
// responded; the other fields are then zero.
type Status struct {
	Available bool    `json:"available"`
	Percent   int     `json:"percent,omitempty"`
	VoltageMV int     `json:"voltage_mv,omitempty"`
	VoltageV  float64 `json:"voltage_v,omitempty"`
}

// Reader yields battery readings.
type Reader interface {
	Read() (Status, error)
}

// PiSugar reads over the first available I2C bus. The bus is opened lazily
// on first read and kept open.
type PiSugar struct {
	mu  sync.Mutex
	bus i2c.BusCloser
	dev *i2c.Dev
}

func NewPiSugar() *PiSugar { return &PiSugar{} }

func (p *PiSugar) open() error {
	if p.dev != nil {
		return nil
	}
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("battery: host init: %w", err)
	}
	bus, err := i2creg.Open("")
	if err != nil {
		return fmt.Errorf("battery: open i2c: %w", err)
	}
	p.bus = bus
	p.dev = &i2c.Dev{Bus: bus, Addr: addrPiSugar}
	return nil
}

func (p *PiSugar) readReg(reg byte) (byte, error) {
	var out [1]byte
	if err := p.dev.Tx([]byte{reg}, out[:]); err != nil {
		return 0, fmt.Errorf("battery: read reg 0x%02x: %w", reg, err)
	}
	return out[0], nil
}

// Read returns the current charge percent and pack voltage.
func (p *PiSugar) Read() (Status, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.open(); err != nil {
		return Status{}, err
	}
	hi, err := p.readReg(regVoltageHigh)
	if err != nil {
		return Status{}, err
	}
	lo, err := p.readReg(regVoltageLow)
	if err != nil {
		return Status{}, err
	}
	pct, err := p.readReg(regPercent)
	if err != nil {
		return Status{}, err
	}

	mv := int(hi)<<8 | int(lo)
	s := Status{
		Available: true,
		Percent:   int(pct),
		VoltageMV: mv,
		VoltageV:  float64(mv) / 1000,
	}
	if s.Percent > 100 {
		s.Percent = 100
	}
	return s, nil
}

func (p *PiSugar) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bus == nil {
		return nil
	}
	err := p.bus.Close()
	p.bus, p.dev = nil, nil
	return err
}

// None is the reader for installs without a UPS.
type None struct{}

func (None) Read() (Status, error) { return Status{}, nil }
