//go:build linux

package board

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/warthog618/go-gpiocdev"
	"periph.io/x/conn/v3/analog"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

// levelPin is a digital input configured with pull-up.
type levelPin interface {
	High() (bool, error)
	Close() error
}

var _ Board = (*RealBoard)(nil)

// RealBoard reads buttons and battery from actual hardware.
type RealBoard struct {
	opts Options
	log  logrus.FieldLogger
	chip *gpiocdev.Chip

	adc     map[int]analog.PinADC
	digital map[int]levelPin

	latchedADC   map[int]int
	latchedLevel map[int]bool
}

// NewRealBoard opens the GPIO backend selected by opts. Pins are claimed
// later by ConfigureAnalog and ConfigurePullUp.
func NewRealBoard(opts Options, log logrus.FieldLogger) (*RealBoard, error) {
	if opts.Chip == "" {
		opts.Chip = "gpiochip0"
	}
	if opts.IIODevice == "" {
		opts.IIODevice = DefaultIIODevice
	}
	if opts.Backend == "" {
		opts.Backend = BackendCdev
	}

	b := &RealBoard{
		opts:         opts,
		log:          log,
		adc:          make(map[int]analog.PinADC),
		digital:      make(map[int]levelPin),
		latchedADC:   make(map[int]int),
		latchedLevel: make(map[int]bool),
	}

	switch opts.Backend {
	case BackendCdev:
		chip, err := gpiocdev.NewChip(opts.Chip)
		if err != nil {
			return nil, fmt.Errorf("open gpio chip: %w", err)
		}
		b.chip = chip
	case BackendPeriph:
		if _, err := host.Init(); err != nil {
			return nil, fmt.Errorf("init periph host: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown gpio backend %q", opts.Backend)
	}
	return b, nil
}

// ConfigureAnalog binds pin to IIO channel in_voltage<pin>.
func (b *RealBoard) ConfigureAnalog(pin int) error {
	if _, ok := b.adc[pin]; ok {
		return nil
	}
	p, err := openIIOPin(b.opts.IIODevice, pin)
	if err != nil {
		return err
	}
	b.adc[pin] = p
	b.latchedADC[pin] = ADCMax
	b.log.Debugf("analog pin %d bound to %s (%s)", pin, p.Name(), b.opts.IIODevice)
	return nil
}

// ConfigurePullUp requests pin as an input with pull-up.
func (b *RealBoard) ConfigurePullUp(pin int) error {
	if _, ok := b.digital[pin]; ok {
		return nil
	}

	var p levelPin
	switch b.opts.Backend {
	case BackendPeriph:
		pp := gpioreg.ByName(fmt.Sprintf("GPIO%d", pin))
		if pp == nil {
			return fmt.Errorf("gpio pin %d not found", pin)
		}
		if err := pp.In(gpio.PullUp, gpio.NoEdge); err != nil {
			return fmt.Errorf("configure pin %d: %w", pin, err)
		}
		p = periphPin{pp}
	default:
		line, err := b.chip.RequestLine(pin, gpiocdev.AsInput, gpiocdev.WithPullUp)
		if err != nil {
			return fmt.Errorf("request pin %d: %w", pin, err)
		}
		p = cdevPin{line}
	}

	b.digital[pin] = p
	b.latchedLevel[pin] = true
	return nil
}

// Poll latches every configured pin. Channels that fail to read latch as
// idle (full scale / high) and are reported in the returned error.
func (b *RealBoard) Poll() error {
	var errs []error
	for pin, p := range b.adc {
		s, err := p.Read()
		if err != nil {
			b.latchedADC[pin] = ADCMax
			errs = append(errs, fmt.Errorf("analog pin %d: %w", pin, err))
			continue
		}
		b.latchedADC[pin] = clampRaw(int(s.Raw))
	}
	for pin, p := range b.digital {
		high, err := p.High()
		if err != nil {
			b.latchedLevel[pin] = true
			errs = append(errs, fmt.Errorf("digital pin %d: %w", pin, err))
			continue
		}
		b.latchedLevel[pin] = high
	}
	return errors.Join(errs...)
}

// AnalogRead returns the latched raw count, or full scale for unknown pins.
func (b *RealBoard) AnalogRead(pin int) int {
	if v, ok := b.latchedADC[pin]; ok {
		return v
	}
	return ADCMax
}

// DigitalRead returns the latched level, or high for unknown pins.
func (b *RealBoard) DigitalRead(pin int) bool {
	if v, ok := b.latchedLevel[pin]; ok {
		return v
	}
	return true
}

// AnalogReadMillivolts performs a fresh conversion of pin. Failures are
// logged and read as 0 mV.
func (b *RealBoard) AnalogReadMillivolts(pin int) int {
	p, ok := b.adc[pin]
	if !ok {
		b.log.Warnf("analog pin %d read before configuration", pin)
		return 0
	}
	s, err := p.Read()
	if err != nil {
		b.log.Warnf("battery read failed: %v", err)
		return 0
	}
	return int(s.V / physic.MilliVolt)
}

// Close releases all claimed pins and the GPIO chip.
func (b *RealBoard) Close() error {
	var errs []error
	for pin, p := range b.digital {
		if err := p.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close pin %d: %w", pin, err))
		}
	}
	for pin, p := range b.adc {
		if err := p.Halt(); err != nil {
			errs = append(errs, fmt.Errorf("halt analog pin %d: %w", pin, err))
		}
	}
	if b.chip != nil {
		if err := b.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}
	return errors.Join(errs...)
}

func clampRaw(v int) int {
	if v < 0 {
		return 0
	}
	if v > ADCMax {
		return ADCMax
	}
	return v
}

type cdevPin struct {
	line *gpiocdev.Line
}

func (p cdevPin) High() (bool, error) {
	v, err := p.line.Value()
	if err != nil {
		return true, err
	}
	return v != 0, nil
}

func (p cdevPin) Close() error {
	return p.line.Close()
}

type periphPin struct {
	pin gpio.PinIO
}

func (p periphPin) High() (bool, error) {
	return p.pin.Read() == gpio.High, nil
}

func (p periphPin) Close() error {
	return p.pin.Halt()
}
