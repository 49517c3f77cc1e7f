//go:build linux

package board

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"periph.io/x/conn/v3/analog"
	"periph.io/x/conn/v3/physic"
)

// iioPin exposes one Linux IIO voltage channel as a periph analog pin.
type iioPin struct {
	number  int
	rawPath string
	scale   float64 // millivolts per count
}

var _ analog.PinADC = (*iioPin)(nil)

// openIIOPin resolves channel n of the IIO device in dir. The scale is read
// once; a per-channel scale wins over the shared one.
func openIIOPin(dir string, n int) (*iioPin, error) {
	p := &iioPin{
		number:  n,
		rawPath: filepath.Join(dir, fmt.Sprintf("in_voltage%d_raw", n)),
		scale:   1,
	}
	if _, err := os.Stat(p.rawPath); err != nil {
		return nil, fmt.Errorf("iio channel %d: %w", n, err)
	}
	for _, name := range []string{fmt.Sprintf("in_voltage%d_scale", n), "in_voltage_scale"} {
		if v, err := readSysfsFloat(filepath.Join(dir, name)); err == nil {
			p.scale = v
			break
		}
	}
	return p, nil
}

func (p *iioPin) String() string   { return p.Name() }
func (p *iioPin) Halt() error      { return nil }
func (p *iioPin) Name() string     { return fmt.Sprintf("IIO%d", p.number) }
func (p *iioPin) Number() int      { return p.number }
func (p *iioPin) Function() string { return "ADC" }

func (p *iioPin) Range() (analog.Sample, analog.Sample) {
	return analog.Sample{}, analog.Sample{Raw: ADCMax, V: millivolts(float64(ADCMax) * p.scale)}
}

func (p *iioPin) Read() (analog.Sample, error) {
	raw, err := readSysfsFloat(p.rawPath)
	if err != nil {
		return analog.Sample{}, fmt.Errorf("read %s: %w", p.Name(), err)
	}
	return analog.Sample{Raw: int32(raw), V: millivolts(raw * p.scale)}, nil
}

func millivolts(mv float64) physic.ElectricPotential {
	return physic.ElectricPotential(mv * float64(physic.MilliVolt))
}

func readSysfsFloat(path string) (float64, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(strings.TrimSpace(string(b)), 64)
}
