// Package battery maps the single-cell Li-ion voltage to a charge percentage.
package battery

import (
	"fmt"
	"math"
	"time"
)

// DefaultDivider is the ratio of the on-board voltage divider.
const DefaultDivider = 2.0

// The discharge fit is only monotonic between its turning points. Outside
// them the cubic bends back, so readings are pinned to empty or full.
const (
	emptyMillivolts = 3227
	fullMillivolts  = 4389
)

// PercentageFromMillivolts converts a cell voltage to 0..100 percent using a
// cubic fit of the discharge curve.
func PercentageFromMillivolts(mv int) int {
	if mv <= emptyMillivolts {
		return 0
	}
	if mv >= fullMillivolts {
		return 100
	}

	v := float64(mv) / 1000.0
	y := -144.9390*v*v*v +
		1655.8629*v*v -
		6158.8520*v +
		7501.3202
	y = math.Max(y, 0)
	y = math.Min(y, 100)
	return int(math.Round(y))
}

// ADC is the primitive the monitor reads from.
type ADC interface {
	ConfigureAnalog(pin int) error
	AnalogReadMillivolts(pin int) int
}

// Monitor reads the battery through a voltage divider on one ADC pin.
type Monitor struct {
	adc     ADC
	pin     int
	divider float64
}

// Reading is one timestamped battery sample.
type Reading struct {
	Timestamp  time.Time
	Millivolts int
	Percent    int
}

// NewMonitor creates a monitor on pin with the given divider ratio.
// A non-positive divider falls back to DefaultDivider.
func NewMonitor(adc ADC, pin int, divider float64) *Monitor {
	if divider <= 0 {
		divider = DefaultDivider
	}
	return &Monitor{adc: adc, pin: pin, divider: divider}
}

// Begin configures the battery pin for analog input.
func (m *Monitor) Begin() error {
	if err := m.adc.ConfigureAnalog(m.pin); err != nil {
		return fmt.Errorf("configure battery pin: %w", err)
	}
	return nil
}

// ReadMillivolts returns the cell voltage, scaled back up by the divider.
func (m *Monitor) ReadMillivolts() int {
	return int(float64(m.adc.AnalogReadMillivolts(m.pin)) * m.divider)
}

// ReadVolts returns ReadMillivolts in volts.
func (m *Monitor) ReadVolts() float64 {
	return float64(m.ReadMillivolts()) / 1000.0
}

// ReadPercentage returns the charge estimate for the current voltage.
func (m *Monitor) ReadPercentage() int {
	return PercentageFromMillivolts(m.ReadMillivolts())
}

// Read takes one sample for publishing.
func (m *Monitor) Read(now time.Time) Reading {
	mv := m.ReadMillivolts()
	return Reading{
		Timestamp:  now,
		Millivolts: mv,
		Percent:    PercentageFromMillivolts(mv),
	}
}
