// Package board provides the host primitives the button and battery layers
// sample: two multiplexed button ADC channels, a battery ADC channel and the
// active-low power button pin.
// The real implementation uses Linux IIO and GPIO character devices.
// The fake implementation allows testing without hardware.
package board

// Board is the full set of primitives the daemon owns. It satisfies the
// decoder's input.Inputs and the battery monitor's battery.ADC.
type Board interface {
	// AnalogRead returns the latched 12-bit conversion (0..ADCMax) of pin.
	AnalogRead(pin int) int

	// AnalogReadMillivolts returns a fresh calibrated reading of pin.
	AnalogReadMillivolts(pin int) int

	// DigitalRead returns the latched level of pin (true = high).
	DigitalRead(pin int) bool

	ConfigureAnalog(pin int) error
	ConfigurePullUp(pin int) error

	// Poll latches a fresh conversion of every configured button channel and
	// the power pin. AnalogRead and DigitalRead return latched values until
	// the next Poll. On error the latched values read as idle.
	Poll() error

	// Close releases hardware resources.
	Close() error
}

// ADCMax is full scale for the 12-bit converter. An idle button ladder
// reads at or near full scale.
const ADCMax = 4095

// Pin assignments on the reference board.
const (
	DefaultBatteryPin     = 0
	DefaultButtonADCPin1  = 1
	DefaultButtonADCPin2  = 2
	DefaultPowerButtonPin = 3
)

// Options selects the hardware backing a RealBoard.
type Options struct {
	// Chip is the GPIO character device name, e.g. "gpiochip0".
	Chip string

	// Backend selects the power-button driver: "cdev" (default) or "periph".
	Backend string

	// IIODevice is the sysfs directory of the ADC,
	// e.g. "/sys/bus/iio/devices/iio:device0".
	IIODevice string
}

// DefaultIIODevice is the first IIO device, normally the SoC or HAT ADC.
const DefaultIIODevice = "/sys/bus/iio/devices/iio:device0"

// Backends accepted in Options.Backend.
const (
	BackendCdev   = "cdev"
	BackendPeriph = "periph"
)
