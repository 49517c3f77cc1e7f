package board

import "errors"

var _ Board = (*FakeBoard)(nil)

// FakeBoard is a test double that returns scripted readings.
type FakeBoard struct {
	// Samples contains scripted readings.
	// Each call to Poll() latches the next sample.
	Samples []Sample

	// index tracks current position in Samples
	index int

	// current is the latched sample
	current Sample

	// Pin numbers the fake answers on. Other pins read as idle.
	ButtonPin1 int
	ButtonPin2 int
	PowerPin   int
	BatteryPin int

	// Analog and PullUps record configured pins in call order.
	Analog  []int
	PullUps []int

	// Closed tracks if Close was called
	Closed bool

	// PollError, if set, will be returned by Poll()
	PollError error
}

// Sample is one latched set of readings.
type Sample struct {
	ADC1      int  // button ladder 1, raw counts
	ADC2      int  // button ladder 2, raw counts
	PowerLow  bool // true = power pin pulled low (pressed)
	BatteryMV int  // battery pin, millivolts before the divider
}

// IdleSample is a reading with no button held and a 3.7V cell behind a 2:1
// divider.
func IdleSample() Sample {
	return Sample{ADC1: ADCMax, ADC2: ADCMax, BatteryMV: 1850}
}

// NewFakeBoard creates a FakeBoard on the default pins with the given
// samples. It starts latched on IdleSample.
func NewFakeBoard(samples []Sample) *FakeBoard {
	return &FakeBoard{
		Samples:    samples,
		current:    IdleSample(),
		ButtonPin1: DefaultButtonADCPin1,
		ButtonPin2: DefaultButtonADCPin2,
		PowerPin:   DefaultPowerButtonPin,
		BatteryPin: DefaultBatteryPin,
	}
}

// Poll latches the next scripted sample.
// If samples are exhausted, the last sample is latched repeatedly.
func (f *FakeBoard) Poll() error {
	if f.PollError != nil {
		f.current = IdleSample()
		return f.PollError
	}

	if len(f.Samples) == 0 {
		return errors.New("no samples configured")
	}

	f.current = f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}
	return nil
}

// Set latches s directly, bypassing the script.
func (f *FakeBoard) Set(s Sample) {
	f.current = s
}

// Current returns the latched sample.
func (f *FakeBoard) Current() Sample {
	return f.current
}

// AnalogRead returns the latched ladder reading for pin.
func (f *FakeBoard) AnalogRead(pin int) int {
	switch pin {
	case f.ButtonPin1:
		return f.current.ADC1
	case f.ButtonPin2:
		return f.current.ADC2
	}
	return ADCMax
}

// AnalogReadMillivolts returns the latched battery reading for pin.
func (f *FakeBoard) AnalogReadMillivolts(pin int) int {
	if pin == f.BatteryPin {
		return f.current.BatteryMV
	}
	return 0
}

// DigitalRead returns the latched power pin level.
func (f *FakeBoard) DigitalRead(pin int) bool {
	if pin == f.PowerPin {
		return !f.current.PowerLow
	}
	return true
}

// ConfigureAnalog records pin.
func (f *FakeBoard) ConfigureAnalog(pin int) error {
	f.Analog = append(f.Analog, pin)
	return nil
}

// ConfigurePullUp records pin.
func (f *FakeBoard) ConfigurePullUp(pin int) error {
	f.PullUps = append(f.PullUps, pin)
	return nil
}

// Close marks the board as closed.
func (f *FakeBoard) Close() error {
	f.Closed = true
	return nil
}

// Reset rewinds the script and relatches IdleSample.
func (f *FakeBoard) Reset() {
	f.index = 0
	f.current = IdleSample()
	f.Closed = false
}
