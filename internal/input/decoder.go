package input

import (
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
)

// DebounceDelay is how long a raw reading must hold before it is committed.
const DebounceDelay = 5 * time.Millisecond

// channel2Offset is the bit position of the first channel-2 button.
const channel2Offset = 4

// Inputs are the host primitives the decoder samples.
type Inputs interface {
	AnalogRead(pin int) int
	DigitalRead(pin int) bool
	ConfigureAnalog(pin int) error
	ConfigurePullUp(pin int) error
}

// Config binds the decoder to pins and ladders.
type Config struct {
	Channel1Pin int
	Channel2Pin int
	PowerPin    int // active low
	Channel1    ThresholdTable
	Channel2    ThresholdTable
	Debounce    time.Duration
}

// DefaultConfig returns the reference board wiring.
func DefaultConfig() Config {
	return Config{
		Channel1Pin: 1,
		Channel2Pin: 2,
		PowerPin:    3,
		Channel1:    DefaultChannel1(),
		Channel2:    DefaultChannel2(),
		Debounce:    DebounceDelay,
	}
}

// Validate checks both ladders fit their bit ranges.
func (c Config) Validate() error {
	if err := c.Channel1.Validate(); err != nil {
		return fmt.Errorf("channel 1: %w", err)
	}
	if err := c.Channel2.Validate(); err != nil {
		return fmt.Errorf("channel 2: %w", err)
	}
	if n := c.Channel1.Buttons(); n > channel2Offset {
		return fmt.Errorf("channel 1 decodes %d buttons, at most %d fit", n, channel2Offset)
	}
	if n := c.Channel2.Buttons(); n > int(Power)-channel2Offset {
		return fmt.Errorf("channel 2 decodes %d buttons, at most %d fit", n, int(Power)-channel2Offset)
	}
	if c.Debounce < 0 {
		return fmt.Errorf("negative debounce %v", c.Debounce)
	}
	return nil
}

// Decoder turns raw ladder readings into debounced button state.
// Not safe for concurrent use: the poll loop is the only caller.
type Decoder struct {
	in    Inputs
	clock clockwork.Clock
	cfg   Config

	stable   Mask // debounced, externally visible
	lastRaw  Mask
	pressed  Mask // edges of the latest cycle only
	released Mask

	lastDebounce time.Time
	pressStart   time.Time
	pressFinish  time.Time
	lastUpdate   time.Time

	counts EventCounts
}

// NewDecoder creates an idle decoder. All timestamps start at the clock's
// current time, so HeldTime reports zero until the first press commits.
func NewDecoder(in Inputs, clock clockwork.Clock, cfg Config) *Decoder {
	now := clock.Now()
	return &Decoder{
		in:           in,
		clock:        clock,
		cfg:          cfg,
		lastDebounce: now,
		pressStart:   now,
		pressFinish:  now,
		lastUpdate:   now,
	}
}

// Begin configures the ladder pins for analog input and the power pin with
// pull-up. It must succeed before readings are meaningful.
func (d *Decoder) Begin() error {
	if err := d.in.ConfigureAnalog(d.cfg.Channel1Pin); err != nil {
		return fmt.Errorf("configure channel 1: %w", err)
	}
	if err := d.in.ConfigureAnalog(d.cfg.Channel2Pin); err != nil {
		return fmt.Errorf("configure channel 2: %w", err)
	}
	if err := d.in.ConfigurePullUp(d.cfg.PowerPin); err != nil {
		return fmt.Errorf("configure power pin: %w", err)
	}
	return nil
}

// Sample reads both ladders and the power pin and composes the raw mask.
// Channel 1 fills bits 0-3, channel 2 bits 4-5, the power pin bit 6.
func (d *Decoder) Sample() Mask {
	var raw Mask

	if i, ok := d.cfg.Channel1.Decode(d.in.AnalogRead(d.cfg.Channel1Pin)); ok {
		raw |= bit(Button(i))
	}
	if i, ok := d.cfg.Channel2.Decode(d.in.AnalogRead(d.cfg.Channel2Pin)); ok {
		raw |= bit(Button(i + channel2Offset))
	}
	if !d.in.DigitalRead(d.cfg.PowerPin) {
		raw |= bit(Power)
	}

	return raw
}

// Update runs one poll cycle at the clock's current time.
func (d *Decoder) Update() {
	d.UpdateAt(d.clock.Now())
}

// UpdateAt runs one poll cycle at now. The debounce timer restarts on every
// raw change, so a reading commits only once it has held for longer than
// the debounce delay.
func (d *Decoder) UpdateAt(now time.Time) {
	d.pressed = 0
	d.released = 0
	d.lastUpdate = now

	raw := d.Sample()

	if raw != d.lastRaw {
		d.lastDebounce = now
		d.lastRaw = raw
	}

	if now.Sub(d.lastDebounce) <= d.cfg.Debounce || raw == d.stable {
		return
	}

	d.pressed = raw &^ d.stable
	d.released = d.stable &^ raw

	// One hold timer for the whole chord: it starts only from fully idle.
	if d.pressed != 0 && d.stable == 0 {
		d.pressStart = now
	}
	if d.released != 0 && raw == 0 {
		d.pressFinish = now
	}

	d.stable = raw
	d.counts.add(d.pressed, d.released)
}

// IsPressed reports whether b is held in the debounced state.
func (d *Decoder) IsPressed(b Button) bool {
	return d.stable.Has(b)
}

// WasPressed reports whether b was pressed in the latest cycle.
func (d *Decoder) WasPressed(b Button) bool {
	return d.pressed.Has(b)
}

// WasReleased reports whether b was released in the latest cycle.
func (d *Decoder) WasReleased(b Button) bool {
	return d.released.Has(b)
}

// WasAnyPressed reports whether any button was pressed in the latest cycle.
func (d *Decoder) WasAnyPressed() bool {
	return d.pressed != 0
}

// WasAnyReleased reports whether any button was released in the latest cycle.
func (d *Decoder) WasAnyReleased() bool {
	return d.released != 0
}

// IsPowerButtonPressed reports whether the power button is held.
func (d *Decoder) IsPowerButtonPressed() bool {
	return d.IsPressed(Power)
}

// State returns the debounced mask.
func (d *Decoder) State() Mask { return d.stable }

// Pressed returns the latest cycle's press edges.
func (d *Decoder) Pressed() Mask { return d.pressed }

// Released returns the latest cycle's release edges.
func (d *Decoder) Released() Mask { return d.released }

// HeldTime returns HeldTimeAt the clock's current time.
func (d *Decoder) HeldTime() time.Duration {
	return d.HeldTimeAt(d.clock.Now())
}

// HeldTimeAt returns how long the current chord has been held at now, or,
// when idle, how long the last chord was held. The timer is shared by all
// buttons and starts when the state leaves idle. Before any press it is 0.
func (d *Decoder) HeldTimeAt(now time.Time) time.Duration {
	if d.stable != 0 {
		return now.Sub(d.pressStart)
	}
	return d.pressFinish.Sub(d.pressStart)
}

// Counts returns per-button edge totals since startup.
func (d *Decoder) Counts() EventCounts {
	return d.counts
}
