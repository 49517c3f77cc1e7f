// Package input decodes the multiplexed button ladders into debounced button
// state and per-cycle press/release edges.
// This package has NO hardware dependencies: readings come through Inputs
// and time is injectable through a clockwork.Clock or explicit timestamps.
package input

// Button identifies one logical button. Its value is its bit position in
// every Mask.
type Button uint8

const (
	Back Button = iota
	Confirm
	Left
	Right
	Up
	Down
	Power
)

// NumButtons is the number of logical buttons.
const NumButtons = 7

// UnknownButtonName is returned by ButtonName for indices outside the
// button set.
const UnknownButtonName = "Unknown"

var buttonNames = [NumButtons]string{"Back", "Confirm", "Left", "Right", "Up", "Down", "Power"}

// ButtonName returns the display label for b, or UnknownButtonName.
func ButtonName(b Button) string {
	if int(b) < len(buttonNames) {
		return buttonNames[b]
	}
	return UnknownButtonName
}

func (b Button) String() string {
	return ButtonName(b)
}

// Mask is a set of buttons, one bit per Button.
type Mask uint8

// MaskOf returns the mask with the given buttons set.
func MaskOf(buttons ...Button) Mask {
	var m Mask
	for _, b := range buttons {
		m |= bit(b)
	}
	return m
}

func bit(b Button) Mask {
	return 1 << b
}

// Has reports whether b is set. Indices past the mask width are never set.
func (m Mask) Has(b Button) bool {
	return m&bit(b) != 0
}

// Buttons lists the set buttons in ascending index order.
func (m Mask) Buttons() []Button {
	var out []Button
	for b := Button(0); b < NumButtons; b++ {
		if m.Has(b) {
			out = append(out, b)
		}
	}
	return out
}

// Names lists the labels of the set buttons in ascending index order.
func (m Mask) Names() []string {
	bs := m.Buttons()
	out := make([]string, len(bs))
	for i, b := range bs {
		out[i] = ButtonName(b)
	}
	return out
}
