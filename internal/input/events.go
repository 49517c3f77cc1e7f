package input

import "time"

// EventType is the kind of edge an Event reports.
type EventType string

const (
	EventPressed  EventType = "PRESSED"
	EventReleased EventType = "RELEASED"
)

// Event is one committed button edge, ready to be published.
type Event struct {
	Timestamp time.Time
	Type      EventType
	Button    Button
	State     Mask          // debounced state after the edge
	Held      time.Duration // release only: HeldTime at the edge
}

// EventCounts tracks the number of edges per button since startup.
type EventCounts struct {
	Pressed  [NumButtons]int
	Released [NumButtons]int
}

func (c *EventCounts) add(pressed, released Mask) {
	for b := Button(0); b < NumButtons; b++ {
		if pressed.Has(b) {
			c.Pressed[b]++
		}
		if released.Has(b) {
			c.Released[b]++
		}
	}
}

// TotalPressed returns the press count summed over all buttons.
func (c EventCounts) TotalPressed() int {
	n := 0
	for _, v := range c.Pressed {
		n += v
	}
	return n
}

// TotalReleased returns the release count summed over all buttons.
func (c EventCounts) TotalReleased() int {
	n := 0
	for _, v := range c.Released {
		n += v
	}
	return n
}

// Events returns the latest cycle's edges: presses first, then releases,
// each in ascending button order. Empty when nothing committed.
func (d *Decoder) Events() []Event {
	if d.pressed == 0 && d.released == 0 {
		return nil
	}

	var events []Event
	for _, b := range d.pressed.Buttons() {
		events = append(events, Event{
			Timestamp: d.lastUpdate,
			Type:      EventPressed,
			Button:    b,
			State:     d.stable,
		})
	}

	held := d.HeldTimeAt(d.lastUpdate)
	for _, b := range d.released.Buttons() {
		events = append(events, Event{
			Timestamp: d.lastUpdate,
			Type:      EventReleased,
			Button:    b,
			State:     d.stable,
			Held:      held,
		})
	}
	return events
}
