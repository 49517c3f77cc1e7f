// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/openx4-input/internal/battery"
	"github.com/sweeney/openx4-input/internal/input"
)

// Topic is the MQTT topic for button events.
const Topic = "openx4/input/events"

// TopicBattery is the MQTT topic for battery readings.
const TopicBattery = "openx4/input/battery"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "openx4/input/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a button event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event input.Event) error

	// PublishBattery sends a battery reading to the broker.
	PublishBattery(reading battery.Reading) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload for a button event.
type Payload struct {
	Button ButtonPayload `json:"button"`
}

// ButtonPayload contains the button event details.
type ButtonPayload struct {
	Timestamp string   `json:"timestamp"`
	Event     string   `json:"event"`
	Name      string   `json:"name"`
	Index     int      `json:"index"`
	Held      []string `json:"held"`
	HeldMs    *int64   `json:"held_ms,omitempty"`
}

// FormatPayload creates the JSON payload for a button event.
func FormatPayload(event input.Event) ([]byte, error) {
	held := event.State.Names()
	if held == nil {
		held = []string{}
	}
	p := ButtonPayload{
		Timestamp: event.Timestamp.UTC().Format(time.RFC3339Nano),
		Event:     string(event.Type),
		Name:      input.ButtonName(event.Button),
		Index:     int(event.Button),
		Held:      held,
	}
	if event.Type == input.EventReleased {
		ms := event.Held.Milliseconds()
		p.HeldMs = &ms
	}
	return json.Marshal(Payload{Button: p})
}

// BatteryPayload represents the MQTT message payload for a battery reading.
type BatteryPayload struct {
	Battery BatteryPayloadInner `json:"battery"`
}

// BatteryPayloadInner contains the battery reading.
type BatteryPayloadInner struct {
	Timestamp  string `json:"timestamp"`
	Millivolts int    `json:"millivolts"`
	Percent    int    `json:"percent"`
}

// FormatBatteryPayload creates the JSON payload for a battery reading.
func FormatBatteryPayload(r battery.Reading) ([]byte, error) {
	return json.Marshal(BatteryPayload{
		Battery: BatteryPayloadInner{
			Timestamp:  r.Timestamp.UTC().Format(time.RFC3339),
			Millivolts: r.Millivolts,
			Percent:    r.Percent,
		},
	})
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
