package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/openx4-input/internal/input"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Buttons       ButtonsJSON  `json:"buttons"`
	Battery       *BatteryJSON `json:"battery,omitempty"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Counts        CountsJSON   `json:"event_counts"`
	Config        ConfigJSON   `json:"config"`
}

// ButtonsJSON is the debounced button state.
type ButtonsJSON struct {
	Held   []string `json:"held"`
	HeldMs int64    `json:"held_ms"`
	Power  bool     `json:"power"`
}

// BatteryJSON is the latest battery reading.
type BatteryJSON struct {
	Millivolts int    `json:"millivolts"`
	Percent    int    `json:"percent"`
	Timestamp  string `json:"timestamp"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of edge counts, keyed by button name.
type CountsJSON struct {
	Pressed  map[string]int `json:"pressed"`
	Released map[string]int `json:"released"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs      int64  `json:"poll_ms"`
	DebounceMs  int64  `json:"debounce_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	BatteryMs   int64  `json:"battery_ms"`
	Broker      string `json:"broker"`
	HTTPAddr    string `json:"http_addr"`
}

func buildCounts(c input.EventCounts) CountsJSON {
	out := CountsJSON{
		Pressed:  make(map[string]int, input.NumButtons),
		Released: make(map[string]int, input.NumButtons),
	}
	for b := input.Button(0); b < input.NumButtons; b++ {
		out.Pressed[b.String()] = c.Pressed[b]
		out.Released[b.String()] = c.Released[b]
	}
	return out
}

func buildInner(snap Snapshot) StatusInner {
	inner := StatusInner{
		Buttons: ButtonsJSON{
			Held:   snap.State.Names(),
			HeldMs: snap.HeldTime.Milliseconds(),
			Power:  snap.State.Has(input.Power),
		},
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts:        buildCounts(snap.Counts),
		Config: ConfigJSON{
			PollMs:      snap.Config.PollMs,
			DebounceMs:  snap.Config.DebounceMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			BatteryMs:   snap.Config.BatteryMs,
			Broker:      snap.Config.Broker,
			HTTPAddr:    snap.Config.HTTPAddr,
		},
	}
	if inner.Buttons.Held == nil {
		inner.Buttons.Held = []string{}
	}
	if snap.Battery != nil {
		inner.Battery = &BatteryJSON{
			Millivolts: snap.Battery.Millivolts,
			Percent:    snap.Battery.Percent,
			Timestamp:  snap.Battery.Timestamp.UTC().Format(time.RFC3339),
		}
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
