package mqtt

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sweeney/openx4-input/internal/battery"
	"github.com/sweeney/openx4-input/internal/input"
)

var ts = time.Date(2026, 2, 2, 22, 18, 12, 345000000, time.UTC)

func pressEvent(b input.Button) input.Event {
	return input.Event{
		Timestamp: ts,
		Type:      input.EventPressed,
		Button:    b,
		State:     input.MaskOf(b),
	}
}

func TestFormatPayloadPressedExactJSON(t *testing.T) {
	payload, err := FormatPayload(pressEvent(input.Back))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"button":{"timestamp":"2026-02-02T22:18:12.345Z","event":"PRESSED","name":"Back","index":0,"held":["Back"]}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", payload, expected)
	}
}

func TestFormatPayloadReleasedExactJSON(t *testing.T) {
	event := input.Event{
		Timestamp: ts,
		Type:      input.EventReleased,
		Button:    input.Power,
		State:     0,
		Held:      1500 * time.Millisecond,
	}

	payload, err := FormatPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"button":{"timestamp":"2026-02-02T22:18:12.345Z","event":"RELEASED","name":"Power","index":6,"held":[],"held_ms":1500}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", payload, expected)
	}
}

func TestFormatPayloadChordState(t *testing.T) {
	event := pressEvent(input.Down)
	event.State = input.MaskOf(input.Left, input.Down)

	payload, err := FormatPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed Payload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Button.Name != "Down" || parsed.Button.Index != 5 {
		t.Errorf("button: got %s/%d, want Down/5", parsed.Button.Name, parsed.Button.Index)
	}
	if len(parsed.Button.Held) != 2 || parsed.Button.Held[0] != "Left" || parsed.Button.Held[1] != "Down" {
		t.Errorf("held: got %v, want [Left Down]", parsed.Button.Held)
	}
	if parsed.Button.HeldMs != nil {
		t.Errorf("held_ms should be omitted on press, got %d", *parsed.Button.HeldMs)
	}
}

func TestFormatPayloadTimezoneConversion(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*60*60)
	event := pressEvent(input.Up)
	event.Timestamp = time.Date(2026, 2, 3, 3, 30, 0, 0, loc)

	payload, err := FormatPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed Payload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Button.Timestamp != "2026-02-02T22:30:00Z" {
		t.Errorf("timestamp not converted to UTC: %s", parsed.Button.Timestamp)
	}
}

func TestFormatBatteryPayloadExactJSON(t *testing.T) {
	payload, err := FormatBatteryPayload(battery.Reading{
		Timestamp:  time.Date(2026, 2, 3, 10, 30, 45, 0, time.UTC),
		Millivolts: 3700,
		Percent:    41,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"battery":{"timestamp":"2026-02-03T10:30:45Z","millivolts":3700,"percent":41}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", payload, expected)
	}
}

func TestTopics(t *testing.T) {
	want := map[string]string{
		"openx4/input/events":  Topic,
		"openx4/input/battery": TopicBattery,
		"openx4/input/system":  TopicSystem,
	}
	for expected, got := range want {
		if got != expected {
			t.Errorf("topic: got %s, want %s", got, expected)
		}
	}
}

func TestFormatSystemPayloadExactJSON(t *testing.T) {
	event := SystemEvent{
		Timestamp: time.Date(2026, 2, 3, 10, 30, 45, 0, time.UTC),
		Event:     "SHUTDOWN",
		Reason:    "SIGTERM",
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"system":{"timestamp":"2026-02-03T10:30:45Z","event":"SHUTDOWN","reason":"SIGTERM"}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", payload, expected)
	}
}

func TestFormatSystemPayloadOmitsEmptyReason(t *testing.T) {
	payload, err := FormatSystemPayload(SystemEvent{
		Timestamp: time.Date(2026, 2, 3, 10, 30, 45, 0, time.UTC),
		Event:     "RECONNECTED",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"system":{"timestamp":"2026-02-03T10:30:45Z","event":"RECONNECTED"}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", payload, expected)
	}
}

func TestFormatSystemPayloadRawPassthrough(t *testing.T) {
	raw := []byte(`{"status":{"event":"HEARTBEAT"}}`)

	payload, err := FormatSystemPayload(SystemEvent{Event: "HEARTBEAT", RawPayload: raw})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(payload) != string(raw) {
		t.Errorf("expected raw payload passthrough, got %s", payload)
	}
}

func TestFakePublisher(t *testing.T) {
	f := NewFakePublisher()

	if err := f.Publish(pressEvent(input.Confirm)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := f.PublishBattery(battery.Reading{Millivolts: 3900, Percent: 70}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := f.PublishSystem(SystemEvent{Event: "STARTUP", Retained: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(f.Events) != 1 || f.Events[0].Button != input.Confirm {
		t.Errorf("unexpected events: %+v", f.Events)
	}
	if len(f.Payloads) != 1 {
		t.Errorf("expected 1 payload, got %d", len(f.Payloads))
	}
	if len(f.Readings) != 1 || f.Readings[0].Percent != 70 {
		t.Errorf("unexpected readings: %+v", f.Readings)
	}
	if len(f.SystemEvents) != 1 || !f.SystemEvents[0].Retained {
		t.Errorf("unexpected system events: %+v", f.SystemEvents)
	}
}

func TestFakePublisherError(t *testing.T) {
	f := NewFakePublisher()
	f.PublishError = errors.New("simulated error")

	if err := f.Publish(pressEvent(input.Left)); err == nil {
		t.Error("expected error from Publish")
	}
	if err := f.PublishBattery(battery.Reading{}); err == nil {
		t.Error("expected error from PublishBattery")
	}
	if len(f.Events) != 0 || len(f.Readings) != 0 {
		t.Errorf("expected nothing recorded on error, got %d events %d readings", len(f.Events), len(f.Readings))
	}

	// System events are unaffected by PublishError
	if err := f.PublishSystem(SystemEvent{Event: "HEARTBEAT"}); err != nil {
		t.Errorf("unexpected system error: %v", err)
	}

	f.PublishSystemError = errors.New("system error")
	if err := f.PublishSystem(SystemEvent{Event: "SHUTDOWN"}); err == nil {
		t.Error("expected error from PublishSystem")
	}
	if len(f.SystemEvents) != 1 {
		t.Errorf("expected 1 system event, got %d", len(f.SystemEvents))
	}
}

func TestFakePublisherReset(t *testing.T) {
	f := NewFakePublisher()
	f.Publish(pressEvent(input.Right))
	f.PublishBattery(battery.Reading{})
	f.PublishSystem(SystemEvent{Event: "STARTUP"})
	f.Close()
	f.Connected = true
	f.PublishError = errors.New("error")

	f.Reset()

	if len(f.Events) != 0 || len(f.Payloads) != 0 || len(f.Readings) != 0 {
		t.Error("events should be cleared")
	}
	if len(f.SystemEvents) != 0 || len(f.SystemPayloads) != 0 {
		t.Error("system events should be cleared")
	}
	if f.Closed || f.Connected {
		t.Error("flags should be reset")
	}
	if f.PublishError != nil {
		t.Error("error should be cleared")
	}
}

func TestFakePublisherPreservesEventOrder(t *testing.T) {
	f := NewFakePublisher()
	order := []input.Button{input.Up, input.Back, input.Power, input.Down}
	for _, b := range order {
		f.Publish(pressEvent(b))
	}

	if len(f.Events) != len(order) {
		t.Fatalf("expected %d events, got %d", len(order), len(f.Events))
	}
	for i, b := range order {
		if f.Events[i].Button != b {
			t.Errorf("event %d: got %s, want %s", i, f.Events[i].Button, b)
		}
	}
}
