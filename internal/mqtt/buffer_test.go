package mqtt

import (
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
)

func newTestOutbox(capacity int) (*outbox, *logtest.Hook) {
	logger, hook := logtest.NewNullLogger()
	return newOutbox(capacity, logger), hook
}

func pushN(o *outbox, from, to int) {
	for i := from; i < to; i++ {
		o.push(bufferedMsg{topic: Topic, payload: []byte{byte(i)}, qos: 1})
	}
}

func TestOutboxEmptyDrain(t *testing.T) {
	o, _ := newTestOutbox(10)
	got, dropped := o.drain()
	if got != nil || dropped != 0 {
		t.Errorf("expected nil from empty drain, got %d items, %d dropped", len(got), dropped)
	}
}

func TestOutboxPushAndDrain(t *testing.T) {
	o, _ := newTestOutbox(10)
	pushN(o, 0, 5)

	got, dropped := o.drain()
	if len(got) != 5 {
		t.Fatalf("expected 5 items, got %d", len(got))
	}
	if dropped != 0 {
		t.Errorf("expected 0 dropped, got %d", dropped)
	}
	for i := 0; i < 5; i++ {
		if got[i].payload[0] != byte(i) {
			t.Errorf("item %d: expected payload %d, got %d", i, i, got[i].payload[0])
		}
	}

	if got2, _ := o.drain(); got2 != nil {
		t.Errorf("expected nil from second drain, got %d items", len(got2))
	}
}

func TestOutboxOverflowKeepsNewest(t *testing.T) {
	o, _ := newTestOutbox(5)

	// Push 8 items (0..7), outbox should keep the most recent 5 (3..7)
	pushN(o, 0, 8)

	got, dropped := o.drain()
	if len(got) != 5 {
		t.Fatalf("expected 5 items, got %d", len(got))
	}
	if dropped != 3 {
		t.Errorf("expected 3 dropped, got %d", dropped)
	}
	for i := 0; i < 5; i++ {
		want := byte(i + 3)
		if got[i].payload[0] != want {
			t.Errorf("item %d: expected payload %d, got %d", i, want, got[i].payload[0])
		}
	}
}

func TestOutboxOverflowWarnsOncePerOutage(t *testing.T) {
	o, hook := newTestOutbox(2)

	pushN(o, 0, 6)
	if n := len(hook.Entries); n != 1 {
		t.Fatalf("expected 1 warning, got %d", n)
	}
	if hook.LastEntry().Level != logrus.WarnLevel {
		t.Errorf("expected warn level, got %v", hook.LastEntry().Level)
	}

	// Drain resets the count: the next outage warns again
	o.drain()
	pushN(o, 0, 3)
	if n := len(hook.Entries); n != 2 {
		t.Errorf("expected 2 warnings after second overflow, got %d", n)
	}
}

func TestOutboxRetainedSupersedes(t *testing.T) {
	o, _ := newTestOutbox(10)

	o.push(bufferedMsg{topic: TopicBattery, payload: []byte("3900"), retained: true})
	pushN(o, 0, 2)
	o.push(bufferedMsg{topic: TopicBattery, payload: []byte("3850"), retained: true})
	o.push(bufferedMsg{topic: TopicSystem, payload: []byte("STARTUP"), retained: true})

	got, _ := o.drain()
	if len(got) != 4 {
		t.Fatalf("expected 4 items, got %d", len(got))
	}

	batteries := 0
	for _, m := range got {
		if m.topic == TopicBattery {
			batteries++
			if string(m.payload) != "3850" {
				t.Errorf("expected latest battery reading, got %s", m.payload)
			}
		}
	}
	if batteries != 1 {
		t.Errorf("expected 1 battery message, got %d", batteries)
	}
	if got[0].topic != Topic || got[3].topic != TopicSystem {
		t.Errorf("unexpected order: %s ... %s", got[0].topic, got[3].topic)
	}
}

func TestOutboxButtonEventsNeverCoalesce(t *testing.T) {
	o, _ := newTestOutbox(10)

	// Press and release of the same button share a topic but must both survive
	o.push(bufferedMsg{topic: Topic, payload: []byte("PRESSED")})
	o.push(bufferedMsg{topic: Topic, payload: []byte("RELEASED")})

	got, _ := o.drain()
	if len(got) != 2 {
		t.Fatalf("expected 2 items, got %d", len(got))
	}
	if string(got[0].payload) != "PRESSED" || string(got[1].payload) != "RELEASED" {
		t.Errorf("order: got %s, %s", got[0].payload, got[1].payload)
	}
}

func TestOutboxMultipleCycles(t *testing.T) {
	o, _ := newTestOutbox(5)

	pushN(o, 0, 3)
	if got, _ := o.drain(); len(got) != 3 {
		t.Fatalf("cycle 1: expected 3 items, got %d", len(got))
	}

	pushN(o, 10, 14)
	got, _ := o.drain()
	if len(got) != 4 {
		t.Fatalf("cycle 2: expected 4 items, got %d", len(got))
	}
	for i, msg := range got {
		if want := byte(10 + i); msg.payload[0] != want {
			t.Errorf("cycle 2 item %d: expected %d, got %d", i, want, msg.payload[0])
		}
	}
}

func TestOutboxLen(t *testing.T) {
	o, _ := newTestOutbox(10)
	if o.len() != 0 {
		t.Errorf("expected len 0, got %d", o.len())
	}

	pushN(o, 0, 2)
	if o.len() != 2 {
		t.Errorf("expected len 2, got %d", o.len())
	}

	o.drain()
	if o.len() != 0 {
		t.Errorf("expected len 0 after drain, got %d", o.len())
	}
}

func TestOutboxPreservesFields(t *testing.T) {
	o, _ := newTestOutbox(10)
	o.push(bufferedMsg{
		topic:    TopicBattery,
		payload:  []byte(`{"battery":{}}`),
		qos:      1,
		retained: true,
	})

	got, _ := o.drain()
	if len(got) != 1 {
		t.Fatalf("expected 1 item, got %d", len(got))
	}
	if got[0].topic != TopicBattery {
		t.Errorf("topic: got %s, want %s", got[0].topic, TopicBattery)
	}
	if string(got[0].payload) != `{"battery":{}}` {
		t.Errorf("payload: got %s", got[0].payload)
	}
	if got[0].qos != 1 {
		t.Errorf("qos: got %d, want 1", got[0].qos)
	}
	if !got[0].retained {
		t.Error("retained: got false, want true")
	}
}
