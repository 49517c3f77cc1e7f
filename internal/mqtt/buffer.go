package mqtt

import "github.com/sirupsen/logrus"

// bufferedMsg stores a serialized MQTT message for replay after reconnection.
type bufferedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// outbox holds messages while the broker is away.
// A retained message replaces any buffered retained message on the same
// topic, since the broker would only keep the last one. Everything else is
// kept in publish order up to capacity, oldest dropped first.
// Not safe for concurrent use: caller must synchronize.
type outbox struct {
	msgs     []bufferedMsg
	capacity int
	dropped  int // messages lost to overflow since the last drain
	log      logrus.FieldLogger
}

func newOutbox(capacity int, log logrus.FieldLogger) *outbox {
	return &outbox{
		msgs:     make([]bufferedMsg, 0, capacity),
		capacity: capacity,
		log:      log,
	}
}

func (o *outbox) push(msg bufferedMsg) {
	if msg.retained {
		for i, m := range o.msgs {
			if m.retained && m.topic == msg.topic {
				o.msgs = append(o.msgs[:i], o.msgs[i+1:]...)
				break
			}
		}
	}

	if len(o.msgs) == o.capacity {
		if o.dropped == 0 {
			o.log.Warnf("mqtt: buffer full (%d messages), dropping oldest", o.capacity)
		}
		o.msgs = append(o.msgs[:0], o.msgs[1:]...)
		o.dropped++
	}
	o.msgs = append(o.msgs, msg)
}

// drain returns the buffered messages oldest first and how many were
// dropped, then empties the outbox.
func (o *outbox) drain() ([]bufferedMsg, int) {
	if len(o.msgs) == 0 && o.dropped == 0 {
		return nil, 0
	}

	out := make([]bufferedMsg, len(o.msgs))
	copy(out, o.msgs)
	dropped := o.dropped

	o.msgs = o.msgs[:0]
	o.dropped = 0
	return out, dropped
}

func (o *outbox) len() int {
	return len(o.msgs)
}
