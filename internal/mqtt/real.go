package mqtt

import (
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"

	"github.com/sweeney/openx4-input/internal/battery"
	"github.com/sweeney/openx4-input/internal/input"
)

// bufferCapacity is how many messages are kept while the broker is away.
const bufferCapacity = 256

// publishTimeout bounds how long a publish waits for the broker's ack.
const publishTimeout = 5 * time.Second

// RealPublisher publishes to an actual MQTT broker.
// Messages published while disconnected are buffered and replayed on
// reconnect.
type RealPublisher struct {
	client paho.Client
	log    logrus.FieldLogger

	mu            sync.Mutex
	buf           *outbox
	connectedOnce bool
}

// NewRealPublisher creates a publisher for the given broker. An unreachable
// broker is not fatal: the client keeps retrying and messages are buffered.
func NewRealPublisher(broker, clientID string, log logrus.FieldLogger) (*RealPublisher, error) {
	p := &RealPublisher{
		log: log,
		buf: newOutbox(bufferCapacity, log),
	}

	will, err := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "OFFLINE", Reason: "LWT"})
	if err != nil {
		return nil, fmt.Errorf("format will payload: %w", err)
	}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetWill(TopicSystem, string(will), 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(p.onConnectionLost)

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		log.Warnf("mqtt: broker %s not reachable yet, buffering until connected", broker)
		return p, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return p, nil
}

func (p *RealPublisher) onConnect(c paho.Client) {
	p.mu.Lock()
	reconnect := p.connectedOnce
	p.connectedOnce = true
	pending, dropped := p.buf.drain()
	p.mu.Unlock()

	if reconnect {
		p.log.Info("mqtt: reconnected")
		if payload, err := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "RECONNECTED"}); err == nil {
			c.Publish(TopicSystem, 1, false, payload)
		}
	}
	p.replay(c, pending, dropped)
}

// replay resends drained messages without waiting on their tokens: it runs
// on paho's handler goroutine or on the poll loop, and neither may stall.
func (p *RealPublisher) replay(c paho.Client, pending []bufferedMsg, dropped int) {
	for _, m := range pending {
		c.Publish(m.topic, m.qos, m.retained, m.payload)
	}
	if len(pending) > 0 {
		p.log.WithField("dropped", dropped).Infof("mqtt: replayed %d buffered messages", len(pending))
	}
}

func (p *RealPublisher) onConnectionLost(_ paho.Client, err error) {
	p.log.Warnf("mqtt: connection lost: %v", err)
}

// publish sends payload, or buffers it while the broker is away. With wait
// set the call blocks until the broker acks; otherwise the ack is checked
// in the background and failures are only logged.
func (p *RealPublisher) publish(topic string, qos byte, retained bool, payload []byte, wait bool) error {
	if !p.client.IsConnectionOpen() {
		p.enqueue(bufferedMsg{topic: topic, payload: payload, qos: qos, retained: retained})
		return nil
	}

	token := p.client.Publish(topic, qos, retained, payload)
	if !wait {
		go p.watch(topic, token)
		return nil
	}
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish to %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

// enqueue buffers msg for replay by onConnect. paho marks the client open
// before it starts onConnect, so the connection can come up between the
// caller's check and the push with the outbox already drained. The check is
// repeated under mu and the outbox flushed here if the broker is back.
func (p *RealPublisher) enqueue(msg bufferedMsg) {
	p.mu.Lock()
	p.buf.push(msg)
	var pending []bufferedMsg
	var dropped int
	if p.client.IsConnectionOpen() {
		pending, dropped = p.buf.drain()
	}
	p.mu.Unlock()

	p.replay(p.client, pending, dropped)
}

func (p *RealPublisher) watch(topic string, token paho.Token) {
	if !token.WaitTimeout(publishTimeout) {
		p.log.Warnf("mqtt: publish to %s: no ack after %v", topic, publishTimeout)
		return
	}
	if err := token.Error(); err != nil {
		p.log.Errorf("mqtt: publish to %s: %v", topic, err)
	}
}

// Publish sends a button event to the MQTT broker.
func (p *RealPublisher) Publish(event input.Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	// QoS 1: a lost release would leave consumers thinking a button is held.
	// The ack is not awaited so a slow broker never stalls sampling.
	return p.publish(Topic, 1, false, payload, false)
}

// PublishBattery sends a battery reading to the MQTT broker, retained so
// late subscribers see the last known charge.
func (p *RealPublisher) PublishBattery(reading battery.Reading) error {
	payload, err := FormatBatteryPayload(reading)
	if err != nil {
		return fmt.Errorf("format battery payload: %w", err)
	}
	return p.publish(TopicBattery, 0, true, payload, false)
}

// PublishSystem sends a system lifecycle event to the MQTT broker. Retained
// events (startup, shutdown) wait for the broker's ack; heartbeats do not.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	return p.publish(TopicSystem, 1, event.Retained, payload, event.Retained)
}

// IsConnected reports whether the broker connection is open.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
