// Package status provides a thread-safe status tracker for the openx4-input daemon.
// It is read by HTTP handlers and the heartbeat publisher.
package status

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/sweeney/openx4-input/internal/battery"
	"github.com/sweeney/openx4-input/internal/input"
)

// Config contains daemon configuration for display.
type Config struct {
	PollMs      int64
	DebounceMs  int64
	HeartbeatMs int64
	BatteryMs   int64
	Broker      string
	HTTPAddr    string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	State         input.Mask
	HeldTime      time.Duration
	Counts        input.EventCounts
	Battery       *battery.Reading // nil until the first reading
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu    sync.RWMutex
	snap  Snapshot
	clock clockwork.Clock
}

// NewTracker creates a Tracker with the given start time and config.
// A nil clock uses the real clock.
func NewTracker(startTime time.Time, cfg Config, clock clockwork.Clock) *Tracker {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Tracker{
		clock: clock,
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update sets the debounced button state, hold time and edge counts.
// Called from runLoop on every tick.
func (t *Tracker) Update(state input.Mask, held time.Duration, counts input.EventCounts) {
	t.mu.Lock()
	t.snap.State = state
	t.snap.HeldTime = held
	t.snap.Counts = counts
	t.mu.Unlock()
}

// SetBattery records the latest battery reading.
func (t *Tracker) SetBattery(r battery.Reading) {
	t.mu.Lock()
	t.snap.Battery = &r
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set from the tracker's clock at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	if s.Battery != nil {
		r := *s.Battery
		s.Battery = &r
	}
	s.Now = t.clock.Now()
	return s
}
