// Command openx4-input polls the OpenX4 button ladders and battery and
// publishes debounced button edges and battery readings to MQTT.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	arg "github.com/alexflint/go-arg"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/sweeney/openx4-input/internal/battery"
	"github.com/sweeney/openx4-input/internal/board"
	"github.com/sweeney/openx4-input/internal/input"
	"github.com/sweeney/openx4-input/internal/mqtt"
	"github.com/sweeney/openx4-input/internal/status"
	"github.com/sweeney/openx4-input/internal/web"
)

var version = "No version provided"

var log = logrus.New()

type argSpec struct {
	Poll            time.Duration `arg:"--poll,env:OPENX4_POLL" help:"Button polling interval"`
	Debounce        time.Duration `arg:"--debounce,env:OPENX4_DEBOUNCE" help:"How long a reading must hold before it is committed"`
	Heartbeat       time.Duration `arg:"--heartbeat,env:OPENX4_HEARTBEAT" help:"Heartbeat interval (0 to disable)"`
	BatteryInterval time.Duration `arg:"--battery-interval,env:OPENX4_BATTERY_INTERVAL" help:"Battery reading interval (0 to disable)"`
	Broker          string        `arg:"--broker,env:OPENX4_BROKER" help:"MQTT broker address"`
	ClientID        string        `arg:"--client-id,env:OPENX4_CLIENT_ID" help:"MQTT client ID"`
	HTTPAddr        string        `arg:"--http,env:OPENX4_HTTP" help:"HTTP status address (empty to disable)"`
	GPIOChip        string        `arg:"--gpio-chip,env:OPENX4_GPIO_CHIP" help:"GPIO character device for the power button"`
	GPIOBackend     string        `arg:"--gpio-backend,env:OPENX4_GPIO_BACKEND" help:"Power button driver (cdev, periph)"`
	IIODevice       string        `arg:"--iio-device,env:OPENX4_IIO_DEVICE" help:"IIO sysfs directory of the ADC"`
	PinBattery      int           `arg:"--pin-battery" help:"ADC channel of the battery divider"`
	PinADC1         int           `arg:"--pin-adc1" help:"ADC channel of button ladder 1"`
	PinADC2         int           `arg:"--pin-adc2" help:"ADC channel of button ladder 2"`
	PinPower        int           `arg:"--pin-power" help:"GPIO line of the power button"`
	Divider         float64       `arg:"--divider" help:"Battery voltage divider ratio"`
	PrintState      bool          `arg:"--print-state" help:"Print current buttons and battery and exit"`
	LogLevel        string        `arg:"-l, --log-level,env:OPENX4_LOG_LEVEL" help:"Set the logging level (debug, info, warn, error)"`
	LogFile         string        `arg:"--log-file,env:OPENX4_LOG_FILE" help:"Also write logs to this file, rotated"`
}

func (argSpec) Version() string {
	return version
}

func defaultArgs() argSpec {
	return argSpec{
		Poll:            time.Millisecond,
		Debounce:        input.DebounceDelay,
		Heartbeat:       15 * time.Minute,
		BatteryInterval: time.Minute,
		Broker:          "tcp://192.168.1.200:1883",
		ClientID:        "openx4-input",
		HTTPAddr:        ":80",
		GPIOChip:        "gpiochip0",
		GPIOBackend:     board.BackendCdev,
		IIODevice:       board.DefaultIIODevice,
		PinBattery:      board.DefaultBatteryPin,
		PinADC1:         board.DefaultButtonADCPin1,
		PinADC2:         board.DefaultButtonADCPin2,
		PinPower:        board.DefaultPowerButtonPin,
		Divider:         battery.DefaultDivider,
		LogLevel:        "info",
	}
}

func procArgs(osArgs []string) (argSpec, error) {
	args := defaultArgs()

	parser, err := arg.NewParser(arg.Config{}, &args)
	if err != nil {
		return argSpec{}, err
	}
	err = parser.Parse(osArgs)
	if errors.Is(err, arg.ErrHelp) {
		parser.WriteHelp(os.Stdout)
		os.Exit(0)
	}
	if errors.Is(err, arg.ErrVersion) {
		fmt.Println(version)
		os.Exit(0)
	}
	return args, err
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		log.SetLevel(logrus.DebugLevel)
	case "info":
		log.SetLevel(logrus.InfoLevel)
	case "warn":
		log.SetLevel(logrus.WarnLevel)
	case "error":
		log.SetLevel(logrus.ErrorLevel)
	default:
		log.SetLevel(logrus.InfoLevel)
		log.Warn("Unknown log level, defaulting to info")
	}
}

func setLogFile(path string) {
	if path == "" {
		return
	}
	log.SetOutput(io.MultiWriter(os.Stderr, &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
	}))
}

func main() {
	args, err := procArgs(os.Args[1:])
	if err != nil {
		log.Fatalf("failed to parse args: %v", err)
	}
	setLogLevel(args.LogLevel)
	setLogFile(args.LogFile)

	if err := run(args); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func decoderConfig(args argSpec) input.Config {
	cfg := input.DefaultConfig()
	cfg.Channel1Pin = args.PinADC1
	cfg.Channel2Pin = args.PinADC2
	cfg.PowerPin = args.PinPower
	cfg.Debounce = args.Debounce
	return cfg
}

// validateArgs rejects intervals the loop cannot run with. Zero disables the
// heartbeat and battery readings; the poll interval must be positive.
func validateArgs(args argSpec) error {
	if args.Poll <= 0 {
		return fmt.Errorf("poll interval must be positive, got %v", args.Poll)
	}
	if args.Heartbeat < 0 {
		return fmt.Errorf("heartbeat interval must not be negative, got %v", args.Heartbeat)
	}
	if args.BatteryInterval < 0 {
		return fmt.Errorf("battery interval must not be negative, got %v", args.BatteryInterval)
	}
	return nil
}

func run(args argSpec) error {
	log.Info("Running version: ", version)

	if err := validateArgs(args); err != nil {
		return fmt.Errorf("arguments: %w", err)
	}
	cfg := decoderConfig(args)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("decoder config: %w", err)
	}

	// Initialize board
	b, err := board.NewRealBoard(board.Options{
		Chip:      args.GPIOChip,
		Backend:   args.GPIOBackend,
		IIODevice: args.IIODevice,
	}, log)
	if err != nil {
		return fmt.Errorf("init board: %w", err)
	}
	defer b.Close()

	clock := clockwork.NewRealClock()
	decoder := input.NewDecoder(b, clock, cfg)
	if err := decoder.Begin(); err != nil {
		return fmt.Errorf("init buttons: %w", err)
	}
	monitor := battery.NewMonitor(b, args.PinBattery, args.Divider)
	if err := monitor.Begin(); err != nil {
		return fmt.Errorf("init battery: %w", err)
	}

	// Print state mode
	if args.PrintState {
		if err := b.Poll(); err != nil {
			return fmt.Errorf("read board: %w", err)
		}
		fmt.Println(formatState(decoder.Sample(), monitor.Read(clock.Now())))
		return nil
	}

	// Initialize MQTT
	publisher, err := mqtt.NewRealPublisher(args.Broker, args.ClientID, log)
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(clock.Now(), status.Config{
		PollMs:      args.Poll.Milliseconds(),
		DebounceMs:  args.Debounce.Milliseconds(),
		HeartbeatMs: args.Heartbeat.Milliseconds(),
		BatteryMs:   args.BatteryInterval.Milliseconds(),
		Broker:      args.Broker,
		HTTPAddr:    args.HTTPAddr,
	}, clock)
	tracker.SetBattery(monitor.Read(clock.Now()))
	tracker.SetMQTTConnected(publisher.IsConnected())

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Errorf("failed to publish startup event: %v", err)
	} else {
		log.Info("published startup event")
	}

	// Start HTTP status server
	if args.HTTPAddr != "" {
		srv := web.New(args.HTTPAddr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Errorf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Infof("http status server listening on %s", args.HTTPAddr)
	}

	log.Infof("started: poll=%v debounce=%v broker=%s heartbeat=%v battery=%v",
		args.Poll, args.Debounce, args.Broker, args.Heartbeat, args.BatteryInterval)

	ticker := clock.NewTicker(args.Poll)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(loopDeps{
		board:           b,
		decoder:         decoder,
		monitor:         monitor,
		publisher:       publisher,
		mqttStatus:      publisher,
		tracker:         tracker,
		heartbeat:       args.Heartbeat,
		batteryInterval: args.BatteryInterval,
		now:             clock.Now,
	}, ticker.Chan(), sigCh)
}

// poller latches a fresh set of readings.
type poller interface {
	Poll() error
}

type loopDeps struct {
	board           poller
	decoder         *input.Decoder
	monitor         *battery.Monitor
	publisher       mqtt.Publisher
	mqttStatus      mqtt.ConnectionStatus // may be nil
	tracker         *status.Tracker       // may be nil
	heartbeat       time.Duration
	batteryInterval time.Duration
	now             func() time.Time
}

func runLoop(d loopDeps, tick <-chan time.Time, sig <-chan os.Signal) error {
	lastHeartbeat := d.now()
	var lastBattery time.Time

	for {
		select {
		case s := <-sig:
			log.Infof("received %v, shutting down", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			event := mqtt.SystemEvent{
				Timestamp: d.now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if d.tracker != nil {
				if d.mqttStatus != nil {
					d.tracker.SetMQTTConnected(d.mqttStatus.IsConnected())
				}
				snap := d.tracker.Snapshot()
				event.RawPayload = status.FormatStatusEvent(snap, "SHUTDOWN", signalName)
			}
			if err := d.publisher.PublishSystem(event); err != nil {
				log.Errorf("failed to publish shutdown event: %v", err)
			} else {
				log.Info("published shutdown event")
			}
			return nil

		case <-tick:
			t := d.now()
			if err := d.board.Poll(); err != nil {
				log.Warnf("board poll error: %v", err)
				continue
			}

			d.decoder.UpdateAt(t)

			for _, event := range d.decoder.Events() {
				fields := logrus.Fields{
					"button": event.Button.String(),
					"state":  event.State.Names(),
				}
				if event.Type == input.EventReleased {
					fields["held"] = event.Held
				}
				log.WithFields(fields).Infof("event: %s", event.Type)
				if err := d.publisher.Publish(event); err != nil {
					log.Errorf("publish error: %v", err)
					// Don't crash on publish failure
				}
			}

			if d.monitor != nil && d.batteryInterval > 0 &&
				(lastBattery.IsZero() || t.Sub(lastBattery) >= d.batteryInterval) {
				lastBattery = t
				reading := d.monitor.Read(t)
				log.Debugf("battery: %dmV %d%%", reading.Millivolts, reading.Percent)
				if d.tracker != nil {
					d.tracker.SetBattery(reading)
				}
				if err := d.publisher.PublishBattery(reading); err != nil {
					log.Errorf("battery publish error: %v", err)
				}
			}

			// Update status tracker for HTTP consumers
			if d.tracker != nil {
				d.tracker.Update(d.decoder.State(), d.decoder.HeldTimeAt(t), d.decoder.Counts())
				if d.mqttStatus != nil {
					d.tracker.SetMQTTConnected(d.mqttStatus.IsConnected())
				}
			}

			if d.heartbeat > 0 && t.Sub(lastHeartbeat) >= d.heartbeat {
				lastHeartbeat = t
				counts := d.decoder.Counts()
				log.Infof("heartbeat: pressed=%d released=%d", counts.TotalPressed(), counts.TotalReleased())

				hbEvent := mqtt.SystemEvent{
					Timestamp: t,
					Event:     "HEARTBEAT",
				}
				if d.tracker != nil {
					hbEvent.RawPayload = status.FormatStatusEvent(d.tracker.Snapshot(), "HEARTBEAT", "")
				}
				if err := d.publisher.PublishSystem(hbEvent); err != nil {
					log.Errorf("heartbeat publish error: %v", err)
				}
			}
		}
	}
}

func formatState(raw input.Mask, r battery.Reading) string {
	return fmt.Sprintf("Buttons: %v, Power: %v, Battery: %dmV (%d%%)",
		raw.Names(), raw.Has(input.Power), r.Millivolts, r.Percent)
}
