// Command gpio-keys monitors GPIO push-keys, classifies gestures
// (click, double-click, long-press, hold, repeat) and publishes them to MQTT.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/sweeney/gpio-keys/internal/gpio"
	"github.com/sweeney/gpio-keys/internal/keys"
	"github.com/sweeney/gpio-keys/internal/mqtt"
	"github.com/sweeney/gpio-keys/internal/status"
	"github.com/sweeney/gpio-keys/internal/web"
)

// defaultKeySpec monitors the standard button header pin when no -key
// flags are given.
const defaultKeySpec = "pin=17,active-low,debounce=20ms,long-press=1s,double-click=300ms"

func main() {
	var specs keySpecList
	flag.Var(&specs, "key", "Key spec, repeatable: \"pin=17,active-low,debounce=20ms,long-press=1s,repeat=500ms,double-click=300ms\"")
	poll := flag.Duration("poll", 10*time.Millisecond, "GPIO polling interval")
	chip := flag.String("chip", gpio.DefaultChip, "GPIO character device name")
	broker := flag.String("broker", "tcp://192.168.1.200:1883", "MQTT broker address")
	heartbeat := flag.Duration("heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")
	queueCap := flag.Int("queue", keys.DefaultQueueCapacity, "Event queue capacity")
	printState := flag.Bool("print-state", false, "Print current key states and exit")
	httpAddr := flag.String("http", ":80", "HTTP status address (empty to disable)")
	wsBroker := flag.String("ws-broker", "=broker", `MQTT websocket URL for live UI ("=broker" derives from --broker, "off" disables)`)

	flag.Parse()

	if len(specs.configs) == 0 {
		if err := specs.Set(defaultKeySpec); err != nil {
			log.Fatalf("fatal: default key spec: %v", err)
		}
	}

	ws := resolveWSBroker(*wsBroker, *broker)
	if err := run(specs.configs, *poll, *chip, *broker, *heartbeat, *queueCap, *printState, *httpAddr, ws); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(configs []keys.Config, poll time.Duration, chip, broker string, heartbeat time.Duration, queueCap int, printState bool, httpAddr, wsBroker string) error {
	// Initialize GPIO
	reader, err := gpio.NewRealReader(chip)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer reader.Close()

	for _, cfg := range configs {
		// Active-low keys idle high, so they get the pull-up.
		if err := reader.Request(cfg.Pin, cfg.ActiveLow); err != nil {
			return fmt.Errorf("request pin %d: %w", cfg.Pin, err)
		}
	}

	// Print state mode
	if printState {
		for _, cfg := range configs {
			level, err := reader.Read(cfg.Pin)
			if err != nil {
				return fmt.Errorf("read pin %d: %w", cfg.Pin, err)
			}
			fmt.Printf("GPIO %d: %s\n", cfg.Pin, stateString(level != cfg.ActiveLow))
		}
		return nil
	}

	// Build the engine. A key that fails to register is skipped; the
	// daemon keeps running for the others.
	manager := keys.NewManager(reader)
	registered := 0
	for _, cfg := range configs {
		if err := manager.AddKey(cfg); err != nil {
			log.Printf("add key on pin %d: %v", cfg.Pin, err)
			continue
		}
		registered++
	}
	if registered == 0 {
		return fmt.Errorf("no keys could be registered")
	}

	queue := keys.NewQueueSink(queueCap)
	manager.AttachSink(queue)

	// Initialize MQTT
	publisher, err := mqtt.NewRealPublisher(broker)
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		PollMs:      poll.Milliseconds(),
		HeartbeatMs: heartbeat.Milliseconds(),
		QueueCap:    queueCap,
		Broker:      broker,
		HTTPPort:    httpAddr,
		WSBroker:    wsBroker,
	})
	tracker.Update(manager.Keys(), manager.CountsSnapshot(), queue.Dropped())
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	} else {
		log.Printf("published startup event")
	}

	// Start HTTP status server
	if httpAddr != "" {
		srv := web.New(httpAddr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", httpAddr)
	}

	log.Printf("started: keys=%d poll=%v broker=%s heartbeat=%v", registered, poll, broker, heartbeat)

	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(manager, queue, publisher, publisher, tracker, heartbeat, time.Now, ticker.C, sigCh)
}

func runLoop(manager *keys.Manager, queue *keys.QueueSink, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, heartbeat time.Duration, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	lastHeartbeat := now()

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			event := mqtt.SystemEvent{
				Timestamp: now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if tracker != nil {
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
				snap := tracker.Snapshot()
				event.RawPayload = status.FormatStatusEvent(snap, "SHUTDOWN", signalName)
			}
			if err := publisher.PublishSystem(event); err != nil {
				log.Printf("failed to publish shutdown event: %v", err)
			} else {
				log.Printf("published shutdown event")
			}
			return nil

		case <-tick:
			t := now()
			manager.Poll(t)

			// Drain whatever this tick produced. HOLD fires every tick
			// for a held key, so it is counted but not logged or
			// published.
			for drained := false; !drained; {
				select {
				case e := <-queue.Events():
					if e.Type == keys.EventHold {
						continue
					}
					log.Printf("event: pin=%d %s duration=%v", e.Pin, e.Type, e.Duration)
					if err := publisher.Publish(e); err != nil {
						log.Printf("publish error: %v", err)
						// Don't crash on publish failure
					}
				default:
					drained = true
				}
			}

			// Check for heartbeat
			if heartbeat > 0 && t.Sub(lastHeartbeat) >= heartbeat {
				lastHeartbeat = t
				counts := manager.CountsSnapshot()
				log.Printf("heartbeat: clicks=%d double=%d long=%d repeats=%d",
					counts.SingleClick, counts.DoubleClick, counts.LongPress, counts.Repeat)

				hbEvent := mqtt.SystemEvent{
					Timestamp: t,
					Event:     "HEARTBEAT",
				}
				if tracker != nil {
					if mqttStatus != nil {
						tracker.SetMQTTConnected(mqttStatus.IsConnected())
					}
					// Refresh network info for heartbeat
					if net := readNetworkInfo(); net != nil {
						tracker.SetNetwork(net)
					}
					tracker.Update(manager.Keys(), counts, queue.Dropped())
					snap := tracker.Snapshot()
					hbEvent.RawPayload = status.FormatStatusEvent(snap, "HEARTBEAT", "")
				}
				if err := publisher.PublishSystem(hbEvent); err != nil {
					log.Printf("heartbeat publish error: %v", err)
				}
			}

			// Update status tracker for HTTP consumers
			if tracker != nil {
				tracker.Update(manager.Keys(), manager.CountsSnapshot(), queue.Dropped())
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
			}
		}
	}
}

// keySpecList collects repeated -key flags.
type keySpecList struct {
	configs []keys.Config
	raw     []string
}

func (l *keySpecList) String() string {
	return strings.Join(l.raw, "; ")
}

// Set parses one key spec of comma-separated fields. "pin=N" is required;
// "active-low" is a bare flag; the remaining fields are durations:
// debounce, long-press, repeat, double-click. Setting double-click
// enables double-click detection.
func (l *keySpecList) Set(spec string) error {
	cfg := keys.Config{Pin: -1}

	for _, field := range strings.Split(spec, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}

		name, value, hasValue := strings.Cut(field, "=")
		switch name {
		case "pin":
			if !hasValue {
				return fmt.Errorf("key spec %q: pin needs a value", spec)
			}
			pin, err := strconv.Atoi(value)
			if err != nil {
				return fmt.Errorf("key spec %q: bad pin %q", spec, value)
			}
			cfg.Pin = pin
		case "active-low":
			if hasValue {
				return fmt.Errorf("key spec %q: active-low takes no value", spec)
			}
			cfg.ActiveLow = true
		case "debounce", "long-press", "repeat", "double-click":
			if !hasValue {
				return fmt.Errorf("key spec %q: %s needs a duration", spec, name)
			}
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("key spec %q: bad %s duration %q", spec, name, value)
			}
			switch name {
			case "debounce":
				cfg.Debounce = d
			case "long-press":
				cfg.LongPress = d
			case "repeat":
				cfg.Repeat = d
			case "double-click":
				cfg.DoubleClick = d
				cfg.EnableDoubleClick = true
			}
		default:
			return fmt.Errorf("key spec %q: unknown field %q", spec, name)
		}
	}

	if cfg.Pin < 0 {
		return fmt.Errorf("key spec %q: pin is required", spec)
	}
	for _, existing := range l.configs {
		if existing.Pin == cfg.Pin {
			return fmt.Errorf("key spec %q: pin %d already specified", spec, cfg.Pin)
		}
	}

	l.configs = append(l.configs, cfg)
	l.raw = append(l.raw, spec)
	return nil
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}

func stateString(pressed bool) string {
	if pressed {
		return "PRESSED"
	}
	return "RELEASED"
}

// resolveWSBroker converts the --ws-broker flag value into a concrete URL.
// "=broker" derives ws://host:9001 from the TCP broker address; empty disables.
func resolveWSBroker(ws, broker string) string {
	if ws == "off" {
		return ""
	}
	if ws != "=broker" {
		return ws
	}
	u, err := url.Parse(broker)
	if err != nil {
		log.Printf("ws-broker: cannot parse --broker %q: %v", broker, err)
		return ""
	}
	u.Scheme = "ws"
	u.Host = u.Hostname() + ":9001"
	return u.String()
}
