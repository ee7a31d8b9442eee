package status

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/sweeney/gpio-keys/internal/keys"
)

var trackerStart = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func testConfig() Config {
	return Config{
		PollMs:      10,
		HeartbeatMs: 900000,
		QueueCap:    20,
		Broker:      "tcp://192.168.1.200:1883",
		HTTPPort:    ":8080",
	}
}

func TestTrackerInitialSnapshot(t *testing.T) {
	tr := NewTracker(trackerStart, testConfig())

	snap := tr.Snapshot()
	if !snap.StartTime.Equal(trackerStart) {
		t.Errorf("StartTime: got %v, want %v", snap.StartTime, trackerStart)
	}
	if snap.Config.Broker != "tcp://192.168.1.200:1883" {
		t.Errorf("Broker: got %q", snap.Config.Broker)
	}
	if len(snap.Keys) != 0 {
		t.Errorf("Keys: got %d, want 0", len(snap.Keys))
	}
	if snap.Now.IsZero() {
		t.Error("Now should be set by Snapshot")
	}
}

func TestTrackerUpdate(t *testing.T) {
	tr := NewTracker(trackerStart, testConfig())

	ks := []keys.KeyInfo{
		{Pin: 17, Pressed: true, Enabled: true},
		{Pin: 27, Pressed: false, Enabled: false},
	}
	counts := keys.Counts{Pressed: 3, Released: 3, SingleClick: 2, DoubleClick: 1}
	tr.Update(ks, counts, 7)

	snap := tr.Snapshot()
	if len(snap.Keys) != 2 {
		t.Fatalf("Keys: got %d, want 2", len(snap.Keys))
	}
	if !snap.Keys[0].Pressed {
		t.Error("pin 17 should be pressed")
	}
	if snap.Counts.DoubleClick != 1 {
		t.Errorf("DoubleClick count: got %d, want 1", snap.Counts.DoubleClick)
	}
	if snap.QueueDropped != 7 {
		t.Errorf("QueueDropped: got %d, want 7", snap.QueueDropped)
	}
}

func TestTrackerSetters(t *testing.T) {
	tr := NewTracker(trackerStart, testConfig())

	tr.SetMQTTConnected(true)
	tr.SetNetwork(&NetworkInfo{Status: "connected", IP: "192.168.1.50"})

	snap := tr.Snapshot()
	if !snap.MQTTConnected {
		t.Error("MQTTConnected should be true")
	}
	if snap.Network == nil || snap.Network.IP != "192.168.1.50" {
		t.Errorf("Network: got %+v", snap.Network)
	}
}

func TestSnapshotIsolation(t *testing.T) {
	tr := NewTracker(trackerStart, testConfig())
	tr.Update([]keys.KeyInfo{{Pin: 1}}, keys.Counts{}, 0)

	snap := tr.Snapshot()
	tr.Update([]keys.KeyInfo{{Pin: 1, Pressed: true}}, keys.Counts{Pressed: 1}, 0)

	// The earlier snapshot must not observe the later update.
	if snap.Keys[0].Pressed {
		t.Error("snapshot mutated by later Update")
	}
	if snap.Counts.Pressed != 0 {
		t.Error("snapshot counts mutated by later Update")
	}
}

func TestFormatJSON(t *testing.T) {
	tr := NewTracker(trackerStart, testConfig())
	tr.Update([]keys.KeyInfo{{Pin: 17, Pressed: true, Enabled: true}}, keys.Counts{SingleClick: 4}, 2)
	tr.SetMQTTConnected(true)

	data := FormatJSON(tr.Snapshot())

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(parsed.Status.Keys) != 1 {
		t.Fatalf("keys: got %d, want 1", len(parsed.Status.Keys))
	}
	if parsed.Status.Keys[0].State != "PRESSED" {
		t.Errorf("key state: got %q, want PRESSED", parsed.Status.Keys[0].State)
	}
	if parsed.Status.Counts.SingleClick != 4 {
		t.Errorf("single_click: got %d, want 4", parsed.Status.Counts.SingleClick)
	}
	if parsed.Status.QueueDropped != 2 {
		t.Errorf("queue_dropped: got %d, want 2", parsed.Status.QueueDropped)
	}
	if !parsed.Status.MQTT.Connected {
		t.Error("mqtt.connected should be true")
	}
	if parsed.Status.Event != "" {
		t.Errorf("web JSON should not carry an event field, got %q", parsed.Status.Event)
	}
}

func TestFormatStatusEvent(t *testing.T) {
	tr := NewTracker(trackerStart, testConfig())

	data := FormatStatusEvent(tr.Snapshot(), "SHUTDOWN", "SIGTERM")

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Status.Event != "SHUTDOWN" {
		t.Errorf("event: got %q, want SHUTDOWN", parsed.Status.Event)
	}
	if parsed.Status.Reason != "SIGTERM" {
		t.Errorf("reason: got %q, want SIGTERM", parsed.Status.Reason)
	}
}

func TestFormatJSONNetwork(t *testing.T) {
	tr := NewTracker(trackerStart, testConfig())

	// Without network info the field is omitted.
	var parsed StatusJSON
	if err := json.Unmarshal(FormatJSON(tr.Snapshot()), &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Status.Network != nil {
		t.Error("network should be omitted when unset")
	}

	tr.SetNetwork(&NetworkInfo{Type: "wifi", Status: "connected", SSID: "HomeNet"})
	if err := json.Unmarshal(FormatJSON(tr.Snapshot()), &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Status.Network == nil || parsed.Status.Network.SSID != "HomeNet" {
		t.Errorf("network: got %+v", parsed.Status.Network)
	}
}
