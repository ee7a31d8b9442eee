package web

import (
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/gpio-keys/internal/keys"
	"github.com/sweeney/gpio-keys/internal/status"
)

func newTestTracker() *status.Tracker {
	tr := status.NewTracker(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC), status.Config{
		PollMs:   10,
		QueueCap: 20,
		Broker:   "tcp://broker:1883",
		HTTPPort: ":0",
	})
	tr.Update([]keys.KeyInfo{
		{Pin: 17, Pressed: true, Enabled: true},
		{Pin: 27, Pressed: false, Enabled: false},
	}, keys.Counts{Pressed: 2, Released: 1, SingleClick: 1}, 0)
	return tr
}

// startServer serves on an ephemeral port and returns the base URL.
func startServer(t *testing.T, tr *status.Tracker) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := New(ln.Addr().String(), tr)
	go srv.Serve(ln)
	t.Cleanup(func() { ln.Close() })

	return "http://" + ln.Addr().String()
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, string(body)
}

func TestIndexPage(t *testing.T) {
	base := startServer(t, newTestTracker())

	code, body := get(t, base+"/")
	if code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", code)
	}
	if !strings.Contains(body, "GPIO 17") {
		t.Error("page missing key row for pin 17")
	}
	if !strings.Contains(body, "PRESSED") {
		t.Error("page missing pressed state")
	}
	if !strings.Contains(body, "DISABLED") {
		t.Error("page missing disabled state for pin 27")
	}
	if !strings.Contains(body, "tcp://broker:1883") {
		t.Error("page missing broker address")
	}
}

func TestIndexJSON(t *testing.T) {
	base := startServer(t, newTestTracker())

	code, body := get(t, base+"/index.json")
	if code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", code)
	}

	var parsed status.StatusJSON
	if err := json.Unmarshal([]byte(body), &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(parsed.Status.Keys) != 2 {
		t.Fatalf("keys: got %d, want 2", len(parsed.Status.Keys))
	}
	if parsed.Status.Keys[0].Pin != 17 || parsed.Status.Keys[0].State != "PRESSED" {
		t.Errorf("key 0: got %+v", parsed.Status.Keys[0])
	}
	if parsed.Status.Counts.Pressed != 2 {
		t.Errorf("pressed count: got %d, want 2", parsed.Status.Counts.Pressed)
	}
}

func TestNotFound(t *testing.T) {
	base := startServer(t, newTestTracker())

	code, _ := get(t, base+"/other")
	if code != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", code)
	}
}

func TestRenderHTMLEmptyTracker(t *testing.T) {
	tr := status.NewTracker(time.Now(), status.Config{})

	var sb strings.Builder
	renderHTML(&sb, tr.Snapshot())
	if !strings.Contains(sb.String(), "GPIO Keys") {
		t.Error("render with no keys should still produce the page")
	}
}
