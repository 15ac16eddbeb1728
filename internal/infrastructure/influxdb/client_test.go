package influxdb_test

import (
	"compress/gzip"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/mixlogic-core/internal/infrastructure/config"
	"github.com/nerrad567/mixlogic-core/internal/infrastructure/influxdb"
)

// ─── Fake InfluxDB server ───────────────────────────────────────────

// fakeInflux answers /ping and records line protocol posted to /api/v2/write.
type fakeInflux struct {
	srv *httptest.Server

	mu         sync.Mutex
	lines      []string
	healthy    bool
	rejectData bool
}

func newFakeInflux(t *testing.T) *fakeInflux {
	t.Helper()
	f := &fakeInflux{healthy: true}
	f.srv = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeInflux) handle(w http.ResponseWriter, r *http.Request) {
	switch {
	case strings.HasSuffix(r.URL.Path, "/ping"):
		f.mu.Lock()
		healthy := f.healthy
		f.mu.Unlock()
		if !healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	case strings.HasSuffix(r.URL.Path, "/write"):
		f.mu.Lock()
		reject := f.rejectData
		f.mu.Unlock()
		if reject {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"code":"invalid","message":"unable to parse points"}`)
			return
		}
		var body io.Reader = r.Body
		if r.Header.Get("Content-Encoding") == "gzip" {
			gz, err := gzip.NewReader(r.Body)
			if err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			defer gz.Close()
			body = gz
		}
		data, err := io.ReadAll(body)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
			if line != "" {
				f.lines = append(f.lines, line)
			}
		}
		f.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeInflux) setHealthy(ok bool) {
	f.mu.Lock()
	f.healthy = ok
	f.mu.Unlock()
}

// waitForLine polls until a recorded line starts with prefix.
func (f *fakeInflux) waitForLine(t *testing.T, prefix string) string {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		f.mu.Lock()
		for _, line := range f.lines {
			if strings.HasPrefix(line, prefix) {
				f.mu.Unlock()
				return line
			}
		}
		f.mu.Unlock()
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("no line with prefix %q written", prefix)
	return ""
}

func testConfig(url string) config.InfluxDBConfig {
	return config.InfluxDBConfig{
		Enabled:       true,
		URL:           url,
		Token:         "mixlogic-test-token",
		Org:           "mixlogic",
		Bucket:        "sessions",
		BatchSize:     100,
		FlushInterval: 1,
	}
}

func connect(t *testing.T, f *fakeInflux) *influxdb.Client {
	t.Helper()
	client, err := influxdb.Connect(testConfig(f.srv.URL))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

// =============================================================================
// Connection Tests
// =============================================================================

func TestConnect(t *testing.T) {
	client := connect(t, newFakeInflux(t))

	if !client.IsConnected() {
		t.Error("IsConnected() = false after Connect()")
	}
}

func TestConnect_Disabled(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:8086")
	cfg.Enabled = false

	_, err := influxdb.Connect(cfg)
	if !errors.Is(err, influxdb.ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnect_Unreachable(t *testing.T) {
	f := newFakeInflux(t)
	url := f.srv.URL
	f.srv.Close()

	_, err := influxdb.Connect(testConfig(url))
	if !errors.Is(err, influxdb.ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestConnect_Unhealthy(t *testing.T) {
	f := newFakeInflux(t)
	f.setHealthy(false)

	_, err := influxdb.Connect(testConfig(f.srv.URL))
	if !errors.Is(err, influxdb.ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestConnect_DefaultBatchSettings(t *testing.T) {
	tests := []struct {
		name          string
		batchSize     int
		flushInterval int
	}{
		{"zero", 0, 0},
		{"negative", -5, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeInflux(t)
			cfg := testConfig(f.srv.URL)
			cfg.BatchSize = tt.batchSize
			cfg.FlushInterval = tt.flushInterval

			client, err := influxdb.Connect(cfg)
			if err != nil {
				t.Fatalf("Connect() error = %v", err)
			}
			defer client.Close()

			if !client.IsConnected() {
				t.Error("IsConnected() = false with default batch settings")
			}
		})
	}
}

// =============================================================================
// Health Check Tests
// =============================================================================

func TestHealthCheck(t *testing.T) {
	f := newFakeInflux(t)
	client := connect(t, f)

	if err := client.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}

	f.setHealthy(false)
	if err := client.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck() should fail when the server is unhealthy")
	}
}

func TestHealthCheck_Cancelled(t *testing.T) {
	client := connect(t, newFakeInflux(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := client.HealthCheck(ctx); err == nil {
		t.Error("HealthCheck() should return error for cancelled context")
	}
}

func TestHealthCheck_AfterClose(t *testing.T) {
	client := connect(t, newFakeInflux(t))
	client.Close()

	if err := client.HealthCheck(context.Background()); !errors.Is(err, influxdb.ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}
}

// =============================================================================
// Write Tests
// =============================================================================

func TestWriteDecision(t *testing.T) {
	f := newFakeInflux(t)
	client := connect(t, f)

	client.WriteDecision(influxdb.DecisionPoint{
		SessionID:  "friday",
		DecisionID: "d-1",
		Action:     "start_mix",
		Confidence: 0.91,
		Mode:       "active",
		Time:       time.Unix(1700000000, 0),
	})
	client.Flush()

	line := f.waitForLine(t, "decisions,")
	for _, want := range []string{"action=start_mix", "mode=active", "session_id=friday", `decision_id="d-1"`, "confidence=0.91", "1700000000000000000"} {
		if !strings.Contains(line, want) {
			t.Errorf("line %q missing %q", line, want)
		}
	}
}

func TestWriteTrainingStatus(t *testing.T) {
	f := newFakeInflux(t)
	client := connect(t, f)

	client.WriteTrainingStatus(influxdb.TrainingPoint{
		SessionID:          "friday",
		Mode:               "autonomous",
		Active:             true,
		Progress:           0.5,
		Accuracy:           0.75,
		TotalDecisions:     4,
		CorrectPredictions: 3,
	})
	client.Flush()

	line := f.waitForLine(t, "training_status,")
	for _, want := range []string{"mode=autonomous", "active=t", "accuracy=0.75", "total_decisions=4i", "correct_predictions=3i"} {
		if !strings.Contains(line, want) {
			t.Errorf("line %q missing %q", line, want)
		}
	}
}

func TestWriteSessionEnergy(t *testing.T) {
	f := newFakeInflux(t)
	client := connect(t, f)

	client.WriteSessionEnergy("friday", 0.6, 0.8)
	client.Flush()

	line := f.waitForLine(t, "session_energy,")
	if !strings.Contains(line, "crowd=0.6") || !strings.Contains(line, "target=0.8") {
		t.Errorf("line = %q", line)
	}
}

func TestWritePointWithTime(t *testing.T) {
	f := newFakeInflux(t)
	client := connect(t, f)

	client.WritePointWithTime("custom",
		map[string]string{"deck": "A"},
		map[string]interface{}{"bpm": 128.0},
		time.Unix(1700000000, 0),
	)
	client.Flush()

	line := f.waitForLine(t, "custom,")
	if !strings.Contains(line, "deck=A") || !strings.HasSuffix(line, "1700000000000000000") {
		t.Errorf("line = %q", line)
	}
}

func TestWriteAfterCloseIsDropped(t *testing.T) {
	f := newFakeInflux(t)
	client := connect(t, f)
	client.Close()

	client.WriteSessionEnergy("friday", 0.1, 0.2)
	client.Flush()
	time.Sleep(50 * time.Millisecond)

	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.lines) != 0 {
		t.Errorf("lines after close = %v, want none", f.lines)
	}
}

func TestWriteErrors_Reported(t *testing.T) {
	f := newFakeInflux(t)
	f.mu.Lock()
	f.rejectData = true
	f.mu.Unlock()
	client := connect(t, f)

	errCh := make(chan error, 1)
	client.SetOnError(func(err error) {
		select {
		case errCh <- err:
		default:
		}
	})

	client.WriteSessionEnergy("friday", 0.4, 0.6)
	client.Flush()

	select {
	case err := <-errCh:
		if !errors.Is(err, influxdb.ErrWriteFailed) {
			t.Errorf("onError(%v), want ErrWriteFailed", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("onError not called for rejected write")
	}

	queued, failed := client.Stats()
	if queued != 1 {
		t.Errorf("queued = %d, want 1", queued)
	}
	if failed != 1 {
		t.Errorf("failed = %d, want 1", failed)
	}
}

// =============================================================================
// Close Tests
// =============================================================================

func TestClose_Flushes(t *testing.T) {
	f := newFakeInflux(t)
	client, err := influxdb.Connect(testConfig(f.srv.URL))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	client.WritePoint("close_test", map[string]string{"k": "v"}, map[string]interface{}{"value": 1.0})
	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if client.IsConnected() {
		t.Error("IsConnected() = true after Close()")
	}

	f.waitForLine(t, "close_test,")
}

func TestClose_Nil(t *testing.T) {
	var client *influxdb.Client
	if err := client.Close(); err != nil {
		t.Errorf("Close() on nil client error = %v", err)
	}
}
