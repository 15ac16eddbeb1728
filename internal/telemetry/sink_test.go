package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/mixlogic-core/internal/decision"
	"github.com/nerrad567/mixlogic-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/mixlogic-core/internal/session"
	"github.com/nerrad567/mixlogic-core/internal/training"
)

// ─── Mock Dependencies ──────────────────────────────────────────────

type mockMetrics struct {
	mu        sync.Mutex
	decisions []influxdb.DecisionPoint
	statuses  []influxdb.TrainingPoint
	energies  [][2]float64
}

func (m *mockMetrics) WriteDecision(p influxdb.DecisionPoint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decisions = append(m.decisions, p)
}

func (m *mockMetrics) WriteTrainingStatus(p influxdb.TrainingPoint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses = append(m.statuses, p)
}

func (m *mockMetrics) WriteSessionEnergy(_ string, crowd, target float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.energies = append(m.energies, [2]float64{crowd, target})
}

func (m *mockMetrics) energyCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.energies)
}

type published struct {
	topic    string
	payload  []byte
	retained bool
}

type mockPublisher struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (p *mockPublisher) Publish(topic string, payload []byte, _ byte, retained bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, published{topic, payload, retained})
	return p.err
}

func (p *mockPublisher) PublishRetained(topic string, payload []byte) error {
	return p.Publish(topic, payload, 1, true)
}

func (p *mockPublisher) byTopic(topic string) []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []published
	for _, m := range p.msgs {
		if m.topic == topic {
			out = append(out, m)
		}
	}
	return out
}

type staticSource struct{ ctx session.Context }

func (s staticSource) Context() session.Context { return s.ctx }

func statusWithDecision(id string) training.Status {
	d := decision.Decision{
		ID:         id,
		Action:     decision.ActionStartMix,
		Confidence: 0.9,
		CreatedAt:  time.Unix(1700000000, 0).UTC(),
	}
	return training.Status{
		Mode:               training.ModeActive,
		Active:             true,
		TotalDecisions:     4,
		CorrectPredictions: 3,
		Accuracy:           0.75,
		LastDecision:       &d,
		UpdatedAt:          time.Unix(1700000001, 0).UTC(),
	}
}

// =============================================================================
// Observe Tests
// =============================================================================

func TestSink_ObserveWritesDecisionOnce(t *testing.T) {
	metrics := &mockMetrics{}
	pub := &mockPublisher{}
	sink := NewSink("friday", metrics, pub)

	sink.Observe(statusWithDecision("d-1"))
	sink.Observe(statusWithDecision("d-1"))
	sink.Observe(statusWithDecision("d-2"))

	if len(metrics.decisions) != 2 {
		t.Fatalf("decision points = %d, want 2", len(metrics.decisions))
	}
	got := metrics.decisions[0]
	if got.SessionID != "friday" || got.DecisionID != "d-1" || got.Action != "start_mix" || got.Mode != "active" {
		t.Errorf("decision point = %+v", got)
	}
	if len(metrics.statuses) != 3 {
		t.Errorf("status points = %d, want 3", len(metrics.statuses))
	}
	if len(pub.byTopic("mixlogic/core/decision")) != 2 {
		t.Errorf("decision messages = %d, want 2", len(pub.byTopic("mixlogic/core/decision")))
	}
}

func TestSink_ObservePublishesRetainedStatus(t *testing.T) {
	pub := &mockPublisher{}
	sink := NewSink("friday", nil, pub)

	sink.Observe(statusWithDecision("d-1"))

	msgs := pub.byTopic("mixlogic/core/training/status")
	if len(msgs) != 1 {
		t.Fatalf("status messages = %d, want 1", len(msgs))
	}
	if !msgs[0].retained {
		t.Error("status message not retained")
	}

	var body map[string]any
	if err := json.Unmarshal(msgs[0].payload, &body); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if body["mode"] != "active" || body["is_active"] != true {
		t.Errorf("payload = %v", body)
	}
}

func TestSink_TrainingPointFields(t *testing.T) {
	metrics := &mockMetrics{}
	sink := NewSink("friday", metrics, nil)

	st := statusWithDecision("d-1")
	st.Progress = 0.4
	sink.Observe(st)

	p := metrics.statuses[0]
	if p.Mode != "active" || !p.Active || p.Accuracy != 0.75 || p.Progress != 0.4 ||
		p.TotalDecisions != 4 || p.CorrectPredictions != 3 || !p.Time.Equal(st.UpdatedAt) {
		t.Errorf("training point = %+v", p)
	}
}

func TestSink_ObserveWithoutDecision(t *testing.T) {
	metrics := &mockMetrics{}
	pub := &mockPublisher{}
	sink := NewSink("friday", metrics, pub)

	sink.Observe(training.Status{Mode: training.ModePassive})

	if len(metrics.decisions) != 0 {
		t.Errorf("decision points = %d, want 0", len(metrics.decisions))
	}
	if len(pub.byTopic("mixlogic/core/decision")) != 0 {
		t.Error("decision published without a decision")
	}
	if len(metrics.statuses) != 1 {
		t.Errorf("status points = %d, want 1", len(metrics.statuses))
	}
}

func TestSink_NilOutputs(t *testing.T) {
	sink := NewSink("friday", nil, nil)

	// Neither call may panic.
	sink.Observe(statusWithDecision("d-1"))
	sink.Sample(session.Context{CrowdEnergy: 0.5})
}

func TestSink_PublishErrorIgnored(t *testing.T) {
	metrics := &mockMetrics{}
	pub := &mockPublisher{err: errors.New("broker down")}
	sink := NewSink("friday", metrics, pub)

	sink.Observe(statusWithDecision("d-1"))

	if len(metrics.statuses) != 1 {
		t.Errorf("status points = %d, want 1 despite publish failure", len(metrics.statuses))
	}
}

// =============================================================================
// Sampling Tests
// =============================================================================

func TestSink_Sample(t *testing.T) {
	metrics := &mockMetrics{}
	pub := &mockPublisher{}
	sink := NewSink("friday", metrics, pub)

	sink.Sample(session.Context{CrowdEnergy: 0.6, TargetEnergy: 0.8})

	if len(metrics.energies) != 1 || metrics.energies[0] != [2]float64{0.6, 0.8} {
		t.Errorf("energies = %v", metrics.energies)
	}
	msgs := pub.byTopic("mixlogic/core/session/context")
	if len(msgs) != 1 || msgs[0].retained {
		t.Fatalf("context messages = %+v, want one non-retained", msgs)
	}
	var body map[string]any
	if err := json.Unmarshal(msgs[0].payload, &body); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if body["crowd_energy"] != 0.6 {
		t.Errorf("crowd_energy = %v", body["crowd_energy"])
	}
}

func TestSink_RunSamplesUntilCancelled(t *testing.T) {
	metrics := &mockMetrics{}
	sink := NewSink("friday", metrics, nil)
	source := staticSource{ctx: session.Context{CrowdEnergy: 0.5, TargetEnergy: 0.7}}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sink.Run(ctx, source, 5*time.Millisecond)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for metrics.energyCount() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
	if metrics.energyCount() < 2 {
		t.Errorf("samples = %d, want at least 2", metrics.energyCount())
	}
}
