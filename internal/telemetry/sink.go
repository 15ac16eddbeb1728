package telemetry

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/nerrad567/mixlogic-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/mixlogic-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/mixlogic-core/internal/session"
	"github.com/nerrad567/mixlogic-core/internal/training"
)

// DefaultSampleInterval is how often Run samples the session context.
const DefaultSampleInterval = 5 * time.Second

// contextQoS is at-most-once; a lost sample is replaced by the next one.
const contextQoS = 0

// MetricsWriter receives time-series points. *influxdb.Client satisfies it.
type MetricsWriter interface {
	WriteDecision(p influxdb.DecisionPoint)
	WriteTrainingStatus(p influxdb.TrainingPoint)
	WriteSessionEnergy(sessionID string, crowd, target float64)
}

// Publisher publishes MQTT messages. *mqtt.Client satisfies it.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	PublishRetained(topic string, payload []byte) error
}

// ContextSource supplies session snapshots. *session.Monitor satisfies it.
type ContextSource interface {
	Context() session.Context
}

// Logger defines the logging interface used by the Sink.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Sink writes training statuses and session samples to metrics and MQTT.
type Sink struct {
	sessionID string
	metrics   MetricsWriter
	pub       Publisher
	topics    mqtt.Topics
	logger    Logger

	mu             sync.Mutex
	lastDecisionID string
}

// NewSink creates a sink for one session. metrics and pub may be nil.
func NewSink(sessionID string, metrics MetricsWriter, pub Publisher) *Sink {
	return &Sink{
		sessionID: sessionID,
		metrics:   metrics,
		pub:       pub,
		logger:    noopLogger{},
	}
}

// SetLogger sets the logger for the sink.
func (s *Sink) SetLogger(logger Logger) {
	s.logger = logger
}

// Observe handles one training status update. It is shaped as a
// training.Observer.
//
// Every status becomes a training_status point and the retained status
// message. A decision is written once, the first time a status carries it.
func (s *Sink) Observe(st training.Status) {
	if st.LastDecision != nil && s.isNewDecision(st.LastDecision.ID) {
		d := st.LastDecision
		if s.metrics != nil {
			s.metrics.WriteDecision(influxdb.DecisionPoint{
				SessionID:  s.sessionID,
				DecisionID: d.ID,
				Action:     string(d.Action),
				Confidence: d.Confidence,
				Mode:       string(st.Mode),
				Time:       d.CreatedAt,
			})
		}
		s.publish(s.topics.Decision(), d, false)
	}

	if s.metrics != nil {
		s.metrics.WriteTrainingStatus(influxdb.TrainingPoint{
			SessionID:          s.sessionID,
			Mode:               string(st.Mode),
			Active:             st.Active,
			Progress:           st.Progress,
			Accuracy:           st.Accuracy,
			TotalDecisions:     st.TotalDecisions,
			CorrectPredictions: st.CorrectPredictions,
			Time:               st.UpdatedAt,
		})
	}
	s.publish(s.topics.TrainingStatus(), st, true)
}

func (s *Sink) isNewDecision(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id == s.lastDecisionID {
		return false
	}
	s.lastDecisionID = id
	return true
}

// Sample records one session context snapshot.
func (s *Sink) Sample(ctx session.Context) {
	if s.metrics != nil {
		s.metrics.WriteSessionEnergy(s.sessionID, ctx.CrowdEnergy, ctx.TargetEnergy)
	}
	s.publish(s.topics.SessionContext(), ctx, false)
}

// Run samples source every interval until ctx is cancelled.
func (s *Sink) Run(ctx context.Context, source ContextSource, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSampleInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sample(source.Context())
		}
	}
}

func (s *Sink) publish(topic string, v any, retained bool) {
	if s.pub == nil {
		return
	}
	payload, err := json.Marshal(v)
	if err != nil {
		s.logger.Warn("telemetry encode failed", "topic", topic, "error", err)
		return
	}

	if retained {
		err = s.pub.PublishRetained(topic, payload)
	} else {
		err = s.pub.Publish(topic, payload, contextQoS, false)
	}
	if err != nil {
		// Broker outages are expected; the next update retries.
		s.logger.Debug("telemetry publish failed", "topic", topic, "error", err)
	}
}
