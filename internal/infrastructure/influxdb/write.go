package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names written by MixLogic Core.
const (
	MeasurementDecisions      = "decisions"
	MeasurementTrainingStatus = "training_status"
	MeasurementSessionEnergy  = "session_energy"
)

// DecisionPoint describes one engine decision.
type DecisionPoint struct {
	SessionID  string
	DecisionID string
	Action     string
	Confidence float64
	Mode       string
	Time       time.Time
}

// TrainingPoint describes the training manager's state at one instant.
type TrainingPoint struct {
	SessionID          string
	Mode               string
	Active             bool
	Progress           float64
	Accuracy           float64
	TotalDecisions     int
	CorrectPredictions int
	Time               time.Time
}

// WriteDecision records a decision made by the engine.
//
// The action and mode are tags so dashboards can group by them; the
// decision ID is a field to keep series cardinality bounded.
func (c *Client) WriteDecision(p DecisionPoint) {
	c.write(decisionPoint(p))
}

func decisionPoint(p DecisionPoint) *write.Point {
	return write.NewPoint(
		MeasurementDecisions,
		map[string]string{
			"session_id": p.SessionID,
			"action":     p.Action,
			"mode":       p.Mode,
		},
		map[string]interface{}{
			"decision_id": p.DecisionID,
			"confidence":  p.Confidence,
		},
		pointTime(p.Time),
	)
}

// WriteTrainingStatus records a training status update.
func (c *Client) WriteTrainingStatus(p TrainingPoint) {
	c.write(trainingPoint(p))
}

func trainingPoint(p TrainingPoint) *write.Point {
	return write.NewPoint(
		MeasurementTrainingStatus,
		map[string]string{
			"session_id": p.SessionID,
			"mode":       p.Mode,
		},
		map[string]interface{}{
			"active":              p.Active,
			"progress":            p.Progress,
			"accuracy":            p.Accuracy,
			"total_decisions":     p.TotalDecisions,
			"correct_predictions": p.CorrectPredictions,
		},
		pointTime(p.Time),
	)
}

// WriteSessionEnergy records the crowd energy against its target, both in
// [0,1].
func (c *Client) WriteSessionEnergy(sessionID string, crowd, target float64) {
	c.write(write.NewPoint(
		MeasurementSessionEnergy,
		map[string]string{"session_id": sessionID},
		map[string]interface{}{"crowd": crowd, "target": target},
		time.Now(),
	))
}

// WritePoint writes an ad hoc measurement stamped now.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	c.WritePointWithTime(measurement, tags, fields, time.Now())
}

// WritePointWithTime writes an ad hoc measurement at timestamp.
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	c.write(write.NewPoint(measurement, tags, fields, timestamp))
}

func pointTime(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}
