package learning

import (
	"slices"
	"time"

	"github.com/nerrad567/mixlogic-core/internal/decision"
	"github.com/nerrad567/mixlogic-core/internal/session"
)

// Well-known event actions. Decision actions (start_mix, apply_effect, ...)
// may also be recorded directly.
const (
	ActionManualMix   = "manual_mix"
	ActionApproveAI   = "approve_ai"
	ActionRejectAI    = "reject_ai"
	ActionCorrectAI   = "correct_ai"
	ActionAutoExecute = "auto_execute"
)

// IsFeedback reports whether an action is operator feedback on an AI decision.
func IsFeedback(action string) bool {
	switch action {
	case ActionApproveAI, ActionRejectAI, ActionCorrectAI:
		return true
	default:
		return false
	}
}

// Choice is what the operator actually did.
type Choice struct {
	Action     string          `json:"action,omitempty" cbor:"action,omitempty"`
	Params     decision.Params `json:"params" cbor:"params"`
	Correction string          `json:"correction,omitempty" cbor:"correction,omitempty"`
}

// Outcome is the observed result of an action.
type Outcome struct {
	Success       bool     `json:"success" cbor:"success"`
	CrowdResponse *float64 `json:"crowd_response,omitempty" cbor:"crowd_response,omitempty"`
}

// Event is one entry in the append-only learning log. Events are never
// modified after they are recorded.
type Event struct {
	ID        string             `json:"id" cbor:"id"`
	Timestamp time.Time          `json:"timestamp" cbor:"timestamp"`
	Action    string             `json:"action" cbor:"action"`
	Context   session.Context    `json:"context" cbor:"context"`
	Prior     *decision.Decision `json:"prior,omitempty" cbor:"prior,omitempty"`
	Choice    Choice             `json:"choice" cbor:"choice"`
	Outcome   *Outcome           `json:"outcome,omitempty" cbor:"outcome,omitempty"`
}

// DeepCopy returns an independent copy of the event.
func (e Event) DeepCopy() Event {
	cpy := e
	cpy.Context = e.Context.DeepCopy()
	if e.Prior != nil {
		cpy.Prior = e.Prior.Clone()
	}
	if e.Choice.Params.Target != nil {
		v := *e.Choice.Params.Target
		cpy.Choice.Params.Target = &v
	}
	if e.Outcome != nil {
		o := *e.Outcome
		if o.CrowdResponse != nil {
			v := *o.CrowdResponse
			o.CrowdResponse = &v
		}
		cpy.Outcome = &o
	}
	return cpy
}

// success returns the success signal carried by an event, if any.
// An explicit outcome wins over feedback.
func (e Event) success() (bool, bool) {
	if e.Outcome != nil {
		return e.Outcome.Success, true
	}
	switch e.Action {
	case ActionApproveAI:
		return true, true
	case ActionRejectAI, ActionCorrectAI:
		return false, true
	default:
		return false, false
	}
}

// patternAction is the action a pattern is keyed under. Feedback counts
// towards the action of the decision it judged.
func (e Event) patternAction() string {
	if IsFeedback(e.Action) && e.Prior != nil {
		return string(e.Prior.Action)
	}
	return e.Action
}

// Pattern aggregates events sharing an action and context bucket.
type Pattern struct {
	Action      string    `json:"action" cbor:"action"`
	Bucket      string    `json:"bucket" cbor:"bucket"`
	Frequency   int       `json:"frequency" cbor:"frequency"`
	Outcomes    int       `json:"outcomes" cbor:"outcomes"`
	SuccessRate float64   `json:"success_rate" cbor:"success_rate"`
	LastSeen    time.Time `json:"last_seen" cbor:"last_seen"`
}

func patternKey(action, bucket string) string {
	return action + "|" + bucket
}

// Preferences is the single blended record of operator taste.
type Preferences struct {
	Style           decision.Style `json:"style" cbor:"style"`
	Genres          []string       `json:"genres" cbor:"genres"`   // most recent first, at most 5
	Effects         []string       `json:"effects" cbor:"effects"` // most recent first, at most 5
	TimingBias      float64        `json:"timing_bias" cbor:"timing_bias"`
	EnergyFlowBias  float64        `json:"energy_flow_bias" cbor:"energy_flow_bias"`
	AutomationTrust float64        `json:"automation_trust" cbor:"automation_trust"`
}

// DefaultPreferences returns the preferences of an untrained system.
func DefaultPreferences() Preferences {
	return Preferences{
		Style:           decision.StyleSmooth,
		Genres:          []string{},
		Effects:         []string{},
		TimingBias:      32,
		EnergyFlowBias:  0,
		AutomationTrust: 0.5,
	}
}

// DeepCopy returns an independent copy of the preferences.
func (p Preferences) DeepCopy() Preferences {
	cpy := p
	cpy.Genres = slices.Clone(p.Genres)
	cpy.Effects = slices.Clone(p.Effects)
	return cpy
}

// Counters are lifetime totals that survive log eviction.
type Counters struct {
	TotalEvents int `json:"total_events" cbor:"total_events"`
	Approvals   int `json:"approvals" cbor:"approvals"`
	Rejections  int `json:"rejections" cbor:"rejections"`
	Corrections int `json:"corrections" cbor:"corrections"`
}

// ActionCount is an action and how often it occurs in the log.
type ActionCount struct {
	Action string `json:"action"`
	Count  int    `json:"count"`
}

// Stats is a read-only aggregate view of the system.
type Stats struct {
	Counters
	StoredEvents  int           `json:"stored_events"`
	Patterns      int           `json:"patterns"`
	Progress      float64       `json:"progress"`
	ApprovalRatio float64       `json:"approval_ratio"`
	TopActions    []ActionCount `json:"top_actions"`
	Preferences   Preferences   `json:"preferences"`
}

// SnapshotVersion is the current snapshot format version.
const SnapshotVersion = 1

// Snapshot is the serialisable state of a System.
type Snapshot struct {
	Version     int         `json:"version" cbor:"version"`
	ExportedAt  time.Time   `json:"exported_at" cbor:"exported_at"`
	Counters    Counters    `json:"counters" cbor:"counters"`
	Events      []Event     `json:"events" cbor:"events"`
	Patterns    []Pattern   `json:"patterns" cbor:"patterns"`
	Preferences Preferences `json:"preferences" cbor:"preferences"`
}
