package training

import (
	"fmt"

	"github.com/nerrad567/mixlogic-core/internal/decision"
)

// ExportTrainingData returns a snapshot of the full training state: engine
// knobs and weights, mode, counters, the last decision and the learning log.
func (m *Manager) ExportTrainingData() Snapshot {
	m.mu.RLock()
	snap := Snapshot{
		Version:            SnapshotVersion,
		ExportedAt:         m.clock().UTC(),
		Mode:               m.mode,
		Active:             m.active,
		TotalDecisions:     m.totalDecisions,
		CorrectPredictions: m.correctPredictions,
	}
	if m.lastDecision != nil {
		snap.LastDecision = m.lastDecision.Clone()
	}
	m.mu.RUnlock()

	snap.Settings = m.engine.Settings()
	snap.Weights = m.engine.Weights()
	snap.Learning = m.learning.Export()
	return snap
}

// ImportTrainingData replaces the training state with snap. The snapshot is
// validated before anything is changed.
func (m *Manager) ImportTrainingData(snap Snapshot) error {
	if snap.Version > SnapshotVersion {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, snap.Version)
	}
	mode := snap.Mode
	if mode == "" {
		mode = ModePassive
	}
	if _, ok := mode.Preset(); !ok {
		return fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}
	settings := snap.Settings
	if settings.Style == "" {
		settings.Style = decision.DefaultSettings().Style
	}
	if _, err := decision.ParseStyle(string(settings.Style)); err != nil {
		return err
	}

	if err := m.learning.Import(snap.Learning); err != nil {
		return fmt.Errorf("importing learning data: %w", err)
	}
	if err := m.engine.ApplySettings(settings); err != nil {
		return err
	}
	m.engine.SetWeights(snap.Weights)

	total := max(snap.TotalDecisions, 0)
	correct := min(max(snap.CorrectPredictions, 0), total)

	m.mu.Lock()
	m.mode = mode
	m.active = snap.Active
	m.totalDecisions = total
	m.correctPredictions = correct
	m.lastDecision = nil
	if snap.LastDecision != nil {
		m.lastDecision = snap.LastDecision.Clone()
	}
	m.suggestion = ""
	m.sinceRecalc = 0
	m.mu.Unlock()

	m.logger.Info("training data imported",
		"mode", mode,
		"total_decisions", total,
		"events", len(snap.Learning.Events),
	)
	m.notify()
	return nil
}
