package api

import (
	"bytes"
	"errors"
	"net/http"
	"strings"

	"github.com/nerrad567/mixlogic-core/internal/compat"
	"github.com/nerrad567/mixlogic-core/internal/decision"
	"github.com/nerrad567/mixlogic-core/internal/learning"
	"github.com/nerrad567/mixlogic-core/internal/training"
)

// Content types for training snapshots.
const (
	contentTypeJSON = "application/json"
	contentTypeCBOR = "application/cbor"
)

// DecisionResponse is returned by the decision endpoints.
type DecisionResponse struct {
	Decision   decision.Decision `json:"decision"`
	Suggestion string            `json:"suggestion,omitempty"`
	Executed   bool              `json:"executed"`
}

// CorrectionRequest is the body of POST /decision/correct.
type CorrectionRequest struct {
	Action string          `json:"action,omitempty"`
	Params decision.Params `json:"params"`
	Reason string          `json:"reason,omitempty"`
}

// ActionRequest is the body of POST /actions.
type ActionRequest struct {
	Action  string            `json:"action"`
	Choice  learning.Choice   `json:"choice"`
	Outcome *learning.Outcome `json:"outcome,omitempty"`
}

// ModeRequest is the body of PUT /mode.
type ModeRequest struct {
	Mode string `json:"mode"`
}

// ActiveRequest is the body of PUT /active.
type ActiveRequest struct {
	Active *bool `json:"active"`
}

// StyleRequest is the body of PUT /style.
type StyleRequest struct {
	Style string `json:"style"`
}

// StatsResponse combines the training status with learning statistics.
type StatsResponse struct {
	Training training.Status `json:"training"`
	Learning learning.Stats  `json:"learning"`
}

// handleGetDecision returns the last decision.
func (s *Server) handleGetDecision(w http.ResponseWriter, _ *http.Request) {
	d, ok := s.manager.LastDecision()
	if !ok {
		writeNotFound(w, "no decision has been made")
		return
	}
	writeJSON(w, http.StatusOK, DecisionResponse{
		Decision:   d,
		Suggestion: s.manager.Status().Suggestion,
	})
}

// handleDecide asks the engine for a decision on the live session.
func (s *Server) handleDecide(w http.ResponseWriter, _ *http.Request) {
	d := s.manager.Decide(s.monitor.Context())
	writeJSON(w, http.StatusOK, DecisionResponse{
		Decision:   d,
		Suggestion: s.manager.Status().Suggestion,
	})
}

// handleApprove records approval of the last decision. In active mode the
// approved decision is also executed.
func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	d, ok := s.manager.LastDecision()
	if !ok || !s.manager.ApproveDecision() {
		writeConflict(w, "no decision to approve")
		return
	}

	st := s.manager.Status()
	executed := false
	if st.Active && st.Mode == training.ModeActive && d.Action != decision.ActionWait {
		executed = s.manager.ExecuteLastDecision(r.Context())
		if !executed {
			s.logger.Warn("approved decision not executed", "decision_id", d.ID, "action", d.Action)
		}
	}

	writeJSON(w, http.StatusOK, DecisionResponse{Decision: d, Executed: executed})
}

// handleReject records rejection of the last decision.
func (s *Server) handleReject(w http.ResponseWriter, _ *http.Request) {
	d, ok := s.manager.LastDecision()
	if !ok || !s.manager.RejectDecision() {
		writeConflict(w, "no decision to reject")
		return
	}
	writeJSON(w, http.StatusOK, DecisionResponse{Decision: d})
}

// handleCorrect records the operator's replacement for the last decision.
func (s *Server) handleCorrect(w http.ResponseWriter, r *http.Request) {
	var req CorrectionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	c := training.Correction{Params: req.Params, Reason: req.Reason}
	if req.Action != "" {
		action, err := decision.ParseAction(req.Action)
		if err != nil {
			writeValidationError(w, err.Error())
			return
		}
		c.Action = action
	}

	d, ok := s.manager.LastDecision()
	if !ok || !s.manager.CorrectDecision(c) {
		writeConflict(w, "no decision to correct")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"decision": d,
		"weights":  s.manager.Engine().Weights(),
	})
}

// handleExecute hands the last decision to the automation executor.
func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	d, ok := s.manager.LastDecision()
	if !ok {
		writeConflict(w, "no decision to execute")
		return
	}
	if !s.manager.ExecuteLastDecision(r.Context()) {
		writeError(w, http.StatusBadGateway, ErrCodeUpstream, "decision execution failed")
		return
	}
	writeJSON(w, http.StatusOK, DecisionResponse{Decision: d, Executed: true})
}

// handleRecordAction records something the operator did on the console.
func (s *Server) handleRecordAction(w http.ResponseWriter, r *http.Request) {
	var req ActionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Action = strings.TrimSpace(req.Action)
	if req.Action == "" {
		writeBadRequest(w, "action is required")
		return
	}

	ev, err := s.manager.RecordUserAction(req.Action, s.monitor.Context(), req.Choice, req.Outcome)
	if err != nil {
		if errors.Is(err, learning.ErrEmptyAction) {
			writeBadRequest(w, err.Error())
			return
		}
		s.logger.Error("recording user action failed", "action", req.Action, "error", err)
		writeInternalError(w, "failed to record action")
		return
	}
	s.monitor.RecordAction(req.Action, req.Choice.Params.Deck)

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":        ev.ID,
		"action":    ev.Action,
		"timestamp": ev.Timestamp,
	})
}

// handleGetMode returns the operating mode and whether the manager is active.
func (s *Server) handleGetMode(w http.ResponseWriter, _ *http.Request) {
	st := s.manager.Status()
	writeJSON(w, http.StatusOK, map[string]any{
		"mode":      st.Mode,
		"is_active": st.Active,
	})
}

// handleSetMode switches the operating mode.
func (s *Server) handleSetMode(w http.ResponseWriter, r *http.Request) {
	var req ModeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	mode, err := training.ParseMode(req.Mode)
	if err != nil {
		writeValidationError(w, err.Error())
		return
	}
	if err := s.manager.SetMode(mode); err != nil {
		writeValidationError(w, err.Error())
		return
	}
	s.handleGetMode(w, r)
}

// handleSetActive turns the manager on or off.
func (s *Server) handleSetActive(w http.ResponseWriter, r *http.Request) {
	var req ActiveRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Active == nil {
		writeBadRequest(w, "active is required")
		return
	}
	s.manager.SetActive(*req.Active)
	s.handleGetMode(w, r)
}

// handleSetStyle changes the mixing style.
func (s *Server) handleSetStyle(w http.ResponseWriter, r *http.Request) {
	var req StyleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	style, err := decision.ParseStyle(req.Style)
	if err != nil {
		writeValidationError(w, err.Error())
		return
	}
	if err := s.manager.SetStyle(style); err != nil {
		writeValidationError(w, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.manager.Engine().Settings())
}

// handleStats returns training and learning statistics.
func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, StatsResponse{
		Training: s.manager.Status(),
		Learning: s.manager.Learning().Stats(),
	})
}

// handleGetWeights returns the current and recommended decision weights.
func (s *Server) handleGetWeights(w http.ResponseWriter, _ *http.Request) {
	learn := s.manager.Learning()
	writeJSON(w, http.StatusOK, map[string]any{
		"weights":         s.manager.Engine().Weights(),
		"recommended":     learn.RecommendedWeights(),
		"can_recommend":   learn.CanRecommend(),
		"default_weights": compat.DefaultWeights(),
	})
}

// handleSetWeights replaces the decision weights. They are renormalised.
func (s *Server) handleSetWeights(w http.ResponseWriter, r *http.Request) {
	var req compat.Weights
	if !decodeJSON(w, r, &req) {
		return
	}
	for _, v := range []float64{req.BPM, req.Key, req.Energy, req.Genre, req.Timing, req.CrowdResponse} {
		if v < 0 {
			writeValidationError(w, "weights must be non-negative")
			return
		}
	}
	if req.Sum() == 0 {
		writeValidationError(w, "at least one weight must be positive")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"weights": s.manager.SetWeights(req)})
}

// handleApplyRecommendedWeights applies the learning system's weights.
func (s *Server) handleApplyRecommendedWeights(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"weights":       s.manager.ApplyRecommendedWeights(),
		"can_recommend": s.manager.Learning().CanRecommend(),
	})
}

// snapshotEncoding picks the encoding from ?format=, then the Accept or
// Content-Type header, then the server default.
func (s *Server) snapshotEncoding(r *http.Request, header string) (training.Encoding, error) {
	if f := r.URL.Query().Get("format"); f != "" {
		return training.ParseEncoding(f)
	}
	switch {
	case strings.Contains(r.Header.Get(header), contentTypeCBOR):
		return training.EncodingCBOR, nil
	case strings.Contains(r.Header.Get(header), contentTypeJSON):
		return training.EncodingJSON, nil
	}
	return s.encoding, nil
}

func contentType(enc training.Encoding) string {
	if enc == training.EncodingCBOR {
		return contentTypeCBOR
	}
	return contentTypeJSON
}

// handleExportTraining streams the full training snapshot.
func (s *Server) handleExportTraining(w http.ResponseWriter, r *http.Request) {
	enc, err := s.snapshotEncoding(r, "Accept")
	if err != nil {
		writeValidationError(w, err.Error())
		return
	}

	var buf bytes.Buffer
	if err := training.Encode(&buf, s.manager.ExportTrainingData(), enc); err != nil {
		s.logger.Error("exporting training data failed", "error", err)
		writeInternalError(w, "failed to export training data")
		return
	}

	w.Header().Set("Content-Type", contentType(enc))
	w.Header().Set("Content-Disposition", `attachment; filename="mixlogic-training.`+string(enc)+`"`)
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck // Best-effort write to response; connection may be closed
	w.Write(buf.Bytes())
}

// handleImportTraining replaces the training state with an uploaded snapshot.
func (s *Server) handleImportTraining(w http.ResponseWriter, r *http.Request) {
	enc, err := s.snapshotEncoding(r, "Content-Type")
	if err != nil {
		writeValidationError(w, err.Error())
		return
	}

	snap, err := training.Decode(r.Body, enc)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if err := s.manager.ImportTrainingData(snap); err != nil {
		writeValidationError(w, err.Error())
		return
	}

	s.logger.Info("training data imported",
		"encoding", enc,
		"events", len(snap.Learning.Events),
	)
	writeJSON(w, http.StatusOK, s.manager.Status())
}
