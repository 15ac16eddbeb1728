package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/nerrad567/mixlogic-core/internal/automation"
	"github.com/nerrad567/mixlogic-core/internal/session"
)

// defaultFadeDuration applies when a fade request leaves duration out.
const defaultFadeDuration = 4 * time.Second

// FadeRequest is the body of POST /control/fade.
type FadeRequest struct {
	// Target is A, B or master.
	Target string   `json:"target"`
	Level  *float64 `json:"level"`
	// DurationSec defaults to 4 seconds.
	DurationSec float64 `json:"duration_sec,omitempty"`
}

// EnergyTransitionRequest is the body of POST /control/energy-transition.
// Deck defaults to the active deck and Target to the session target energy.
type EnergyTransitionRequest struct {
	Deck   session.DeckID `json:"deck,omitempty"`
	Target *float64       `json:"target,omitempty"`
}

// handleEmergencyStop halts playback through the control surface and
// deactivates the training manager so nothing is executed afterwards.
func (s *Server) handleEmergencyStop(w http.ResponseWriter, r *http.Request) {
	if s.executor == nil {
		writeUnavailable(w, "no control surface configured")
		return
	}

	s.manager.SetActive(false)
	if err := s.executor.EmergencyStop(r.Context()); err != nil {
		s.logger.Error("emergency stop failed", "error", err)
		writeError(w, http.StatusBadGateway, ErrCodeUpstream, "emergency stop failed: "+err.Error())
		return
	}

	s.logger.Warn("emergency stop executed", "request_id", r.Context().Value(ctxKeyRequestID))
	writeJSON(w, http.StatusOK, map[string]any{
		"stopped":   true,
		"is_active": false,
	})
}

// handleFade starts a volume fade on a channel or the master output. The
// fade runs in the background; the response only confirms it started.
func (s *Server) handleFade(w http.ResponseWriter, r *http.Request) {
	if s.executor == nil {
		writeUnavailable(w, "no control surface configured")
		return
	}

	var req FadeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	target, err := automation.ParseTarget(normalizeTarget(req.Target))
	if err != nil {
		writeBadRequest(w, "target must be A, B or master")
		return
	}
	if req.Level == nil {
		writeBadRequest(w, "level is required")
		return
	}
	if *req.Level < 0 || *req.Level > 1 {
		writeValidationError(w, "level must be between 0 and 1")
		return
	}
	if req.DurationSec < 0 {
		writeValidationError(w, "duration_sec must not be negative")
		return
	}
	duration := defaultFadeDuration
	if req.DurationSec > 0 {
		duration = time.Duration(req.DurationSec * float64(time.Second))
	}

	if _, err := s.executor.FadeVolume(target, *req.Level, duration); err != nil {
		if errors.Is(err, automation.ErrInvalidTarget) {
			writeBadRequest(w, err.Error())
			return
		}
		s.logger.Error("fade failed", "target", target, "error", err)
		writeError(w, http.StatusBadGateway, ErrCodeUpstream, "fade failed: "+err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"target":       target,
		"level":        *req.Level,
		"duration_sec": duration.Seconds(),
	})
}

// handleEnergyTransition shapes a deck toward an energy level with EQ,
// filter and effects.
func (s *Server) handleEnergyTransition(w http.ResponseWriter, r *http.Request) {
	if s.executor == nil {
		writeUnavailable(w, "no control surface configured")
		return
	}

	var req EnergyTransitionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ctx := s.monitor.Context()
	deck := session.DeckID(strings.ToUpper(string(req.Deck)))
	if deck == "" {
		deck = ctx.ActiveDeck
	}
	if !deck.Valid() {
		writeBadRequest(w, "deck must be A or B")
		return
	}
	target := ctx.TargetEnergy
	if req.Target != nil {
		target = *req.Target
	}
	if target < 0 || target > 1 {
		writeValidationError(w, "target must be between 0 and 1")
		return
	}

	if err := s.executor.EnergyTransition(r.Context(), deck, target); err != nil {
		s.logger.Error("energy transition failed", "deck", deck, "error", err)
		writeError(w, http.StatusBadGateway, ErrCodeUpstream, "energy transition failed: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"deck":   deck,
		"target": target,
	})
}

// normalizeTarget accepts deck targets in either case and "Master".
func normalizeTarget(s string) string {
	if strings.EqualFold(s, string(automation.TargetMaster)) {
		return string(automation.TargetMaster)
	}
	return strings.ToUpper(s)
}
