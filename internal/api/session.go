package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/mixlogic-core/internal/session"
	"github.com/nerrad567/mixlogic-core/internal/track"
)

// DeckRequest is the body of PUT /decks/{deck}. All fields are optional.
type DeckRequest struct {
	session.DeckUpdate
	Position *float64 `json:"position_sec,omitempty"`
	// Active marks the deck as the audible one.
	Active bool `json:"active,omitempty"`
}

// LoadTrackRequest is the body of POST /decks/{deck}/load. Either TrackID
// (looked up in the library) or an inline Track is required.
type LoadTrackRequest struct {
	TrackID string       `json:"track_id,omitempty"`
	Track   *track.Track `json:"track,omitempty"`
	Active  bool         `json:"active,omitempty"`
}

// EnergyRequest carries a single energy value in [0,1].
type EnergyRequest struct {
	Value *float64 `json:"value"`
}

// deckParam parses the {deck} URL parameter. Lowercase ids are accepted.
func deckParam(r *http.Request) (session.DeckID, bool) {
	d := session.DeckID(strings.ToUpper(chi.URLParam(r, "deck")))
	return d, d.Valid()
}

// handleGetContext returns the current session snapshot.
func (s *Server) handleGetContext(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.monitor.Context())
}

// handleUpdateDeck applies a partial deck update.
func (s *Server) handleUpdateDeck(w http.ResponseWriter, r *http.Request) {
	deck, ok := deckParam(r)
	if !ok {
		writeBadRequest(w, "deck must be A or B")
		return
	}

	var req DeckRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := s.monitor.UpdateDeck(deck, req.DeckUpdate); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if req.Position != nil {
		if err := s.monitor.UpdatePosition(deck, *req.Position); err != nil {
			if errors.Is(err, session.ErrNoTrackLoaded) {
				writeConflict(w, err.Error())
				return
			}
			writeBadRequest(w, err.Error())
			return
		}
	}
	if req.Active {
		//nolint:errcheck // deck validated above
		s.monitor.SetActiveDeck(deck)
	}

	writeJSON(w, http.StatusOK, s.monitor.Context().Deck(deck))
}

// handleLoadTrack places a track on a deck.
func (s *Server) handleLoadTrack(w http.ResponseWriter, r *http.Request) {
	deck, ok := deckParam(r)
	if !ok {
		writeBadRequest(w, "deck must be A or B")
		return
	}

	var req LoadTrackRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	var t track.Track
	switch {
	case req.Track != nil:
		t = *req.Track
	case req.TrackID != "":
		if s.library == nil {
			writeUnavailable(w, "no track library configured")
			return
		}
		found, err := s.library.Get(req.TrackID)
		if err != nil {
			writeNotFound(w, err.Error())
			return
		}
		t = found
	default:
		writeBadRequest(w, "track_id or track is required")
		return
	}

	if err := s.monitor.LoadTrack(deck, t); err != nil {
		writeValidationError(w, err.Error())
		return
	}
	if req.Active {
		//nolint:errcheck // deck validated above
		s.monitor.SetActiveDeck(deck)
	}
	s.monitor.RecordAction("load_track", deck)

	writeJSON(w, http.StatusOK, s.monitor.Context().Deck(deck))
}

// handleUpdateMixer applies a partial mixer update.
func (s *Server) handleUpdateMixer(w http.ResponseWriter, r *http.Request) {
	var req session.MixerUpdate
	if !decodeJSON(w, r, &req) {
		return
	}
	s.monitor.UpdateMixer(req)
	writeJSON(w, http.StatusOK, s.monitor.Context().Mixer)
}

// handleGetCrowdEnergy returns the reported crowd energy alongside the
// analyzer's estimate.
func (s *Server) handleGetCrowdEnergy(w http.ResponseWriter, _ *http.Request) {
	ctx := s.monitor.Context()
	writeJSON(w, http.StatusOK, map[string]any{
		"crowd_energy":  ctx.CrowdEnergy,
		"estimated":     s.manager.Engine().Analyzer().EstimateCrowdEnergy(ctx),
		"target_energy": ctx.TargetEnergy,
		"energy_trend":  ctx.EnergyTrend,
	})
}

// handleSetCrowdEnergy records a crowd energy reading.
func (s *Server) handleSetCrowdEnergy(w http.ResponseWriter, r *http.Request) {
	v, ok := decodeEnergy(w, r)
	if !ok {
		return
	}
	s.monitor.UpdateCrowdEnergy(v)
	writeJSON(w, http.StatusOK, map[string]float64{"crowd_energy": s.monitor.Context().CrowdEnergy})
}

// handleSetTargetEnergy sets the energy the set should move toward.
func (s *Server) handleSetTargetEnergy(w http.ResponseWriter, r *http.Request) {
	v, ok := decodeEnergy(w, r)
	if !ok {
		return
	}
	s.monitor.SetTargetEnergy(v)
	writeJSON(w, http.StatusOK, map[string]float64{"target_energy": s.monitor.Context().TargetEnergy})
}

func decodeEnergy(w http.ResponseWriter, r *http.Request) (float64, bool) {
	var req EnergyRequest
	if !decodeJSON(w, r, &req) {
		return 0, false
	}
	if req.Value == nil {
		writeBadRequest(w, "value is required")
		return 0, false
	}
	if *req.Value < 0 || *req.Value > 1 {
		writeValidationError(w, "value must be between 0 and 1")
		return 0, false
	}
	return *req.Value, true
}
