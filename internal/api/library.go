package api

import (
	"errors"
	"net/http"

	"github.com/nerrad567/mixlogic-core/internal/compat"
	"github.com/nerrad567/mixlogic-core/internal/track"
)

// CompatibilityResponse is returned by GET /compatibility.
type CompatibilityResponse struct {
	From   track.Track   `json:"from"`
	To     track.Track   `json:"to"`
	Report compat.Report `json:"report"`
}

// resolveTrack looks up id in the library, falling back to the context
// track when id is empty. It writes the error response and returns false
// when the track cannot be resolved.
func (s *Server) resolveTrack(w http.ResponseWriter, id, role string, fallback *track.Track) (track.Track, bool) {
	if id == "" {
		if fallback == nil {
			writeConflict(w, "no "+role+" track loaded; pass ?"+role+"=")
			return track.Track{}, false
		}
		return *fallback, true
	}
	if s.library == nil {
		writeUnavailable(w, "track library not configured")
		return track.Track{}, false
	}
	t, err := s.library.Get(id)
	if err != nil {
		if errors.Is(err, track.ErrTrackNotFound) {
			writeNotFound(w, "track not found: "+id)
			return track.Track{}, false
		}
		writeInternalError(w, "failed to look up track")
		return track.Track{}, false
	}
	return t, true
}

// handleCompatibility scores two tracks. Without query parameters it
// compares the current and next tracks of the live session.
func (s *Server) handleCompatibility(w http.ResponseWriter, r *http.Request) {
	ctx := s.monitor.Context()
	q := r.URL.Query()

	from, ok := s.resolveTrack(w, q.Get("from"), "from", ctx.CurrentTrack)
	if !ok {
		return
	}
	to, ok := s.resolveTrack(w, q.Get("to"), "to", ctx.NextTrack)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, CompatibilityResponse{
		From:   from,
		To:     to,
		Report: s.manager.Engine().Analyzer().Compatibility(from, to),
	})
}

// handleSuggestNext ranks the library against the live session.
func (s *Server) handleSuggestNext(w http.ResponseWriter, _ *http.Request) {
	if s.library == nil {
		writeUnavailable(w, "track library not configured")
		return
	}
	suggestion, ok := s.manager.Engine().Analyzer().SuggestNextTrack(s.monitor.Context(), s.library.All())
	if !ok {
		writeNotFound(w, "no candidate tracks available")
		return
	}
	writeJSON(w, http.StatusOK, suggestion)
}
