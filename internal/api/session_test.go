package api

import (
	"net/http"
	"testing"

	"github.com/nerrad567/mixlogic-core/internal/session"
)

func TestGetContext(t *testing.T) {
	env := testServer(t)
	env.loadMix(t)

	w := env.do(t, http.MethodGet, "/api/v1/context", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var ctx session.Context
	decodeBody(t, w, &ctx)
	if ctx.CurrentTrack == nil || ctx.CurrentTrack.ID != "a" {
		t.Errorf("CurrentTrack = %+v, want a", ctx.CurrentTrack)
	}
	if ctx.NextTrack == nil || ctx.NextTrack.ID != "b" {
		t.Errorf("NextTrack = %+v, want b", ctx.NextTrack)
	}
	if ctx.TimeRemaining != 30 {
		t.Errorf("TimeRemaining = %v, want 30", ctx.TimeRemaining)
	}
}

func TestLoadTrack(t *testing.T) {
	tests := []struct {
		name     string
		deck     string
		body     any
		wantCode int
		wantID   string
	}{
		{"by library id", "a", map[string]any{"track_id": "c"}, http.StatusOK, "c"},
		{"uppercase deck", "B", map[string]any{"track_id": "d"}, http.StatusOK, "d"},
		{"inline track", "a", map[string]any{"track": map[string]any{
			"id": "x", "bpm": 124, "key": "Gm", "energy": 0.5, "genre": "Disco", "duration": 240,
		}}, http.StatusOK, "x"},
		{"invalid inline track", "a", map[string]any{"track": map[string]any{
			"id": "x", "bpm": 0, "energy": 0.5, "duration": 240,
		}}, http.StatusUnprocessableEntity, ""},
		{"unknown library id", "a", map[string]any{"track_id": "nope"}, http.StatusNotFound, ""},
		{"empty body", "a", map[string]any{}, http.StatusBadRequest, ""},
		{"bad deck", "c", map[string]any{"track_id": "a"}, http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := testServer(t)

			w := env.do(t, http.MethodPost, "/api/v1/decks/"+tt.deck+"/load", tt.body)
			if w.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d: %s", w.Code, tt.wantCode, w.Body.String())
			}
			if tt.wantID == "" {
				return
			}
			var deck session.DeckState
			decodeBody(t, w, &deck)
			if deck.Track == nil || deck.Track.ID != tt.wantID {
				t.Errorf("deck track = %+v, want %s", deck.Track, tt.wantID)
			}
		})
	}
}

func TestLoadTrack_RecordsAction(t *testing.T) {
	env := testServer(t)

	w := env.do(t, http.MethodPost, "/api/v1/decks/B/load", map[string]any{"track_id": "b", "active": true})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	ctx := env.monitor.Context()
	if ctx.ActiveDeck != session.DeckB {
		t.Errorf("ActiveDeck = %s, want B", ctx.ActiveDeck)
	}
	if len(ctx.RecentActions) != 1 || ctx.RecentActions[0].Action != "load_track" {
		t.Errorf("RecentActions = %+v, want one load_track", ctx.RecentActions)
	}
}

func TestLoadTrack_NoLibrary(t *testing.T) {
	env := testServer(t, withoutLibrary())

	w := env.do(t, http.MethodPost, "/api/v1/decks/A/load", map[string]any{"track_id": "a"})
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

func TestUpdateDeck(t *testing.T) {
	env := testServer(t)
	env.loadMix(t)

	w := env.do(t, http.MethodPut, "/api/v1/decks/a/", map[string]any{
		"is_playing":   true,
		"volume":       0.8,
		"effects":      []string{"reverb"},
		"position_sec": 100,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var deck session.DeckState
	decodeBody(t, w, &deck)
	if !deck.IsPlaying {
		t.Error("IsPlaying = false, want true")
	}
	if deck.Volume != 0.8 {
		t.Errorf("Volume = %v, want 0.8", deck.Volume)
	}
	if !deck.HasEffect("reverb") {
		t.Errorf("Effects = %v, want reverb", deck.Effects)
	}
	if deck.Position != 100 || deck.TimeRemaining != 200 {
		t.Errorf("Position/TimeRemaining = %v/%v, want 100/200", deck.Position, deck.TimeRemaining)
	}
}

func TestUpdateDeck_PositionWithoutTrack(t *testing.T) {
	env := testServer(t)

	w := env.do(t, http.MethodPut, "/api/v1/decks/A/", map[string]any{"position_sec": 10})
	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", w.Code)
	}
}

func TestUpdateMixer(t *testing.T) {
	env := testServer(t)

	w := env.do(t, http.MethodPut, "/api/v1/mixer", map[string]any{"crossfader": 0.75})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var mixer session.MixerState
	decodeBody(t, w, &mixer)
	if mixer.Crossfader != 0.75 {
		t.Errorf("Crossfader = %v, want 0.75", mixer.Crossfader)
	}
}

func TestCrowdEnergy(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		body     any
		wantCode int
	}{
		{"crowd ok", "/api/v1/crowd-energy", map[string]any{"value": 0.9}, http.StatusOK},
		{"crowd missing", "/api/v1/crowd-energy", map[string]any{}, http.StatusBadRequest},
		{"crowd above range", "/api/v1/crowd-energy", map[string]any{"value": 1.5}, http.StatusUnprocessableEntity},
		{"target ok", "/api/v1/target-energy", map[string]any{"value": 0.4}, http.StatusOK},
		{"target negative", "/api/v1/target-energy", map[string]any{"value": -0.1}, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := testServer(t)
			w := env.do(t, http.MethodPut, tt.path, tt.body)
			if w.Code != tt.wantCode {
				t.Errorf("status = %d, want %d: %s", w.Code, tt.wantCode, w.Body.String())
			}
		})
	}
}

func TestGetCrowdEnergy(t *testing.T) {
	env := testServer(t)
	env.loadMix(t)
	env.monitor.UpdateCrowdEnergy(0.9)
	env.monitor.SetTargetEnergy(0.4)

	w := env.do(t, http.MethodGet, "/api/v1/crowd-energy", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp map[string]any
	decodeBody(t, w, &resp)
	if resp["crowd_energy"] != 0.9 {
		t.Errorf("crowd_energy = %v, want 0.9", resp["crowd_energy"])
	}
	if resp["target_energy"] != 0.4 {
		t.Errorf("target_energy = %v, want 0.4", resp["target_energy"])
	}
	est, ok := resp["estimated"].(float64)
	if !ok || est < 0 || est > 1 {
		t.Errorf("estimated = %v, want value in [0,1]", resp["estimated"])
	}
}
