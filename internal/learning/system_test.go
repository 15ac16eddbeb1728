package learning

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/mixlogic-core/internal/decision"
	"github.com/nerrad567/mixlogic-core/internal/session"
	"github.com/nerrad567/mixlogic-core/internal/track"
)

func mustTrack(t *testing.T, id string, bpm float64, key string, energy float64, genre string) *track.Track {
	t.Helper()
	tr, err := track.New(id, id, "Artist", bpm, key, energy, genre, 300)
	if err != nil {
		t.Fatalf("track.New(%s) error = %v", id, err)
	}
	return &tr
}

// mixContext is a house-to-house mix at mid set energy.
func mixContext(t *testing.T, remaining float64) session.Context {
	t.Helper()
	return session.Context{
		CurrentTrack:  mustTrack(t, "a", 128, "8A", 0.6, "House"),
		NextTrack:     mustTrack(t, "b", 128, "8B", 0.65, "House"),
		SetEnergy:     0.6,
		CrowdEnergy:   0.6,
		TimeRemaining: remaining,
	}
}

func success(ok bool) *Outcome {
	return &Outcome{Success: ok}
}

func newTestSystem(cfg Config) *System {
	s := NewSystem(cfg)
	base := time.Date(2026, 5, 1, 21, 0, 0, 0, time.UTC)
	n := 0
	s.SetClock(func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Second)
	})
	return s
}

func TestBucket(t *testing.T) {
	tests := []struct {
		name string
		ctx  session.Context
		want string
	}{
		{"empty", session.Context{SetEnergy: 0.5}, "mid:none>none"},
		{"low", session.Context{SetEnergy: 0.2, CurrentTrack: mustTrack(t, "a", 120, "1A", 0.2, "Deep House")}, "low:deep house>none"},
		{"high boundary", session.Context{SetEnergy: 0.7}, "high:none>none"},
		{"low boundary", session.Context{SetEnergy: 0.4}, "mid:none>none"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Bucket(tt.ctx); got != tt.want {
				t.Errorf("Bucket() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSystem_RecordEventRejectsEmptyAction(t *testing.T) {
	s := newTestSystem(DefaultConfig())
	if _, err := s.RecordEvent(Event{}); !errors.Is(err, ErrEmptyAction) {
		t.Errorf("RecordEvent() error = %v, want ErrEmptyAction", err)
	}
}

func TestSystem_RecordEventFillsIdentity(t *testing.T) {
	s := newTestSystem(DefaultConfig())
	e, err := s.RecordEvent(Event{Action: ActionManualMix, Context: mixContext(t, 30)})
	if err != nil {
		t.Fatalf("RecordEvent() error = %v", err)
	}
	if e.ID == "" || e.Timestamp.IsZero() {
		t.Errorf("event identity not filled: %+v", e)
	}
}

func TestSystem_SuggestionAfterManualMixes(t *testing.T) {
	s := newTestSystem(DefaultConfig())
	ctx := mixContext(t, 30)

	for i := 0; i < 15; i++ {
		if _, err := s.RecordEvent(Event{Action: ActionManualMix, Context: ctx, Outcome: success(true)}); err != nil {
			t.Fatalf("RecordEvent() error = %v", err)
		}
	}

	got, ok := s.Suggestion(ActionManualMix, ctx)
	if !ok {
		t.Fatal("Suggestion() ok = false, want true")
	}
	if !strings.Contains(got, "100%") || !strings.Contains(got, "15") {
		t.Errorf("Suggestion() = %q, want 100%% over 15", got)
	}

	p, ok := s.Pattern(ActionManualMix, ctx)
	if !ok || p.Frequency != 15 || p.SuccessRate != 1 {
		t.Errorf("Pattern() = %+v", p)
	}

	other := ctx
	other.SetEnergy = 0.9
	if _, ok := s.Suggestion(ActionManualMix, other); ok {
		t.Error("Suggestion() ok = true for an unseen bucket")
	}
}

func TestSystem_SuggestionNeedsFrequencyAboveThree(t *testing.T) {
	s := newTestSystem(DefaultConfig())
	ctx := mixContext(t, 30)
	for i := 0; i < 3; i++ {
		_, _ = s.RecordEvent(Event{Action: ActionManualMix, Context: ctx, Outcome: success(true)})
	}
	if _, ok := s.Suggestion(ActionManualMix, ctx); ok {
		t.Error("Suggestion() ok = true at frequency 3")
	}
	_, _ = s.RecordEvent(Event{Action: ActionManualMix, Context: ctx, Outcome: success(false)})
	got, ok := s.Suggestion(ActionManualMix, ctx)
	if !ok || !strings.Contains(got, "75%") {
		t.Errorf("Suggestion() = %q/%v, want 75%%", got, ok)
	}
}

func TestSystem_FeedbackPatternsKeyedByPriorAction(t *testing.T) {
	s := newTestSystem(DefaultConfig())
	ctx := mixContext(t, 30)
	prior := decision.NewDecision(decision.ActionStartMix, 0.9, "mix", decision.Params{Timing: 32})

	_, _ = s.RecordEvent(Event{Action: ActionApproveAI, Context: ctx, Prior: &prior})
	_, _ = s.RecordEvent(Event{Action: ActionRejectAI, Context: ctx, Prior: &prior})

	p, ok := s.Pattern(string(decision.ActionStartMix), ctx)
	if !ok {
		t.Fatal("no start_mix pattern recorded")
	}
	if p.Frequency != 2 || p.Outcomes != 2 || math.Abs(p.SuccessRate-0.5) > 1e-9 {
		t.Errorf("Pattern() = %+v, want frequency 2, success 0.5", p)
	}
}

func TestSystem_AutomationTrust(t *testing.T) {
	s := newTestSystem(DefaultConfig())
	ctx := mixContext(t, 100)

	_, _ = s.RecordEvent(Event{Action: ActionApproveAI, Context: ctx})
	_, _ = s.RecordEvent(Event{Action: ActionApproveAI, Context: ctx})
	if got := s.Preferences().AutomationTrust; math.Abs(got-0.52) > 1e-9 {
		t.Errorf("trust after approvals = %v, want 0.52", got)
	}

	_, _ = s.RecordEvent(Event{Action: ActionRejectAI, Context: ctx})
	_, _ = s.RecordEvent(Event{Action: ActionCorrectAI, Context: ctx})
	if got := s.Preferences().AutomationTrust; math.Abs(got-0.48) > 1e-9 {
		t.Errorf("trust after reject+correct = %v, want 0.48", got)
	}

	for i := 0; i < 100; i++ {
		_, _ = s.RecordEvent(Event{Action: ActionRejectAI, Context: ctx})
	}
	if got := s.Preferences().AutomationTrust; got != 0 {
		t.Errorf("trust = %v, want clamped to 0", got)
	}
}

func TestSystem_PreferenceLists(t *testing.T) {
	s := newTestSystem(DefaultConfig())
	genres := []string{"House", "Techno", "Disco", "Trance", "Funk", "Garage", "House"}
	for _, g := range genres {
		ctx := session.Context{CurrentTrack: mustTrack(t, g, 124, "1A", 0.5, g), SetEnergy: 0.5}
		_, _ = s.RecordEvent(Event{
			Action:  string(decision.ActionApplyEffect),
			Context: ctx,
			Choice:  Choice{Params: decision.Params{Effect: strings.ToLower(g) + "-fx"}},
		})
	}

	p := s.Preferences()
	want := []string{"house", "garage", "funk", "trance", "disco"}
	if len(p.Genres) != 5 {
		t.Fatalf("Genres = %v, want 5 entries", p.Genres)
	}
	for i := range want {
		if p.Genres[i] != want[i] {
			t.Errorf("Genres = %v, want %v", p.Genres, want)
			break
		}
	}
	if len(p.Effects) != 5 || p.Effects[0] != "house-fx" {
		t.Errorf("Effects = %v", p.Effects)
	}
}

func TestSystem_TimingBiasMovesTowardsMixes(t *testing.T) {
	s := newTestSystem(DefaultConfig())
	for i := 0; i < 20; i++ {
		_, _ = s.RecordEvent(Event{Action: ActionManualMix, Context: mixContext(t, 20)})
	}
	p := s.Preferences()
	if p.TimingBias >= 32 || p.TimingBias <= 20 {
		t.Errorf("TimingBias = %v, want between 20 and 32", p.TimingBias)
	}
	if p.EnergyFlowBias <= 0 {
		t.Errorf("EnergyFlowBias = %v, want positive", p.EnergyFlowBias)
	}
}

func TestSystem_CapacityEviction(t *testing.T) {
	s := newTestSystem(Config{Capacity: 10})
	for i := 0; i < 25; i++ {
		_, _ = s.RecordEvent(Event{ID: string(rune('a' + i)), Action: ActionManualMix, Context: mixContext(t, 30)})
	}

	events := s.Events()
	if len(events) != 10 {
		t.Fatalf("len(Events) = %d, want 10", len(events))
	}
	if events[0].ID != "p" || events[9].ID != "y" {
		t.Errorf("Events span %s..%s, want p..y", events[0].ID, events[9].ID)
	}
	for i := 1; i < len(events); i++ {
		if events[i].Timestamp.Before(events[i-1].Timestamp) {
			t.Fatal("events reordered")
		}
	}
	if st := s.Stats(); st.TotalEvents != 25 || st.StoredEvents != 10 {
		t.Errorf("Stats totals = %d/%d, want 25/10", st.TotalEvents, st.StoredEvents)
	}
}

func TestSystem_Progress(t *testing.T) {
	s := newTestSystem(DefaultConfig())
	if got := s.Progress(); got != 0 {
		t.Errorf("Progress() = %v, want 0", got)
	}

	for i := 0; i < 50; i++ {
		_, _ = s.RecordEvent(Event{Action: ActionManualMix, Context: mixContext(t, 30)})
	}
	// 50 events, one pattern.
	want := 50.0/500 + 1.0/50
	if got := s.Progress(); math.Abs(got-want) > 1e-9 {
		t.Errorf("Progress() = %v, want %v", got, want)
	}
}

func TestSystem_Stats(t *testing.T) {
	s := newTestSystem(DefaultConfig())
	ctx := mixContext(t, 30)
	for i := 0; i < 3; i++ {
		_, _ = s.RecordEvent(Event{Action: ActionApproveAI, Context: ctx})
	}
	_, _ = s.RecordEvent(Event{Action: ActionRejectAI, Context: ctx})
	_, _ = s.RecordEvent(Event{Action: ActionManualMix, Context: ctx})

	st := s.Stats()
	if st.Approvals != 3 || st.Rejections != 1 {
		t.Errorf("counters = %+v", st.Counters)
	}
	if math.Abs(st.ApprovalRatio-0.75) > 1e-9 {
		t.Errorf("ApprovalRatio = %v, want 0.75", st.ApprovalRatio)
	}
	if len(st.TopActions) == 0 || st.TopActions[0].Action != ActionApproveAI || st.TopActions[0].Count != 3 {
		t.Errorf("TopActions = %+v", st.TopActions)
	}
}

func TestSystem_ExportImport(t *testing.T) {
	src := newTestSystem(DefaultConfig())
	ctx := mixContext(t, 30)
	for i := 0; i < 6; i++ {
		_, _ = src.RecordEvent(Event{Action: ActionManualMix, Context: ctx, Outcome: success(i%2 == 0)})
	}
	_, _ = src.RecordEvent(Event{Action: ActionApproveAI, Context: ctx})
	src.SetStyle(decision.StyleEnergetic)

	snap := src.Export()
	if snap.Version != SnapshotVersion || len(snap.Events) != 7 {
		t.Fatalf("Export() = version %d, %d events", snap.Version, len(snap.Events))
	}

	dst := newTestSystem(DefaultConfig())
	if err := dst.Import(snap); err != nil {
		t.Fatalf("Import() error = %v", err)
	}

	if got, want := dst.Stats(), src.Stats(); got.TotalEvents != want.TotalEvents ||
		got.Patterns != want.Patterns || got.Approvals != want.Approvals {
		t.Errorf("imported stats = %+v, want %+v", got, want)
	}
	if dst.Preferences().Style != decision.StyleEnergetic {
		t.Errorf("Style = %q, want energetic", dst.Preferences().Style)
	}
	if _, ok := dst.Suggestion(ActionManualMix, ctx); !ok {
		t.Error("imported system lost its pattern")
	}

	snap.Version = SnapshotVersion + 1
	if err := dst.Import(snap); !errors.Is(err, ErrUnsupportedVersion) {
		t.Errorf("Import(future) error = %v, want ErrUnsupportedVersion", err)
	}
}

func TestSystem_ImportAssignsIdentity(t *testing.T) {
	s := newTestSystem(DefaultConfig())
	stamp := time.Date(2024, 5, 1, 22, 0, 0, 0, time.UTC)

	snap := Snapshot{
		Version: SnapshotVersion,
		Events: []Event{
			{Action: ActionManualMix},
			{ID: "kept", Action: ActionManualMix, Timestamp: stamp},
			{ID: "kept", Action: ActionRejectAI},
			{Action: ActionApproveAI},
		},
	}
	if err := s.Import(snap); err != nil {
		t.Fatalf("Import() error = %v", err)
	}

	events := s.Events()
	if len(events) != 4 {
		t.Fatalf("len(Events) = %d, want 4", len(events))
	}
	ids := make(map[string]struct{}, len(events))
	for i, e := range events {
		if e.ID == "" {
			t.Errorf("Events[%d].ID is empty", i)
		}
		if e.Timestamp.IsZero() {
			t.Errorf("Events[%d].Timestamp is zero", i)
		}
		ids[e.ID] = struct{}{}
	}
	if len(ids) != len(events) {
		t.Errorf("event IDs not unique: %v", ids)
	}
	if events[1].ID != "kept" || !events[1].Timestamp.Equal(stamp) {
		t.Errorf("Events[1] = %s/%v, want the imported identity kept", events[1].ID, events[1].Timestamp)
	}
	if snap.Events[0].ID != "" {
		t.Error("Import modified the caller's snapshot")
	}
}

func TestSystem_Reset(t *testing.T) {
	s := newTestSystem(DefaultConfig())
	_, _ = s.RecordEvent(Event{Action: ActionApproveAI, Context: mixContext(t, 30)})
	s.Reset()

	if st := s.Stats(); st.TotalEvents != 0 || st.Patterns != 0 || st.Preferences.AutomationTrust != 0.5 {
		t.Errorf("Stats after Reset = %+v", st)
	}
}
