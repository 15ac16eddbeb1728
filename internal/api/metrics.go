package api

import (
	"net/http"
	"runtime"
	"time"

	"github.com/nerrad567/mixlogic-core/internal/decision"
	"github.com/nerrad567/mixlogic-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/mixlogic-core/internal/training"
)

// SystemMetrics represents the complete system metrics response.
type SystemMetrics struct {
	Timestamp     string           `json:"timestamp"`
	Version       string           `json:"version"`
	UptimeSeconds int64            `json:"uptime_seconds"`
	Runtime       RuntimeMetrics   `json:"runtime"`
	WebSocket     WSMetrics        `json:"websocket"`
	Training      TrainingMetrics  `json:"training"`
	Session       SessionMetrics   `json:"session"`
	Library       *LibraryMetrics  `json:"library,omitempty"`
	Database      *DatabaseMetrics `json:"database,omitempty"`
	MQTT          *mqtt.Stats      `json:"mqtt,omitempty"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// WSMetrics contains WebSocket hub statistics.
type WSMetrics struct {
	ConnectedClients int            `json:"connected_clients"`
	Subscriptions    map[string]int `json:"subscriptions"`
}

// TrainingMetrics summarises the training manager and learning log.
type TrainingMetrics struct {
	Mode               training.Mode  `json:"mode"`
	Active             bool           `json:"is_active"`
	Style              decision.Style `json:"style"`
	Progress           float64        `json:"progress"`
	Accuracy           float64        `json:"accuracy"`
	TotalDecisions     int            `json:"total_decisions"`
	CorrectPredictions int            `json:"correct_predictions"`
	StoredEvents       int            `json:"stored_events"`
	Patterns           int            `json:"patterns"`
	CanRecommend       bool           `json:"can_recommend"`
}

// SessionMetrics summarises the live session.
type SessionMetrics struct {
	DurationSeconds float64 `json:"duration_seconds"`
	CrowdEnergy     float64 `json:"crowd_energy"`
	TargetEnergy    float64 `json:"target_energy"`
	RecentTracks    int     `json:"recent_tracks"`
}

// LibraryMetrics contains track library statistics.
type LibraryMetrics struct {
	Tracks int      `json:"tracks"`
	Genres []string `json:"genres"`
}

// DatabaseMetrics contains database connection pool statistics.
type DatabaseMetrics struct {
	OpenConnections int   `json:"open_connections"`
	InUse           int   `json:"in_use"`
	Idle            int   `json:"idle"`
	WaitCount       int64 `json:"wait_count"`
}

// handleMetrics returns comprehensive system metrics.
func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	st := s.manager.Status()
	learned := s.manager.Learning().Stats()
	ctx := s.monitor.Context()

	metrics := SystemMetrics{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / 1024 / 1024,
			MemoryTotalMB: float64(memStats.TotalAlloc) / 1024 / 1024,
			NumGC:         memStats.NumGC,
		},
		WebSocket: WSMetrics{
			ConnectedClients: s.hub.ClientCount(),
			Subscriptions:    s.hub.SubscriptionCounts(),
		},
		Training: TrainingMetrics{
			Mode:               st.Mode,
			Active:             st.Active,
			Style:              st.Settings.Style,
			Progress:           st.Progress,
			Accuracy:           st.Accuracy,
			TotalDecisions:     st.TotalDecisions,
			CorrectPredictions: st.CorrectPredictions,
			StoredEvents:       learned.StoredEvents,
			Patterns:           learned.Patterns,
			CanRecommend:       s.manager.Learning().CanRecommend(),
		},
		Session: SessionMetrics{
			DurationSeconds: ctx.SessionDuration,
			CrowdEnergy:     ctx.CrowdEnergy,
			TargetEnergy:    ctx.TargetEnergy,
			RecentTracks:    len(ctx.RecentTracks),
		},
	}

	if s.library != nil {
		metrics.Library = &LibraryMetrics{
			Tracks: s.library.Len(),
			Genres: s.library.Genres(),
		}
	}

	if s.db != nil {
		dbStats := s.db.Stats()
		metrics.Database = &DatabaseMetrics{
			OpenConnections: dbStats.OpenConnections,
			InUse:           dbStats.InUse,
			Idle:            dbStats.Idle,
			WaitCount:       dbStats.WaitCount,
		}
	}

	if s.broker != nil {
		st := s.broker.Stats()
		metrics.MQTT = &st
	}

	writeJSON(w, http.StatusOK, metrics)
}
