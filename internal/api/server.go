package api

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/mixlogic-core/internal/automation"
	"github.com/nerrad567/mixlogic-core/internal/infrastructure/config"
	"github.com/nerrad567/mixlogic-core/internal/infrastructure/logging"
	"github.com/nerrad567/mixlogic-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/mixlogic-core/internal/session"
	"github.com/nerrad567/mixlogic-core/internal/track"
	"github.com/nerrad567/mixlogic-core/internal/training"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Controller drives the console directly, outside the decision loop.
// *automation.Executor satisfies it.
type Controller interface {
	// EmergencyStop silences both decks and the master output.
	EmergencyStop(ctx context.Context) error
	// FadeVolume ramps a channel or master volume to level over duration.
	FadeVolume(target automation.Target, level float64, duration time.Duration) (*automation.Task, error)
	// EnergyTransition shapes a deck's EQ and effects toward an energy level.
	EnergyTransition(ctx context.Context, deck session.DeckID, target float64) error
}

// HealthChecker is implemented by infrastructure clients (MQTT, InfluxDB,
// database) that can report their own health.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// DBStatser exposes connection pool statistics. *sql.DB satisfies it.
type DBStatser interface {
	Stats() sql.DBStats
}

// BrokerStatser exposes console broker traffic counters. *mqtt.Client
// satisfies it.
type BrokerStatser interface {
	Stats() mqtt.Stats
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config  config.APIConfig
	WS      config.WebSocketConfig
	Logger  *logging.Logger
	Monitor *session.Monitor
	Manager *training.Manager
	// Executor is optional; without it /emergency-stop and /control
	// answer 503.
	Executor Controller
	// Library is optional; without it track lookups answer 503.
	Library *track.Library
	// Checks are reported by /health, keyed by component name.
	Checks map[string]HealthChecker
	// DB is optional and only feeds /metrics.
	DB DBStatser
	// Broker is optional and only feeds /metrics.
	Broker BrokerStatser
	// SnapshotEncoding is the default for /training/export.
	SnapshotEncoding training.Encoding
	ExternalHub      *Hub // If set, the server uses this hub instead of creating its own
	Version          string
}

// Server is the HTTP API server for MixLogic Core.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg       config.APIConfig
	wsCfg     config.WebSocketConfig
	logger    *logging.Logger
	monitor   *session.Monitor
	manager   *training.Manager
	executor  Controller
	library   *track.Library
	checks    map[string]HealthChecker
	db        DBStatser
	broker    BrokerStatser
	encoding  training.Encoding
	version   string
	startedAt time.Time

	server      *http.Server
	hub         *Hub
	externalHub bool               // true if hub was injected externally
	cancel      context.CancelFunc // cancels background goroutines on Close()

	statusObs  int
	contextObs int
	wired      bool
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Monitor == nil {
		return nil, fmt.Errorf("session monitor is required")
	}
	if deps.Manager == nil {
		return nil, fmt.Errorf("training manager is required")
	}

	enc := deps.SnapshotEncoding
	if enc == "" {
		enc = training.EncodingJSON
	}

	s := &Server{
		cfg:       deps.Config,
		wsCfg:     deps.WS,
		logger:    deps.Logger,
		monitor:   deps.Monitor,
		manager:   deps.Manager,
		executor:  deps.Executor,
		library:   deps.Library,
		checks:    deps.Checks,
		db:        deps.DB,
		broker:    deps.Broker,
		encoding:  enc,
		version:   deps.Version,
		startedAt: time.Now(),
	}

	if deps.ExternalHub != nil {
		s.hub = deps.ExternalHub
		s.externalHub = true
	} else {
		s.hub = NewHub(s.wsCfg, s.logger)
	}
	s.hub.SetSnapshotFunc(s.channelSnapshot)

	return s, nil
}

// Hub returns the WebSocket hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// wireObservers relays training statuses and session snapshots to
// WebSocket subscribers. Calling it twice is a no-op.
func (s *Server) wireObservers() {
	if s.wired {
		return
	}
	s.wired = true
	s.statusObs = s.manager.Subscribe(func(st training.Status) {
		s.hub.Broadcast(ChannelTrainingStatus, st)
	})
	s.contextObs = s.monitor.Subscribe(func(ctx session.Context) {
		s.hub.Broadcast(ChannelSessionContext, ctx)
	})
}

func (s *Server) unwireObservers() {
	if !s.wired {
		return
	}
	s.manager.Unsubscribe(s.statusObs)
	s.monitor.Unsubscribe(s.contextObs)
	s.wired = false
}

// Start begins listening for HTTP connections.
//
// It starts the WebSocket hub, subscribes the hub to the training manager
// and session monitor, and launches the HTTP listener in a background
// goroutine. The server can be stopped with Close().
//
// Parameters:
//   - ctx: Context for cancellation (not used for listener lifetime)
//
// Returns:
//   - error: If the server fails to start (port in use, etc.)
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	if !s.externalHub {
		go s.hub.Run(srvCtx)
	}
	s.wireObservers()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", s.server.Addr)
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	s.unwireObservers()
	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}
