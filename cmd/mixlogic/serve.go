package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nerrad567/mixlogic-core/internal/api"
	"github.com/nerrad567/mixlogic-core/internal/automation"
	"github.com/nerrad567/mixlogic-core/internal/bridges/console"
	"github.com/nerrad567/mixlogic-core/internal/infrastructure/config"
	"github.com/nerrad567/mixlogic-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/mixlogic-core/internal/infrastructure/logging"
	"github.com/nerrad567/mixlogic-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/mixlogic-core/internal/session"
	"github.com/nerrad567/mixlogic-core/internal/telemetry"
	"github.com/nerrad567/mixlogic-core/internal/track"
	"github.com/nerrad567/mixlogic-core/internal/training"
)

// shutdownTimeout bounds the final checkpoint written on shutdown.
const shutdownTimeout = 10 * time.Second

func newServeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the mixing engine and its HTTP/WebSocket API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts)
		},
	}
}

// run is the serve command's application logic, separated for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//   - opts: Global command options
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context, opts *options) error { //nolint:gocognit,gocyclo,funlen // linear startup sequence
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting MixLogic Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, configPath, err := opts.loadConfig()
	if err != nil {
		return err
	}
	if configPath == "" {
		log.Info("no config file found, using defaults and environment")
	} else {
		log.Info("configuration loaded", "path", configPath)
	}

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version).With("session_id", cfg.Session.ID)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	db, err := openDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database ready", "path", cfg.Database.Path)

	var library *track.Library
	if cfg.Library.Path != "" {
		library, err = track.LoadLibrary(cfg.Library.Path)
		if err != nil {
			return fmt.Errorf("loading track library: %w", err)
		}
		log.Info("track library loaded", "path", cfg.Library.Path, "tracks", library.Len())
	} else {
		log.Warn("no track library configured, track lookups and suggestions disabled")
	}

	monitor := session.NewMonitor()
	monitor.SetLogger(log.Component("session"))
	monitor.SetTargetEnergy(cfg.Session.TargetEnergy)

	// Control surface: MQTT when enabled, otherwise commands only update
	// the session mirror
	var mqttClient *mqtt.Client
	var surface automation.ControlSurface = automation.NopSurface{}
	if cfg.MQTT.Enabled {
		mqttClient, err = connectMQTT(cfg.MQTT, log)
		if err != nil {
			return err
		}
		defer func() {
			log.Info("closing MQTT connection")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttSurface := automation.NewMQTTSurface(mqttClient, mqtt.Topics{}.Command)
		mqttSurface.SetLogger(log.Component("surface"))
		surface = mqttSurface
	} else {
		log.Info("MQTT disabled, control surface commands are simulated")
	}

	executor := automation.NewExecutor(automation.NewMonitoredSurface(surface, monitor), automationConfig(cfg.Automation))
	executor.SetLogger(log.Component("automation"))
	executor.OnDeckSwitch(deckSwitchHandler(monitor, log))
	defer executor.Close()

	live := syncingExecutor{exec: executor, source: monitor}
	manager, err := newManager(cfg, live)
	if err != nil {
		return fmt.Errorf("creating training manager: %w", err)
	}
	defer manager.Close()
	manager.SetLogger(log.Component("training"))
	manager.Engine().SetLogger(log.Component("decision"))
	manager.Learning().SetLogger(log.Component("learning"))

	checkpointer, err := newCheckpointer(db, cfg.Training.SnapshotEncoding)
	if err != nil {
		return err
	}
	restored, err := checkpointer.Restore(ctx, manager)
	if err != nil {
		return fmt.Errorf("restoring training state: %w", err)
	}
	if restored {
		st := manager.Status()
		log.Info("training state restored",
			"mode", st.Mode,
			"total_decisions", st.TotalDecisions,
			"accuracy", st.Accuracy,
		)
	}
	defer func() {
		saveCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if saveErr := checkpointer.Save(saveCtx, manager); saveErr != nil {
			log.Error("final training checkpoint failed", "error", saveErr)
			return
		}
		log.Info("training state saved")
	}()

	// Console bridge: the controller reports manual moves over MQTT
	if mqttClient != nil {
		bridge, bridgeErr := console.NewBridge(console.Options{
			MQTT:     mqttClient,
			Sink:     monitor,
			Library:  library,
			Recorder: manager,
		})
		if bridgeErr != nil {
			return fmt.Errorf("creating console bridge: %w", bridgeErr)
		}
		bridge.SetLogger(log.Component("console"))
		if startErr := bridge.Start(); startErr != nil {
			return fmt.Errorf("starting console bridge: %w", startErr)
		}
		defer func() {
			st := bridge.Stats()
			log.Info("console bridge stopping",
				"received", st.Received,
				"applied", st.Applied,
				"rejected", st.Rejected,
			)
			if stopErr := bridge.Stop(); stopErr != nil {
				log.Warn("error stopping console bridge", "error", stopErr)
			}
		}()
	}

	// Telemetry: nil interfaces (not typed nil pointers) when disabled
	var (
		metrics   telemetry.MetricsWriter
		publisher telemetry.Publisher
	)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = connectInfluxDB(cfg.InfluxDB, log)
		if err != nil {
			return err
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		metrics = influxClient
	}
	if mqttClient != nil {
		publisher = mqttClient
	}
	sink := telemetry.NewSink(cfg.Session.ID, metrics, publisher)
	sink.SetLogger(log.Component("telemetry"))
	sinkID := manager.Subscribe(sink.Observe)
	defer manager.Unsubscribe(sinkID)

	checks := map[string]api.HealthChecker{"database": db}
	var broker api.BrokerStatser
	if mqttClient != nil {
		checks["mqtt"] = mqttClient
		broker = mqttClient
	}
	if influxClient != nil {
		checks["influxdb"] = influxClient
	}

	srv, err := api.New(api.Deps{
		Config:           cfg.API,
		WS:               cfg.WebSocket,
		Logger:           log.Component("api"),
		Monitor:          monitor,
		Manager:          manager,
		Executor:         live,
		Library:          library,
		Checks:           checks,
		DB:               db,
		Broker:           broker,
		SnapshotEncoding: training.Encoding(cfg.Training.SnapshotEncoding),
		Version:          version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		log.Info("stopping API server")
		if closeErr := srv.Close(); closeErr != nil {
			log.Error("error stopping API server", "error", closeErr)
		}
	}()

	go monitor.RunEvery(ctx, cfg.GetTickInterval())
	go manager.Run(ctx, monitor)
	go sink.Run(ctx, monitor, telemetry.DefaultSampleInterval)
	if interval := cfg.GetCheckpointInterval(); interval > 0 {
		go runCheckpoints(ctx, checkpointer, manager, interval, log)
	}

	log.Info("MixLogic Core started",
		"mode", manager.Status().Mode,
		"api", fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port),
	)

	<-ctx.Done()
	log.Info("shutdown signal received")

	// Deferred calls run in reverse order: API server, telemetry, InfluxDB,
	// console bridge, final checkpoint, manager, executor, MQTT, database
	return nil
}

// connectMQTT connects to the broker and hooks connection logging.
func connectMQTT(cfg config.MQTTConfig, log *logging.Logger) (*mqtt.Client, error) {
	client, err := mqtt.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to MQTT: %w", err)
	}
	mqttLog := log.Component("mqtt")
	client.SetLogger(mqttLog)
	client.SetOnConnect(func() {
		mqttLog.Info("MQTT connected")
	})
	client.SetOnDisconnect(func(err error) {
		mqttLog.Warn("MQTT connection lost", "error", err)
	})
	log.Info("MQTT connected", "broker", fmt.Sprintf("%s:%d", cfg.Broker.Host, cfg.Broker.Port))
	return client, nil
}

// connectInfluxDB connects to InfluxDB and logs async write failures.
func connectInfluxDB(cfg config.InfluxDBConfig, log *logging.Logger) (*influxdb.Client, error) {
	client, err := influxdb.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to InfluxDB: %w", err)
	}
	influxLog := log.Component("influxdb")
	client.SetOnError(func(err error) {
		influxLog.Error("InfluxDB write failed", "error", err)
	})
	log.Info("InfluxDB connected", "url", cfg.URL, "bucket", cfg.Bucket)
	return client, nil
}

// runCheckpoints saves training state every interval until ctx is done.
func runCheckpoints(ctx context.Context, cp training.Checkpointer, m *training.Manager, interval time.Duration, log *logging.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := cp.Save(ctx, m); err != nil {
				log.Error("training checkpoint failed", "error", err)
				continue
			}
			log.Debug("training checkpoint saved")
		}
	}
}
