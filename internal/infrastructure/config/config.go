package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for MixLogic Core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Session    SessionConfig    `yaml:"session"`
	Database   DatabaseConfig   `yaml:"database"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
	API        APIConfig        `yaml:"api"`
	WebSocket  WebSocketConfig  `yaml:"websocket"`
	InfluxDB   InfluxDBConfig   `yaml:"influxdb"`
	Logging    LoggingConfig    `yaml:"logging"`
	Engine     EngineConfig     `yaml:"engine"`
	Learning   LearningConfig   `yaml:"learning"`
	Training   TrainingConfig   `yaml:"training"`
	Automation AutomationConfig `yaml:"automation"`
	Library    LibraryConfig    `yaml:"library"`
}

// SessionConfig describes the live session.
type SessionConfig struct {
	ID           string  `yaml:"id"`
	Name         string  `yaml:"name"`
	TickInterval int     `yaml:"tick_interval"` // milliseconds
	TargetEnergy float64 `yaml:"target_energy"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// EngineConfig contains decision engine tunables.
type EngineConfig struct {
	Style          string  `yaml:"style"`
	Aggressiveness float64 `yaml:"aggressiveness"`
	Creativity     float64 `yaml:"creativity"`
	// Seed makes random effect choices reproducible. 0 uses a random seed.
	Seed uint64 `yaml:"seed"`
	// Weights overrides individual decision weights by factor name
	// (bpm, key, energy, genre, timing, crowd_response).
	Weights map[string]float64 `yaml:"weights"`
}

// LearningConfig contains learning system settings.
type LearningConfig struct {
	Capacity               int `yaml:"capacity"`
	SuggestionMinFrequency int `yaml:"suggestion_min_frequency"`
	MinSuccessfulMixes     int `yaml:"min_successful_mixes"`
}

// TrainingConfig contains training manager settings.
type TrainingConfig struct {
	Mode                 string  `yaml:"mode"`
	SuggestionThreshold  float64 `yaml:"suggestion_threshold"`
	AutoExecuteThreshold float64 `yaml:"auto_execute_threshold"`
	LearningRate         float64 `yaml:"learning_rate"`
	RecalculateEvery     int     `yaml:"recalculate_every"`
	PollInterval         int     `yaml:"poll_interval"` // milliseconds
	SnapshotEncoding     string  `yaml:"snapshot_encoding"`
	CheckpointInterval   int     `yaml:"checkpoint_interval"` // seconds, 0 disables
}

// AutomationConfig contains automation executor settings.
type AutomationConfig struct {
	CrossfadeSteps    int `yaml:"crossfade_steps"`
	EffectHold        int `yaml:"effect_hold"` // seconds
	BeatmatchSteps    int `yaml:"beatmatch_steps"`
	BeatmatchInterval int `yaml:"beatmatch_interval"` // milliseconds
	FadeSteps         int `yaml:"fade_steps"`
}

// LibraryConfig points at the track library file.
type LibraryConfig struct {
	Path string `yaml:"path"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: MIXLOGIC_SECTION_KEY
// For example: MIXLOGIC_DATABASE_PATH, MIXLOGIC_API_PORT
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return finish(cfg)
}

// FromEnv builds a configuration from the defaults and environment
// variables only, for running without a config file.
func FromEnv() (*Config, error) {
	return finish(defaultConfig())
}

func finish(cfg *Config) (*Config, error) {
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Session: SessionConfig{
			ID:           "session-001",
			Name:         "MixLogic",
			TickInterval: 1000,
			TargetEnergy: 0.7,
		},
		Database: DatabaseConfig{
			Path:        "./data/mixlogic.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Enabled: true,
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "mixlogic-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Engine: EngineConfig{
			Style:          "smooth",
			Aggressiveness: 0.5,
			Creativity:     0.5,
		},
		Learning: LearningConfig{
			Capacity:               1000,
			SuggestionMinFrequency: 3,
			MinSuccessfulMixes:     10,
		},
		Training: TrainingConfig{
			Mode:                 "passive",
			SuggestionThreshold:  0.7,
			AutoExecuteThreshold: 0.8,
			LearningRate:         0.05,
			RecalculateEvery:     10,
			PollInterval:         1000,
			SnapshotEncoding:     "cbor",
			CheckpointInterval:   60,
		},
		Automation: AutomationConfig{
			CrossfadeSteps:    50,
			EffectHold:        8,
			BeatmatchSteps:    20,
			BeatmatchInterval: 100,
			FadeSteps:         50,
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: MIXLOGIC_SECTION_KEY
func applyEnvOverrides(cfg *Config) error {
	// Database
	if v := os.Getenv("MIXLOGIC_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("MIXLOGIC_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("MIXLOGIC_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("MIXLOGIC_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("MIXLOGIC_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("MIXLOGIC_API_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parsing MIXLOGIC_API_PORT: %w", err)
		}
		cfg.API.Port = port
	}

	// InfluxDB
	if v := os.Getenv("MIXLOGIC_INFLUXDB_URL"); v != "" {
		cfg.InfluxDB.URL = v
	}
	if v := os.Getenv("MIXLOGIC_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Logging
	if v := os.Getenv("MIXLOGIC_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	// Training
	if v := os.Getenv("MIXLOGIC_TRAINING_MODE"); v != "" {
		cfg.Training.Mode = v
	}

	// Library
	if v := os.Getenv("MIXLOGIC_LIBRARY_PATH"); v != "" {
		cfg.Library.Path = v
	}
	return nil
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error { //nolint:gocognit,gocyclo // flat list of independent checks
	var errs []string

	if c.Session.ID == "" {
		errs = append(errs, "session.id is required")
	}
	if !inUnitRange(c.Session.TargetEnergy) {
		errs = append(errs, "session.target_energy must be between 0 and 1")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.InfluxDB.Enabled && (c.InfluxDB.URL == "" || c.InfluxDB.Org == "" || c.InfluxDB.Bucket == "") {
		errs = append(errs, "influxdb.url, influxdb.org and influxdb.bucket are required when influxdb is enabled")
	}

	switch c.Engine.Style {
	case "smooth", "energetic", "technical", "minimal":
	default:
		errs = append(errs, fmt.Sprintf("engine.style %q must be smooth, energetic, technical or minimal", c.Engine.Style))
	}
	if !inUnitRange(c.Engine.Aggressiveness) || !inUnitRange(c.Engine.Creativity) {
		errs = append(errs, "engine.aggressiveness and engine.creativity must be between 0 and 1")
	}
	for name, w := range c.Engine.Weights {
		if w < 0 {
			errs = append(errs, fmt.Sprintf("engine.weights.%s must not be negative", name))
		}
	}

	if c.Learning.Capacity < 0 {
		errs = append(errs, "learning.capacity must not be negative")
	}

	switch c.Training.Mode {
	case "passive", "active", "autonomous":
	default:
		errs = append(errs, fmt.Sprintf("training.mode %q must be passive, active or autonomous", c.Training.Mode))
	}
	if !inUnitRange(c.Training.SuggestionThreshold) || !inUnitRange(c.Training.AutoExecuteThreshold) {
		errs = append(errs, "training thresholds must be between 0 and 1")
	}
	if c.Training.LearningRate <= 0 || c.Training.LearningRate > 1 {
		errs = append(errs, "training.learning_rate must be in (0, 1]")
	}
	switch c.Training.SnapshotEncoding {
	case "json", "cbor":
	default:
		errs = append(errs, fmt.Sprintf("training.snapshot_encoding %q must be json or cbor", c.Training.SnapshotEncoding))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

func inUnitRange(v float64) bool {
	return v >= 0 && v <= 1
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// GetTickInterval returns the session tick interval as a Duration.
func (c *Config) GetTickInterval() time.Duration {
	return time.Duration(c.Session.TickInterval) * time.Millisecond
}

// GetPollInterval returns the autonomous poll interval as a Duration.
func (c *Config) GetPollInterval() time.Duration {
	return time.Duration(c.Training.PollInterval) * time.Millisecond
}

// GetCheckpointInterval returns how often training state is persisted.
func (c *Config) GetCheckpointInterval() time.Duration {
	return time.Duration(c.Training.CheckpointInterval) * time.Second
}
