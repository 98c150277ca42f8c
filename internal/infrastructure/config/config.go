package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for Vigil Core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Service  ServiceConfig  `yaml:"service"`
	API      APIConfig      `yaml:"api"`
	Store    StoreConfig    `yaml:"store"`
	Database DatabaseConfig `yaml:"database"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	Poller   PollerConfig   `yaml:"poller"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServiceConfig contains process identity settings.
type ServiceConfig struct {
	// ID identifies this process instance. It becomes the consumer_id
	// stamped on fired devices and the MQTT client ID suffix.
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig contains HTTP timeout settings, in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// Store backends.
const (
	StoreBackendMemory = "memory"
	StoreBackendSQLite = "sqlite"
)

// StoreConfig selects the device store backend.
type StoreConfig struct {
	// Backend is "memory" (reference, volatile) or "sqlite" (durable).
	Backend string `yaml:"backend"`
}

// DatabaseConfig contains SQLite database settings. Only read when the
// sqlite store backend is selected.
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

// MQTTReconnectConfig contains MQTT reconnection settings, in seconds.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
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

// PollerConfig contains expiry poller settings.
type PollerConfig struct {
	// Interval is the poll cadence in seconds.
	Interval int `yaml:"interval"`

	// CatchUp opens the first poll window at second 1 so overdue devices
	// in a durable store fire after a restart. Ignored (harmless) with the
	// memory backend, which starts empty anyway.
	CatchUp bool `yaml:"catch_up"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: VIGIL_SECTION_KEY
// For example: VIGIL_DATABASE_PATH, VIGIL_API_PORT
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns a Config with sensible defaults: memory store, poller
// every 10s, API on 8000, MQTT and InfluxDB disabled.
func Default() *Config {
	return &Config{
		Service: ServiceConfig{
			ID:   "vigil-001",
			Name: "Vigil Core",
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8000,
			Timeouts: APITimeoutConfig{
				Read:  15,
				Write: 15,
				Idle:  60,
			},
		},
		Store: StoreConfig{
			Backend: StoreBackendMemory,
		},
		Database: DatabaseConfig{
			Path:        "data/vigil.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Enabled: false,
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "vigil-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		InfluxDB: InfluxDBConfig{
			Enabled:       false,
			URL:           "http://localhost:8086",
			Org:           "vigil",
			Bucket:        "vigil",
			BatchSize:     100,
			FlushInterval: 10,
		},
		Poller: PollerConfig{
			Interval: 10,
			CatchUp:  false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies VIGIL_* environment variables over file values.
// Only settings that plausibly differ per deployment get an override.
func applyEnvOverrides(cfg *Config) {
	setString := func(key string, target *string) {
		if v := os.Getenv(key); v != "" {
			*target = v
		}
	}
	setInt := func(key string, target *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*target = n
			}
		}
	}
	setBool := func(key string, target *bool) {
		if v := os.Getenv(key); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				*target = b
			}
		}
	}

	setString("VIGIL_SERVICE_ID", &cfg.Service.ID)
	setString("VIGIL_API_HOST", &cfg.API.Host)
	setInt("VIGIL_API_PORT", &cfg.API.Port)
	setString("VIGIL_STORE_BACKEND", &cfg.Store.Backend)
	setString("VIGIL_DATABASE_PATH", &cfg.Database.Path)
	setBool("VIGIL_MQTT_ENABLED", &cfg.MQTT.Enabled)
	setString("VIGIL_MQTT_HOST", &cfg.MQTT.Broker.Host)
	setInt("VIGIL_MQTT_PORT", &cfg.MQTT.Broker.Port)
	setString("VIGIL_MQTT_USERNAME", &cfg.MQTT.Auth.Username)
	setString("VIGIL_MQTT_PASSWORD", &cfg.MQTT.Auth.Password)
	setBool("VIGIL_INFLUXDB_ENABLED", &cfg.InfluxDB.Enabled)
	setString("VIGIL_INFLUXDB_URL", &cfg.InfluxDB.URL)
	setString("VIGIL_INFLUXDB_TOKEN", &cfg.InfluxDB.Token)
	setInt("VIGIL_POLLER_INTERVAL", &cfg.Poller.Interval)
	setBool("VIGIL_POLLER_CATCH_UP", &cfg.Poller.CatchUp)
	setString("VIGIL_LOG_LEVEL", &cfg.Logging.Level)
	setString("VIGIL_LOG_FORMAT", &cfg.Logging.Format)
}

// Validate checks the configuration for inconsistencies that would only
// surface later as confusing runtime failures.
func (c *Config) Validate() error {
	if c.Service.ID == "" {
		return fmt.Errorf("service.id must not be empty")
	}
	if c.API.Port < 1 || c.API.Port > 65535 {
		return fmt.Errorf("api.port must be 1-65535, got %d", c.API.Port)
	}

	switch strings.ToLower(c.Store.Backend) {
	case StoreBackendMemory, StoreBackendSQLite:
	default:
		return fmt.Errorf("store.backend must be %q or %q, got %q",
			StoreBackendMemory, StoreBackendSQLite, c.Store.Backend)
	}
	if strings.ToLower(c.Store.Backend) == StoreBackendSQLite && c.Database.Path == "" {
		return fmt.Errorf("database.path must be set for the sqlite store backend")
	}

	if c.MQTT.Enabled {
		if c.MQTT.Broker.Host == "" {
			return fmt.Errorf("mqtt.broker.host must be set when mqtt is enabled")
		}
		if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
			return fmt.Errorf("mqtt.qos must be 0-2, got %d", c.MQTT.QoS)
		}
	}
	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			return fmt.Errorf("influxdb.url must be set when influxdb is enabled")
		}
		if c.InfluxDB.Token == "" {
			return fmt.Errorf("influxdb.token must be set when influxdb is enabled")
		}
	}

	if c.Poller.Interval < 1 {
		return fmt.Errorf("poller.interval must be at least 1 second, got %d", c.Poller.Interval)
	}
	return nil
}

// GetReadTimeout returns the HTTP read timeout as a duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the HTTP write timeout as a duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the HTTP idle timeout as a duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
