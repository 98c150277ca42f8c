package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeConfig writes a temporary YAML config file and returns its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Store.Backend != StoreBackendMemory {
		t.Errorf("Store.Backend = %q, want memory", cfg.Store.Backend)
	}
	if cfg.API.Port != 8000 {
		t.Errorf("API.Port = %d, want 8000", cfg.API.Port)
	}
	if cfg.Poller.Interval != 10 {
		t.Errorf("Poller.Interval = %d, want 10", cfg.Poller.Interval)
	}
	if cfg.MQTT.Enabled || cfg.InfluxDB.Enabled {
		t.Error("MQTT and InfluxDB should be disabled by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoad(t *testing.T) {
	t.Run("file values override defaults", func(t *testing.T) {
		path := writeConfig(t, `
service:
  id: vigil-test
api:
  port: 9000
store:
  backend: sqlite
database:
  path: /tmp/test.db
poller:
  interval: 2
  catch_up: true
`)
		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.Service.ID != "vigil-test" {
			t.Errorf("Service.ID = %q", cfg.Service.ID)
		}
		if cfg.API.Port != 9000 {
			t.Errorf("API.Port = %d, want 9000", cfg.API.Port)
		}
		if cfg.Store.Backend != StoreBackendSQLite {
			t.Errorf("Store.Backend = %q, want sqlite", cfg.Store.Backend)
		}
		if !cfg.Poller.CatchUp || cfg.Poller.Interval != 2 {
			t.Errorf("Poller = %+v", cfg.Poller)
		}
		// Untouched sections keep their defaults.
		if cfg.API.Timeouts.Read != 15 {
			t.Errorf("API.Timeouts.Read = %d, want default 15", cfg.API.Timeouts.Read)
		}
	})

	t.Run("missing file fails", func(t *testing.T) {
		if _, err := Load("/nonexistent/config.yaml"); err == nil {
			t.Error("Load() should fail for a missing file")
		}
	})

	t.Run("malformed yaml fails", func(t *testing.T) {
		path := writeConfig(t, "service: [not: a: mapping")
		if _, err := Load(path); err == nil {
			t.Error("Load() should fail for malformed YAML")
		}
	})
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, `
api:
  port: 9000
`)

	t.Setenv("VIGIL_API_PORT", "7777")
	t.Setenv("VIGIL_SERVICE_ID", "vigil-env")
	t.Setenv("VIGIL_STORE_BACKEND", "sqlite")
	t.Setenv("VIGIL_DATABASE_PATH", "/tmp/env.db")
	t.Setenv("VIGIL_POLLER_CATCH_UP", "true")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.API.Port != 7777 {
		t.Errorf("API.Port = %d, want env override 7777", cfg.API.Port)
	}
	if cfg.Service.ID != "vigil-env" {
		t.Errorf("Service.ID = %q, want vigil-env", cfg.Service.ID)
	}
	if cfg.Store.Backend != "sqlite" || cfg.Database.Path != "/tmp/env.db" {
		t.Errorf("store override not applied: %+v %+v", cfg.Store, cfg.Database)
	}
	if !cfg.Poller.CatchUp {
		t.Error("Poller.CatchUp env override not applied")
	}

	t.Run("invalid integer is ignored", func(t *testing.T) {
		t.Setenv("VIGIL_API_PORT", "not-a-number")
		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.API.Port != 9000 {
			t.Errorf("API.Port = %d, want file value 9000", cfg.API.Port)
		}
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "empty service id",
			mutate:  func(c *Config) { c.Service.ID = "" },
			wantErr: "service.id",
		},
		{
			name:    "port out of range",
			mutate:  func(c *Config) { c.API.Port = 70000 },
			wantErr: "api.port",
		},
		{
			name:    "unknown store backend",
			mutate:  func(c *Config) { c.Store.Backend = "redis" },
			wantErr: "store.backend",
		},
		{
			name: "sqlite backend without a path",
			mutate: func(c *Config) {
				c.Store.Backend = StoreBackendSQLite
				c.Database.Path = ""
			},
			wantErr: "database.path",
		},
		{
			name: "mqtt enabled without a host",
			mutate: func(c *Config) {
				c.MQTT.Enabled = true
				c.MQTT.Broker.Host = ""
			},
			wantErr: "mqtt.broker.host",
		},
		{
			name: "mqtt qos out of range",
			mutate: func(c *Config) {
				c.MQTT.Enabled = true
				c.MQTT.QoS = 3
			},
			wantErr: "mqtt.qos",
		},
		{
			name: "influxdb enabled without a token",
			mutate: func(c *Config) {
				c.InfluxDB.Enabled = true
				c.InfluxDB.Token = ""
			},
			wantErr: "influxdb.token",
		},
		{
			name:    "poller interval below one second",
			mutate:  func(c *Config) { c.Poller.Interval = 0 },
			wantErr: "poller.interval",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() should fail")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestTimeoutAccessors(t *testing.T) {
	cfg := Default()
	if cfg.GetReadTimeout().Seconds() != 15 {
		t.Errorf("GetReadTimeout() = %v, want 15s", cfg.GetReadTimeout())
	}
	if cfg.GetIdleTimeout().Seconds() != 60 {
		t.Errorf("GetIdleTimeout() = %v, want 60s", cfg.GetIdleTimeout())
	}
}
