package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_ValidConfig(t *testing.T) {
	content := `
simulator:
  id: "lab-sim"
  definitions: "./resources.yaml"
  update_interval: 250
database:
  path: "/tmp/test.db"
mqtt:
  broker:
    host: "broker.local"
    port: 1884
  qos: 1
api:
  port: 9000
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Simulator.ID != "lab-sim" {
		t.Errorf("Simulator.ID = %q, want %q", cfg.Simulator.ID, "lab-sim")
	}
	if cfg.GetUpdateInterval() != 250*time.Millisecond {
		t.Errorf("GetUpdateInterval() = %v, want 250ms", cfg.GetUpdateInterval())
	}
	if cfg.MQTT.Broker.Port != 1884 {
		t.Errorf("MQTT.Broker.Port = %d, want 1884", cfg.MQTT.Broker.Port)
	}
	// Defaults survive for keys the file omits.
	if cfg.GetRequestTimeout() != 5*time.Second {
		t.Errorf("GetRequestTimeout() = %v, want 5s", cfg.GetRequestTimeout())
	}
	if got := cfg.GetMQTTConfig().Broker.ClientID; got != "lab-sim" {
		t.Errorf("GetMQTTConfig().Broker.ClientID = %q, want simulator id", got)
	}
	if cfg.Metrics.Path != "/metrics" {
		t.Errorf("Metrics.Path = %q", cfg.Metrics.Path)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	if _, err := Parse([]byte("invalid: [yaml: content")); err == nil {
		t.Error("Parse() expected error for invalid YAML, got nil")
	}
}

func TestParse_EnvOverrides(t *testing.T) {
	t.Setenv("SIMULATOR_ID", "env-sim")
	t.Setenv("SIMULATOR_API_PORT", "9100")
	t.Setenv("SIMULATOR_MQTT_HOST", "mqtt.example")
	t.Setenv("SIMULATOR_MQTT_TLS", "true")
	t.Setenv("SIMULATOR_MQTT_PORT", "not-a-number")

	cfg, err := Parse([]byte("simulator:\n  id: file-sim\n"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg.Simulator.ID != "env-sim" {
		t.Errorf("Simulator.ID = %q, want env-sim", cfg.Simulator.ID)
	}
	if cfg.API.Port != 9100 {
		t.Errorf("API.Port = %d, want 9100", cfg.API.Port)
	}
	if cfg.MQTT.Broker.Host != "mqtt.example" || !cfg.MQTT.Broker.TLS {
		t.Errorf("MQTT.Broker = %+v", cfg.MQTT.Broker)
	}
	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("unparseable port override applied: %d", cfg.MQTT.Broker.Port)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(*Config) {},
		},
		{
			name:    "empty simulator id",
			mutate:  func(c *Config) { c.Simulator.ID = "" },
			wantErr: "simulator.id is required",
		},
		{
			name:    "topic characters in id",
			mutate:  func(c *Config) { c.Simulator.ID = "lab/1" },
			wantErr: "simulator.id must not contain",
		},
		{
			name:    "invalid qos",
			mutate:  func(c *Config) { c.MQTT.QoS = 3 },
			wantErr: "mqtt.qos",
		},
		{
			name:    "invalid api port",
			mutate:  func(c *Config) { c.API.Port = 0 },
			wantErr: "api.port",
		},
		{
			name:   "api port ignored when disabled",
			mutate: func(c *Config) { c.API.Enabled = false; c.API.Port = 0 },
		},
		{
			name:    "short jwt secret",
			mutate:  func(c *Config) { c.Security.JWT.Secret = "short" },
			wantErr: "security.jwt.secret",
		},
		{
			name:    "influx enabled without url",
			mutate:  func(c *Config) { c.InfluxDB.Enabled = true },
			wantErr: "influxdb.url",
		},
		{
			name:    "request timeout",
			mutate:  func(c *Config) { c.Simulator.RequestTimeout = 0 },
			wantErr: "simulator.request_timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_ReportsAllErrors(t *testing.T) {
	cfg := defaultConfig()
	cfg.Simulator.ID = ""
	cfg.Database.Path = ""

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() error = nil")
	}
	for _, want := range []string{"simulator.id", "database.path"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}
