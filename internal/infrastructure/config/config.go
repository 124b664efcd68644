package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the resource simulator.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Simulator SimulatorConfig `yaml:"simulator"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Logging   LoggingConfig   `yaml:"logging"`
	Security  SecurityConfig  `yaml:"security"`
}

// SimulatorConfig contains the simulator instance settings.
type SimulatorConfig struct {
	// ID identifies this simulator on the shared broker. It is the host name
	// announced in discovery and the client id of response topics.
	ID string `yaml:"id"`

	// Definitions is the path of the YAML resource definitions file.
	Definitions string `yaml:"definitions"`

	// UpdateInterval is the default pause between automatic updates (ms).
	UpdateInterval int `yaml:"update_interval"`

	// RequestTimeout bounds the wait for a remote response (ms).
	RequestTimeout int `yaml:"request_timeout"`

	// DiscoveryWait is how long discovery collects announcements (ms).
	DiscoveryWait int `yaml:"discovery_wait"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`

	// TopicPrefix is the first level of every simulator topic.
	TopicPrefix string `yaml:"topic_prefix"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	TLS  bool   `yaml:"tls"`

	// ClientID defaults to simulator.id. Peers match offline status
	// messages to announcements by this id.
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

// APIConfig contains HTTP control API settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
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

// APITimeoutConfig contains HTTP timeout settings (seconds).
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// WebSocketConfig contains WebSocket event feed settings.
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

// MetricsConfig contains Prometheus exporter settings.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Path      string `yaml:"path"`
	Namespace string `yaml:"namespace"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// SecurityConfig contains security settings.
type SecurityConfig struct {
	JWT JWTConfig `yaml:"jwt"`
}

// JWTConfig contains bearer token settings for the control API.
// An empty secret disables authentication.
type JWTConfig struct {
	Secret string `yaml:"secret"`
	Issuer string `yaml:"issuer"`
}

// Load reads a YAML file over the defaults, then applies SIMULATOR_*
// environment overrides and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse is Load without the file read.
func Parse(data []byte) (*Config, error) {
	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Simulator: SimulatorConfig{
			ID:             "simulator-001",
			Definitions:    "./configs/resources.yaml",
			UpdateInterval: 1000,
			RequestTimeout: 5000,
			DiscoveryWait:  2000,
		},
		Database: DatabaseConfig{
			Path:        "./data/simulator.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host: "localhost",
				Port: 1883,
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
			TopicPrefix: "iotsim",
		},
		API: APIConfig{
			Enabled: true,
			Host:    "0.0.0.0",
			Port:    8090,
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
		Metrics: MetricsConfig{
			Enabled:   true,
			Path:      "/metrics",
			Namespace: "iotsim",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Security: SecurityConfig{
			JWT: JWTConfig{
				Issuer: "iot-simulator",
			},
		},
	}
}

// envOverrides maps each SIMULATOR_* variable onto the field it sets.
func envOverrides(c *Config) map[string]func(string) {
	return map[string]func(string){
		"SIMULATOR_ID":              setString(&c.Simulator.ID),
		"SIMULATOR_DEFINITIONS":     setString(&c.Simulator.Definitions),
		"SIMULATOR_UPDATE_INTERVAL": setInt(&c.Simulator.UpdateInterval),
		"SIMULATOR_DATABASE_PATH":   setString(&c.Database.Path),
		"SIMULATOR_MQTT_HOST":       setString(&c.MQTT.Broker.Host),
		"SIMULATOR_MQTT_PORT":       setInt(&c.MQTT.Broker.Port),
		"SIMULATOR_MQTT_USERNAME":   setString(&c.MQTT.Auth.Username),
		"SIMULATOR_MQTT_PASSWORD":   setString(&c.MQTT.Auth.Password),
		"SIMULATOR_MQTT_TLS":        setBool(&c.MQTT.Broker.TLS),
		"SIMULATOR_API_HOST":        setString(&c.API.Host),
		"SIMULATOR_API_PORT":        setInt(&c.API.Port),
		"SIMULATOR_INFLUXDB_URL":    setString(&c.InfluxDB.URL),
		"SIMULATOR_INFLUXDB_TOKEN":  setString(&c.InfluxDB.Token),
		"SIMULATOR_LOG_LEVEL":       setString(&c.Logging.Level),
		"SIMULATOR_JWT_SECRET":      setString(&c.Security.JWT.Secret),
	}
}

// applyEnvOverrides applies every non-empty override. Values that do not
// parse as the field's type are ignored.
func applyEnvOverrides(cfg *Config) {
	for name, set := range envOverrides(cfg) {
		if v := os.Getenv(name); v != "" {
			set(v)
		}
	}
}

func setString(p *string) func(string) {
	return func(v string) { *p = v }
}

func setInt(p *int) func(string) {
	return func(v string) {
		if n, err := strconv.Atoi(v); err == nil {
			*p = n
		}
	}
}

func setBool(p *bool) func(string) {
	return func(v string) {
		if b, err := strconv.ParseBool(v); err == nil {
			*p = b
		}
	}
}

// Validate checks the configuration and reports every problem at once.
func (c *Config) Validate() error {
	var errs []string

	if c.Simulator.ID == "" {
		errs = append(errs, "simulator.id is required")
	} else if strings.ContainsAny(c.Simulator.ID, "/+#") {
		errs = append(errs, "simulator.id must not contain MQTT topic characters (/ + #)")
	}
	if c.Simulator.UpdateInterval < 0 {
		errs = append(errs, "simulator.update_interval must not be negative")
	}
	if c.Simulator.RequestTimeout <= 0 {
		errs = append(errs, "simulator.request_timeout must be positive")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.TopicPrefix == "" || strings.ContainsAny(c.MQTT.TopicPrefix, "+#") {
		errs = append(errs, "mqtt.topic_prefix must be set and free of wildcards")
	}

	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}
	if c.API.TLS.Enabled && (c.API.TLS.CertFile == "" || c.API.TLS.KeyFile == "") {
		errs = append(errs, "api.tls requires cert_file and key_file")
	}

	if c.InfluxDB.Enabled && (c.InfluxDB.URL == "" || c.InfluxDB.Bucket == "") {
		errs = append(errs, "influxdb.url and influxdb.bucket are required when enabled")
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		errs = append(errs, "metrics.path must start with /")
	}

	const minJWTSecretLength = 32
	if s := c.Security.JWT.Secret; s != "" && len(s) < minJWTSecretLength {
		errs = append(errs, "security.jwt.secret must be at least 32 characters")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetUpdateInterval returns the default automatic update interval.
func (c *Config) GetUpdateInterval() time.Duration {
	return time.Duration(c.Simulator.UpdateInterval) * time.Millisecond
}

// GetRequestTimeout returns the remote request timeout.
func (c *Config) GetRequestTimeout() time.Duration {
	return time.Duration(c.Simulator.RequestTimeout) * time.Millisecond
}

// GetDiscoveryWait returns how long discovery collects announcements.
func (c *Config) GetDiscoveryWait() time.Duration {
	return time.Duration(c.Simulator.DiscoveryWait) * time.Millisecond
}

// GetMQTTConfig returns the MQTT settings with the client id resolved.
func (c *Config) GetMQTTConfig() MQTTConfig {
	m := c.MQTT
	if m.Broker.ClientID == "" {
		m.Broker.ClientID = c.Simulator.ID
	}
	return m
}
