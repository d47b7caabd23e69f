package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Bridge defaults, matching what the Control4 driver ships with.
const (
	DefaultBridgeID         = "main_house"
	DefaultBridgeName       = "Control4 Bridge"
	DefaultCommandBatchSize = 25

	// MinCommandBatchSize and MaxCommandBatchSize bound how many commands
	// a single poll may return.
	MinCommandBatchSize = 1
	MaxCommandBatchSize = 100
)

// Config is the root configuration structure for the Control4 bridge core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Bridge    BridgeConfig    `yaml:"bridge" toml:"bridge"`
	Database  DatabaseConfig  `yaml:"database" toml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt" toml:"mqtt"`
	API       APIConfig       `yaml:"api" toml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket" toml:"websocket"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb" toml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging" toml:"logging"`
	Audit     AuditConfig     `yaml:"audit" toml:"audit"`
}

// BridgeConfig identifies the Control4 installation this process mirrors.
type BridgeConfig struct {
	// ID must match the bridge_id the driver sends on every call.
	ID   string `yaml:"id" toml:"id"`
	Name string `yaml:"name" toml:"name"`

	// SharedSecret is compared against the X-C4-Bridge-Secret header.
	SharedSecret string `yaml:"shared_secret" toml:"shared_secret"`

	// CommandBatchSize is the default number of commands returned per poll
	// when the driver omits the limit parameter.
	CommandBatchSize int `yaml:"command_batch_size" toml:"command_batch_size"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path" toml:"path"`
	WALMode     bool   `yaml:"wal_mode" toml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout" toml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled     bool                `yaml:"enabled" toml:"enabled"`
	Broker      MQTTBrokerConfig    `yaml:"broker" toml:"broker"`
	Auth        MQTTAuthConfig      `yaml:"auth" toml:"auth"`
	QoS         int                 `yaml:"qos" toml:"qos"`
	TopicPrefix string              `yaml:"topic_prefix" toml:"topic_prefix"`
	Reconnect   MQTTReconnectConfig `yaml:"reconnect" toml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host" toml:"host"`
	Port     int    `yaml:"port" toml:"port"`
	TLS      bool   `yaml:"tls" toml:"tls"`
	ClientID string `yaml:"client_id" toml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username" toml:"username"`
	Password string `yaml:"password" toml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay" toml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay" toml:"max_delay"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host" toml:"host"`
	Port     int              `yaml:"port" toml:"port"`
	TLS      TLSConfig        `yaml:"tls" toml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts" toml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors" toml:"cors"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled" toml:"enabled"`
	CertFile string `yaml:"cert_file" toml:"cert_file"`
	KeyFile  string `yaml:"key_file" toml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read" toml:"read"`
	Write int `yaml:"write" toml:"write"`
	Idle  int `yaml:"idle" toml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" toml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods" toml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers" toml:"allowed_headers"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	MaxMessageSize int `yaml:"max_message_size" toml:"max_message_size"`
	PingInterval   int `yaml:"ping_interval" toml:"ping_interval"`
	PongTimeout    int `yaml:"pong_timeout" toml:"pong_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled" toml:"enabled"`
	URL           string `yaml:"url" toml:"url"`
	Token         string `yaml:"token" toml:"token"`
	Org           string `yaml:"org" toml:"org"`
	Bucket        string `yaml:"bucket" toml:"bucket"`
	BatchSize     int    `yaml:"batch_size" toml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval" toml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
	Output string `yaml:"output" toml:"output"`
}

// AuditConfig controls the command audit trail.
type AuditConfig struct {
	Enabled bool `yaml:"enabled" toml:"enabled"`

	// BufferSize is the number of lifecycle events held in memory while
	// waiting to be written. Events beyond this are dropped and counted.
	BufferSize int `yaml:"buffer_size" toml:"buffer_size"`

	// RetentionDays prunes audit rows older than this many days. 0 keeps everything.
	RetentionDays int `yaml:"retention_days" toml:"retention_days"`
}

// Load reads configuration from a YAML or TOML file and applies environment
// variable overrides. Files ending in .toml are decoded as TOML; anything else
// as YAML.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. File values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: C4BRIDGE_SECTION_KEY
// For example: C4BRIDGE_SHARED_SECRET, C4BRIDGE_DATABASE_PATH
//
// Parameters:
//   - path: Path to the configuration file
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

	if err := decode(path, data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)
	cfg.normalise()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		_, err := toml.Decode(string(data), cfg)
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Bridge: BridgeConfig{
			ID:               DefaultBridgeID,
			Name:             DefaultBridgeName,
			CommandBatchSize: DefaultCommandBatchSize,
		},
		Database: DatabaseConfig{
			Path:        "./data/c4bridge.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "c4bridge-core",
			},
			QoS:         1,
			TopicPrefix: "control4_bridge",
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8123,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Audit: AuditConfig{
			Enabled:       true,
			BufferSize:    512,
			RetentionDays: 30,
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: C4BRIDGE_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Bridge identity. The secret should always come from the environment in production.
	if v := os.Getenv("C4BRIDGE_BRIDGE_ID"); v != "" {
		cfg.Bridge.ID = v
	}
	if v := os.Getenv("C4BRIDGE_SHARED_SECRET"); v != "" {
		cfg.Bridge.SharedSecret = v
	}

	if v := os.Getenv("C4BRIDGE_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	if v := os.Getenv("C4BRIDGE_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("C4BRIDGE_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("C4BRIDGE_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	if v := os.Getenv("C4BRIDGE_API_HOST"); v != "" {
		cfg.API.Host = v
	}

	if v := os.Getenv("C4BRIDGE_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// normalise trims identity fields the way the driver-side setup form does,
// and fills in a blank name.
func (c *Config) normalise() {
	c.Bridge.ID = strings.TrimSpace(c.Bridge.ID)
	c.Bridge.SharedSecret = strings.TrimSpace(c.Bridge.SharedSecret)
	c.Bridge.Name = strings.TrimSpace(c.Bridge.Name)
	if c.Bridge.Name == "" {
		c.Bridge.Name = DefaultBridgeName
	}
}

// Validate checks the configuration for errors and security issues.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Bridge.ID == "" {
		errs = append(errs, "bridge.id is required")
	}
	// Every driver call is authenticated with this value alone.
	if c.Bridge.SharedSecret == "" {
		errs = append(errs, "bridge.shared_secret is required (set C4BRIDGE_SHARED_SECRET environment variable)")
	}
	if c.Bridge.CommandBatchSize < MinCommandBatchSize || c.Bridge.CommandBatchSize > MaxCommandBatchSize {
		errs = append(errs, fmt.Sprintf("bridge.command_batch_size must be between %d and %d", MinCommandBatchSize, MaxCommandBatchSize))
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Enabled && c.MQTT.TopicPrefix == "" {
		errs = append(errs, "mqtt.topic_prefix is required when mqtt is enabled")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	if c.Audit.BufferSize < 0 {
		errs = append(errs, "audit.buffer_size must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
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
