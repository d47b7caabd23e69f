package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	return writeConfigFile(t, "config.yaml", content)
}

func writeConfigFile(t *testing.T, name, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	configPath := writeConfig(t, `
bridge:
  id: "  beach_house "
  name: ""
  shared_secret: " s3cret "
  command_batch_size: 40
database:
  path: "/tmp/test.db"
mqtt:
  enabled: true
  broker:
    host: "localhost"
    port: 1883
    client_id: "test-client"
  qos: 1
api:
  port: 8123
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Bridge.ID != "beach_house" {
		t.Errorf("Bridge.ID = %q, want %q", cfg.Bridge.ID, "beach_house")
	}
	if cfg.Bridge.SharedSecret != "s3cret" {
		t.Errorf("Bridge.SharedSecret = %q, want trimmed %q", cfg.Bridge.SharedSecret, "s3cret")
	}
	if cfg.Bridge.Name != DefaultBridgeName {
		t.Errorf("Bridge.Name = %q, want default %q", cfg.Bridge.Name, DefaultBridgeName)
	}
	if cfg.Bridge.CommandBatchSize != 40 {
		t.Errorf("Bridge.CommandBatchSize = %d, want 40", cfg.Bridge.CommandBatchSize)
	}
	if cfg.MQTT.TopicPrefix != "control4_bridge" {
		t.Errorf("MQTT.TopicPrefix = %q, want default %q", cfg.MQTT.TopicPrefix, "control4_bridge")
	}
}

func TestLoad_TOML(t *testing.T) {
	configPath := writeConfigFile(t, "config.toml", `
[bridge]
id = "cabin"
shared_secret = "s3cret"
command_batch_size = 10

[mqtt]
enabled = true
topic_prefix = "c4"

[mqtt.broker]
host = "broker.local"
port = 1884

[api]
port = 9000

[api.cors]
allowed_origins = ["http://panel.local"]
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Bridge.ID != "cabin" || cfg.Bridge.CommandBatchSize != 10 {
		t.Errorf("Bridge = %+v", cfg.Bridge)
	}
	if cfg.MQTT.Broker.Host != "broker.local" || cfg.MQTT.Broker.Port != 1884 || cfg.MQTT.TopicPrefix != "c4" {
		t.Errorf("MQTT = %+v", cfg.MQTT)
	}
	if cfg.MQTT.Broker.ClientID != "c4bridge-core" {
		t.Errorf("MQTT.Broker.ClientID = %q, want default kept", cfg.MQTT.Broker.ClientID)
	}
	if cfg.API.Port != 9000 || len(cfg.API.CORS.AllowedOrigins) != 1 {
		t.Errorf("API = %+v", cfg.API)
	}
}

func TestLoad_InvalidTOML(t *testing.T) {
	configPath := writeConfigFile(t, "config.toml", "[bridge\nid = ")

	if _, err := Load(configPath); err == nil {
		t.Error("Load() expected error for invalid TOML, got nil")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := writeConfig(t, "invalid: [yaml: content")

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_MissingSecret(t *testing.T) {
	configPath := writeConfig(t, `
bridge:
  id: "main_house"
`)

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("Load() expected validation error for missing secret, got nil")
	}
	if !strings.Contains(err.Error(), "shared_secret") {
		t.Errorf("error = %v, want mention of shared_secret", err)
	}
}

func TestLoad_SecretFromEnvironment(t *testing.T) {
	configPath := writeConfig(t, `
bridge:
  id: "main_house"
`)
	t.Setenv("C4BRIDGE_SHARED_SECRET", "from-env")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Bridge.SharedSecret != "from-env" {
		t.Errorf("Bridge.SharedSecret = %q, want %q", cfg.Bridge.SharedSecret, "from-env")
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		cfg := defaultConfig()
		cfg.Bridge.SharedSecret = "secret"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid config", mutate: func(*Config) {}, wantErr: false},
		{name: "missing bridge id", mutate: func(c *Config) { c.Bridge.ID = "" }, wantErr: true},
		{name: "missing secret", mutate: func(c *Config) { c.Bridge.SharedSecret = "" }, wantErr: true},
		{name: "batch size zero", mutate: func(c *Config) { c.Bridge.CommandBatchSize = 0 }, wantErr: true},
		{name: "batch size too large", mutate: func(c *Config) { c.Bridge.CommandBatchSize = 101 }, wantErr: true},
		{name: "batch size upper bound", mutate: func(c *Config) { c.Bridge.CommandBatchSize = 100 }, wantErr: false},
		{name: "missing database path", mutate: func(c *Config) { c.Database.Path = "" }, wantErr: true},
		{name: "invalid QoS", mutate: func(c *Config) { c.MQTT.QoS = 3 }, wantErr: true},
		{name: "mqtt enabled without prefix", mutate: func(c *Config) {
			c.MQTT.Enabled = true
			c.MQTT.TopicPrefix = ""
		}, wantErr: true},
		{name: "invalid port low", mutate: func(c *Config) { c.API.Port = 0 }, wantErr: true},
		{name: "invalid port high", mutate: func(c *Config) { c.API.Port = 70000 }, wantErr: true},
		{name: "influxdb enabled without url", mutate: func(c *Config) { c.InfluxDB.Enabled = true }, wantErr: true},
		{name: "negative audit buffer", mutate: func(c *Config) { c.Audit.BufferSize = -1 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_GetTimeouts(t *testing.T) {
	cfg := &Config{
		API: APIConfig{
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 45,
				Idle:  60,
			},
		},
	}

	if got := cfg.GetReadTimeout().Seconds(); got != 30 {
		t.Errorf("GetReadTimeout() = %v, want 30", got)
	}
	if got := cfg.GetWriteTimeout().Seconds(); got != 45 {
		t.Errorf("GetWriteTimeout() = %v, want 45", got)
	}
	if got := cfg.GetIdleTimeout().Seconds(); got != 60 {
		t.Errorf("GetIdleTimeout() = %v, want 60", got)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := defaultConfig()

	t.Setenv("C4BRIDGE_BRIDGE_ID", "cabin")
	t.Setenv("C4BRIDGE_SHARED_SECRET", "env-secret")
	t.Setenv("C4BRIDGE_DATABASE_PATH", "/custom/path.db")
	t.Setenv("C4BRIDGE_MQTT_HOST", "mqtt.example.com")
	t.Setenv("C4BRIDGE_MQTT_USERNAME", "testuser")
	t.Setenv("C4BRIDGE_MQTT_PASSWORD", "testpass")
	t.Setenv("C4BRIDGE_API_HOST", "192.168.1.1")
	t.Setenv("C4BRIDGE_INFLUXDB_TOKEN", "secret-token")

	applyEnvOverrides(cfg)

	checks := []struct {
		field, got, want string
	}{
		{"Bridge.ID", cfg.Bridge.ID, "cabin"},
		{"Bridge.SharedSecret", cfg.Bridge.SharedSecret, "env-secret"},
		{"Database.Path", cfg.Database.Path, "/custom/path.db"},
		{"MQTT.Broker.Host", cfg.MQTT.Broker.Host, "mqtt.example.com"},
		{"MQTT.Auth.Username", cfg.MQTT.Auth.Username, "testuser"},
		{"MQTT.Auth.Password", cfg.MQTT.Auth.Password, "testpass"},
		{"API.Host", cfg.API.Host, "192.168.1.1"},
		{"InfluxDB.Token", cfg.InfluxDB.Token, "secret-token"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %q, want %q", c.field, c.got, c.want)
		}
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Bridge.ID != DefaultBridgeID {
		t.Errorf("defaultConfig Bridge.ID = %q, want %q", cfg.Bridge.ID, DefaultBridgeID)
	}
	if cfg.Bridge.CommandBatchSize != DefaultCommandBatchSize {
		t.Errorf("defaultConfig Bridge.CommandBatchSize = %d, want %d", cfg.Bridge.CommandBatchSize, DefaultCommandBatchSize)
	}
	if cfg.MQTT.Enabled {
		t.Error("defaultConfig should leave MQTT disabled")
	}
	if !cfg.Audit.Enabled {
		t.Error("defaultConfig should enable the audit trail")
	}
}
