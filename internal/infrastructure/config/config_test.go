package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	content := `
bridge:
  id: "lametric-office"
  state_interval: 30
device:
  host: "192.168.1.40"
  token: "abc123"
database:
  path: "/tmp/test.db"
mqtt:
  broker:
    host: "localhost"
    port: 1883
    client_id: "test-client"
  qos: 1
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Bridge.ID != "lametric-office" {
		t.Errorf("Bridge.ID = %q, want %q", cfg.Bridge.ID, "lametric-office")
	}
	if cfg.GetStateInterval() != 30*time.Second {
		t.Errorf("GetStateInterval() = %v, want 30s", cfg.GetStateInterval())
	}
	// Unset values keep their defaults.
	if cfg.GetAppsInterval() != time.Hour {
		t.Errorf("GetAppsInterval() = %v, want 1h", cfg.GetAppsInterval())
	}
	if cfg.Device.Port != 8080 {
		t.Errorf("Device.Port = %d, want 8080", cfg.Device.Port)
	}
	if cfg.Device.Username != "dev" {
		t.Errorf("Device.Username = %q, want dev", cfg.Device.Username)
	}
	if !cfg.Device.Enabled() {
		t.Error("Device.Enabled() = false, want true")
	}
}

func TestLoad_MissingDeviceIsNotAnError(t *testing.T) {
	cfg, err := Load(writeConfig(t, "bridge:\n  id: lametric\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Device.Enabled() {
		t.Error("Device.Enabled() = true without host/token")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "invalid: [yaml: content"))
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	_, err := Load(writeConfig(t, "bridge:\n  id: \"\"\n"))
	if err == nil {
		t.Fatal("Load() expected validation error, got nil")
	}
	if !strings.Contains(err.Error(), "bridge.id is required") {
		t.Errorf("Load() error = %v, want bridge.id message", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "missing bridge ID", mutate: func(c *Config) { c.Bridge.ID = "" }, wantErr: true},
		{name: "bridge ID with wildcard", mutate: func(c *Config) { c.Bridge.ID = "lametric/#" }, wantErr: true},
		{name: "zero state interval", mutate: func(c *Config) { c.Bridge.StateInterval = 0 }, wantErr: true},
		{name: "zero apps interval", mutate: func(c *Config) { c.Bridge.AppsInterval = 0 }, wantErr: true},
		{name: "zero command timeout", mutate: func(c *Config) { c.Bridge.CommandTimeout = 0 }, wantErr: true},
		{name: "invalid device port", mutate: func(c *Config) { c.Device.Port = 70000 }, wantErr: true},
		{name: "missing database path", mutate: func(c *Config) { c.Database.Path = "" }, wantErr: true},
		{name: "invalid QoS", mutate: func(c *Config) { c.MQTT.QoS = 3 }, wantErr: true},
		{name: "invalid API port", mutate: func(c *Config) { c.API.Port = 0 }, wantErr: true},
		{name: "disabled API ignores port", mutate: func(c *Config) { c.API.Enabled = false; c.API.Port = 0 }},
		{name: "influx without URL", mutate: func(c *Config) { c.InfluxDB.Enabled = true }, wantErr: true},
		{name: "bad log level", mutate: func(c *Config) { c.Logging.Level = "loud" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
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
		Bridge: BridgeConfig{CommandTimeout: 7},
		Device: DeviceConfig{Timeout: 3},
		API: APIConfig{
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 45,
				Idle:  60,
			},
		},
	}

	if got := cfg.GetCommandTimeout(); got != 7*time.Second {
		t.Errorf("GetCommandTimeout() = %v, want 7s", got)
	}
	if got := cfg.GetDeviceTimeout(); got != 3*time.Second {
		t.Errorf("GetDeviceTimeout() = %v, want 3s", got)
	}
	if got := cfg.API.Timeouts.ReadDuration().Seconds(); got != 30 {
		t.Errorf("ReadDuration() = %v, want 30", got)
	}
	if got := cfg.API.Timeouts.WriteDuration().Seconds(); got != 45 {
		t.Errorf("WriteDuration() = %v, want 45", got)
	}
	if got := cfg.API.Timeouts.IdleDuration().Seconds(); got != 60 {
		t.Errorf("IdleDuration() = %v, want 60", got)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := defaultConfig()

	t.Setenv("LAMETRIC_BRIDGE_ID", "kitchen")
	t.Setenv("LAMETRIC_BRIDGE_DEVICE_HOST", "10.0.0.9")
	t.Setenv("LAMETRIC_BRIDGE_DEVICE_TOKEN", "device-token")
	t.Setenv("LAMETRIC_BRIDGE_DATABASE_PATH", "/custom/path.db")
	t.Setenv("LAMETRIC_BRIDGE_MQTT_HOST", "mqtt.example.com")
	t.Setenv("LAMETRIC_BRIDGE_MQTT_USERNAME", "testuser")
	t.Setenv("LAMETRIC_BRIDGE_MQTT_PASSWORD", "testpass")
	t.Setenv("LAMETRIC_BRIDGE_INFLUXDB_TOKEN", "secret-token")

	applyEnvOverrides(cfg)

	checks := map[string][2]string{
		"Bridge.ID":          {cfg.Bridge.ID, "kitchen"},
		"Device.Host":        {cfg.Device.Host, "10.0.0.9"},
		"Device.Token":       {cfg.Device.Token, "device-token"},
		"Database.Path":      {cfg.Database.Path, "/custom/path.db"},
		"MQTT.Broker.Host":   {cfg.MQTT.Broker.Host, "mqtt.example.com"},
		"MQTT.Auth.Username": {cfg.MQTT.Auth.Username, "testuser"},
		"MQTT.Auth.Password": {cfg.MQTT.Auth.Password, "testpass"},
		"InfluxDB.Token":     {cfg.InfluxDB.Token, "secret-token"},
	}
	for field, pair := range checks {
		if pair[0] != pair[1] {
			t.Errorf("%s = %q, want %q", field, pair[0], pair[1])
		}
	}
}

func TestDeviceConfig_StringRedactsToken(t *testing.T) {
	d := DeviceConfig{Host: "10.0.0.9", Port: 8080, Username: "dev", Token: "super-secret"}

	s := d.String()
	if strings.Contains(s, "super-secret") {
		t.Errorf("String() leaked token: %s", s)
	}
	if !strings.Contains(s, "[REDACTED]") {
		t.Errorf("String() = %s, want redaction marker", s)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Bridge.StateInterval != 60 {
		t.Errorf("StateInterval = %d, want 60", cfg.Bridge.StateInterval)
	}
	if cfg.Bridge.AppsInterval != 60*cfg.Bridge.StateInterval {
		t.Errorf("AppsInterval = %d, want 60x state interval", cfg.Bridge.AppsInterval)
	}
	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("MQTT.Broker.Port = %d, want 1883", cfg.MQTT.Broker.Port)
	}
	if cfg.Device.Enabled() {
		t.Error("default device config should be disabled")
	}
}
