package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_ValidConfig(t *testing.T) {
	// Create a temporary config file
	content := `
service:
  id: "test-pilot"
cycle:
  update_rate: 250
controllers:
  - name: "diff_drive"
    type: "pilot/diff_drive"
    update_rate: 50
    activate: true
  - name: "arm"
    type: "pilot/arm"
    configure: true
database:
  path: "/tmp/test.db"
  wal_mode: true
  busy_timeout: 5
mqtt:
  enabled: true
  broker:
    host: "localhost"
    port: 1883
    client_id: "test-client"
  qos: 1
api:
  host: "0.0.0.0"
  port: 8080
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

	if cfg.Service.ID != "test-pilot" {
		t.Errorf("Service.ID = %q, want %q", cfg.Service.ID, "test-pilot")
	}

	if cfg.Cycle.UpdateRate != 250 {
		t.Errorf("Cycle.UpdateRate = %d, want 250", cfg.Cycle.UpdateRate)
	}

	if len(cfg.Controllers) != 2 {
		t.Fatalf("len(Controllers) = %d, want 2", len(cfg.Controllers))
	}

	if cfg.Controllers[0].Name != "diff_drive" || !cfg.Controllers[0].Activate {
		t.Errorf("Controllers[0] = %+v, want activating diff_drive", cfg.Controllers[0])
	}

	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/tmp/test.db")
	}

	if cfg.MQTT.Broker.Host != "localhost" || !cfg.MQTT.Enabled {
		t.Errorf("MQTT = %+v, want enabled localhost broker", cfg.MQTT)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("invalid: [yaml: content"), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	content := `
service:
  id: ""
database:
  path: "/tmp/test.db"
api:
  port: 8080
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected validation error for empty service.id, got nil")
	}
}

// validBase returns a config that passes validation, for per-case mutation.
func validBase() *Config {
	return &Config{
		Service:  ServiceConfig{ID: "pilot-001"},
		Cycle:    CycleConfig{UpdateRate: 100},
		Database: DatabaseConfig{Path: "/data/pilot.db"},
		MQTT:     MQTTConfig{QoS: 1},
		API:      APIConfig{Port: 8080},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid config",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name:    "missing service ID",
			mutate:  func(c *Config) { c.Service.ID = "" },
			wantErr: true,
		},
		{
			name:    "zero update rate",
			mutate:  func(c *Config) { c.Cycle.UpdateRate = 0 },
			wantErr: true,
		},
		{
			name:    "update rate above cap",
			mutate:  func(c *Config) { c.Cycle.UpdateRate = 2000 },
			wantErr: true,
		},
		{
			name: "controller without name",
			mutate: func(c *Config) {
				c.Controllers = []ControllerConfig{{Type: "pilot/test"}}
			},
			wantErr: true,
		},
		{
			name: "controller without type",
			mutate: func(c *Config) {
				c.Controllers = []ControllerConfig{{Name: "c1"}}
			},
			wantErr: true,
		},
		{
			name: "duplicate controller names",
			mutate: func(c *Config) {
				c.Controllers = []ControllerConfig{
					{Name: "c1", Type: "pilot/test"},
					{Name: "c1", Type: "pilot/test"},
				}
			},
			wantErr: true,
		},
		{
			name:    "missing database path",
			mutate:  func(c *Config) { c.Database.Path = "" },
			wantErr: true,
		},
		{
			name:    "invalid QoS",
			mutate:  func(c *Config) { c.MQTT.QoS = 3 },
			wantErr: true,
		},
		{
			name:    "invalid port low",
			mutate:  func(c *Config) { c.API.Port = 0 },
			wantErr: true,
		},
		{
			name:    "invalid port high",
			mutate:  func(c *Config) { c.API.Port = 70000 },
			wantErr: true,
		},
		{
			name:    "empty JWT secret is allowed",
			mutate:  func(c *Config) { c.Security.JWT.Secret = "" },
			wantErr: false,
		},
		{
			name:    "JWT secret too short",
			mutate:  func(c *Config) { c.Security.JWT.Secret = "short" },
			wantErr: true,
		},
		{
			name: "JWT secret long enough",
			mutate: func(c *Config) {
				c.Security.JWT.Secret = "test-secret-key-at-least-32-chars!"
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validBase()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_UpdateRate(t *testing.T) {
	cfg := validBase()
	cfg.Controllers = []ControllerConfig{
		{Name: "declared", Type: "pilot/test", UpdateRate: 250},
		{Name: "inherited", Type: "pilot/test"},
	}

	if rate, ok := cfg.UpdateRate("declared"); !ok || rate != 250 {
		t.Errorf("UpdateRate(declared) = %d, %v, want 250, true", rate, ok)
	}

	if _, ok := cfg.UpdateRate("inherited"); ok {
		t.Error("UpdateRate(inherited) should report no declared rate")
	}

	if _, ok := cfg.UpdateRate("ghost"); ok {
		t.Error("UpdateRate(ghost) should report no declared rate")
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

	// Set environment variables
	t.Setenv("PILOT_CYCLE_UPDATE_RATE", "500")
	t.Setenv("PILOT_DATABASE_PATH", "/custom/path.db")
	t.Setenv("PILOT_MQTT_HOST", "mqtt.example.com")
	t.Setenv("PILOT_MQTT_USERNAME", "testuser")
	t.Setenv("PILOT_MQTT_PASSWORD", "testpass")
	t.Setenv("PILOT_API_HOST", "192.168.1.1")
	t.Setenv("PILOT_API_PORT", "9090")
	t.Setenv("PILOT_INFLUXDB_TOKEN", "secret-token")
	t.Setenv("PILOT_JWT_SECRET", "jwt-secret")

	applyEnvOverrides(cfg)

	if cfg.Cycle.UpdateRate != 500 {
		t.Errorf("Cycle.UpdateRate = %d, want 500", cfg.Cycle.UpdateRate)
	}

	if cfg.Database.Path != "/custom/path.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/custom/path.db")
	}

	if cfg.MQTT.Broker.Host != "mqtt.example.com" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "mqtt.example.com")
	}

	if cfg.MQTT.Auth.Username != "testuser" {
		t.Errorf("MQTT.Auth.Username = %q, want %q", cfg.MQTT.Auth.Username, "testuser")
	}

	if cfg.MQTT.Auth.Password != "testpass" {
		t.Errorf("MQTT.Auth.Password = %q, want %q", cfg.MQTT.Auth.Password, "testpass")
	}

	if cfg.API.Host != "192.168.1.1" {
		t.Errorf("API.Host = %q, want %q", cfg.API.Host, "192.168.1.1")
	}

	if cfg.API.Port != 9090 {
		t.Errorf("API.Port = %d, want 9090", cfg.API.Port)
	}

	if cfg.InfluxDB.Token != "secret-token" {
		t.Errorf("InfluxDB.Token = %q, want %q", cfg.InfluxDB.Token, "secret-token")
	}

	if cfg.Security.JWT.Secret != "jwt-secret" {
		t.Errorf("Security.JWT.Secret = %q, want %q", cfg.Security.JWT.Secret, "jwt-secret")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Service.ID == "" {
		t.Error("defaultConfig should have non-empty Service.ID")
	}

	if cfg.Cycle.UpdateRate == 0 {
		t.Error("defaultConfig should have non-zero Cycle.UpdateRate")
	}

	if cfg.Database.Path == "" {
		t.Error("defaultConfig should have non-empty Database.Path")
	}

	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("defaultConfig MQTT.Broker.Port = %d, want 1883", cfg.MQTT.Broker.Port)
	}

	if cfg.API.Port != 8080 {
		t.Errorf("defaultConfig API.Port = %d, want 8080", cfg.API.Port)
	}
}
