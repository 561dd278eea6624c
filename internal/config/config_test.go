package config

import (
	"os"
	"path/filepath"
	"testing"
)

// writeConfig drops YAML into a temp file and returns its path.
func writeConfig(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "panel303.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

// TestDefaultConfig_Validates tests that the shipped defaults pass validation
func TestDefaultConfig_Validates(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

// TestLoadConfigFile_Full tests parsing a complete config document
func TestLoadConfigFile_Full(t *testing.T) {
	path := writeConfig(t, `
gpio:
  backend: sim
  pin_a: 16
  pin_b: 17
  pin_button: 18
engine:
  enabled: true
  ws_url: ws://10.0.0.5:3303
  timeout_ms: 1000
display:
  enabled: false
midi:
  enabled: true
  in_port: "pico"
  out_port: "pico"
  channel: 2
ipc:
  socket_path: /run/pico303.sock
state_ws:
  enabled: true
  port: 4000
panel:
  update_hz: 100
  params:
    - {name: Cutoff, control: 74, value: 64, min: 0, max: 127}
    - {name: Res, control: 71, value: 0, min: 0, max: 127}
logging:
  level: debug
`)

	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}

	if cfg.GPIO.Backend != BackendSim {
		t.Errorf("expected sim backend, got %q", cfg.GPIO.Backend)
	}
	if cfg.GPIO.PinA != 16 || cfg.GPIO.PinB != 17 || cfg.GPIO.PinButton != 18 {
		t.Errorf("unexpected pins: %+v", cfg.GPIO)
	}
	if cfg.Engine.WsURL != "ws://10.0.0.5:3303" {
		t.Errorf("unexpected engine url %q", cfg.Engine.WsURL)
	}
	if cfg.MIDI.Channel != 2 {
		t.Errorf("expected midi channel 2, got %d", cfg.MIDI.Channel)
	}
	if cfg.Panel.UpdateHz != 100 {
		t.Errorf("expected update_hz 100, got %d", cfg.Panel.UpdateHz)
	}

	params := cfg.TableParams()
	if len(params) != 2 {
		t.Fatalf("expected 2 configured params, got %d", len(params))
	}
	if params[0].Name != "Cutoff" || params[0].ControlID != 74 || params[0].Value != 64 {
		t.Errorf("unexpected first param: %+v", params[0])
	}
}

// TestLoadConfigFile_DefaultsPreserved tests that a partial document keeps
// defaults for everything it doesn't mention
func TestLoadConfigFile_DefaultsPreserved(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: debug
`)

	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Logging.Level != "debug" {
		t.Errorf("expected overridden log level, got %q", cfg.Logging.Level)
	}
	if cfg.GPIO.Backend != BackendChardev || cfg.GPIO.PinA != 6 {
		t.Errorf("expected default gpio config, got %+v", cfg.GPIO)
	}
	if cfg.IPC.SocketPath != "/tmp/pico303-panel.sock" {
		t.Errorf("expected default socket path, got %q", cfg.IPC.SocketPath)
	}
}

// TestLoadConfigFile_UnknownField tests that typos are rejected
func TestLoadConfigFile_UnknownField(t *testing.T) {
	path := writeConfig(t, `
gpoi:
  backend: sim
`)

	if _, err := LoadConfigFile(path); err == nil {
		t.Error("expected error for unknown field")
	}
}

// TestLoadConfigFile_TrailingDocument tests that extra YAML documents are
// rejected
func TestLoadConfigFile_TrailingDocument(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: info
---
logging:
  level: debug
`)

	if _, err := LoadConfigFile(path); err == nil {
		t.Error("expected error for trailing document")
	}
}

// TestLoadConfigFile_Missing tests the error for a nonexistent path
func TestLoadConfigFile_Missing(t *testing.T) {
	if _, err := LoadConfigFile("/nonexistent/panel303.yaml"); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := LoadConfigFile(""); err == nil {
		t.Error("expected error for empty path")
	}
}

// TestFlagOverrides_Apply tests that only non-nil overrides land
func TestFlagOverrides_Apply(t *testing.T) {
	cfg := DefaultConfig()

	backend := BackendRPIO
	hz := 50
	enabled := false
	o := FlagOverrides{
		GPIOBackend:   &backend,
		PanelUpdateHz: &hz,
		EngineEnabled: &enabled,
	}
	o.Apply(&cfg)

	if cfg.GPIO.Backend != BackendRPIO {
		t.Errorf("expected rpio backend, got %q", cfg.GPIO.Backend)
	}
	if cfg.Panel.UpdateHz != 50 {
		t.Errorf("expected update_hz 50, got %d", cfg.Panel.UpdateHz)
	}
	if cfg.Engine.Enabled {
		t.Error("expected engine disabled")
	}
	// Untouched fields keep their defaults.
	if cfg.GPIO.PinA != 6 {
		t.Errorf("expected default pin_a, got %d", cfg.GPIO.PinA)
	}
}

// TestConfig_Validate_Errors tests a sample of rejected configs
func TestConfig_Validate_Errors(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown backend", func(c *Config) { c.GPIO.Backend = "sysfs" }},
		{"empty chardev device", func(c *Config) { c.GPIO.Device = "" }},
		{"duplicate pins", func(c *Config) { c.GPIO.PinB = c.GPIO.PinA }},
		{"pin out of range", func(c *Config) { c.GPIO.PinButton = 64 }},
		{"engine url empty", func(c *Config) { c.Engine.WsURL = "" }},
		{"engine timeout zero", func(c *Config) { c.Engine.TimeoutMS = 0 }},
		{"display addr out of range", func(c *Config) { c.Display.Addr = 0x90 }},
		{"midi channel out of range", func(c *Config) { c.MIDI.Channel = 16 }},
		{"socket path empty", func(c *Config) { c.IPC.SocketPath = "" }},
		{"ws port out of range", func(c *Config) { c.StateWS.Port = 70000 }},
		{"update_hz zero", func(c *Config) { c.Panel.UpdateHz = 0 }},
		{"update_hz too high", func(c *Config) { c.Panel.UpdateHz = 2000 }},
		{"param unnamed", func(c *Config) {
			c.Panel.Params = []ParamConfig{{Control: 74, Max: 127}}
		}},
		{"param duplicate control", func(c *Config) {
			c.Panel.Params = []ParamConfig{
				{Name: "A", Control: 74, Max: 127},
				{Name: "B", Control: 74, Max: 127},
			}
		}},
		{"param empty range", func(c *Config) {
			c.Panel.Params = []ParamConfig{{Name: "A", Control: 74, Min: 5, Max: 5, Value: 5}}
		}},
		{"param value out of range", func(c *Config) {
			c.Panel.Params = []ParamConfig{{Name: "A", Control: 74, Max: 10, Value: 20}}
		}},
	}

	for _, tc := range cases {
		cfg := DefaultConfig()
		tc.mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}
}

// TestConfig_TableParams_Default tests the fallback to the stock table
func TestConfig_TableParams_Default(t *testing.T) {
	cfg := DefaultConfig()

	params := cfg.TableParams()
	if len(params) != 24 {
		t.Errorf("expected stock 24-entry table, got %d", len(params))
	}
}
