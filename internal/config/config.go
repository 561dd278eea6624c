// Package config loads and validates the panel303 YAML configuration.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/Akashic-Trance-Machines/pico-303/internal/panel"
)

// GPIO backend names accepted in gpio.backend.
const (
	BackendChardev = "chardev" // /dev/gpiochipN character device (preferred)
	BackendRPIO    = "rpio"    // direct register access via go-rpio
	BackendSim     = "sim"     // in-process simulator, no hardware
)

// Config is the top-level YAML configuration for the panel303 daemon.
//
// This is intentionally user-facing and stable-ish. Keep defaults and validation
// centralized so the rest of the code can assume a well-formed config.
//
// Design goals:
// - Make config file the primary configuration surface.
// - Keep flags for small overrides and for environments where a file is awkward.
type Config struct {
	// Encoder/button GPIO wiring
	GPIO GPIOConfig `yaml:"gpio"`

	// Sound engine control connection
	Engine EngineConfig `yaml:"engine"`

	// Character LCD on the front panel
	Display DisplayConfig `yaml:"display"`

	// MIDI mirroring of parameter changes
	MIDI MIDIConfig `yaml:"midi"`

	// IPC configuration (used by panelctl and scripts)
	IPC IPCConfig `yaml:"ipc"`

	// State websocket for web front panels
	StateWS StateWSConfig `yaml:"state_ws"`

	// UI loop and parameter table
	Panel PanelConfig `yaml:"panel"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

type GPIOConfig struct {
	Backend   string `yaml:"backend"`          // "chardev", "rpio" or "sim"
	Device    string `yaml:"device,omitempty"` // gpiochip path for the chardev backend
	PinA      int    `yaml:"pin_a"`            // encoder phase A line
	PinB      int    `yaml:"pin_b"`            // encoder phase B line
	PinButton int    `yaml:"pin_button"`       // encoder push switch line
}

type EngineConfig struct {
	Enabled   bool   `yaml:"enabled"`
	WsURL     string `yaml:"ws_url"`
	TimeoutMS int    `yaml:"timeout_ms"`
}

type DisplayConfig struct {
	Enabled bool `yaml:"enabled"`
	Bus     int  `yaml:"bus"`  // i2c bus number
	Addr    int  `yaml:"addr"` // i2c device address (0x3c for the SO1602)
}

type MIDIConfig struct {
	Enabled bool   `yaml:"enabled"`
	InPort  string `yaml:"in_port,omitempty"`  // substring match on port name
	OutPort string `yaml:"out_port,omitempty"` // substring match on port name
	Channel int    `yaml:"channel"`            // 0-15
}

type IPCConfig struct {
	SocketPath string `yaml:"socket_path"`
}

type StateWSConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

type PanelConfig struct {
	UpdateHz int `yaml:"update_hz"`

	// Params overrides the built-in parameter table. Leave empty to use the
	// stock pico-303 set.
	Params []ParamConfig `yaml:"params,omitempty"`
}

// ParamConfig is one user-facing parameter table entry, with YAML-friendly
// integer types (converted to the engine's uint8 ranges in TableParams).
type ParamConfig struct {
	Name    string `yaml:"name"`
	Control int    `yaml:"control"`
	Value   int    `yaml:"value"`
	Min     int    `yaml:"min"`
	Max     int    `yaml:"max"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns a fully-populated Config with defaults.
// Keep this aligned with the CLI defaults printed by printUsage.
func DefaultConfig() Config {
	return Config{
		GPIO: GPIOConfig{
			Backend:   BackendChardev,
			Device:    "/dev/gpiochip0",
			PinA:      6,
			PinB:      7,
			PinButton: 8,
		},
		Engine: EngineConfig{
			Enabled:   true,
			WsURL:     "ws://127.0.0.1:3303",
			TimeoutMS: 500,
		},
		Display: DisplayConfig{
			Enabled: true,
			Bus:     1,
			Addr:    0x3c,
		},
		MIDI: MIDIConfig{
			Enabled: false,
			Channel: 0,
		},
		IPC: IPCConfig{
			SocketPath: "/tmp/pico303-panel.sock",
		},
		StateWS: StateWSConfig{
			Enabled: true,
			Port:    3304,
		},
		Panel: PanelConfig{
			UpdateHz: panel.DefaultUpdateHz,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfigFile reads and parses a YAML config file.
//
// Notes:
//   - The file must be valid YAML.
//   - Unknown fields are rejected (helps catch typos) via KnownFields(true).
func LoadConfigFile(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config path is empty")
	}
	b, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	cfg := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config yaml: %w", err)
	}

	// Ensure there's no trailing garbage (only whitespace/comments are allowed after the document).
	if err := dec.Decode(&struct{}{}); err == nil {
		return Config{}, fmt.Errorf("decode config yaml: unexpected trailing document")
	}

	return cfg, nil
}

// FlagOverrides applies overrides from flags on top of a loaded config.
//
// Flags should pass pointers; each override is only applied if the pointer is
// non-nil. main.go decides what flags exist; keeping the override mechanism
// separate makes it easy to evolve flags without proliferating conditionals
// all over the code.
type FlagOverrides struct {
	GPIOBackend   *string
	GPIODevice    *string
	GPIOPinA      *int
	GPIOPinB      *int
	GPIOPinButton *int

	EngineEnabled   *bool
	EngineWsURL     *string
	EngineTimeoutMS *int

	DisplayEnabled *bool
	DisplayBus     *int
	DisplayAddr    *int

	MIDIEnabled *bool
	MIDIInPort  *string
	MIDIOutPort *string
	MIDIChannel *int

	IPCSocketPath *string

	StateWSEnabled *bool
	StateWSPort    *int

	PanelUpdateHz *int

	LogLevel *string
}

// Apply merges the overrides into cfg. If an override pointer is nil, it is ignored.
// If the pointer is non-nil, the value is applied (even if it is a zero value).
func (o FlagOverrides) Apply(cfg *Config) {
	if cfg == nil {
		return
	}
	if o.GPIOBackend != nil {
		cfg.GPIO.Backend = *o.GPIOBackend
	}
	if o.GPIODevice != nil {
		cfg.GPIO.Device = *o.GPIODevice
	}
	if o.GPIOPinA != nil {
		cfg.GPIO.PinA = *o.GPIOPinA
	}
	if o.GPIOPinB != nil {
		cfg.GPIO.PinB = *o.GPIOPinB
	}
	if o.GPIOPinButton != nil {
		cfg.GPIO.PinButton = *o.GPIOPinButton
	}

	if o.EngineEnabled != nil {
		cfg.Engine.Enabled = *o.EngineEnabled
	}
	if o.EngineWsURL != nil {
		cfg.Engine.WsURL = *o.EngineWsURL
	}
	if o.EngineTimeoutMS != nil {
		cfg.Engine.TimeoutMS = *o.EngineTimeoutMS
	}

	if o.DisplayEnabled != nil {
		cfg.Display.Enabled = *o.DisplayEnabled
	}
	if o.DisplayBus != nil {
		cfg.Display.Bus = *o.DisplayBus
	}
	if o.DisplayAddr != nil {
		cfg.Display.Addr = *o.DisplayAddr
	}

	if o.MIDIEnabled != nil {
		cfg.MIDI.Enabled = *o.MIDIEnabled
	}
	if o.MIDIInPort != nil {
		cfg.MIDI.InPort = *o.MIDIInPort
	}
	if o.MIDIOutPort != nil {
		cfg.MIDI.OutPort = *o.MIDIOutPort
	}
	if o.MIDIChannel != nil {
		cfg.MIDI.Channel = *o.MIDIChannel
	}

	if o.IPCSocketPath != nil {
		cfg.IPC.SocketPath = *o.IPCSocketPath
	}

	if o.StateWSEnabled != nil {
		cfg.StateWS.Enabled = *o.StateWSEnabled
	}
	if o.StateWSPort != nil {
		cfg.StateWS.Port = *o.StateWSPort
	}

	if o.PanelUpdateHz != nil {
		cfg.Panel.UpdateHz = *o.PanelUpdateHz
	}

	if o.LogLevel != nil {
		cfg.Logging.Level = *o.LogLevel
	}
}

// Validate checks config invariants and returns a user-friendly error.
// This is intended to be called after defaults + file + overrides are applied.
func (c *Config) Validate() error {
	// GPIO
	switch c.GPIO.Backend {
	case BackendChardev:
		if c.GPIO.Device == "" {
			return errors.New("gpio.device must not be empty for the chardev backend")
		}
	case BackendRPIO, BackendSim:
		// no device path needed
	default:
		return fmt.Errorf("gpio.backend must be %q, %q or %q", BackendChardev, BackendRPIO, BackendSim)
	}
	for _, pin := range []int{c.GPIO.PinA, c.GPIO.PinB, c.GPIO.PinButton} {
		if pin < 0 || pin > 63 {
			return fmt.Errorf("gpio pin %d out of range 0-63", pin)
		}
	}
	if c.GPIO.PinA == c.GPIO.PinB || c.GPIO.PinA == c.GPIO.PinButton || c.GPIO.PinB == c.GPIO.PinButton {
		return errors.New("gpio.pin_a, gpio.pin_b and gpio.pin_button must be distinct")
	}

	// Engine
	if c.Engine.Enabled {
		if c.Engine.WsURL == "" {
			return errors.New("engine.ws_url must not be empty")
		}
		if c.Engine.TimeoutMS <= 0 {
			return errors.New("engine.timeout_ms must be > 0")
		}
	}

	// Display
	if c.Display.Enabled {
		if c.Display.Bus < 0 {
			return errors.New("display.bus must be >= 0")
		}
		if c.Display.Addr <= 0 || c.Display.Addr > 0x7f {
			return errors.New("display.addr must be a 7-bit i2c address")
		}
	}

	// MIDI
	if c.MIDI.Channel < 0 || c.MIDI.Channel > 15 {
		return errors.New("midi.channel must be between 0 and 15")
	}

	// IPC
	if c.IPC.SocketPath == "" {
		return errors.New("ipc.socket_path must not be empty")
	}

	// State websocket
	if c.StateWS.Enabled {
		if c.StateWS.Port <= 0 || c.StateWS.Port > 65535 {
			return errors.New("state_ws.port must be a valid TCP port")
		}
	}

	// Panel
	if c.Panel.UpdateHz <= 0 || c.Panel.UpdateHz > 1000 {
		return errors.New("panel.update_hz must be between 1 and 1000")
	}
	seen := make(map[int]string, len(c.Panel.Params))
	for i, p := range c.Panel.Params {
		if p.Name == "" {
			return fmt.Errorf("panel.params[%d].name must not be empty", i)
		}
		if p.Control < 0 || p.Control > 127 {
			return fmt.Errorf("panel.params[%d].control must be between 0 and 127", i)
		}
		if prev, dup := seen[p.Control]; dup {
			return fmt.Errorf("panel.params[%d]: control %d already used by %q", i, p.Control, prev)
		}
		seen[p.Control] = p.Name
		if p.Min < 0 || p.Max > 127 || p.Min > p.Max {
			return fmt.Errorf("panel.params[%d]: range [%d,%d] invalid (want 0 <= min <= max <= 127)", i, p.Min, p.Max)
		}
		if p.Max == p.Min {
			return fmt.Errorf("panel.params[%d]: range [%d,%d] leaves nothing to edit", i, p.Min, p.Max)
		}
		if p.Value < p.Min || p.Value > p.Max {
			return fmt.Errorf("panel.params[%d]: value %d outside [%d,%d]", i, p.Value, p.Min, p.Max)
		}
	}

	// Logging
	if c.Logging.Level == "" {
		return errors.New("logging.level must not be empty")
	}

	return nil
}

// TableParams converts the configured parameter table to engine types,
// falling back to the stock pico-303 set when no table is configured.
// Call Validate first; conversion assumes in-range values.
func (c *Config) TableParams() []panel.Parameter {
	if len(c.Panel.Params) == 0 {
		return panel.DefaultParameters()
	}
	out := make([]panel.Parameter, 0, len(c.Panel.Params))
	for _, p := range c.Panel.Params {
		out = append(out, panel.Parameter{
			Name:      p.Name,
			ControlID: uint8(p.Control),
			Value:     uint8(p.Value),
			Min:       uint8(p.Min),
			Max:       uint8(p.Max),
		})
	}
	return out
}

// ExpandPath expands a leading "~" in a path using $HOME.
// This is handy for config values like ipc.socket_path.
func ExpandPath(p string) string {
	if p == "" {
		return p
	}
	if p[0] != '~' {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	if p == "~" {
		return home
	}
	if len(p) >= 2 && (p[1] == '/' || p[1] == '\\') {
		return filepath.Join(home, p[2:])
	}
	return p
}
