// package config loads and saves monocv settings.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/pfcm/monocv/osc"
)

// Transport names a MIDI input driver.
type Transport string

const (
	PortMidi Transport = "portmidi"
	RtMidi   Transport = "rtmidi"
	UART     Transport = "uart"
)

// Transports lists every supported transport.
var Transports = []Transport{PortMidi, RtMidi, UART}

// AudioConfig describes where the signals go.
type AudioConfig struct {
	SampleRate uint32 `json:"sampleRate"`
	// Device is a substring of the playback device name; empty for the
	// system default.
	Device string `json:"device,omitempty"`
	// Monitor plays an audible voice instead of raw control voltages.
	Monitor bool `json:"monitor,omitempty"`
	// Wave is the monitor voice's oscillator, one of osc.Waves.
	Wave string `json:"wave"`
	// FullScaleVolts is the voltage a DC-coupled interface puts out for a
	// sample value of 1.
	FullScaleVolts float32 `json:"fullScaleVolts"`
}

// Config is the main configuration structure
type Config struct {
	Transport Transport `json:"transport"`
	// Port is matched against port names, see midi.FindPort.
	Port              string      `json:"port,omitempty"`
	Channel           int         `json:"channel"`
	ResetOnPortChange bool        `json:"resetOnPortChange"`
	BatchSize         int         `json:"batchSize"`
	Baud              int         `json:"baud,omitempty"` // uart only
	Audio             AudioConfig `json:"audio"`
	Debug             bool        `json:"debug,omitempty"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Transport:         PortMidi,
		Channel:           0,
		ResetOnPortChange: true,
		BatchSize:         128,
		Audio: AudioConfig{
			SampleRate:     44100,
			Wave:           "saw",
			FullScaleVolts: 10,
		},
	}
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "monocv"), nil
}

// ConfigPath returns the full path to config.json
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config from its usual place, or returns defaults if there
// isn't one.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}
	return LoadFile(path)
}

// LoadFile reads the config at path, or returns defaults if the file doesn't
// exist. Fields missing from the file keep their defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config to its usual place.
func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveFile(path)
}

// SaveFile writes the config to path, making the directory if needed.
func (c *Config) SaveFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks that every field is usable.
func (c *Config) Validate() error {
	var errs []error
	if !slices.Contains(Transports, c.Transport) {
		errs = append(errs, fmt.Errorf("unknown transport %q (want one of %v)", c.Transport, Transports))
	}
	if c.Channel < 0 || c.Channel > 15 {
		errs = append(errs, fmt.Errorf("channel %d outside 0..15", c.Channel))
	}
	if c.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("batch size %d is not positive", c.BatchSize))
	}
	if c.Baud < 0 {
		errs = append(errs, fmt.Errorf("baud %d is negative", c.Baud))
	}
	if c.Audio.SampleRate == 0 {
		errs = append(errs, errors.New("sample rate is zero"))
	}
	if !slices.Contains(osc.Waves, c.Audio.Wave) {
		errs = append(errs, fmt.Errorf("unknown wave %q (want one of %v)", c.Audio.Wave, osc.Waves))
	}
	if c.Audio.FullScaleVolts <= 0 {
		errs = append(errs, fmt.Errorf("full scale %v V is not positive", c.Audio.FullScaleVolts))
	}
	return errors.Join(errs...)
}
