// Package config loads the smartcube daemon configuration.
package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cubesense/smartcube/internal/protocol"
)

// Config is the on-disk configuration for the smartcube command.
type Config struct {
	Log     LogConfig      `yaml:"log"`
	Bridge  BridgeConfig   `yaml:"bridge"`
	Capture CaptureConfig  `yaml:"capture"`
	Devices []DeviceConfig `yaml:"devices"`
}

type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// BridgeConfig controls the websocket event bridge.
type BridgeConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"` // host:port
}

// CaptureConfig controls raw-frame recording.
type CaptureConfig struct {
	Path string `yaml:"path"` // sqlite database file
}

// DeviceConfig describes one registered cube.
type DeviceConfig struct {
	Address     string `yaml:"address"`
	Vendor      string `yaml:"vendor"`
	MAC         string `yaml:"mac,omitempty"` // key-derivation MAC when it differs from Address
	Key         string `yaml:"key,omitempty"` // hex cipher key override
	IV          string `yaml:"iv,omitempty"`
	AutoConnect bool   `yaml:"auto_connect"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Log:     LogConfig{Level: "info"},
		Bridge:  BridgeConfig{Listen: "127.0.0.1:9464"},
		Capture: CaptureConfig{Path: "smartcube.db"},
	}
}

// Load reads and validates a configuration file. A missing file yields
// the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration back to disk.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks vendor names, addresses and key material.
func (c *Config) Validate() error {
	seen := make(map[string]bool)
	for i, d := range c.Devices {
		if strings.TrimSpace(d.Address) == "" {
			return fmt.Errorf("config: device %d has no address", i)
		}
		addr := strings.ToLower(strings.TrimSpace(d.Address))
		if seen[addr] {
			return fmt.Errorf("config: device %s listed twice", addr)
		}
		seen[addr] = true
		if _, err := protocol.Lookup(protocol.Vendor(d.Vendor)); err != nil {
			return fmt.Errorf("config: device %s: unknown vendor %q", addr, d.Vendor)
		}
		if _, err := d.KeyBytes(); err != nil {
			return err
		}
		if _, err := d.IVBytes(); err != nil {
			return err
		}
	}
	return nil
}

// KeyBytes decodes the hex key override, nil when unset.
func (d DeviceConfig) KeyBytes() ([]byte, error) {
	return decodeKeyField(d.Address, "key", d.Key)
}

// IVBytes decodes the hex IV override, nil when unset.
func (d DeviceConfig) IVBytes() ([]byte, error) {
	return decodeKeyField(d.Address, "iv", d.IV)
}

func decodeKeyField(addr, field, value string) ([]byte, error) {
	if value == "" {
		return nil, nil
	}
	b, err := hex.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("config: device %s: %s is not hex: %v", addr, field, err)
	}
	if len(b) != 16 {
		return nil, fmt.Errorf("config: device %s: %s is %d bytes, want 16", addr, field, len(b))
	}
	return b, nil
}
