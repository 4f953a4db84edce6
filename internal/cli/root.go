// Package cli implements the smartcube command-line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/cubesense/smartcube"
	"github.com/cubesense/smartcube/internal/config"
	"github.com/cubesense/smartcube/internal/transport"
)

const version = "0.1.0"

var (
	// Global flags
	configPath string
	verbose    bool
)

// rootCmd is the base command.
var rootCmd = &cobra.Command{
	Use:   "smartcube",
	Short: "Smart cube protocol hub",
	Long: `smartcube connects to Bluetooth smart cubes (Giiker, GoCube,
GAN Gen2, QiYi), decodes their notification streams into a normalized
move and state model, and exposes the result on the terminal, over a
websocket bridge, or into a capture database for later replay.`,
	Version: version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "smartcube.yaml", "Configuration file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
}

// loadConfig reads the configured file, falling back to defaults.
func loadConfig() (*config.Config, error) {
	return config.Load(configPath)
}

// newLogger builds the process logger from config and flags.
func newLogger(cfg *config.Config) *logrus.Logger {
	log := logrus.New()
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	if verbose {
		level = logrus.DebugLevel
	}
	log.SetLevel(level)
	return log
}

// buildHub creates the BLE transport and a hub with every configured
// device registered.
func buildHub(cfg *config.Config, log *logrus.Logger) (*smartcube.Hub, error) {
	ble, err := transport.NewBLE(log)
	if err != nil {
		return nil, err
	}
	hub := smartcube.NewHub(ble, smartcube.WithLogger(log))
	for _, d := range cfg.Devices {
		key, _ := d.KeyBytes()
		iv, _ := d.IVBytes()
		err := hub.Register(smartcube.DeviceConfig{
			Address:     d.Address,
			Vendor:      smartcube.Vendor(d.Vendor),
			MAC:         d.MAC,
			Key:         key,
			IV:          iv,
			AutoConnect: d.AutoConnect,
		})
		if err != nil {
			hub.Close()
			return nil, fmt.Errorf("register %s: %w", d.Address, err)
		}
	}
	return hub, nil
}

// deviceFromConfig resolves the device an address flag refers to, or the
// only configured device when the flag is empty.
func deviceFromConfig(cfg *config.Config, address string) (config.DeviceConfig, error) {
	if address == "" {
		if len(cfg.Devices) == 1 {
			return cfg.Devices[0], nil
		}
		return config.DeviceConfig{}, fmt.Errorf("%d devices configured, pick one with --address", len(cfg.Devices))
	}
	for _, d := range cfg.Devices {
		if d.Address == address {
			return d, nil
		}
	}
	return config.DeviceConfig{}, fmt.Errorf("device %s is not in %s", address, configPath)
}
