package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configured devices and capture sessions",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if len(cfg.Devices) == 0 {
		fmt.Printf("No devices configured in %s.\n", configPath)
	} else {
		fmt.Println("Devices:")
		for _, d := range cfg.Devices {
			auto := ""
			if d.AutoConnect {
				auto = "  auto-connect"
			}
			fmt.Printf("  %-20s %-8s%s\n", d.Address, d.Vendor, auto)
		}
	}

	if cfg.Bridge.Enabled {
		fmt.Printf("Bridge:  ws://%s/events\n", cfg.Bridge.Listen)
	}
	fmt.Printf("Capture: %s\n", cfg.Capture.Path)
	return nil
}
