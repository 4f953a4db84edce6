package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cubesense/smartcube"
)

var scanDuration time.Duration

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for smart cubes",
	Long: `Scan for advertising smart cubes and print the vendor each one
matched. Use the printed address in the configuration file.`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().DurationVar(&scanDuration, "duration", 10*time.Second, "How long to scan")
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg)
	hub, err := buildHub(cfg, log)
	if err != nil {
		return err
	}
	defer hub.Close()

	fmt.Printf("Scanning for %s...\n", scanDuration)
	ctx, cancel := context.WithTimeout(cmd.Context(), scanDuration)
	defer cancel()

	seen := make(map[string]bool)
	err = hub.Scan(ctx, func(adv smartcube.Advertisement, vendor smartcube.Vendor) {
		if seen[adv.Address] {
			return
		}
		seen[adv.Address] = true
		fmt.Printf("  %-20s %-8s rssi %4d  %s\n", adv.Address, vendor, adv.RSSI, adv.Name)
	})
	if err == context.DeadlineExceeded || err == context.Canceled {
		err = nil
	}
	if err != nil {
		return err
	}
	if len(seen) == 0 {
		fmt.Println("No smart cubes found.")
	}
	return nil
}
