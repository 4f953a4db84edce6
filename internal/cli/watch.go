package cli

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/cubesense/smartcube/internal/tui"
)

var watchAddress string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch one cube live in the terminal",
	Long: `Connect to a configured cube and show its moves, state and
battery in an interactive terminal view.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchAddress, "address", "", "Device address (defaults to the only configured device)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg)
	dev, err := deviceFromConfig(cfg, watchAddress)
	if err != nil {
		return err
	}

	hub, err := buildHub(cfg, log)
	if err != nil {
		return err
	}
	defer hub.Close()
	if err := hub.SetAutoConnect(dev.Address, true); err != nil {
		return err
	}

	// Discovery drives the connection ladder; keep scanning in the
	// background for the lifetime of the view.
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	go hub.Scan(ctx, nil)

	p := tea.NewProgram(tui.New(hub, strings.ToLower(strings.TrimSpace(dev.Address))), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("watch view: %w", err)
	}
	return nil
}
