package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/cubesense/smartcube"
)

var sendAddress string

var sendCmd = &cobra.Command{
	Use:   "send <battery|state|calibrate>",
	Short: "Send a command to a cube and wait for the reply",
	Args:  cobra.ExactArgs(1),
	RunE:  runSend,
}

func init() {
	sendCmd.Flags().StringVar(&sendAddress, "address", "", "Device address (defaults to the only configured device)")
	rootCmd.AddCommand(sendCmd)
}

func parseCommand(s string) (smartcube.Command, error) {
	switch strings.ToLower(s) {
	case "battery":
		return smartcube.CommandBattery, nil
	case "state":
		return smartcube.CommandState, nil
	case "calibrate":
		return smartcube.CommandCalibrate, nil
	}
	return 0, fmt.Errorf("unknown command %q, want battery, state or calibrate", s)
}

func runSend(cmd *cobra.Command, args []string) error {
	command, err := parseCommand(args[0])
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg)
	dev, err := deviceFromConfig(cfg, sendAddress)
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

	ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
	defer cancel()
	go hub.Scan(ctx, nil)

	addr := strings.ToLower(strings.TrimSpace(dev.Address))
	events := hub.Events()

	fmt.Printf("Connecting to %s...\n", addr)
	if err := waitActive(ctx, events, addr); err != nil {
		return err
	}

	token, err := hub.SendCommand(addr, command)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("no reply to %s", command)
		case ev, ok := <-events:
			if !ok {
				return smartcube.ErrSessionClosed
			}
			switch ev := ev.(type) {
			case smartcube.BatteryEvent:
				if ev.Addr == addr {
					fmt.Printf("battery: %d%%\n", ev.Level)
				}
			case smartcube.StateEvent:
				if ev.Addr == addr {
					fmt.Printf("state: %s\n", ev.Facelets)
				}
			case smartcube.CommandReplyEvent:
				if ev.Addr != addr || ev.Token != token {
					continue
				}
				if ev.Err != nil {
					return ev.Err
				}
				fmt.Printf("%s acknowledged\n", command)
				return nil
			}
		}
	}
}

// waitActive blocks until the device's session reaches Active.
func waitActive(ctx context.Context, events <-chan smartcube.Event, addr string) error {
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timed out waiting for %s", addr)
		case ev, ok := <-events:
			if !ok {
				return smartcube.ErrSessionClosed
			}
			if se, isSession := ev.(smartcube.SessionEvent); isSession && se.Addr == addr && se.To == smartcube.StateActive {
				return nil
			}
		}
	}
}
