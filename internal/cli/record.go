package cli

import (
	"fmt"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cubesense/smartcube/internal/capture"
	"github.com/cubesense/smartcube/internal/protocol"
	"github.com/cubesense/smartcube/internal/transport"
)

var recordAddress string

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record raw notification frames to the capture database",
	Long: `Connect to one configured cube and append every notification it
sends to the capture database, without decoding. Recorded sessions can be
decoded later with "smartcube replay". Stop with Ctrl-C.`,
	RunE: runRecord,
}

func init() {
	recordCmd.Flags().StringVar(&recordAddress, "address", "", "Device address (defaults to the only configured device)")
	rootCmd.AddCommand(recordCmd)
}

func runRecord(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg)
	dev, err := deviceFromConfig(cfg, recordAddress)
	if err != nil {
		return err
	}
	profile, err := protocol.Lookup(protocol.Vendor(dev.Vendor))
	if err != nil {
		return err
	}

	store, err := capture.Open(cfg.Capture.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	ble, err := transport.NewBLE(log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	services := []string{profile.ServiceUUID}
	if profile.SystemServiceUUID != "" {
		services = append(services, profile.SystemServiceUUID)
	}
	fmt.Printf("Connecting to %s (%s)...\n", dev.Address, dev.Vendor)
	conn, err := ble.Connect(ctx, dev.Address, services)
	if err != nil {
		return err
	}
	defer conn.Close()

	sessionID, err := store.Begin(dev.Address, dev.Vendor)
	if err != nil {
		return err
	}
	fmt.Printf("Recording session %s, Ctrl-C to stop.\n", sessionID)

	var frames atomic.Int64
	notifyChars := []string{profile.NotifyChar}
	if profile.SystemNotifyChar != "" {
		notifyChars = append(notifyChars, profile.SystemNotifyChar)
	}
	for _, char := range notifyChars {
		char := char
		err := conn.Subscribe(char, func(data []byte) {
			raw := protocol.RawFrame{
				Device:         dev.Address,
				Characteristic: char,
				Data:           append([]byte(nil), data...),
				Time:           time.Now(),
			}
			if err := store.Append(sessionID, raw); err != nil {
				log.WithError(err).Error("frame not recorded")
				return
			}
			frames.Add(1)
		})
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", char, err)
		}
	}

	select {
	case <-ctx.Done():
	case <-conn.Done():
		fmt.Println("Device disconnected.")
	}
	fmt.Printf("Recorded %d frames in session %s.\n", frames.Load(), sessionID)
	return nil
}
