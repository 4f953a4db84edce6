package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cubesense/smartcube/internal/capture"
	"github.com/cubesense/smartcube/internal/cube"
	"github.com/cubesense/smartcube/internal/protocol"
	"github.com/cubesense/smartcube/internal/protocol/codec"
)

var (
	replayList  bool
	replaySpeed float64
)

var replayCmd = &cobra.Command{
	Use:   "replay [session-id]",
	Short: "Decode a recorded capture session",
	Long: `Run the frames of a recorded session back through the vendor
decoder and print the moves and state snapshots they produce. Use --list
to see the recorded sessions.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReplay,
}

func init() {
	replayCmd.Flags().BoolVar(&replayList, "list", false, "List recorded sessions")
	replayCmd.Flags().Float64Var(&replaySpeed, "speed", 0, "Replay speed multiplier, 0 decodes without waiting")
	rootCmd.AddCommand(replayCmd)
}

func runReplay(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := capture.Open(cfg.Capture.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	if replayList || len(args) == 0 {
		return listSessions(store)
	}
	sessionID := args[0]

	sessions, err := store.Sessions()
	if err != nil {
		return err
	}
	var session *capture.Session
	for i := range sessions {
		if sessions[i].ID == sessionID {
			session = &sessions[i]
			break
		}
	}
	if session == nil {
		return fmt.Errorf("session %s not found in %s", sessionID, cfg.Capture.Path)
	}

	km := protocol.KeyMaterial{MAC: session.Device}
	if dev, err := deviceFromConfig(cfg, session.Device); err == nil {
		if dev.MAC != "" {
			km.MAC = dev.MAC
		}
		km.Key, _ = dev.KeyBytes()
		km.IV, _ = dev.IVBytes()
	}
	cdc, err := codec.New(protocol.Vendor(session.Vendor), km)
	if err != nil {
		return err
	}

	norm := protocol.NewNormalizer(counterWidth(session.Vendor))
	var decodeErrs int
	err = store.Replay(cmd.Context(), sessionID, replaySpeed, func(raw protocol.RawFrame) {
		frames, _, err := cdc.Decode(raw)
		if err != nil {
			decodeErrs++
			fmt.Printf("%s  !! %v\n", raw.Time.Format("15:04:05.000"), err)
			return
		}
		for _, f := range frames {
			printFrame(raw, f, norm)
		}
	})
	if err != nil {
		return err
	}
	if decodeErrs > 0 {
		fmt.Printf("%d frame(s) did not decode.\n", decodeErrs)
	}
	return nil
}

func printFrame(raw protocol.RawFrame, f protocol.Frame, norm *protocol.Normalizer) {
	ts := raw.Time.Format("15:04:05.000")
	switch f := f.(type) {
	case protocol.MoveFrame:
		seq, missed := norm.Normalize(f.Counter)
		notation := faceLetter(f.Face)
		switch f.Turn {
		case -1:
			notation += "'"
		case 2:
			notation += "2"
		}
		line := fmt.Sprintf("%s  #%-5d %s", ts, seq, notation)
		if missed > 0 {
			line += fmt.Sprintf("   (%d missed)", missed)
		}
		fmt.Println(line)
	case protocol.StateFrame:
		solved := ""
		if f.State.IsSolved() {
			solved = "  solved"
		}
		fmt.Printf("%s  state %s%s\n", ts, f.State.ToFacelets(), solved)
	case protocol.StatusFrame:
		fmt.Printf("%s  battery %d%%\n", ts, f.Battery)
	}
}

func faceLetter(f cube.Face) string {
	return [...]string{"U", "D", "F", "B", "R", "L"}[f]
}

func counterWidth(vendor string) uint {
	if p, err := protocol.Lookup(protocol.Vendor(vendor)); err == nil {
		return p.CounterWidth
	}
	return 0
}

func listSessions(store *capture.Store) error {
	sessions, err := store.Sessions()
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Println("No recorded sessions.")
		return nil
	}
	for _, s := range sessions {
		fmt.Printf("%s  %s  %-8s %6d frames  %s\n",
			s.ID, s.Device, s.Vendor, s.Frames, s.StartedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}
