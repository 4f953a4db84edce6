package cli

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/cubesense/smartcube"
	"github.com/cubesense/smartcube/internal/bridge"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the hub daemon",
	Long: `Connect to every configured cube and keep the sessions alive.
When the bridge is enabled the event stream is published to websocket
clients at /events. Stop with Ctrl-C.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
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

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Discovery loop: auto-connecting sessions come up as their cubes
	// start advertising.
	go hub.Scan(ctx, func(adv smartcube.Advertisement, vendor smartcube.Vendor) {
		log.WithField("device", adv.Address).WithField("vendor", vendor).Debug("cube advertising")
	})

	var ws *bridge.Server
	var httpServer *http.Server
	if cfg.Bridge.Enabled {
		ws = bridge.New(log)
		mux := http.NewServeMux()
		mux.Handle("/events", ws.Handler())
		httpServer = &http.Server{Addr: cfg.Bridge.Listen, Handler: mux}
		go func() {
			log.WithField("listen", cfg.Bridge.Listen).Info("websocket bridge listening")
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.WithError(err).Error("bridge server stopped")
			}
		}()
	}

	log.WithField("devices", len(cfg.Devices)).Info("hub running")
	for {
		select {
		case <-ctx.Done():
			if httpServer != nil {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				httpServer.Shutdown(shutdownCtx)
				cancel()
				ws.Close()
			}
			return nil
		case ev, ok := <-hub.Events():
			if !ok {
				return nil
			}
			logEvent(log, ev)
			if ws != nil {
				ws.Publish(ev)
			}
		}
	}
}

func logEvent(log *logrus.Logger, ev smartcube.Event) {
	entry := log.WithField("device", ev.Device())
	switch ev := ev.(type) {
	case smartcube.MoveEvent:
		entry.WithFields(logrus.Fields{"move": ev.Move.Notation(), "seq": ev.Move.Seq}).Info("move")
	case smartcube.StateEvent:
		entry.WithFields(logrus.Fields{"solved": ev.Solved, "resynced": ev.Resynced}).Info("state snapshot")
	case smartcube.BatteryEvent:
		entry.WithField("level", ev.Level).Info("battery")
	case smartcube.SessionEvent:
		// Transitions are already logged by the session itself.
	case smartcube.WarningEvent:
		entry.WithField("missed", ev.MissedMoves).WithError(ev.Err).Warn("pipeline warning")
	case smartcube.CommandReplyEvent:
		entry.WithField("command", ev.Command.String()).WithError(ev.Err).Info("command reply")
	}
}
