package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/playgrid/puzzlesync/internal/config"
	"github.com/playgrid/puzzlesync/internal/daemon"
	"github.com/playgrid/puzzlesync/internal/engine"
	"github.com/playgrid/puzzlesync/internal/ui"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Start the sync daemon (foreground)",
	Long: `Start the sync daemon in foreground mode.

The daemon will:
  1. Run an initial full sync and attempt push
  2. Watch the local cache for attempt writes and push after a debounce
  3. Run the light staleness probe on a short interval
  4. Run the full puzzle reconciliation on a long interval

Press Ctrl+C to stop.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		local := openLocal(cfg)
		defer local.Close()
		remote := openRemote(cfg)
		defer remote.Close()

		logger := daemonLogger(cfg)

		attempts := engine.NewAttemptSyncEngine(local, remote, logger)
		puzzles := engine.NewPuzzleSyncEngine(local, remote, logger)
		light := engine.NewLightSyncEngine(local, remote, cfg.Windows(), logger)

		d, err := daemon.New(attempts, puzzles, light,
			cfg.User.ID, mustTier(cfg), cfg.Local.DBPath,
			&daemon.Config{
				LightSyncInterval: cfg.Daemon.LightSyncInterval,
				FullSyncInterval:  cfg.Daemon.FullSyncInterval,
				Debounce:          cfg.Daemon.Debounce,
				Logger:            logger,
			})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating daemon: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("%s Starting sync daemon...\n", ui.RenderAccent("▶"))
		fmt.Printf("   Cache: %s\n", cfg.Local.DBPath)
		fmt.Printf("   Remote: %s\n", cfg.Remote.URL)
		fmt.Printf("\nPress Ctrl+C to stop\n\n")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := d.Start(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Daemon stopped with error: %v\n", err)
			os.Exit(1)
		}
	},
}

// daemonLogger builds the daemon logger, rotating through lumberjack
// when a log file is configured.
func daemonLogger(cfg *config.Config) *log.Logger {
	var w io.Writer = os.Stderr
	if cfg.Log.File != "" {
		w = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   cfg.Log.File,
			MaxSize:    cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
		})
	}
	return log.New(w, "[puzzlesync] ", log.LstdFlags)
}

func init() {
	rootCmd.AddCommand(daemonCmd)
}
