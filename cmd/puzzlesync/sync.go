package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/playgrid/puzzlesync/internal/engine"
	"github.com/playgrid/puzzlesync/internal/ui"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run sync engines against the remote store",
}

var syncAttemptsCmd = &cobra.Command{
	Use:   "attempts",
	Short: "Push unsynced attempts to the remote store",
	Long: `Push every locally created or updated attempt to the remote store.

Attempts are pushed one at a time through the conflict-safe upsert;
one item's failure never aborts the batch. Partial success is reported
and the failed attempts stay queued for the next run.`,
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

		eng := engine.NewAttemptSyncEngine(local, remote, nil)

		start := time.Now()
		res := eng.Push(cmd.Context(), cfg.User.ID)
		elapsed := time.Since(start).Round(time.Millisecond)

		if !res.Success {
			fmt.Printf("%s Attempt push incomplete (synced %d) in %v\n", ui.RenderFail("✗"), res.SyncedCount, elapsed)
			fmt.Fprintf(os.Stderr, "Error: %v\n", res.Err)
			os.Exit(1)
		}

		fmt.Printf("%s Pushed %d attempts in %v\n", ui.RenderPass("✓"), res.SyncedCount, elapsed)
	},
}

var syncPuzzlesCmd = &cobra.Command{
	Use:   "puzzles",
	Short: "Mirror the visible puzzle catalog into the local cache",
	Long: `Fetch the complete visible puzzle set and reconcile the local cache
against it.

Puzzles the remote no longer serves are deleted locally; everything
else is upserted. The full-set fetch is deliberate: without it, remote
deletions could never be observed.`,
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

		eng := engine.NewPuzzleSyncEngine(local, remote, nil)

		start := time.Now()
		res := eng.Sync(cmd.Context(), engine.PuzzleSyncParams{
			UserID:     cfg.User.ID,
			AccessTier: mustTier(cfg),
		})
		elapsed := time.Since(start).Round(time.Millisecond)

		if !res.Success {
			fmt.Printf("%s Puzzle sync failed in %v\n", ui.RenderFail("✗"), elapsed)
			fmt.Fprintf(os.Stderr, "Error: %v\n", res.Err)
			os.Exit(1)
		}

		fmt.Printf("%s Synced %d puzzles in %v\n", ui.RenderPass("✓"), res.SyncedCount, elapsed)
	},
}

var syncLightCmd = &cobra.Command{
	Use:   "light",
	Short: "Run the lightweight staleness probe",
	Long: `Compare revision markers for recently dated puzzles and refresh only
the ones that changed remotely.

The probe is best-effort: when the remote store is unreachable it
reports zero work instead of failing.`,
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

		eng := engine.NewLightSyncEngine(local, remote, cfg.Windows(), nil)

		res := eng.Probe(cmd.Context(), engine.LightSyncParams{
			UserID:     cfg.User.ID,
			AccessTier: mustTier(cfg),
		})

		fmt.Printf("%s Probe checked %d puzzles, refreshed %d\n", ui.RenderPass("✓"), res.CheckedCount, res.UpdatedCount)
	},
}

var syncAllCmd = &cobra.Command{
	Use:   "all",
	Short: "Full sync: puzzles, then attempts",
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

		puzzles := engine.NewPuzzleSyncEngine(local, remote, nil)
		attempts := engine.NewAttemptSyncEngine(local, remote, nil)

		pres := puzzles.Sync(cmd.Context(), engine.PuzzleSyncParams{
			UserID:     cfg.User.ID,
			AccessTier: mustTier(cfg),
		})
		if !pres.Success {
			fmt.Fprintf(os.Stderr, "Error during puzzle sync: %v\n", pres.Err)
			os.Exit(1)
		}
		fmt.Printf("%s Synced %d puzzles\n", ui.RenderPass("✓"), pres.SyncedCount)

		ares := attempts.Push(cmd.Context(), cfg.User.ID)
		if !ares.Success {
			fmt.Fprintf(os.Stderr, "Error during attempt push: %v\n", ares.Err)
			os.Exit(1)
		}
		fmt.Printf("%s Pushed %d attempts\n", ui.RenderPass("✓"), ares.SyncedCount)
	},
}

func init() {
	syncCmd.AddCommand(syncAttemptsCmd)
	syncCmd.AddCommand(syncPuzzlesCmd)
	syncCmd.AddCommand(syncLightCmd)
	syncCmd.AddCommand(syncAllCmd)
	rootCmd.AddCommand(syncCmd)
}
