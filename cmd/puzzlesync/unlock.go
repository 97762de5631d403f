package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/playgrid/puzzlesync/internal/ui"
)

var unlockCmd = &cobra.Command{
	Use:   "unlock <puzzle-id>",
	Short: "Fetch one puzzle by id, bypassing visibility rules",
	Long: `Fetch a single puzzle's full content and cache it locally.

This uses the narrow by-id fetch that bypasses the normal visibility
policy; it serves explicitly granted unlocks (e.g. a redeemed archive
puzzle outside the caller's tier window).`,
	Args: cobra.ExactArgs(1),
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

		rp, err := remote.FetchPuzzleByID(cmd.Context(), args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error fetching puzzle: %v\n", err)
			os.Exit(1)
		}

		if err := local.SavePuzzle(cmd.Context(), rp.ToLocal(time.Now().UTC())); err != nil {
			fmt.Fprintf(os.Stderr, "Error caching puzzle: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("%s Unlocked %s (%s, %s)\n", ui.RenderPass("✓"), rp.ID, rp.GameMode, rp.PuzzleDate)
	},
}

func init() {
	rootCmd.AddCommand(unlockCmd)
}
