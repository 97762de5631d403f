package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/playgrid/puzzlesync/internal/ui"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show local cache status",
	Long: `Display the current state of the local puzzle cache.

Shows:
  - Cache file location and size
  - Number of cached puzzles and attempts
  - Number of attempts waiting to be pushed`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		info, err := os.Stat(cfg.Local.DBPath)
		if os.IsNotExist(err) {
			fmt.Printf("\n%s Local cache not initialized\n", ui.RenderWarn("⚠"))
			fmt.Printf("   Run 'puzzlesync sync puzzles' to create it\n\n")
			return
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error checking cache: %v\n", err)
			os.Exit(1)
		}

		local := openLocal(cfg)
		defer local.Close()

		ctx := context.Background()
		puzzles, err := local.CountPuzzles(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error counting puzzles: %v\n", err)
			os.Exit(1)
		}
		attempts, err := local.CountAttempts(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error counting attempts: %v\n", err)
			os.Exit(1)
		}
		unsynced, err := local.CountUnsyncedAttempts(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error counting unsynced attempts: %v\n", err)
			os.Exit(1)
		}

		size := info.Size()
		sizeStr := fmt.Sprintf("%d bytes", size)
		if size > 1024*1024 {
			sizeStr = fmt.Sprintf("%.1f MB", float64(size)/(1024*1024))
		} else if size > 1024 {
			sizeStr = fmt.Sprintf("%.1f KB", float64(size)/1024)
		}

		fmt.Printf("\n%s Local Cache Status\n\n", ui.RenderAccent("●"))
		fmt.Printf("Location: %s\n", cfg.Local.DBPath)
		fmt.Printf("Size: %s\n", sizeStr)
		fmt.Printf("Puzzles: %d\n", puzzles)
		fmt.Printf("Attempts: %d\n", attempts)
		if unsynced > 0 {
			fmt.Printf("Unsynced: %s\n", ui.RenderWarn(fmt.Sprintf("%d", unsynced)))
		} else {
			fmt.Printf("Unsynced: 0\n")
		}
		fmt.Printf("Modified: %s\n", info.ModTime().Format("2006-01-02 15:04:05"))
		fmt.Println()
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
