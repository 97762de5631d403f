package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/playgrid/puzzlesync/internal/migrate"
	"github.com/playgrid/puzzlesync/internal/ui"
)

var exportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Export local attempts to a JSONL file",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		local := openLocal(cfg)
		defer local.Close()

		res, err := migrate.ExportAttempts(cmd.Context(), local, args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error during export: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("%s Exported %d attempts to %s\n", ui.RenderPass("✓"), res.AttemptsWritten, args[0])
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import attempts from a JSONL file",
	Long: `Import attempts from a JSONL backup into the local cache.

Imported attempts keep their ids, so re-importing the same file is
safe. They land unsynced and are reconciled remotely on the next
'puzzlesync sync attempts'.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		local := openLocal(cfg)
		defer local.Close()

		res, err := migrate.ImportAttempts(cmd.Context(), local, args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error during import: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("%s Imported %d attempts from %s\n", ui.RenderPass("✓"), res.AttemptsRead, args[0])
		if res.AttemptsSkipped > 0 {
			fmt.Printf("%s Skipped %d invalid entries\n", ui.RenderWarn("⚠"), res.AttemptsSkipped)
			for _, e := range res.Errors {
				fmt.Fprintf(os.Stderr, "   %s\n", e)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
}
