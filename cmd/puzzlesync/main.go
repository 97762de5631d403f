// Command puzzlesync keeps the on-device puzzle cache in sync with
// the authoritative remote store: it pushes play attempts upward,
// mirrors the visible puzzle catalog downward, and runs cheap
// staleness probes in between.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/playgrid/puzzlesync/internal/config"
	"github.com/playgrid/puzzlesync/internal/localdb"
	"github.com/playgrid/puzzlesync/internal/remotedb"
	"github.com/playgrid/puzzlesync/internal/schema"
)

var version = "dev"

var cfgPath string

var rootCmd = &cobra.Command{
	Use:     "puzzlesync",
	Short:   "Offline-first sync for daily puzzle progress",
	Version: version,
	Long: `puzzlesync reconciles locally cached puzzles and play attempts with
the remote store. Play offline on any device; once connectivity
returns, attempts converge to one remote row per (user, puzzle) and
stale or withdrawn content is refreshed or purged locally.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file (default ~/.puzzlesync/config.yaml)")
}

// loadConfig resolves configuration or exits.
func loadConfig() *config.Config {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

// openLocal opens the local cache and ensures its schema exists.
func openLocal(cfg *config.Config) *localdb.DB {
	db, err := localdb.Open(cfg.Local.DBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening local cache: %v\n", err)
		os.Exit(1)
	}
	if err := db.InitSchema(context.Background()); err != nil {
		_ = db.Close()
		fmt.Fprintf(os.Stderr, "Error initializing local schema: %v\n", err)
		os.Exit(1)
	}
	return db
}

// openRemote connects to the remote store.
func openRemote(cfg *config.Config) *remotedb.DB {
	db, err := remotedb.Open(cfg.Remote.URL, cfg.Remote.AuthToken)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting to remote store: %v\n", err)
		os.Exit(1)
	}
	return db
}

// mustTier parses the configured tier or exits.
func mustTier(cfg *config.Config) schema.Tier {
	tier, err := cfg.Tier()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return tier
}
