// Package daemon provides the background orchestrator that decides
// when the sync engines run.
//
// The daemon:
//  1. Watches the local cache file for writes and pushes attempts
//     after a short debounce
//  2. Runs the light staleness probe on a short interval
//  3. Runs the full puzzle reconciliation on a long interval
//  4. Handles graceful shutdown
//
// The engines themselves stay pure; everything schedule-shaped lives
// here.
package daemon

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/playgrid/puzzlesync/internal/engine"
	"github.com/playgrid/puzzlesync/internal/schema"
)

// Config holds configuration for the daemon.
type Config struct {
	// LightSyncInterval is how often to run the staleness probe.
	LightSyncInterval time.Duration

	// FullSyncInterval is how often to run the full puzzle
	// reconciliation.
	FullSyncInterval time.Duration

	// Debounce is how long to wait after a cache write before pushing
	// attempts. This batches rapid updates together.
	Debounce time.Duration

	// Logger for daemon activity.
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		LightSyncInterval: 5 * time.Minute,
		FullSyncInterval:  time.Hour,
		Debounce:          2 * time.Second,
		Logger:            log.New(os.Stderr, "[daemon] ", log.LstdFlags),
	}
}

// Daemon orchestrates cache watching and engine runs.
type Daemon struct {
	attempts *engine.AttemptSyncEngine
	puzzles  *engine.PuzzleSyncEngine
	light    *engine.LightSyncEngine

	userID string
	tier   schema.Tier
	dbPath string
	config *Config

	watcher *fsnotify.Watcher

	dirtyMu  sync.Mutex
	dirtyAt  time.Time
	dirty    bool
	lastFull time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Daemon for the given engines and identity.
//
// dbPath is the local cache file; its directory is watched so attempt
// writes from the game trigger a push without polling.
func New(attempts *engine.AttemptSyncEngine, puzzles *engine.PuzzleSyncEngine, light *engine.LightSyncEngine,
	userID string, tier schema.Tier, dbPath string, config *Config) (*Daemon, error) {

	if attempts == nil || puzzles == nil || light == nil {
		return nil, fmt.Errorf("all three engines are required")
	}
	if userID == "" {
		return nil, fmt.Errorf("userID cannot be empty")
	}
	if dbPath == "" {
		return nil, fmt.Errorf("dbPath cannot be empty")
	}
	if config == nil {
		config = DefaultConfig()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Daemon{
		attempts: attempts,
		puzzles:  puzzles,
		light:    light,
		userID:   userID,
		tier:     tier,
		dbPath:   dbPath,
		config:   config,
		watcher:  watcher,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Start begins the daemon's operation.
//
// The daemon performs an initial full sync and attempt push, then
// starts watching and ticking. This blocks until ctx is cancelled or
// an error occurs.
func (d *Daemon) Start(ctx context.Context) error {
	d.config.Logger.Println("Starting daemon")

	// Initial reconciliation so a fresh device converges immediately.
	d.runFullSync()
	d.runAttemptPush()

	if err := d.watcher.Add(filepath.Dir(d.dbPath)); err != nil {
		return fmt.Errorf("failed to watch cache directory: %w", err)
	}

	d.config.Logger.Printf("Watching: %s", filepath.Dir(d.dbPath))

	d.wg.Add(2)
	go d.watchFileEvents()
	go d.tick()

	select {
	case <-ctx.Done():
		d.config.Logger.Println("Shutdown signal received")
		return d.Stop()
	case <-d.ctx.Done():
		return nil
	}
}

// Stop gracefully shuts down the daemon.
func (d *Daemon) Stop() error {
	d.config.Logger.Println("Stopping daemon")

	d.cancel()

	if err := d.watcher.Close(); err != nil {
		d.config.Logger.Printf("Error closing watcher: %v", err)
	}

	d.wg.Wait()

	d.config.Logger.Println("Daemon stopped")
	return nil
}

// watchFileEvents marks the cache dirty on writes to the database
// file. WAL mode means writes may land in the -wal sidecar, so any
// file sharing the cache's base name counts.
func (d *Daemon) watchFileEvents() {
	defer d.wg.Done()

	base := filepath.Base(d.dbPath)

	for {
		select {
		case <-d.ctx.Done():
			return

		case event, ok := <-d.watcher.Events:
			if !ok {
				return
			}

			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !strings.HasPrefix(filepath.Base(event.Name), base) {
				continue
			}

			d.markDirty()

		case err, ok := <-d.watcher.Errors:
			if !ok {
				return
			}
			d.config.Logger.Printf("Watcher error: %v", err)
		}
	}
}

func (d *Daemon) markDirty() {
	d.dirtyMu.Lock()
	defer d.dirtyMu.Unlock()
	d.dirty = true
	d.dirtyAt = time.Now()
}

// takeDirty consumes the dirty flag if the debounce interval has
// elapsed since the last write.
func (d *Daemon) takeDirty() bool {
	d.dirtyMu.Lock()
	defer d.dirtyMu.Unlock()
	if !d.dirty || time.Since(d.dirtyAt) < d.config.Debounce {
		return false
	}
	d.dirty = false
	return true
}

// tick drives the debounced push, the light probe, and the periodic
// full sync.
func (d *Daemon) tick() {
	defer d.wg.Done()

	debounce := time.NewTicker(d.config.Debounce)
	defer debounce.Stop()

	lightTicker := time.NewTicker(d.config.LightSyncInterval)
	defer lightTicker.Stop()

	fullTicker := time.NewTicker(d.config.FullSyncInterval)
	defer fullTicker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return

		case <-debounce.C:
			if d.takeDirty() {
				d.runAttemptPush()
			}

		case <-lightTicker.C:
			d.runLightSync()

		case <-fullTicker.C:
			d.runFullSync()
		}
	}
}

// runAttemptPush pushes unsynced attempts once. Failures are logged;
// the next trigger retries naturally since failed attempts stay
// unsynced.
func (d *Daemon) runAttemptPush() {
	res := d.attempts.Push(d.ctx, d.userID)
	if !res.Success {
		d.config.Logger.Printf("Attempt push incomplete: %s", res)
		return
	}
	if res.SyncedCount > 0 {
		d.config.Logger.Printf("Attempt push: %s", res)
	}
}

// runFullSync reconciles the whole puzzle catalog once.
func (d *Daemon) runFullSync() {
	res := d.puzzles.Sync(d.ctx, engine.PuzzleSyncParams{
		UserID:       d.userID,
		AccessTier:   d.tier,
		LastSyncedAt: d.lastFull,
	})
	if !res.Success {
		d.config.Logger.Printf("Full sync failed: %s", res)
		return
	}
	d.lastFull = time.Now()
	d.config.Logger.Printf("Full sync: %s", res)
}

// runLightSync runs the staleness probe once. The probe swallows its
// own failures, so there is nothing to handle here.
func (d *Daemon) runLightSync() {
	res := d.light.Probe(d.ctx, engine.LightSyncParams{
		UserID:     d.userID,
		AccessTier: d.tier,
	})
	if res.UpdatedCount > 0 {
		d.config.Logger.Printf("Light sync: checked=%d updated=%d", res.CheckedCount, res.UpdatedCount)
	}
}
