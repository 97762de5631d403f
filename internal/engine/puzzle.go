package engine

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/playgrid/puzzlesync/internal/schema"
)

// PuzzleSyncEngine pulls the user's entire visible puzzle set and
// reconciles the local cache against it: puzzles the remote no longer
// serves are deleted locally, everything else is upserted.
//
// This is full mirror/diff reconciliation, not log replay. The remote
// side carries no tombstone log, so requesting the complete set and
// diffing ids is the only way to observe deletions; an incremental
// delta cannot.
type PuzzleSyncEngine struct {
	local  LocalStore
	remote RemoteStore
	logger *log.Logger
	now    func() time.Time
}

// PuzzleSyncParams carries caller-owned sync state into the engine.
// LastSyncedAt is explicit state passed by the caller, not engine
// globals, which keeps the engine pure and testable.
type PuzzleSyncParams struct {
	UserID       string
	AccessTier   schema.Tier
	LastSyncedAt time.Time
}

// NewPuzzleSyncEngine creates a full-reconciliation engine.
// If logger is nil, a default logger writing to stderr is used.
func NewPuzzleSyncEngine(local LocalStore, remote RemoteStore, logger *log.Logger) *PuzzleSyncEngine {
	if logger == nil {
		logger = log.New(os.Stderr, "[puzzle-sync] ", log.LstdFlags)
	}
	return &PuzzleSyncEngine{
		local:  local,
		remote: remote,
		logger: logger,
		now:    time.Now,
	}
}

// Sync fetches the complete visible puzzle set, deletes local orphans,
// and upserts every fetched row.
//
// A fetch error aborts with nothing applied. SyncedCount reports the
// fetched count; orphan deletions are not counted. Because SavePuzzle
// is an idempotent upsert, running Sync twice against an unchanged
// remote set leaves local storage unchanged.
func (e *PuzzleSyncEngine) Sync(ctx context.Context, params PuzzleSyncParams) Result {
	if params.UserID == "" {
		return Result{Success: false, SyncedCount: 0, Err: ErrNotAuthenticated}
	}

	remote, err := e.remote.FetchVisiblePuzzles(ctx, params.AccessTier)
	if err != nil {
		return Result{Success: false, SyncedCount: 0, Err: fmt.Errorf("failed to fetch visible puzzles: %w", err)}
	}

	localIDs, err := e.local.GetAllPuzzleIDs(ctx)
	if err != nil {
		return Result{Success: false, SyncedCount: 0, Err: fmt.Errorf("failed to read local puzzle ids: %w", err)}
	}

	orphans := findOrphans(localIDs, remote)
	if len(orphans) > 0 {
		deleted, err := e.local.DeletePuzzlesByIDs(ctx, orphans)
		if err != nil {
			return Result{Success: false, SyncedCount: 0, Err: fmt.Errorf("failed to delete orphan puzzles: %w", err)}
		}
		e.logger.Printf("Deleted %d orphan puzzles", deleted)
	}

	syncedAt := e.now().UTC()
	for _, rp := range remote {
		if err := e.local.SavePuzzle(ctx, rp.ToLocal(syncedAt)); err != nil {
			return Result{Success: false, SyncedCount: 0, Err: fmt.Errorf("failed to save puzzle %s: %w", rp.ID, err)}
		}
	}

	e.logger.Printf("Full sync complete: puzzles=%d orphans=%d", len(remote), len(orphans))
	return Result{Success: true, SyncedCount: len(remote)}
}

// findOrphans returns local ids absent from the fetched remote set.
func findOrphans(localIDs []string, remote []*schema.RemotePuzzle) []string {
	remoteIDs := make(map[string]struct{}, len(remote))
	for _, rp := range remote {
		remoteIDs[rp.ID] = struct{}{}
	}

	var orphans []string
	for _, id := range localIDs {
		if _, ok := remoteIDs[id]; !ok {
			orphans = append(orphans, id)
		}
	}
	return orphans
}
