package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/playgrid/puzzlesync/internal/schema"
)

// AttemptSyncEngine pushes locally created or updated attempts to the
// remote store, one at a time, through the conflict-safe upsert.
//
// Items are processed strictly sequentially, awaiting each remote call
// before issuing the next, so at most one write is in flight per engine
// instance. One item's failure never aborts the batch; the failure is
// recorded and the batch continues.
type AttemptSyncEngine struct {
	local  LocalStore
	remote RemoteStore
	logger *log.Logger
}

// NewAttemptSyncEngine creates an attempt push engine.
// If logger is nil, a default logger writing to stderr is used.
func NewAttemptSyncEngine(local LocalStore, remote RemoteStore, logger *log.Logger) *AttemptSyncEngine {
	if logger == nil {
		logger = log.New(os.Stderr, "[attempt-sync] ", log.LstdFlags)
	}
	return &AttemptSyncEngine{
		local:  local,
		remote: remote,
		logger: logger,
	}
}

// Push uploads every unsynced attempt under the given user identity.
//
// userID must be a stable identifier (anonymous or authenticated); an
// empty id is refused before any remote call. With no unsynced
// attempts the engine returns success immediately without touching the
// remote store.
//
// The result's Success is true only if zero items failed; SyncedCount
// counts successes either way, so a partial batch reports
// Success=false with SyncedCount>0.
func (e *AttemptSyncEngine) Push(ctx context.Context, userID string) Result {
	if userID == "" {
		return Result{Success: false, SyncedCount: 0, Err: ErrNotAuthenticated}
	}

	attempts, err := e.local.GetUnsyncedAttempts(ctx)
	if err != nil {
		return Result{Success: false, SyncedCount: 0, Err: fmt.Errorf("failed to read unsynced attempts: %w", err)}
	}

	if len(attempts) == 0 {
		return Result{Success: true, SyncedCount: 0}
	}

	e.logger.Printf("Pushing %d unsynced attempts", len(attempts))

	var (
		synced int
		errs   []error
	)

	for _, attempt := range attempts {
		if err := e.pushOne(ctx, userID, attempt); err != nil {
			e.logger.Printf("WARNING: failed to sync attempt %s: %v", attempt.ID, err)
			errs = append(errs, fmt.Errorf("attempt %s: %w", attempt.ID, err))
			continue
		}
		synced++
	}

	if len(errs) > 0 {
		return Result{
			Success:     false,
			SyncedCount: synced,
			Err:         fmt.Errorf("%w: %w", ErrPartialBatch, errors.Join(errs...)),
		}
	}

	e.logger.Printf("Push complete: synced=%d", synced)
	return Result{Success: true, SyncedCount: synced}
}

// pushOne uploads a single attempt and marks it synced on success.
func (e *AttemptSyncEngine) pushOne(ctx context.Context, userID string, attempt *schema.Attempt) error {
	remote := attempt.ToRemote(userID)

	if err := e.remote.UpsertAttempt(ctx, remote); err != nil {
		return fmt.Errorf("remote upsert failed: %w", err)
	}

	if err := e.local.MarkAttemptSynced(ctx, attempt.ID); err != nil {
		return fmt.Errorf("failed to mark attempt synced: %w", err)
	}

	return nil
}
