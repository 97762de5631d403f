package engine

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/playgrid/puzzlesync/internal/schema"
)

// LightSyncEngine is the two-phase staleness probe: it compares cheap
// (id, updated_at) revision markers for a bounded date window, then
// fetches full content only for rows that actually changed. Bandwidth
// is bounded by the volume of changed content, not catalog size.
//
// The probe is best-effort. A remote failure is treated as degraded or
// offline and yields a zero result; it never blocks or errors out the
// caller.
type LightSyncEngine struct {
	local   LocalStore
	remote  RemoteStore
	windows schema.WindowConfig
	logger  *log.Logger
	now     func() time.Time
}

// LightSyncParams carries the identity and tier the probe runs under.
type LightSyncParams struct {
	UserID     string
	AccessTier schema.Tier
}

// NewLightSyncEngine creates a staleness probe engine.
// If logger is nil, a default logger writing to stderr is used.
func NewLightSyncEngine(local LocalStore, remote RemoteStore, windows schema.WindowConfig, logger *log.Logger) *LightSyncEngine {
	if logger == nil {
		logger = log.New(os.Stderr, "[light-sync] ", log.LstdFlags)
	}
	return &LightSyncEngine{
		local:   local,
		remote:  remote,
		windows: windows,
		logger:  logger,
		now:     time.Now,
	}
}

// Probe compares revision markers for puzzles inside the tier's date
// window and refreshes the rows whose local marker is missing or
// strictly older than the remote one.
//
// Refreshing a stale puzzle first deletes any local attempts that
// reference it: the content changed underneath a possibly in-progress
// attempt, so the progress is discarded rather than silently
// misrepresented. Remote ids with no local row are ignored here; the
// full puzzle sync owns those.
func (e *LightSyncEngine) Probe(ctx context.Context, params LightSyncParams) LightResult {
	window := e.windows.WindowFor(e.now(), params.AccessTier)

	local, err := e.local.GetPuzzleTimestampsForDateRange(ctx, window.Start, window.End)
	if err != nil {
		e.logger.Printf("WARNING: failed to read local timestamps: %v", err)
		return LightResult{}
	}
	if len(local) == 0 {
		return LightResult{}
	}

	remote, err := e.remote.FetchPuzzleTimestamps(ctx, window.Start, window.End, params.AccessTier)
	if err != nil {
		// Degraded or offline. The probe swallows this; the caller
		// retries on its own schedule.
		e.logger.Printf("Probe skipped, remote unavailable: %v", err)
		return LightResult{}
	}

	localByID := make(map[string]string, len(local))
	for _, stamp := range local {
		localByID[stamp.ID] = stamp.UpdatedAt
	}

	var stale []string
	for _, stamp := range remote {
		localUpdatedAt, ok := localByID[stamp.ID]
		if !ok {
			continue
		}
		if schema.Stale(localUpdatedAt, stamp.UpdatedAt) {
			stale = append(stale, stamp.ID)
		}
	}

	updated := 0
	for _, id := range stale {
		if err := e.refresh(ctx, id); err != nil {
			e.logger.Printf("WARNING: failed to refresh stale puzzle %s: %v", id, err)
			continue
		}
		updated++
	}

	if len(stale) > 0 {
		e.logger.Printf("Probe complete: checked=%d stale=%d updated=%d", len(local), len(stale), updated)
	}
	return LightResult{CheckedCount: len(local), UpdatedCount: updated}
}

// refresh invalidates attempts tied to the puzzle and replaces its
// content with the current remote row.
func (e *LightSyncEngine) refresh(ctx context.Context, id string) error {
	deleted, err := e.local.DeleteAttemptsByPuzzleID(ctx, id)
	if err != nil {
		return err
	}
	if deleted > 0 {
		e.logger.Printf("Invalidated %d attempts for changed puzzle %s", deleted, id)
	}

	rp, err := e.remote.FetchPuzzleByID(ctx, id)
	if err != nil {
		return err
	}

	return e.local.SavePuzzle(ctx, rp.ToLocal(e.now().UTC()))
}
