// Package engine implements the sync engines that reconcile the local
// puzzle cache with the authoritative remote store: the attempt push,
// the full puzzle pull, and the lightweight staleness probe.
package engine

import (
	"context"

	"github.com/playgrid/puzzlesync/internal/schema"
)

// LocalStore is the persisted device-side cache consumed by the
// engines. Implementations must make SavePuzzle an idempotent upsert
// keyed by puzzle id; the delete operations are idempotent too and
// report how many rows they removed.
//
// The engines never lock local rows: reads for display may interleave
// with in-flight sync writes.
type LocalStore interface {
	// GetUnsyncedAttempts returns every attempt with synced=false.
	GetUnsyncedAttempts(ctx context.Context) ([]*schema.Attempt, error)

	// MarkAttemptSynced flips synced=true for the attempt after the
	// remote store has confirmed the corresponding upsert.
	MarkAttemptSynced(ctx context.Context, id string) error

	// SavePuzzle upserts a puzzle row by id.
	SavePuzzle(ctx context.Context, p *schema.Puzzle) error

	// GetAllPuzzleIDs returns the ids of every locally cached puzzle.
	GetAllPuzzleIDs(ctx context.Context) ([]string, error)

	// DeletePuzzlesByIDs removes the given puzzles and returns the
	// number of rows deleted.
	DeletePuzzlesByIDs(ctx context.Context, ids []string) (int, error)

	// GetPuzzleTimestampsForDateRange returns (id, updated_at) pairs
	// for puzzles whose date falls inside the inclusive range.
	GetPuzzleTimestampsForDateRange(ctx context.Context, start, end string) ([]schema.PuzzleStamp, error)

	// DeleteAttemptsByPuzzleID removes all attempts referencing the
	// puzzle and returns the number of rows deleted. Called when the
	// puzzle's content changed underneath an in-progress attempt.
	DeleteAttemptsByPuzzleID(ctx context.Context, puzzleID string) (int, error)
}

// RemoteStore is the authoritative store consumed by the engines.
//
// UpsertAttempt is the single most important operation: it must be an
// atomic, single-row conditional write enforcing (user_id, puzzle_id)
// uniqueness and completion precedence server-side. A client-side
// get-then-put cannot be made race-free and must not be used to
// implement it.
type RemoteStore interface {
	// UpsertAttempt inserts or conditionally updates the remote row
	// keyed by (attempt.UserID, attempt.PuzzleID). Inserting a new key
	// always succeeds. An update overwrites the completion-sensitive
	// fields only if the stored row is not yet completed or the
	// incoming write is itself a completion; an already-completed row
	// silently discards an incomplete overwrite but still bumps its
	// last-write timestamp.
	UpsertAttempt(ctx context.Context, attempt *schema.RemoteAttempt) error

	// FetchVisiblePuzzles returns the complete puzzle set visible
	// under the tier's access policy. Visibility is the remote store's
	// responsibility.
	FetchVisiblePuzzles(ctx context.Context, tier schema.Tier) ([]*schema.RemotePuzzle, error)

	// FetchPuzzleTimestamps returns (id, updated_at) pairs for visible
	// puzzles whose date falls inside the inclusive range.
	FetchPuzzleTimestamps(ctx context.Context, start, end string, tier schema.Tier) ([]schema.PuzzleStamp, error)

	// FetchPuzzleByID fetches one puzzle's full content, bypassing the
	// normal visibility rules. Used for explicitly granted unlocks and
	// for refreshing stale rows found by the light probe.
	FetchPuzzleByID(ctx context.Context, id string) (*schema.RemotePuzzle, error)
}
