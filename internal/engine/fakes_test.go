package engine

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/playgrid/puzzlesync/internal/schema"
)

// testLogger discards engine output during tests.
func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

// fakeLocal is an in-memory LocalStore with failure injection.
type fakeLocal struct {
	attempts map[string]*schema.Attempt
	puzzles  map[string]*schema.Puzzle

	failGetUnsynced bool
	failMarkSynced  map[string]bool

	markedSynced    []string
	deletedPuzzles  []string
	deletedAttempts []string
	savedPuzzles    []string
}

func newFakeLocal() *fakeLocal {
	return &fakeLocal{
		attempts:       make(map[string]*schema.Attempt),
		puzzles:        make(map[string]*schema.Puzzle),
		failMarkSynced: make(map[string]bool),
	}
}

func (f *fakeLocal) addAttempt(a *schema.Attempt) {
	f.attempts[a.ID] = a
}

func (f *fakeLocal) addPuzzle(p *schema.Puzzle) {
	f.puzzles[p.ID] = p
}

func (f *fakeLocal) GetUnsyncedAttempts(ctx context.Context) ([]*schema.Attempt, error) {
	if f.failGetUnsynced {
		return nil, fmt.Errorf("local read failed")
	}
	var out []*schema.Attempt
	for _, a := range f.attempts {
		if !a.Synced {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeLocal) MarkAttemptSynced(ctx context.Context, id string) error {
	if f.failMarkSynced[id] {
		return fmt.Errorf("mark synced failed for %s", id)
	}
	if a, ok := f.attempts[id]; ok {
		a.Synced = true
	}
	f.markedSynced = append(f.markedSynced, id)
	return nil
}

func (f *fakeLocal) SavePuzzle(ctx context.Context, p *schema.Puzzle) error {
	f.puzzles[p.ID] = p
	f.savedPuzzles = append(f.savedPuzzles, p.ID)
	return nil
}

func (f *fakeLocal) GetAllPuzzleIDs(ctx context.Context) ([]string, error) {
	var ids []string
	for id := range f.puzzles {
		ids = append(ids, id)
	}
	return ids, nil
}

func (f *fakeLocal) DeletePuzzlesByIDs(ctx context.Context, ids []string) (int, error) {
	count := 0
	for _, id := range ids {
		if _, ok := f.puzzles[id]; ok {
			delete(f.puzzles, id)
			f.deletedPuzzles = append(f.deletedPuzzles, id)
			count++
		}
	}
	return count, nil
}

func (f *fakeLocal) GetPuzzleTimestampsForDateRange(ctx context.Context, start, end string) ([]schema.PuzzleStamp, error) {
	var out []schema.PuzzleStamp
	for _, p := range f.puzzles {
		if p.PuzzleDate >= start && p.PuzzleDate <= end {
			out = append(out, schema.PuzzleStamp{ID: p.ID, UpdatedAt: p.UpdatedAt})
		}
	}
	return out, nil
}

func (f *fakeLocal) DeleteAttemptsByPuzzleID(ctx context.Context, puzzleID string) (int, error) {
	count := 0
	for id, a := range f.attempts {
		if a.PuzzleID == puzzleID {
			delete(f.attempts, id)
			f.deletedAttempts = append(f.deletedAttempts, id)
			count++
		}
	}
	return count, nil
}

// fakeRemote is an in-memory RemoteStore that reproduces the
// conflict-safe upsert semantics and supports failure injection.
type fakeRemote struct {
	// rows keyed by user_id + "/" + puzzle_id
	rows    map[string]*schema.RemoteAttempt
	puzzles map[string]*schema.RemotePuzzle

	failUpsertFor   map[string]bool
	failFetchAll    bool
	failTimestamps  bool
	failFetchByID   map[string]bool
	upsertCalls     int
	fetchAllCalls   int
	fetchByIDCalls  []string
	timestampsCalls int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		rows:          make(map[string]*schema.RemoteAttempt),
		puzzles:       make(map[string]*schema.RemotePuzzle),
		failUpsertFor: make(map[string]bool),
		failFetchByID: make(map[string]bool),
	}
}

func (f *fakeRemote) addPuzzle(p *schema.RemotePuzzle) {
	f.puzzles[p.ID] = p
}

func rowKey(userID, puzzleID string) string {
	return userID + "/" + puzzleID
}

func (f *fakeRemote) UpsertAttempt(ctx context.Context, attempt *schema.RemoteAttempt) error {
	f.upsertCalls++
	if f.failUpsertFor[attempt.ID] {
		return fmt.Errorf("remote rejected attempt %s", attempt.ID)
	}

	key := rowKey(attempt.UserID, attempt.PuzzleID)
	existing, ok := f.rows[key]
	if !ok {
		clone := *attempt
		f.rows[key] = &clone
		return nil
	}

	// Completion precedence: completion-sensitive fields only change
	// when the stored row is incomplete or the write is a completion.
	if !existing.Completed || attempt.Completed {
		existing.Completed = attempt.Completed
		existing.Score = attempt.Score
		existing.ScoreDisplay = attempt.ScoreDisplay
		existing.Metadata = attempt.Metadata
		existing.CompletedAt = attempt.CompletedAt
	}
	return nil
}

func (f *fakeRemote) FetchVisiblePuzzles(ctx context.Context, tier schema.Tier) ([]*schema.RemotePuzzle, error) {
	f.fetchAllCalls++
	if f.failFetchAll {
		return nil, fmt.Errorf("remote unavailable")
	}
	var out []*schema.RemotePuzzle
	for _, p := range f.puzzles {
		if p.RequiredTier.Rank() <= tier.Rank() {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeRemote) FetchPuzzleTimestamps(ctx context.Context, start, end string, tier schema.Tier) ([]schema.PuzzleStamp, error) {
	f.timestampsCalls++
	if f.failTimestamps {
		return nil, fmt.Errorf("remote unavailable")
	}
	var out []schema.PuzzleStamp
	for _, p := range f.puzzles {
		if p.PuzzleDate >= start && p.PuzzleDate <= end && p.RequiredTier.Rank() <= tier.Rank() {
			out = append(out, schema.PuzzleStamp{ID: p.ID, UpdatedAt: p.UpdatedAt})
		}
	}
	return out, nil
}

func (f *fakeRemote) FetchPuzzleByID(ctx context.Context, id string) (*schema.RemotePuzzle, error) {
	f.fetchByIDCalls = append(f.fetchByIDCalls, id)
	if f.failFetchByID[id] {
		return nil, fmt.Errorf("remote unavailable")
	}
	p, ok := f.puzzles[id]
	if !ok {
		return nil, fmt.Errorf("puzzle %s not found", id)
	}
	return p, nil
}

// unsyncedAttempt builds a minimal unsynced attempt for tests.
func unsyncedAttempt(id, puzzleID string) *schema.Attempt {
	return &schema.Attempt{
		ID:        id,
		PuzzleID:  puzzleID,
		StartedAt: time.Now(),
		Synced:    false,
	}
}

// remotePuzzle builds a remote puzzle row for tests.
func remotePuzzle(id, date, updatedAt string) *schema.RemotePuzzle {
	return &schema.RemotePuzzle{
		ID:           id,
		GameMode:     "crossgrid",
		PuzzleDate:   date,
		Content:      []byte(`{"grid":[]}`),
		Difficulty:   "medium",
		RequiredTier: schema.TierFree,
		UpdatedAt:    updatedAt,
	}
}
