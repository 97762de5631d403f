// Package schema defines the data model shared by the local cache and
// the remote store: puzzle attempts, puzzle content rows, access tiers,
// and the transforms between local and remote representations.
package schema

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Attempt is a locally persisted play attempt.
//
// The ID is client-generated and stable across sync runs, so the same
// attempt re-pushed after a failure maps to the same remote row. The
// row is created when the user starts an attempt and mutated in place
// as play progresses; any mutation resets Synced to false.
//
// Metadata is an opaque JSON string interpreted only by game logic.
// The sync engine passes it through without looking inside.
type Attempt struct {
	ID           string     `json:"id"`
	PuzzleID     string     `json:"puzzle_id"`
	Completed    bool       `json:"completed"`
	Score        *int       `json:"score,omitempty"`
	ScoreDisplay *string    `json:"score_display,omitempty"`
	Metadata     string     `json:"metadata,omitempty"`
	StartedAt    time.Time  `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	Synced       bool       `json:"synced"`
}

// RemoteAttempt is the remote representation of an attempt.
//
// The remote store keys attempts by (UserID, PuzzleID), collapsing any
// number of client-generated attempt IDs for the same user and puzzle
// into a single row. UserID always comes from the caller's identity,
// never from per-attempt data.
type RemoteAttempt struct {
	ID           string     `json:"id"`
	UserID       string     `json:"user_id"`
	PuzzleID     string     `json:"puzzle_id"`
	Completed    bool       `json:"completed"`
	Score        *int       `json:"score,omitempty"`
	ScoreDisplay *string    `json:"score_display,omitempty"`
	Metadata     string     `json:"metadata,omitempty"`
	StartedAt    time.Time  `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// NewAttempt creates an unsynced attempt for the given puzzle with a
// fresh client-generated ID.
func NewAttempt(puzzleID string) *Attempt {
	return &Attempt{
		ID:        uuid.NewString(),
		PuzzleID:  puzzleID,
		StartedAt: time.Now().UTC(),
		Synced:    false,
	}
}

// Validate checks if the Attempt has valid field values.
func (a *Attempt) Validate() error {
	if a.ID == "" {
		return fmt.Errorf("id is required")
	}
	if a.PuzzleID == "" {
		return fmt.Errorf("puzzle_id is required")
	}
	if a.StartedAt.IsZero() {
		return fmt.Errorf("started_at is required")
	}
	if a.Completed && a.CompletedAt == nil {
		return fmt.Errorf("completed_at is required for a completed attempt")
	}
	return nil
}

// ToRemote builds the remote representation of the attempt for the
// given user identity. This is a pure field mapping: booleans and the
// metadata JSON pass through uninterpreted, and the zero value of
// Completed maps to false on the remote side.
func (a *Attempt) ToRemote(userID string) *RemoteAttempt {
	return &RemoteAttempt{
		ID:           a.ID,
		UserID:       userID,
		PuzzleID:     a.PuzzleID,
		Completed:    a.Completed,
		Score:        a.Score,
		ScoreDisplay: a.ScoreDisplay,
		Metadata:     a.Metadata,
		StartedAt:    a.StartedAt,
		CompletedAt:  a.CompletedAt,
	}
}

// Complete marks the attempt finished with the given score and resets
// Synced so the next push picks it up.
func (a *Attempt) Complete(score int, scoreDisplay string) {
	now := time.Now().UTC()
	a.Completed = true
	a.Score = &score
	a.ScoreDisplay = &scoreDisplay
	a.CompletedAt = &now
	a.Synced = false
}
