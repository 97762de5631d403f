package schema

import (
	"encoding/json"
	"fmt"
	"time"
)

// DateLayout is the wire format for puzzle dates.
const DateLayout = "2006-01-02"

// Puzzle is a locally cached puzzle row.
//
// UpdatedAt is the server's revision marker and is preserved verbatim
// from the remote row: staleness probes compare it against the remote
// value, so the local side must never rewrite or reformat it.
// SyncedAt is local bookkeeping only and never leaves the device.
type Puzzle struct {
	ID         string    `json:"id"`
	GameMode   string    `json:"game_mode"`
	PuzzleDate string    `json:"puzzle_date"`
	Content    string    `json:"content"`
	Difficulty string    `json:"difficulty"`
	UpdatedAt  string    `json:"updated_at"`
	SyncedAt   time.Time `json:"synced_at"`
}

// RemotePuzzle is a puzzle row as served by the remote store.
// Content arrives as raw JSON and is serialized to a string for local
// storage.
type RemotePuzzle struct {
	ID           string          `json:"id"`
	GameMode     string          `json:"game_mode"`
	PuzzleDate   string          `json:"puzzle_date"`
	Content      json.RawMessage `json:"content"`
	Difficulty   string          `json:"difficulty"`
	RequiredTier Tier            `json:"required_tier"`
	UpdatedAt    string          `json:"updated_at"`
}

// PuzzleStamp is the (id, updated_at) pair used by staleness probes.
// An empty UpdatedAt means the marker is unknown and the row must be
// treated as stale.
type PuzzleStamp struct {
	ID        string
	UpdatedAt string
}

// Validate checks if the Puzzle has valid field values.
func (p *Puzzle) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("id is required")
	}
	if p.GameMode == "" {
		return fmt.Errorf("game_mode is required")
	}
	if _, err := time.Parse(DateLayout, p.PuzzleDate); err != nil {
		return fmt.Errorf("invalid puzzle_date %q: %w", p.PuzzleDate, err)
	}
	return nil
}

// ToLocal converts a remote puzzle into the local row shape.
// Content is serialized to a string and UpdatedAt carried over
// unchanged; SyncedAt records when this copy was taken.
func (rp *RemotePuzzle) ToLocal(syncedAt time.Time) *Puzzle {
	return &Puzzle{
		ID:         rp.ID,
		GameMode:   rp.GameMode,
		PuzzleDate: rp.PuzzleDate,
		Content:    string(rp.Content),
		Difficulty: rp.Difficulty,
		UpdatedAt:  rp.UpdatedAt,
		SyncedAt:   syncedAt,
	}
}

// Stale reports whether a local revision marker is out of date against
// the remote one. A missing local marker is always stale; otherwise the
// row is stale only when the local marker is strictly older.
//
// Markers are RFC 3339 timestamps assigned by the server, so a plain
// string comparison orders them correctly. Equal markers are not stale.
func Stale(localUpdatedAt, remoteUpdatedAt string) bool {
	if localUpdatedAt == "" {
		return true
	}
	return localUpdatedAt < remoteUpdatedAt
}
