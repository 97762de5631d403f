package schema

import (
	"encoding/json"
	"testing"
	"time"
)

func TestNewAttempt(t *testing.T) {
	a := NewAttempt("puzzle-1")

	if a.ID == "" {
		t.Error("expected generated ID")
	}
	if a.PuzzleID != "puzzle-1" {
		t.Errorf("expected puzzle-1, got %s", a.PuzzleID)
	}
	if a.Synced {
		t.Error("new attempt must start unsynced")
	}
	if a.Completed {
		t.Error("new attempt must start incomplete")
	}

	b := NewAttempt("puzzle-1")
	if a.ID == b.ID {
		t.Error("expected distinct IDs for distinct attempts")
	}
}

func TestAttemptValidate(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		attempt Attempt
		wantErr bool
	}{
		{
			name:    "valid incomplete",
			attempt: Attempt{ID: "a1", PuzzleID: "p1", StartedAt: now},
			wantErr: false,
		},
		{
			name:    "valid completed",
			attempt: Attempt{ID: "a1", PuzzleID: "p1", StartedAt: now, Completed: true, CompletedAt: &now},
			wantErr: false,
		},
		{
			name:    "missing id",
			attempt: Attempt{PuzzleID: "p1", StartedAt: now},
			wantErr: true,
		},
		{
			name:    "missing puzzle id",
			attempt: Attempt{ID: "a1", StartedAt: now},
			wantErr: true,
		},
		{
			name:    "completed without timestamp",
			attempt: Attempt{ID: "a1", PuzzleID: "p1", StartedAt: now, Completed: true},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.attempt.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr = %v", err, tt.wantErr)
			}
		})
	}
}

func TestAttemptToRemote(t *testing.T) {
	score := 42
	display := "42/50"
	now := time.Now()

	a := &Attempt{
		ID:           "a1",
		PuzzleID:     "p1",
		Completed:    true,
		Score:        &score,
		ScoreDisplay: &display,
		Metadata:     `{"moves":[1,2,3]}`,
		StartedAt:    now,
		CompletedAt:  &now,
	}

	r := a.ToRemote("user-7")

	if r.UserID != "user-7" {
		t.Errorf("expected injected user id, got %s", r.UserID)
	}
	if r.ID != a.ID || r.PuzzleID != a.PuzzleID {
		t.Error("identity fields must pass through unchanged")
	}
	if !r.Completed || r.Score != a.Score || r.ScoreDisplay != a.ScoreDisplay {
		t.Error("completion fields must pass through unchanged")
	}
	if r.Metadata != a.Metadata {
		t.Error("metadata must pass through uninterpreted")
	}
}

func TestAttemptToRemoteDefaultsIncomplete(t *testing.T) {
	a := &Attempt{ID: "a1", PuzzleID: "p1", StartedAt: time.Now()}
	r := a.ToRemote("user-1")
	if r.Completed {
		t.Error("zero-value attempt must map to completed=false")
	}
}

func TestAttemptComplete(t *testing.T) {
	a := NewAttempt("p1")
	a.Synced = true

	a.Complete(90, "90/100")

	if !a.Completed {
		t.Error("expected completed")
	}
	if a.Score == nil || *a.Score != 90 {
		t.Errorf("unexpected score: %v", a.Score)
	}
	if a.CompletedAt == nil {
		t.Error("expected completed_at to be set")
	}
	if a.Synced {
		t.Error("mutation must reset synced")
	}
}

func TestRemotePuzzleToLocal(t *testing.T) {
	syncedAt := time.Now()
	rp := &RemotePuzzle{
		ID:         "p1",
		GameMode:   "crossgrid",
		PuzzleDate: "2026-08-29",
		Content:    json.RawMessage(`{"grid":["a","b"]}`),
		Difficulty: "hard",
		UpdatedAt:  "2026-08-28T10:00:00Z",
	}

	p := rp.ToLocal(syncedAt)

	if p.Content != `{"grid":["a","b"]}` {
		t.Errorf("content not serialized verbatim: %s", p.Content)
	}
	if p.UpdatedAt != rp.UpdatedAt {
		t.Error("updated_at must be preserved verbatim")
	}
	if !p.SyncedAt.Equal(syncedAt) {
		t.Error("synced_at must record the sync time")
	}
	if err := p.Validate(); err != nil {
		t.Errorf("converted puzzle should validate: %v", err)
	}
}

func TestStale(t *testing.T) {
	tests := []struct {
		name   string
		local  string
		remote string
		want   bool
	}{
		{"missing local marker", "", "2026-08-28T10:00:00Z", true},
		{"local strictly older", "2026-08-27T10:00:00Z", "2026-08-28T10:00:00Z", true},
		{"equal markers", "2026-08-28T10:00:00Z", "2026-08-28T10:00:00Z", false},
		{"local newer", "2026-08-29T10:00:00Z", "2026-08-28T10:00:00Z", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Stale(tt.local, tt.remote); got != tt.want {
				t.Errorf("Stale(%q, %q) = %v, want %v", tt.local, tt.remote, got, tt.want)
			}
		})
	}
}

func TestParseTier(t *testing.T) {
	for _, s := range []string{"free", "plus", "pro"} {
		if _, err := ParseTier(s); err != nil {
			t.Errorf("ParseTier(%q) failed: %v", s, err)
		}
	}
	if _, err := ParseTier("platinum"); err == nil {
		t.Error("expected error for unknown tier")
	}
}

func TestTierRankOrdering(t *testing.T) {
	if !(TierFree.Rank() < TierPlus.Rank() && TierPlus.Rank() < TierPro.Rank()) {
		t.Error("tiers must be strictly ordered free < plus < pro")
	}
}

func TestWindowFor(t *testing.T) {
	cfg := DefaultWindowConfig()
	today := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	free := cfg.WindowFor(today, TierFree)
	if free.Start != "2026-08-22" || free.End != "2026-08-30" {
		t.Errorf("unexpected free window: %+v", free)
	}

	pro := cfg.WindowFor(today, TierPro)
	if pro.Start != "2026-05-31" {
		t.Errorf("unexpected pro window start: %s", pro.Start)
	}
	if pro.End != free.End {
		t.Error("forward margin should not vary by tier")
	}

	// Unknown tier falls back to the free width.
	unknown := cfg.WindowFor(today, Tier("platinum"))
	if unknown != free {
		t.Errorf("unknown tier should use free window, got %+v", unknown)
	}
}
