package migrate

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/playgrid/puzzlesync/internal/localdb"
	"github.com/playgrid/puzzlesync/internal/schema"
)

func setupTestDB(t *testing.T) *localdb.DB {
	t.Helper()

	db, err := localdb.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := db.InitSchema(context.Background()); err != nil {
		t.Fatalf("failed to initialize schema: %v", err)
	}
	return db
}

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := setupTestDB(t)

	a1 := &schema.Attempt{ID: "a1", PuzzleID: "p1", Metadata: `{"moves":1}`, StartedAt: time.Now()}
	a2 := schema.NewAttempt("p2")
	a2.Complete(77, "77/100")
	for _, a := range []*schema.Attempt{a1, a2} {
		if err := src.SaveAttempt(ctx, a); err != nil {
			t.Fatalf("SaveAttempt failed: %v", err)
		}
	}

	path := filepath.Join(t.TempDir(), "backup.jsonl")
	exp, err := ExportAttempts(ctx, src, path)
	if err != nil {
		t.Fatalf("ExportAttempts failed: %v", err)
	}
	if exp.AttemptsWritten != 2 {
		t.Errorf("expected 2 written, got %d", exp.AttemptsWritten)
	}

	dst := setupTestDB(t)
	imp, err := ImportAttempts(ctx, dst, path)
	if err != nil {
		t.Fatalf("ImportAttempts failed: %v", err)
	}
	if imp.AttemptsRead != 2 || imp.AttemptsSkipped != 0 {
		t.Errorf("expected 2 read, 0 skipped, got %d/%d", imp.AttemptsRead, imp.AttemptsSkipped)
	}

	got, err := dst.GetAttemptByID(ctx, a2.ID)
	if err != nil {
		t.Fatalf("GetAttemptByID failed: %v", err)
	}
	if !got.Completed || got.Score == nil || *got.Score != 77 {
		t.Errorf("completion fields lost in round trip: %+v", got)
	}
	if got.Synced {
		t.Error("imported attempts must be unsynced so the next push reconciles them")
	}
}

func TestImportIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	if err := db.SaveAttempt(ctx, &schema.Attempt{ID: "a1", PuzzleID: "p1", StartedAt: time.Now()}); err != nil {
		t.Fatalf("SaveAttempt failed: %v", err)
	}

	path := filepath.Join(t.TempDir(), "backup.jsonl")
	if _, err := ExportAttempts(ctx, db, path); err != nil {
		t.Fatalf("ExportAttempts failed: %v", err)
	}

	if _, err := ImportAttempts(ctx, db, path); err != nil {
		t.Fatalf("first import failed: %v", err)
	}
	if _, err := ImportAttempts(ctx, db, path); err != nil {
		t.Fatalf("second import failed: %v", err)
	}

	count, err := db.CountAttempts(ctx)
	if err != nil {
		t.Fatalf("CountAttempts failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 attempt after re-import, got %d", count)
	}
}

func TestImportSkipsInvalidLines(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	path := filepath.Join(t.TempDir(), "mixed.jsonl")
	content := `{"id":"a1","puzzle_id":"p1","started_at":"2026-08-29T10:00:00Z"}
{"id":"","puzzle_id":"p2","started_at":"2026-08-29T10:00:00Z"}
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	res, err := ImportAttempts(ctx, db, path)
	if err != nil {
		t.Fatalf("ImportAttempts failed: %v", err)
	}
	if res.AttemptsRead != 1 || res.AttemptsSkipped != 1 {
		t.Errorf("expected 1 read, 1 skipped, got %d/%d", res.AttemptsRead, res.AttemptsSkipped)
	}
	if len(res.Errors) != 1 {
		t.Errorf("expected 1 recorded error, got %v", res.Errors)
	}
}
