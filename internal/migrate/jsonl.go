// Package migrate moves attempt data between the local cache and
// JSONL files, for backups and device-to-device moves.
package migrate

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/playgrid/puzzlesync/internal/localdb"
	"github.com/playgrid/puzzlesync/internal/schema"
)

// ExportResult contains statistics about an export.
type ExportResult struct {
	AttemptsWritten int
}

// ImportResult contains statistics about an import.
type ImportResult struct {
	AttemptsRead    int
	AttemptsSkipped int
	Errors          []string
}

// ExportAttempts writes every local attempt to a JSONL file, one
// attempt per line, oldest first.
func ExportAttempts(ctx context.Context, db *localdb.DB, path string) (*ExportResult, error) {
	attempts, err := db.ListAttempts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read attempts: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create export file: %w", err)
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	enc := json.NewEncoder(w)

	result := &ExportResult{}
	for _, a := range attempts {
		if err := enc.Encode(a); err != nil {
			return nil, fmt.Errorf("failed to encode attempt %s: %w", a.ID, err)
		}
		result.AttemptsWritten++
	}

	if err := w.Flush(); err != nil {
		return nil, fmt.Errorf("failed to flush export file: %w", err)
	}

	return result, nil
}

// ImportAttempts reads a JSONL file and saves each attempt into the
// local cache. Imported attempts keep their ids, so re-importing the
// same file is idempotent. Invalid lines are skipped and reported, not
// fatal.
//
// Imported rows are saved through the normal mutation path, which
// resets synced=false: the next push reconciles them remotely.
func ImportAttempts(ctx context.Context, db *localdb.DB, path string) (*ImportResult, error) {
	// #nosec G304 - controlled path from CLI
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open import file: %w", err)
	}
	defer file.Close()

	dec := json.NewDecoder(file)
	result := &ImportResult{}
	lineNum := 0

	for {
		var a schema.Attempt
		if err := dec.Decode(&a); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("invalid JSON at line %d: %w", lineNum+1, err)
		}
		lineNum++

		if err := a.Validate(); err != nil {
			result.AttemptsSkipped++
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: %v", lineNum, err))
			continue
		}

		if err := db.SaveAttempt(ctx, &a); err != nil {
			result.AttemptsSkipped++
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: %v", lineNum, err))
			continue
		}

		result.AttemptsRead++
	}

	return result, nil
}
