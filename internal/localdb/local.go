// Package localdb provides the on-device puzzle cache backed by
// embedded SQLite.
//
// The database runs in embedded mode with WAL for concurrency support:
// display reads may interleave with in-flight sync writes, and no row
// is locked during sync.
//
// Layout:
//   - Database file: ~/.puzzlesync/local.db (configurable)
//   - Schema: puzzles, attempts tables
//   - Indexes: optimized for unsynced scans and date-window probes
package localdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/playgrid/puzzlesync/internal/schema"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// DB wraps the SQLite connection with cache-specific functionality.
type DB struct {
	conn *sql.DB
	path string
}

// Open creates a database connection at the specified path.
//
// The database is opened in embedded mode with WAL for concurrent
// reads. If it doesn't exist it is created; call InitSchema before
// first use. The caller MUST call Close() when done.
//
// Example:
//
//	db, err := localdb.Open("~/.puzzlesync/local.db")
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
func Open(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn.SetMaxOpenConns(10)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(5 * time.Minute)

	db := &DB{conn: conn, path: path}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.conn.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply %s: %w", pragma, err)
		}
	}

	return db, nil
}

// Path returns the database file location.
func (db *DB) Path() string {
	return db.path
}

// Close closes the database connection.
// Performs a WAL checkpoint to ensure all changes are persisted.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}

	if _, err := db.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint WAL: %v\n", err)
	}

	if err := db.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	db.conn = nil
	return nil
}

// InitSchema creates the database schema if it doesn't exist.
// Idempotent - safe to call multiple times.
func (db *DB) InitSchema(ctx context.Context) error {
	ddl := `
	CREATE TABLE IF NOT EXISTS puzzles (
		id TEXT PRIMARY KEY,
		game_mode TEXT NOT NULL,
		puzzle_date TEXT NOT NULL,
		content TEXT NOT NULL DEFAULT '',
		difficulty TEXT NOT NULL DEFAULT '',
		updated_at TEXT NOT NULL DEFAULT '',
		synced_at TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS attempts (
		id TEXT PRIMARY KEY,
		puzzle_id TEXT NOT NULL,
		completed INTEGER NOT NULL DEFAULT 0,
		score INTEGER,
		score_display TEXT,
		metadata TEXT NOT NULL DEFAULT '',
		started_at TEXT NOT NULL,
		completed_at TEXT,
		synced INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_puzzles_date ON puzzles(puzzle_date);
	CREATE INDEX IF NOT EXISTS idx_attempts_synced ON attempts(synced);
	CREATE INDEX IF NOT EXISTS idx_attempts_puzzle ON attempts(puzzle_id);
	`

	if _, err := db.conn.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	return nil
}

// GetUnsyncedAttempts returns every attempt with synced=false, oldest
// started first so re-pushed batches keep a stable order.
func (db *DB) GetUnsyncedAttempts(ctx context.Context) ([]*schema.Attempt, error) {
	query := `
	SELECT id, puzzle_id, completed, score, score_display, metadata,
	       started_at, completed_at, synced
	FROM attempts
	WHERE synced = 0
	ORDER BY started_at ASC
	`

	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query unsynced attempts: %w", err)
	}
	defer rows.Close()

	return scanAttempts(rows)
}

// MarkAttemptSynced flips synced=true after a confirmed remote upsert.
func (db *DB) MarkAttemptSynced(ctx context.Context, id string) error {
	_, err := db.conn.ExecContext(ctx, `UPDATE attempts SET synced = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to mark attempt %s synced: %w", id, err)
	}
	return nil
}

// SavePuzzle inserts or updates a puzzle row by id.
func (db *DB) SavePuzzle(ctx context.Context, p *schema.Puzzle) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("invalid puzzle: %w", err)
	}

	query := `
	INSERT INTO puzzles (id, game_mode, puzzle_date, content, difficulty, updated_at, synced_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		game_mode = excluded.game_mode,
		puzzle_date = excluded.puzzle_date,
		content = excluded.content,
		difficulty = excluded.difficulty,
		updated_at = excluded.updated_at,
		synced_at = excluded.synced_at
	`

	_, err := db.conn.ExecContext(ctx, query,
		p.ID,
		p.GameMode,
		p.PuzzleDate,
		p.Content,
		p.Difficulty,
		p.UpdatedAt,
		p.SyncedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save puzzle %s: %w", p.ID, err)
	}

	return nil
}

// GetAllPuzzleIDs returns the ids of every cached puzzle.
func (db *DB) GetAllPuzzleIDs(ctx context.Context) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT id FROM puzzles`)
	if err != nil {
		return nil, fmt.Errorf("failed to query puzzle ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan puzzle id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating puzzle ids: %w", err)
	}

	return ids, nil
}

// DeletePuzzlesByIDs removes the given puzzles and returns the number
// of rows deleted. Idempotent - unknown ids are ignored.
func (db *DB) DeletePuzzlesByIDs(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	placeholders := strings.Repeat("?,", len(ids)-1) + "?"
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM puzzles WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete puzzles: %w", err)
	}

	count, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted puzzles: %w", err)
	}
	return int(count), nil
}

// GetPuzzleTimestampsForDateRange returns (id, updated_at) pairs for
// puzzles whose date falls inside the inclusive range.
func (db *DB) GetPuzzleTimestampsForDateRange(ctx context.Context, start, end string) ([]schema.PuzzleStamp, error) {
	query := `
	SELECT id, updated_at
	FROM puzzles
	WHERE puzzle_date >= ? AND puzzle_date <= ?
	ORDER BY puzzle_date ASC
	`

	rows, err := db.conn.QueryContext(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query puzzle timestamps: %w", err)
	}
	defer rows.Close()

	var stamps []schema.PuzzleStamp
	for rows.Next() {
		var s schema.PuzzleStamp
		if err := rows.Scan(&s.ID, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan puzzle timestamp: %w", err)
		}
		stamps = append(stamps, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating puzzle timestamps: %w", err)
	}

	return stamps, nil
}

// DeleteAttemptsByPuzzleID removes all attempts referencing the puzzle
// and returns the number of rows deleted.
func (db *DB) DeleteAttemptsByPuzzleID(ctx context.Context, puzzleID string) (int, error) {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM attempts WHERE puzzle_id = ?`, puzzleID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete attempts for puzzle %s: %w", puzzleID, err)
	}

	count, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted attempts: %w", err)
	}
	return int(count), nil
}

// SaveAttempt inserts or updates an attempt row. An update always
// resets synced=false: any mutation makes the row eligible for the
// next push.
func (db *DB) SaveAttempt(ctx context.Context, a *schema.Attempt) error {
	if err := a.Validate(); err != nil {
		return fmt.Errorf("invalid attempt: %w", err)
	}

	query := `
	INSERT INTO attempts (id, puzzle_id, completed, score, score_display,
	                      metadata, started_at, completed_at, synced)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0)
	ON CONFLICT(id) DO UPDATE SET
		completed = excluded.completed,
		score = excluded.score,
		score_display = excluded.score_display,
		metadata = excluded.metadata,
		completed_at = excluded.completed_at,
		synced = 0
	`

	_, err := db.conn.ExecContext(ctx, query,
		a.ID,
		a.PuzzleID,
		boolToInt(a.Completed),
		intPtrToNull(a.Score),
		strPtrToNull(a.ScoreDisplay),
		a.Metadata,
		a.StartedAt.UTC().Format(time.RFC3339),
		timeToNullString(a.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save attempt %s: %w", a.ID, err)
	}

	return nil
}

// GetAttemptByID retrieves a single attempt.
// Returns sql.ErrNoRows if the attempt is not found.
func (db *DB) GetAttemptByID(ctx context.Context, id string) (*schema.Attempt, error) {
	query := `
	SELECT id, puzzle_id, completed, score, score_display, metadata,
	       started_at, completed_at, synced
	FROM attempts
	WHERE id = ?
	`

	return scanAttempt(db.conn.QueryRowContext(ctx, query, id))
}

// GetPuzzleByID retrieves a single puzzle.
// Returns sql.ErrNoRows if the puzzle is not found.
func (db *DB) GetPuzzleByID(ctx context.Context, id string) (*schema.Puzzle, error) {
	query := `
	SELECT id, game_mode, puzzle_date, content, difficulty, updated_at, synced_at
	FROM puzzles
	WHERE id = ?
	`

	row := db.conn.QueryRowContext(ctx, query, id)

	var p schema.Puzzle
	var syncedAt string
	err := row.Scan(&p.ID, &p.GameMode, &p.PuzzleDate, &p.Content, &p.Difficulty, &p.UpdatedAt, &syncedAt)
	if err != nil {
		return nil, err
	}

	if t, err := time.Parse(time.RFC3339, syncedAt); err == nil {
		p.SyncedAt = t
	}

	return &p, nil
}

// ListAttempts returns all attempts, oldest first. Used by the export
// command.
func (db *DB) ListAttempts(ctx context.Context) ([]*schema.Attempt, error) {
	query := `
	SELECT id, puzzle_id, completed, score, score_display, metadata,
	       started_at, completed_at, synced
	FROM attempts
	ORDER BY started_at ASC
	`

	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}
	defer rows.Close()

	return scanAttempts(rows)
}

// CountPuzzles returns the total number of cached puzzles.
func (db *DB) CountPuzzles(ctx context.Context) (int, error) {
	var count int
	err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM puzzles`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count puzzles: %w", err)
	}
	return count, nil
}

// CountAttempts returns the total number of attempts.
func (db *DB) CountAttempts(ctx context.Context) (int, error) {
	var count int
	err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM attempts`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count attempts: %w", err)
	}
	return count, nil
}

// CountUnsyncedAttempts returns the number of attempts awaiting push.
func (db *DB) CountUnsyncedAttempts(ctx context.Context) (int, error) {
	var count int
	err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM attempts WHERE synced = 0`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unsynced attempts: %w", err)
	}
	return count, nil
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAttempt(row rowScanner) (*schema.Attempt, error) {
	var a schema.Attempt
	var completed, synced int
	var score sql.NullInt64
	var scoreDisplay, completedAt sql.NullString
	var startedAt string

	err := row.Scan(
		&a.ID,
		&a.PuzzleID,
		&completed,
		&score,
		&scoreDisplay,
		&a.Metadata,
		&startedAt,
		&completedAt,
		&synced,
	)
	if err != nil {
		return nil, err
	}

	a.Completed = completed != 0
	a.Synced = synced != 0

	if score.Valid {
		v := int(score.Int64)
		a.Score = &v
	}
	if scoreDisplay.Valid {
		v := scoreDisplay.String
		a.ScoreDisplay = &v
	}
	if t, err := time.Parse(time.RFC3339, startedAt); err == nil {
		a.StartedAt = t
	}
	a.CompletedAt = nullStringToTime(completedAt)

	return &a, nil
}

func scanAttempts(rows *sql.Rows) ([]*schema.Attempt, error) {
	var attempts []*schema.Attempt

	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attempt: %w", err)
		}
		attempts = append(attempts, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating attempts: %w", err)
	}

	return attempts, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func intPtrToNull(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func strPtrToNull(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func timeToNullString(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}

func nullStringToTime(ns sql.NullString) *time.Time {
	if !ns.Valid {
		return nil
	}
	t, err := time.Parse(time.RFC3339, ns.String)
	if err != nil {
		return nil
	}
	return &t
}
